package utils

import "strings"

func IntPtr(i int) *int {
	return &i
}

func StringPtr(s string) *string {
	return &s
}

func PtrString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// TrimmedStringPtr returns nil for blank input so optional columns are
// stored as NULL rather than empty strings.
func TrimmedStringPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
