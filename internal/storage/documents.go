package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"

	"volunteerhub/internal/utils"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectAPI is the subset of the S3 client used for documents.
type ObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// DocumentStore keeps uploaded verification documents in a single bucket.
// The returned keys are the opaque references stored on profiles.
type DocumentStore struct {
	client ObjectAPI
	bucket string
}

func NewDocumentStore(client ObjectAPI, bucket string) *DocumentStore {
	return &DocumentStore{client: client, bucket: bucket}
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func sanitizeFileName(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	name = unsafeFileChars.ReplaceAllString(name, "-")
	name = strings.Trim(name, "-.")
	if name == "" {
		return "document"
	}
	return name
}

// Key prefixes for the two kinds of document owners.
const (
	PrefixNGO       = "ngo-documents"
	PrefixVolunteer = "volunteer-documents"
)

// Upload describes one file to store.
type Upload struct {
	Prefix      string
	OwnerID     string
	Kind        string
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Key builds <prefix>/<owner>/<kind>/<nanoid>-<file>.
func (u Upload) Key() string {
	prefix := u.Prefix
	if prefix == "" {
		prefix = PrefixNGO
	}
	return path.Join(prefix, u.OwnerID, u.Kind, utils.NanoIDSize(12)+"-"+sanitizeFileName(u.FileName))
}

// Upload stores the file under a fresh key and returns the key.
func (s *DocumentStore) Upload(ctx context.Context, upload Upload) (string, error) {
	key := upload.Key()

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   upload.Body,
	}
	if upload.ContentType != "" {
		input.ContentType = aws.String(upload.ContentType)
	}
	if upload.Size > 0 {
		input.ContentLength = aws.Int64(upload.Size)
	}

	_, err := s.client.PutObject(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to upload %s document: %w", upload.Kind, err)
	}

	return key, nil
}

// Delete removes a stored document. Empty keys are ignored.
func (s *DocumentStore) Delete(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete document %s: %w", key, err)
	}

	return nil
}
