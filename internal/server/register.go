package server

import (
	"errors"
	"net/http"
	"net/mail"
	"regexp"
	"strings"

	"volunteerhub/internal/utils"
	"volunteerhub/pkg/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	ctypes "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
)

type registerRequest struct {
	UserType        types.UserType `json:"userType"`
	Email           string         `json:"email"`
	Password        string         `json:"password"`
	ConfirmPassword string         `json:"confirmPassword"`
	FirstName       string         `json:"firstName"`
	LastName        string         `json:"lastName"`
}

type confirmRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// handlePostRegister signs the user up with Cognito and creates the matching
// profile keyed by the Cognito subject.
func (s *Service) handlePostRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req registerRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Email = strings.TrimSpace(req.Email)

	fieldErrs := validateRegisterInput(req)
	if len(fieldErrs) > 0 {
		s.logger.WithField("field_errors", fieldErrs).Info("validation errors during registration")
		s.writeErrorStatus(w, http.StatusBadRequest, types.ErrValidation.Error(), fieldErrs)
		return
	}

	input := &cognitoidentityprovider.SignUpInput{
		ClientId: aws.String(s.config.CognitoClientID),
		Username: aws.String(req.Email), // use email as username
		Password: aws.String(req.Password),
		UserAttributes: []ctypes.AttributeType{
			{Name: aws.String("email"), Value: aws.String(req.Email)},
			{Name: aws.String("given_name"), Value: aws.String(req.FirstName)},
			{Name: aws.String("family_name"), Value: aws.String(req.LastName)},
		},
	}

	out, err := s.cognitoClient.SignUp(ctx, input)
	if err != nil {
		s.logger.WithError(err).Error("failed to signup user")

		status, msg, fields := s.mapCognitoSignUpError(err)
		s.writeErrorStatus(w, status, msg, fields)
		return
	}

	profile, err := s.engine.RegisterProfile(ctx, &types.Profile{
		ID:        aws.ToString(out.UserSub),
		UserType:  req.UserType,
		Email:     utils.StringPtr(req.Email),
		FirstName: utils.TrimmedStringPtr(req.FirstName),
		LastName:  utils.TrimmedStringPtr(req.LastName),
	})
	if err != nil {
		s.logger.WithError(err).WithField("user_sub", aws.ToString(out.UserSub)).Error("failed to create profile after signup")
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, map[string]any{
		"profile":          profile,
		"confirmationSent": !out.UserConfirmed,
	})
}

func (s *Service) handlePostRegisterConfirm(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	input := &cognitoidentityprovider.ConfirmSignUpInput{
		ClientId:         aws.String(s.config.CognitoClientID),
		Username:         aws.String(strings.TrimSpace(req.Email)),
		ConfirmationCode: aws.String(strings.TrimSpace(req.Code)),
	}

	_, err := s.cognitoClient.ConfirmSignUp(r.Context(), input)
	if err != nil {
		s.logger.WithError(err).Error("failed to confirm user signup")

		var codeMismatch *ctypes.CodeMismatchException
		if errors.As(err, &codeMismatch) {
			s.writeErrorStatus(w, http.StatusBadRequest, "invalid confirmation code", map[string]string{"code": "does not match"})
			return
		}

		s.writeErrorStatus(w, http.StatusBadRequest, "unable to confirm account", nil)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

var (
	hasUpperReg  = regexp.MustCompile(`[A-Z]`)
	hasLowerReg  = regexp.MustCompile(`[a-z]`)
	hasDigitReg  = regexp.MustCompile(`[0-9]`)
	hasSymbolReg = regexp.MustCompile(`[^A-Za-z0-9]`)
)

func validateRegisterInput(req registerRequest) map[string]string {
	errs := map[string]string{}

	if req.UserType != types.UserTypeVolunteer && req.UserType != types.UserTypeNGO {
		errs["userType"] = "must be volunteer or ngo"
	}

	if req.FirstName == "" {
		errs["firstName"] = "is required"
	}

	if req.Email == "" {
		errs["email"] = "is required"
	} else if _, err := mail.ParseAddress(req.Email); err != nil {
		errs["email"] = "must be a valid email address"
	}

	if req.Password != req.ConfirmPassword {
		errs["confirmPassword"] = "passwords do not match"
	}

	hasUpper := hasUpperReg.MatchString(req.Password)
	hasLower := hasLowerReg.MatchString(req.Password)
	hasDigit := hasDigitReg.MatchString(req.Password)
	hasSymbol := hasSymbolReg.MatchString(req.Password)

	if len(req.Password) < 12 || !hasUpper || !hasLower || !hasDigit || !hasSymbol {
		errs["password"] = "must be at least 12 characters and include uppercase, lowercase, number, and symbol"
	}

	return errs
}

func (s *Service) mapCognitoSignUpError(err error) (int, string, map[string]string) {
	var invalidPw *ctypes.InvalidPasswordException
	if errors.As(err, &invalidPw) {
		return http.StatusBadRequest, types.ErrValidation.Error(), map[string]string{
			"password": "must include uppercase, lowercase, number, and symbol (min 12)",
		}
	}

	var userExists *ctypes.UsernameExistsException
	if errors.As(err, &userExists) {
		return http.StatusConflict, "an account with this email already exists", map[string]string{
			"email": "already registered",
		}
	}

	var invalidParam *ctypes.InvalidParameterException
	if errors.As(err, &invalidParam) {
		return http.StatusBadRequest, "some details are invalid", nil
	}

	s.logger.WithError(err).Error("unhandled cognito signup error")

	return http.StatusBadGateway, "unable to create account right now", nil
}
