package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"volunteerhub/internal"
	"volunteerhub/internal/storage"
	"volunteerhub/internal/store/memory"
	"volunteerhub/internal/workflow"
	"volunteerhub/pkg/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	ctypes "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tokenVerifier accepts tokens of the form "token-<user id>".
type tokenVerifier struct{}

func (tokenVerifier) Verify(_ context.Context, token string) (*Identity, error) {
	userID, ok := strings.CutPrefix(token, "token-")
	if !ok || userID == "" {
		return nil, errors.New("bad token")
	}
	return &Identity{UserID: userID}, nil
}

type fakeCognito struct {
	signUpErr error
	authErr   error
	signedUp  []string
}

func (c *fakeCognito) SignUp(_ context.Context, in *cognitoidentityprovider.SignUpInput, _ ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.SignUpOutput, error) {
	if c.signUpErr != nil {
		return nil, c.signUpErr
	}
	c.signedUp = append(c.signedUp, aws.ToString(in.Username))
	return &cognitoidentityprovider.SignUpOutput{
		UserSub:       aws.String(fmt.Sprintf("sub-%d", len(c.signedUp))),
		UserConfirmed: false,
	}, nil
}

func (c *fakeCognito) ConfirmSignUp(_ context.Context, in *cognitoidentityprovider.ConfirmSignUpInput, _ ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.ConfirmSignUpOutput, error) {
	if aws.ToString(in.ConfirmationCode) != "123456" {
		return nil, &ctypes.CodeMismatchException{Message: aws.String("mismatch")}
	}
	return &cognitoidentityprovider.ConfirmSignUpOutput{}, nil
}

func (c *fakeCognito) InitiateAuth(_ context.Context, in *cognitoidentityprovider.InitiateAuthInput, _ ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.InitiateAuthOutput, error) {
	if c.authErr != nil {
		return nil, c.authErr
	}
	return &cognitoidentityprovider.InitiateAuthOutput{
		AuthenticationResult: &ctypes.AuthenticationResultType{
			AccessToken: aws.String("token-" + in.AuthParameters["USERNAME"]),
			ExpiresIn:   3600,
		},
	}, nil
}

type fakeDocuments struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
}

func (d *fakeDocuments) Upload(_ context.Context, upload storage.Upload) (string, error) {
	body, err := io.ReadAll(upload.Body)
	if err != nil {
		return "", err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	key := fmt.Sprintf("%s/%s/%s/%s", upload.Prefix, upload.OwnerID, upload.Kind, upload.FileName)
	d.objects[key] = body
	return key, nil
}

func (d *fakeDocuments) Delete(_ context.Context, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.objects, key)
	d.deleted = append(d.deleted, key)
	return nil
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, string, string, string) {}

type testServer struct {
	service *Service
	store   *memory.Store
	cognito *fakeCognito
	docs    *fakeDocuments
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	logger, _ := test.NewNullLogger()
	st := memory.New()

	engine := workflow.New(logger, workflow.Repositories{
		Profiles:      st,
		Opportunities: st,
		Applications:  st,
		Messages:      st,
		Reviews:       st,
		AdminActions:  st,
	}, nopNotifier{})

	config := &types.Config{
		CognitoClientID: "client-id",
		MaxUploadBytes:  1 << 20,
		CookieHashKey:   base64.StdEncoding.EncodeToString(bytes.Repeat([]byte("h"), 32)),
		CookieBlockKey:  base64.StdEncoding.EncodeToString(bytes.Repeat([]byte("b"), 32)),
	}

	cognito := &fakeCognito{}
	docs := &fakeDocuments{objects: map[string][]byte{}}

	service, err := New(config, logger, engine, cognito, docs, tokenVerifier{})
	require.NoError(t, err)

	return &testServer{service: service, store: st, cognito: cognito, docs: docs}
}

func (ts *testServer) do(t *testing.T, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set("Authorization", "Bearer token-"+userID)
	}

	rec := httptest.NewRecorder()
	ts.service.Handler().ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) profile(t *testing.T, id string, userType types.UserType, status types.ApprovalStatus) {
	t.Helper()
	require.NoError(t, ts.store.CreateProfile(context.Background(), &types.Profile{
		ID:             id,
		UserType:       userType,
		ApprovalStatus: status,
	}))
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRequireAuth(t *testing.T) {
	ts := newTestServer(t)

	t.Run("missing token", func(t *testing.T) {
		rec := ts.do(t, http.MethodGet, "/me", "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "authentication required", decodeBody[errorResponse](t, rec).Error)
	})

	t.Run("malformed header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Token abc")
		rec := httptest.NewRecorder()
		ts.service.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("invalid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer nope")
		rec := httptest.NewRecorder()
		ts.service.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "invalid or expired token", decodeBody[errorResponse](t, rec).Error)
	})
}

func TestStripTrailingSlash(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/opportunities/", "", nil)
	assert.Equal(t, http.StatusPermanentRedirect, rec.Code)
	assert.Equal(t, "/opportunities", rec.Header().Get("Location"))
}

func TestRegisterAndLogin(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/register", "", map[string]any{
		"userType":        "volunteer",
		"email":           "priya@example.org",
		"password":        "Sup3r-Secret-Pass",
		"confirmPassword": "Sup3r-Secret-Pass",
		"firstName":       " Priya ",
		"lastName":        "Nair",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	body := decodeBody[struct {
		Profile          types.Profile `json:"profile"`
		ConfirmationSent bool          `json:"confirmationSent"`
	}](t, rec)
	assert.Equal(t, "sub-1", body.Profile.ID)
	assert.Equal(t, types.UserTypeVolunteer, body.Profile.UserType)
	assert.Equal(t, "Priya", *body.Profile.FirstName)
	assert.True(t, body.ConfirmationSent)

	rec = ts.do(t, http.MethodPost, "/register/confirm", "", map[string]string{"email": "priya@example.org", "code": "000000"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = ts.do(t, http.MethodPost, "/register/confirm", "", map[string]string{"email": "priya@example.org", "code": "123456"})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, http.MethodPost, "/login", "", map[string]string{"email": "sub-1", "password": "Sup3r-Secret-Pass"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	login := decodeBody[loginResponse](t, rec)
	assert.Equal(t, "token-sub-1", login.AccessToken)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, internal.COOKIE_ACCESS_TOKEN_NAME, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	// the encrypted cookie alone authenticates
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(cookies[0])
	me := httptest.NewRecorder()
	ts.service.Handler().ServeHTTP(me, req)
	require.Equal(t, http.StatusOK, me.Code, me.Body.String())
	assert.Contains(t, me.Body.String(), `"id":"sub-1"`)
}

func TestRegisterValidation(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/register", "", map[string]any{
		"userType":        "admin",
		"email":           "not-an-email",
		"password":        "short",
		"confirmPassword": "different",
		"firstName":       "",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decodeBody[errorResponse](t, rec)
	assert.Contains(t, body.Fields, "userType")
	assert.Contains(t, body.Fields, "email")
	assert.Contains(t, body.Fields, "password")
	assert.Contains(t, body.Fields, "confirmPassword")
	assert.Contains(t, body.Fields, "firstName")
	assert.Empty(t, ts.cognito.signedUp)
}

func TestRegisterExistingAccount(t *testing.T) {
	ts := newTestServer(t)
	ts.cognito.signUpErr = &ctypes.UsernameExistsException{Message: aws.String("exists")}

	rec := ts.do(t, http.MethodPost, "/register", "", map[string]any{
		"userType":        "ngo",
		"email":           "ngo@example.org",
		"password":        "Sup3r-Secret-Pass",
		"confirmPassword": "Sup3r-Secret-Pass",
		"firstName":       "Asha",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLoginFailures(t *testing.T) {
	ts := newTestServer(t)

	ts.cognito.authErr = &ctypes.UserNotConfirmedException{Message: aws.String("unconfirmed")}
	rec := ts.do(t, http.MethodPost, "/login", "", map[string]string{"email": "a@example.org", "password": "x"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "account is not confirmed", decodeBody[errorResponse](t, rec).Error)

	ts.cognito.authErr = &ctypes.NotAuthorizedException{Message: aws.String("bad password")}
	rec = ts.do(t, http.MethodPost, "/login", "", map[string]string{"email": "a@example.org", "password": "x"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid credentials", decodeBody[errorResponse](t, rec).Error)

	rec = ts.do(t, http.MethodPost, "/login", "", map[string]string{"email": "", "password": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	ts := newTestServer(t)
	ts.profile(t, "vol-1", types.UserTypeVolunteer, types.ApprovalStatusUnsubmitted)

	rec := ts.do(t, http.MethodPost, "/messages", "vol-1", map[string]any{"receiverId": "x", "content": "hi", "extra": true})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOpportunityApplicationFlow(t *testing.T) {
	ts := newTestServer(t)
	ts.profile(t, "ngo-1", types.UserTypeNGO, types.ApprovalStatusApproved)
	ts.profile(t, "ngo-2", types.UserTypeNGO, types.ApprovalStatusPending)
	ts.profile(t, "vol-1", types.UserTypeVolunteer, types.ApprovalStatusUnsubmitted)
	ts.profile(t, "vol-2", types.UserTypeVolunteer, types.ApprovalStatusUnsubmitted)

	spec := map[string]any{
		"title":           "Beach cleanup",
		"description":     "Clear plastic from the shoreline",
		"requiredSkills":  []string{"teamwork"},
		"spots_available": 1,
	}

	rec := ts.do(t, http.MethodPost, "/opportunities", "ngo-2", spec)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodPost, "/opportunities", "ngo-1", map[string]any{"title": "", "description": "", "spots_available": 0})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	fields := decodeBody[errorResponse](t, rec).Fields
	assert.Contains(t, fields, "title")
	assert.Contains(t, fields, "spots_available")

	rec = ts.do(t, http.MethodPost, "/opportunities", "ngo-1", spec)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	opp := decodeBody[types.OpportunityView](t, rec)
	assert.Equal(t, 1, opp.SpotsRemaining)
	assert.False(t, opp.Full)

	rec = ts.do(t, http.MethodGet, "/opportunities", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]types.OpportunityView](t, rec), 1)

	rec = ts.do(t, http.MethodGet, "/opportunities?status=archived", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	applyPath := "/opportunities/" + opp.ID + "/applications"

	rec = ts.do(t, http.MethodPost, applyPath, "ngo-1", map[string]string{"coverLetter": "hi"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodPost, applyPath, "vol-1", map[string]string{"coverLetter": "I live nearby"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	first := decodeBody[types.Application](t, rec)
	assert.Equal(t, types.ApplicationStatusPending, first.Status)

	rec = ts.do(t, http.MethodPost, applyPath, "vol-1", map[string]string{"coverLetter": "again"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(t, http.MethodPost, applyPath, "vol-2", map[string]string{})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	second := decodeBody[types.Application](t, rec)

	rec = ts.do(t, http.MethodGet, applyPath, "vol-1", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = ts.do(t, http.MethodGet, applyPath, "ngo-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]types.Application](t, rec), 2)

	rec = ts.do(t, http.MethodPost, "/applications/"+first.ID+"/decision", "vol-1", map[string]string{"decision": "accept"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodPost, "/applications/"+first.ID+"/decision", "ngo-1", map[string]string{"decision": "maybe"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/applications/"+first.ID+"/decision", "ngo-1", map[string]string{"decision": "accept"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, types.ApplicationStatusAccepted, decodeBody[types.Application](t, rec).Status)

	rec = ts.do(t, http.MethodPost, "/applications/"+second.ID+"/decision", "ngo-1", map[string]string{"decision": "accept"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(t, http.MethodPost, "/applications/"+first.ID+"/decision", "ngo-1", map[string]string{"decision": "reject"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(t, http.MethodGet, "/opportunities/"+opp.ID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decodeBody[types.OpportunityView](t, rec)
	assert.Equal(t, 1, view.SpotsFilled)
	assert.True(t, view.Full)

	rec = ts.do(t, http.MethodGet, "/applications", "vol-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]types.Application](t, rec), 1)

	rec = ts.do(t, http.MethodPost, "/reviews", "vol-1", map[string]any{"reviewedId": "ngo-1", "rating": 5, "comment": "Well organised"})
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = ts.do(t, http.MethodPost, "/reviews", "vol-2", map[string]any{"reviewedId": "ngo-1", "rating": 4})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodGet, "/reviews/ngo-1", "vol-2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]types.Review](t, rec), 1)
}

func TestOpportunityLifecycle(t *testing.T) {
	ts := newTestServer(t)
	ts.profile(t, "ngo-1", types.UserTypeNGO, types.ApprovalStatusApproved)
	ts.profile(t, "ngo-2", types.UserTypeNGO, types.ApprovalStatusApproved)
	ts.profile(t, "vol-1", types.UserTypeVolunteer, types.ApprovalStatusUnsubmitted)

	rec := ts.do(t, http.MethodPost, "/opportunities", "ngo-1", map[string]any{
		"title": "Tutoring", "description": "Evening classes", "spots_available": 2,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	opp := decodeBody[types.OpportunityView](t, rec)
	path := "/opportunities/" + opp.ID

	rec = ts.do(t, http.MethodPut, path, "ngo-2", map[string]any{"title": "x", "description": "y", "spots_available": 3})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodPut, path, "ngo-1", map[string]any{"title": "Tutoring+", "description": "Evening classes", "spots_available": 4})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 4, decodeBody[types.OpportunityView](t, rec).SpotsAvailable)

	rec = ts.do(t, http.MethodPost, path+"/close", "ngo-1", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, types.OpportunityStatusClosed, decodeBody[types.OpportunityView](t, rec).Status)

	rec = ts.do(t, http.MethodPost, path+"/applications", "vol-1", map[string]string{})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(t, http.MethodGet, "/opportunities?status=closed", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]types.OpportunityView](t, rec), 1)

	rec = ts.do(t, http.MethodPost, path+"/reopen", "ngo-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, types.OpportunityStatusActive, decodeBody[types.OpportunityView](t, rec).Status)

	rec = ts.do(t, http.MethodDelete, path, "ngo-2", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = ts.do(t, http.MethodDelete, path, "ngo-1", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = ts.do(t, http.MethodGet, path, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPathParamRoutes(t *testing.T) {
	ts := newTestServer(t)
	ts.profile(t, "ngo-1", types.UserTypeNGO, types.ApprovalStatusApproved)

	rec := ts.do(t, http.MethodPost, "/opportunities", "ngo-1", map[string]any{
		"title": "Tree planting", "description": "Saturday drive", "spots_available": 2,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	opp := decodeBody[types.OpportunityView](t, rec)

	rec = ts.do(t, http.MethodGet, "/opportunities/"+opp.ID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, opp.ID, decodeBody[types.OpportunityView](t, rec).ID)

	rec = ts.do(t, http.MethodGet, "/opportunities/does-not-exist", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "opportunity not found", decodeBody[errorResponse](t, rec).Error)
}

func TestMessaging(t *testing.T) {
	ts := newTestServer(t)
	ts.profile(t, "ngo-1", types.UserTypeNGO, types.ApprovalStatusApproved)
	ts.profile(t, "vol-1", types.UserTypeVolunteer, types.ApprovalStatusUnsubmitted)

	rec := ts.do(t, http.MethodPost, "/messages", "vol-1", map[string]string{"receiverId": "ngo-1", "content": "Is parking available?"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodPost, "/messages", "vol-1", map[string]string{"receiverId": "ghost", "content": "hello"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodPost, "/messages", "vol-1", map[string]string{"receiverId": "ngo-1", "content": "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/messages", "ngo-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	inbox := decodeBody[[]types.Message](t, rec)
	require.Len(t, inbox, 1)
	assert.Equal(t, "vol-1", inbox[0].SenderID)

	rec = ts.do(t, http.MethodGet, "/messages/vol-1", "ngo-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]types.Message](t, rec), 1)
}

func TestAdminRoutes(t *testing.T) {
	ts := newTestServer(t)
	ts.profile(t, "admin-1", types.UserTypeAdmin, types.ApprovalStatusUnsubmitted)
	ts.profile(t, "vol-1", types.UserTypeVolunteer, types.ApprovalStatusUnsubmitted)
	ts.profile(t, "ngo-1", types.UserTypeNGO, types.ApprovalStatusUnsubmitted)

	rec := ts.do(t, http.MethodGet, "/admin/ngos/pending", "vol-1", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodPost, "/admin/ngos/ngo-1/review", "admin-1", map[string]string{"decision": "approve"})
	assert.Equal(t, http.StatusConflict, rec.Code, "unsubmitted ngos cannot be reviewed")

	submitRegistration(t, ts, "ngo-1")

	rec = ts.do(t, http.MethodGet, "/admin/ngos/pending", "admin-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	pending := decodeBody[[]workflow.NGOSubmission](t, rec)
	require.Len(t, pending, 1)
	assert.Equal(t, "ngo-1", pending[0].Profile.ID)
	require.NotNil(t, pending[0].Details)
	assert.Equal(t, "Green Earth Trust", pending[0].Details.OrganizationName)

	rec = ts.do(t, http.MethodPost, "/admin/ngos/ngo-1/review", "admin-1", map[string]string{"decision": "reject"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/admin/ngos/ngo-1/review", "admin-1", map[string]string{"decision": "approve"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, types.ApprovalStatusApproved, decodeBody[types.Profile](t, rec).ApprovalStatus)

	rec = ts.do(t, http.MethodPost, "/admin/ngos/ngo-1/review", "admin-1", map[string]string{"decision": "approve"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(t, http.MethodPost, "/admin/ngos/ngo-1/override", "admin-1", map[string]string{"status": "rejected"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/admin/ngos/ngo-1/override", "admin-1", map[string]string{"status": "rejected", "reason": "fraud report"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, types.ApprovalStatusRejected, decodeBody[types.Profile](t, rec).ApprovalStatus)

	rec = ts.do(t, http.MethodPost, "/admin/profiles/ngo-1/verified", "admin-1", map[string]bool{"verified": true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeBody[types.Profile](t, rec).Verified)

	rec = ts.do(t, http.MethodGet, "/admin/actions?limit=10", "admin-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]types.AdminAction](t, rec), 3)

	rec = ts.do(t, http.MethodGet, "/admin/actions", "vol-1", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodGet, "/admin/users", "admin-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]types.Profile](t, rec), 3)

	rec = ts.do(t, http.MethodGet, "/admin/users?user_type=volunteer", "admin-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	users := decodeBody[[]types.Profile](t, rec)
	require.Len(t, users, 1)
	assert.Equal(t, "vol-1", users[0].ID)

	rec = ts.do(t, http.MethodGet, "/admin/users?user_type=robot", "admin-1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/admin/users", "vol-1", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

// submitRegistration posts a complete multipart ngo registration for ngoID.
func submitRegistration(t *testing.T, ts *testServer, ngoID string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fields := [][2]string{
		{"first_name", "Asha"},
		{"last_name", "Rao"},
		{"phone", "+91 98450 00000"},
		{"representative_role", "Director"},
		{"id_proof_type", "Aadhaar"},
		{"organization_name", "Green Earth Trust"},
		{"registered_address", "12 MG Road"},
		{"city", "Bengaluru"},
		{"state", "Karnataka"},
		{"ngo_type", types.NGOTypeTrust},
		{"social_causes", "environment"},
		{"social_causes", "education"},
		{"mission", "Restore urban lakes"},
		{"official_email", "contact@greenearth.org"},
	}
	for _, f := range fields {
		require.NoError(t, mw.WriteField(f[0], f[1]))
	}

	for _, kind := range []string{types.NGODocIDProof, types.NGODocRegistrationCertificate, types.NGODocPAN} {
		fw, err := mw.CreateFormFile(kind, kind+".pdf")
		require.NoError(t, err)
		_, err = fw.Write([]byte("%PDF-1.4 " + kind))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/ngo/registration", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer token-"+ngoID)

	rec := httptest.NewRecorder()
	ts.service.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return rec
}

func TestNGORegistrationUpload(t *testing.T) {
	ts := newTestServer(t)
	ts.profile(t, "ngo-1", types.UserTypeNGO, types.ApprovalStatusUnsubmitted)

	rec := submitRegistration(t, ts, "ngo-1")

	body := decodeBody[ngoRegistrationResponse](t, rec)
	assert.Equal(t, types.ApprovalStatusPending, body.Profile.ApprovalStatus)
	assert.Equal(t, "ngo-documents/ngo-1/id_proof/id_proof.pdf", *body.Profile.IDProofURL)
	require.NotNil(t, body.Details.PANDocumentURL)
	assert.Equal(t, "ngo-documents/ngo-1/pan_document/pan_document.pdf", *body.Details.PANDocumentURL)
	require.NotNil(t, body.Details.RegistrationCertificateURL)
	assert.Equal(t, "ngo-documents/ngo-1/registration_certificate/registration_certificate.pdf", *body.Details.RegistrationCertificateURL)
	assert.Equal(t, []string{"environment", "education"}, body.Details.SocialCauses)
	assert.Len(t, ts.docs.objects, 3)

	rec = ts.do(t, http.MethodGet, "/me", "ngo-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Green Earth Trust")
}

func TestNGORegistrationDiscardsUploadsOnFailure(t *testing.T) {
	ts := newTestServer(t)
	ts.profile(t, "ngo-1", types.UserTypeNGO, types.ApprovalStatusUnsubmitted)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("organization_name", "Half Filled"))
	fw, err := mw.CreateFormFile(types.NGODocPAN, "pan.pdf")
	require.NoError(t, err)
	_, err = fw.Write([]byte("%PDF"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/ngo/registration", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer token-ngo-1")
	rec := httptest.NewRecorder()
	ts.service.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	fields := decodeBody[errorResponse](t, rec).Fields
	assert.Contains(t, fields, "idProofUrl")
	assert.Contains(t, fields, "registrationCertificateUrl")
	assert.Empty(t, ts.docs.objects)
	assert.Len(t, ts.docs.deleted, 1)
}

func TestNGORegistrationRequiresNGO(t *testing.T) {
	ts := newTestServer(t)
	ts.profile(t, "vol-1", types.UserTypeVolunteer, types.ApprovalStatusUnsubmitted)

	req := httptest.NewRequest(http.MethodPost, "/ngo/registration", strings.NewReader("organization_name=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer token-vol-1")
	rec := httptest.NewRecorder()
	ts.service.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{types.NewValidationError("x", "bad"), http.StatusBadRequest},
		{fmt.Errorf("wrapped: %w", types.ErrNotAuthorized), http.StatusForbidden},
		{types.ErrNotFound, http.StatusNotFound},
		{types.ErrDuplicateApplication, http.StatusConflict},
		{types.ErrInvalidTransition, http.StatusConflict},
		{types.ErrOpportunityClosed, http.StatusConflict},
		{types.ErrCapacityExceeded, http.StatusConflict},
		{types.ErrStorage, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}

	assert.Equal(t, "internal server error", publicMessage(fmt.Errorf("db down: %w", types.ErrStorage)))
	assert.Equal(t, "opportunity not found", publicMessage(fmt.Errorf("failed to load opportunity opp-1: %w", types.ErrOpportunityNotFound)))
	assert.Equal(t, "not found", publicMessage(fmt.Errorf("lookup: %w", types.ErrNotFound)))
	assert.Equal(t, "not authorized", publicMessage(fmt.Errorf("%w: admin role required", types.ErrNotAuthorized)))
}

func TestUpdateMe(t *testing.T) {
	ts := newTestServer(t)
	ts.profile(t, "vol-1", types.UserTypeVolunteer, types.ApprovalStatusUnsubmitted)

	rec := ts.do(t, http.MethodPut, "/me", "vol-1", map[string]string{"firstName": "Meera", "phone": "+91 99000 11111"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	p := decodeBody[types.Profile](t, rec)
	require.NotNil(t, p.FirstName)
	assert.Equal(t, "Meera", *p.FirstName)

	rec = ts.do(t, http.MethodPut, "/me", "vol-1", map[string]string{"userType": "admin"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPut, "/me", "vol-1", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/me", "vol-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decodeBody[meResponse](t, rec)
	assert.Equal(t, types.UserTypeVolunteer, me.Profile.UserType)
	assert.Equal(t, "+91 99000 11111", *me.Profile.Phone)
}

func TestUpdateNGODetails(t *testing.T) {
	ts := newTestServer(t)
	ts.profile(t, "ngo-1", types.UserTypeNGO, types.ApprovalStatusUnsubmitted)
	ts.profile(t, "vol-1", types.UserTypeVolunteer, types.ApprovalStatusUnsubmitted)

	submitRegistration(t, ts, "ngo-1")
	_, err := ts.store.TransitionApproval(context.Background(), "ngo-1", nil, types.ApprovalStatusApproved, nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range [][2]string{
		{"organization_name", "Green Earth Trust"},
		{"registered_address", "40 Lake View Road"},
		{"city", "Bengaluru"},
		{"state", "Karnataka"},
		{"ngo_type", types.NGOTypeTrust},
		{"social_causes", "environment"},
		{"mission", "Restore urban lakes and wetlands"},
		{"official_email", "hello@greenearth.org"},
	} {
		require.NoError(t, mw.WriteField(f[0], f[1]))
	}
	fw, err := mw.CreateFormFile(types.NGODoc80G, "80g.pdf")
	require.NoError(t, err)
	_, err = fw.Write([]byte("%PDF 80g"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPut, "/ngo/details", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer token-ngo-1")
	rec := httptest.NewRecorder()
	ts.service.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	details := decodeBody[types.NGODetails](t, rec)
	assert.Equal(t, "40 Lake View Road", details.RegisteredAddress)
	require.NotNil(t, details.Certificate80GURL)
	assert.Equal(t, "ngo-documents/ngo-1/certificate_80g/80g.pdf", *details.Certificate80GURL)
	require.NotNil(t, details.RegistrationCertificateURL)
	require.NotNil(t, details.PANDocumentURL)

	rec = ts.do(t, http.MethodGet, "/me", "ngo-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decodeBody[meResponse](t, rec)
	assert.Equal(t, types.ApprovalStatusApproved, me.Profile.ApprovalStatus)
	assert.Equal(t, "hello@greenearth.org", me.NGODetails.OfficialEmail)

	req = httptest.NewRequest(http.MethodPut, "/ngo/details", strings.NewReader("organization_name="))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer token-ngo-1")
	rec = httptest.NewRecorder()
	ts.service.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody[errorResponse](t, rec).Fields, "organizationName")

	req = httptest.NewRequest(http.MethodPut, "/ngo/details", strings.NewReader("organization_name=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer token-vol-1")
	rec = httptest.NewRecorder()
	ts.service.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestVolunteerRosterAndImpact(t *testing.T) {
	ts := newTestServer(t)
	ts.profile(t, "ngo-1", types.UserTypeNGO, types.ApprovalStatusApproved)
	ts.profile(t, "vol-1", types.UserTypeVolunteer, types.ApprovalStatusUnsubmitted)

	rec := ts.do(t, http.MethodPost, "/opportunities", "ngo-1", map[string]any{
		"title":               "Library hours",
		"description":         "Shelve and catalogue books",
		"timeCommitmentHours": 5,
		"spots_available":     2,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	opp := decodeBody[types.OpportunityView](t, rec)

	rec = ts.do(t, http.MethodPost, "/opportunities/"+opp.ID+"/applications", "vol-1", map[string]string{})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	app := decodeBody[types.Application](t, rec)

	rec = ts.do(t, http.MethodPost, "/applications/"+app.ID+"/decision", "ngo-1", map[string]string{"decision": "accept"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodGet, "/ngo/volunteers", "ngo-1", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	roster := decodeBody[[]workflow.VolunteerEngagement](t, rec)
	require.Len(t, roster, 1)
	assert.Equal(t, "vol-1", roster[0].Volunteer.ID)

	rec = ts.do(t, http.MethodGet, "/ngo/volunteers", "vol-1", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodGet, "/impact", "vol-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decodeBody[workflow.ImpactStats](t, rec)
	assert.Equal(t, 1, stats.ActiveEngagements)
	assert.Zero(t, stats.HoursContributed)

	rec = ts.do(t, http.MethodPost, "/opportunities/"+opp.ID+"/close", "ngo-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/impact", "vol-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats = decodeBody[workflow.ImpactStats](t, rec)
	assert.Equal(t, 1, stats.ProjectsCompleted)
	assert.Equal(t, 5, stats.HoursContributed)

	rec = ts.do(t, http.MethodGet, "/impact", "ngo-1", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
