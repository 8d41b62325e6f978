package server

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"volunteerhub/internal/storage"
	"volunteerhub/internal/workflow"
	"volunteerhub/pkg/types"

	"github.com/alexedwards/flow"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/go-playground/form/v4"
	"github.com/gorilla/securecookie"
	"github.com/sirupsen/logrus"
)

var decoder = newFormDecoder()

func newFormDecoder() *form.Decoder {
	d := form.NewDecoder()
	d.SetMode(form.ModeExplicit)
	return d
}

// CognitoAPI is the part of the Cognito client used for sign-up and login.
type CognitoAPI interface {
	SignUp(ctx context.Context, params *cognitoidentityprovider.SignUpInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.SignUpOutput, error)
	ConfirmSignUp(ctx context.Context, params *cognitoidentityprovider.ConfirmSignUpInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.ConfirmSignUpOutput, error)
	InitiateAuth(ctx context.Context, params *cognitoidentityprovider.InitiateAuthInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.InitiateAuthOutput, error)
}

type DocumentStore interface {
	Upload(ctx context.Context, upload storage.Upload) (string, error)
	Delete(ctx context.Context, key string) error
}

type Service struct {
	logger *logrus.Logger
	config *types.Config
	engine *workflow.Engine

	cognitoClient CognitoAPI
	documents     DocumentStore
	verifier      TokenVerifier
	cookie        *securecookie.SecureCookie

	server *http.Server
}

func New(
	config *types.Config,
	logger *logrus.Logger,
	engine *workflow.Engine,
	cognitoClient CognitoAPI,
	documents DocumentStore,
	verifier TokenVerifier,
) (*Service, error) {
	mux := flow.New()

	hashKey, err := base64.StdEncoding.DecodeString(config.CookieHashKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode cookie hash key: %w", err)
	}
	blockKey, err := base64.StdEncoding.DecodeString(config.CookieBlockKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode cookie block key: %w", err)
	}

	s := &Service{
		logger: logger,
		config: config,
		engine: engine,

		cognitoClient: cognitoClient,
		documents:     documents,
		verifier:      verifier,
		cookie:        securecookie.New(hashKey, blockKey),

		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", config.ServerPort),
			Handler:           mux,
			ReadTimeout:       time.Duration(config.ReadTimeoutSec) * time.Second,
			ReadHeaderTimeout: time.Duration(config.ReadTimeoutSec) * time.Second,
			WriteTimeout:      time.Duration(config.WriteTimeoutSec) * time.Second,
			MaxHeaderBytes:    1 << 20,
		},
	}

	s.buildRouter(mux)

	return s, nil
}

func (s *Service) Start() error {
	return s.server.ListenAndServe()
}

func (s *Service) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Handler exposes the router, mainly for tests.
func (s *Service) Handler() http.Handler {
	return s.server.Handler
}

func (s *Service) buildRouter(r *flow.Mux) {
	r.Use(s.StripTrailingSlash)
	r.Use(s.LoggingMiddleware)

	r.HandleFunc("/healthz", s.handleHealth, http.MethodGet)

	r.HandleFunc("/register", s.handlePostRegister, http.MethodPost)
	r.HandleFunc("/register/confirm", s.handlePostRegisterConfirm, http.MethodPost)
	r.HandleFunc("/login", s.handlePostLogin, http.MethodPost)
	r.HandleFunc("/logout", s.handlePostLogout, http.MethodPost)

	r.HandleFunc("/opportunities", s.handleListOpportunities, http.MethodGet)
	r.HandleFunc("/opportunities/:id", s.handleGetOpportunity, http.MethodGet)

	r.Group(func(r *flow.Mux) {
		r.Use(s.RequireAuth)

		r.HandleFunc("/me", s.handleGetMe, http.MethodGet)
		r.HandleFunc("/me", s.handlePutMe, http.MethodPut)
		r.HandleFunc("/impact", s.handleGetImpact, http.MethodGet)
		r.HandleFunc("/ngo/registration", s.handlePostNGORegistration, http.MethodPost)
		r.HandleFunc("/ngo/details", s.handlePutNGODetails, http.MethodPut)
		r.HandleFunc("/ngo/volunteers", s.handleNGOVolunteers, http.MethodGet)

		r.HandleFunc("/opportunities", s.handleCreateOpportunity, http.MethodPost)
		r.HandleFunc("/opportunities/:id", s.handleUpdateOpportunity, http.MethodPut)
		r.HandleFunc("/opportunities/:id", s.handleDeleteOpportunity, http.MethodDelete)
		r.HandleFunc("/opportunities/:id/close", s.handleCloseOpportunity, http.MethodPost)
		r.HandleFunc("/opportunities/:id/reopen", s.handleReopenOpportunity, http.MethodPost)

		r.HandleFunc("/opportunities/:id/applications", s.handleSubmitApplication, http.MethodPost)
		r.HandleFunc("/opportunities/:id/applications", s.handleListOpportunityApplications, http.MethodGet)
		r.HandleFunc("/applications", s.handleListMyApplications, http.MethodGet)
		r.HandleFunc("/applications/:id/decision", s.handleDecideApplication, http.MethodPost)

		r.HandleFunc("/messages", s.handleSendMessage, http.MethodPost)
		r.HandleFunc("/messages", s.handleInbox, http.MethodGet)
		r.HandleFunc("/messages/:userID", s.handleConversation, http.MethodGet)

		r.HandleFunc("/reviews", s.handleSubmitReview, http.MethodPost)
		r.HandleFunc("/reviews/:profileID", s.handleListReviews, http.MethodGet)

		r.HandleFunc("/admin/ngos/pending", s.handleAdminPendingNGOs, http.MethodGet)
		r.HandleFunc("/admin/ngos/:id/review", s.handleAdminReviewNGO, http.MethodPost)
		r.HandleFunc("/admin/ngos/:id/override", s.handleAdminOverrideNGO, http.MethodPost)
		r.HandleFunc("/admin/profiles/:id/verified", s.handleAdminSetVerified, http.MethodPost)
		r.HandleFunc("/admin/actions", s.handleAdminActions, http.MethodGet)
		r.HandleFunc("/admin/users", s.handleAdminListUsers, http.MethodGet)
	})
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Service) userIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(contextKeyUserID).(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user id not found in context")
	}
	return userID, nil
}
