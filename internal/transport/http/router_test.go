package httptransport_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"tradegate/internal/account"
	accstore "tradegate/internal/account/store"
	"tradegate/internal/audit"
	auditstore "tradegate/internal/audit/store"
	"tradegate/internal/auth"
	authhandler "tradegate/internal/auth/handler"
	"tradegate/internal/document"
	"tradegate/internal/document/artifact"
	docstore "tradegate/internal/document/store"
	"tradegate/internal/notification"
	notifmocks "tradegate/internal/notification/mocks"
	notifstore "tradegate/internal/notification/store"
	"tradegate/internal/onboarding"
	onboardinghandler "tradegate/internal/onboarding/handler"
	"tradegate/internal/platform/logger"
	"tradegate/internal/token"
	tokenstore "tradegate/internal/token/store"
	httptransport "tradegate/internal/transport/http"
	id "tradegate/pkg/domain"
	txcontext "tradegate/pkg/platform/tx"
)

// RouterSuite drives the whole onboarding flow through the HTTP surface with
// memory-backed stores.
type RouterSuite struct {
	suite.Suite
	ctrl *gomock.Controller

	accounts      *accstore.InMemoryStore
	notifications *notifstore.InMemoryStore
	hasher        *auth.BcryptHasher
	sessions      *auth.JWTSessions
	router        http.Handler
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())

	s.accounts = accstore.NewInMemory()
	s.notifications = notifstore.NewInMemory()
	s.hasher = auth.NewBcryptHasher()
	s.sessions = auth.NewJWTSessions("router-test-key", time.Hour)

	docs := docstore.NewInMemory()
	log := logger.New("development")

	issuer := token.NewIssuer(tokenstore.NewInMemoryCodeStore(), tokenstore.NewInMemoryTokenStore(), 10*time.Minute)
	dispatcher, err := notification.NewDispatcher(s.notifications, notifmocks.NewMockTransport(s.ctrl))
	s.Require().NoError(err)
	auditor := audit.NewPublisher(auditstore.NewInMemory())

	docService, err := document.New(docs, artifact.NewInMemoryStorage())
	s.Require().NoError(err)

	onboardingService, err := onboarding.New(
		s.accounts, docService, docs, issuer, s.hasher, dispatcher, auditor, txcontext.NopRunner{},
	)
	s.Require().NoError(err)

	authService, err := auth.New(
		s.accounts, issuer, s.hasher, s.sessions, dispatcher, auditor, txcontext.NopRunner{},
	)
	s.Require().NoError(err)

	s.router = httptransport.NewRouter(httptransport.Deps{
		Onboarding: onboardinghandler.New(onboardingService, s.sessions, log),
		Auth:       authhandler.New(authService, log),
		Sessions:   s.sessions,
		Logger:     log,
	})
}

func (s *RouterSuite) postJSON(path, token string, body any) *httptest.ResponseRecorder {
	raw, err := json.Marshal(body)
	s.Require().NoError(err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *RouterSuite) get(path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *RouterSuite) decode(w *httptest.ResponseRecorder, out any) {
	s.Require().NoError(json.NewDecoder(w.Body).Decode(out))
}

// issuedCode pulls the latest 6-digit code from the queued verification email.
func (s *RouterSuite) issuedCode(email string) string {
	queued, err := s.notifications.ListQueued(context.Background(), 100)
	s.Require().NoError(err)
	for i := len(queued) - 1; i >= 0; i-- {
		if queued[i].Recipient == email && queued[i].Template == notification.TemplateVerificationCode {
			body := queued[i].Body
			run := 0
			for j := 0; j < len(body); j++ {
				if body[j] >= '0' && body[j] <= '9' {
					if run++; run == 6 {
						return body[j-5 : j+1]
					}
				} else {
					run = 0
				}
			}
		}
	}
	s.FailNow("no verification code queued for " + email)
	return ""
}

// verify walks register+verify and returns the fresh session token.
func (s *RouterSuite) verify(email, role string) (onboardinghandler.VerifyResponse, string) {
	w := s.postJSON("/onboarding/register", "", map[string]string{
		"email": email, "role": role, "password": "valid-password",
	})
	s.Require().Equal(http.StatusAccepted, w.Code)

	w = s.postJSON("/onboarding/verify", "", map[string]string{
		"email": email, "code": s.issuedCode(email),
	})
	s.Require().Equal(http.StatusCreated, w.Code)

	var resp onboardinghandler.VerifyResponse
	s.decode(w, &resp)
	s.Require().NotEmpty(resp.Token)
	return resp, resp.Token
}

func (s *RouterSuite) uploadDocument(token, kind, filename, contentType string, content []byte) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	s.Require().NoError(mw.WriteField("kind", kind))

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	s.Require().NoError(err)
	_, err = part.Write(content)
	s.Require().NoError(err)
	s.Require().NoError(mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/onboarding/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// adminToken creates an admin account directly and logs it in.
func (s *RouterSuite) adminToken() string {
	hash, err := s.hasher.Hash("admin-password")
	s.Require().NoError(err)
	admin := &account.Account{
		ID:            id.NewAccountID(),
		Email:         "ops@tradegate.fr",
		PasswordHash:  hash,
		Role:          account.RoleAdmin,
		Status:        account.StatusActive,
		EmailVerified: true,
	}
	s.Require().NoError(s.accounts.Create(context.Background(), admin))

	w := s.postJSON("/auth/login", "", map[string]string{
		"email": "ops@tradegate.fr", "password": "admin-password",
	})
	s.Require().Equal(http.StatusOK, w.Code)

	var resp authhandler.LoginResponse
	s.decode(w, &resp)
	return resp.Token
}

func (s *RouterSuite) TestBuyerFlow() {
	resp, _ := s.verify("buyer@shop.fr", "buyer")
	s.Equal("active", resp.Account.Status)

	w := s.postJSON("/auth/login", "", map[string]string{
		"email": "buyer@shop.fr", "password": "valid-password",
	})
	s.Equal(http.StatusOK, w.Code)
}

func (s *RouterSuite) TestSupplierFlow() {
	resp, token := s.verify("vendor@acme.fr", "supplier")
	s.Equal("awaiting_documents", resp.Account.Status)

	s.Run("login is refused until activation", func() {
		w := s.postJSON("/auth/login", "", map[string]string{
			"email": "vendor@acme.fr", "password": "valid-password",
		})
		s.Equal(http.StatusConflict, w.Code)
	})

	s.Run("document endpoints require a session", func() {
		w := s.get("/onboarding/status", "")
		s.Equal(http.StatusUnauthorized, w.Code)
	})

	var documentID string
	s.Run("uploads succeed with the verification session", func() {
		w := s.uploadDocument(token, "registre_commerce", "rc.pdf", "application/pdf", []byte("%PDF-1.4"))
		s.Require().Equal(http.StatusCreated, w.Code)

		var doc onboardinghandler.DocumentResponse
		s.decode(w, &doc)
		s.Equal("pending", doc.Status)
		documentID = doc.ID

		s.uploadDocument(token, "piece_identite", "id.pdf", "application/pdf", []byte("%PDF-1.4"))
		s.uploadDocument(token, "justificatif_domicile", "jd.pdf", "application/pdf", []byte("%PDF-1.4"))

		status := s.get("/onboarding/status", token)
		s.Require().Equal(http.StatusOK, status.Code)
		var statusResp onboardinghandler.StatusResponse
		s.decode(status, &statusResp)
		s.Equal("pending", statusResp.Global)
		s.Empty(statusResp.Missing)
	})

	s.Run("upload policy violations map to 422", func() {
		w := s.uploadDocument(token, "registre_commerce", "rc.gif", "image/gif", []byte("GIF89a"))
		s.Equal(http.StatusUnprocessableEntity, w.Code)
	})

	s.Run("supplier sessions cannot reach admin routes", func() {
		w := s.postJSON("/admin/documents/"+documentID+"/decision", token, map[string]string{
			"decision": "approve",
		})
		s.Equal(http.StatusNotFound, w.Code)
	})

	s.Run("admin approvals activate the account", func() {
		adminToken := s.adminToken()

		docs := s.get("/onboarding/documents", token)
		s.Require().Equal(http.StatusOK, docs.Code)
		var list []onboardinghandler.DocumentResponse
		s.decode(docs, &list)
		s.Require().Len(list, 3)

		for _, doc := range list {
			w := s.postJSON("/admin/documents/"+doc.ID+"/decision", adminToken, map[string]string{
				"decision": "approve",
			})
			s.Require().Equal(http.StatusOK, w.Code)
		}

		w := s.postJSON("/auth/login", "", map[string]string{
			"email": "vendor@acme.fr", "password": "valid-password",
		})
		s.Equal(http.StatusOK, w.Code)
	})
}

func (s *RouterSuite) TestRejectionFlow() {
	_, token := s.verify("vendor@acme.fr", "supplier")
	adminToken := s.adminToken()

	w := s.uploadDocument(token, "registre_commerce", "rc.pdf", "application/pdf", []byte("%PDF-1.4"))
	s.Require().Equal(http.StatusCreated, w.Code)
	var doc onboardinghandler.DocumentResponse
	s.decode(w, &doc)

	s.Run("rejection without a comment is refused", func() {
		w := s.postJSON("/admin/documents/"+doc.ID+"/decision", adminToken, map[string]string{
			"decision": "reject",
		})
		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("rejection suspends the account", func() {
		w := s.postJSON("/admin/documents/"+doc.ID+"/decision", adminToken, map[string]string{
			"decision": "reject", "comment": "illegible scan",
		})
		s.Require().Equal(http.StatusOK, w.Code)

		login := s.postJSON("/auth/login", "", map[string]string{
			"email": "vendor@acme.fr", "password": "valid-password",
		})
		s.Equal(http.StatusConflict, login.Code)

		var body map[string]string
		s.decode(login, &body)
		s.Contains(body["error_description"], "illegible scan")
	})
}

func (s *RouterSuite) TestRequirementsEndpoint() {
	w := s.get("/onboarding/requirements/supplier", "")
	s.Require().Equal(http.StatusOK, w.Code)

	var reqs []onboardinghandler.RequirementResponse
	s.decode(w, &reqs)
	s.Len(reqs, 4)
	s.Equal("registre_commerce", reqs[0].Kind)

	s.Equal(http.StatusBadRequest, s.get("/onboarding/requirements/wholesaler", "").Code)
}

func (s *RouterSuite) TestHealthz() {
	s.Equal(http.StatusOK, s.get("/healthz", "").Code)
}
