// Package handler exposes the onboarding flow over HTTP. Handlers stay thin:
// decode, delegate, encode.
package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"tradegate/internal/account"
	"tradegate/internal/document"
	"tradegate/internal/onboarding"
	"tradegate/internal/onboarding/policy"
	id "tradegate/pkg/domain"
	dErrors "tradegate/pkg/domain-errors"
	"tradegate/pkg/platform/httputil"
	"tradegate/pkg/requestcontext"
)

// maxUploadBytes caps the multipart body above the largest policy ceiling so
// oversized uploads are cut off at the socket, not in memory.
const maxUploadBytes = 12 << 20

// Service is the onboarding port consumed by this handler.
type Service interface {
	RequestEmailVerification(ctx context.Context, email string, role account.Role, password string) error
	ConfirmEmailVerification(ctx context.Context, email, code string) (*account.Account, error)
	SubmitDocument(ctx context.Context, accountID id.AccountID, kind document.Kind, upload document.Upload, pol document.UploadPolicy) (*document.Document, error)
	DeleteDocument(ctx context.Context, documentID id.DocumentID, requesterID id.AccountID) error
	DecideDocument(ctx context.Context, documentID id.DocumentID, reviewerID id.AccountID, decision onboarding.Decision, comment string) (*document.Document, error)
	GetRequiredDocuments(role account.Role) []policy.Requirement
	GetAccountDocuments(ctx context.Context, accountID id.AccountID) ([]*document.Document, error)
	GetValidationStatus(ctx context.Context, accountID id.AccountID) (onboarding.ValidationStatus, error)
}

// SessionIssuer mints the session returned on successful verification, so
// document-bearing roles can authenticate before their account is active.
type SessionIssuer interface {
	Issue(acct *account.Account) (string, error)
}

// Handler wires onboarding endpoints to the onboarding service.
type Handler struct {
	service  Service
	sessions SessionIssuer
	logger   *slog.Logger
}

func New(service Service, sessions SessionIssuer, logger *slog.Logger) *Handler {
	return &Handler{service: service, sessions: sessions, logger: logger}
}

// RegisterPublic mounts the unauthenticated registration endpoints.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/onboarding/register", h.HandleRegister)
	r.Post("/onboarding/verify", h.HandleVerify)
	r.Get("/onboarding/requirements/{role}", h.HandleRequirements)
}

// RegisterAccount mounts the session-guarded document endpoints.
func (h *Handler) RegisterAccount(r chi.Router) {
	r.Post("/onboarding/documents", h.HandleSubmitDocument)
	r.Get("/onboarding/documents", h.HandleListDocuments)
	r.Delete("/onboarding/documents/{documentID}", h.HandleDeleteDocument)
	r.Get("/onboarding/status", h.HandleStatus)
}

// RegisterAdmin mounts the reviewer endpoints.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/admin/documents/{documentID}/decision", h.HandleDecision)
	r.Get("/admin/accounts/{accountID}/status", h.HandleAccountStatus)
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.Decode[RegisterRequest](w, r)
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.RequestEmailVerification(ctx, req.Email, req.ParsedRole(), req.Password); err != nil {
		h.logger.WarnContext(ctx, "registration request failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, map[string]string{
		"message": "verification code sent",
	})
}

func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.Decode[VerifyRequest](w, r)
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	acct, err := h.service.ConfirmEmailVerification(ctx, req.Email, req.Code)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	// The session lets document-bearing roles upload before activation. A
	// failed issue is not worth failing the verification over.
	session, err := h.sessions.Issue(acct)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to issue post-verification session",
			"request_id", requestcontext.RequestID(ctx),
			"account_id", acct.ID,
			"error", err,
		)
	}

	h.logger.InfoContext(ctx, "account created",
		"request_id", requestcontext.RequestID(ctx),
		"account_id", acct.ID,
		"role", acct.Role,
		"status", acct.Status,
	)
	httputil.WriteJSON(w, http.StatusCreated, VerifyResponse{
		Account: FromAccount(acct),
		Token:   session,
	})
}

func (h *Handler) HandleRequirements(w http.ResponseWriter, r *http.Request) {
	role := account.Role(chi.URLParam(r, "role"))
	if !role.IsValid() {
		httputil.WriteError(w, dErrors.Newf(dErrors.CodeValidation, "invalid role %q", role))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRequirements(h.service.GetRequiredDocuments(role)))
}

// HandleSubmitDocument accepts a multipart form with a "kind" field and a
// "file" part.
func (h *Handler) HandleSubmitDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID := requestcontext.AccountID(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodePolicy, "upload too large or malformed"))
		return
	}

	kind := document.Kind(r.FormValue("kind"))
	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "file part is required"))
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeValidation, "failed to read upload"))
		return
	}

	doc, err := h.service.SubmitDocument(ctx, accountID, kind, document.Upload{
		Content:  content,
		MimeType: header.Header.Get("Content-Type"),
		Filename: header.Filename,
	}, policyForKind(kind))
	if err != nil {
		h.logger.WarnContext(ctx, "document submission failed",
			"request_id", requestcontext.RequestID(ctx),
			"account_id", accountID,
			"kind", kind,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromDocument(doc))
}

func (h *Handler) HandleListDocuments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docs, err := h.service.GetAccountDocuments(ctx, requestcontext.AccountID(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromDocuments(docs))
}

func (h *Handler) HandleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	documentID, err := id.ParseDocumentID(chi.URLParam(r, "documentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.DeleteDocument(ctx, documentID, requestcontext.AccountID(ctx)); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	status, err := h.service.GetValidationStatus(ctx, requestcontext.AccountID(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromStatus(status))
}

func (h *Handler) HandleDecision(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	documentID, err := id.ParseDocumentID(chi.URLParam(r, "documentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.Decode[DecisionRequest](w, r)
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	reviewerID := requestcontext.AccountID(ctx)
	doc, err := h.service.DecideDocument(ctx, documentID, reviewerID, req.ParsedDecision(), req.Comment)
	if err != nil {
		h.logger.WarnContext(ctx, "document decision failed",
			"request_id", requestcontext.RequestID(ctx),
			"document_id", documentID,
			"reviewer_id", reviewerID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "document reviewed",
		"request_id", requestcontext.RequestID(ctx),
		"document_id", documentID,
		"reviewer_id", reviewerID,
		"decision", req.ParsedDecision(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromDocument(doc))
}

func (h *Handler) HandleAccountStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	accountID, err := id.ParseAccountID(chi.URLParam(r, "accountID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	status, err := h.service.GetValidationStatus(ctx, accountID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromStatus(status))
}

// policyForKind selects the upload policy per flow: identity documents go
// through the strict ceiling, commercial paperwork through the standard one.
func policyForKind(kind document.Kind) document.UploadPolicy {
	if kind == document.KindPieceIdentite {
		return document.StrictUploadPolicy()
	}
	return document.StandardUploadPolicy()
}
