package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sheikh-saqib/funds-transfer-engine/internal/contacts"
	"github.com/sheikh-saqib/funds-transfer-engine/internal/history"
	"github.com/sheikh-saqib/funds-transfer-engine/internal/models"
	"github.com/sheikh-saqib/funds-transfer-engine/internal/transfer"
)

// AccountHeader carries the caller's account id, set by the auth layer in front.
const AccountHeader = "X-Account-ID"

type Handler struct {
	engine   *transfer.Engine
	history  *history.Service
	contacts *contacts.Directory
	logger   *zap.Logger
}

func New(engine *transfer.Engine, hist *history.Service, dir *contacts.Directory, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{engine: engine, history: hist, contacts: dir, logger: logger}
}

// Router builds the chi router with middleware, health check and API routes.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		js(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	h.RegisterRoutes(r)
	return r
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(requireAccount)
		r.Post("/transfers", h.Transfer)
		r.Get("/history", h.History)
		r.Get("/contacts", h.ListContacts)
		r.Post("/contacts", h.AddContact)
		r.Get("/contacts/search", h.SearchContacts)
	})
}

type errResp struct {
	Error         string `json:"error"`
	Indeterminate bool   `json:"indeterminate,omitempty"`
	Reference     string `json:"reference,omitempty"` // transfer id to quote for reconciliation
}

type transferReq struct {
	Recipient string            `json:"recipient"`
	Amount    decimal.Decimal   `json:"amount"`
	Note      string            `json:"note"`
	Category  string            `json:"category"`
	Pin       string            `json:"pin"`
	Metadata  map[string]string `json:"metadata"`
}

type transferResp struct {
	Transaction models.TransferRecord `json:"transaction"`
	Balance     decimal.Decimal       `json:"balance"`
	GoldGrams   decimal.Decimal       `json:"gold_grams"`
}

type contactResp struct {
	ID        string `json:"id"`
	PaymentID string `json:"upi_id"`
	Name      string `json:"name"`
}

type addContactReq struct {
	ContactID string `json:"contact_id"`
}

func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req transferReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		js(w, http.StatusBadRequest, errResp{Error: "invalid JSON body"})
		return
	}
	category, err := models.ParseCategory(req.Category)
	if err != nil {
		js(w, http.StatusBadRequest, errResp{Error: err.Error()})
		return
	}

	res, err := h.engine.Transfer(r.Context(), accountID(r), models.TransferRequest{
		Recipient: req.Recipient,
		Amount:    req.Amount,
		Note:      req.Note,
		Category:  category,
		Pin:       req.Pin,
		Details:   req.Metadata,
	})
	if err != nil {
		h.transferError(w, r, err)
		return
	}
	js(w, http.StatusCreated, transferResp{
		Transaction: res.Record,
		Balance:     res.Balance,
		GoldGrams:   res.GoldGrams,
	})
}

func (h *Handler) transferError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, transfer.ErrValidation),
		errors.Is(err, transfer.ErrSelfTransfer),
		errors.Is(err, transfer.ErrInsufficientFunds):
		js(w, http.StatusBadRequest, errResp{Error: err.Error()})
	case errors.Is(err, transfer.ErrAuthFailed):
		js(w, http.StatusUnauthorized, errResp{Error: transfer.ErrAuthFailed.Error()})
	case errors.Is(err, transfer.ErrNotFound):
		js(w, http.StatusNotFound, errResp{Error: err.Error()})
	default:
		ref := transfer.Reference(err)
		h.logger.Error("transfer",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("transfer_id", ref),
			zap.Bool("indeterminate", transfer.IsUnsafe(err)),
			zap.Error(err),
		)
		js(w, http.StatusInternalServerError, errResp{
			Error:         transfer.ErrInternal.Error(),
			Indeterminate: transfer.IsUnsafe(err),
			Reference:     ref,
		})
	}
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	views, err := h.history.List(r.Context(), accountID(r))
	if err != nil {
		h.internal(w, r, "history", err)
		return
	}
	js(w, http.StatusOK, views)
}

func (h *Handler) ListContacts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.contacts.List(r.Context(), accountID(r))
	if err != nil {
		h.internal(w, r, "list contacts", err)
		return
	}
	js(w, http.StatusOK, toContacts(accounts))
}

func (h *Handler) AddContact(w http.ResponseWriter, r *http.Request) {
	var req addContactReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ContactID == "" {
		js(w, http.StatusBadRequest, errResp{Error: "contact_id is required"})
		return
	}
	err := h.contacts.Add(r.Context(), accountID(r), req.ContactID)
	switch {
	case err == nil:
		js(w, http.StatusOK, map[string]string{"status": "added"})
	case errors.Is(err, contacts.ErrSelfContact):
		js(w, http.StatusBadRequest, errResp{Error: err.Error()})
	case errors.Is(err, models.ErrAccountNotFound):
		js(w, http.StatusNotFound, errResp{Error: "account not found"})
	default:
		h.internal(w, r, "add contact", err)
	}
}

func (h *Handler) SearchContacts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.contacts.Search(r.Context(), accountID(r), r.URL.Query().Get("q"))
	if err != nil {
		h.internal(w, r, "search contacts", err)
		return
	}
	js(w, http.StatusOK, toContacts(accounts))
}

func (h *Handler) internal(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.logger.Error(op, zap.String("request_id", middleware.GetReqID(r.Context())), zap.Error(err))
	js(w, http.StatusInternalServerError, errResp{Error: "internal error"})
}

func toContacts(accounts []models.Account) []contactResp {
	out := make([]contactResp, 0, len(accounts))
	for _, acc := range accounts {
		out = append(out, contactResp{ID: acc.ID, PaymentID: acc.PaymentID, Name: acc.Name})
	}
	return out
}

func requireAccount(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if accountID(r) == "" {
			js(w, http.StatusUnauthorized, errResp{Error: AccountHeader + " header is required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func accountID(r *http.Request) string {
	return r.Header.Get(AccountHeader)
}

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func js(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
