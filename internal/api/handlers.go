/**
 * @description
 * HTTP handlers for the payout control surface and the settlement reports.
 *
 * Status mapping: 200 with the new state on success, 400 on validation
 * errors, 404 on unknown ids, 409 when a compare-and-set guard failed
 * (callers must re-read and retry, never blind-overwrite).
 */
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/shadea75/coachingmatch-sub000/internal/app"
	"github.com/shadea75/coachingmatch-sub000/internal/domain"
	"github.com/shadea75/coachingmatch-sub000/internal/store"
)

// Handler holds the application services that handlers interact with.
type Handler struct {
	offers  *app.OfferService
	payouts *app.PayoutService
	reports *app.ReportingService
	jobs    *app.Jobs

	throttle          *app.WebhookThrottle
	webhookRateLimit  int
	webhookRateWindow int // seconds
}

// NewHandler creates a new Handler with the given services.
func NewHandler(offers *app.OfferService, payouts *app.PayoutService, reports *app.ReportingService, jobs *app.Jobs) *Handler {
	return &Handler{offers: offers, payouts: payouts, reports: reports, jobs: jobs}
}

// WithWebhookThrottle attaches the redis throttle used by the payment webhook.
func (h *Handler) WithWebhookThrottle(throttle *app.WebhookThrottle, limit, windowSeconds int) *Handler {
	h.throttle = throttle
	h.webhookRateLimit = limit
	h.webhookRateWindow = windowSeconds
	return h
}

type receiveInvoiceRequest struct {
	InvoiceNumber string `json:"invoice_number"`
}

type verifyInvoiceRequest struct {
	Approve bool   `json:"approve"`
	Reason  string `json:"reason,omitempty"`
}

func (h *Handler) handleGetPayout(w http.ResponseWriter, r *http.Request) {
	payoutID, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	record, err := h.payouts.GetPayout(r.Context(), payoutID)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, record)
}

func (h *Handler) handleReceiveInvoice(w http.ResponseWriter, r *http.Request) {
	payoutID, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	var req receiveInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	record, err := h.payouts.ReceiveInvoice(r.Context(), payoutID, req.InvoiceNumber)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, record)
}

func (h *Handler) handleVerifyInvoice(w http.ResponseWriter, r *http.Request) {
	payoutID, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	var req verifyInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	record, err := h.payouts.VerifyInvoice(r.Context(), payoutID, req.Approve, req.Reason)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, record)
}

func (h *Handler) handleResetInvoice(w http.ResponseWriter, r *http.Request) {
	payoutID, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	record, err := h.payouts.ResetInvoice(r.Context(), payoutID)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, record)
}

func (h *Handler) handleCompletePayout(w http.ResponseWriter, r *http.Request) {
	payoutID, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	record, err := h.payouts.CompletePayout(r.Context(), payoutID)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, record)
}

func (h *Handler) handleBatchPayout(w http.ResponseWriter, r *http.Request) {
	result, err := h.payouts.RunBatchPayout(r.Context())
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

func (h *Handler) handleRunOfferExpiry(w http.ResponseWriter, r *http.Request) {
	h.jobs.ProcessOfferExpiry()
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleRunOfferReminders(w http.ResponseWriter, r *http.Request) {
	h.jobs.ProcessExpiryReminders()
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleCoachSummary(w http.ResponseWriter, r *http.Request) {
	coachID, ok := parseUUIDParam(w, r, "coachID")
	if !ok {
		return
	}

	summary, err := h.reports.GetCoachSummary(r.Context(), coachID)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, summary)
}

func (h *Handler) handleClosingRate(w http.ResponseWriter, r *http.Request) {
	rate, err := h.reports.GetClosingRate(r.Context())
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, rate)
}

func (h *Handler) handlePendingPayouts(w http.ResponseWriter, r *http.Request) {
	totals, err := h.reports.GetPendingPayoutTotals(r.Context())
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, totals)
}

func parseUUIDParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		http.Error(w, "Invalid id", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

// respondWithError maps the error taxonomy onto HTTP status codes.
func respondWithError(w http.ResponseWriter, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		http.Error(w, verr.Error(), http.StatusBadRequest)
	case errors.Is(err, store.ErrOfferNotFound),
		errors.Is(err, store.ErrInstallmentNotFound),
		errors.Is(err, store.ErrPayoutNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, store.ErrStaleStatus):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		log.Printf("Error handling request: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// respondWithJSON writes JSON responses.
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
