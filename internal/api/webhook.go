/**
 * @description
 * HTTP handler for payment confirmations. The payment provider delivers
 * these at-least-once; the ledger apply is idempotent, so a replay returns
 * 200 with the unchanged state instead of double-counting. A redis-backed
 * rate limit keeps retry storms off the database.
 */
package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/shadea75/coachingmatch-sub000/internal/domain"
)

func (h *Handler) handlePaymentWebhook(w http.ResponseWriter, r *http.Request) {
	var conf domain.PaymentConfirmation
	if err := json.NewDecoder(r.Body).Decode(&conf); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if h.throttle != nil {
		window := time.Duration(h.webhookRateWindow) * time.Second
		count, retryAfter, err := h.throttle.CountDelivery(r.Context(), conf.OfferID, h.webhookRateLimit, window)
		if err != nil {
			// The throttle never gets to block settlement.
			log.Printf("WARN: webhook throttle unavailable: %v", err)
		} else if h.webhookRateLimit > 0 && count > h.webhookRateLimit {
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			http.Error(w, "Too many requests", http.StatusTooManyRequests)
			return
		}
	}

	offer, err := h.offers.MarkInstallmentPaid(r.Context(), conf)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, offer)
}
