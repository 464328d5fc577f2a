/**
 * @description
 * HTTP router setup for the settlement engine using go-chi/chi.
 */
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new Chi router and registers settlement routes.
func NewRouter(h *Handler, internalKey string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Internal-API-Key"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Settlement engine is healthy"))
	})

	// Payment confirmations, delivered at-least-once by the provider.
	r.Post("/webhooks/payments", h.handlePaymentWebhook)

	r.Group(func(r chi.Router) {
		r.Use(InternalAuthMiddleware(internalKey))

		r.Route("/offers", func(r chi.Router) {
			r.Post("/", h.handleCreateOffer)
			r.Get("/{id}", h.handleGetOffer)
			r.Post("/{id}/accept", h.handleAcceptOffer)
			r.Post("/{id}/reject", h.handleRejectOffer)
			r.Post("/{id}/sessions/complete", h.handleCompleteSession)
		})

		r.Route("/payouts", func(r chi.Router) {
			r.Get("/{id}", h.handleGetPayout)
			r.Post("/{id}/receive-invoice", h.handleReceiveInvoice)
			r.Post("/{id}/verify", h.handleVerifyInvoice)
			r.Post("/{id}/reset-invoice", h.handleResetInvoice)
			r.Post("/{id}/complete", h.handleCompletePayout)
		})
		r.Post("/batch-payout", h.handleBatchPayout)

		r.Route("/reports", func(r chi.Router) {
			r.Get("/coaches/{coachID}", h.handleCoachSummary)
			r.Get("/closing-rate", h.handleClosingRate)
			r.Get("/payouts/pending", h.handlePendingPayouts)
		})

		r.Route("/internal/jobs", func(r chi.Router) {
			r.Post("/offer-expiry/run", h.handleRunOfferExpiry)
			r.Post("/offer-reminders/run", h.handleRunOfferReminders)
		})
	})

	return r
}
