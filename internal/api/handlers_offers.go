/**
 * @description
 * HTTP handlers for the offer lifecycle: creation, acceptance, rejection
 * and session consumption.
 */
package api

import (
	"encoding/json"
	"net/http"

	"github.com/shadea75/coachingmatch-sub000/internal/domain"
)

func (h *Handler) handleCreateOffer(w http.ResponseWriter, r *http.Request) {
	var params domain.CreateOfferParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	offer, err := h.offers.CreateOffer(r.Context(), params)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, offer)
}

func (h *Handler) handleGetOffer(w http.ResponseWriter, r *http.Request) {
	offerID, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	offer, err := h.offers.GetOffer(r.Context(), offerID)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, offer)
}

func (h *Handler) handleAcceptOffer(w http.ResponseWriter, r *http.Request) {
	offerID, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	offer, err := h.offers.AcceptOffer(r.Context(), offerID)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, offer)
}

func (h *Handler) handleRejectOffer(w http.ResponseWriter, r *http.Request) {
	offerID, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	offer, err := h.offers.RejectOffer(r.Context(), offerID)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, offer)
}

func (h *Handler) handleCompleteSession(w http.ResponseWriter, r *http.Request) {
	offerID, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	offer, err := h.offers.CompleteSession(r.Context(), offerID)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, offer)
}
