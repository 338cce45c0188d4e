package handlers

import "net/http"

// HandleMerchants returns the merchant directory the wizard selects from.
func (h *Handlers) HandleMerchants(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.payments.Merchants())
}
