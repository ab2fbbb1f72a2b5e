package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/clearance-networks/cnd-service/internal/cnd"
	"github.com/clearance-networks/cnd-service/internal/validation"
)

// ValidateHandler handles GET /api/cnd/validate/{code} requests.
type ValidateHandler struct {
	gateway *validation.Gateway
}

func NewValidateHandler(gateway *validation.Gateway) *ValidateHandler {
	return &ValidateHandler{gateway: gateway}
}

// HandleValidate godoc
//
//	@Summary		Validate a certificate by code
//	@Description	Returns the certificate status for a validation code. The
//	@Description	certificate is valid only once it has been signed.
//	@Tags			CND
//	@Produce		json
//	@Param			code	path		string	true	"Validation code"
//	@Success		200		{object}	cnd.ValidationResponse
//	@Failure		404		{object}	cnd.ErrorResponse	"Unknown validation code"
//	@Router			/api/cnd/validate/{code} [get]
func (h *ValidateHandler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	resp, err := h.gateway.Validate(r.Context(), code)
	if err != nil {
		cnd.RespondWithError(w, r, err)
		return
	}

	cnd.RespondWithJSON(w, http.StatusOK, resp)
}
