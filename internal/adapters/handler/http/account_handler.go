package http

import (
	"net/http"

	"github.com/vncsmyrnk/grantdesk/internal/core/ports"
)

type AccountHandler struct {
	service ports.AccountService
}

func NewAccountHandler(service ports.AccountService) *AccountHandler {
	return &AccountHandler{
		service: service,
	}
}

func (h *AccountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.service.DeleteAccount(r.Context(), userID); err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w)
}

func (h *AccountHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	status, err := h.service.GetAccountStatus(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}
