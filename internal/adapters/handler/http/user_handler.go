package http

import (
	"net/http"

	"github.com/vncsmyrnk/grantdesk/internal/core/domain"
	"github.com/vncsmyrnk/grantdesk/internal/core/ports"
)

type UserHandler struct {
	service ports.UserService
}

func NewUserHandler(service ports.UserService) *UserHandler {
	return &UserHandler{
		service: service,
	}
}

func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.service.GetByID(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if user == nil {
		writeError(w, r, domain.ErrUserNotFound)
		return
	}

	writeJSON(w, http.StatusOK, user)
}
