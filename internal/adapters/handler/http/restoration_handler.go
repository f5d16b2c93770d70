package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vncsmyrnk/grantdesk/internal/core/domain"
	"github.com/vncsmyrnk/grantdesk/internal/core/ports"
)

type RestorationHandler struct {
	service ports.RestorationService
}

func NewRestorationHandler(service ports.RestorationService) *RestorationHandler {
	return &RestorationHandler{
		service: service,
	}
}

// Minimum lengths are enforced by the service on the trimmed text.
type appealRequest struct {
	Message string `json:"message" validate:"max=5000"`
}

type rejectRequest struct {
	Reason string `json:"reason" validate:"max=2000"`
}

func (h *RestorationHandler) Request(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	req, err := h.service.RequestRestoration(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

func (h *RestorationHandler) GetMine(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	req, err := h.service.GetMyRestorationRequest(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (h *RestorationHandler) Appeal(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	requestID, err := requestIDParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var body appealRequest
	if err := decode(r, &body); err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.service.AppealRejection(r.Context(), requestID, userID, body.Message); err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w)
}

func (h *RestorationHandler) List(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.service.ListRestorationRequests(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if reqs == nil {
		reqs = []*domain.RestorationRequest{}
	}
	writeJSON(w, http.StatusOK, reqs)
}

func (h *RestorationHandler) Approve(w http.ResponseWriter, r *http.Request) {
	adminID, err := userIDFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	requestID, err := requestIDParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.service.ApproveRestoration(r.Context(), requestID, adminID); err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w)
}

func (h *RestorationHandler) Reject(w http.ResponseWriter, r *http.Request) {
	adminID, err := userIDFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	requestID, err := requestIDParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var body rejectRequest
	if err := decode(r, &body); err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.service.RejectRestoration(r.Context(), requestID, adminID, body.Reason); err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w)
}

func requestIDParam(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, errInvalidID
	}
	return id, nil
}
