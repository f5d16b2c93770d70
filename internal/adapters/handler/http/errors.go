package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/vncsmyrnk/grantdesk/internal/core/domain"
	"github.com/vncsmyrnk/grantdesk/internal/core/services"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type errorKind struct {
	status int
	code   string
}

var errInvalidID = errors.New("invalid id")

var errorKinds = []struct {
	err  error
	kind errorKind
}{
	{errUnauthorized, errorKind{http.StatusUnauthorized, "unauthorized"}},
	{errForbidden, errorKind{http.StatusForbidden, "forbidden"}},
	{errInvalidID, errorKind{http.StatusBadRequest, "invalid_id"}},
	{services.ErrInvalidRefreshToken, errorKind{http.StatusUnauthorized, "unauthorized"}},
	{services.ErrRefreshTokenRevoked, errorKind{http.StatusUnauthorized, "unauthorized"}},
	{services.ErrRefreshTokenExpired, errorKind{http.StatusUnauthorized, "unauthorized"}},

	{domain.ErrReasonTooShort, errorKind{http.StatusBadRequest, "reason_too_short"}},
	{domain.ErrMessageTooShort, errorKind{http.StatusBadRequest, "message_too_short"}},
	{domain.ErrNotRequestOwner, errorKind{http.StatusForbidden, "forbidden"}},
	{domain.ErrSelfDecision, errorKind{http.StatusForbidden, "forbidden"}},
	{domain.ErrUserNotFound, errorKind{http.StatusNotFound, "user_not_found"}},
	{domain.ErrRestorationNotFound, errorKind{http.StatusNotFound, "not_found"}},

	{domain.ErrAccountNotDeleted, errorKind{http.StatusConflict, "account_not_deleted"}},
	{domain.ErrAccountDeleted, errorKind{http.StatusConflict, "account_already_deleted"}},
	{domain.ErrGracePeriodExpired, errorKind{http.StatusConflict, "grace_period_expired"}},
	{domain.ErrPendingRequestExists, errorKind{http.StatusConflict, "pending_request_exists"}},
	{domain.ErrAlreadyResolved, errorKind{http.StatusConflict, "already_resolved"}},
	{domain.ErrAppealFinal, errorKind{http.StatusConflict, "appeal_final"}},
	{domain.ErrNotRejected, errorKind{http.StatusConflict, "not_rejected"}},
	{domain.ErrAppealAlreadySubmitted, errorKind{http.StatusConflict, "appeal_already_submitted"}},
	{domain.ErrAppealWindowExpired, errorKind{http.StatusConflict, "appeal_window_expired"}},
}

// writeError maps domain errors to their status and code. Anything unknown is
// logged and reported as internal without its message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: verrs.Error(), Code: "validation_failed"})
		return
	}
	var decodeErr *decodeError
	if errors.As(err, &decodeErr) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: decodeErr.Error(), Code: "validation_failed"})
		return
	}

	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			writeJSON(w, k.kind.status, errorResponse{Error: k.err.Error(), Code: k.kind.code})
			return
		}
	}

	loggerFrom(r).Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error", Code: "internal"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type success struct {
	Success bool `json:"success"`
}

func writeSuccess(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, success{Success: true})
}

type decodeError struct {
	err error
}

func (e *decodeError) Error() string { return "invalid request body: " + e.err.Error() }
func (e *decodeError) Unwrap() error { return e.err }

var validate = validator.New(validator.WithRequiredStructEnabled())

// decode reads a JSON body into dst and runs its validate tags.
func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return &decodeError{err: err}
	}
	return validate.Struct(dst)
}
