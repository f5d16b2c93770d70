package domain

import "errors"

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrAccountNotDeleted  = errors.New("account is not deleted")
	ErrAccountDeleted     = errors.New("account is already deleted")
	ErrGracePeriodExpired = errors.New("restoration grace period has expired")

	ErrRestorationNotFound  = errors.New("restoration request not found")
	ErrPendingRequestExists = errors.New("a pending restoration request already exists")
	ErrAlreadyResolved      = errors.New("restoration request has already been resolved")
	ErrNotRequestOwner      = errors.New("restoration request belongs to another user")
	ErrSelfDecision         = errors.New("admins cannot decide their own restoration request")
	ErrReasonTooShort       = errors.New("rejection reason must be at least 10 characters")

	ErrAppealFinal            = errors.New("restoration request has been finally rejected")
	ErrNotRejected            = errors.New("restoration request is not rejected")
	ErrAppealAlreadySubmitted = errors.New("an appeal has already been submitted for this request")
	ErrAppealWindowExpired    = errors.New("appeal window has expired")
	ErrMessageTooShort        = errors.New("appeal message must be at least 20 characters")
)
