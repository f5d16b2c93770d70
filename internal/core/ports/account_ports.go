package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/grantdesk/internal/core/domain"
)

type AccountRepository interface {
	// Delete soft-deletes the account in one transaction: chats are hard-deleted,
	// personal subjects soft-deleted, memberships removed and sessions revoked.
	// Returns domain.ErrAccountDeleted when the user is already deleted.
	Delete(ctx context.Context, userID uuid.UUID, at time.Time) error
}

type AccountStatus struct {
	Deleted               bool                       `json:"deleted"`
	DeletedAt             *time.Time                 `json:"deleted_at,omitempty"`
	GracePeriodEndsAt     *time.Time                 `json:"grace_period_ends_at,omitempty"`
	DaysRemaining         int                        `json:"days_remaining"`
	GracePeriodExpired    bool                       `json:"grace_period_expired"`
	CanRequestRestoration bool                       `json:"can_request_restoration"`
	CanAppeal             bool                       `json:"can_appeal"`
	AppealDeadline        *time.Time                 `json:"appeal_deadline,omitempty"`
	Request               *domain.RestorationRequest `json:"restoration_request"`
}

type AccountService interface {
	DeleteAccount(ctx context.Context, userID uuid.UUID) error
	GetAccountStatus(ctx context.Context, userID uuid.UUID) (*AccountStatus, error)
}
