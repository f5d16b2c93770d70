package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/grantdesk/internal/core/domain"
)

type RestorationRepository interface {
	// Create returns domain.ErrPendingRequestExists when the user already has a PENDING request.
	Create(ctx context.Context, req *domain.RestorationRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.RestorationRequest, error)
	// GetLatestByUser returns nil, nil when the user never asked for restoration.
	GetLatestByUser(ctx context.Context, userID uuid.UUID) (*domain.RestorationRequest, error)
	HasPending(ctx context.Context, userID uuid.UUID) (bool, error)
	// List returns every request with owner details, newest first.
	List(ctx context.Context) ([]*domain.RestorationRequest, error)
	// ExpireStale moves PENDING requests of users deleted before cutoff to EXPIRED.
	ExpireStale(ctx context.Context, cutoff, now time.Time) (int64, error)
	// Update persists a transition computed from guard; domain.ErrAlreadyResolved when the stored request moved on.
	Update(ctx context.Context, req *domain.RestorationRequest, guard domain.RestorationGuard) error
	// Approve persists an APPROVED request and restores its owner's account in one transaction.
	// The owner's other PENDING or appeal-pending requests are approved along with it.
	Approve(ctx context.Context, req *domain.RestorationRequest, guard domain.RestorationGuard) error
}

type RestorationService interface {
	RequestRestoration(ctx context.Context, userID uuid.UUID) (*domain.RestorationRequest, error)
	GetMyRestorationRequest(ctx context.Context, userID uuid.UUID) (*domain.RestorationRequest, error)
	ListRestorationRequests(ctx context.Context) ([]*domain.RestorationRequest, error)
	ApproveRestoration(ctx context.Context, requestID, adminID uuid.UUID) error
	RejectRestoration(ctx context.Context, requestID, adminID uuid.UUID, reason string) error
	AppealRejection(ctx context.Context, requestID, userID uuid.UUID, message string) error
	SweepExpired(ctx context.Context) (int64, error)
}
