package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vncsmyrnk/grantdesk/internal/core/domain"
	"github.com/vncsmyrnk/grantdesk/internal/core/ports"
)

type accountService struct {
	lifecycle
	users    ports.UserRepository
	accounts ports.AccountRepository
	requests ports.RestorationRepository
	policy   domain.Policy
}

func NewAccountService(users ports.UserRepository, accounts ports.AccountRepository, requests ports.RestorationRepository, notifier ports.Notifier, policy domain.Policy, opts ...Option) ports.AccountService {
	return &accountService{
		lifecycle: newLifecycle(notifier, opts),
		users:     users,
		accounts:  accounts,
		requests:  requests,
		policy:    policy,
	}
}

func (s *accountService) DeleteAccount(ctx context.Context, userID uuid.UUID) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return domain.ErrUserNotFound
	}
	if user.IsDeleted() {
		return domain.ErrAccountDeleted
	}

	now := s.clock()
	if err := s.accounts.Delete(ctx, userID, now); err != nil {
		if errors.Is(err, domain.ErrAccountDeleted) {
			return err
		}
		return fmt.Errorf("failed to delete account: %w", err)
	}
	s.logger.Info("account soft-deleted", zap.Stringer("user_id", userID))

	s.notify(ctx, ports.TemplateAccountDeleted, recipientOf(user), map[string]any{
		"UserName":          user.Name,
		"DeletedAt":         now,
		"GracePeriodDays":   int(s.policy.GracePeriod.Hours() / 24),
		"GracePeriodEndsAt": s.policy.GracePeriodEndsAt(now),
	})
	return nil
}

func (s *accountService) GetAccountStatus(ctx context.Context, userID uuid.UUID) (*ports.AccountStatus, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}

	req, err := s.requests.GetLatestByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get restoration request: %w", err)
	}

	status := &ports.AccountStatus{Request: req}
	if !user.IsDeleted() {
		return status, nil
	}

	now := s.clock()
	endsAt := s.policy.GracePeriodEndsAt(*user.DeletedAt)
	status.Deleted = true
	status.DeletedAt = user.DeletedAt
	status.GracePeriodEndsAt = &endsAt
	status.DaysRemaining = s.policy.DaysRemaining(*user.DeletedAt, now)
	status.GracePeriodExpired = s.policy.IsGracePeriodExpired(*user.DeletedAt, now)

	open := !status.GracePeriodExpired
	status.CanRequestRestoration = open && (req == nil || req.Status != domain.RestorationPending)
	if req != nil && open && s.policy.CanAppeal(req.Status, req.ResolvedAt, req.AppealedAt, now) {
		deadline := s.policy.AppealDeadline(*req.ResolvedAt)
		status.CanAppeal = true
		status.AppealDeadline = &deadline
	}
	return status, nil
}
