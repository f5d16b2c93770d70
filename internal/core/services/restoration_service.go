package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vncsmyrnk/grantdesk/internal/core/domain"
	"github.com/vncsmyrnk/grantdesk/internal/core/ports"
)

type RestorationConfig struct {
	Policy       domain.Policy
	SupportEmail string
}

type restorationService struct {
	lifecycle
	users    ports.UserRepository
	requests ports.RestorationRepository
	policy   domain.Policy
	support  ports.Recipient
}

func NewRestorationService(users ports.UserRepository, requests ports.RestorationRepository, notifier ports.Notifier, cfg RestorationConfig, opts ...Option) ports.RestorationService {
	return &restorationService{
		lifecycle: newLifecycle(notifier, opts),
		users:     users,
		requests:  requests,
		policy:    cfg.Policy,
		support:   ports.Recipient{Email: cfg.SupportEmail, Name: "Support"},
	}
}

func (s *restorationService) RequestRestoration(ctx context.Context, userID uuid.UUID) (*domain.RestorationRequest, error) {
	user, err := s.deletedUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.clock()
	if s.policy.IsGracePeriodExpired(*user.DeletedAt, now) {
		return nil, domain.ErrGracePeriodExpired
	}

	pending, err := s.requests.HasPending(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check pending requests: %w", err)
	}
	if pending {
		return nil, domain.ErrPendingRequestExists
	}

	req := domain.NewRestorationRequest(userID, now)
	if err := s.requests.Create(ctx, req); err != nil {
		if errors.Is(err, domain.ErrPendingRequestExists) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create restoration request: %w", err)
	}
	s.recorded(req)

	s.notify(ctx, ports.TemplateRestorationRequested, s.support, map[string]any{
		"RequestID":         req.ID.String(),
		"UserID":            user.ID.String(),
		"UserEmail":         user.Email,
		"UserName":          user.Name,
		"RequestedAt":       req.RequestedAt,
		"DeletedAt":         *user.DeletedAt,
		"GracePeriodEndsAt": s.policy.GracePeriodEndsAt(*user.DeletedAt),
	})

	return req, nil
}

func (s *restorationService) GetMyRestorationRequest(ctx context.Context, userID uuid.UUID) (*domain.RestorationRequest, error) {
	req, err := s.requests.GetLatestByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get restoration request: %w", err)
	}
	return req, nil
}

func (s *restorationService) ListRestorationRequests(ctx context.Context) ([]*domain.RestorationRequest, error) {
	if _, err := s.SweepExpired(ctx); err != nil {
		return nil, err
	}
	reqs, err := s.requests.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list restoration requests: %w", err)
	}
	return reqs, nil
}

func (s *restorationService) SweepExpired(ctx context.Context) (int64, error) {
	now := s.clock()
	n, err := s.requests.ExpireStale(ctx, s.policy.ExpiryCutoff(now), now)
	if err != nil {
		return 0, fmt.Errorf("failed to expire stale requests: %w", err)
	}
	for i := int64(0); i < n; i++ {
		s.metrics.TransitionRecorded(string(domain.RestorationExpired))
	}
	if n > 0 {
		s.logger.Info("expired stale restoration requests", zap.Int64("count", n))
	}
	return n, nil
}

func (s *restorationService) ApproveRestoration(ctx context.Context, requestID, adminID uuid.UUID) error {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return err
	}
	if req.UserID == adminID {
		return domain.ErrSelfDecision
	}
	if !req.CanBeDecided() {
		return domain.ErrAlreadyResolved
	}
	guard := req.Guard()

	user, err := s.deletedUser(ctx, req.UserID)
	if err != nil {
		return err
	}

	now := s.clock()
	if s.policy.IsGracePeriodExpired(*user.DeletedAt, now) {
		// EXPIRED only follows PENDING; an appeal past the grace period just cannot be approved.
		if req.Expire(now) == nil {
			err := s.requests.Update(ctx, req, guard)
			switch {
			case err == nil:
				s.recorded(req)
			case !errors.Is(err, domain.ErrAlreadyResolved):
				return fmt.Errorf("failed to expire restoration request: %w", err)
			}
		}
		return domain.ErrGracePeriodExpired
	}

	if err := req.Approve(adminID, now); err != nil {
		return err
	}
	if err := s.requests.Approve(ctx, req, guard); err != nil {
		if errors.Is(err, domain.ErrAlreadyResolved) || errors.Is(err, domain.ErrAccountNotDeleted) {
			return err
		}
		return fmt.Errorf("failed to approve restoration request: %w", err)
	}
	s.recorded(req)

	s.notify(ctx, ports.TemplateRestorationApproved, recipientOf(user), map[string]any{
		"UserName":   user.Name,
		"RequestID":  req.ID.String(),
		"ApprovedAt": now,
	})
	return nil
}

func (s *restorationService) RejectRestoration(ctx context.Context, requestID, adminID uuid.UUID, reason string) error {
	reason = strings.TrimSpace(reason)
	if utf8.RuneCountInString(reason) < domain.MinRejectionReasonLength {
		return domain.ErrReasonTooShort
	}

	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return err
	}
	if req.UserID == adminID {
		return domain.ErrSelfDecision
	}
	guard := req.Guard()

	now := s.clock()
	final, err := req.Reject(adminID, reason, now)
	if err != nil {
		return err
	}
	if err := s.requests.Update(ctx, req, guard); err != nil {
		if errors.Is(err, domain.ErrAlreadyResolved) {
			return err
		}
		return fmt.Errorf("failed to reject restoration request: %w", err)
	}
	s.recorded(req)

	user, err := s.users.GetByID(ctx, req.UserID)
	if err != nil || user == nil {
		s.logger.Warn("rejected request owner not loaded, skipping notification",
			zap.Stringer("request_id", req.ID), zap.Error(err))
		return nil
	}

	params := map[string]any{
		"UserName":  user.Name,
		"RequestID": req.ID.String(),
		"Reason":    reason,
		"Final":     final,
	}
	if !final {
		params["AppealDeadline"] = s.policy.AppealDeadline(now)
	}
	if user.DeletedAt != nil {
		params["GracePeriodEndsAt"] = s.policy.GracePeriodEndsAt(*user.DeletedAt)
	}
	s.notify(ctx, ports.TemplateRestorationRejected, recipientOf(user), params)
	return nil
}

func (s *restorationService) AppealRejection(ctx context.Context, requestID, userID uuid.UUID, message string) error {
	message = strings.TrimSpace(message)
	if utf8.RuneCountInString(message) < domain.MinAppealMessageLength {
		return domain.ErrMessageTooShort
	}

	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return err
	}
	if req.UserID != userID {
		return domain.ErrNotRequestOwner
	}

	now := s.clock()
	if err := req.CheckAppeal(s.policy, now); err != nil {
		return err
	}

	user, err := s.deletedUser(ctx, userID)
	if err != nil {
		return err
	}
	if s.policy.IsGracePeriodExpired(*user.DeletedAt, now) {
		return domain.ErrGracePeriodExpired
	}

	guard := req.Guard()
	if err := req.Appeal(s.policy, message, now); err != nil {
		return err
	}
	if err := s.requests.Update(ctx, req, guard); err != nil {
		if errors.Is(err, domain.ErrAlreadyResolved) {
			return domain.ErrAppealAlreadySubmitted
		}
		return fmt.Errorf("failed to save appeal: %w", err)
	}
	s.logger.Info("restoration appeal submitted",
		zap.Stringer("request_id", req.ID), zap.Stringer("user_id", userID))

	s.notify(ctx, ports.TemplateAppealSubmitted, s.support, map[string]any{
		"RequestID":       req.ID.String(),
		"UserID":          user.ID.String(),
		"UserEmail":       user.Email,
		"UserName":        user.Name,
		"AppealMessage":   message,
		"AppealedAt":      now,
		"OriginalReason":  valueOr(req.RejectionReason, ""),
		"OriginalDecided": *req.ResolvedAt,
	})
	return nil
}

// deletedUser loads the owner and requires a soft-deleted account.
func (s *restorationService) deletedUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	if !user.IsDeleted() {
		return nil, domain.ErrAccountNotDeleted
	}
	return user, nil
}

func (s *restorationService) recorded(req *domain.RestorationRequest) {
	s.metrics.TransitionRecorded(string(req.Status))
	s.logger.Info("restoration request transitioned",
		zap.Stringer("request_id", req.ID),
		zap.Stringer("user_id", req.UserID),
		zap.String("status", string(req.Status)),
		zap.Bool("appeal_pending", req.IsAppealPending()),
	)
}

func recipientOf(u *domain.User) ports.Recipient {
	return ports.Recipient{Email: u.Email, Name: u.Name}
}

func valueOr[T any](p *T, fallback T) T {
	if p == nil {
		return fallback
	}
	return *p
}
