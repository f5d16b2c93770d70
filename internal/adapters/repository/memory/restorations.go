package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/vncsmyrnk/grantdesk/internal/core/domain"
)

type restorationRepository struct{ s *Store }

func (r *restorationRepository) Create(ctx context.Context, req *domain.RestorationRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.restorations {
		if existing.UserID == req.UserID && existing.Status == domain.RestorationPending {
			return domain.ErrPendingRequestExists
		}
	}
	r.s.restorations[req.ID] = copyRequest(req)
	return nil
}

func (r *restorationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.RestorationRequest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	req, ok := r.s.restorations[id]
	if !ok {
		return nil, domain.ErrRestorationNotFound
	}
	return copyRequest(req), nil
}

func (r *restorationRepository) GetLatestByUser(ctx context.Context, userID uuid.UUID) (*domain.RestorationRequest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var latest *domain.RestorationRequest
	for _, req := range r.s.restorations {
		if req.UserID != userID {
			continue
		}
		if latest == nil || req.RequestedAt.After(latest.RequestedAt) {
			latest = req
		}
	}
	if latest == nil {
		return nil, nil
	}
	return copyRequest(latest), nil
}

func (r *restorationRepository) HasPending(ctx context.Context, userID uuid.UUID) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, req := range r.s.restorations {
		if req.UserID == userID && req.Status == domain.RestorationPending {
			return true, nil
		}
	}
	return false, nil
}

func (r *restorationRepository) List(ctx context.Context) ([]*domain.RestorationRequest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*domain.RestorationRequest, 0, len(r.s.restorations))
	for _, req := range r.s.restorations {
		c := copyRequest(req)
		if u, ok := r.s.users[req.UserID]; ok {
			c.UserEmail = u.Email
			c.UserName = u.Name
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].RequestedAt.After(out[j].RequestedAt)
	})
	return out, nil
}

func (r *restorationRepository) ExpireStale(ctx context.Context, cutoff, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, req := range r.s.restorations {
		if req.Status != domain.RestorationPending {
			continue
		}
		u, ok := r.s.users[req.UserID]
		if !ok || u.DeletedAt == nil || !u.DeletedAt.Before(cutoff) {
			continue
		}
		req.Status = domain.RestorationExpired
		req.ResolvedAt = copyPtr(&now)
		req.ResolvedBy = nil
		n++
	}
	return n, nil
}

func (r *restorationRepository) Update(ctx context.Context, req *domain.RestorationRequest, guard domain.RestorationGuard) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.restorations[req.ID]
	if !ok {
		return domain.ErrRestorationNotFound
	}
	if stored.Guard() != guard {
		return domain.ErrAlreadyResolved
	}
	r.s.restorations[req.ID] = copyRequest(req)
	return nil
}

func (r *restorationRepository) Approve(ctx context.Context, req *domain.RestorationRequest, guard domain.RestorationGuard) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.restorations[req.ID]
	if !ok {
		return domain.ErrRestorationNotFound
	}
	if stored.Guard() != guard {
		return domain.ErrAlreadyResolved
	}
	user, ok := r.s.users[req.UserID]
	if !ok || !user.IsDeleted() {
		return domain.ErrAccountNotDeleted
	}

	user.DeletedAt = nil
	user.OnboardingCompleted = false
	for _, sub := range r.s.subjects {
		if sub.OwnerID == user.ID && sub.IsPersonal() {
			sub.DeletedAt = nil
		}
	}
	r.s.restorations[req.ID] = copyRequest(req)
	for _, other := range r.s.restorations {
		if other.UserID == req.UserID && other.ID != req.ID && other.CanBeDecided() {
			other.Status = domain.RestorationApproved
			other.ResolvedAt = copyPtr(req.ResolvedAt)
			other.ResolvedBy = copyPtr(req.ResolvedBy)
		}
	}
	return nil
}
