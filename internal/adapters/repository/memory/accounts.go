package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/vncsmyrnk/grantdesk/internal/core/domain"
)

type accountRepository struct{ s *Store }

func (r *accountRepository) Delete(ctx context.Context, userID uuid.UUID, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	user, ok := r.s.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	if user.IsDeleted() {
		return domain.ErrAccountDeleted
	}

	for id, c := range r.s.chats {
		if c.UserID == userID {
			delete(r.s.chats, id)
		}
	}
	for _, sub := range r.s.subjects {
		if sub.OwnerID == userID && sub.IsPersonal() && sub.DeletedAt == nil {
			sub.DeletedAt = copyPtr(&at)
		}
	}
	kept := r.s.memberships[:0]
	for _, m := range r.s.memberships {
		if m.UserID != userID {
			kept = append(kept, m)
		}
	}
	r.s.memberships = kept
	for _, t := range r.s.tokens {
		if t.UserID == userID {
			t.Revoked = true
		}
	}
	user.DeletedAt = copyPtr(&at)
	return nil
}
