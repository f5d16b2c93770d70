// Package memory keeps the lifecycle state in process. It mirrors the PostgreSQL
// repositories' semantics and backs local runs (STORAGE_DRIVER=memory) and tests.
package memory

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vncsmyrnk/grantdesk/internal/core/domain"
	"github.com/vncsmyrnk/grantdesk/internal/core/ports"
)

type Store struct {
	mu           sync.RWMutex
	users        map[uuid.UUID]*domain.User
	tokens       map[uuid.UUID]*domain.RefreshToken
	subjects     map[uuid.UUID]*domain.Subject
	chats        map[uuid.UUID]*domain.Chat
	memberships  []domain.Membership
	restorations map[uuid.UUID]*domain.RestorationRequest
}

func NewStore() *Store {
	return &Store{
		users:        make(map[uuid.UUID]*domain.User),
		tokens:       make(map[uuid.UUID]*domain.RefreshToken),
		subjects:     make(map[uuid.UUID]*domain.Subject),
		chats:        make(map[uuid.UUID]*domain.Chat),
		restorations: make(map[uuid.UUID]*domain.RestorationRequest),
	}
}

func (s *Store) Users() ports.UserRepository               { return &userRepository{s} }
func (s *Store) Auth() ports.AuthRepository                { return &authRepository{s} }
func (s *Store) Accounts() ports.AccountRepository         { return &accountRepository{s} }
func (s *Store) Restorations() ports.RestorationRepository { return &restorationRepository{s} }

// AddUser seeds a user as is, keeping its ID and timestamps when set.
func (s *Store) AddUser(u domain.User) *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	s.users[u.ID] = copyUser(&u)
	return copyUser(&u)
}

func (s *Store) AddSubject(sub domain.Subject) *domain.Subject {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	s.subjects[sub.ID] = &sub
	out := sub
	return &out
}

func (s *Store) AddChat(c domain.Chat) *domain.Chat {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	s.chats[c.ID] = &c
	out := c
	return &out
}

func (s *Store) AddMembership(m domain.Membership) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memberships = append(s.memberships, m)
}

func (s *Store) Subject(id uuid.UUID) (*domain.Subject, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.subjects[id]
	if !ok {
		return nil, false
	}
	out := *sub
	return &out, true
}

func (s *Store) ChatsOf(userID uuid.UUID) []domain.Chat {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Chat
	for _, c := range s.chats {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	return out
}

func (s *Store) MembershipsOf(userID uuid.UUID) []domain.Membership {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Membership
	for _, m := range s.memberships {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	return out
}

// RefreshTokensOf returns the user's sessions, revoked ones included.
func (s *Store) RefreshTokensOf(userID uuid.UUID) []domain.RefreshToken {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.RefreshToken
	for _, t := range s.tokens {
		if t.UserID == userID {
			out = append(out, *t)
		}
	}
	return out
}

func copyUser(u *domain.User) *domain.User {
	out := *u
	if u.DeletedAt != nil {
		t := *u.DeletedAt
		out.DeletedAt = &t
	}
	return &out
}

func copyRequest(r *domain.RestorationRequest) *domain.RestorationRequest {
	out := *r
	out.ResolvedAt = copyPtr(r.ResolvedAt)
	out.ResolvedBy = copyPtr(r.ResolvedBy)
	out.RejectionReason = copyPtr(r.RejectionReason)
	out.AppealMessage = copyPtr(r.AppealMessage)
	out.AppealedAt = copyPtr(r.AppealedAt)
	return &out
}

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
