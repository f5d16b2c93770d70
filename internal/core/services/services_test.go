package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/vncsmyrnk/grantdesk/internal/adapters/repository/memory"
	"github.com/vncsmyrnk/grantdesk/internal/core/domain"
	"github.com/vncsmyrnk/grantdesk/internal/core/ports"
)

const supportEmail = "support@grantdesk.io"

var (
	t0  = time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	day = 24 * time.Hour
)

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Send(ctx context.Context, tmpl ports.EmailTemplate, to ports.Recipient, params map[string]any) error {
	args := m.Called(ctx, tmpl, to, params)
	return args.Error(0)
}

type recordingMetrics struct {
	mu          sync.Mutex
	transitions []string
	failures    []ports.EmailTemplate
}

func (m *recordingMetrics) TransitionRecorded(to string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions = append(m.transitions, to)
}

func (m *recordingMetrics) NotificationFailed(tmpl ports.EmailTemplate) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, tmpl)
}

type fixture struct {
	store        *memory.Store
	notifier     *mockNotifier
	metrics      *recordingMetrics
	now          time.Time
	restorations ports.RestorationService
	accounts     ports.AccountService
}

// newFixture wires the lifecycle services over a memory store. sendErr is what
// every notification returns.
func newFixture(t *testing.T, sendErr error) *fixture {
	t.Helper()

	f := &fixture{
		store:    memory.NewStore(),
		notifier: &mockNotifier{},
		metrics:  &recordingMetrics{},
		now:      t0,
	}
	f.notifier.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(sendErr).Maybe()

	opts := []Option{WithClock(func() time.Time { return f.now }), WithMetrics(f.metrics)}
	policy := domain.DefaultPolicy()
	f.restorations = NewRestorationService(f.store.Users(), f.store.Restorations(), f.notifier,
		RestorationConfig{Policy: policy, SupportEmail: supportEmail}, opts...)
	f.accounts = NewAccountService(f.store.Users(), f.store.Accounts(), f.store.Restorations(), f.notifier, policy, opts...)
	return f
}

func (f *fixture) at(d time.Duration) {
	f.now = t0.Add(d)
}

func (f *fixture) deletedUser(deletedAt time.Time) *domain.User {
	return f.store.AddUser(domain.User{
		Email:               uuid.NewString() + "@example.com",
		Name:                "Ada Lovelace",
		OnboardingCompleted: true,
		DeletedAt:           &deletedAt,
	})
}

func (f *fixture) activeUser() *domain.User {
	return f.store.AddUser(domain.User{
		Email:               uuid.NewString() + "@example.com",
		Name:                "Grace Hopper",
		OnboardingCompleted: true,
	})
}

func (f *fixture) request(id uuid.UUID) *domain.RestorationRequest {
	req, err := f.store.Restorations().GetByID(context.Background(), id)
	if err != nil {
		panic(err)
	}
	return req
}

func (f *fixture) user(id uuid.UUID) *domain.User {
	u, err := f.store.Users().GetByID(context.Background(), id)
	if err != nil {
		panic(err)
	}
	return u
}

func sentTo(tmpl ports.EmailTemplate, email string) []any {
	return []any{mock.Anything, tmpl, mock.MatchedBy(func(r ports.Recipient) bool { return r.Email == email }), mock.Anything}
}
