package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vncsmyrnk/grantdesk/internal/core/domain"
	"github.com/vncsmyrnk/grantdesk/internal/core/ports"
)

const appealMessage = "I need my grant drafts back, please"

func TestRequestRestoration(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	user := f.deletedUser(t0)
	f.at(5 * day)

	req, err := f.restorations.RequestRestoration(ctx, user.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.RestorationPending, req.Status)
	assert.Equal(t, user.ID, req.UserID)
	assert.Equal(t, t0.Add(5*day), req.RequestedAt)
	assert.Nil(t, req.ResolvedAt)

	f.notifier.AssertCalled(t, "Send", mock.Anything, ports.TemplateRestorationRequested,
		ports.Recipient{Email: supportEmail, Name: "Support"},
		mock.MatchedBy(func(p map[string]any) bool {
			return p["UserEmail"] == user.Email && p["RequestID"] == req.ID.String()
		}))
	assert.Equal(t, []string{"PENDING"}, f.metrics.transitions)
}

func TestRequestRestoration_GracePeriodBoundary(t *testing.T) {
	ctx := context.Background()

	t.Run("last instant of the grace period", func(t *testing.T) {
		f := newFixture(t, nil)
		user := f.deletedUser(t0)
		f.at(30 * day)

		_, err := f.restorations.RequestRestoration(ctx, user.ID)
		assert.NoError(t, err)
	})

	t.Run("after the grace period", func(t *testing.T) {
		f := newFixture(t, nil)
		user := f.deletedUser(t0)
		f.at(30*day + time.Second)

		_, err := f.restorations.RequestRestoration(ctx, user.ID)
		assert.ErrorIs(t, err, domain.ErrGracePeriodExpired)
		f.notifier.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestRequestRestoration_Preconditions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	_, err := f.restorations.RequestRestoration(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	active := f.activeUser()
	_, err = f.restorations.RequestRestoration(ctx, active.ID)
	assert.ErrorIs(t, err, domain.ErrAccountNotDeleted)
	assert.NotErrorIs(t, err, domain.ErrGracePeriodExpired)

	user := f.deletedUser(t0)
	_, err = f.restorations.RequestRestoration(ctx, user.ID)
	require.NoError(t, err)
	_, err = f.restorations.RequestRestoration(ctx, user.ID)
	assert.ErrorIs(t, err, domain.ErrPendingRequestExists)
}

func TestRequestRestoration_AfterRejection(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	user := f.deletedUser(t0)

	first, err := f.restorations.RequestRestoration(ctx, user.ID)
	require.NoError(t, err)
	require.NoError(t, f.restorations.RejectRestoration(ctx, first.ID, uuid.New(), "insufficient justification"))

	f.at(time.Hour)
	second, err := f.restorations.RequestRestoration(ctx, user.ID)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	mine, err := f.restorations.GetMyRestorationRequest(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, mine.ID)
}

func TestGetMyRestorationRequest_None(t *testing.T) {
	f := newFixture(t, nil)
	user := f.deletedUser(t0)

	req, err := f.restorations.GetMyRestorationRequest(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Nil(t, req)
}

func TestApproveRestoration(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	user := f.activeUser()
	org := uuid.New()
	personal := f.store.AddSubject(domain.Subject{OwnerID: user.ID, Name: "Capital campaign"})
	shared := f.store.AddSubject(domain.Subject{OwnerID: user.ID, OrganizationID: &org, Name: "Org grant"})
	f.store.AddChat(domain.Chat{UserID: user.ID, SubjectID: &personal.ID, Title: "Draft"})
	f.store.AddMembership(domain.Membership{OrganizationID: org, UserID: user.ID, Role: "member"})

	require.NoError(t, f.accounts.DeleteAccount(ctx, user.ID))

	f.at(2 * day)
	req, err := f.restorations.RequestRestoration(ctx, user.ID)
	require.NoError(t, err)

	f.at(3 * day)
	admin := uuid.New()
	require.NoError(t, f.restorations.ApproveRestoration(ctx, req.ID, admin))

	approved := f.request(req.ID)
	assert.Equal(t, domain.RestorationApproved, approved.Status)
	assert.Equal(t, t0.Add(3*day), *approved.ResolvedAt)
	assert.Equal(t, admin, *approved.ResolvedBy)

	restored := f.user(user.ID)
	assert.Nil(t, restored.DeletedAt)
	assert.False(t, restored.OnboardingCompleted)

	sub, _ := f.store.Subject(personal.ID)
	assert.Nil(t, sub.DeletedAt)
	sub, _ = f.store.Subject(shared.ID)
	assert.Nil(t, sub.DeletedAt, "organization subjects are never soft-deleted with the account")

	assert.Empty(t, f.store.ChatsOf(user.ID))
	assert.Empty(t, f.store.MembershipsOf(user.ID))

	f.notifier.AssertCalled(t, "Send", sentTo(ports.TemplateRestorationApproved, user.Email)...)

	err = f.restorations.ApproveRestoration(ctx, req.ID, admin)
	assert.ErrorIs(t, err, domain.ErrAlreadyResolved)
}

func TestApproveRestoration_NotFound(t *testing.T) {
	f := newFixture(t, nil)
	err := f.restorations.ApproveRestoration(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrRestorationNotFound)
}

func TestApproveRestoration_GracePeriodExpired(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	user := f.deletedUser(t0)

	f.at(29 * day)
	req, err := f.restorations.RequestRestoration(ctx, user.ID)
	require.NoError(t, err)

	f.at(31 * day)
	err = f.restorations.ApproveRestoration(ctx, req.ID, uuid.New())
	assert.ErrorIs(t, err, domain.ErrGracePeriodExpired)

	expired := f.request(req.ID)
	assert.Equal(t, domain.RestorationExpired, expired.Status)
	assert.Equal(t, t0.Add(31*day), *expired.ResolvedAt)
	assert.Nil(t, expired.ResolvedBy)
	assert.NotNil(t, f.user(user.ID).DeletedAt)
}

func TestApproveRestoration_AppealPastGracePeriod(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	user := f.deletedUser(t0)

	f.at(28 * day)
	req, err := f.restorations.RequestRestoration(ctx, user.ID)
	require.NoError(t, err)
	require.NoError(t, f.restorations.RejectRestoration(ctx, req.ID, uuid.New(), "insufficient justification"))
	f.at(29 * day)
	require.NoError(t, f.restorations.AppealRejection(ctx, req.ID, user.ID, appealMessage))

	f.at(30*day + time.Hour)
	err = f.restorations.ApproveRestoration(ctx, req.ID, uuid.New())
	assert.ErrorIs(t, err, domain.ErrGracePeriodExpired)

	stored := f.request(req.ID)
	assert.Equal(t, domain.RestorationRejected, stored.Status)
	assert.True(t, stored.IsAppealPending())
	assert.NotNil(t, f.user(user.ID).DeletedAt)
}

func TestApproveRestoration_AppealPending(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	user := f.deletedUser(t0)

	req, err := f.restorations.RequestRestoration(ctx, user.ID)
	require.NoError(t, err)
	require.NoError(t, f.restorations.RejectRestoration(ctx, req.ID, uuid.New(), "insufficient justification"))

	err = f.restorations.ApproveRestoration(ctx, req.ID, uuid.New())
	assert.ErrorIs(t, err, domain.ErrAlreadyResolved, "a rejection without appeal cannot be approved")

	require.NoError(t, f.restorations.AppealRejection(ctx, req.ID, user.ID, appealMessage))
	require.NoError(t, f.restorations.ApproveRestoration(ctx, req.ID, uuid.New()))
	assert.Equal(t, domain.RestorationApproved, f.request(req.ID).Status)
	assert.Nil(t, f.user(user.ID).DeletedAt)
}

func TestDecisionOnOwnRequest(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	user := f.deletedUser(t0)

	req, err := f.restorations.RequestRestoration(ctx, user.ID)
	require.NoError(t, err)

	err = f.restorations.ApproveRestoration(ctx, req.ID, user.ID)
	assert.ErrorIs(t, err, domain.ErrSelfDecision)
	err = f.restorations.RejectRestoration(ctx, req.ID, user.ID, "insufficient justification")
	assert.ErrorIs(t, err, domain.ErrSelfDecision)

	assert.Equal(t, domain.RestorationPending, f.request(req.ID).Status)
	assert.NotNil(t, f.user(user.ID).DeletedAt)
}

func TestApproveRestoration_ClosesOtherOpenRequests(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	user := f.deletedUser(t0)
	admin := uuid.New()

	appealed, err := f.restorations.RequestRestoration(ctx, user.ID)
	require.NoError(t, err)
	require.NoError(t, f.restorations.RejectRestoration(ctx, appealed.ID, admin, "insufficient justification"))
	require.NoError(t, f.restorations.AppealRejection(ctx, appealed.ID, user.ID, appealMessage))

	f.at(time.Hour)
	pending, err := f.restorations.RequestRestoration(ctx, user.ID)
	require.NoError(t, err)

	f.at(2 * time.Hour)
	require.NoError(t, f.restorations.ApproveRestoration(ctx, pending.ID, admin))

	for _, id := range []uuid.UUID{pending.ID, appealed.ID} {
		req := f.request(id)
		assert.Equal(t, domain.RestorationApproved, req.Status)
		assert.Equal(t, t0.Add(2*time.Hour), *req.ResolvedAt)
		assert.Equal(t, admin, *req.ResolvedBy)
	}
	assert.Nil(t, f.user(user.ID).DeletedAt)

	err = f.restorations.ApproveRestoration(ctx, appealed.ID, admin)
	assert.ErrorIs(t, err, domain.ErrAlreadyResolved)
}

func TestRejectRestoration(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	user := f.deletedUser(t0)

	req, err := f.restorations.RequestRestoration(ctx, user.ID)
	require.NoError(t, err)

	err = f.restorations.RejectRestoration(ctx, req.ID, uuid.New(), "no reason")
	assert.ErrorIs(t, err, domain.ErrReasonTooShort)
	assert.Equal(t, domain.RestorationPending, f.request(req.ID).Status)

	f.at(day)
	require.NoError(t, f.restorations.RejectRestoration(ctx, req.ID, uuid.New(), "insufficient justification"))

	rejected := f.request(req.ID)
	assert.Equal(t, domain.RestorationRejected, rejected.Status)
	assert.Equal(t, "insufficient justification", *rejected.RejectionReason)
	assert.Equal(t, t0.Add(day), *rejected.ResolvedAt)

	f.notifier.AssertCalled(t, "Send", mock.Anything, ports.TemplateRestorationRejected, mock.Anything,
		mock.MatchedBy(func(p map[string]any) bool {
			return p["Final"] == false && p["AppealDeadline"] == t0.Add(day+48*time.Hour)
		}))

	err = f.restorations.RejectRestoration(ctx, req.ID, uuid.New(), "insufficient justification")
	assert.ErrorIs(t, err, domain.ErrAlreadyResolved)
}

func TestAppealScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	user := f.deletedUser(t0)
	admin := uuid.New()

	f.at(5 * day)
	req, err := f.restorations.RequestRestoration(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RestorationPending, req.Status)

	f.at(6 * day)
	require.NoError(t, f.restorations.RejectRestoration(ctx, req.ID, admin, "insufficient justification"))
	rejected := f.request(req.ID)
	assert.Equal(t, domain.RestorationRejected, rejected.Status)
	assert.Equal(t, t0.Add(6*day), *rejected.ResolvedAt)

	f.at(6*day + 10*time.Hour)
	require.NoError(t, f.restorations.AppealRejection(ctx, req.ID, user.ID, strings.Repeat("x", 25)))
	appealed := f.request(req.ID)
	assert.Equal(t, domain.RestorationRejected, appealed.Status)
	assert.Equal(t, t0.Add(6*day+10*time.Hour), *appealed.AppealedAt)

	f.notifier.AssertCalled(t, "Send", mock.Anything, ports.TemplateAppealSubmitted, mock.Anything,
		mock.MatchedBy(func(p map[string]any) bool {
			return p["OriginalReason"] == "insufficient justification"
		}))

	f.at(7 * day)
	require.NoError(t, f.restorations.RejectRestoration(ctx, req.ID, admin, "appeal denied"))
	final := f.request(req.ID)
	assert.Equal(t, domain.RestorationRejectedFinal, final.Status)
	assert.Equal(t, "Appeal Rejected: appeal denied\n\nOriginal Rejection: insufficient justification", *final.RejectionReason)

	f.notifier.AssertCalled(t, "Send", mock.Anything, ports.TemplateRestorationRejected, mock.Anything,
		mock.MatchedBy(func(p map[string]any) bool { return p["Final"] == true }))

	err = f.restorations.AppealRejection(ctx, req.ID, user.ID, appealMessage)
	assert.ErrorIs(t, err, domain.ErrAppealFinal)
}

func TestAppealRejection_PastWindow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	user := f.deletedUser(t0)

	f.at(5 * day)
	req, err := f.restorations.RequestRestoration(ctx, user.ID)
	require.NoError(t, err)
	f.at(6 * day)
	require.NoError(t, f.restorations.RejectRestoration(ctx, req.ID, uuid.New(), "insufficient justification"))

	f.at(6*day + 49*time.Hour)
	err = f.restorations.AppealRejection(ctx, req.ID, user.ID, strings.Repeat("x", 25))
	assert.ErrorIs(t, err, domain.ErrAppealWindowExpired)
	assert.Nil(t, f.request(req.ID).AppealedAt)
}

func TestAppealRejection_Preconditions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	user := f.deletedUser(t0)

	req, err := f.restorations.RequestRestoration(ctx, user.ID)
	require.NoError(t, err)

	err = f.restorations.AppealRejection(ctx, req.ID, user.ID, "too short")
	assert.ErrorIs(t, err, domain.ErrMessageTooShort)

	err = f.restorations.AppealRejection(ctx, uuid.New(), user.ID, appealMessage)
	assert.ErrorIs(t, err, domain.ErrRestorationNotFound)

	err = f.restorations.AppealRejection(ctx, req.ID, user.ID, appealMessage)
	assert.ErrorIs(t, err, domain.ErrNotRejected)

	require.NoError(t, f.restorations.RejectRestoration(ctx, req.ID, uuid.New(), "insufficient justification"))

	err = f.restorations.AppealRejection(ctx, req.ID, uuid.New(), appealMessage)
	assert.ErrorIs(t, err, domain.ErrNotRequestOwner)

	require.NoError(t, f.restorations.AppealRejection(ctx, req.ID, user.ID, appealMessage))
	err = f.restorations.AppealRejection(ctx, req.ID, user.ID, appealMessage)
	assert.ErrorIs(t, err, domain.ErrAppealAlreadySubmitted)
}

func TestAppealRejection_GracePeriodExpired(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	user := f.deletedUser(t0)

	f.at(29 * day)
	req, err := f.restorations.RequestRestoration(ctx, user.ID)
	require.NoError(t, err)
	require.NoError(t, f.restorations.RejectRestoration(ctx, req.ID, uuid.New(), "insufficient justification"))

	f.at(30*day + time.Hour)
	err = f.restorations.AppealRejection(ctx, req.ID, user.ID, appealMessage)
	assert.ErrorIs(t, err, domain.ErrGracePeriodExpired)
}

func TestListRestorationRequests_ExpiresStale(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	stale := f.deletedUser(t0)
	fresh := f.deletedUser(t0.Add(20 * day))

	f.at(25 * day)
	staleReq, err := f.restorations.RequestRestoration(ctx, stale.ID)
	require.NoError(t, err)
	f.at(25*day + time.Hour)
	freshReq, err := f.restorations.RequestRestoration(ctx, fresh.ID)
	require.NoError(t, err)

	f.at(31 * day)
	reqs, err := f.restorations.ListRestorationRequests(ctx)
	require.NoError(t, err)
	require.Len(t, reqs, 2)

	assert.Equal(t, freshReq.ID, reqs[0].ID, "newest first")
	assert.Equal(t, domain.RestorationPending, reqs[0].Status)
	assert.Equal(t, fresh.Email, reqs[0].UserEmail)

	assert.Equal(t, staleReq.ID, reqs[1].ID)
	assert.Equal(t, domain.RestorationExpired, reqs[1].Status)
	assert.Equal(t, t0.Add(31*day), *reqs[1].ResolvedAt)
	assert.Nil(t, reqs[1].ResolvedBy)

	f.at(32 * day)
	again, err := f.restorations.ListRestorationRequests(ctx)
	require.NoError(t, err)
	assert.Equal(t, t0.Add(31*day), *again[1].ResolvedAt, "re-listing leaves expired requests untouched")

	n, err := f.restorations.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestListRestorationRequests_Empty(t *testing.T) {
	f := newFixture(t, nil)
	reqs, err := f.restorations.ListRestorationRequests(context.Background())
	require.NoError(t, err)
	assert.Empty(t, reqs)
}

func TestNotificationFailureKeepsTransition(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, errors.New("sendgrid: 503"))
	user := f.deletedUser(t0)

	req, err := f.restorations.RequestRestoration(ctx, user.ID)
	require.NoError(t, err)
	require.NoError(t, f.restorations.RejectRestoration(ctx, req.ID, uuid.New(), "insufficient justification"))
	require.NoError(t, f.restorations.AppealRejection(ctx, req.ID, user.ID, appealMessage))
	require.NoError(t, f.restorations.ApproveRestoration(ctx, req.ID, uuid.New()))

	assert.Equal(t, domain.RestorationApproved, f.request(req.ID).Status)
	assert.Equal(t, []ports.EmailTemplate{
		ports.TemplateRestorationRequested,
		ports.TemplateRestorationRejected,
		ports.TemplateAppealSubmitted,
		ports.TemplateRestorationApproved,
	}, f.metrics.failures)
}
