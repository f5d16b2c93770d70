package domain

import (
	"math"
	"time"
)

const (
	DefaultGracePeriodDays   = 30
	DefaultAppealWindowHours = 48

	MinRejectionReasonLength = 10
	MinAppealMessageLength   = 20
)

// Policy holds the time windows that drive the account lifecycle.
type Policy struct {
	GracePeriod  time.Duration
	AppealWindow time.Duration
}

func NewPolicy(gracePeriodDays, appealWindowHours int) Policy {
	return Policy{
		GracePeriod:  time.Duration(gracePeriodDays) * 24 * time.Hour,
		AppealWindow: time.Duration(appealWindowHours) * time.Hour,
	}
}

func DefaultPolicy() Policy {
	return NewPolicy(DefaultGracePeriodDays, DefaultAppealWindowHours)
}

func (p Policy) GracePeriodEndsAt(deletedAt time.Time) time.Time {
	return deletedAt.Add(p.GracePeriod)
}

// IsGracePeriodExpired is true once strictly more than GracePeriod has passed since deletion.
func (p Policy) IsGracePeriodExpired(deletedAt, now time.Time) bool {
	return now.Sub(deletedAt) > p.GracePeriod
}

// DaysRemaining rounds up, so a user with two hours left still sees one day.
func (p Policy) DaysRemaining(deletedAt, now time.Time) int {
	left := p.GracePeriodEndsAt(deletedAt).Sub(now)
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(left.Hours() / 24))
}

// ExpiryCutoff is the deletion time before which an account's grace period has elapsed at now.
func (p Policy) ExpiryCutoff(now time.Time) time.Time {
	return now.Add(-p.GracePeriod)
}

func (p Policy) AppealDeadline(resolvedAt time.Time) time.Time {
	return resolvedAt.Add(p.AppealWindow)
}

func (p Policy) IsAppealWindowExpired(resolvedAt, now time.Time) bool {
	return now.Sub(resolvedAt) > p.AppealWindow
}

func (p Policy) CanAppeal(status RestorationStatus, resolvedAt, appealedAt *time.Time, now time.Time) bool {
	return status == RestorationRejected &&
		appealedAt == nil &&
		resolvedAt != nil &&
		!p.IsAppealWindowExpired(*resolvedAt, now)
}
