package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

type RestorationStatus string

const (
	RestorationPending       RestorationStatus = "PENDING"
	RestorationApproved      RestorationStatus = "APPROVED"
	RestorationRejected      RestorationStatus = "REJECTED"
	RestorationRejectedFinal RestorationStatus = "REJECTED_FINAL"
	RestorationExpired       RestorationStatus = "EXPIRED"
)

func (s RestorationStatus) Valid() bool {
	switch s {
	case RestorationPending, RestorationApproved, RestorationRejected, RestorationRejectedFinal, RestorationExpired:
		return true
	}
	return false
}

// IsTerminal reports statuses that accept no further transition.
// REJECTED is not terminal even once its appeal window closes; the request is frozen instead.
func (s RestorationStatus) IsTerminal() bool {
	return s == RestorationApproved || s == RestorationRejectedFinal || s == RestorationExpired
}

type RestorationRequest struct {
	ID              uuid.UUID         `json:"id"`
	UserID          uuid.UUID         `json:"user_id"`
	Status          RestorationStatus `json:"status"`
	RequestedAt     time.Time         `json:"requested_at"`
	ResolvedAt      *time.Time        `json:"resolved_at"`
	ResolvedBy      *uuid.UUID        `json:"resolved_by"`
	RejectionReason *string           `json:"rejection_reason"`
	AppealMessage   *string           `json:"appeal_message"`
	AppealedAt      *time.Time        `json:"appealed_at"`

	// Owner details, filled on admin listings.
	UserEmail string `json:"user_email,omitempty"`
	UserName  string `json:"user_name,omitempty"`
}

// RestorationGuard is the state a transition was computed from. Repositories only
// persist a transition while the stored request still matches it.
type RestorationGuard struct {
	Status   RestorationStatus
	Appealed bool
}

func NewRestorationRequest(userID uuid.UUID, now time.Time) *RestorationRequest {
	return &RestorationRequest{
		ID:          uuid.New(),
		UserID:      userID,
		Status:      RestorationPending,
		RequestedAt: now,
	}
}

func (r *RestorationRequest) Guard() RestorationGuard {
	return RestorationGuard{Status: r.Status, Appealed: r.AppealMessage != nil}
}

func (r *RestorationRequest) IsResolved() bool {
	return r.ResolvedAt != nil
}

func (r *RestorationRequest) HasAppealed() bool {
	return r.AppealedAt != nil || r.AppealMessage != nil
}

// IsAppealPending is a REJECTED request whose single appeal awaits an admin decision.
func (r *RestorationRequest) IsAppealPending() bool {
	return r.Status == RestorationRejected && r.AppealMessage != nil
}

// CanBeDecided reports whether an admin may approve or reject the request now.
func (r *RestorationRequest) CanBeDecided() bool {
	return r.Status == RestorationPending || r.IsAppealPending()
}

func (r *RestorationRequest) Approve(adminID uuid.UUID, now time.Time) error {
	if !r.CanBeDecided() {
		return ErrAlreadyResolved
	}
	r.Status = RestorationApproved
	r.resolve(adminID, now)
	return nil
}

// Reject records an admin rejection and reports whether it was final. Rejecting an
// appeal keeps both reasons, the appeal decision first.
func (r *RestorationRequest) Reject(adminID uuid.UUID, reason string, now time.Time) (bool, error) {
	reason = strings.TrimSpace(reason)
	if utf8.RuneCountInString(reason) < MinRejectionReasonLength {
		return false, ErrReasonTooShort
	}

	switch {
	case r.Status == RestorationPending:
		r.Status = RestorationRejected
		r.RejectionReason = &reason
		r.resolve(adminID, now)
		return false, nil
	case r.IsAppealPending():
		combined := fmt.Sprintf("Appeal Rejected: %s\n\nOriginal Rejection: %s", reason, deref(r.RejectionReason))
		r.Status = RestorationRejectedFinal
		r.RejectionReason = &combined
		r.resolve(adminID, now)
		return true, nil
	default:
		return false, ErrAlreadyResolved
	}
}

// CheckAppeal validates that the owner may file an appeal at now.
func (r *RestorationRequest) CheckAppeal(p Policy, now time.Time) error {
	switch {
	case r.Status == RestorationRejectedFinal:
		return ErrAppealFinal
	case r.Status != RestorationRejected:
		return ErrNotRejected
	case r.HasAppealed():
		return ErrAppealAlreadySubmitted
	case r.ResolvedAt == nil:
		return ErrNotRejected
	case p.IsAppealWindowExpired(*r.ResolvedAt, now):
		return ErrAppealWindowExpired
	}
	return nil
}

// Appeal attaches the single appeal. The status stays REJECTED.
func (r *RestorationRequest) Appeal(p Policy, message string, now time.Time) error {
	message = strings.TrimSpace(message)
	if utf8.RuneCountInString(message) < MinAppealMessageLength {
		return ErrMessageTooShort
	}
	if err := r.CheckAppeal(p, now); err != nil {
		return err
	}
	r.AppealMessage = &message
	r.AppealedAt = &now
	return nil
}

func (r *RestorationRequest) Expire(now time.Time) error {
	if r.Status != RestorationPending {
		return ErrAlreadyResolved
	}
	r.Status = RestorationExpired
	r.ResolvedAt = &now
	r.ResolvedBy = nil
	return nil
}

func (r *RestorationRequest) resolve(adminID uuid.UUID, now time.Time) {
	r.ResolvedAt = &now
	r.ResolvedBy = &adminID
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
