package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/vncsmyrnk/grantdesk/internal/core/domain"
	"github.com/vncsmyrnk/grantdesk/internal/core/ports"
)

const (
	restorationColumns = `r.id, r.user_id, r.status, r.requested_at, r.resolved_at, r.resolved_by, r.rejection_reason, r.appeal_message, r.appealed_at`

	uniqueViolation = "23505"
	onePendingIndex = "restoration_requests_one_pending_idx"
)

type restorationRepository struct {
	db *sql.DB
}

func NewRestorationRepository(db *sql.DB) ports.RestorationRepository {
	return &restorationRepository{
		db: db,
	}
}

func (r *restorationRepository) Create(ctx context.Context, req *domain.RestorationRequest) error {
	query := `
		INSERT INTO restoration_requests (id, user_id, status, requested_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.db.ExecContext(ctx, query, req.ID, req.UserID, req.Status, req.RequestedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation && pqErr.Constraint == onePendingIndex {
			return domain.ErrPendingRequestExists
		}
		return fmt.Errorf("failed to insert restoration request: %w", err)
	}
	return nil
}

func (r *restorationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.RestorationRequest, error) {
	query := `SELECT ` + restorationColumns + ` FROM restoration_requests r WHERE r.id = $1`

	req, err := scanRestoration(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRestorationNotFound
		}
		return nil, fmt.Errorf("failed to get restoration request: %w", err)
	}
	return req, nil
}

func (r *restorationRepository) GetLatestByUser(ctx context.Context, userID uuid.UUID) (*domain.RestorationRequest, error) {
	query := `
		SELECT ` + restorationColumns + `
		FROM restoration_requests r
		WHERE r.user_id = $1
		ORDER BY r.requested_at DESC
		LIMIT 1
	`
	req, err := scanRestoration(r.db.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest restoration request: %w", err)
	}
	return req, nil
}

func (r *restorationRepository) HasPending(ctx context.Context, userID uuid.UUID) (bool, error) {
	query := `SELECT 1 FROM restoration_requests WHERE user_id = $1 AND status = 'PENDING' LIMIT 1`
	var exists int
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check pending request: %w", err)
	}
	return true, nil
}

func (r *restorationRepository) List(ctx context.Context) ([]*domain.RestorationRequest, error) {
	query := `
		SELECT ` + restorationColumns + `, u.email, u.name
		FROM restoration_requests r
		JOIN users u ON u.id = r.user_id
		ORDER BY r.requested_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list restoration requests: %w", err)
	}
	defer rows.Close()

	var reqs []*domain.RestorationRequest
	for rows.Next() {
		var req domain.RestorationRequest
		var resolvedAt, appealedAt sql.NullTime
		var resolvedBy uuid.NullUUID
		var reason, appeal sql.NullString
		if err := rows.Scan(
			&req.ID, &req.UserID, &req.Status, &req.RequestedAt,
			&resolvedAt, &resolvedBy, &reason, &appeal, &appealedAt,
			&req.UserEmail, &req.UserName,
		); err != nil {
			return nil, fmt.Errorf("failed to scan restoration request: %w", err)
		}
		fillNullable(&req, resolvedAt, resolvedBy, reason, appeal, appealedAt)
		reqs = append(reqs, &req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating restoration requests: %w", err)
	}
	return reqs, nil
}

func (r *restorationRepository) ExpireStale(ctx context.Context, cutoff, now time.Time) (int64, error) {
	query := `
		UPDATE restoration_requests r
		SET status = 'EXPIRED', resolved_at = $2, resolved_by = NULL
		FROM users u
		WHERE u.id = r.user_id
		  AND r.status = 'PENDING'
		  AND u.deleted_at IS NOT NULL
		  AND u.deleted_at < $1
	`
	res, err := r.db.ExecContext(ctx, query, cutoff, now)
	if err != nil {
		return 0, fmt.Errorf("failed to expire stale requests: %w", err)
	}
	return res.RowsAffected()
}

func (r *restorationRepository) Update(ctx context.Context, req *domain.RestorationRequest, guard domain.RestorationGuard) error {
	return guardedUpdate(ctx, r.db, req, guard)
}

func (r *restorationRepository) Approve(ctx context.Context, req *domain.RestorationRequest, guard domain.RestorationGuard) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := guardedUpdate(ctx, tx, req, guard); err != nil {
		return err
	}

	queryUser := `
		UPDATE users SET deleted_at = NULL, onboarding_completed = FALSE
		WHERE id = $1 AND deleted_at IS NOT NULL
	`
	res, err := tx.ExecContext(ctx, queryUser, req.UserID)
	if err != nil {
		return fmt.Errorf("failed to restore user: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	} else if n == 0 {
		return domain.ErrAccountNotDeleted
	}

	querySubjects := `
		UPDATE subjects SET deleted_at = NULL
		WHERE owner_id = $1 AND organization_id IS NULL AND deleted_at IS NOT NULL
	`
	if _, err := tx.ExecContext(ctx, querySubjects, req.UserID); err != nil {
		return fmt.Errorf("failed to restore subjects: %w", err)
	}

	// The account is back, so the owner's other open requests are settled with this one.
	querySiblings := `
		UPDATE restoration_requests
		SET status = $3, resolved_at = $4, resolved_by = $5
		WHERE user_id = $1 AND id <> $2
		  AND (status = 'PENDING' OR (status = 'REJECTED' AND appeal_message IS NOT NULL))
	`
	if _, err := tx.ExecContext(ctx, querySiblings,
		req.UserID, req.ID, domain.RestorationApproved, req.ResolvedAt, nullUUID(req.ResolvedBy),
	); err != nil {
		return fmt.Errorf("failed to settle open requests: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func guardedUpdate(ctx context.Context, db execer, req *domain.RestorationRequest, guard domain.RestorationGuard) error {
	query := `
		UPDATE restoration_requests
		SET status = $2, resolved_at = $3, resolved_by = $4,
		    rejection_reason = $5, appeal_message = $6, appealed_at = $7
		WHERE id = $1 AND status = $8 AND (appeal_message IS NOT NULL) = $9
	`
	res, err := db.ExecContext(ctx, query,
		req.ID, req.Status, req.ResolvedAt, nullUUID(req.ResolvedBy),
		req.RejectionReason, req.AppealMessage, req.AppealedAt,
		guard.Status, guard.Appealed,
	)
	if err != nil {
		return fmt.Errorf("failed to update restoration request: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return domain.ErrAlreadyResolved
	}
	return nil
}

func scanRestoration(row *sql.Row) (*domain.RestorationRequest, error) {
	var req domain.RestorationRequest
	var resolvedAt, appealedAt sql.NullTime
	var resolvedBy uuid.NullUUID
	var reason, appeal sql.NullString
	if err := row.Scan(
		&req.ID, &req.UserID, &req.Status, &req.RequestedAt,
		&resolvedAt, &resolvedBy, &reason, &appeal, &appealedAt,
	); err != nil {
		return nil, err
	}
	fillNullable(&req, resolvedAt, resolvedBy, reason, appeal, appealedAt)
	return &req, nil
}

func fillNullable(req *domain.RestorationRequest, resolvedAt sql.NullTime, resolvedBy uuid.NullUUID, reason, appeal sql.NullString, appealedAt sql.NullTime) {
	req.ResolvedAt = timePtr(resolvedAt)
	req.AppealedAt = timePtr(appealedAt)
	if resolvedBy.Valid {
		id := resolvedBy.UUID
		req.ResolvedBy = &id
	}
	if reason.Valid {
		s := reason.String
		req.RejectionReason = &s
	}
	if appeal.Valid {
		s := appeal.String
		req.AppealMessage = &s
	}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}
