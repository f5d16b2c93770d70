package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/grantdesk/internal/core/domain"
	"github.com/vncsmyrnk/grantdesk/internal/core/ports"
)

type accountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) ports.AccountRepository {
	return &accountRepository{
		db: db,
	}
}

func (r *accountRepository) Delete(ctx context.Context, userID uuid.UUID, at time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE users SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`, userID, at)
	if err != nil {
		return fmt.Errorf("failed to mark user deleted: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	} else if n == 0 {
		return domain.ErrAccountDeleted
	}

	// Chat history is not recoverable; messages go with their chats.
	if _, err := tx.ExecContext(ctx, `DELETE FROM chats WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to delete chats: %w", err)
	}

	querySubjects := `
		UPDATE subjects SET deleted_at = $2
		WHERE owner_id = $1 AND organization_id IS NULL AND deleted_at IS NULL
	`
	if _, err := tx.ExecContext(ctx, querySubjects, userID, at); err != nil {
		return fmt.Errorf("failed to soft-delete subjects: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM organization_members WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to remove memberships: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE refresh_tokens SET revoked = true WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to revoke sessions: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
