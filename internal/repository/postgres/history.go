package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/giftnotify/push-api/internal/model"
	"github.com/giftnotify/push-api/internal/repository"
)

type historyRepository struct {
	db *sqlx.DB
}

func NewHistoryRepository(db *sqlx.DB) repository.HistoryRepository {
	return &historyRepository{db: db}
}

func (r *historyRepository) Append(ctx context.Context, attempt *model.DeliveryAttempt) error {
	query := `
		INSERT INTO history (id, time, title, body, image, link, sent, failed, removed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		attempt.ID,
		attempt.Time,
		attempt.Title,
		attempt.Body,
		attempt.Image,
		attempt.Link,
		attempt.Sent,
		attempt.Failed,
		attempt.Removed,
	)
	if err != nil {
		return fmt.Errorf("failed to append history: %w", err)
	}
	return nil
}

func (r *historyRepository) List(ctx context.Context) ([]*model.DeliveryAttempt, error) {
	query := `SELECT * FROM history ORDER BY time DESC`
	var attempts []*model.DeliveryAttempt
	if err := r.db.SelectContext(ctx, &attempts, query); err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	return attempts, nil
}
