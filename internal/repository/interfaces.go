package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/giftnotify/push-api/internal/model"
)

// All repository interfaces in one file
type (
	// SubscriptionRepository is the subscriber registry. The dispatch
	// engine is the only writer of last_status/last_error and the only
	// caller of Delete.
	SubscriptionRepository interface {
		Upsert(ctx context.Context, sub *model.Subscription) error
		List(ctx context.Context) ([]*model.Subscription, error)
		RecordOutcome(ctx context.Context, id uuid.UUID, status, lastError string) error
		Delete(ctx context.Context, id uuid.UUID) error
		Count(ctx context.Context) (int, error)
	}

	// HistoryRepository is the append-only fan-out ledger.
	HistoryRepository interface {
		Append(ctx context.Context, attempt *model.DeliveryAttempt) error
		List(ctx context.Context) ([]*model.DeliveryAttempt, error)
	}
)
