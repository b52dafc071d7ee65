package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giftnotify/push-api/internal/model"
)

func sampleAttempt() *model.DeliveryAttempt {
	return &model.DeliveryAttempt{
		ID:      uuid.New(),
		Time:    time.Now().UTC(),
		Title:   "Sale",
		Body:    "50% off",
		Image:   "https://cdn.example.com/sale.png",
		Link:    "/sale",
		Sent:    10,
		Failed:  2,
		Removed: 1,
	}
}

func TestHistoryAppend(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewHistoryRepository(db)
	attempt := sampleAttempt()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO history")).
		WithArgs(
			attempt.ID, attempt.Time, attempt.Title, attempt.Body,
			attempt.Image, attempt.Link, attempt.Sent, attempt.Failed, attempt.Removed,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Append(context.Background(), attempt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryAppendError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewHistoryRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO history")).
		WillReturnError(errors.New("table missing"))

	err := repo.Append(context.Background(), sampleAttempt())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to append history")
}

func TestHistoryList(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewHistoryRepository(db)

	newer := sampleAttempt()
	older := sampleAttempt()
	older.Time = newer.Time.Add(-time.Hour)
	older.Title = "Earlier"

	columns := []string{"id", "time", "title", "body", "image", "link", "sent", "failed", "removed"}
	rows := sqlmock.NewRows(columns)
	for _, a := range []*model.DeliveryAttempt{newer, older} {
		rows.AddRow(a.ID, a.Time, a.Title, a.Body, a.Image, a.Link, a.Sent, a.Failed, a.Removed)
	}

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM history ORDER BY time DESC")).
		WillReturnRows(rows)

	attempts, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, attempts, 2)
	assert.Equal(t, "Sale", attempts[0].Title)
	assert.Equal(t, "Earlier", attempts[1].Title)
	assert.NoError(t, mock.ExpectationsWereMet())
}
