package reminder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/recall/internal/database"
	"github.com/example/recall/pkg/models"
)

type capturedReminder struct {
	learnerID string
	dueCount  int
}

type fakeNotifier struct {
	sent []capturedReminder
	err  error
}

func (n *fakeNotifier) RemindDue(_ context.Context, learnerID string, dueCount int) error {
	n.sent = append(n.sent, capturedReminder{learnerID, dueCount})
	return n.err
}

func newRepos(t *testing.T) (*database.LearnerRepository, *database.ReviewRecordRepository) {
	t.Helper()
	db, err := database.Open(database.Config{Driver: "sqlite3", DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return database.NewLearnerRepository(db), database.NewReviewRecordRepository(db)
}

func TestRunOnceNudgesLearnersWithDueItems(t *testing.T) {
	learners, records := newRepos(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, learners.Upsert(ctx, &models.Learner{
		ID: "busy", BatchSize: 2, ReminderHour: 9, RemindersEnabled: true,
	}))
	require.NoError(t, learners.Upsert(ctx, &models.Learner{
		ID: "caught-up", BatchSize: 10, ReminderHour: 9, RemindersEnabled: true,
	}))
	require.NoError(t, learners.Upsert(ctx, &models.Learner{
		ID: "later", BatchSize: 10, ReminderHour: 18, RemindersEnabled: true,
	}))

	// Three due items for "busy", none for the others.
	for _, itemID := range []string{"item-1", "item-2", "item-3"} {
		_, err := records.CreateIfAbsent(ctx, "busy", itemID, now)
		require.NoError(t, err)
	}

	notifier := &fakeNotifier{}
	sweeper := New(learners, records, notifier, zap.NewNop(), DefaultConfig())
	sweeper.RunOnce(ctx, now)

	// Only the matching learner with due items is nudged, capped at batch size.
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, capturedReminder{"busy", 2}, notifier.sent[0])
}

func TestRunOnceContinuesPastNotifierFailure(t *testing.T) {
	learners, records := newRepos(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	for _, id := range []string{"learner-a", "learner-b"} {
		require.NoError(t, learners.Upsert(ctx, &models.Learner{
			ID: id, BatchSize: 10, ReminderHour: 9, RemindersEnabled: true,
		}))
		_, err := records.CreateIfAbsent(ctx, id, "item-1", now)
		require.NoError(t, err)
	}

	notifier := &fakeNotifier{err: errors.New("delivery down")}
	sweeper := New(learners, records, notifier, zap.NewNop(), DefaultConfig())
	sweeper.RunOnce(ctx, now)

	assert.Len(t, notifier.sent, 2, "one failed delivery must not stop the sweep")
}
