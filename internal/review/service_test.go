package review

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/recall/internal/database"
	"github.com/example/recall/internal/sm2"
	"github.com/example/recall/pkg/models"
)

func newTestStore(t *testing.T) (*database.ReviewRecordRepository, *database.ReviewEventRepository) {
	t.Helper()
	db, err := database.Open(database.Config{Driver: "sqlite3", DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return database.NewReviewRecordRepository(db), database.NewReviewEventRepository(db)
}

func newTestService(t *testing.T, notifier Notifier, retries int) (*Service, *database.ReviewRecordRepository, *database.ReviewEventRepository) {
	t.Helper()
	records, events := newTestStore(t)
	svc := NewService(records, sm2.New(sm2.DefaultConfig()), notifier, zap.NewNop(), retries)
	return svc, records, events
}

type recordingNotifier struct {
	mu       sync.Mutex
	mastered []string
	err      error
}

func (n *recordingNotifier) ItemMastered(_ context.Context, learnerID, itemID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.mastered = append(n.mastered, learnerID+"/"+itemID)
	return n.err
}

func TestSubmitAnswerCreatesRecordOnFirstExposure(t *testing.T) {
	svc, records, events := newTestService(t, nil, 3)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	result, err := svc.SubmitAnswer(ctx, SubmitRequest{
		LearnerID: "learner-1",
		ItemID:    "item-1",
		Quality:   sm2.QualityPerfect,
		Now:       now,
	})
	require.NoError(t, err)

	assert.Equal(t, models.StatusLearning, result.Status)
	assert.Equal(t, 1, result.Repetitions)
	assert.Equal(t, 1.0, result.IntervalDays)
	assert.True(t, result.DueAt.Equal(now.Add(24*time.Hour)))

	rec, err := records.Get(ctx, "learner-1", "item-1")
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Repetitions)

	log, err := events.ListByItem(ctx, "learner-1", "item-1")
	require.NoError(t, err)
	require.Len(t, log, 1)
	assert.Equal(t, 5, log[0].Quality)
	assert.Equal(t, 0.0, log[0].PreviousInterval)
	assert.Equal(t, 1.0, log[0].NewInterval)
}

func TestSubmitAnswerRejectsInvalidQualityWithoutStateChange(t *testing.T) {
	svc, records, events := newTestService(t, nil, 3)
	ctx := context.Background()

	for _, quality := range []sm2.Quality{-1, 6} {
		_, err := svc.SubmitAnswer(ctx, SubmitRequest{
			LearnerID: "learner-1",
			ItemID:    "item-1",
			Quality:   quality,
			Now:       time.Now(),
		})
		require.ErrorIs(t, err, sm2.ErrInvalidQuality)
	}

	// Not even a first-exposure record may appear.
	_, err := records.Get(ctx, "learner-1", "item-1")
	assert.ErrorIs(t, err, database.ErrNotFound)

	log, err := events.ListByLearner(ctx, "learner-1")
	require.NoError(t, err)
	assert.Empty(t, log)
}

func TestSubmitAnswerFailedSaveLeavesRecordIntact(t *testing.T) {
	records, events := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	seeded, err := records.CreateIfAbsent(ctx, "learner-1", "item-1", now)
	require.NoError(t, err)

	broken := &failingStore{RecordStore: records, err: errors.New("store unavailable")}
	svc := NewService(broken, sm2.New(sm2.DefaultConfig()), nil, zap.NewNop(), 3)

	_, err = svc.SubmitAnswer(ctx, SubmitRequest{
		LearnerID: "learner-1",
		ItemID:    "item-1",
		Quality:   sm2.QualityPerfect,
		Now:       now,
	})
	require.Error(t, err)

	rec, err := records.Get(ctx, "learner-1", "item-1")
	require.NoError(t, err)
	assert.Equal(t, seeded.Repetitions, rec.Repetitions)
	assert.True(t, rec.DueAt.Equal(seeded.DueAt), "a failed submission must not advance dueAt")

	log, err := events.ListByLearner(ctx, "learner-1")
	require.NoError(t, err)
	assert.Empty(t, log, "no event may be appended without a successful save")
}

func TestSubmitAnswerRetriesConflictsThenSucceeds(t *testing.T) {
	records, events := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	_, err := records.CreateIfAbsent(ctx, "learner-1", "item-1", now)
	require.NoError(t, err)

	// First save attempt loses the race, the retried cycle wins.
	conflicted := &conflictingStore{RecordStore: records, conflicts: 1}
	svc := NewService(conflicted, sm2.New(sm2.DefaultConfig()), nil, zap.NewNop(), 3)

	result, err := svc.SubmitAnswer(ctx, SubmitRequest{
		LearnerID: "learner-1",
		ItemID:    "item-1",
		Quality:   sm2.QualityCorrectHesitation,
		Now:       now,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Repetitions)
	assert.Equal(t, 2, conflicted.saves, "the full cycle must run twice")

	log, err := events.ListByLearner(ctx, "learner-1")
	require.NoError(t, err)
	assert.Len(t, log, 1, "only the winning save appends an event")
}

func TestSubmitAnswerSurfacesExhaustedRetries(t *testing.T) {
	records, _ := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	_, err := records.CreateIfAbsent(ctx, "learner-1", "item-1", now)
	require.NoError(t, err)

	conflicted := &conflictingStore{RecordStore: records, conflicts: 10}
	svc := NewService(conflicted, sm2.New(sm2.DefaultConfig()), nil, zap.NewNop(), 2)

	_, err = svc.SubmitAnswer(ctx, SubmitRequest{
		LearnerID: "learner-1",
		ItemID:    "item-1",
		Quality:   sm2.QualityPerfect,
		Now:       now,
	})
	require.ErrorIs(t, err, ErrRetriesExhausted)
	assert.Equal(t, 3, conflicted.saves, "initial attempt plus two retries")
}

func TestSubmitAnswerConcurrentWritersOneWins(t *testing.T) {
	records, _ := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	_, err := records.CreateIfAbsent(ctx, "learner-1", "item-1", now)
	require.NoError(t, err)

	// Both writers score the same snapshot; the store must accept exactly one.
	first, err := records.Get(ctx, "learner-1", "item-1")
	require.NoError(t, err)
	second, err := records.Get(ctx, "learner-1", "item-1")
	require.NoError(t, err)

	engine := sm2.New(sm2.DefaultConfig())
	scoredFirst, err := engine.Score(*first, sm2.QualityPerfect, now)
	require.NoError(t, err)
	scoredSecond, err := engine.Score(*second, sm2.QualityBlackout, now)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		results[0] = records.SaveWithEvent(ctx, &scoredFirst, &models.ReviewEvent{
			LearnerID: "learner-1", ItemID: "item-1", Quality: 5, Timestamp: now,
		})
	}()
	go func() {
		defer wg.Done()
		results[1] = records.SaveWithEvent(ctx, &scoredSecond, &models.ReviewEvent{
			LearnerID: "learner-1", ItemID: "item-1", Quality: 0, Timestamp: now,
		})
	}()
	wg.Wait()

	conflicts := 0
	for _, err := range results {
		if errors.Is(err, database.ErrConflict) {
			conflicts++
		} else {
			require.NoError(t, err)
		}
	}
	assert.Equal(t, 1, conflicts, "exactly one writer may win")
}

func TestSubmitAnswerNotifiesOnMasteryTransitionOnce(t *testing.T) {
	notifier := &recordingNotifier{}
	svc, _, _ := newTestService(t, notifier, 3)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	var result *SubmitResult
	var err error
	for i := 0; i < 12; i++ {
		result, err = svc.SubmitAnswer(ctx, SubmitRequest{
			LearnerID: "learner-1",
			ItemID:    "item-1",
			Quality:   sm2.QualityPerfect,
			Now:       now,
		})
		require.NoError(t, err)
		now = result.DueAt
	}

	require.Equal(t, models.StatusMastered, result.Status)
	assert.Equal(t, []string{"learner-1/item-1"}, notifier.mastered,
		"mastery fires exactly once, on the transition")
}

func TestSubmitAnswerNotifierFailureDoesNotRollBack(t *testing.T) {
	notifier := &recordingNotifier{err: errors.New("progression system down")}
	svc, records, _ := newTestService(t, notifier, 3)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	var result *SubmitResult
	var err error
	for i := 0; i < 12; i++ {
		result, err = svc.SubmitAnswer(ctx, SubmitRequest{
			LearnerID: "learner-1",
			ItemID:    "item-1",
			Quality:   sm2.QualityPerfect,
			Now:       now,
		})
		require.NoError(t, err, "a failed notification must not fail the submission")
		now = result.DueAt
	}

	rec, err := records.Get(ctx, "learner-1", "item-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusMastered, rec.Status)
}

func TestRequestBatchDoesNotBackfill(t *testing.T) {
	svc, records, _ := newTestService(t, nil, 3)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	// Two due items, one scheduled for the future.
	for _, itemID := range []string{"item-1", "item-2"} {
		_, err := records.CreateIfAbsent(ctx, "learner-1", itemID, now)
		require.NoError(t, err)
	}
	future, err := records.CreateIfAbsent(ctx, "learner-1", "item-3", now)
	require.NoError(t, err)
	future.DueAt = now.Add(72 * time.Hour)
	require.NoError(t, records.Save(ctx, future))

	batch, err := svc.RequestBatch(ctx, "learner-1", now, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"item-1", "item-2"}, batch,
		"a partial batch is a valid result; future items are never pulled forward")

	// No due items at all yields an empty batch.
	caughtUp, err := svc.RequestBatch(ctx, "learner-2", now, 10)
	require.NoError(t, err)
	assert.Empty(t, caughtUp)
}

func TestRequestBatchHonorsBatchSize(t *testing.T) {
	svc, records, _ := newTestService(t, nil, 3)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	for _, itemID := range []string{"item-1", "item-2", "item-3"} {
		_, err := records.CreateIfAbsent(ctx, "learner-1", itemID, now)
		require.NoError(t, err)
	}

	batch, err := svc.RequestBatch(ctx, "learner-1", now, 2)
	require.NoError(t, err)
	assert.Len(t, batch, 2)

	none, err := svc.RequestBatch(ctx, "learner-1", now, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

// failingStore wraps a real store and fails every save.
type failingStore struct {
	RecordStore
	err error
}

func (s *failingStore) SaveWithEvent(context.Context, *models.ReviewRecord, *models.ReviewEvent) error {
	return s.err
}

// conflictingStore wraps a real store and reports a concurrency conflict for
// the first n saves.
type conflictingStore struct {
	RecordStore
	conflicts int
	saves     int
}

func (s *conflictingStore) SaveWithEvent(ctx context.Context, rec *models.ReviewRecord, ev *models.ReviewEvent) error {
	s.saves++
	if s.saves <= s.conflicts {
		return database.ErrConflict
	}
	return s.RecordStore.SaveWithEvent(ctx, rec, ev)
}
