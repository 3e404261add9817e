package schedule

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lumen-tv/lumen/internal/channel"
	"github.com/lumen-tv/lumen/internal/db"
	"github.com/lumen-tv/lumen/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestService creates a schedule service with a test database
func setupTestService(t *testing.T) (*Service, *db.Repositories, func()) {
	tmpFile := filepath.Join(t.TempDir(), "test.db")
	database, err := db.New(tmpFile)
	require.NoError(t, err)

	sqlDB, err := database.GetSQLDB()
	require.NoError(t, err)

	migrationsPath := "file://../../migrations"
	err = db.RunMigrations(sqlDB, migrationsPath)
	require.NoError(t, err)

	repos := db.NewRepositories(database)
	service := NewService(database, repos, nil)

	cleanup := func() {
		_ = database.Close()
	}

	return service, repos, cleanup
}

func createTestChannel(t *testing.T, repos *db.Repositories, scheduleStart *time.Time) *models.Channel {
	ch := models.NewChannel("Test Channel "+uuid.NewString()[:8], scheduleStart)
	require.NoError(t, repos.Channels.Create(context.Background(), ch))
	return ch
}

func createTestVOD(t *testing.T, repos *db.Repositories, durationMs int64) *models.VOD {
	vod := models.NewVOD("Asset "+uuid.NewString()[:8], "https://cdn.example.com/a/master.m3u8", durationMs)
	require.NoError(t, repos.VODs.Create(context.Background(), vod))
	return vod
}

func TestAddToSchedule_BackToBackChains(t *testing.T) {
	service, repos, cleanup := setupTestService(t)
	defer cleanup()

	ctx := context.Background()
	anchor := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)
	ch := createTestChannel(t, repos, &anchor)
	vod := createTestVOD(t, repos, 30*60*1000)

	first, err := service.AddToSchedule(ctx, ch.ID, vod.ID, AddOptions{BackToBack: true})
	require.NoError(t, err)
	assert.Equal(t, 1, first.Position)
	assert.WithinDuration(t, anchor, first.ScheduledStart, time.Second)
	assert.WithinDuration(t, anchor.Add(30*time.Minute), first.ScheduledEnd, time.Second)

	second, err := service.AddToSchedule(ctx, ch.ID, vod.ID, AddOptions{BackToBack: true})
	require.NoError(t, err)
	assert.Equal(t, 2, second.Position)
	assert.WithinDuration(t, first.ScheduledEnd, second.ScheduledStart, time.Second)
	assert.WithinDuration(t, first.ScheduledEnd.Add(30*time.Minute), second.ScheduledEnd, time.Second)
}

func TestAddToSchedule_BackToBackWithPinnedStart(t *testing.T) {
	service, repos, cleanup := setupTestService(t)
	defer cleanup()

	ctx := context.Background()
	ch := createTestChannel(t, repos, nil)
	vod := createTestVOD(t, repos, 10*60*1000)

	pinned := time.Date(2026, 3, 2, 20, 0, 0, 0, time.UTC)
	entry, err := service.AddToSchedule(ctx, ch.ID, vod.ID, AddOptions{BackToBack: true, Start: &pinned})
	require.NoError(t, err)
	assert.WithinDuration(t, pinned, entry.ScheduledStart, time.Second)
	assert.WithinDuration(t, pinned.Add(10*time.Minute), entry.ScheduledEnd, time.Second)
}

func TestAddToSchedule_ExplicitTimesStoredVerbatim(t *testing.T) {
	service, repos, cleanup := setupTestService(t)
	defer cleanup()

	ctx := context.Background()
	ch := createTestChannel(t, repos, nil)
	vod := createTestVOD(t, repos, 60*60*1000)

	// A 10 minute slot for a 60 minute asset; accepted as-is
	start := time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC)
	end := start.Add(10 * time.Minute)
	entry, err := service.AddToSchedule(ctx, ch.ID, vod.ID, AddOptions{Start: &start, End: &end})
	require.NoError(t, err)
	assert.WithinDuration(t, start, entry.ScheduledStart, time.Second)
	assert.WithinDuration(t, end, entry.ScheduledEnd, time.Second)
}

func TestAddToSchedule_ExplicitRequiresBothBounds(t *testing.T) {
	service, repos, cleanup := setupTestService(t)
	defer cleanup()

	ctx := context.Background()
	ch := createTestChannel(t, repos, nil)
	vod := createTestVOD(t, repos, 60_000)

	start := time.Now().UTC()
	_, err := service.AddToSchedule(ctx, ch.ID, vod.ID, AddOptions{Start: &start})
	require.Error(t, err)
	assert.True(t, IsInvalidInput(err))
}

func TestAddToSchedule_UnknownVOD(t *testing.T) {
	service, repos, cleanup := setupTestService(t)
	defer cleanup()

	ch := createTestChannel(t, repos, nil)

	_, err := service.AddToSchedule(context.Background(), ch.ID, uuid.New(), AddOptions{BackToBack: true})
	require.Error(t, err)
	assert.True(t, IsVODNotFound(err))
}

func TestAddToSchedule_UnknownChannel(t *testing.T) {
	service, repos, cleanup := setupTestService(t)
	defer cleanup()

	vod := createTestVOD(t, repos, 60_000)

	_, err := service.AddToSchedule(context.Background(), uuid.New(), vod.ID, AddOptions{BackToBack: true})
	require.Error(t, err)
	assert.True(t, channel.IsChannelNotFound(err))
}

func TestRemoveEntry_GapStaysUntilRebalance(t *testing.T) {
	service, repos, cleanup := setupTestService(t)
	defer cleanup()

	ctx := context.Background()
	anchor := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
	ch := createTestChannel(t, repos, &anchor)
	vod := createTestVOD(t, repos, 20*60*1000)

	first, err := service.AddToSchedule(ctx, ch.ID, vod.ID, AddOptions{BackToBack: true})
	require.NoError(t, err)
	second, err := service.AddToSchedule(ctx, ch.ID, vod.ID, AddOptions{BackToBack: true})
	require.NoError(t, err)
	third, err := service.AddToSchedule(ctx, ch.ID, vod.ID, AddOptions{BackToBack: true})
	require.NoError(t, err)

	require.NoError(t, service.RemoveEntry(ctx, second.ID))

	// Third entry keeps its old interval until a rebalance closes the gap
	entries, err := service.GetSchedule(ctx, ch.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.WithinDuration(t, third.ScheduledStart, entries[1].ScheduledStart, time.Second)

	require.NoError(t, service.Rebalance(ctx, ch.ID, 1))

	entries, err = service.GetSchedule(ctx, ch.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.WithinDuration(t, anchor, entries[0].ScheduledStart, time.Second)
	assert.WithinDuration(t, entries[0].ScheduledEnd, entries[1].ScheduledStart, time.Second)
	assert.WithinDuration(t, anchor.Add(40*time.Minute), entries[1].ScheduledEnd, time.Second)

	// Positions are untouched by the retime
	assert.Equal(t, first.Position, entries[0].Position)
	assert.Equal(t, third.Position, entries[1].Position)
}

func TestRebalance_FromMiddleAnchorsOnPrecedingEnd(t *testing.T) {
	service, repos, cleanup := setupTestService(t)
	defer cleanup()

	ctx := context.Background()
	anchor := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	ch := createTestChannel(t, repos, &anchor)
	vod := createTestVOD(t, repos, 15*60*1000)

	first, err := service.AddToSchedule(ctx, ch.ID, vod.ID, AddOptions{BackToBack: true})
	require.NoError(t, err)
	second, err := service.AddToSchedule(ctx, ch.ID, vod.ID, AddOptions{BackToBack: true})
	require.NoError(t, err)

	// Knock the second entry out of place
	second.ScheduledStart = anchor.Add(5 * time.Hour)
	second.ScheduledEnd = anchor.Add(6 * time.Hour)
	require.NoError(t, service.UpdateEntry(ctx, second))

	require.NoError(t, service.Rebalance(ctx, ch.ID, 2))

	entries, err := service.GetSchedule(ctx, ch.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.WithinDuration(t, first.ScheduledEnd, entries[1].ScheduledStart, time.Second)
	assert.WithinDuration(t, first.ScheduledEnd.Add(15*time.Minute), entries[1].ScheduledEnd, time.Second)
}

func TestRebalance_Idempotent(t *testing.T) {
	service, repos, cleanup := setupTestService(t)
	defer cleanup()

	ctx := context.Background()
	anchor := time.Date(2026, 3, 13, 0, 0, 0, 0, time.UTC)
	ch := createTestChannel(t, repos, &anchor)
	short := createTestVOD(t, repos, 10*60*1000)
	long := createTestVOD(t, repos, 35*60*1000)

	_, err := service.AddToSchedule(ctx, ch.ID, short.ID, AddOptions{BackToBack: true})
	require.NoError(t, err)
	second, err := service.AddToSchedule(ctx, ch.ID, long.ID, AddOptions{BackToBack: true})
	require.NoError(t, err)

	// Break contiguity so the first rebalance has real work to do
	second.ScheduledStart = anchor.Add(8 * time.Hour)
	second.ScheduledEnd = anchor.Add(9 * time.Hour)
	require.NoError(t, service.UpdateEntry(ctx, second))

	require.NoError(t, service.Rebalance(ctx, ch.ID, 1))
	afterFirst, err := service.GetSchedule(ctx, ch.ID)
	require.NoError(t, err)

	// With no mutation in between, rebalancing again changes nothing
	require.NoError(t, service.Rebalance(ctx, ch.ID, 1))
	afterSecond, err := service.GetSchedule(ctx, ch.ID)
	require.NoError(t, err)

	require.Len(t, afterSecond, len(afterFirst))
	for i := range afterFirst {
		assert.Equal(t, afterFirst[i].ID, afterSecond[i].ID)
		assert.True(t, afterSecond[i].ScheduledStart.Equal(afterFirst[i].ScheduledStart),
			"entry %d start moved between rebalances", i)
		assert.True(t, afterSecond[i].ScheduledEnd.Equal(afterFirst[i].ScheduledEnd),
			"entry %d end moved between rebalances", i)
	}
}

func TestRebalance_SkipsInactiveEntries(t *testing.T) {
	service, repos, cleanup := setupTestService(t)
	defer cleanup()

	ctx := context.Background()
	anchor := time.Date(2026, 3, 6, 0, 0, 0, 0, time.UTC)
	ch := createTestChannel(t, repos, &anchor)
	vod := createTestVOD(t, repos, 10*60*1000)

	first, err := service.AddToSchedule(ctx, ch.ID, vod.ID, AddOptions{BackToBack: true})
	require.NoError(t, err)
	second, err := service.AddToSchedule(ctx, ch.ID, vod.ID, AddOptions{BackToBack: true})
	require.NoError(t, err)
	third, err := service.AddToSchedule(ctx, ch.ID, vod.ID, AddOptions{BackToBack: true})
	require.NoError(t, err)

	second.IsActive = false
	require.NoError(t, service.UpdateEntry(ctx, second))

	require.NoError(t, service.Rebalance(ctx, ch.ID, 1))

	entries, err := service.GetSchedule(ctx, ch.ID)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	// Active run is contiguous across the disabled slot
	assert.Equal(t, first.ID, entries[0].ID)
	assert.Equal(t, third.ID, entries[2].ID)
	assert.WithinDuration(t, anchor, entries[0].ScheduledStart, time.Second)
	assert.WithinDuration(t, entries[0].ScheduledEnd, entries[2].ScheduledStart, time.Second)

	// The disabled entry's interval was not rewritten
	assert.WithinDuration(t, second.ScheduledStart, entries[1].ScheduledStart, time.Second)
}

func TestRebalance_EmptyTimelineIsNoOp(t *testing.T) {
	service, repos, cleanup := setupTestService(t)
	defer cleanup()

	ch := createTestChannel(t, repos, nil)
	require.NoError(t, service.Rebalance(context.Background(), ch.ID, 1))
}

func TestSetScheduleStart_RetimesAndRearmsSync(t *testing.T) {
	service, repos, cleanup := setupTestService(t)
	defer cleanup()

	ctx := context.Background()
	anchor := time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC)
	ch := createTestChannel(t, repos, &anchor)
	vod := createTestVOD(t, repos, 25*60*1000)

	_, err := service.AddToSchedule(ctx, ch.ID, vod.ID, AddOptions{BackToBack: true})
	require.NoError(t, err)

	// Simulate a synced channel, then move the anchor administratively
	syncedAt := anchor.Add(2 * time.Minute)
	require.NoError(t, service.SyncScheduleStart(ctx, ch.ID, syncedAt))

	updated, err := repos.Channels.GetByID(ctx, ch.ID)
	require.NoError(t, err)
	assert.True(t, updated.ScheduleSynced)

	newStart := anchor.Add(24 * time.Hour)
	require.NoError(t, service.SetScheduleStart(ctx, ch.ID, newStart))

	updated, err = repos.Channels.GetByID(ctx, ch.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.ScheduleStart)
	assert.WithinDuration(t, newStart, *updated.ScheduleStart, time.Second)
	assert.False(t, updated.ScheduleSynced, "anchor move must re-arm the first-poll sync")

	entries, err := service.GetSchedule(ctx, ch.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.WithinDuration(t, newStart, entries[0].ScheduledStart, time.Second)
	assert.WithinDuration(t, newStart.Add(25*time.Minute), entries[0].ScheduledEnd, time.Second)
}

func TestSyncScheduleStart_MarksSyncedAndRetimes(t *testing.T) {
	service, repos, cleanup := setupTestService(t)
	defer cleanup()

	ctx := context.Background()
	anchor := time.Date(2026, 3, 8, 12, 0, 0, 0, time.UTC)
	ch := createTestChannel(t, repos, &anchor)
	vod := createTestVOD(t, repos, 40*60*1000)

	_, err := service.AddToSchedule(ctx, ch.ID, vod.ID, AddOptions{BackToBack: true})
	require.NoError(t, err)

	actualStart := anchor.Add(90 * time.Second)
	require.NoError(t, service.SyncScheduleStart(ctx, ch.ID, actualStart))

	updated, err := repos.Channels.GetByID(ctx, ch.ID)
	require.NoError(t, err)
	assert.True(t, updated.ScheduleSynced)
	require.NotNil(t, updated.ScheduleStart)
	assert.WithinDuration(t, actualStart, *updated.ScheduleStart, time.Second)

	entries, err := service.GetSchedule(ctx, ch.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.WithinDuration(t, actualStart, entries[0].ScheduledStart, time.Second)
}

func TestSyncScheduleStart_SecondSyncIsNoOp(t *testing.T) {
	service, repos, cleanup := setupTestService(t)
	defer cleanup()

	ctx := context.Background()
	anchor := time.Date(2026, 3, 12, 9, 0, 0, 0, time.UTC)
	ch := createTestChannel(t, repos, &anchor)
	vod := createTestVOD(t, repos, 15*60*1000)

	_, err := service.AddToSchedule(ctx, ch.ID, vod.ID, AddOptions{BackToBack: true})
	require.NoError(t, err)

	firstPoll := anchor.Add(time.Minute)
	require.NoError(t, service.SyncScheduleStart(ctx, ch.ID, firstPoll))

	// An already-synced channel must not be re-anchored by a second sync
	require.NoError(t, service.SyncScheduleStart(ctx, ch.ID, anchor.Add(2*time.Minute)))

	updated, err := repos.Channels.GetByID(ctx, ch.ID)
	require.NoError(t, err)
	assert.True(t, updated.ScheduleSynced)
	require.NotNil(t, updated.ScheduleStart)
	assert.WithinDuration(t, firstPoll, *updated.ScheduleStart, time.Second)

	entries, err := service.GetSchedule(ctx, ch.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.WithinDuration(t, firstPoll, entries[0].ScheduledStart, time.Second)
}

func TestReanchorForLoop_PreservesSyncState(t *testing.T) {
	service, repos, cleanup := setupTestService(t)
	defer cleanup()

	ctx := context.Background()
	anchor := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	ch := createTestChannel(t, repos, &anchor)
	vod := createTestVOD(t, repos, 5*60*1000)

	_, err := service.AddToSchedule(ctx, ch.ID, vod.ID, AddOptions{BackToBack: true})
	require.NoError(t, err)

	require.NoError(t, service.SyncScheduleStart(ctx, ch.ID, anchor))

	loopAt := anchor.Add(3 * time.Hour)
	require.NoError(t, service.ReanchorForLoop(ctx, ch.ID, loopAt))

	updated, err := repos.Channels.GetByID(ctx, ch.ID)
	require.NoError(t, err)
	assert.True(t, updated.ScheduleSynced, "loop-back must not re-arm the first-poll sync")
	require.NotNil(t, updated.ScheduleStart)
	assert.WithinDuration(t, loopAt, *updated.ScheduleStart, time.Second)
}

func TestClearSchedule(t *testing.T) {
	service, repos, cleanup := setupTestService(t)
	defer cleanup()

	ctx := context.Background()
	anchor := time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)
	ch := createTestChannel(t, repos, &anchor)
	vod := createTestVOD(t, repos, 10*60*1000)

	_, err := service.AddToSchedule(ctx, ch.ID, vod.ID, AddOptions{BackToBack: true})
	require.NoError(t, err)
	_, err = service.AddToSchedule(ctx, ch.ID, vod.ID, AddOptions{BackToBack: true})
	require.NoError(t, err)

	require.NoError(t, service.ClearSchedule(ctx, ch.ID))

	entries, err := service.GetSchedule(ctx, ch.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)

	// Anchor and sync state are untouched
	updated, err := repos.Channels.GetByID(ctx, ch.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.ScheduleStart)
	assert.WithinDuration(t, anchor, *updated.ScheduleStart, time.Second)
}

func TestReorderSchedule_ThenRebalance(t *testing.T) {
	service, repos, cleanup := setupTestService(t)
	defer cleanup()

	ctx := context.Background()
	anchor := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	ch := createTestChannel(t, repos, &anchor)
	short := createTestVOD(t, repos, 5*60*1000)
	long := createTestVOD(t, repos, 50*60*1000)

	first, err := service.AddToSchedule(ctx, ch.ID, short.ID, AddOptions{BackToBack: true})
	require.NoError(t, err)
	second, err := service.AddToSchedule(ctx, ch.ID, long.ID, AddOptions{BackToBack: true})
	require.NoError(t, err)

	err = service.ReorderSchedule(ctx, ch.ID, []db.ReorderItem{
		{ID: first.ID, Position: 2},
		{ID: second.ID, Position: 1},
	})
	require.NoError(t, err)
	require.NoError(t, service.Rebalance(ctx, ch.ID, 1))

	entries, err := service.GetSchedule(ctx, ch.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Long asset now leads and the short one follows it
	assert.Equal(t, second.ID, entries[0].ID)
	assert.WithinDuration(t, anchor, entries[0].ScheduledStart, time.Second)
	assert.WithinDuration(t, anchor.Add(50*time.Minute), entries[0].ScheduledEnd, time.Second)
	assert.Equal(t, first.ID, entries[1].ID)
	assert.WithinDuration(t, entries[0].ScheduledEnd, entries[1].ScheduledStart, time.Second)
}
