package playout

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/lumen-tv/lumen/internal/db"
	"github.com/lumen-tv/lumen/internal/schedule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestSync creates a sync coordinator with a test database
func setupTestSync(t *testing.T) (*SyncCoordinator, *schedule.Service, *db.Repositories, func()) {
	tmpFile := filepath.Join(t.TempDir(), "test.db")
	database, err := db.New(tmpFile)
	require.NoError(t, err)

	sqlDB, err := database.GetSQLDB()
	require.NoError(t, err)

	migrationsPath := "file://../../migrations"
	err = db.RunMigrations(sqlDB, migrationsPath)
	require.NoError(t, err)

	repos := db.NewRepositories(database)
	scheduleService := schedule.NewService(database, repos, nil)
	coordinator := NewSyncCoordinator(repos, scheduleService)

	cleanup := func() {
		_ = database.Close()
	}

	return coordinator, scheduleService, repos, cleanup
}

func TestMaybeSyncOnFirstPoll_SyncsOnce(t *testing.T) {
	coordinator, scheduleService, repos, cleanup := setupTestSync(t)
	defer cleanup()

	ctx := context.Background()
	nominal := time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)
	ch := createTestChannel(t, repos, &nominal)
	vod := createTestVOD(t, repos, "first-poll", 30*60*1000)

	_, err := scheduleService.AddToSchedule(ctx, ch.ID, vod.ID, schedule.AddOptions{BackToBack: true})
	require.NoError(t, err)

	// First poll arrives 4 minutes after the nominal start
	firstPoll := nominal.Add(4 * time.Minute)
	require.NoError(t, coordinator.MaybeSyncOnFirstPoll(ctx, ch, firstPoll))

	assert.True(t, ch.ScheduleSynced)
	require.NotNil(t, ch.ScheduleStart)
	assert.WithinDuration(t, firstPoll, *ch.ScheduleStart, time.Second)
	require.NotNil(t, ch.LastWebhookCall)
	assert.WithinDuration(t, firstPoll, *ch.LastWebhookCall, time.Second)

	// Persisted timeline moved with the anchor
	entries, err := repos.Schedule.GetByChannelID(ctx, ch.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.WithinDuration(t, firstPoll, entries[0].ScheduledStart, time.Second)

	// Second poll must not move the anchor again
	secondPoll := firstPoll.Add(10 * time.Minute)
	require.NoError(t, coordinator.MaybeSyncOnFirstPoll(ctx, ch, secondPoll))

	updated, err := repos.Channels.GetByID(ctx, ch.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.ScheduleStart)
	assert.WithinDuration(t, firstPoll, *updated.ScheduleStart, time.Second)
	assert.True(t, updated.ScheduleSynced)
	require.NotNil(t, updated.LastWebhookCall)
	assert.WithinDuration(t, secondPoll, *updated.LastWebhookCall, time.Second)
}

func TestMaybeSyncOnFirstPoll_StaleSnapshotsSyncOnce(t *testing.T) {
	coordinator, scheduleService, repos, cleanup := setupTestSync(t)
	defer cleanup()

	ctx := context.Background()
	nominal := time.Date(2026, 5, 3, 9, 0, 0, 0, time.UTC)
	ch := createTestChannel(t, repos, &nominal)
	vod := createTestVOD(t, repos, "race", 15*60*1000)

	_, err := scheduleService.AddToSchedule(ctx, ch.ID, vod.ID, schedule.AddOptions{BackToBack: true})
	require.NoError(t, err)

	// Two polls can both read the channel before either has synced it.
	// Only the first may move the anchor.
	snapshotA, err := repos.Channels.GetByID(ctx, ch.ID)
	require.NoError(t, err)
	snapshotB, err := repos.Channels.GetByID(ctx, ch.ID)
	require.NoError(t, err)

	firstPoll := nominal.Add(time.Minute)
	secondPoll := nominal.Add(2 * time.Minute)
	require.NoError(t, coordinator.MaybeSyncOnFirstPoll(ctx, snapshotA, firstPoll))
	require.NoError(t, coordinator.MaybeSyncOnFirstPoll(ctx, snapshotB, secondPoll))

	updated, err := repos.Channels.GetByID(ctx, ch.ID)
	require.NoError(t, err)
	assert.True(t, updated.ScheduleSynced)
	require.NotNil(t, updated.ScheduleStart)
	assert.WithinDuration(t, firstPoll, *updated.ScheduleStart, time.Second)

	entries, err := repos.Schedule.GetByChannelID(ctx, ch.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.WithinDuration(t, firstPoll, entries[0].ScheduledStart, time.Second)
}

func TestMaybeSyncOnFirstPoll_NoNominalStart(t *testing.T) {
	coordinator, _, repos, cleanup := setupTestSync(t)
	defer cleanup()

	ctx := context.Background()
	ch := createTestChannel(t, repos, nil)

	pollAt := time.Now().UTC()
	require.NoError(t, coordinator.MaybeSyncOnFirstPoll(ctx, ch, pollAt))

	// No anchor to reconcile; the poll is only recorded
	assert.False(t, ch.ScheduleSynced)
	assert.Nil(t, ch.ScheduleStart)
	require.NotNil(t, ch.LastWebhookCall)
	assert.WithinDuration(t, pollAt, *ch.LastWebhookCall, time.Second)
}

func TestMaybeSyncOnFirstPoll_RearmedByAnchorMove(t *testing.T) {
	coordinator, scheduleService, repos, cleanup := setupTestSync(t)
	defer cleanup()

	ctx := context.Background()
	nominal := time.Date(2026, 5, 2, 8, 0, 0, 0, time.UTC)
	ch := createTestChannel(t, repos, &nominal)
	vod := createTestVOD(t, repos, "rearm", 10*60*1000)

	_, err := scheduleService.AddToSchedule(ctx, ch.ID, vod.ID, schedule.AddOptions{BackToBack: true})
	require.NoError(t, err)

	firstPoll := nominal.Add(time.Minute)
	require.NoError(t, coordinator.MaybeSyncOnFirstPoll(ctx, ch, firstPoll))
	assert.True(t, ch.ScheduleSynced)

	// Administrator moves the anchor, which re-arms the sync
	newStart := nominal.Add(48 * time.Hour)
	require.NoError(t, scheduleService.SetScheduleStart(ctx, ch.ID, newStart))

	rearmed, err := repos.Channels.GetByID(ctx, ch.ID)
	require.NoError(t, err)
	assert.False(t, rearmed.ScheduleSynced)

	nextPoll := newStart.Add(30 * time.Second)
	require.NoError(t, coordinator.MaybeSyncOnFirstPoll(ctx, rearmed, nextPoll))

	assert.True(t, rearmed.ScheduleSynced)
	require.NotNil(t, rearmed.ScheduleStart)
	assert.WithinDuration(t, nextPoll, *rearmed.ScheduleStart, time.Second)
}
