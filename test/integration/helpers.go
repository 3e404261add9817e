//go:build integration
// +build integration

package integration

import (
	"context"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lumen-tv/lumen/internal/api"
	"github.com/lumen-tv/lumen/internal/channel"
	"github.com/lumen-tv/lumen/internal/db"
	"github.com/lumen-tv/lumen/internal/models"
	"github.com/lumen-tv/lumen/internal/playout"
	"github.com/lumen-tv/lumen/internal/schedule"
	"github.com/stretchr/testify/require"
)

// setupTestDB creates a temporary test database with migrations applied
func setupTestDB(t *testing.T) (*db.DB, *db.Repositories, func()) {
	t.Helper()

	database, err := db.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err, "Failed to create test database")

	sqlDB, err := database.GetSQLDB()
	require.NoError(t, err, "Failed to get SQL DB")

	// Get absolute path to migrations directory relative to this file
	// This ensures tests work regardless of working directory
	_, filename, _, ok := runtime.Caller(0)
	require.True(t, ok, "Failed to get current file path")

	testDir := filepath.Dir(filename)                     // test/integration
	rootDir := filepath.Dir(filepath.Dir(testDir))        // repo root
	migrationsDir := filepath.Join(rootDir, "migrations") // migrations
	migrationsPath := "file://" + migrationsDir

	err = db.RunMigrations(sqlDB, migrationsPath)
	require.NoError(t, err, "Failed to run migrations")

	repos := db.NewRepositories(database)

	cleanup := func() {
		database.Close()
	}

	return database, repos, cleanup
}

// testStack bundles the services wired the way the server wires them
type testStack struct {
	repos           *db.Repositories
	channelService  *channel.Service
	scheduleService *schedule.Service
	resolver        *playout.Resolver
	sync            *playout.SyncCoordinator
	router          *gin.Engine
}

// setupTestStack builds the full service stack and a router with every route
// registered, backed by an in-memory database
func setupTestStack(t *testing.T) (*testStack, func()) {
	t.Helper()

	database, repos, cleanup := setupTestDB(t)

	channelService := channel.NewService(repos)
	scheduleService := schedule.NewService(database, repos, nil)
	resolver := playout.NewResolver(repos, scheduleService, nil)
	syncCoordinator := playout.NewSyncCoordinator(repos, scheduleService)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(gin.Recovery())

	api.SetupWebhookRoutes(router, channelService, resolver, syncCoordinator, nil)

	apiGroup := router.Group("/api")
	api.SetupHealthRoutes(apiGroup, database)
	api.SetupChannelRoutes(apiGroup, channelService, scheduleService, resolver)
	api.SetupVODRoutes(apiGroup, repos)
	api.SetupScheduleRoutes(apiGroup, scheduleService)

	return &testStack{
		repos:           repos,
		channelService:  channelService,
		scheduleService: scheduleService,
		resolver:        resolver,
		sync:            syncCoordinator,
		router:          router,
	}, cleanup
}

// createTestVODInDB creates a VOD asset directly in the database
func createTestVODInDB(t *testing.T, repos *db.Repositories, title string, durationMs int64) *models.VOD {
	t.Helper()

	vod := models.NewVOD(title, "https://cdn.example.com/"+uuid.NewString()+"/master.m3u8", durationMs)
	require.NoError(t, repos.VODs.Create(context.Background(), vod))
	return vod
}

// createTestChannelInDB creates a channel directly in the database
func createTestChannelInDB(t *testing.T, repos *db.Repositories, name string, scheduleStart *time.Time) *models.Channel {
	t.Helper()

	ch := models.NewChannel(name, scheduleStart)
	require.NoError(t, repos.Channels.Create(context.Background(), ch))
	return ch
}
