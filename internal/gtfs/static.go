package gtfs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"peatus.ee/gtfsdb"
	"peatus.ee/internal/logging"
)

func buildGtfsDB(config Config, isLocalFile bool, dbPath string) (*gtfsdb.Client, error) {
	// If no specific path is provided, use the one from config
	if dbPath == "" {
		dbPath = config.GTFSDataPath
	}
	dbConfig := gtfsdb.NewConfig(dbPath, config.Env, config.Verbose)
	client, err := gtfsdb.NewClient(dbConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create GTFS database client: %w", err)
	}

	ctx := context.Background()

	if isLocalFile {
		err = client.ImportFromFile(ctx, config.GtfsURL)
	} else {
		err = client.DownloadAndStore(ctx, config.GtfsURL, config.StaticAuthHeaderKey, config.StaticAuthHeaderValue)
	}

	if err != nil {
		if closeErr := client.Close(); closeErr != nil {
			logger := slog.Default().With(slog.String("component", "gtfs_db_builder"))
			logging.LogError(logger, "Failed to close GTFS DB after import failure", closeErr)
		}
		return nil, err
	}

	return client, nil
}

// updateStaticGTFS refreshes the feed on a regular schedule.
func (manager *Manager) updateStaticGTFS() {
	defer manager.wg.Done()

	logger := slog.Default().With(slog.String("component", "gtfs_static_updater"))

	// If it's a local file, don't update periodically
	if manager.isLocalFile {
		logging.LogOperation(logger, "gtfs_source_is_local_file_skipping_periodic_updates",
			slog.String("source", manager.config.GtfsURL))
		return
	}

	// Update every 24 hours
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			err := manager.ForceUpdate(ctx)
			cancel()

			if err != nil {
				logging.LogError(logger, "Error updating GTFS data", err,
					slog.String("source", manager.config.GtfsURL))
				continue
			}

		case <-manager.shutdownChan:
			logging.LogOperation(logger, "shutting_down_static_gtfs_updates")
			return
		}
	}
}

// ForceUpdate performs a mutex-protected hot swap of the GTFS database.
//
// The new feed is staged into a temporary SQLite database ("*.temp.db") and
// fully imported before any reader is paused. The swap itself acquires the
// write lock, closes the old database, renames the temp file over the active
// path, and re-opens it. If the update fails before the swap, the temp file
// is removed and the old data keeps serving; if the rename fails, the old
// database is re-opened.
func (manager *Manager) ForceUpdate(ctx context.Context) error {
	manager.staticUpdateMutex.Lock()
	defer manager.staticUpdateMutex.Unlock()

	logger := slog.Default().With(slog.String("component", "gtfs_updater"))

	finalDBPath := manager.config.GTFSDataPath
	tempDBPath := strings.TrimSuffix(finalDBPath, ".db") + ".temp.db"

	if err := os.Remove(tempDBPath); err != nil && !os.IsNotExist(err) {
		logging.LogError(logger, "Failed to remove existing temp DB", err)
	}

	newGtfsDB, err := buildGtfsDB(manager.config, manager.isLocalFile, tempDBPath)
	if err != nil {
		logging.LogError(logger, "Error building new GTFS DB", err)
		return err
	}

	if err := ctx.Err(); err != nil {
		if closeErr := newGtfsDB.Close(); closeErr != nil {
			logging.LogError(logger, "Failed to close new GTFS DB during cancellation cleanup", closeErr)
		}
		if removeErr := os.Remove(tempDBPath); removeErr != nil && !os.IsNotExist(removeErr) {
			logging.LogError(logger, "Failed to remove temp DB during cancellation cleanup", removeErr)
		}
		return err
	}

	if err := newGtfsDB.Close(); err != nil {
		logging.LogError(logger, "Error closing new GTFS DB", err)
		return err
	}

	manager.staticMutex.Lock()
	defer manager.staticMutex.Unlock()

	oldGtfsDB := manager.GtfsDB

	if oldGtfsDB != nil {
		if err := oldGtfsDB.Close(); err != nil {
			logging.LogError(logger, "Error closing old GTFS DB, did not swap DB", err)
			return err
		}
	}

	// Rename: finalDBPath is overwritten by tempDBPath
	if err := os.Rename(tempDBPath, finalDBPath); err != nil {
		logging.LogError(logger, "Error renaming temp DB to final DB", err)

		if removeErr := os.Remove(tempDBPath); removeErr != nil && !os.IsNotExist(removeErr) {
			logging.LogError(logger, "Failed to remove temp DB after rename failure", removeErr)
		}

		logging.LogOperation(logger, "attempting_recovery_reopening_old_db")

		dbConfig := gtfsdb.NewConfig(finalDBPath, manager.config.Env, manager.config.Verbose)
		if reopenedClient, reopenErr := gtfsdb.NewClient(dbConfig); reopenErr == nil {
			manager.GtfsDB = reopenedClient
			logging.LogOperation(logger, "recovery_successful_old_db_reopened")
		} else {
			logging.LogError(logger, "CRITICAL: Failed to recover old DB after rename failure", reopenErr)
			manager.GtfsDB = nil
			manager.isHealthy = false
		}

		return err
	}

	dbConfig := gtfsdb.NewConfig(finalDBPath, manager.config.Env, manager.config.Verbose)
	client, err := gtfsdb.NewClient(dbConfig)
	if err != nil {
		logging.LogError(logger, "CRITICAL: Failed to create new GTFS client after database swap", err,
			slog.String("db_path", finalDBPath))
		manager.GtfsDB = nil
		manager.isHealthy = false
		return fmt.Errorf("failed to update GTFS database client: %w", err)
	}

	manager.GtfsDB = client
	manager.lastUpdated = time.Now()
	manager.isHealthy = true

	logging.LogOperation(logger, "gtfs_static_data_updated_hot_swap",
		slog.String("source", manager.config.GtfsURL),
		slog.String("db_path", finalDBPath))

	return nil
}
