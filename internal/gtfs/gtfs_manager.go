package gtfs

import (
	"strings"
	"sync"
	"time"

	"peatus.ee/gtfsdb"
)

// Manager owns the imported feed and keeps it fresh.
type Manager struct {
	config      Config
	GtfsDB      *gtfsdb.Client
	isLocalFile bool

	staticMutex       sync.RWMutex
	staticUpdateMutex sync.Mutex

	lastUpdated time.Time
	isHealthy   bool

	shutdownChan chan struct{}
	shutdownOnce sync.Once
	wg           sync.WaitGroup
}

// InitGTFSManager imports the configured feed and starts the periodic
// refresh loop. Remote sources are re-fetched daily; a local file is
// imported once.
func InitGTFSManager(config Config) (*Manager, error) {
	isLocalFile := !strings.HasPrefix(config.GtfsURL, "http://") &&
		!strings.HasPrefix(config.GtfsURL, "https://")

	client, err := buildGtfsDB(config, isLocalFile, "")
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		config:       config,
		GtfsDB:       client,
		isLocalFile:  isLocalFile,
		lastUpdated:  time.Now(),
		isHealthy:    true,
		shutdownChan: make(chan struct{}),
	}

	manager.wg.Add(1)
	go manager.updateStaticGTFS()

	return manager, nil
}

// CurrentQueries returns the Queries bound to the active database, which
// changes when a feed update hot-swaps the file underneath.
func (manager *Manager) CurrentQueries() *gtfsdb.Queries {
	manager.staticMutex.RLock()
	defer manager.staticMutex.RUnlock()
	if manager.GtfsDB == nil {
		return nil
	}
	return manager.GtfsDB.Queries
}

func (manager *Manager) IsHealthy() bool {
	manager.staticMutex.RLock()
	defer manager.staticMutex.RUnlock()
	return manager.isHealthy
}

func (manager *Manager) LastUpdated() time.Time {
	manager.staticMutex.RLock()
	defer manager.staticMutex.RUnlock()
	return manager.lastUpdated
}

// Shutdown stops the refresh loop and closes the database. Safe to call
// more than once.
func (manager *Manager) Shutdown() {
	manager.shutdownOnce.Do(func() {
		close(manager.shutdownChan)
		manager.wg.Wait()

		manager.staticMutex.Lock()
		defer manager.staticMutex.Unlock()
		if manager.GtfsDB != nil {
			_ = manager.GtfsDB.Close()
			manager.GtfsDB = nil
		}
	})
}
