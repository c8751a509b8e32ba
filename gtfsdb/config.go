package gtfsdb

import "peatus.ee/internal/appconf"

const defaultBulkInsertBatchSize = 3000

// Config holds the settings for a Client.
type Config struct {
	DBPath              string
	Env                 appconf.Environment
	verbose             bool
	bulkInsertBatchSize int
}

// NewConfig creates a Config for the given database path and environment.
func NewConfig(dbPath string, env appconf.Environment, verbose bool) Config {
	return Config{
		DBPath:  dbPath,
		Env:     env,
		verbose: verbose,
	}
}

func (c Config) GetBulkInsertBatchSize() int {
	if c.bulkInsertBatchSize > 0 {
		return c.bulkInsertBatchSize
	}
	return defaultBulkInsertBatchSize
}
