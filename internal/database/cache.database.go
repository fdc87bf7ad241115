package database

import (
	"fmt"

	"pooltrack/config"

	"github.com/valkey-io/valkey-go"
)

// GENERAL_CACHE_INDEX (DB 0) holds the registry caches, currently the active
// technician list.
const GENERAL_CACHE_INDEX = 0

func (s *DB) initializeCacheDB(config config.Config) error {
	log := s.log.Function("initializeCacheDB")

	address := config.DatabaseCacheAddress
	port := config.DatabaseCachePort
	if address == "" || port == 0 {
		log.Info("cache database not configured, skipping")
		return nil
	}

	var cacheDB Cache

	var err error
	cacheDB.General, err = valkey.NewClient(
		valkey.ClientOption{
			InitAddress: []string{fmt.Sprintf("%s:%d", address, port)},
			SelectDB:    GENERAL_CACHE_INDEX,
		},
	)
	if err != nil {
		return log.Err("failed to create general valkey client", err)
	}

	s.Cache = cacheDB

	log.Info("cache database initialized", "address", address, "port", port)
	return nil
}
