package app

import (
	"flag"
	"fmt"
	"strings"

	"github.com/conveyorci/conveyor/common/logger"
	"github.com/conveyorci/conveyor/server/services/encryption"
	"github.com/conveyorci/conveyor/server/store"
)

// LogSafeFlags is a list of flags by name whose values are safe to log.
var LogSafeFlags = []string{
	"database_driver",
	"database_max_connections",
	"log_levels",
}

type EncryptionConfig struct {
	// LocalKeyManagerMasterKey is the static master key the local key
	// manager wraps data keys with.
	LocalKeyManagerMasterKey *[32]byte
}

func KeyManagerFactory(config EncryptionConfig) (encryption.KeyManager, error) {
	if config.LocalKeyManagerMasterKey == nil {
		return nil, fmt.Errorf("error a master key must be configured")
	}
	return encryption.NewLocalKeyManager(config.LocalKeyManagerMasterKey), nil
}

type ServerConfig struct {
	DatabaseConfig   store.DatabaseConfig
	EncryptionConfig EncryptionConfig
	LogLevels        logger.LogLevelConfig
}

func ConfigFromFlags() (*ServerConfig, error) {
	var (
		databaseDriver      string
		databaseConnString  string
		databaseMaxConn     int
		encryptionMasterKey string
		logLevels           string
	)

	flag.StringVar(&databaseDriver, "database_driver", string(store.Sqlite),
		fmt.Sprintf("The database driver to use: %q or %q", store.Sqlite, store.Postgres))
	flag.StringVar(&databaseConnString, "database_connection_string", "file:conveyor-server.db?cache=shared",
		"The database connection string to use")
	flag.IntVar(&databaseMaxConn, "database_max_connections", store.DefaultDatabaseMaxIdleConnections,
		"The maximum number of database connections to open")
	flag.StringVar(&encryptionMasterKey, "encryption_master_key", "",
		"A 32-byte master key used to seal pipeline admin tokens at rest")
	flag.StringVar(&logLevels, "log_levels", "",
		"Logger levels, format 'logger-name=level,...' where level is one of trace, debug, info, warn, error, fatal, panic")
	flag.Parse()

	if len(encryptionMasterKey) != 32 {
		return nil, fmt.Errorf("error encryption_master_key must be exactly 32 bytes, got %d", len(encryptionMasterKey))
	}
	var masterKey [32]byte
	copy(masterKey[:], encryptionMasterKey)

	config := &ServerConfig{
		DatabaseConfig: store.DatabaseConfig{
			ConnectionString:   store.DatabaseConnectionString(databaseConnString),
			Driver:             store.DBDriver(strings.ToLower(databaseDriver)),
			MaxIdleConnections: databaseMaxConn,
			MaxOpenConnections: databaseMaxConn,
		},
		EncryptionConfig: EncryptionConfig{
			LocalKeyManagerMasterKey: &masterKey,
		},
		LogLevels: logger.LogLevelConfig(logLevels),
	}
	return config, nil
}
