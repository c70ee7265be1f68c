package backend

import (
	"fmt"
	"strconv"

	"qboard/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	// The gateway identifies the operator by numeric id on every call, so a
	// non-numeric GATEWAY_USER_ID can never work against the remote backend.
	var gatewayUserID int64
	if appConfig.GatewayUserID != "" {
		id, err := strconv.ParseInt(appConfig.GatewayUserID, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("gateway user id %q is not numeric: %w", appConfig.GatewayUserID, err)
		}
		gatewayUserID = id
	}

	return Config{
		Type: backendType,

		// Remote gateway configuration
		GatewayBaseURL: appConfig.GatewayBaseURL,
		GatewayUserID:  gatewayUserID,
		GatewayTimeout: appConfig.GatewayTimeout,

		// SQLite configuration
		SQLiteDBPath: appConfig.SQLiteDBPath,
		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,

		// Memory backend seed files
		DataDirectory: appConfig.DataDirectory,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case RemoteBackend:
		if c.GatewayBaseURL == "" {
			return fmt.Errorf("gateway base URL is required for remote backend")
		}
		if c.GatewayUserID <= 0 {
			return fmt.Errorf("gateway user id is required for remote backend")
		}

	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
		// AMQP is optional, so we don't validate it

	case MemoryBackend:
		// Memory backend doesn't require additional validation
		// DataDirectory will default to "data" if empty
	}

	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{RemoteBackend, SQLiteBackend, MemoryBackend}
}
