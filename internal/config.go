package internal

import (
	"fmt"
	"time"
)

const (
	DriverPostgres = "postgres"
	DriverBadger   = "badger"
)

type Config struct {
	Host           string `env:"HOST,default=0.0.0.0"`
	Port           int    `env:"PORT,default=8000"`
	GRPCHealthPort int    `env:"GRPC_HEALTH_PORT,default=8001"`
	LogLevel       string `env:"LOG_LEVEL,default=INFO"`

	StoreDriver        string `env:"STORE_DRIVER,default=postgres"`
	DatabaseURL        string `env:"DATABASE_URL"`
	MaxOpenConnections int    `env:"DB_MAX_OPEN_CONNECTIONS,default=10"`
	BadgerFilepath     string `env:"BADGER_FILEPATH,default=./data/badger"`
	NotifierBufferSize int    `env:"NOTIFIER_BUFFER_SIZE,default=1024"`
	MembershipSeedFile string `env:"MEMBERSHIP_SEED_FILE"`

	JWTSecret string `env:"JWT_SECRET,required=true"`

	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=100"`
	PresenceBufferSize   int           `env:"PRESENCE_BUFFER_SIZE,default=1024"`
	SSEPingInterval      time.Duration `env:"SSE_PING_INTERVAL,default=15s"`
	WSPingInterval       time.Duration `env:"WS_PING_INTERVAL,default=54s"`
	WSPongWait           time.Duration `env:"WS_PONG_WAIT,default=60s"`
	WSWriteWait          time.Duration `env:"WS_WRITE_WAIT,default=10s"`
	WSReadLimit          int64         `env:"WS_READ_LIMIT,default=524288"`

	BridgeMaxBackoff time.Duration `env:"BRIDGE_MAX_BACKOFF,default=30s"`
	RestartInterval  time.Duration `env:"RESTART_INTERVAL,default=1s"`
	MetricInterval   time.Duration `env:"METRIC_INTERVAL,default=10s"`
	ShutdownTimeout  time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
}

// Validate checks what struct tags cannot express.
func (c Config) Validate() error {
	switch c.StoreDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER=%s", DriverPostgres)
		}
		if c.MembershipSeedFile != "" {
			return fmt.Errorf("MEMBERSHIP_SEED_FILE only applies when STORE_DRIVER=%s", DriverBadger)
		}
	case DriverBadger:
		if c.BadgerFilepath == "" {
			return fmt.Errorf("BADGER_FILEPATH is required when STORE_DRIVER=%s", DriverBadger)
		}
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", DriverPostgres, DriverBadger, c.StoreDriver)
	}
	if c.WSPingInterval >= c.WSPongWait {
		return fmt.Errorf("WS_PING_INTERVAL (%s) must be shorter than WS_PONG_WAIT (%s)", c.WSPingInterval, c.WSPongWait)
	}
	if c.ConnectionBufferSize <= 0 {
		return fmt.Errorf("CONNECTION_BUFFER_SIZE must be positive, got %d", c.ConnectionBufferSize)
	}
	return nil
}
