// Package config provides the defaults of the command line options. Defaults
// come from CACHESIM_* environment variables, which can be set in a dotenv
// file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// DefaultEnvFile is loaded when no env file is given and it exists.
const DefaultEnvFile = ".env"

// Environment variable names.
const (
	EnvRecord             = "CACHESIM_RECORD"
	EnvRecordBackend      = "CACHESIM_RECORD_BACKEND"
	EnvClickHouseAddr     = "CACHESIM_CLICKHOUSE_ADDR"
	EnvClickHouseDB       = "CACHESIM_CLICKHOUSE_DB"
	EnvClickHouseUser     = "CACHESIM_CLICKHOUSE_USER"
	EnvClickHousePassword = "CACHESIM_CLICKHOUSE_PASSWORD"
	EnvMonitor            = "CACHESIM_MONITOR"
	EnvMonitorPort        = "CACHESIM_MONITOR_PORT"
	EnvOpenBrowser        = "CACHESIM_OPEN_BROWSER"
	EnvVerbose            = "CACHESIM_VERBOSE"
)

// Recording backends.
const (
	BackendSQLite     = "sqlite"
	BackendClickHouse = "clickhouse"
)

// Config holds the defaults of the optional command line flags.
type Config struct {
	Record        string
	RecordBackend string

	ClickHouseAddr     string
	ClickHouseDB       string
	ClickHouseUser     string
	ClickHousePassword string

	Monitor     bool
	MonitorPort int
	OpenBrowser bool

	Verbose bool
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		RecordBackend:  BackendSQLite,
		ClickHouseAddr: "localhost:9000",
		ClickHouseDB:   "default",
		ClickHouseUser: "default",
	}
}

// Load reads envFile into the environment and builds the configuration from
// it. Variables already set in the environment win over the file. An empty
// envFile loads DefaultEnvFile if it exists.
func Load(envFile string) (Config, error) {
	if envFile == "" {
		_, err := os.Stat(DefaultEnvFile)
		if err == nil {
			envFile = DefaultEnvFile
		} else if !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: %w", err)
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return Config{}, fmt.Errorf("config: loading %s: %w", envFile, err)
		}
	}

	return FromEnv()
}

// FromEnv builds the configuration from the current environment.
func FromEnv() (Config, error) {
	c := Default()

	lookupString(EnvRecord, &c.Record)
	lookupString(EnvRecordBackend, &c.RecordBackend)
	lookupString(EnvClickHouseAddr, &c.ClickHouseAddr)
	lookupString(EnvClickHouseDB, &c.ClickHouseDB)
	lookupString(EnvClickHouseUser, &c.ClickHouseUser)
	lookupString(EnvClickHousePassword, &c.ClickHousePassword)

	for name, dst := range map[string]*bool{
		EnvMonitor:     &c.Monitor,
		EnvOpenBrowser: &c.OpenBrowser,
		EnvVerbose:     &c.Verbose,
	} {
		if err := lookupBool(name, dst); err != nil {
			return Config{}, err
		}
	}

	if err := lookupInt(EnvMonitorPort, &c.MonitorPort); err != nil {
		return Config{}, err
	}

	if err := c.Validate(); err != nil {
		return Config{}, err
	}

	return c, nil
}

// Validate checks the values that have a fixed set of choices.
func (c Config) Validate() error {
	switch c.RecordBackend {
	case BackendSQLite, BackendClickHouse:
	default:
		return fmt.Errorf("config: unknown record backend %q", c.RecordBackend)
	}

	if c.MonitorPort < 0 || c.MonitorPort > 65535 {
		return fmt.Errorf("config: invalid monitor port %d", c.MonitorPort)
	}

	return nil
}

func lookupString(name string, dst *string) {
	if v, ok := os.LookupEnv(name); ok {
		*dst = v
	}
}

func lookupBool(name string, dst *bool) error {
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return nil
	}

	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("config: %s: %w", name, err)
	}

	*dst = b

	return nil
}

func lookupInt(name string, dst *int) error {
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return nil
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("config: %s: %w", name, err)
	}

	*dst = n

	return nil
}
