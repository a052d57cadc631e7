package batch

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/emptyOVO/tripcount/batch/mysql_batch"
	"github.com/emptyOVO/tripcount/batch/redis_batch"
	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
)

// DBConfig defines MySQL connection parameters.
type DBConfig struct {
	Host     string            `json:"host"`
	Port     int               `json:"port"`
	User     string            `json:"user"`
	Password string            `json:"password"`
	Database string            `json:"database"`
	Params   map[string]string `json:"params"`
}

// driverConfig maps DBConfig onto the driver's own config. Timestamps are
// scanned as time.Time so the exporter can render them in the mapper layout.
func (c DBConfig) driverConfig() *mysql.Config {
	host := c.Host
	if host == "" {
		host = "127.0.0.1"
	}
	port := c.Port
	if port == 0 {
		port = 3306
	}
	cfg := mysql.NewConfig()
	cfg.User = c.User
	cfg.Passwd = c.Password
	cfg.Net = "tcp"
	cfg.Addr = host + ":" + strconv.Itoa(port)
	cfg.DBName = c.Database
	cfg.ParseTime = true
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	for k, v := range c.Params {
		cfg.Params[k] = v
	}
	return cfg
}

func (c DBConfig) dsn() string {
	return c.driverConfig().FormatDSN()
}

// OpenForApp opens and pings a MySQL connection.
func OpenForApp(ctx context.Context, cfg DBConfig) (*sql.DB, error) {
	if cfg.User == "" {
		return nil, fmt.Errorf("db user is required")
	}
	if cfg.Database == "" {
		return nil, fmt.Errorf("db database is required")
	}
	db, err := sql.Open("mysql", cfg.dsn())
	if err != nil {
		return nil, errors.Wrap(err, "open mysql")
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "ping mysql %s/%s", cfg.driverConfig().Addr, cfg.Database)
	}
	return db, nil
}

// Unified source/sink config aliases exposed by batch package.
type SourceConfig = mysql_batch.SourceConfig
type SinkConfig = mysql_batch.SinkConfig
type RedisConnConfig = redis_batch.ConnConfig
type RedisSourceConfig = redis_batch.SourceConfig
type RedisSinkConfig = redis_batch.SinkConfig

// PrepareConfig configures synthetic trip table generation for benchmarking.
type PrepareConfig struct {
	SourceTable string
	Rows        int64
	Stations    int64
}

func (c *PrepareConfig) withDefaults() {
	if c.SourceTable == "" {
		c.SourceTable = "trips"
	}
	if c.Rows <= 0 {
		c.Rows = 1000000
	}
	if c.Stations <= 0 {
		c.Stations = 500
	}
}

// ValidateConfig compares station popularity computed in SQL with a sink table.
type ValidateConfig struct {
	SourceTable string
	StartColumn string
	EndColumn   string
	TargetTable string
	TargetKey   string
	TargetVal   string
}

func (c *ValidateConfig) withDefaults() {
	if c.StartColumn == "" {
		c.StartColumn = "start_station_name"
	}
	if c.EndColumn == "" {
		c.EndColumn = "end_station_name"
	}
	if c.TargetKey == "" {
		c.TargetKey = "count_key"
	}
	if c.TargetVal == "" {
		c.TargetVal = "trip_count"
	}
}
