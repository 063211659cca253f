package pg

import (
	"database/sql"
	"fmt"

	"github.com/pkg/errors"

	_ "github.com/jackc/pgx/v4/stdlib"
	_ "github.com/newrelic/go-agent/v3/integrations/nrpgx"
)

const (
	// Driver is the instrumented driver registered by nrpgx. Queries issued
	// with a New Relic transaction in their context are recorded as datastore
	// segments.
	Driver = "nrpgx"

	// UninstrumentedDriver is the plain pgx driver.
	UninstrumentedDriver = "pgx"
)

type Config struct {
	Driver             string
	User               string
	Host               string
	Password           string
	Port               int
	DbName             string
	MaxOpenConnections int
	MaxIdleConnections int
}

func (c *Config) dsn() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.User, c.Password, c.Host, c.Port, c.DbName,
	)
}

func (c *Config) driver() string {
	if c.Driver == "" {
		return Driver
	}
	return c.Driver
}

// NewWithUsernameAndPassword opens a connection pool using username/password
// credentials and verifies it with a ping. Driver defaults to nrpgx.
func NewWithUsernameAndPassword(config *Config) (*sql.DB, error) {
	db, err := sql.Open(config.driver(), config.dsn())
	if err != nil {
		return nil, errors.Wrap(err, "error opening connection pool")
	}

	if config.MaxOpenConnections > 0 {
		db.SetMaxOpenConns(config.MaxOpenConnections)
	}
	if config.MaxIdleConnections > 0 {
		db.SetMaxIdleConns(config.MaxIdleConnections)
	}

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "error pinging database")
	}

	return db, nil
}
