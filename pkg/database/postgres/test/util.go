package test

import (
	"database/sql"
	"strconv"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	pg "github.com/code-payments/code-escrow/pkg/database/postgres"
	"github.com/code-payments/code-escrow/pkg/retry"
	"github.com/code-payments/code-escrow/pkg/retry/backoff"
)

const (
	image     = "postgres"
	imageTag  = "15-alpine"
	expiresIn = 2 * time.Minute

	user     = "localtest"
	password = "localpassword"
	dbname   = "testdb"
)

// StartPostgresDB runs a throwaway postgres container and returns a connected
// pool. closeFunc removes the container.
func StartPostgresDB(pool *dockertest.Pool) (db *sql.DB, closeFunc func(), err error) {
	closeFunc = func() {}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: image,
		Tag:        imageTag,
		Env: []string{
			"POSTGRES_USER=" + user,
			"POSTGRES_PASSWORD=" + password,
			"POSTGRES_DB=" + dbname,
		},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		return nil, closeFunc, errors.Wrap(err, "failed to start postgres container")
	}

	closeFunc = func() {
		if err := pool.Purge(resource); err != nil {
			logrus.StandardLogger().WithError(err).Warn("failure purging postgres container")
		}
	}

	// Expire always returns nil. It bounds the container lifetime if the test
	// binary dies before closeFunc runs.
	_ = resource.Expire(uint(expiresIn.Seconds()))

	port, err := strconv.Atoi(resource.GetPort("5432/tcp"))
	if err != nil {
		closeFunc()
		return nil, func() {}, errors.Wrap(err, "invalid postgres port mapping")
	}

	config := &pg.Config{
		Driver:   pg.UninstrumentedDriver,
		User:     user,
		Password: password,
		Host:     resource.GetBoundIP("5432/tcp"),
		Port:     port,
		DbName:   dbname,
	}

	_, err = retry.Retry(
		func() error {
			db, err = pg.NewWithUsernameAndPassword(config)
			return err
		},
		retry.Limit(60),
		retry.Backoff(backoff.Constant(500*time.Millisecond), time.Second),
	)
	if err != nil {
		closeFunc()
		return nil, func() {}, errors.Wrap(err, "timed out waiting for postgres")
	}

	return db, closeFunc, nil
}
