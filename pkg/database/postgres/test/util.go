package test

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	_ "github.com/jackc/pgx/v4/stdlib" //nolint:revive

	"github.com/code-payments/collateral-server/pkg/retry"
	"github.com/code-payments/collateral-server/pkg/retry/backoff"
)

const (
	image        = "postgres"
	imageTag     = "14-alpine"
	expiry       = 2 * time.Minute
	pingAttempts = 60
	pingInterval = 500 * time.Millisecond

	user     = "collateral"
	password = "collateral-test"
	dbname   = "collateral"
)

// StartPostgresDB runs a disposable postgres container and returns a
// connection to it once it accepts pings. The returned func removes the
// container.
func StartPostgresDB(pool *dockertest.Pool) (*sql.DB, func(), error) {
	log := logrus.StandardLogger().WithField("method", "StartPostgresDB")

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
		return nil, func() {}, errors.Wrap(err, "failed to start postgres container")
	}

	cleanup := func() {
		if err := pool.Purge(resource); err != nil {
			log.WithError(err).Warn("failed to purge postgres container")
		}
	}

	// Expire never fails; it is a backstop for a test binary that is killed.
	_ = resource.Expire(uint(expiry.Seconds()))

	url := fmt.Sprintf(
		"postgres://%s:%s@%s/%s?sslmode=disable",
		user,
		password,
		resource.GetHostPort("5432/tcp"),
		dbname,
	)

	var db *sql.DB
	attempts, err := retry.Retry(
		func() error {
			if db == nil {
				db, err = sql.Open("pgx", url)
				if err != nil {
					return err
				}
			}
			return db.Ping()
		},
		retry.Limit(pingAttempts),
		retry.Backoff(backoff.Constant(pingInterval), pingInterval),
	)
	if err != nil {
		cleanup()
		return nil, func() {}, errors.Wrap(err, "postgres container never became available")
	}

	log.WithField("attempts", attempts).Debug("postgres container ready")
	return db, cleanup, nil
}
