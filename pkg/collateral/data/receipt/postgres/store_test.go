package postgres

import (
	"database/sql"
	"os"
	"testing"

	"github.com/ory/dockertest/v3"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/collateral-server/pkg/collateral/data/receipt"
	"github.com/code-payments/collateral-server/pkg/collateral/data/receipt/tests"

	postgrestest "github.com/code-payments/collateral-server/pkg/database/postgres/test"

	_ "github.com/jackc/pgx/v4/stdlib"
)

const (
	// Used for testing ONLY, the table and migrations are external to this repository
	tableCreate = `
		CREATE TABLE collateral__core_withdrawalreceipt (
			id UUID NOT NULL PRIMARY KEY,

			path TEXT NOT NULL,
			chain_id BIGINT NOT NULL,

			collateral TEXT NOT NULL,
			recipient TEXT NOT NULL,
			asset TEXT NOT NULL,
			amount NUMERIC(20, 0) NOT NULL,

			transaction_signature TEXT NULL,
			signature_record TEXT NULL,
			source_token_account TEXT NULL,
			destination_token_account TEXT NULL,

			status TEXT NOT NULL,
			error_kind TEXT NULL,

			created_at TIMESTAMP WITH TIME ZONE NOT NULL
		);
		CREATE INDEX collateral__core_withdrawalreceipt__collateral ON collateral__core_withdrawalreceipt (collateral, created_at);
	`

	// Used for testing ONLY, the table and migrations are external to this repository
	tableDestroy = `
		DROP TABLE collateral__core_withdrawalreceipt;
	`
)

var (
	testStore receipt.Store
	teardown  func()
)

func TestMain(m *testing.M) {
	log := logrus.StandardLogger()

	testPool, err := dockertest.NewPool("")
	if err != nil {
		log.WithError(err).Error("Error creating docker pool")
		os.Exit(1)
	}

	var cleanUpFunc func()
	db, cleanUpFunc, err := postgrestest.StartPostgresDB(testPool)
	if err != nil {
		log.WithError(err).Error("Error starting postgres image")
		os.Exit(1)
	}
	defer db.Close()

	if err := createTestTables(db); err != nil {
		log.WithError(err).Error("Error creating test tables")
		cleanUpFunc()
		os.Exit(1)
	}

	testStore = New(db)
	teardown = func() {
		if pc := recover(); pc != nil {
			cleanUpFunc()
			panic(pc)
		}

		if err := resetTestTables(db); err != nil {
			log.WithError(err).Error("Error resetting test tables")
			cleanUpFunc()
			os.Exit(1)
		}
	}

	code := m.Run()
	cleanUpFunc()
	os.Exit(code)
}

func TestReceiptPostgresStore(t *testing.T) {
	tests.RunTests(t, testStore, teardown)
}

func createTestTables(db *sql.DB) error {
	_, err := db.Exec(tableCreate)
	if err != nil {
		logrus.StandardLogger().WithError(err).Error("could not create test tables")
		return err
	}
	return nil
}

func resetTestTables(db *sql.DB) error {
	_, err := db.Exec(tableDestroy)
	if err != nil {
		logrus.StandardLogger().WithError(err).Error("could not drop test tables")
		return err
	}

	return createTestTables(db)
}
