package main

import (
	"context"
	"database/sql"
	"net/http"
	"net/url"
	"strings"
	"sync"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/collateral-server/pkg/app"
	"github.com/code-payments/collateral-server/pkg/collateral/data/receipt"
	receipt_memory_client "github.com/code-payments/collateral-server/pkg/collateral/data/receipt/memory"
	receipt_postgres_client "github.com/code-payments/collateral-server/pkg/collateral/data/receipt/postgres"
	"github.com/code-payments/collateral-server/pkg/collateral/server/web"
	"github.com/code-payments/collateral-server/pkg/collateral/withdrawal"
	pg "github.com/code-payments/collateral-server/pkg/database/postgres"
	"github.com/code-payments/collateral-server/pkg/metrics"
	"github.com/code-payments/collateral-server/pkg/solana"
)

type collateralApp struct {
	log  *logrus.Entry
	conf *conf

	db      *sql.DB
	handler http.Handler

	shutdownOnce sync.Once
	shutdownCh   chan struct{}
}

func newCollateralApp(configProvider ConfigProvider) *collateralApp {
	return &collateralApp{
		log:        logrus.StandardLogger().WithField("type", "collateral-server/app"),
		conf:       configProvider(),
		shutdownCh: make(chan struct{}),
	}
}

// Init implements app.App.Init
func (a *collateralApp) Init(_ app.Config, metricsProvider *newrelic.Application) error {
	ctx := metrics.NewContext(context.Background(), metricsProvider)

	client, err := newSolanaClient(ctx, a.conf)
	if err != nil {
		return err
	}

	executor, err := withdrawal.NewExecutor(ctx, client, withdrawal.WithEnvConfigs())
	if err != nil {
		return errors.Wrap(err, "failed to initialize withdrawal executor")
	}
	a.log.WithField("schema", executor.Schema().String()).Info("resolved collateral account schema")

	receipts, err := a.newReceiptStore(ctx)
	if err != nil {
		return err
	}

	server := web.NewWithdrawalServer(ctx, executor, receipts, web.WithEnvConfigs())
	a.handler = server.Router()
	return nil
}

// HTTPHandler implements app.App.HTTPHandler
func (a *collateralApp) HTTPHandler() http.Handler {
	return a.handler
}

// ShutdownChan implements app.App.ShutdownChan
func (a *collateralApp) ShutdownChan() <-chan struct{} {
	return a.shutdownCh
}

// Stop implements app.App.Stop
func (a *collateralApp) Stop() {
	a.shutdownOnce.Do(func() {
		close(a.shutdownCh)

		if a.db != nil {
			if err := a.db.Close(); err != nil {
				a.log.WithError(err).Warn("failed to close database")
			}
		}
	})
}

func (a *collateralApp) newReceiptStore(ctx context.Context) (receipt.Store, error) {
	switch kind := strings.ToLower(strings.TrimSpace(a.conf.receiptStore.Get(ctx))); kind {
	case receiptStoreMemory:
		a.log.Warn("using in memory receipt store, receipts will not survive a restart")
		return receipt_memory_client.New(), nil
	case receiptStorePostgres:
		db, err := pg.NewFromConfig(pg.ConfigFromEnv(ctx))
		if err != nil {
			return nil, errors.Wrap(err, "failed to connect to receipt database")
		}
		a.db = db
		return receipt_postgres_client.New(db), nil
	default:
		return nil, errors.Errorf("unsupported %s: %q", receiptStoreConfigEnvName, kind)
	}
}

// newSolanaClient requires an explicit http(s) endpoint. There is no default
// network.
func newSolanaClient(ctx context.Context, conf *conf) (solana.Client, error) {
	endpoint := strings.TrimSpace(conf.solanaRpcEndpoint.Get(ctx))

	err := validation.Validate(endpoint,
		validation.Required,
		validation.By(func(any) error {
			u, err := url.Parse(endpoint)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || len(u.Host) == 0 {
				return validation.NewError("validation_rpc_scheme", "must be an http or https url")
			}
			return nil
		}),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid %s", solanaRpcEndpointConfigEnvName)
	}

	return solana.New(endpoint), nil
}
