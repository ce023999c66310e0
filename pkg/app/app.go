package app

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	grpc_middleware "github.com/grpc-ecosystem/go-grpc-middleware"
	grpc_logrus "github.com/grpc-ecosystem/go-grpc-middleware/logging/logrus"
	grpc_recovery "github.com/grpc-ecosystem/go-grpc-middleware/recovery"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthgrpc "google.golang.org/grpc/health/grpc_health_v1"

	metrics_util "github.com/code-payments/collateral-server/pkg/metrics"
)

// App is a long lived application serving an HTTP API. It is initialized
// before the servers start and stopped after they have drained.
type App interface {
	// Init blocks until the application is ready to serve requests.
	Init(config Config, metricsProvider *newrelic.Application) error

	// HTTPHandler serves the application's API.
	HTTPHandler() http.Handler

	// ShutdownChan is closed when the application wants the process to exit.
	ShutdownChan() <-chan struct{}

	// Stop releases the application's resources. It must be idempotent.
	Stop()
}

var osSigCh = make(chan os.Signal, 1)

func init() {
	signal.Notify(osSigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGHUP)
}

// Run serves app until the process is signalled, a server stops, or the app
// shuts itself down.
func Run(app App, config BaseConfig, options ...Option) error {
	log := logrus.StandardLogger().WithField("type", "app")

	if config.AppName == "" {
		return errors.New("must specify an application name")
	}

	metricsProvider, err := newMetricsProvider(config)
	if err != nil {
		return err
	}
	configureLogger(config, metricsProvider)

	startDebugServer(log, config)

	ballast := allocateBallast(config)
	defer keepAlive(ballast)

	restartCh, stopRestarts, err := scheduleRestarts(config)
	if err != nil {
		return err
	}
	defer stopRestarts()

	tlsConfig, err := loadTLSConfig(config)
	if err != nil {
		return err
	}

	var opts opts
	for _, o := range options {
		o(&opts)
	}

	if err := app.Init(config.AppConfig, metricsProvider); err != nil {
		return errors.Wrap(err, "failed to initialize application")
	}

	servers, err := startServers(log, config, tlsConfig, opts.wrap(app.HTTPHandler(), metricsProvider))
	if err != nil {
		app.Stop()
		return err
	}

	select {
	case <-osSigCh:
		log.Info("interrupt received, shutting down")
	case <-servers.httpDone:
		log.Info("http server shutdown")
	case <-servers.healthDone:
		log.Info("health server shutdown")
	case <-restartCh:
		log.Info("scheduled restart")
	case <-app.ShutdownChan():
		log.Info("app shutdown")
	}

	return shutdown(log, config.ShutdownGracePeriod, servers, app)
}

func newMetricsProvider(config BaseConfig) (*newrelic.Application, error) {
	if config.NewRelicLicenseKey == "" {
		return nil, nil
	}

	nr, err := newrelic.NewApplication(
		newrelic.ConfigFromEnvironment(),
		newrelic.ConfigAppName(config.AppName),
		newrelic.ConfigLicense(config.NewRelicLicenseKey),
		newrelic.ConfigDistributedTracerEnabled(true),
		newrelic.ConfigAppLogForwardingEnabled(true),
	)
	if err != nil {
		return nil, errors.Wrap(err, "error connecting to new relic")
	}
	return nr, nil
}

type servers struct {
	http       *http.Server
	health     *grpc.Server
	status     *health.Server
	httpDone   chan struct{}
	healthDone chan struct{}
}

// startServers binds the API and health listeners before serving either, so
// a bad address fails Run instead of a background goroutine.
func startServers(log *logrus.Entry, config BaseConfig, tlsConfig *tls.Config, handler http.Handler) (*servers, error) {
	httpLis, err := net.Listen("tcp", config.ListenAddress)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to listen on %s", config.ListenAddress)
	}
	healthLis, err := net.Listen("tcp", config.HealthListenAddress)
	if err != nil {
		httpLis.Close()
		return nil, errors.Wrapf(err, "failed to listen on %s", config.HealthListenAddress)
	}

	s := &servers{
		http: &http.Server{
			Handler:      handler,
			TLSConfig:    tlsConfig,
			ReadTimeout:  config.HTTPReadTimeout,
			WriteTimeout: config.HTTPWriteTimeout,
		},
		health: grpc.NewServer(grpc_middleware.WithUnaryServerChain(
			grpc_logrus.UnaryServerInterceptor(log),
			grpc_recovery.UnaryServerInterceptor(),
		)),
		status:     health.NewServer(),
		httpDone:   make(chan struct{}),
		healthDone: make(chan struct{}),
	}
	healthgrpc.RegisterHealthServer(s.health, s.status)

	go func() {
		defer close(s.httpDone)

		var err error
		if tlsConfig != nil {
			err = s.http.ServeTLS(httpLis, "", "")
		} else {
			err = s.http.Serve(httpLis)
		}
		if err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("http serve stopped")
		}
	}()

	go func() {
		defer close(s.healthDone)

		if err := s.health.Serve(healthLis); err != nil {
			log.WithError(err).Error("health serve stopped")
		}
	}()

	return s, nil
}

// shutdown drains both servers and stops the app within gracePeriod. Every
// step is idempotent, so it runs the same whatever triggered it.
func shutdown(log *logrus.Entry, gracePeriod time.Duration, s *servers, app App) error {
	ctx, cancel := context.WithTimeout(context.Background(), gracePeriod)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)

		s.status.Shutdown()
		if err := s.http.Shutdown(ctx); err != nil {
			log.WithError(err).Warn("failed to drain http server")
		}
		s.health.GracefulStop()
		app.Stop()
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Errorf("failed to stop the application within %v", gracePeriod)
	}
}

func loadTLSConfig(config BaseConfig) (*tls.Config, error) {
	if config.TLSCertificate == "" {
		return nil, nil
	}
	if config.TLSKey == "" {
		return nil, errors.New("tls key must be provided if certificate is specified")
	}

	certBytes, err := LoadFile(config.TLSCertificate)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load tls certificate")
	}
	keyBytes, err := LoadFile(config.TLSKey)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load tls key")
	}

	cert, err := tls.X509KeyPair(certBytes, keyBytes)
	if err != nil {
		return nil, errors.Wrap(err, "invalid certificate/private key")
	}
	return &tls.Config{Certificates: []tls.Certificate{cert}}, nil
}

// configureLogger installs the redacting formatter. A nil provider still
// redacts, it just skips forwarding.
func configureLogger(config BaseConfig, metricsProvider *newrelic.Application) {
	logrus.SetFormatter(metrics_util.NewLogFormatter(metricsProvider, &logrus.JSONFormatter{}))
	logrus.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(strings.ToLower(config.LogLevel))
	if err != nil {
		logrus.StandardLogger().WithField("log_level", config.LogLevel).Warn("unknown log level, ignoring")
		return
	}
	logrus.SetLevel(level)
}
