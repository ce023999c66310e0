package pg

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/external"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/rds/rdsutils"
	"github.com/pkg/errors"

	//_ "github.com/jackc/pgx/v4/stdlib"
	_ "github.com/newrelic/go-agent/v3/integrations/nrpgx"

	"github.com/code-payments/collateral-server/pkg/config/env"
)

const (
	envConfigPrefix = "POSTGRES_"

	userConfigEnvName               = envConfigPrefix + "USER"
	hostConfigEnvName               = envConfigPrefix + "HOST"
	passwordConfigEnvName           = envConfigPrefix + "PASSWORD"
	portConfigEnvName               = envConfigPrefix + "PORT"
	dbNameConfigEnvName             = envConfigPrefix + "DB_NAME"
	maxOpenConnectionsConfigEnvName = envConfigPrefix + "MAX_OPEN_CONNECTIONS"
	maxIdleConnectionsConfigEnvName = envConfigPrefix + "MAX_IDLE_CONNECTIONS"
	useAwsIamConfigEnvName          = envConfigPrefix + "USE_AWS_IAM"

	defaultPort               = 5432
	defaultDbName             = "collateral"
	defaultMaxOpenConnections = 20
	defaultMaxIdleConnections = 5
)

type Config struct {
	User               string
	Host               string
	Password           string
	Port               int
	DbName             string
	MaxOpenConnections int
	MaxIdleConnections int

	// UseAwsIam authenticates with an RDS IAM token instead of Password
	UseAwsIam bool
}

// ConfigFromEnv reads the connection settings from POSTGRES_* environment
// variables.
func ConfigFromEnv(ctx context.Context) *Config {
	return &Config{
		User:               env.NewStringConfig(userConfigEnvName, "").Get(ctx),
		Host:               env.NewStringConfig(hostConfigEnvName, "").Get(ctx),
		Password:           env.NewStringConfig(passwordConfigEnvName, "").Get(ctx),
		Port:               int(env.NewInt64Config(portConfigEnvName, defaultPort).Get(ctx)),
		DbName:             env.NewStringConfig(dbNameConfigEnvName, defaultDbName).Get(ctx),
		MaxOpenConnections: int(env.NewInt64Config(maxOpenConnectionsConfigEnvName, defaultMaxOpenConnections).Get(ctx)),
		MaxIdleConnections: int(env.NewInt64Config(maxIdleConnectionsConfigEnvName, defaultMaxIdleConnections).Get(ctx)),
		UseAwsIam:          env.NewBoolConfig(useAwsIamConfigEnvName, false).Get(ctx),
	}
}

// Validate checks the settings needed to connect. The password is never
// included in errors.
func (c *Config) Validate() error {
	if len(c.User) == 0 {
		return errors.Errorf("%s is required", userConfigEnvName)
	}
	if len(c.Host) == 0 {
		return errors.Errorf("%s is required", hostConfigEnvName)
	}
	if c.Port <= 0 {
		return errors.Errorf("%s must be positive", portConfigEnvName)
	}
	if len(c.DbName) == 0 {
		return errors.Errorf("%s is required", dbNameConfigEnvName)
	}
	if !c.UseAwsIam && len(c.Password) == 0 {
		return errors.Errorf("%s is required without %s", passwordConfigEnvName, useAwsIamConfigEnvName)
	}
	return nil
}

// NewFromConfig opens a connection pool using IAM or password authentication
// as configured.
func NewFromConfig(c *Config) (*sql.DB, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	port := strconv.Itoa(c.Port)

	var db *sql.DB
	var err error
	if c.UseAwsIam {
		awsConfig, err := external.LoadDefaultAWSConfig()
		if err != nil {
			return nil, errors.Wrap(err, "failed to load aws config")
		}
		db, err = NewWithAwsIam(c.User, c.Host, port, c.DbName, awsConfig)
		if err != nil {
			return nil, err
		}
	} else {
		db, err = NewWithUsernameAndPassword(c.User, c.Password, c.Host, port, c.DbName)
		if err != nil {
			return nil, err
		}
	}

	if c.MaxOpenConnections > 0 {
		db.SetMaxOpenConns(c.MaxOpenConnections)
	}
	if c.MaxIdleConnections > 0 {
		db.SetMaxIdleConns(c.MaxIdleConnections)
	}
	return db, nil
}

// Get a DB connection pool using AWS IAM credentials
//
// https://docs.aws.amazon.com/AmazonRDS/latest/AuroraUserGuide/UsingWithRDS.IAMDBAuth.Connecting.Go.html
func NewWithAwsIam(username, hostname, port, dbname string, config aws.Config) (*sql.DB, error) {
	// IMPORTANT: Only Supported on provisioned Aurora RDS clusters (not on Aurora Serverless)

	// Create an RDS client so we can grab the credential provider from it
	rdsClient := rds.New(config)
	credentials := rdsClient.Credentials
	region := rdsClient.Region

	// Generate IAM auth token (so we don't have to use a username/password)
	endpoint := fmt.Sprintf("%s:%s", hostname, port)
	authToken, err := rdsutils.BuildAuthToken(endpoint, region, username, credentials)
	if err != nil {
		return nil, err
	}

	// Use token based authentication
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s",
		hostname, port, username, authToken, dbname,
	)

	return open(dsn)
}

// Get a DB connection pool using username/password credentials
func NewWithUsernameAndPassword(username, password, hostname, port, dbname string) (*sql.DB, error) {
	// IMPORTANT: Supported by Aurora Serverless clusters

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		username, password, hostname, port, dbname,
	)

	// TODO: enable SSL once the RDS certificate bundle is shipped with the image
	// (https://docs.aws.amazon.com/AmazonRDS/latest/AuroraUserGuide/AuroraPostgreSQL.Security.html)

	return open(dsn)
}

// open uses the New Relic instrumented pgx driver. Errors never include the
// dsn, which carries credentials.
func open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("nrpgx", dsn)
	if err != nil {
		return nil, errors.New("failed to open postgres connection pool")
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to ping postgres")
	}

	return db, nil
}
