// Package env provides configs read from environment variables.
package env

import (
	"context"
	"os"
	"strings"

	"github.com/code-payments/collateral-server/pkg/config"
	"github.com/code-payments/collateral-server/pkg/config/wrapper"
)

// variable is looked up on every Get, so values loaded from an env file
// after startup are observed.
type variable struct {
	name string
}

// NewConfig returns a raw config for the variable name, upper cased.
func NewConfig(name string) config.Config {
	return variable{name: strings.ToUpper(name)}
}

func (v variable) Get(_ context.Context) (interface{}, error) {
	val := os.Getenv(v.name)
	if val == "" {
		return nil, config.ErrNoValue
	}
	return []byte(val), nil
}

func (v variable) Shutdown() {}

func NewStringConfig(name string, defaultValue string) config.String {
	return wrapper.NewStringConfig(NewConfig(name), defaultValue)
}

func NewBoolConfig(name string, defaultValue bool) config.Bool {
	return wrapper.NewBoolConfig(NewConfig(name), defaultValue)
}

func NewUint64Config(name string, defaultValue uint64) config.Uint64 {
	return wrapper.NewUint64Config(NewConfig(name), defaultValue)
}

func NewFloat64Config(name string, defaultValue float64) config.Float64 {
	return wrapper.NewFloat64Config(NewConfig(name), defaultValue)
}

func NewInt64Config(name string, defaultValue int64) config.Int64 {
	return wrapper.NewInt64Config(NewConfig(name), defaultValue)
}
