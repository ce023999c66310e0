package wrapper

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/collateral-server/pkg/config"
	"github.com/code-payments/collateral-server/pkg/config/memory"
)

// testValueConfig walks a wrapper through default, override, error and
// unsupported source states.
func testValueConfig[T any](t *testing.T, wrap func(config.Config) config.Value[T], defaultValue, override T, raw []byte, parsed T, unsupported interface{}) {
	ctx := context.Background()
	mock := memory.NewConfig(nil)
	wrapper := wrap(mock)

	// Return the default value when no override is set
	val, err := wrapper.GetSafe(ctx)
	require.NoError(t, err)
	assert.Equal(t, defaultValue, val)
	assert.Equal(t, defaultValue, wrapper.Get(ctx))

	// The overriden value is returned when set
	mock.SetValue(override)
	val, err = wrapper.GetSafe(ctx)
	require.NoError(t, err)
	assert.Equal(t, override, val)

	// The last observed config value is returned on error
	mock.InduceErrors()
	val, err = wrapper.GetSafe(ctx)
	require.Error(t, err)
	assert.Equal(t, override, val)
	assert.Equal(t, override, wrapper.Get(ctx))

	// Raw environment bytes are parsed
	mock.StopInducingErrors()
	mock.SetValue(raw)
	val, err = wrapper.GetSafe(ctx)
	require.NoError(t, err)
	assert.Equal(t, parsed, val)

	// The default value is returned when the override no longer has a value
	mock.ClearValue()
	assert.Equal(t, defaultValue, wrapper.Get(ctx))

	// Return an unsupported source value type
	mock.SetValue(unsupported)
	val, err = wrapper.GetSafe(ctx)
	assert.Equal(t, ErrUnsuportedConversion, err)
	assert.Equal(t, defaultValue, val)

	wrapper.Shutdown()
	_, err = wrapper.GetSafe(ctx)
	assert.Equal(t, config.ErrShutdown, err)
}

func TestBoolConfig(t *testing.T) {
	testValueConfig(t, func(c config.Config) config.Bool { return NewBoolConfig(c, true) },
		true, false, []byte("true"), true, "true")
}

func TestInt64Config(t *testing.T) {
	testValueConfig(t, func(c config.Config) config.Int64 { return NewInt64Config(c, 5) },
		int64(5), int64(-10), []byte("42"), int64(42), "42")
}

func TestUint64Config(t *testing.T) {
	testValueConfig(t, func(c config.Config) config.Uint64 { return NewUint64Config(c, 5) },
		uint64(5), uint64(10), []byte("1024"), uint64(1024), int64(1))
}

func TestFloat64Config(t *testing.T) {
	testValueConfig(t, func(c config.Config) config.Float64 { return NewFloat64Config(c, 1.5) },
		1.5, 0.25, []byte("0.001"), 0.001, "0.5")
}

func TestStringConfig(t *testing.T) {
	testValueConfig(t, func(c config.Config) config.String { return NewStringConfig(c, "v2") },
		"v2", "v1", []byte("confirmed"), "confirmed", 1)
}

func TestDurationConfig(t *testing.T) {
	testValueConfig(t, func(c config.Config) config.Duration { return NewDurationConfig(c, time.Second) },
		time.Second, time.Minute, []byte("250ms"), 250*time.Millisecond, "1s")
}

func TestParseError(t *testing.T) {
	mock := memory.NewConfig([]byte("not a number"))
	wrapper := NewUint64Config(mock, 3)

	val, err := wrapper.GetSafe(context.Background())
	assert.Error(t, err)
	assert.EqualValues(t, 3, val)
}
