package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/code-payments/collateral-server/pkg/config"
)

func TestConfig_States(t *testing.T) {
	ctx := context.Background()
	c := NewConfig(nil)

	for _, step := range []struct {
		name     string
		apply    func()
		expected interface{}
		err      error
	}{
		{name: "unset", apply: func() {}, err: config.ErrNoValue},
		{name: "set", apply: func() { c.SetValue("v1") }, expected: "v1"},
		{name: "induced errors win", apply: c.InduceErrors, err: errDeveloperInduced},
		{name: "errors stopped", apply: c.StopInducingErrors, expected: "v1"},
		{name: "cleared", apply: c.ClearValue, err: config.ErrNoValue},
		{name: "shutdown", apply: func() { c.Shutdown(); c.SetValue("v2") }, err: config.ErrShutdown},
	} {
		step.apply()

		val, err := c.Get(ctx)
		assert.Equal(t, step.err, err, step.name)
		assert.Equal(t, step.expected, val, step.name)
	}
}
