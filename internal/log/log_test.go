package log_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/slok/cupload/internal/log"
)

func TestCtxWithValues(t *testing.T) {
	tests := map[string]struct {
		initial log.Kv
		add     log.Kv
		exp     log.Kv
	}{
		"Adding values to an empty context should store them.": {
			add: log.Kv{"task": "01"},
			exp: log.Kv{"task": "01"},
		},
		"Adding values should merge with the existing ones.": {
			initial: log.Kv{"batch": "b1", "task": "01"},
			add:     log.Kv{"task": "02"},
			exp:     log.Kv{"batch": "b1", "task": "02"},
		},
		"Adding nothing should keep the existing values.": {
			initial: log.Kv{"batch": "b1"},
			exp:     log.Kv{"batch": "b1"},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			ctx := log.CtxWithValues(context.Background(), test.initial)
			ctx = log.CtxWithValues(ctx, test.add)

			gotKv := log.ValuesFromCtx(ctx)
			if len(test.exp) == 0 {
				assert.Empty(t, gotKv)
				return
			}
			assert.Equal(t, test.exp, gotKv)
		})
	}
}

func TestNoopSetValuesOnCtx(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, ctx, log.Noop.SetValuesOnCtx(ctx, log.Kv{"a": 1}))
}
