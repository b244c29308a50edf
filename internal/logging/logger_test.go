package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInitDefaultsToInfoOnUnknownLevel(t *testing.T) {
	Init(Config{Level: "not-a-level", Format: "json"})
	assert.Equal(t, "info", Logger().GetLevel().String())
}

func TestNewRunContextAttachesDistinctRunIDs(t *testing.T) {
	Init(Config{Level: "debug", Format: "json"})

	ctx1 := NewRunContext(context.Background())
	ctx2 := NewRunContext(context.Background())

	assert.NotEmpty(t, RunID(ctx1))
	assert.NotEmpty(t, RunID(ctx2))
	assert.NotEqual(t, RunID(ctx1), RunID(ctx2))
}

func TestCtxFallsBackToGlobalLogger(t *testing.T) {
	Init(Config{Level: "info", Format: "json"})
	l := Ctx(context.Background())
	assert.Equal(t, Logger().GetLevel(), l.GetLevel())
}
