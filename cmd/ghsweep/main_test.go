package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ghsweep/ghsweep/internal/config"
)

func TestApplyCommonFlagsOverridesBatchSizesTogether(t *testing.T) {
	cfg := &config.Config{}
	cfg.Fetch.ContentBatchSize = 10
	cfg.Fetch.MetadataBatchSize = 20
	cfg.Fetch.HistoryBatchSize = 30

	applyCommonFlags(cfg, commonFlags{batchSize: 5})

	assert.Equal(t, 5, cfg.Fetch.ContentBatchSize)
	assert.Equal(t, 5, cfg.Fetch.MetadataBatchSize)
	assert.Equal(t, 5, cfg.Fetch.HistoryBatchSize)
}

func TestApplyCommonFlagsZeroBatchSizeLeavesDefaults(t *testing.T) {
	cfg := &config.Config{}
	cfg.Fetch.ContentBatchSize = 10

	applyCommonFlags(cfg, commonFlags{batchSize: 0})

	assert.Equal(t, 10, cfg.Fetch.ContentBatchSize)
}

func TestApplyCommonFlagsDBPathOnlySetWhenNonEmpty(t *testing.T) {
	cfg := &config.Config{}
	cfg.Store.DBPath = "default.db"

	applyCommonFlags(cfg, commonFlags{dbPath: ""})
	assert.Equal(t, "default.db", cfg.Store.DBPath)

	applyCommonFlags(cfg, commonFlags{dbPath: "override.db"})
	assert.Equal(t, "override.db", cfg.Store.DBPath)
}
