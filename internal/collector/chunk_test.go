package collector

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghsweep/ghsweep/internal/apierror"
	"github.com/ghsweep/ghsweep/internal/config"
	"github.com/ghsweep/ghsweep/internal/store"
)

func testScanConfig() config.ScanConfig {
	return config.ScanConfig{
		InitialWidth: 100,
		MaxWidth:     10_000,
		MaxSize:      1 << 20,
		ComfortLow:   50,
		ComfortHigh:  500,
		Saturation:   1000,
	}
}

func TestAdaptAdvancesOnComfortableCount(t *testing.T) {
	cfg := testScanConfig()
	lo, width, state, err := adapt(cfg, 0, 100, 200)
	require.NoError(t, err)
	assert.Equal(t, int64(100), lo)
	assert.Equal(t, int64(100), width)
	assert.Equal(t, store.StateAdvanced, state)
}

func TestAdaptWidensOnLowCount(t *testing.T) {
	cfg := testScanConfig()
	lo, width, state, err := adapt(cfg, 100, 100, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(200), lo)
	assert.Equal(t, int64(200), width, "width must double on a comfortably low count")
	assert.Equal(t, store.StateWidened, state)
}

func TestAdaptWidenCapsAtMaxWidth(t *testing.T) {
	cfg := testScanConfig()
	cfg.MaxWidth = 150
	_, width, _, err := adapt(cfg, 0, 100, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(150), width)
}

func TestAdaptHoldsWidthJustBelowSaturation(t *testing.T) {
	cfg := testScanConfig()
	lo, width, state, err := adapt(cfg, 0, 100, 999)
	require.NoError(t, err)
	assert.Equal(t, int64(100), lo)
	assert.Equal(t, int64(100), width)
	assert.Equal(t, store.StateAdvanced, state)
}

func TestAdaptSplitsOnSaturationWithoutAdvancing(t *testing.T) {
	cfg := testScanConfig()
	lo, width, state, err := adapt(cfg, 400, 100, 1000)
	require.NoError(t, err)
	assert.Equal(t, int64(400), lo, "a saturated chunk must not advance lo")
	assert.Equal(t, int64(50), width)
	assert.Equal(t, store.StateSplit, state)
}

func TestAdaptIrreducibleAtMinimumWidth(t *testing.T) {
	cfg := testScanConfig()
	_, _, _, err := adapt(cfg, 400, 1, 1500)
	require.Error(t, err)

	var irr *apierror.Irreducible
	require.True(t, errors.As(err, &irr))
	assert.Equal(t, int64(400), irr.Size)
}

func TestClampHi(t *testing.T) {
	assert.Equal(t, int64(1000), clampHi(900, 200, 1000))
	assert.Equal(t, int64(1100), clampHi(900, 200, 10_000))
}
