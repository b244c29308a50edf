package collector

import (
	"github.com/ghsweep/ghsweep/internal/apierror"
	"github.com/ghsweep/ghsweep/internal/config"
	"github.com/ghsweep/ghsweep/internal/metrics"
	"github.com/ghsweep/ghsweep/internal/store"
)

// adapt implements the width-adaptation policy in isolation from any I/O
// so it can be exhaustively unit tested. Given
// the chunk [lo, lo+width) just scanned and its reported count, it returns
// the cursor position for the next chunk and the terminal state to record
// against this one.
//
// Saturation (count >= cfg.Saturation) never advances lo: the chunk is
// oversubscribed and must be re-scanned at half the width. If width is
// already at its floor of 1 byte, the scan cannot converge on this axis
// and adapt returns an Irreducible error naming the offending size.
func adapt(cfg config.ScanConfig, lo, width int64, count int) (nextLo, nextWidth int64, state store.ProgressState, err error) {
	switch {
	case count >= cfg.Saturation:
		if width <= 1 {
			return 0, 0, "", apierror.NewIrreducible(lo)
		}
		metrics.SaturationEvents.Inc()
		half := width / 2
		if half < 1 {
			half = 1
		}
		return lo, half, store.StateSplit, nil

	case count <= cfg.ComfortLow:
		doubled := width * 2
		if doubled > cfg.MaxWidth {
			doubled = cfg.MaxWidth
		}
		return lo + width, doubled, store.StateWidened, nil

	case count >= cfg.ComfortHigh:
		return lo + width, width, store.StateAdvanced, nil

	default:
		return lo + width, width, store.StateAdvanced, nil
	}
}

// clampHi bounds hi = lo+width so it never exceeds maxSize.
func clampHi(lo, width, maxSize int64) int64 {
	hi := lo + width
	if hi > maxSize {
		hi = maxSize
	}
	return hi
}
