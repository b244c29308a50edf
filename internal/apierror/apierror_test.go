package apierror

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransientUnwraps(t *testing.T) {
	base := errors.New("boom")
	err := NewTransient(base, "30s")
	assert.True(t, errors.Is(err, base))
	assert.Contains(t, err.Error(), "30s")
}

func TestPermanentUnwraps(t *testing.T) {
	base := errors.New("not found")
	err := NewPermanent("owner/repo@ref:path", base)
	assert.True(t, errors.Is(err, base))
	assert.Contains(t, err.Error(), "owner/repo@ref:path")
}

func TestIrreducibleNamesSize(t *testing.T) {
	err := NewIrreducible(4096)
	assert.Contains(t, err.Error(), "4096")
}

func TestConfigurationIsDistinctType(t *testing.T) {
	err := NewConfiguration("missing token")
	var cfgErr *Configuration
	assert.True(t, errors.As(err, &cfgErr))
}
