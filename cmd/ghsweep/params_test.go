package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParamFlagsSetAccumulatesAcrossCalls(t *testing.T) {
	var p paramFlags
	require.NoError(t, p.Set("q=size:>1000"))
	require.NoError(t, p.Set("page=2"))

	assert.Equal(t, paramFlags{"q": "size:>1000", "page": "2"}, p)
}

func TestParamFlagsSetRejectsMissingEquals(t *testing.T) {
	var p paramFlags
	err := p.Set("not-a-kv-pair")
	assert.Error(t, err)
}

func TestParamFlagsSetAllowsEmptyValue(t *testing.T) {
	var p paramFlags
	require.NoError(t, p.Set("empty="))
	assert.Equal(t, "", p["empty"])
}

func TestParamFlagsStringOnNilIsEmpty(t *testing.T) {
	var p paramFlags
	assert.Equal(t, "", p.String())
}
