package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPosition(t *testing.T) {
	i, err := position("3")
	require.NoError(t, err)
	assert.Equal(t, 2, i)

	for _, bad := range []string{"0", "-1", "x", ""} {
		_, err := position(bad)
		assert.Error(t, err, bad)
	}
}

func TestFieldListCoversEveryField(t *testing.T) {
	fields := fieldList()
	assert.Equal(t, "name", fields[0])
	assert.Equal(t, "preamble.CONTINUITY", fields[len(fields)-1])
	assert.Len(t, fields, 8)
}
