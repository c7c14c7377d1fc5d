package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDurationUnmarshalText(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("30s")))
	assert.Equal(t, 30*time.Second, d.Duration())
}

func TestDurationUnmarshalTextRejectsNegative(t *testing.T) {
	var d Duration
	err := d.UnmarshalText([]byte("-5s"))
	assert.Error(t, err)
}

func TestDurationMarshalText(t *testing.T) {
	d := Duration(5 * time.Minute)
	b, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "5m0s", string(b))
}
