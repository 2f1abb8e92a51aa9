package config

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaultsWithNoFlagsOrFile(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, defaults(), cfg)
}

func TestLoadPrefersBoundFlagOverDefault(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Set("slice_budget", "42"))

	cfg, err := Load(fs)
	require.NoError(t, err)
	assert.Equal(t, 42, cfg.SliceBudget)
}

func TestValidateRejectsNonPositiveSizes(t *testing.T) {
	cfg := defaults()
	cfg.BlockSize = 0
	assert.Error(t, cfg.Validate())

	cfg = defaults()
	cfg.FlashSize = -1
	assert.Error(t, cfg.Validate())

	cfg = defaults()
	cfg.FlashPath = ""
	assert.Error(t, cfg.Validate())
}
