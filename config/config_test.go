package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	opts := Default()
	assert.False(t, opts.Enabled())
	assert.False(t, opts.SafeRegion)
	assert.Equal(t, SeverityWarning, opts.FuncPtrMismatch)
	assert.Zero(t, opts.ErrorLimit)
}

func TestParse(t *testing.T) {
	data := []byte(`
nonnull_check: true
boundary_check: true
safe_region: true
error_limit: 20
funcptr_mismatch: error
`)
	opts, err := Parse("policy.yaml", data)
	require.NoError(t, err)
	assert.True(t, opts.Enabled())
	assert.True(t, opts.NonnullCheck)
	assert.True(t, opts.BoundaryCheck)
	assert.True(t, opts.SafeRegion)
	assert.False(t, opts.WarningsAsErrors)
	assert.Equal(t, 20, opts.ErrorLimit)
	assert.Equal(t, SeverityError, opts.FuncPtrMismatch)
}

func TestParseKeepsDefaults(t *testing.T) {
	opts, err := Parse("policy.yaml", []byte("nonnull_check: true\n"))
	require.NoError(t, err)
	assert.True(t, opts.NonnullCheck)
	assert.False(t, opts.BoundaryCheck)
	assert.Equal(t, SeverityWarning, opts.FuncPtrMismatch)

	opts, err = Parse("empty.yaml", nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), opts)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		code ErrorCode
	}{
		{"bad yaml", "nonnull_check: [", ErrCodeSyntax},
		{"wrong type", "boundary_check: yes please", ErrCodeSchema},
		{"unknown field", "bounds_check: true", ErrCodeSchema},
		{"negative limit", "error_limit: -1", ErrCodeSchema},
		{"bad severity", "funcptr_mismatch: fatal", ErrCodeSchema},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("policy.yaml", []byte(tt.data))
			require.Error(t, err)
			var ce *ConfigError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.code, ce.Code)
			assert.Equal(t, "policy.yaml", ce.Path)
			assert.Equal(t, tt.code == ErrCodeSchema, IsSchemaError(err))
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "safec.yaml")
	require.NoError(t, os.WriteFile(path, []byte("warnings_as_errors: true\n"), 0644))

	opts, err := Load(path)
	require.NoError(t, err)
	assert.True(t, opts.WarningsAsErrors)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	var ce *ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ErrCodeRead, ce.Code)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.False(t, IsSchemaError(err))
}
