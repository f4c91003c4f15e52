package scale

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"truckbrick/api/internal/brick"
)

func TestCatalog_ResolvePresets(t *testing.T) {
	c := NewCatalog()

	tests := []struct {
		name   string
		want   int
		ratio  string
		custom int
	}{
		{"small", 600, "1:24–1:28", 0},
		{"Medium (shelf display)", 1200, "1:17–1:20", 0},
		{"LARGE", 2500, "1:12–1:14", 0},
		// the custom count is ignored for fixed presets
		{"medium", 1200, "1:17–1:20", 4000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := c.Resolve(tt.name, tt.custom)
			require.NoError(t, err)
			assert.Equal(t, tt.want, r.Pieces)
			assert.Equal(t, tt.ratio, r.Preset.ScaleRatio)
			assert.False(t, r.Preset.IsCustom())
		})
	}
}

func TestCatalog_ResolveCustom(t *testing.T) {
	c := NewCatalog()

	r, err := c.Resolve("Custom", 1500)
	require.NoError(t, err)
	assert.True(t, r.Preset.IsCustom())
	assert.Equal(t, 1500, r.Pieces)
	assert.Empty(t, r.Preset.ScaleRatio)

	for _, n := range []int{MinCustomPieces, MaxCustomPieces} {
		_, err := c.Resolve(CustomKey, n)
		assert.NoError(t, err, n)
	}
	for _, n := range []int{0, 299, 5001, -1} {
		_, err := c.Resolve(CustomKey, n)
		assert.ErrorIs(t, err, brick.ErrConfiguration, n)
	}
}

func TestCatalog_UnknownPreset(t *testing.T) {
	_, err := NewCatalog().Resolve("jumbo", 0)
	assert.ErrorIs(t, err, brick.ErrConfiguration)
}

func TestCatalog_PresetsIsACopy(t *testing.T) {
	c := NewCatalog()
	ps := c.Presets()
	require.Len(t, ps, 4)
	ps[0].Label = "changed"
	assert.Equal(t, "Small (desk model)", c.Presets()[0].Label)
	assert.Equal(t, "medium", c.Default().Key)
}
