package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"truckbrick/api/internal/brick"
)

const pickup = "red pickup, double cab, off-road tires"

func mediumParams() brick.BuildRequestParams {
	return brick.BuildRequestParams{
		Style:            brick.StyleLegoTechnic,
		TargetPieces:     1200,
		ScaleLabel:       "Medium (shelf display)",
		ScaleRatio:       "1:17–1:20",
		TruckDescription: pickup,
	}
}

func customParams(n int) brick.BuildRequestParams {
	return brick.BuildRequestParams{
		Style:            brick.StyleMouldKingTechnic,
		TargetPieces:     n,
		ScaleLabel:       "Custom",
		Custom:           true,
		TruckDescription: pickup,
	}
}

func TestBuild_FixedPreset(t *testing.T) {
	p, err := Build(mediumParams())
	require.NoError(t, err)

	assert.Contains(t, p, "1200 pieces")
	assert.Contains(t, p, "1:17–1:20")
	assert.Contains(t, p, pickup)
	assert.Contains(t, p, "Lego Technic")
	assert.Contains(t, p, "±20%")
	assert.NotContains(t, p, "Choose whatever scale")
}

func TestBuild_Custom(t *testing.T) {
	p, err := Build(customParams(3300))
	require.NoError(t, err)

	assert.Contains(t, p, "3300 pieces")
	assert.Contains(t, p, "Mould King Technic")
	for _, ratio := range []string{"1:24–1:28", "1:17–1:20", "1:12–1:14", "1:"} {
		assert.NotContains(t, p, ratio)
	}
}

func TestBuild_SectionsInOrder(t *testing.T) {
	p, err := Build(mediumParams())
	require.NoError(t, err)

	last := -1
	for _, h := range []string{"## Model Overview", "## Parts List", "## Step-by-Step Instructions", "## Build Tips"} {
		i := strings.Index(p, h)
		require.GreaterOrEqual(t, i, 0, h)
		assert.Greater(t, i, last, h)
		last = i
	}
	assert.Contains(t, p, "15-20")
	assert.Contains(t, p, "15-30")
	assert.Contains(t, p, "45x Technic Beam 11L - Black")
}

func TestBuild_Deterministic(t *testing.T) {
	for _, params := range []brick.BuildRequestParams{mediumParams(), customParams(800)} {
		a, err := Build(params)
		require.NoError(t, err)
		for i := 0; i < 5; i++ {
			b, err := Build(params)
			require.NoError(t, err)
			assert.Equal(t, a, b)
		}
	}
}

func TestBuild_RejectsBadInput(t *testing.T) {
	p := mediumParams()
	p.TruckDescription = "   "
	_, err := Build(p)
	assert.ErrorIs(t, err, brick.ErrConfiguration)
	assert.Equal(t, brick.StagePrompt, brick.StageOf(err))

	p = mediumParams()
	p.Style = "Duplo"
	_, err = Build(p)
	assert.ErrorIs(t, err, brick.ErrConfiguration)
}

func TestScaleTextAndRender(t *testing.T) {
	assert.Equal(t, "built from about 900 pieces", ScaleText(true, "Custom", "", 900))
	assert.Equal(t, "at 1:17–1:20 scale (Medium (shelf display))", ScaleText(false, "Medium (shelf display)", "1:17–1:20", 1200))

	r := Render(pickup, brick.StyleLegoTechnic, "at 1:17–1:20 scale (Medium (shelf display))")
	assert.Contains(t, r, pickup)
	assert.Contains(t, r, "1:17–1:20")
	assert.Contains(t, r, "Lego Technic")
}
