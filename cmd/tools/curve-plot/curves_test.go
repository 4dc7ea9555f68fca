package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/ambilight/internal/ambient/l1frames"
)

func TestGammaCurves(t *testing.T) {
	out := gammaCurves([]float64{1, 2.2})
	require.Len(t, out, 2)

	identity := out[0].Points
	require.Len(t, identity, 256)
	for _, pt := range identity {
		assert.Equal(t, pt.X, pt.Y)
	}

	dark := out[1].Points
	assert.Equal(t, 0.0, dark[0].Y)
	assert.Equal(t, 255.0, dark[255].Y)
	assert.Less(t, dark[128].Y, 128.0)
}

func TestNightLightCurves(t *testing.T) {
	out := nightLightCurves(l1frames.ColorRGB{R: 200, G: 200, B: 200})
	require.Len(t, out, 3)
	blue := out[2].Points
	require.Len(t, blue, 10)
	for i := 1; i < len(blue); i++ {
		assert.LessOrEqual(t, blue[i].Y, blue[i-1].Y, "blue falls with level")
	}
	assert.GreaterOrEqual(t, out[0].Points[9].Y, 200.0, "red is boosted on bright colours")
}

func TestEMAStepResponse(t *testing.T) {
	out, err := emaStepResponse([]float64{0.5}, 4)
	require.NoError(t, err)
	require.Len(t, out, 1)
	pts := out[0].Points
	assert.Equal(t, 0.0, pts[0].Y)
	assert.InDelta(t, 128, pts[1].Y, 1)
	assert.InDelta(t, 191, pts[2].Y, 1)
	assert.InDelta(t, 223, pts[3].Y, 1)

	_, err = emaStepResponse([]float64{1.5}, 4)
	assert.Error(t, err)
}

func TestSavePlot(t *testing.T) {
	file := filepath.Join(t.TempDir(), "gamma.png")
	require.NoError(t, savePlot(file, "Gamma", "in", "out", gammaCurves([]float64{2.2})))
	info, err := os.Stat(file)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}
