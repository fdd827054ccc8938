package main

import (
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	photon "github.com/HamletTheHamster/photon-correlation"
	"github.com/HamletTheHamster/photon-correlation/exponential"
	"github.com/HamletTheHamster/photon-correlation/internal/config"
)

func testApp(t *testing.T) (*app, *bytes.Buffer) {
	var buf bytes.Buffer
	return &app{cfg: config.Default(), log: zap.NewNop(), out: &buf}, &buf
}

func writeInput(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func TestG3Command(t *testing.T) {
	a, out := testApp(t)
	file := writeInput(t, "g3", "0,1,-0.5,0.5,0,10,2,-0.5,0.5,0,10,4\n0,1,-0.5,0.5,0,10,2,0.5,1.5,0,10,3\n")

	require.NoError(t, a.g3(file))
	assert.Equal(t, "center: 4\ndiagonal: 3\noff-diagonal: 0\n", out.String())
}

func TestG2Command(t *testing.T) {
	t.Run("t3", func(t *testing.T) {
		a, out := testApp(t)
		file := writeInput(t, "g2", "0,1,-0.5,0.5,0,10,5\n0,1,0.5,1.5,0,10,2\n")

		require.NoError(t, a.g2(file, photon.T3, ""))
		assert.Contains(t, out.String(), "(0,1): center 5, side 2, ratio 2.5\n")
		assert.Contains(t, out.String(), "center/side: 2.5\n")
	})

	t.Run("t2", func(t *testing.T) {
		a, out := testApp(t)
		file := writeInput(t, "g2", "0,1,0,10,1\n1,0,0,10,2\n0,1,10,20,3\n1,0,10,20,4\n")

		require.NoError(t, a.g2(file, photon.T2, ""))
		assert.Equal(t, "0,10,3\n10,20,7\n", out.String())
	})
}

func TestIntensityCommand(t *testing.T) {
	a, out := testApp(t)
	a.cfg.Threshold = 0.5
	file := writeInput(t, "intensity", "0,1,1\n1,2,5\n2,3,9\n3,4,2\n")

	require.NoError(t, a.intensity(file, photon.T3, ""))
	assert.Equal(t, "1,2,5\n2,3,9\n", out.String())
}

func TestLifetimeCommand(t *testing.T) {
	var data strings.Builder
	for i := 0; i < 200; i++ {
		c := math.Round(1e4 * math.Exp(-float64(i)*16/800))
		data.WriteString("0," + strconv.Itoa(i*16) + "," + strconv.Itoa((i+1)*16) + "," + strconv.FormatFloat(c, 'f', -1, 64) + "\n")
	}
	file := writeInput(t, "g1", data.String())

	a, out := testApp(t)
	base := filepath.Join(t.TempDir(), "lifetime")
	a.cfg.Plot.Formats = []string{"svg"}
	require.NoError(t, a.lifetime(context.Background(), file, false, false, base))

	assert.Contains(t, out.String(), "lifetime: ")
	assert.Contains(t, out.String(), "term 0: lifetime ")
	_, err := os.Stat(base + ".svg")
	assert.NoError(t, err)
}

func TestLifetimeCommandWithoutCounts(t *testing.T) {
	file := writeInput(t, "g1", "0,0,16,0\n0,16,32,0\n0,32,48,0\n")

	a, out := testApp(t)
	require.NoError(t, a.lifetime(context.Background(), file, false, false, ""))
	assert.Equal(t, "lifetime: 0 +/- 0 ps\nmean arrival time: 0 ps\nno counts to fit\n", out.String())
}

func TestLifetimeCommandWithIRF(t *testing.T) {
	model := exponential.GaussianExponential{
		GaussianMagnitude: 1,
		Sigma:             50,
		Decay:             exponential.MultiExponential{{Magnitude: 1e7, Rate: 1e-3}},
	}
	var data strings.Builder
	for i := 0; i < 400; i++ {
		c := model.Eval((float64(i)+0.5)*16 - 800)
		data.WriteString("0," + strconv.Itoa(i*16) + "," + strconv.Itoa((i+1)*16) + "," + strconv.FormatFloat(c, 'g', -1, 64) + "\n")
	}
	file := writeInput(t, "g1", data.String())

	a, out := testApp(t)
	base := filepath.Join(t.TempDir(), "irf")
	a.cfg.Plot.Formats = []string{"png"}
	require.NoError(t, a.lifetime(context.Background(), file, false, true, base))

	assert.Contains(t, out.String(), "irf fit: gauss(")
	_, err := os.Stat(base + ".png")
	assert.NoError(t, err)
}
