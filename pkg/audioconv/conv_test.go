package audioconv

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownmix(t *testing.T) {
	assert.Equal(t, []float32{0.5, -0.25}, downmix([]float32{1, 0, -0.5, 0}, 2))

	mono := []float32{0.1, 0.2}
	assert.Equal(t, mono, downmix(mono, 1))
}

func TestResample(t *testing.T) {
	in := []float32{0, 1, 2, 3, 4, 5}

	assert.InDeltaSlice(t, []float32{0, 3}, resample(in, 48000, 16000), 1e-6)
	assert.InDeltaSlice(t, []float32{0, 0.5, 1, 1.5, 2, 2.5, 3, 3.5, 4, 4.5, 5, 5}, resample(in, 8000, 16000), 1e-6)
	assert.Equal(t, in, resample(in, 16000, 16000))
	assert.Empty(t, resample(nil, 8000, 16000))
}

func TestIntsToFloat(t *testing.T) {
	assert.Equal(t, []float32{0, 0.5, -1, 1}, intsToFloat([]int{0, 16384, -32768, 40000}, 16))
	assert.Equal(t, []float32{-1, 0.5}, int16sToFloat([]int16{-32768, 16384}))
}

func writeWAV(t *testing.T, path string, rate, channels int, data []int) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	enc := wav.NewEncoder(f, rate, 16, channels, 1)
	require.NoError(t, enc.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: rate},
		Data:           data,
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
}

func TestConvertWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.wav")

	// 32 kHz stereo: every frame averages to 8192, then every other frame survives.
	var data []int
	for i := 0; i < 8; i++ {
		data = append(data, 16384, 0)
	}
	writeWAV(t, path, 32000, 2, data)

	got, err := ConvertFile(context.Background(), path, Options{})
	require.NoError(t, err)
	require.Len(t, got, 4)
	for _, s := range got {
		assert.InDelta(t, 0.25, s, 1e-6)
	}

	got, err = ConvertFile(context.Background(), path, Options{MaxSamples: 2})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestConvertSniffsWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.bin")
	writeWAV(t, path, 16000, 1, []int{0, 16384, 0, -16384})

	got, err := ConvertFile(context.Background(), path, Options{})
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0.5, 0, -0.5}, got)
}

func TestConvertUnsupported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello world"), 0o644))

	_, err := ConvertFile(context.Background(), path, Options{})
	require.ErrorIs(t, err, ErrUnsupported)
}

func TestConvertMissing(t *testing.T) {
	_, err := ConvertFile(context.Background(), filepath.Join(t.TempDir(), "none.wav"), Options{})
	require.ErrorIs(t, err, os.ErrNotExist)
}
