// Package audioconv decodes audio files into the mono 16 kHz float32 PCM
// whisper expects. WAV, MP3 and Ogg (Vorbis or Opus) are supported.
package audioconv

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	popus "github.com/pekim/opus"
)

const TargetRate = 16000

var ErrUnsupported = errors.New("unsupported audio format")

type Options struct {
	// MaxSamples truncates the result; zero keeps everything.
	MaxSamples int
}

// pcm is decoded interleaved audio before normalisation.
type pcm struct {
	samples  []float32
	channels int
	rate     int
}

type decodeFunc func(io.ReadSeeker) (pcm, error)

// ConvertFile decodes the file at path. The format is picked from the
// extension, falling back to the file's magic bytes.
func ConvertFile(ctx context.Context, path string, opt Options) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	decoders, err := pickDecoders(f, strings.ToLower(filepath.Ext(path)))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	var errs []error
	for _, decode := range decoders {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}

		p, err := decode(f)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		return normalise(p, opt), nil
	}

	return nil, fmt.Errorf("decode %s: %w", path, errors.Join(errs...))
}

func pickDecoders(f io.ReadSeeker, ext string) ([]decodeFunc, error) {
	switch ext {
	case ".wav":
		return []decodeFunc{decodeWAV}, nil
	case ".mp3":
		return []decodeFunc{decodeMP3}, nil
	case ".ogg", ".oga", ".opus":
		return []decodeFunc{decodeVorbis, decodeOpus}, nil
	}

	magic, _ := bufio.NewReader(f).Peek(4)
	switch string(magic) {
	case "RIFF":
		return []decodeFunc{decodeWAV}, nil
	case "OggS":
		return []decodeFunc{decodeVorbis, decodeOpus}, nil
	case "ID3\x03", "ID3\x04":
		return []decodeFunc{decodeMP3}, nil
	}

	return nil, fmt.Errorf("%w %q", ErrUnsupported, ext)
}

func normalise(p pcm, opt Options) []float32 {
	x := downmix(p.samples, p.channels)
	x = resample(x, p.rate, TargetRate)
	if opt.MaxSamples > 0 && len(x) > opt.MaxSamples {
		x = x[:opt.MaxSamples]
	}
	return x
}

func decodeWAV(r io.ReadSeeker) (pcm, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return pcm{}, errors.New("invalid wav")
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return pcm{}, fmt.Errorf("read wav: %w", err)
	}
	if buf == nil || len(buf.Data) == 0 {
		return pcm{}, errors.New("empty wav")
	}

	depth := int(dec.BitDepth)
	if depth == 0 {
		depth = 16
	}

	p := pcm{samples: intsToFloat(buf.Data, depth), channels: 1, rate: 44100}
	if buf.Format != nil {
		p.channels = max(buf.Format.NumChannels, 1)
		if buf.Format.SampleRate > 0 {
			p.rate = buf.Format.SampleRate
		}
	}
	return p, nil
}

func decodeMP3(r io.ReadSeeker) (pcm, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return pcm{}, fmt.Errorf("mp3: %w", err)
	}

	raw, err := io.ReadAll(dec)
	if err != nil {
		return pcm{}, fmt.Errorf("mp3: %w", err)
	}

	ints := make([]int16, len(raw)/2)
	if err := binary.Read(bytes.NewReader(raw), binary.LittleEndian, ints); err != nil {
		return pcm{}, fmt.Errorf("mp3: %w", err)
	}

	rate := dec.SampleRate()
	if rate <= 0 {
		rate = 44100
	}

	// go-mp3 always produces 16-bit stereo.
	return pcm{samples: int16sToFloat(ints), channels: 2, rate: rate}, nil
}

func decodeVorbis(r io.ReadSeeker) (pcm, error) {
	samples, format, err := oggvorbis.ReadAll(r)
	if err != nil {
		return pcm{}, fmt.Errorf("vorbis: %w", err)
	}
	if format == nil || format.Channels <= 0 || format.SampleRate <= 0 {
		return pcm{}, errors.New("vorbis: invalid stream")
	}
	return pcm{samples: samples, channels: format.Channels, rate: format.SampleRate}, nil
}

func decodeOpus(r io.ReadSeeker) (pcm, error) {
	dec, err := popus.NewDecoder(r)
	if err != nil {
		return pcm{}, fmt.Errorf("opus: %w", err)
	}
	defer dec.Destroy()

	ch := max(dec.ChannelCount(), 1)

	var samples []float32
	buf := make([]int16, 48000*ch/2)
	for {
		n, err := dec.Read(buf) // n is per channel
		if n > 0 {
			samples = append(samples, int16sToFloat(buf[:n*ch])...)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return pcm{}, fmt.Errorf("opus: %w", err)
		}
	}

	// Opus always decodes at 48 kHz.
	return pcm{samples: samples, channels: ch, rate: 48000}, nil
}

func intsToFloat(data []int, bitDepth int) []float32 {
	out := make([]float32, len(data))
	scale := 1.0 / float64(int64(1)<<(bitDepth-1))
	for i, v := range data {
		out[i] = float32(min(max(float64(v)*scale, -1), 1))
	}
	return out
}

func int16sToFloat(data []int16) []float32 {
	out := make([]float32, len(data))
	for i, v := range data {
		out[i] = float32(v) / 32768
	}
	return out
}

// downmix averages interleaved frames into one channel.
func downmix(in []float32, channels int) []float32 {
	if channels <= 1 {
		return in
	}

	out := make([]float32, len(in)/channels)
	for i := range out {
		var sum float64
		for _, s := range in[i*channels : (i+1)*channels] {
			sum += float64(s)
		}
		out[i] = float32(sum / float64(channels))
	}
	return out
}

// resample converts between rates with linear interpolation.
func resample(in []float32, from, to int) []float32 {
	if from == to || len(in) == 0 {
		return in
	}

	ratio := float64(to) / float64(from)
	out := make([]float32, int(math.Ceil(float64(len(in))*ratio)))
	last := len(in) - 1

	for i := range out {
		src := float64(i) / ratio
		i0 := int(src)
		if i0 >= last {
			out[i] = in[last]
			continue
		}
		a := float32(src - float64(i0))
		out[i] = in[i0]*(1-a) + in[i0+1]*a
	}
	return out
}
