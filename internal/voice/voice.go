// Package voice turns audio into utterances for an assistant session.
// Capture and recognition failures yield an empty utterance so the session
// simply listens again.
package voice

import (
	"context"
	"io"
	log "log/slog"
	"regexp"
	"strings"
	"sync"

	"vira/pkg/audioconv"
)

type Recorder interface {
	Record(ctx context.Context) ([]float32, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, pcm16k []float32) (string, error)
}

type Cue interface {
	Beep(ctx context.Context) error
}

type Option func(*options)

type options struct {
	log *log.Logger
	cue Cue
}

func WithLogger(l *log.Logger) Option { return func(o *options) { o.log = l } }

// WithCue plays c before each capture.
func WithCue(c Cue) Option { return func(o *options) { o.cue = c } }

func buildOptions(opts []Option) options {
	o := options{log: log.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// annotationRe matches the non-speech markers whisper emits, such as
// [BLANK_AUDIO] or (music).
var annotationRe = regexp.MustCompile(`\[[^\]]*\]|\([^)]*\)|\*[^*]*\*`)

func cleanTranscript(text string) string {
	return strings.Join(strings.Fields(annotationRe.ReplaceAllString(text, " ")), " ")
}

// MicListener records one utterance from the microphone per Listen call.
type MicListener struct {
	rec Recorder
	stt Transcriber
	options
}

func NewMicListener(rec Recorder, stt Transcriber, opts ...Option) *MicListener {
	return &MicListener{rec: rec, stt: stt, options: buildOptions(opts)}
}

func (m *MicListener) Listen(ctx context.Context) (string, error) {
	if m.cue != nil {
		if err := m.cue.Beep(ctx); err != nil && ctx.Err() == nil {
			m.log.Warn("Failed to play cue", "err", err)
		}
	}

	m.log.Info("Listening")

	pcm, err := m.rec.Record(ctx)
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if err != nil {
		m.log.Warn("Failed to record", "err", err)
		return "", nil
	}

	m.log.Debug("Recorded", "samples", len(pcm))

	return transcribe(ctx, m.stt, m.log, pcm)
}

// ClipListener yields the transcript of one audio file per Listen call and
// io.EOF after the last one.
type ClipListener struct {
	stt     Transcriber
	convert func(ctx context.Context, path string) ([]float32, error)
	options

	mu    sync.Mutex
	clips []string
}

func NewClipListener(clips []string, stt Transcriber, opts ...Option) *ClipListener {
	return &ClipListener{
		stt: stt,
		convert: func(ctx context.Context, path string) ([]float32, error) {
			return audioconv.ConvertFile(ctx, path, audioconv.Options{})
		},
		options: buildOptions(opts),
		clips:   append([]string(nil), clips...),
	}
}

func (c *ClipListener) Listen(ctx context.Context) (string, error) {
	c.mu.Lock()
	if len(c.clips) == 0 {
		c.mu.Unlock()
		return "", io.EOF
	}
	path := c.clips[0]
	c.clips = c.clips[1:]
	c.mu.Unlock()

	pcm, err := c.convert(ctx, path)
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if err != nil {
		c.log.Warn("Failed to decode clip", "clip", path, "err", err)
		return "", nil
	}

	return transcribe(ctx, c.stt, c.log.With("clip", path), pcm)
}

func transcribe(ctx context.Context, stt Transcriber, l *log.Logger, pcm []float32) (string, error) {
	text, err := stt.Transcribe(ctx, pcm)
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if err != nil {
		l.Warn("Failed to transcribe", "err", err)
		return "", nil
	}

	text = cleanTranscript(text)
	l.Info("Transcribed", "text", text)

	return text, nil
}
