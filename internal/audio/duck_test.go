package audio

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vira/internal/assistant"
)

const sinkInputs = `Sink Input #41
	Driver: protocol-native.c
	Volume: front-left: 52429 /  80% / -5.81 dB,   front-right: 52429 /  80% / -5.81 dB
	Properties:
		application.name = "Firefox"
Sink Input #57
	Driver: protocol-native.c
	Volume: front-left: 65536 / 100% / 0.00 dB,   front-right: 65536 / 100% / 0.00 dB
	Properties:
		application.name = "vira"
Sink Input #abc
	Volume: front-left: 65536 / 100% / 0.00 dB
`

// fakePulse answers `list` with a fixed listing and records volume changes.
type fakePulse struct {
	listing string
	sets    []string
	fail    bool
}

func (p *fakePulse) run(_ context.Context, args ...string) ([]byte, error) {
	if p.fail {
		return nil, errors.New("pactl: connection refused")
	}
	if args[0] == "list" {
		return []byte(p.listing), nil
	}
	p.sets = append(p.sets, strings.Join(args[1:], " "))
	return nil, nil
}

func newFakeDucker(p *fakePulse) *Ducker {
	d := NewDucker([]string{"vira"}, 10)
	d.pactl = p.run
	return d
}

func TestParseSinkInputs(t *testing.T) {
	got := parseSinkInputs(sinkInputs)

	assert.Equal(t, []sinkInput{
		{ID: 41, Volume: 80, App: "Firefox"},
		{ID: 57, Volume: 100, App: "vira"},
	}, got)
	assert.Empty(t, parseSinkInputs(""))
}

func TestDuckAndRestore(t *testing.T) {
	p := &fakePulse{listing: sinkInputs}
	d := newFakeDucker(p)
	ctx := context.Background()

	require.NoError(t, d.Duck(ctx, 0.25, 0))
	assert.Equal(t, []string{"41 20%"}, p.sets)

	require.NoError(t, d.Duck(ctx, 0.25, 0))
	assert.Len(t, p.sets, 1, "second duck is a no-op")

	p.listing = strings.Replace(sinkInputs, " 80% ", " 20% ", 2)
	require.NoError(t, d.Restore(ctx, 0))
	assert.Equal(t, []string{"41 20%", "41 80%"}, p.sets)

	require.NoError(t, d.Restore(ctx, 0))
	assert.Len(t, p.sets, 2, "restore without duck is a no-op")
}

func TestDuckRespectsFloor(t *testing.T) {
	p := &fakePulse{listing: sinkInputs}
	d := newFakeDucker(p)

	require.NoError(t, d.Duck(context.Background(), 0, 0))
	assert.Equal(t, []string{"41 10%"}, p.sets)
}

func TestDuckFadeSteps(t *testing.T) {
	p := &fakePulse{listing: sinkInputs}
	d := newFakeDucker(p)

	require.NoError(t, d.Duck(context.Background(), 0.5, 40*time.Millisecond))
	require.NotEmpty(t, p.sets)
	assert.Equal(t, "41 80%", p.sets[0])
	assert.Equal(t, "41 40%", p.sets[len(p.sets)-1])
}

func TestDuckedSpeaker(t *testing.T) {
	p := &fakePulse{listing: sinkInputs}
	d := newFakeDucker(p)

	var spoken []string
	inner := assistant.SpeakerFunc(func(_ context.Context, text string) error {
		spoken = append(spoken, text)
		assert.Equal(t, []string{"41 40%"}, p.sets, "ducked while speaking")
		return nil
	})

	require.NoError(t, Ducked(inner, d, 0.5, 0).Speak(context.Background(), "hello"))
	assert.Equal(t, []string{"hello"}, spoken)
	assert.Len(t, p.sets, 2)
}

func TestDuckedSpeakerIgnoresPulseFailure(t *testing.T) {
	d := newFakeDucker(&fakePulse{fail: true})

	called := false
	inner := assistant.SpeakerFunc(func(context.Context, string) error {
		called = true
		return nil
	})

	require.NoError(t, Ducked(inner, d, 0.5, 0).Speak(context.Background(), "hello"))
	assert.True(t, called)
}
