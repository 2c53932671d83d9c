package audio

import (
	"context"
	"fmt"
	log "log/slog"
	"math"
	"os/exec"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"vira/internal/assistant"
)

const maxVolume = 150

var percentRe = regexp.MustCompile(`(\d+)\s*%`)

type sinkInput struct {
	ID     int
	Volume int
	App    string
}

type ramp struct {
	id       int
	from, to int
}

// Ducker lowers the volume of every PulseAudio sink input except the ones
// belonging to the applications named in self, and restores them later.
type Ducker struct {
	self  []string
	floor int
	pactl func(ctx context.Context, args ...string) ([]byte, error)

	mu     sync.Mutex
	ducked map[int]int // sink input -> volume before ducking
}

func NewDucker(self []string, floor int) *Ducker {
	return &Ducker{
		self:  slices.Clone(self),
		floor: clampVolume(floor),
		pactl: func(ctx context.Context, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, "pactl", args...).Output()
		},
	}
}

// Duck fades other streams to factor of their current volume, never below
// the floor. Calling Duck twice without Restore is a no-op.
func (d *Ducker) Duck(ctx context.Context, factor float64, fade time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ducked != nil {
		return nil
	}

	inputs, err := d.list(ctx)
	if err != nil {
		return err
	}

	d.ducked = make(map[int]int)
	var ramps []ramp
	for _, in := range inputs {
		to := max(int(math.Round(float64(in.Volume)*factor)), d.floor)
		d.ducked[in.ID] = in.Volume
		ramps = append(ramps, ramp{id: in.ID, from: in.Volume, to: clampVolume(to)})
	}

	return d.fade(ctx, ramps, fade)
}

// Restore fades ducked streams back to their original volume. Streams that
// appeared after Duck are left alone.
func (d *Ducker) Restore(ctx context.Context, fade time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ducked == nil {
		return nil
	}

	inputs, err := d.list(ctx)
	if err != nil {
		return err
	}

	var ramps []ramp
	for _, in := range inputs {
		if orig, ok := d.ducked[in.ID]; ok {
			ramps = append(ramps, ramp{id: in.ID, from: in.Volume, to: orig})
		}
	}
	d.ducked = nil

	return d.fade(ctx, ramps, fade)
}

func (d *Ducker) list(ctx context.Context) ([]sinkInput, error) {
	out, err := d.pactl(ctx, "list", "sink-inputs")
	if err != nil {
		return nil, fmt.Errorf("pactl list sink-inputs: %w", err)
	}

	var others []sinkInput
	for _, in := range parseSinkInputs(string(out)) {
		if !slices.Contains(d.self, in.App) {
			others = append(others, in)
		}
	}
	return others, nil
}

func (d *Ducker) fade(ctx context.Context, ramps []ramp, dur time.Duration) error {
	if len(ramps) == 0 {
		return nil
	}

	const step = 10 * time.Millisecond
	steps := max(int(dur/step), 1)
	if dur <= 0 {
		steps = 0
	}

	for i := 0; i <= steps; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		frac := 1.0
		if steps > 0 {
			frac = float64(i) / float64(steps)
		}

		for _, r := range ramps {
			v := int(math.Round(float64(r.from) + float64(r.to-r.from)*frac))
			if err := d.setVolume(ctx, r.id, v); err != nil {
				return err
			}
		}

		if i < steps {
			time.Sleep(dur / time.Duration(steps))
		}
	}

	return nil
}

func (d *Ducker) setVolume(ctx context.Context, id, percent int) error {
	arg := strconv.Itoa(clampVolume(percent)) + "%"
	if _, err := d.pactl(ctx, "set-sink-input-volume", strconv.Itoa(id), arg); err != nil {
		return fmt.Errorf("set volume of sink input %d: %w", id, err)
	}
	return nil
}

// parseSinkInputs reads the output of `pactl list sink-inputs`.
func parseSinkInputs(text string) []sinkInput {
	var res []sinkInput

	for _, block := range strings.Split(text, "Sink Input #")[1:] {
		head, body, ok := strings.Cut(block, "\n")
		if !ok {
			continue
		}

		id, err := strconv.Atoi(strings.TrimSpace(head))
		if err != nil {
			continue
		}

		in := sinkInput{ID: id}
		for _, line := range strings.Split(body, "\n") {
			line = strings.TrimSpace(line)

			switch {
			case strings.HasPrefix(line, "Volume:") && in.Volume == 0:
				if m := percentRe.FindStringSubmatch(line); m != nil {
					in.Volume, _ = strconv.Atoi(m[1])
				}
			case strings.HasPrefix(line, "application.name =") && in.App == "":
				// application.name = "Firefox"
				_, rest, _ := strings.Cut(line, "\"")
				in.App, _, _ = strings.Cut(rest, "\"")
			}
		}

		if in.Volume == 0 && in.App == "" {
			continue
		}
		res = append(res, in)
	}

	return res
}

func clampVolume(v int) int {
	return min(max(v, 0), maxVolume)
}

type duckingSpeaker struct {
	next   assistant.Speaker
	ducker *Ducker
	factor float64
	fade   time.Duration
	log    *log.Logger
}

// Ducked wraps a speaker so other audio is lowered while it talks. Ducking
// failures are logged and never prevent speaking.
func Ducked(next assistant.Speaker, d *Ducker, factor float64, fade time.Duration) assistant.Speaker {
	return &duckingSpeaker{
		next:   next,
		ducker: d,
		factor: factor,
		fade:   fade,
		log:    log.Default(),
	}
}

func (s *duckingSpeaker) Speak(ctx context.Context, text string) error {
	if err := s.ducker.Duck(ctx, s.factor, s.fade); err != nil {
		s.log.Warn("Failed to duck audio", "err", err)
	}
	defer func() {
		if err := s.ducker.Restore(context.WithoutCancel(ctx), s.fade); err != nil {
			s.log.Warn("Failed to restore audio", "err", err)
		}
	}()

	return s.next.Speak(ctx, text)
}
