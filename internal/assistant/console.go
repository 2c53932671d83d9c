package assistant

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

// LineListener reads typed utterances, one per line. The reader is drained
// on a background goroutine so Listen can honour ctx. Close releases that
// goroutine once it has a line nobody will consume; a goroutine blocked in
// Read returns with the reader.
type LineListener struct {
	once  sync.Once
	r     io.Reader
	lines chan string
	err   error

	done      chan struct{}
	closeOnce sync.Once
}

func NewLineListener(r io.Reader) *LineListener {
	return &LineListener{r: r, lines: make(chan string), done: make(chan struct{})}
}

func (l *LineListener) start() {
	go func() {
		defer close(l.lines)

		sc := bufio.NewScanner(l.r)
		for sc.Scan() {
			select {
			case l.lines <- sc.Text():
			case <-l.done:
				return
			}
		}
		l.err = sc.Err()
	}()
}

// Close stops delivering lines. Listen returns io.EOF afterwards.
func (l *LineListener) Close() error {
	l.closeOnce.Do(func() { close(l.done) })
	return nil
}

func (l *LineListener) Listen(ctx context.Context) (string, error) {
	l.once.Do(l.start)

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-l.done:
		return "", io.EOF
	case line, ok := <-l.lines:
		if !ok {
			if l.err != nil {
				return "", fmt.Errorf("read input: %w", l.err)
			}
			return "", io.EOF
		}
		return strings.TrimSpace(line), nil
	}
}

// WriterSpeaker prints replies as "<Name>: <text>" lines.
type WriterSpeaker struct {
	Name string

	mu sync.Mutex
	w  io.Writer
}

func NewWriterSpeaker(w io.Writer, name string) *WriterSpeaker {
	return &WriterSpeaker{Name: name, w: w}
}

func (s *WriterSpeaker) Speak(_ context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprintf(s.w, "%s: %s\n", s.Name, text)
	return err
}

// MultiSpeaker speaks through every speaker in order and joins their errors.
type MultiSpeaker []Speaker

func (m MultiSpeaker) Speak(ctx context.Context, text string) error {
	var errs []error
	for _, s := range m {
		if err := s.Speak(ctx, text); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
