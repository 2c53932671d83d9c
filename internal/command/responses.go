package command

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"
)

const (
	MsgDidNotCatch = "I didn't catch that. Could you repeat?"
	MsgNotSure     = "I'm not sure how to respond to that. Say 'help' for a list of commands."
	MsgFailure     = "Sorry, something went wrong. Please try again."
	MsgGoodbye     = "Stopping the voice assistant. Goodbye!"
)

var jokes = []string{
	"Why don't scientists trust atoms? Because they make up everything!",
	"Did you hear about the mathematician who's afraid of negative numbers? He'll stop at nothing to avoid them!",
	"Why did the scarecrow win an award? Because he was outstanding in his field!",
	"I told my wife she was drawing her eyebrows too high. She looked surprised.",
	"What do you call a bear with no teeth? A gummy bear!",
	"Why don't eggs tell jokes? They'd crack each other up!",
	"What's the best thing about Switzerland? I don't know, but the flag is a big plus.",
	"How do you organize a space party? You planet!",
	"Why did the bicycle fall over? Because it was two tired!",
	"How does a penguin build its house? Igloos it together!",
}

var stubFeatures = map[Kind]string{
	KindCalculator: "Calculator functionality",
	KindMusic:      "Music playback",
	KindWeather:    "Weather forecast",
}

var errClockUnavailable = errors.New("clock unavailable")

// Responder produces the text for each handler kind. The random source is
// shared, so picks are serialized.
type Responder struct {
	name  string
	clock func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

func NewResponder(name string, rng *rand.Rand, clock func() time.Time) *Responder {
	return &Responder{name: name, rng: rng, clock: clock}
}

// Greetings lists every reply the greeting handler can produce.
func (r *Responder) Greetings() []string {
	return []string{
		"Hello! How can I help you today?",
		fmt.Sprintf("Hi there! I'm %s, your voice assistant.", r.name),
		"Hey! What can I do for you?",
		"Greetings! How may I assist you today?",
	}
}

func Jokes() []string { return append([]string(nil), jokes...) }

func (r *Responder) Respond(h Handler) (string, error) {
	switch h.Kind {
	case KindStatic:
		return h.Text, nil
	case KindGreeting:
		return r.pick(r.Greetings()), nil
	case KindName:
		return fmt.Sprintf("My name is %s. How can I help you?", r.name), nil
	case KindTime:
		now, err := r.now()
		if err != nil {
			return "", err
		}
		return "The current time is " + now.Format("03:04 PM"), nil
	case KindDate:
		now, err := r.now()
		if err != nil {
			return "", err
		}
		return "Today is " + now.Format("Monday, January 02, 2006"), nil
	case KindJoke:
		return r.pick(jokes), nil
	case KindHelp:
		return r.Help(), nil
	case KindStop:
		return MsgGoodbye, nil
	case KindCalculator, KindMusic, KindWeather:
		return stubFeatures[h.Kind] + " is available in the full version.", nil
	default:
		return "", fmt.Errorf("unknown handler kind %q", h.Kind)
	}
}

func (r *Responder) Help() string {
	return fmt.Sprintf(`I'm %s, your voice assistant.

Here are some example commands you can try:
- "Hello" or "Hi" for greetings
- "What time is it" for the current time
- "What day is it" for today's date
- "Tell me a joke" for a random joke
- "Weather" for weather information (requires setup)
- "Play music" for music playback (requires setup)
- "Calculate 2 plus 2" for simple calculations
- "Stop listening" or "Exit" to stop the assistant

Just speak naturally and I'll try to understand your request.`, r.name)
}

func (r *Responder) now() (time.Time, error) {
	if r.clock == nil {
		return time.Time{}, errClockUnavailable
	}
	now := r.clock()
	if now.IsZero() {
		return time.Time{}, errClockUnavailable
	}
	return now, nil
}

func (r *Responder) pick(list []string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return list[r.rng.IntN(len(list))]
}
