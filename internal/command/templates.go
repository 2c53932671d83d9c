package command

import (
	"slices"
	"sort"
	"strings"
)

// Template generates phrases for one category: the literal Phrases first,
// then every Prefix × Suffix combination joined by single spaces (with
// Infix between them when set).
type Template struct {
	Kind     Kind
	Phrases  []string
	Prefixes []string
	Infix    string
	Suffixes []string
}

func (tpl Template) Expand() []string {
	out := make([]string, 0, len(tpl.Phrases)+len(tpl.Prefixes)*len(tpl.Suffixes))
	out = append(out, tpl.Phrases...)

	for _, prefix := range tpl.Prefixes {
		for _, suffix := range tpl.Suffixes {
			parts := []string{prefix}
			if tpl.Infix != "" {
				parts = append(parts, tpl.Infix)
			}
			parts = append(parts, suffix)
			out = append(out, strings.Join(parts, " "))
		}
	}

	return out
}

type Category struct {
	Name     string
	Template Template
}

type binding struct {
	phrase  string
	handler Handler
}

const (
	weatherSetupText = "I don't have access to weather data yet, but I can be configured to check the forecast."
	thanksText       = "You're welcome! Is there anything else I can help with?"
)

var baseCommands = []binding{
	{"hello", Bind(KindGreeting)},
	{"hi", Bind(KindGreeting)},
	{"hey", Bind(KindGreeting)},
	{"what is your name", Bind(KindName)},
	{"what time is it", Bind(KindTime)},
	{"what day is it", Bind(KindDate)},
	{"tell me a joke", Bind(KindJoke)},
	{"weather", Static(weatherSetupText)},
	{"thank you", Static(thanksText)},
	{"stop listening", Bind(KindStop)},
	{"exit", Bind(KindStop)},
	{"help", Bind(KindHelp)},
	{"what can you do", Bind(KindHelp)},
}

var askPrefixes = []string{"what's", "tell me", "what is", "do you know", "can you tell me"}

var categories = []Category{
	{"time", Template{
		Kind:     KindTime,
		Prefixes: askPrefixes,
		Suffixes: []string{"the time", "the current time", "what time it is", "the hour"},
	}},
	{"date", Template{
		Kind:     KindDate,
		Prefixes: askPrefixes,
		Suffixes: []string{"the date", "today's date", "what day it is", "the day", "today"},
	}},
	{"joke", Template{
		Kind:     KindJoke,
		Prefixes: []string{"tell", "say", "give", "share", "do you know"},
		Infix:    "me",
		Suffixes: []string{"a joke", "something funny", "a funny joke", "a good joke", "something humorous"},
	}},
	{"greeting", Template{
		Kind: KindGreeting,
		Phrases: []string{
			"hello there", "good morning", "good afternoon", "good evening",
			"hi there", "hey there", "greetings", "howdy", "what's up",
		},
	}},
	{"system", Template{
		Kind:    KindStop,
		Phrases: []string{"turn off", "shutdown", "go to sleep", "end program", "stop program", "terminate"},
	}},
	{"help", Template{
		Kind: KindHelp,
		Phrases: []string{
			"what commands", "show commands", "command list", "available commands",
			"what can I say", "command help", "instructions", "how to use",
		},
	}},
	{"calculator", Template{
		Kind:     KindCalculator,
		Prefixes: []string{"calculate", "compute", "what is", "solve", "evaluate"},
		Suffixes: []string{"2 plus 2", "5 minus 3", "4 times 6", "8 divided by 2", "square root of 16", "7 squared"},
	}},
	{"music", Template{
		Kind: KindMusic,
		Phrases: []string{
			"play music", "play some music", "start music", "next song",
			"previous song", "pause music", "stop music",
		},
	}},
	{"weather", Template{
		Kind: KindWeather,
		Phrases: []string{
			"what's the weather", "tell me the weather", "weather forecast",
			"is it going to rain", "temperature outside",
		},
	}},
}

// Categories returns the generated command categories in build order.
func Categories() []Category {
	out := make([]Category, len(categories))
	for i, c := range categories {
		c.Template.Phrases = slices.Clone(c.Template.Phrases)
		c.Template.Prefixes = slices.Clone(c.Template.Prefixes)
		c.Template.Suffixes = slices.Clone(c.Template.Suffixes)
		out[i] = c
	}
	return out
}

// Build produces the command table. Layers are applied base literals first,
// then generated categories, then override; a later layer wins when a phrase
// repeats. Override phrases are applied in sorted order so the result does
// not depend on map iteration.
func Build(override map[string]Handler) *Table {
	t := newTable()

	for _, b := range baseCommands {
		t.set(b.phrase, b.handler)
	}

	for _, c := range categories {
		h := Bind(c.Template.Kind)
		for _, phrase := range c.Template.Expand() {
			t.set(phrase, h)
		}
	}

	phrases := make([]string, 0, len(override))
	for phrase := range override {
		phrases = append(phrases, phrase)
	}
	sort.Strings(phrases)

	for _, phrase := range phrases {
		t.set(phrase, override[phrase])
	}

	return t
}
