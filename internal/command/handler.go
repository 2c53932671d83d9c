package command

import "fmt"

// Kind names one of the fixed handler behaviours.
type Kind string

const (
	KindStatic     Kind = "static"
	KindGreeting   Kind = "greeting"
	KindName       Kind = "name"
	KindTime       Kind = "time"
	KindDate       Kind = "date"
	KindJoke       Kind = "joke"
	KindHelp       Kind = "help"
	KindStop       Kind = "stop"
	KindCalculator Kind = "calculator"
	KindMusic      Kind = "music"
	KindWeather    Kind = "weather"
)

var knownKinds = map[Kind]struct{}{
	KindGreeting:   {},
	KindName:       {},
	KindTime:       {},
	KindDate:       {},
	KindJoke:       {},
	KindHelp:       {},
	KindStop:       {},
	KindCalculator: {},
	KindMusic:      {},
	KindWeather:    {},
}

// ParseKind maps an identifier such as "time" to its Kind.
// KindStatic is not parseable: static handlers carry their own text.
func ParseKind(s string) (Kind, bool) {
	k := Kind(s)
	_, ok := knownKinds[k]
	return k, ok
}

// Handler is bound to a phrase. Either Kind selects a built-in behaviour,
// or Kind is KindStatic and Text is returned verbatim.
type Handler struct {
	Kind Kind
	Text string
}

func Bind(k Kind) Handler { return Handler{Kind: k} }

func Static(text string) Handler { return Handler{Kind: KindStatic, Text: text} }

func (h Handler) String() string {
	if h.Kind == KindStatic {
		return fmt.Sprintf("static(%q)", h.Text)
	}
	return string(h.Kind)
}
