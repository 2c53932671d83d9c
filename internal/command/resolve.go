package command

import "strings"

type Source int

const (
	SourceNone Source = iota
	SourceEmpty
	SourceTable
	SourceKeyword
)

func (s Source) String() string {
	switch s {
	case SourceEmpty:
		return "empty"
	case SourceTable:
		return "table"
	case SourceKeyword:
		return "keyword"
	default:
		return "none"
	}
}

// Match is the outcome of resolving one utterance.
type Match struct {
	Source Source
	Entry  Entry // set for SourceTable
	Kind   Kind  // set for SourceTable and SourceKeyword
}

func (m Match) Handler() Handler {
	if m.Source == SourceTable {
		return m.Entry.Handler
	}
	return Bind(m.Kind)
}

// Checked in order when no phrase matches.
var keywordChain = []struct {
	kind  Kind
	words []string
}{
	{KindGreeting, []string{"hello", "hi", "hey", "greetings"}},
	{KindTime, []string{"time", "hour", "clock"}},
	{KindDate, []string{"date", "day", "today"}},
	{KindJoke, []string{"joke", "funny"}},
}

// Resolve finds the handler for utterance. A phrase matches when it occurs
// anywhere in the lowercased utterance. Among several matching phrases the
// longest wins, and among equally long ones the earliest inserted.
func Resolve(t *Table, utterance string) Match {
	u := normalize(utterance)
	if u == "" {
		return Match{Source: SourceEmpty}
	}

	best := -1
	for i, e := range t.entries {
		if !strings.Contains(u, e.Phrase) {
			continue
		}
		if best < 0 || len(e.Phrase) > len(t.entries[best].Phrase) {
			best = i
		}
	}

	if best >= 0 {
		e := t.entries[best]
		return Match{Source: SourceTable, Entry: e, Kind: e.Handler.Kind}
	}

	for _, link := range keywordChain {
		for _, w := range link.words {
			if strings.Contains(u, w) {
				return Match{Source: SourceKeyword, Kind: link.kind}
			}
		}
	}

	return Match{Source: SourceNone}
}
