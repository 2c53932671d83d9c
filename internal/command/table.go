package command

import "strings"

// Entry is one phrase binding. Rank is the insertion position of the phrase
// and survives overwrites of the same phrase.
type Entry struct {
	Phrase  string
	Handler Handler
	Rank    int
}

// Table maps phrases to handlers. It is only written while being built.
type Table struct {
	entries []Entry
	index   map[string]int
}

func newTable() *Table {
	return &Table{index: make(map[string]int)}
}

func (t *Table) set(phrase string, h Handler) {
	phrase = normalize(phrase)
	if phrase == "" {
		return
	}

	if i, ok := t.index[phrase]; ok {
		t.entries[i].Handler = h
		return
	}

	t.index[phrase] = len(t.entries)
	t.entries = append(t.entries, Entry{
		Phrase:  phrase,
		Handler: h,
		Rank:    len(t.entries),
	})
}

func (t *Table) Len() int { return len(t.entries) }

func (t *Table) Lookup(phrase string) (Entry, bool) {
	i, ok := t.index[normalize(phrase)]
	if !ok {
		return Entry{}, false
	}
	return t.entries[i], true
}

// Phrases returns every phrase in insertion order.
func (t *Table) Phrases() []string {
	out := make([]string, len(t.entries))
	for i, e := range t.entries {
		out[i] = e.Phrase
	}
	return out
}

func (t *Table) Entries() []Entry {
	return append([]Entry(nil), t.entries...)
}

func normalize(s string) string {
	return strings.TrimSpace(strings.ToLower(s))
}
