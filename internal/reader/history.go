package reader

// Entry is one reading: the record's "date time" key and its raw value
type Entry struct {
	Timestamp string
	Value     string
}

// History is a read-only, chronological snapshot of a parameter's readings
type History struct {
	entries []Entry
}

// Len returns the number of readings
func (h History) Len() int {
	return len(h.entries)
}

// Latest returns the most recent reading
func (h History) Latest() (Entry, bool) {
	if len(h.entries) == 0 {
		return Entry{}, false
	}
	return h.entries[len(h.entries)-1], true
}

// Entries returns a copy of the readings, oldest first
func (h History) Entries() []Entry {
	return append([]Entry(nil), h.entries...)
}

// history is the reader's mutable per-parameter store
type history struct {
	entries []Entry
}

// merge folds newest-first records into the history and evicts the
// least recently inserted entries beyond depth. Existing timestamps are
// overwritten in place and keep their position.
func (h *history) merge(newestFirst []Entry, depth int) {
	for i := len(newestFirst) - 1; i >= 0; i-- {
		e := newestFirst[i]
		if j := h.find(e.Timestamp); j >= 0 {
			h.entries[j].Value = e.Value
			continue
		}
		h.entries = append(h.entries, e)
	}

	if extra := len(h.entries) - depth; extra > 0 {
		h.entries = append(h.entries[:0:0], h.entries[extra:]...)
	}
}

func (h *history) find(ts string) int {
	for i := len(h.entries) - 1; i >= 0; i-- {
		if h.entries[i].Timestamp == ts {
			return i
		}
	}
	return -1
}

func (h *history) snapshot() History {
	return History{entries: append([]Entry(nil), h.entries...)}
}
