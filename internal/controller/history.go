package controller

// History is the SQL console's statement history, oldest first.
type History struct {
	entries []string
	limit   int
}

// NewHistory keeps at most limit entries (no limit when limit <= 0).
func NewHistory(limit int, entries ...string) *History {
	h := &History{limit: limit}
	for _, e := range entries {
		h.Push(e)
	}
	return h
}

// Push appends sql unless it repeats the last entry.
func (h *History) Push(sql string) {
	if n := len(h.entries); n > 0 && h.entries[n-1] == sql {
		return
	}
	h.entries = append(h.entries, sql)
	if h.limit > 0 && len(h.entries) > h.limit {
		h.entries = h.entries[len(h.entries)-h.limit:]
	}
}

func (h *History) Len() int          { return len(h.entries) }
func (h *History) At(i int) string   { return h.entries[i] }
func (h *History) Entries() []string { return append([]string(nil), h.entries...) }
