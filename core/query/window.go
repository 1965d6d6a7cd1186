package query

// Window is a row range: skip Offset rows, then take at most Limit.
// Limit < 0 means unbounded.
type Window struct {
	Offset int
	Limit  int
}

// All is the unbounded window.
var All = Window{Limit: -1}

// Narrow applies a further slice relative to w. The result never extends
// beyond w.
func (w Window) Narrow(offset, limit int) Window {
	if offset < 0 {
		offset = 0
	}
	out := Window{Offset: w.Offset + offset, Limit: limit}
	if w.Limit >= 0 {
		remaining := w.Limit - offset
		if remaining < 0 {
			remaining = 0
		}
		if out.Limit < 0 || out.Limit > remaining {
			out.Limit = remaining
		}
	}
	return out
}

// Bounded reports whether w restricts rows at all.
func (w Window) Bounded() bool {
	return w.Offset > 0 || w.Limit >= 0
}
