package paginate

import "futures-monitor/internal/present"

const DefaultPageSize = 10

// Page is the visible slice of a table. Controls is false when everything
// fits on one page.
type Page struct {
	Rows     [][]string
	Current  int
	Total    int
	Controls bool
}

// State remembers the selected page per table key. The zero value is not
// usable; call NewState. It is owned by a single renderer and is not safe
// for concurrent use.
type State struct {
	pages map[string]int
}

func NewState() *State {
	return &State{pages: make(map[string]int)}
}

// Paginate slices table for display. A stored page beyond the last page,
// which happens when a table shrinks between refreshes, is clamped and the
// clamped value is stored back.
func (s *State) Paginate(table present.Table, size int) Page {
	if size <= 0 {
		size = DefaultPageSize
	}
	n := len(table.Rows)
	if n <= size {
		return Page{Rows: table.Rows, Current: 1, Total: 1}
	}
	total := (n + size - 1) / size
	page := clamp(s.pages[table.Key], total)
	s.pages[table.Key] = page
	start := (page - 1) * size
	end := start + size
	if end > n {
		end = n
	}
	return Page{Rows: table.Rows[start:end], Current: page, Total: total, Controls: true}
}

// Select stores a page choice for key. It is clamped on the next Paginate.
func (s *State) Select(key string, page int) {
	if page < 1 {
		page = 1
	}
	s.pages[key] = page
}

func (s *State) Next(key string, total int) {
	s.pages[key] = clamp(s.Current(key)+1, total)
}

func (s *State) Prev(key string, total int) {
	s.pages[key] = clamp(s.Current(key)-1, total)
}

// Current returns the stored page for key, 1 when none was stored.
func (s *State) Current(key string) int {
	if page, ok := s.pages[key]; ok && page >= 1 {
		return page
	}
	return 1
}

func clamp(page, total int) int {
	if total < 1 {
		total = 1
	}
	if page < 1 {
		return 1
	}
	if page > total {
		return total
	}
	return page
}
