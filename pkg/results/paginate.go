package results

// DefaultPageSize is the fixed table page size used by the dashboard.
const DefaultPageSize = 25

// Page is one slice of a tabular projection. StartRow/EndRow are 1-based
// inclusive for human display; Index is zero-based.
type Page struct {
	Rows       [][]string
	Index      int
	PageSize   int
	TotalPages int
	TotalRows  int
	StartRow   int
	EndRow     int
}

// First reports whether this is the first page. Callers disable the
// "previous" affordance on it.
func (p Page) First() bool {
	return p.Index == 0
}

// Last reports whether this is the last page.
func (p Page) Last() bool {
	return p.Index >= p.TotalPages-1
}

// Paginate slices rows into the requested fixed-size page. The requested
// page index is clamped into range, never an error; zero rows still yield
// one (empty) page so "page 1 of 1" always holds.
func Paginate(rows [][]string, pageSize, requested int) Page {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	totalRows := len(rows)
	totalPages := (totalRows + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}

	if requested < 0 {
		requested = 0
	}
	if requested > totalPages-1 {
		requested = totalPages - 1
	}

	start := requested * pageSize
	end := start + pageSize
	if end > totalRows {
		end = totalRows
	}
	if start > totalRows {
		start = totalRows
	}

	p := Page{
		Rows:       rows[start:end],
		Index:      requested,
		PageSize:   pageSize,
		TotalPages: totalPages,
		TotalRows:  totalRows,
		StartRow:   start + 1,
		EndRow:     end,
	}
	if totalRows == 0 {
		p.StartRow = 0
		p.EndRow = 0
	}
	return p
}

// PaginationState tracks the current page for one displayed result set. It
// is owned by the calling context and reset whenever a new result replaces
// the displayed one; it is not safe for concurrent writers.
type PaginationState struct {
	page     int
	pageSize int
}

// NewPaginationState creates state starting at page zero.
func NewPaginationState(pageSize int) *PaginationState {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &PaginationState{pageSize: pageSize}
}

// Reset returns to page zero; call it when a new result set arrives.
func (s *PaginationState) Reset() {
	s.page = 0
}

// Next advances one page. Clamping happens at slice time, so overshooting is
// harmless.
func (s *PaginationState) Next() {
	s.page++
}

// Prev steps back one page, stopping at zero.
func (s *PaginationState) Prev() {
	if s.page > 0 {
		s.page--
	}
}

// Apply slices the table at the current position and syncs the state with
// the clamped index the slice actually landed on.
func (s *PaginationState) Apply(t *Table) Page {
	var rows [][]string
	if t != nil {
		rows = t.Rows
	}
	page := Paginate(rows, s.pageSize, s.page)
	s.page = page.Index
	return page
}
