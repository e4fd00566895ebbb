package history

// Cursor steps through a history snapshot the way an input box recalls
// earlier queries: Prev moves toward older entries, Next back toward the
// newest. Position -1 means "not navigating".
type Cursor struct {
	entries []Entry
	pos     int
}

// NewCursor wraps a snapshot of history entries (newest first, as returned
// by Store.Entries).
func NewCursor(entries []Entry) *Cursor {
	return &Cursor{entries: entries, pos: -1}
}

// Prev moves to the next older entry and returns its query. The second
// return is false when there is nothing older.
func (c *Cursor) Prev() (string, bool) {
	if c.pos+1 >= len(c.entries) {
		return "", false
	}
	c.pos++
	return c.entries[c.pos].Query, true
}

// Next moves back toward the newest entry. Stepping past the newest entry
// resets the cursor and returns false, signalling the caller to restore
// whatever the user was typing.
func (c *Cursor) Next() (string, bool) {
	if c.pos <= 0 {
		c.pos = -1
		return "", false
	}
	c.pos--
	return c.entries[c.pos].Query, true
}

// Reset leaves navigation mode.
func (c *Cursor) Reset() {
	c.pos = -1
}

// Navigating reports whether the cursor is positioned on an entry.
func (c *Cursor) Navigating() bool {
	return c.pos >= 0
}
