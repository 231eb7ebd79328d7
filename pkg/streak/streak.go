// Package streak tracks the longest run of consecutive integers seen in a
// stream, with O(1) amortized inserts.
package streak

// Counter ingests integers one at a time and maintains the length of the
// longest consecutive run observed so far. Duplicates are ignored. Counter
// is not safe for concurrent use.
type Counter struct {
	// spans maps each seen number to the length of the consecutive span it
	// belongs to; only the boundary entries are kept accurate.
	spans   map[int]int
	longest int
}

// NewCounter returns an empty counter.
func NewCounter() *Counter {
	return &Counter{spans: make(map[int]int)}
}

// Add ingests n and returns the longest run length after the insert.
func (c *Counter) Add(n int) int {
	if _, seen := c.spans[n]; seen {
		return c.longest
	}
	left := c.spans[n-1]
	right := c.spans[n+1]
	length := left + right + 1
	c.spans[n] = length

	// Only the span boundaries need the updated length.
	c.spans[n-left] = length
	c.spans[n+right] = length

	if length > c.longest {
		c.longest = length
	}
	return c.longest
}

// Longest returns the longest consecutive run observed so far.
func (c *Counter) Longest() int {
	return c.longest
}
