// Package history provides a bounded, persistent line editor history that
// several processes can share through one file.
package history

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
	"unicode"
)

// Unbounded is the default value of both limits.
const Unbounded = math.MaxInt

// AddOptions controls the filters applied when an entry is added
type AddOptions struct {
	// SkipEmpty drops entries that are empty or consist only of whitespace.
	SkipEmpty bool
	// SkipDup drops an entry equal to the current most recent entry.
	SkipDup bool
}

// DefaultAddOptions returns the filters used by Add
func DefaultAddOptions() AddOptions {
	return AddOptions{
		SkipEmpty: true,
		SkipDup:   true,
	}
}

// Option configures a History at construction time
type Option func(*History) error

// WithMaxSize limits the total encoded size of the held entries
func WithMaxSize(n int) Option {
	return func(h *History) error {
		if n < 0 {
			return fmt.Errorf("%w: max size %d is negative", ErrInvalidArgument, n)
		}
		h.maxSize = n
		return nil
	}
}

// WithMaxEntries limits the number of held entries
func WithMaxEntries(n int) Option {
	return func(h *History) error {
		if n < 0 {
			return fmt.Errorf("%w: max entries %d is negative", ErrInvalidArgument, n)
		}
		h.maxEntries = n
		return nil
	}
}

// WithLogger sets the logger used for load and save diagnostics
func WithLogger(logger *slog.Logger) Option {
	return func(h *History) error {
		if logger != nil {
			h.logger = logger
		}
		return nil
	}
}

// entry is one held history record with its cached encoded size
type entry struct {
	text string
	size int
}

// listing memoises Contents. Only push may extend a valid listing in place;
// every other mutation goes through invalidate.
type listing struct {
	valid bool
	items []string
}

func (l *listing) invalidate() {
	l.valid = false
	l.items = nil
}

// History is a size and count bounded sequence of entries, oldest to newest.
// It is owned by a single goroutine; sharing between processes happens
// through Load and Save.
type History struct {
	// ring buffer of entries, oldest at head
	entries []entry
	head    int
	count   int

	fullSize   int
	maxSize    int
	maxEntries int

	// the oldCount oldest entries are known to be in the backing file
	oldCount int

	cache  listing
	logger *slog.Logger
}

// New creates a history holding the most recent suffix of backlog (given
// oldest first) that fits the configured limits.
func New(backlog []string, opts ...Option) (*History, error) {
	h := newHistory(Unbounded, Unbounded)
	for _, opt := range opts {
		if err := opt(h); err != nil {
			return nil, err
		}
	}

	filters := DefaultAddOptions()
	for _, text := range backlog[h.fittingSuffix(backlog):] {
		h.AddWith(text, filters)
	}

	return h, nil
}

// fittingSuffix walks backlog from the newest end and returns the index of
// the oldest entry that still fits both limits. Blanks and adjacent
// duplicates are not counted since adding them is a no-op.
func (h *History) fittingSuffix(backlog []string) int {
	start := len(backlog)
	count, size := 0, 0
	newer, counted := "", false
	for start > 0 {
		text := backlog[start-1]
		if isBlank(text) || (counted && text == newer) {
			start--
			continue
		}
		s := EntrySize(text)
		if count >= h.maxEntries || s > h.maxSize-size {
			break
		}
		count++
		size += s
		newer, counted = text, true
		start--
	}
	return start
}

func newHistory(maxSize, maxEntries int) *History {
	return &History{
		maxSize:    maxSize,
		maxEntries: maxEntries,
		logger:     slog.Default(),
	}
}

// Add appends entry as the most recent entry using the default filters.
// It reports whether the entry was kept.
func (h *History) Add(entry string) bool {
	return h.AddWith(entry, DefaultAddOptions())
}

// AddWith appends entry as the most recent entry. Oldest entries are evicted
// until the new one fits; an entry larger than MaxSize is dropped.
func (h *History) AddWith(text string, opts AddOptions) bool {
	return h.addSized(text, EntrySize(text), opts)
}

// addSized is the single insertion path. size must be the encoded size of text.
func (h *History) addSized(text string, size int, opts AddOptions) bool {
	if h.maxEntries == 0 || h.maxSize == 0 {
		return false
	}

	if opts.SkipEmpty && isBlank(text) {
		return false
	}

	if opts.SkipDup && h.count > 0 && h.at(h.count-1).text == text {
		return false
	}

	if size > h.maxSize {
		return false
	}

	if h.count >= h.maxEntries {
		h.evictOldest()
	}
	for !h.fits(size) {
		h.evictOldest()
	}

	h.push(entry{text: text, size: size})
	return true
}

// fits reports whether an entry of the given size can be added without
// exceeding MaxSize. Both operands are non-negative so the subtraction
// cannot overflow.
func (h *History) fits(size int) bool {
	return size >= 0 && size <= h.maxSize && h.fullSize <= h.maxSize-size
}

func (h *History) push(e entry) {
	if h.count == len(h.entries) {
		h.grow()
	}
	h.entries[(h.head+h.count)%len(h.entries)] = e
	h.count++
	h.fullSize += e.size

	if h.cache.valid {
		h.cache.items = append(h.cache.items, e.text)
	}
}

func (h *History) grow() {
	capacity := len(h.entries) * 2
	if capacity < 16 {
		capacity = 16
	}
	entries := make([]entry, capacity)
	for i := 0; i < h.count; i++ {
		entries[i] = h.at(i)
	}
	h.entries = entries
	h.head = 0
}

func (h *History) evictOldest() {
	if h.count == 0 {
		return
	}
	h.cache.invalidate()

	h.fullSize -= h.entries[h.head].size
	h.entries[h.head] = entry{}
	h.head = (h.head + 1) % len(h.entries)
	h.count--
	if h.oldCount > 0 {
		h.oldCount--
	}
}

// at returns the i-th entry counting from the oldest
func (h *History) at(i int) entry {
	return h.entries[(h.head+i)%len(h.entries)]
}

// Contents returns all entries, oldest first. The result is memoised until the
// next mutation and must not be modified by the caller.
func (h *History) Contents() []string {
	if !h.cache.valid {
		items := make([]string, h.count)
		for i := range items {
			items[i] = h.at(i).text
		}
		h.cache = listing{valid: true, items: items}
	}
	n := len(h.cache.items)
	return h.cache.items[:n:n]
}

// Newest returns up to n entries, most recent first
func (h *History) Newest(n int) []string {
	if n > h.count {
		n = h.count
	}
	if n <= 0 {
		return nil
	}

	result := make([]string, n)
	for i := range result {
		result[i] = h.at(h.count - 1 - i).text
	}
	return result
}

// Clear drops every entry
func (h *History) Clear() {
	h.cache.invalidate()
	h.entries = nil
	h.head = 0
	h.count = 0
	h.fullSize = 0
	h.oldCount = 0
}

// Size returns the encoded size of all held entries
func (h *History) Size() int {
	return h.fullSize
}

// Len returns the number of held entries
func (h *History) Len() int {
	return h.count
}

// OldCount returns how many of the oldest entries are already in the backing file
func (h *History) OldCount() int {
	return h.oldCount
}

// MaxSize returns the size limit
func (h *History) MaxSize() int {
	return h.maxSize
}

// MaxEntries returns the entry count limit
func (h *History) MaxEntries() int {
	return h.maxEntries
}

// SetOldCount marks the n oldest entries as already persisted
func (h *History) SetOldCount(n int) error {
	if n < 0 || n > h.count {
		return fmt.Errorf("%w: old count %d outside [0, %d]", ErrInvalidArgument, n, h.count)
	}
	h.oldCount = n
	return nil
}

// SetMaxSize changes the size limit, evicting oldest entries as needed
func (h *History) SetMaxSize(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: max size %d is negative", ErrInvalidArgument, n)
	}
	for h.fullSize > n {
		h.evictOldest()
	}
	h.maxSize = n
	return nil
}

// SetMaxEntries changes the entry count limit, evicting oldest entries as needed
func (h *History) SetMaxEntries(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: max entries %d is negative", ErrInvalidArgument, n)
	}
	for h.count > n {
		h.evictOldest()
	}
	h.maxEntries = n
	return nil
}

func isBlank(text string) bool {
	return strings.IndexFunc(text, func(r rune) bool { return !unicode.IsSpace(r) }) < 0
}
