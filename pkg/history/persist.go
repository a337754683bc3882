package history

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
)

// Inherit in SaveOptions limits means "use the live history's own limit".
const Inherit = -1

// DefaultFileMode is the permission used when Save creates a history file.
const DefaultFileMode os.FileMode = 0o600

// LoadOptions controls Load
type LoadOptions struct {
	SkipEmpty bool
	SkipDup   bool
	// OnCorruptLine is called with the 1-based line number of every line that
	// cannot be decoded. The line is skipped. Nil logs a warning.
	OnCorruptLine func(line int, err error)
}

// DefaultLoadOptions returns the options used by the line editor at startup
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{
		SkipEmpty: true,
		SkipDup:   true,
	}
}

// SaveOptions controls Save
type SaveOptions struct {
	// MaxSize and MaxEntries bound the written file. Inherit uses the
	// limits of the history being saved.
	MaxSize    int
	MaxEntries int
	SkipEmpty  bool
	SkipDup    bool
	// Append merges with the current file contents and, when nothing on disk
	// had to be evicted, only appends the new entries.
	Append bool
	Perm   os.FileMode
}

// DefaultSaveOptions returns merge-on-save options with inherited limits
func DefaultSaveOptions() SaveOptions {
	return SaveOptions{
		MaxSize:    Inherit,
		MaxEntries: Inherit,
		SkipEmpty:  true,
		SkipDup:    true,
		Append:     true,
		Perm:       DefaultFileMode,
	}
}

// Load reads entries from path under a shared lock and adds them as the most
// recent entries. Every loaded entry counts as old. A missing file is not an
// error.
func (h *History) Load(path string, opts LoadOptions) (err error) {
	h.oldCount = h.count

	if h.maxSize == 0 || h.maxEntries == 0 {
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("open history file %s: %w", path, err)
	}
	defer f.Close()

	unlock, err := lockFile(f, false)
	if err != nil {
		return fmt.Errorf("lock history file %s: %w", path, err)
	}
	defer func() {
		if unlockErr := unlock(); unlockErr != nil && err == nil {
			err = fmt.Errorf("unlock history file %s: %w", path, unlockErr)
		}
	}()

	onCorrupt := opts.OnCorruptLine
	if onCorrupt == nil {
		onCorrupt = func(line int, err error) {
			h.logger.Warn("skipping corrupt history line", "path", path, "line", line, "error", err)
		}
	}

	filters := AddOptions{SkipEmpty: opts.SkipEmpty, SkipDup: opts.SkipDup}
	reader := bufio.NewReader(f)
	lineNo, loaded := 0, 0
	for {
		line, readErr := reader.ReadString('\n')
		if len(line) > 0 {
			lineNo++
			text, size, decodeErr := Unescape(strings.TrimSuffix(line, "\n"))
			if decodeErr != nil {
				onCorrupt(lineNo, decodeErr)
			} else if h.addSized(text, size, filters) {
				h.oldCount = h.count
				loaded++
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return fmt.Errorf("read history file %s: %w", path, readErr)
		}
	}

	h.logger.Debug("loaded history", "path", path, "lines", lineNo, "loaded", loaded, "entries", h.count)
	return nil
}

// Save merges the entries added since the last Load or Save into the file at
// path under an exclusive lock. Entries written by other processes in the
// meantime are kept as long as the limits allow.
func (h *History) Save(path string, opts SaveOptions) (err error) {
	maxSize, err := resolveLimit(opts.MaxSize, h.maxSize, "max size")
	if err != nil {
		return err
	}
	maxEntries, err := resolveLimit(opts.MaxEntries, h.maxEntries, "max entries")
	if err != nil {
		return err
	}

	perm := opts.Perm
	if perm == 0 {
		perm = DefaultFileMode
	}

	saved := newHistory(maxSize, maxEntries)
	saved.logger = h.logger
	filters := AddOptions{SkipEmpty: opts.SkipEmpty, SkipDup: opts.SkipDup}

	if maxSize == 0 || maxEntries == 0 {
		if err := truncateLocked(path, perm); err != nil {
			return err
		}
		h.oldCount = h.count
		return nil
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, perm)
	if err != nil {
		return fmt.Errorf("open history file %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close history file %s: %w", path, closeErr)
		}
	}()

	unlock, err := lockFile(f, true)
	if err != nil {
		return fmt.Errorf("lock history file %s: %w", path, err)
	}
	defer func() {
		if unlockErr := unlock(); unlockErr != nil && err == nil {
			err = fmt.Errorf("unlock history file %s: %w", path, unlockErr)
		}
	}()

	linesRead, terminated := 0, true
	if opts.Append {
		linesRead, terminated, err = saved.readRaw(f, filters)
		if err != nil {
			return fmt.Errorf("read history file %s: %w", path, err)
		}
	}

	// File lines are compared in escaped form, so new entries are escaped too.
	for i := h.oldCount; i < h.count; i++ {
		e := h.at(i)
		saved.addSized(Escape(e.text), e.size, filters)
	}

	start := 0
	rewrite := !(opts.Append && terminated && linesRead == saved.oldCount)
	if rewrite {
		if err := f.Truncate(0); err != nil {
			return fmt.Errorf("truncate history file %s: %w", path, err)
		}
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return fmt.Errorf("seek history file %s: %w", path, err)
		}
	} else {
		if _, err := f.Seek(0, io.SeekEnd); err != nil {
			return fmt.Errorf("seek history file %s: %w", path, err)
		}
		start = saved.oldCount
	}

	if err := saved.writeLines(f, start); err != nil {
		return fmt.Errorf("write history file %s: %w", path, err)
	}

	h.logger.Debug("saved history", "path", path, "entries", saved.count,
		"written", saved.count-start, "rewrite", rewrite)
	h.oldCount = h.count
	return nil
}

// readRaw adds every line of r to h without unescaping and marks them old.
// It returns the number of lines read and whether the last one ended in a
// newline.
func (h *History) readRaw(r io.Reader, filters AddOptions) (int, bool, error) {
	reader := bufio.NewReader(r)
	lines, terminated := 0, true
	for {
		line, err := reader.ReadString('\n')
		if len(line) > 0 {
			lines++
			terminated = strings.HasSuffix(line, "\n")
			line = strings.TrimSuffix(line, "\n")
			h.addSized(line, len(line)+1, filters)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return lines, terminated, err
		}
	}
	h.oldCount = h.count
	return lines, terminated, nil
}

// writeLines writes entries from the start-th oldest onwards, one per line
func (h *History) writeLines(w io.Writer, start int) error {
	writer := bufio.NewWriter(w)
	for i := start; i < h.count; i++ {
		if _, err := writer.WriteString(h.at(i).text); err != nil {
			return err
		}
		if err := writer.WriteByte('\n'); err != nil {
			return err
		}
	}
	return writer.Flush()
}

// truncateLocked empties the file at path under an exclusive lock, creating it if needed
func truncateLocked(path string, perm os.FileMode) (err error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE, perm)
	if err != nil {
		return fmt.Errorf("open history file %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close history file %s: %w", path, closeErr)
		}
	}()

	unlock, err := lockFile(f, true)
	if err != nil {
		return fmt.Errorf("lock history file %s: %w", path, err)
	}
	defer func() {
		if unlockErr := unlock(); unlockErr != nil && err == nil {
			err = fmt.Errorf("unlock history file %s: %w", path, unlockErr)
		}
	}()

	if err := f.Truncate(0); err != nil {
		return fmt.Errorf("truncate history file %s: %w", path, err)
	}
	return nil
}

func resolveLimit(override, inherited int, name string) (int, error) {
	switch {
	case override == Inherit:
		return inherited, nil
	case override < 0:
		return 0, fmt.Errorf("%w: %s %d is negative", ErrInvalidArgument, name, override)
	default:
		return override, nil
	}
}
