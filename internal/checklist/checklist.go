// Package checklist reads markdown task lists.
//
// An open item is any line of the form "- [ ] label" (the bullet may also be
// "*" or "+"); a closed item uses "[x]". Everything else in the document is
// ignored.
package checklist

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Placeholder is written to a checklist file that does not exist yet.
const Placeholder = "# TODO\n\n"

var (
	openPattern   = regexp.MustCompile(`^\s*[-*+]\s+\[ \]\s+(.*)$`)
	closedPattern = regexp.MustCompile(`^\s*[-*+]\s+\[[xX]\]\s+`)
)

// Item is an open checklist entry.
type Item struct {
	// Label is the text after the checkbox, trimmed.
	Label string
	// Line is the 1-based line number in the source document.
	Line int
	// Text is the exact source line, without its line terminator.
	Text string
}

// Snapshot is the parsed content of a checklist at one point in time.
type Snapshot struct {
	Open []Item
	Done int
}

// Labels returns the labels of the open items in document order.
func (s Snapshot) Labels() []string {
	labels := make([]string, len(s.Open))
	for i, it := range s.Open {
		labels[i] = it.Label
	}
	return labels
}

// Next returns the first open item.
func (s Snapshot) Next() (Item, bool) {
	if len(s.Open) == 0 {
		return Item{}, false
	}
	return s.Open[0], true
}

// Parse scans doc and returns its open items in document order along with
// the number of closed ones.
func Parse(doc string) Snapshot {
	var snap Snapshot

	scanner := bufio.NewScanner(strings.NewReader(doc))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		text := strings.TrimSuffix(scanner.Text(), "\r")

		if m := openPattern.FindStringSubmatch(text); m != nil {
			label := strings.TrimSpace(m[1])
			if label == "" {
				continue
			}
			snap.Open = append(snap.Open, Item{Label: label, Line: lineNum, Text: text})
			continue
		}
		if closedPattern.MatchString(text) {
			snap.Done++
		}
	}
	return snap
}

// File is a checklist stored on disk.
type File struct {
	Path string
}

// NewFile returns a File for path.
func NewFile(path string) *File {
	return &File{Path: path}
}

// Ensure creates the checklist with a placeholder header if it is missing.
func (f *File) Ensure() error {
	_, err := os.Stat(f.Path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to stat checklist: %w", err)
	}

	if dir := filepath.Dir(f.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create checklist directory: %w", err)
		}
	}
	if err := os.WriteFile(f.Path, []byte(Placeholder), 0o644); err != nil {
		return fmt.Errorf("failed to create checklist: %w", err)
	}
	return nil
}

// Read parses the current contents of the file. A missing file is created
// first, so Read never fails just because the checklist is new.
func (f *File) Read() (Snapshot, error) {
	if err := f.Ensure(); err != nil {
		return Snapshot{}, err
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to read checklist: %w", err)
	}
	return Parse(string(data)), nil
}
