// Package specdir coordinates work items stored as numbered markdown files.
//
// Each item is a file named NNN-slug.md. A worker takes ownership of an item
// by prepending ClaimMarker to the file, gives it back by removing the marker,
// and finishes it by deleting the file; git history is the only record of a
// finished item.
//
// Claiming is a read-then-write on a shared directory and is not atomic. Two
// workers racing for the same unclaimed item can both believe they own it.
// The protocol is meant for cooperating workers on one machine.
package specdir

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// ClaimMarker is the first line of a claimed spec file.
const ClaimMarker = "<!-- claimed -->"

// seqFile records the highest number ever completed or created, so numbers
// are not handed out again after the newest item is deleted.
const seqFile = ".seq"

var (
	namePattern    = regexp.MustCompile(`^(\d+)-(.+)\.md$`)
	slugDisallowed = regexp.MustCompile(`[^a-z0-9]+`)
)

var (
	// ErrNotFound is returned when no spec has the requested number.
	ErrNotFound = errors.New("spec not found")
	// ErrInvalidSlug is returned by Create for a slug with no usable characters.
	ErrInvalidSlug = errors.New("invalid spec slug")
)

// Item is one spec file.
type Item struct {
	Path    string
	Name    string
	Number  int
	Slug    string
	Claimed bool
	// Raw is the file content as stored.
	Raw string
	// Content is Raw without the claim marker.
	Content string
}

// Snapshot partitions the specs in a directory, each list sorted by number.
type Snapshot struct {
	Available []Item
	Claimed   []Item
	// Next is the lowest-numbered unclaimed spec, or nil.
	Next *Item
}

// All returns every spec, claimed or not, sorted by number.
func (s Snapshot) All() []Item {
	all := make([]Item, 0, len(s.Available)+len(s.Claimed))
	all = append(all, s.Available...)
	all = append(all, s.Claimed...)
	sort.Slice(all, func(i, j int) bool { return all[i].Number < all[j].Number })
	return all
}

// Empty reports whether the directory holds no specs at all.
func (s Snapshot) Empty() bool {
	return len(s.Available) == 0 && len(s.Claimed) == 0
}

// IsClaimed reports whether content starts with the claim marker.
func IsClaimed(content string) bool {
	return strings.HasPrefix(content, ClaimMarker)
}

// MarkClaimed prepends the claim marker unless it is already there.
func MarkClaimed(content string) string {
	if IsClaimed(content) {
		return content
	}
	return ClaimMarker + "\n" + content
}

// Unmark removes a leading claim marker and the line break after it.
func Unmark(content string) string {
	if !IsClaimed(content) {
		return content
	}
	rest := strings.TrimPrefix(content, ClaimMarker)
	if strings.HasPrefix(rest, "\r\n") {
		return rest[2:]
	}
	return strings.TrimPrefix(rest, "\n")
}

// Dir is a spec directory on disk.
type Dir struct {
	Path string
}

// New returns a Dir for path.
func New(path string) *Dir {
	return &Dir{Path: path}
}

// Ensure creates the directory if it does not exist.
func (d *Dir) Ensure() error {
	if err := os.MkdirAll(d.Path, 0o755); err != nil {
		return fmt.Errorf("failed to create spec directory: %w", err)
	}
	return nil
}

// Snapshot reads every spec in the directory.
func (d *Dir) Snapshot() (Snapshot, error) {
	items, err := d.list()
	if err != nil {
		return Snapshot{}, err
	}

	var snap Snapshot
	for _, it := range items {
		if it.Claimed {
			snap.Claimed = append(snap.Claimed, it)
		} else {
			snap.Available = append(snap.Available, it)
		}
	}
	if len(snap.Available) > 0 {
		next := snap.Available[0]
		snap.Next = &next
	}
	return snap, nil
}

// Get returns the spec with the given number.
func (d *Dir) Get(number int) (Item, error) {
	items, err := d.list()
	if err != nil {
		return Item{}, err
	}
	for _, it := range items {
		if it.Number == number {
			return it, nil
		}
	}
	return Item{}, fmt.Errorf("%w: %d", ErrNotFound, number)
}

// AllocateNumber returns the next unused spec number: one more than the
// highest number on disk or ever completed, starting at 1.
func (d *Dir) AllocateNumber() (int, error) {
	items, err := d.list()
	if err != nil {
		return 0, err
	}
	highest, err := d.highWater()
	if err != nil {
		return 0, err
	}
	for _, it := range items {
		if it.Number > highest {
			highest = it.Number
		}
	}
	return highest + 1, nil
}

// Create allocates a number and writes a new unclaimed spec.
func (d *Dir) Create(slug, body string) (Item, error) {
	clean := Slugify(slug)
	if clean == "" {
		return Item{}, fmt.Errorf("%w: %q", ErrInvalidSlug, slug)
	}
	if err := d.Ensure(); err != nil {
		return Item{}, err
	}
	n, err := d.AllocateNumber()
	if err != nil {
		return Item{}, err
	}

	name := fmt.Sprintf("%03d-%s.md", n, clean)
	path := filepath.Join(d.Path, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return Item{}, fmt.Errorf("failed to write spec: %w", err)
	}
	if err := d.raiseHighWater(n); err != nil {
		return Item{}, err
	}
	return d.read(name)
}

// Claim marks item as taken. Claiming an already claimed spec is a no-op.
func (d *Dir) Claim(item Item) (Item, error) {
	return d.rewrite(item, MarkClaimed)
}

// Release removes the claim from item. Releasing an unclaimed spec is a no-op.
func (d *Dir) Release(item Item) (Item, error) {
	return d.rewrite(item, Unmark)
}

// Complete deletes the spec file.
func (d *Dir) Complete(item Item) error {
	if err := d.raiseHighWater(item.Number); err != nil {
		return err
	}
	if err := os.Remove(d.pathOf(item)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, item.Name)
		}
		return fmt.Errorf("failed to delete spec: %w", err)
	}
	return nil
}

// Slugify lower-cases s and collapses every run of other characters to "-".
func Slugify(s string) string {
	s = slugDisallowed.ReplaceAllString(strings.ToLower(s), "-")
	return strings.Trim(s, "-")
}

func (d *Dir) pathOf(item Item) string {
	if item.Name != "" {
		return filepath.Join(d.Path, item.Name)
	}
	return item.Path
}

func (d *Dir) rewrite(item Item, fn func(string) string) (Item, error) {
	name := filepath.Base(d.pathOf(item))
	current, err := d.read(name)
	if err != nil {
		return Item{}, err
	}

	updated := fn(current.Raw)
	if updated == current.Raw {
		return current, nil
	}
	if err := os.WriteFile(current.Path, []byte(updated), 0o644); err != nil {
		return Item{}, fmt.Errorf("failed to update spec: %w", err)
	}
	return d.read(name)
}

func (d *Dir) read(name string) (Item, error) {
	m := namePattern.FindStringSubmatch(name)
	if m == nil {
		return Item{}, fmt.Errorf("not a spec file name: %s", name)
	}
	number, err := strconv.Atoi(m[1])
	if err != nil {
		return Item{}, fmt.Errorf("invalid spec number in %s: %w", name, err)
	}

	path := filepath.Join(d.Path, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Item{}, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return Item{}, fmt.Errorf("failed to read spec: %w", err)
	}

	raw := string(data)
	return Item{
		Path:    path,
		Name:    name,
		Number:  number,
		Slug:    m[2],
		Claimed: IsClaimed(raw),
		Raw:     raw,
		Content: Unmark(raw),
	}, nil
}

// list reads all specs sorted by number. Two files with the same number are
// an error.
func (d *Dir) list() ([]Item, error) {
	entries, err := os.ReadDir(d.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read spec directory: %w", err)
	}

	var items []Item
	seen := make(map[int]string)
	for _, e := range entries {
		if e.IsDir() || !namePattern.MatchString(e.Name()) {
			continue
		}
		it, err := d.read(e.Name())
		if err != nil {
			return nil, err
		}
		if other, dup := seen[it.Number]; dup {
			return nil, fmt.Errorf("duplicate spec number %d: %s and %s", it.Number, other, it.Name)
		}
		seen[it.Number] = it.Name
		items = append(items, it)
	}

	sort.Slice(items, func(i, j int) bool { return items[i].Number < items[j].Number })
	return items, nil
}

func (d *Dir) highWater() (int, error) {
	data, err := os.ReadFile(filepath.Join(d.Path, seqFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read spec sequence: %w", err)
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid spec sequence file: %w", err)
	}
	return n, nil
}

func (d *Dir) raiseHighWater(n int) error {
	current, err := d.highWater()
	if err != nil {
		return err
	}
	if n <= current {
		return nil
	}
	if err := os.WriteFile(filepath.Join(d.Path, seqFile), []byte(strconv.Itoa(n)+"\n"), 0o644); err != nil {
		return fmt.Errorf("failed to write spec sequence: %w", err)
	}
	return nil
}
