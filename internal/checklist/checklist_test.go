package checklist

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = `# TODO

Some notes that are not tasks.

- [ ]   Wire the config loader
* [x] Write the README
+ [ ] Add push cadence
  - [ ] Nested item
- [X] Closed with capital X
-[ ] missing space is not an item
- [] empty brackets are not an item
1. [ ] numbered lists are not bullets
- [ ]
* [ ] Last one
`

func TestParseOrderAndTrim(t *testing.T) {
	snap := Parse(sampleDoc)

	assert.Equal(t, []string{
		"Wire the config loader",
		"Add push cadence",
		"Nested item",
		"Last one",
	}, snap.Labels())
	assert.Equal(t, 2, snap.Done)

	lines := make([]int, len(snap.Open))
	for i, it := range snap.Open {
		lines[i] = it.Line
	}
	assert.Equal(t, []int{5, 7, 8, 14}, lines)
}

func TestParseEmpty(t *testing.T) {
	for _, doc := range []string{"", Placeholder, "# Done\n\n- [x] everything\n"} {
		snap := Parse(doc)
		assert.Empty(t, snap.Open)
		_, ok := snap.Next()
		assert.False(t, ok)
	}
}

func TestParseCRLF(t *testing.T) {
	snap := Parse("- [ ] first\r\n- [ ] second\r\n")
	assert.Equal(t, []string{"first", "second"}, snap.Labels())
	assert.Equal(t, "- [ ] first", snap.Open[0].Text)
}

func TestParseStability(t *testing.T) {
	snap := Parse(sampleDoc)
	lines := strings.Split(sampleDoc, "\n")

	for _, item := range snap.Open {
		alone := Parse(item.Text)
		require.Len(t, alone.Open, 1)
		assert.Equal(t, item.Label, alone.Open[0].Label)

		rewritten := make([]string, len(lines))
		copy(rewritten, lines)
		rewritten[item.Line-1] = item.Text
		assert.Equal(t, snap, Parse(strings.Join(rewritten, "\n")))
	}
}

func TestNext(t *testing.T) {
	snap := Parse(sampleDoc)
	next, ok := snap.Next()
	require.True(t, ok)
	assert.Equal(t, "Wire the config loader", next.Label)
}

func TestFileEnsureCreatesPlaceholder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docs", "TODO.md")
	f := NewFile(path)

	snap, err := f.Read()
	require.NoError(t, err)
	assert.Empty(t, snap.Open)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, Placeholder, string(data))
}

func TestFileEnsureKeepsExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "TODO.md")
	require.NoError(t, os.WriteFile(path, []byte("- [ ] keep me\n"), 0o644))

	f := NewFile(path)
	require.NoError(t, f.Ensure())

	snap, err := f.Read()
	require.NoError(t, err)
	assert.Equal(t, []string{"keep me"}, snap.Labels())
}

func TestFileReadPicksUpExternalEdits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "TODO.md")
	f := NewFile(path)
	require.NoError(t, f.Ensure())

	require.NoError(t, os.WriteFile(path, []byte("- [ ] added later\n"), 0o644))
	snap, err := f.Read()
	require.NoError(t, err)
	assert.Equal(t, []string{"added later"}, snap.Labels())
}
