package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRustRFCParser_Parse(t *testing.T) {
	p := &RustRFCParser{}

	content := `# Non-lexical lifetimes

- Status: merged
- Author: Niko Matsakis

## Summary

Extend the borrow checker.
`

	state, err := p.Parse("text/2094-nll.md", []byte(content))
	require.NoError(t, err)

	assert.Equal(t, 2094, state.Number)
	assert.Equal(t, "Non-lexical lifetimes", state.Title)
	assert.Equal(t, "unknown", state.Status, "list-style fields are body prose, not status lines")
}

func TestRustRFCParser_StatusField(t *testing.T) {
	p := &RustRFCParser{}

	content := "# Some RFC\n\nStatus: Merged\n\nDetails follow.\n"
	state, err := p.Parse("text/0001-some-rfc.md", []byte(content))
	require.NoError(t, err)
	assert.Equal(t, 1, state.Number)
	assert.Equal(t, "Merged", state.Status)

	content = "# Another\n\nstate: postponed\n"
	state, err = p.Parse("text/0002-another.md", []byte(content))
	require.NoError(t, err)
	assert.Equal(t, "postponed", state.Status)
}

// A malformed RFC degrades to status "unknown" rather than erroring, so
// one bad document never blocks the tracker.
func TestRustRFCParser_DegradesToUnknown(t *testing.T) {
	p := &RustRFCParser{}

	state, err := p.Parse("text/3000-empty.md", []byte("no heading, no status"))
	require.NoError(t, err)
	assert.Equal(t, 3000, state.Number)
	assert.Equal(t, "unknown", state.Status)
	assert.Equal(t, "3000-empty", state.Title, "title falls back to the filename stem")
}

func TestRustRFCParser_NoNumber(t *testing.T) {
	p := &RustRFCParser{}

	_, err := p.Parse("text/template.md", []byte("# Template"))
	assert.Error(t, err)
}
