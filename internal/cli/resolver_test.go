package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTerminalResolver_SelectsRegions(t *testing.T) {
	out := &bytes.Buffer{}
	r := &TerminalResolver{In: strings.NewReader("1, 3\n"), Out: out}

	chosen, ok := r.Resolve([]string{"bladder", "marker a", "marker b"})
	require.True(t, ok)
	assert.Equal(t, []string{"bladder", "marker b"}, chosen)
	assert.Contains(t, out.String(), "1) bladder")
	assert.Contains(t, out.String(), "3) marker b")
}

func TestTerminalResolver_BlankLineAborts(t *testing.T) {
	r := &TerminalResolver{In: strings.NewReader("\n"), Out: &bytes.Buffer{}}
	_, ok := r.Resolve([]string{"bladder"})
	assert.False(t, ok)
}

func TestTerminalResolver_InvalidSelectionsIgnored(t *testing.T) {
	out := &bytes.Buffer{}
	r := &TerminalResolver{In: strings.NewReader("0, x, 9, 2\n"), Out: out}

	chosen, ok := r.Resolve([]string{"a", "b"})
	require.True(t, ok)
	assert.Equal(t, []string{"b"}, chosen)
	assert.Contains(t, out.String(), "Ignoring invalid selection")
}

func TestTerminalResolver_OnlyInvalidSelectionsAborts(t *testing.T) {
	r := &TerminalResolver{In: strings.NewReader("99\n"), Out: &bytes.Buffer{}}
	_, ok := r.Resolve([]string{"a"})
	assert.False(t, ok)
}

func TestTerminalResolver_EOFAborts(t *testing.T) {
	r := &TerminalResolver{In: strings.NewReader(""), Out: &bytes.Buffer{}}
	_, ok := r.Resolve([]string{"a"})
	assert.False(t, ok)
}

func TestTerminalResolver_NoRegionsAborts(t *testing.T) {
	r := &TerminalResolver{In: strings.NewReader("1\n"), Out: &bytes.Buffer{}}
	_, ok := r.Resolve(nil)
	assert.False(t, ok)
}
