package parsers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logpkg "github.com/haukened/badlist/internal/badlist/common/log"
)

func TestParseLinkList(t *testing.T) {
	input := "\uFEFF# curated feed\n" +
		"badsite.example/phish\n" +
		"  Evil.Example/Malware  # seen 2024-01\n" +
		"\n" +
		"badsite.example/phish\n" +
		"# trailing comment\n"

	got, err := ParseLinkList(strings.NewReader(input), logpkg.NewNoopLogger())
	require.NoError(t, err)
	assert.Equal(t, []string{"badsite.example/phish", "evil.example/malware"}, got)
}

func TestParseHashList(t *testing.T) {
	input := "D41D8CD98F00B204E9800998ECF8427E\n" +
		"not-a-digest\n" +
		"abc123\n" + // too short
		"d41d8cd98f00b204e9800998ecf8427e\n" + // dup of the first, case-folded
		"9e107d9d372bb6826bd81d3542a419d6\n"

	got, err := ParseHashList(strings.NewReader(input), logpkg.NewNoopLogger())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"d41d8cd98f00b204e9800998ecf8427e",
		"9e107d9d372bb6826bd81d3542a419d6",
	}, got)
}

func TestParseLinkList_Empty(t *testing.T) {
	got, err := ParseLinkList(strings.NewReader("# nothing here\n\n"), logpkg.NewNoopLogger())
	require.NoError(t, err)
	assert.Empty(t, got)
}
