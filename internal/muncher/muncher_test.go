package muncher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cMuncherJSON = `{
	"muncher_name": "c",
	"language": "C",
	"bracket_only": ["^\\s*[{}();]+\\s*$"],
	"line_comments": ["^\\s*//"],
	"block_comments_start": ["/\\*"],
	"block_comments_end": ["\\*/"],
	"refs": ["#include\\s*[\"<]([^\">]+)[\">]"]
}`

func TestLoadCompilesAllPatterns(t *testing.T) {
	m, err := Load([]byte(cMuncherJSON), "c")
	require.NoError(t, err)
	assert.Equal(t, "c", m.Name())
	assert.Equal(t, "C", m.Language())
	assert.True(t, m.IsBlank(""))
	assert.True(t, m.IsBlank("   "))
	assert.False(t, m.IsBlank("int x;"))
	assert.True(t, m.IsBracketOnly("{"))
	assert.True(t, m.IsLineComment("// hi"))
	assert.True(t, m.IsBlockCommentStart("/*"))
	assert.True(t, m.IsBlockCommentEnd("*/"))
}

func TestLoadRejectsAtomicallyOnBadPattern(t *testing.T) {
	bad := `{"muncher_name":"bad","language":"Bad","refs":["("]}`
	_, err := Load([]byte(bad), "bad")
	assert.Error(t, err)
}

func TestLoadRejectsMultipleBadPatternsTogether(t *testing.T) {
	bad := `{"muncher_name":"bad","language":"Bad","refs":["("],"packages":["("]}`
	_, err := Load([]byte(bad), "bad")
	require.Error(t, err)
}

func TestCaptureUsesFirstGroupOrWholeMatch(t *testing.T) {
	m, err := Load([]byte(cMuncherJSON), "c")
	require.NoError(t, err)
	refs := m.CaptureRefs(`#include "foo.h"`)
	require.Len(t, refs, 1)
	assert.Equal(t, "foo.h", refs[0])
}

func TestFingerprintStability(t *testing.T) {
	m1, err := Load([]byte(cMuncherJSON), "c")
	require.NoError(t, err)
	m2, err := Load([]byte(cMuncherJSON), "c")
	require.NoError(t, err)
	assert.Equal(t, m1.Hash(), m2.Hash())

	changed := `{
		"muncher_name": "c",
		"language": "C",
		"bracket_only": ["^\\s*[{}();]+\\s*$"],
		"line_comments": ["^\\s*//", "^\\s*///"],
		"block_comments_start": ["/\\*"],
		"block_comments_end": ["\\*/"],
		"refs": ["#include\\s*[\"<]([^\">]+)[\">]"]
	}`
	m3, err := Load([]byte(changed), "c")
	require.NoError(t, err)
	assert.NotEqual(t, m1.Hash(), m3.Hash())
}

func TestFingerprintIndependentOfCompiledOrder(t *testing.T) {
	a := `{"muncher_name":"x","language":"X","keywords":["a","b"]}`
	b := `{"muncher_name":"x","language":"X","keywords":["a","b"]}`
	ma, err := Load([]byte(a), "x")
	require.NoError(t, err)
	mb, err := Load([]byte(b), "x")
	require.NoError(t, err)
	assert.Equal(t, ma.Hash(), mb.Hash())
}
