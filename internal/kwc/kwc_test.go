package kwc

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIncrementInsertsAndAccumulates(t *testing.T) {
	s := New()
	s.Increment("func", "keyword", 1)
	s.Increment("func", "keyword", 2)
	s.Increment("if", "keyword", 1)

	count, ok := s.Get("func")
	require.True(t, ok)
	assert.Equal(t, 3, count)

	count, ok = s.Get("if")
	require.True(t, ok)
	assert.Equal(t, 1, count)

	assert.Equal(t, 2, s.Len())
}

func TestIncrementRejectsNonPositive(t *testing.T) {
	s := New()
	s.Increment("x", "", 0)
	s.Increment("x", "", -5)
	assert.Equal(t, 0, s.Len())
}

func TestMergeSumsCountsViaIncrement(t *testing.T) {
	a := New()
	a.Increment("foo", "ref", 2)
	b := New()
	b.Increment("foo", "ref", 3)
	b.Increment("bar", "ref", 1)

	a.Merge(b)

	count, _ := a.Get("foo")
	assert.Equal(t, 5, count)
	count, _ = a.Get("bar")
	assert.Equal(t, 1, count)
}

func TestEntriesAreSortedByToken(t *testing.T) {
	s := New()
	s.Increment("zeta", "", 1)
	s.Increment("alpha", "", 1)

	entries := s.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "alpha", entries[0].Token)
	assert.Equal(t, "zeta", entries[1].Token)
}

func TestJSONRoundTrip(t *testing.T) {
	s := New()
	s.Increment("foo", "ref", 2)
	s.Increment("bar", "ref", 1)

	data, err := json.Marshal(s)
	require.NoError(t, err)

	out := New()
	require.NoError(t, json.Unmarshal(data, out))

	count, ok := out.Get("foo")
	require.True(t, ok)
	assert.Equal(t, 2, count)
}

func TestEmptySetMarshalsToEmptyArray(t *testing.T) {
	s := New()
	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}
