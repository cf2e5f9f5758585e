package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"

	"src.marktree.dev/pkg/md"
)

func openTemp(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "cache.db"), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutGet(t *testing.T) {
	s := openTemp(t)
	src := "# Title\n\n*a* [b](/c)\n"
	tree := md.Parse(src, md.DefaultOptions).Tree

	_, ok, err := s.Get(src)
	require.NoError(t, err)
	assert.False(t, ok)

	diags := []Diagnostic{{"unclosed code fence", "code fence is not closed", 0, 3}}
	require.NoError(t, s.Put(src, Entry{Tree: tree, Diagnostics: diags}))
	e, ok, err := s.Get(src)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, tree.Hash(), e.Tree.Hash())
	assert.Equal(t, tree.Hash(), e.TreeHash)
	assert.Equal(t, diags, e.Diagnostics)

	_, ok, err = s.Get(src + " ")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVariantsAreSeparate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	src := "~~a~~"

	s, err := Open(path, WithVariant("strike"))
	require.NoError(t, err)
	require.NoError(t, s.Put(src, Entry{Tree: md.Parse(src, md.DefaultOptions).Tree}))
	require.NoError(t, s.Close())

	s, err = Open(path, WithVariant("plain"))
	require.NoError(t, err)
	defer s.Close()
	_, ok, err := s.Get(src)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCorruptEntryIsDropped(t *testing.T) {
	s := openTemp(t)
	src := "para"
	require.NoError(t, s.Put(src, Entry{Tree: md.Parse(src, md.DefaultOptions).Tree}))

	for _, bad := range []string{`{"tree":{"type":0},"hash":1}`, `not json`} {
		err := s.db.Update(func(tx *bolt.Tx) error {
			return tx.Bucket([]byte(bucketTrees)).Put(s.key(src), []byte(bad))
		})
		require.NoError(t, err)

		_, ok, err := s.Get(src)
		require.NoError(t, err)
		assert.False(t, ok, "entry %q", bad)
		n, err := s.Len()
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	}
}

func TestOpen_NotADatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	require.NoError(t, os.WriteFile(path, []byte("definitely not bbolt, but long enough to have a header page"), 0644))
	_, err := Open(path)
	assert.Error(t, err)
}

func TestDiagnostics_DoNotRecordTheName(t *testing.T) {
	src := "```\ncode\n"
	r := md.NewSession("a.md", md.DefaultOptions).Update(src)
	require.NotEmpty(t, r.Diagnostics)
	cached := Diagnostics(r.Diagnostics)

	for _, name := range []string{"a.md", "b.md"} {
		got := cached[0].Error(name, src)
		want := md.NewSession(name, md.DefaultOptions).Update(src).Diagnostics[0]
		assert.Equal(t, want.Error(), got.Error())
		assert.Equal(t, want.Show(""), got.Show(""))
	}
}

func TestDiagnostic_WithoutPosition(t *testing.T) {
	d := Diagnostic{Type: "parser stuck", Message: "m", From: -1, To: -1}
	e := d.Error("a.md", "text")
	assert.Nil(t, e.Context)
	assert.Equal(t, "parser stuck: m", e.Error())

	// A range that does not fit the source is dropped.
	e = Diagnostic{Type: "t", Message: "m", From: 2, To: 9}.Error("a.md", "text")
	assert.Nil(t, e.Context)
}
