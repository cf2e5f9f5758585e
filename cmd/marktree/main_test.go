package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"src.marktree.dev/pkg/env"
	"src.marktree.dev/pkg/md"
	"src.marktree.dev/pkg/parse"
	"src.marktree.dev/pkg/store"
)

type result struct {
	code           int
	stdout, stderr string
}

func runMarktree(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	a := &app{stdin: strings.NewReader(stdin), stdout: &stdout, stderr: &stderr}
	if !hasFlag(args, "--config") {
		args = append(args, "--config", filepath.Join(t.TempDir(), "none.yaml"))
	}
	code := a.run(context.Background(), args)
	return result{code, stdout.String(), stderr.String()}
}

func hasFlag(args []string, flag string) bool {
	for _, arg := range args {
		if arg == flag {
			return true
		}
	}
	return false
}

func TestParse_Dump(t *testing.T) {
	r := runMarktree(t, "# Hi\n\n*a*\n", "parse")
	assert.Equal(t, 0, r.code, r.stderr)
	assert.Equal(t, strings.Join([]string{
		`Document`,
		`  Heading "1"`,
		`    Text "Hi"`,
		`  Paragraph`,
		`    Emphasis`,
		`      Text "a"`,
		``,
	}, "\n"), r.stdout)
}

func TestParse_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.md")
	require.NoError(t, os.WriteFile(path, []byte("~~x~~\n"), 0644))
	r := runMarktree(t, "", "parse", path)
	assert.Equal(t, 0, r.code, r.stderr)
	assert.Equal(t, "Document\n  Paragraph\n    Strikethrough\n      Text \"x\"\n", r.stdout)

	r = runMarktree(t, "", "parse", filepath.Join(t.TempDir(), "missing.md"))
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stderr, "read file")
}

func TestParse_JSON(t *testing.T) {
	src := "> a [b](/c \"d\")\n"
	r := runMarktree(t, src, "parse", "-f", "json")
	require.Equal(t, 0, r.code, r.stderr)
	var tree parse.Node
	require.NoError(t, json.Unmarshal([]byte(r.stdout), &tree))
	assert.Equal(t, md.Parse(src, md.DefaultOptions).Tree.Hash(), tree.Hash())
}

func TestParse_Problems(t *testing.T) {
	r := runMarktree(t, "```\ncode\n", "parse")
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stderr, "code fence is not closed")
	assert.NotContains(t, r.stderr, "\033[", "color on a non-terminal")
	assert.NotContains(t, r.stderr, "marktree:")

	for _, format := range []string{"xml", "html"} {
		r = runMarktree(t, "", "parse", "--format", format)
		assert.Equal(t, 1, r.code)
		assert.Contains(t, r.stderr, `unknown format "`+format+`"`)
	}
}

func TestParse_Config(t *testing.T) {
	dir := t.TempDir()
	cachePath := filepath.Join(dir, "cache", "trees.db")
	configPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(
		"cache:\n  enabled: true\n  path: "+cachePath+"\nmarkdown:\n  strikethrough: false\n"), 0644))

	for i := 0; i < 2; i++ {
		r := runMarktree(t, "~~x~~ ```\n", "parse", "--config", configPath)
		assert.Equal(t, 0, r.code, r.stderr)
		assert.Equal(t, "Document\n  Paragraph\n    Text \"~~x~~ ```\"\n", r.stdout)
	}

	s, err := store.Open(cachePath)
	require.NoError(t, err)
	defer s.Close()
	n, err := s.Len()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, os.WriteFile(configPath, []byte("bogus: 1\n"), 0644))
	r := runMarktree(t, "", "parse", "--config", configPath)
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stderr, "bogus")
}

func TestParse_CachedProblems(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(
		"cache:\n  path: "+filepath.Join(dir, "cache.db")+"\n"), 0644))

	for i := 0; i < 2; i++ {
		r := runMarktree(t, "```\n", "parse", "--cache", "--config", configPath)
		assert.Equal(t, 1, r.code)
		assert.Contains(t, r.stderr, "code fence is not closed")
	}
}

func TestParse_CachedProblemsNameTheFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(
		"cache:\n  enabled: true\n  path: "+filepath.Join(dir, "cache.db")+"\n"), 0644))
	for _, name := range []string{"a.md", "b.md"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("text\n```\n"), 0644))
	}

	fresh := runMarktree(t, "", "parse", "--config", configPath, filepath.Join(dir, "a.md"))
	cached := runMarktree(t, "", "parse", "--config", configPath, filepath.Join(dir, "b.md"))
	assert.Equal(t, 1, cached.code)
	assert.Contains(t, cached.stderr, "b.md:2:1")
	assert.NotContains(t, cached.stderr, "a.md")
	assert.Equal(t, strings.ReplaceAll(fresh.stderr, "a.md", "b.md"), cached.stderr)
}

func TestConfigFromEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("markdown:\n  autolinks: false\n"), 0644))
	t.Setenv(env.MARKTREE_CONFIG, path)

	var stdout, stderr bytes.Buffer
	a := &app{stdin: strings.NewReader("<https://x.org>"), stdout: &stdout, stderr: &stderr}
	code := a.run(context.Background(), []string{"parse"})
	assert.Equal(t, 0, code, stderr.String())
	assert.Equal(t, "Document\n  Paragraph\n    Text \"<https://x.org>\"\n", stdout.String())
}

func TestProfiles(t *testing.T) {
	cpu := filepath.Join(t.TempDir(), "cpu.prof")
	r := runMarktree(t, "*a*", "parse", "--cpuprofile", cpu)
	assert.Equal(t, 0, r.code, r.stderr)
	info, err := os.Stat(cpu)
	require.NoError(t, err)
	assert.NotZero(t, info.Size())
}

func TestVersion(t *testing.T) {
	r := runMarktree(t, "", "version")
	assert.Equal(t, 0, r.code)
	assert.Contains(t, r.stdout, "Version: ")

	r = runMarktree(t, "", "version", "--json")
	assert.Equal(t, 0, r.code)
	var v map[string]string
	require.NoError(t, json.Unmarshal([]byte(r.stdout), &v))
	assert.NotEmpty(t, v["version"])
}

func TestWatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.md")
	require.NoError(t, os.WriteFile(path, []byte("# A\n\npara\n"), 0644))

	var stdout, stderr syncBuffer
	a := &app{stdin: strings.NewReader(""), stdout: &stdout, stderr: &stderr}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan int)
	go func() {
		done <- a.run(ctx, []string{"watch", path, "--config", filepath.Join(t.TempDir(), "none.yaml")})
	}()

	waitFor(t, &stderr, "resumed at token 0 of")
	// Replace the file atomically, so that it is never seen half written.
	tmp := path + ".tmp"
	require.NoError(t, os.WriteFile(tmp, []byte("# A\n\npara *b*\n"), 0644))
	require.NoError(t, os.Rename(tmp, path))
	waitFor(t, &stdout, "Emphasis")
	waitFor(t, &stderr, "\nresumed at token")
	lines := strings.Split(strings.TrimSpace(stderr.String()), "\n")
	assert.NotContains(t, lines[len(lines)-1], "resumed at token 0 of", "second parse did not resume")

	cancel()
	select {
	case code := <-done:
		assert.Equal(t, 0, code)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func waitFor(t *testing.T, b *syncBuffer, s string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !strings.Contains(b.String(), s) {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %q; got %q", s, b.String())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
