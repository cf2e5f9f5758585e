//go:build unix

package main

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/creack/pty"
	"github.com/stretchr/testify/assert"
	"src.marktree.dev/pkg/diag"
	"src.marktree.dev/pkg/env"
)

func TestParse_ColorOnTerminal(t *testing.T) {
	ptmx, tty, err := pty.Open()
	if err != nil {
		t.Skip("no pty:", err)
	}
	defer ptmx.Close()
	defer diag.SetColor(false)
	t.Setenv(env.NO_COLOR, "")

	output := make(chan string)
	go func() {
		var buf bytes.Buffer
		io.Copy(&buf, ptmx)
		output <- buf.String()
	}()

	var stdout bytes.Buffer
	a := &app{stdin: strings.NewReader("```\n"), stdout: &stdout, stderr: tty}
	code := a.run(context.Background(),
		[]string{"parse", "--config", filepath.Join(t.TempDir(), "none.yaml")})
	tty.Close()
	assert.Equal(t, 1, code)

	select {
	case s := <-output:
		assert.Contains(t, s, "\033[31;1mcode fence is not closed\033[m")
	case <-time.After(5 * time.Second):
		t.Fatal("timed out reading the terminal")
	}
}
