// Package lsp implements a language server for Markdown. Each open document is
// backed by an incremental parse session.
package lsp

import (
	"context"
	"io"

	"github.com/sourcegraph/jsonrpc2"
	"src.marktree.dev/pkg/logutil"
	"src.marktree.dev/pkg/md"
)

var logger = logutil.GetLogger("marktree.lsp")

// Serve runs the language server on the given streams until the client
// disconnects, sends exit, or ctx is done.
func Serve(ctx context.Context, in io.ReadCloser, out io.WriteCloser, opts md.Options) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s := newServer(opts, cancel)
	conn := jsonrpc2.NewConn(ctx,
		jsonrpc2.NewBufferedStream(transport{in, out}, jsonrpc2.VSCodeObjectCodec{}),
		s.handler())
	defer conn.Close()
	select {
	case <-conn.DisconnectNotify():
	case <-ctx.Done():
	}
	return nil
}

type transport struct {
	in  io.ReadCloser
	out io.WriteCloser
}

func (c transport) Read(p []byte) (int, error)  { return c.in.Read(p) }
func (c transport) Write(p []byte) (int, error) { return c.out.Write(p) }

func (c transport) Close() error {
	if err := c.in.Close(); err != nil {
		c.out.Close()
		return err
	}
	return c.out.Close()
}
