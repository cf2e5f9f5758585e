package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"src.marktree.dev/pkg/md"
	"src.marktree.dev/pkg/md/ast"
	"src.marktree.dev/pkg/sys"
)

const watchDebounce = 50 * time.Millisecond

func (a *app) newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch file",
		Short: "Print the tree of a Markdown file every time it changes",
		Long: `Parse a Markdown file and print its tree, then print it again every
time the file is written. Each re-parse resumes from the first changed
line where possible; the token it resumed at is printed to stderr.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.watch(cmd.Context(), args[0])
		},
	}
}

func (a *app) watch(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()
	// Watching the directory survives editors that replace the file.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	sigCh, stop := sys.NotifySignals()
	defer stop()

	session := md.NewSession(path, a.cfg.MarkdownOptions())
	var last md.Result
	reparse := func() {
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warningf("read %s: %v", path, err)
			return
		}
		last = session.Update(string(data))
		a.printWatched(last)
	}
	reparse()

	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case sig := <-sigCh:
			if sig == sys.SIGWINCH {
				a.printWatched(last)
				continue
			}
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(path) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				debounce = time.After(watchDebounce)
			} else if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				logger.Noticef("%s was removed", path)
			}
		case <-debounce:
			debounce = nil
			reparse()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Errorf("watch: %v", err)
		}
	}
}

func (a *app) printWatched(r md.Result) {
	if r.Tree == nil {
		return
	}
	ast.Dump(a.stdout, r.Tree, a.dumpWidth())
	for _, d := range r.Diagnostics {
		fmt.Fprintln(a.stderr, d.Show(""))
	}
	fmt.Fprintf(a.stderr, "resumed at token %d of %d\n", r.Stats.ResumedAt, r.Stats.Tokens)
}
