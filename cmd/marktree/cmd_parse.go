package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"src.marktree.dev/pkg/diag"
	"src.marktree.dev/pkg/md"
	"src.marktree.dev/pkg/md/ast"
	"src.marktree.dev/pkg/parse"
	"src.marktree.dev/pkg/store"
)

type parseOutput struct {
	tree  *parse.Node
	diags []*diag.Error
}

func (a *app) newParseCmd() *cobra.Command {
	var (
		format   string
		useCache bool
	)
	cmd := &cobra.Command{
		Use:   "parse [file]",
		Short: "Parse a Markdown file and print its tree",
		Long: `Parse a Markdown file and print its document tree to stdout.

If no file is provided, reads Markdown from stdin. Problems found while
parsing are printed to stderr, and make the command exit with status 1.

The tree is printed as an indented outline (--format dump) or as JSON
(--format json).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch format {
			case "dump", "json":
			default:
				return fmt.Errorf("unknown format %q", format)
			}
			name, source, err := a.readSource(args)
			if err != nil {
				return err
			}
			var out parseOutput
			if useCache || a.cfg.Cache.Enabled {
				out, err = a.parseCached(name, source)
				if err != nil {
					return err
				}
			} else {
				out = a.parseFresh(name, source)
			}
			if err := a.writeTree(out.tree, format); err != nil {
				return err
			}
			for _, d := range out.diags {
				fmt.Fprintln(a.stderr, d.Show(""))
			}
			if len(out.diags) > 0 {
				return errProblems
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "dump", "output format: dump or json")
	cmd.Flags().BoolVar(&useCache, "cache", false, "use the parse cache even if disabled in the configuration")
	return cmd
}

func (a *app) readSource(args []string) (name, source string, err error) {
	if len(args) == 0 {
		data, err := io.ReadAll(a.stdin)
		if err != nil {
			return "", "", fmt.Errorf("read stdin: %w", err)
		}
		return "[stdin]", string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", "", fmt.Errorf("read file: %w", err)
	}
	return args[0], string(data), nil
}

func (a *app) parseFresh(name string, source string) parseOutput {
	r := md.NewSession(name, a.cfg.MarkdownOptions()).Update(source)
	return parseOutput{tree: r.Tree, diags: r.Diagnostics}
}

// Parses with the cache.
func (a *app) parseCached(name string, source string) (parseOutput, error) {
	path := a.cfg.Cache.Path
	if path == "" {
		return parseOutput{}, fmt.Errorf("no cache path configured")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return parseOutput{}, fmt.Errorf("create cache directory: %w", err)
	}
	s, err := store.Open(path, store.WithVariant(a.cfg.Variant()))
	if err != nil {
		return parseOutput{}, err
	}
	defer s.Close()

	e, ok, err := s.Get(source)
	if err != nil {
		logger.Warningf("cache lookup: %v", err)
	} else if ok {
		logger.Debugf("cache hit for %s", name)
		out := parseOutput{tree: e.Tree}
		for _, d := range e.Diagnostics {
			out.diags = append(out.diags, d.Error(name, source))
		}
		return out, nil
	}
	out := a.parseFresh(name, source)
	if err := s.Put(source, store.Entry{Tree: out.tree, Diagnostics: store.Diagnostics(out.diags)}); err != nil {
		logger.Warningf("cache update: %v", err)
	}
	return out, nil
}

func (a *app) writeTree(tree *parse.Node, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(tree)
	default:
		ast.Dump(a.stdout, tree, a.dumpWidth())
		return nil
	}
}
