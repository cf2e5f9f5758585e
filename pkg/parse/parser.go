// Package parse implements a generic, token-driven parsing engine.
//
// A Language supplies a tokenizer and an ordered chain of consumers. The
// Parser offers every token to the consumers in order, stopping at the first
// one that handles it, and guards against consumers that do not make
// progress. It also keeps a snapshot of the parse state at every token index
// it stops at, so that a changed input can be re-parsed from the first token
// that differs instead of from scratch.
package parse

import (
	"src.marktree.dev/pkg/logutil"
)

var logger = logutil.GetLogger("marktree.parse")

// Diagnostic types reported by the driver.
const (
	ErrUnrecognized = "unrecognized token"
	ErrStuck        = "parser stuck"
)

// Option configures a Parser.
type Option func(*config)

type config struct {
	name string
}

// WithName sets the source name used in diagnostics.
func WithName(name string) Option {
	return func(c *config) { c.name = name }
}

// Parser parses text in one language. It remembers the last parse so that
// Update can re-parse incrementally. A Parser must not be used concurrently.
type Parser[S any] struct {
	lang   Language[S]
	config config

	ctx       *Context[S]
	snapshots []*snapshot[S]
	stats     Stats
}

// Stats describes the work done by the last Parse or Update call.
type Stats struct {
	// Number of tokens in the input, including EOF.
	Tokens int
	// Index of the token parsing started from; 0 for a full parse.
	ResumedAt int
	// Number of consumer rounds run.
	Iterations int
	// Whether the parse was aborted by the progress guard.
	Aborted bool
}

// New creates a Parser for the language.
func New[S any](lang Language[S], opts ...Option) *Parser[S] {
	p := &Parser[S]{lang: lang, config: config{name: "[input]"}}
	for _, opt := range opts {
		opt(&p.config)
	}
	return p
}

// Stats returns statistics about the last Parse or Update call.
func (p *Parser[S]) Stats() Stats { return p.stats }

// Parse parses text from scratch, attaching the result to root. It always
// returns a tree; problems are recorded as diagnostics in the context.
func (p *Parser[S]) Parse(text string, root *Node) (*Node, *Context[S]) {
	tokens := p.lang.Tokenize(text)
	p.ctx = newContext(p.config.name, text, tokens, root, p.lang.NewState())
	p.snapshots = p.snapshots[:0]
	p.stats = Stats{Tokens: len(tokens)}
	p.run()
	return root, p.ctx
}

// Update re-parses after the text has changed. If there is no previous parse
// of the same root, it behaves like Parse. Otherwise it restores the latest
// resumable snapshot that lies within the unchanged token prefix and that
// did not depend on any changed token, and continues from there.
func (p *Parser[S]) Update(text string, root *Node) (*Node, *Context[S]) {
	if p.ctx == nil || p.ctx.root != root {
		return p.Parse(text, root)
	}
	tokens := p.lang.Tokenize(text)
	prefix := CommonPrefix(p.ctx.tokens, tokens)
	s := p.findSnapshot(prefix)
	if s == nil {
		logger.Debugf("no usable snapshot for prefix %d, parsing from scratch", prefix)
		root.Truncate(0)
		return p.Parse(text, root)
	}
	logger.Debugf("resuming at token %d of %d (common prefix %d)",
		s.pos, len(tokens), prefix)
	p.snapshots = p.snapshots[:s.pos]
	s.restore(p.ctx, p.lang.CloneState)
	p.ctx.tokens = tokens
	p.ctx.source = text
	p.stats = Stats{Tokens: len(tokens), ResumedAt: s.pos}
	p.run()
	return root, p.ctx
}

func (p *Parser[S]) findSnapshot(prefix int) *snapshot[S] {
	for i := min(prefix, len(p.snapshots)-1); i >= 0; i-- {
		s := p.snapshots[i]
		if s != nil && s.resumable && s.horizon < prefix {
			return s
		}
	}
	return nil
}

// The main loop.
func (p *Parser[S]) run() {
	ctx := p.ctx
	for {
		p.record()
		tok := ctx.Peek()
		if tok.Kind == EOF {
			break
		}
		p.stats.Iterations++
		before := ctx.pos
		handled := false
		var last Consumer[S]
		for _, c := range p.lang.Consumers {
			if c.Consume(ctx, tok) {
				handled, last = true, c
				break
			}
		}
		if !handled {
			ctx.Report(ErrUnrecognized, tok, "no consumer accepted %s %q",
				p.lang.tokenName(tok.Kind), tok.Text)
			ctx.Advance(1)
		}
		if ctx.pos == before {
			if name := consumerName(last); name != "" {
				ctx.Report(ErrStuck, tok, "consumer %s did not advance past token %d (%s)",
					name, before, p.lang.tokenName(tok.Kind))
			} else {
				ctx.Report(ErrStuck, tok, "no progress at token %d (%s)",
					before, p.lang.tokenName(tok.Kind))
			}
			p.stats.Aborted = true
			logger.Warningf("%s: aborted at token %d", p.config.name, before)
			break
		}
	}
	if p.lang.Finish != nil {
		p.lang.Finish(ctx)
	}
	logger.Debugf("%s: %d tokens, resumed at %d, %d iterations, %d diagnostics",
		p.config.name, p.stats.Tokens, p.stats.ResumedAt, p.stats.Iterations, len(ctx.diags))
}

// Records a snapshot at the current index.
func (p *Parser[S]) record() {
	ctx := p.ctx
	for len(p.snapshots) <= ctx.pos {
		p.snapshots = append(p.snapshots, nil)
	}
	resumable := p.lang.Resumable == nil || p.lang.Resumable(ctx)
	p.snapshots[ctx.pos] = takeSnapshot(ctx, p.lang.CloneState, resumable)
}
