package parse

// Consumer is offered tokens by the driver. Consume either returns false
// leaving ctx untouched, or handles the token, which means advancing the
// cursor past at least one token and possibly changing the tree, and returns
// true.
type Consumer[S any] interface {
	Consume(ctx *Context[S], tok Token) bool
}

// ConsumerFunc adapts a function to the Consumer interface.
type ConsumerFunc[S any] func(ctx *Context[S], tok Token) bool

// Consume calls f.
func (f ConsumerFunc[S]) Consume(ctx *Context[S], tok Token) bool { return f(ctx, tok) }

// Named attaches a name to a consumer function. The name is used in
// diagnostics about the consumer.
func Named[S any](name string, f func(ctx *Context[S], tok Token) bool) Consumer[S] {
	return namedConsumer[S]{name, f}
}

type namedConsumer[S any] struct {
	name string
	f    func(ctx *Context[S], tok Token) bool
}

func (c namedConsumer[S]) Consume(ctx *Context[S], tok Token) bool { return c.f(ctx, tok) }

func (c namedConsumer[S]) Name() string { return c.name }

// consumerName returns the name of a consumer that has one, or "".
func consumerName(c any) string {
	if n, ok := c.(interface{ Name() string }); ok {
		return n.Name()
	}
	return ""
}

// Language bundles everything the driver needs to parse one language.
type Language[S any] struct {
	// Name of the language, used in log messages.
	Name string
	// Tokenize turns source text into tokens.
	Tokenize Tokenizer
	// NewState returns the initial language state of a parse.
	NewState func() S
	// CloneState returns a copy of the state that shares nothing mutable with
	// the original. It is used for snapshots.
	CloneState func(S) S
	// Consumers are offered each token in order; the first one that handles
	// it wins.
	Consumers []Consumer[S]
	// Finish is called once the EOF token is reached. It may be nil.
	Finish func(ctx *Context[S])
	// Resumable reports whether an incremental parse may resume from the
	// current state. If nil, every state is resumable.
	Resumable func(ctx *Context[S]) bool
	// TokenName returns a human-readable name of a token kind. It may be nil.
	TokenName func(TokenKind) string
}

func (l *Language[S]) tokenName(k TokenKind) string {
	if k == EOF {
		return "end of input"
	}
	if l.TokenName != nil {
		return l.TokenName(k)
	}
	return "token"
}
