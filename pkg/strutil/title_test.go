package strutil

import (
	"testing"

	"src.marktree.dev/pkg/tt"
)

func TestTitle(t *testing.T) {
	tt.Test(t, tt.Fn("Title", Title), tt.Table{
		tt.Args("").Rets(""),
		tt.Args("unclosed code fence").Rets("Unclosed code fence"),
		tt.Args("\xf0").Rets("\xf0"),
		tt.Args("FOO").Rets("FOO"),
		tt.Args("ǆ").Rets("ǅ"),
	})
}
