package errutil

import (
	"errors"
	"io/fs"
	"testing"

	"src.marktree.dev/pkg/tt"
)

var (
	err1 = errors.New("error 1")
	err2 = errors.New("error 2")
	err3 = errors.New("error 3")
)

func TestMulti(t *testing.T) {
	tt.Test(t, tt.Fn("Multi", Multi), tt.Table{
		tt.Args().Rets(nil),
		tt.Args(err1).Rets(err1),
		tt.Args(err1, err2).Rets(multiError{err1, err2}),
		tt.Args(Multi(err1, err2), err3).Rets(multiError{err1, err2, err3}),
	})
}

func TestMulti_SkipsNil(t *testing.T) {
	if err := Multi(nil, nil); err != nil {
		t.Errorf("got %v, want nil", err)
	}
	if err := Multi(nil, err1, nil); err != err1 {
		t.Errorf("got %v, want %v", err, err1)
	}
}

func TestMulti_Error(t *testing.T) {
	if got, want := Multi(err1, err2).Error(), "multiple errors: error 1; error 2"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestMulti_Is(t *testing.T) {
	err := Multi(err1, fs.ErrNotExist)
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("errors.Is does not see a combined error")
	}
	if errors.Is(err, err2) {
		t.Errorf("errors.Is sees an error that is not combined")
	}
}
