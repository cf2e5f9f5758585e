// Package pprof adds profiling support to the marktree command.
package pprof

import (
	"fmt"
	"io"
	"os"
	"runtime/pprof"

	"src.marktree.dev/pkg/errutil"
)

// Profiles names the files profiles are written to. Empty names disable the
// corresponding profile.
type Profiles struct {
	CPU    string
	Allocs string
}

// Start starts the requested profiles and returns a function that finishes
// them. Profiles that cannot be started are skipped with a warning written to
// warn.
func (p Profiles) Start(warn io.Writer) (stop func() error) {
	var cleanups []func() error
	if p.CPU != "" {
		f, err := os.Create(p.CPU)
		if err == nil {
			err = pprof.StartCPUProfile(f)
			if err != nil {
				f.Close()
			}
		}
		if err != nil {
			fmt.Fprintln(warn, "Warning: cannot create CPU profile:", err)
			fmt.Fprintln(warn, "Continuing without CPU profiling.")
		} else {
			cleanups = append(cleanups, func() error {
				pprof.StopCPUProfile()
				return f.Close()
			})
		}
	}
	if p.Allocs != "" {
		f, err := os.Create(p.Allocs)
		if err != nil {
			fmt.Fprintln(warn, "Warning: cannot create memory allocation profile:", err)
			fmt.Fprintln(warn, "Continuing without memory allocation profiling.")
		} else {
			cleanups = append(cleanups, func() error {
				return errutil.Multi(pprof.Lookup("allocs").WriteTo(f, 0), f.Close())
			})
		}
	}
	return func() error {
		var errs []error
		for _, cleanup := range cleanups {
			errs = append(errs, cleanup())
		}
		return errutil.Multi(errs...)
	}
}
