// Command marktree parses Markdown into a document tree.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"src.marktree.dev/pkg/config"
	"src.marktree.dev/pkg/diag"
	"src.marktree.dev/pkg/env"
	"src.marktree.dev/pkg/logutil"
	"src.marktree.dev/pkg/pprof"
	"src.marktree.dev/pkg/sys"
)

var logger = logutil.GetLogger("marktree.cmd")

// Returned by commands that already reported their problems.
var errProblems = errors.New("problems found")

type app struct {
	stdin          io.Reader
	stdout, stderr io.Writer

	configPath   string
	verbosity    int
	profiles     pprof.Profiles
	stopProfiles func() error
	cfg          *config.Config
}

func main() {
	a := &app{stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr}
	os.Exit(a.run(context.Background(), os.Args[1:]))
}

func (a *app) run(ctx context.Context, args []string) int {
	root := a.rootCmd()
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if a.stopProfiles != nil {
		if perr := a.stopProfiles(); perr != nil {
			fmt.Fprintln(a.stderr, "marktree: write profiles:", perr)
		}
	}
	if err != nil {
		if !errors.Is(err, errProblems) {
			fmt.Fprintln(a.stderr, "marktree:", err)
		}
		return 1
	}
	return 0
}

func (a *app) rootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "marktree",
		Short:         "Parse Markdown into a document tree",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}
	rootCmd.SetIn(a.stdin)
	rootCmd.SetOut(a.stdout)
	rootCmd.SetErr(a.stderr)
	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", defaultConfigPath(),
		"path of the configuration file")
	rootCmd.PersistentFlags().CountVarP(&a.verbosity, "verbose", "v",
		"log more; repeat for debug messages")
	rootCmd.PersistentFlags().StringVar(&a.profiles.CPU, "cpuprofile", "",
		"write CPU profile to file")
	rootCmd.PersistentFlags().StringVar(&a.profiles.Allocs, "allocsprofile", "",
		"write memory allocation profile to file")

	rootCmd.AddCommand(a.newParseCmd())
	rootCmd.AddCommand(a.newWatchCmd())
	rootCmd.AddCommand(a.newLSPCmd())
	rootCmd.AddCommand(a.newVersionCmd())
	return rootCmd
}

func defaultConfigPath() string {
	if path := os.Getenv(env.MARKTREE_CONFIG); path != "" {
		return path
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "marktree", "config.yaml")
}

func (a *app) setup() error {
	cfg := config.Default()
	if a.configPath != "" {
		var err error
		cfg, err = config.Load(a.configPath)
		if err != nil {
			return err
		}
	}
	a.cfg = cfg
	logutil.Configure(max(cfg.Log.Verbosity, a.verbosity), cfg.Log.File)
	diag.SetColor(isTerminal(a.stderr) && os.Getenv(env.NO_COLOR) == "")
	logger.Debugf("configuration loaded from %q", a.configPath)
	a.stopProfiles = a.profiles.Start(a.stderr)
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && sys.IsATTY(f)
}

// Width of values in tree dumps; 0 selects the default.
func (a *app) dumpWidth() int {
	f, ok := a.stdout.(*os.File)
	if !ok || !sys.IsATTY(f) {
		return 0
	}
	_, col := sys.WinSize(f)
	return max(col/2, 0)
}
