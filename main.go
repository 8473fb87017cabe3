package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/Olex1313/mhs-db-join/cg"
	"github.com/Olex1313/mhs-db-join/config"
	"github.com/Olex1313/mhs-db-join/join"
	"github.com/Olex1313/mhs-db-join/plan"
	"github.com/cockroachdb/errors"
	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

var errUsage = errors.New("usage error")

// stageError tags an error with the step of the run that produced it.
type stageError struct {
	stage string
	err   error
}

func (self *stageError) Error() string { return self.err.Error() }
func (self *stageError) Unwrap() error { return self.err }

func oops(stage string, err error) error {
	return &stageError{stage: stage, err: err}
}

func usage(f string, args ...interface{}) error {
	return oops("usage", errors.Mark(errors.Newf(f, args...), errUsage))
}

type options struct {
	fromFlags  config.Config
	configPath string
	explain    bool
	dryRun     bool
	emitAwk    bool
	verbose    bool
}

func parseField(name, s string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 {
		return 0, usage("%s must be a positive column number, got %q", name, s)
	}
	return v - 1, nil
}

func parseArgs(args []string) (plan.Args, error) {
	lf, err := parseField("LEFT_FIELD", args[1])
	if err != nil {
		return plan.Args{}, err
	}
	rf, err := parseField("RIGHT_FIELD", args[3])
	if err != nil {
		return plan.Args{}, err
	}
	kind, err := join.ParseKind(args[4])
	if err != nil {
		return plan.Args{}, oops("usage", errors.Mark(err, errUsage))
	}
	algo := join.AlgoAuto
	if len(args) == 6 {
		if algo, err = join.ParseAlgorithm(args[5]); err != nil {
			return plan.Args{}, oops("plan", err)
		}
	}
	return plan.Args{
		LeftPath:   args[0],
		LeftField:  lf,
		RightPath:  args[2],
		RightField: rf,
		Kind:       kind,
		Algorithm:  algo,
	}, nil
}

func (self *options) settings(cmd *cobra.Command, fs afero.Fs) (config.Config, error) {
	cfg := self.fromFlags
	if self.configPath != "" {
		var err error
		if cfg, err = config.Load(fs, self.configPath); err != nil {
			return cfg, oops("config", err)
		}
		cfg.Merge(cmd.Flags(), &self.fromFlags)
	}
	if self.verbose {
		cfg.LogLevel = config.LevelDebug
	}
	if err := cfg.Validate(); err != nil {
		return cfg, oops("usage", errors.Mark(err, errUsage))
	}
	return cfg, nil
}

func runJoin(
	cmd *cobra.Command,
	args []string,
	opts *options,
	stdout io.Writer,
	stderr io.Writer,
) error {
	fs := afero.NewOsFs()

	pa, err := parseArgs(args)
	if err != nil {
		return err
	}
	cfg, err := opts.settings(cmd, fs)
	if err != nil {
		return err
	}
	log, err := cfg.NewLogger(stderr)
	if err != nil {
		return oops("config", err)
	}

	p, err := plan.PlanJoin(pa, cfg.Plan(fs, log))
	if err != nil {
		return oops("plan", err)
	}
	if opts.explain {
		p.Explain(stderr)
	}
	if opts.dryRun {
		fmt.Fprint(stdout, p.Dump())
		return nil
	}
	if opts.emitAwk {
		code, err := cg.Generate(p, &cg.Config{})
		if err != nil {
			return oops("code-gen", err)
		}
		fmt.Fprintln(stdout, code)
		return nil
	}
	if err := p.Run(stdout); err != nil {
		return oops("join", err)
	}
	return nil
}

func makeJoinCommand(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{fromFlags: config.Default()}

	command := &cobra.Command{
		Use:   "mhs-db-join LEFT LEFT_FIELD RIGHT RIGHT_FIELD KIND [ALGORITHM]",
		Short: "equi-join two delimited files",
		Long: `Join two delimited files on one column each and write the joined rows to
stdout. Columns are numbered from 1.

KIND is one of inner, left, right, outer. ALGORITHM forces one of nested,
hash, sort-merge; without it the algorithm is picked from the input sizes
and the memory budget.

Typical usage:
    mhs-db-join users.csv 1 orders.csv 2 inner
    mhs-db-join big.csv 3 huge.csv 1 left sort-merge --memory-budget=512MiB --temp-dir=/scratch
`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) < 5 || len(args) > 6 {
				return usage("expected 5 or 6 arguments, got %d", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJoin(cmd, args, opts, stdout, stderr)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	command.SetOut(stdout)
	command.SetErr(stderr)
	command.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return oops("usage", errors.Mark(err, errUsage))
	})

	flags := command.Flags()
	opts.fromFlags.BindFlags(flags)
	flags.StringVarP(&opts.configPath, "config", "c", "", "YAML file with settings, flags override it")
	flags.BoolVar(&opts.explain, "explain", false, "print the plan to stderr before joining")
	flags.BoolVar(&opts.dryRun, "dry-run", false, "print the plan and stop")
	flags.BoolVar(&opts.emitAwk, "emit-awk", false, "print an equivalent awk program instead of joining")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")
	return command
}

// run executes the command line and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	command := makeJoinCommand(stdout, stderr)
	command.SetArgs(args)
	err := command.Execute()
	if err == nil {
		return exitOK
	}

	stage := "join"
	var se *stageError
	if errors.As(err, &se) {
		stage = se.stage
	}
	fmt.Fprintln(stderr, color.RedString("ERROR [%s] %s", stage, err))
	if errors.Is(err, errUsage) {
		fmt.Fprintf(stderr, "see '%s --help'\n", command.Name())
		return exitUsage
	}
	return exitError
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}
