package main

import (
	"dexnetwork/internal/app"
	"dexnetwork/internal/config"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"
)

const (
	exitOK       = 0
	exitFailure  = 1
	exitBadFlags = 2
)

type flags struct {
	config string
	from   string
	to     string
	panel  bool
	serve  bool
}

func parseFlags(args []string, stderr io.Writer) (*flags, error) {
	fs := flag.NewFlagSet("pipeline", flag.ContinueOnError)
	fs.SetOutput(stderr)

	f := &flags{}
	fs.StringVar(&f.config, "config", os.Getenv("CONFIG"), "path to config.yaml (env CONFIG)")
	fs.StringVar(&f.from, "from", "", "first day YYYY-MM-DD (default sample.start)")
	fs.StringVar(&f.to, "to", "", "last day YYYY-MM-DD inclusive (default sample.end)")
	fs.BoolVar(&f.panel, "panel", false, "assemble panels after the run")
	fs.BoolVar(&f.serve, "serve", false, "serve the read API after the run until interrupted")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if f.config == "" {
		f.config = "cmd/pipeline/config.yaml"
	}
	return f, nil
}

// resolveRange flags win over the configured sample period
func resolveRange(f *flags, cfg *config.Config) (time.Time, time.Time, error) {
	from, to := f.from, f.to
	if from == "" {
		from = cfg.Sample.Start
	}
	if to == "" {
		to = cfg.Sample.End
	}
	if from == "" || to == "" {
		return time.Time{}, time.Time{}, errors.New("-from and -to are required when sample period is not configured")
	}

	start, err := time.Parse(time.DateOnly, from)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("bad -from %q, error=%w", from, err)
	}
	end, err := time.Parse(time.DateOnly, to)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("bad -to %q, error=%w", to, err)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("-to %s before -from %s", to, from)
	}
	return start, end, nil
}

func run(args []string, stderr io.Writer) int {
	f, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintln(stderr, err)
		return exitBadFlags
	}

	cfg, err := config.Load(f.config)
	if err != nil {
		fmt.Fprintf(stderr, "Failed load config, error=%v\n", err)
		return exitFailure
	}

	from, to, err := resolveRange(f, cfg)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitBadFlags
	}

	rep, err := app.Run(cfg, app.Options{
		From:  from,
		To:    to,
		Panel: f.panel || cfg.Panel.Enabled,
		Serve: f.serve,
	})
	if err != nil {
		fmt.Fprintf(stderr, "Pipeline run failed, error=%v\n", err)
		return exitFailure
	}

	if rep != nil && rep.Run != nil {
		fmt.Fprintf(stderr, "run %s: processed=%d resumed=%d skipped=%d failed=%d artifacts=%d\n",
			rep.Run.RunID, len(rep.Run.Processed), len(rep.Run.Resumed), len(rep.Run.Skipped), len(rep.Run.Failed), rep.Run.Artifacts)
	}
	return exitOK
}

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}
