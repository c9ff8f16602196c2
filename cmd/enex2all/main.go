package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/automaxprocs/maxprocs"

	"github.com/alnah/go-enex2all/internal/config"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	flags, args, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		os.Exit(1)
	}

	if flags.version {
		fmt.Println("enex2all", Version)
		return
	}

	if flags.initConfig != "" {
		if err := config.WriteDefault(flags.initConfig); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println("Wrote", flags.initConfig)
		return
	}

	// Configure GOMAXPROCS with conditional logging
	// Error ignored: maxprocs.Set only fails if GOMAXPROCS env is invalid,
	// in which case Go runtime defaults apply and the program continues safely.
	if flags.verbose {
		_, _ = maxprocs.Set(maxprocs.Logger(func(format string, args ...interface{}) {
			fmt.Fprintf(os.Stderr, format+"\n", args...)
		}))
	} else {
		_, _ = maxprocs.Set(maxprocs.Logger(func(string, ...interface{}) {}))
	}

	env := DefaultEnv()
	// Log level wants the config file's value; load it cheaply up front
	// and fall back to defaults if the real load fails later anyway.
	level := config.DefaultConfig().Logging.Level
	if flags.config != "" {
		if cfg, err := config.LoadConfig(flags.config); err == nil {
			level = cfg.Logging.Level
		}
	}
	env.Logger = newLogger(os.Stderr, level, flags.quiet, flags.verbose)

	ctx, stop := notifyContext(context.Background())
	defer stop()

	failed, err := run(ctx, flags, args, env)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if failed > 0 {
		os.Exit(1)
	}
}
