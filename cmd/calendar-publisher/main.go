package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/alexflint/go-arg"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/term"
)

type args struct {
	Post   *postArgs   `arg:"subcommand:post" help:"publish the next ready post in the calendar"`
	Status *statusArgs `arg:"subcommand:status" help:"show what is left in the calendar"`
	Whoami *whoamiArgs `arg:"subcommand:whoami" help:"check the token by fetching the account it belongs to"`

	EnvFile  string `arg:"--env-file" default:".env" help:"file of KEY=value lines loaded into the environment if it exists"`
	Verbose  bool   `arg:"-v,--verbose" help:"log debug output"`
	JSONLogs bool   `arg:"--json-logs" help:"log JSON lines even when stderr is a terminal"`
}

func (args) Description() string {
	return "publishes one post per run from a CSV content calendar"
}

// loadEnvFile loads KEY=value pairs without overriding variables that are
// already set in the environment
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("error loading %s: %w", path, err)
	}
	return nil
}

func newLogger(out *os.File, verbose, jsonLogs bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}

	var w io.Writer = out
	if !jsonLogs && term.IsTerminal(int(out.Fd())) {
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}

	return zerolog.New(w).Level(level).With().
		Timestamp().
		Str("run", uuid.NewString()).
		Logger()
}

func main() {
	ctx := context.Background()

	var args args
	p := arg.MustParse(&args)

	if err := loadEnvFile(args.EnvFile); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	log := newLogger(os.Stderr, args.Verbose, args.JSONLogs)

	var err error
	switch {
	case args.Post != nil:
		var code int
		code, err = post(ctx, args.Post, log)
		if err == nil {
			os.Exit(code)
		}
	case args.Status != nil:
		err = status(ctx, args.Status, args.Verbose)
	case args.Whoami != nil:
		err = whoami(ctx, args.Whoami)
	default:
		p.Fail("you must specify a subcommand")
	}

	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
