package main

import (
	"context"
	"fmt"

	"github.com/alexflint/calendar-publisher/ledger"
	"github.com/alexflint/calendar-publisher/medium"
	"github.com/alexflint/calendar-publisher/runner"
	"github.com/pkg/browser"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
)

type LedgerArgs struct {
	Ledger         string `arg:"--ledger,env:CALENDAR_LEDGER" default:"content_calendar.csv" help:"path or gs://bucket/object of the calendar CSV"`
	GCSCredentials string `arg:"--gcs-credentials,env:CALENDAR_GCS_CREDENTIALS" help:"service account JSON for gs:// calendars"`
}

// openLedger opens the calendar storage and wraps it in a store
func openLedger(ctx context.Context, args *LedgerArgs) (*ledger.Store, func() error, error) {
	var opts []option.ClientOption
	if args.GCSCredentials != "" {
		opts = append(opts, option.WithCredentialsFile(args.GCSCredentials))
	}

	storage, err := ledger.Open(ctx, args.Ledger, opts...)
	if err != nil {
		return nil, nil, err
	}
	return ledger.NewStore(storage), storage.Close, nil
}

type APIArgs struct {
	TokenVar string `arg:"--token-var" default:"MEDIUM_TOKEN" help:"environment variable holding the integration token"`
	API      string `arg:"--api,env:MEDIUM_API_URL" default:"https://api.medium.com/v1" help:"base URL of the publishing API"`
}

type postArgs struct {
	LedgerArgs
	APIArgs
	Visibility string `default:"public" help:"public, draft, or unlisted"`
	Format     string `default:"markdown" help:"markdown or html"`
	DryRun     bool   `arg:"--dry-run" help:"select the next post but do not publish it"`
	Open       bool   `help:"open the published post in a browser"`
}

func (args *postArgs) validate() error {
	switch args.Visibility {
	case "public", "draft", "unlisted":
	default:
		return fmt.Errorf("invalid value for --visibility: %q", args.Visibility)
	}
	switch args.Format {
	case "markdown", "html":
	default:
		return fmt.Errorf("invalid value for --format: %q", args.Format)
	}
	return nil
}

// post runs one publish cycle and returns the exit status for the process
func post(ctx context.Context, args *postArgs, log zerolog.Logger) (int, error) {
	if err := args.validate(); err != nil {
		return 1, err
	}

	store, closeLedger, err := openLedger(ctx, &args.LedgerArgs)
	if err != nil {
		return 1, err
	}
	defer closeLedger()

	log.Debug().Str("ledger", store.Location()).Str("api", args.API).Msg("starting")

	connect := func(token string) runner.Publisher {
		return medium.New(medium.Config{
			BaseURL: args.API,
			Token:   token,
		})
	}

	r := runner.New(runner.Config{
		TokenVar:   args.TokenVar,
		Visibility: args.Visibility,
		Format:     args.Format,
		DryRun:     args.DryRun,
	}, store, connect, log)

	out := r.Run(ctx)
	fmt.Println(out)

	if args.Open && out.Kind == runner.KindPosted && out.Post.URL != "" {
		if err := browser.OpenURL(out.Post.URL); err != nil {
			log.Warn().Err(err).Msg("could not open browser")
		}
	}

	return out.ExitCode(), nil
}
