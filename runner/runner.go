// Package runner publishes the next ready post from the content calendar and
// records that it was posted.
package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/alexflint/calendar-publisher/ledger"
	"github.com/alexflint/calendar-publisher/medium"
	"github.com/rs/zerolog"
)

// Publisher is the remote platform
type Publisher interface {
	Identify(ctx context.Context) (*medium.User, error)
	Publish(ctx context.Context, user *medium.User, r medium.PostRequest) (*medium.Post, error)
}

// Ledger is the content calendar
type Ledger interface {
	LoadPending(ctx context.Context) (*ledger.Record, error)
	MarkPosted(ctx context.Context, id, date string) error
}

// Config holds the settings for a run
type Config struct {
	TokenVar   string // name of the environment variable holding the token
	Visibility string
	Format     string
	DryRun     bool // stop after selecting the record
}

// Runner executes one publish cycle
type Runner struct {
	Config
	Ledger    Ledger
	Connect   func(token string) Publisher // builds the client once the token is known
	LookupEnv func(string) (string, bool)
	Now       func() time.Time
	Log       zerolog.Logger
}

// New creates a runner that reads the token from the process environment
func New(cfg Config, l Ledger, connect func(token string) Publisher, log zerolog.Logger) *Runner {
	return &Runner{
		Config:    cfg,
		Ledger:    l,
		Connect:   connect,
		LookupEnv: os.LookupEnv,
		Now:       time.Now,
		Log:       log,
	}
}

// Run loads the credential, identifies the caller, selects the first ready
// record, publishes it, and marks it posted. Each step stops the run on
// failure; nothing is retried.
func (r *Runner) Run(ctx context.Context) *Outcome {
	token, ok := r.LookupEnv(r.TokenVar)
	if !ok || strings.TrimSpace(token) == "" {
		err := fmt.Errorf("%w: environment variable %s is not set", ErrConfigMissing, r.TokenVar)
		r.Log.Error().Err(err).Msg("cannot load credential")
		return &Outcome{Kind: KindConfigMissing, Err: err}
	}
	r.Log.Debug().Str("var", r.TokenVar).Msg("loaded credential")

	client := r.Connect(strings.TrimSpace(token))

	user, err := client.Identify(ctx)
	if err != nil {
		r.Log.Error().Err(err).Msg("authentication failed")
		return &Outcome{Kind: KindAuthFailed, Err: err}
	}
	r.Log.Info().Str("user", user.Username).Str("name", user.Name).Msg("authenticated")

	rec, err := r.Ledger.LoadPending(ctx)
	if errors.Is(err, ledger.ErrNoPending) {
		r.Log.Info().Msg("no ready posts in the calendar, nothing to do")
		return &Outcome{Kind: KindNothingToDo, User: user}
	}
	if err != nil {
		r.Log.Error().Err(err).Msg("cannot read calendar")
		return &Outcome{Kind: KindLedgerFailed, User: user, Err: err}
	}
	log := r.Log.With().Str("id", rec.ID).Str("title", rec.Title).Logger()
	log.Info().Strs("tags", rec.Tags).Msg("selected next post")

	if r.DryRun {
		log.Info().Msg("dry run, not publishing")
		return &Outcome{Kind: KindDryRun, User: user, Record: rec}
	}

	if len(rec.Tags) > medium.MaxTags {
		log.Warn().Strs("dropped", rec.Tags[medium.MaxTags:]).Msgf("only the first %d tags are kept", medium.MaxTags)
	}

	post, err := client.Publish(ctx, user, medium.PostRequest{
		Title:      rec.Title,
		Content:    rec.Content,
		Tags:       rec.Tags,
		Visibility: r.Visibility,
		Format:     r.Format,
	})
	if err != nil {
		log.Error().Err(err).Msg("publish failed, post left as ready")
		return &Outcome{Kind: KindPublishFailed, User: user, Record: rec, Err: err}
	}
	log.Info().Str("url", post.URL).Str("post", post.ID).Msg("published")

	date := r.Now().Format(ledger.DateFormat)
	err = r.Ledger.MarkPosted(ctx, rec.ID, date)
	if errors.Is(err, ledger.ErrNotFound) {
		log.Error().Err(err).Msg("published post vanished from the calendar")
		return &Outcome{Kind: KindLedgerInconsistent, User: user, Record: rec, Post: post, Err: err}
	}
	if err != nil {
		log.Error().Err(err).Msg("published but could not update calendar")
		return &Outcome{Kind: KindLedgerFailed, User: user, Record: rec, Post: post, Err: err}
	}
	log.Info().Str("posted_date", date).Msg("marked as posted")

	return &Outcome{Kind: KindPosted, User: user, Record: rec, Post: post}
}
