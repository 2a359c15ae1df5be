package runner

import (
	"context"
	"errors"
	"io/ioutil"
	"path/filepath"
	"testing"
	"time"

	"github.com/alexflint/calendar-publisher/ledger"
	"github.com/alexflint/calendar-publisher/medium"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const calendar = `id,title,tags,status,posted_date,content
1,One,,posted,2024-01-01,first
2,Two,"a,b",ready,,second
3,Three,,ready,,third
`

type fakePublisher struct {
	identifyErr error
	publishErr  error
	identified  int
	published   []medium.PostRequest
}

func (f *fakePublisher) Identify(ctx context.Context) (*medium.User, error) {
	f.identified++
	if f.identifyErr != nil {
		return nil, f.identifyErr
	}
	return &medium.User{ID: "u1", Username: "alex", Name: "Alex"}, nil
}

func (f *fakePublisher) Publish(ctx context.Context, user *medium.User, r medium.PostRequest) (*medium.Post, error) {
	f.published = append(f.published, r)
	if f.publishErr != nil {
		return nil, f.publishErr
	}
	return &medium.Post{ID: "p1", URL: "https://example.com/p1"}, nil
}

// countingLedger wraps a ledger and records calls
type countingLedger struct {
	Ledger
	loads   int
	commits int
	markErr error
}

func (c *countingLedger) LoadPending(ctx context.Context) (*ledger.Record, error) {
	c.loads++
	return c.Ledger.LoadPending(ctx)
}

func (c *countingLedger) MarkPosted(ctx context.Context, id, date string) error {
	c.commits++
	if c.markErr != nil {
		return c.markErr
	}
	return c.Ledger.MarkPosted(ctx, id, date)
}

type fixture struct {
	runner    *Runner
	publisher *fakePublisher
	ledger    *countingLedger
	path      string
	connected []string
}

func newFixture(t *testing.T, content string) *fixture {
	path := filepath.Join(t.TempDir(), "calendar.csv")
	require.NoError(t, ioutil.WriteFile(path, []byte(content), 0644))

	f := fixture{
		publisher: &fakePublisher{},
		ledger:    &countingLedger{Ledger: ledger.NewStore(&ledger.FileStorage{Path: path})},
		path:      path,
	}
	cfg := Config{TokenVar: "TEST_TOKEN", Visibility: "public", Format: "markdown"}
	f.runner = New(cfg, f.ledger, func(token string) Publisher {
		f.connected = append(f.connected, token)
		return f.publisher
	}, zerolog.Nop())
	f.runner.LookupEnv = func(name string) (string, bool) {
		if name == "TEST_TOKEN" {
			return "secret", true
		}
		return "", false
	}
	f.runner.Now = func() time.Time {
		return time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)
	}
	return &f
}

func (f *fixture) contents(t *testing.T) string {
	buf, err := ioutil.ReadFile(f.path)
	require.NoError(t, err)
	return string(buf)
}

func TestRunPostsFirstReady(t *testing.T) {
	f := newFixture(t, calendar)

	out := f.runner.Run(context.Background())
	require.Equal(t, KindPosted, out.Kind, out.String())
	assert.True(t, out.Success())
	assert.Equal(t, 0, out.ExitCode())
	assert.Equal(t, "2", out.Record.ID)
	assert.Equal(t, "https://example.com/p1", out.Post.URL)
	assert.Equal(t, []string{"secret"}, f.connected)

	require.Len(t, f.publisher.published, 1)
	req := f.publisher.published[0]
	assert.Equal(t, "Two", req.Title)
	assert.Equal(t, "second", req.Content)
	assert.Equal(t, []string{"a", "b"}, req.Tags)
	assert.Equal(t, "public", req.Visibility)
	assert.Equal(t, "markdown", req.Format)

	assert.Equal(t, `id,title,tags,status,posted_date,content
1,One,,posted,2024-01-01,first
2,Two,"a,b",posted,2024-03-05,second
3,Three,,ready,,third
`, f.contents(t))
}

func TestRunTwiceAdvancesQueue(t *testing.T) {
	f := newFixture(t, calendar)

	require.Equal(t, KindPosted, f.runner.Run(context.Background()).Kind)
	out := f.runner.Run(context.Background())
	require.Equal(t, KindPosted, out.Kind)
	assert.Equal(t, "3", out.Record.ID)

	out = f.runner.Run(context.Background())
	assert.Equal(t, KindNothingToDo, out.Kind)
	assert.Len(t, f.publisher.published, 2)
}

func TestRunConfigMissing(t *testing.T) {
	f := newFixture(t, calendar)
	f.runner.TokenVar = "UNSET_TOKEN"

	out := f.runner.Run(context.Background())
	assert.Equal(t, KindConfigMissing, out.Kind)
	assert.True(t, errors.Is(out.Err, ErrConfigMissing))
	assert.Equal(t, 1, out.ExitCode())
	assert.Empty(t, f.connected)
	assert.Equal(t, 0, f.publisher.identified)
	assert.Equal(t, 0, f.ledger.loads)
}

func TestRunBlankTokenIsMissing(t *testing.T) {
	f := newFixture(t, calendar)
	f.runner.LookupEnv = func(string) (string, bool) { return "  ", true }

	out := f.runner.Run(context.Background())
	assert.Equal(t, KindConfigMissing, out.Kind)
	assert.Empty(t, f.connected)
}

func TestRunAuthFailedLeavesLedger(t *testing.T) {
	f := newFixture(t, calendar)
	f.publisher.identifyErr = &medium.AuthError{StatusCode: 401, Status: "401 Unauthorized", Body: "bad token"}

	out := f.runner.Run(context.Background())
	assert.Equal(t, KindAuthFailed, out.Kind)
	assert.Equal(t, 1, out.ExitCode())
	var authErr *medium.AuthError
	assert.True(t, errors.As(out.Err, &authErr))
	assert.Equal(t, 0, f.ledger.loads)
	assert.Equal(t, 0, f.ledger.commits)
	assert.Empty(t, f.publisher.published)
	assert.Equal(t, calendar, f.contents(t))
}

func TestRunNothingToDo(t *testing.T) {
	f := newFixture(t, `id,title,tags,status,posted_date,content
1,One,,posted,2024-01-01,first
2,Two,,posted,2024-01-02,second
`)

	out := f.runner.Run(context.Background())
	assert.Equal(t, KindNothingToDo, out.Kind)
	assert.True(t, out.Success())
	assert.Equal(t, 0, out.ExitCode())
	assert.Empty(t, f.publisher.published)
	assert.Equal(t, 0, f.ledger.commits)
}

func TestRunPublishFailedLeavesRecordReady(t *testing.T) {
	f := newFixture(t, calendar)
	f.publisher.publishErr = &medium.PublishError{StatusCode: 400, Status: "400 Bad Request", Body: "nope"}

	out := f.runner.Run(context.Background())
	assert.Equal(t, KindPublishFailed, out.Kind)
	assert.Equal(t, 1, out.ExitCode())
	assert.Equal(t, 0, f.ledger.commits)
	assert.Equal(t, calendar, f.contents(t))

	// the next run picks the same record again
	f.publisher.publishErr = nil
	out = f.runner.Run(context.Background())
	require.Equal(t, KindPosted, out.Kind)
	assert.Equal(t, "2", out.Record.ID)
}

func TestRunDryRun(t *testing.T) {
	f := newFixture(t, calendar)
	f.runner.DryRun = true

	out := f.runner.Run(context.Background())
	assert.Equal(t, KindDryRun, out.Kind)
	assert.Equal(t, 0, out.ExitCode())
	assert.Equal(t, "2", out.Record.ID)
	assert.Empty(t, f.publisher.published)
	assert.Equal(t, calendar, f.contents(t))
}

func TestRunLedgerInconsistent(t *testing.T) {
	f := newFixture(t, calendar)
	f.ledger.markErr = ledger.ErrNotFound

	out := f.runner.Run(context.Background())
	assert.Equal(t, KindLedgerInconsistent, out.Kind)
	assert.Equal(t, 1, out.ExitCode())
	assert.NotNil(t, out.Post)
}

func TestRunLedgerUnreadable(t *testing.T) {
	f := newFixture(t, "id,title\n1,x\n")

	out := f.runner.Run(context.Background())
	assert.Equal(t, KindLedgerFailed, out.Kind)
	assert.Equal(t, 1, out.ExitCode())
	assert.Empty(t, f.publisher.published)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "posted", KindPosted.String())
	assert.Equal(t, "ledger-inconsistent", KindLedgerInconsistent.String())
	assert.Equal(t, "kind(99)", Kind(99).String())
}
