package runner

import (
	"errors"
	"fmt"

	"github.com/alexflint/calendar-publisher/ledger"
	"github.com/alexflint/calendar-publisher/medium"
)

// ErrConfigMissing means the credential environment variable was not set
var ErrConfigMissing = errors.New("credential not configured")

// Kind classifies how a run ended
type Kind int

const (
	KindPosted Kind = iota
	KindNothingToDo
	KindDryRun
	KindConfigMissing
	KindAuthFailed
	KindLedgerFailed
	KindPublishFailed
	KindLedgerInconsistent
)

func (k Kind) String() string {
	switch k {
	case KindPosted:
		return "posted"
	case KindNothingToDo:
		return "nothing-to-do"
	case KindDryRun:
		return "dry-run"
	case KindConfigMissing:
		return "config-missing"
	case KindAuthFailed:
		return "auth-failed"
	case KindLedgerFailed:
		return "ledger-failed"
	case KindPublishFailed:
		return "publish-failed"
	case KindLedgerInconsistent:
		return "ledger-inconsistent"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Outcome is the result of one run. Fields are filled in as far as the run
// got before it stopped.
type Outcome struct {
	Kind   Kind
	User   *medium.User
	Record *ledger.Record
	Post   *medium.Post
	Err    error
}

// Success is true when the run did what it was supposed to, including when
// there was nothing left to post
func (o *Outcome) Success() bool {
	switch o.Kind {
	case KindPosted, KindNothingToDo, KindDryRun:
		return true
	}
	return false
}

// ExitCode maps the outcome to a process exit status: zero for success and
// one for every handled failure, so that the scheduler flags the run
func (o *Outcome) ExitCode() int {
	if o.Success() {
		return 0
	}
	return 1
}

func (o *Outcome) String() string {
	switch o.Kind {
	case KindPosted:
		return fmt.Sprintf("posted %q: %s", o.Record.Title, o.Post.URL)
	case KindNothingToDo:
		return "no ready posts in the calendar, nothing to do"
	case KindDryRun:
		return fmt.Sprintf("dry run: would post %q (id %s)", o.Record.Title, o.Record.ID)
	}
	return fmt.Sprintf("%s: %v", o.Kind, o.Err)
}
