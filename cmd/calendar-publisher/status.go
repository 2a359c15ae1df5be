package main

import (
	"context"
	"fmt"

	"github.com/alexflint/calendar-publisher/ledger"
	"github.com/kr/pretty"
)

type statusArgs struct {
	LedgerArgs
}

func status(ctx context.Context, args *statusArgs, verbose bool) error {
	store, closeLedger, err := openLedger(ctx, &args.LedgerArgs)
	if err != nil {
		return err
	}
	defer closeLedger()

	l, err := store.Load(ctx)
	if err != nil {
		return err
	}

	pending := l.Pending()
	posted := l.Count(ledger.StatusPosted)
	fmt.Printf("%s: %d posts, %d ready, %d posted", store.Location(), l.Len(), len(pending), posted)
	if other := l.Len() - len(pending) - posted; other > 0 {
		fmt.Printf(", %d with another status", other)
	}
	fmt.Println()

	if len(pending) == 0 {
		fmt.Println("nothing left to post")
		return nil
	}

	next := pending[0]
	fmt.Printf("next up: %q (id %s)\n", next.Title, next.ID)
	if verbose {
		for _, r := range pending {
			pretty.Println(r)
		}
	}
	return nil
}
