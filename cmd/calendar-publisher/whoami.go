package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/alexflint/calendar-publisher/medium"
	"github.com/kr/pretty"
)

type whoamiArgs struct {
	APIArgs
}

// lookupToken reads the token from the environment, treating a blank value
// the same as an unset one
func lookupToken(name string) (string, error) {
	token := strings.TrimSpace(os.Getenv(name))
	if token == "" {
		return "", fmt.Errorf("environment variable %s is not set", name)
	}
	return token, nil
}

func whoami(ctx context.Context, args *whoamiArgs) error {
	token, err := lookupToken(args.TokenVar)
	if err != nil {
		return err
	}

	client := medium.New(medium.Config{
		BaseURL: args.API,
		Token:   token,
	})

	me, err := client.Identify(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("authenticated as %s (%s)\n", me.Username, me.Name)
	pretty.Println(me)
	return nil
}
