// Command guardian is a terminal client for the community-safety backend.
//
// Usage:
//
//	guardian [global flags] <command> [command flags]
//
// Commands:
//
//	login          sign in with email and password
//	signup         create an account and sign in
//	logout         end the session
//	whoami         print the signed-in user
//	update-profile change profile fields
//	contacts       list, add or remove emergency contacts
//	open           navigate to a screen through the route guard
//	session        print the session state and token expiry
//	status         check the token store and the backend
//
// Settings come from GUARDIAN_* environment variables; see package config.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

// globals are flags accepted before the command name.
type globals struct {
	server   string
	store    string
	dsn      string
	logLevel string
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("guardian", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var g globals
	fs.StringVar(&g.server, "server", "", "Override the API base URL (e.g. https://api.example.org/api)")
	fs.StringVar(&g.store, "store", "", "Token store driver: memory|sqlite|redis")
	fs.StringVar(&g.dsn, "dsn", "", "SQLite database path for the sqlite store")
	fs.StringVar(&g.logLevel, "log-level", "", "Log level: debug|info|warn|error")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: guardian [flags] <login|signup|logout|whoami|update-profile|contacts|open|session|status> [args]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return flag.ErrHelp
	}

	cmd, ok := commands[fs.Arg(0)]
	if !ok {
		fs.Usage()
		return fmt.Errorf("unknown command %q", fs.Arg(0))
	}

	a, err := newApp(ctx, g, stdout, stderr)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	return cmd(ctx, a, fs.Args()[1:])
}
