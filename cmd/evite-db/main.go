// Command evite-db is the operator tool for the evite database.
//
//	evite-db [-config config.json] reset   drop and recreate every table
//	evite-db [-config config.json] dump    print invitations, guests and RSVP state
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"evite/config"
	"evite/db"
	"evite/logging"
	"evite/store"
)

func main() {
	configPath := flag.String("config", "", "path to the JSON configuration file")
	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), "usage: evite-db [-config file] reset|dump")
		flag.PrintDefaults()
	}
	flag.Parse()

	logger := logging.New(os.Stderr, "info", "console")
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("loading config")
	}
	conn, err := db.Open(cfg.DatabasePath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.DatabasePath).Msg("opening database")
	}
	defer conn.Close()

	if err := run(context.Background(), flag.Arg(0), conn, os.Stdout); err != nil {
		logger.Error().Err(err).Msg(flag.Arg(0) + " failed")
		conn.Close()
		os.Exit(1)
	}
	if flag.Arg(0) == "reset" {
		logger.Info().Str("path", cfg.DatabasePath).Msg("database reset")
	}
}

var errUnknownCommand = errors.New("unknown command")

func run(ctx context.Context, cmd string, conn *sql.DB, w io.Writer) error {
	switch cmd {
	case "reset":
		return db.Reset(ctx, conn)
	case "dump":
		return dump(ctx, store.New(conn), w)
	}
	return fmt.Errorf("%w %q", errUnknownCommand, cmd)
}

func dump(ctx context.Context, st *store.Store, w io.Writer) error {
	invitations, err := st.AllInvitations(ctx)
	if err != nil {
		return err
	}
	if len(invitations) == 0 {
		fmt.Fprintln(w, "No invitations found")
		return nil
	}
	for _, inv := range invitations {
		fmt.Fprintf(w, "Invitation: %s (ID: %d)\n", inv.EventName, inv.ID)
		guests, err := st.ListGuests(ctx, inv.ID)
		if err != nil {
			return err
		}
		if len(guests) == 0 {
			fmt.Fprintln(w, "  No guests for this invitation")
			continue
		}
		for _, g := range guests {
			fmt.Fprintf(w, "  - Guest: %s, Email: %s, RSVP: %s\n", g.Name, g.Email, g.RSVP)
		}
	}
	return nil
}
