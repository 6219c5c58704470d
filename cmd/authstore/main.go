/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Command authstore administers the auth tables: it prepares storage, lists
// users and roles, sets role levels and purges or drops tables.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"github.com/suparena/authstore"
	"github.com/suparena/authstore/config"
)

const usage = `usage: authstore [flags] <command> [args]

commands:
  init                  create the keyspace and tables
  users                 list users
  roles                 list roles and their levels
  set-role ROLE LEVEL   create or update a role
  purge TABLE           remove every row of users, roles or pending_registrations
  drop                  drop all tables

flags:
`

func main() {
	if err := mainImpl(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "authstore: %v\n", err)
		os.Exit(1)
	}
}

func mainImpl() error {
	configPath := flag.String("config", "", "Path to a YAML config file")
	envFile := flag.String("env-file", ".env", "Path to a .env file")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error); overrides the config")
	versionFlag := flag.Bool("version", false, "Show version information")
	vFlag := flag.Bool("v", false, "Show version information (short)")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if *versionFlag || *vFlag {
		printVersion(os.Stdout)
		return nil
	}
	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		return errors.New("missing command")
	}

	cfg, err := config.Load(*configPath, *envFile)
	if err != nil {
		return err
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	logger, err := newLogger(cfg.Logging.Level)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	if args[0] == "init" {
		cfg.Initialize = true
	}
	logger.Debug("opening backend", "config", cfg.String())
	b, err := authstore.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := b.Close(); err != nil {
			logger.Warn("failed to close backend", "error", err)
		}
	}()

	return run(ctx, b, args, os.Stdout)
}

func run(ctx context.Context, b *authstore.Backend, args []string, out io.Writer) error {
	switch cmd := args[0]; cmd {
	case "init":
		slog.InfoContext(ctx, "storage ready", "tables", b.Schemas().Len())
		return nil
	case "users":
		return listUsers(ctx, b, out)
	case "roles":
		return listRoles(ctx, b, out)
	case "set-role":
		if len(args) != 3 {
			return errors.New("set-role requires ROLE and LEVEL")
		}
		level, err := strconv.ParseInt(args[2], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid level %q: %w", args[2], err)
		}
		if err := b.Roles.Set(ctx, args[1], level); err != nil {
			return err
		}
		slog.InfoContext(ctx, "role set", "role", args[1], "level", level)
		return nil
	case "purge":
		if len(args) != 2 {
			return errors.New("purge requires a table name")
		}
		switch args[1] {
		case "users":
			return b.Users.Clear(ctx)
		case "roles":
			return b.Roles.Clear(ctx)
		case "pending_registrations":
			return b.PendingRegistrations.Clear(ctx)
		default:
			return fmt.Errorf("unknown table %q", args[1])
		}
	case "drop":
		return b.DropAllTables(ctx)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func listUsers(ctx context.Context, b *authstore.Backend, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "USERNAME\tROLE\tEMAIL\tCREATED\tLAST LOGIN")
	for r := range b.Users.Items(ctx) {
		if r.Error != nil {
			return r.Error
		}
		u, err := authstore.UserFromMapping(r.Item.Key, r.Item.Value.Fields())
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", u.Username, u.Role, u.Email, u.CreationDate, u.LastLogin)
	}
	return w.Flush()
}

func listRoles(ctx context.Context, b *authstore.Backend, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ROLE\tLEVEL")
	for r := range b.Roles.Items(ctx) {
		if r.Error != nil {
			return r.Error
		}
		fmt.Fprintf(w, "%s\t%d\n", r.Item.Key, r.Item.Value)
	}
	return w.Flush()
}

func newLogger(level string) (*slog.Logger, error) {
	var ll slog.Level
	if err := ll.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:      ll,
		TimeFormat: "15:04:05.000",
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	})), nil
}

func printVersion(w io.Writer) {
	info := authstore.GetVersionInfo()
	fmt.Fprintf(w, "authstore version %s\n", info.Version)
	fmt.Fprintf(w, "Git commit: %s\n", info.GitCommit)
	fmt.Fprintf(w, "Build date: %s\n", info.BuildDate)
	fmt.Fprintf(w, "Go version: %s\n", info.GoVersion)
}
