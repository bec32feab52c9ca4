// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// root.go - The chatstore command tree and shared command state.

package cli

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/jeranaias/chatstore/internal/config"
	"github.com/jeranaias/chatstore/internal/logging"
	"github.com/jeranaias/chatstore/internal/session"
	"github.com/jeranaias/chatstore/internal/storage"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// noHistoryMessage is printed by read commands when the store cannot be opened.
const noHistoryMessage = "no history"

// =============================================================================
// SHARED STATE
// =============================================================================

// rootFlags holds the persistent flags.
type rootFlags struct {
	configPath string
	dbPath     string
	backend    string
	logLevel   string
	json       bool
}

// app is the state shared by one invocation of the command tree.
type app struct {
	flags rootFlags

	cfg       *config.Config
	logger    *log.Logger
	logCloser io.Closer
	db        *storage.DB

	// interactive reports whether confirmations may prompt.
	interactive func() bool
}

// setup loads configuration, applies flag overrides and builds the logger.
func (a *app) setup(cmd *cobra.Command) error {
	var (
		cfg *config.Config
		err error
	)
	if a.flags.configPath != "" {
		cfg, err = config.LoadFromPath(a.flags.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	if a.flags.dbPath != "" {
		cfg.Storage.Path = a.flags.dbPath
	}
	if a.flags.backend != "" {
		cfg.Storage.Backend = a.flags.backend
	}
	if a.flags.logLevel != "" {
		cfg.Log.Level = a.flags.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "invalid flags")
	}

	logger, closer, err := logging.New(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger
	a.logCloser = closer
	return nil
}

// openStore opens the configured chat store. In lenient mode an unusable
// store is logged and nil, nil is returned so read commands can run
// without history; in strict mode the failure is returned.
func (a *app) openStore(ctx context.Context, strict bool) (*storage.DB, error) {
	if a.db != nil {
		return a.db, nil
	}
	opts := a.cfg.StorageOptions(a.logger)
	if !strict {
		a.db = storage.Open(ctx, opts)
		return a.db, nil
	}
	db, err := storage.OpenStrict(ctx, opts)
	if err != nil {
		return nil, errors.WithHint(err, "check storage.path with 'chatstore config get storage.path' or pass --db")
	}
	a.db = db
	return db, nil
}

// service wraps db in a session service configured from the loaded config.
func (a *app) service(db *storage.DB) *session.Service {
	ids, ok := session.ParseIDScheme(a.cfg.Sessions.IDScheme)
	if !ok {
		ids = session.NumericIDs{}
	}
	return session.NewService(db,
		session.WithAllocator(a.cfg.Allocator()),
		session.WithIDSource(ids),
		session.WithLogger(a.logger),
	)
}

// strictService opens the store in strict mode and returns a service over it.
func (a *app) strictService(ctx context.Context) (*session.Service, error) {
	db, err := a.openStore(ctx, true)
	if err != nil {
		return nil, err
	}
	return a.service(db), nil
}

// close releases the store and the log file.
func (a *app) close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil && a.logger != nil {
			a.logger.Warn("close chat store", "err", err)
		}
		a.db = nil
	}
	if a.logCloser != nil {
		_ = a.logCloser.Close()
		a.logCloser = nil
	}
}

// confirmOpts builds the confirmation options for a destructive command.
func (a *app) confirmOpts(confirm bool) ConfirmationOptions {
	return ConfirmationOptions{
		ConfirmFlag: confirm,
		JSONMode:    a.flags.json,
		Interactive: a.interactive,
	}
}

// =============================================================================
// COMMAND TREE
// =============================================================================

// newRootCommand builds the command tree and the state it shares.
func newRootCommand() (*cobra.Command, *app) {
	a := &app{interactive: IsTTY}

	root := &cobra.Command{
		Use:   "chatstore",
		Short: "Durable local storage for chat sessions",
		Long: `chatstore keeps chat sessions (ordered message histories plus a
description, timestamp and metadata) in an embedded transactional store.

Sessions are addressed by id or by their unique slug. Sessions can be
saved, listed, forked at a message, duplicated, renamed, exported and
imported.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}
	root.SetVersionTemplate("chatstore {{.Version}} (commit " + GitCommit + ", built " + BuildDate + ")\n")
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return errors.Mark(err, ErrUsage)
	})

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configPath, "config", "", "Config file (default ~/.chatstore/config.toml)")
	pf.StringVar(&a.flags.dbPath, "db", "", "Database file, overrides storage.path")
	pf.StringVar(&a.flags.backend, "backend", "", "Storage backend: sqlite or bolt")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.BoolVar(&a.flags.json, "json", false, "Output in JSON format")

	root.AddCommand(
		newListCmd(a),
		newShowCmd(a),
		newSaveCmd(a),
		newDeleteCmd(a),
		newForkCmd(a),
		newDuplicateCmd(a),
		newRenameCmd(a),
		newExportCmd(a),
		newImportCmd(a),
		newSnapshotCmd(a),
		newInfoCmd(a),
		newConfigCmd(a),
	)
	return root, a
}

// exactArgs is cobra.ExactArgs with the error marked as a usage error.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return errors.Mark(err, ErrUsage)
		}
		return nil
	}
}

// minArgs is cobra.MinimumNArgs with the error marked as a usage error.
func minArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.MinimumNArgs(n)(cmd, args); err != nil {
			return errors.Mark(err, ErrUsage)
		}
		return nil
	}
}

// Execute runs the command tree against os.Args and returns the exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root, a := newRootCommand()
	err := root.ExecuteContext(ctx)
	a.close()
	if err != nil {
		DisplayError(root.ErrOrStderr(), err, a.flags.json)
		return GetExitCode(err)
	}
	return ExitSuccess
}
