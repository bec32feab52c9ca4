// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// transfer_cmd.go - export and import commands.
//
// Examples:
//   chatstore export my-chat                        Write chat_my-chat_<time>.json
//   chatstore export 1 --format md --output ~/notes Write a Markdown transcript
//   chatstore export 1 --stdout                     Print the JSON document
//   chatstore import chat_my-chat_20250101.json     Store an export as a new session

package cli

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/jeranaias/chatstore/internal/export"
	"github.com/jeranaias/chatstore/internal/session"
)

func newExportCmd(a *app) *cobra.Command {
	var (
		format    string
		outputDir string
		toStdout  bool
		noMeta    bool
	)

	cmd := &cobra.Command{
		Use:   "export <id|slug>",
		Short: "Export a session as JSON or Markdown",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := export.DefaultOptions()
			opts.OutputDir = outputDir
			opts.IncludeMetadata = !noMeta

			exporter, err := export.ForFormat(format, opts)
			if err != nil {
				return errors.Mark(err, ErrUsage)
			}

			svc, err := a.strictService(cmd.Context())
			if err != nil {
				return err
			}
			rec, err := svc.GetSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if rec == nil {
				return session.NotFound(args[0])
			}

			out := cmd.OutOrStdout()
			if toStdout {
				data, err := exporter.Export(rec)
				if err != nil {
					return err
				}
				_, err = out.Write(data)
				return errors.Wrap(err, "write export")
			}

			path, err := export.ExportToFile(rec, exporter, opts)
			if err != nil {
				return err
			}
			return a.reportWrite(out, "export",
				SessionWriteOutput{ID: rec.ID, URLID: rec.URLID, Path: path},
				fmt.Sprintf("Exported %s to %s", rec.URLID, path))
		},
	}

	f := cmd.Flags()
	f.StringVarP(&format, "format", "f", "json", "Export format: json or md")
	f.StringVarP(&outputDir, "output", "o", ".", "Directory to write the export to")
	f.BoolVar(&toStdout, "stdout", false, "Print the export instead of writing a file")
	f.BoolVar(&noMeta, "no-metadata", false, "Leave front matter and metadata out of Markdown exports")
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file|->",
		Short: "Store a JSON export as a new session",
		Long: `Store a JSON export as a new session. The session gets a fresh id;
the exported slug seeds its new slug, so importing never overwrites an
existing session.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			doc, err := export.ParseDocument(data)
			if err != nil {
				return err
			}

			svc, err := a.strictService(cmd.Context())
			if err != nil {
				return err
			}
			newSlug, err := svc.ImportSession(cmd.Context(), doc)
			if err != nil {
				return err
			}
			return a.reportWrite(cmd.OutOrStdout(), "import", SessionWriteOutput{URLID: newSlug},
				fmt.Sprintf("Imported %s as %s", args[0], HighlightStyle.Render(newSlug)))
		},
	}
}
