// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// snapshot_cmd.go - Per-session snapshot commands.
//
// A snapshot is an opaque JSON blob attached to a session, optionally
// pinned to one of its messages. It is removed with the session.

package cli

import (
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/jeranaias/chatstore/internal/export"
)

func newSnapshotCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Manage the snapshot attached to a session",
	}
	cmd.AddCommand(newSnapshotShowCmd(a), newSnapshotSetCmd(a), newSnapshotDeleteCmd(a))
	return cmd
}

func newSnapshotShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print a session's snapshot",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.strictService(cmd.Context())
			if err != nil {
				return err
			}
			snap, err := svc.GetSnapshot(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if a.flags.json {
				return NewJSONResponse("snapshot show", snap).Write(out)
			}
			if snap == nil {
				fmt.Fprintf(out, "Session %s has no snapshot.\n", args[0])
				return nil
			}
			fmt.Fprintf(out, "%s%s\n", RenderLabel("Message:"), snap.MessageID)
			fmt.Fprintf(out, "%s%s\n", RenderLabel("Updated:"), snap.UpdatedAt)
			fmt.Fprintln(out, string(snap.Data))
			return nil
		},
	}
}

func newSnapshotSetCmd(a *app) *cobra.Command {
	var (
		file      string
		messageID string
	)

	cmd := &cobra.Command{
		Use:   "set <id>",
		Short: "Attach a JSON snapshot to a session, replacing any existing one",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return usageErr("--file is required")
			}
			data, err := readInput(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}
			if !json.Valid(data) {
				return errors.Mark(errors.Newf("%s is not valid JSON", file), export.ErrInvalidDocument)
			}

			svc, err := a.strictService(cmd.Context())
			if err != nil {
				return err
			}
			if err := svc.SetSnapshot(cmd.Context(), args[0], messageID, json.RawMessage(data)); err != nil {
				return err
			}
			return a.reportWrite(cmd.OutOrStdout(), "snapshot set",
				map[string]string{"id": args[0], "messageId": messageID},
				fmt.Sprintf("Saved snapshot of session %s", args[0]))
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "JSON file with the snapshot, or - for stdin")
	cmd.Flags().StringVar(&messageID, "message-id", "", "Message the snapshot was taken at")
	return cmd
}

func newSnapshotDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a session's snapshot",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.strictService(cmd.Context())
			if err != nil {
				return err
			}
			if err := svc.DeleteSnapshot(cmd.Context(), args[0]); err != nil {
				return err
			}
			return a.reportWrite(cmd.OutOrStdout(), "snapshot delete",
				map[string]string{"id": args[0]},
				fmt.Sprintf("Removed snapshot of session %s", args[0]))
		},
	}
}
