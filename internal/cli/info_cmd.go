// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// info_cmd.go - Store status.

package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// InfoOutput is the --json payload of info.
type InfoOutput struct {
	Path          string `json:"path"`
	Backend       string `json:"backend"`
	State         string `json:"state"`
	SchemaVersion int    `json:"schemaVersion"`
	Sessions      int    `json:"sessions"`
	Available     bool   `json:"available"`
}

func newInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show the store path, backend, schema version and session count",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			info := InfoOutput{
				Path:    a.cfg.Storage.Path,
				Backend: a.cfg.Storage.Backend,
				State:   "unavailable",
			}

			if db, _ := a.openStore(cmd.Context(), false); db != nil {
				keys, err := db.Keys(cmd.Context())
				if err != nil {
					return err
				}
				info.Backend = string(db.Backend())
				info.State = db.State().String()
				info.SchemaVersion = db.Version()
				info.Sessions = len(keys)
				info.Available = true
			}

			out := cmd.OutOrStdout()
			if a.flags.json {
				return NewJSONResponse("info", info).Write(out)
			}

			fmt.Fprintln(out, TitleStyle.Render("Chat Store"))
			fmt.Fprintln(out, RenderSeparator(40))
			fmt.Fprintf(out, "%s%s\n", RenderLabel("Path:"), ValueStyle.Render(info.Path))
			fmt.Fprintf(out, "%s%s\n", RenderLabel("Backend:"), ValueStyle.Render(info.Backend))
			if !info.Available {
				fmt.Fprintf(out, "%s%s\n", RenderLabel("State:"), WarningStyle.Render(info.State))
				fmt.Fprintln(out, WarningStyle.Render(noHistoryMessage))
				return nil
			}
			fmt.Fprintf(out, "%s%s\n", RenderLabel("State:"), SuccessStyle.Render(info.State))
			fmt.Fprintf(out, "%s%d\n", RenderLabel("Schema:"), info.SchemaVersion)
			fmt.Fprintf(out, "%s%d\n", RenderLabel("Sessions:"), info.Sessions)
			return nil
		},
	}
}
