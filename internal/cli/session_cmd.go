// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// session_cmd.go - Session commands: list, show, save, delete, fork,
// duplicate and rename.
//
// Examples:
//   chatstore list                                   List sessions, newest first
//   chatstore show 1                                 Show a session by id
//   chatstore show my-chat --render                  Render the transcript as markdown
//   chatstore save 3 --messages msgs.json --seed x   Save messages under id 3
//   chatstore delete 3 --confirm                     Delete a session
//   chatstore fork 1 msg-b                           Fork session 1 at message msg-b
//   chatstore duplicate my-chat                      Copy a whole session
//   chatstore rename 1 Release planning              Set the description

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/jeranaias/chatstore/internal/export"
	"github.com/jeranaias/chatstore/internal/model"
	"github.com/jeranaias/chatstore/internal/session"
	"github.com/jeranaias/chatstore/internal/util"
)

// =============================================================================
// OUTPUT TYPES
// =============================================================================

// SessionInfo is one row of the session list.
type SessionInfo struct {
	ID           string `json:"id"`
	URLID        string `json:"urlId"`
	Description  string `json:"description"`
	MessageCount int    `json:"messageCount"`
	Timestamp    string `json:"timestamp"`
}

// SessionListOutput is the --json payload of list.
type SessionListOutput struct {
	Available bool          `json:"available"`
	Sessions  []SessionInfo `json:"sessions"`
	Count     int           `json:"count"`
}

// SessionWriteOutput is the --json payload of commands that write a session.
type SessionWriteOutput struct {
	ID    string `json:"id,omitempty"`
	URLID string `json:"urlId"`
	Path  string `json:"path,omitempty"`
}

// =============================================================================
// LIST
// =============================================================================

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List stored sessions, newest first",
		Args:    exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, _ := a.openStore(cmd.Context(), false)
			out := cmd.OutOrStdout()

			if db == nil {
				if a.flags.json {
					return NewJSONResponse("list", SessionListOutput{Sessions: []SessionInfo{}}).Write(out)
				}
				fmt.Fprintln(out, WarningStyle.Render(noHistoryMessage))
				return nil
			}

			sessions, err := a.service(db).GetAllSessions(cmd.Context())
			if err != nil {
				return err
			}
			if a.flags.json {
				return NewJSONResponse("list", toListOutput(sessions)).Write(out)
			}
			writeSessionTable(out, sessions, time.Now())
			return nil
		},
	}
}

func toListOutput(sessions []model.ChatRecord) SessionListOutput {
	output := SessionListOutput{
		Available: true,
		Sessions:  make([]SessionInfo, 0, len(sessions)),
		Count:     len(sessions),
	}
	for _, s := range sessions {
		output.Sessions = append(output.Sessions, SessionInfo{
			ID:           s.ID,
			URLID:        s.URLID,
			Description:  s.Description,
			MessageCount: s.MessageCount(),
			Timestamp:    s.Timestamp,
		})
	}
	return output
}

// writeSessionTable writes sessions as a fixed-width table. Column widths
// are measured in terminal cells so wide characters stay aligned.
func writeSessionTable(w io.Writer, sessions []model.ChatRecord, now time.Time) {
	if len(sessions) == 0 {
		fmt.Fprintln(w, "No saved sessions found.")
		fmt.Fprintln(w, DimStyle.Render("Save one with: chatstore save <id> --messages FILE"))
		return
	}

	const (
		idWidth    = 10
		slugWidth  = 22
		titleWidth = 32
		msgsWidth  = 5
	)

	fmt.Fprintln(w, TitleStyle.Render("Saved Sessions"))
	fmt.Fprintln(w, RenderSeparator(idWidth+slugWidth+titleWidth+msgsWidth+16))
	fmt.Fprintf(w, "%s %s %s %s %s\n",
		util.PadRight("ID", idWidth),
		util.PadRight("Slug", slugWidth),
		util.PadRight("Title", titleWidth),
		util.PadRight("Msgs", msgsWidth),
		"Updated",
	)

	for _, s := range sessions {
		fmt.Fprintf(w, "%s %s %s %s %s\n",
			util.PadRight(util.TruncateWidth(s.ID, idWidth), idWidth),
			HighlightStyle.Render(util.PadRight(util.TruncateWidth(s.URLID, slugWidth), slugWidth)),
			util.PadRight(util.TruncateWidth(s.Title(), titleWidth), titleWidth),
			util.PadRight(fmt.Sprintf("%d", s.MessageCount()), msgsWidth),
			DimStyle.Render(formatTimeAgo(s.Time(), now)),
		)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Total: %d session(s)\n", len(sessions))
}

// formatTimeAgo formats t relative to now for the list table.
func formatTimeAgo(t, now time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	d := now.Sub(t)
	plural := func(n int, unit string) string {
		if n == 1 {
			return "1 " + unit + " ago"
		}
		return fmt.Sprintf("%d %ss ago", n, unit)
	}

	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return plural(int(d.Minutes()), "minute")
	case d < 24*time.Hour:
		return plural(int(d.Hours()), "hour")
	case d < 7*24*time.Hour:
		return plural(int(d.Hours()/24), "day")
	case d < 30*24*time.Hour:
		return plural(int(d.Hours()/24/7), "week")
	default:
		return t.Format("2006-01-02")
	}
}

// =============================================================================
// SHOW
// =============================================================================

func newShowCmd(a *app) *cobra.Command {
	var render bool

	cmd := &cobra.Command{
		Use:   "show <id|slug>",
		Short: "Show a session and its messages",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, _ := a.openStore(cmd.Context(), false)
			out := cmd.OutOrStdout()
			if db == nil {
				fmt.Fprintln(out, WarningStyle.Render(noHistoryMessage))
				return nil
			}

			rec, err := a.service(db).GetSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if rec == nil {
				return session.NotFound(args[0])
			}

			switch {
			case a.flags.json:
				return NewJSONResponse("show", rec).Write(out)
			case render:
				data, err := export.NewMarkdownExporter(&export.Options{IncludeMetadata: true}).Export(rec)
				if err != nil {
					return err
				}
				fmt.Fprint(out, renderMarkdown(string(data), GetTerminalWidth()-4))
				return nil
			default:
				writeSessionText(out, rec)
				return nil
			}
		},
	}
	cmd.Flags().BoolVar(&render, "render", false, "Render the transcript as markdown")
	return cmd
}

// writeSessionText writes a session header followed by every message.
func writeSessionText(w io.Writer, rec *model.ChatRecord) {
	fmt.Fprintln(w, TitleStyle.Render(rec.Title()))
	fmt.Fprintln(w, RenderSeparator())
	fmt.Fprintf(w, "%s%s\n", RenderLabel("ID:"), ValueStyle.Render(rec.ID))
	fmt.Fprintf(w, "%s%s\n", RenderLabel("Slug:"), HighlightStyle.Render(rec.URLID))
	fmt.Fprintf(w, "%s%d\n", RenderLabel("Messages:"), rec.MessageCount())
	fmt.Fprintf(w, "%s%s\n", RenderLabel("Timestamp:"), ValueStyle.Render(rec.Timestamp))

	if len(rec.Metadata) > 0 {
		keys := make([]string, 0, len(rec.Metadata))
		for k := range rec.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "%s%s\n", RenderLabel(k+":"), DimStyle.Render(rec.Metadata[k]))
		}
	}
	fmt.Fprintln(w)

	for i, msg := range rec.Messages {
		fmt.Fprintf(w, "[%d] %s %s\n", i+1, RenderRole(msg.Role), DimStyle.Render(msg.ID))
		fmt.Fprintln(w, msg.Content)
		fmt.Fprintln(w)
	}
}

// =============================================================================
// SAVE
// =============================================================================

func newSaveCmd(a *app) *cobra.Command {
	var (
		messagesFile string
		urlID        string
		seed         string
		description  string
		timestamp    string
		metadata     map[string]string
	)

	cmd := &cobra.Command{
		Use:   "save <id>",
		Short: "Save messages under a session id, replacing what is stored",
		Long: `Save messages under a session id. Any messages, description and
timestamp stored under the id are replaced; the session keeps its slug.

The messages file holds either a JSON array of messages or a chat export
document. Use "-" to read from stdin.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if messagesFile == "" {
				return usageErr("--messages is required")
			}
			data, err := readInput(cmd.InOrStdin(), messagesFile)
			if err != nil {
				return err
			}
			messages, doc, err := parseMessages(data)
			if err != nil {
				return err
			}

			opts := session.SaveOptions{
				URLID:     urlID,
				SlugSeed:  seed,
				Timestamp: timestamp,
			}
			if cmd.Flags().Changed("description") {
				opts.Description = &description
			} else if doc != nil {
				opts.Description = &doc.Description
			}
			if cmd.Flags().Changed("meta") {
				opts.Metadata = metadata
			} else if doc != nil {
				opts.Metadata = doc.Metadata
			}
			if opts.Timestamp == "" && doc != nil {
				opts.Timestamp = doc.Timestamp
			}

			svc, err := a.strictService(cmd.Context())
			if err != nil {
				return err
			}
			newSlug, err := svc.SaveMessages(cmd.Context(), args[0], messages, opts)
			if err != nil {
				return err
			}
			return a.reportWrite(cmd.OutOrStdout(), "save", SessionWriteOutput{ID: args[0], URLID: newSlug},
				fmt.Sprintf("Saved session %s as %s", args[0], HighlightStyle.Render(newSlug)))
		},
	}

	f := cmd.Flags()
	f.StringVarP(&messagesFile, "messages", "m", "", "JSON file with the messages, or - for stdin")
	f.StringVar(&urlID, "url-id", "", "Store under this exact slug")
	f.StringVar(&seed, "seed", "", "Seed for a newly allocated slug (default: the id)")
	f.StringVarP(&description, "description", "d", "", "Session description")
	f.StringVar(&timestamp, "timestamp", "", "ISO-8601 timestamp (default: now)")
	f.StringToStringVar(&metadata, "meta", nil, "Metadata as key=value pairs")
	return cmd
}

// readInput reads path, or in when path is "-".
func readInput(in io.Reader, path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(in)
		if err != nil {
			return nil, errors.Wrap(err, "read stdin")
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return data, nil
}

// parseMessages accepts a JSON array of messages or an export document.
// The document is returned when one was given.
func parseMessages(data []byte) ([]model.Message, *export.Document, error) {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var messages []model.Message
		if err := json.Unmarshal([]byte(trimmed), &messages); err != nil {
			return nil, nil, errors.Mark(errors.Wrap(err, "decode messages"), export.ErrInvalidDocument)
		}
		return messages, nil, nil
	}
	doc, err := export.ParseDocument(data)
	if err != nil {
		return nil, nil, err
	}
	return doc.Messages, doc, nil
}

// =============================================================================
// DELETE
// =============================================================================

func newDeleteCmd(a *app) *cobra.Command {
	var confirm bool

	cmd := &cobra.Command{
		Use:     "delete <id|slug>",
		Aliases: []string{"rm"},
		Short:   "Delete a session and its snapshot",
		Long: `Delete a session and its snapshot. Deleting a session that does not
exist succeeds.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.strictService(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			rec, err := svc.GetSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if rec == nil {
				if err := svc.DeleteSession(cmd.Context(), args[0]); err != nil {
					return err
				}
				return a.reportWrite(out, "delete", map[string]interface{}{"deleted": false, "id": args[0]},
					fmt.Sprintf("No session %q; nothing deleted.", args[0]))
			}

			confirmed, err := NewConfirmer(cmd.InOrStdin(), out).RequireWithDetails(
				"delete this session",
				[][2]string{
					{"ID", rec.ID},
					{"Slug", rec.URLID},
					{"Title", rec.Title()},
					{"Messages", fmt.Sprintf("%d", rec.MessageCount())},
				},
				a.confirmOpts(confirm),
			)
			if err != nil {
				return err
			}
			if !confirmed {
				ShowCancellationMessage(out)
				return nil
			}

			if err := svc.DeleteSession(cmd.Context(), rec.ID); err != nil {
				return err
			}
			return a.reportWrite(out, "delete", map[string]interface{}{"deleted": true, "id": rec.ID, "urlId": rec.URLID},
				fmt.Sprintf("Deleted session %s (%s)", rec.ID, rec.URLID))
		},
	}
	cmd.Flags().BoolVar(&confirm, "confirm", false, "Delete without prompting")
	return cmd
}

// =============================================================================
// FORK / DUPLICATE / RENAME
// =============================================================================

func newForkCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "fork <id|slug> <message-id>",
		Short: "Create a new session from the messages up to and including message-id",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.strictService(cmd.Context())
			if err != nil {
				return err
			}
			newSlug, err := svc.ForkSession(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return a.reportWrite(cmd.OutOrStdout(), "fork", SessionWriteOutput{URLID: newSlug},
				fmt.Sprintf("Forked %s at %s into %s", args[0], args[1], HighlightStyle.Render(newSlug)))
		},
	}
}

func newDuplicateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "duplicate <id|slug>",
		Aliases: []string{"dup"},
		Short:   "Copy every message of a session into a new session",
		Args:    exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.strictService(cmd.Context())
			if err != nil {
				return err
			}
			newSlug, err := svc.DuplicateSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.reportWrite(cmd.OutOrStdout(), "duplicate", SessionWriteOutput{URLID: newSlug},
				fmt.Sprintf("Duplicated %s into %s", args[0], HighlightStyle.Render(newSlug)))
		},
	}
}

func newRenameCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id|slug> <description...>",
		Short: "Set a session's description",
		Args:  minArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.strictService(cmd.Context())
			if err != nil {
				return err
			}
			description := strings.Join(args[1:], " ")
			if err := svc.UpdateDescription(cmd.Context(), args[0], description); err != nil {
				return err
			}
			return a.reportWrite(cmd.OutOrStdout(), "rename",
				map[string]string{"id": args[0], "description": description},
				fmt.Sprintf("Renamed %s to %q", args[0], description))
		},
	}
}

// reportWrite prints data in JSON mode and message otherwise.
func (a *app) reportWrite(w io.Writer, command string, data interface{}, message string) error {
	if a.flags.json {
		return NewJSONResponse(command, data).Write(w)
	}
	fmt.Fprintln(w, SuccessStyle.Render("OK")+" "+message)
	return nil
}
