// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides the chatstore command tree.
//
// Commands are built with cobra and share one app value per invocation,
// which holds the loaded configuration, the logger and the lazily opened
// chat store.
//
// # Commands Overview
//
// Session Commands:
//   - list, show: read sessions (print "no history" when the store is unavailable)
//   - save, delete, fork, duplicate, rename: write sessions
//   - export, import: JSON and Markdown transfer
//   - snapshot show|set|delete: per-session snapshot blobs
//
// Other Commands:
//   - info: store path, backend, schema version and session count
//   - config path|keys|get|set|show: configuration
//
// All commands support --json. Errors are printed with their hints and
// mapped to exit codes by GetExitCode.
//
// # Usage
//
//	func main() {
//	    os.Exit(cli.Execute())
//	}
package cli
