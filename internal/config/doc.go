// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for chatstore.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - StorageConfig: Database path, backend, recovery mode and busy timeout
//   - SlugConfig: Slug allocator tuning
//   - LogConfig: Log level and destination
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (CHATSTORE_*)
//   - ~/.chatstore/config.toml
//   - ~/.chatstore/config.json
//   - Built-in defaults
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Open the store it describes:
//
//	db := storage.Open(ctx, cfg.StorageOptions(logger))
package config
