// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - Inspect and edit the chatstore configuration.
//
// Examples:
//   chatstore config path                         Print the config file path
//   chatstore config keys                         List settable keys
//   chatstore config get storage.backend          Print one value
//   chatstore config set storage.backend bolt     Update and save one value
//   chatstore config show                         Print the effective config

package cli

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/jeranaias/chatstore/internal/config"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and edit configuration",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "path",
			Short: "Print the config file path",
			Args:  exactArgs(0),
			RunE: func(cmd *cobra.Command, args []string) error {
				path, err := a.configPath()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			},
		},
		&cobra.Command{
			Use:   "keys",
			Short: "List configuration keys",
			Args:  exactArgs(0),
			RunE: func(cmd *cobra.Command, args []string) error {
				keys := config.Keys()
				if a.flags.json {
					return NewJSONResponse("config keys", keys).Write(cmd.OutOrStdout())
				}
				for _, k := range keys {
					fmt.Fprintln(cmd.OutOrStdout(), k)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "get <key>",
			Short: "Print one configuration value",
			Args:  exactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				v, err := a.cfg.Get(args[0])
				if err != nil {
					return errors.Mark(err, ErrUsage)
				}
				if a.flags.json {
					return NewJSONResponse("config get", map[string]interface{}{args[0]: v}).Write(cmd.OutOrStdout())
				}
				fmt.Fprintln(cmd.OutOrStdout(), v)
				return nil
			},
		},
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Set one configuration value and save the config file",
			Args:  exactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.setConfig(cmd, args[0], args[1])
			},
		},
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration as TOML",
			Args:  exactArgs(0),
			RunE: func(cmd *cobra.Command, args []string) error {
				if a.flags.json {
					return NewJSONResponse("config show", a.cfg).Write(cmd.OutOrStdout())
				}
				return errors.Wrap(toml.NewEncoder(cmd.OutOrStdout()).Encode(a.cfg), "encode config")
			},
		},
	)
	return cmd
}

// configPath returns --config, or the default TOML path.
func (a *app) configPath() (string, error) {
	if a.flags.configPath != "" {
		return a.flags.configPath, nil
	}
	return config.ConfigPathTOML()
}

// setConfig updates key in the config file. Flag overrides of the current
// invocation are not written back.
func (a *app) setConfig(cmd *cobra.Command, key, value string) error {
	path, err := a.configPath()
	if err != nil {
		return err
	}

	cfg := config.Default()
	if a.flags.configPath != "" {
		if cfg, err = config.LoadFromPath(path); err != nil {
			return err
		}
	} else if loaded, err := config.Load(); err == nil {
		cfg = loaded
	}

	if err := cfg.Set(key, value); err != nil {
		return errors.Mark(err, ErrUsage)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if strings.HasSuffix(path, ".json") {
		err = config.SaveJSON(cfg, path)
	} else {
		err = config.SaveTOML(cfg, path)
	}
	if err != nil {
		return err
	}
	return a.reportWrite(cmd.OutOrStdout(), "config set", map[string]string{key: value, "path": path},
		fmt.Sprintf("Set %s = %s in %s", key, value, path))
}
