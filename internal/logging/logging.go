// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging builds the structured logger shared by chatstore packages.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
	"github.com/muesli/termenv"

	"github.com/jeranaias/chatstore/internal/config"
)

// Prefix is attached to every log line.
const Prefix = "chatstore"

// nopCloser is returned when the logger writes to the fallback writer.
type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New returns a logger configured from cfg. When cfg.File is set, log lines
// are appended to that file (created with 0600) and the returned Closer
// closes it; otherwise lines go to fallback, usually the command's stderr.
func New(cfg config.LogConfig, fallback io.Writer) (*log.Logger, io.Closer, error) {
	level := log.WarnLevel
	if cfg.Level != "" {
		parsed, err := log.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return nil, nil, errors.WithHint(
				errors.Wrapf(err, "invalid log level %q", cfg.Level),
				"use one of: debug, info, warn, error, fatal",
			)
		}
		level = parsed
	}

	var (
		out    io.Writer = fallback
		closer io.Closer = nopCloser{}
	)
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0700); err != nil {
			return nil, nil, errors.Wrap(err, "create log directory")
		}
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "open log file %s", cfg.File)
		}
		out, closer = f, f
	}

	return NewWithWriter(out, level), closer, nil
}

// NewWithWriter returns a logger at level writing to w.
func NewWithWriter(w io.Writer, level log.Level) *log.Logger {
	logger := log.NewWithOptions(w, log.Options{
		Level:           level,
		Prefix:          Prefix,
		ReportTimestamp: true,
		TimeFormat:      "2006-01-02 15:04:05",
	})

	if f, ok := w.(*os.File); ok && termenv.NewOutput(f).Profile != termenv.Ascii {
		logger.SetStyles(styles())
	} else {
		logger.SetColorProfile(termenv.Ascii)
	}
	return logger
}

func styles() *log.Styles {
	s := log.DefaultStyles()
	s.Prefix = lipgloss.NewStyle().Foreground(lipgloss.Color("63")).Bold(true)
	s.Levels[log.WarnLevel] = lipgloss.NewStyle().
		SetString("WARN").
		Bold(true).
		Foreground(lipgloss.Color("214"))
	return s
}
