// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across chatstore packages.
package util

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
)

// AtomicWriteFile writes data to path through a synced temp file in the same
// directory followed by a rename. On crash, either the old file or the new
// complete file exists. Missing parent directories are created with 0755.
func AtomicWriteFile(path string, data []byte, perm os.FileMode) error {
	return AtomicWriteFileWithDir(path, data, perm, 0755)
}

// AtomicWriteFileWithDir is like AtomicWriteFile but creates missing parent
// directories with dirPerm. Exported chats and config files use 0700.
func AtomicWriteFileWithDir(path string, data []byte, filePerm, dirPerm os.FileMode) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrap(err, "resolve path")
	}

	dir := filepath.Dir(absPath)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return errors.Wrapf(err, "create directory %s", dir)
	}

	// The temp file must live in the target directory for the rename to be atomic.
	f, err := os.CreateTemp(dir, ".tmp-")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	tempPath := f.Name()

	success := false
	defer func() {
		if !success {
			f.Close()
			os.Remove(tempPath)
		}
	}()

	if _, err := f.Write(data); err != nil {
		return errors.Wrap(err, "write temp file")
	}
	if err := f.Sync(); err != nil {
		return errors.Wrap(err, "sync temp file")
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, "close temp file")
	}
	if err := os.Chmod(tempPath, filePerm); err != nil {
		return errors.Wrap(err, "set file permissions")
	}
	if err := os.Rename(tempPath, absPath); err != nil {
		return errors.Wrapf(err, "replace %s", absPath)
	}

	success = true
	return nil
}
