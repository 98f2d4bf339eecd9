// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package storage is the only place that touches the removable card.
package storage

import (
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/relabs-tech/gas_datalogger/internal/status"
)

// File is an open file on the card.
type File interface {
	io.Reader
	io.Writer
	io.Seeker
	io.Closer
	io.StringWriter
	Name() string
	// Sync forces written data to the medium.
	Sync() error
	// Position returns the current offset.
	Position() (int64, error)
}

// Storage exposes the file operations the datalogger needs.
type Storage interface {
	// Create creates or truncates name for writing.
	Create(name string) (File, error)
	// OpenRead opens an existing file for reading.
	OpenRead(name string) (File, error)
	// OpenWrite opens an existing file for writing without truncating it.
	OpenWrite(name string) (File, error)
	// List returns the regular files in dir, sorted by name.
	List(dir string) ([]string, error)
	// Exists reports whether name is an existing regular file.
	Exists(name string) bool
}

// Card implements Storage over an afero filesystem.
type Card struct {
	fs afero.Fs
}

// NewCard mounts the card at root. A missing or non-directory root is SDCardInitError.
func NewCard(root string) (*Card, error) {
	osFs := afero.NewOsFs()
	info, err := osFs.Stat(root)
	if err != nil {
		return nil, status.Wrap(status.SDCardInitError, "stat %s: %v", root, err)
	}
	if !info.IsDir() {
		return nil, status.Wrap(status.SDCardInitError, "%s is not a directory", root)
	}
	return &Card{fs: afero.NewBasePathFs(osFs, root)}, nil
}

// NewMemCard returns an empty in-memory card.
func NewMemCard() *Card {
	return &Card{fs: afero.NewMemMapFs()}
}

// NewCardFs wraps an arbitrary afero filesystem.
func NewCardFs(fs afero.Fs) *Card {
	return &Card{fs: fs}
}

// Fs exposes the underlying filesystem, mostly for tests.
func (c *Card) Fs() afero.Fs { return c.fs }

func (c *Card) Create(name string) (File, error) {
	f, err := c.fs.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", name, err)
	}
	return &file{File: f}, nil
}

func (c *Card) OpenRead(name string) (File, error) {
	f, err := c.fs.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return &file{File: f}, nil
}

func (c *Card) OpenWrite(name string) (File, error) {
	f, err := c.fs.OpenFile(name, os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open %s for writing: %w", name, err)
	}
	return &file{File: f}, nil
}

func (c *Card) List(dir string) ([]string, error) {
	infos, err := afero.ReadDir(c.fs, dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	var names []string
	for _, info := range infos {
		if info.Mode().IsRegular() {
			names = append(names, info.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func (c *Card) Exists(name string) bool {
	info, err := c.fs.Stat(name)
	return err == nil && info.Mode().IsRegular()
}

// FindBySuffix returns the first file in the card root whose name ends with
// suffix, as an absolute card path ("/name").
func FindBySuffix(s Storage, suffix string) (string, bool) {
	names, err := s.List("/")
	if err != nil {
		return "", false
	}
	for _, name := range names {
		if strings.HasSuffix(name, suffix) {
			return path.Join("/", name), true
		}
	}
	return "", false
}

type file struct {
	afero.File
}

func (f *file) Position() (int64, error) {
	return f.File.Seek(0, io.SeekCurrent)
}
