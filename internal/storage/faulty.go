// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package storage

import (
	"errors"
	"strings"
)

// ErrInjected is returned by Faulty for every failing operation.
var ErrInjected = errors.New("injected storage fault")

// Faulty wraps a Storage and fails operations on names containing a marker.
// It stands in for a card that drops writes on one file, e.g. after a bad
// sector or an ungraceful removal. It is test support for the packages that
// write to a card and is not used by the commands.
type Faulty struct {
	Storage

	FailCreate map[string]bool // substring -> fail Create
	FailOpen   map[string]bool // substring -> fail OpenWrite
	FailRead   map[string]bool // substring -> fail OpenRead

	Writes int // successful OpenWrite calls
}

func (f *Faulty) Create(name string) (File, error) {
	if matches(f.FailCreate, name) {
		return nil, ErrInjected
	}
	return f.Storage.Create(name)
}

func (f *Faulty) OpenWrite(name string) (File, error) {
	if matches(f.FailOpen, name) {
		return nil, ErrInjected
	}
	fl, err := f.Storage.OpenWrite(name)
	if err == nil {
		f.Writes++
	}
	return fl, err
}

func (f *Faulty) OpenRead(name string) (File, error) {
	if matches(f.FailRead, name) {
		return nil, ErrInjected
	}
	return f.Storage.OpenRead(name)
}

func matches(set map[string]bool, name string) bool {
	for marker, on := range set {
		if on && strings.Contains(name, marker) {
			return true
		}
	}
	return false
}
