package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/alnah/go-marp"
)

// Sentinel errors for deck discovery.
var (
	ErrNoInput          = errors.New("no input specified")
	ErrNoDecks          = errors.New("no .marp files found")
	ErrInvalidExtension = errors.New("file must have .marp extension")
)

// discoverDecks returns the .marp files under inputs, sorted and without
// duplicates. Directories are walked recursively; node_modules and dot
// directories are skipped.
func discoverDecks(inputs []string) ([]string, error) {
	if len(inputs) == 0 {
		return nil, ErrNoInput
	}

	seen := map[string]bool{}
	var decks []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			decks = append(decks, p)
		}
	}

	for _, input := range inputs {
		info, err := os.Stat(input)
		if err != nil {
			return nil, err
		}

		if !info.IsDir() {
			if err := validateDeckExtension(input); err != nil {
				return nil, err
			}
			add(input)
			continue
		}

		err = filepath.WalkDir(input, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return fmt.Errorf("scanning %s: %w", p, err)
			}
			if d.IsDir() {
				if p != input && skipDir(d.Name()) {
					return filepath.SkipDir
				}
				return nil
			}
			if filepath.Ext(p) == marp.Extension {
				add(p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	if len(decks) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoDecks, strings.Join(inputs, ", "))
	}
	sort.Strings(decks)
	return decks, nil
}

// skipDir reports whether a directory is never searched for decks.
func skipDir(name string) bool {
	return name == "node_modules" || strings.HasPrefix(name, ".")
}

// validateDeckExtension checks that the file has the .marp extension.
func validateDeckExtension(path string) error {
	if ext := filepath.Ext(path); ext != marp.Extension {
		return fmt.Errorf("%w: got %q", ErrInvalidExtension, ext)
	}
	return nil
}

// readSources reads every deck. A deck that cannot be read aborts.
func readSources(paths []string) ([]marp.Source, error) {
	srcs := make([]marp.Source, 0, len(paths))
	for _, p := range paths {
		src, err := marp.ReadSource(p)
		if err != nil {
			return nil, err
		}
		srcs = append(srcs, src)
	}
	return srcs, nil
}
