//
// Tencent is pleased to support the open source community by making trpc-pagescript-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-pagescript-go is licensed under the Apache License Version 2.0.
//
//

// Package local provides a document.Store backed by a directory on disk,
// the vault root.
package local

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"trpc.group/trpc-go/trpc-pagescript-go/document"
)

var _ document.Store = (*Store)(nil)

const (
	defaultDirMode  = 0o755
	defaultFileMode = 0o644
)

// Store reads and writes documents below a root directory.
type Store struct {
	root     string
	dirMode  fs.FileMode
	fileMode fs.FileMode
}

// Option configures a Store.
type Option func(*Store)

// WithDirMode sets the mode used for folders created by Create and Rename.
func WithDirMode(mode fs.FileMode) Option {
	return func(s *Store) { s.dirMode = mode }
}

// WithFileMode sets the mode of files created by Create.
func WithFileMode(mode fs.FileMode) Option {
	return func(s *Store) { s.fileMode = mode }
}

// NewStore returns a Store rooted at root. The directory must exist.
func NewStore(root string, opts ...Option) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve vault root: %w", err)
	}
	stat, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("access vault root: %w", err)
	}
	if !stat.IsDir() {
		return nil, fmt.Errorf("vault root %q is not a directory", abs)
	}
	s := &Store{root: abs, dirMode: defaultDirMode, fileMode: defaultFileMode}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Root returns the absolute vault directory.
func (s *Store) Root() string {
	return s.root
}

// resolvePath maps a vault path onto the host filesystem.
func (s *Store) resolvePath(p string) (string, string, error) {
	cleaned, err := document.CleanPath(p)
	if err != nil {
		return "", "", err
	}
	return cleaned, filepath.Join(s.root, filepath.FromSlash(cleaned)), nil
}

// Read implements document.Store.
func (s *Store) Read(ctx context.Context, doc document.Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	_, host, err := s.resolvePath(doc.Path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(host)
	if err != nil {
		return "", fmt.Errorf("read %q: %w", doc.Path, mapErr(err))
	}
	return string(data), nil
}

// Write implements document.Store.
func (s *Store) Write(ctx context.Context, doc document.Document, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, host, err := s.resolvePath(doc.Path)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(host, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return fmt.Errorf("write %q: %w", doc.Path, mapErr(err))
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		return fmt.Errorf("write %q: %w", doc.Path, err)
	}
	return f.Close()
}

// Create implements document.Store.
func (s *Store) Create(ctx context.Context, p string, content string) (document.Document, error) {
	if err := ctx.Err(); err != nil {
		return document.Document{}, err
	}
	cleaned, host, err := s.resolvePath(p)
	if err != nil {
		return document.Document{}, err
	}
	if err := os.MkdirAll(filepath.Dir(host), s.dirMode); err != nil {
		return document.Document{}, fmt.Errorf("create folder for %q: %w", cleaned, err)
	}
	f, err := os.OpenFile(host, os.O_WRONLY|os.O_CREATE|os.O_EXCL, s.fileMode)
	if err != nil {
		return document.Document{}, fmt.Errorf("create %q: %w", cleaned, mapErr(err))
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		return document.Document{}, fmt.Errorf("create %q: %w", cleaned, err)
	}
	if err := f.Close(); err != nil {
		return document.Document{}, fmt.Errorf("create %q: %w", cleaned, err)
	}
	return document.New(cleaned), nil
}

// Rename implements document.Store.
func (s *Store) Rename(ctx context.Context, doc document.Document, newPath string) (document.Document, error) {
	if err := ctx.Err(); err != nil {
		return document.Document{}, err
	}
	_, from, err := s.resolvePath(doc.Path)
	if err != nil {
		return document.Document{}, err
	}
	cleaned, to, err := s.resolvePath(newPath)
	if err != nil {
		return document.Document{}, err
	}
	if _, err := os.Stat(from); err != nil {
		return document.Document{}, fmt.Errorf("rename %q: %w", doc.Path, mapErr(err))
	}
	if from == to {
		return doc, nil
	}
	if _, err := os.Stat(to); err == nil {
		return document.Document{}, fmt.Errorf("rename to %q: %w", cleaned, document.ErrExists)
	}
	if err := os.MkdirAll(filepath.Dir(to), s.dirMode); err != nil {
		return document.Document{}, fmt.Errorf("create folder for %q: %w", cleaned, err)
	}
	if err := os.Rename(from, to); err != nil {
		return document.Document{}, fmt.Errorf("rename %q: %w", doc.Path, err)
	}
	return document.New(cleaned), nil
}

// List implements document.Store.
func (s *Store) List(ctx context.Context, folder string) ([]document.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cleaned, err := document.CleanFolder(folder)
	if err != nil {
		return nil, err
	}
	dir := filepath.Join(s.root, filepath.FromSlash(cleaned))
	stat, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("list %q: %w", cleaned, mapErr(err))
	}
	if !stat.IsDir() {
		return nil, fmt.Errorf("list %q: %w", cleaned, document.ErrNotFound)
	}
	matches, err := doublestar.Glob(os.DirFS(dir), "*", doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("list %q: %w", cleaned, err)
	}
	docs := make([]document.Document, 0, len(matches))
	for _, m := range matches {
		if strings.HasPrefix(m, ".") {
			continue
		}
		p := m
		if cleaned != "" {
			p = cleaned + "/" + m
		}
		docs = append(docs, document.New(p))
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Path < docs[j].Path })
	return docs, nil
}

// Folders implements document.Store. Dot-folders such as .obsidian or .git
// are skipped together with everything below them.
func (s *Store) Folders(ctx context.Context) ([]string, error) {
	var folders []string
	err := doublestar.GlobWalk(os.DirFS(s.root), "**", func(p string, d fs.DirEntry) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.IsDir() || p == "." {
			return nil
		}
		if hidden(p) {
			return fs.SkipDir
		}
		folders = append(folders, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk vault: %w", err)
	}
	sort.Strings(folders)
	return folders, nil
}

// hidden reports whether any segment of p starts with a dot.
func hidden(p string) bool {
	for _, seg := range strings.Split(p, "/") {
		if strings.HasPrefix(seg, ".") && seg != "." {
			return true
		}
	}
	return false
}

func mapErr(err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %v", document.ErrNotFound, err)
	case errors.Is(err, fs.ErrExist):
		return fmt.Errorf("%w: %v", document.ErrExists, err)
	default:
		return err
	}
}
