//
// Tencent is pleased to support the open source community by making trpc-pagescript-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-pagescript-go is licensed under the Apache License Version 2.0.
//
//

// Package inmemory provides an in-memory implementation of document.Store.
// It is suitable for testing and for hosts that stream documents in, such as
// the HTTP bridge.
package inmemory

import (
	"context"
	"fmt"
	"path"
	"sort"
	"sync"

	"trpc.group/trpc-go/trpc-pagescript-go/document"
)

var _ document.Store = (*Store)(nil)

// Store keeps documents in a map keyed by cleaned path.
type Store struct {
	// docs maps document path to content.
	docs map[string]string
	// folders holds explicitly created folders; parents of documents are
	// implied.
	folders map[string]struct{}
	mu      sync.RWMutex
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		docs:    make(map[string]string),
		folders: make(map[string]struct{}),
	}
}

// Put writes content at p, creating or overwriting it. It is a seeding
// helper; Create is the Store operation that refuses to overwrite.
func (s *Store) Put(p, content string) (document.Document, error) {
	cleaned, err := document.CleanPath(p)
	if err != nil {
		return document.Document{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[cleaned] = content
	return document.New(cleaned), nil
}

// AddFolder registers an empty folder.
func (s *Store) AddFolder(p string) error {
	cleaned, err := document.CleanFolder(p)
	if err != nil {
		return err
	}
	if cleaned == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.folders[cleaned] = struct{}{}
	return nil
}

// Read implements document.Store.
func (s *Store) Read(ctx context.Context, doc document.Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	content, ok := s.docs[doc.Path]
	if !ok {
		return "", fmt.Errorf("read %q: %w", doc.Path, document.ErrNotFound)
	}
	return content, nil
}

// Write implements document.Store.
func (s *Store) Write(ctx context.Context, doc document.Document, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[doc.Path]; !ok {
		return fmt.Errorf("write %q: %w", doc.Path, document.ErrNotFound)
	}
	s.docs[doc.Path] = content
	return nil
}

// Create implements document.Store.
func (s *Store) Create(ctx context.Context, p string, content string) (document.Document, error) {
	if err := ctx.Err(); err != nil {
		return document.Document{}, err
	}
	cleaned, err := document.CleanPath(p)
	if err != nil {
		return document.Document{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[cleaned]; ok {
		return document.Document{}, fmt.Errorf("create %q: %w", cleaned, document.ErrExists)
	}
	s.docs[cleaned] = content
	return document.New(cleaned), nil
}

// Rename implements document.Store.
func (s *Store) Rename(ctx context.Context, doc document.Document, newPath string) (document.Document, error) {
	if err := ctx.Err(); err != nil {
		return document.Document{}, err
	}
	cleaned, err := document.CleanPath(newPath)
	if err != nil {
		return document.Document{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	content, ok := s.docs[doc.Path]
	if !ok {
		return document.Document{}, fmt.Errorf("rename %q: %w", doc.Path, document.ErrNotFound)
	}
	if cleaned == doc.Path {
		return doc, nil
	}
	if _, taken := s.docs[cleaned]; taken {
		return document.Document{}, fmt.Errorf("rename to %q: %w", cleaned, document.ErrExists)
	}
	delete(s.docs, doc.Path)
	s.docs[cleaned] = content
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
	s.mu.RLock()
	defer s.mu.RUnlock()
	if cleaned != "" {
		if _, ok := s.folderSetLocked()[cleaned]; !ok {
			return nil, fmt.Errorf("list %q: %w", cleaned, document.ErrNotFound)
		}
	}
	var docs []document.Document
	for p := range s.docs {
		d := document.New(p)
		if d.Folder() == cleaned {
			docs = append(docs, d)
		}
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Path < docs[j].Path })
	return docs, nil
}

// Folders implements document.Store.
func (s *Store) Folders(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	set := s.folderSetLocked()
	folders := make([]string, 0, len(set))
	for f := range set {
		folders = append(folders, f)
	}
	sort.Strings(folders)
	return folders, nil
}

// folderSetLocked returns explicit folders plus every ancestor of every
// document and folder. Callers hold mu.
func (s *Store) folderSetLocked() map[string]struct{} {
	set := make(map[string]struct{}, len(s.folders))
	addAncestors := func(dir string) {
		for dir != "." && dir != "/" && dir != "" {
			set[dir] = struct{}{}
			dir = path.Dir(dir)
		}
	}
	for f := range s.folders {
		addAncestors(f)
	}
	for p := range s.docs {
		addAncestors(path.Dir(p))
	}
	return set
}
