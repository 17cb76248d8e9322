//
// Tencent is pleased to support the open source community by making trpc-pagescript-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-pagescript-go is licensed under the Apache License Version 2.0.
//
//

// Package picker lists the PageScripts a user can choose from.
package picker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"golang.org/x/text/cases"

	"trpc.group/trpc-go/trpc-pagescript-go/config"
	"trpc.group/trpc-go/trpc-pagescript-go/document"
	"trpc.group/trpc-go/trpc-pagescript-go/log"
)

// Placeholder is the hint shown in an empty query field.
const Placeholder = "Type to search for PageScripts..."

// Script is one entry of the list.
type Script struct {
	Document document.Document `json:"document"`
	Basename string            `json:"basename"`
	// Title is the first heading of the script, "" when it has none or
	// titles are disabled.
	Title string `json:"title,omitempty"`
}

// Picker lists scripts from one folder of a store.
type Picker struct {
	store  document.Store
	folder string
	fuzzy  bool
	titles bool
}

// Option configures a Picker.
type Option func(*Picker)

// WithFolder sets the scripts folder. It is normalized like the setting.
func WithFolder(folder string) Option {
	return func(p *Picker) { p.folder = config.NormalizeFolder(folder) }
}

// WithFuzzy ranks entries by fuzzy distance instead of substring filtering.
func WithFuzzy(enabled bool) Option {
	return func(p *Picker) { p.fuzzy = enabled }
}

// WithTitles reads each script to fill Script.Title.
func WithTitles(enabled bool) Option {
	return func(p *Picker) { p.titles = enabled }
}

// New creates a Picker over store.
func New(store document.Store, opts ...Option) *Picker {
	p := &Picker{store: store, folder: config.DefaultScriptsFolder}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Folder returns the folder scripts are listed from.
func (p *Picker) Folder() string {
	return p.folder
}

// Suggestions returns the markdown documents directly inside the scripts
// folder whose basename matches query. A missing folder yields no entries.
func (p *Picker) Suggestions(ctx context.Context, query string) ([]Script, error) {
	docs, err := p.store.List(ctx, p.folder)
	if errors.Is(err, document.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list scripts: %w", err)
	}

	var candidates []document.Document
	for _, d := range docs {
		if d.IsMarkdown() {
			candidates = append(candidates, d)
		}
	}
	if p.fuzzy {
		candidates = rank(query, candidates)
	} else {
		candidates = filter(query, candidates)
	}

	scripts := make([]Script, 0, len(candidates))
	for _, d := range candidates {
		s := Script{Document: d, Basename: d.Basename()}
		if p.titles {
			content, err := p.store.Read(ctx, d)
			if err != nil {
				log.Warnf("read title of %s: %v", d.Path, err)
			} else {
				s.Title = Title(content)
			}
		}
		scripts = append(scripts, s)
	}
	return scripts, nil
}

// Contains reports whether s contains substr ignoring case.
func Contains(s, substr string) bool {
	fold := cases.Fold()
	return strings.Contains(fold.String(s), fold.String(substr))
}

func filter(query string, docs []document.Document) []document.Document {
	var out []document.Document
	for _, d := range docs {
		if Contains(d.Basename(), query) {
			out = append(out, d)
		}
	}
	return out
}

func rank(query string, docs []document.Document) []document.Document {
	if query == "" {
		return docs
	}
	names := make([]string, len(docs))
	for i, d := range docs {
		names[i] = d.Basename()
	}
	ranks := fuzzy.RankFindFold(query, names)
	sort.Stable(ranks)
	out := make([]document.Document, len(ranks))
	for i, r := range ranks {
		out[i] = docs[r.OriginalIndex]
	}
	return out
}

// SuggestFolders returns the store folders containing query, ignoring case.
func SuggestFolders(ctx context.Context, store document.Store, query string) ([]string, error) {
	folders, err := store.Folders(ctx)
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	var out []string
	for _, f := range folders {
		if Contains(f, query) {
			out = append(out, f)
		}
	}
	return out, nil
}
