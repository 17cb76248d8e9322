//
// Tencent is pleased to support the open source community by making trpc-pagescript-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-pagescript-go is licensed under the Apache License Version 2.0.
//
//

package document

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// Sentinel errors returned by Store implementations.
var (
	// ErrNotFound indicates the document or folder does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrExists indicates a create or rename target is already taken.
	ErrExists = errors.New("document already exists")
	// ErrInvalidPath indicates a path that is empty or escapes the vault.
	ErrInvalidPath = errors.New("invalid document path")
)

// MarkdownExtension is the extension PageScripts are stored with.
const MarkdownExtension = "md"

// Document identifies a file in the vault. It carries no content.
type Document struct {
	Path string `json:"path"`
}

// New returns the Document for p without validating it.
func New(p string) Document {
	return Document{Path: p}
}

// Name is the final path element including its extension.
func (d Document) Name() string {
	return path.Base(d.Path)
}

// Extension is the extension without the leading dot.
func (d Document) Extension() string {
	return strings.TrimPrefix(path.Ext(d.Path), ".")
}

// Basename is the name without its extension.
func (d Document) Basename() string {
	return strings.TrimSuffix(d.Name(), path.Ext(d.Path))
}

// Folder is the parent folder path, "" for the vault root.
func (d Document) Folder() string {
	dir := path.Dir(d.Path)
	if dir == "." || dir == "/" {
		return ""
	}
	return dir
}

// IsMarkdown reports whether the document has the markdown extension.
func (d Document) IsMarkdown() bool {
	return d.Extension() == MarkdownExtension
}

// CleanPath normalizes p to a vault-relative slash path. Leading slashes are
// dropped; paths that are empty or climb out of the vault are rejected.
func CleanPath(p string) (string, error) {
	p = strings.ReplaceAll(strings.TrimSpace(p), "\\", "/")
	if p == "" {
		return "", fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	cleaned := path.Clean("/" + p)
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" {
		return "", fmt.Errorf("%w: %q resolves to the vault root", ErrInvalidPath, p)
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return "", fmt.Errorf("%w: %q leaves the vault", ErrInvalidPath, p)
		}
	}
	return cleaned, nil
}

// CleanFolder normalizes a folder path. Unlike CleanPath it accepts the
// vault root, returned as "".
func CleanFolder(p string) (string, error) {
	trimmed := strings.Trim(strings.ReplaceAll(strings.TrimSpace(p), "\\", "/"), "/")
	if trimmed == "" || trimmed == "." {
		return "", nil
	}
	return CleanPath(trimmed)
}
