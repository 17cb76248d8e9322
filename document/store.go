//
// Tencent is pleased to support the open source community by making trpc-pagescript-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-pagescript-go is licensed under the Apache License Version 2.0.
//
//

package document

import "context"

// Store owns document content.
//
// Contract:
// - Context: blocking implementations must honor cancellation.
// - Errors: missing documents wrap ErrNotFound, taken targets wrap ErrExists,
//   bad paths wrap ErrInvalidPath; callers use errors.Is.
// - Concurrency: implementations must be safe for concurrent use.
type Store interface {
	// Read returns the full content of doc.
	Read(ctx context.Context, doc Document) (string, error)
	// Write replaces the content of an existing doc.
	Write(ctx context.Context, doc Document, content string) error
	// Create makes a new document at p. Missing parent folders are created.
	Create(ctx context.Context, p string, content string) (Document, error)
	// Rename moves doc to newPath and returns the moved document.
	Rename(ctx context.Context, doc Document, newPath string) (Document, error)
	// List returns the documents directly inside folder, sorted by path.
	// A missing folder wraps ErrNotFound.
	List(ctx context.Context, folder string) ([]Document, error)
	// Folders returns every folder path in the vault, sorted, excluding the root.
	Folders(ctx context.Context) ([]string, error)
}
