//
// Tencent is pleased to support the open source community by making trpc-pagescript-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-pagescript-go is licensed under the Apache License Version 2.0.
//
//

// Package document defines the host collaborators the script pipeline works
// against: documents identified by vault-relative paths, the Store that owns
// their content, and the Editor/Workspace pair describing what the user is
// looking at.
//
// Paths always use forward slashes and are relative to the vault root, e.g.
// "PageScripts/Insert Date.md". The root folder is the empty string.
package document
