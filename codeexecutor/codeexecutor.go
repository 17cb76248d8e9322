//
// Tencent is pleased to support the open source community by making trpc-pagescript-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-pagescript-go is licensed under the Apache License Version 2.0.
//
//

// Package codeexecutor extracts script blocks from markdown and defines the
// contract for engines that run them.
package codeexecutor

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"trpc.group/trpc-go/trpc-pagescript-go/capability"
)

// CodeExecutor runs the blocks of one invocation against a capability set.
type CodeExecutor interface {
	// Run executes blocks in order. Script failures are contained in the
	// result text; the returned error is reserved for host failures such as
	// context cancellation.
	Run(ctx context.Context, blocks []CodeBlock, caps capability.Context) (ExecutionResult, error)
}

// OutputMode selects where script output goes.
type OutputMode string

// Output modes scripts can declare.
const (
	ModePage      OutputMode = "page"
	ModeSelection OutputMode = "selection"
	ModeCursor    OutputMode = "cursor"
	ModeAppend    OutputMode = "append"
	ModeNewFile   OutputMode = "newfile"
)

// IsKnown reports whether m is one of the declared modes.
func (m OutputMode) IsKnown() bool {
	switch m {
	case ModePage, ModeSelection, ModeCursor, ModeAppend, ModeNewFile:
		return true
	}
	return false
}

// BlockResult records what a single block contributed.
type BlockResult struct {
	Index    int           `json:"index"`
	Output   string        `json:"output,omitempty"`
	Skipped  bool          `json:"skipped,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// ExecutionResult is the outcome of running all blocks of a script.
type ExecutionResult struct {
	// Text is the "\n\n"-joined contributions, "" when nothing was returned.
	Text string `json:"text"`
	// DeclaredMode is the last mode a script declared, "" when none.
	DeclaredMode OutputMode    `json:"declaredMode,omitempty"`
	Blocks       []BlockResult `json:"blocks,omitempty"`
}

// String implements the Stringer interface.
func (r ExecutionResult) String() string {
	if r.Text == "" {
		return "Script execution result: no output"
	}
	if r.DeclaredMode != "" {
		return fmt.Sprintf("Script execution result (%s):\n%s", r.DeclaredMode, r.Text)
	}
	return "Script execution result:\n" + r.Text
}

// OutputSeparator joins block contributions.
const OutputSeparator = "\n\n"

// JoinOutputs builds ExecutionResult.Text from block results, skipping blocks
// that returned nothing.
func JoinOutputs(blocks []BlockResult) string {
	var parts []string
	for _, b := range blocks {
		if b.Skipped {
			continue
		}
		parts = append(parts, b.Output)
	}
	return strings.Join(parts, OutputSeparator)
}

// BlockError formats the inline contribution of a failed block. index is
// zero-based; the message shows it one-based.
func BlockError(index int, message string) string {
	return fmt.Sprintf("Error in block %d: %s", index+1, message)
}

// CodeBlock represents a single block of code to be executed.
type CodeBlock struct {
	Index    int
	Code     string
	Language string
}

// scriptFence matches a fence tagged javascript or js followed directly by a
// newline, up to the next triple backtick.
var scriptFence = regexp.MustCompile("(?s)```(javascript|js)\n(.*?)```")

// ExtractScriptBlocks returns the JavaScript blocks of a markdown document in
// source order, bodies trimmed. Text without such blocks yields nil.
func ExtractScriptBlocks(text string) []CodeBlock {
	var blocks []CodeBlock
	for _, match := range scriptFence.FindAllStringSubmatch(text, -1) {
		blocks = append(blocks, CodeBlock{
			Index:    len(blocks),
			Code:     strings.TrimSpace(match[2]),
			Language: match[1],
		})
	}
	return blocks
}
