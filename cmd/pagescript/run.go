//
// Tencent is pleased to support the open source community by making trpc-pagescript-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-pagescript-go is licensed under the Apache License Version 2.0.
//
//

package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"trpc.group/trpc-go/trpc-pagescript-go/document"
	"trpc.group/trpc-go/trpc-pagescript-go/document/buffer"
	"trpc.group/trpc-go/trpc-pagescript-go/picker"
	"trpc.group/trpc-go/trpc-pagescript-go/router"
	"trpc.group/trpc-go/trpc-pagescript-go/runner"
)

const (
	runUse              = "run <script>"
	runShortDescription = "run a PageScript against a note"
	runLongDescription  = `run executes the code blocks of a PageScript and writes the result.

The script is a vault path or a name looked up in the scripts folder. With
--target the output is routed into that note at --cursor, and the note is
saved. Without a target only --new-file produces a document.`

	newFileFlagName = "new-file"
	targetFlagName  = "target"
	cursorFlagName  = "cursor"
	cursorEnd       = "end"

	newFileFlagDescription = "write the output to a new document"
	targetFlagDescription  = "note to run against"
	cursorFlagDescription  = "caret in the target as zero-based line:column, or \"end\""
)

var (
	errScriptNotFound = errors.New("script not found")
	errNoChoice       = errors.New("no script chosen")
	errBadCursor      = errors.New("cursor must be line:column or end")
)

type runOptions struct {
	newFile bool
	target  string
	cursor  string
}

func newRunCommand(a *app) *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   runUse,
		Short: runShortDescription,
		Long:  runLongDescription,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(commandContext(cmd), args[0], opts)
		},
	}
	cmd.Flags().BoolVar(&opts.newFile, newFileFlagName, false, newFileFlagDescription)
	cmd.Flags().StringVar(&opts.target, targetFlagName, "", targetFlagDescription)
	cmd.Flags().StringVar(&opts.cursor, cursorFlagName, cursorEnd, cursorFlagDescription)
	return cmd
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func (a *app) run(ctx context.Context, query string, opts *runOptions) error {
	cons := newConsole(a.stdin, a.stderr)
	script, err := a.resolveScript(ctx, query, cons)
	if err != nil {
		return err
	}

	ws := document.StaticWorkspace{}
	var (
		target document.Document
		ed     *buffer.Buffer
	)
	if opts.target != "" {
		p, err := document.CleanPath(opts.target)
		if err != nil {
			return err
		}
		target = document.New(p)
		text, err := a.store.Read(ctx, target)
		if err != nil {
			return err
		}
		ed = buffer.New(text)
		pos, err := parseCursor(opts.cursor, ed)
		if err != nil {
			return err
		}
		if err := ed.SetCursor(pos); err != nil {
			return err
		}
		ws.Editor = ed
		ws.Document = &target
	}

	inv := router.InvocationInsert
	if opts.newFile {
		inv = router.InvocationNewFile
	}
	rn, err := runner.NewRunner(a.store,
		runner.WithWorkspace(ws),
		runner.WithNotifier(cons),
		runner.WithPrompter(cons),
		runner.WithScriptsFolder(a.settings.ScriptsFolder),
	)
	if err != nil {
		return err
	}
	defer rn.Close()

	res, err := rn.Run(ctx, script, inv)
	if err != nil {
		return err
	}
	if res.Outcome.Document != nil {
		fmt.Fprintln(a.stdout, res.Outcome.Document.Path)
		return nil
	}
	if ed != nil && res.Outcome.State == router.StateApplied {
		return a.store.Write(ctx, target, ed.Value())
	}
	return nil
}

// resolveScript accepts a vault path, a path relative to the scripts
// folder, or a basename query. A query matching several scripts is settled
// on the console.
func (a *app) resolveScript(ctx context.Context, query string, cons *console) (document.Document, error) {
	for _, candidate := range scriptCandidates(a.settings.ScriptsFolder, query) {
		p, err := document.CleanPath(candidate)
		if err != nil {
			continue
		}
		doc := document.New(p)
		if _, err := a.store.Read(ctx, doc); err == nil {
			return doc, nil
		}
	}
	pk := picker.New(a.store,
		picker.WithFolder(a.settings.ScriptsFolder),
		picker.WithFuzzy(a.settings.Picker.Fuzzy),
	)
	scripts, err := pk.Suggestions(ctx, query)
	if err != nil {
		return document.Document{}, err
	}
	switch len(scripts) {
	case 0:
		return document.Document{}, fmt.Errorf("%w: %s", errScriptNotFound, query)
	case 1:
		return scripts[0].Document, nil
	}
	chosen, ok, err := cons.Choose(ctx, picker.NewSelection(scripts))
	if err != nil {
		return document.Document{}, err
	}
	if !ok {
		return document.Document{}, fmt.Errorf("%w: %s", errNoChoice, query)
	}
	return chosen.Document, nil
}

func scriptCandidates(folder, query string) []string {
	var out []string
	for _, base := range []string{"", folder} {
		p := query
		if base != "" {
			p = base + "/" + query
		}
		out = append(out, p)
		if !strings.HasSuffix(strings.ToLower(p), ".md") {
			out = append(out, p+".md")
		}
	}
	return out
}

func parseCursor(s string, ed document.Editor) (document.Position, error) {
	if s == "" || s == cursorEnd {
		last := ed.LastLine()
		return document.Position{Line: last, Column: document.Len(ed.Line(last))}, nil
	}
	line, col, ok := strings.Cut(s, ":")
	if !ok {
		return document.Position{}, fmt.Errorf("%w: %q", errBadCursor, s)
	}
	l, err := strconv.Atoi(line)
	if err != nil || l < 0 {
		return document.Position{}, fmt.Errorf("%w: %q", errBadCursor, s)
	}
	c, err := strconv.Atoi(col)
	if err != nil || c < 0 {
		return document.Position{}, fmt.Errorf("%w: %q", errBadCursor, s)
	}
	return document.Position{Line: l, Column: c}, nil
}
