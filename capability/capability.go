//
// Tencent is pleased to support the open source community by making trpc-pagescript-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-pagescript-go is licensed under the Apache License Version 2.0.
//
//

// Package capability defines the fixed set of host objects a PageScript
// block can reach. Script engines bind exactly these names and nothing else.
package capability

import (
	"context"
	"sync"
	"time"

	"trpc.group/trpc-go/trpc-pagescript-go/document"
)

// Parameter names every block is compiled with, in order.
const (
	ParamApp           = "app"
	ParamNotify        = "notify"
	ParamNotice        = "Notice"
	ParamSetOutputMode = "setOutputMode"
	ParamHelper        = "ps"
)

// Names lists the block parameters in call order.
var Names = []string{ParamApp, ParamNotify, ParamNotice, ParamSetOutputMode, ParamHelper}

// Notifier shows a short message to the user. A zero timeout means the
// host's default duration.
type Notifier interface {
	Notify(message string, timeout time.Duration)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(message string, timeout time.Duration)

// Notify implements Notifier.
func (f NotifierFunc) Notify(message string, timeout time.Duration) {
	f(message, timeout)
}

// Notice is one recorded notification.
type Notice struct {
	Message string        `json:"message"`
	Timeout time.Duration `json:"timeout,omitempty"`
}

// Recorder is a Notifier that keeps every notice in order.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

// Notify implements Notifier.
func (r *Recorder) Notify(message string, timeout time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, Notice{Message: message, Timeout: timeout})
}

// Notices returns a copy of the recorded notices.
func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notice(nil), r.notices...)
}

// Messages returns only the recorded messages.
func (r *Recorder) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.notices))
	for i, n := range r.notices {
		out[i] = n.Message
	}
	return out
}

// Prompter asks the user for text. ok is false when the user cancels.
type Prompter interface {
	Prompt(ctx context.Context, text, defaultValue string, multiLine bool) (value string, ok bool, err error)
}

// PrompterFunc adapts a function to Prompter.
type PrompterFunc func(ctx context.Context, text, defaultValue string, multiLine bool) (string, bool, error)

// Prompt implements Prompter.
func (f PrompterFunc) Prompt(ctx context.Context, text, defaultValue string, multiLine bool) (string, bool, error) {
	return f(ctx, text, defaultValue, multiLine)
}

// App is the read-only application accessor exposed as `app`.
type App struct {
	Workspace     document.Workspace
	ScriptsFolder string
}

// ActiveDocument returns the document in the focused editor.
func (a App) ActiveDocument() (document.Document, bool) {
	if a.Workspace == nil {
		return document.Document{}, false
	}
	return a.Workspace.ActiveDocument()
}

// Selection returns the focused editor's selected text, "" without an editor.
func (a App) Selection() string {
	if a.Workspace == nil {
		return ""
	}
	ed, ok := a.Workspace.ActiveEditor()
	if !ok {
		return ""
	}
	return ed.Selection()
}

// EditorText returns the focused editor's content.
func (a App) EditorText() (string, bool) {
	if a.Workspace == nil {
		return "", false
	}
	ed, ok := a.Workspace.ActiveEditor()
	if !ok {
		return "", false
	}
	return ed.Value(), true
}

// Context is the capability set handed to every block of one invocation.
// The output-mode setter is not part of it: engines create it per
// invocation around their own accumulator.
type Context struct {
	App      App
	Notifier Notifier
	// Helper is optional; scripts see `ps` as undefined when it is nil.
	Helper *Helper
}

// Notify forwards to Notifier when one is set.
func (c Context) Notify(message string, timeout time.Duration) {
	if c.Notifier != nil {
		c.Notifier.Notify(message, timeout)
	}
}
