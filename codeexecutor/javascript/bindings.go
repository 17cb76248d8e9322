//
// Tencent is pleased to support the open source community by making trpc-pagescript-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-pagescript-go is licensed under the Apache License Version 2.0.
//
//

package javascript

import (
	"context"
	"errors"

	"github.com/dop251/goja"

	"trpc.group/trpc-go/trpc-pagescript-go/codeexecutor"
	"trpc.group/trpc-go/trpc-pagescript-go/document"
)

var errBadHandle = errors.New("expected a document handle or path")

// bindings returns the capability values in parameter order.
func (s *session) bindings() []goja.Value {
	return []goja.Value{
		s.appObject(),
		s.vm.ToValue(s.notify),
		s.vm.ToValue(s.newNotice),
		s.vm.ToValue(s.setOutputMode),
		s.helperObject(),
	}
}

func (s *session) appObject() goja.Value {
	app := s.vm.NewObject()
	_ = app.Set("scriptsFolder", s.caps.App.ScriptsFolder)
	_ = app.Set("activeDocument", func(goja.FunctionCall) goja.Value {
		doc, ok := s.caps.App.ActiveDocument()
		if !ok {
			return goja.Null()
		}
		return s.handle(doc)
	})
	_ = app.Set("selection", func(goja.FunctionCall) goja.Value {
		return s.vm.ToValue(s.caps.App.Selection())
	})
	_ = app.Set("editorText", func(goja.FunctionCall) goja.Value {
		text, ok := s.caps.App.EditorText()
		if !ok {
			return goja.Null()
		}
		return s.vm.ToValue(text)
	})
	return app
}

// notify implements notify(message, timeoutMillis?).
func (s *session) notify(call goja.FunctionCall) goja.Value {
	s.caps.Notify(optionalString(call.Argument(0), ""), timeout(call.Argument(1)))
	return goja.Undefined()
}

// newNotice implements `new Notice(message, timeoutMillis?)`.
func (s *session) newNotice(call goja.ConstructorCall) *goja.Object {
	msg := optionalString(call.Argument(0), "")
	s.caps.Notify(msg, timeout(call.Argument(1)))
	_ = call.This.Set("message", msg)
	_ = call.This.Set("hide", func(goja.FunctionCall) goja.Value { return goja.Undefined() })
	return nil
}

// setOutputMode records the requested mode. undefined and null clear it.
func (s *session) setOutputMode(call goja.FunctionCall) goja.Value {
	v := call.Argument(0)
	if goja.IsUndefined(v) || goja.IsNull(v) {
		*s.mode = ""
	} else {
		*s.mode = codeexecutor.OutputMode(v.String())
	}
	return goja.Undefined()
}

// helperObject builds `ps`, or undefined when the host gave no helper.
func (s *session) helperObject() goja.Value {
	h := s.caps.Helper
	if h == nil {
		return goja.Undefined()
	}
	ps := s.vm.NewObject()

	prompt := func(call goja.FunctionCall) goja.Value {
		text := optionalString(call.Argument(0), "")
		def := optionalString(call.Argument(1), "")
		multiLine := call.Argument(2).ToBoolean()
		return s.async(func(ctx context.Context) (any, error) {
			return h.Prompt(ctx, text, def, multiLine)
		}, func(v any) goja.Value {
			answer, _ := v.(*string)
			if answer == nil {
				return goja.Null()
			}
			return s.vm.ToValue(*answer)
		})
	}
	current := func(goja.FunctionCall) goja.Value {
		doc, ok := h.CurrentDocument()
		if !ok {
			return goja.Null()
		}
		return s.handle(doc)
	}
	read := func(call goja.FunctionCall) goja.Value {
		doc, err := s.toDocument(call.Argument(0))
		if err != nil {
			return s.rejected(err)
		}
		return s.async(func(ctx context.Context) (any, error) {
			return h.ReadDocument(ctx, doc)
		}, func(v any) goja.Value {
			return s.vm.ToValue(v)
		})
	}
	write := func(call goja.FunctionCall) goja.Value {
		doc, err := s.toDocument(call.Argument(0))
		if err != nil {
			return s.rejected(err)
		}
		text := optionalString(call.Argument(1), "")
		return s.async(func(ctx context.Context) (any, error) {
			return nil, h.WriteDocument(ctx, doc, text)
		}, func(any) goja.Value {
			return goja.Undefined()
		})
	}
	rename := func(call goja.FunctionCall) goja.Value {
		doc, err := s.toDocument(call.Argument(0))
		if err != nil {
			return s.rejected(err)
		}
		newPath := optionalString(call.Argument(1), "")
		return s.async(func(ctx context.Context) (any, error) {
			return h.RenameDocument(ctx, doc, newPath)
		}, func(v any) goja.Value {
			return s.handle(v.(document.Document))
		})
	}

	_ = ps.Set("prompt", prompt)
	_ = ps.Set("notice", s.notify)
	_ = ps.Set("currentDocument", current)
	_ = ps.Set("readDocument", read)
	_ = ps.Set("writeDocument", write)
	_ = ps.Set("renameDocument", rename)
	_ = ps.Set("readFile", read)
	_ = ps.Set("writeFile", write)
	_ = ps.Set("renameFile", rename)
	_ = ps.DefineAccessorProperty("currentFile", s.vm.ToValue(current), nil, goja.FLAG_FALSE, goja.FLAG_TRUE)
	return ps
}

// handle exposes doc as {path, name, basename, extension, folder}.
func (s *session) handle(doc document.Document) *goja.Object {
	obj := s.vm.NewObject()
	_ = obj.Set("path", doc.Path)
	_ = obj.Set("name", doc.Name())
	_ = obj.Set("basename", doc.Basename())
	_ = obj.Set("extension", doc.Extension())
	_ = obj.Set("folder", doc.Folder())
	return obj
}

// toDocument accepts a handle object or a path string.
func (s *session) toDocument(v goja.Value) (document.Document, error) {
	if goja.IsUndefined(v) || goja.IsNull(v) {
		return document.Document{}, errBadHandle
	}
	if obj, ok := v.(*goja.Object); ok {
		v = obj.Get("path")
		if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
			return document.Document{}, errBadHandle
		}
	}
	raw := v.String()
	cleaned, err := document.CleanPath(raw)
	if err != nil {
		return document.Document{}, err
	}
	return document.New(cleaned), nil
}
