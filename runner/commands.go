//
// Tencent is pleased to support the open source community by making trpc-pagescript-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-pagescript-go is licensed under the Apache License Version 2.0.
//
//

package runner

import "trpc.group/trpc-go/trpc-pagescript-go/router"

// Command ids hosts register.
const (
	CommandRunScript          = "run-script"
	CommandRunScriptToNewFile = "run-script-to-new-file"
)

// Command is a user-facing entry point into the pipeline.
type Command struct {
	ID   string                `json:"id"`
	Name string                `json:"name"`
	Mode router.InvocationMode `json:"mode"`
}

// Commands lists the commands in menu order.
var Commands = []Command{
	{ID: CommandRunScript, Name: "Run Script", Mode: router.InvocationInsert},
	{ID: CommandRunScriptToNewFile, Name: "Run Script to New File", Mode: router.InvocationNewFile},
}

// CommandByID looks up a command.
func CommandByID(id string) (Command, bool) {
	for _, c := range Commands {
		if c.ID == id {
			return c, true
		}
	}
	return Command{}, false
}
