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
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-pagescript-go/config"
	"trpc.group/trpc-go/trpc-pagescript-go/document"
	"trpc.group/trpc-go/trpc-pagescript-go/document/buffer"
	"trpc.group/trpc-go/trpc-pagescript-go/document/local"
	"trpc.group/trpc-go/trpc-pagescript-go/picker"
	"trpc.group/trpc-go/trpc-pagescript-go/runner"
)

func script(body string) string {
	return "# Script\n\n```js\n" + body + "\n```\n"
}

func newVault(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for p, content := range files {
		full := filepath.Join(dir, filepath.FromSlash(p))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	return dir
}

func execute(t *testing.T, vault, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCommand(strings.NewReader(stdin), &stdout, &stderr)
	cmd.SetArgs(append([]string{
		"--" + configFlagName, filepath.Join(vault, "missing.yaml"),
		"--" + vaultFlagName, vault,
	}, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func readFile(t *testing.T, vault, p string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(vault, filepath.FromSlash(p)))
	require.NoError(t, err)
	return string(data)
}

func TestRunIntoTarget(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		cursor string
		want   string
	}{
		{"at end", `return "!"`, cursorEnd, "hello\nworld!"},
		{"at position", `return "X"`, "0:2", "heXllo\nworld"},
		{"append mode", `setOutputMode("append"); return "tail"`, "0:0", "hello\nworld\ntail"},
		{"page mode", `return {content: "new page", mode: "page"}`, "0:0", "new page"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vault := newVault(t, map[string]string{
				"PageScripts/Greet.md": script(tt.body),
				"note.md":              "hello\nworld",
			})
			_, stderr, err := execute(t, vault, "", "run", "Greet",
				"--"+targetFlagName, "note.md", "--"+cursorFlagName, tt.cursor)
			require.NoError(t, err, stderr)
			assert.Equal(t, tt.want, readFile(t, vault, "note.md"))
		})
	}
}

func TestRunByPath(t *testing.T) {
	vault := newVault(t, map[string]string{
		"tools/upper.md": script(`return "UP"`),
		"note.md":        "",
	})
	_, _, err := execute(t, vault, "", "run", "tools/upper.md", "--"+targetFlagName, "note.md")
	require.NoError(t, err)
	assert.Equal(t, "UP", readFile(t, vault, "note.md"))
}

func TestRunToNewFile(t *testing.T) {
	vault := newVault(t, map[string]string{
		"PageScripts/Report.md": script(`return "report body"`),
	})
	stdout, _, err := execute(t, vault, "", "run", "Report", "--"+newFileFlagName)
	require.NoError(t, err)

	created := strings.TrimSpace(stdout)
	assert.True(t, strings.HasPrefix(created, "Script Output "), created)
	assert.Equal(t, "report body", readFile(t, vault, created))
}

func TestRunWithoutTarget(t *testing.T) {
	vault := newVault(t, map[string]string{
		"PageScripts/Greet.md": script(`return "hi"`),
	})
	stdout, stderr, err := execute(t, vault, "", "run", "Greet")
	require.NoError(t, err)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "No active markdown view")
}

func TestRunPrompt(t *testing.T) {
	vault := newVault(t, map[string]string{
		"PageScripts/Ask.md": script(`return ps.prompt("Name").then(n => n === null ? "nobody" : "Hello " + n)`),
		"note.md":            "",
	})
	_, _, err := execute(t, vault, "Ada\n", "run", "Ask", "--"+targetFlagName, "note.md")
	require.NoError(t, err)
	assert.Equal(t, "Hello Ada", readFile(t, vault, "note.md"))

	_, _, err = execute(t, vault, "", "run", "Ask", "--"+targetFlagName, "note.md", "--"+cursorFlagName, "0:0")
	require.NoError(t, err)
	assert.Equal(t, "nobodyHello Ada", readFile(t, vault, "note.md"))
}

func TestRunNotices(t *testing.T) {
	vault := newVault(t, map[string]string{
		"PageScripts/Loud.md": script(`notify("first"); new Notice("second"); return undefined`),
		"note.md":             "keep",
	})
	_, stderr, err := execute(t, vault, "", "run", "Loud", "--"+targetFlagName, "note.md")
	require.NoError(t, err)
	assert.Contains(t, stderr, "first\nsecond\n")
	assert.Equal(t, "keep", readFile(t, vault, "note.md"))
}

func TestRunNoBlocks(t *testing.T) {
	vault := newVault(t, map[string]string{
		"PageScripts/Empty.md": "# nothing to run\n",
	})
	_, stderr, err := execute(t, vault, "", "run", "Empty", "--"+newFileFlagName)
	require.NoError(t, err)
	assert.Contains(t, stderr, runner.MsgNoBlocks)
}

func TestRunChoosesAmongMatches(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{"enter takes first", "\n", "from Greet", nil},
		{"end of input takes first", "", "from Greet", nil},
		{"next", "n\n\n", "from Grey", nil},
		{"previous wraps", "p\n\n", "from Grey", nil},
		{"number", "2\n", "from Grey", nil},
		{"out of range then number", "7\n1\n", "from Greet", nil},
		{"cancel", "q\n", "", errNoChoice},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vault := newVault(t, map[string]string{
				"PageScripts/Greet.md": script(`return "from Greet"`),
				"PageScripts/Grey.md":  script(`return "from Grey"`),
				"note.md":              "",
			})
			_, stderr, err := execute(t, vault, tt.input, "run", "gre", "--"+targetFlagName, "note.md")
			assert.Contains(t, stderr, "1. Greet\tPageScripts/Greet.md")
			assert.Contains(t, stderr, "2. Grey\tPageScripts/Grey.md")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, readFile(t, vault, "note.md"))
				return
			}
			require.NoError(t, err, stderr)
			assert.Equal(t, tt.want, readFile(t, vault, "note.md"))
		})
	}
}

func TestConsoleChooseCanceled(t *testing.T) {
	c := newConsole(strings.NewReader("\n"), &bytes.Buffer{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sel := picker.NewSelection([]picker.Script{{Basename: "a"}, {Basename: "b"}})
	_, ok, err := c.Choose(ctx, sel)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, ok)
}

func TestRunErrors(t *testing.T) {
	vault := newVault(t, map[string]string{
		"PageScripts/Greet.md": script(`return "hi"`),
		"note.md":              "",
	})
	tests := []struct {
		name    string
		args    []string
		wantErr error
	}{
		{"unknown script", []string{"run", "Missing"}, errScriptNotFound},
		{"missing target", []string{"run", "Greet", "--" + targetFlagName, "absent.md"}, document.ErrNotFound},
		{"bad cursor", []string{"run", "Greet", "--" + targetFlagName, "note.md", "--" + cursorFlagName, "x"}, errBadCursor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, vault, "", tt.args...)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestInvalidSettings(t *testing.T) {
	vault := newVault(t, nil)
	_, _, err := execute(t, vault, "", "--"+logLevelFlagName, "chatty", "list")
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestList(t *testing.T) {
	vault := newVault(t, map[string]string{
		"PageScripts/Alpha.md":  "# First script\n",
		"PageScripts/Beta.md":   "no heading",
		"PageScripts/notes.txt": "ignored",
		"Other/Gamma.md":        "",
	})
	stdout, _, err := execute(t, vault, "", "list")
	require.NoError(t, err)
	assert.Equal(t, "Alpha\tPageScripts/Alpha.md\nBeta\tPageScripts/Beta.md\n", stdout)

	stdout, _, err = execute(t, vault, "", "list", "alp", "--"+titlesFlagName)
	require.NoError(t, err)
	assert.Equal(t, "Alpha\tPageScripts/Alpha.md\tFirst script\n", stdout)

	stdout, _, err = execute(t, vault, "", "--"+scriptsFolderFlagName, "Other/", "list")
	require.NoError(t, err)
	assert.Equal(t, "Gamma\tOther/Gamma.md\n", stdout)

	stdout, stderr, err := execute(t, vault, "", "list", "zzz")
	require.NoError(t, err)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, msgNoScripts)
}

func TestFolders(t *testing.T) {
	vault := newVault(t, map[string]string{
		"PageScripts/a.md":   "",
		"Projects/Web/b.md":  "",
		"Projects/Scripts/c": "",
	})
	stdout, _, err := execute(t, vault, "", "folders", "script")
	require.NoError(t, err)
	assert.Equal(t, "PageScripts\nProjects/Scripts\n", stdout)
}

func TestExporterOptions(t *testing.T) {
	c := config.ExporterConfig{Protocol: "http", Endpoint: "collector:4318", EndpointURL: "http://collector:4318/v1/traces"}
	assert.Len(t, traceOptions(c), 4)
	assert.Len(t, metricOptions(c), 3)
	assert.Len(t, traceOptions(config.ExporterConfig{}), 1)
}

func TestParseCursor(t *testing.T) {
	ed := buffer.New("one\ntwö")
	tests := []struct {
		in      string
		want    document.Position
		wantErr bool
	}{
		{"", document.Position{Line: 1, Column: 3}, false},
		{cursorEnd, document.Position{Line: 1, Column: 3}, false},
		{"0:2", document.Position{Line: 0, Column: 2}, false},
		{"1", document.Position{}, true},
		{"-1:0", document.Position{}, true},
		{"a:b", document.Position{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseCursor(tt.in, ed)
			if tt.wantErr {
				assert.ErrorIs(t, err, errBadCursor)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConsolePrompt(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		def       string
		multiLine bool
		want      string
		wantOK    bool
	}{
		{"single line", "Ada\n", "", false, "Ada", true},
		{"empty takes default", "\n", "seed", false, "seed", true},
		{"last line without newline", "Ada", "", false, "Ada", true},
		{"end of input cancels", "", "seed", false, "", false},
		{"multi line", "a\nb\n.\n", "", true, "a\nb", true},
		{"multi line default", ".\n", "seed", true, "seed", true},
		{"multi line until eof", "a\nb", "", true, "a\nb", true},
		{"multi line empty input cancels", "", "seed", true, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			c := newConsole(strings.NewReader(tt.input), &out)
			got, ok, err := c.Prompt(context.Background(), "Question", tt.def, tt.multiLine)
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
			assert.Contains(t, out.String(), "Question")
		})
	}
}

func TestConsolePromptCanceled(t *testing.T) {
	c := newConsole(strings.NewReader("Ada\n"), &bytes.Buffer{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, ok, err := c.Prompt(ctx, "Question", "", false)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, ok)
}

func TestServe(t *testing.T) {
	vault := newVault(t, map[string]string{"PageScripts/Greet.md": script(`return "hi"`)})
	store, err := local.NewStore(vault)
	require.NoError(t, err)
	a := &app{settings: config.Default(), store: store}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/v1/commands")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var commands []runner.Command
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&commands))
	assert.Len(t, commands, len(runner.Commands))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop")
	}
}
