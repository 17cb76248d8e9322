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
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"trpc.group/trpc-go/trpc-pagescript-go/picker"
)

// multiLineEnd terminates a multi-line answer.
const multiLineEnd = "."

// Commands of the script chooser.
const (
	chooseNext   = "n"
	choosePrev   = "p"
	chooseCancel = "q"
	chooseHint   = "Choose a script (n next, p previous, number to pick, enter to run, q to cancel): "
)

// console prompts on the terminal and prints notices.
type console struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer
}

func newConsole(in io.Reader, out io.Writer) *console {
	return &console{in: bufio.NewReader(in), out: out}
}

// Notify prints message on its own line. The timeout has no meaning here.
func (c *console) Notify(message string, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, message)
}

// Prompt asks for one line, or for several lines ended by a lone "." when
// multiLine is set. An empty single-line answer takes defaultValue and end
// of input cancels.
func (c *console) Prompt(ctx context.Context, text, defaultValue string, multiLine bool) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	if multiLine {
		fmt.Fprintf(c.out, "%s (end with %q on its own line)\n", text, multiLineEnd)
		return c.readLines(defaultValue)
	}
	if defaultValue != "" {
		fmt.Fprintf(c.out, "%s [%s]: ", text, defaultValue)
	} else {
		fmt.Fprintf(c.out, "%s: ", text)
	}
	line, err := c.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", false, err
	}
	if errors.Is(err, io.EOF) && line == "" {
		return "", false, nil
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return defaultValue, true, nil
	}
	return line, true, nil
}

func (c *console) readLines(defaultValue string) (string, bool, error) {
	var lines []string
	for {
		line, err := c.in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", false, err
		}
		trimmed := strings.TrimRight(line, "\r\n")
		if trimmed == multiLineEnd {
			break
		}
		if errors.Is(err, io.EOF) {
			if trimmed != "" {
				lines = append(lines, trimmed)
			}
			if len(lines) == 0 {
				return "", false, nil
			}
			break
		}
		lines = append(lines, trimmed)
	}
	if len(lines) == 0 {
		return defaultValue, true, nil
	}
	return strings.Join(lines, "\n"), true, nil
}

// Choose lists the entries of sel with the highlighted one marked and reads
// commands until one is picked. An empty line or end of input takes the
// highlighted entry; ok is false when the choice was canceled.
func (c *console) Choose(ctx context.Context, sel *picker.Selection[picker.Script]) (picker.Script, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for {
		if err := ctx.Err(); err != nil {
			return picker.Script{}, false, err
		}
		for i, s := range sel.Items() {
			marker := "  "
			if i == sel.Index() {
				marker = "> "
			}
			fmt.Fprintf(c.out, "%s%d. %s\t%s\n", marker, i+1, s.Basename, s.Document.Path)
		}
		fmt.Fprint(c.out, chooseHint)

		line, err := c.in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return picker.Script{}, false, err
		}
		cmd := strings.TrimSpace(line)
		if errors.Is(err, io.EOF) && cmd == "" {
			fmt.Fprintln(c.out)
			s, ok := sel.Selected()
			return s, ok, nil
		}
		switch cmd {
		case "":
			s, ok := sel.Selected()
			return s, ok, nil
		case chooseNext:
			sel.Next()
		case choosePrev:
			sel.Prev()
		case chooseCancel:
			return picker.Script{}, false, nil
		default:
			n, convErr := strconv.Atoi(cmd)
			if convErr != nil || n < 1 || n > len(sel.Items()) {
				fmt.Fprintf(c.out, "no entry %q\n", cmd)
				continue
			}
			sel.Set(n - 1)
			s, ok := sel.Selected()
			return s, ok, nil
		}
	}
}
