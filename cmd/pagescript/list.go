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
	"fmt"

	"github.com/spf13/cobra"

	"trpc.group/trpc-go/trpc-pagescript-go/picker"
)

const (
	listUse                 = "list [query]"
	listShortDescription    = "list scripts in the scripts folder"
	msgNoScripts            = "No PageScripts found."
	foldersUse              = "folders [query]"
	foldersShortDescription = "list vault folders containing query"

	fuzzyFlagName        = "fuzzy"
	titlesFlagName       = "titles"
	fuzzyFlagDescription = "rank scripts by fuzzy match instead of substring"
	titleFlagDescription = "show the first heading of each script"
)

func newListCommand(a *app) *cobra.Command {
	var fuzzy, titles bool
	cmd := &cobra.Command{
		Use:   listUse,
		Short: listShortDescription,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed(fuzzyFlagName) {
				fuzzy = a.settings.Picker.Fuzzy
			}
			return a.list(commandContext(cmd), firstArg(args), fuzzy, titles)
		},
	}
	cmd.Flags().BoolVar(&fuzzy, fuzzyFlagName, false, fuzzyFlagDescription)
	cmd.Flags().BoolVar(&titles, titlesFlagName, false, titleFlagDescription)
	return cmd
}

func (a *app) list(ctx context.Context, query string, fuzzy, titles bool) error {
	pk := picker.New(a.store,
		picker.WithFolder(a.settings.ScriptsFolder),
		picker.WithFuzzy(fuzzy),
		picker.WithTitles(titles),
	)
	scripts, err := pk.Suggestions(ctx, query)
	if err != nil {
		return err
	}
	if len(scripts) == 0 {
		fmt.Fprintln(a.stderr, msgNoScripts)
		return nil
	}
	for _, s := range scripts {
		if s.Title != "" {
			fmt.Fprintf(a.stdout, "%s\t%s\t%s\n", s.Basename, s.Document.Path, s.Title)
			continue
		}
		fmt.Fprintf(a.stdout, "%s\t%s\n", s.Basename, s.Document.Path)
	}
	return nil
}

func newFoldersCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   foldersUse,
		Short: foldersShortDescription,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			folders, err := picker.SuggestFolders(commandContext(cmd), a.store, firstArg(args))
			if err != nil {
				return err
			}
			for _, f := range folders {
				fmt.Fprintln(a.stdout, f)
			}
			return nil
		},
	}
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
