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
	"io"

	"github.com/spf13/cobra"

	"trpc.group/trpc-go/trpc-pagescript-go/config"
	"trpc.group/trpc-go/trpc-pagescript-go/document/local"
	"trpc.group/trpc-go/trpc-pagescript-go/log"
	ametric "trpc.group/trpc-go/trpc-pagescript-go/telemetry/metric"
	atrace "trpc.group/trpc-go/trpc-pagescript-go/telemetry/trace"
)

const (
	rootUse              = "pagescript"
	rootShortDescription = "run JavaScript snippets stored in markdown notes"
	rootLongDescription  = `pagescript lists and runs PageScripts: markdown documents whose
javascript or js code blocks produce text for the note you are editing.
Scripts are listed from the scripts folder of a vault directory.`

	configFlagName        = "config"
	vaultFlagName         = "vault"
	scriptsFolderFlagName = "scripts-folder"
	logLevelFlagName      = "log-level"
	defaultConfigPath     = "pagescript.yaml"

	configFlagDescription        = "settings file"
	vaultFlagDescription         = "vault directory (overrides settings)"
	scriptsFolderFlagDescription = "scripts folder inside the vault (overrides settings)"
	logLevelFlagDescription      = "log level: debug, info, warn, error"
)

// app carries what every sub-command needs.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	configPath    string
	vault         string
	scriptsFolder string
	logLevel      string

	settings config.Settings
	store    *local.Store
	closers  []func() error
}

func newRootCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr}
	root := &cobra.Command{
		Use:          rootUse,
		Short:        rootShortDescription,
		Long:         rootLongDescription,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.Context())
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.close()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, configFlagName, defaultConfigPath, configFlagDescription)
	flags.StringVar(&a.vault, vaultFlagName, "", vaultFlagDescription)
	flags.StringVar(&a.scriptsFolder, scriptsFolderFlagName, "", scriptsFolderFlagDescription)
	flags.StringVar(&a.logLevel, logLevelFlagName, "", logLevelFlagDescription)

	root.AddCommand(
		newRunCommand(a),
		newListCommand(a),
		newFoldersCommand(a),
		newServeCommand(a),
	)
	return root
}

// setup loads settings, applies flag overrides and opens the vault.
func (a *app) setup(ctx context.Context) error {
	log.SetOutput(a.stderr)
	s, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.vault != "" {
		s.Vault = a.vault
	}
	if a.scriptsFolder != "" {
		s.ScriptsFolder = a.scriptsFolder
	}
	if a.logLevel != "" {
		s.LogLevel = a.logLevel
	}
	s.Normalize()
	if err := s.Validate(); err != nil {
		return err
	}
	a.settings = s
	log.SetLevel(s.LogLevel)

	store, err := local.NewStore(s.Vault)
	if err != nil {
		return fmt.Errorf("open vault: %w", err)
	}
	a.store = store

	if ctx == nil {
		ctx = context.Background()
	}
	if s.Tracing.Enabled() {
		shutdown, err := atrace.Start(ctx, traceOptions(s.Tracing)...)
		if err != nil {
			return fmt.Errorf("start tracing: %w", err)
		}
		a.closers = append(a.closers, shutdown)
	}
	if s.Metrics.Enabled() {
		mp, err := ametric.NewMeterProvider(ctx, metricOptions(s.Metrics)...)
		if err != nil {
			return fmt.Errorf("start metrics: %w", err)
		}
		if err := ametric.InitMeterProvider(mp); err != nil {
			return err
		}
		a.closers = append(a.closers, func() error { return mp.Shutdown(context.Background()) })
	}
	return nil
}

// close flushes exporters started by setup.
func (a *app) close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func traceOptions(c config.ExporterConfig) []atrace.Option {
	opts := []atrace.Option{atrace.WithHeaders(c.Headers)}
	if c.Protocol != "" {
		opts = append(opts, atrace.WithProtocol(c.Protocol))
	}
	if c.Endpoint != "" {
		opts = append(opts, atrace.WithEndpoint(c.Endpoint))
	}
	if c.EndpointURL != "" {
		opts = append(opts, atrace.WithEndpointURL(c.EndpointURL))
	}
	return opts
}

func metricOptions(c config.ExporterConfig) []ametric.Option {
	opts := []ametric.Option{ametric.WithHeaders(c.Headers)}
	if c.Protocol != "" {
		opts = append(opts, ametric.WithProtocol(c.Protocol))
	}
	if c.Endpoint != "" {
		opts = append(opts, ametric.WithEndpoint(c.Endpoint))
	}
	return opts
}
