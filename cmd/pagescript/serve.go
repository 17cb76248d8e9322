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
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"trpc.group/trpc-go/trpc-pagescript-go/log"
	"trpc.group/trpc-go/trpc-pagescript-go/server/bridge"
)

const (
	serveUse              = "serve"
	serveShortDescription = "serve the HTTP bridge for external editors"
	addrFlagName          = "addr"
	addrFlagDescription   = "listen address (overrides settings)"

	shutdownTimeout = 10 * time.Second
)

func newServeCommand(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   serveUse,
		Short: serveShortDescription,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = a.settings.Bridge.Addr
			}
			ctx, stop := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return err
			}
			return a.serve(ctx, ln)
		},
	}
	cmd.Flags().StringVar(&addr, addrFlagName, "", addrFlagDescription)
	return cmd
}

// serve runs the bridge on ln until ctx is done, then shuts down gracefully.
func (a *app) serve(ctx context.Context, ln net.Listener) error {
	srv, err := bridge.New(a.store,
		bridge.WithScriptsFolder(a.settings.ScriptsFolder),
		bridge.WithFuzzy(a.settings.Picker.Fuzzy),
		bridge.WithAllowedOrigins(a.settings.Bridge.AllowedOrigins...),
	)
	if err != nil {
		return err
	}
	defer srv.Close()

	httpServer := &http.Server{
		Handler:      srv.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Infof("pagescript bridge listening on %s", ln.Addr())
		if err := httpServer.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Infof("shutting down pagescript bridge")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Warnf("bridge forced to shut down: %v", err)
			return err
		}
		return nil
	})
	return g.Wait()
}
