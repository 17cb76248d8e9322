//
// Tencent is pleased to support the open source community by making trpc-pagescript-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-pagescript-go is licensed under the Apache License Version 2.0.
//
//

// Package config loads and stores PageScript settings as YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"trpc.group/trpc-go/trpc-pagescript-go/log"
)

// DefaultScriptsFolder is used when no scripts folder is configured.
const DefaultScriptsFolder = "PageScripts"

// Defaults for the HTTP bridge.
const (
	DefaultBridgeAddr = "127.0.0.1:8765"
)

// ErrInvalid is returned for settings that fail validation.
var ErrInvalid = errors.New("invalid settings")

// Settings is the persisted configuration.
type Settings struct {
	// ScriptsFolder is the vault folder PageScripts are listed from.
	ScriptsFolder string `yaml:"scripts_folder"`
	// LogLevel is one of the log package levels.
	LogLevel string `yaml:"log_level,omitempty"`
	// Vault is the directory documents are read from and created in.
	Vault   string        `yaml:"vault,omitempty"`
	Picker  PickerConfig  `yaml:"picker,omitempty"`
	Bridge  BridgeConfig  `yaml:"bridge,omitempty"`
	Tracing ExporterConfig `yaml:"tracing,omitempty"`
	Metrics ExporterConfig `yaml:"metrics,omitempty"`
}

// PickerConfig tunes script listing.
type PickerConfig struct {
	// Fuzzy ranks matches by fuzzy distance instead of substring filtering.
	Fuzzy bool `yaml:"fuzzy,omitempty"`
}

// BridgeConfig configures the HTTP editor bridge.
type BridgeConfig struct {
	Addr           string   `yaml:"addr,omitempty"`
	AllowedOrigins []string `yaml:"allowed_origins,omitempty"`
}

// ExporterConfig enables OTLP export when Endpoint or EndpointURL is set.
// Metrics export ignores EndpointURL.
type ExporterConfig struct {
	Protocol    string            `yaml:"protocol,omitempty"`
	Endpoint    string            `yaml:"endpoint,omitempty"`
	EndpointURL string            `yaml:"endpoint_url,omitempty"`
	Headers     map[string]string `yaml:"headers,omitempty"`
}

// Enabled reports whether an exporter should be started.
func (t ExporterConfig) Enabled() bool {
	return t.Endpoint != "" || t.EndpointURL != ""
}

// Default returns the settings used when no file exists.
func Default() Settings {
	return Settings{
		ScriptsFolder: DefaultScriptsFolder,
		LogLevel:      log.LevelInfo,
		Vault:         ".",
		Bridge:        BridgeConfig{Addr: DefaultBridgeAddr},
	}
}

// NormalizeFolder trims whitespace and one trailing slash. An empty result
// falls back to DefaultScriptsFolder.
func NormalizeFolder(folder string) string {
	folder = strings.TrimSpace(folder)
	folder = strings.TrimSuffix(folder, "/")
	if folder == "" {
		return DefaultScriptsFolder
	}
	return folder
}

// Normalize fills defaults and normalizes paths in place.
func (s *Settings) Normalize() {
	s.ScriptsFolder = NormalizeFolder(s.ScriptsFolder)
	s.LogLevel = strings.ToLower(strings.TrimSpace(s.LogLevel))
	if s.LogLevel == "" {
		s.LogLevel = log.LevelInfo
	}
	if s.Vault == "" {
		s.Vault = "."
	}
	if s.Bridge.Addr == "" {
		s.Bridge.Addr = DefaultBridgeAddr
	}
	s.Tracing.Protocol = strings.ToLower(strings.TrimSpace(s.Tracing.Protocol))
	s.Metrics.Protocol = strings.ToLower(strings.TrimSpace(s.Metrics.Protocol))
}

// Validate checks the normalized settings.
func (s Settings) Validate() error {
	switch s.LogLevel {
	case log.LevelDebug, log.LevelInfo, log.LevelWarn, log.LevelError, log.LevelFatal:
	default:
		return fmt.Errorf("%w: log_level %q", ErrInvalid, s.LogLevel)
	}
	for name, p := range map[string]string{"tracing": s.Tracing.Protocol, "metrics": s.Metrics.Protocol} {
		switch p {
		case "", "grpc", "http":
		default:
			return fmt.Errorf("%w: %s.protocol %q", ErrInvalid, name, p)
		}
	}
	return nil
}

// Load reads settings from path. A missing file yields Default.
// Environment variables in the file are expanded.
func Load(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("read settings: %w", err)
	}
	s := Default()
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &s); err != nil {
		return Settings{}, fmt.Errorf("%w: parse %s: %v", ErrInvalid, path, err)
	}
	s.Normalize()
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Save writes s to path, creating parent directories.
func Save(path string, s Settings) error {
	s.Normalize()
	if err := s.Validate(); err != nil {
		return err
	}
	data, err := yaml.Marshal(&s)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}
