// dockchat - AI assistant chat panel for a Siyuan note host.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/dockchat/internal/completion"
	"github.com/jeranaias/dockchat/internal/config"
	"github.com/jeranaias/dockchat/internal/controller"
	"github.com/jeranaias/dockchat/internal/host"
	"github.com/jeranaias/dockchat/internal/kv"
	"github.com/jeranaias/dockchat/internal/panel"
	"github.com/jeranaias/dockchat/internal/render"
	"github.com/jeranaias/dockchat/internal/store"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default: ~/.dockchat/config.toml)")
	docID := flag.String("doc", "", "document id to use as request context")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("dockchat %s (%s, built %s)\n", Version, GitCommit, BuildDate)
		return
	}

	if err := run(*configPath, *docID); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, docID string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		// Bad tunables degrade to defaults at the point of use; the
		// panel still opens so settings can be fixed interactively.
		log.Printf("CONFIG_INVALID | %v", err)
	}

	// Live config holder: the watcher swaps the pointer, readers pick
	// the change up on the next turn.
	var current atomic.Pointer[config.Config]
	current.Store(cfg)

	kvStore, closeStore, err := openStateStore()
	if err != nil {
		return err
	}
	defer closeStore()

	watcher := watchConfig(configPath, &current)
	if watcher != nil {
		defer watcher.Close()
	}

	// Settings resolve per request: the kv blob (written by the host's
	// settings dialog) wins over the config file.
	source := completion.SettingsFunc(func() config.Settings {
		fallback := current.Load().API
		settings, err := config.LoadSettings(kvStore, fallback)
		if err != nil {
			log.Printf("SETTINGS_LOAD_FAILED | %v", err)
			return fallback
		}
		return settings
	})

	session := store.NewSession()
	archive := store.NewArchive(kvStore)
	client := completion.NewClient(source)

	var renderer render.Renderer
	if g, err := render.NewGlamour(cfg.Panel.Theme, 0); err == nil {
		renderer = g
	} else {
		log.Printf("RENDERER_INIT_FAILED | falling back to plain text: %v", err)
		renderer = render.Plain{}
	}

	ctrl := controller.New(session, archive, client, renderer, controller.Config{
		HistoryWindow: cfg.Chat.HistoryWindow,
		Greeting:      cfg.Chat.Greeting,
		SystemPrompt:  cfg.Chat.SystemPrompt,
		TitlePrefix:   cfg.Chat.TitlePrefix,
	})
	ctrl.WithContextFetcher(host.NewExportClient(cfg.Host.BaseURL, cfg.Host.Token))
	if docID != "" {
		ctrl.SetDocumentID(docID)
	}
	ctrl.StartSession()

	program := tea.NewProgram(
		panel.New(ctrl, session, archive, cfg.Panel.Theme),
		tea.WithAltScreen(),
	)
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("panel exited with error: %w", err)
	}
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromPath(path)
	}
	return config.Load()
}

// openStateStore opens the SQLite state store, falling back to per-key
// JSON files when SQLite cannot be opened.
func openStateStore() (kv.Store, func(), error) {
	dir, err := config.ConfigDir()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve state directory: %w", err)
	}

	sqliteStore, err := kv.OpenSQLite(filepath.Join(dir, "dockchat.db"))
	if err == nil {
		return sqliteStore, func() {
			if err := sqliteStore.Close(); err != nil {
				log.Printf("STATE_CLOSE_FAILED | %v", err)
			}
		}, nil
	}
	log.Printf("SQLITE_OPEN_FAILED | falling back to file store: %v", err)

	fileStore, err := kv.NewFileStore(filepath.Join(dir, "state"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open state store: %w", err)
	}
	return fileStore, func() {}, nil
}

// watchConfig reloads the config file on change. Returns nil when the
// file cannot be watched; the panel then runs on the startup config.
func watchConfig(path string, current *atomic.Pointer[config.Config]) *config.Watcher {
	if path == "" {
		tomlPath, err := config.ConfigPathTOML()
		if err != nil {
			return nil
		}
		path = tomlPath
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}

	watcher, err := config.NewWatcher(path, func(next *config.Config) {
		next.ApplyEnvOverrides()
		if err := next.Validate(); err != nil {
			log.Printf("CONFIG_RELOAD_REJECTED | %v", err)
			return
		}
		current.Store(next)
		log.Printf("CONFIG_RELOADED | %s", path)
	})
	if err != nil {
		log.Printf("CONFIG_WATCH_FAILED | %v", err)
		return nil
	}
	if err := watcher.Watch(); err != nil {
		log.Printf("CONFIG_WATCH_FAILED | %v", err)
		return nil
	}
	return watcher
}
