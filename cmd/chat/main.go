/*
Package main is the entry point for the chatsync terminal client.

It loads configuration, sends logs to a file so they do not corrupt the
terminal, opens the identity history, wires the transport into a session,
and runs the terminal UI until the operator quits.
*/
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"chatsync/internal/app/identity"
	"chatsync/internal/app/session"
	"chatsync/internal/app/transport"
	"chatsync/internal/configs"
	"chatsync/internal/pkg/logx"
	"chatsync/internal/ui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := configs.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logOut := io.Discard
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer f.Close()
		logOut = f
	}
	logx.InitGlobalLogger(cfg.IsDevelopment(), logOut)
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Str("backend_url", cfg.BackendURL).
		Str("data_dir", cfg.DataDir).
		Msg("Configuration loaded successfully")

	var backend identity.Backend = identity.NewMemoryBackend()
	if cfg.DataDir != "" {
		pb, err := identity.OpenPebble(filepath.Join(cfg.DataDir, "identities"))
		if err != nil {
			return fmt.Errorf("failed to open identity store: %w", err)
		}
		backend = pb
	}
	identities := identity.NewStore(backend)
	defer func() {
		if err := identities.Close(); err != nil {
			logx.Error(err, "Failed to close identity store")
		}
	}()

	dialer, err := transport.NewWSDialer(cfg.BackendURL)
	if err != nil {
		return err
	}

	sess := session.New(
		transport.NewAPIClient(cfg.BackendURL, cfg.HTTPTimeout),
		session.WebSocketDialer(dialer),
		identities,
	)
	defer sess.Teardown()

	p := tea.NewProgram(ui.New(sess), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("terminal UI failed: %w", err)
	}

	logx.Info("Client exited.")
	return nil
}
