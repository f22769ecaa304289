package main

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
)

// logOutput receives log lines unless --debug is set.
var logOutput io.Writer = io.Discard

func getLogFilePath() (string, error) {
	dir, err := gap.NewScope(gap.User, "announcer").CacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "announcer.log"), nil
}

// getAudioCacheDir returns the default directory for synthesized audio.
func getAudioCacheDir() (string, error) {
	dir, err := gap.NewScope(gap.User, "announcer").CacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "speech"), nil
}

func setupLog() (func() error, error) {
	log.SetOutput(io.Discard)

	logFile, err := getLogFilePath()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil { //nolint:gosec
		// log disabled
		return func() error { return nil }, nil
	}
	f, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) //nolint:gosec
	if err != nil {
		// log disabled
		return func() error { return nil }, nil
	}
	logOutput = f
	log.SetOutput(f)
	log.SetLevel(log.DebugLevel)
	return f.Close, nil
}
