// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/btcsuite/btclog"
	"github.com/btcsuite/btcsigner/remote"
	"github.com/btcsuite/btcsigner/remote/bridge"
	"github.com/btcsuite/btcsigner/signer"
	"github.com/btcsuite/btcsigner/wallet"
	"github.com/jrick/logrotate/rotator"
)

// logConsole receives log output on the terminal. Standard output is kept
// for command results so they can be piped.
var logConsole io.Writer = os.Stderr

// logWriter implements an io.Writer that outputs to both the console and the
// write-end pipe of an initialized log rotator.
type logWriter struct{}

func (logWriter) Write(p []byte) (n int, err error) {
	logConsole.Write(p)
	if logRotatorPipe != nil {
		logRotatorPipe.Write(p)
	}

	return len(p), nil
}

var (
	// backendLog is the logging backend used to create all subsystem
	// loggers. It must not be used before the log rotator has been
	// initialized.
	backendLog = btclog.NewBackend(logWriter{})

	// logRotator is one of the logging outputs. It should be closed on
	// application shutdown.
	logRotator *rotator.Rotator

	// logRotatorPipe is the write-end pipe for writing to the log
	// rotator.
	logRotatorPipe *io.PipeWriter

	log  = backendLog.Logger("BTSG")
	sgnr = backendLog.Logger("SGNR")
	wllt = backendLog.Logger("WLLT")
	rmte = backendLog.Logger("RMTE")
	brdg = backendLog.Logger("BRDG")
)

// subsystemLoggers maps each subsystem identifier to its associated logger.
var subsystemLoggers = map[string]btclog.Logger{
	"BTSG": log,
	"SGNR": sgnr,
	"WLLT": wllt,
	"RMTE": rmte,
	"BRDG": brdg,
}

// Initialize package-global logger variables.
func init() {
	signer.UseLogger(sgnr)
	wallet.UseLogger(wllt)
	remote.UseLogger(rmte)
	bridge.UseLogger(brdg)
}

// initLogRotator initializes the logging rotator to write logs to logFile and
// create roll files in the same directory. It must be called before the
// package-global log rotator variables are used.
func initLogRotator(logFile string) error {
	logDir, _ := filepath.Split(logFile)
	err := os.MkdirAll(logDir, 0700)
	if err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	r, err := rotator.New(logFile, 10*1024, false, 3)
	if err != nil {
		return fmt.Errorf("failed to create file rotator: %w", err)
	}

	pr, pw := io.Pipe()
	go r.Run(pr)

	logRotator = r
	logRotatorPipe = pw

	return nil
}

// setLogLevels sets the log level of every subsystem.
func setLogLevels(logLevel string) error {
	level, ok := btclog.LevelFromString(logLevel)
	if !ok {
		return fmt.Errorf("invalid log level %q", logLevel)
	}

	for _, logger := range subsystemLoggers {
		logger.SetLevel(level)
	}

	return nil
}
