// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Command btcsigner signs messages and PSBTs with a local key or through a
// browser wallet bridge, and can serve a local key as such a bridge.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jessevdk/go-flags"
)

func main() {
	if err := run(); err != nil {
		var flagErr *flags.Error
		if errors.As(err, &flagErr) && flagErr.Type == flags.ErrHelp {
			fmt.Println(err)
			os.Exit(0)
		}

		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run parses the command line and executes the selected command.
func run() error {
	cfg := defaultConfig()
	parser := flags.NewParser(cfg, flags.HelpFlag|flags.PassDoubleDash)

	// Logging and key checks run once the global options are parsed,
	// right before the command executes.
	parser.CommandHandler = func(cmd flags.Commander, args []string) error {
		if cmd == nil {
			return nil
		}

		if err := setupLogging(cfg); err != nil {
			return err
		}
		defer func() {
			if logRotator != nil {
				logRotator.Close()
			}
		}()

		if err := cfg.validate(); err != nil {
			return err
		}

		return cmd.Execute(args)
	}

	commands := []struct {
		name, short, long string
		data              flags.Commander
	}{{
		name:  "address",
		short: "Print the signer's address",
		long:  "Print the address, public key and network of the signer.",
		data:  &addressCmd{cfg: cfg},
	}, {
		name:  "signmessage",
		short: "Sign a message",
		long:  "Sign a text message with the ecdsa or bip322-simple scheme.",
		data:  &signMessageCmd{cfg: cfg},
	}, {
		name:  "verifymessage",
		short: "Verify a message signature",
		long:  "Verify a message signature against an address.",
		data:  &verifyMessageCmd{cfg: cfg},
	}, {
		name:  "signpsbt",
		short: "Sign PSBTs",
		long:  "Sign one or more hex encoded PSBTs in order.",
		data:  &signPsbtCmd{cfg: cfg},
	}, {
		name:  "serve",
		short: "Serve the local key as a wallet bridge",
		long:  "Expose the local signer over the websocket bridge protocol.",
		data:  &serveCmd{cfg: cfg, Listen: defaultListenAddr},
	}}

	for _, c := range commands {
		_, err := parser.AddCommand(c.name, c.short, c.long, c.data)
		if err != nil {
			return err
		}
	}

	_, err := parser.Parse()

	return err
}

// setupLogging starts the log rotator and applies the debug level.
func setupLogging(cfg *config) error {
	logFile := filepath.Join(cfg.LogDir, defaultLogFilename)
	if err := initLogRotator(logFile); err != nil {
		return err
	}

	return setLogLevels(cfg.DebugLevel)
}
