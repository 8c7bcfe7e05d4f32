//go:build linux

/*
Boardprov
Copyright (c) 2026 The Boardprov Project Contributors.
SPDX-License-Identifier: GPL-3.0-or-later

This file is part of Boardprov.

Boardprov is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

Boardprov is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with Boardprov.  If not, see <http://www.gnu.org/licenses/>.
*/

package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/boardprov/boardprov/pkg/config"
	"github.com/boardprov/boardprov/pkg/helpers"
	"github.com/boardprov/boardprov/pkg/sequencer"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const appVersion = "1.2.0"

const defaultConfigDir = "/etc/boardprov"

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func run() error {
	stageID := flag.String(
		"stage",
		"",
		"run a single provisioning stage by id",
	)
	runAll := flag.Bool(
		"all",
		false,
		"run the full provisioning sequence",
	)
	listStages := flag.Bool(
		"list",
		false,
		"list provisioning stages and exit",
	)
	assumeYes := flag.Bool(
		"yes",
		false,
		"answer yes to every confirmation prompt (DANGEROUS)",
	)
	debug := flag.Bool(
		"debug",
		false,
		"enable debug logging",
	)
	version := flag.Bool(
		"version",
		false,
		"print version and exit",
	)
	flag.Parse()

	if *version {
		_, _ = fmt.Printf("boardprov v%s\n", appVersion)
		return nil
	}

	if *listStages {
		for _, st := range sequencer.Stages() {
			_, _ = fmt.Printf("%-14s %s\n", st.ID, st.Name)
		}
		return nil
	}

	if err := helpers.InitLogging("/var/log/boardprov", []io.Writer{
		zerolog.ConsoleWriter{Out: os.Stderr},
	}); err != nil {
		return fmt.Errorf("failed to init logging: %w", err)
	}

	cfg, err := config.NewConfig(defaultConfigDir, config.BaseDefaults)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if *debug || cfg.DebugLogging() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	confirm := promptConfirm
	if *assumeYes {
		confirm = func(prompt string) bool {
			_, _ = fmt.Printf("%s [auto-confirmed]\n", prompt)
			return true
		}
	}

	seq := sequencer.New(cfg, sequencer.Deps{
		Confirm: confirm,
		Out:     os.Stdout,
	})

	// An interrupt during any stage abandons the remaining sequence.
	// Destructive work already in flight is not rolled back.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case *stageID != "":
		return runSingle(ctx, seq, *stageID)
	case *runAll:
		results, tally := seq.RunAll(ctx)
		_, _ = fmt.Printf("\n%d/%d stages completed (%d skipped, %d failed)\n",
			tally.Completed, tally.Total, tally.Skipped, tally.Failed)
		for _, r := range results {
			if r.Status == sequencer.StatusFailed {
				return fmt.Errorf("stage %s failed: %s", r.StageID, r.Reason)
			}
		}
		return nil
	default:
		flag.Usage()
		return nil
	}
}

func runSingle(ctx context.Context, seq *sequencer.Sequencer, stageID string) error {
	for _, st := range sequencer.Stages() {
		if st.ID != stageID {
			continue
		}
		res := seq.RunStage(ctx, st)
		if res.Status == sequencer.StatusFailed {
			return fmt.Errorf("stage %s failed: %s", res.StageID, res.Reason)
		}
		return nil
	}
	return fmt.Errorf("unknown stage %q, see -list", stageID)
}

func promptConfirm(prompt string) bool {
	_, _ = fmt.Printf("%s [y/N]: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		log.Warn().Err(err).Msg("failed to read confirmation")
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
