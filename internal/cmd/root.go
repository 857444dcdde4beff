// Package cmd wires the moonrun binary's cobra root command. It stays
// deliberately thin: cobra owns argument parsing and subcommand
// dispatch, while each subcommand's actual work (today, just `run`)
// lives in its own package behind a mitchellh/cli.Command, mirroring the
// teacher's own split between cobra's root tree and mitchellh/cli's
// per-command Run/Help/Synopsis shape.
package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/mitchellh/cli"
	"github.com/spf13/cobra"

	"github.com/ontools/moonrun/internal/config"
	"github.com/ontools/moonrun/internal/logger"
	"github.com/ontools/moonrun/internal/run"
)

var rootCmd = &cobra.Command{
	Use:   "moonrun <command> [<args>]",
	Short: "moonrun orchestrates task execution across a monorepo's projects",
}

// Execute runs the moonrun CLI for version, returning the process exit
// code.
func Execute(version string) int {
	log := logger.New()
	rootCmd.Version = version
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true

	ui := &cli.ColoredUi{
		Ui: &cli.BasicUi{
			Reader:      os.Stdin,
			Writer:      os.Stdout,
			ErrorWriter: os.Stderr,
		},
		OutputColor: cli.UiColorNone,
		ErrorColor:  cli.UiColorRed,
		WarnColor:   cli.UiColorYellow,
	}

	userCfg, err := config.ReadUserConfigFile()
	if err != nil {
		log.Warn("failed reading user config", "error", err)
		userCfg = &config.UserConfig{}
	}

	runCmd := &run.Command{Ui: ui, Logger: log}

	cobraRun := &cobra.Command{
		Use:                "run <project:task> [<project:task>...]",
		Short:              runCmd.Synopsis(),
		Long:               runCmd.Help(),
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if userCfg.Concurrency > 0 && !hasFlag(args, "--concurrency") {
				args = append([]string{"--concurrency", strconv.Itoa(userCfg.Concurrency)}, args...)
			}
			if code := runCmd.Run(args); code != 0 {
				return fmt.Errorf("run exited with status %d", code)
			}
			return nil
		},
	}
	rootCmd.AddCommand(cobraRun)

	if err := rootCmd.Execute(); err != nil {
		ui.Error(err.Error())
		return 1
	}
	return 0
}

func hasFlag(args []string, flag string) bool {
	for _, a := range args {
		if a == flag {
			return true
		}
	}
	return false
}
