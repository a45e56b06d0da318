// Copyright 2020 Nokia
// Licensed under the BSD 3-Clause License.
// SPDX-License-Identifier: BSD-3-Clause

// Package cmd implements the command line surface. Commands stay thin: they
// parse flags, load the variables file and hand off to the workflow package.
// The process exit code is decided here and nowhere deeper.
package cmd

import (
	"context"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sdargoeuves/automate-cisco-sdwan-lab/config"
	"github.com/sdargoeuves/automate-cisco-sdwan-lab/workflow"
)

var (
	debugCount int
	logLevel   string
	varsFile   string

	// action flags shared by the component subcommands; exactly one
	// subcommand runs per invocation
	firstBoot     bool
	certAction    bool
	initialConfig bool
	configFile    string
)

// RootCmd represents the base command when called without any subcommands.
var RootCmd = &cobra.Command{
	Use:               "sdwan-lab",
	Short:             "bootstrap and certificate automation for a Cisco SD-WAN lab",
	PersistentPreRunE: preRunFn,
}

func addSubcommands() {
	RootCmd.AddCommand(managerCmd)
	RootCmd.AddCommand(validatorCmd)
	RootCmd.AddCommand(controllerCmd)
	RootCmd.AddCommand(edgesCmd)
	RootCmd.AddCommand(allCmd)
	RootCmd.AddCommand(showCmd)
	RootCmd.AddCommand(sdkCmd)
	RootCmd.AddCommand(versionCmd)
}

func init() {
	RootCmd.SilenceUsage = true
	RootCmd.PersistentFlags().CountVarP(&debugCount, "debug", "d", "enable debug mode")
	RootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "", "info",
		"logging level; one of [trace, debug, info, warning, error, fatal]")
	RootCmd.PersistentFlags().StringVarP(&varsFile, "vars", "", config.DefaultVariablesFile,
		"path to the variables file describing the SD-WAN components")
	_ = RootCmd.MarkPersistentFlagFilename("vars", "*.yaml", "*.yml")

	addSubcommands()
}

func preRunFn(_ *cobra.Command, _ []string) error {
	switch {
	case debugCount > 0:
		log.SetLevel(log.DebugLevel)
	default:
		l, err := log.ParseLevel(logLevel)
		if err != nil {
			return err
		}

		log.SetLevel(l)
	}

	// json/table outputs go to stdout, keep logs out of their way
	log.SetOutput(os.Stderr)

	return nil
}

// addActionFlags registers the per-component action flags.
func addActionFlags(c *cobra.Command) {
	c.Flags().BoolVarP(&firstBoot, "first-boot", "", false,
		"first boot: push initial config and run certificate automation")
	c.Flags().BoolVarP(&certAction, "cert", "", false, "run certificate automation")
	c.Flags().BoolVarP(&initialConfig, "initial-config", "", false,
		"push the initial configuration (sets password, routes, system settings)")
	c.Flags().StringVarP(&configFile, "config-file", "", "", "configuration file to push")
	_ = c.MarkFlagFilename("config-file")
}

// actions expands --first-boot and reports whether any action was requested.
func actions() (workflow.Actions, bool) {
	a := workflow.Actions{
		InitialConfig: initialConfig,
		Cert:          certAction,
		ConfigFile:    configFile,
	}
	if firstBoot {
		a.InitialConfig = true
		a.Cert = true
	}

	return a, a.InitialConfig || a.Cert || a.ConfigFile != ""
}

// newRunner loads the variables file and builds the workflow runner.
func newRunner() (*workflow.Runner, error) {
	settings, err := config.Load(varsFile)
	if err != nil {
		return nil, err
	}

	return workflow.NewRunner(settings), nil
}

// Execute runs the root command against ctx. The returned error has already
// been logged by cobra; the caller only maps it to the exit code.
func Execute(ctx context.Context) error {
	return RootCmd.ExecuteContext(ctx)
}
