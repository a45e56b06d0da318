// Copyright 2020 Nokia
// Licensed under the BSD 3-Clause License.
// SPDX-License-Identifier: BSD-3-Clause

package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sdargoeuves/automate-cisco-sdwan-lab/config"
)

// sastreBinary is the Sastre CLI shipped with the cisco-sdwan package.
const sastreBinary = "sdwan"

var sdkCmd = &cobra.Command{
	Use:   "sdk <arguments>",
	Short: "pass arguments through to the Sastre CLI against the manager",
	Long: "Runs the Sastre CLI ('sdwan', from the cisco-sdwan package) with the manager " +
		"address and credentials from the variables file prepended, so commands like " +
		"'sdk show devices' or 'sdk backup all' work without repeating the connection details.",
	RunE: func(c *cobra.Command, args []string) error {
		if len(args) == 0 {
			log.Warn("no arguments given; example: sdk show devices")
			return nil
		}

		settings, err := config.Load(varsFile)
		if err != nil {
			return err
		}

		return runSastre(c, settings, args)
	},
}

func init() {
	// everything after the first positional argument belongs to the Sastre
	// CLI, including its flags
	sdkCmd.Flags().SetInterspersed(false)
}

// sastreArgs prepends the manager connection details to the passthrough
// arguments, matching the Sastre CLI's global flag order.
func sastreArgs(m *config.DeviceProfile, args []string) []string {
	base := []string{
		"-a", m.MgmtIP,
		"-u", m.Username,
		"-p", m.Password,
		"--port", m.Port,
	}

	return append(base, args...)
}

func runSastre(c *cobra.Command, settings *config.Settings, args []string) error {
	bin, err := exec.LookPath(sastreBinary)
	if err != nil {
		return fmt.Errorf("sastre CLI not found on PATH, install cisco-sdwan first: %w", err)
	}

	full := sastreArgs(settings.Manager, args)

	log.Infof("running: %s %s", bin, strings.Join(full, " "))

	run := exec.CommandContext(c.Context(), bin, full...)
	run.Stdin = os.Stdin
	run.Stdout = os.Stdout
	run.Stderr = os.Stderr

	if err := run.Run(); err != nil {
		return fmt.Errorf("sastre CLI failed: %w", err)
	}

	return nil
}
