// Copyright 2020 Nokia
// Licensed under the BSD 3-Clause License.
// SPDX-License-Identifier: BSD-3-Clause

package cmd

import (
	"github.com/spf13/cobra"
)

var rebootOutOfSync bool

var allCmd = &cobra.Command{
	Use:   "all",
	Short: "run first boot on all components (manager, validator, controller, edges)",
	RunE: func(c *cobra.Command, _ []string) error {
		r, err := newRunner()
		if err != nil {
			return err
		}
		defer r.Close(c.Context())

		return r.RunAll(c.Context(), rebootOutOfSync)
	},
}

func init() {
	// reboot recovery stays opt-in while its effect on half-converged
	// controllers is under investigation
	allCmd.Flags().BoolVarP(&rebootOutOfSync, "reboot-out-of-sync", "", false,
		"reboot controllers that stay out of sync after the recheck")
}
