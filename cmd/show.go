// Copyright 2020 Nokia
// Licensed under the BSD 3-Clause License.
// SPDX-License-Identifier: BSD-3-Clause

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:       "show <resource>",
	Short:     "show manager status tables",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"devices"},
	RunE: func(c *cobra.Command, args []string) error {
		if args[0] != "devices" {
			return fmt.Errorf("unknown resource %q, expected 'devices'", args[0])
		}

		r, err := newRunner()
		if err != nil {
			return err
		}
		defer r.Close(c.Context())

		return r.ShowDevices(c.Context())
	},
}
