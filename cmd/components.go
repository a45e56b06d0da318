// Copyright 2020 Nokia
// Licensed under the BSD 3-Clause License.
// SPDX-License-Identifier: BSD-3-Clause

package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/sdargoeuves/automate-cisco-sdwan-lab/workflow"
)

var managerCmd = &cobra.Command{
	Use:   "manager",
	Short: "SD-WAN Manager (vManage) tasks",
	RunE: func(c *cobra.Command, _ []string) error {
		return runComponent(c, func(ctx context.Context, r *workflow.Runner, a workflow.Actions) error {
			return r.RunManager(ctx, a)
		})
	},
}

var validatorCmd = &cobra.Command{
	Use:   "validator",
	Short: "Validator (vBond) tasks",
	RunE: func(c *cobra.Command, _ []string) error {
		return runComponent(c, func(ctx context.Context, r *workflow.Runner, a workflow.Actions) error {
			return r.RunValidator(ctx, a)
		})
	},
}

var controllerCmd = &cobra.Command{
	Use:   "controller",
	Short: "Controller (vSmart) tasks",
	RunE: func(c *cobra.Command, _ []string) error {
		return runComponent(c, func(ctx context.Context, r *workflow.Runner, a workflow.Actions) error {
			return r.RunController(ctx, a)
		})
	},
}

var edgesCmd = &cobra.Command{
	Use:   "edges <targets>",
	Short: "WAN edge tasks; targets are comma-separated edge names or 'all'",
	Args:  cobra.ExactArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		return runComponent(c, func(ctx context.Context, r *workflow.Runner, a workflow.Actions) error {
			profiles, err := r.ResolveEdges(args[0])
			if err != nil {
				return err
			}
			return r.RunEdges(ctx, profiles, a)
		})
	},
}

func init() {
	addActionFlags(managerCmd)
	addActionFlags(validatorCmd)
	addActionFlags(controllerCmd)
	addActionFlags(edgesCmd)
}

// runComponent is the shared component command body: no action flags means
// print help and leave with a zero exit code.
func runComponent(c *cobra.Command,
	fn func(ctx context.Context, r *workflow.Runner, a workflow.Actions) error,
) error {
	a, any := actions()
	if !any {
		return c.Help()
	}

	r, err := newRunner()
	if err != nil {
		return err
	}
	defer r.Close(c.Context())

	return fn(c.Context(), r, a)
}
