// Copyright 2020 Nokia
// Licensed under the BSD 3-Clause License.
// SPDX-License-Identifier: BSD-3-Clause

package workflow

import (
	"context"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/sdargoeuves/automate-cisco-sdwan-lab/monitor"
	"github.com/sdargoeuves/automate-cisco-sdwan-lab/vmanage"
)

// RunAll performs first boot on the whole fleet in dependency order:
// Manager, Validator, Controller, then Edges, with settle waits between the
// control components and a convergence check at the end. A Manager or
// Validator failure stops the run since everything downstream depends on
// them; a Controller failure is logged and edges still run.
func (r *Runner) RunAll(ctx context.Context, enableReboot bool) error {
	firstBoot := Actions{InitialConfig: true, Cert: true}

	if err := r.RunManager(ctx, firstBoot); err != nil {
		return fmt.Errorf("manager automation failed, aborting fleet run: %w", err)
	}

	// the manager API can lag behind its CLI after first boot; probe it
	// before anything downstream needs it
	m := r.settings.Manager
	if !vmanage.WaitForReady(ctx, m.MgmtIP, m.Port, m.Username, m.Password, m.APIReadyTimeout) {
		return fmt.Errorf("manager API at %s did not become ready, aborting fleet run", m.Addr())
	}

	log.Infof("waiting %s before starting validator automation", r.settings.Timing.WaitBeforeValidator)
	r.sleep(r.settings.Timing.WaitBeforeValidator)

	if err := r.RunValidator(ctx, firstBoot); err != nil {
		return fmt.Errorf("validator automation failed, aborting fleet run: %w", err)
	}

	log.Infof("waiting %s before starting controller automation", r.settings.Timing.WaitBeforeController)
	r.sleep(r.settings.Timing.WaitBeforeController)

	controllerErr := r.RunController(ctx, firstBoot)
	if controllerErr != nil {
		// edges only depend on manager and validator, keep going
		log.Errorf("controller automation failed: %v", controllerErr)
	}

	r.showControllerStatus(ctx)

	edges, err := r.ResolveEdges("all")
	if err != nil {
		log.Warnf("no edges to automate: %v", err)
	} else if err := r.RunEdges(ctx, edges, firstBoot); err != nil {
		return err
	}

	log.Info("first-boot automation finished for manager, validator, controller and edges")

	syncOpts := monitor.DefaultSyncOptions(r.settings)
	syncOpts.EnableReboot = enableReboot

	c, err := r.store.Get(ctx, r.settings.Manager)
	if err != nil {
		return err
	}
	if err := monitor.RebootOutOfSync(ctx, c, syncOpts); err != nil {
		return err
	}

	r.showEdgeStatus(ctx)

	if controllerErr != nil {
		return controllerErr
	}

	return nil
}

func (r *Runner) showControllerStatus(ctx context.Context) {
	c, err := r.store.Get(ctx, r.settings.Manager)
	if err != nil {
		log.Warnf("skipping controller status: %v", err)
		return
	}

	items, err := c.Controllers(ctx)
	if err != nil {
		log.Warnf("failed to fetch controller status: %v", err)
		return
	}

	vmanage.RenderControllerStatus(os.Stdout, items)
}

func (r *Runner) showEdgeStatus(ctx context.Context) {
	c, err := r.store.Get(ctx, r.settings.Manager)
	if err != nil {
		log.Warnf("skipping edge status: %v", err)
		return
	}

	items, err := c.VEdges(ctx)
	if err != nil {
		log.Warnf("failed to fetch edge status: %v", err)
		return
	}

	vmanage.RenderVEdgeStatus(os.Stdout, items)
}

// ShowDevices prints the controller and edge status tables.
func (r *Runner) ShowDevices(ctx context.Context) error {
	c, err := r.store.Get(ctx, r.settings.Manager)
	if err != nil {
		return err
	}

	items, err := c.Controllers(ctx)
	if err != nil {
		return err
	}
	vmanage.RenderControllerStatus(os.Stdout, items)

	edges, err := c.VEdges(ctx)
	if err != nil {
		return err
	}
	vmanage.RenderVEdgeStatus(os.Stdout, edges)

	return nil
}
