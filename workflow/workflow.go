// Copyright 2020 Nokia
// Licensed under the BSD 3-Clause License.
// SPDX-License-Identifier: BSD-3-Clause

// Package workflow sequences the per-role automation: bootstrap, config file
// push and certificate workflow for one device, plus the fleet-wide run that
// chains Manager, Validator, Controller and Edges in dependency order.
package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/sdargoeuves/automate-cisco-sdwan-lab/bootstrap"
	"github.com/sdargoeuves/automate-cisco-sdwan-lab/cert"
	"github.com/sdargoeuves/automate-cisco-sdwan-lab/config"
	"github.com/sdargoeuves/automate-cisco-sdwan-lab/device"
	errs "github.com/sdargoeuves/automate-cisco-sdwan-lab/errors"
	"github.com/sdargoeuves/automate-cisco-sdwan-lab/utils"
	"github.com/sdargoeuves/automate-cisco-sdwan-lab/vmanage"
)

// Actions selects what a run does for a device. FirstBoot expansion into
// InitialConfig+Cert happens at the CLI boundary, not here.
type Actions struct {
	InitialConfig bool
	Cert          bool
	ConfigFile    string
}

func (a Actions) any() bool {
	return a.InitialConfig || a.Cert || a.ConfigFile != ""
}

// Runner owns the shared state of one automation run: the settings, the
// manager client store and the sub-orchestrators.
type Runner struct {
	settings *config.Settings
	store    *vmanage.Store
	boot     *bootstrap.Orchestrator
	certs    *cert.Orchestrator

	sleep func(time.Duration)
}

func NewRunner(settings *config.Settings) *Runner {
	store := vmanage.NewStore()

	return &Runner{
		settings: settings,
		store:    store,
		boot:     bootstrap.New(),
		certs:    cert.New(store, settings.Timing),
		sleep:    time.Sleep,
	}
}

// Close releases the manager sessions held by the run.
func (r *Runner) Close(ctx context.Context) {
	r.store.Close(ctx)
}

// pushOptions returns the config push behavior for a role. The controller
// platforms take an explicit commit with a long read timeout; edge routers in
// controller mode commit inside the config payload, so no separate commit
// command is issued there.
func (r *Runner) pushOptions(role config.Role) device.PushOptions {
	t := r.settings.Timing

	opts := device.PushOptions{
		CommitReadTimeout:   t.CommitReadTimeout,
		CommitRetryAttempts: t.CommitRetryAttempts,
		CommitRetryWait:     t.CommitRetryWait,
	}
	if role == config.Edge {
		opts.ReadTimeout = t.IncreasedReadTimeout
	} else {
		opts.CommitCommand = "commit"
	}

	return opts
}

// RunManager executes the requested actions against the Manager.
func (r *Runner) RunManager(ctx context.Context, a Actions) error {
	profile := r.settings.Manager

	return r.runRole(ctx, profile, a, func(s *device.Session) error {
		return r.certs.RunManager(ctx, s, profile)
	})
}

// RunValidator executes the requested actions against the Validator.
func (r *Runner) RunValidator(ctx context.Context, a Actions) error {
	profile := r.settings.Validator

	return r.runRole(ctx, profile, a, func(s *device.Session) error {
		return r.certs.RunControlPlane(ctx, s, r.settings.Manager, profile)
	})
}

// RunController executes the requested actions against the Controller.
func (r *Runner) RunController(ctx context.Context, a Actions) error {
	profile := r.settings.Controller

	return r.runRole(ctx, profile, a, func(s *device.Session) error {
		return r.certs.RunControlPlane(ctx, s, r.settings.Manager, profile)
	})
}

// runRole is the shared per-device sequence. The session opened by any of the
// steps is reused by the later ones and closed exactly once on every exit
// path.
func (r *Runner) runRole(ctx context.Context, profile *config.DeviceProfile, a Actions,
	certFn func(s *device.Session) error,
) error {
	if !a.any() {
		return fmt.Errorf("%w: no actions requested for %s", errs.ErrIncorrectInput, profile.Name)
	}

	log.Infof("automation: %s (%s) target %s", strings.ToUpper(profile.Name), profile.Role, profile.Addr())

	var s *device.Session
	defer func() {
		if s != nil {
			s.Close()
			log.Infof("disconnected from %s", profile.Name)
		}
	}()

	if a.InitialConfig {
		var err error
		s, err = r.boot.Run(profile, profile.InitialConfig, r.pushOptions(profile.Role))
		if err != nil {
			return err
		}
		if err := r.pushExtraRouting(s, profile); err != nil {
			return err
		}
	}

	if a.ConfigFile != "" {
		var err error
		s, err = r.ensureSession(profile, s)
		if err != nil {
			return err
		}
		if err := r.pushConfigFile(s, profile, a.ConfigFile); err != nil {
			return err
		}
	}

	if a.Cert {
		var err error
		s, err = r.ensureSession(profile, s)
		if err != nil {
			return err
		}

		log.Infof("%s: certificate configuration", profile.Name)
		if err := certFn(s); err != nil {
			return err
		}
	}

	log.Infof("%s automation finished", profile.Name)

	return nil
}

// pushExtraRouting applies the optional LAN/OSPF/BGP payload. Only edges with
// LAN parameters in the variables file carry one; it depends on the VRF from
// the initial configuration, so it goes in right after it.
func (r *Runner) pushExtraRouting(s *device.Session, profile *config.DeviceProfile) error {
	if profile.ExtraRoutingConfig == "" {
		return nil
	}

	log.Infof("%s: applying LAN routing configuration", profile.Name)

	if _, err := device.PushConfig(s, profile.ExtraRoutingConfig, r.pushOptions(profile.Role)); err != nil {
		return fmt.Errorf("failed to apply LAN routing configuration on %s: %w", profile.Name, err)
	}

	return nil
}

// ensureSession reuses the session from an earlier step or opens a fresh one
// with the operational password.
func (r *Runner) ensureSession(profile *config.DeviceProfile, s *device.Session) (*device.Session, error) {
	if s != nil {
		return s, nil
	}

	return device.Connect(profile, profile.Password)
}

// pushConfigFile pushes the contents of path to the device. A missing or
// empty file is a hard failure.
func (r *Runner) pushConfigFile(s *device.Session, profile *config.DeviceProfile, path string) error {
	content, err := utils.ReadFileContent(path)
	if err != nil {
		return fmt.Errorf("configuration file %s: %w", path, err)
	}
	if strings.TrimSpace(string(content)) == "" {
		return fmt.Errorf("%w: configuration file %s", errs.ErrEmptyConfig, path)
	}

	log.Infof("pushing configuration from %s to %s", path, profile.Name)

	if _, err := device.PushConfig(s, string(content), r.pushOptions(profile.Role)); err != nil {
		return fmt.Errorf("failed to push configuration from %s: %w", path, err)
	}

	log.Infof("applied configuration from %s", path)

	return nil
}
