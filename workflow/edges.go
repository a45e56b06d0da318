// Copyright 2020 Nokia
// Licensed under the BSD 3-Clause License.
// SPDX-License-Identifier: BSD-3-Clause

package workflow

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/sdargoeuves/automate-cisco-sdwan-lab/config"
	"github.com/sdargoeuves/automate-cisco-sdwan-lab/device"
	errs "github.com/sdargoeuves/automate-cisco-sdwan-lab/errors"
	"github.com/sdargoeuves/automate-cisco-sdwan-lab/vmanage"
)

// ResolveEdges maps CLI edge targets ("all" or comma-separated names) to
// profiles, preserving the configured order.
func (r *Runner) ResolveEdges(targets string) ([]*config.DeviceProfile, error) {
	names := []string{}
	for _, t := range strings.Split(targets, ",") {
		if t = strings.TrimSpace(t); t != "" {
			names = append(names, t)
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no edge targets provided", errs.ErrIncorrectInput)
	}

	if len(names) == 1 && strings.EqualFold(names[0], "all") {
		names = r.settings.EdgeNames
	}

	profiles := make([]*config.DeviceProfile, 0, len(names))
	for _, name := range names {
		p, ok := r.settings.Edges[name]
		if !ok {
			return nil, fmt.Errorf("%w: unknown edge target %q", errs.ErrIncorrectInput, name)
		}
		profiles = append(profiles, p)
	}

	if len(profiles) == 0 {
		return nil, fmt.Errorf("%w: no edges configured", errs.ErrIncorrectInput)
	}

	return profiles, nil
}

// RunEdges executes the requested actions for each edge in order. Edges are
// independent of each other, so one edge failing does not stop the rest; the
// collected failures come back as one error.
func (r *Runner) RunEdges(ctx context.Context, profiles []*config.DeviceProfile, a Actions) error {
	if !a.any() {
		return fmt.Errorf("%w: no actions requested for edges", errs.ErrIncorrectInput)
	}

	var licenses []vmanage.PaygLicense
	if a.Cert {
		var err error
		licenses, err = r.generateLicenses(ctx, len(profiles))
		if err != nil {
			return err
		}
	}

	var failed []string
	for i, profile := range profiles {
		var license vmanage.PaygLicense
		if a.Cert {
			license = licenses[i]
		}

		if err := r.runEdge(ctx, profile, a, license); err != nil {
			log.Errorf("%s: edge automation failed: %v", profile.Name, err)
			failed = append(failed, profile.Name)
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("edge automation failed for %s", strings.Join(failed, ", "))
	}

	log.Info("edge automation finished")

	return nil
}

// generateLicenses mints one PAYG license per edge up front and gives the
// manager time to process them before any activation runs.
func (r *Runner) generateLicenses(ctx context.Context, count int) ([]vmanage.PaygLicense, error) {
	c, err := r.store.Get(ctx, r.settings.Manager)
	if err != nil {
		return nil, err
	}

	licenses, err := vmanage.GeneratePaygLicenses(ctx, c, count, r.settings.Org)
	if err != nil {
		return nil, err
	}
	if len(licenses) < count {
		return nil, fmt.Errorf("requested %d PAYG licenses but only %d parsed", count, len(licenses))
	}

	log.Infof("waiting %s for the manager to process the new licenses", r.settings.Timing.WaitAfterPaygGeneration)
	r.sleep(r.settings.Timing.WaitAfterPaygGeneration)

	return licenses, nil
}

func (r *Runner) runEdge(ctx context.Context, profile *config.DeviceProfile, a Actions,
	license vmanage.PaygLicense,
) error {
	return r.runRole(ctx, profile, a, func(s *device.Session) error {
		log.Infof("waiting %s before activating %s", r.settings.Timing.WaitBeforeActivatingEdge, profile.Name)
		r.sleep(r.settings.Timing.WaitBeforeActivatingEdge)

		return r.certs.RunEdge(s, r.settings.Validator, profile, license)
	})
}
