// Copyright 2020 Nokia
// Licensed under the BSD 3-Clause License.
// SPDX-License-Identifier: BSD-3-Clause

package cert

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/sdargoeuves/automate-cisco-sdwan-lab/config"
	"github.com/sdargoeuves/automate-cisco-sdwan-lab/device"
)

// deviceRegistration is the payload that registers a control component with
// the manager and has the device produce a CSR signed against the enterprise
// root.
type deviceRegistration struct {
	DeviceIP    string `json:"deviceIP"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	Personality string `json:"personality"`
	GenerateCSR bool   `json:"generateCSR"`
}

// RunControlPlane executes the certificate workflow for a Validator or
// Controller over an already open session: root material distribution,
// manager registration with CSR generation, local signing and install on the
// manager. The Manager must have completed its own workflow first.
func (o *Orchestrator) RunControlPlane(ctx context.Context, s *device.Session,
	manager, profile *config.DeviceProfile,
) error {
	if profile.Role != config.Validator && profile.Role != config.Controller {
		return fmt.Errorf("certificate workflow for role %s is not a control-plane flow", profile.Role)
	}

	material, err := o.fetchRootMaterial(manager)
	if err != nil {
		return err
	}

	if err := writeRootMaterial(s, profile, material); err != nil {
		return err
	}

	c, err := o.getClient(ctx, manager)
	if err != nil {
		return err
	}

	log.Infof("registering %s with the manager (personality %s)", profile.Name, profile.Role.Personality())

	reg := deviceRegistration{
		DeviceIP:    profile.MgmtIP,
		Username:    profile.Username,
		Password:    profile.Password,
		Personality: profile.Role.Personality(),
		GenerateCSR: true,
	}
	if err := c.Do(ctx, "POST", "/dataservice/system/device", reg, nil); err != nil {
		return err
	}

	// the device writes its CSR after registration; give it a fixed settle
	// window before signing
	log.Infof("waiting %s for %s to generate its CSR", o.timing.WaitCSRGeneration, profile.Name)
	o.sleep(o.timing.WaitCSRGeneration)

	signed, err := signCSR(s, profile)
	if err != nil {
		return err
	}

	log.Infof("installing signed certificate for %s on manager", profile.Name)
	if err := c.DoRaw(ctx, "POST", "/dataservice/certificate/install/signedCert", signed); err != nil {
		return err
	}

	log.Infof("%s: certificate installed", profile.Name)

	return nil
}
