// Copyright 2020 Nokia
// Licensed under the BSD 3-Clause License.
// SPDX-License-Identifier: BSD-3-Clause

package cert

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/sdargoeuves/automate-cisco-sdwan-lab/config"
	"github.com/sdargoeuves/automate-cisco-sdwan-lab/device"
	"github.com/sdargoeuves/automate-cisco-sdwan-lab/monitor"
	"github.com/sdargoeuves/automate-cisco-sdwan-lab/vmanage"
)

const edgeCertDir = "bootflash:/sdwan/"

// RunEdge brings one WAN edge into the overlay: copies the enterprise root
// certificate from the Validator, installs the root chain, waits for the
// chain to report installed and activates the edge with a PAYG license. The
// Validator holds the same root material as the Manager and is reachable from
// the edge's transport network, which the Manager may not be.
func (o *Orchestrator) RunEdge(s *device.Session, validator, profile *config.DeviceProfile,
	license vmanage.PaygLicense,
) error {
	if err := s.ScpCopy(validator.ValidatorIP, validator.Username, validator.Password,
		profile.RootCert, edgeCertDir); err != nil {
		return fmt.Errorf("failed to copy root certificate to %s: %w", profile.Name, err)
	}

	installCmd := fmt.Sprintf("request platform software sdwan root-cert-chain install bootflash:sdwan/%s",
		profile.RootCert)

	install := func() error {
		out, err := s.SendCommand(installCmd, o.timing.IncreasedReadTimeout)
		if err != nil {
			return err
		}
		log.Debugf("%s: root-cert-chain install output:\n%s", profile.Name, out)
		return nil
	}

	log.Infof("installing root certificate chain on %s", profile.Name)
	if err := install(); err != nil {
		return fmt.Errorf("root chain install on %s failed: %w", profile.Name, err)
	}

	if err := monitor.WaitForRootChainInstalled(s,
		o.timing.EdgeCertPollInterval, o.timing.EdgeCertPollTimeout, install); err != nil {
		return err
	}

	log.Infof("activating %s with chassis %s", profile.Name, license.ChassisID)

	activateCmd := fmt.Sprintf(
		"request platform software sdwan vedge_cloud activate chassis-number %s token %s",
		license.ChassisID, license.Token)

	out, err := s.SendCommand(activateCmd, o.timing.IncreasedReadTimeout)
	if err != nil {
		return fmt.Errorf("failed to activate %s: %w", profile.Name, err)
	}
	log.Debugf("%s: activate output:\n%s", profile.Name, out)

	log.Infof("%s: edge activation requested", profile.Name)

	return nil
}
