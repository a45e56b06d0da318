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
	errs "github.com/sdargoeuves/automate-cisco-sdwan-lab/errors"
	"github.com/sdargoeuves/automate-cisco-sdwan-lab/utils"
)

// RunManager executes the full Manager certificate workflow over an already
// open session: enterprise root generation, management-plane settings, CSR
// trigger, local signing and install.
func (o *Orchestrator) RunManager(ctx context.Context, s *device.Session, profile *config.DeviceProfile) error {
	rootCert, err := o.generateRoot(s, profile)
	if err != nil {
		return err
	}

	c, err := o.getClient(ctx, profile)
	if err != nil {
		return err
	}

	if err := o.configureSettings(ctx, c, profile, rootCert); err != nil {
		return err
	}

	if err := o.triggerCSR(ctx, c, profile); err != nil {
		return err
	}

	if err := o.waitForCSRFile(s, profile); err != nil {
		return err
	}

	signed, err := signCSR(s, profile)
	if err != nil {
		return err
	}

	log.Info("installing signed certificate on manager")
	if err := c.DoRaw(ctx, "POST", "/dataservice/certificate/install/signedCert", signed); err != nil {
		return err
	}

	log.Infof("%s: certificate installed", profile.Name)

	return nil
}

// generateRoot creates the enterprise root key and self-signed certificate on
// the Manager shell and returns the certificate text.
func (o *Orchestrator) generateRoot(s *device.Session, profile *config.DeviceProfile) (string, error) {
	log.Info("generating enterprise root key and certificate")

	if _, err := s.RunVshell(fmt.Sprintf("openssl genrsa -out %s 2048", profile.RSAKey)); err != nil {
		return "", fmt.Errorf("failed to generate RSA key: %w", err)
	}

	subj := fmt.Sprintf("/C=%s/ST=%s/L=%s/O=%s/CN=%s",
		profile.Country, profile.State, profile.City, profile.Org, profile.Org)

	if _, err := s.RunVshell(fmt.Sprintf(
		"openssl req -x509 -new -nodes -key %s -sha256 -days %d -subj %q -out %s",
		profile.RSAKey, certValidityDays, subj, profile.RootCert)); err != nil {
		return "", fmt.Errorf("failed to generate root certificate: %w", err)
	}

	rootCert, err := s.ReadFile(profile.RootCert)
	if err != nil {
		return "", fmt.Errorf("failed to read root certificate: %w", err)
	}

	log.Info("enterprise root certificate created")

	return rootCert, nil
}

// configureSettings switches the manager to enterprise certificate signing
// and uploads the root certificate, organization and validator address.
func (o *Orchestrator) configureSettings(ctx context.Context, c managerAPI,
	profile *config.DeviceProfile, rootCert string,
) error {
	log.Infof("setting organization: %s", profile.Org)
	if err := c.Do(ctx, "PUT", "/dataservice/settings/configuration/organization",
		map[string]string{"org": profile.Org}, nil); err != nil {
		return err
	}

	log.Infof("setting validator address: %s", profile.ValidatorIP)
	if err := c.Do(ctx, "PUT", "/dataservice/settings/configuration/device",
		map[string]string{"domainIp": profile.ValidatorIP, "port": "12346"}, nil); err != nil {
		return err
	}

	log.Info("switching certificate signing to enterprise root")
	if err := c.Do(ctx, "POST", "/dataservice/settings/configuration/certificate",
		map[string]string{"certificateSigning": "enterprise"}, nil); err != nil {
		return err
	}

	if err := c.Do(ctx, "PUT", "/dataservice/settings/configuration/certificate/enterpriserootca",
		map[string]string{"enterpriseRootCA": rootCert}, nil); err != nil {
		return err
	}

	if err := c.Do(ctx, "PUT", "/dataservice/settings/configuration/certificate/csrproperties",
		map[string]string{"domain_name": ""}, nil); err != nil {
		return err
	}

	log.Info("manager settings configured")

	return nil
}

// triggerCSR asks the manager to generate its own CSR, retrying the call a
// few times since it tends to fail right after the settings change.
func (o *Orchestrator) triggerCSR(ctx context.Context, c managerAPI, profile *config.DeviceProfile) error {
	log.Info("requesting CSR generation")

	_, err := utils.Poll(csrTriggerInterval, csrTriggerAttempts, func(attempt int) (bool, error) {
		if err := c.Do(ctx, "POST", "/dataservice/certificate/generate/csr",
			map[string]string{"deviceIP": profile.MgmtIP}, nil); err != nil {
			log.Warnf("CSR generation failed (attempt %d/%d): %v", attempt, csrTriggerAttempts, err)
			return false, err
		}
		return true, nil
	})
	if err != nil {
		return fmt.Errorf("CSR generation failed after %d attempts: %w", csrTriggerAttempts, err)
	}

	return nil
}

// waitForCSRFile polls the Manager filesystem for the generated CSR. CSR
// generation timing is unpredictable on this role, so existence is polled
// rather than assumed after a settle wait.
func (o *Orchestrator) waitForCSRFile(s *device.Session, profile *config.DeviceProfile) error {
	maxAttempts := int(profile.CSRFileTimeout.Minutes()) * 12
	if maxAttempts < 1 {
		maxAttempts = 12
	}

	log.Infof("waiting for CSR file %s", profile.CSRFile)

	attempts, err := utils.Poll(csrFileInterval, maxAttempts, func(attempt int) (bool, error) {
		exists, err := s.FileExists(profile.CSRFile)
		if err != nil {
			log.Debugf("CSR file check %d failed: %v", attempt, err)
			return false, err
		}
		return exists, nil
	})
	if err != nil {
		return &errs.CSRTimeoutError{File: profile.CSRFile, Attempts: maxAttempts}
	}

	log.Infof("CSR file found (attempt %d)", attempts)

	return nil
}
