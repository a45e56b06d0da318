// Copyright 2020 Nokia
// Licensed under the BSD 3-Clause License.
// SPDX-License-Identifier: BSD-3-Clause

package cert

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/sdargoeuves/automate-cisco-sdwan-lab/config"
	"github.com/sdargoeuves/automate-cisco-sdwan-lab/device"
)

// RootMaterial is the enterprise root key and certificate pair generated on
// the Manager and distributed to every control component.
type RootMaterial struct {
	Key  string
	Cert string
}

// fetchRootMaterial reads the root key and certificate off the Manager's
// filesystem. The Manager is the only source of truth for root material; the
// session it opens is closed before returning.
func (o *Orchestrator) fetchRootMaterial(manager *config.DeviceProfile) (*RootMaterial, error) {
	log.Info("reading RSA key and root certificate from manager")

	s, err := o.connect(manager, manager.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to manager for root material: %w", err)
	}
	defer s.Close()

	key, err := s.ReadFile(manager.RSAKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read root key from manager: %w", err)
	}

	cert, err := s.ReadFile(manager.RootCert)
	if err != nil {
		return nil, fmt.Errorf("failed to read root certificate from manager: %w", err)
	}

	return &RootMaterial{Key: key, Cert: cert}, nil
}

// writeRootMaterial places the root key and certificate onto the target
// device's filesystem under the same file names the Manager uses.
func writeRootMaterial(s *device.Session, profile *config.DeviceProfile, m *RootMaterial) error {
	log.Infof("writing RSA key and root certificate to %s", profile.Name)

	if err := s.WriteFile(profile.RSAKey, m.Key); err != nil {
		return fmt.Errorf("failed to write root key to %s: %w", profile.Name, err)
	}
	if err := s.WriteFile(profile.RootCert, m.Cert); err != nil {
		return fmt.Errorf("failed to write root certificate to %s: %w", profile.Name, err)
	}

	return nil
}
