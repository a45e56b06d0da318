// Copyright 2020 Nokia
// Licensed under the BSD 3-Clause License.
// SPDX-License-Identifier: BSD-3-Clause

// Package cert implements the per-role certificate workflow: enterprise root
// material generation on the Manager, CSR generation and signing for the
// control components, and root-chain installation plus PAYG activation for
// WAN edges. Steps within one device's workflow are strictly ordered; any
// management-plane call failure aborts that device's workflow.
package cert

import (
	"context"
	"fmt"
	"time"

	"github.com/sdargoeuves/automate-cisco-sdwan-lab/config"
	"github.com/sdargoeuves/automate-cisco-sdwan-lab/device"
	"github.com/sdargoeuves/automate-cisco-sdwan-lab/vmanage"
)

// certValidityDays is the fixed validity for the root and all signed device
// certificates.
const certValidityDays = 2000

const (
	csrTriggerAttempts = 3
	csrTriggerInterval = 5 * time.Second
	csrFileInterval    = 5 * time.Second
)

// managerAPI is the slice of the manager client the workflows call.
type managerAPI interface {
	Do(ctx context.Context, method, endpoint string, payload, out interface{}) error
	DoRaw(ctx context.Context, method, endpoint, raw string) error
}

// Orchestrator runs certificate workflows. Manager clients come from the
// run-wide store; getClient, sleep and connect are swappable for tests.
type Orchestrator struct {
	timing config.Timing

	getClient func(ctx context.Context, profile *config.DeviceProfile) (managerAPI, error)
	sleep     func(time.Duration)
	connect   func(profile *config.DeviceProfile, password string) (*device.Session, error)
}

func New(store *vmanage.Store, timing config.Timing) *Orchestrator {
	return &Orchestrator{
		timing: timing,
		getClient: func(ctx context.Context, profile *config.DeviceProfile) (managerAPI, error) {
			return store.Get(ctx, profile)
		},
		sleep:   time.Sleep,
		connect: device.Connect,
	}
}

// signCSR signs the device CSR with the enterprise root key via openssl on
// the device shell and returns the signed certificate text.
func signCSR(s *device.Session, profile *config.DeviceProfile) (string, error) {
	_, err := s.RunVshell(fmt.Sprintf(
		"openssl x509 -req -in %s -CA %s -CAkey %s -CAcreateserial -out %s -days %d -sha256",
		profile.CSRFile, profile.RootCert, profile.RSAKey, profile.SignedCert, certValidityDays))
	if err != nil {
		return "", fmt.Errorf("failed to sign CSR on %s: %w", s.Host, err)
	}

	signed, err := s.ReadFile(profile.SignedCert)
	if err != nil {
		return "", fmt.Errorf("failed to read signed certificate from %s: %w", s.Host, err)
	}

	return signed, nil
}
