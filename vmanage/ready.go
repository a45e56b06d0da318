// Copyright 2020 Nokia
// Licensed under the BSD 3-Clause License.
// SPDX-License-Identifier: BSD-3-Clause

package vmanage

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/sdargoeuves/automate-cisco-sdwan-lab/utils"
)

const readyProbeInterval = 10 * time.Second

// WaitForReady polls the manager login and token endpoints until a valid
// token comes back or the window elapses. The window is converted to attempts
// at a 10s spacing, so maxWait of M minutes gives M*6 probes. Returns false
// on exhaustion; readiness failure is a decision point for the caller, not an
// error.
func WaitForReady(ctx context.Context, host, port, username, password string, maxWait time.Duration) bool {
	maxAttempts := int(maxWait.Minutes()) * 6
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	log.Debugf("waiting for API at %s:%s (max %s)", host, port, maxWait)

	attempts, err := utils.Poll(readyProbeInterval, maxAttempts, func(attempt int) (bool, error) {
		// fresh client per probe so a half-established session from a
		// booting manager cannot poison later attempts
		c := NewClient(host, port, username, password)
		if err := c.Login(ctx); err != nil {
			log.Infof("API not ready yet (attempt %d/%d): %v", attempt, maxAttempts, err)
			return false, err
		}
		return true, nil
	})
	if err != nil {
		log.Errorf("API at %s:%s did not become ready after %s: %v", host, port, maxWait, err)
		return false
	}

	log.Infof("API at %s:%s is ready (attempt %d)", host, port, attempts)

	return true
}
