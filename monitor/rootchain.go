// Copyright 2020 Nokia
// Licensed under the BSD 3-Clause License.
// SPDX-License-Identifier: BSD-3-Clause

package monitor

import (
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/sdargoeuves/automate-cisco-sdwan-lab/device"
	"github.com/sdargoeuves/automate-cisco-sdwan-lab/utils"
)

// rootChainStatus extracts the root-ca-chain-status value from the edge's
// local control properties output.
func rootChainStatus(output string) string {
	for _, line := range strings.Split(output, "\n") {
		if strings.Contains(line, "root-ca-chain-status") {
			fields := strings.Fields(line)
			return strings.ToLower(fields[len(fields)-1])
		}
	}

	return ""
}

// WaitForRootChainInstalled polls an edge until its root certificate chain
// reports installed. On timeout the reinstall action runs once and the poll
// repeats; a second timeout is terminal.
func WaitForRootChainInstalled(s *device.Session, interval, timeout time.Duration,
	reinstall func() error,
) error {
	if err := pollRootChain(s, interval, timeout); err == nil {
		return nil
	}

	log.Warnf("%s: root chain not installed within %s; reinstalling root certificate", s.Host, timeout)

	if reinstall != nil {
		if err := reinstall(); err != nil {
			return fmt.Errorf("root certificate reinstall on %s failed: %w", s.Host, err)
		}
	}

	if err := pollRootChain(s, interval, timeout); err != nil {
		return fmt.Errorf("%s: root chain still not installed after reinstall: %w", s.Host, err)
	}

	return nil
}

func pollRootChain(s *device.Session, interval, timeout time.Duration) error {
	maxAttempts := int(timeout / interval)
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	attempts, err := utils.Poll(interval, maxAttempts, func(attempt int) (bool, error) {
		out, err := s.SendCommand("show sdwan control local-properties", 0)
		if err != nil {
			log.Debugf("%s: root chain check %d failed: %v", s.Host, attempt, err)
			return false, err
		}

		status := rootChainStatus(out)
		log.Debugf("%s: root-ca-chain-status %q (attempt %d/%d)", s.Host, status, attempt, maxAttempts)

		return status == "installed", nil
	})
	if err != nil {
		return err
	}

	log.Infof("%s: root certificate chain installed (attempt %d)", s.Host, attempts)

	return nil
}
