// Copyright 2020 Nokia
// Licensed under the BSD 3-Clause License.
// SPDX-License-Identifier: BSD-3-Clause

package device

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// LockoutInfo is the classification of a connection failure text.
type LockoutInfo struct {
	// Locked reports whether the failure looks like an account lockout.
	Locked bool
	// Wait is the lockout duration parsed from the failure text, zero when the
	// device did not state one.
	Wait time.Duration
}

// lockPhrases are the known account-lockout signatures emitted by the device
// login banner or the SSH layer.
var lockPhrases = []string{
	"account is locked",
	"locked due to",
	"too many authentication failures",
	"login disabled",
}

var lockoutMinutesRe = regexp.MustCompile(`(\d+)\s*minutes?\s*left`)

// ClassifyLockout inspects raw connection-failure text for account lockout
// signatures and, when present, a stated lockout duration. The heuristic is a
// substring match on free text and can misfire on unrelated errors containing
// similar phrases; it is kept isolated here for that reason.
func ClassifyLockout(errText string) LockoutInfo {
	if errText == "" {
		return LockoutInfo{}
	}

	lower := strings.ToLower(errText)

	var info LockoutInfo
	for _, phrase := range lockPhrases {
		if strings.Contains(lower, phrase) {
			info.Locked = true
			break
		}
	}
	if !info.Locked {
		return info
	}

	if m := lockoutMinutesRe.FindStringSubmatch(lower); m != nil {
		if minutes, err := strconv.Atoi(m[1]); err == nil {
			info.Wait = time.Duration(minutes) * time.Minute
		}
	}

	return info
}
