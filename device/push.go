// Copyright 2020 Nokia
// Licensed under the BSD 3-Clause License.
// SPDX-License-Identifier: BSD-3-Clause

package device

import (
	"strings"
	"time"

	"github.com/scrapli/scrapligo/channel"
	"github.com/scrapli/scrapligo/driver/opoptions"
	"github.com/scrapli/scrapligo/util"
	log "github.com/sirupsen/logrus"

	errs "github.com/sdargoeuves/automate-cisco-sdwan-lab/errors"
	"github.com/sdargoeuves/automate-cisco-sdwan-lab/utils"
)

// PushOptions tune one configuration push. The zero value pushes the config
// and issues a single implicit commit.
type PushOptions struct {
	// CommitCommand enables the bounded commit-retry protocol. When empty, a
	// plain "commit" is attempted once and "operation not supported" style
	// output is tolerated (some device types auto-commit).
	CommitCommand string
	// ReadTimeout overrides the per-line read timeout while sending config.
	ReadTimeout time.Duration
	// CommitReadTimeout bounds each commit attempt.
	CommitReadTimeout time.Duration
	// CommitRetryAttempts caps the commit attempts. Defaults to 2.
	CommitRetryAttempts int
	// CommitRetryWait is the pause between commit attempts.
	CommitRetryWait time.Duration
}

// commit output is matched case-insensitively against these terminals. "no
// modifications to commit" makes a re-push of an already-applied config a
// success, not a failure.
var commitSuccess = []string{
	"commit complete",
	"no modifications to commit",
}

// implicit commit failures that are tolerated when no commit command was
// configured for the device type.
var commitUnsupported = []string{
	"operation not supported",
	"invalid input",
	"unknown command",
	"syntax error",
}

// PushConfig normalizes the payload to trimmed non-blank lines, sends them in
// configuration mode preserving order, then drives the commit protocol. It
// returns the accumulated raw output. An exhausted commit retry budget is a
// *errors.CommitFailedError; commit failure is never silently swallowed.
func PushConfig(s *Session, payload string, opts PushOptions) (string, error) {
	lines := NormalizeConfigLines(payload)
	if len(lines) == 0 {
		return "", errs.ErrEmptyConfig
	}

	log.Debugf("%s: config to push:\n%s", s.Host, strings.Join(lines, "\n"))
	log.Infof("%s: pushing %d configuration lines", s.Host, len(lines))

	var sendOpts []util.Option
	if opts.ReadTimeout > 0 {
		sendOpts = append(sendOpts, opoptions.WithTimeoutOps(opts.ReadTimeout))
	}

	mr, err := s.conn.SendConfigs(lines, sendOpts...)
	if err != nil {
		return "", &errs.ConnectError{Host: s.Host, Text: err.Error()}
	}

	var out strings.Builder
	out.WriteString(mr.JoinedResult())

	if opts.CommitCommand != "" {
		commitOut, err := commitWithRetry(s, opts)
		out.WriteString("\n" + commitOut)
		if err != nil {
			return out.String(), err
		}
	} else {
		commitOut, err := implicitCommit(s)
		out.WriteString("\n" + commitOut)
		if err != nil {
			return out.String(), err
		}
	}

	// leave configuration mode
	if err := s.conn.AcquirePriv(privExec); err != nil {
		return out.String(), &errs.ConnectError{Host: s.Host, Text: err.Error()}
	}

	log.Infof("%s: configuration pushed and committed", s.Host)

	return out.String(), nil
}

// commitWithRetry issues the commit command up to the configured number of
// attempts, each with its own read timeout, waiting a fixed interval between
// attempts. Exactly N attempts are made before giving up.
func commitWithRetry(s *Session, opts PushOptions) (string, error) {
	attempts := opts.CommitRetryAttempts
	if attempts < 1 {
		attempts = 2
	}
	commitTimeout := opts.CommitReadTimeout
	if commitTimeout == 0 {
		commitTimeout = 120 * time.Second
	}

	var out strings.Builder
	var lastOutput string

	n, err := utils.Poll(opts.CommitRetryWait, attempts, func(attempt int) (bool, error) {
		log.Infof("%s: committing configuration (attempt %d/%d)", s.Host, attempt, attempts)

		r, err := s.conn.SendInteractive(
			[]*channel.SendInteractiveEvent{{ChannelInput: opts.CommitCommand}},
			opoptions.WithPrivilegeLevel(privConfiguration),
			opoptions.WithTimeoutOps(commitTimeout),
		)
		if err != nil {
			log.Warnf("%s: commit timed out (attempt %d/%d): %v", s.Host, attempt, attempts, err)
			return false, err
		}

		lastOutput = r.Result
		out.WriteString(r.Result + "\n")

		if containsAny(strings.ToLower(r.Result), commitSuccess) {
			log.Infof("%s: commit complete", s.Host)
			return true, nil
		}

		return false, nil
	})
	if err != nil {
		log.Errorf("%s: commit did not complete after %d attempt(s)", s.Host, n)
		return out.String(), &errs.CommitFailedError{Attempts: n, LastOutput: lastOutput}
	}

	return out.String(), nil
}

// implicitCommit runs a bare commit for device types without an explicit commit
// protocol. Output telling us the platform does not support commit is fine.
func implicitCommit(s *Session) (string, error) {
	r, err := s.conn.SendInteractive(
		[]*channel.SendInteractiveEvent{{ChannelInput: "commit"}},
		opoptions.WithPrivilegeLevel(privConfiguration),
	)
	if err != nil {
		return "", &errs.CommitFailedError{Attempts: 1, LastOutput: err.Error()}
	}

	if containsAny(strings.ToLower(r.Result), commitUnsupported) {
		log.Warnf("%s: device does not support commit; skipping", s.Host)
	}

	return r.Result, nil
}

// NormalizeConfigLines splits the payload into trimmed lines, dropping blank
// ones. Order is preserved and nothing is deduplicated: configuration line
// order is significant.
func NormalizeConfigLines(payload string) []string {
	var lines []string
	for _, line := range strings.Split(payload, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
