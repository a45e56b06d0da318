// Copyright 2020 Nokia
// Licensed under the BSD 3-Clause License.
// SPDX-License-Identifier: BSD-3-Clause

// Package bootstrap drives a device from factory-default credentials to an
// operationally configured state. It owns the credential fallback order,
// account lockout backoff and the retry budget; callers receive a live
// session authenticated with the operational password and never
// re-authenticate themselves.
package bootstrap

import (
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/sdargoeuves/automate-cisco-sdwan-lab/config"
	"github.com/sdargoeuves/automate-cisco-sdwan-lab/device"
)

// State labels one step of the bootstrap state machine, used for logging and
// assertions in tests.
type State int

const (
	StateAttemptingDefault State = iota
	StateAttemptingConfigured
	StatePushingInitialConfig
	StateReconnectingUpdated
	StateLockedOut
	StateBootstrapped
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateAttemptingDefault:
		return "attempting-default"
	case StateAttemptingConfigured:
		return "attempting-configured"
	case StatePushingInitialConfig:
		return "pushing-initial-config"
	case StateReconnectingUpdated:
		return "reconnecting-updated"
	case StateLockedOut:
		return "locked-out"
	case StateBootstrapped:
		return "bootstrapped"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

const (
	retryWait = 120 * time.Second
	// baseBudget is the wall clock ceiling on connection retries. A detected
	// lockout extends it so the unlock wait itself never eats the budget.
	baseBudget = 900 * time.Second
	// budgetMargin is added on top of a lockout wait when extending the budget.
	budgetMargin = 30 * time.Second
)

// connectFunc and pushFunc let tests drive the state machine without a
// transport.
type (
	connectFunc func(profile *config.DeviceProfile, password string) (*device.Session, error)
	pushFunc    func(s *device.Session, payload string, opts device.PushOptions) (string, error)
)

// Orchestrator runs the bootstrap state machine. The zero value is not
// usable; construct with New.
type Orchestrator struct {
	connect connectFunc
	push    pushFunc
	sleep   func(time.Duration)
	now     func() time.Time
}

func New() *Orchestrator {
	return &Orchestrator{
		connect: device.Connect,
		push:    device.PushConfig,
		sleep:   time.Sleep,
		now:     time.Now,
	}
}

type run struct {
	o       *Orchestrator
	profile *config.DeviceProfile
	started time.Time
	budget  time.Duration

	lastError string
	state     State
}

// Run bootstraps one device. With a non-empty initialConfig it connects with
// factory-default credentials, pushes the config, then reconnects with the
// operational password; a device that no longer accepts the default password
// is assumed already configured and gets the config re-applied over the
// operational login. With an empty initialConfig only the operational
// connect is attempted. The returned session is open and owned by the
// caller. A nil session with an error means bootstrap failed for this device;
// fleet runs log it and continue where the dependency chain allows.
func (o *Orchestrator) Run(profile *config.DeviceProfile, initialConfig string,
	opts device.PushOptions,
) (*device.Session, error) {
	r := &run{
		o:       o,
		profile: profile,
		started: o.now(),
		budget:  baseBudget,
	}

	empty := strings.TrimSpace(initialConfig) == ""
	if empty {
		log.Warnf("%s: initial config is empty; skipping config push", profile.Name)
	}

	for {
		var (
			s    *device.Session
			err  error
			stop bool
		)

		if empty {
			s, err, stop = r.connectConfiguredOnly()
		} else {
			s, err, stop = r.attemptWithConfig(initialConfig, opts)
		}
		if s != nil {
			r.setState(StateBootstrapped)
			return s, nil
		}
		if stop {
			r.setState(StateFailed)
			return nil, err
		}

		elapsed := o.now().Sub(r.started)
		if elapsed >= r.budget {
			r.setState(StateFailed)
			if empty {
				return nil, fmt.Errorf("%s: failed to connect with configured password (last error: %s)",
					profile.Name, r.lastError)
			}
			return nil, fmt.Errorf("%s: failed to connect with both default and updated passwords (last error: %s)",
				profile.Name, r.lastError)
		}

		log.Infof("%s: retrying connection in %s (elapsed %s, last error: %s)",
			profile.Name, retryWait, elapsed.Round(time.Second), r.lastError)
		o.sleep(retryWait)
	}
}

// connectConfiguredOnly handles the no-initial-config branch: a single
// operational-password attempt per cycle.
func (r *run) connectConfiguredOnly() (*device.Session, error, bool) {
	r.setState(StateAttemptingConfigured)

	s, err := r.o.connect(r.profile, r.profile.Password)
	if err == nil {
		return s, nil, false
	}

	r.noteError(err)

	if stop, handled := r.handleLockout(err); handled {
		return nil, stop, stop != nil
	}

	return nil, nil, false
}

// attemptWithConfig handles one full default-then-configured cycle.
func (r *run) attemptWithConfig(initialConfig string, opts device.PushOptions) (*device.Session, error, bool) {
	r.setState(StateAttemptingDefault)

	s, err := r.o.connect(r.profile, r.profile.DefaultPassword)
	if err == nil {
		r.setState(StatePushingInitialConfig)

		if _, pushErr := r.o.push(s, initialConfig, opts); pushErr != nil {
			s.Close()
			return nil, pushErr, true
		}
		s.Close()

		r.setState(StateReconnectingUpdated)
		log.Infof("%s: reconnecting with updated credentials", r.profile.Name)

		s, err = r.o.connect(r.profile, r.profile.Password)
		if err == nil {
			return s, nil, false
		}
		r.noteError(err)
		if stop, handled := r.handleLockout(err); handled {
			return nil, stop, stop != nil
		}
		log.Warnf("%s: connected with default credentials but failed to reconnect with updated credentials",
			r.profile.Name)

		return nil, nil, false
	}

	r.noteError(err)
	log.Warnf("%s: default credentials failed, trying configured password", r.profile.Name)

	r.setState(StateAttemptingConfigured)
	s, err = r.o.connect(r.profile, r.profile.Password)
	if err == nil {
		// the device refused the factory default, so it has been touched
		// before; re-apply the initial config over the operational login
		r.setState(StatePushingInitialConfig)
		log.Infof("%s: re-applying initial configuration", r.profile.Name)

		if _, pushErr := r.o.push(s, initialConfig, opts); pushErr != nil {
			s.Close()
			return nil, pushErr, true
		}
		return s, nil, false
	}

	r.noteError(err)
	if stop, handled := r.handleLockout(err); handled {
		return nil, stop, stop != nil
	}

	// both passwords rejected without an explicit lockout message: most
	// likely the account is locked and the device is not saying so, keep
	// the full lockout window available
	r.extendBudget(baseBudget)

	return nil, nil, false
}

// handleLockout classifies err for lockout signatures. When locked with a
// parseable wait it extends the retry budget, sleeps out the lock and reports
// handled with no stop error; when locked without a duration it reports a
// terminal stop error. Unlocked errors are not handled here.
func (r *run) handleLockout(err error) (error, bool) {
	info := device.ClassifyLockout(err.Error())
	if !info.Locked {
		return nil, false
	}

	r.setState(StateLockedOut)

	if info.Wait > 0 {
		elapsed := r.o.now().Sub(r.started)
		r.extendBudget(elapsed + info.Wait + budgetMargin)

		log.Warnf("%s: account is locked; waiting %s before retry", r.profile.Name, info.Wait)
		r.o.sleep(info.Wait)

		return nil, true
	}

	return fmt.Errorf("%s: account is locked due to failed logins; stopping retries", r.profile.Name), true
}

// extendBudget grows the retry budget; it never shrinks.
func (r *run) extendBudget(to time.Duration) {
	if to > r.budget {
		r.budget = to
	}
}

func (r *run) noteError(err error) {
	text := err.Error()
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	r.lastError = text

	log.Warnf("%s: connection failed: %v", r.profile.Name, err)
}

func (r *run) setState(s State) {
	if r.state != s {
		log.Debugf("%s: bootstrap state %s -> %s", r.profile.Name, r.state, s)
		r.state = s
	}
}
