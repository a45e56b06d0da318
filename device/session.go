// Copyright 2020 Nokia
// Licensed under the BSD 3-Clause License.
// SPDX-License-Identifier: BSD-3-Clause

// Package device abstracts a CLI connection to one SD-WAN device and implements
// the configuration push engine on top of it. All raw command output is logged
// at debug level for audit purposes; no parsing happens here beyond what each
// helper needs to detect success or failure.
package device

import (
	_ "embed"
	"fmt"
	"time"

	"github.com/scrapli/scrapligo/channel"
	"github.com/scrapli/scrapligo/driver/opoptions"
	"github.com/scrapli/scrapligo/driver/options"
	"github.com/scrapli/scrapligo/platform"
	"github.com/scrapli/scrapligo/response"
	"github.com/scrapli/scrapligo/transport"
	"github.com/scrapli/scrapligo/util"
	log "github.com/sirupsen/logrus"

	"github.com/sdargoeuves/automate-cisco-sdwan-lab/config"
	errs "github.com/sdargoeuves/automate-cisco-sdwan-lab/errors"
)

// privilege level names from the platform definitions.
const (
	privExec          = "exec"
	privConfiguration = "configuration"
)

// scrapligo has no built-in Viptela platform, so we carry our own definition.
//
//go:embed cisco_viptela.yaml
var viptelaPlatform []byte

// Conn is the surface of *network.Driver the session relies on. Narrowing it
// to an interface lets the push engine and workflows be exercised against a
// fake transport in tests.
type Conn interface {
	SendCommand(command string, opts ...util.Option) (*response.Response, error)
	SendConfigs(configs []string, opts ...util.Option) (*response.MultiResponse, error)
	SendInteractive(events []*channel.SendInteractiveEvent, opts ...util.Option) (*response.Response, error)
	GetPrompt() (string, error)
	AcquirePriv(target string) error
	Close() error
}

// Session represents one live CLI connection to a device. A session is owned
// exclusively by the workflow that opened it and must be closed exactly once on
// every exit path.
type Session struct {
	Host string
	Name string

	conn   Conn
	closed bool
}

// NewSession wraps an already established connection. Connect is the normal
// entry point; this exists for callers that manage the transport themselves.
func NewSession(host, name string, conn Conn) *Session {
	return &Session{Host: host, Name: name, conn: conn}
}

// Connect opens a CLI session to the device described by profile,
// authenticating with the given password. The returned error is a
// *errors.ConnectError carrying the raw failure text so callers can classify
// it (lockout detection) instead of treating every failure as fatal.
func Connect(profile *config.DeviceProfile, password string) (*Session, error) {
	opts := []util.Option{
		options.WithAuthNoStrictKey(),
		options.WithAuthUsername(profile.Username),
		options.WithAuthPassword(password),
		options.WithTransportType(transport.StandardTransport),
	}

	var platformDef interface{} = profile.Role.Platform()
	if profile.Role.Platform() == "cisco_viptela" {
		platformDef = viptelaPlatform
	}

	p, err := platform.NewPlatform(platformDef, profile.MgmtIP, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s platform for %s: %w",
			profile.Role.Platform(), profile.MgmtIP, err)
	}

	d, err := p.GetNetworkDriver()
	if err != nil {
		return nil, fmt.Errorf("failed to create driver for %s: %w", profile.MgmtIP, err)
	}

	if err := d.Open(); err != nil {
		return nil, &errs.ConnectError{Host: profile.MgmtIP, Text: err.Error()}
	}

	log.Debugf("connected to %s as %s", profile.MgmtIP, profile.Username)

	return &Session{Host: profile.MgmtIP, Name: profile.Name, conn: d}, nil
}

// SendCommand sends a single command at exec level and returns the raw output.
// A zero timeout uses the driver default.
func (s *Session) SendCommand(command string, timeout time.Duration) (string, error) {
	var opts []util.Option
	if timeout > 0 {
		opts = append(opts, opoptions.WithTimeoutOps(timeout))
	}

	r, err := s.conn.SendCommand(command, opts...)
	if err != nil {
		return "", fmt.Errorf("failed to send %q to %s: %w", command, s.Host, err)
	}

	log.Debugf("%s: %q output:\n%s", s.Host, command, r.Result)

	return r.Result, nil
}

// Close disconnects the session. Safe to call from deferred cleanup paths; the
// underlying driver is closed at most once.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	log.Debugf("disconnecting from %s", s.Host)

	return s.conn.Close()
}
