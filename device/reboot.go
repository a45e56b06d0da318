// Copyright 2020 Nokia
// Licensed under the BSD 3-Clause License.
// SPDX-License-Identifier: BSD-3-Clause

package device

import (
	"github.com/scrapli/scrapligo/channel"
	log "github.com/sirupsen/logrus"

	"github.com/sdargoeuves/automate-cisco-sdwan-lab/config"
)

// Reboot connects to a device and issues a reboot, answering the confirmation
// prompt. The session is opened and closed inside this call since rebooting
// invalidates any existing CLI state anyway. Returns false when the device
// could not be reached or the command failed; a reboot failure is reported,
// not fatal.
func Reboot(profile *config.DeviceProfile) bool {
	log.Infof("sending reboot command to %s", profile.MgmtIP)

	s, err := Connect(profile, profile.Password)
	if err != nil {
		log.Warnf("failed to connect to %s for reboot: %v", profile.MgmtIP, err)
		return false
	}
	defer s.Close()

	return s.reboot()
}

// reboot drives the reboot dialogue on an open session. The driver
// re-acquires the privilege prompt before every interactive call, so the
// confirmation must ride in the same event sequence as the reboot command
// itself.
func (s *Session) reboot() bool {
	r, err := s.conn.SendInteractive([]*channel.SendInteractiveEvent{
		{ChannelInput: "reboot", ChannelResponse: `(?i)are you sure`},
		// the response pattern matches the first output the device produces,
		// since the connection drops as soon as the reboot starts
		{ChannelInput: "yes", ChannelResponse: `(?i)reboot|restart|going down|broadcast|#|\$`},
	})
	if err != nil {
		log.Warnf("failed to reboot %s: %v", s.Host, err)
		return false
	}

	log.Debugf("%s: reboot output:\n%s", s.Host, r.Result)
	log.Infof("reboot command sent to %s", s.Host)

	return true
}
