// Copyright 2020 Nokia
// Licensed under the BSD 3-Clause License.
// SPDX-License-Identifier: BSD-3-Clause

package device

import (
	"fmt"
	"path"
	"strings"

	"github.com/scrapli/scrapligo/channel"
	log "github.com/sirupsen/logrus"
)

// ScpCopy drives the IOS-XE interactive "copy scp:" dialogue to pull a file
// from a remote host onto the device. The driver re-acquires the privilege
// prompt at the start of every interactive call, so the whole dialogue must
// run as one event sequence. An existing destination file would insert an
// overwrite confirmation into that sequence; the destination is deleted up
// front so the dialogue stays fixed.
func (s *Session) ScpCopy(host, username, password, remoteFile, destination string) error {
	log.Infof("%s: copying %s from %s via SCP", s.Host, remoteFile, host)

	target := destination
	if strings.HasSuffix(destination, "/") || strings.HasSuffix(destination, ":") {
		target += path.Base(remoteFile)
	}
	if out, err := s.SendCommand("delete /force "+target, 0); err != nil {
		log.Debugf("%s: pre-copy delete of %s: %v", s.Host, target, err)
	} else if out != "" {
		log.Debugf("%s: pre-copy delete of %s:\n%s", s.Host, target, out)
	}

	events := []*channel.SendInteractiveEvent{
		{ChannelInput: "copy scp: " + destination, ChannelResponse: `\?`},
		{ChannelInput: host, ChannelResponse: `\?`},
		{ChannelInput: username, ChannelResponse: `\?`},
		{ChannelInput: remoteFile, ChannelResponse: `\?`},
		{ChannelInput: "", ChannelResponse: `(?i)password`},
		// empty ChannelResponse reads until the exec prompt returns, which
		// covers the transfer itself
		{ChannelInput: password, HideInput: true},
	}

	r, err := s.conn.SendInteractive(events)
	if err != nil {
		return fmt.Errorf("SCP dialogue with %s failed: %w", s.Host, err)
	}

	transcript := r.Result

	log.Debugf("%s: SCP transcript:\n%s", s.Host, transcript)

	if strings.Contains(transcript, "Authentication failed") ||
		strings.Contains(transcript, "%Error") {
		return fmt.Errorf("SCP copy of %s to %s failed: %s", remoteFile, s.Host,
			firstLineContaining(transcript, "Authentication failed", "%Error"))
	}

	if !strings.Contains(transcript, "bytes copied") && !strings.Contains(transcript, "copied") {
		log.Warnf("%s: SCP copy did not confirm success; check debug logs", s.Host)
	} else {
		log.Infof("%s: SCP copy completed", s.Host)
	}

	return nil
}

func firstLineContaining(text string, subs ...string) string {
	for _, line := range strings.Split(text, "\n") {
		for _, sub := range subs {
			if strings.Contains(line, sub) {
				return strings.TrimSpace(line)
			}
		}
	}
	return ""
}
