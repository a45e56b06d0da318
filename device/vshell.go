// Copyright 2020 Nokia
// Licensed under the BSD 3-Clause License.
// SPDX-License-Identifier: BSD-3-Clause

package device

import (
	"fmt"
	"strings"

	"github.com/scrapli/scrapligo/channel"
	log "github.com/sirupsen/logrus"
)

// vshell is the Viptela bash shell reached from the exec CLI. Its prompt ends
// with "$", the heredoc continuation prompt with ">".
const (
	vshellPrompt  = `\$`
	heredocPrompt = `>`
	execPrompt    = `#`
)

// RunVshell enters vshell, runs one command and exits back to the exec CLI.
// The returned string is the output of the command itself, with the vshell
// entry and exit stripped.
func (s *Session) RunVshell(command string) (string, error) {
	events := []*channel.SendInteractiveEvent{
		{ChannelInput: "vshell", ChannelResponse: vshellPrompt},
		{ChannelInput: command, ChannelResponse: vshellPrompt},
		{ChannelInput: "exit", ChannelResponse: execPrompt},
	}

	r, err := s.conn.SendInteractive(events)
	if err != nil {
		return "", fmt.Errorf("failed to run %q in vshell on %s: %w", command, s.Host, err)
	}

	out := extractVshellOutput(r.Result, command)
	log.Debugf("%s: vshell %q output:\n%s", s.Host, command, out)

	return out, nil
}

// ReadFile reads a file from the device filesystem via vshell.
func (s *Session) ReadFile(filename string) (string, error) {
	content, err := s.RunVshell("cat " + filename)
	if err != nil {
		return "", err
	}

	log.Debugf("%s: read file %s (%d bytes)", s.Host, filename, len(content))

	return content, nil
}

// WriteFile writes content to a file on the device filesystem via a vshell
// heredoc. Content is sent verbatim; the device side sees exactly the given
// bytes followed by a newline.
func (s *Session) WriteFile(filename, content string) error {
	events := []*channel.SendInteractiveEvent{
		{ChannelInput: "vshell", ChannelResponse: vshellPrompt},
		{ChannelInput: fmt.Sprintf("cat > %s << 'EOF'", filename), ChannelResponse: heredocPrompt},
		{ChannelInput: content + "\nEOF", ChannelResponse: vshellPrompt},
		{ChannelInput: "exit", ChannelResponse: execPrompt},
	}

	if _, err := s.conn.SendInteractive(events); err != nil {
		return fmt.Errorf("failed to write file %s on %s: %w", filename, s.Host, err)
	}

	log.Debugf("%s: wrote file %s (%d bytes)", s.Host, filename, len(content))

	return nil
}

// FileExists checks for a file on the device filesystem.
func (s *Session) FileExists(filename string) (bool, error) {
	out, err := s.RunVshell(
		fmt.Sprintf("test -f %s && echo 'exists' || echo 'not_found'", filename))
	if err != nil {
		return false, err
	}
	return strings.Contains(out, "exists"), nil
}

// extractVshellOutput cuts the command output out of the combined interactive
// transcript: everything after the command echo up to the trailing shell
// prompt line.
func extractVshellOutput(transcript, command string) string {
	lines := strings.Split(transcript, "\n")

	start := 0
	for i, line := range lines {
		if strings.Contains(line, command) {
			start = i + 1
			break
		}
	}

	// output runs until the next shell prompt (a "...$" line, possibly already
	// echoing the follow-up input)
	end := len(lines)
	for i := start; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if strings.HasSuffix(trimmed, "$") || strings.Contains(trimmed, "$ exit") ||
			strings.HasSuffix(trimmed, "#") {
			end = i
			break
		}
	}

	return strings.TrimRight(strings.Join(lines[start:end], "\n"), "\r\n")
}
