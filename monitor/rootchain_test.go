// Copyright 2020 Nokia
// Licensed under the BSD 3-Clause License.
// SPDX-License-Identifier: BSD-3-Clause

package monitor

import (
	"errors"
	"testing"
	"time"

	"github.com/scrapli/scrapligo/channel"
	"github.com/scrapli/scrapligo/response"
	"github.com/scrapli/scrapligo/util"

	"github.com/sdargoeuves/automate-cisco-sdwan-lab/device"
)

func TestRootChainStatus(t *testing.T) {
	tests := map[string]struct {
		output string
		want   string
	}{
		"installed": {
			output: "personality              vedge\nroot-ca-chain-status     Installed\ncertificate-status       Not-Installed",
			want:   "installed",
		},
		"not installed": {
			output: "root-ca-chain-status     Not-Installed",
			want:   "not-installed",
		},
		"status line absent": {
			output: "personality              vedge",
			want:   "",
		},
		"empty output": {
			output: "",
			want:   "",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			if got := rootChainStatus(tc.output); got != tc.want {
				t.Fatalf("wanted %q, got %q", tc.want, got)
			}
		})
	}
}

// seqConn serves one scripted output per SendCommand call, repeating the last
// one once the script runs out.
type seqConn struct {
	outputs []string
	calls   int
}

func (f *seqConn) SendCommand(string, ...util.Option) (*response.Response, error) {
	out := f.outputs[f.calls]
	if f.calls < len(f.outputs)-1 {
		f.calls++
	}
	return &response.Response{Result: out}, nil
}

func (f *seqConn) SendConfigs([]string, ...util.Option) (*response.MultiResponse, error) {
	return response.NewMultiResponse("fake"), nil
}

func (f *seqConn) SendInteractive([]*channel.SendInteractiveEvent, ...util.Option) (*response.Response, error) {
	return &response.Response{}, nil
}

func (f *seqConn) GetPrompt() (string, error) { return "edge1#", nil }
func (f *seqConn) AcquirePriv(string) error   { return nil }
func (f *seqConn) Close() error               { return nil }

func TestWaitForRootChainInstalledFirstPoll(t *testing.T) {
	conn := &seqConn{outputs: []string{"root-ca-chain-status  Installed"}}
	s := device.NewSession("10.0.0.51", "edge1", conn)

	reinstalls := 0
	err := WaitForRootChainInstalled(s, time.Millisecond, 3*time.Millisecond, func() error {
		reinstalls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reinstalls != 0 {
		t.Fatalf("wanted no reinstall, got %d", reinstalls)
	}
}

func TestWaitForRootChainInstalledRecoversAfterReinstall(t *testing.T) {
	// a 3ms window at 1ms spacing gives 3 probes per poll: the first poll
	// exhausts on not-installed, the reinstall runs, the second poll sees the
	// chain come up
	conn := &seqConn{outputs: []string{
		"root-ca-chain-status  Not-Installed",
		"root-ca-chain-status  Not-Installed",
		"root-ca-chain-status  Not-Installed",
		"root-ca-chain-status  Installed",
	}}
	s := device.NewSession("10.0.0.51", "edge1", conn)

	reinstalls := 0
	err := WaitForRootChainInstalled(s, time.Millisecond, 3*time.Millisecond, func() error {
		reinstalls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reinstalls != 1 {
		t.Fatalf("wanted exactly one reinstall, got %d", reinstalls)
	}
}

func TestWaitForRootChainInstalledSecondTimeoutIsTerminal(t *testing.T) {
	conn := &seqConn{outputs: []string{"root-ca-chain-status  Not-Installed"}}
	s := device.NewSession("10.0.0.51", "edge1", conn)

	reinstalls := 0
	err := WaitForRootChainInstalled(s, time.Millisecond, 2*time.Millisecond, func() error {
		reinstalls++
		return nil
	})
	if err == nil {
		t.Fatal("wanted an error after the post-reinstall poll timed out")
	}
	if reinstalls != 1 {
		t.Fatalf("wanted the reinstall attempted once, got %d", reinstalls)
	}
}

func TestWaitForRootChainInstalledReinstallFailure(t *testing.T) {
	conn := &seqConn{outputs: []string{"root-ca-chain-status  Not-Installed"}}
	s := device.NewSession("10.0.0.51", "edge1", conn)

	wantErr := errors.New("install rejected")
	err := WaitForRootChainInstalled(s, time.Millisecond, 2*time.Millisecond, func() error {
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("wanted the reinstall failure surfaced, got %v", err)
	}
}
