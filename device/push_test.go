// Copyright 2020 Nokia
// Licensed under the BSD 3-Clause License.
// SPDX-License-Identifier: BSD-3-Clause

package device

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	errs "github.com/sdargoeuves/automate-cisco-sdwan-lab/errors"
)

func TestNormalizeConfigLines(t *testing.T) {
	tests := map[string]struct {
		payload string
		want    []string
	}{
		"blank lines and indentation are stripped": {
			payload: "system\n  host-name vm1\n\n  site-id 100\n",
			want:    []string{"system", "host-name vm1", "site-id 100"},
		},
		"order is preserved": {
			payload: "z-last\na-first\nz-last",
			want:    []string{"z-last", "a-first", "z-last"},
		},
		"whitespace only payload": {
			payload: "  \n\t\n",
			want:    nil,
		},
		"windows line endings": {
			payload: "system\r\nhost-name vm1\r\n",
			want:    []string{"system", "host-name vm1"},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got := NormalizeConfigLines(tc.payload)
			if !cmp.Equal(got, tc.want) {
				t.Fatalf("wanted %v, got %v", tc.want, got)
			}
		})
	}
}

func TestPushConfigEmptyPayload(t *testing.T) {
	s := NewSession("10.0.0.1", "vm1", &fakeConn{})

	if _, err := PushConfig(s, "\n  \n", PushOptions{}); !errors.Is(err, errs.ErrEmptyConfig) {
		t.Fatalf("wanted ErrEmptyConfig, got %v", err)
	}
}

func TestPushConfigSendsLinesInOrder(t *testing.T) {
	conn := &fakeConn{interactiveOut: []string{"Commit complete."}}
	s := NewSession("10.0.0.1", "vm1", conn)

	_, err := PushConfig(s, "system\n host-name vm1\n commit\n", PushOptions{CommitCommand: "commit"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"system", "host-name vm1", "commit"}
	if !cmp.Equal(conn.configs[0], want) {
		t.Fatalf("wanted config lines %v, got %v", want, conn.configs[0])
	}
	if !cmp.Equal(conn.privs, []string{"exec"}) {
		t.Fatalf("wanted return to exec after push, got priv changes %v", conn.privs)
	}
}

func TestPushConfigCommitIdempotent(t *testing.T) {
	// re-pushing an already applied config reports no modifications; that is a
	// success, not a failure
	conn := &fakeConn{interactiveOut: []string{"No modifications to commit."}}
	s := NewSession("10.0.0.1", "vm1", conn)

	if _, err := PushConfig(s, "system", PushOptions{CommitCommand: "commit"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(conn.interactive) != 1 {
		t.Fatalf("wanted a single commit attempt, got %d", len(conn.interactive))
	}
}

func TestPushConfigCommitRetryExhaustion(t *testing.T) {
	conn := &fakeConn{
		interactiveOut: []string{"Aborted: resource in use", "Aborted: resource in use", "Aborted: resource in use"},
	}
	s := NewSession("10.0.0.1", "vm1", conn)

	out, err := PushConfig(s, "system", PushOptions{
		CommitCommand:       "commit",
		CommitRetryAttempts: 3,
	})

	var cfe *errs.CommitFailedError
	if !errors.As(err, &cfe) {
		t.Fatalf("wanted CommitFailedError, got %v", err)
	}
	if cfe.Attempts != 3 {
		t.Fatalf("wanted exactly 3 attempts, got %d", cfe.Attempts)
	}
	if len(conn.interactive) != 3 {
		t.Fatalf("wanted 3 commit commands on the wire, got %d", len(conn.interactive))
	}
	if !strings.Contains(cfe.LastOutput, "Aborted") {
		t.Fatalf("wanted last commit output preserved, got %q", cfe.LastOutput)
	}
	if !strings.Contains(out, "Aborted") {
		t.Fatalf("wanted accumulated output returned, got %q", out)
	}
}

func TestPushConfigCommitSucceedsOnRetry(t *testing.T) {
	conn := &fakeConn{
		interactiveOut: []string{"Aborted: resource in use", "Commit complete."},
	}
	s := NewSession("10.0.0.1", "vm1", conn)

	if _, err := PushConfig(s, "system", PushOptions{CommitCommand: "commit", CommitRetryAttempts: 3}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(conn.interactive) != 2 {
		t.Fatalf("wanted 2 commit attempts, got %d", len(conn.interactive))
	}
}

func TestPushConfigImplicitCommitUnsupported(t *testing.T) {
	// platforms without a commit protocol answer with an error text; that is
	// tolerated when no commit command is configured
	conn := &fakeConn{interactiveOut: []string{"% Operation not supported"}}
	s := NewSession("10.0.0.2", "edge1", conn)

	if _, err := PushConfig(s, "hostname edge1", PushOptions{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if conn.interactive[0] != "commit" {
		t.Fatalf("wanted a bare commit, got %q", conn.interactive[0])
	}
}

func TestPushConfigTransportError(t *testing.T) {
	conn := &fakeConn{configsErr: errors.New("channel closed")}
	s := NewSession("10.0.0.1", "vm1", conn)

	_, err := PushConfig(s, "system", PushOptions{})

	var ce *errs.ConnectError
	if !errors.As(err, &ce) {
		t.Fatalf("wanted ConnectError, got %v", err)
	}
	if ce.Host != "10.0.0.1" {
		t.Fatalf("wanted host in error, got %q", ce.Host)
	}
}

func TestSessionCloseIsIdempotent(t *testing.T) {
	conn := &fakeConn{}
	s := NewSession("10.0.0.1", "vm1", conn)

	for i := 0; i < 3; i++ {
		if err := s.Close(); err != nil {
			t.Fatalf("unexpected error on close %d: %v", i, err)
		}
	}
	if conn.closeCount != 1 {
		t.Fatalf("wanted the driver closed once, got %d", conn.closeCount)
	}
}
