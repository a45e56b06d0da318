// Copyright 2020 Nokia
// Licensed under the BSD 3-Clause License.
// SPDX-License-Identifier: BSD-3-Clause

package device

import (
	"errors"
	"testing"
)

func TestRebootConfirmsInOneDialogue(t *testing.T) {
	f := &fakeConn{
		interactiveOut: []string{"Are you sure you want to reboot? [yes,NO] yes\nBroadcast message"},
	}
	s := NewSession("10.255.0.3", "controller", f)

	if !s.reboot() {
		t.Fatal("wanted the reboot reported as sent")
	}

	if len(f.interactive) != 1 {
		t.Fatalf("wanted the confirmation in the same exchange as the command, got %d exchanges",
			len(f.interactive))
	}
	if f.interactive[0] != "reboot\nyes" {
		t.Fatalf("wanted %q, got %q", "reboot\nyes", f.interactive[0])
	}
}

func TestRebootDialogueFailure(t *testing.T) {
	f := &fakeConn{
		interactiveErr: []error{errors.New("channel timeout sending input to device")},
	}
	s := NewSession("10.255.0.3", "controller", f)

	if s.reboot() {
		t.Fatal("wanted a failed dialogue reported as a failed reboot")
	}
}
