// Copyright 2020 Nokia
// Licensed under the BSD 3-Clause License.
// SPDX-License-Identifier: BSD-3-Clause

package device

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestClassifyLockout(t *testing.T) {
	tests := map[string]struct {
		text string
		want LockoutInfo
	}{
		"empty text": {
			text: "",
			want: LockoutInfo{},
		},
		"plain authentication failure is not a lockout": {
			text: "ssh: handshake failed: unable to authenticate",
			want: LockoutInfo{},
		},
		"lockout with stated duration": {
			text: "Account is locked due to 5 failed logins, 14 minutes left",
			want: LockoutInfo{Locked: true, Wait: 14 * time.Minute},
		},
		"lockout with one minute left": {
			text: "account is locked, 1 minute left",
			want: LockoutInfo{Locked: true, Wait: time.Minute},
		},
		"lockout without duration": {
			text: "Too many authentication failures",
			want: LockoutInfo{Locked: true},
		},
		"case insensitive match": {
			text: "ACCOUNT IS LOCKED DUE TO FAILED LOGINS, 10 MINUTES LEFT",
			want: LockoutInfo{Locked: true, Wait: 10 * time.Minute},
		},
		"duration phrase without lockout phrase": {
			text: "maintenance window: 10 minutes left",
			want: LockoutInfo{},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got := ClassifyLockout(tc.text)
			if !cmp.Equal(got, tc.want) {
				t.Fatalf("wanted %+v, got %+v", tc.want, got)
			}
		})
	}
}
