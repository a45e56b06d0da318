// Copyright 2020 Nokia
// Licensed under the BSD 3-Clause License.
// SPDX-License-Identifier: BSD-3-Clause

package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/sdargoeuves/automate-cisco-sdwan-lab/vmanage"
)

// fakeControllerAPI serves scripted controller listings, one per call.
type fakeControllerAPI struct {
	listings [][]vmanage.DeviceStatus
	calls    int
}

func (f *fakeControllerAPI) Controllers(context.Context) ([]vmanage.DeviceStatus, error) {
	listing := f.listings[f.calls]
	if f.calls < len(f.listings)-1 {
		f.calls++
	}
	return listing, nil
}

func inSync(host string) vmanage.DeviceStatus {
	return vmanage.DeviceStatus{
		DeviceType:          "vsmart",
		Hostname:            host,
		SystemIP:            "10.255.0.3",
		ConfigStatusMessage: "In Sync",
	}
}

func outOfSync(host, systemIP string) vmanage.DeviceStatus {
	return vmanage.DeviceStatus{
		DeviceType:          "vsmart",
		Hostname:            host,
		SystemIP:            systemIP,
		ConfigStatusMessage: "Out of Sync",
	}
}

func TestRebootOutOfSyncAllInSync(t *testing.T) {
	api := &fakeControllerAPI{listings: [][]vmanage.DeviceStatus{{inSync("vsm1")}}}

	var rebooted []string
	var sleeps []time.Duration
	opts := SyncOptions{
		InitialWait:  30 * time.Second,
		RecheckWait:  120 * time.Second,
		EnableReboot: true,
		Reboot: func(systemIP string) bool {
			rebooted = append(rebooted, systemIP)
			return true
		},
		sleep: func(d time.Duration) { sleeps = append(sleeps, d) },
	}

	if err := RebootOutOfSync(context.Background(), api, opts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rebooted) != 0 {
		t.Fatalf("wanted no reboots, got %v", rebooted)
	}
	if !cmp.Equal(sleeps, []time.Duration{30 * time.Second}) {
		t.Fatalf("wanted only the initial settle wait, got %v", sleeps)
	}
}

func TestRebootOutOfSyncRecoversOnRecheck(t *testing.T) {
	api := &fakeControllerAPI{listings: [][]vmanage.DeviceStatus{
		{outOfSync("vsm1", "10.255.0.3")},
		{inSync("vsm1")},
	}}

	var rebooted []string
	opts := SyncOptions{
		EnableReboot: true,
		Reboot: func(systemIP string) bool {
			rebooted = append(rebooted, systemIP)
			return true
		},
		sleep: func(time.Duration) {},
	}

	if err := RebootOutOfSync(context.Background(), api, opts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rebooted) != 0 {
		t.Fatal("wanted no reboot for a component that recovered on recheck")
	}
}

func TestRebootOutOfSyncPersistentOffender(t *testing.T) {
	tests := map[string]struct {
		enableReboot bool
		systemIP     string
		wantReboots  []string
	}{
		"reboot enabled": {
			enableReboot: true,
			systemIP:     "10.255.0.3",
			wantReboots:  []string{"10.255.0.3"},
		},
		"reboot disabled logs and skips": {
			enableReboot: false,
			systemIP:     "10.255.0.3",
			wantReboots:  nil,
		},
		"missing system-ip is skipped": {
			enableReboot: true,
			systemIP:     "",
			wantReboots:  nil,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			api := &fakeControllerAPI{listings: [][]vmanage.DeviceStatus{
				{outOfSync("vsm1", tc.systemIP)},
			}}

			var rebooted []string
			opts := SyncOptions{
				EnableReboot: tc.enableReboot,
				Reboot: func(systemIP string) bool {
					rebooted = append(rebooted, systemIP)
					return true
				},
				sleep: func(time.Duration) {},
			}

			if err := RebootOutOfSync(context.Background(), api, opts); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !cmp.Equal(rebooted, tc.wantReboots) {
				t.Fatalf("wanted reboots %v, got %v", tc.wantReboots, rebooted)
			}
		})
	}
}

func TestComponentLabel(t *testing.T) {
	tests := map[string]struct {
		item vmanage.DeviceStatus
		want string
	}{
		"hostname preferred": {
			item: vmanage.DeviceStatus{DeviceType: "vsmart", Hostname: "vsm1", SystemIP: "10.255.0.3"},
			want: "vsmart (vsm1)",
		},
		"system ip fallback": {
			item: vmanage.DeviceStatus{DeviceType: "vbond", SystemIP: "10.255.0.2"},
			want: "vbond (10.255.0.2)",
		},
		"nothing known": {
			item: vmanage.DeviceStatus{},
			want: "unknown (unknown)",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			if got := componentLabel(tc.item); got != tc.want {
				t.Fatalf("wanted %q, got %q", tc.want, got)
			}
		})
	}
}
