// Copyright 2020 Nokia
// Licensed under the BSD 3-Clause License.
// SPDX-License-Identifier: BSD-3-Clause

package cert

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/scrapli/scrapligo/channel"
	"github.com/scrapli/scrapligo/response"
	"github.com/scrapli/scrapligo/util"

	"github.com/sdargoeuves/automate-cisco-sdwan-lab/config"
	"github.com/sdargoeuves/automate-cisco-sdwan-lab/device"
	"github.com/sdargoeuves/automate-cisco-sdwan-lab/vmanage"
)

// vshellConn fakes the Viptela shell: each interactive exchange is answered
// with a synthesized transcript echoing the command followed by the next
// queued output, the way RunVshell sees it on the wire.
type vshellConn struct {
	inputs  []string
	outputs []string
}

func (f *vshellConn) SendInteractive(events []*channel.SendInteractiveEvent, _ ...util.Option) (*response.Response, error) {
	var inputs []string
	for _, e := range events {
		inputs = append(inputs, e.ChannelInput)
	}
	f.inputs = append(f.inputs, strings.Join(inputs, "\n"))

	command := events[0].ChannelInput
	if len(events) > 1 {
		command = events[1].ChannelInput
	}

	var out string
	if len(f.outputs) > 0 {
		out = f.outputs[0]
		f.outputs = f.outputs[1:]
	}

	transcript := "vm:~$ " + command + "\n" + out + "\nvm:~$ exit\nvm#"

	return &response.Response{Result: transcript}, nil
}

func (f *vshellConn) SendCommand(command string, _ ...util.Option) (*response.Response, error) {
	return &response.Response{}, nil
}

func (f *vshellConn) SendConfigs([]string, ...util.Option) (*response.MultiResponse, error) {
	return response.NewMultiResponse("fake"), nil
}

func (f *vshellConn) GetPrompt() (string, error) { return "vm#", nil }
func (f *vshellConn) AcquirePriv(string) error   { return nil }
func (f *vshellConn) Close() error               { return nil }

type apiCall struct {
	method   string
	endpoint string
	body     string
}

// fakeAPI records management-plane calls and fails endpoints on demand.
type fakeAPI struct {
	calls    []apiCall
	failures map[string]int
}

func (f *fakeAPI) record(method, endpoint, body string) error {
	f.calls = append(f.calls, apiCall{method: method, endpoint: endpoint, body: body})

	for substr, left := range f.failures {
		if strings.Contains(endpoint, substr) && left > 0 {
			f.failures[substr] = left - 1
			return &failureErr{endpoint: endpoint}
		}
	}

	return nil
}

type failureErr struct{ endpoint string }

func (e *failureErr) Error() string { return "injected failure for " + e.endpoint }

func (f *fakeAPI) Do(_ context.Context, method, endpoint string, payload, _ interface{}) error {
	b, _ := json.Marshal(payload)
	return f.record(method, endpoint, string(b))
}

func (f *fakeAPI) DoRaw(_ context.Context, method, endpoint, raw string) error {
	return f.record(method, endpoint, raw)
}

func (f *fakeAPI) endpoints() []string {
	out := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		out = append(out, c.endpoint)
	}
	return out
}

func managerProfile() *config.DeviceProfile {
	return &config.DeviceProfile{
		Name:        "manager",
		Role:        config.Manager,
		MgmtIP:      "10.0.0.10",
		Username:    "admin",
		Password:    "operational",
		Org:         "sdwan-lab",
		ValidatorIP: "10.1.0.30",
		Country:     "BE",
		State:       "Brussels",
		City:        "Brussels",
		RSAKey:      "/home/admin/SDWAN.key",
		RootCert:    "/home/admin/SDWAN.pem",
		SignedCert:  "/home/admin/SDWAN_signed.pem",
		CSRFile:     "/home/admin/vmanage_csr",
	}
}

func validatorProfile() *config.DeviceProfile {
	p := managerProfile()
	p.Name = "validator"
	p.Role = config.Validator
	p.MgmtIP = "10.0.0.30"
	p.CSRFile = "/home/admin/vbond_csr"

	return p
}

func newTestOrchestrator(api *fakeAPI, managerConn *vshellConn) *Orchestrator {
	return &Orchestrator{
		timing: config.Timing{},
		getClient: func(context.Context, *config.DeviceProfile) (managerAPI, error) {
			return api, nil
		},
		sleep: func(time.Duration) {},
		connect: func(profile *config.DeviceProfile, _ string) (*device.Session, error) {
			return device.NewSession(profile.MgmtIP, profile.Name, managerConn), nil
		},
	}
}

func TestRunManager(t *testing.T) {
	api := &fakeAPI{}
	conn := &vshellConn{outputs: []string{
		"",                       // genrsa
		"",                       // req -x509
		"ROOT-CERT-PEM",          // cat root cert
		"exists",                 // csr file check
		"Signature ok",           // x509 -req signing
		"SIGNED-MANAGER-CERT",    // cat signed cert
	}}
	o := newTestOrchestrator(api, nil)

	profile := managerProfile()
	s := device.NewSession(profile.MgmtIP, profile.Name, conn)

	if err := o.RunManager(context.Background(), s, profile); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// openssl material generation happens on the shell before any API call
	if !strings.Contains(conn.inputs[0], "openssl genrsa -out /home/admin/SDWAN.key 2048") {
		t.Fatalf("wanted RSA key generation first, got %q", conn.inputs[0])
	}
	if !strings.Contains(conn.inputs[1], "-days 2000") ||
		!strings.Contains(conn.inputs[1], "/O=sdwan-lab") {
		t.Fatalf("wanted a 2000-day self-signed root with the org subject, got %q", conn.inputs[1])
	}

	wantOrder := []string{
		"/dataservice/settings/configuration/organization",
		"/dataservice/settings/configuration/device",
		"/dataservice/settings/configuration/certificate",
		"/dataservice/settings/configuration/certificate/enterpriserootca",
		"/dataservice/settings/configuration/certificate/csrproperties",
		"/dataservice/certificate/generate/csr",
		"/dataservice/certificate/install/signedCert",
	}
	got := api.endpoints()
	if len(got) != len(wantOrder) {
		t.Fatalf("wanted %d API calls, got %v", len(wantOrder), got)
	}
	for i, want := range wantOrder {
		if got[i] != want {
			t.Fatalf("call %d: wanted %s, got %s", i, want, got[i])
		}
	}

	if !strings.Contains(api.calls[3].body, "ROOT-CERT-PEM") {
		t.Fatalf("wanted the root certificate uploaded, got %q", api.calls[3].body)
	}
	if !strings.Contains(api.calls[1].body, `"port":"12346"`) {
		t.Fatalf("wanted the validator port pinned, got %q", api.calls[1].body)
	}
	if api.calls[6].body != "SIGNED-MANAGER-CERT" {
		t.Fatalf("wanted the signed certificate installed verbatim, got %q", api.calls[6].body)
	}
}

func TestTriggerCSRRetriesTransientFailure(t *testing.T) {
	api := &fakeAPI{failures: map[string]int{"generate/csr": 1}}
	o := newTestOrchestrator(api, nil)

	if err := o.triggerCSR(context.Background(), api, managerProfile()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(api.calls) != 2 {
		t.Fatalf("wanted the trigger retried once, got %d calls", len(api.calls))
	}
}

func TestRunControlPlaneValidator(t *testing.T) {
	api := &fakeAPI{}
	managerConn := &vshellConn{outputs: []string{
		"ROOT-KEY-PEM",  // cat key on manager
		"ROOT-CERT-PEM", // cat cert on manager
	}}
	o := newTestOrchestrator(api, managerConn)

	conn := &vshellConn{outputs: []string{
		"",                     // write key
		"",                     // write cert
		"Signature ok",         // x509 -req signing
		"SIGNED-VALIDATOR-CERT", // cat signed cert
	}}
	profile := validatorProfile()
	s := device.NewSession(profile.MgmtIP, profile.Name, conn)

	if err := o.RunControlPlane(context.Background(), s, managerProfile(), profile); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// root material lands on the validator before any API call
	if !strings.Contains(conn.inputs[0], "cat > /home/admin/SDWAN.key") ||
		!strings.Contains(conn.inputs[0], "ROOT-KEY-PEM") {
		t.Fatalf("wanted the root key written to the validator, got %q", conn.inputs[0])
	}
	if !strings.Contains(conn.inputs[1], "ROOT-CERT-PEM") {
		t.Fatalf("wanted the root certificate written to the validator, got %q", conn.inputs[1])
	}

	if len(api.calls) != 2 {
		t.Fatalf("wanted registration and install calls, got %v", api.endpoints())
	}

	reg := api.calls[0]
	if reg.endpoint != "/dataservice/system/device" || reg.method != "POST" {
		t.Fatalf("wanted a device registration, got %+v", reg)
	}
	for _, want := range []string{`"personality":"vbond"`, `"generateCSR":true`, `"deviceIP":"10.0.0.30"`} {
		if !strings.Contains(reg.body, want) {
			t.Fatalf("wanted %s in registration payload, got %q", want, reg.body)
		}
	}

	if !strings.Contains(conn.inputs[2], "openssl x509 -req -in /home/admin/vbond_csr") ||
		!strings.Contains(conn.inputs[2], "-CAcreateserial") {
		t.Fatalf("wanted the CSR signed against the enterprise root, got %q", conn.inputs[2])
	}

	if api.calls[1].endpoint != "/dataservice/certificate/install/signedCert" ||
		api.calls[1].body != "SIGNED-VALIDATOR-CERT" {
		t.Fatalf("wanted the signed certificate installed, got %+v", api.calls[1])
	}
}

func TestRunControlPlaneRejectsNonControlRole(t *testing.T) {
	o := newTestOrchestrator(&fakeAPI{}, &vshellConn{})

	profile := managerProfile()
	s := device.NewSession(profile.MgmtIP, profile.Name, &vshellConn{})

	if err := o.RunControlPlane(context.Background(), s, managerProfile(), profile); err == nil {
		t.Fatal("wanted a role rejection for the manager profile")
	}
}

// rawConn answers interactive exchanges with raw queued strings, for the
// IOS-XE dialogues that are not vshell transcripts.
type rawConn struct {
	inputs      []string
	interactive []string
	commands    []string
	commandOut  map[string]string
}

func (f *rawConn) SendInteractive(events []*channel.SendInteractiveEvent, _ ...util.Option) (*response.Response, error) {
	var inputs []string
	for _, e := range events {
		inputs = append(inputs, e.ChannelInput)
	}
	f.inputs = append(f.inputs, strings.Join(inputs, "\n"))

	var out string
	if len(f.interactive) > 0 {
		out = f.interactive[0]
		f.interactive = f.interactive[1:]
	}

	return &response.Response{Result: out}, nil
}

func (f *rawConn) SendCommand(command string, _ ...util.Option) (*response.Response, error) {
	f.commands = append(f.commands, command)
	return &response.Response{Result: f.commandOut[command]}, nil
}

func (f *rawConn) SendConfigs([]string, ...util.Option) (*response.MultiResponse, error) {
	return response.NewMultiResponse("fake"), nil
}

func (f *rawConn) GetPrompt() (string, error) { return "edge1#", nil }
func (f *rawConn) AcquirePriv(string) error   { return nil }
func (f *rawConn) Close() error               { return nil }

func TestRunEdge(t *testing.T) {
	const showCmd = "show sdwan control local-properties"

	conn := &rawConn{
		interactive: []string{
			"Address or name of remote host []? Password:\n1234 bytes copied in 0.5 secs",
		},
		commandOut: map[string]string{
			showCmd: "personality              vedge\nroot-ca-chain-status     Installed",
		},
	}

	o := &Orchestrator{
		timing: config.Timing{
			EdgeCertPollInterval: time.Millisecond,
			EdgeCertPollTimeout:  5 * time.Millisecond,
		},
		sleep: func(time.Duration) {},
	}

	edge := &config.DeviceProfile{
		Name:     "edge1",
		Role:     config.Edge,
		MgmtIP:   "10.0.0.51",
		RootCert: "SDWAN.pem",
	}
	validator := validatorProfile()
	s := device.NewSession(edge.MgmtIP, edge.Name, conn)

	license := vmanage.PaygLicense{ChassisID: "CHASSIS-A", Token: "aaaa1111"}
	if err := o.RunEdge(s, validator, edge, license); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(conn.inputs) != 1 {
		t.Fatalf("wanted the SCP dialogue in a single interactive exchange, got %d", len(conn.inputs))
	}
	if !strings.Contains(conn.inputs[0], "copy scp:") || !strings.Contains(conn.inputs[0], validator.ValidatorIP) {
		t.Fatalf("wanted the root certificate pulled from the validator, got %q", conn.inputs[0])
	}
	if !strings.Contains(conn.inputs[0], validator.Password) {
		t.Fatalf("wanted the validator password inside the SCP exchange, got %q", conn.inputs[0])
	}

	if conn.commands[0] != "delete /force bootflash:/sdwan/SDWAN.pem" {
		t.Fatalf("wanted a stale destination cleanup before the copy, got %q", conn.commands[0])
	}

	wantInstall := "request platform software sdwan root-cert-chain install bootflash:sdwan/SDWAN.pem"
	if conn.commands[1] != wantInstall {
		t.Fatalf("wanted %q, got %q", wantInstall, conn.commands[1])
	}

	last := conn.commands[len(conn.commands)-1]
	if !strings.Contains(last, "vedge_cloud activate chassis-number CHASSIS-A token aaaa1111") {
		t.Fatalf("wanted the PAYG activation command, got %q", last)
	}
}
