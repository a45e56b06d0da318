// Copyright 2020 Nokia
// Licensed under the BSD 3-Clause License.
// SPDX-License-Identifier: BSD-3-Clause

// Package config loads the sdwan_variables.yml file and turns it into immutable
// per-device profiles plus the shared timing knobs of the automation.
package config

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/a8m/envsubst"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

// DefaultVariablesFile is looked up in the current working directory when no
// --vars flag is given.
const DefaultVariablesFile = "sdwan_variables.yml"

// DeviceProfile is the immutable per-device configuration. One instance exists
// per device; it is shared by reference across workflow calls and never mutated
// after Load returns.
type DeviceProfile struct {
	Name string
	Role Role

	MgmtIP          string
	Port            string
	Username        string
	Password        string
	DefaultPassword string

	Org         string
	ValidatorIP string
	SystemIP    string

	// CSR subject fields, only meaningful for the Manager.
	Country string
	State   string
	City    string

	RSAKey     string
	RootCert   string
	SignedCert string
	CSRFile    string

	APIReadyTimeout time.Duration
	CSRFileTimeout  time.Duration

	InitialConfig string
	// ExtraRoutingConfig carries the optional LAN/OSPF/BGP payload for edges.
	ExtraRoutingConfig string
}

// Addr returns the host:port of the device management endpoint.
func (p *DeviceProfile) Addr() string {
	return fmt.Sprintf("%s:%s", p.MgmtIP, p.Port)
}

// Timing groups the wait and retry knobs of the automation. All values have
// working defaults and can be overridden from the variables file.
type Timing struct {
	WaitBeforeValidator      time.Duration
	WaitBeforeController     time.Duration
	WaitCSRGeneration        time.Duration
	WaitBeforeActivatingEdge time.Duration
	WaitAfterPaygGeneration  time.Duration

	EdgeCertPollInterval time.Duration
	EdgeCertPollTimeout  time.Duration

	CommitReadTimeout    time.Duration
	CommitRetryAttempts  int
	CommitRetryWait      time.Duration
	IncreasedReadTimeout time.Duration
}

// Settings is the fully resolved configuration of one automation run.
type Settings struct {
	Org             string
	Username        string
	DefaultPassword string
	Password        string
	Port            string

	Timing Timing

	Manager    *DeviceProfile
	Validator  *DeviceProfile
	Controller *DeviceProfile
	Edges      map[string]*DeviceProfile

	// EdgeNames holds the edge profile names in a stable order.
	EdgeNames []string
}

// raw yaml schema of sdwan_variables.yml.
type rawVariables struct {
	Shared struct {
		Org             string `yaml:"org"`
		Username        string `yaml:"username"`
		DefaultPassword string `yaml:"default_password"`
		UpdatedPassword string `yaml:"updated_password"`
		Port            string `yaml:"port"`
	} `yaml:"shared"`
	Timing struct {
		WaitBeforeAutomatingValidator  *int `yaml:"wait_before_automating_validator"`
		WaitBeforeAutomatingController *int `yaml:"wait_before_automating_controller"`
		WaitCSRGeneration              *int `yaml:"wait_csr_generation"`
		WaitBeforeActivatingEdge       *int `yaml:"wait_before_activating_edge"`
		WaitAfterGeneratingPayg        *int `yaml:"wait_after_generating_payg_license"`
		EdgeCertPollIntervalSeconds    *int `yaml:"edge_cert_poll_interval_seconds"`
		EdgeCertPollTimeoutSeconds     *int `yaml:"edge_cert_poll_timeout_seconds"`
		CommitReadTimeout              *int `yaml:"commit_read_timeout"`
		CommitRetryAttempts            *int `yaml:"commit_retry_attempts"`
		CommitRetryWaitSeconds         *int `yaml:"commit_retry_wait_seconds"`
		IncreasedReadTimeout           *int `yaml:"increased_read_timeout"`
	} `yaml:"timing"`
	Certificates struct {
		RSAKey     string `yaml:"rsa_key"`
		RootCert   string `yaml:"root_cert"`
		SignedCert string `yaml:"signed_cert"`
	} `yaml:"certificates"`
	Devices struct {
		Manager    rawDevice            `yaml:"manager"`
		Validator  rawDevice            `yaml:"validator"`
		Controller rawDevice            `yaml:"controller"`
		Edges      map[string]rawDevice `yaml:"edges"`
	} `yaml:"devices"`
}

type rawDevice struct {
	MgmtIP          string `yaml:"mgmt_ip"`
	SystemIP        string `yaml:"system_ip"`
	SiteID          int    `yaml:"site_id"`
	RouteGW         string `yaml:"route_gw"`
	InterfaceName   string `yaml:"interface_name"`
	InterfaceIP     string `yaml:"interface_ip"`
	InterfacePrefix int    `yaml:"interface_prefix"`
	InterfaceDesc   string `yaml:"interface_desc"`

	Country string `yaml:"country"`
	State   string `yaml:"state"`
	City    string `yaml:"city"`

	CSRFile                  string `yaml:"csr_file"`
	APIReadyTimeoutMinutes   *int   `yaml:"api_ready_timeout_minutes"`
	CSRFileTimeoutMinutes    *int   `yaml:"csr_file_timeout_minutes"`
	SkipInitialConfiguration bool   `yaml:"skip_initial_configuration"`

	// edge-only fields
	VrfID         int    `yaml:"vrf_id"`
	InetIP        string `yaml:"inet_ip"`
	InetMask      string `yaml:"inet_mask"`
	InetGW        string `yaml:"inet_gw"`
	InetDesc      string `yaml:"inet_desc"`
	InetInterface string `yaml:"inet_interface"`
	MplsIP        string `yaml:"mpls_ip"`
	MplsMask      string `yaml:"mpls_mask"`
	MplsGW        string `yaml:"mpls_gw"`
	MplsDesc      string `yaml:"mpls_desc"`
	MplsInterface string `yaml:"mpls_interface"`

	OspfInstance int    `yaml:"ospf_instance"`
	OspfArea     string `yaml:"ospf_area"`
	BgpLocalAS   int    `yaml:"bgp_local_as"`
	BgpMplsAS    int    `yaml:"bgp_mpls_as"`
	BgpInetAS    int    `yaml:"bgp_inet_as"`

	LanInterface string `yaml:"lan_interface"`
	LanIP        string `yaml:"lan_ip"`
	LanMask      string `yaml:"lan_mask"`
	LanDesc      string `yaml:"lan_desc"`

	Lan2Interface string `yaml:"lan2_interface"`
	Lan2IP        string `yaml:"lan2_ip"`
	Lan2Mask      string `yaml:"lan2_mask"`
	Lan2Desc      string `yaml:"lan2_desc"`
}

// Load reads the variables file, expands environment variables in it and
// resolves the device profiles. A .env file next to the variables file is
// loaded first when present, so credentials can be kept out of the YAML.
func Load(path string) (*Settings, error) {
	if err := godotenv.Load(); err == nil {
		log.Debug("loaded environment variables from .env")
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read variables file %s: %w", path, err)
	}

	b, err = envsubst.Bytes(b)
	if err != nil {
		return nil, fmt.Errorf("failed to expand environment variables in %s: %w", path, err)
	}

	var raw rawVariables
	if err := yaml.UnmarshalStrict(b, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return resolve(&raw, path)
}

func resolve(raw *rawVariables, path string) (*Settings, error) {
	s := &Settings{
		Org:             defaultStr(raw.Shared.Org, "ipf-netlab"),
		Username:        defaultStr(raw.Shared.Username, "admin"),
		DefaultPassword: defaultStr(raw.Shared.DefaultPassword, "admin"),
		Password:        defaultStr(raw.Shared.UpdatedPassword, "admin@123"),
		Port:            defaultStr(raw.Shared.Port, "443"),
		Timing: Timing{
			WaitBeforeValidator:      seconds(raw.Timing.WaitBeforeAutomatingValidator, 60),
			WaitBeforeController:     seconds(raw.Timing.WaitBeforeAutomatingController, 120),
			WaitCSRGeneration:        seconds(raw.Timing.WaitCSRGeneration, 30),
			WaitBeforeActivatingEdge: seconds(raw.Timing.WaitBeforeActivatingEdge, 60),
			WaitAfterPaygGeneration:  seconds(raw.Timing.WaitAfterGeneratingPayg, 30),
			EdgeCertPollInterval:     seconds(raw.Timing.EdgeCertPollIntervalSeconds, 10),
			EdgeCertPollTimeout:      seconds(raw.Timing.EdgeCertPollTimeoutSeconds, 180),
			CommitReadTimeout:        seconds(raw.Timing.CommitReadTimeout, 120),
			CommitRetryAttempts:      defaultInt(raw.Timing.CommitRetryAttempts, 2),
			CommitRetryWait:          seconds(raw.Timing.CommitRetryWaitSeconds, 30),
			IncreasedReadTimeout:     seconds(raw.Timing.IncreasedReadTimeout, 30),
		},
	}

	rsaKey := defaultStr(raw.Certificates.RSAKey, "SDWAN.key")
	rootCert := defaultStr(raw.Certificates.RootCert, "SDWAN.pem")
	signedCert := defaultStr(raw.Certificates.SignedCert, "NewCertificate.crt")

	if raw.Devices.Manager.MgmtIP == "" {
		return nil, fmt.Errorf("missing devices.manager.mgmt_ip in %s", path)
	}
	if raw.Devices.Validator.MgmtIP == "" {
		return nil, fmt.Errorf("missing devices.validator.mgmt_ip in %s", path)
	}
	if raw.Devices.Controller.MgmtIP == "" {
		return nil, fmt.Errorf("missing devices.controller.mgmt_ip in %s", path)
	}

	// the validator interface IP is the vbond address every device points at
	validatorIP := raw.Devices.Validator.InterfaceIP
	if validatorIP == "" {
		return nil, fmt.Errorf("missing devices.validator.interface_ip in %s", path)
	}

	base := func(name string, role Role, d *rawDevice) *DeviceProfile {
		return &DeviceProfile{
			Name:            name,
			Role:            role,
			MgmtIP:          d.MgmtIP,
			Port:            s.Port,
			Username:        s.Username,
			Password:        s.Password,
			DefaultPassword: s.DefaultPassword,
			Org:             s.Org,
			ValidatorIP:     validatorIP,
			SystemIP:        d.SystemIP,
			RSAKey:          rsaKey,
			RootCert:        rootCert,
			SignedCert:      signedCert,
			APIReadyTimeout: minutes(d.APIReadyTimeoutMinutes, 15),
			CSRFileTimeout:  minutes(d.CSRFileTimeoutMinutes, 1),
		}
	}

	m := base("manager", Manager, &raw.Devices.Manager)
	m.Country = defaultStr(raw.Devices.Manager.Country, "FI")
	m.State = defaultStr(raw.Devices.Manager.State, "Finland")
	m.City = defaultStr(raw.Devices.Manager.City, "Helsinki")
	m.CSRFile = defaultStr(raw.Devices.Manager.CSRFile, "vmanage_csr")
	if !raw.Devices.Manager.SkipInitialConfiguration {
		m.InitialConfig = buildManagerInitialConfig(s, validatorIP, &raw.Devices.Manager)
	}
	s.Manager = m

	v := base("validator", Validator, &raw.Devices.Validator)
	v.CSRFile = defaultStr(raw.Devices.Validator.CSRFile, "vbond_csr")
	if !raw.Devices.Validator.SkipInitialConfiguration {
		v.InitialConfig = buildValidatorInitialConfig(s, validatorIP, &raw.Devices.Validator)
	}
	s.Validator = v

	c := base("controller", Controller, &raw.Devices.Controller)
	c.CSRFile = defaultStr(raw.Devices.Controller.CSRFile, "vsmart_csr")
	if !raw.Devices.Controller.SkipInitialConfiguration {
		c.InitialConfig = buildControllerInitialConfig(s, validatorIP, &raw.Devices.Controller)
	}
	s.Controller = c

	if len(raw.Devices.Edges) == 0 {
		return nil, fmt.Errorf("missing edge definitions in %s", path)
	}

	s.Edges = make(map[string]*DeviceProfile, len(raw.Devices.Edges))
	for name := range raw.Devices.Edges {
		s.EdgeNames = append(s.EdgeNames, name)
	}
	sort.Strings(s.EdgeNames)

	for _, name := range s.EdgeNames {
		d := raw.Devices.Edges[name]
		e := base(name, Edge, &d)
		if !d.SkipInitialConfiguration {
			e.InitialConfig = buildEdgeInitialConfig(s, validatorIP, &d)
		}
		e.ExtraRoutingConfig = buildEdgeExtraRoutingConfig(&d)
		s.Edges[name] = e
	}

	return s, nil
}

func defaultStr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func defaultInt(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

func seconds(v *int, def int) time.Duration {
	return time.Duration(defaultInt(v, def)) * time.Second
}

func minutes(v *int, def int) time.Duration {
	return time.Duration(defaultInt(v, def)) * time.Minute
}
