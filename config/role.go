// Copyright 2020 Nokia
// Licensed under the BSD 3-Clause License.
// SPDX-License-Identifier: BSD-3-Clause

package config

import "fmt"

// Role is the closed set of SD-WAN device roles handled by the automation.
type Role int

const (
	Manager Role = iota
	Validator
	Controller
	Edge
)

func (r Role) String() string {
	switch r {
	case Manager:
		return "manager"
	case Validator:
		return "validator"
	case Controller:
		return "controller"
	case Edge:
		return "edge"
	}
	return fmt.Sprintf("role(%d)", int(r))
}

// Personality returns the vManage API personality string for the role.
func (r Role) Personality() string {
	switch r {
	case Manager:
		return "vmanage"
	case Validator:
		return "vbond"
	case Controller:
		return "vsmart"
	case Edge:
		return "vedge"
	}
	return ""
}

// Platform returns the scrapligo platform name used to drive the role's CLI.
// Control-plane components run the Viptela shell; edges run IOS-XE.
func (r Role) Platform() string {
	if r == Edge {
		return "cisco_iosxe"
	}
	return "cisco_viptela"
}
