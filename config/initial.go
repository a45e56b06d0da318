// Copyright 2020 Nokia
// Licensed under the BSD 3-Clause License.
// SPDX-License-Identifier: BSD-3-Clause

package config

import "fmt"

// Initial configuration payloads pushed on first boot. Line order is
// significant; the push engine sends them verbatim.

func buildManagerInitialConfig(s *Settings, validatorIP string, d *rawDevice) string {
	return fmt.Sprintf(`
system
aaa
user admin
password %s
site-id %d
organization-name %s
system-ip %s
vbond %s
vpn 0
ip route 0.0.0.0/0 %s
interface %s
ip address %s/%d
description "%s"
no shut
tunnel-interface
allow-service all
`,
		s.Password, d.SiteID, s.Org, d.SystemIP, validatorIP, d.RouteGW,
		d.InterfaceName, d.InterfaceIP, d.InterfacePrefix, d.InterfaceDesc)
}

// The validator brings its tunnel interface up in two stages: the interface is
// first committed without tunnel-interface, then reconfigured with ipsec
// encapsulation. The embedded commit line is intentional.
func buildValidatorInitialConfig(s *Settings, validatorIP string, d *rawDevice) string {
	return fmt.Sprintf(`
system
aaa
user admin
password %s
site-id %d
organization-name %s
system-ip %s
vbond %s local
vpn 0
ip route 0.0.0.0/0 %s
interface %s
ip address %s/%d
description "%s"
no shut
no tunnel-interface
commit
tunnel-interface
encapsulation ipsec
allow-service all
`,
		s.Password, d.SiteID, s.Org, d.SystemIP, validatorIP, d.RouteGW,
		d.InterfaceName, d.InterfaceIP, d.InterfacePrefix, d.InterfaceDesc)
}

func buildControllerInitialConfig(s *Settings, validatorIP string, d *rawDevice) string {
	return fmt.Sprintf(`
system
aaa
user admin
password %s
site-id %d
organization-name %s
system-ip %s
vbond %s
vpn 0
ip route 0.0.0.0/0 %s
interface %s
ip address %s/%d
description "%s"
no shut
tunnel-interface
allow-service all
`,
		s.Password, d.SiteID, s.Org, d.SystemIP, validatorIP, d.RouteGW,
		d.InterfaceName, d.InterfaceIP, d.InterfacePrefix, d.InterfaceDesc)
}

func buildEdgeInitialConfig(s *Settings, validatorIP string, d *rawDevice) string {
	return fmt.Sprintf(`
no ip domain lookup
lldp run
username admin password %s

ip route 0.0.0.0 0.0.0.0 %s
int %s
 no shutdown
 ip address %s %s
 description "%s"
exit
int %s
 no shutdown
 ip address %s %s
 description "%s"
exit

system
 system-ip %s
 site-id %d
 organization-name %s
 vbond %s
exit

interface Tunnel1
 no shutdown
 ip unnumbered %s
 tunnel source %s
 tunnel mode sdwan

interface Tunnel2
 ip unnumbered %s
 tunnel source %s
 tunnel mode sdwan
exit

vrf definition %d
 rd 1:%d
 address-family ipv4
  route-target export 1:%d
  route-target import 1:%d
 exit-address-family
!
 address-family ipv6
 exit-address-family
!

sdwan
interface %s
 tunnel-interface
  encapsulation ipsec
  allow-service all
  color public-internet
 exit
interface %s
 tunnel-interface
  encapsulation ipsec
  allow-service all
  color mpls restrict
  max-control-connections 0
 exit
exit
omp
 address-family ipv4
  advertise bgp
  advertise connected
  advertise ospf external
  advertise static
exit
commit
`,
		s.Password,
		d.InetGW,
		d.InetInterface, d.InetIP, d.InetMask, d.InetDesc,
		d.MplsInterface, d.MplsIP, d.MplsMask, d.MplsDesc,
		d.SystemIP, d.SiteID, s.Org, validatorIP,
		d.InetInterface, d.InetInterface,
		d.MplsInterface, d.MplsInterface,
		d.VrfID, d.VrfID, d.VrfID, d.VrfID,
		d.InetInterface, d.MplsInterface)
}

func buildEdgeExtraRoutingConfig(d *rawDevice) string {
	if d.LanInterface == "" {
		return ""
	}

	cfg := fmt.Sprintf(`
router ospf %d vrf %d
 redistribute omp
 router-id %s

interface %s
 vrf forwarding %d
 ip address %s %s
 description "%s"
 ip ospf network point-to-point
 ip ospf %d area %s
 no shut

router bgp %d
 bgp log-neighbor-changes
 neighbor %s remote-as %d
 neighbor %s description mpls0
 neighbor %s remote-as %d
 neighbor %s description inet0
 !
 address-family ipv4
  neighbor %s activate
  neighbor %s activate
 exit-address-family
!
`,
		d.OspfInstance, d.VrfID, d.SystemIP,
		d.LanInterface, d.VrfID, d.LanIP, d.LanMask, d.LanDesc,
		d.OspfInstance, d.OspfArea,
		d.BgpLocalAS,
		d.MplsGW, d.BgpMplsAS, d.MplsGW,
		d.InetGW, d.BgpInetAS, d.InetGW,
		d.MplsGW, d.InetGW)

	if d.Lan2Interface != "" && d.Lan2IP != "" && d.Lan2Mask != "" {
		cfg += fmt.Sprintf(`
interface %s
 vrf forwarding %d
 ip address %s %s
 description "%s"
 ip ospf network point-to-point
 ip ospf %d area %s
 no shut
`,
			d.Lan2Interface, d.VrfID, d.Lan2IP, d.Lan2Mask, d.Lan2Desc,
			d.OspfInstance, d.OspfArea)
	}

	return cfg
}
