// Copyright 2020 Nokia
// Licensed under the BSD 3-Clause License.
// SPDX-License-Identifier: BSD-3-Clause

package vmanage

import (
	"context"
	"io"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/sdargoeuves/automate-cisco-sdwan-lab/utils"
)

// DeviceStatus is one row of the manager's device listing. The mixed
// camelCase and kebab-case field names mirror the API exactly, including the
// chasisNumber spelling.
type DeviceStatus struct {
	DeviceType            string `json:"deviceType"`
	SiteName              string `json:"site-name"`
	Hostname              string `json:"host-name"`
	DeviceLock            string `json:"device-lock"`
	ManagedBy             string `json:"managed-by"`
	ConfigStatusMessage   string `json:"configStatusMessage"`
	SystemIP              string `json:"system-ip"`
	ConfigOperationMode   string `json:"configOperationMode"`
	CertInstallStatus     string `json:"certInstallStatus"`
	UUID                  string `json:"uuid"`
	SerialNumber          string `json:"serialNumber"`
	ChassisNumber         string `json:"chasisNumber"`
	DeviceState           string `json:"deviceState"`
	DeviceModel           string `json:"deviceModel"`
	Validity              string `json:"validity"`
	VedgeCertificateState string `json:"vedgeCertificateState"`
}

// OutOfSync reports whether the manager considers this device's configuration
// out of sync with its template or CLI state.
func (d DeviceStatus) OutOfSync() bool {
	return strings.Contains(strings.ToLower(strings.TrimSpace(d.ConfigStatusMessage)), "out of sync")
}

type deviceListResponse struct {
	Data []DeviceStatus `json:"data"`
}

// Controllers lists the control components (manager, validator, controller)
// registered on the management plane.
func (c *Client) Controllers(ctx context.Context) ([]DeviceStatus, error) {
	var resp deviceListResponse
	if err := c.Do(ctx, "GET", "/dataservice/system/device/controllers", nil, &resp); err != nil {
		return nil, err
	}

	if len(resp.Data) == 0 {
		log.Info("no controller entries returned")
	}

	return resp.Data, nil
}

// VEdges lists the WAN edge inventory, including unclaimed PAYG entries.
func (c *Client) VEdges(ctx context.Context) ([]DeviceStatus, error) {
	var resp deviceListResponse
	if err := c.Do(ctx, "GET", "/dataservice/system/device/vedges", nil, &resp); err != nil {
		return nil, err
	}

	return resp.Data, nil
}

// OutOfSyncControllers returns the subset of control components whose config
// status message flags them out of sync.
func (c *Client) OutOfSyncControllers(ctx context.Context) ([]DeviceStatus, error) {
	items, err := c.Controllers(ctx)
	if err != nil {
		return nil, err
	}

	var outOfSync []DeviceStatus
	for _, item := range items {
		if item.OutOfSync() {
			outOfSync = append(outOfSync, item)
		}
	}

	return outOfSync, nil
}

var deviceTypeLabels = map[string]string{
	"vmanage": "vManage",
	"vbond":   "vBond",
	"vsmart":  "vSmart",
	"vedge":   "WAN Edge",
}

var modeLabels = map[string]string{
	"cli":     "CLI",
	"vmanage": "vManage",
}

func label(m map[string]string, v string) string {
	if l, ok := m[v]; ok {
		return l
	}
	return v
}

// RenderControllerStatus writes the control-component table the way the
// manager GUI presents it under Configuration > Devices.
func RenderControllerStatus(w io.Writer, items []DeviceStatus) {
	header := []string{
		"Controller Type", "Site Name", "Hostname", "Config Locked", "Managed By",
		"Device Status", "System-ip", "Mode", "Certificate Status",
	}

	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			label(deviceTypeLabels, item.DeviceType),
			item.SiteName,
			item.Hostname,
			item.DeviceLock,
			item.ManagedBy,
			item.ConfigStatusMessage,
			item.SystemIP,
			label(modeLabels, item.ConfigOperationMode),
			item.CertInstallStatus,
		})
	}

	utils.RenderTable(w, header, rows)
}

// RenderVEdgeStatus writes the WAN edge inventory table.
func RenderVEdgeStatus(w io.Writer, items []DeviceStatus) {
	header := []string{
		"Chassis Number", "Serial Number", "Hostname", "System-ip",
		"Device State", "Validity", "Certificate State",
	}

	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			item.ChassisNumber,
			item.SerialNumber,
			item.Hostname,
			item.SystemIP,
			item.DeviceState,
			item.Validity,
			item.VedgeCertificateState,
		})
	}

	utils.RenderTable(w, header, rows)
}
