// Copyright 2020 Nokia
// Licensed under the BSD 3-Clause License.
// SPDX-License-Identifier: BSD-3-Clause

package vmanage

import (
	"context"
	"regexp"

	log "github.com/sirupsen/logrus"
)

// PaygLicense is one pay-as-you-go activation credential. Each license is
// consumed by exactly one edge activation; nothing is persisted between runs.
type PaygLicense struct {
	ChassisID string
	Token     string
}

// paygActivityRe extracts "- <chassis>, <token>" pairs from the free-text
// activityList field of the generate-payg response.
var paygActivityRe = regexp.MustCompile(`-\s+([A-Za-z0-9][A-Za-z0-9._-]*)\s*,\s*([A-Za-z0-9]+)`)

// ParsePaygActivity pulls the chassis/token pairs out of an activityList
// string, preserving their order. Malformed or empty input yields an empty
// list rather than an error; the caller decides whether zero licenses is
// fatal.
func ParsePaygActivity(activity string) []PaygLicense {
	matches := paygActivityRe.FindAllStringSubmatch(activity, -1)

	licenses := make([]PaygLicense, 0, len(matches))
	for _, m := range matches {
		licenses = append(licenses, PaygLicense{ChassisID: m[1], Token: m[2]})
	}

	return licenses
}

type paygRequest struct {
	NumPaygDevices int    `json:"numPaygDevices"`
	Validity       string `json:"validity"`
	Organization   string `json:"organization"`
}

type paygResponse struct {
	VedgeListAddMsg    string `json:"vedgeListAddMsg"`
	VedgeListAddStatus string `json:"vedgeListAddStatus"`
	ID                 string `json:"id"`
	ActivityList       string `json:"activityList"`
}

// GeneratePaygLicenses asks the manager to mint count PAYG edge licenses for
// the organization and returns the resulting chassis/token pairs.
func GeneratePaygLicenses(ctx context.Context, c *Client, count int, org string) ([]PaygLicense, error) {
	req := paygRequest{
		NumPaygDevices: count,
		Validity:       "valid",
		Organization:   org,
	}

	var resp paygResponse
	if err := c.Do(ctx, "POST", "/dataservice/system/device/generate-payg", req, &resp); err != nil {
		return nil, err
	}

	log.Debugf("generate-payg: %s", resp.VedgeListAddMsg)

	licenses := ParsePaygActivity(resp.ActivityList)
	if len(licenses) == 0 {
		log.Warnf("generate-payg returned no usable licenses: %q", resp.ActivityList)
	} else {
		log.Infof("generated %d PAYG licenses", len(licenses))
	}

	return licenses, nil
}
