// Copyright 2020 Nokia
// Licensed under the BSD 3-Clause License.
// SPDX-License-Identifier: BSD-3-Clause

// Package vmanage implements an authenticated client for the SD-WAN Manager
// REST API. Authentication is the form-based j_security_check login followed
// by an XSRF token fetch; the token rides along as a header on every mutating
// call. Clients are cached per manager by the Store so the expensive
// login-and-wait dance happens once per process.
package vmanage

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	errs "github.com/sdargoeuves/automate-cisco-sdwan-lab/errors"
)

// tokenLengthLimit separates a real XSRF token from an HTML login or error
// page returned with a 200 status.
const tokenLengthLimit = 500

// Client is one authenticated REST session against a Manager instance. It is
// not safe for concurrent use; the Store hands out at most one per manager to
// a sequential workflow.
type Client struct {
	BaseURL  string
	Username string

	password string
	token    string
	http     *http.Client
}

// NewClient builds an unauthenticated client for the manager at host:port.
// Call Login before issuing API calls. Lab managers run with self-signed
// certificates, so server verification is disabled.
func NewClient(host, port, username, password string) *Client {
	jar, _ := cookiejar.New(nil)

	return &Client{
		BaseURL:  fmt.Sprintf("https://%s:%s", host, port),
		Username: username,
		password: password,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Jar:     jar,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, // nolint: gosec
			},
		},
	}
}

// ValidToken reports whether text looks like a usable XSRF token rather than
// an HTML page the manager serves while its API is still starting up.
func ValidToken(text string) bool {
	return text != "" &&
		!strings.Contains(strings.ToLower(text), "<html>") &&
		len(text) < tokenLengthLimit
}

// Login authenticates the session and fetches the XSRF token. The manager
// answers a failed form login with a 200 and the login page body, so the
// token check is the real success criterion.
func (c *Client) Login(ctx context.Context) error {
	form := url.Values{
		"j_username": {c.Username},
		"j_password": {c.password},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.BaseURL+"/j_security_check", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return &errs.CallError{Endpoint: "/j_security_check", Body: err.Error()}
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK || strings.Contains(strings.ToLower(string(body)), "<html>") {
		return &errs.CallError{
			Endpoint: "/j_security_check",
			Status:   resp.StatusCode,
			Body:     "authentication rejected",
		}
	}

	token, err := c.fetchToken(ctx)
	if err != nil {
		return err
	}
	c.token = token

	log.Debugf("logged in to %s as %s", c.BaseURL, c.Username)

	return nil
}

func (c *Client) fetchToken(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.BaseURL+"/dataservice/client/token", nil)
	if err != nil {
		return "", err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &errs.CallError{Endpoint: "/dataservice/client/token", Body: err.Error()}
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	token := strings.TrimSpace(string(body))
	if resp.StatusCode != http.StatusOK || !ValidToken(token) {
		return "", &errs.CallError{
			Endpoint: "/dataservice/client/token",
			Status:   resp.StatusCode,
			Body:     fmt.Sprintf("no usable token (body length %d)", len(token)),
		}
	}

	return token, nil
}

// Do performs a JSON API call. payload is marshalled as the request body when
// non-nil; the response body is decoded into out when out is non-nil. On a
// 401 or 403 the session is re-established once and the call retried, so call
// sites never manage authentication themselves.
func (c *Client) Do(ctx context.Context, method, endpoint string, payload, out interface{}) error {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload for %s: %w", endpoint, err)
		}
	}

	respBody, err := c.doWithReauth(ctx, method, endpoint, body, "application/json")
	if err != nil {
		return err
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to decode %s response: %w", endpoint, err)
		}
	}

	return nil
}

// DoRaw performs an API call with a verbatim request body, used for the
// signed-certificate install endpoint which takes PEM text rather than JSON.
func (c *Client) DoRaw(ctx context.Context, method, endpoint, raw string) error {
	if raw == "" {
		return fmt.Errorf("%w: raw body for %s is empty", errs.ErrIncorrectInput, endpoint)
	}

	_, err := c.doWithReauth(ctx, method, endpoint, []byte(raw), "application/json")

	return err
}

func (c *Client) doWithReauth(ctx context.Context, method, endpoint string,
	body []byte, contentType string,
) ([]byte, error) {
	respBody, status, err := c.do(ctx, method, endpoint, body, contentType)
	if err != nil {
		return nil, err
	}

	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		log.Debugf("%s returned %d, re-authenticating to %s once", endpoint, status, c.BaseURL)

		if err := c.Login(ctx); err != nil {
			return nil, err
		}

		respBody, status, err = c.do(ctx, method, endpoint, body, contentType)
		if err != nil {
			return nil, err
		}
	}

	if status < 200 || status > 299 {
		return nil, &errs.CallError{Endpoint: endpoint, Status: status, Body: string(respBody)}
	}

	return respBody, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string,
	body []byte, contentType string,
) ([]byte, int, error) {
	u := c.BaseURL + NormalizeEndpoint(endpoint)

	log.Debugf("API %s %s", method, u)

	req, err := http.NewRequestWithContext(ctx, method, u, bytes.NewReader(body))
	if err != nil {
		return nil, 0, err
	}

	req.Header.Set("Content-Type", contentType)
	if method != http.MethodGet {
		req.Header.Set("X-XSRF-TOKEN", c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, &errs.CallError{Endpoint: endpoint, Body: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, &errs.CallError{Endpoint: endpoint, Body: err.Error()}
	}

	log.Debugf("API %s %s: %d", method, endpoint, resp.StatusCode)

	return respBody, resp.StatusCode, nil
}

// Logout ends the manager session. Best effort; a failure only matters for
// session accounting on the manager side.
func (c *Client) Logout(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/logout", nil)
	if err != nil {
		return
	}

	resp, err := c.http.Do(req)
	if err != nil {
		log.Debugf("logout from %s failed: %v", c.BaseURL, err)
		return
	}
	resp.Body.Close()

	c.token = ""
}

// NormalizeEndpoint accepts endpoints with or without the /dataservice prefix
// and returns the absolute API path.
func NormalizeEndpoint(endpoint string) string {
	p := strings.TrimSpace(endpoint)
	p = strings.TrimPrefix(p, "/dataservice")
	p = "/" + strings.Trim(p, "/")

	return "/dataservice" + p
}
