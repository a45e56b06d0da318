// Copyright 2020 Nokia
// Licensed under the BSD 3-Clause License.
// SPDX-License-Identifier: BSD-3-Clause

package vmanage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	log "github.com/sirupsen/logrus"

	"github.com/sdargoeuves/automate-cisco-sdwan-lab/config"
	errs "github.com/sdargoeuves/automate-cisco-sdwan-lab/errors"
)

// Store caches one authenticated Client per manager identity. Creating a
// client can block for the whole API readiness window, so every call site
// that needs the manager goes through the store instead of logging in itself.
type Store struct {
	mu      sync.Mutex
	clients map[string]*Client
}

func NewStore() *Store {
	return &Store{clients: map[string]*Client{}}
}

func cacheKey(profile *config.DeviceProfile) string {
	return fmt.Sprintf("%s@%s:%s", profile.Username, profile.MgmtIP, profile.Port)
}

// Get returns the cached client for the manager described by profile,
// creating and authenticating one when absent. Login is retried every 10s
// until the profile's API readiness window elapses; exhaustion yields an
// *errors.APINotReadyError.
func (s *Store) Get(ctx context.Context, profile *config.DeviceProfile) (*Client, error) {
	key := cacheKey(profile)

	s.mu.Lock()
	c, ok := s.clients[key]
	s.mu.Unlock()

	if ok {
		return c, nil
	}

	c, err := s.create(ctx, profile)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.clients[key] = c
	s.mu.Unlock()

	return c, nil
}

func (s *Store) create(ctx context.Context, profile *config.DeviceProfile) (*Client, error) {
	c := NewClient(profile.MgmtIP, profile.Port, profile.Username, profile.Password)

	retryPolicy := backoff.NewExponentialBackOff()
	retryPolicy.InitialInterval = 10 * time.Second
	retryPolicy.MaxInterval = 10 * time.Second
	retryPolicy.Multiplier = 1
	retryPolicy.MaxElapsedTime = profile.APIReadyTimeout

	attempt := 0
	retryFn := func() error {
		attempt++
		log.Debugf("login attempt %d to %s", attempt, c.BaseURL)

		if err := c.Login(ctx); err != nil {
			log.Infof("manager API not ready yet (attempt %d); retrying in 10s", attempt)
			return err
		}
		return nil
	}

	if err := backoff.Retry(retryFn, backoff.WithContext(retryPolicy, ctx)); err != nil {
		log.Errorf("manager login to %s failed: %v", c.BaseURL, err)
		return nil, &errs.APINotReadyError{Host: profile.MgmtIP, Wait: profile.APIReadyTimeout}
	}

	return c, nil
}

// Close logs out and clears every cached client.
func (s *Store) Close(ctx context.Context) {
	s.mu.Lock()
	clients := make([]*Client, 0, len(s.clients))
	for _, c := range s.clients {
		clients = append(clients, c)
	}
	s.clients = map[string]*Client{}
	s.mu.Unlock()

	for _, c := range clients {
		c.Logout(ctx)
	}
}
