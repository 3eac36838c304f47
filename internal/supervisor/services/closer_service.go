// Gathermap - Group Location Sharing Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gathermap

package services

import (
	"context"

	"github.com/tomtom215/gathermap/internal/logging"
)

// Closer releases one resource at shutdown.
type Closer struct {
	Name  string
	Close func() error
}

// CloserService holds resources that outlive a single request (cache
// sweepers, the badger geocode store) and releases them in reverse order
// when the tree stops. It has no work of its own, so suture never restarts
// it.
type CloserService struct {
	closers []Closer
	name    string
}

// NewCloserService creates the service. Closers run last to first.
func NewCloserService(closers ...Closer) *CloserService {
	return &CloserService{closers: closers, name: "resource-closer"}
}

// Add registers another resource.
func (c *CloserService) Add(name string, fn func() error) {
	c.closers = append(c.closers, Closer{Name: name, Close: fn})
}

// Serve implements suture.Service. It blocks until ctx is done, closes
// every resource and returns ctx.Err().
func (c *CloserService) Serve(ctx context.Context) error {
	<-ctx.Done()

	log := logging.WithComponent(c.name)
	for i := len(c.closers) - 1; i >= 0; i-- {
		cl := c.closers[i]
		if err := cl.Close(); err != nil {
			log.Warn().Err(err).Str("resource", cl.Name).Msg("Failed to close resource")
			continue
		}
		log.Debug().Str("resource", cl.Name).Msg("Closed")
	}
	return ctx.Err()
}

func (c *CloserService) String() string {
	return c.name
}
