// Copyright (c) 2025 Avelinek Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package items talks to the backend's small items store.
//
// The item endpoints use a different response shape than the rest of
// the API: a {success, data, error} envelope around a row list, with
// failures reported inside the envelope rather than by status code
// alone. This package owns decoding that envelope.
package items

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/avelinek/parley/internal/api"
)

const (
	endpointCreateItem = "/create_item"
	endpointGetItems   = "/get_items"
)

// Item is one row in the backend's items table.
type Item struct {
	ID          int64  `json:"id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
}

// envelope is the items endpoints' response wrapper. Data is always a
// list; create answers with a single-row list.
type envelope struct {
	Success bool   `json:"success"`
	Data    []Item `json:"data"`
	Error   string `json:"error"`
}

func (e *envelope) err() error {
	if e.Success {
		return nil
	}
	if e.Error == "" {
		return fmt.Errorf("items request failed")
	}
	return fmt.Errorf("items request failed: %s", e.Error)
}

// Caller is the authenticated request surface of the API client.
type Caller interface {
	DoAuthenticated(ctx context.Context, method, endpoint string, payload, out any) error
}

// Service exposes the items dashboard operations.
type Service struct {
	client Caller
	log    zerolog.Logger
}

// NewService creates an items service over the API client.
func NewService(client Caller) *Service {
	return &Service{client: client, log: zerolog.Nop()}
}

// WithLogger sets the service's logger.
func (s *Service) WithLogger(log zerolog.Logger) *Service {
	s.log = log.With().Str("component", "items").Logger()
	return s
}

// Create inserts a new item and returns the stored row.
func (s *Service) Create(ctx context.Context, item Item) (*Item, error) {
	item.Name = strings.TrimSpace(item.Name)
	if item.Name == "" {
		return nil, fmt.Errorf("%w: item name is required", api.ErrValidation)
	}

	var env envelope
	if err := s.client.DoAuthenticated(ctx, http.MethodPost, endpointCreateItem, item, &env); err != nil {
		return nil, err
	}
	if err := env.err(); err != nil {
		return nil, err
	}
	if len(env.Data) == 0 {
		return nil, fmt.Errorf("create_item returned no row")
	}

	created := env.Data[0]
	s.log.Debug().Int64("id", created.ID).Msg("item created")
	return &created, nil
}

// List fetches all items.
func (s *Service) List(ctx context.Context) ([]Item, error) {
	var env envelope
	if err := s.client.DoAuthenticated(ctx, http.MethodGet, endpointGetItems, nil, &env); err != nil {
		return nil, err
	}
	if err := env.err(); err != nil {
		return nil, err
	}
	return env.Data, nil
}
