// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package helix

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// DefaultBaseURL is where a local HelixDB instance listens.
const DefaultBaseURL = "http://localhost:6969"

// EntityPayload is the wire form of one syntax-tree entity. Order is the
// 1-based position among the parent's children.
type EntityPayload struct {
	Kind      string `json:"entity_type"`
	StartByte uint32 `json:"start_byte"`
	EndByte   uint32 `json:"end_byte"`
	Order     int    `json:"order"`
	Text      string `json:"text"`
}

// SubEntityPayload is an EntityPayload linked to its parent entity.
type SubEntityPayload struct {
	ParentID string `json:"entity_id"`
	EntityPayload
}

// Root describes an ingestion root as the store reports it.
type Root struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ExtractedAt string `json:"extracted_at"`
}

// Client talks to a HelixDB instance over HTTP. Each named query is one
// POST to {baseURL}/{query} with a JSON body; responses are small JSON
// envelopes keyed by the created node kind. Safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a client for baseURL (DefaultBaseURL when empty).
func NewClient(baseURL string, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 90 * time.Second, // Large file texts make slow inserts
		},
		logger: logger,
	}
}

// query executes one named query. out, when non-nil, receives the decoded
// response body.
func (c *Client) query(ctx context.Context, name string, payload, out any) error {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+name, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("create %s request: %w", name, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s failed: %w", name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(resp.Body)
	c.logger.Debug("helix.query", "query", name, "status", resp.StatusCode, "bytes", len(body))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s error (status %d): %s", name, resp.StatusCode, truncateBody(body))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse %s response: %w", name, err)
	}
	return nil
}

// nodeRef is the minimal node view every create envelope carries.
type nodeRef struct {
	ID string `json:"id"`
}

// CreateRoot registers an ingestion root.
func (c *Client) CreateRoot(ctx context.Context, name string) (string, error) {
	var resp struct {
		Root nodeRef `json:"root"`
	}
	err := c.query(ctx, "createRoot", map[string]any{"name": name}, &resp)
	if err != nil {
		return "", err
	}
	if resp.Root.ID == "" {
		return "", fmt.Errorf("createRoot returned no id")
	}
	return resp.Root.ID, nil
}

// CreateSuperFolder creates a folder attached directly to the root.
func (c *Client) CreateSuperFolder(ctx context.Context, rootID, name string) (string, error) {
	var resp struct {
		Folder nodeRef `json:"folder"`
	}
	err := c.query(ctx, "createSuperFolder", map[string]any{"root_id": rootID, "name": name}, &resp)
	if err != nil {
		return "", err
	}
	if resp.Folder.ID == "" {
		return "", fmt.Errorf("createSuperFolder returned no id")
	}
	return resp.Folder.ID, nil
}

// CreateSubFolder creates a folder nested under another folder.
func (c *Client) CreateSubFolder(ctx context.Context, folderID, name string) (string, error) {
	var resp struct {
		Subfolder nodeRef `json:"subfolder"`
	}
	err := c.query(ctx, "createSubFolder", map[string]any{"folder_id": folderID, "name": name}, &resp)
	if err != nil {
		return "", err
	}
	if resp.Subfolder.ID == "" {
		return "", fmt.Errorf("createSubFolder returned no id")
	}
	return resp.Subfolder.ID, nil
}

// CreateSuperFile creates a file node attached directly to the root.
func (c *Client) CreateSuperFile(ctx context.Context, rootID, name, extension, text string) (string, error) {
	var resp struct {
		File nodeRef `json:"file"`
	}
	err := c.query(ctx, "createSuperFile", map[string]any{
		"root_id":   rootID,
		"name":      name,
		"extension": extension,
		"text":      text,
	}, &resp)
	if err != nil {
		return "", err
	}
	if resp.File.ID == "" {
		return "", fmt.Errorf("createSuperFile returned no id")
	}
	return resp.File.ID, nil
}

// CreateFile creates a file node under a folder.
func (c *Client) CreateFile(ctx context.Context, folderID, name, extension, text string) (string, error) {
	var resp struct {
		File nodeRef `json:"file"`
	}
	err := c.query(ctx, "createFile", map[string]any{
		"folder_id": folderID,
		"name":      name,
		"extension": extension,
		"text":      text,
	}, &resp)
	if err != nil {
		return "", err
	}
	if resp.File.ID == "" {
		return "", fmt.Errorf("createFile returned no id")
	}
	return resp.File.ID, nil
}

// CreateSuperEntity creates a top-level entity under a file node.
func (c *Client) CreateSuperEntity(ctx context.Context, fileID string, entity EntityPayload) (string, error) {
	var resp struct {
		Entity nodeRef `json:"entity"`
	}
	err := c.query(ctx, "createSuperEntity", map[string]any{
		"file_id":     fileID,
		"entity_type": entity.Kind,
		"start_byte":  entity.StartByte,
		"end_byte":    entity.EndByte,
		"order":       entity.Order,
		"text":        entity.Text,
	}, &resp)
	if err != nil {
		return "", err
	}
	if resp.Entity.ID == "" {
		return "", fmt.Errorf("createSuperEntity returned no id")
	}
	return resp.Entity.ID, nil
}

// CreateSubEntities bulk-inserts one level of child entities. The returned
// IDs pair positionally with the batch.
func (c *Client) CreateSubEntities(ctx context.Context, batch []SubEntityPayload) ([]string, error) {
	if len(batch) == 0 {
		return nil, nil
	}
	var resp []struct {
		Entity nodeRef `json:"entity"`
	}
	if err := c.query(ctx, "createSubEntity", batch, &resp); err != nil {
		return nil, err
	}
	if len(resp) != len(batch) {
		return nil, fmt.Errorf("createSubEntity returned %d results for %d payloads", len(resp), len(batch))
	}
	ids := make([]string, len(resp))
	for i, item := range resp {
		if item.Entity.ID == "" {
			return nil, fmt.Errorf("createSubEntity result %d has no id", i)
		}
		ids[i] = item.Entity.ID
	}
	return ids, nil
}

// EmbedSuperEntity attaches one embedding vector to a super entity.
func (c *Client) EmbedSuperEntity(ctx context.Context, entityID string, vector []float64) error {
	return c.query(ctx, "embedSuperEntity", map[string]any{
		"entity_id": entityID,
		"vector":    vector,
	}, nil)
}

// Roots lists every ingestion root the store knows about.
func (c *Client) Roots(ctx context.Context) ([]Root, error) {
	var resp struct {
		Root []Root `json:"root"`
	}
	if err := c.query(ctx, "getRoot", map[string]any{}, &resp); err != nil {
		return nil, err
	}
	return resp.Root, nil
}

func truncateBody(body []byte) string {
	const limit = 300
	if len(body) <= limit {
		return string(body)
	}
	return string(body[:limit]) + "..."
}
