/*
Copyright (c) 2024 Ansible Project

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package api

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Code      int                    `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

// HealthResponse represents a health check response.
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
}

// BundleListResponse lists every bundle FQN in the loaded catalog.
type BundleListResponse struct {
	Bundles []string `json:"bundles"`
}

// RemovalRecord mirrors routing.RemovalRecord for wire transport.
type RemovalRecord struct {
	WarningText    *string `json:"warning_text,omitempty"`
	RemovalVersion *string `json:"removal_version,omitempty"`
	RemovalDate    *string `json:"removal_date,omitempty"`
}

// DeprecationEntry mirrors routing.DeprecationEntry for wire transport.
type DeprecationEntry struct {
	FQN     string        `json:"fqn"`
	Removal RemovalRecord `json:"removal"`
}

// PluginRoutingResponse is the fully-resolved routing state for one plugin,
// the terminal outcome of following its redirect chain to completion.
type PluginRoutingResponse struct {
	Bundle        string             `json:"bundle"`
	Type          string             `json:"type"`
	Name          string             `json:"name"`
	Redirect      string             `json:"redirect,omitempty"`
	IsCycle       bool               `json:"is_cycle"`
	RedirectChain []string           `json:"redirect_chain,omitempty"`
	Deprecations  []DeprecationEntry `json:"redirect_deprecations,omitempty"`
	Tombstoned    bool               `json:"tombstoned"`
	DeadEnd       bool               `json:"dead_end"`
	RedirectError string             `json:"redirect_error,omitempty"`
	Deprecation   *RemovalRecord     `json:"deprecation,omitempty"`
	Tombstone     *RemovalRecord     `json:"tombstone,omitempty"`
	ActionPlugin  string             `json:"action_plugin,omitempty"`
}

// BundlePluginsResponse lists every plugin of one type known to a bundle,
// each with its resolved routing outcome.
type BundlePluginsResponse struct {
	Bundle  string                  `json:"bundle"`
	Type    string                  `json:"type"`
	Plugins []PluginRoutingResponse `json:"plugins"`
}

// ReloadResponse reports the outcome of a catalog reload request.
type ReloadResponse struct {
	Status  string   `json:"status"`
	Bundles []string `json:"bundles"`
}
