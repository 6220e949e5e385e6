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

// Package routing implements the plugin routing data model and the
// whole-catalog redirect resolver for an Ansible-like collection
// ecosystem: bundles (collections) ship declarative routing metadata
// that renames, deprecates, or tombstones plugins, possibly forwarding
// to plugins in other bundles.
package routing

import "strings"

// PluginType is the closed enumeration of plugin kinds a bundle may route.
type PluginType string

const (
	// Documentable core types.
	PluginTypeBecome     PluginType = "become"
	PluginTypeCache      PluginType = "cache"
	PluginTypeCallback   PluginType = "callback"
	PluginTypeCliconf    PluginType = "cliconf"
	PluginTypeConnection PluginType = "connection"
	PluginTypeFilter     PluginType = "filter"
	PluginTypeHTTPAPI    PluginType = "httpapi"
	PluginTypeInventory  PluginType = "inventory"
	PluginTypeLookup     PluginType = "lookup"
	PluginTypeModule     PluginType = "module"
	PluginTypeNetconf    PluginType = "netconf"
	PluginTypeShell      PluginType = "shell"
	PluginTypeStrategy   PluginType = "strategy"
	PluginTypeTest       PluginType = "test"
	PluginTypeVars       PluginType = "vars"

	// Other core types.
	PluginTypeAction      PluginType = "action"
	PluginTypeModuleUtils PluginType = "module_utils"
	PluginTypePluginUtils PluginType = "plugin_utils"
	PluginTypeDocFragments PluginType = "doc_fragments"

	// Extension-runtime types (event-driven automation).
	PluginTypeEDAEventFilter PluginType = "eda_event_filter"
	PluginTypeEDAEventSource PluginType = "eda_event_source"
)

// knownPluginTypes backs ValidPluginType and label aliasing.
var knownPluginTypes = map[PluginType]bool{
	PluginTypeBecome:       true,
	PluginTypeCache:        true,
	PluginTypeCallback:     true,
	PluginTypeCliconf:      true,
	PluginTypeConnection:   true,
	PluginTypeFilter:       true,
	PluginTypeHTTPAPI:      true,
	PluginTypeInventory:    true,
	PluginTypeLookup:       true,
	PluginTypeModule:       true,
	PluginTypeNetconf:      true,
	PluginTypeShell:        true,
	PluginTypeStrategy:     true,
	PluginTypeTest:         true,
	PluginTypeVars:         true,
	PluginTypeAction:       true,
	PluginTypeModuleUtils:  true,
	PluginTypePluginUtils:  true,
	PluginTypeDocFragments: true,
	PluginTypeEDAEventFilter: true,
	PluginTypeEDAEventSource: true,
}

// ValidPluginType reports whether t is one of the closed set of plugin types.
func ValidPluginType(t PluginType) bool {
	return knownPluginTypes[t]
}

// CanonicalPluginTypeLabel aliases the raw metadata label "modules" to the
// canonical "module" type and accepts any other label that already names a
// known plugin type, eda_-prefixed ones included. The bare event_filter/
// event_source labels of an extension-runtime file are not accepted here;
// EDALabelTranslator handles those.
// The bool result is false when the label does not correspond to any known
// plugin type, meaning the caller should ignore the entry silently.
func CanonicalPluginTypeLabel(raw string) (PluginType, bool) {
	if raw == "modules" {
		return PluginTypeModule, true
	}
	pt := PluginType(raw)
	if !ValidPluginType(pt) {
		return "", false
	}
	return pt, true
}

// FQN is a fully qualified plugin name of shape <namespace>.<bundle>.<plugin>.
type FQN string

// Split decomposes an FQN into its namespace, bundle, and plugin components.
// ok is false when the value does not split into exactly three dot-separated
// parts (the "non-FQCN" case the resolver treats as a dead end).
func (f FQN) Split() (namespace, bundle, plugin string, ok bool) {
	parts := strings.Split(string(f), ".")
	if len(parts) != 3 {
		return "", "", "", false
	}
	return parts[0], parts[1], parts[2], true
}

// BundleFQN returns the "<namespace>.<bundle>" prefix, or "" if f is not a
// well-formed FQN.
func (f FQN) BundleFQN() string {
	ns, bundle, _, ok := f.Split()
	if !ok {
		return ""
	}
	return ns + "." + bundle
}

// NewFQN builds an FQN from its three components.
func NewFQN(namespace, bundle, plugin string) FQN {
	return FQN(namespace + "." + bundle + "." + plugin)
}

// RemovalRecord is an immutable deprecation or tombstone annotation.
type RemovalRecord struct {
	WarningText    *string
	RemovalVersion *string
	// RemovalDate holds either a calendar date (normalized to YYYY-MM-DD
	// when the parsed tree held a time.Time) or a free-form string,
	// verbatim as the document parser returned it.
	RemovalDate *string
}

// DeprecationEntry pairs the FQN at which a deprecation was recorded with
// the deprecation itself, preserving traversal order inside a
// redirect_deprecations list.
type DeprecationEntry struct {
	FQN      FQN
	Removal  RemovalRecord
}

// RedirectKind distinguishes the three states a PluginRouting's redirect
// field may hold. Using a dedicated tagged type (rather than a sentinel
// string mixed into the FQN space) keeps "terminated in a cycle" from ever
// being confused with a real plugin name.
type RedirectKind uint8

const (
	// RedirectNone means the plugin does not redirect anywhere.
	RedirectNone RedirectKind = iota
	// RedirectCycle means resolution of this plugin's redirect terminated
	// in a cycle (the CYCLE_MARKER sentinel of the specification).
	RedirectCycle
	// RedirectTo means the plugin redirects to (or, after resolution,
	// resolves to) a concrete FQN.
	RedirectTo
)

// Redirect is the tri-state value of a PluginRouting's redirect field:
// absent, CYCLE_MARKER, or a concrete FQN.
type Redirect struct {
	Kind   RedirectKind
	Target FQN // meaningful only when Kind == RedirectTo
}

// NoRedirect constructs the absent redirect state.
func NoRedirect() Redirect { return Redirect{Kind: RedirectNone} }

// CycleMarker constructs the redirect state meaning "terminated in a cycle".
func CycleMarker() Redirect { return Redirect{Kind: RedirectCycle} }

// RedirectTarget constructs a redirect pointing at a concrete FQN.
func RedirectTarget(target FQN) Redirect { return Redirect{Kind: RedirectTo, Target: target} }

// IsAbsent reports whether no redirect is set.
func (r Redirect) IsAbsent() bool { return r.Kind == RedirectNone }

// IsCycle reports whether this redirect is the CYCLE_MARKER sentinel.
func (r Redirect) IsCycle() bool { return r.Kind == RedirectCycle }

// PluginRouting is the per-plugin resolver state. Logically immutable: the
// resolver never mutates a PluginRouting in place, it replaces the map
// entry wholesale with a freshly built value.
type PluginRouting struct {
	// ActionPlugin names the action plugin backing a module; meaningful
	// only for PluginTypeModule entries.
	ActionPlugin *string

	Redirect              Redirect
	RedirectChain         []FQN // nil means unresolved or terminal
	RedirectDeprecations  []DeprecationEntry
	RedirectTombstone     bool
	RedirectDeadEnd       bool
	RedirectError         *string

	Deprecation *RemovalRecord
	Tombstone   *RemovalRecord
}

// Resolved reports whether this node has already been through the resolver
// (its redirect_chain is populated, or its redirect is already the cycle
// marker) — in either case, re-resolving it is a no-op.
func (p *PluginRouting) Resolved() bool {
	if p == nil {
		return true
	}
	return p.RedirectChain != nil || p.Redirect.IsCycle()
}

// HasOutcome reports whether this node already carries a terminal outcome
// (cycle, dead end, or tombstone) — the case the resolver reuses rather
// than re-walks in step 6 of the per-node algorithm.
func (p *PluginRouting) HasOutcome() bool {
	if p == nil {
		return false
	}
	return p.RedirectError != nil || p.RedirectTombstone || p.RedirectDeadEnd
}

// BundleRouting is a bundle's routing table: per plugin type, a map from
// plugin name to its routing record.
type BundleRouting struct {
	PluginData map[PluginType]map[string]*PluginRouting
}

// NewBundleRouting returns an empty BundleRouting ready for population.
func NewBundleRouting() *BundleRouting {
	return &BundleRouting{PluginData: make(map[PluginType]map[string]*PluginRouting)}
}

// Lookup returns the routing record for name under pt, and whether it exists.
func (b *BundleRouting) Lookup(pt PluginType, name string) (*PluginRouting, bool) {
	if b == nil {
		return nil, false
	}
	m, ok := b.PluginData[pt]
	if !ok {
		return nil, false
	}
	pr, ok := m[name]
	return pr, ok
}

// Set replaces (wholesale) the routing record for name under pt.
func (b *BundleRouting) Set(pt PluginType, name string, pr *PluginRouting) {
	m, ok := b.PluginData[pt]
	if !ok {
		m = make(map[string]*PluginRouting)
		b.PluginData[pt] = m
	}
	m[name] = pr
}

// Catalog maps a bundle's FQN ("<namespace>.<bundle>") to its routing table.
type Catalog map[string]*BundleRouting
