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

// Package router orchestrates a full catalog load: discover bundles on
// disk, collect their routing metadata, complete every plugin's redirect
// chain, and serve the resolved result to callers. It keeps the original
// Router's mutex-guarded, clear-on-reload cache shape, generalized from a
// single runtime.yml to a whole collection inventory.
package router

import (
	"fmt"
	"sync"

	"github.com/spf13/afero"

	"github.com/work-obs/ansible-catalog/pkg/catalog"
	"github.com/work-obs/ansible-catalog/pkg/routing"
)

// Service loads a bundle inventory, resolves every plugin's redirects, and
// answers routing queries from the resolved catalog. It is safe for
// concurrent use.
type Service struct {
	fs   afero.Fs
	root string

	mu        sync.RWMutex
	inventory *catalog.Inventory
	resolved  routing.Catalog
}

// NewService returns a Service that discovers bundles under root on fs.
// Nothing is loaded until Load is called.
func NewService(fs afero.Fs, root string) *Service {
	return &Service{fs: fs, root: root}
}

// Load discovers every bundle under the service's root, collects their
// routing metadata, and resolves redirects for the whole catalog. It
// replaces any previously loaded result atomically: callers observe either
// the old or the new catalog, never a half-built one.
func (s *Service) Load() error {
	infos, err := catalog.DiscoverBundles(s.fs, s.root)
	if err != nil {
		return fmt.Errorf("discovering bundles under %s: %w", s.root, err)
	}

	inv, err := catalog.BuildInventory(infos)
	if err != nil {
		return fmt.Errorf("building inventory: %w", err)
	}

	loader := func(info catalog.BundleInfo) (*routing.BundleRouting, error) {
		return catalog.LoadBundleMetadata(s.fs, info)
	}

	cat, err := catalog.Collect(inv, loader, nil)
	if err != nil {
		return fmt.Errorf("collecting bundle metadata: %w", err)
	}

	if err := routing.CompleteRedirects(cat); err != nil {
		return fmt.Errorf("resolving plugin redirects: %w", err)
	}

	s.mu.Lock()
	s.inventory = inv
	s.resolved = cat
	s.mu.Unlock()

	return nil
}

// ErrNotLoaded is returned by query methods called before Load succeeds.
type ErrNotLoaded struct{}

func (ErrNotLoaded) Error() string { return "catalog has not been loaded yet" }

// Bundles returns every bundle FQN in the resolved catalog, core bundle
// first, the rest sorted by name.
func (s *Service) Bundles() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.inventory == nil {
		return nil, ErrNotLoaded{}
	}

	names := make([]string, 0, len(s.resolved))
	for _, b := range s.inventory.All() {
		names = append(names, b.FullName())
	}
	return names, nil
}

// BundleRouting returns the resolved routing table for one bundle.
func (s *Service) BundleRouting(bundleFQN string) (*routing.BundleRouting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.resolved == nil {
		return nil, ErrNotLoaded{}
	}

	br, ok := s.resolved[bundleFQN]
	if !ok {
		return nil, fmt.Errorf("bundle %q not found in catalog", bundleFQN)
	}
	return br, nil
}

// Resolve returns the resolved PluginRouting for one plugin, after its
// redirect chain has been fully walked.
func (s *Service) Resolve(bundleFQN string, pt routing.PluginType, pluginName string) (*routing.PluginRouting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.resolved == nil {
		return nil, ErrNotLoaded{}
	}

	br, ok := s.resolved[bundleFQN]
	if !ok {
		return nil, fmt.Errorf("bundle %q not found in catalog", bundleFQN)
	}

	pr, ok := br.Lookup(pt, pluginName)
	if !ok {
		return nil, fmt.Errorf("plugin %s.%s (%s) not found in bundle %s", pluginName, pt, pt, bundleFQN)
	}
	return pr, nil
}

// IsDeprecated reports whether the plugin's own routing entry carries a
// deprecation, returning its warning text. The deprecation of the plugin's
// redirect target is not consulted.
func (s *Service) IsDeprecated(bundleFQN string, pt routing.PluginType, pluginName string) (bool, string) {
	pr, err := s.Resolve(bundleFQN, pt, pluginName)
	if err != nil || pr.Deprecation == nil {
		return false, ""
	}
	warning := ""
	if pr.Deprecation.WarningText != nil {
		warning = *pr.Deprecation.WarningText
	}
	if warning == "" {
		warning = fmt.Sprintf("Plugin %q of type %q is deprecated", pluginName, pt)
	}
	return true, warning
}

// ClearCache drops the resolved catalog, forcing the next query to fail
// with ErrNotLoaded until Load is called again.
func (s *Service) ClearCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inventory = nil
	s.resolved = nil
}
