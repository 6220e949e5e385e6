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

// Package catalog discovers bundles (collections) on disk, builds the
// de-aliased bundle inventory the resolver's catalog is keyed by, and
// drives the metadata loader across every bundle.
package catalog

import (
	"fmt"
	"sort"
)

// BundleInfo describes one bundle (collection) as found by DiscoverBundles
// or supplied by a caller, before routing metadata has been loaded for it.
type BundleInfo struct {
	Path      string
	Namespace string
	Name      string
	Version   string // empty when unknown ("*" or non-string in the source listing)
	IsCore    bool
}

// FullName returns the bundle's "<namespace>.<name>" FQN prefix.
func (b BundleInfo) FullName() string {
	return b.Namespace + "." + b.Name
}

// Inventory is the de-aliased set of bundles a catalog collection run
// should consider: at most one distinguished core bundle, plus every other
// bundle except the two built-in aliases.
type Inventory struct {
	Core    *BundleInfo
	Bundles map[string]*BundleInfo // keyed by FullName(), core excluded
}

// BuildInventory applies the inventory de-aliasing rules of §6: at most one
// bundle may be marked core; the core bundle's full name must be
// "ansible.builtin"; "ansible.builtin" and "ansible.legacy" are dropped from
// the non-core set unless they are the declared core.
func BuildInventory(infos []BundleInfo) (*Inventory, error) {
	inv := &Inventory{Bundles: make(map[string]*BundleInfo)}

	for i := range infos {
		info := infos[i]
		if info.IsCore {
			if inv.Core != nil {
				return nil, &CatalogStructureFailure{Reason: "more than one bundle is marked as ansible-core"}
			}
			if info.FullName() != "ansible.builtin" {
				return nil, &CatalogStructureFailure{
					Reason: fmt.Sprintf("the ansible-core bundle must be named ansible.builtin, not %s", info.FullName()),
				}
			}
			core := info
			inv.Core = &core
			continue
		}

		if info.FullName() == "ansible.builtin" || info.FullName() == "ansible.legacy" {
			continue
		}

		bundle := info
		inv.Bundles[info.FullName()] = &bundle
	}

	return inv, nil
}

// All returns every bundle in the inventory, core first, in a stable order.
func (inv *Inventory) All() []*BundleInfo {
	out := make([]*BundleInfo, 0, len(inv.Bundles)+1)
	if inv.Core != nil {
		out = append(out, inv.Core)
	}
	names := make([]string, 0, len(inv.Bundles))
	for name := range inv.Bundles {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		out = append(out, inv.Bundles[name])
	}
	return out
}
