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

package catalog

import "github.com/work-obs/ansible-catalog/pkg/routing"

// LoaderFunc loads one bundle's routing metadata.
type LoaderFunc func(info BundleInfo) (*routing.BundleRouting, error)

// BrokenBundleHandler is dispatched when LoaderFunc fails for a bundle. It
// may return a substitute BundleRouting to use in its place, ask to skip
// the bundle entirely (substitute == nil, skip == true), or return a
// non-nil error to re-raise (possibly the original error, possibly a
// wrapped one).
type BrokenBundleHandler func(info BundleInfo, cause error) (substitute *routing.BundleRouting, skip bool, err error)

// Collect runs loader over every bundle in inv (core first), honoring an
// optional handler for individual load failures, and returns the resulting
// Catalog. If handler is nil, the first failure propagates immediately.
func Collect(inv *Inventory, loader LoaderFunc, handler BrokenBundleHandler) (routing.Catalog, error) {
	cat := make(routing.Catalog)

	for _, info := range inv.All() {
		br, err := loader(*info)
		if err != nil {
			if handler == nil {
				return nil, err
			}
			substitute, skip, reraise := handler(*info, err)
			if reraise != nil {
				return nil, reraise
			}
			if skip {
				continue
			}
			br = substitute
		}
		if br == nil {
			continue
		}
		cat[info.FullName()] = br
	}

	return cat, nil
}
