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

import (
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/work-obs/ansible-catalog/pkg/routing"
)

const (
	coreRuntimePath = "config/ansible_builtin_runtime.yml"
	bundleRuntimePath = "meta/runtime.yml"
	edaRuntimePath = "extensions/eda/eda_runtime.yml"
)

// LoadBundleMetadata reads a bundle's routing metadata file(s) from fs and
// converts them into a routing.BundleRouting. A missing metadata file is
// not an error: it is treated the same as a document with no
// plugin_routing key, per the original loader's FileNotFoundError-to-empty
// behavior.
func LoadBundleMetadata(fs afero.Fs, info BundleInfo) (*routing.BundleRouting, error) {
	if info.IsCore {
		return loadRuntimeFile(fs, filepath.Join(info.Path, coreRuntimePath), info.FullName(), routing.DefaultLabelTranslator)
	}

	result, err := loadRuntimeFile(fs, filepath.Join(info.Path, bundleRuntimePath), info.FullName(), routing.DefaultLabelTranslator)
	if err != nil {
		return nil, err
	}

	eda, err := loadRuntimeFile(fs, filepath.Join(info.Path, edaRuntimePath), info.FullName(), routing.EDALabelTranslator)
	if err != nil {
		return nil, err
	}
	for pt, plugins := range eda.PluginData {
		for name, pr := range plugins {
			result.Set(pt, name, pr)
		}
	}

	return result, nil
}

func loadRuntimeFile(fs afero.Fs, path, bundleFQN string, translate routing.LabelTranslator) (*routing.BundleRouting, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return routing.NewBundleRouting(), nil
		}
		return nil, err
	}

	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	return routing.LoadBundleRouting(doc, bundleFQN, translate)
}

// DiscoverBundles walks a collections root directory of shape
// <root>/<namespace>/<name>/ and returns one BundleInfo per directory found
// at the second level; no marker file such as galaxy.yml is checked.
// Version is left empty and IsCore is never set: the core bundle, which is
// not laid out under a namespace root, is not discovered here.
func DiscoverBundles(fs afero.Fs, root string) ([]BundleInfo, error) {
	namespaces, err := afero.ReadDir(fs, root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var bundles []BundleInfo
	for _, ns := range namespaces {
		if !ns.IsDir() {
			continue
		}
		nsPath := filepath.Join(root, ns.Name())
		names, err := afero.ReadDir(fs, nsPath)
		if err != nil {
			continue
		}
		for _, n := range names {
			if !n.IsDir() {
				continue
			}
			bundles = append(bundles, BundleInfo{
				Path:      filepath.Join(nsPath, n.Name()),
				Namespace: ns.Name(),
				Name:      n.Name(),
			})
		}
	}
	return bundles, nil
}
