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

package routing

import (
	"fmt"
	"time"
)

// LabelTranslator maps a raw plugin-type label found in a metadata document
// to a canonical PluginType. The second return value is false when the
// label should be ignored silently (unknown to this loader).
type LabelTranslator func(raw string) (PluginType, bool)

// DefaultLabelTranslator aliases "modules" to PluginTypeModule and otherwise
// accepts any label naming a known plugin type, eda_-prefixed ones included.
func DefaultLabelTranslator(raw string) (PluginType, bool) {
	return CanonicalPluginTypeLabel(raw)
}

// EDALabelTranslator is used when loading a bundle's extension-runtime
// metadata file (extensions/eda/eda_runtime.yml); raw labels there are the
// bare event_filter/event_source kind and are translated to the eda_-
// prefixed canonical types.
func EDALabelTranslator(raw string) (PluginType, bool) {
	switch raw {
	case "event_filter":
		return PluginTypeEDAEventFilter, true
	case "event_source":
		return PluginTypeEDAEventSource, true
	}
	return "", false
}

// LoadBundleRouting converts one parsed document tree (as produced by
// unmarshaling YAML into interface{}, where mappings become
// map[string]interface{}) into a BundleRouting, performing strict shape
// validation. bundleFQNPrefix is this bundle's "<namespace>.<bundle>",
// used to build each plugin's own FQN and to detect self-redirects.
func LoadBundleRouting(doc interface{}, bundleFQNPrefix string, translate LabelTranslator) (*BundleRouting, error) {
	result := NewBundleRouting()

	if doc == nil {
		return result, nil
	}

	top, ok := asMapping(doc)
	if !ok {
		return nil, newShapeFailure("$", "", "", "top-level document must be a mapping")
	}

	rawRouting, present := top["plugin_routing"]
	if !present || rawRouting == nil {
		return result, nil
	}

	routingMap, ok := asMapping(rawRouting)
	if !ok {
		return nil, newShapeFailure("$.plugin_routing", "", "", "plugin_routing must be a mapping")
	}

	for rawType, rawPlugins := range routingMap {
		pt, known := translate(rawType)
		if !known {
			continue
		}
		if rawPlugins == nil {
			continue
		}
		plugins, ok := asMapping(rawPlugins)
		if !ok {
			return nil, newShapeFailure(fmt.Sprintf("$.plugin_routing.%s", rawType), pt, "", "plugins must be a mapping")
		}
		for name, rawEntry := range plugins {
			path := fmt.Sprintf("$.plugin_routing.%s.%s", rawType, name)
			pr, err := parsePluginEntry(rawEntry, path, pt, name, bundleFQNPrefix)
			if err != nil {
				return nil, err
			}
			result.Set(pt, name, pr)
		}
	}

	return result, nil
}

func parsePluginEntry(raw interface{}, path string, pt PluginType, name, bundleFQNPrefix string) (*PluginRouting, error) {
	pr := &PluginRouting{}

	if raw == nil {
		return pr, nil
	}
	entry, ok := asMapping(raw)
	if !ok {
		return nil, newShapeFailure(path, pt, name, "plugin routing entry must be a mapping")
	}

	if rawAction, present := entry["action_plugin"]; present && rawAction != nil {
		s, ok := rawAction.(string)
		if !ok {
			return nil, newShapeFailure(path+".action_plugin", pt, name, "action_plugin must be a string")
		}
		if pt == PluginTypeModule {
			pr.ActionPlugin = &s
		}
	}

	if rawDep, present := entry["deprecation"]; present && rawDep != nil {
		rr, err := loadRemovalData(rawDep, path+".deprecation", pt, name)
		if err != nil {
			return nil, err
		}
		pr.Deprecation = rr
	}

	if rawTomb, present := entry["tombstone"]; present && rawTomb != nil {
		rr, err := loadRemovalData(rawTomb, path+".tombstone", pt, name)
		if err != nil {
			return nil, err
		}
		pr.Tombstone = rr
	}

	if rawRedirect, present := entry["redirect"]; present && rawRedirect != nil {
		redirectStr, ok := rawRedirect.(string)
		if !ok {
			return nil, newShapeFailure(path+".redirect", pt, name, "redirect must be a string")
		}

		ownFQN := FQN(bundleFQNPrefix + "." + name)
		if redirectStr == string(ownFQN) {
			errText := "Detected circular redirect"
			pr.Redirect = CycleMarker()
			pr.RedirectChain = []FQN{ownFQN, ownFQN}
			pr.RedirectError = &errText
			if pr.Deprecation != nil {
				pr.RedirectDeprecations = []DeprecationEntry{{FQN: ownFQN, Removal: *pr.Deprecation}}
			}
		} else {
			pr.Redirect = RedirectTarget(FQN(redirectStr))
		}
	}

	return pr, nil
}

func loadRemovalData(raw interface{}, path string, pt PluginType, name string) (*RemovalRecord, error) {
	m, ok := asMapping(raw)
	if !ok {
		return nil, newShapeFailure(path, pt, name, "must be a mapping")
	}

	rr := &RemovalRecord{}

	if v, present := m["warning_text"]; present && v != nil {
		s, ok := v.(string)
		if !ok {
			return nil, newShapeFailure(path+".warning_text", pt, name, "warning_text must be a string")
		}
		rr.WarningText = &s
	}

	if v, present := m["removal_version"]; present && v != nil {
		s, ok := v.(string)
		if !ok {
			return nil, newShapeFailure(path+".removal_version", pt, name, "removal_version must be a string")
		}
		rr.RemovalVersion = &s
	}

	if v, present := m["removal_date"]; present && v != nil {
		switch val := v.(type) {
		case string:
			rr.RemovalDate = &val
		case time.Time:
			s := val.Format("2006-01-02")
			rr.RemovalDate = &s
		default:
			return nil, newShapeFailure(path+".removal_date", pt, name, "removal_date must be a date or a string")
		}
	}

	return rr, nil
}

// asMapping normalizes the two shapes gopkg.in/yaml.v3 can produce for a
// YAML mapping decoded into interface{}: map[string]interface{} (every key
// is a string) and map[interface{}]interface{} (yaml.v3's shape when some
// key is not a string, or a tree built by another decoder). The latter is
// accepted only when every key turns out to be a string.
func asMapping(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case map[string]interface{}:
		return m, true
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(m))
		for k, val := range m {
			ks, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[ks] = val
		}
		return out, true
	default:
		return nil, false
	}
}
