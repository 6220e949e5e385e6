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

// Package plugins maps the closed PluginType enumeration (defined in
// pkg/routing, the owner of the data model) to on-disk plugin directory
// conventions. It never loads plugin code: the catalog tool only needs to
// know where a plugin of a given type would live within a bundle, not how
// to execute it.
package plugins

import (
	"fmt"
	"path/filepath"

	"github.com/work-obs/ansible-catalog/pkg/routing"
)

// PluginInfo is descriptive metadata about a plugin for human consumption;
// it carries no executable behavior.
type PluginInfo struct {
	Name        string
	Type        routing.PluginType
	Description string
}

// UnknownPluginTypeFailure is raised when a plugin directory is requested
// for a type the target bundle does not support: an EDA type requested
// against the core bundle, or a type DirectoryFor does not recognize at
// all.
type UnknownPluginTypeFailure struct {
	Bundle string
	Type   routing.PluginType
}

func (e *UnknownPluginTypeFailure) Error() string {
	return fmt.Sprintf("unknown plugin type %q for bundle %s", e.Type, e.Bundle)
}

var edaDirectories = map[routing.PluginType]string{
	routing.PluginTypeEDAEventFilter: filepath.Join("extensions", "eda", "plugins", "event_filter"),
	routing.PluginTypeEDAEventSource: filepath.Join("extensions", "eda", "plugins", "event_source"),
}

// DirectoryFor returns the path, relative to a bundle's root, where plugins
// of type pt live for that bundle, per §6 "Plugin directories". isCore
// distinguishes ansible-core (whose modules live directly under "modules",
// not "plugins/modules", and which never hosts EDA plugin types).
func DirectoryFor(bundleFQN string, isCore bool, pt routing.PluginType) (string, error) {
	if pt == routing.PluginTypeModule {
		if isCore {
			return "modules", nil
		}
		return filepath.Join("plugins", "modules"), nil
	}

	if dir, ok := edaDirectories[pt]; ok {
		if isCore {
			return "", &UnknownPluginTypeFailure{Bundle: bundleFQN, Type: pt}
		}
		return dir, nil
	}

	if routing.ValidPluginType(pt) {
		return filepath.Join("plugins", string(pt)), nil
	}

	return "", &UnknownPluginTypeFailure{Bundle: bundleFQN, Type: pt}
}
