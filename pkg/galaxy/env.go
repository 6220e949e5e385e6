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

package galaxy

import (
	"fmt"
	"os"
	"strings"
)

// pluginPathEnvVars are neutralized to /dev/null before invoking the tool,
// so ambient ansible.cfg / environment configuration on the machine running
// this catalog tool cannot influence what the tool reports.
var pluginPathEnvVars = []string{
	"ANSIBLE_ACTION_PLUGINS",
	"ANSIBLE_CACHE_PLUGINS",
	"ANSIBLE_CALLBACK_PLUGINS",
	"ANSIBLE_CLICONF_PLUGINS",
	"ANSIBLE_CONNECTION_PLUGINS",
	"ANSIBLE_FILTER_PLUGINS",
	"ANSIBLE_HTTPAPI_PLUGINS",
	"ANSIBLE_INVENTORY_PLUGINS",
	"ANSIBLE_LOOKUP_PLUGINS",
	"ANSIBLE_LIBRARY",
	"ANSIBLE_MODULE_UTILS",
	"ANSIBLE_NETCONF_PLUGINS",
	"ANSIBLE_ROLES_PATH",
	"ANSIBLE_STRATEGY_PLUGINS",
	"ANSIBLE_TERMINAL_PLUGINS",
	"ANSIBLE_TEST_PLUGINS",
	"ANSIBLE_VARS_PLUGINS",
	"ANSIBLE_DOC_FRAGMENT_PLUGINS",
}

// EnvOptions controls PrepareEnv.
type EnvOptions struct {
	// CollectionsPath, when non-empty, is exported as ANSIBLE_COLLECTIONS_PATH
	// (and, in CompatMode, also as the legacy ANSIBLE_COLLECTIONS_PATHS).
	CollectionsPath string
	// CompatMode also sets the legacy ANSIBLE_COLLECTIONS_PATHS variable.
	CompatMode bool
	// OnlyUpdates, when true, builds an environment containing only the
	// neutralization/collections-path updates instead of inheriting the
	// calling process's environment.
	OnlyUpdates bool
}

// PrepareEnv builds the environment to run the catalog tool in, per §6.
func PrepareEnv(opts EnvOptions) []string {
	updates := make(map[string]string, len(pluginPathEnvVars)+2)
	for _, name := range pluginPathEnvVars {
		updates[name] = "/dev/null"
	}
	if opts.CollectionsPath != "" {
		updates["ANSIBLE_COLLECTIONS_PATH"] = opts.CollectionsPath
		if opts.CompatMode {
			updates["ANSIBLE_COLLECTIONS_PATHS"] = opts.CollectionsPath
		}
	}

	if opts.OnlyUpdates {
		env := make([]string, 0, len(updates))
		for k, v := range updates {
			env = append(env, fmt.Sprintf("%s=%s", k, v))
		}
		return env
	}

	base := os.Environ()
	env := make([]string, 0, len(base)+len(updates))
	seen := make(map[string]bool, len(updates))
	for _, kv := range base {
		name := kv
		if idx := strings.IndexByte(kv, '='); idx >= 0 {
			name = kv[:idx]
		}
		if v, overridden := updates[name]; overridden {
			env = append(env, fmt.Sprintf("%s=%s", name, v))
			seen[name] = true
			continue
		}
		env = append(env, kv)
	}
	for name, v := range updates {
		if !seen[name] {
			env = append(env, fmt.Sprintf("%s=%s", name, v))
		}
	}

	return env
}
