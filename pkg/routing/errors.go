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

import "fmt"

// MetadataShapeFailure reports a shape violation found by the metadata
// loader: the document path, the plugin type and plugin name involved (when
// known), and a description of what was wrong.
type MetadataShapeFailure struct {
	Path       string
	PluginType PluginType
	PluginName string
	Reason     string
}

func (e *MetadataShapeFailure) Error() string {
	if e.PluginType == "" && e.PluginName == "" {
		return fmt.Sprintf("metadata shape violation at %s: %s", e.Path, e.Reason)
	}
	return fmt.Sprintf("metadata shape violation at %s (type=%s plugin=%s): %s",
		e.Path, e.PluginType, e.PluginName, e.Reason)
}

// ResolverInternalAssertion indicates the resolver found its own invariants
// violated. This should never happen on well-formed input produced by the
// metadata loader; if it fires, it indicates a bug in the resolver itself.
type ResolverInternalAssertion struct {
	Reason string
}

func (e *ResolverInternalAssertion) Error() string {
	return fmt.Sprintf("resolver internal assertion failed: %s", e.Reason)
}

func newShapeFailure(path string, pt PluginType, plugin, reason string) *MetadataShapeFailure {
	return &MetadataShapeFailure{Path: path, PluginType: pt, PluginName: plugin, Reason: reason}
}
