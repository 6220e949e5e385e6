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
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"regexp"
	"strings"
)

// CollectionEntry is one bundle reported by the catalog tool's collection
// listing, before routing metadata has been loaded for it.
type CollectionEntry struct {
	Root      string
	Namespace string
	Name      string
	Version   string // empty when the tool reported "*" or a non-string version
}

// FullName returns "<namespace>.<name>".
func (c CollectionEntry) FullName() string {
	return c.Namespace + "." + c.Name
}

// Path returns "<root>/<namespace>/<name>".
func (c CollectionEntry) Path() string {
	return path.Join(c.Root, c.Namespace, c.Name)
}

func versionLineRegexes(toolName string) (newStyle, oldStyle *regexp.Regexp) {
	quoted := regexp.QuoteMeta(toolName)
	newStyle = regexp.MustCompile(fmt.Sprintf(`^%s(-[A-Za-z0-9_]+)? \[(core|base) ([^\]]+)\]`, quoted))
	oldStyle = regexp.MustCompile(fmt.Sprintf(`^%s(-[A-Za-z0-9_]+)? (\S+)`, quoted))
	return
}

// LocateBuiltinCollection runs "<toolName> --version" and extracts the
// ansible-core module root path and the tool's version, per §6.
func LocateBuiltinCollection(ctx context.Context, runner Runner, toolName string) (modulePath, version string, err error) {
	stdout, stderr, exitCode, runErr := runner.Run(ctx, toolName, []string{"--version"}, nil)
	if runErr != nil {
		return "", "", &ListingCollectionsFailure{Reason: runErr.Error()}
	}
	if exitCode != 0 {
		return "", "", &ListingCollectionsFailure{ExitCode: exitCode, Stderr: string(stderr)}
	}

	newStyle, oldStyle := versionLineRegexes(toolName)

	scanner := bufio.NewScanner(bytes.NewReader(stdout))
	for scanner.Scan() {
		line := scanner.Text()

		if modulePath == "" && strings.HasPrefix(strings.TrimSpace(line), "ansible python module location") {
			if eq := strings.Index(line, "="); eq >= 0 {
				modulePath = strings.TrimSpace(line[eq+1:])
				continue
			}
		}

		if version == "" {
			if m := newStyle.FindStringSubmatch(line); m != nil {
				version = m[3]
				continue
			}
			if m := oldStyle.FindStringSubmatch(line); m != nil {
				version = m[2]
				continue
			}
		}
	}

	if modulePath == "" || version == "" {
		return "", "", &ListingCollectionsFailure{Reason: fmt.Sprintf("could not parse %q --version output", toolName)}
	}

	return modulePath, version, nil
}

// ListOptions controls ListCollections.
type ListOptions struct {
	ToolName        string
	CollectionsPath string
	Env             EnvOptions
}

// ListCollections invokes "<tool> collection list --format json" (falling
// back to the legacy tabular format, and detecting ansible-core 2.9's lack
// of a list subcommand entirely) and returns every discovered bundle, per
// §6.
func ListCollections(ctx context.Context, runner Runner, opts ListOptions) ([]CollectionEntry, error) {
	envOpts := opts.Env
	envOpts.CollectionsPath = opts.CollectionsPath
	env := PrepareEnv(envOpts)

	stdout, stderr, exitCode, err := runner.Run(ctx, opts.ToolName, []string{"collection", "list", "--format", "json"}, env)
	if err != nil {
		return nil, &ListingCollectionsFailure{Reason: err.Error()}
	}

	if exitCode == 0 {
		return parseJSONListing(stdout)
	}

	stderrText := string(stderr)

	if exitCode == 2 && strings.Contains(stderrText, "error: argument COLLECTION_ACTION: invalid choice: 'list'") {
		return nil, &Ansible29Failure{ListingCollectionsFailure{ExitCode: exitCode, Stderr: stderrText}}
	}

	if exitCode == 2 && strings.Contains(stderrText, "error: unrecognized arguments: --format") {
		return listCollectionsCompat(ctx, runner, opts.ToolName, env)
	}

	if exitCode == 5 && strings.Contains(stderrText, "None of the provided paths were usable.") {
		return nil, nil
	}

	return nil, &ListingCollectionsFailure{ExitCode: exitCode, Stderr: stderrText}
}

func parseJSONListing(stdout []byte) ([]CollectionEntry, error) {
	var parsed map[string]map[string]struct {
		Version interface{} `json:"version"`
	}
	if err := json.Unmarshal(stdout, &parsed); err != nil {
		return nil, &ListingCollectionsFailure{Reason: fmt.Sprintf("could not parse collection list JSON: %v", err)}
	}

	var entries []CollectionEntry
	for root, collections := range parsed {
		for fqn, info := range collections {
			ns, name, ok := splitFQN(fqn)
			if !ok {
				continue
			}
			entries = append(entries, CollectionEntry{
				Root:      root,
				Namespace: ns,
				Name:      name,
				Version:   normalizeVersion(info.Version),
			})
		}
	}
	return entries, nil
}

func listCollectionsCompat(ctx context.Context, runner Runner, toolName string, env []string) ([]CollectionEntry, error) {
	stdout, stderr, exitCode, err := runner.Run(ctx, toolName, []string{"collection", "list"}, env)
	if err != nil {
		return nil, &ListingCollectionsFailure{Reason: err.Error()}
	}
	if exitCode == 5 && strings.Contains(string(stderr), "None of the provided paths were usable.") {
		return nil, nil
	}
	if exitCode != 0 {
		return nil, &ListingCollectionsFailure{ExitCode: exitCode, Stderr: string(stderr)}
	}

	var entries []CollectionEntry
	var currentRoot string

	scanner := bufio.NewScanner(bytes.NewReader(stdout))
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, "#") {
			currentRoot = strings.TrimSpace(strings.TrimPrefix(trimmed, "#"))
			continue
		}
		fields := strings.Fields(trimmed)
		if len(fields) < 2 {
			continue
		}
		ns, name, ok := splitFQN(fields[0])
		if !ok {
			continue
		}
		entries = append(entries, CollectionEntry{
			Root:      currentRoot,
			Namespace: ns,
			Name:      name,
			Version:   normalizeVersion(fields[1]),
		})
	}

	return entries, nil
}

func splitFQN(fqn string) (namespace, name string, ok bool) {
	parts := strings.SplitN(fqn, ".", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// normalizeVersion maps the "*"/non-string version sentinel to "" ("absent"
// in the specification's terms).
func normalizeVersion(v interface{}) string {
	s, ok := v.(string)
	if !ok || s == "*" {
		return ""
	}
	return s
}
