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

const (
	errCircularRedirect = "Detected circular redirect"
)

// pathElem is one node visited while walking a redirect chain.
type pathElem struct {
	fqn        FQN
	bundleFQN  string
	pluginName string
	routing    *PluginRouting // nil when the target bundle/plugin does not exist
	rewrite    bool           // whether this node's record gets replaced wholesale
}

// CompleteRedirectsForCollection completes every redirect reachable from
// plugins owned by bundleFQN, mutating catalog in place.
func CompleteRedirectsForCollection(catalog Catalog, bundleFQN string) error {
	bundle, ok := catalog[bundleFQN]
	if !ok {
		return nil
	}

	for pt, plugins := range bundle.PluginData {
		// Snapshot plugin names before rewriting: a rewrite triggered by
		// one plugin's walk (via step 6/7 reuse) may have already replaced
		// another plugin's record by the time we would otherwise visit it.
		names := make([]string, 0, len(plugins))
		for name := range plugins {
			names = append(names, name)
		}
		for _, name := range names {
			pr, ok := bundle.Lookup(pt, name)
			if !ok {
				continue
			}
			if !needsResolution(pr) {
				continue
			}
			resolveOne(catalog, pt, bundleFQN, name)
		}
	}
	return nil
}

// CompleteRedirects applies CompleteRedirectsForCollection to every bundle
// in the catalog.
func CompleteRedirects(catalog Catalog) error {
	for bundleFQN := range catalog {
		if err := CompleteRedirectsForCollection(catalog, bundleFQN); err != nil {
			return err
		}
	}
	return nil
}

func needsResolution(pr *PluginRouting) bool {
	if pr == nil {
		return false
	}
	if pr.Redirect.IsAbsent() || pr.Redirect.IsCycle() {
		return false
	}
	if pr.RedirectChain != nil {
		return false
	}
	return true
}

// resolveOne implements the per-node algorithm of §4.3 resolve(start).
func resolveOne(catalog Catalog, pt PluginType, startBundle, startName string) *PluginRouting {
	bundle := catalog[startBundle]
	startRouting, _ := bundle.Lookup(pt, startName)
	if !needsResolution(startRouting) {
		return startRouting
	}

	ownFQN := FQN(startBundle + "." + startName)
	visited := map[FQN]bool{ownFQN: true}
	path := []pathElem{{fqn: ownFQN, bundleFQN: startBundle, pluginName: startName, routing: startRouting, rewrite: true}}

	nextName := startRouting.Redirect.Target

	for {
		if visited[nextName] {
			return handleCycle(catalog, pt, path, nextName)
		}
		visited[nextName] = true

		ns, bundleName, plugin, ok := nextName.Split()
		if !ok {
			reason := fmt.Sprintf("Found redirect to non-FQCN %s", nextName)
			return prefixRewrite(catalog, pt, path, terminationOutcome{
				isLoop:    false,
				target:    nextName,
				deadEnd:   true,
				errorText: &reason,
			})
		}

		targetBundleFQN := ns + "." + bundleName
		targetBundle, bundleExists := catalog[targetBundleFQN]
		if !bundleExists {
			path = append(path, pathElem{fqn: nextName, bundleFQN: targetBundleFQN, pluginName: plugin, routing: nil, rewrite: false})
			reason := fmt.Sprintf("Found redirect to unknown collection %s", targetBundleFQN)
			return prefixRewrite(catalog, pt, path, terminationOutcome{
				isLoop:    false,
				target:    nextName,
				deadEnd:   true,
				errorText: &reason,
			})
		}

		pd, _ := targetBundle.Lookup(pt, plugin)

		if pd != nil && pd.Tombstone != nil {
			return prefixRewrite(catalog, pt, path, terminationOutcome{
				isLoop:     false,
				target:     nextName,
				tombstone:  true,
				seedDeps:   []DeprecationEntry{{FQN: nextName, Removal: *pd.Tombstone}},
			})
		}

		if pd == nil || pd.Redirect.IsAbsent() {
			path = append(path, pathElem{fqn: nextName, bundleFQN: targetBundleFQN, pluginName: plugin, routing: pd, rewrite: false})
			return prefixRewrite(catalog, pt, path, terminationOutcome{
				isLoop: false,
				target: nextName,
			})
		}

		if pd.HasOutcome() {
			return prefixRewrite(catalog, pt, path, terminationOutcome{
				isLoop:    pd.Redirect.IsCycle(),
				target:    nextName,
				tombstone: pd.RedirectTombstone,
				deadEnd:   pd.RedirectDeadEnd,
				errorText: pd.RedirectError,
				seedChain: append([]FQN(nil), pd.RedirectChain...),
				seedDeps:  append([]DeprecationEntry(nil), pd.RedirectDeprecations...),
			})
		}

		path = append(path, pathElem{fqn: nextName, bundleFQN: targetBundleFQN, pluginName: plugin, routing: pd, rewrite: true})
		nextName = pd.Redirect.Target
	}
}

// handleCycle implements step 1: cycle termination, rewriting every node in
// the cycle itself, then prefix-rewriting any linear predecessors of the
// cycle's entry point.
func handleCycle(catalog Catalog, pt PluginType, path []pathElem, nextName FQN) *PluginRouting {
	startIndex := -1
	for i, el := range path {
		if el.fqn == nextName {
			startIndex = i
			break
		}
	}
	if startIndex < 0 {
		// Should be unreachable: visited only ever contains FQNs pushed
		// onto path or the original next_name seed.
		panic(&ResolverInternalAssertion{Reason: "cycle detected but entry point not found on path"})
	}

	cycle := path[startIndex:]
	n := len(cycle)
	cycleFQNs := make([]FQN, n)
	for i, el := range cycle {
		cycleFQNs[i] = el.fqn
	}

	type posDep struct {
		pos int
		dep DeprecationEntry
	}
	var cycleDeps []posDep
	for i, el := range cycle {
		if el.routing != nil && el.routing.Deprecation != nil {
			cycleDeps = append(cycleDeps, posDep{pos: i, dep: DeprecationEntry{FQN: el.fqn, Removal: *el.routing.Deprecation}})
		}
	}

	var startResult *PluginRouting
	var entryChain []FQN
	var entryDeps []DeprecationEntry
	for i, el := range cycle {
		rotatedChain := make([]FQN, 0, n+1)
		for j := 0; j < n; j++ {
			rotatedChain = append(rotatedChain, cycleFQNs[(i+j)%n])
		}
		rotatedChain = append(rotatedChain, cycleFQNs[i])

		var rotatedDeps []DeprecationEntry
		for _, pd := range cycleDeps {
			if pd.pos >= i {
				rotatedDeps = append(rotatedDeps, pd.dep)
			}
		}
		for _, pd := range cycleDeps {
			if pd.pos < i {
				rotatedDeps = append(rotatedDeps, pd.dep)
			}
		}

		errText := errCircularRedirect
		newPR := &PluginRouting{
			ActionPlugin:         el.routing.ActionPlugin,
			Redirect:             CycleMarker(),
			RedirectChain:        rotatedChain,
			RedirectDeprecations: rotatedDeps,
			RedirectError:        &errText,
			Deprecation:          el.routing.Deprecation,
			Tombstone:            el.routing.Tombstone,
		}
		catalog[el.bundleFQN].Set(pt, el.pluginName, newPR)
		if i == 0 {
			entryChain = append([]FQN(nil), rotatedChain...)
			entryDeps = append([]DeprecationEntry(nil), rotatedDeps...)
			if startIndex == 0 {
				startResult = newPR
			}
		}
	}

	if startIndex == 0 {
		return startResult
	}

	// Linear predecessors of the cycle's entry point get the standard
	// prefix rewrite, all marked as part of the cycle (is_loop = true),
	// seeded with the cycle entry point's own resolved chain/deprecations
	// so the predecessors' chains include the cycle tail regardless of
	// visitation order.
	return prefixRewrite(catalog, pt, path[:startIndex], terminationOutcome{
		isLoop:    true,
		target:    nextName,
		seedChain: entryChain,
		seedDeps:  entryDeps,
	})
}

// terminationOutcome carries the values the generic tail-to-head prefix
// rewrite needs once a walk has stopped advancing, whether because it hit a
// concrete terminal, a dead end, a tombstone, or reused a previously
// resolved node's outcome.
type terminationOutcome struct {
	isLoop    bool
	target    FQN // used for the rewritten redirect field when !isLoop
	tombstone bool
	deadEnd   bool
	errorText *string
	seedChain []FQN
	seedDeps  []DeprecationEntry
}

// prefixRewrite implements the "Prefix rewrite" procedure of §4.3: walk
// path from tail to head, accumulating the chain and deprecation list, and
// replace every rewrite-eligible element's routing record wholesale.
func prefixRewrite(catalog Catalog, pt PluginType, path []pathElem, outcome terminationOutcome) *PluginRouting {
	chain := append([]FQN(nil), outcome.seedChain...)
	deprecations := append([]DeprecationEntry(nil), outcome.seedDeps...)

	var startResult *PluginRouting
	for i := len(path) - 1; i >= 0; i-- {
		el := path[i]
		chain = append([]FQN{el.fqn}, chain...)
		if el.routing != nil && el.routing.Deprecation != nil {
			deprecations = append([]DeprecationEntry{{FQN: el.fqn, Removal: *el.routing.Deprecation}}, deprecations...)
		}

		if !el.rewrite {
			continue
		}

		redirect := RedirectTarget(outcome.target)
		if outcome.isLoop {
			redirect = CycleMarker()
		}

		newPR := &PluginRouting{
			ActionPlugin:         el.routing.ActionPlugin,
			Redirect:             redirect,
			RedirectChain:        append([]FQN(nil), chain...),
			RedirectDeprecations: append([]DeprecationEntry(nil), deprecations...),
			RedirectTombstone:    outcome.tombstone,
			RedirectDeadEnd:      outcome.deadEnd,
			RedirectError:        outcome.errorText,
			Deprecation:          el.routing.Deprecation,
			Tombstone:            el.routing.Tombstone,
		}
		catalog[el.bundleFQN].Set(pt, el.pluginName, newPR)
		if i == 0 {
			startResult = newPR
		}
	}

	return startResult
}
