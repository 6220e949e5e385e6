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
	"reflect"
	"testing"
)

func strptr(s string) *string { return &s }

func chainOf(fqns ...string) []FQN {
	out := make([]FQN, len(fqns))
	for i, f := range fqns {
		out[i] = FQN(f)
	}
	return out
}

func newBundle() *BundleRouting {
	return NewBundleRouting()
}

func TestResolveCleanChain(t *testing.T) {
	cat := Catalog{
		"foo.bar": newBundle(),
	}
	cat["foo.bar"].Set(PluginTypeModule, "old_name", &PluginRouting{
		Redirect: RedirectTarget(NewFQN("foo", "bar", "new_name")),
	})
	cat["foo.bar"].Set(PluginTypeModule, "new_name", &PluginRouting{
		Redirect: NoRedirect(),
	})

	if err := CompleteRedirectsForCollection(cat, "foo.bar"); err != nil {
		t.Fatalf("CompleteRedirectsForCollection: %v", err)
	}

	pr, ok := cat["foo.bar"].Lookup(PluginTypeModule, "old_name")
	if !ok {
		t.Fatal("old_name missing after resolution")
	}
	if pr.Redirect.Kind != RedirectTo || pr.Redirect.Target != NewFQN("foo", "bar", "new_name") {
		t.Errorf("redirect = %+v, want RedirectTo new_name", pr.Redirect)
	}
	wantChain := chainOf("foo.bar.old_name", "foo.bar.new_name")
	if !reflect.DeepEqual(pr.RedirectChain, wantChain) {
		t.Errorf("redirect chain = %v, want %v", pr.RedirectChain, wantChain)
	}
	if pr.RedirectTombstone || pr.RedirectDeadEnd || pr.Redirect.IsCycle() {
		t.Errorf("clean chain should not be tombstoned, dead-end, or a cycle: %+v", pr)
	}
}

// TestResolveCrossBundleCycle reproduces a three-member cycle spanning two
// bundles, and checks every member's chain is the rotation starting at
// itself with itself appended again at the tail.
func TestResolveCrossBundleCycle(t *testing.T) {
	cat := Catalog{
		"foo.bar":  newBundle(),
		"baz.qux":  newBundle(),
	}
	cat["foo.bar"].Set(PluginTypeLookup, "loop_1", &PluginRouting{
		Redirect: RedirectTarget(NewFQN("baz", "qux", "loop_2")),
	})
	cat["baz.qux"].Set(PluginTypeLookup, "loop_2", &PluginRouting{
		Redirect: RedirectTarget(NewFQN("baz", "qux", "loop_3")),
	})
	cat["baz.qux"].Set(PluginTypeLookup, "loop_3", &PluginRouting{
		Redirect: RedirectTarget(NewFQN("foo", "bar", "loop_1")),
	})

	if err := CompleteRedirects(cat); err != nil {
		t.Fatalf("CompleteRedirects: %v", err)
	}

	loop1, _ := cat["foo.bar"].Lookup(PluginTypeLookup, "loop_1")
	loop2, _ := cat["baz.qux"].Lookup(PluginTypeLookup, "loop_2")
	loop3, _ := cat["baz.qux"].Lookup(PluginTypeLookup, "loop_3")

	for name, pr := range map[string]*PluginRouting{"loop_1": loop1, "loop_2": loop2, "loop_3": loop3} {
		if !pr.Redirect.IsCycle() {
			t.Errorf("%s: redirect = %+v, want cycle marker", name, pr.Redirect)
		}
		if pr.RedirectError == nil || *pr.RedirectError != errCircularRedirect {
			t.Errorf("%s: redirect error = %v, want %q", name, pr.RedirectError, errCircularRedirect)
		}
	}

	wantLoop1 := chainOf("foo.bar.loop_1", "baz.qux.loop_2", "baz.qux.loop_3", "foo.bar.loop_1")
	wantLoop2 := chainOf("baz.qux.loop_2", "baz.qux.loop_3", "foo.bar.loop_1", "baz.qux.loop_2")
	wantLoop3 := chainOf("baz.qux.loop_3", "foo.bar.loop_1", "baz.qux.loop_2", "baz.qux.loop_3")

	if !reflect.DeepEqual(loop1.RedirectChain, wantLoop1) {
		t.Errorf("loop_1 chain = %v, want %v", loop1.RedirectChain, wantLoop1)
	}
	if !reflect.DeepEqual(loop2.RedirectChain, wantLoop2) {
		t.Errorf("loop_2 chain = %v, want %v", loop2.RedirectChain, wantLoop2)
	}
	if !reflect.DeepEqual(loop3.RedirectChain, wantLoop3) {
		t.Errorf("loop_3 chain = %v, want %v", loop3.RedirectChain, wantLoop3)
	}
}

// TestResolveSelfCycle checks a plugin whose redirect points at itself is
// treated as a one-member cycle.
func TestResolveSelfCycle(t *testing.T) {
	cat := Catalog{"foo.bar": newBundle()}
	cat["foo.bar"].Set(PluginTypeFilter, "self_loop", &PluginRouting{
		Redirect: RedirectTarget(NewFQN("foo", "bar", "self_loop")),
	})

	if err := CompleteRedirects(cat); err != nil {
		t.Fatalf("CompleteRedirects: %v", err)
	}

	pr, _ := cat["foo.bar"].Lookup(PluginTypeFilter, "self_loop")
	if !pr.Redirect.IsCycle() {
		t.Fatalf("redirect = %+v, want cycle marker", pr.Redirect)
	}
	want := chainOf("foo.bar.self_loop", "foo.bar.self_loop")
	if !reflect.DeepEqual(pr.RedirectChain, want) {
		t.Errorf("chain = %v, want %v", pr.RedirectChain, want)
	}
}

// TestResolvePrefixReuse reproduces the "reuse" branch of the per-node
// algorithm: two plugins (pre_loop_1 -> pre_loop_2 -> loop_1) forward into a
// cycle that has already been resolved by a prior call. The prefix nodes
// must pick up the already-resolved node's full chain rather than re-walk
// the cycle themselves.
func TestResolvePrefixReuse(t *testing.T) {
	cat := Catalog{
		"foo.bar": newBundle(),
		"bar.baz": newBundle(),
	}
	cat["foo.bar"].Set(PluginTypeLookup, "loop_1", &PluginRouting{
		Redirect: RedirectTarget(NewFQN("bar", "baz", "loop_2")),
	})
	cat["bar.baz"].Set(PluginTypeLookup, "loop_2", &PluginRouting{
		Redirect: RedirectTarget(NewFQN("bar", "baz", "loop_3")),
	})
	cat["bar.baz"].Set(PluginTypeLookup, "loop_3", &PluginRouting{
		Redirect: RedirectTarget(NewFQN("foo", "bar", "loop_1")),
	})
	cat["foo.bar"].Set(PluginTypeLookup, "pre_loop_2", &PluginRouting{
		Redirect: RedirectTarget(NewFQN("foo", "bar", "loop_1")),
	})
	cat["foo.bar"].Set(PluginTypeLookup, "pre_loop_1", &PluginRouting{
		Redirect: RedirectTarget(NewFQN("foo", "bar", "pre_loop_2")),
	})

	// Resolve the cycle first, in isolation, exactly as a prior
	// CompleteRedirectsForCollection pass over foo.bar (processing loop_1
	// before the pre_loop_* entries) would.
	resolveOne(cat, PluginTypeLookup, "foo.bar", "loop_1")

	loop1, _ := cat["foo.bar"].Lookup(PluginTypeLookup, "loop_1")
	if !loop1.Redirect.IsCycle() {
		t.Fatalf("precondition failed: loop_1 not yet resolved to a cycle: %+v", loop1)
	}

	// Now resolve pre_loop_1, which must walk through pre_loop_2 and reuse
	// loop_1's already-computed outcome instead of re-walking the cycle.
	resolveOne(cat, PluginTypeLookup, "foo.bar", "pre_loop_1")

	preLoop1, _ := cat["foo.bar"].Lookup(PluginTypeLookup, "pre_loop_1")
	preLoop2, _ := cat["foo.bar"].Lookup(PluginTypeLookup, "pre_loop_2")

	if !preLoop1.Redirect.IsCycle() || !preLoop2.Redirect.IsCycle() {
		t.Fatalf("pre_loop_1/pre_loop_2 not marked as cycle members: %+v / %+v", preLoop1, preLoop2)
	}

	wantPreLoop1 := chainOf(
		"foo.bar.pre_loop_1", "foo.bar.pre_loop_2",
		"foo.bar.loop_1", "bar.baz.loop_2", "bar.baz.loop_3", "foo.bar.loop_1",
	)
	wantPreLoop2 := chainOf(
		"foo.bar.pre_loop_2",
		"foo.bar.loop_1", "bar.baz.loop_2", "bar.baz.loop_3", "foo.bar.loop_1",
	)

	if !reflect.DeepEqual(preLoop1.RedirectChain, wantPreLoop1) {
		t.Errorf("pre_loop_1 chain = %v, want %v", preLoop1.RedirectChain, wantPreLoop1)
	}
	if !reflect.DeepEqual(preLoop2.RedirectChain, wantPreLoop2) {
		t.Errorf("pre_loop_2 chain = %v, want %v", preLoop2.RedirectChain, wantPreLoop2)
	}
}

// TestResolveCycleDiscoveredThroughPredecessors exercises handleCycle's
// path[:startIndex] > 0 branch directly: pre_loop_1 is resolved without the
// cycle having been resolved first, so the cycle is *discovered* partway
// through pre_loop_1's own walk rather than reused from an earlier result.
// The resulting chain/deprecations must match TestResolvePrefixReuse's reuse
// path exactly (the §5 determinism invariant), regardless of which order the
// two paths are taken in.
func TestResolveCycleDiscoveredThroughPredecessors(t *testing.T) {
	cat := Catalog{
		"foo.bar": newBundle(),
		"bar.baz": newBundle(),
	}
	cat["foo.bar"].Set(PluginTypeLookup, "loop_1", &PluginRouting{
		Redirect:    RedirectTarget(NewFQN("bar", "baz", "loop_2")),
		Deprecation: &RemovalRecord{WarningText: strptr("loop 1")},
	})
	cat["bar.baz"].Set(PluginTypeLookup, "loop_2", &PluginRouting{
		Redirect: RedirectTarget(NewFQN("bar", "baz", "loop_3")),
	})
	cat["bar.baz"].Set(PluginTypeLookup, "loop_3", &PluginRouting{
		Redirect:    RedirectTarget(NewFQN("foo", "bar", "loop_1")),
		Deprecation: &RemovalRecord{WarningText: strptr("loop 3")},
	})
	cat["foo.bar"].Set(PluginTypeLookup, "pre_loop_2", &PluginRouting{
		Redirect:    RedirectTarget(NewFQN("foo", "bar", "loop_1")),
		Deprecation: &RemovalRecord{WarningText: strptr("pre 2")},
	})
	cat["foo.bar"].Set(PluginTypeLookup, "pre_loop_1", &PluginRouting{
		Redirect: RedirectTarget(NewFQN("foo", "bar", "pre_loop_2")),
	})

	// Resolve pre_loop_1 directly: loop_1 has NOT been resolved yet, so the
	// cycle is discovered mid-walk rather than reused from a prior result.
	resolveOne(cat, PluginTypeLookup, "foo.bar", "pre_loop_1")

	preLoop1, _ := cat["foo.bar"].Lookup(PluginTypeLookup, "pre_loop_1")
	preLoop2, _ := cat["foo.bar"].Lookup(PluginTypeLookup, "pre_loop_2")

	if !preLoop1.Redirect.IsCycle() || !preLoop2.Redirect.IsCycle() {
		t.Fatalf("pre_loop_1/pre_loop_2 not marked as cycle members: %+v / %+v", preLoop1, preLoop2)
	}

	wantPreLoop1Chain := chainOf(
		"foo.bar.pre_loop_1", "foo.bar.pre_loop_2",
		"foo.bar.loop_1", "bar.baz.loop_2", "bar.baz.loop_3", "foo.bar.loop_1",
	)
	if !reflect.DeepEqual(preLoop1.RedirectChain, wantPreLoop1Chain) {
		t.Errorf("pre_loop_1 chain = %v, want %v", preLoop1.RedirectChain, wantPreLoop1Chain)
	}

	wantPreLoop1Deps := []DeprecationEntry{
		{FQN: "foo.bar.pre_loop_2", Removal: RemovalRecord{WarningText: strptr("pre 2")}},
		{FQN: "foo.bar.loop_1", Removal: RemovalRecord{WarningText: strptr("loop 1")}},
		{FQN: "bar.baz.loop_3", Removal: RemovalRecord{WarningText: strptr("loop 3")}},
	}
	if !reflect.DeepEqual(preLoop1.RedirectDeprecations, wantPreLoop1Deps) {
		t.Errorf("pre_loop_1 deprecations = %+v, want %+v", preLoop1.RedirectDeprecations, wantPreLoop1Deps)
	}

	wantPreLoop2Chain := chainOf(
		"foo.bar.pre_loop_2",
		"foo.bar.loop_1", "bar.baz.loop_2", "bar.baz.loop_3", "foo.bar.loop_1",
	)
	if !reflect.DeepEqual(preLoop2.RedirectChain, wantPreLoop2Chain) {
		t.Errorf("pre_loop_2 chain = %v, want %v", preLoop2.RedirectChain, wantPreLoop2Chain)
	}
}

func TestResolveTombstone(t *testing.T) {
	cat := Catalog{"foo.bar": newBundle()}
	cat["foo.bar"].Set(PluginTypeModule, "gone", &PluginRouting{
		Redirect: NoRedirect(),
		Tombstone: &RemovalRecord{
			WarningText:    strptr("use the replacement module instead"),
			RemovalVersion: strptr("3.0.0"),
		},
	})
	cat["foo.bar"].Set(PluginTypeModule, "old_name", &PluginRouting{
		Redirect: RedirectTarget(NewFQN("foo", "bar", "gone")),
	})

	if err := CompleteRedirectsForCollection(cat, "foo.bar"); err != nil {
		t.Fatalf("CompleteRedirectsForCollection: %v", err)
	}

	pr, _ := cat["foo.bar"].Lookup(PluginTypeModule, "old_name")
	if !pr.RedirectTombstone {
		t.Errorf("expected RedirectTombstone=true, got %+v", pr)
	}
	if pr.Redirect.Kind != RedirectTo || pr.Redirect.Target != NewFQN("foo", "bar", "gone") {
		t.Errorf("redirect = %+v, want target=foo.bar.gone", pr.Redirect)
	}
	if len(pr.RedirectDeprecations) != 1 || pr.RedirectDeprecations[0].FQN != NewFQN("foo", "bar", "gone") {
		t.Errorf("redirect deprecations = %+v, want one entry for foo.bar.gone", pr.RedirectDeprecations)
	}
	if pr.RedirectDeprecations[0].Removal.WarningText == nil ||
		*pr.RedirectDeprecations[0].Removal.WarningText != "use the replacement module instead" {
		t.Errorf("tombstone warning text not carried through: %+v", pr.RedirectDeprecations[0].Removal)
	}
}

func TestResolveDeadEndNonFQCN(t *testing.T) {
	cat := Catalog{"foo.bar": newBundle()}
	cat["foo.bar"].Set(PluginTypeFilter, "broken", &PluginRouting{
		Redirect: RedirectTarget(FQN("not_a_valid_fqcn")),
	})

	if err := CompleteRedirectsForCollection(cat, "foo.bar"); err != nil {
		t.Fatalf("CompleteRedirectsForCollection: %v", err)
	}

	pr, _ := cat["foo.bar"].Lookup(PluginTypeFilter, "broken")
	if !pr.RedirectDeadEnd {
		t.Errorf("expected RedirectDeadEnd=true, got %+v", pr)
	}
	if pr.RedirectError == nil {
		t.Error("expected a redirect error describing the non-FQCN target")
	}
}

func TestResolveDeadEndUnknownBundle(t *testing.T) {
	cat := Catalog{"foo.bar": newBundle()}
	cat["foo.bar"].Set(PluginTypeFilter, "broken", &PluginRouting{
		Redirect: RedirectTarget(NewFQN("nosuch", "bundle", "thing")),
	})

	if err := CompleteRedirectsForCollection(cat, "foo.bar"); err != nil {
		t.Fatalf("CompleteRedirectsForCollection: %v", err)
	}

	pr, _ := cat["foo.bar"].Lookup(PluginTypeFilter, "broken")
	if !pr.RedirectDeadEnd {
		t.Errorf("expected RedirectDeadEnd=true, got %+v", pr)
	}
	wantChain := chainOf("foo.bar.broken", "nosuch.bundle.thing")
	if !reflect.DeepEqual(pr.RedirectChain, wantChain) {
		t.Errorf("chain = %v, want %v", pr.RedirectChain, wantChain)
	}
}

func TestNeedsResolutionSkipsResolvedAndAbsent(t *testing.T) {
	if needsResolution(nil) {
		t.Error("nil should never need resolution")
	}
	if needsResolution(&PluginRouting{Redirect: NoRedirect()}) {
		t.Error("absent redirect should never need resolution")
	}
	if needsResolution(&PluginRouting{Redirect: CycleMarker()}) {
		t.Error("already-cycle redirect should never need resolution")
	}
	resolved := &PluginRouting{
		Redirect:      RedirectTarget(NewFQN("a", "b", "c")),
		RedirectChain: chainOf("a.b.c"),
	}
	if needsResolution(resolved) {
		t.Error("a node with a populated chain should not need resolution")
	}
	unresolved := &PluginRouting{Redirect: RedirectTarget(NewFQN("a", "b", "c"))}
	if !needsResolution(unresolved) {
		t.Error("an unresolved forwarding node should need resolution")
	}
}
