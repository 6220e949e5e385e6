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

import "testing"

func TestFQNSplit(t *testing.T) {
	ns, bundle, plugin, ok := FQN("foo.bar.baz").Split()
	if !ok || ns != "foo" || bundle != "bar" || plugin != "baz" {
		t.Errorf("Split() = %q, %q, %q, %v; want foo, bar, baz, true", ns, bundle, plugin, ok)
	}

	if _, _, _, ok := FQN("not_an_fqcn").Split(); ok {
		t.Error("Split() on a single-component string should fail")
	}
	if _, _, _, ok := FQN("too.many.dots.here").Split(); ok {
		t.Error("Split() on a four-component string should fail")
	}
}

func TestFQNBundleFQN(t *testing.T) {
	if got := FQN("foo.bar.baz").BundleFQN(); got != "foo.bar" {
		t.Errorf("BundleFQN() = %q, want foo.bar", got)
	}
	if got := FQN("malformed").BundleFQN(); got != "" {
		t.Errorf("BundleFQN() on malformed FQN = %q, want empty string", got)
	}
}

func TestNewFQN(t *testing.T) {
	if got := NewFQN("foo", "bar", "baz"); got != FQN("foo.bar.baz") {
		t.Errorf("NewFQN() = %q, want foo.bar.baz", got)
	}
}

func TestCanonicalPluginTypeLabel(t *testing.T) {
	if pt, ok := CanonicalPluginTypeLabel("modules"); !ok || pt != PluginTypeModule {
		t.Errorf("CanonicalPluginTypeLabel(modules) = %q, %v; want module, true", pt, ok)
	}
	if pt, ok := CanonicalPluginTypeLabel("lookup"); !ok || pt != PluginTypeLookup {
		t.Errorf("CanonicalPluginTypeLabel(lookup) = %q, %v; want lookup, true", pt, ok)
	}
	if _, ok := CanonicalPluginTypeLabel("not_a_real_type"); ok {
		t.Error("CanonicalPluginTypeLabel should reject unknown labels")
	}
}

func TestRedirectConstructors(t *testing.T) {
	if r := NoRedirect(); !r.IsAbsent() || r.IsCycle() {
		t.Errorf("NoRedirect() = %+v", r)
	}
	if r := CycleMarker(); r.IsAbsent() || !r.IsCycle() {
		t.Errorf("CycleMarker() = %+v", r)
	}
	target := FQN("foo.bar.baz")
	r := RedirectTarget(target)
	if r.IsAbsent() || r.IsCycle() || r.Target != target {
		t.Errorf("RedirectTarget(%q) = %+v", target, r)
	}
}

func TestPluginRoutingResolvedAndHasOutcome(t *testing.T) {
	var nilPR *PluginRouting
	if !nilPR.Resolved() {
		t.Error("nil PluginRouting should report Resolved() == true")
	}
	if nilPR.HasOutcome() {
		t.Error("nil PluginRouting should report HasOutcome() == false")
	}

	unresolved := &PluginRouting{Redirect: RedirectTarget(FQN("a.b.c"))}
	if unresolved.Resolved() {
		t.Error("a forwarding node with no chain yet should not be Resolved()")
	}

	errText := "Detected circular redirect"
	cyclic := &PluginRouting{Redirect: CycleMarker(), RedirectChain: chainOf("a.b.c", "a.b.c"), RedirectError: &errText}
	if !cyclic.Resolved() || !cyclic.HasOutcome() {
		t.Errorf("a cycle-terminated node should report Resolved() and HasOutcome() true, got %+v", cyclic)
	}

	clean := &PluginRouting{Redirect: RedirectTarget(FQN("a.b.d")), RedirectChain: chainOf("a.b.c", "a.b.d")}
	if !clean.Resolved() {
		t.Error("a node with a populated chain should be Resolved()")
	}
	if clean.HasOutcome() {
		t.Error("a clean terminal redirect should not report HasOutcome()")
	}
}

func TestBundleRoutingLookupAndSet(t *testing.T) {
	br := NewBundleRouting()
	if _, ok := br.Lookup(PluginTypeModule, "missing"); ok {
		t.Error("Lookup on empty BundleRouting should report not found")
	}
	pr := &PluginRouting{Redirect: NoRedirect()}
	br.Set(PluginTypeModule, "thing", pr)
	got, ok := br.Lookup(PluginTypeModule, "thing")
	if !ok || got != pr {
		t.Errorf("Lookup after Set = %+v, %v; want the same pointer back", got, ok)
	}
}
