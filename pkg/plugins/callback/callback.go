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

// Package callback reports the outcome of a whole-catalog resolver run. It
// keeps the original callback plugin registry's shape — several
// interchangeable reporters selected by name from a registry — but points
// them at resolution events instead of playbook events: a run over a
// catalog produces one event per plugin whose redirect was completed,
// classified as clean, cycle, dead end, or tombstone.
package callback

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/work-obs/ansible-catalog/pkg/routing"
)

// Outcome classifies how one plugin's redirect resolution finished.
type Outcome string

const (
	OutcomeClean     Outcome = "clean"
	OutcomeCycle     Outcome = "cycle"
	OutcomeDeadEnd   Outcome = "dead_end"
	OutcomeTombstone Outcome = "tombstone"
)

// Event is one plugin's resolved outcome, reported after a
// routing.CompleteRedirects run.
type Event struct {
	Bundle  string
	Type    routing.PluginType
	Plugin  string
	FQN     routing.FQN
	Outcome Outcome
	Chain   []routing.FQN
	Error   string
}

// ClassifyOutcome derives an Event's Outcome from a resolved PluginRouting.
func ClassifyOutcome(pr *routing.PluginRouting) Outcome {
	switch {
	case pr.Redirect.IsCycle():
		return OutcomeCycle
	case pr.RedirectTombstone:
		return OutcomeTombstone
	case pr.RedirectDeadEnd:
		return OutcomeDeadEnd
	default:
		return OutcomeClean
	}
}

// CallbackPlugin is implemented by every reporter: it consumes resolution
// events as they are produced and renders a summary once a run completes.
type CallbackPlugin interface {
	Name() string
	Report(ev Event)
	Summary() string
}

// BaseCallbackPlugin provides the Name() common to every reporter.
type BaseCallbackPlugin struct {
	name string
}

func NewBaseCallbackPlugin(name string) *BaseCallbackPlugin {
	return &BaseCallbackPlugin{name: name}
}

func (b *BaseCallbackPlugin) Name() string {
	return b.name
}

// DefaultCallbackPlugin prints one human-readable line per event.
type DefaultCallbackPlugin struct {
	*BaseCallbackPlugin
	out    io.Writer
	events int
}

func NewDefaultCallbackPlugin(out io.Writer) *DefaultCallbackPlugin {
	return &DefaultCallbackPlugin{
		BaseCallbackPlugin: NewBaseCallbackPlugin("default"),
		out:                out,
	}
}

func (d *DefaultCallbackPlugin) Report(ev Event) {
	d.events++
	switch ev.Outcome {
	case OutcomeClean:
		target := ev.FQN
		if len(ev.Chain) > 0 {
			target = ev.Chain[len(ev.Chain)-1]
		}
		fmt.Fprintf(d.out, "%s: resolved -> %s\n", ev.FQN, target)
	case OutcomeCycle:
		fmt.Fprintf(d.out, "%s: CYCLE: %s\n", ev.FQN, chainString(ev.Chain))
	case OutcomeDeadEnd:
		fmt.Fprintf(d.out, "%s: DEAD END: %s\n", ev.FQN, ev.Error)
	case OutcomeTombstone:
		fmt.Fprintf(d.out, "%s: TOMBSTONE: %s\n", ev.FQN, chainString(ev.Chain))
	}
}

func (d *DefaultCallbackPlugin) Summary() string {
	return fmt.Sprintf("%d plugin(s) resolved", d.events)
}

// MinimalCallbackPlugin emits one progress character per event: "." clean,
// "C" cycle, "D" dead end, "T" tombstone.
type MinimalCallbackPlugin struct {
	*BaseCallbackPlugin
	out    io.Writer
	counts map[Outcome]int
}

func NewMinimalCallbackPlugin(out io.Writer) *MinimalCallbackPlugin {
	return &MinimalCallbackPlugin{
		BaseCallbackPlugin: NewBaseCallbackPlugin("minimal"),
		out:                out,
		counts:             make(map[Outcome]int),
	}
}

func (m *MinimalCallbackPlugin) Report(ev Event) {
	m.counts[ev.Outcome]++
	switch ev.Outcome {
	case OutcomeClean:
		fmt.Fprint(m.out, ".")
	case OutcomeCycle:
		fmt.Fprint(m.out, "C")
	case OutcomeDeadEnd:
		fmt.Fprint(m.out, "D")
	case OutcomeTombstone:
		fmt.Fprint(m.out, "T")
	}
}

func (m *MinimalCallbackPlugin) Summary() string {
	return fmt.Sprintf("clean=%d cycle=%d dead_end=%d tombstone=%d",
		m.counts[OutcomeClean], m.counts[OutcomeCycle], m.counts[OutcomeDeadEnd], m.counts[OutcomeTombstone])
}

// JsonCallbackPlugin accumulates every event and renders them as a JSON
// array on Summary.
type JsonCallbackPlugin struct {
	*BaseCallbackPlugin
	events []Event
}

func NewJsonCallbackPlugin() *JsonCallbackPlugin {
	return &JsonCallbackPlugin{BaseCallbackPlugin: NewBaseCallbackPlugin("json")}
}

func (j *JsonCallbackPlugin) Report(ev Event) {
	j.events = append(j.events, ev)
}

type jsonEvent struct {
	Bundle  string   `json:"bundle"`
	Type    string   `json:"type"`
	Plugin  string   `json:"plugin"`
	FQN     string   `json:"fqn"`
	Outcome string   `json:"outcome"`
	Chain   []string `json:"chain,omitempty"`
	Error   string   `json:"error,omitempty"`
}

func (j *JsonCallbackPlugin) Summary() string {
	out := make([]jsonEvent, 0, len(j.events))
	for _, ev := range j.events {
		chain := make([]string, len(ev.Chain))
		for i, fqn := range ev.Chain {
			chain[i] = string(fqn)
		}
		out = append(out, jsonEvent{
			Bundle:  ev.Bundle,
			Type:    string(ev.Type),
			Plugin:  ev.Plugin,
			FQN:     string(ev.FQN),
			Outcome: string(ev.Outcome),
			Chain:   chain,
			Error:   ev.Error,
		})
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "[]"
	}
	return string(data)
}

// JunitCallbackPlugin renders resolution events as a JUnit test-suite
// document: clean resolutions are passing test cases, cycle/dead-end
// outcomes are failures, tombstones are skipped — mapping run outcomes onto
// test-report semantics the way the original JUnit callback mapped
// play-recap outcomes.
type JunitCallbackPlugin struct {
	*BaseCallbackPlugin
	testCases []JunitTestCase
}

type JunitTestCase struct {
	Name    string  `xml:"name,attr"`
	Failure *string `xml:"failure,omitempty"`
	Skipped *string `xml:"skipped,omitempty"`
}

type junitTestSuite struct {
	XMLName  xml.Name        `xml:"testsuite"`
	Tests    int             `xml:"tests,attr"`
	Failures int             `xml:"failures,attr"`
	Skipped  int             `xml:"skipped,attr"`
	Cases    []JunitTestCase `xml:"testcase"`
}

func NewJunitCallbackPlugin() *JunitCallbackPlugin {
	return &JunitCallbackPlugin{BaseCallbackPlugin: NewBaseCallbackPlugin("junit")}
}

func (j *JunitCallbackPlugin) Report(ev Event) {
	tc := JunitTestCase{Name: string(ev.FQN)}
	switch ev.Outcome {
	case OutcomeCycle:
		msg := chainString(ev.Chain)
		tc.Failure = &msg
	case OutcomeDeadEnd:
		msg := ev.Error
		tc.Failure = &msg
	case OutcomeTombstone:
		msg := "tombstoned"
		tc.Skipped = &msg
	}
	j.testCases = append(j.testCases, tc)
}

func (j *JunitCallbackPlugin) Summary() string {
	suite := junitTestSuite{Tests: len(j.testCases), Cases: j.testCases}
	for _, tc := range j.testCases {
		if tc.Failure != nil {
			suite.Failures++
		}
		if tc.Skipped != nil {
			suite.Skipped++
		}
	}
	data, err := xml.MarshalIndent(suite, "", "  ")
	if err != nil {
		return ""
	}
	return string(data)
}

func chainString(chain []routing.FQN) string {
	parts := make([]string, len(chain))
	for i, fqn := range chain {
		parts[i] = string(fqn)
	}
	return strings.Join(parts, " -> ")
}

// CallbackPluginRegistry manages reporter registration and creation by name.
type CallbackPluginRegistry struct {
	plugins map[string]func(io.Writer) CallbackPlugin
}

// NewCallbackPluginRegistry returns a registry pre-populated with the four
// built-in reporters.
func NewCallbackPluginRegistry() *CallbackPluginRegistry {
	registry := &CallbackPluginRegistry{
		plugins: make(map[string]func(io.Writer) CallbackPlugin),
	}

	registry.Register("default", func(w io.Writer) CallbackPlugin { return NewDefaultCallbackPlugin(w) })
	registry.Register("minimal", func(w io.Writer) CallbackPlugin { return NewMinimalCallbackPlugin(w) })
	registry.Register("json", func(w io.Writer) CallbackPlugin { return NewJsonCallbackPlugin() })
	registry.Register("junit", func(w io.Writer) CallbackPlugin { return NewJunitCallbackPlugin() })

	return registry
}

func (r *CallbackPluginRegistry) Register(name string, creator func(io.Writer) CallbackPlugin) {
	r.plugins[name] = creator
}

func (r *CallbackPluginRegistry) Get(name string, w io.Writer) (CallbackPlugin, error) {
	creator, exists := r.plugins[name]
	if !exists {
		return nil, fmt.Errorf("callback plugin %q not found", name)
	}
	return creator(w), nil
}

func (r *CallbackPluginRegistry) Exists(name string) bool {
	_, exists := r.plugins[name]
	return exists
}

func (r *CallbackPluginRegistry) List() []string {
	names := make([]string, 0, len(r.plugins))
	for name := range r.plugins {
		names = append(names, name)
	}
	return names
}
