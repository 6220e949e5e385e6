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

package galaxycache

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/work-obs/ansible-catalog/pkg/galaxy"
)

// cachedInvocation is what gets marshaled into a Cache entry: the three
// values a galaxy.Runner invocation produces, so a cache hit can replay
// them without re-executing the subprocess.
type cachedInvocation struct {
	Stdout   []byte `json:"stdout"`
	Stderr   []byte `json:"stderr"`
	ExitCode int    `json:"exit_code"`
}

// CachingRunner wraps a galaxy.Runner, serving repeated "collection list"
// invocations (the expensive one: it shells out to ansible-galaxy and
// parses its full output) from cache within ttl. "--version" and other
// lightweight invocations are always run live.
type CachingRunner struct {
	Inner galaxy.Runner
	Cache Cache
	TTL   time.Duration
}

// NewCachingRunner wraps runner with cache, caching "collection list"
// invocations for ttl.
func NewCachingRunner(runner galaxy.Runner, cache Cache, ttl time.Duration) *CachingRunner {
	return &CachingRunner{Inner: runner, Cache: cache, TTL: ttl}
}

func (r *CachingRunner) Run(ctx context.Context, name string, args []string, env []string) ([]byte, []byte, int, error) {
	if !isCollectionListing(args) {
		return r.Inner.Run(ctx, name, args, env)
	}

	key := Key(name, strings.Join(args, " "), strings.Join(env, "\x00"))

	if cached, ok := r.Cache.Get(key); ok {
		var inv cachedInvocation
		if err := json.Unmarshal(cached, &inv); err == nil {
			return inv.Stdout, inv.Stderr, inv.ExitCode, nil
		}
	}

	stdout, stderr, exitCode, err := r.Inner.Run(ctx, name, args, env)
	if err != nil {
		return stdout, stderr, exitCode, err
	}

	if data, mErr := json.Marshal(cachedInvocation{Stdout: stdout, Stderr: stderr, ExitCode: exitCode}); mErr == nil {
		r.Cache.Set(key, data, r.TTL)
	}

	return stdout, stderr, exitCode, nil
}

func isCollectionListing(args []string) bool {
	return len(args) >= 2 && args[0] == "collection" && args[1] == "list"
}
