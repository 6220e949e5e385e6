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

package plugins

import (
	"sync"

	"github.com/work-obs/ansible-catalog/pkg/routing"
)

// DirectoryCache memoizes DirectoryFor lookups, the same shape as the
// pathCache the original plugin loader kept for its on-disk plugin search
// (a mutex-guarded map keyed by the lookup's inputs), just aimed at a
// lookup that never touches the filesystem.
type DirectoryCache struct {
	mu    sync.RWMutex
	paths map[dirCacheKey]string
}

type dirCacheKey struct {
	bundleFQN  string
	isCore     bool
	pluginType routing.PluginType
}

// NewDirectoryCache returns an empty DirectoryCache.
func NewDirectoryCache() *DirectoryCache {
	return &DirectoryCache{paths: make(map[dirCacheKey]string)}
}

// DirectoryFor is DirectoryFor with memoization of successful lookups.
// Failures (unknown plugin type) are never cached since they carry no
// reusable value and are cheap to recompute.
func (c *DirectoryCache) DirectoryFor(bundleFQN string, isCore bool, pt routing.PluginType) (string, error) {
	key := dirCacheKey{bundleFQN: bundleFQN, isCore: isCore, pluginType: pt}

	c.mu.RLock()
	if dir, ok := c.paths[key]; ok {
		c.mu.RUnlock()
		return dir, nil
	}
	c.mu.RUnlock()

	dir, err := DirectoryFor(bundleFQN, isCore, pt)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.paths[key] = dir
	c.mu.Unlock()

	return dir, nil
}

// Clear empties the cache.
func (c *DirectoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paths = make(map[dirCacheKey]string)
}
