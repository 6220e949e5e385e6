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
	"testing"
	"time"

	"github.com/spf13/afero"
)

func TestMemoryCacheSetGetAndExpiry(t *testing.T) {
	c := NewMemoryCache()
	c.Set("key", []byte("value"), 0)
	v, ok := c.Get("key")
	if !ok || string(v) != "value" {
		t.Fatalf("Get() = %q, %v; want value, true", v, ok)
	}

	c.Set("expiring", []byte("stale"), -time.Second)
	if _, ok := c.Get("expiring"); ok {
		t.Error("expected an already-expired entry to report a miss")
	}
}

func TestMemoryCacheFlush(t *testing.T) {
	c := NewMemoryCache()
	c.Set("a", []byte("1"), 0)
	c.Set("b", []byte("2"), 0)
	c.Flush()
	if _, ok := c.Get("a"); ok {
		t.Error("expected Flush to clear all entries")
	}
	if _, ok := c.Get("b"); ok {
		t.Error("expected Flush to clear all entries")
	}
}

func TestFileCacheSetGetAndExpiry(t *testing.T) {
	fs := afero.NewMemMapFs()
	c := NewFileCache(fs, "/cache")
	c.Set("key", []byte("value"), time.Hour)

	v, ok := c.Get("key")
	if !ok || string(v) != "value" {
		t.Fatalf("Get() = %q, %v; want value, true", v, ok)
	}

	c.Set("expiring", []byte("stale"), -time.Second)
	if _, ok := c.Get("expiring"); ok {
		t.Error("expected an already-expired entry to report a miss")
	}
}

func TestFileCacheFlush(t *testing.T) {
	fs := afero.NewMemMapFs()
	c := NewFileCache(fs, "/cache")
	c.Set("a", []byte("1"), 0)
	c.Set("b", []byte("2"), 0)
	c.Flush()

	if _, ok := c.Get("a"); ok {
		t.Error("expected Flush to remove cached files")
	}
	entries, _ := afero.ReadDir(fs, "/cache")
	if len(entries) != 0 {
		t.Errorf("expected no files left in cache dir, got %d", len(entries))
	}
}

func TestKeyIsDeterministicAndDistinguishesParts(t *testing.T) {
	k1 := Key("ansible-galaxy", "/a")
	k2 := Key("ansible-galaxy", "/a")
	k3 := Key("ansible-galaxy", "/b")
	if k1 != k2 {
		t.Error("Key() should be deterministic for identical inputs")
	}
	if k1 == k3 {
		t.Error("Key() should differ for different inputs")
	}
}
