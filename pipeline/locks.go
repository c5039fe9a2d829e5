// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pipeline

import "sync"

// topicLocks hands out one RWMutex per topic. Generate runs take the write
// lock, searches the read lock, so a search never observes a half-indexed batch.
type topicLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.RWMutex
}

func newTopicLocks() *topicLocks {
	return &topicLocks{locks: make(map[string]*sync.RWMutex)}
}

func (t *topicLocks) get(topic string) *sync.RWMutex {
	t.mu.Lock()
	defer t.mu.Unlock()

	l, ok := t.locks[topic]
	if !ok {
		l = &sync.RWMutex{}
		t.locks[topic] = l
	}
	return l
}
