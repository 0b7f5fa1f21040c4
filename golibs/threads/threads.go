// Copyright 2024 The Solaris Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package threads provides the identity of the calling execution thread. The
// identity is used as a key for partitioning state between threads, so the
// only requirements to it are to be comparable and to never collide with the
// None sentinel.
//
// On Linux and Windows the identity is the OS thread id, so a goroutine that
// needs a stable identity must be pinned with runtime.LockOSThread. On other
// platforms the goroutine id is used instead, which makes the identity stable
// for the goroutine regardless of pinning.
package threads

// ID is the identity of an execution thread
type ID int64

// None is the sentinel value, which never matches any real thread identity
const None ID = -1
