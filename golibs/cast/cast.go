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

// Package cast contains utility functions for turning pointers to values and
// values to the pointers of the values.
package cast

// Value is a generic function which allows to turn a pointer to the value of the ptr, or to the
// def, if the pointer is nil
func Value[T any](v *T, def T) T {
	if v != nil {
		return *v
	}
	return def
}

// Ptr is a generic function, which returns pointer to the type provided (v)
func Ptr[T any](v T) *T {
	return &v
}
