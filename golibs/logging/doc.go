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

/*
Package logging provides a simple leveled logging facade. The package exposes
the Logger interface, which is used all over the code for printing messages
into the log. The default implementation writes to the standard output, but it
may be replaced by the SetConfig() call, so another logging backend can be
plugged in without changing the code that writes the messages.
*/
package logging
