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
package bench

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/solarisdb/tmalloc/pkg/bench/workload"
	"github.com/stretchr/testify/assert"
)

func TestBuildConfigDefaults(t *testing.T) {
	cfg, err := BuildConfig("")
	assert.Nil(t, err)
	assert.Equal(t, "*", cfg.Scenarios)
	assert.Equal(t, "info", cfg.LogLevel)

	// the default workload must be parseable
	text, err := cfg.WorkloadText()
	assert.Nil(t, err)
	wl, err := workload.Parse(text)
	assert.Nil(t, err)
	assert.Len(t, wl.Scenarios, 2)
}

func TestBuildConfigFromFile(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "cfg.yaml")
	assert.Nil(t, os.WriteFile(fn, []byte("Scenarios: quick\nLogLevel: debug\n"), 0644))

	cfg, err := BuildConfig(fn)
	assert.Nil(t, err)
	assert.Equal(t, "quick", cfg.Scenarios)
	assert.Equal(t, "debug", cfg.LogLevel)
	// the fields not present in the file keep the defaults
	assert.NotEqual(t, "", cfg.Workload)

	_, err = BuildConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.NotNil(t, err)
}

func TestConfigWorkloadFile(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "wl.txt")
	assert.Nil(t, os.WriteFile(fn, []byte("s { alloc 1 }"), 0644))

	cfg := &Config{Workload: "ignored { alloc 1 }", WorkloadFile: fn}
	text, err := cfg.WorkloadText()
	assert.Nil(t, err)
	assert.Equal(t, "s { alloc 1 }", text)

	cfg.WorkloadFile = filepath.Join(t.TempDir(), "absent")
	_, err = cfg.WorkloadText()
	assert.NotNil(t, err)
}

func TestConfigString(t *testing.T) {
	cfg := getDefaultConfig()
	assert.Contains(t, cfg.String(), "Scenarios")
}
