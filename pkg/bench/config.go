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
	"encoding/json"
	"fmt"
	"os"

	"github.com/solarisdb/tmalloc/golibs/config"
	"github.com/solarisdb/tmalloc/golibs/logging"
)

type (
	// Config defines the bench driver configuration
	Config struct {
		// Workload contains the scenarios text, see the workload package for the format
		Workload string
		// WorkloadFile points to a file with the scenarios text. If set, it
		// overrides the Workload value
		WorkloadFile string
		// Scenarios is the glob pattern which selects the scenarios to be run
		Scenarios string
		// LogLevel defines the logging verbosity, one of error, warn, info, debug or trace
		LogLevel string
	}
)

// getDefaultConfig returns the default bench config
func getDefaultConfig() *Config {
	return &Config{
		Workload: `
			quick {
				threads 2
				ops 20000
				alloc 16..1024 weight 6
				free weight 3
				realloc 16..1024 weight 1
			}
			mixed {
				threads 8
				ops 100000
				alloc 16..65536 weight 5
				calloc 16..4096 weight 1
				free weight 4
			}
		`,
		Scenarios: "*",
		LogLevel:  "info",
	}
}

// BuildConfig builds the bench config from the defaults, the cfgFile and the
// environment variables, each next source overrides the previous one
func BuildConfig(cfgFile string) (*Config, error) {
	log := logging.NewLogger("bench.ConfigBuilder")
	log.Infof("trying to build config. cfgFile=%s", cfgFile)
	e := config.NewEnricher(*getDefaultConfig())
	fe := config.NewEnricher(Config{})
	err := fe.LoadFromFile(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("could not read data from the file %s: %w", cfgFile, err)
	}
	// overwrite default
	_ = e.ApplyOther(fe)
	_ = e.ApplyEnvVariables("TMALLOC", "_")
	cfg := e.Value()
	return &cfg, nil
}

// WorkloadText returns the workload scenarios text according to the config
func (c *Config) WorkloadText() (string, error) {
	if c.WorkloadFile == "" {
		return c.Workload, nil
	}
	buf, err := os.ReadFile(c.WorkloadFile)
	if err != nil {
		return "", fmt.Errorf("could not read the workload file %s: %w", c.WorkloadFile, err)
	}
	return string(buf), nil
}

// String implements fmt.Stringer interface in a pretty console form
func (c *Config) String() string {
	b, _ := json.MarshalIndent(*c, "", "  ")
	return string(b)
}
