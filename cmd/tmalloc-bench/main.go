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
package main

import (
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	ctx "github.com/solarisdb/tmalloc/golibs/context"
	"github.com/solarisdb/tmalloc/golibs/logging"
	"github.com/solarisdb/tmalloc/pkg/bench"
	"github.com/solarisdb/tmalloc/pkg/version"
)

var logLevels = map[string]logging.Level{
	"error": logging.ERROR,
	"warn":  logging.WARN,
	"info":  logging.INFO,
	"debug": logging.DEBUG,
	"trace": logging.TRACE,
}

func main() {
	var cfgFile, scenarios string

	cmd := &cobra.Command{
		Use:     "tmalloc-bench",
		Short:   "tmalloc-bench exercises the tmalloc allocator by the configured workload scenarios",
		Version: version.BuildVersionString(),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := bench.BuildConfig(cfgFile)
			if err != nil {
				return err
			}
			if scenarios != "" {
				cfg.Scenarios = scenarios
			}
			lvl, ok := logLevels[strings.ToLower(cfg.LogLevel)]
			if !ok {
				return fmt.Errorf("unknown log level %q", cfg.LogLevel)
			}
			logging.SetLevel(lvl)
			return bench.Run(ctx.NewSignalsContext(os.Interrupt, syscall.SIGTERM), cfg)
		},
	}
	cmd.Flags().StringVar(&cfgFile, "config", "", "path to the config file (.json or .yaml)")
	cmd.Flags().StringVar(&scenarios, "scenarios", "", "glob pattern selecting the scenarios to run")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
