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

// Package config provides the Enricher - a helper for building configuration
// structures from several sources: compile-time defaults, a JSON or YAML file
// and the environment variables.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/ghodss/yaml"
	"github.com/solarisdb/tmalloc/golibs/errors"
	"github.com/solarisdb/tmalloc/golibs/logging"
)

type (
	// Enricher interface provides some helper functions to work with the configuration
	// structures. It keeps a structure value of the type T and allows to load the value
	// from a file, apply values from another enricher of the same type T, or apply
	// environment variables to the structure fields.
	//
	// The following contract is applied to the type T:
	// - only exported fields are updated
	// - the fields may have the standard json:"..." annotations, they are used for
	//   the file formats and as field aliases for the environment variables
	// - the field names are matched case-insensitively
	Enricher[T any] interface {
		// LoadFromFile allows to load the structure's fields from the YAML or JSON file.
		// Which format is used, is defined by the file extension (.json or .yaml)
		LoadFromFile(fileName string) error

		// ApplyOther applies non-zero fields of the other enricher value on top of the
		// current one
		ApplyOther(other Enricher[T]) error

		// ApplyEnvVariables scans the environment and applies the variables which names
		// start from the prefix. A variable name forms the path to the target field
		// separated by sep, e.g. for ApplyEnvVariables("TMALLOC", "_") the variable
		// TMALLOC_BENCH_THREADS addresses the field Bench.Threads. The values are
		// treated as JSON, a value that is not a valid JSON is applied as a string
		ApplyEnvVariables(prefix, sep string) error

		// Value returns the enricher current value
		Value() T
	}

	enricher[T any] struct {
		log logging.Logger
		val T
	}
)

// NewEnricher constructs new Enricher for the type T initialized by val
func NewEnricher[T any](val T) Enricher[T] {
	if reflect.TypeOf(val).Kind() != reflect.Struct {
		panic(fmt.Sprintf("only structs are acceptable in the Enricher, but got %s", reflect.TypeOf(val).Kind()))
	}
	return &enricher[T]{log: logging.NewLogger("config.Enricher"), val: val}
}

func (e *enricher[T]) LoadFromFile(fileName string) error {
	if fileName == "" {
		e.log.Debugf("LoadFromFile: the file name is not provided, do nothing")
		return nil
	}
	buf, err := os.ReadFile(fileName)
	if err != nil {
		return fmt.Errorf("could not read file %s: %w", fileName, err)
	}
	fn := strings.ToLower(strings.TrimSpace(fileName))
	switch {
	case strings.HasSuffix(fn, ".json"):
		err = json.Unmarshal(buf, &e.val)
	case strings.HasSuffix(fn, ".yaml") || strings.HasSuffix(fn, ".yml"):
		err = yaml.Unmarshal(buf, &e.val)
	default:
		return fmt.Errorf("cannot recognize file format %s, expecting .json or .yaml: %w", fileName, errors.ErrInvalid)
	}
	if err != nil {
		return fmt.Errorf("could not unmarshal file %s: %w", fileName, err)
	}
	return nil
}

func (e *enricher[T]) ApplyOther(other Enricher[T]) error {
	oe, ok := other.(*enricher[T])
	if !ok {
		return fmt.Errorf("unsupported enricher implementation %T: %w", other, errors.ErrInvalid)
	}
	applyNonZero(reflect.ValueOf(&oe.val).Elem(), reflect.ValueOf(&e.val).Elem())
	return nil
}

func (e *enricher[T]) ApplyEnvVariables(prefix, sep string) error {
	pfx := strings.ToUpper(prefix + sep)
	for _, kv := range os.Environ() {
		name, value, _ := strings.Cut(kv, "=")
		if !strings.HasPrefix(strings.ToUpper(name), pfx) {
			continue
		}
		path := strings.Split(name[len(pfx):], sep)
		if err := applyPath(reflect.ValueOf(&e.val).Elem(), path, value); err != nil {
			e.log.Warnf("could not apply the variable %s: %v", name, err)
		} else {
			e.log.Debugf("applied the variable %s", name)
		}
	}
	return nil
}

func (e *enricher[T]) Value() T {
	return e.val
}

// applyNonZero copies the non-zero fields of src over dst. Nested structures
// are merged field by field.
func applyNonZero(src, dst reflect.Value) {
	for i := 0; i < src.NumField(); i++ {
		sf, df := src.Field(i), dst.Field(i)
		if !df.CanSet() || sf.IsZero() {
			continue
		}
		if sf.Kind() == reflect.Struct {
			applyNonZero(sf, df)
			continue
		}
		if sf.Kind() == reflect.Pointer && sf.Elem().Kind() == reflect.Struct && !df.IsNil() {
			applyNonZero(sf.Elem(), df.Elem())
			continue
		}
		df.Set(sf)
	}
}

// applyPath walks the path to the target field and assigns the value to it
func applyPath(v reflect.Value, path []string, value string) error {
	if len(path) == 0 {
		return fmt.Errorf("empty field path: %w", errors.ErrInvalid)
	}
	fv, err := fieldByAlias(v, path[0])
	if err != nil {
		return err
	}
	if fv.Kind() == reflect.Pointer {
		if fv.IsNil() {
			fv.Set(reflect.New(fv.Type().Elem()))
		}
		fv = fv.Elem()
	}
	if len(path) > 1 {
		if fv.Kind() != reflect.Struct {
			return fmt.Errorf("the field %s is not a struct: %w", path[0], errors.ErrInvalid)
		}
		return applyPath(fv, path[1:], value)
	}
	if err := json.Unmarshal([]byte(value), fv.Addr().Interface()); err == nil {
		return nil
	}
	if fv.Kind() != reflect.String {
		return fmt.Errorf("the value %q is not applicable to the field %s: %w", value, path[0], errors.ErrInvalid)
	}
	fv.SetString(value)
	return nil
}

// fieldByAlias finds the struct field by its name or by the first name in its
// json tag. The match is case-insensitive
func fieldByAlias(v reflect.Value, name string) (reflect.Value, error) {
	tp := v.Type()
	for i := 0; i < tp.NumField(); i++ {
		f := tp.Field(i)
		alias, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if strings.EqualFold(f.Name, name) || (alias != "" && strings.EqualFold(alias, name)) {
			return v.Field(i), nil
		}
	}
	return reflect.Value{}, fmt.Errorf("no field %s in the type %s: %w", name, tp, errors.ErrNotExist)
}
