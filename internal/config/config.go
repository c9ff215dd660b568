// Copyright 2025 The Etc2 Authors.
//
// Licensed under the Apache License, Version 2.0 <LICENSE-APACHE or
// https://www.apache.org/licenses/LICENSE-2.0>. This file may not be copied,
// modified, or distributed except according to those terms.
//
// SPDX-License-Identifier: Apache-2.0

// ----------------

// Package config loads etc1pack's optional YAML configuration file:
//
//	quality: slow
//	dithering: true
//	workers: 8
//	resize_pow2: false
//	zstd: false
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/nigeltao/etc1/lib/etc1"
	"gopkg.in/yaml.v3"
)

var ErrBadWorkers = errors.New("config: bad workers")

// Config holds the encoding settings. The command line flags, when given,
// override these values.
type Config struct {
	Quality    etc1.Quality
	Dithering  bool
	Workers    int
	ResizePow2 bool
	Zstd       bool
}

// Default returns the settings used when there is no configuration file.
func Default() Config {
	return Config{
		Quality: etc1.QualityNormal,
		Workers: runtime.GOMAXPROCS(0),
	}
}

type fileConfig struct {
	Quality    *string `yaml:"quality"`
	Dithering  *bool   `yaml:"dithering"`
	Workers    *int    `yaml:"workers"`
	ResizePow2 *bool   `yaml:"resize_pow2"`
	Zstd       *bool   `yaml:"zstd"`
}

// Load reads the configuration file at path. An empty path means Default.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %q: %w", path, err)
	}
	c, err := Parse(raw)
	if err != nil {
		return Config{}, fmt.Errorf("parse config %q: %w", path, err)
	}
	return c, nil
}

// Parse decodes YAML configuration. Keys that are absent keep their Default
// values and unknown keys are an error.
func Parse(raw []byte) (Config, error) {
	c := Default()
	f := fileConfig{}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return Config{}, err
	}

	if f.Quality != nil {
		q, err := etc1.ParseQuality(*f.Quality)
		if err != nil {
			return Config{}, err
		}
		c.Quality = q
	}
	if f.Dithering != nil {
		c.Dithering = *f.Dithering
	}
	if f.Workers != nil {
		if *f.Workers <= 0 {
			return Config{}, ErrBadWorkers
		}
		c.Workers = *f.Workers
	}
	if f.ResizePow2 != nil {
		c.ResizePow2 = *f.ResizePow2
	}
	if f.Zstd != nil {
		c.Zstd = *f.Zstd
	}
	return c, nil
}
