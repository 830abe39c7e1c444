// Copyright 2026 The Zoofs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package flags

import (
	"os"

	yaml "gopkg.in/yaml.v2"
)

// fileDefaults is the shape of a -c/--config YAML file: any field left
// unset in the file keeps the package-level default assigned in flags.go,
// and an explicit command-line flag always overrides whatever the file
// supplies, since Parse calls loadConfigFile before it registers the
// flags against their (possibly file-updated) defaults and parses args.
type fileDefaults struct {
	ZooPath           string `yaml:"zooPath"`
	ZooHosts          string `yaml:"zooHosts"`
	ZooAuthScheme     string `yaml:"zooAuthScheme"`
	ZooAuthentication string `yaml:"zooAuthentication"`
	LeafMode          string `yaml:"leafMode"`
	MaxFileSize       int    `yaml:"maxFileSize"`
	LogLevel          string `yaml:"logLevel"`
	LogFormat         string `yaml:"logFormat"`
}

// loadConfigFile reads a YAML file of defaults and assigns any field it
// sets onto the package-level flag variables. Fields absent from the file
// (the zero value for their type) leave the existing default untouched.
func loadConfigFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var fd fileDefaults
	if err := yaml.Unmarshal(data, &fd); err != nil {
		return err
	}
	if fd.ZooPath != "" {
		ZooPath = fd.ZooPath
	}
	if fd.ZooHosts != "" {
		ZooHosts = fd.ZooHosts
	}
	if fd.ZooAuthScheme != "" {
		ZooAuthScheme = fd.ZooAuthScheme
	}
	if fd.ZooAuthentication != "" {
		ZooAuthentication = fd.ZooAuthentication
	}
	if fd.LeafMode != "" {
		if err := LeafMode.Set(fd.LeafMode); err != nil {
			return err
		}
	}
	if fd.MaxFileSize != 0 {
		MaxFileSize = fd.MaxFileSize
	}
	if fd.LogLevel != "" {
		if err := LogLevel.Set(fd.LogLevel); err != nil {
			return err
		}
	}
	if fd.LogFormat != "" {
		LogFormat = fd.LogFormat
	}
	return nil
}
