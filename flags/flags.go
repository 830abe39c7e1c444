// Copyright 2026 The Zoofs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package flags defines the command-line flags for the zoofusefs binary,
// grounded on upspin's flags package (in particular its logFlag pattern of
// wrapping a flag.Value around a package-level setter).
package flags

import (
	"flag"
	"fmt"
	"strings"

	"zoofs.io/classifier"
	"zoofs.io/log"
)

// Package-level flag variables, populated by Parse.
var (
	// ZooPath is the store path to mount (-f/--zooPath).
	ZooPath = "/"

	// ZooHosts is the comma-separated list of store host:port pairs
	// (-s/--zooHosts).
	ZooHosts = "localhost:2181"

	// ZooAuthScheme is the auth scheme submitted on connect, empty to
	// skip authentication (-A/--zooAuthScheme).
	ZooAuthScheme = ""

	// ZooAuthentication is the auth token submitted on connect
	// (-a/--zooAuthentication).
	ZooAuthentication = ""

	// MaxFileSize is the write-side content size limit, in bytes
	// (-m/--maxFileSize). Default 256 KiB per spec.md §6.
	MaxFileSize = 256 * 1024

	// ConfigFile optionally names a YAML file supplying defaults for any
	// of the above (-c/--config).
	ConfigFile = ""

	// LogFormat selects the log backend: "text" for the stdio backend or
	// "structured" for the logrus categorized appender (--logFormat).
	LogFormat = "text"

	// LeafMode is the tri-valued leaf classification policy
	// (-l/--leafMode). The default is DIR; unknown values map to HYBRID.
	LeafMode leafModeFlag = leafModeFlag(classifier.LeafAsDir)

	// LogLevel is the logging verbosity (-d/--logLevel).
	LogLevel logLevelFlag = "INFO"

	// MountPoint is the local directory to mount onto, the sole
	// positional argument.
	MountPoint string
)

type leafModeFlag classifier.LeafMode

func (l *leafModeFlag) String() string {
	return classifier.LeafMode(*l).String()
}

func (l *leafModeFlag) Set(s string) error {
	*l = leafModeFlag(classifier.ParseLeafMode(s))
	return nil
}

// Value returns the parsed LeafMode.
func (l leafModeFlag) Value() classifier.LeafMode {
	return classifier.LeafMode(l)
}

type logLevelFlag string

func (f *logLevelFlag) String() string {
	return string(*f)
}

func (f *logLevelFlag) Set(s string) error {
	if err := log.SetLevel(s); err != nil {
		return err
	}
	*f = logLevelFlag(log.GetLevel())
	return nil
}

// Parse applies any defaults found in a -c/--config file named in args,
// registers every flag described above on fs with those defaults, and
// parses args. A config file is consulted ahead of the main flag
// definitions so its values act as defaults rather than requiring a
// particular argument order on the command line.
func Parse(fs *flag.FlagSet, args []string) error {
	if cfg := prescanConfigFile(args); cfg != "" {
		if err := loadConfigFile(cfg); err != nil {
			return fmt.Errorf("flags: %w", err)
		}
		ConfigFile = cfg
	}

	fs.StringVar(&ZooPath, "zooPath", ZooPath, "store `path` to mount")
	fs.StringVar(&ZooPath, "f", ZooPath, "shorthand for --zooPath")
	fs.StringVar(&ZooHosts, "zooHosts", ZooHosts, "comma-separated store `hosts`")
	fs.StringVar(&ZooHosts, "s", ZooHosts, "shorthand for --zooHosts")
	fs.StringVar(&ZooAuthScheme, "zooAuthScheme", ZooAuthScheme, "auth `scheme`, empty to skip authentication")
	fs.StringVar(&ZooAuthScheme, "A", ZooAuthScheme, "shorthand for --zooAuthScheme")
	fs.StringVar(&ZooAuthentication, "zooAuthentication", ZooAuthentication, "auth `token`")
	fs.StringVar(&ZooAuthentication, "a", ZooAuthentication, "shorthand for --zooAuthentication")
	fs.Var(&LeafMode, "leafMode", "leaf classification `mode`: DIR, FILE, or HYBRID")
	fs.Var(&LeafMode, "l", "shorthand for --leafMode")
	fs.IntVar(&MaxFileSize, "maxFileSize", MaxFileSize, "maximum writable content size in `bytes`")
	fs.IntVar(&MaxFileSize, "m", MaxFileSize, "shorthand for --maxFileSize")
	fs.Var(&LogLevel, "logLevel", "logging `level`: ERROR, WARNING, INFO, DEBUG, TRACE")
	fs.Var(&LogLevel, "d", "shorthand for --logLevel")
	fs.StringVar(&LogFormat, "logFormat", LogFormat, "log `backend`: text (stdio) or structured (logrus)")
	fs.StringVar(&ConfigFile, "config", ConfigFile, "`file` of YAML defaults for the flags above")
	fs.StringVar(&ConfigFile, "c", ConfigFile, "shorthand for --config")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("flags: expected exactly one mount point argument, got %d", fs.NArg())
	}
	MountPoint = fs.Arg(0)
	return nil
}

// prescanConfigFile looks for a -c/--config or -c=.../--config=... value in
// args without registering or consuming any other flag, so that a config
// file's values can seed the defaults Parse later hands to fs.
func prescanConfigFile(args []string) string {
	for i := 0; i < len(args); i++ {
		a := args[i]
		for _, prefix := range []string{"--config=", "-config=", "-c="} {
			if strings.HasPrefix(a, prefix) {
				return a[len(prefix):]
			}
		}
		if a == "--config" || a == "-config" || a == "-c" {
			if i+1 < len(args) {
				return args[i+1]
			}
		}
	}
	return ""
}
