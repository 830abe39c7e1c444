// Copyright 2026 The Zoofs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package session implements the process-wide Session: the singleton
// owning the store handle, the connection barrier, the mount's
// configuration, and the classification memory and symlink registry that
// depend on it. It is grounded on the lifecycle of upspin's cmd/dfuse
// upspinFs (connect once, cache the handle, tear down on unmount) combined
// with an explicit connect/add_auth/block sequence on first use.
package session

import (
	"sync"

	"zoofs.io/classifier"
	"zoofs.io/log"
	"zoofs.io/pathresolver"
	"zoofs.io/store"
	"zoofs.io/symlinks"
)

// Config holds the Session's mount-time configuration, immutable for the
// life of the mount.
type Config struct {
	Hosts       []string
	AuthScheme  string
	AuthToken   string
	RootPath    string
	LeafMode    classifier.LeafMode
	MaxFileSize int
}

// Session is the process-wide singleton for a mount: created once at
// mount, torn down at unmount. The store handle is lazily initialized on
// first use (Handle) and retained until Close.
type Session struct {
	cfg    Config
	client store.Client

	resolver   *pathresolver.Resolver
	classifier *classifier.Classifier
	memory     *classifier.Memory
	symlinks   *symlinks.Registry

	connectOnce sync.Once
	connectErr  error

	barrier     chan struct{}
	barrierOnce sync.Once
}

// New constructs a Session. It does not connect; the first call to
// Handle performs the connection barrier.
func New(cfg Config, client store.Client) *Session {
	var memory *classifier.Memory
	if cfg.LeafMode == classifier.LeafAsHybrid {
		memory = classifier.NewMemory()
	}
	s := &Session{
		cfg:        cfg,
		client:     client,
		resolver:   pathresolver.New(cfg.RootPath, cfg.LeafMode),
		classifier: classifier.New(cfg.LeafMode, memory),
		memory:     memory,
		barrier:    make(chan struct{}),
	}
	s.symlinks = symlinks.New(client, normalizeRoot(cfg.RootPath))
	return s
}

func normalizeRoot(root string) string {
	if root == "/" {
		return ""
	}
	return root
}

// Handle returns the connected store client, blocking on first call until
// the global watcher delivers a connected notification. Subsequent calls
// return immediately with the cached handle (or the cached connect error).
func (s *Session) Handle() (store.Client, error) {
	s.connectOnce.Do(func() {
		log.Info.Printf("session: connecting to %v", s.cfg.Hosts)
		if err := s.client.Connect(s.cfg.Hosts, s.globalWatcher); err != nil {
			s.connectErr = err
			s.barrierOnce.Do(func() { close(s.barrier) })
			return
		}
		if s.cfg.AuthScheme != "" {
			if err := s.client.AddAuth(s.cfg.AuthScheme, s.cfg.AuthToken); err != nil {
				log.Error.Printf("session: add_auth(%s) failed: %v", s.cfg.AuthScheme, err)
			}
		}
	})
	<-s.barrier
	if s.connectErr != nil {
		return nil, s.connectErr
	}
	return s.client, nil
}

// globalWatcher is installed once, at Connect time, and serves two
// duties: releasing the connection barrier on the first connected
// notification, and invalidating the symlink registry when its sidecar's
// watched data changes.
func (s *Session) globalWatcher(ev store.Event) {
	switch ev.Type {
	case store.EventSessionState:
		if ev.State == store.StateConnected {
			s.barrierOnce.Do(func() { close(s.barrier) })
		}
	case store.EventDataChanged, store.EventDeleted, store.EventChildChanged:
		if ev.Path == s.symlinks.SidecarPath() {
			log.Debug.Printf("session: symlink sidecar %q changed, marking stale", ev.Path)
			s.symlinks.MarkStale()
		}
	}
}

// Close tears down the store handle. Errors are logged, never raised.
func (s *Session) Close() {
	if err := s.client.Close(); err != nil {
		log.Error.Printf("session: close: %v", err)
	}
}

// Config returns the Session's configuration.
func (s *Session) Config() Config {
	return s.cfg
}

// Resolver returns the PathResolver bound to this Session's root and leaf
// mode.
func (s *Session) Resolver() *pathresolver.Resolver {
	return s.resolver
}

// Classifier returns the NodeClassifier bound to this Session's leaf mode
// and classification memory.
func (s *Session) Classifier() *classifier.Classifier {
	return s.classifier
}

// Memory returns the HYBRID classification memory, or nil in the other
// leaf modes.
func (s *Session) Memory() *classifier.Memory {
	return s.memory
}

// Symlinks returns the SymlinkRegistry. Outside LEAF_AS_HYBRID it exists
// but is never refreshed, so it stays empty.
func (s *Session) Symlinks() *symlinks.Registry {
	return s.symlinks
}
