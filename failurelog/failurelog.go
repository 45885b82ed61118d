// This code was adapted from https://github.com/dapr/kit/tree/v0.15.4/
// Copyright (C) 2023 The Dapr Authors
// License: Apache2

// Package failurelog keeps a record of the recent failures of event actions, keyed by the event's label.
// Entries expire after a retention period and are periodically purged in background.
package failurelog

import (
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/alphadose/haxmap"
	kclock "k8s.io/utils/clock"
)

// Entry contains the failures recorded for an event.
type Entry struct {
	// Label of the event
	Label string `json:"label"`
	// Number of failures recorded since the entry was created
	Count int `json:"count"`
	// Message of the last error
	LastError string `json:"lastError"`
	// Time of the first failure
	FirstSeen time.Time `json:"firstSeen"`
	// Time of the last failure
	LastSeen time.Time `json:"lastSeen"`

	exp time.Time
}

// Log records recent failures.
// Record is meant to be invoked by the goroutine that drains the event loop, while all other methods are safe for concurrent use.
type Log struct {
	m         *haxmap.Map[string, Entry]
	clock     kclock.WithTicker
	retention time.Duration
	stopped   atomic.Bool
	runningCh chan struct{}
	stopCh    chan struct{}
}

// Options are options for New.
type Options struct {
	// How long an entry is kept after the last failure.
	// This is optional, and defaults to 10 minutes.
	Retention time.Duration

	// Interval to purge expired entries.
	// This is optional, and defaults to 1 minute.
	CleanupInterval time.Duration

	// Internal clock property, used for testing
	clock kclock.WithTicker
}

// New returns a new Log and starts the background cleanup.
func New(opts *Options) *Log {
	if opts == nil {
		opts = &Options{}
	}
	if opts.Retention <= 0 {
		opts.Retention = 10 * time.Minute
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = time.Minute
	}
	if opts.clock == nil {
		opts.clock = kclock.RealClock{}
	}

	l := &Log{
		m:         haxmap.New[string, Entry](),
		clock:     opts.clock,
		retention: opts.Retention,
		stopCh:    make(chan struct{}),
	}
	l.startBackgroundCleanup(opts.CleanupInterval)

	return l
}

// Record a failure for the event with the given label.
// If there's an unexpired entry for the label, it's updated and its expiration is extended.
func (l *Log) Record(label string, err error) {
	now := l.clock.Now()

	e, ok := l.m.Get(label)
	if !ok || !e.exp.After(now) {
		e = Entry{
			Label:     label,
			FirstSeen: now,
		}
	}

	e.Count++
	e.LastSeen = now
	e.exp = now.Add(l.retention)
	if err != nil {
		e.LastError = err.Error()
	}

	l.m.Set(label, e)
}

// Get returns the entry for an event.
// Expired entries are not returned.
func (l *Log) Get(label string) (Entry, bool) {
	e, ok := l.m.Get(label)
	if !ok || !e.exp.After(l.clock.Now()) {
		return Entry{}, false
	}
	return e, true
}

// List returns all unexpired entries, sorted by label.
func (l *Log) List() []Entry {
	now := l.clock.Now()

	res := make([]Entry, 0, l.m.Len())
	l.m.ForEach(func(_ string, e Entry) bool {
		if e.exp.After(now) {
			res = append(res, e)
		}
		return true
	})

	slices.SortFunc(res, func(a, b Entry) int {
		return strings.Compare(a.Label, b.Label)
	})

	return res
}

// Cleanup removes all expired entries.
func (l *Log) Cleanup() {
	now := l.clock.Now()

	// Collect the expired keys and remove them in bulk
	// An entry that is updated after ForEach returns may be removed nevertheless; that only loses one failure record
	keys := make([]string, 0)
	l.m.ForEach(func(k string, e Entry) bool {
		if !e.exp.After(now) {
			keys = append(keys, k)
		}
		return true
	})

	l.m.Del(keys...)
}

// Reset removes all entries.
func (l *Log) Reset() {
	keys := make([]string, 0, l.m.Len())
	l.m.ForEach(func(k string, _ Entry) bool {
		keys = append(keys, k)
		return true
	})

	l.m.Del(keys...)
}

func (l *Log) startBackgroundCleanup(d time.Duration) {
	l.runningCh = make(chan struct{})
	go func() {
		defer close(l.runningCh)

		t := l.clock.NewTicker(d)
		defer t.Stop()
		for {
			select {
			case <-l.stopCh:
				return
			case <-t.C():
				l.Cleanup()
			}
		}
	}()
}

// Stop the background cleanup.
func (l *Log) Stop() {
	if l.stopped.CompareAndSwap(false, true) {
		close(l.stopCh)
	}
	<-l.runningCh
}
