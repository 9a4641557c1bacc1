// Package telshm implements the shared-state publication model: the
// single TelStatShm record the daemon exclusively writes, and that
// UI/queue processes read without locking. A real SysV/POSIX shared
// memory segment is out of reach for a portable Go daemon, so the
// publisher instead exposes the record over a process-local sync/atomic
// pointer swap for in-process consumers (the daemon's own fifo/HTTP
// handlers) and a versioned snapshot writer for out-of-process
// consumers. Two guarantees hold throughout: the daemon is the only
// writer, and a reader never blocks the writer.
package telshm

import (
	"encoding/json"
	"os"
	"sync"
	"sync/atomic"

	"github.com/jmhannon/rigel-master/internal/teltypes"
)

// Header is the versioned envelope around every published record: a
// sequence counter readers can snapshot before and after reading the
// payload to detect a torn read, replacing the legacy raw struct copy
// at a fixed shared-memory address.
type Header struct {
	Seq     uint64 `json:"seq"`
	Version uint32 `json:"version"`
}

// CurrentVersion is bumped whenever TelStatShm's field set changes in a
// way that is not append-only. Field additions must be append-only so
// separately built readers keep working.
const CurrentVersion = 1

// Snapshot is one published copy of the status record: the header plus
// the payload, serialized together so an out-of-process reader gets a
// self-consistent pair.
type Snapshot struct {
	Header Header              `json:"header"`
	Status teltypes.TelStatShm `json:"status"`
}

// Publisher is the single-writer publication point. The daemon holds
// one Publisher for the process lifetime; every other goroutine or
// process only ever calls Snapshot() or Subscribe().
type Publisher struct {
	current atomic.Pointer[Snapshot]
	seq     atomic.Uint64

	subMu sync.Mutex // guards subs; Subscribe is called from reader goroutines
	subs  []chan Snapshot
}

// New returns a Publisher with the region cleared, so a reader that
// connects before the first poll cycle sees zeroes rather than stale
// state from a previous run.
func New() *Publisher {
	p := &Publisher{}
	zero := teltypes.TelStatShm{}
	p.current.Store(&Snapshot{Header: Header{Seq: 0, Version: CurrentVersion}, Status: zero})
	return p
}

// Publish atomically swaps in a new status record, stamping it with the
// next sequence number. Only the daemon's own poll loop calls this.
func (p *Publisher) Publish(status teltypes.TelStatShm) {
	seq := p.seq.Add(1)
	status.Seq = seq
	snap := &Snapshot{Header: Header{Seq: seq, Version: CurrentVersion}, Status: status}
	p.current.Store(snap)
	p.subMu.Lock()
	for _, ch := range p.subs {
		select {
		case ch <- *snap:
		default: // a slow subscriber drops a frame rather than blocking the publisher
		}
	}
	p.subMu.Unlock()
}

// Snapshot returns the most recently published record. Safe for
// concurrent use by any number of readers; never blocks the writer.
func (p *Publisher) Snapshot() Snapshot {
	return *p.current.Load()
}

// Subscribe registers a channel that receives every subsequent Publish
// call, used by internal/httpapi's websocket stream. The returned
// unsubscribe func must be called when the consumer goes away.
func (p *Publisher) Subscribe(buf int) (ch <-chan Snapshot, unsubscribe func()) {
	c := make(chan Snapshot, buf)
	p.subMu.Lock()
	p.subs = append(p.subs, c)
	p.subMu.Unlock()
	return c, func() {
		p.subMu.Lock()
		defer p.subMu.Unlock()
		for i, sc := range p.subs {
			if sc == c {
				p.subs = append(p.subs[:i], p.subs[i+1:]...)
				close(c)
				return
			}
		}
	}
}

// DumpLegacyFile writes the current snapshot to path as JSON, the
// on-disk replacement for the legacy binary shared-memory layout. Tools
// that historically read the raw shared-memory bytes read this file
// instead.
func (p *Publisher) DumpLegacyFile(path string) error {
	snap := p.Snapshot()
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
