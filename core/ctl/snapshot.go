// SnapshotRegistry implements the versioned-collection discipline spec
// §3/§5/§9 requires: point-in-time snapshots at a metadata-log offset,
// revert to a prior offset (leader change with an uncommitted tail),
// and discard of snapshots older than a watermark. Grounded on the
// teacher's volume/vmd.go (versioned, checksummed metadata) for the
// in-memory shape, and on its ext/dload use of an embedded KV store
// for small frequently-updated records for durability.
/*
 * Copyright (c) 2024, StreamWorks. All rights reserved.
 */
package ctl

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/karrick/godirwalk"
	"github.com/pierrec/lz4/v3"
	"github.com/tidwall/buntdb"

	"github.com/streamworks/streamctl/cmn/cos"
	"github.com/streamworks/streamctl/cmn/debug"
	"github.com/streamworks/streamctl/cmn/nlog"
	"github.com/streamworks/streamctl/core/meta"
)

type snapshotEntry struct {
	offset int64
	state  *State // nil once compacted
	cksum  *cos.Cksum
}

// SnapshotRegistry owns the single live State plus an overlay of
// snapshots keyed by metadata-log offset.
type SnapshotRegistry struct {
	mu        sync.Mutex
	live      *State
	liveOff   int64
	snapshots map[int64]*snapshotEntry
	db        *buntdb.DB // durable checkpoint of checksums across restarts
	dir       string     // on-disk directory for compacted, lz4-ed snapshots
}

// NewSnapshotRegistry opens (or creates) the durable checkpoint store at
// dbPath and the on-disk compacted-snapshot directory at dir. Pass ""
// for dbPath to keep the registry in-memory only (e.g. in tests).
func NewSnapshotRegistry(live *State, dbPath, dir string) (*SnapshotRegistry, error) {
	if dbPath == "" {
		dbPath = ":memory:"
	}
	db, err := buntdb.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("ctl: opening snapshot checkpoint store: %w", err)
	}
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ctl: creating snapshot dir: %w", err)
		}
	}
	return &SnapshotRegistry{
		live:      live,
		snapshots: make(map[int64]*snapshotEntry),
		db:        db,
		dir:       dir,
	}, nil
}

func (r *SnapshotRegistry) Close() error { return r.db.Close() }

// LiveOffset returns the metadata-log offset the live state currently
// reflects.
func (r *SnapshotRegistry) LiveOffset() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.liveOff
}

// Apply replays rec against the live state and advances the log offset
// the registry considers "current". Records replayed into the same State
// through Replay directly (as rpc.Server does) do not advance that offset.
func (r *SnapshotRegistry) Apply(offset int64, rec Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	Replay(r.live, rec)
	r.liveOff = offset
}

// Snapshot captures the live state at its current offset, checksums it,
// and durably records the checksum so any controller that replayed to
// the same offset can cheaply confirm agreement (spec §3: "point-in-time
// snapshots at log offset L must reconstruct exactly the state any
// controller would have at L").
func (r *SnapshotRegistry) Snapshot() *cos.Cksum {
	r.mu.Lock()
	defer r.mu.Unlock()

	clone := r.live.Clone()
	cksum := cos.NewCksum([]byte(canonicalize(clone)))
	r.snapshots[r.liveOff] = &snapshotEntry{offset: r.liveOff, state: clone, cksum: cksum}

	key := strconv.FormatInt(r.liveOff, 10)
	if err := r.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(key, cksum.String(), nil)
		return err
	}); err != nil {
		nlog.Warningf("ctl: failed to persist snapshot checkpoint at offset %d: %v", r.liveOff, err)
	}
	return cksum
}

// Revert overwrites the live State in place with a copy of the snapshot
// at offset, so every holder of that *State sees the reverted data, for use
// when the metadata log truncates past an uncommitted tail (leader
// change). offset must name an existing snapshot.
func (r *SnapshotRegistry) Revert(offset int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.snapshots[offset]
	if !ok || entry.state == nil {
		return fmt.Errorf("ctl: no in-memory snapshot available at offset %d (compacted or never taken)", offset)
	}
	*r.live = *entry.state.Clone()
	r.liveOff = offset
	return nil
}

// Checksum returns the checksum recorded for offset, if any.
func (r *SnapshotRegistry) Checksum(offset int64) (*cos.Cksum, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.snapshots[offset]
	if !ok {
		return nil, false
	}
	return e.cksum, true
}

// Discard drops every snapshot older than watermark from memory and from
// the checkpoint store. When a snapshot directory is configured, each such
// snapshot is first written there as an lz4-ed blob, and the sweepDir pass
// at the end then removes every blob below watermark, including the ones
// this call just wrote - no snapshot below watermark is kept, in memory or
// on disk, after Discard returns.
func (r *SnapshotRegistry) Discard(watermark int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for off, entry := range r.snapshots {
		if off >= watermark {
			continue
		}
		if entry.state != nil && r.dir != "" {
			if err := r.compact(entry); err != nil {
				nlog.Warningf("ctl: failed to compact snapshot at offset %d: %v", off, err)
				continue
			}
			entry.state = nil
		}
		delete(r.snapshots, off)
		if err := r.db.Update(func(tx *buntdb.Tx) error {
			_, err := tx.Delete(strconv.FormatInt(off, 10))
			return err
		}); err != nil && err != buntdb.ErrNotFound {
			nlog.Warningf("ctl: failed to drop checkpoint at offset %d: %v", off, err)
		}
	}
	if r.dir == "" {
		return nil
	}
	return r.sweepDir(watermark)
}

func (r *SnapshotRegistry) compact(entry *snapshotEntry) error {
	raw := []byte(canonicalize(entry.state))
	path := filepath.Join(r.dir, strconv.FormatInt(entry.offset, 10)+".snap.lz4")
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	zw := lz4.NewWriter(f)
	defer zw.Close()
	_, err = zw.Write(raw)
	return err
}

// sweepDir walks the compacted-snapshot directory and removes any blob
// whose offset is below watermark: those compacted by the current Discard
// call as well as any left behind by an earlier process.
func (r *SnapshotRegistry) sweepDir(watermark int64) error {
	return godirwalk.Walk(r.dir, &godirwalk.Options{
		Unsorted: true,
		Callback: func(path string, de *godirwalk.Dirent) error {
			if de.IsDir() {
				return nil
			}
			name := filepath.Base(path)
			if !strings.HasSuffix(name, ".snap.lz4") {
				return nil
			}
			offStr := strings.TrimSuffix(name, ".snap.lz4")
			off, err := strconv.ParseInt(offStr, 10, 64)
			if err != nil {
				return nil // not one of ours
			}
			if off < watermark {
				return os.Remove(path)
			}
			return nil
		},
	})
}

// canonicalize renders a deterministic, sorted-key textual form of
// state for checksumming and compaction - not a wire format (see
// record.go for that), just stable input to a digest.
func canonicalize(s *State) string {
	var b strings.Builder
	fmt.Fprintf(&b, "next=%d\n", s.NextAssignedStreamID)

	ids := make([]int, 0, len(s.Streams))
	for id := range s.Streams {
		ids = append(ids, int(id))
	}
	sort.Ints(ids)
	for _, id := range ids {
		st := s.Streams[meta.StreamID(id)]
		debug.Assert(st != nil)
		fmt.Fprintf(&b, "stream=%d epoch=%d range=%d start=%d\n",
			st.StreamID, st.CurrentEpoch, st.CurrentRangeIndex, st.StartOffset)
		ranges := make([]int, 0, len(st.Ranges))
		for ri := range st.Ranges {
			ranges = append(ranges, ri)
		}
		sort.Ints(ranges)
		for _, ri := range ranges {
			rg := st.Ranges[ri]
			fmt.Fprintf(&b, "  range=%d epoch=%d broker=%d %d-%d\n",
				rg.RangeIndex, rg.Epoch, rg.BrokerID, rg.StartOffset, rg.EndOffset)
		}
	}

	brokers := make([]int, 0, len(s.Brokers))
	for id := range s.Brokers {
		brokers = append(brokers, int(id))
	}
	sort.Ints(brokers)
	for _, id := range brokers {
		br := s.Brokers[meta.BrokerID(id)]
		fmt.Fprintf(&b, "broker=%d objects=%v\n", br.BrokerID, br.WalObjects)
	}
	return b.String()
}
