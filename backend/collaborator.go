// Package backend implements the controller's sole external
// collaborator (spec §6): confirming that a WAL object id was
// registered by the (out-of-scope, per spec §1) shared-object lifecycle
// manager before the controller will let a broker commit against it.
// Grounded on the teacher's multi-provider object-store abstraction
// (ais/backend, dfc/aws.go): one narrow Driver interface, several
// concrete cloud-specific implementations.
/*
 * Copyright (c) 2024, StreamWorks. All rights reserved.
 */
package backend

import (
	"sync"

	cuckoo "github.com/seiflotfy/cuckoofilter"

	"github.com/streamworks/streamctl/cmn/nlog"
	"github.com/streamworks/streamctl/core/ctl"
)

// Driver confirms that objectID exists in the shared object store and
// reports its size. It is the only thing a concrete cloud backend
// (s3.go, azure.go, gcs.go, hdfs.go) needs to implement.
type Driver interface {
	// HeadObject reports whether objectID is registered, and if so its
	// size. found=false means "never prepared" (spec §6, "unknown
	// object").
	HeadObject(objectID uint64) (size int64, found bool, err error)
}

const prepareFilterCapacity = 1 << 16

// Collaborator implements ctl.ObjectCollaborator against a Driver. It
// tracks which object ids it has already confirmed as committed so a
// repeated commitWALObject for the same object is idempotent (spec §6:
// "existed=true with an empty record list means already committed")
// without re-querying the backend driver every time.
type Collaborator struct {
	driver Driver

	mu         sync.Mutex
	committed  map[uint64]struct{}
	maybeKnown *cuckoo.Filter // negative answer is authoritative: "never seen" skips the committed-map check entirely
}

var _ ctl.ObjectCollaborator = (*Collaborator)(nil)

func NewCollaborator(driver Driver) *Collaborator {
	return &Collaborator{
		driver:     driver,
		committed:  make(map[uint64]struct{}),
		maybeKnown: cuckoo.NewFilter(prepareFilterCapacity),
	}
}

func (c *Collaborator) CommitObject(objectID uint64, objectSize int64) (records []ctl.Record, existed, known bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := encodeID(objectID)
	if c.maybeKnown.Lookup(key) {
		// filter says "maybe" - confirm against the authoritative map,
		// since a cuckoo filter only guarantees no false negatives.
		if _, ok := c.committed[objectID]; ok {
			return nil, true, true
		}
	}

	size, found, err := c.driver.HeadObject(objectID)
	if err != nil {
		nlog.Errorf("backend: HeadObject(%d) failed: %v", objectID, err)
		return nil, false, false
	}
	if !found {
		return nil, false, false
	}
	if size != objectSize {
		nlog.Warningf("backend: object %d size mismatch: driver=%d request=%d", objectID, size, objectSize)
	}

	c.committed[objectID] = struct{}{}
	c.maybeKnown.InsertUnique(key)
	// object lifecycle records (ref-counting, GC bookkeeping) are an
	// out-of-scope collaborator per spec §1; this driver contract never
	// emits any.
	return nil, false, true
}

func encodeID(id uint64) []byte {
	b := make([]byte, 8)
	for i := range b {
		b[i] = byte(id >> (8 * uint(i)))
	}
	return b
}
