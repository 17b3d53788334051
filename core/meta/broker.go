/*
 * Copyright (c) 2024, StreamWorks. All rights reserved.
 */
package meta

import (
	"encoding/binary"

	cuckoo "github.com/seiflotfy/cuckoofilter"
)

const filterCapacity = 1 << 16

// BrokerMetadata is the set of WAL objects a broker has committed,
// ordered by commit order. A cuckoo filter shadows the authoritative
// slice/set so HasObject can cheaply answer "definitely not seen" before
// paying for a real lookup; the filter is filled by AddObject (and
// rebuilt by Clone) from the same object ids, so it never needs its own
// record kind or persistence.
type BrokerMetadata struct {
	BrokerID   BrokerID
	WalObjects []uint64 // objectId, in commit order
	index      map[uint64]struct{}
	filter     *cuckoo.Filter
}

func NewBrokerMetadata(id BrokerID) *BrokerMetadata {
	return &BrokerMetadata{
		BrokerID: id,
		index:    make(map[uint64]struct{}),
		filter:   cuckoo.NewFilter(filterCapacity),
	}
}

func (b *BrokerMetadata) Clone() *BrokerMetadata {
	cp := NewBrokerMetadata(b.BrokerID)
	cp.WalObjects = append(cp.WalObjects, b.WalObjects...)
	for id := range b.index {
		cp.index[id] = struct{}{}
		cp.filter.InsertUnique(encodeObjectID(id))
	}
	return cp
}

func (b *BrokerMetadata) HasObject(objectID uint64) bool {
	if !b.filter.Lookup(encodeObjectID(objectID)) {
		return false // definitely absent
	}
	_, ok := b.index[objectID] // filter may false-positive; index never does
	return ok
}

func (b *BrokerMetadata) AddObject(objectID uint64) {
	if _, ok := b.index[objectID]; ok {
		return
	}
	b.WalObjects = append(b.WalObjects, objectID)
	b.index[objectID] = struct{}{}
	b.filter.InsertUnique(encodeObjectID(objectID))
}

func encodeObjectID(id uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], id)
	return buf[:]
}
