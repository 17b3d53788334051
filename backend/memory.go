/*
 * Copyright (c) 2024, StreamWorks. All rights reserved.
 */
package backend

import "sync"

// MemoryDriver is an in-process Driver for tests and single-node
// development runs, grounded on the teacher's in-memory backend used
// the same way in its own test suite.
type MemoryDriver struct {
	mu      sync.Mutex
	objects map[uint64]int64
}

func NewMemoryDriver() *MemoryDriver {
	return &MemoryDriver{objects: make(map[uint64]int64)}
}

// Put registers objectID as prepared with the given size, simulating
// the out-of-scope object-lifecycle manager's confirmation.
func (d *MemoryDriver) Put(objectID uint64, size int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.objects[objectID] = size
}

func (d *MemoryDriver) HeadObject(objectID uint64) (size int64, found bool, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	size, found = d.objects[objectID]
	return size, found, nil
}
