// Package cos provides common low-level types and utilities shared by
// the controller core and its collaborators.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package cos

import (
	"fmt"

	"github.com/OneOfOne/xxhash"
)

// Cksum is the xxhash64 digest of a versioned snapshot, compare with
// volume/vmd.go's VMD.cksum field - two controllers that replayed to
// the same log offset must produce equal checksums.
type Cksum struct {
	val uint64
}

func NewCksum(b []byte) *Cksum { return &Cksum{val: xxhash.Checksum64(b)} }

func (c *Cksum) Equal(other *Cksum) bool {
	if c == nil || other == nil {
		return c == other
	}
	return c.val == other.val
}

func (c *Cksum) String() string {
	if c == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%016x", c.val)
}
