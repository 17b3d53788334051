// Package meta holds the controller's in-memory metadata: per-stream
// ownership state, offset ranges, and per-broker WAL-object indices.
// Nothing here mutates itself - state changes only flow in through
// ctl.replay (see core/ctl/replay.go), mirroring the teacher's
// core/meta package, which likewise holds plain metadata structs
// mutated only by their owning subsystem.
/*
 * Copyright (c) 2024, StreamWorks. All rights reserved.
 */
package meta

// StreamID, Epoch and Offset are all non-negative 64-bit integers; kept
// as distinct types so a caller can't accidentally pass an Epoch where
// an Offset is expected.
type (
	StreamID uint64
	Epoch    uint64
	Offset   uint64
	BrokerID uint64
)

const NoRange = -1
