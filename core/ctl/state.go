/*
 * Copyright (c) 2024, StreamWorks. All rights reserved.
 */
package ctl

import "github.com/streamworks/streamctl/core/meta"

// State is the controller's entire in-memory metadata (spec §3): the
// stream-id allocator, every live stream's ranges, and every broker's
// committed WAL-object index. Only Replay (and SnapshotRegistry.Revert,
// which restores a snapshot copy) writes to it - operations in manager.go
// only read it to compute a ControllerResult.
type State struct {
	NextAssignedStreamID meta.StreamID
	Streams              map[meta.StreamID]*meta.StreamMetadata
	Brokers              map[meta.BrokerID]*meta.BrokerMetadata
}

func NewState() *State {
	return &State{
		Streams: make(map[meta.StreamID]*meta.StreamMetadata),
		Brokers: make(map[meta.BrokerID]*meta.BrokerMetadata),
	}
}

// Clone deep-copies the state; used by SnapshotRegistry to keep an
// overlay per log offset without aliasing the live maps.
func (s *State) Clone() *State {
	cp := &State{
		NextAssignedStreamID: s.NextAssignedStreamID,
		Streams:              make(map[meta.StreamID]*meta.StreamMetadata, len(s.Streams)),
		Brokers:               make(map[meta.BrokerID]*meta.BrokerMetadata, len(s.Brokers)),
	}
	for id, st := range s.Streams {
		cp.Streams[id] = st.Clone()
	}
	for id, br := range s.Brokers {
		cp.Brokers[id] = br.Clone()
	}
	return cp
}
