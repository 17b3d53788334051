// Replay is the sole mutator of State (spec §4.6/§4.7). Grounded on the
// teacher's xact/xreg dispatch-by-kind pattern (xreg.go), but closed
// over a fixed, exhaustive set of record kinds instead of a runtime
// registry, since the record taxonomy here is fixed by log-compatibility
// (spec §6) rather than pluggable.
/*
 * Copyright (c) 2024, StreamWorks. All rights reserved.
 */
package ctl

import (
	"github.com/streamworks/streamctl/cmn/cos"
	"github.com/streamworks/streamctl/core/meta"
)

// Replay applies one record to s. A record that violates an invariant
// from spec §3 is a programmer error or log corruption - fatal, not a
// recoverable error, because the log is the trusted source of truth
// and the controller must not continue with possibly-divergent state.
func Replay(s *State, rec Record) {
	switch r := rec.(type) {
	case *AssignedStreamIdRecord:
		s.NextAssignedStreamID = r.NextID

	case *S3StreamRecord:
		stream, ok := s.Streams[r.StreamID]
		if !ok {
			stream = meta.NewStreamMetadata(r.StreamID)
			s.Streams[r.StreamID] = stream
		}
		stream.CurrentEpoch = r.Epoch
		stream.CurrentRangeIndex = r.RangeIndex
		stream.StartOffset = r.StartOffset

	case *RemoveS3StreamRecord:
		delete(s.Streams, r.StreamID)

	case *RangeRecord:
		stream, ok := s.Streams[r.StreamID]
		if !ok {
			cos.ExitLogf("replay: Range record for unknown stream %d", r.StreamID)
			return
		}
		stream.Ranges[r.RangeIndex] = &meta.RangeMetadata{
			RangeIndex: r.RangeIndex, Epoch: r.Epoch, BrokerID: r.BrokerID,
			StartOffset: r.StartOffset, EndOffset: r.EndOffset,
		}

	case *RemoveRangeRecord:
		stream, ok := s.Streams[r.StreamID]
		if !ok {
			cos.ExitLogf("replay: RemoveRange record for unknown stream %d", r.StreamID)
			return
		}
		delete(stream.Ranges, r.RangeIndex)

	case *BrokerWALMetadataRecord:
		if _, ok := s.Brokers[r.BrokerID]; !ok {
			s.Brokers[r.BrokerID] = meta.NewBrokerMetadata(r.BrokerID)
		}

	case *WALObjectRecord:
		broker, ok := s.Brokers[r.BrokerID]
		if !ok {
			// lazily created on replay, per spec §4.4
			broker = meta.NewBrokerMetadata(r.BrokerID)
			s.Brokers[r.BrokerID] = broker
		}
		broker.AddObject(r.ObjectID)
		for _, rg := range r.Ranges {
			stream, ok := s.Streams[rg.StreamID]
			if !ok {
				cos.ExitLogf("replay: WALObject record references unknown stream %d", rg.StreamID)
				return
			}
			cur := stream.CurrentRange()
			if cur == nil {
				cos.ExitLogf("replay: WALObject record for stream %d with no current range", rg.StreamID)
				return
			}
			cur.EndOffset = rg.EndOffset
		}

	default:
		cos.ExitLogf("replay: unrecognized record kind %T", rec)
	}
}

// ReplayAll applies every record in order; used both for normal
// catch-up and for rebuilding a fresh manager from the log to verify
// it produces state equal to the live manager (spec §8).
func ReplayAll(s *State, recs []Record) {
	for _, r := range recs {
		Replay(s, r)
	}
}
