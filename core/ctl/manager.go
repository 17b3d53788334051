// Package ctl is the controller core: the epoch-fencing state machine,
// range ledger, broker WAL-object index, and commit planner described
// in spec.md §4. Grounded on the teacher's control-plane transaction
// pattern (ais/prxtxn.go): an operation gathers everything it needs
// from the current State, validates, and returns a ControllerResult -
// it never mutates State itself. Only Replay (replay.go) does that,
// so any controller that applies the same records in the same order
// ends up in the same state as the one that computed them.
/*
 * Copyright (c) 2024, StreamWorks. All rights reserved.
 */
package ctl

import (
	"github.com/streamworks/streamctl/cmn/nlog"
	"github.com/streamworks/streamctl/core/meta"
)

// ObjectCollaborator is the sole external interface the manager uses
// (spec §6). It must be synchronous and side-effect-free with respect
// to State: it only returns records to append alongside the commit.
type ObjectCollaborator interface {
	// CommitObject confirms objectID was previously prepared and
	// transitions it to committed. known=false means "unknown object
	// id"; existed=true with known=true means "already committed" (the
	// commit is then idempotent - no new WALObject record is emitted).
	CommitObject(objectID uint64, objectSize int64) (records []Record, existed, known bool)
}

// Manager implements the three RPCs from spec §6 against a read-only
// view of State. It holds no mutable metadata of its own.
type Manager struct {
	collaborator ObjectCollaborator
}

func NewManager(collaborator ObjectCollaborator) *Manager {
	return &Manager{collaborator: collaborator}
}

/////////////////
// CreateStream //
/////////////////

// CreateStream allocates a stream id and always succeeds (spec §4.1).
func (m *Manager) CreateStream(s *State, _ *CreateStreamRequest) (*CreateStreamResponse, *ControllerResult) {
	id := s.NextAssignedStreamID
	result := &ControllerResult{
		Records: []Record{
			&AssignedStreamIdRecord{NextID: id + 1},
			&S3StreamRecord{StreamID: id, Epoch: 0, RangeIndex: meta.NoRange, StartOffset: 0},
		},
	}
	return &CreateStreamResponse{ErrorCode: ErrNone, StreamID: id}, result
}

///////////////
// OpenStream //
///////////////

// OpenStream is the epoch/fencing state machine (spec §4.2). Preconditions
// are checked in order, first failure wins; a successful open (first-time
// or epoch-advance) emits an S3Stream update and a new Range record.
func (m *Manager) OpenStream(s *State, req *OpenStreamRequest) (*OpenStreamResponse, *ControllerResult) {
	stream, ok := s.Streams[req.StreamID]
	if !ok {
		return &OpenStreamResponse{ErrorCode: ErrStreamNotExist}, &ControllerResult{}
	}

	cur := stream.CurrentEpoch
	curRange := stream.CurrentRange()

	if req.StreamEpoch < cur {
		return &OpenStreamResponse{ErrorCode: ErrStreamFenced}, &ControllerResult{}
	}
	if req.StreamEpoch == cur && stream.CurrentRangeIndex != meta.NoRange {
		if curRange.BrokerID == req.BrokerID {
			// idempotent success: pure lookup, zero records
			return &OpenStreamResponse{
				ErrorCode:   ErrNone,
				StartOffset: stream.StartOffset,
				NextOffset:  curRange.EndOffset,
			}, &ControllerResult{}
		}
		return &OpenStreamResponse{ErrorCode: ErrStreamFenced}, &ControllerResult{}
	}

	// first-time open (epoch==0, CurrentRangeIndex==NoRange) or epoch-advance
	newRangeIndex := stream.CurrentRangeIndex + 1
	var prevEnd meta.Offset
	if curRange != nil {
		prevEnd = curRange.EndOffset
	}

	result := &ControllerResult{
		Records: []Record{
			&S3StreamRecord{
				StreamID: req.StreamID, Epoch: req.StreamEpoch,
				RangeIndex: newRangeIndex, StartOffset: stream.StartOffset,
			},
			&RangeRecord{
				StreamID: req.StreamID, RangeIndex: newRangeIndex, Epoch: req.StreamEpoch,
				BrokerID: req.BrokerID, StartOffset: prevEnd, EndOffset: prevEnd,
			},
		},
	}
	return &OpenStreamResponse{
		ErrorCode:   ErrNone,
		StartOffset: stream.StartOffset,
		NextOffset:  prevEnd,
	}, result
}

////////////////////
// CommitWALObject //
////////////////////

// CommitWALObject is the commit planner (spec §4.5): per-stream atomic,
// cross-stream best-effort. All validation happens before any record is
// emitted; a stream range that fails validation is soft-rejected into
// FailedStreamIDs rather than failing the whole commit.
func (m *Manager) CommitWALObject(s *State, req *CommitWALObjectRequest) (*CommitWALObjectResponse, *ControllerResult) {
	collabRecords, existed, known := m.collaborator.CommitObject(req.ObjectID, req.ObjectSize)
	if !known {
		return &CommitWALObjectResponse{ErrorCode: ErrObjectNotExist}, &ControllerResult{}
	}

	var (
		survivors []WALObjectRange
		failed    []meta.StreamID
	)
	for _, r := range req.ObjectStreamRanges {
		if m.validateRange(s, req.BrokerID, r) {
			survivors = append(survivors, WALObjectRange{
				StreamID: r.StreamID, Epoch: r.StreamEpoch,
				StartOffset: r.StartOffset, EndOffset: r.EndOffset,
			})
		} else {
			failed = append(failed, r.StreamID)
			nlog.Warningf("ctl: soft-rejecting stream %d from object %d (broker %d)", r.StreamID, req.ObjectID, req.BrokerID)
		}
	}

	var records []Record
	if len(survivors) > 0 {
		if broker := s.Brokers[req.BrokerID]; broker == nil {
			records = append(records, &BrokerWALMetadataRecord{BrokerID: req.BrokerID})
		}
		if !existed {
			records = append(records, &WALObjectRecord{
				ObjectID: req.ObjectID, BrokerID: req.BrokerID,
				ObjectSize: req.ObjectSize, Ranges: survivors,
			})
		}
		records = append(records, collabRecords...)
	}

	return &CommitWALObjectResponse{ErrorCode: ErrNone, FailedStreamIDs: failed},
		&ControllerResult{Records: records}
}

// validateRange checks one ObjectStreamRange independently (spec §4.5
// step 2): stream must exist with a current range, the epoch and
// owning broker must match, and the offset must be strictly contiguous
// with what the owning broker last wrote.
func (m *Manager) validateRange(s *State, brokerID meta.BrokerID, r ObjectStreamRange) bool {
	stream, ok := s.Streams[r.StreamID]
	if !ok || stream.CurrentRangeIndex == meta.NoRange {
		return false
	}
	if r.StreamEpoch != stream.CurrentEpoch {
		return false
	}
	cur := stream.CurrentRange()
	if cur.BrokerID != brokerID {
		return false
	}
	if r.StartOffset != cur.EndOffset {
		return false
	}
	return r.EndOffset > r.StartOffset
}
