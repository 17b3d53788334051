/*
 * Copyright (c) 2024, StreamWorks. All rights reserved.
 */
package ctl

import (
	"fmt"

	"github.com/streamworks/streamctl/core/meta"
	"github.com/tinylib/msgp/msgp"
)

// Record is the sealed tagged-union of everything the manager can
// append to the metadata log (spec §6, "bit-exact names preserved for
// log compatibility"). Replay type-switches over the concrete record
// types, so a new record type added here without a matching replay case
// reaches Replay's default branch, which exits via cos.ExitLogf rather
// than silently ignoring it.
type Record interface {
	Kind() RecordKind
	// EncodeMsg appends this record's msgpack wire form (kind tag + body)
	// to b, using tinylib/msgp's low-level Append helpers directly
	// (no code generator was run - the wire format is simple enough to
	// hand-write, and the point is log compatibility, not tooling).
	EncodeMsg(b []byte) []byte
}

type RecordKind byte

const (
	KindAssignedStreamID RecordKind = iota + 1
	KindS3Stream
	KindRemoveS3Stream
	KindRange
	KindRemoveRange
	KindBrokerWALMetadata
	KindWALObject
)

func (k RecordKind) String() string {
	switch k {
	case KindAssignedStreamID:
		return "AssignedStreamIdRecord"
	case KindS3Stream:
		return "S3StreamRecord"
	case KindRemoveS3Stream:
		return "RemoveS3StreamRecord"
	case KindRange:
		return "RangeRecord"
	case KindRemoveRange:
		return "RemoveRangeRecord"
	case KindBrokerWALMetadata:
		return "BrokerWALMetadataRecord"
	case KindWALObject:
		return "WALObjectRecord"
	default:
		return "UnknownRecord"
	}
}

//
// AssignedStreamIdRecord
//

type AssignedStreamIdRecord struct {
	NextID meta.StreamID
}

func (*AssignedStreamIdRecord) Kind() RecordKind { return KindAssignedStreamID }

func (r *AssignedStreamIdRecord) EncodeMsg(b []byte) []byte {
	b = msgp.AppendByte(b, byte(KindAssignedStreamID))
	return msgp.AppendUint64(b, uint64(r.NextID))
}

//
// S3StreamRecord
//

type S3StreamRecord struct {
	StreamID    meta.StreamID
	Epoch       meta.Epoch
	RangeIndex  int
	StartOffset meta.Offset
}

func (*S3StreamRecord) Kind() RecordKind { return KindS3Stream }

func (r *S3StreamRecord) EncodeMsg(b []byte) []byte {
	b = msgp.AppendByte(b, byte(KindS3Stream))
	b = msgp.AppendUint64(b, uint64(r.StreamID))
	b = msgp.AppendUint64(b, uint64(r.Epoch))
	b = msgp.AppendInt64(b, int64(r.RangeIndex))
	return msgp.AppendUint64(b, uint64(r.StartOffset))
}

//
// RemoveS3StreamRecord
//

type RemoveS3StreamRecord struct {
	StreamID meta.StreamID
}

func (*RemoveS3StreamRecord) Kind() RecordKind { return KindRemoveS3Stream }

func (r *RemoveS3StreamRecord) EncodeMsg(b []byte) []byte {
	b = msgp.AppendByte(b, byte(KindRemoveS3Stream))
	return msgp.AppendUint64(b, uint64(r.StreamID))
}

//
// RangeRecord
//

type RangeRecord struct {
	StreamID    meta.StreamID
	RangeIndex  int
	Epoch       meta.Epoch
	BrokerID    meta.BrokerID
	StartOffset meta.Offset
	EndOffset   meta.Offset
}

func (*RangeRecord) Kind() RecordKind { return KindRange }

func (r *RangeRecord) EncodeMsg(b []byte) []byte {
	b = msgp.AppendByte(b, byte(KindRange))
	b = msgp.AppendUint64(b, uint64(r.StreamID))
	b = msgp.AppendInt64(b, int64(r.RangeIndex))
	b = msgp.AppendUint64(b, uint64(r.Epoch))
	b = msgp.AppendUint64(b, uint64(r.BrokerID))
	b = msgp.AppendUint64(b, uint64(r.StartOffset))
	return msgp.AppendUint64(b, uint64(r.EndOffset))
}

//
// RemoveRangeRecord
//

type RemoveRangeRecord struct {
	StreamID   meta.StreamID
	RangeIndex int
}

func (*RemoveRangeRecord) Kind() RecordKind { return KindRemoveRange }

func (r *RemoveRangeRecord) EncodeMsg(b []byte) []byte {
	b = msgp.AppendByte(b, byte(KindRemoveRange))
	b = msgp.AppendUint64(b, uint64(r.StreamID))
	return msgp.AppendInt64(b, int64(r.RangeIndex))
}

//
// BrokerWALMetadataRecord
//

type BrokerWALMetadataRecord struct {
	BrokerID meta.BrokerID
}

func (*BrokerWALMetadataRecord) Kind() RecordKind { return KindBrokerWALMetadata }

func (r *BrokerWALMetadataRecord) EncodeMsg(b []byte) []byte {
	b = msgp.AppendByte(b, byte(KindBrokerWALMetadata))
	return msgp.AppendUint64(b, uint64(r.BrokerID))
}

//
// WALObjectRecord
//

// WALObjectRange is the per-stream slice of a committed WAL object, the
// wire form of the surviving entries from commitWALObject's validation
// pass (spec §4.5 step 3).
type WALObjectRange struct {
	StreamID    meta.StreamID
	Epoch       meta.Epoch
	StartOffset meta.Offset
	EndOffset   meta.Offset
}

type WALObjectRecord struct {
	ObjectID   uint64
	BrokerID   meta.BrokerID
	ObjectSize int64
	Ranges     []WALObjectRange
}

func (*WALObjectRecord) Kind() RecordKind { return KindWALObject }

func (r *WALObjectRecord) EncodeMsg(b []byte) []byte {
	b = msgp.AppendByte(b, byte(KindWALObject))
	b = msgp.AppendUint64(b, r.ObjectID)
	b = msgp.AppendUint64(b, uint64(r.BrokerID))
	b = msgp.AppendInt64(b, r.ObjectSize)
	b = msgp.AppendArrayHeader(b, uint32(len(r.Ranges)))
	for _, rg := range r.Ranges {
		b = msgp.AppendUint64(b, uint64(rg.StreamID))
		b = msgp.AppendUint64(b, uint64(rg.Epoch))
		b = msgp.AppendUint64(b, uint64(rg.StartOffset))
		b = msgp.AppendUint64(b, uint64(rg.EndOffset))
	}
	return b
}

// DecodeRecord reads one wire record (kind tag + body) off the front
// of b, returning the decoded Record and the remaining bytes.
func DecodeRecord(b []byte) (Record, []byte, error) {
	kindByte, b, err := msgp.ReadByteBytes(b)
	if err != nil {
		return nil, b, err
	}
	switch RecordKind(kindByte) {
	case KindAssignedStreamID:
		var id uint64
		id, b, err = msgp.ReadUint64Bytes(b)
		return &AssignedStreamIdRecord{NextID: meta.StreamID(id)}, b, err
	case KindS3Stream:
		var sid, epoch, start uint64
		var idx int64
		if sid, b, err = msgp.ReadUint64Bytes(b); err != nil {
			return nil, b, err
		}
		if epoch, b, err = msgp.ReadUint64Bytes(b); err != nil {
			return nil, b, err
		}
		if idx, b, err = msgp.ReadInt64Bytes(b); err != nil {
			return nil, b, err
		}
		start, b, err = msgp.ReadUint64Bytes(b)
		return &S3StreamRecord{
			StreamID: meta.StreamID(sid), Epoch: meta.Epoch(epoch),
			RangeIndex: int(idx), StartOffset: meta.Offset(start),
		}, b, err
	case KindRemoveS3Stream:
		var sid uint64
		sid, b, err = msgp.ReadUint64Bytes(b)
		return &RemoveS3StreamRecord{StreamID: meta.StreamID(sid)}, b, err
	case KindRange:
		var sid, epoch, broker, start, end uint64
		var idx int64
		if sid, b, err = msgp.ReadUint64Bytes(b); err != nil {
			return nil, b, err
		}
		if idx, b, err = msgp.ReadInt64Bytes(b); err != nil {
			return nil, b, err
		}
		if epoch, b, err = msgp.ReadUint64Bytes(b); err != nil {
			return nil, b, err
		}
		if broker, b, err = msgp.ReadUint64Bytes(b); err != nil {
			return nil, b, err
		}
		if start, b, err = msgp.ReadUint64Bytes(b); err != nil {
			return nil, b, err
		}
		end, b, err = msgp.ReadUint64Bytes(b)
		return &RangeRecord{
			StreamID: meta.StreamID(sid), RangeIndex: int(idx), Epoch: meta.Epoch(epoch),
			BrokerID: meta.BrokerID(broker), StartOffset: meta.Offset(start), EndOffset: meta.Offset(end),
		}, b, err
	case KindRemoveRange:
		var sid uint64
		var idx int64
		if sid, b, err = msgp.ReadUint64Bytes(b); err != nil {
			return nil, b, err
		}
		idx, b, err = msgp.ReadInt64Bytes(b)
		return &RemoveRangeRecord{StreamID: meta.StreamID(sid), RangeIndex: int(idx)}, b, err
	case KindBrokerWALMetadata:
		var broker uint64
		broker, b, err = msgp.ReadUint64Bytes(b)
		return &BrokerWALMetadataRecord{BrokerID: meta.BrokerID(broker)}, b, err
	case KindWALObject:
		var objID, broker uint64
		var size int64
		var n uint32
		if objID, b, err = msgp.ReadUint64Bytes(b); err != nil {
			return nil, b, err
		}
		if broker, b, err = msgp.ReadUint64Bytes(b); err != nil {
			return nil, b, err
		}
		if size, b, err = msgp.ReadInt64Bytes(b); err != nil {
			return nil, b, err
		}
		if n, b, err = msgp.ReadArrayHeaderBytes(b); err != nil {
			return nil, b, err
		}
		ranges := make([]WALObjectRange, n)
		for i := range ranges {
			var sid, epoch, start, end uint64
			if sid, b, err = msgp.ReadUint64Bytes(b); err != nil {
				return nil, b, err
			}
			if epoch, b, err = msgp.ReadUint64Bytes(b); err != nil {
				return nil, b, err
			}
			if start, b, err = msgp.ReadUint64Bytes(b); err != nil {
				return nil, b, err
			}
			if end, b, err = msgp.ReadUint64Bytes(b); err != nil {
				return nil, b, err
			}
			ranges[i] = WALObjectRange{
				StreamID: meta.StreamID(sid), Epoch: meta.Epoch(epoch),
				StartOffset: meta.Offset(start), EndOffset: meta.Offset(end),
			}
		}
		return &WALObjectRecord{ObjectID: objID, BrokerID: meta.BrokerID(broker), ObjectSize: size, Ranges: ranges}, b, err
	default:
		return nil, b, fmt.Errorf("ctl: unrecognized record kind %d", kindByte)
	}
}
