/*
 * Copyright (c) 2024, StreamWorks. All rights reserved.
 */
package meta

import "fmt"

// RangeMetadata is the contiguous offset window written under a single
// (epoch, broker) ownership. A stream accumulates ranges as ownership
// changes; only the range at the owning stream's currentRangeIndex may
// ever have its EndOffset advanced.
type RangeMetadata struct {
	RangeIndex int
	Epoch      Epoch
	BrokerID   BrokerID
	StartOffset Offset // inclusive
	EndOffset   Offset // exclusive
}

func (r *RangeMetadata) Clone() *RangeMetadata {
	cp := *r
	return &cp
}

func (r *RangeMetadata) String() string {
	return fmt.Sprintf("range[%d](e%d,b%d,%d-%d)", r.RangeIndex, r.Epoch, r.BrokerID, r.StartOffset, r.EndOffset)
}

// StreamMetadata is the authoritative, in-memory record for one live
// stream. CurrentRangeIndex is NoRange (-1) before the stream's first
// successful open.
type StreamMetadata struct {
	StreamID          StreamID
	CurrentEpoch      Epoch
	CurrentRangeIndex int
	StartOffset       Offset
	Ranges            map[int]*RangeMetadata
}

func NewStreamMetadata(id StreamID) *StreamMetadata {
	return &StreamMetadata{
		StreamID:          id,
		CurrentEpoch:      0,
		CurrentRangeIndex: NoRange,
		StartOffset:       0,
		Ranges:            make(map[int]*RangeMetadata),
	}
}

func (s *StreamMetadata) Clone() *StreamMetadata {
	cp := &StreamMetadata{
		StreamID:          s.StreamID,
		CurrentEpoch:      s.CurrentEpoch,
		CurrentRangeIndex: s.CurrentRangeIndex,
		StartOffset:       s.StartOffset,
		Ranges:            make(map[int]*RangeMetadata, len(s.Ranges)),
	}
	for i, r := range s.Ranges {
		cp.Ranges[i] = r.Clone()
	}
	return cp
}

// CurrentRange returns the writable range, or nil if the stream has
// never been opened.
func (s *StreamMetadata) CurrentRange() *RangeMetadata {
	if s.CurrentRangeIndex == NoRange {
		return nil
	}
	return s.Ranges[s.CurrentRangeIndex]
}

func (s *StreamMetadata) String() string {
	return fmt.Sprintf("stream[%d](epoch=%d,range=%d,start=%d)",
		s.StreamID, s.CurrentEpoch, s.CurrentRangeIndex, s.StartOffset)
}
