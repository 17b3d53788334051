/*
 * Copyright (c) 2024, StreamWorks. All rights reserved.
 */
package ctl

import "github.com/streamworks/streamctl/core/meta"

// ControllerResult is what every operation returns instead of mutating
// state directly (spec §2): a response plus the ordered records the
// caller must append to the metadata log before replaying them. The
// separation is what makes rebuilding state from the log equivalent to
// the original computation.
type ControllerResult struct {
	Records []Record
}

//
// CreateStream
//

type CreateStreamRequest struct{}

type CreateStreamResponse struct {
	ErrorCode ErrorCode
	StreamID  meta.StreamID
}

//
// OpenStream
//

type OpenStreamRequest struct {
	StreamID    meta.StreamID
	StreamEpoch meta.Epoch
	BrokerID    meta.BrokerID
}

type OpenStreamResponse struct {
	ErrorCode  ErrorCode
	StartOffset meta.Offset
	NextOffset  meta.Offset
}

//
// CommitWALObject
//

type ObjectStreamRange struct {
	StreamID    meta.StreamID
	StreamEpoch meta.Epoch
	StartOffset meta.Offset
	EndOffset   meta.Offset
}

type CommitWALObjectRequest struct {
	ObjectID           uint64
	BrokerID           meta.BrokerID
	ObjectSize         int64
	ObjectStreamRanges []ObjectStreamRange
}

type CommitWALObjectResponse struct {
	ErrorCode       ErrorCode
	FailedStreamIDs []meta.StreamID
}
