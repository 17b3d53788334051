/*
 * Copyright (c) 2024, StreamWorks. All rights reserved.
 */
package ctl_test

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/streamworks/streamctl/core/ctl"
	"github.com/streamworks/streamctl/core/meta"
)

// fakeCollaborator lets each scenario script exactly what CommitObject
// should report, matching spec §4.5's narrow, synchronous contract.
type fakeCollaborator struct {
	existed bool
	known   bool
	records []ctl.Record
	calls   []uint64
}

func (f *fakeCollaborator) CommitObject(objectID uint64, _ int64) ([]ctl.Record, bool, bool) {
	f.calls = append(f.calls, objectID)
	return f.records, f.existed, f.known
}

var _ = Describe("Manager", func() {
	var (
		state *ctl.State
		coll  *fakeCollaborator
		mgr   *ctl.Manager
	)

	BeforeEach(func() {
		state = ctl.NewState()
		coll = &fakeCollaborator{known: true}
		mgr = ctl.NewManager(coll)
	})

	Describe("CreateStream", func() {
		It("allocates sequential ids and always succeeds", func() {
			resp0, res0 := mgr.CreateStream(state, &ctl.CreateStreamRequest{})
			Expect(resp0.ErrorCode).To(Equal(ctl.ErrNone))
			Expect(resp0.StreamID).To(Equal(meta.StreamID(0)))
			Expect(res0.Records).To(HaveLen(2))
			ctl.ReplayAll(state, res0.Records)

			resp1, res1 := mgr.CreateStream(state, &ctl.CreateStreamRequest{})
			Expect(resp1.StreamID).To(Equal(meta.StreamID(1)))
			ctl.ReplayAll(state, res1.Records)

			Expect(state.NextAssignedStreamID).To(Equal(meta.StreamID(2)))
			Expect(state.Streams[0].CurrentEpoch).To(Equal(meta.Epoch(0)))
			Expect(state.Streams[0].CurrentRangeIndex).To(Equal(meta.NoRange))
			Expect(state.Streams[1].CurrentRangeIndex).To(Equal(meta.NoRange))
		})
	})

	Describe("OpenStream", func() {
		BeforeEach(func() {
			_, res := mgr.CreateStream(state, &ctl.CreateStreamRequest{})
			ctl.ReplayAll(state, res.Records)
		})

		It("opens for the first time, fences a stale epoch, then advances", func() {
			resp, res := mgr.OpenStream(state, &ctl.OpenStreamRequest{StreamID: 0, StreamEpoch: 0, BrokerID: 0})
			Expect(resp.ErrorCode).To(Equal(ctl.ErrNone))
			Expect(resp.StartOffset).To(Equal(meta.Offset(0)))
			Expect(resp.NextOffset).To(Equal(meta.Offset(0)))
			Expect(res.Records).To(HaveLen(2))
			ctl.ReplayAll(state, res.Records)

			fenceResp, fenceRes := mgr.OpenStream(state, &ctl.OpenStreamRequest{StreamID: 0, StreamEpoch: 0, BrokerID: 1})
			Expect(fenceResp.ErrorCode).To(Equal(ctl.ErrStreamFenced))
			Expect(fenceRes.Records).To(BeEmpty())

			resp2, res2 := mgr.OpenStream(state, &ctl.OpenStreamRequest{StreamID: 0, StreamEpoch: 1, BrokerID: 1})
			Expect(resp2.ErrorCode).To(Equal(ctl.ErrNone))
			Expect(res2.Records).To(HaveLen(2))
			rangeRec, ok := res2.Records[1].(*ctl.RangeRecord)
			Expect(ok).To(BeTrue())
			Expect(rangeRec.RangeIndex).To(Equal(1))
			Expect(rangeRec.Epoch).To(Equal(meta.Epoch(1)))
			Expect(rangeRec.BrokerID).To(Equal(meta.BrokerID(1)))
		})

		It("is idempotent on reopen by the same broker", func() {
			_, res := mgr.OpenStream(state, &ctl.OpenStreamRequest{StreamID: 0, StreamEpoch: 0, BrokerID: 0})
			ctl.ReplayAll(state, res.Records)

			resp, res2 := mgr.OpenStream(state, &ctl.OpenStreamRequest{StreamID: 0, StreamEpoch: 0, BrokerID: 0})
			Expect(resp.ErrorCode).To(Equal(ctl.ErrNone))
			Expect(resp.StartOffset).To(Equal(meta.Offset(0)))
			Expect(resp.NextOffset).To(Equal(meta.Offset(0)))
			Expect(res2.Records).To(BeEmpty())
		})

		It("rejects a stream id that doesn't exist", func() {
			resp, res := mgr.OpenStream(state, &ctl.OpenStreamRequest{StreamID: 99, StreamEpoch: 0, BrokerID: 0})
			Expect(resp.ErrorCode).To(Equal(ctl.ErrStreamNotExist))
			Expect(res.Records).To(BeEmpty())
		})
	})

	Describe("CommitWALObject", func() {
		BeforeEach(func() {
			_, createRes := mgr.CreateStream(state, &ctl.CreateStreamRequest{})
			ctl.ReplayAll(state, createRes.Records)
			_, openRes := mgr.OpenStream(state, &ctl.OpenStreamRequest{StreamID: 0, StreamEpoch: 0, BrokerID: 0})
			ctl.ReplayAll(state, openRes.Records)
		})

		It("extends the range and records the broker's new object", func() {
			resp, res := mgr.CommitWALObject(state, &ctl.CommitWALObjectRequest{
				ObjectID: 0, BrokerID: 0, ObjectSize: 100,
				ObjectStreamRanges: []ctl.ObjectStreamRange{{StreamID: 0, StreamEpoch: 0, StartOffset: 0, EndOffset: 100}},
			})
			Expect(resp.ErrorCode).To(Equal(ctl.ErrNone))
			Expect(resp.FailedStreamIDs).To(BeEmpty())

			var sawBroker, sawObject bool
			for _, r := range res.Records {
				switch r.(type) {
				case *ctl.BrokerWALMetadataRecord:
					sawBroker = true
				case *ctl.WALObjectRecord:
					sawObject = true
				}
			}
			Expect(sawBroker).To(BeTrue())
			Expect(sawObject).To(BeTrue())

			ctl.ReplayAll(state, res.Records)
			Expect(state.Streams[0].CurrentRange().EndOffset).To(Equal(meta.Offset(100)))
			Expect(state.Brokers[0].WalObjects).To(HaveLen(1))
		})

		It("reports OBJECT_NOT_EXIST and emits nothing for an unknown object", func() {
			coll.known = false
			resp, res := mgr.CommitWALObject(state, &ctl.CommitWALObjectRequest{
				ObjectID: 1, BrokerID: 0, ObjectSize: 1,
				ObjectStreamRanges: []ctl.ObjectStreamRange{{StreamID: 0, StreamEpoch: 0, StartOffset: 0, EndOffset: 1}},
			})
			Expect(resp.ErrorCode).To(Equal(ctl.ErrObjectNotExist))
			Expect(res.Records).To(BeEmpty())
		})

		It("soft-rejects a non-contiguous start without touching the stream", func() {
			_, firstRes := mgr.CommitWALObject(state, &ctl.CommitWALObjectRequest{
				ObjectID: 0, BrokerID: 0, ObjectSize: 100,
				ObjectStreamRanges: []ctl.ObjectStreamRange{{StreamID: 0, StreamEpoch: 0, StartOffset: 0, EndOffset: 100}},
			})
			ctl.ReplayAll(state, firstRes.Records)

			resp, res := mgr.CommitWALObject(state, &ctl.CommitWALObjectRequest{
				ObjectID: 2, BrokerID: 0, ObjectSize: 101,
				ObjectStreamRanges: []ctl.ObjectStreamRange{{StreamID: 0, StreamEpoch: 0, StartOffset: 99, EndOffset: 200}},
			})
			Expect(resp.ErrorCode).To(Equal(ctl.ErrNone))
			Expect(resp.FailedStreamIDs).To(ConsistOf(meta.StreamID(0)))
			Expect(res.Records).To(BeEmpty())
			Expect(state.Streams[0].CurrentRange().EndOffset).To(Equal(meta.Offset(100)))
		})

		It("commits survivors and soft-rejects the rest in the same request", func() {
			_, createRes := mgr.CreateStream(state, &ctl.CreateStreamRequest{})
			ctl.ReplayAll(state, createRes.Records)

			resp, res := mgr.CommitWALObject(state, &ctl.CommitWALObjectRequest{
				ObjectID: 5, BrokerID: 0, ObjectSize: 200,
				ObjectStreamRanges: []ctl.ObjectStreamRange{
					{StreamID: 0, StreamEpoch: 0, StartOffset: 0, EndOffset: 100},
					{StreamID: 1, StreamEpoch: 0, StartOffset: 0, EndOffset: 100},
				},
			})
			Expect(resp.ErrorCode).To(Equal(ctl.ErrNone))
			Expect(resp.FailedStreamIDs).To(ConsistOf(meta.StreamID(1)))
			ctl.ReplayAll(state, res.Records)
			Expect(state.Streams[0].CurrentRange().EndOffset).To(Equal(meta.Offset(100)))
			Expect(state.Streams[1].CurrentRangeIndex).To(Equal(meta.NoRange))
		})

		It("keeps recording the new owner's commits after a fenced broker is rejected", func() {
			_, c1 := mgr.CommitWALObject(state, &ctl.CommitWALObjectRequest{
				ObjectID: 0, BrokerID: 0, ObjectSize: 200,
				ObjectStreamRanges: []ctl.ObjectStreamRange{{StreamID: 0, StreamEpoch: 0, StartOffset: 0, EndOffset: 200}},
			})
			ctl.ReplayAll(state, c1.Records)

			_, reopenRes := mgr.OpenStream(state, &ctl.OpenStreamRequest{StreamID: 0, StreamEpoch: 1, BrokerID: 1})
			ctl.ReplayAll(state, reopenRes.Records)

			staleResp, staleRes := mgr.CommitWALObject(state, &ctl.CommitWALObjectRequest{
				ObjectID: 9, BrokerID: 0, ObjectSize: 100,
				ObjectStreamRanges: []ctl.ObjectStreamRange{{StreamID: 0, StreamEpoch: 0, StartOffset: 200, EndOffset: 300}},
			})
			Expect(staleResp.FailedStreamIDs).To(ConsistOf(meta.StreamID(0)))
			Expect(staleRes.Records).To(BeEmpty())

			freshResp, freshRes := mgr.CommitWALObject(state, &ctl.CommitWALObjectRequest{
				ObjectID: 10, BrokerID: 1, ObjectSize: 100,
				ObjectStreamRanges: []ctl.ObjectStreamRange{{StreamID: 0, StreamEpoch: 1, StartOffset: 200, EndOffset: 300}},
			})
			Expect(freshResp.ErrorCode).To(Equal(ctl.ErrNone))
			Expect(freshResp.FailedStreamIDs).To(BeEmpty())
			ctl.ReplayAll(state, freshRes.Records)

			stream := state.Streams[0]
			Expect(stream.Ranges[0].EndOffset).To(Equal(meta.Offset(200)))
			Expect(stream.Ranges[1].StartOffset).To(Equal(meta.Offset(200)))
			Expect(stream.Ranges[1].EndOffset).To(Equal(meta.Offset(300)))
		})
	})
})
