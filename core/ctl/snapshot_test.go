/*
 * Copyright (c) 2024, StreamWorks. All rights reserved.
 */
package ctl_test

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/streamworks/streamctl/core/ctl"
)

var _ = Describe("SnapshotRegistry", func() {
	It("reverts live state to a prior offset's snapshot", func() {
		live := ctl.NewState()
		registry, err := ctl.NewSnapshotRegistry(live, "", "")
		Expect(err).NotTo(HaveOccurred())
		defer registry.Close()

		registry.Apply(1, &ctl.AssignedStreamIdRecord{NextID: 1})
		registry.Apply(1, &ctl.S3StreamRecord{StreamID: 0, Epoch: 0, RangeIndex: -1, StartOffset: 0})
		registry.Snapshot()

		registry.Apply(2, &ctl.AssignedStreamIdRecord{NextID: 2})
		registry.Apply(2, &ctl.S3StreamRecord{StreamID: 1, Epoch: 0, RangeIndex: -1, StartOffset: 0})
		Expect(live.Streams).To(HaveLen(2))

		Expect(registry.Revert(1)).To(Succeed())
		Expect(live.Streams).To(HaveLen(1))
		Expect(live.NextAssignedStreamID).To(Equal(ctl.NewState().NextAssignedStreamID + 1))
	})

	It("produces equal checksums for equal state and differing ones otherwise", func() {
		live := ctl.NewState()
		registry, err := ctl.NewSnapshotRegistry(live, "", "")
		Expect(err).NotTo(HaveOccurred())
		defer registry.Close()

		registry.Apply(1, &ctl.AssignedStreamIdRecord{NextID: 1})
		first := registry.Snapshot()

		registry.Apply(2, &ctl.AssignedStreamIdRecord{NextID: 2})
		second := registry.Snapshot()

		Expect(first.Equal(second)).To(BeFalse())

		got, ok := registry.Checksum(1)
		Expect(ok).To(BeTrue())
		Expect(got.Equal(first)).To(BeTrue())
	})

	It("discards snapshots older than a watermark", func() {
		live := ctl.NewState()
		registry, err := ctl.NewSnapshotRegistry(live, "", "")
		Expect(err).NotTo(HaveOccurred())
		defer registry.Close()

		registry.Apply(1, &ctl.AssignedStreamIdRecord{NextID: 1})
		registry.Snapshot()
		registry.Apply(2, &ctl.AssignedStreamIdRecord{NextID: 2})
		registry.Snapshot()

		Expect(registry.Discard(2)).To(Succeed())
		_, ok := registry.Checksum(1)
		Expect(ok).To(BeFalse())
		_, ok = registry.Checksum(2)
		Expect(ok).To(BeTrue())
	})
})
