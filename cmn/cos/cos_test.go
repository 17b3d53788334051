/*
 * Copyright (c) 2024, StreamWorks. All rights reserved.
 */
package cos_test

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/streamworks/streamctl/cmn/cos"
)

var _ = Describe("uuid", func() {
	BeforeEach(func() {
		cos.InitShortID(1)
	})

	It("generates valid, distinct ids", func() {
		a := cos.GenUUID()
		b := cos.GenUUID()
		Expect(a).NotTo(Equal(b))
		Expect(cos.IsValidUUID(a)).To(BeTrue())
		Expect(cos.IsValidUUID(b)).To(BeTrue())
	})
})

var _ = Describe("Cksum", func() {
	It("is equal for equal input and unequal otherwise", func() {
		a := cos.NewCksum([]byte("hello"))
		b := cos.NewCksum([]byte("hello"))
		c := cos.NewCksum([]byte("world"))
		Expect(a.Equal(b)).To(BeTrue())
		Expect(a.Equal(c)).To(BeFalse())
	})
})

var _ = Describe("Errs", func() {
	It("deduplicates by message and caps at maxErrs", func() {
		var errs cos.Errs
		errs.Add(cos.NewErrNotFound("stream 1"))
		errs.Add(cos.NewErrNotFound("stream 1"))
		errs.Add(cos.NewErrNotFound("stream 2"))
		Expect(errs.Cnt()).To(Equal(2))

		errs.Add(cos.NewErrNotFound("stream 3"))
		errs.Add(cos.NewErrNotFound("stream 4"))
		errs.Add(cos.NewErrNotFound("stream 5"))
		Expect(errs.Cnt()).To(Equal(4))
	})
})
