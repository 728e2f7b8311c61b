// (c) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ids_test

import (
	ginkgo "github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/luxfi/floatingtemple/ids"
)

var _ = ginkgo.Describe("ObjectID", func() {
	ginkgo.It("orders lexicographically by byte content", func() {
		var low, high ids.ObjectID
		low[15] = 1
		high[15] = 2

		gomega.Expect(low.Compare(high)).To(gomega.BeNumerically("<", 0))
		gomega.Expect(high.Compare(low)).To(gomega.BeNumerically(">", 0))
		gomega.Expect(low.Compare(low)).To(gomega.Equal(0))
	})

	ginkgo.It("reports the zero value as zero", func() {
		var zero ids.ObjectID
		gomega.Expect(zero.IsZero()).To(gomega.BeTrue())

		zero[0] = 1
		gomega.Expect(zero.IsZero()).To(gomega.BeFalse())
	})

	ginkgo.It("renders as lowercase hex", func() {
		var id ids.ObjectID
		id[0] = 0xab
		gomega.Expect(id.String()).To(gomega.HavePrefix("ab"))
	})
})

var _ = ginkgo.Describe("TransactionID", func() {
	ginkgo.It("compares component-wise, most significant first", func() {
		a := ids.TransactionID{A: 1, B: 0, C: 0}
		b := ids.TransactionID{A: 2, B: 0, C: 0}
		gomega.Expect(a.Less(b)).To(gomega.BeTrue())
		gomega.Expect(b.Less(a)).To(gomega.BeFalse())

		c := ids.TransactionID{A: 1, B: 5, C: 0}
		gomega.Expect(a.Less(c)).To(gomega.BeTrue())
	})

	ginkgo.It("treats the min and max sentinels as invalid", func() {
		gomega.Expect(ids.MinTransactionID.IsValid()).To(gomega.BeFalse())
		gomega.Expect(ids.MaxTransactionID.IsValid()).To(gomega.BeFalse())

		real := ids.TransactionID{A: 1, B: 2, C: 3}
		gomega.Expect(real.IsValid()).To(gomega.BeTrue())
	})

	ginkgo.It("formats as dotted decimal", func() {
		id := ids.TransactionID{A: 1, B: 2, C: 3}
		gomega.Expect(id.String()).To(gomega.Equal("1.2.3"))
	})
})

var _ = ginkgo.Describe("PeerID", func() {
	ginkgo.It("formats with a peer# prefix", func() {
		gomega.Expect(ids.PeerID(7).String()).To(gomega.Equal("peer#7"))
	})
})
