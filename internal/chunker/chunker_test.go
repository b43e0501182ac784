package chunker_test

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"validity.app/auditor/internal/chunker"
)

// coverage counts how many windows include each character offset.
func coverage(n int, chunks []chunker.Chunk) []int {
	counts := make([]int, n)
	for _, c := range chunks {
		for i := c.Start; i < c.End; i++ {
			counts[i]++
		}
	}
	return counts
}

var _ = Describe("Chunker", func() {
	It("uses the defaults", func() {
		c := chunker.New()
		Expect(c.ChunkSize()).To(Equal(chunker.DefaultChunkSize))
		Expect(c.Overlap()).To(Equal(chunker.DefaultOverlap))
	})

	It("ignores invalid options", func() {
		c := chunker.New(chunker.WithChunkSize(0), chunker.WithOverlap(-5))
		Expect(c.ChunkSize()).To(Equal(chunker.DefaultChunkSize))
		Expect(c.Overlap()).To(Equal(chunker.DefaultOverlap))
	})

	It("returns nothing for empty text", func() {
		Expect(chunker.New().Split("")).To(BeEmpty())
	})

	It("returns the whole document when it fits", func() {
		text := strings.Repeat("a", 200)
		chunks := chunker.New(chunker.WithChunkSize(200), chunker.WithOverlap(50)).Split(text)
		Expect(chunks).To(HaveLen(1))
		Expect(chunks[0]).To(Equal(chunker.Chunk{Index: 0, Start: 0, End: 200, Text: text}))
	})

	It("slides windows back by the overlap", func() {
		text := strings.Repeat("abcdefghij", 3)
		chunks := chunker.New(chunker.WithChunkSize(12), chunker.WithOverlap(2)).Split(text)

		var bounds [][2]int
		for _, c := range chunks {
			bounds = append(bounds, [2]int{c.Start, c.End})
		}
		Expect(bounds).To(Equal([][2]int{{0, 12}, {10, 22}, {20, 30}}))
		Expect(chunks[1].Text).To(Equal(text[10:22]))
	})

	It("measures windows in characters, not bytes", func() {
		text := strings.Repeat("é", 25)
		chunks := chunker.New(chunker.WithChunkSize(10), chunker.WithOverlap(0)).Split(text)
		Expect(chunks).To(HaveLen(3))
		for _, c := range chunks[:2] {
			Expect([]rune(c.Text)).To(HaveLen(10))
		}
	})

	DescribeTable("covers every character",
		func(n, size, overlap, minCover int) {
			text := strings.Repeat("x", n)
			chunks := chunker.New(chunker.WithChunkSize(size), chunker.WithOverlap(overlap)).Split(text)
			for i, count := range coverage(n, chunks) {
				Expect(count).To(BeNumerically(">=", minCover), "offset %d", i)
				if overlap == 0 {
					Expect(count).To(Equal(1), "offset %d", i)
				}
			}
			for i, c := range chunks {
				Expect(c.Index).To(Equal(i))
				Expect(c.End - c.Start).To(BeNumerically("<=", size))
			}
		},
		Entry("no overlap, exact multiple", 100, 10, 0, 1),
		Entry("no overlap, remainder", 105, 10, 0, 1),
		Entry("with overlap", 1000, 120, 30, 1),
		Entry("overlap of size minus one", 50, 10, 9, 1),
		Entry("single window", 10, 10, 5, 1),
	)

	DescribeTable("terminates on degenerate overlap",
		func(overlap int) {
			text := strings.Repeat("z", 100)
			chunks := chunker.New(chunker.WithChunkSize(10), chunker.WithOverlap(overlap)).Split(text)
			Expect(chunks).To(HaveLen(1))
			Expect(chunks[0].End).To(Equal(10))
		},
		Entry("overlap equals size", 10),
		Entry("overlap larger than size", 25),
	)

	It("drops blank windows without leaving index gaps", func() {
		text := strings.Repeat("a", 10) + strings.Repeat(" ", 10) + strings.Repeat("b", 10)
		chunks := chunker.New(chunker.WithChunkSize(10), chunker.WithOverlap(0)).Split(text)
		Expect(chunks).To(HaveLen(2))
		Expect(chunks[0].Text).To(Equal(strings.Repeat("a", 10)))
		Expect(chunks[1].Index).To(Equal(1))
		Expect(chunks[1].Text).To(Equal(strings.Repeat("b", 10)))
	})

	It("trims each window", func() {
		text := "aaaa  \n\n  bbbb"
		chunks := chunker.New(chunker.WithChunkSize(7), chunker.WithOverlap(0)).Split(text)
		for _, c := range chunks {
			Expect(c.Text).To(Equal(strings.TrimSpace(c.Text)))
			Expect(c.Text).NotTo(BeEmpty())
		}
	})

	It("is a pure function of its input", func() {
		text := strings.Repeat("pure ", 300)
		c := chunker.New(chunker.WithChunkSize(97), chunker.WithOverlap(13))
		Expect(c.Split(text)).To(Equal(c.Split(text)))
	})
})
