package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"validity.app/auditor/common/logger"
)

var _ = Describe("LogFields", func() {
	It("merges newer values over older ones", func() {
		ctx := logger.WithLogFields(context.Background(), logger.LogFields{
			JobID:     logger.Ptr("job-1"),
			Component: "validity.worker",
		})
		ctx = logger.WithLogFields(ctx, logger.LogFields{
			AnalysisID: logger.Ptr("an-1"),
			Component:  "validity.analyzer",
		})

		fields := logger.GetLogFields(ctx)
		Expect(*fields.JobID).To(Equal("job-1"))
		Expect(*fields.AnalysisID).To(Equal("an-1"))
		Expect(fields.Component).To(Equal("validity.analyzer"))
	})

	It("returns empty fields for a bare context", func() {
		Expect(logger.GetLogFields(context.Background())).To(Equal(logger.LogFields{}))
	})
})

var _ = Describe("TraceHandler", func() {
	It("adds context fields to every record", func() {
		var buf bytes.Buffer
		log := slog.New(logger.NewTraceHandler(slog.NewJSONHandler(&buf, nil)))

		ctx := logger.WithLogFields(context.Background(), logger.LogFields{
			AnalysisID: logger.Ptr("an-1"),
			ChunkIndex: logger.Ptr(2),
		})
		log.InfoContext(ctx, "chunk analyzed")

		var rec map[string]any
		Expect(json.Unmarshal(buf.Bytes(), &rec)).To(Succeed())
		Expect(rec).To(HaveKeyWithValue("analysis_id", "an-1"))
		Expect(rec).To(HaveKeyWithValue("chunk_index", BeNumerically("==", 2)))
		Expect(rec).NotTo(HaveKey("trace_id"))
	})
})

var _ = Describe("Truncate", func() {
	DescribeTable("shortens by runes",
		func(in string, n int, want string) {
			Expect(logger.Truncate(in, n)).To(Equal(want))
		},
		Entry("short input", "abc", 5, "abc"),
		Entry("exact length", "abcde", 5, "abcde"),
		Entry("long input", "abcdef", 3, "abc..."),
		Entry("multibyte", "héllo wörld", 5, "héllo..."),
	)
})
