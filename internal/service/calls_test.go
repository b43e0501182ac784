package service_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"validity.app/auditor/internal/model"
	"validity.app/auditor/internal/service"
)

var _ = Describe("CallService", func() {
	It("lists the ledger rows of an analysis", func() {
		calls := &mockCallStore{listFn: func(analysisID string) ([]model.OracleCall, error) {
			return []model.OracleCall{{AnalysisID: analysisID, Stage: model.OracleCallStageAnalyze}}, nil
		}}

		got, err := service.NewCallService(calls).ListByAnalysis(context.Background(), "a1")
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(HaveLen(1))
		Expect(got[0].AnalysisID).To(Equal("a1"))
	})

	It("wraps store errors", func() {
		calls := &mockCallStore{listFn: func(string) ([]model.OracleCall, error) {
			return nil, errors.New("connection reset")
		}}

		_, err := service.NewCallService(calls).ListByAnalysis(context.Background(), "a1")
		Expect(err).To(MatchError(ContainSubstring("listing oracle calls")))
	})

	It("reports itself disabled without a database", func() {
		_, err := service.NewCallService(nil).ListByAnalysis(context.Background(), "a1")
		Expect(err).To(MatchError(service.ErrLedgerDisabled))
	})
})
