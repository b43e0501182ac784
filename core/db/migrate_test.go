package db_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"validity.app/auditor/core/db"
)

var _ = Describe("UpSection", func() {
	It("keeps only the up statements", func() {
		sql := "-- +goose Up\nCREATE TABLE a (id INT);\n\n-- +goose Down\nDROP TABLE a;\n"
		Expect(db.UpSection(sql)).To(Equal("CREATE TABLE a (id INT);"))
	})

	It("returns files without markers whole", func() {
		Expect(db.UpSection("  CREATE TABLE a (id INT);\n")).To(Equal("CREATE TABLE a (id INT);"))
	})

	It("handles an up section with no down", func() {
		Expect(db.UpSection("-- +goose Up\nSELECT 1;")).To(Equal("SELECT 1;"))
	})

	DescribeTable("config",
		func(dsn string, want bool) {
			Expect(db.Config{DSN: dsn}.Enabled()).To(Equal(want))
		},
		Entry("empty dsn", "", false),
		Entry("dsn set", "postgres://localhost/validity", true),
	)
})
