package store_test

import (
	"context"
	"time"

	"github.com/alicebob/miniredis/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/redis/go-redis/v9"

	"validity.app/auditor/internal/model"
	"validity.app/auditor/internal/store"
)

var _ = Describe("RedisJobStore", func() {
	var (
		ctx  context.Context
		mr   *miniredis.Miniredis
		rdb  *redis.Client
		jobs store.JobStore
	)

	BeforeEach(func() {
		ctx = context.Background()
		mr = miniredis.RunT(GinkgoT())
		rdb = redis.NewClient(&redis.Options{Addr: mr.Addr()})
		DeferCleanup(rdb.Close)
		jobs = store.NewRedisJobStore(rdb, time.Hour)
	})

	create := func(id string) {
		Expect(jobs.Create(ctx, &model.Job{ID: id, Document: "text", TimeoutSeconds: 30})).To(Succeed())
	}

	It("creates a queued job with an expiry", func() {
		create("j1")

		job, err := jobs.Get(ctx, "j1")
		Expect(err).NotTo(HaveOccurred())
		Expect(job.Status).To(Equal(model.JobStatusQueued))
		Expect(job.Document).To(Equal("text"))
		Expect(job.CreatedAt).NotTo(BeZero())
		Expect(mr.TTL("validity:job:j1")).To(Equal(time.Hour))
	})

	It("refuses duplicate ids", func() {
		create("j1")
		Expect(jobs.Create(ctx, &model.Job{ID: "j1"})).To(MatchError(store.ErrJobExists))
	})

	It("returns ErrNotFound for unknown and expired jobs", func() {
		_, err := jobs.Get(ctx, "missing")
		Expect(err).To(MatchError(store.ErrNotFound))

		create("j2")
		mr.FastForward(2 * time.Hour)
		_, err = jobs.Get(ctx, "j2")
		Expect(err).To(MatchError(store.ErrNotFound))
	})

	It("moves through running to done, dropping the document and keeping the expiry", func() {
		create("j1")
		mr.FastForward(10 * time.Minute)

		Expect(jobs.MarkRunning(ctx, "j1", 2)).To(Succeed())
		job, _ := jobs.Get(ctx, "j1")
		Expect(job.Status).To(Equal(model.JobStatusRunning))
		Expect(job.Attempts).To(Equal(2))

		Expect(jobs.Complete(ctx, "j1", &model.Result{Success: true, AnalysisID: "a"})).To(Succeed())
		job, _ = jobs.Get(ctx, "j1")
		Expect(job.Status).To(Equal(model.JobStatusDone))
		Expect(job.Terminal()).To(BeTrue())
		Expect(job.Document).To(BeEmpty())
		Expect(job.Result.AnalysisID).To(Equal("a"))
		Expect(mr.TTL("validity:job:j1")).To(Equal(50 * time.Minute))
	})

	It("records failures", func() {
		create("j1")

		Expect(jobs.Fail(ctx, "j1", nil, "oracle unavailable")).To(Succeed())

		job, _ := jobs.Get(ctx, "j1")
		Expect(job.Status).To(Equal(model.JobStatusFailed))
		Expect(job.Error).To(Equal("oracle unavailable"))
		Expect(job.Result).To(BeNil())
		Expect(job.Document).To(BeEmpty())
	})

	It("fails updates of missing jobs with ErrNotFound", func() {
		Expect(jobs.MarkRunning(ctx, "nope", 1)).To(MatchError(store.ErrNotFound))
	})
})
