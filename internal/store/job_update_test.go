package store

import (
	"context"
	"time"

	"github.com/alicebob/miniredis/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/redis/go-redis/v9"

	"validity.app/auditor/internal/model"
)

var _ = Describe("redisJobStore.update", func() {
	var (
		ctx   context.Context
		jobs  *redisJobStore
		other *redisJobStore
	)

	BeforeEach(func() {
		ctx = context.Background()
		mr := miniredis.RunT(GinkgoT())

		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		DeferCleanup(rdb.Close)
		jobs = NewRedisJobStore(rdb, time.Hour).(*redisJobStore)

		// A second client stands in for another worker process.
		rdb2 := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		DeferCleanup(rdb2.Close)
		other = NewRedisJobStore(rdb2, time.Hour).(*redisJobStore)

		Expect(jobs.Create(ctx, &model.Job{ID: "j1", Document: "text"})).To(Succeed())
	})

	It("reruns on fresh state when another writer lands first", func() {
		runs := 0
		err := jobs.update(ctx, "j1", func(job *model.Job) {
			runs++
			if runs == 1 {
				Expect(other.Complete(ctx, "j1", &model.Result{Success: true, AnalysisID: "a1"})).To(Succeed())
			}
			job.Attempts = 2
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(runs).To(Equal(2))

		job, err := jobs.Get(ctx, "j1")
		Expect(err).NotTo(HaveOccurred())
		Expect(job.Status).To(Equal(model.JobStatusDone))
		Expect(job.Result.AnalysisID).To(Equal("a1"))
		Expect(job.Attempts).To(Equal(2))
	})

	It("gives up when every attempt is contended", func() {
		runs := 0
		err := jobs.update(ctx, "j1", func(job *model.Job) {
			runs++
			Expect(other.MarkRunning(ctx, "j1", runs)).To(Succeed())
		})
		Expect(err).To(MatchError(ErrJobContended))
		Expect(runs).To(Equal(maxUpdateAttempts))
	})

	It("returns ErrNotFound for a missing job", func() {
		err := jobs.update(ctx, "missing", func(*model.Job) {
			Fail("update must not run for a missing job")
		})
		Expect(err).To(MatchError(ErrNotFound))
	})
})
