package service

import (
	"validity.app/auditor/internal/cache"
	"validity.app/auditor/internal/queue"
	"validity.app/auditor/internal/store"
	"validity.app/auditor/internal/taxonomy"
)

// Deps are the collaborators the services are built from. Jobs, Producer and
// Calls may be nil; the matching service then reports itself disabled.
type Deps struct {
	Analyzer Analyzer
	Cache    cache.Cache
	Scope    CacheScope
	Taxonomy *taxonomy.Table
	Jobs     store.JobStore
	Producer queue.Producer
	Calls    store.OracleCallStore
}

type Services struct {
	analysis AnalysisService
	jobs     JobService
	calls    CallService
	taxonomy *taxonomy.Table
}

func NewServices(deps Deps) *Services {
	return &Services{
		analysis: NewAnalysisService(deps.Analyzer, deps.Cache, deps.Scope),
		jobs:     NewJobService(deps.Jobs, deps.Producer),
		calls:    NewCallService(deps.Calls),
		taxonomy: deps.Taxonomy,
	}
}

func (s *Services) Analysis() AnalysisService {
	return s.analysis
}

func (s *Services) Jobs() JobService {
	return s.jobs
}

func (s *Services) Calls() CallService {
	return s.calls
}

func (s *Services) Taxonomy() *taxonomy.Table {
	return s.taxonomy
}
