package handlers

import (
	"time"

	"imageforge/internal/capability"
	"imageforge/internal/pipeline"
	"imageforge/internal/retention"
	"imageforge/internal/startup"
	"imageforge/internal/store"
)

type Handlers struct {
	store          *store.Store
	orchestrator   *pipeline.Orchestrator
	scheduler      *retention.Scheduler
	caps           *capability.Registry
	normalizer     *pipeline.Normalizer
	maxUploadBytes int64
	startTime      time.Time
}

func New(s *store.Store, orch *pipeline.Orchestrator, sched *retention.Scheduler, caps *capability.Registry, config *startup.Config) *Handlers {
	return &Handlers{
		store:          s,
		orchestrator:   orch,
		scheduler:      sched,
		caps:           caps,
		normalizer:     pipeline.NewNormalizer(caps),
		maxUploadBytes: config.MaxUploadBytes,
		startTime:      time.Now(),
	}
}
