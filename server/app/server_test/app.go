package server_test

import (
	"github.com/conveyorci/conveyor/common/logger"
	"github.com/conveyorci/conveyor/server/services"
	"github.com/conveyorci/conveyor/server/services/encryption"
	"github.com/conveyorci/conveyor/server/services/scm"
	"github.com/conveyorci/conveyor/server/services/scm/fake_scm"
	"github.com/conveyorci/conveyor/server/store"
)

type TestServer struct {
	DB              *store.DB
	PipelineStore   store.PipelineStore
	JobStore        store.JobStore
	EventStore      store.EventStore
	BuildStore      store.BuildStore
	TokenSealer     *encryption.TokenSealer
	PipelineService services.PipelineService
	JobService      services.JobService
	EventService    services.EventService
	BuildService    services.BuildService
	TriggerService  services.TriggerService
	SCMRegistry     *scm.Registry
	FakeSCM         *fake_scm.FakeSCM
	LogFactory      logger.LogFactory
}

func NewTestServer(
	db *store.DB,
	pipelineStore store.PipelineStore,
	jobStore store.JobStore,
	eventStore store.EventStore,
	buildStore store.BuildStore,
	tokenSealer *encryption.TokenSealer,
	pipelineService services.PipelineService,
	jobService services.JobService,
	eventService services.EventService,
	buildService services.BuildService,
	triggerService services.TriggerService,
	scmRegistry *scm.Registry,
	fakeSCM *fake_scm.FakeSCM,
	logFactory logger.LogFactory,
) *TestServer {
	return &TestServer{
		DB:              db,
		PipelineStore:   pipelineStore,
		JobStore:        jobStore,
		EventStore:      eventStore,
		BuildStore:      buildStore,
		TokenSealer:     tokenSealer,
		PipelineService: pipelineService,
		JobService:      jobService,
		EventService:    eventService,
		BuildService:    buildService,
		TriggerService:  triggerService,
		SCMRegistry:     scmRegistry,
		FakeSCM:         fakeSCM,
		LogFactory:      logFactory,
	}
}
