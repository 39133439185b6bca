package app

import (
	"github.com/conveyorci/conveyor/common/logger"
	"github.com/conveyorci/conveyor/server/services"
	"github.com/conveyorci/conveyor/server/services/scm"
	"github.com/conveyorci/conveyor/server/services/scm/fake_scm"
	"github.com/conveyorci/conveyor/server/store"
)

type Server struct {
	DB              *store.DB
	PipelineService services.PipelineService
	JobService      services.JobService
	EventService    services.EventService
	BuildService    services.BuildService
	TriggerService  services.TriggerService
	SCMRegistry     *scm.Registry
	LogFactory      logger.LogFactory
}

func NewServer(
	db *store.DB,
	pipelineService services.PipelineService,
	jobService services.JobService,
	eventService services.EventService,
	buildService services.BuildService,
	triggerService services.TriggerService,
	scmRegistry *scm.Registry,
	logFactory logger.LogFactory,
	allSCMs []scm.SCM, // tell Wire the app has a dependency on the SCMs, to ensure they're created
) *Server {
	return &Server{
		DB:              db,
		PipelineService: pipelineService,
		JobService:      jobService,
		EventService:    eventService,
		BuildService:    buildService,
		TriggerService:  triggerService,
		SCMRegistry:     scmRegistry,
		LogFactory:      logFactory,
	}
}

func MakeSCMs(scmRegistry *scm.Registry, logFactory logger.LogFactory) []scm.SCM {
	fake := fake_scm.New(logFactory)
	scmRegistry.Register(fake)

	return []scm.SCM{
		fake,
	}
}
