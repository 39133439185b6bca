//go:build wireinject
// +build wireinject

package server_test

import (
	"github.com/benbjohnson/clock"
	"github.com/google/wire"

	"github.com/conveyorci/conveyor/common/logger"
	"github.com/conveyorci/conveyor/server/app"
	"github.com/conveyorci/conveyor/server/services"
	"github.com/conveyorci/conveyor/server/services/build"
	"github.com/conveyorci/conveyor/server/services/encryption"
	"github.com/conveyorci/conveyor/server/services/event"
	"github.com/conveyorci/conveyor/server/services/job"
	"github.com/conveyorci/conveyor/server/services/pipeline"
	"github.com/conveyorci/conveyor/server/services/scm"
	"github.com/conveyorci/conveyor/server/services/scm/fake_scm"
	"github.com/conveyorci/conveyor/server/services/trigger"
	"github.com/conveyorci/conveyor/server/store"
	"github.com/conveyorci/conveyor/server/store/builds"
	"github.com/conveyorci/conveyor/server/store/events"
	"github.com/conveyorci/conveyor/server/store/jobs"
	"github.com/conveyorci/conveyor/server/store/pipelines"
	"github.com/conveyorci/conveyor/server/store/store_test"
)

// MakeFakeSCM registers the fake SCM so tests can stub head commits and
// observe lookups.
func MakeFakeSCM(scmRegistry *scm.Registry, logFactory logger.LogFactory) *fake_scm.FakeSCM {
	fake := fake_scm.New(logFactory)
	scmRegistry.Register(fake)
	return fake
}

func New(config *app.ServerConfig) (*TestServer, func(), error) {
	panic(wire.Build(
		NewTestServer,
		wire.FieldsOf(new(*app.ServerConfig), "EncryptionConfig", "LogLevels"),
		store_test.Connect,
		scm.NewRegistry,
		MakeFakeSCM,

		pipelines.NewStore,
		wire.Bind(new(store.PipelineStore), new(*pipelines.PipelineStore)),
		jobs.NewStore,
		wire.Bind(new(store.JobStore), new(*jobs.JobStore)),
		events.NewStore,
		wire.Bind(new(store.EventStore), new(*events.EventStore)),
		builds.NewStore,
		wire.Bind(new(store.BuildStore), new(*builds.BuildStore)),

		app.KeyManagerFactory,
		encryption.NewTokenSealer,
		pipeline.NewPipelineService,
		wire.Bind(new(services.PipelineService), new(*pipeline.PipelineService)),
		job.NewJobService,
		wire.Bind(new(services.JobService), new(*job.JobService)),
		event.NewEventService,
		wire.Bind(new(services.EventService), new(*event.EventService)),
		build.NewBuildService,
		wire.Bind(new(services.BuildService), new(*build.BuildService)),
		trigger.NewTriggerService,
		wire.Bind(new(services.TriggerService), new(*trigger.TriggerService)),

		logger.NewLogRegistry,
		logger.MakeLogrusLogFactoryStdOut,

		clock.New,
	))
}
