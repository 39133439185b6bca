//go:build wireinject
// +build wireinject

package app

import (
	"context"

	"github.com/benbjohnson/clock"
	"github.com/google/wire"

	"github.com/conveyorci/conveyor/common/logger"
	"github.com/conveyorci/conveyor/server/services"
	"github.com/conveyorci/conveyor/server/services/build"
	"github.com/conveyorci/conveyor/server/services/encryption"
	"github.com/conveyorci/conveyor/server/services/event"
	"github.com/conveyorci/conveyor/server/services/job"
	"github.com/conveyorci/conveyor/server/services/pipeline"
	"github.com/conveyorci/conveyor/server/services/scm"
	"github.com/conveyorci/conveyor/server/services/trigger"
	"github.com/conveyorci/conveyor/server/store"
	"github.com/conveyorci/conveyor/server/store/builds"
	"github.com/conveyorci/conveyor/server/store/events"
	"github.com/conveyorci/conveyor/server/store/jobs"
	"github.com/conveyorci/conveyor/server/store/migrations"
	"github.com/conveyorci/conveyor/server/store/pipelines"
)

func New(ctx context.Context, config *ServerConfig) (*Server, func(), error) {
	panic(wire.Build(
		NewServer,
		wire.FieldsOf(new(*ServerConfig), "DatabaseConfig", "EncryptionConfig", "LogLevels"),
		MakeSCMs,
		scm.NewRegistry,
		store.NewDatabase,
		migrations.NewConveyorMigrateRunner,
		wire.Bind(new(store.MigrationRunner), new(*migrations.GolangMigrateRunner)),

		// Stores
		pipelines.NewStore,
		wire.Bind(new(store.PipelineStore), new(*pipelines.PipelineStore)),
		jobs.NewStore,
		wire.Bind(new(store.JobStore), new(*jobs.JobStore)),
		events.NewStore,
		wire.Bind(new(store.EventStore), new(*events.EventStore)),
		builds.NewStore,
		wire.Bind(new(store.BuildStore), new(*builds.BuildStore)),

		// Services
		KeyManagerFactory,
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

		// Logging
		logger.NewLogRegistry,
		logger.MakeLogrusLogFactoryStdOut,

		clock.New,
	))
}
