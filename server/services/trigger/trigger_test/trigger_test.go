package trigger_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/conveyorci/conveyor/common/gerror"
	"github.com/conveyorci/conveyor/common/models"
	"github.com/conveyorci/conveyor/server/app/server_test"
	"github.com/conveyorci/conveyor/server/dto"
)

func newTestServer(t *testing.T) (*server_test.TestServer, func()) {
	app, cleanup, err := server_test.New(server_test.TestConfig(t))
	require.NoError(t, err)
	return app, cleanup
}

// finishBuild moves a build to a terminal status and runs the downstream
// trigger flow for it, the way the execution layer does when a build ends.
func finishBuild(t *testing.T, ctx context.Context, app *server_test.TestServer, pipeline *models.Pipeline, build *models.Build, status models.BuildStatus) {
	build.Status = status
	err := app.BuildService.Update(ctx, nil, build)
	require.NoError(t, err)

	job, err := app.JobService.Read(ctx, nil, build.JobID)
	require.NoError(t, err)

	err = app.TriggerService.TriggerNextJobs(ctx, &dto.TriggerNextJobs{
		Pipeline: pipeline,
		Job:      job,
		Build:    build,
		Username: build.Username,
	})
	require.NoError(t, err)
}

func buildForJob(t *testing.T, ctx context.Context, app *server_test.TestServer, eventID models.EventID, jobID models.JobID) *models.Build {
	builds, err := app.BuildService.ListByEventID(ctx, nil, eventID)
	require.NoError(t, err)
	for _, b := range builds {
		if b.JobID == jobID {
			return b
		}
	}
	t.Fatalf("no build for job %s in event %s", jobID, eventID)
	return nil
}

func TestSequentialTrigger(t *testing.T) {
	app, cleanup := newTestServer(t)
	defer cleanup()
	ctx := context.Background()

	graph := server_test.WorkflowGraphFromEdges([]models.WorkflowEdge{
		{Src: "~commit", Dest: "main"},
		{Src: "main", Dest: "publish"},
	})
	pipeline := server_test.CreatePipeline(t, ctx, app, "sequential", graph)
	mainJob := server_test.CreateJob(t, ctx, app, pipeline.ID, "main")
	publishJob := server_test.CreateJob(t, ctx, app, pipeline.ID, "publish")

	event := server_test.CreateEvent(t, ctx, app, pipeline.ID, "~commit")
	require.Len(t, event.Builds, 1)
	mainBuild := event.Builds[0]
	require.Equal(t, mainJob.ID, mainBuild.JobID)
	require.Equal(t, models.BuildStatusQueued, mainBuild.Status)

	finishBuild(t, ctx, app, pipeline, mainBuild, models.BuildStatusSuccess)

	publishBuild := buildForJob(t, ctx, app, event.ID, publishJob.ID)
	require.Equal(t, models.BuildStatusQueued, publishBuild.Status)
	require.Equal(t, models.BuildIDList{mainBuild.ID}, publishBuild.ParentBuildIDs)

	entry := publishBuild.ParentBuilds[pipeline.ID]
	require.NotNil(t, entry)
	require.Equal(t, event.ID, *entry.EventID)
	require.Equal(t, mainBuild.ID, *entry.Jobs["main"])
}

func TestJoinAllSuccess(t *testing.T) {
	app, cleanup := newTestServer(t)
	defer cleanup()
	ctx := context.Background()

	graph := server_test.WorkflowGraphFromEdges([]models.WorkflowEdge{
		{Src: "~commit", Dest: "build-linux"},
		{Src: "~commit", Dest: "build-macos"},
		{Src: "build-linux", Dest: "deploy", Join: true},
		{Src: "build-macos", Dest: "deploy", Join: true},
	})
	pipeline := server_test.CreatePipeline(t, ctx, app, "join-success", graph)
	linuxJob := server_test.CreateJob(t, ctx, app, pipeline.ID, "build-linux")
	macosJob := server_test.CreateJob(t, ctx, app, pipeline.ID, "build-macos")
	deployJob := server_test.CreateJob(t, ctx, app, pipeline.ID, "deploy")

	event := server_test.CreateEvent(t, ctx, app, pipeline.ID, "~commit")
	require.Len(t, event.Builds, 2)
	linuxBuild := buildForJob(t, ctx, app, event.ID, linuxJob.ID)
	macosBuild := buildForJob(t, ctx, app, event.ID, macosJob.ID)

	// First parent finishing creates the join target but must not start it.
	finishBuild(t, ctx, app, pipeline, linuxBuild, models.BuildStatusSuccess)
	deployBuild := buildForJob(t, ctx, app, event.ID, deployJob.ID)
	require.Equal(t, models.BuildStatusCreated, deployBuild.Status)
	entry := deployBuild.ParentBuilds[pipeline.ID]
	require.NotNil(t, entry)
	require.Equal(t, linuxBuild.ID, *entry.Jobs["build-linux"])

	finishBuild(t, ctx, app, pipeline, macosBuild, models.BuildStatusSuccess)
	deployBuild, err := app.BuildService.Read(ctx, nil, deployBuild.ID)
	require.NoError(t, err)
	require.Equal(t, models.BuildStatusQueued, deployBuild.Status)

	entry = deployBuild.ParentBuilds[pipeline.ID]
	require.Equal(t, linuxBuild.ID, *entry.Jobs["build-linux"])
	require.Equal(t, macosBuild.ID, *entry.Jobs["build-macos"])
	require.True(t, deployBuild.ParentBuildIDs.Contains(linuxBuild.ID))
	require.True(t, deployBuild.ParentBuildIDs.Contains(macosBuild.ID))
}

func TestJoinParentFailureRemovesTarget(t *testing.T) {
	app, cleanup := newTestServer(t)
	defer cleanup()
	ctx := context.Background()

	graph := server_test.WorkflowGraphFromEdges([]models.WorkflowEdge{
		{Src: "~commit", Dest: "build-linux"},
		{Src: "~commit", Dest: "build-macos"},
		{Src: "build-linux", Dest: "deploy", Join: true},
		{Src: "build-macos", Dest: "deploy", Join: true},
	})
	pipeline := server_test.CreatePipeline(t, ctx, app, "join-failure", graph)
	linuxJob := server_test.CreateJob(t, ctx, app, pipeline.ID, "build-linux")
	macosJob := server_test.CreateJob(t, ctx, app, pipeline.ID, "build-macos")
	deployJob := server_test.CreateJob(t, ctx, app, pipeline.ID, "deploy")

	event := server_test.CreateEvent(t, ctx, app, pipeline.ID, "~commit")
	linuxBuild := buildForJob(t, ctx, app, event.ID, linuxJob.ID)
	macosBuild := buildForJob(t, ctx, app, event.ID, macosJob.ID)

	finishBuild(t, ctx, app, pipeline, linuxBuild, models.BuildStatusSuccess)
	deployBuild := buildForJob(t, ctx, app, event.ID, deployJob.ID)
	require.Equal(t, models.BuildStatusCreated, deployBuild.Status)

	finishBuild(t, ctx, app, pipeline, macosBuild, models.BuildStatusFailure)
	_, err := app.BuildService.Read(ctx, nil, deployBuild.ID)
	require.True(t, gerror.IsNotFound(err), "expected the join target to be removed, got: %v", err)
}

func TestORTriggerStartsImmediately(t *testing.T) {
	app, cleanup := newTestServer(t)
	defer cleanup()
	ctx := context.Background()

	// notify lists build-linux and build-macos as join parents, but smoke
	// also feeds it through a plain edge: smoke finishing alone launches it.
	graph := server_test.WorkflowGraphFromEdges([]models.WorkflowEdge{
		{Src: "~commit", Dest: "smoke"},
		{Src: "build-linux", Dest: "notify", Join: true},
		{Src: "build-macos", Dest: "notify", Join: true},
		{Src: "smoke", Dest: "notify"},
	})
	pipeline := server_test.CreatePipeline(t, ctx, app, "or-trigger", graph)
	smokeJob := server_test.CreateJob(t, ctx, app, pipeline.ID, "smoke")
	server_test.CreateJob(t, ctx, app, pipeline.ID, "build-linux")
	server_test.CreateJob(t, ctx, app, pipeline.ID, "build-macos")
	notifyJob := server_test.CreateJob(t, ctx, app, pipeline.ID, "notify")

	event := server_test.CreateEvent(t, ctx, app, pipeline.ID, "~commit")
	smokeBuild := buildForJob(t, ctx, app, event.ID, smokeJob.ID)

	finishBuild(t, ctx, app, pipeline, smokeBuild, models.BuildStatusSuccess)

	notifyBuild := buildForJob(t, ctx, app, event.ID, notifyJob.ID)
	require.Equal(t, models.BuildStatusQueued, notifyBuild.Status)
	entry := notifyBuild.ParentBuilds[pipeline.ID]
	require.NotNil(t, entry)
	require.Equal(t, smokeBuild.ID, *entry.Jobs["smoke"])
	// The other parents have not reported in.
	require.Nil(t, entry.Jobs["build-linux"])
	require.Nil(t, entry.Jobs["build-macos"])
}

func TestExternalFanOut(t *testing.T) {
	app, cleanup := newTestServer(t)
	defer cleanup()
	ctx := context.Background()

	// The downstream pipeline must exist first so the upstream graph can
	// name it.
	componentGraphPlaceholder := server_test.WorkflowGraphFromEdges([]models.WorkflowEdge{
		{Src: "~commit", Dest: "component"},
	})
	downstream := server_test.CreatePipeline(t, ctx, app, "downstream", componentGraphPlaceholder)
	componentJob := server_test.CreateJob(t, ctx, app, downstream.ID, "component")

	upstreamGraph := server_test.WorkflowGraphFromEdges([]models.WorkflowEdge{
		{Src: "~commit", Dest: "main"},
		{Src: "main", Dest: fmt.Sprintf("sd@%s:component", downstream.ID)},
	})
	upstream := server_test.CreatePipeline(t, ctx, app, "upstream", upstreamGraph)
	server_test.CreateJob(t, ctx, app, upstream.ID, "main")

	// Rewrite the downstream graph so its start node points back upstream.
	downstreamGraph := server_test.WorkflowGraphFromEdges([]models.WorkflowEdge{
		{Src: fmt.Sprintf("~sd@%s:main", upstream.ID), Dest: "component"},
	})
	downstream.WorkflowGraph = downstreamGraph
	require.NoError(t, app.PipelineStore.Update(ctx, nil, downstream))

	event := server_test.CreateEvent(t, ctx, app, upstream.ID, "~commit")
	mainBuild := event.Builds[0]

	finishBuild(t, ctx, app, upstream, mainBuild, models.BuildStatusSuccess)

	downstreamEvents, err := app.EventService.ListByParentEventID(ctx, nil, event.ID)
	require.NoError(t, err)
	require.Len(t, downstreamEvents, 1)
	downstreamEvent := downstreamEvents[0]
	require.Equal(t, downstream.ID, downstreamEvent.PipelineID)
	require.Equal(t, fmt.Sprintf("~sd@%s:main", upstream.ID), downstreamEvent.StartFrom)
	require.Equal(t, fmt.Sprintf("Triggered by sd@%s:main", upstream.ID), downstreamEvent.CauseMessage)
	require.Equal(t, models.BuildIDList{mainBuild.ID}, downstreamEvent.ParentBuildIDs)
	require.Equal(t, event.ID, *downstreamEvent.ParentEventID)

	componentBuild := buildForJob(t, ctx, app, downstreamEvent.ID, componentJob.ID)
	require.Equal(t, models.BuildStatusQueued, componentBuild.Status)

	// The head commit was resolved with the downstream admin's token.
	calls := app.FakeSCM.Calls()
	require.NotEmpty(t, calls)
	last := calls[len(calls)-1]
	require.Equal(t, downstream.ScmURI, last.ScmURI)
	require.Equal(t, server_test.TestAdminToken, last.Token)
}

func TestExternalReentryJoin(t *testing.T) {
	app, cleanup := newTestServer(t)
	defer cleanup()
	ctx := context.Background()

	// Pipeline "origin" fans out to pipeline "remote" and joins the result
	// back with its own job: verify joins on both origin's verify-input and
	// remote's job coming back around.
	origin := server_test.CreatePipeline(t, ctx, app, "origin",
		server_test.WorkflowGraphFromEdges([]models.WorkflowEdge{{Src: "~commit", Dest: "placeholder"}}))
	remote := server_test.CreatePipeline(t, ctx, app, "remote",
		server_test.WorkflowGraphFromEdges([]models.WorkflowEdge{{Src: "~commit", Dest: "placeholder"}}))

	prepareJob := server_test.CreateJob(t, ctx, app, origin.ID, "prepare")
	verifyJob := server_test.CreateJob(t, ctx, app, origin.ID, "verify")
	remoteBuildJob := server_test.CreateJob(t, ctx, app, remote.ID, "build")

	remoteNodeFromOrigin := fmt.Sprintf("sd@%s:build", remote.ID)
	originNodeFromRemote := fmt.Sprintf("sd@%s:verify", origin.ID)

	origin.WorkflowGraph = server_test.WorkflowGraphFromEdges([]models.WorkflowEdge{
		{Src: "~commit", Dest: "prepare"},
		{Src: "prepare", Dest: remoteNodeFromOrigin},
		{Src: "prepare", Dest: "verify", Join: true},
		{Src: remoteNodeFromOrigin, Dest: "verify", Join: true},
	})
	require.NoError(t, app.PipelineStore.Update(ctx, nil, origin))

	remote.WorkflowGraph = server_test.WorkflowGraphFromEdges([]models.WorkflowEdge{
		{Src: fmt.Sprintf("~sd@%s:prepare", origin.ID), Dest: "build"},
		{Src: "build", Dest: originNodeFromRemote},
	})
	require.NoError(t, app.PipelineStore.Update(ctx, nil, remote))

	// prepare finishes: the engine creates the pending verify build and a
	// downstream event on remote.
	event := server_test.CreateEvent(t, ctx, app, origin.ID, "~commit")
	prepareBuild := buildForJob(t, ctx, app, event.ID, prepareJob.ID)
	finishBuild(t, ctx, app, origin, prepareBuild, models.BuildStatusSuccess)

	verifyBuild := buildForJob(t, ctx, app, event.ID, verifyJob.ID)
	require.Equal(t, models.BuildStatusCreated, verifyBuild.Status)

	remoteEvents, err := app.EventService.ListByParentEventID(ctx, nil, event.ID)
	require.NoError(t, err)
	require.Len(t, remoteEvents, 1)
	remoteBuild := buildForJob(t, ctx, app, remoteEvents[0].ID, remoteBuildJob.ID)
	require.Equal(t, models.BuildStatusQueued, remoteBuild.Status)
	// The remote build's ledger points back at the originating event, which
	// is what routes its completion back into that event.
	originEntry := remoteBuild.ParentBuilds[origin.ID]
	require.NotNil(t, originEntry)
	require.Equal(t, event.ID, *originEntry.EventID)
	require.Equal(t, prepareBuild.ID, *originEntry.Jobs["prepare"])

	// The remote build finishing re-enters origin's event, fills the join
	// and starts verify.
	finishBuild(t, ctx, app, remote, remoteBuild, models.BuildStatusSuccess)

	verifyBuild, err = app.BuildService.Read(ctx, nil, verifyBuild.ID)
	require.NoError(t, err)
	require.Equal(t, models.BuildStatusQueued, verifyBuild.Status)
	entry := verifyBuild.ParentBuilds[origin.ID]
	require.Equal(t, prepareBuild.ID, *entry.Jobs["prepare"])
	remoteEntry := verifyBuild.ParentBuilds[remote.ID]
	require.NotNil(t, remoteEntry)
	require.Equal(t, remoteBuild.ID, *remoteEntry.Jobs["build"])
	require.True(t, verifyBuild.ParentBuildIDs.Contains(remoteBuild.ID))
}

func TestDisabledJobSkipsBuildCreation(t *testing.T) {
	app, cleanup := newTestServer(t)
	defer cleanup()
	ctx := context.Background()

	graph := server_test.WorkflowGraphFromEdges([]models.WorkflowEdge{
		{Src: "~commit", Dest: "main"},
		{Src: "main", Dest: "publish"},
	})
	pipeline := server_test.CreatePipeline(t, ctx, app, "disabled-next", graph)
	server_test.CreateJob(t, ctx, app, pipeline.ID, "main")
	server_test.CreateDisabledJob(t, ctx, app, pipeline.ID, "publish")

	event := server_test.CreateEvent(t, ctx, app, pipeline.ID, "~commit")
	mainBuild := event.Builds[0]

	finishBuild(t, ctx, app, pipeline, mainBuild, models.BuildStatusSuccess)

	builds, err := app.BuildService.ListByEventID(ctx, nil, event.ID)
	require.NoError(t, err)
	require.Len(t, builds, 1, "a disabled next job must not produce a build")
}

func TestDisabledJoinTargetSkipsBuildCreation(t *testing.T) {
	app, cleanup := newTestServer(t)
	defer cleanup()
	ctx := context.Background()

	graph := server_test.WorkflowGraphFromEdges([]models.WorkflowEdge{
		{Src: "~commit", Dest: "build-linux"},
		{Src: "~commit", Dest: "build-macos"},
		{Src: "build-linux", Dest: "deploy", Join: true},
		{Src: "build-macos", Dest: "deploy", Join: true},
	})
	pipeline := server_test.CreatePipeline(t, ctx, app, "disabled-join-target", graph)
	linuxJob := server_test.CreateJob(t, ctx, app, pipeline.ID, "build-linux")
	macosJob := server_test.CreateJob(t, ctx, app, pipeline.ID, "build-macos")
	server_test.CreateDisabledJob(t, ctx, app, pipeline.ID, "deploy")

	event := server_test.CreateEvent(t, ctx, app, pipeline.ID, "~commit")

	finishBuild(t, ctx, app, pipeline, buildForJob(t, ctx, app, event.ID, linuxJob.ID), models.BuildStatusSuccess)
	finishBuild(t, ctx, app, pipeline, buildForJob(t, ctx, app, event.ID, macosJob.ID), models.BuildStatusSuccess)

	builds, err := app.BuildService.ListByEventID(ctx, nil, event.ID)
	require.NoError(t, err)
	require.Len(t, builds, 2, "a disabled join target must not produce a build")
}

func TestUnstableParentPoisonsJoin(t *testing.T) {
	app, cleanup := newTestServer(t)
	defer cleanup()
	ctx := context.Background()

	graph := server_test.WorkflowGraphFromEdges([]models.WorkflowEdge{
		{Src: "~commit", Dest: "build-linux"},
		{Src: "~commit", Dest: "build-macos"},
		{Src: "build-linux", Dest: "deploy", Join: true},
		{Src: "build-macos", Dest: "deploy", Join: true},
	})
	pipeline := server_test.CreatePipeline(t, ctx, app, "unstable-join", graph)
	linuxJob := server_test.CreateJob(t, ctx, app, pipeline.ID, "build-linux")
	macosJob := server_test.CreateJob(t, ctx, app, pipeline.ID, "build-macos")
	deployJob := server_test.CreateJob(t, ctx, app, pipeline.ID, "deploy")

	event := server_test.CreateEvent(t, ctx, app, pipeline.ID, "~commit")
	linuxBuild := buildForJob(t, ctx, app, event.ID, linuxJob.ID)
	macosBuild := buildForJob(t, ctx, app, event.ID, macosJob.ID)

	finishBuild(t, ctx, app, pipeline, linuxBuild, models.BuildStatusSuccess)
	deployBuild := buildForJob(t, ctx, app, event.ID, deployJob.ID)

	finishBuild(t, ctx, app, pipeline, macosBuild, models.BuildStatusUnstable)
	_, err := app.BuildService.Read(ctx, nil, deployBuild.ID)
	require.True(t, gerror.IsNotFound(err))
}

func TestRepeatedDeliveryIsIdempotent(t *testing.T) {
	app, cleanup := newTestServer(t)
	defer cleanup()
	ctx := context.Background()

	graph := server_test.WorkflowGraphFromEdges([]models.WorkflowEdge{
		{Src: "~commit", Dest: "build-linux"},
		{Src: "~commit", Dest: "build-macos"},
		{Src: "build-linux", Dest: "deploy", Join: true},
		{Src: "build-macos", Dest: "deploy", Join: true},
	})
	pipeline := server_test.CreatePipeline(t, ctx, app, "repeat-delivery", graph)
	linuxJob := server_test.CreateJob(t, ctx, app, pipeline.ID, "build-linux")
	server_test.CreateJob(t, ctx, app, pipeline.ID, "build-macos")
	deployJob := server_test.CreateJob(t, ctx, app, pipeline.ID, "deploy")

	event := server_test.CreateEvent(t, ctx, app, pipeline.ID, "~commit")
	linuxBuild := buildForJob(t, ctx, app, event.ID, linuxJob.ID)

	finishBuild(t, ctx, app, pipeline, linuxBuild, models.BuildStatusSuccess)
	first := buildForJob(t, ctx, app, event.ID, deployJob.ID)

	// The same completion delivered again must not fork a second pending
	// build or change the ledger.
	finishBuild(t, ctx, app, pipeline, linuxBuild, models.BuildStatusSuccess)
	second := buildForJob(t, ctx, app, event.ID, deployJob.ID)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, first.ParentBuilds, second.ParentBuilds)
	require.Equal(t, first.ParentBuildIDs, second.ParentBuildIDs)
}
