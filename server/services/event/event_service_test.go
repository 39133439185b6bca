package event_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/conveyorci/conveyor/common/models"
	"github.com/conveyorci/conveyor/server/app/server_test"
	"github.com/conveyorci/conveyor/server/dto"
)

func newTestServer(t *testing.T) (*server_test.TestServer, func()) {
	app, cleanup, err := server_test.New(server_test.TestConfig(t))
	require.NoError(t, err)
	return app, cleanup
}

func testGraph() models.WorkflowGraph {
	return server_test.WorkflowGraphFromEdges([]models.WorkflowEdge{
		{Src: "~commit", Dest: "main"},
		{Src: "main", Dest: "publish"},
	})
}

func TestCreateRootEventAnchorsLineage(t *testing.T) {
	app, cleanup := newTestServer(t)
	defer cleanup()
	ctx := context.Background()

	pipeline := server_test.CreatePipeline(t, ctx, app, "lineage-root", testGraph())
	server_test.CreateJob(t, ctx, app, pipeline.ID, "main")

	event := server_test.CreateEvent(t, ctx, app, pipeline.ID, "~commit")
	require.Equal(t, event.ID, event.GroupEventID, "a root event anchors its own restart lineage")
	require.Nil(t, event.ParentEventID)

	// A restart fork keeps the original lineage root.
	fork, err := app.EventService.Create(ctx, nil, &dto.CreateEvent{
		PipelineID:   pipeline.ID,
		StartFrom:    "main",
		CauseMessage: "restart",
		Username:     "test-user",
		GroupEventID: event.GroupEventID,
	})
	require.NoError(t, err)
	require.Equal(t, event.GroupEventID, fork.GroupEventID)
	require.NotEqual(t, event.ID, fork.ID)

	lineage, err := app.EventService.ListByGroupEventID(ctx, nil, event.GroupEventID)
	require.NoError(t, err)
	require.Len(t, lineage, 2)
}

func TestCreateEventResolvesHeadCommit(t *testing.T) {
	app, cleanup := newTestServer(t)
	defer cleanup()
	ctx := context.Background()

	pipeline := server_test.CreatePipeline(t, ctx, app, "head-resolve", testGraph())
	server_test.CreateJob(t, ctx, app, pipeline.ID, "main")

	app.FakeSCM.SetHeadSHA(pipeline.ScmURI, "1234567890abcdef1234567890abcdef12345678")

	event := server_test.CreateEvent(t, ctx, app, pipeline.ID, "~commit")
	require.Equal(t, "1234567890abcdef1234567890abcdef12345678", event.SHA)
	require.Equal(t, event.SHA, event.Builds[0].SHA)

	calls := app.FakeSCM.Calls()
	require.NotEmpty(t, calls)
	require.Equal(t, pipeline.ScmURI, calls[len(calls)-1].ScmURI)
	require.Equal(t, server_test.TestAdminToken, calls[len(calls)-1].Token)
}

func TestCreateEventPinnedSHASkipsSCM(t *testing.T) {
	app, cleanup := newTestServer(t)
	defer cleanup()
	ctx := context.Background()

	pipeline := server_test.CreatePipeline(t, ctx, app, "pinned-sha", testGraph())
	server_test.CreateJob(t, ctx, app, pipeline.ID, "main")

	event, err := app.EventService.Create(ctx, nil, &dto.CreateEvent{
		PipelineID:   pipeline.ID,
		StartFrom:    "main",
		CauseMessage: "pinned",
		Username:     "test-user",
		SHA:          "fefefefefefefefefefefefefefefefefefefefe",
	})
	require.NoError(t, err)
	require.Equal(t, "fefefefefefefefefefefefefefefefefefefefe", event.SHA)
	require.Empty(t, app.FakeSCM.Calls())
}

func TestCreateEventResolvesConfigPipelineSHA(t *testing.T) {
	app, cleanup := newTestServer(t)
	defer cleanup()
	ctx := context.Background()

	configPipeline := server_test.CreatePipeline(t, ctx, app, "shared-config", testGraph())
	pipeline := server_test.CreatePipeline(t, ctx, app, "config-consumer", testGraph())
	server_test.CreateJob(t, ctx, app, pipeline.ID, "main")

	pipeline.ConfigPipelineID = &configPipeline.ID
	require.NoError(t, app.PipelineStore.Update(ctx, nil, pipeline))

	app.FakeSCM.SetHeadSHA(pipeline.ScmURI, "1111111111111111111111111111111111111111")
	app.FakeSCM.SetHeadSHA(configPipeline.ScmURI, "2222222222222222222222222222222222222222")

	event := server_test.CreateEvent(t, ctx, app, pipeline.ID, "~commit")
	require.Equal(t, "1111111111111111111111111111111111111111", event.SHA)
	require.Equal(t, "2222222222222222222222222222222222222222", event.ConfigPipelineSHA)
	require.Equal(t, event.ConfigPipelineSHA, event.Builds[0].ConfigPipelineSHA)
}

func TestCreateEventDefaultsBaseBranch(t *testing.T) {
	app, cleanup := newTestServer(t)
	defer cleanup()
	ctx := context.Background()

	pipeline := server_test.CreatePipeline(t, ctx, app, "base-branch", testGraph())
	server_test.CreateJob(t, ctx, app, pipeline.ID, "main")

	event := server_test.CreateEvent(t, ctx, app, pipeline.ID, "~commit")
	require.Equal(t, pipeline.Branch, event.BaseBranch)

	// An explicit base branch wins over the pipeline default.
	override, err := app.EventService.Create(ctx, nil, &dto.CreateEvent{
		PipelineID:   pipeline.ID,
		StartFrom:    "~commit",
		CauseMessage: "feature branch",
		Username:     "test-user",
		BaseBranch:   "release/1.x",
	})
	require.NoError(t, err)
	require.Equal(t, "release/1.x", override.BaseBranch)
}

func TestCreateEventUnstartedBuilds(t *testing.T) {
	app, cleanup := newTestServer(t)
	defer cleanup()
	ctx := context.Background()

	pipeline := server_test.CreatePipeline(t, ctx, app, "unstarted", testGraph())
	server_test.CreateJob(t, ctx, app, pipeline.ID, "main")

	start := false
	event, err := app.EventService.Create(ctx, nil, &dto.CreateEvent{
		PipelineID:   pipeline.ID,
		StartFrom:    "~commit",
		CauseMessage: "hold",
		Username:     "test-user",
		Start:        &start,
	})
	require.NoError(t, err)
	require.Len(t, event.Builds, 1)
	require.Equal(t, models.BuildStatusCreated, event.Builds[0].Status)
}

func TestCreateEventSnapshotsGraph(t *testing.T) {
	app, cleanup := newTestServer(t)
	defer cleanup()
	ctx := context.Background()

	pipeline := server_test.CreatePipeline(t, ctx, app, "snapshot", testGraph())
	server_test.CreateJob(t, ctx, app, pipeline.ID, "main")

	event := server_test.CreateEvent(t, ctx, app, pipeline.ID, "~commit")

	// Changing the pipeline's graph must not affect the event in flight.
	pipeline.WorkflowGraph = server_test.WorkflowGraphFromEdges([]models.WorkflowEdge{
		{Src: "~commit", Dest: "other"},
	})
	require.NoError(t, app.PipelineStore.Update(ctx, nil, pipeline))

	reread, err := app.EventService.Read(ctx, nil, event.ID)
	require.NoError(t, err)
	require.NotNil(t, reread.WorkflowGraph.FindNode("main"))
	require.NotNil(t, reread.WorkflowGraph.FindNode("publish"))
}
