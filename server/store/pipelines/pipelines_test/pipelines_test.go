package pipelines_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/conveyorci/conveyor/common/models"
	"github.com/conveyorci/conveyor/server/app/server_test"
)

func TestPipeline(t *testing.T) {
	app, cleanup, err := server_test.New(server_test.TestConfig(t))
	require.NoError(t, err)
	defer cleanup()

	ctx := context.Background()

	graph := server_test.WorkflowGraphFromEdges([]models.WorkflowEdge{
		{Src: "~commit", Dest: "main"},
	})
	pipeline := server_test.CreatePipeline(t, ctx, app, "round-trip", graph)
	t.Run("Read", testPipelineRead(app, pipeline))
}

func testPipelineRead(app *server_test.TestServer, referencePipeline *models.Pipeline) func(t *testing.T) {
	return func(t *testing.T) {
		ctx := context.Background()
		pipeline, err := app.PipelineStore.Read(ctx, nil, referencePipeline.ID)
		require.NoError(t, err)
		require.Equal(t, referencePipeline.ID, pipeline.ID)
		require.Equal(t, referencePipeline.Name, pipeline.Name)
		require.Equal(t, referencePipeline.ScmContext, pipeline.ScmContext)
		require.Equal(t, referencePipeline.ScmURI, pipeline.ScmURI)
		require.Equal(t, referencePipeline.Branch, pipeline.Branch)
		require.Equal(t, referencePipeline.WorkflowGraph, pipeline.WorkflowGraph)

		// The sealed token is AES-GCM ciphertext, so this round-trips
		// arbitrary binary through the blob column.
		require.Equal(t, referencePipeline.AdminTokenSealed, pipeline.AdminTokenSealed)
		token, err := app.TokenSealer.Unseal(ctx, []byte(pipeline.AdminTokenSealed))
		require.NoError(t, err)
		require.Equal(t, server_test.TestAdminToken, token)
	}
}
