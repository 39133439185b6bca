package server_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/conveyorci/conveyor/common/models"
	"github.com/conveyorci/conveyor/server/dto"
)

const TestAdminToken = "test-scm-token"

// CreatePipeline creates a pipeline with a sealed admin token and the given
// workflow graph, for use during a test. Any errors fail the test.
func CreatePipeline(t *testing.T, ctx context.Context, app *TestServer, name string, graph models.WorkflowGraph) *models.Pipeline {
	sealed, err := app.TokenSealer.Seal(ctx, TestAdminToken)
	require.NoError(t, err)

	pipeline := models.NewPipeline(models.NewTime(time.Now()), models.PipelineData{
		Name:             name,
		ScmContext:       "fake-scm",
		ScmURI:           fmt.Sprintf("fake-scm:repo/%s", name),
		Branch:           "main",
		AdminUsername:    "test-admin",
		AdminTokenSealed: models.BinaryBlob(sealed),
		WorkflowGraph:    graph,
	})
	err = app.PipelineStore.Create(ctx, nil, pipeline)
	require.NoError(t, err)
	return pipeline
}

// CreateJob creates an enabled job in the pipeline. Any errors fail the test.
func CreateJob(t *testing.T, ctx context.Context, app *TestServer, pipelineID models.PipelineID, name string) *models.Job {
	return createJobInState(t, ctx, app, pipelineID, name, models.JobStateEnabled)
}

// CreateDisabledJob creates a disabled job in the pipeline.
func CreateDisabledJob(t *testing.T, ctx context.Context, app *TestServer, pipelineID models.PipelineID, name string) *models.Job {
	return createJobInState(t, ctx, app, pipelineID, name, models.JobStateDisabled)
}

func createJobInState(t *testing.T, ctx context.Context, app *TestServer, pipelineID models.PipelineID, name string, state models.JobState) *models.Job {
	job := models.NewJob(models.NewTime(time.Now()), models.JobData{
		PipelineID: pipelineID,
		Name:       name,
		State:      state,
	})
	err := app.JobStore.Create(ctx, nil, job)
	require.NoError(t, err)
	return job
}

// CreateEvent creates an event for the pipeline through the event service,
// starting from the given job or trigger node. Any errors fail the test.
func CreateEvent(t *testing.T, ctx context.Context, app *TestServer, pipelineID models.PipelineID, startFrom string) *dto.EventWithBuilds {
	event, err := app.EventService.Create(ctx, nil, &dto.CreateEvent{
		PipelineID:   pipelineID,
		Type:         models.EventTypePipeline,
		StartFrom:    startFrom,
		CauseMessage: "test event",
		Username:     "test-user",
	})
	require.NoError(t, err)
	return event
}

// WorkflowGraphFromEdges builds a graph whose node set is derived from the
// edge endpoints.
func WorkflowGraphFromEdges(edges []models.WorkflowEdge) models.WorkflowGraph {
	seen := make(map[string]bool)
	graph := models.WorkflowGraph{Edges: edges}
	for _, edge := range edges {
		for _, name := range []string{edge.Src, edge.Dest} {
			if !seen[name] {
				seen[name] = true
				graph.Nodes = append(graph.Nodes, models.WorkflowNode{Name: name})
			}
		}
	}
	return graph
}
