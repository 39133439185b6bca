package parser

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/conveyorci/conveyor/common/models"
)

func graphFromEdges(edges []models.WorkflowEdge) *models.WorkflowGraph {
	seen := make(map[string]bool)
	graph := &models.WorkflowGraph{Edges: edges}
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

func TestNextJobs(t *testing.T) {
	graph := graphFromEdges([]models.WorkflowEdge{
		{Src: "~commit", Dest: "main"},
		{Src: "main", Dest: "publish"},
		{Src: "main", Dest: "docs"},
		{Src: "main", Dest: "sd@456:component"},
		{Src: "publish", Dest: "deploy", Join: true},
		{Src: "docs", Dest: "deploy", Join: true},
	})

	require.ElementsMatch(t, []string{"main"}, NextJobs(graph, "~commit", false))
	require.ElementsMatch(t, []string{"publish", "docs", "sd@456:component"}, NextJobs(graph, "main", false))
	require.ElementsMatch(t, []string{"deploy"}, NextJobs(graph, "publish", false))
	require.Empty(t, NextJobs(graph, "deploy", false))
	require.Empty(t, NextJobs(graph, "no-such-job", false))
}

func TestNextJobsPRChaining(t *testing.T) {
	graph := graphFromEdges([]models.WorkflowEdge{
		{Src: "main", Dest: "publish"},
		{Src: "main", Dest: "sd@456:component"},
	})

	// The PR prefix carries onto internal destinations only.
	require.ElementsMatch(t, []string{"PR-15:publish", "sd@456:component"},
		NextJobs(graph, "PR-15:main", true))

	// Without chaining the PR scope stops at the finished job.
	require.ElementsMatch(t, []string{"publish", "sd@456:component"},
		NextJobs(graph, "PR-15:main", false))
}

func TestNextJobsDeduplicates(t *testing.T) {
	graph := graphFromEdges([]models.WorkflowEdge{
		{Src: "main", Dest: "deploy"},
		{Src: "main", Dest: "deploy", Join: true},
	})
	require.Equal(t, []string{"deploy"}, NextJobs(graph, "main", false))
}

func TestSrcForJoin(t *testing.T) {
	graph := graphFromEdges([]models.WorkflowEdge{
		{Src: "main", Dest: "publish"},
		{Src: "publish", Dest: "deploy", Join: true},
		{Src: "docs", Dest: "deploy", Join: true},
		{Src: "sd@456:component", Dest: "deploy", Join: true},
	})

	require.ElementsMatch(t, []string{"publish", "docs", "sd@456:component"}, SrcForJoin(graph, "deploy"))

	// Non-join edges do not make a join target.
	require.Empty(t, SrcForJoin(graph, "publish"))
	require.Empty(t, SrcForJoin(graph, "absent"))
}
