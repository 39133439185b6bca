package trigger

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/conveyorci/conveyor/common/models"
)

func TestReentryTargetNode(t *testing.T) {
	graph := &models.WorkflowGraph{Nodes: []models.WorkflowNode{
		{Name: "build"},
		{Name: "~sd@1:deploy"},
	}}

	require.Equal(t, "build", reentryTargetNode(graph, "build").Name)
	// A snapshot that kept the cross-pipeline form still resolves.
	require.Equal(t, "~sd@1:deploy", reentryTargetNode(graph, "deploy").Name)
	require.Nil(t, reentryTargetNode(graph, "missing"))
}
