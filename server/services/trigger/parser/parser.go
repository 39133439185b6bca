// Package parser answers workflow graph queries for the trigger engine:
// which jobs a finished job triggers next, and which source jobs feed a
// join target.
package parser

import (
	"strings"

	"github.com/conveyorci/conveyor/common/models"
)

// NextJobs returns the names of the jobs triggered when the named job
// finishes. For PR-scoped jobs (PR-123:main) the graph is queried with the
// trimmed name; when chainPR is set the PR prefix is re-applied to internal
// destinations so the whole chain stays in the PR scope. External
// destinations (sd@N:job) never take the prefix.
func NextJobs(graph *models.WorkflowGraph, triggerName string, chainPR bool) []string {
	prPrefix := ""
	src := triggerName
	if models.IsPRJobName(triggerName) {
		prPrefix = triggerName[:strings.Index(triggerName, ":")+1]
		src = models.TrimJobName(triggerName)
	}

	var next []string
	seen := make(map[string]bool)
	for _, edge := range graph.Edges {
		if edge.Src != src {
			continue
		}
		dest := edge.Dest
		if prPrefix != "" && chainPR && !models.IsExternalTriggerName(dest) {
			dest = prPrefix + dest
		}
		if !seen[dest] {
			seen[dest] = true
			next = append(next, dest)
		}
	}
	return next
}

// SrcForJoin returns the source job names of all join edges into jobName.
// An empty result means jobName is not a join target.
func SrcForJoin(graph *models.WorkflowGraph, jobName string) []string {
	var srcs []string
	seen := make(map[string]bool)
	for _, edge := range graph.Edges {
		if edge.Dest != jobName || !edge.Join {
			continue
		}
		if !seen[edge.Src] {
			seen[edge.Src] = true
			srcs = append(srcs, edge.Src)
		}
	}
	return srcs
}
