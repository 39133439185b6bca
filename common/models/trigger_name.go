package models

import (
	"fmt"
	"regexp"
	"strings"
)

// externalTriggerPattern matches a cross-pipeline trigger node name of the
// form "sd@<pipelineID>:<jobName>", optionally prefixed with "~".
var externalTriggerPattern = regexp.MustCompile(`^~?sd@(\d+):([\w-]+)$`)

// TriggerName is the result of classifying a workflow-graph node name.
// For external names the pipeline id and job name come from the name itself;
// for everything else the name belongs to the current pipeline.
type TriggerName struct {
	PipelineID PipelineID
	JobName    string
	External   bool
}

func ParseTriggerName(name string, currentPipelineID PipelineID) TriggerName {
	match := externalTriggerPattern.FindStringSubmatch(name)
	if match == nil {
		return TriggerName{PipelineID: currentPipelineID, JobName: name, External: false}
	}
	pipelineID, err := ParsePipelineID(match[1])
	if err != nil {
		// The pattern guarantees digits; overflow is the only way here.
		return TriggerName{PipelineID: currentPipelineID, JobName: name, External: false}
	}
	return TriggerName{PipelineID: pipelineID, JobName: match[2], External: true}
}

// IsExternalTriggerName returns true for cross-pipeline node names
// ("sd@<n>:<job>" or "~sd@<n>:<job>").
func IsExternalTriggerName(name string) bool {
	return externalTriggerPattern.MatchString(name)
}

// IsPRJobName returns true for pull-request job names ("PR-<n>:<job>").
// External trigger names also contain a colon but are not PR names.
func IsPRJobName(name string) bool {
	return strings.Contains(name, ":") && !externalTriggerPattern.MatchString(name)
}

// TrimJobName returns the canonical job name used for workflow-graph
// lookups: the portion after the colon for PR names, otherwise the name
// unchanged. Idempotent.
func TrimJobName(name string) string {
	if !IsPRJobName(name) {
		return name
	}
	return name[strings.Index(name, ":")+1:]
}

// ExternalTriggerName formats the cross-pipeline node name for a job.
func ExternalTriggerName(pipelineID PipelineID, jobName string) string {
	return fmt.Sprintf("sd@%s:%s", pipelineID, jobName)
}

// TildeTriggerName formats the trigger-node form of an external name, used
// as the start-from point when creating a downstream event.
func TildeTriggerName(pipelineID PipelineID, jobName string) string {
	return fmt.Sprintf("~sd@%s:%s", pipelineID, jobName)
}
