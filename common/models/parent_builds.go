package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
)

// ParentBuilds is the ledger a build carries recording which upstream builds
// have contributed to it so far, keyed by pipeline. A nil build id means the
// upstream job has not reported in yet.
type ParentBuilds map[PipelineID]*ParentBuildsForPipeline

// ParentBuildsForPipeline records the most recent contributing event from a
// pipeline and the upstream builds it supplied, keyed by canonical job name.
type ParentBuildsForPipeline struct {
	EventID *EventID            `json:"eventId"`
	Jobs    map[string]*BuildID `json:"jobs"`
}

// NewSingletonParentBuilds builds a one-entry ledger recording a single
// upstream build's contribution.
func NewSingletonParentBuilds(pipelineID PipelineID, eventID EventID, jobName string, buildID BuildID) ParentBuilds {
	return ParentBuilds{
		pipelineID: {
			EventID: &eventID,
			Jobs:    map[string]*BuildID{jobName: &buildID},
		},
	}
}

// NewJoinSkeleton builds a ledger with a nil entry for every name in the
// join list, so a join evaluates as not-done until every entry is filled.
// Names for the same pipeline share one entry.
func NewJoinSkeleton(currentPipelineID PipelineID, joinNames []string) ParentBuilds {
	skeleton := make(ParentBuilds)
	for _, name := range joinNames {
		trigger := ParseTriggerName(name, currentPipelineID)
		entry, ok := skeleton[trigger.PipelineID]
		if !ok {
			entry = &ParentBuildsForPipeline{Jobs: make(map[string]*BuildID)}
			skeleton[trigger.PipelineID] = entry
		}
		entry.Jobs[trigger.JobName] = nil
	}
	return skeleton
}

// MergeParentBuilds deep-merges ledgers left to right: keys are unioned at
// both levels and later values win at the leaves, except that a nil value
// never overwrites a known one. Merging the same ledger twice yields the
// same result, so repeated delivery of an upstream completion is harmless.
func MergeParentBuilds(ledgers ...ParentBuilds) ParentBuilds {
	merged := make(ParentBuilds)
	for _, ledger := range ledgers {
		for pipelineID, entry := range ledger {
			if entry == nil {
				continue
			}
			mergedEntry, ok := merged[pipelineID]
			if !ok {
				mergedEntry = &ParentBuildsForPipeline{Jobs: make(map[string]*BuildID)}
				merged[pipelineID] = mergedEntry
			}
			if entry.EventID != nil {
				eventID := *entry.EventID
				mergedEntry.EventID = &eventID
			}
			for jobName, buildID := range entry.Jobs {
				if buildID != nil {
					id := *buildID
					mergedEntry.Jobs[jobName] = &id
				} else if _, exists := mergedEntry.Jobs[jobName]; !exists {
					mergedEntry.Jobs[jobName] = nil
				}
			}
		}
	}
	return merged
}

// Copy returns a deep copy of the ledger.
func (p ParentBuilds) Copy() ParentBuilds {
	return MergeParentBuilds(p)
}

func (p *ParentBuilds) Scan(src interface{}) error {
	if src == nil {
		return nil
	}
	var buf []byte
	switch data := src.(type) {
	case []byte:
		buf = data
	case string:
		buf = []byte(data)
	default:
		return fmt.Errorf("unsupported type: %[1]T (%[1]v)", src)
	}
	if len(buf) == 0 {
		return nil
	}
	err := json.Unmarshal(buf, p)
	if err != nil {
		return errors.Wrap(err, "error unmarshaling parent builds")
	}
	return nil
}

func (p ParentBuilds) Value() (driver.Value, error) {
	if p == nil {
		return nil, nil
	}
	buf, err := json.Marshal(p)
	if err != nil {
		return nil, errors.Wrap(err, "error marshaling parent builds")
	}
	return string(buf), nil
}
