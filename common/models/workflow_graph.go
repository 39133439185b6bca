package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
)

// WorkflowGraph describes the jobs of a pipeline and the trigger
// relationships between them. Node names starting with "~" are trigger
// entry points; names of the form "sd@<pid>:<job>" refer to jobs in other
// pipelines.
type WorkflowGraph struct {
	Nodes []WorkflowNode `json:"nodes"`
	Edges []WorkflowEdge `json:"edges"`
}

type WorkflowNode struct {
	Name string `json:"name"`
}

type WorkflowEdge struct {
	Src  string `json:"src"`
	Dest string `json:"dest"`
	// Join marks an AND edge: the destination waits for all join-flagged
	// sources to finish, rather than starting on any one of them.
	Join bool `json:"join,omitempty"`
}

// FindNode returns the node with the given name, or nil.
func (g *WorkflowGraph) FindNode(name string) *WorkflowNode {
	for i := range g.Nodes {
		if g.Nodes[i].Name == name {
			return &g.Nodes[i]
		}
	}
	return nil
}

func (g *WorkflowGraph) Scan(src interface{}) error {
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
	err := json.Unmarshal(buf, g)
	if err != nil {
		return errors.Wrap(err, "error unmarshaling workflow graph")
	}
	return nil
}

func (g WorkflowGraph) Value() (driver.Value, error) {
	buf, err := json.Marshal(g)
	if err != nil {
		return nil, errors.Wrap(err, "error marshaling workflow graph")
	}
	return string(buf), nil
}
