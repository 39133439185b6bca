package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
)

// IDs are allocated by the database when a resource is created; zero means
// the resource has not been persisted yet.

type PipelineID uint64

func (id PipelineID) Valid() bool    { return id != 0 }
func (id PipelineID) String() string { return strconv.FormatUint(uint64(id), 10) }

func ParsePipelineID(str string) (PipelineID, error) {
	val, err := strconv.ParseUint(str, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("error parsing pipeline id %q: %w", str, err)
	}
	return PipelineID(val), nil
}

type JobID uint64

func (id JobID) Valid() bool    { return id != 0 }
func (id JobID) String() string { return strconv.FormatUint(uint64(id), 10) }

type EventID uint64

func (id EventID) Valid() bool    { return id != 0 }
func (id EventID) String() string { return strconv.FormatUint(uint64(id), 10) }

type BuildID uint64

func (id BuildID) Valid() bool    { return id != 0 }
func (id BuildID) String() string { return strconv.FormatUint(uint64(id), 10) }

// BuildIDList is a list of build IDs that tolerates a bare scalar on the
// wire: historical payloads recorded a single parent build id as a number
// rather than a one-element array, and stored rows still carry both shapes.
type BuildIDList []BuildID

func (l BuildIDList) MarshalJSON() ([]byte, error) {
	if len(l) == 1 {
		return json.Marshal(l[0])
	}
	return json.Marshal([]BuildID(l))
}

func (l *BuildIDList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		return json.Unmarshal(data, (*[]BuildID)(l))
	}
	var single BuildID
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	*l = BuildIDList{single}
	return nil
}

// Contains returns true if id is in the list.
func (l BuildIDList) Contains(id BuildID) bool {
	for _, candidate := range l {
		if candidate == id {
			return true
		}
	}
	return false
}

func (l *BuildIDList) Scan(src interface{}) error {
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
	return l.UnmarshalJSON(buf)
}

func (l BuildIDList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	buf, err := json.Marshal([]BuildID(l))
	if err != nil {
		return nil, err
	}
	return string(buf), nil
}
