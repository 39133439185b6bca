package models

import (
	"database/sql/driver"
	"fmt"
)

type BuildStatus string

const (
	BuildStatusCreated   BuildStatus = "CREATED"
	BuildStatusQueued    BuildStatus = "QUEUED"
	BuildStatusRunning   BuildStatus = "RUNNING"
	BuildStatusSuccess   BuildStatus = "SUCCESS"
	BuildStatusFailure   BuildStatus = "FAILURE"
	BuildStatusAborted   BuildStatus = "ABORTED"
	BuildStatusUnstable  BuildStatus = "UNSTABLE"
	BuildStatusCollapsed BuildStatus = "COLLAPSED"
)

func (s BuildStatus) String() string {
	return string(s)
}

func (s BuildStatus) Valid() bool {
	switch s {
	case BuildStatusCreated,
		BuildStatusQueued,
		BuildStatusRunning,
		BuildStatusSuccess,
		BuildStatusFailure,
		BuildStatusAborted,
		BuildStatusUnstable,
		BuildStatusCollapsed:
		return true
	}
	return false
}

// Terminal returns true if the build has finished and will not change
// status again. An UNSTABLE build is terminal.
func (s BuildStatus) Terminal() bool {
	switch s {
	case BuildStatusSuccess,
		BuildStatusFailure,
		BuildStatusAborted,
		BuildStatusUnstable,
		BuildStatusCollapsed:
		return true
	}
	return false
}

// Failed returns true if the build finished without success. UNSTABLE counts
// as failed so that instability does not propagate downstream.
func (s BuildStatus) Failed() bool {
	switch s {
	case BuildStatusFailure,
		BuildStatusAborted,
		BuildStatusUnstable,
		BuildStatusCollapsed:
		return true
	}
	return false
}

func (s *BuildStatus) Scan(src interface{}) error {
	if src == nil {
		return nil
	}
	str, ok := src.(string)
	if !ok {
		return fmt.Errorf("unsupported type: %[1]T (%[1]v)", src)
	}
	*s = BuildStatus(str)
	return nil
}

func (s BuildStatus) Value() (driver.Value, error) {
	return string(s), nil
}
