package util

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFilterOSArgs(t *testing.T) {
	whitelist := []string{
		"database_driver",
		"database_max_connections",
		"log_levels",
	}

	in := []string{
		"/usr/bin/conveyor-server",
		"--database_driver",
		"postgres",
		"--database_connection_string",
		"postgres://conveyor:secret@db:5432/conveyor",
		"--encryption_master_key",
		"abcdefghijklmnopqrstuvwxyz123456",
		"--log_levels",
		"TriggerService=debug",
		"-database_max_connections",
		"10",
	}

	out := []string{
		"/usr/bin/conveyor-server",
		"--database_driver",
		"postgres",
		"--database_connection_string",
		"*******************************************",
		"--encryption_master_key",
		"********************************",
		"--log_levels",
		"TriggerService=debug",
		"-database_max_connections",
		"10",
	}

	require.Equal(t, out, FilterOSArgs(in, whitelist))
}
