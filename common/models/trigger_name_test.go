package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseTriggerName(t *testing.T) {
	current := PipelineID(1)

	internal := ParseTriggerName("build", current)
	require.False(t, internal.External)
	require.Equal(t, current, internal.PipelineID)
	require.Equal(t, "build", internal.JobName)

	external := ParseTriggerName("sd@42:deploy", current)
	require.True(t, external.External)
	require.Equal(t, PipelineID(42), external.PipelineID)
	require.Equal(t, "deploy", external.JobName)

	tilde := ParseTriggerName("~sd@42:deploy", current)
	require.True(t, tilde.External)
	require.Equal(t, PipelineID(42), tilde.PipelineID)
	require.Equal(t, "deploy", tilde.JobName)

	// PR names contain a colon but are not external
	pr := ParseTriggerName("PR-15:main", current)
	require.False(t, pr.External)
	require.Equal(t, current, pr.PipelineID)
	require.Equal(t, "PR-15:main", pr.JobName)

	// classify(format(classify(name))) round-trips
	again := ParseTriggerName(ExternalTriggerName(external.PipelineID, external.JobName), current)
	require.Equal(t, external, again)
}

func TestIsPRJobName(t *testing.T) {
	require.True(t, IsPRJobName("PR-15:main"))
	require.False(t, IsPRJobName("main"))
	require.False(t, IsPRJobName("sd@42:deploy"))
	require.False(t, IsPRJobName("~sd@42:deploy"))
}

func TestTrimJobName(t *testing.T) {
	require.Equal(t, "main", TrimJobName("PR-15:main"))
	require.Equal(t, "main", TrimJobName("main"))
	require.Equal(t, "sd@42:deploy", TrimJobName("sd@42:deploy"))

	// idempotent
	require.Equal(t, TrimJobName("PR-15:main"), TrimJobName(TrimJobName("PR-15:main")))
}

func TestTriggerNameFormatting(t *testing.T) {
	require.Equal(t, "sd@7:test", ExternalTriggerName(7, "test"))
	require.Equal(t, "~sd@7:test", TildeTriggerName(7, "test"))
}
