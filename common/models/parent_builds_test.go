package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func buildIDPtr(id BuildID) *BuildID { return &id }
func eventIDPtr(id EventID) *EventID { return &id }

func TestNewSingletonParentBuilds(t *testing.T) {
	ledger := NewSingletonParentBuilds(1, 100, "main", 10)
	require.Len(t, ledger, 1)
	require.Equal(t, eventIDPtr(100), ledger[1].EventID)
	require.Equal(t, buildIDPtr(10), ledger[1].Jobs["main"])
}

func TestNewJoinSkeleton(t *testing.T) {
	skeleton := NewJoinSkeleton(1, []string{"build", "test", "sd@2:deploy", "sd@2:publish"})
	require.Len(t, skeleton, 2)

	require.Nil(t, skeleton[1].EventID)
	require.Len(t, skeleton[1].Jobs, 2)
	require.Contains(t, skeleton[1].Jobs, "build")
	require.Contains(t, skeleton[1].Jobs, "test")
	require.Nil(t, skeleton[1].Jobs["build"])

	// entries for the same external pipeline share one map
	require.Len(t, skeleton[2].Jobs, 2)
	require.Contains(t, skeleton[2].Jobs, "deploy")
	require.Contains(t, skeleton[2].Jobs, "publish")
}

func TestMergeParentBuilds(t *testing.T) {
	skeleton := NewJoinSkeleton(1, []string{"build", "test"})
	first := NewSingletonParentBuilds(1, 100, "build", 10)
	second := NewSingletonParentBuilds(1, 100, "test", 11)

	merged := MergeParentBuilds(skeleton, first, second)
	require.Len(t, merged, 1)
	require.Equal(t, eventIDPtr(100), merged[1].EventID)
	require.Equal(t, buildIDPtr(10), merged[1].Jobs["build"])
	require.Equal(t, buildIDPtr(11), merged[1].Jobs["test"])
}

func TestMergeParentBuildsRightBiased(t *testing.T) {
	older := NewSingletonParentBuilds(1, 100, "build", 10)
	newer := NewSingletonParentBuilds(1, 101, "build", 12)

	merged := MergeParentBuilds(older, newer)
	require.Equal(t, eventIDPtr(101), merged[1].EventID)
	require.Equal(t, buildIDPtr(12), merged[1].Jobs["build"])
}

func TestMergeParentBuildsNilNeverClobbers(t *testing.T) {
	filled := NewSingletonParentBuilds(1, 100, "build", 10)
	skeleton := NewJoinSkeleton(1, []string{"build", "test"})

	merged := MergeParentBuilds(filled, skeleton)
	require.Equal(t, buildIDPtr(10), merged[1].Jobs["build"])
	require.Contains(t, merged[1].Jobs, "test")
	require.Nil(t, merged[1].Jobs["test"])
}

func TestMergeParentBuildsAssociativeAndIdempotent(t *testing.T) {
	a := NewSingletonParentBuilds(1, 100, "build", 10)
	b := NewSingletonParentBuilds(2, 200, "deploy", 20)
	c := NewSingletonParentBuilds(1, 101, "test", 11)

	left := MergeParentBuilds(MergeParentBuilds(a, b), c)
	right := MergeParentBuilds(a, MergeParentBuilds(b, c))
	require.Equal(t, left, right)

	// merging the same contribution twice changes nothing
	once := MergeParentBuilds(a, b)
	twice := MergeParentBuilds(a, b, b)
	require.Equal(t, once, twice)
}

func TestParentBuildsJSONRoundTrip(t *testing.T) {
	ledger := MergeParentBuilds(
		NewSingletonParentBuilds(1, 100, "build", 10),
		NewJoinSkeleton(1, []string{"build", "sd@2:deploy"}),
	)

	buf, err := json.Marshal(ledger)
	require.NoError(t, err)

	var decoded ParentBuilds
	require.NoError(t, json.Unmarshal(buf, &decoded))
	require.Equal(t, ledger, decoded)
}

func TestParentBuildsScanValue(t *testing.T) {
	ledger := NewSingletonParentBuilds(3, 300, "lint", 30)

	value, err := ledger.Value()
	require.NoError(t, err)

	var decoded ParentBuilds
	require.NoError(t, decoded.Scan(value))
	require.Equal(t, ledger, decoded)
}

func TestBuildIDListScalarOrList(t *testing.T) {
	var single BuildIDList
	require.NoError(t, json.Unmarshal([]byte(`10`), &single))
	require.Equal(t, BuildIDList{10}, single)

	var list BuildIDList
	require.NoError(t, json.Unmarshal([]byte(`[10,11]`), &list))
	require.Equal(t, BuildIDList{10, 11}, list)

	// a one-element list marshals back to a scalar
	buf, err := json.Marshal(BuildIDList{10})
	require.NoError(t, err)
	require.Equal(t, `10`, string(buf))

	buf, err = json.Marshal(BuildIDList{10, 11})
	require.NoError(t, err)
	require.Equal(t, `[10,11]`, string(buf))
}
