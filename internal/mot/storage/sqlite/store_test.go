package sqlite

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestUpsertAndGetTrack(t *testing.T) {
	store := openTestStore(t)

	rec := &TrackRecord{
		TrackID:     "t-1",
		StreamIndex: 0,
		Class:       2,
		State:       "confirmed",
		StartFrame:  5,
		LastFrame:   40,
		AvgWidth:    32.5,
		AvgHeight:   64,
	}
	require.NoError(t, store.UpsertTrack(rec))

	got, err := store.GetTrack("t-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, rec, got)

	// Second upsert updates in place.
	rec.LastFrame = 55
	rec.State = "deleted"
	require.NoError(t, store.UpsertTrack(rec))
	got, err = store.GetTrack("t-1")
	require.NoError(t, err)
	require.Equal(t, 55, got.LastFrame)
	require.Equal(t, "deleted", got.State)
}

func TestGetTrackMissing(t *testing.T) {
	store := openTestStore(t)
	got, err := store.GetTrack("nope")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestObservationsOrderedByFrame(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.UpsertTrack(&TrackRecord{TrackID: "t-1", State: "confirmed"}))

	for _, frame := range []int{10, 0, 5} {
		require.NoError(t, store.InsertObservation(&Observation{
			TrackID:    "t-1",
			FrameIndex: frame,
			X:          float32(frame),
			Y:          1,
			W:          10,
			H:          10,
		}))
	}

	obs, err := store.GetObservations("t-1", 0)
	require.NoError(t, err)
	require.Len(t, obs, 3)
	require.Equal(t, []int{0, 5, 10}, []int{obs[0].FrameIndex, obs[1].FrameIndex, obs[2].FrameIndex})

	limited, err := store.GetObservations("t-1", 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	require.Equal(t, 0, limited[0].FrameIndex)
}

func TestTracksForStream(t *testing.T) {
	store := openTestStore(t)
	for _, rec := range []*TrackRecord{
		{TrackID: "a", StreamIndex: 0, State: "confirmed", StartFrame: 10},
		{TrackID: "b", StreamIndex: 0, State: "deleted", StartFrame: 5},
		{TrackID: "c", StreamIndex: 1, State: "confirmed", StartFrame: 0},
	} {
		require.NoError(t, store.UpsertTrack(rec))
	}

	all, err := store.TracksForStream(0, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, "b", all[0].TrackID) // ordered by start frame

	confirmed, err := store.TracksForStream(0, "confirmed")
	require.NoError(t, err)
	require.Len(t, confirmed, 1)
	require.Equal(t, "a", confirmed[0].TrackID)
}

func TestPruneShortTracks(t *testing.T) {
	store := openTestStore(t)
	for _, rec := range []*TrackRecord{
		{TrackID: "long", State: "confirmed", StartFrame: 0, LastFrame: 100},
		{TrackID: "blip", State: "tentative", StartFrame: 10, LastFrame: 10},
	} {
		require.NoError(t, store.UpsertTrack(rec))
	}

	pruned, err := store.PruneShortTracks(2)
	require.NoError(t, err)
	require.Equal(t, int64(1), pruned)

	got, err := store.GetTrack("blip")
	require.NoError(t, err)
	require.Nil(t, got)
	got, err = store.GetTrack("long")
	require.NoError(t, err)
	require.NotNil(t, got)
}
