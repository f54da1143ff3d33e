package store

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/volt-protocol/ethereum-credit-guild-sub003/internal/domain"
)

var (
	testGaugeA = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	testGaugeB = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	testUser   = common.HexToAddress("0x0000000000000000000000000000000000000a11")
)

func testTime(offset time.Duration) time.Time {
	return time.Unix(1_700_000_000, 0).UTC().Add(offset)
}

func buildTestDelta() domain.StateDelta {
	maxGauges := 5
	return domain.StateDelta{
		MaxGauges: &maxGauges,
		Gauges: []domain.Gauge{
			{Address: testGaugeA, Type: "term", Status: domain.GaugeStatusActive, AddedAt: testTime(0)},
		},
		Users: []domain.UserAccount{
			{Address: testUser, Balance: 100, Exempt: true},
		},
		Entries: []domain.WeightEntry{
			{User: testUser, Gauge: testGaugeA, Weight: 60},
		},
		Losses: []domain.LossRecord{
			{Gauge: testGaugeA, ReportedAt: testTime(time.Minute)},
		},
		Acks: []domain.LossAck{
			{User: testUser, Gauge: testGaugeA, AppliedAt: testTime(2 * time.Minute)},
		},
	}
}

func buildTestEvent(id string) domain.LedgerEvent {
	user := testUser
	gauge := testGaugeA
	return domain.LedgerEvent{
		ID:        id,
		Type:      domain.EventTypeWeightIncremented,
		User:      &user,
		Gauge:     &gauge,
		Amount:    60,
		UserTotal: 60,
		Timestamp: testTime(0),
	}
}

// RunStoreTests runs the full store test suite against an implementation
func RunStoreTests(t *testing.T, initDB func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("ApplyDelta round trip", func(t *testing.T) {
		s := initDB(t)

		require.NoError(t, s.ApplyDelta(ctx, buildTestDelta()))

		state, err := s.LoadLedgerState(ctx)
		require.NoError(t, err)
		assert.Equal(t, 5, state.MaxGauges)

		require.Len(t, state.Gauges, 1)
		assert.Equal(t, testGaugeA, state.Gauges[0].Address)
		assert.Equal(t, domain.GaugeType("term"), state.Gauges[0].Type)
		assert.Equal(t, domain.GaugeStatusActive, state.Gauges[0].Status)

		require.Len(t, state.Users, 1)
		assert.Equal(t, uint64(100), state.Users[0].Balance)
		assert.True(t, state.Users[0].Exempt)

		require.Len(t, state.Entries, 1)
		assert.Equal(t, uint64(60), state.Entries[0].Weight)

		require.Len(t, state.Losses, 1)
		require.Len(t, state.Acks, 1)
	})

	t.Run("ApplyDelta upserts on repeat", func(t *testing.T) {
		s := initDB(t)

		require.NoError(t, s.ApplyDelta(ctx, buildTestDelta()))

		// Same keys, new values: rows must update in place.
		update := domain.StateDelta{
			Gauges: []domain.Gauge{
				{Address: testGaugeA, Type: "term", Status: domain.GaugeStatusDeprecated, AddedAt: testTime(0)},
			},
			Users: []domain.UserAccount{
				{Address: testUser, Balance: 40, Exempt: false},
			},
			Entries: []domain.WeightEntry{
				{User: testUser, Gauge: testGaugeA, Weight: 0},
			},
		}
		require.NoError(t, s.ApplyDelta(ctx, update))

		state, err := s.LoadLedgerState(ctx)
		require.NoError(t, err)
		require.Len(t, state.Gauges, 1)
		assert.Equal(t, domain.GaugeStatusDeprecated, state.Gauges[0].Status)
		require.Len(t, state.Users, 1)
		assert.Equal(t, uint64(40), state.Users[0].Balance)
		assert.False(t, state.Users[0].Exempt)
		// Zero-weight entries are kept in the table but not rehydrated.
		assert.Empty(t, state.Entries)
	})

	t.Run("ApplyDelta empty delta is a noop", func(t *testing.T) {
		s := initDB(t)
		require.NoError(t, s.ApplyDelta(ctx, domain.StateDelta{}))
	})

	t.Run("LoadLedgerState on a fresh database", func(t *testing.T) {
		s := initDB(t)

		state, err := s.LoadLedgerState(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, state.MaxGauges)
		assert.Empty(t, state.Gauges)
		assert.Empty(t, state.Users)
		assert.Empty(t, state.Entries)
	})

	t.Run("AppendEvent and ListEvents", func(t *testing.T) {
		s := initDB(t)

		ids := []string{
			"01ARZ3NDEKTSV4RRFFQ69G5FA1",
			"01ARZ3NDEKTSV4RRFFQ69G5FA2",
			"01ARZ3NDEKTSV4RRFFQ69G5FA3",
		}
		for _, id := range ids {
			require.NoError(t, s.AppendEvent(ctx, buildTestEvent(id)))
		}
		// Re-appending the same ULID is ignored.
		require.NoError(t, s.AppendEvent(ctx, buildTestEvent(ids[0])))

		events, err := s.ListEvents(ctx, "", 10)
		require.NoError(t, err)
		require.Len(t, events, 3)
		assert.Equal(t, ids[0], events[0].ID)
		assert.Equal(t, domain.EventTypeWeightIncremented, events[0].Type)
		require.NotNil(t, events[0].User)
		assert.Equal(t, testUser, *events[0].User)

		// Paging resumes after the given ID.
		events, err = s.ListEvents(ctx, ids[0], 1)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, ids[1], events[0].ID)
	})

	t.Run("AppendSnapshots and LatestSnapshots", func(t *testing.T) {
		s := initDB(t)

		first := []domain.CycleSnapshot{
			{Scope: domain.SnapshotScopeGlobal, StoredWeight: 100, CycleEnd: testTime(time.Hour)},
			{Scope: domain.SnapshotScopeGauge, Key: testGaugeA.Hex(), StoredWeight: 60, CycleEnd: testTime(time.Hour)},
			{Scope: domain.SnapshotScopeGauge, Key: testGaugeB.Hex(), StoredWeight: 40, CycleEnd: testTime(time.Hour)},
		}
		require.NoError(t, s.AppendSnapshots(ctx, first))

		// Duplicates for the same (scope, key, cycle_end) are ignored.
		require.NoError(t, s.AppendSnapshots(ctx, first))

		second := []domain.CycleSnapshot{
			{Scope: domain.SnapshotScopeGlobal, StoredWeight: 150, CycleEnd: testTime(2 * time.Hour)},
			{Scope: domain.SnapshotScopeGauge, Key: testGaugeA.Hex(), StoredWeight: 110, CycleEnd: testTime(2 * time.Hour)},
		}
		require.NoError(t, s.AppendSnapshots(ctx, second))

		latest, err := s.LatestSnapshots(ctx)
		require.NoError(t, err)
		require.Len(t, latest, 3)

		byKey := make(map[string]domain.CycleSnapshot)
		for _, snap := range latest {
			byKey[string(snap.Scope)+"/"+snap.Key] = snap
		}
		assert.Equal(t, uint64(150), byKey["global/"].StoredWeight)
		assert.Equal(t, uint64(110), byKey["gauge/"+testGaugeA.Hex()].StoredWeight)
		assert.Equal(t, uint64(40), byKey["gauge/"+testGaugeB.Hex()].StoredWeight)
	})

	t.Run("snapshots inside a delta", func(t *testing.T) {
		s := initDB(t)

		delta := domain.StateDelta{
			Snapshots: []domain.CycleSnapshot{
				{Scope: domain.SnapshotScopeGaugeType, Key: "term", StoredWeight: 75, CycleEnd: testTime(time.Hour)},
			},
		}
		require.NoError(t, s.ApplyDelta(ctx, delta))

		latest, err := s.LatestSnapshots(ctx)
		require.NoError(t, err)
		require.Len(t, latest, 1)
		assert.Equal(t, domain.SnapshotScopeGaugeType, latest[0].Scope)
		assert.Equal(t, uint64(75), latest[0].StoredWeight)
	})
}
