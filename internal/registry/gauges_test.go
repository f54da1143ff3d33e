package registry_test

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/volt-protocol/ethereum-credit-guild-sub003/internal/domain"
	"github.com/volt-protocol/ethereum-credit-guild-sub003/internal/registry"
)

var (
	gaugeA = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	gaugeB = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	gaugeC = common.HexToAddress("0x00000000000000000000000000000000000000c3")
)

func TestAddGauge(t *testing.T) {
	now := time.Unix(1_700_000_000, 0).UTC()

	t.Run("registers active gauge", func(t *testing.T) {
		r := registry.New(0)
		g, err := r.AddGauge("term", gaugeA, now)
		require.NoError(t, err)

		assert.Equal(t, gaugeA, g.Address)
		assert.Equal(t, domain.GaugeType("term"), g.Type)
		assert.Equal(t, domain.GaugeStatusActive, g.Status)
		assert.Equal(t, now, g.AddedAt)
		assert.True(t, r.IsActive(gaugeA))
		assert.False(t, r.IsDeprecated(gaugeA))
		assert.Equal(t, 1, r.LiveCount())
	})

	t.Run("rejects zero address", func(t *testing.T) {
		r := registry.New(0)
		_, err := r.AddGauge("term", domain.ZeroAddress, now)
		assert.ErrorIs(t, err, domain.ErrInvalidGauge)
	})

	t.Run("rejects empty type", func(t *testing.T) {
		r := registry.New(0)
		_, err := r.AddGauge("", gaugeA, now)
		assert.ErrorIs(t, err, domain.ErrInvalidGauge)
	})

	t.Run("rejects already active gauge", func(t *testing.T) {
		r := registry.New(0)
		_, err := r.AddGauge("term", gaugeA, now)
		require.NoError(t, err)

		_, err = r.AddGauge("term", gaugeA, now)
		assert.ErrorIs(t, err, domain.ErrInvalidGauge)
	})

	t.Run("rejects type change on reactivation", func(t *testing.T) {
		r := registry.New(0)
		_, err := r.AddGauge("term", gaugeA, now)
		require.NoError(t, err)
		_, err = r.RemoveGauge(gaugeA, now)
		require.NoError(t, err)

		_, err = r.AddGauge("vault", gaugeA, now)
		assert.ErrorIs(t, err, domain.ErrInvalidGauge)
	})

	t.Run("reactivation keeps original type and added time", func(t *testing.T) {
		r := registry.New(0)
		_, err := r.AddGauge("term", gaugeA, now)
		require.NoError(t, err)
		_, err = r.RemoveGauge(gaugeA, now.Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 0, r.LiveCount())

		g, err := r.AddGauge("term", gaugeA, now.Add(2*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, domain.GaugeStatusActive, g.Status)
		assert.Equal(t, domain.GaugeType("term"), g.Type)
		assert.Equal(t, now, g.AddedAt)
		assert.Equal(t, 1, r.LiveCount())
	})
}

func TestRemoveGauge(t *testing.T) {
	now := time.Unix(1_700_000_000, 0).UTC()

	t.Run("deprecates active gauge", func(t *testing.T) {
		r := registry.New(0)
		_, err := r.AddGauge("term", gaugeA, now)
		require.NoError(t, err)

		g, err := r.RemoveGauge(gaugeA, now)
		require.NoError(t, err)
		assert.Equal(t, domain.GaugeStatusDeprecated, g.Status)
		assert.True(t, r.IsDeprecated(gaugeA))
		assert.False(t, r.IsActive(gaugeA))
		assert.Equal(t, 0, r.LiveCount())
	})

	t.Run("rejects unknown gauge", func(t *testing.T) {
		r := registry.New(0)
		_, err := r.RemoveGauge(gaugeA, now)
		assert.ErrorIs(t, err, domain.ErrInvalidGauge)
	})

	t.Run("rejects already deprecated gauge", func(t *testing.T) {
		r := registry.New(0)
		_, err := r.AddGauge("term", gaugeA, now)
		require.NoError(t, err)
		_, err = r.RemoveGauge(gaugeA, now)
		require.NoError(t, err)

		_, err = r.RemoveGauge(gaugeA, now)
		assert.ErrorIs(t, err, domain.ErrInvalidGauge)
	})
}

func TestLiveGaugeCap(t *testing.T) {
	now := time.Unix(1_700_000_000, 0).UTC()
	r := registry.New(2)

	_, err := r.AddGauge("term", gaugeA, now)
	require.NoError(t, err)
	_, err = r.AddGauge("term", gaugeB, now)
	require.NoError(t, err)

	_, err = r.AddGauge("term", gaugeC, now)
	assert.ErrorIs(t, err, domain.ErrExceedMaxGauges)

	// Deprecating one gauge frees a slot for both new gauges and reactivation.
	_, err = r.RemoveGauge(gaugeA, now)
	require.NoError(t, err)
	_, err = r.AddGauge("term", gaugeC, now)
	require.NoError(t, err)

	_, err = r.AddGauge("term", gaugeA, now)
	assert.ErrorIs(t, err, domain.ErrExceedMaxGauges)
}

func TestGaugesEnumeration(t *testing.T) {
	now := time.Unix(1_700_000_000, 0).UTC()
	r := registry.New(0)

	_, err := r.AddGauge("term", gaugeA, now)
	require.NoError(t, err)
	_, err = r.AddGauge("vault", gaugeB, now.Add(time.Minute))
	require.NoError(t, err)
	_, err = r.RemoveGauge(gaugeA, now.Add(2*time.Minute))
	require.NoError(t, err)

	gauges := r.Gauges()
	require.Len(t, gauges, 2)
	assert.Equal(t, gaugeA, gauges[0].Address)
	assert.Equal(t, domain.GaugeStatusDeprecated, gauges[0].Status)
	assert.Equal(t, gaugeB, gauges[1].Address)
	assert.Equal(t, domain.GaugeStatusActive, gauges[1].Status)

	gaugeType, ok := r.TypeOf(gaugeB)
	require.True(t, ok)
	assert.Equal(t, domain.GaugeType("vault"), gaugeType)

	_, ok = r.TypeOf(gaugeC)
	assert.False(t, ok)
}

func TestRestore(t *testing.T) {
	now := time.Unix(1_700_000_000, 0).UTC()
	r := registry.New(1)

	// Restore bypasses the live cap so persisted state always loads.
	r.Restore(domain.Gauge{Address: gaugeA, Type: "term", Status: domain.GaugeStatusActive, AddedAt: now})
	r.Restore(domain.Gauge{Address: gaugeB, Type: "term", Status: domain.GaugeStatusActive, AddedAt: now})
	r.Restore(domain.Gauge{Address: gaugeC, Type: "vault", Status: domain.GaugeStatusDeprecated, AddedAt: now})

	assert.Equal(t, 2, r.LiveCount())
	assert.True(t, r.IsActive(gaugeB))
	assert.True(t, r.IsDeprecated(gaugeC))

	// Restoring a known gauge is a no-op.
	r.Restore(domain.Gauge{Address: gaugeA, Type: "other", Status: domain.GaugeStatusDeprecated, AddedAt: now})
	g, ok := r.Gauge(gaugeA)
	require.True(t, ok)
	assert.Equal(t, domain.GaugeType("term"), g.Type)
	assert.Equal(t, domain.GaugeStatusActive, g.Status)
}
