package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterAndIsAlive(t *testing.T) {
	r := New(time.Second)
	r.Register("worker-1")
	require.True(t, r.IsAlive("worker-1"))
	require.False(t, r.IsAlive("unknown"))
}

func TestRegistry_HeartbeatOnUnknownIsNoOp(t *testing.T) {
	r := New(time.Second)
	require.NotPanics(t, func() { r.Heartbeat("ghost") })
	require.False(t, r.IsAlive("ghost"))
}

func TestRegistry_MarkInFlightClampsAtZero(t *testing.T) {
	r := New(time.Second)
	r.Register("worker-1")
	r.MarkInFlight("worker-1", -5)

	stats := r.Stats()
	require.Equal(t, 0, stats.InFlightTotal)
}

func TestRegistry_MarkInFlightUnknownIsNoOp(t *testing.T) {
	r := New(time.Second)
	require.NotPanics(t, func() { r.MarkInFlight("ghost", 1) })
}

func TestRegistry_LeastBusyAlivePrefersFewerInFlight(t *testing.T) {
	r := New(time.Second)
	r.Register("busy")
	r.Register("idle")
	r.MarkInFlight("busy", 3)

	least, ok := r.LeastBusyAlive()
	require.True(t, ok)
	require.Equal(t, "idle", least)
}

func TestRegistry_LeastBusyAliveExcludesDead(t *testing.T) {
	r := New(10 * time.Millisecond)
	r.Register("dying")
	time.Sleep(20 * time.Millisecond)

	_, ok := r.LeastBusyAlive()
	require.False(t, ok)
}

func TestRegistry_DeadWorkersDoesNotEvict(t *testing.T) {
	r := New(10 * time.Millisecond)
	r.Register("worker-1")
	time.Sleep(20 * time.Millisecond)

	dead := r.DeadWorkers()
	require.Equal(t, []string{"worker-1"}, dead)
	require.Equal(t, 1, r.Stats().WorkersTotal)
}

func TestRegistry_StatsAggregates(t *testing.T) {
	r := New(time.Second)
	r.Register("worker-1")
	r.Register("worker-2")
	r.MarkInFlight("worker-1", 2)

	stats := r.Stats()
	require.Equal(t, 2, stats.WorkersTotal)
	require.Equal(t, 2, stats.WorkersAlive)
	require.Equal(t, 2, stats.InFlightTotal)
}
