package reconcile

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zsiec/audiobridge/graph"
	"github.com/zsiec/audiobridge/graph/graphtest"
)

func placeholderConfig() graph.EndpointConfig {
	return graph.EndpointConfig{
		Name:       "Test Placeholder",
		MediaClass: graph.ClassSink,
		Factory:    "support.null-audio-sink",
		Format:     graph.StereoFormat(),
	}
}

func newReconciler(t *testing.T) (*graphtest.Conn, *Reconciler) {
	t.Helper()
	conn := graphtest.NewConn()
	r := New(conn, placeholderConfig(), nil)
	conn.AddRegistryHandler(r)
	conn.AddSyncHandler(r)
	return conn, r
}

func TestInitialCheckCreatesPlaceholder(t *testing.T) {
	t.Parallel()
	conn, r := newReconciler(t)

	r.Schedule()
	if !conn.CompleteSync() {
		t.Fatal("Schedule should have issued a barrier request")
	}

	if !r.HasPlaceholder() {
		t.Error("no outputs visible: a placeholder should exist")
	}

	// The placeholder binding feeds back into both sets and settles on
	// the next completion without destroying it.
	conn.LastEndpoint().Bind(100)
	conn.CompleteSync()

	if !r.HasPlaceholder() {
		t.Error("placeholder should survive its own appearance")
	}
	if r.Outputs() != 1 || r.Owned() != 1 {
		t.Errorf("counts: got %d/%d, want 1/1", r.Outputs(), r.Owned())
	}
}

func TestRealOutputDestroysPlaceholder(t *testing.T) {
	t.Parallel()
	conn, r := newReconciler(t)

	r.Schedule()
	conn.CompleteSync()
	conn.LastEndpoint().Bind(100)
	conn.CompleteSync()
	if !r.HasPlaceholder() {
		t.Fatal("placeholder should exist before the real output appears")
	}

	conn.AddGlobal(5, graph.EndpointInfo{MediaClass: graph.ClassSink})
	if r.HasPlaceholder() != true {
		t.Error("no action before barrier completion")
	}
	conn.CompleteSync()

	if r.HasPlaceholder() {
		t.Error("a real output appeared: the placeholder should be destroyed")
	}

	// The destroy cascaded removal events; the follow-up decision must
	// not recreate the placeholder while the real output remains.
	for conn.CompleteSync() {
	}
	if r.HasPlaceholder() {
		t.Error("placeholder recreated while a real output exists")
	}
	if r.Outputs() != 1 || r.Owned() != 0 {
		t.Errorf("counts: got %d/%d, want 1/0", r.Outputs(), r.Owned())
	}
}

func TestLastOutputRemovedRecreatesPlaceholder(t *testing.T) {
	t.Parallel()
	conn, r := newReconciler(t)

	conn.AddGlobal(5, graph.EndpointInfo{MediaClass: graph.ClassSink})
	conn.CompleteSync()
	if r.HasPlaceholder() {
		t.Fatal("no placeholder expected while the real output exists")
	}

	conn.RemoveGlobal(5)
	conn.CompleteSync()

	if !r.HasPlaceholder() {
		t.Error("last output removed: a placeholder should be created")
	}
}

func TestNonOutputClassIgnored(t *testing.T) {
	t.Parallel()
	conn, r := newReconciler(t)

	conn.AddGlobal(7, graph.EndpointInfo{MediaClass: graph.ClassSource})
	if conn.SyncRequests() != 0 {
		t.Error("a source endpoint must not schedule a check")
	}
	if r.Outputs() != 0 {
		t.Errorf("Outputs: got %d, want 0", r.Outputs())
	}
}

func TestInvalidIDNeverTracked(t *testing.T) {
	t.Parallel()
	conn, r := newReconciler(t)

	conn.AddGlobal(graph.InvalidEndpointID, graph.EndpointInfo{MediaClass: graph.ClassSink})
	if r.Outputs() != 0 {
		t.Errorf("sentinel tracked: Outputs = %d", r.Outputs())
	}
	if conn.SyncRequests() != 0 {
		t.Error("rejected insert must not schedule a check")
	}
}

func TestBarrierCoalescing(t *testing.T) {
	t.Parallel()
	conn, r := newReconciler(t)

	for i := graph.EndpointID(1); i <= 20; i++ {
		conn.AddGlobal(i, graph.EndpointInfo{MediaClass: graph.ClassSink})
	}

	if conn.SyncRequests() != 1 {
		t.Errorf("sync requests for an event burst: got %d, want 1",
			conn.SyncRequests())
	}
	if conn.PendingSyncs() != 1 {
		t.Errorf("outstanding requests: got %d, want 1", conn.PendingSyncs())
	}

	conn.CompleteSync()
	if r.HasPlaceholder() {
		t.Error("20 real outputs: no placeholder expected")
	}
}

func TestStaleCompletionIgnored(t *testing.T) {
	t.Parallel()
	conn, r := newReconciler(t)

	r.Schedule()

	// A completion for a sequence the reconciler never issued must not
	// trigger a decision.
	r.SyncDone(999)
	if r.HasPlaceholder() {
		t.Error("stale completion triggered a decision")
	}

	conn.CompleteSync()
	if !r.HasPlaceholder() {
		t.Error("matching completion should have created the placeholder")
	}
}

func TestPlaceholderCreateFailureRetriedOnNextEvent(t *testing.T) {
	t.Parallel()
	conn, r := newReconciler(t)

	conn.EndpointErr = errors.New("no memory")
	r.Schedule()
	conn.CompleteSync()
	if r.HasPlaceholder() {
		t.Fatal("creation failed: no placeholder expected")
	}
	if conn.PendingSyncs() != 0 {
		t.Fatal("failed creation must not schedule a proactive retry")
	}

	// The next triggering event retries.
	conn.EndpointErr = nil
	conn.AddGlobal(5, graph.EndpointInfo{MediaClass: graph.ClassSink})
	conn.CompleteSync()
	conn.RemoveGlobal(5)
	conn.CompleteSync()

	if !r.HasPlaceholder() {
		t.Error("placeholder should be created once the graph recovers")
	}
}

func TestExternallyRemovedPlaceholder(t *testing.T) {
	t.Parallel()
	conn, r := newReconciler(t)

	r.Schedule()
	conn.CompleteSync()
	ep := conn.LastEndpoint()
	ep.Bind(100)
	conn.CompleteSync()

	// The graph tears the placeholder down on its own (fake Destroy
	// delivers the same Removed + registry events the server would).
	ep.Destroy()
	if r.HasPlaceholder() {
		t.Fatal("handle should be dropped when the graph removes the endpoint")
	}

	conn.CompleteSync()
	if !r.HasPlaceholder() {
		t.Error("still zero outputs: a new placeholder should be created")
	}
}

func TestShutdownDestroysPlaceholder(t *testing.T) {
	t.Parallel()
	conn, r := newReconciler(t)

	r.Schedule()
	conn.CompleteSync()
	ep := conn.LastEndpoint()

	r.Shutdown()
	if !ep.Destroyed() {
		t.Error("Shutdown should destroy the placeholder")
	}
	if r.HasPlaceholder() {
		t.Error("handle should be cleared on shutdown")
	}
}

func TestShutdownStopsReactingToEvents(t *testing.T) {
	t.Parallel()
	conn, r := newReconciler(t)

	r.Schedule()
	conn.CompleteSync()
	conn.LastEndpoint().Bind(100)
	conn.CompleteSync()

	r.Shutdown()
	created := len(conn.Endpoints())
	requests := conn.SyncRequests()

	// Registry churn after shutdown: a real output comes and goes, which
	// would normally schedule a decision that recreates the placeholder.
	conn.AddGlobal(5, graph.EndpointInfo{MediaClass: graph.ClassSink})
	conn.RemoveGlobal(5)
	for conn.CompleteSync() {
	}

	if r.HasPlaceholder() {
		t.Error("placeholder recreated after shutdown")
	}
	if got := len(conn.Endpoints()); got != created {
		t.Errorf("endpoints created after shutdown: got %d, want %d", got, created)
	}
	if got := conn.SyncRequests(); got != requests {
		t.Errorf("barrier requests after shutdown: got %d, want %d", got, requests)
	}

	// A late completion for the superseded barrier is equally inert.
	r.SyncDone(requests)
	if r.HasPlaceholder() {
		t.Error("late completion triggered a decision after shutdown")
	}
}

// TestDecisionIsPureFunctionOfCounts drives random interleavings of
// registry events, placeholder bindings, and barrier completions, and
// asserts after every completion that placeholder existence matches the
// counting rule: a placeholder exists iff the tracked outputs do not
// outnumber the bridge-owned ones.
func TestDecisionIsPureFunctionOfCounts(t *testing.T) {
	t.Parallel()

	for seed := int64(0); seed < 20; seed++ {
		rng := rand.New(rand.NewSource(seed))
		conn, r := newReconciler(t)
		r.Schedule()

		var realIDs []graph.EndpointID
		nextID := graph.EndpointID(1000)
		nextReal := graph.EndpointID(1)

		for step := 0; step < 400; step++ {
			switch rng.Intn(4) {
			case 0: // a real output appears
				id := nextReal
				nextReal++
				realIDs = append(realIDs, id)
				conn.AddGlobal(id, graph.EndpointInfo{MediaClass: graph.ClassSink})

			case 1: // a real output disappears
				if len(realIDs) == 0 {
					continue
				}
				i := rng.Intn(len(realIDs))
				id := realIDs[i]
				realIDs = append(realIDs[:i], realIDs[i+1:]...)
				conn.RemoveGlobal(id)

			case 2: // a pending placeholder finishes binding
				if ep := conn.LastEndpoint(); ep != nil {
					ep.Bind(nextID)
					nextID++
				}

			case 3: // barrier completion
				outputs, owned := r.Outputs(), r.Owned()
				if !conn.CompleteSync() {
					continue
				}
				if outputs > owned {
					require.False(t, r.HasPlaceholder(),
						"seed %d step %d: outputs=%d owned=%d, placeholder must not exist",
						seed, step, outputs, owned)
				} else {
					require.True(t, r.HasPlaceholder(),
						"seed %d step %d: outputs=%d owned=%d, placeholder must exist",
						seed, step, outputs, owned)
				}
			}

			// At most one barrier request may ever be in flight.
			require.LessOrEqual(t, conn.PendingSyncs(), 1,
				"seed %d step %d: duplicate barrier requests", seed, step)
		}
	}
}
