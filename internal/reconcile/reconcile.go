// Package reconcile implements the endpoint reconciliation state
// machine: it watches the set of output endpoints the graph reports and
// keeps exactly one placeholder output alive while no real output
// exists, so a downstream audio session never sees zero outputs.
//
// Raw registry events describe a snapshot that may still be in flight,
// so the machine never acts on them directly. Each event schedules a
// synchronization barrier; the create-or-destroy decision runs only when
// the matching barrier completion arrives, at which point every event up
// to the request is known to have been delivered. Barrier requests are
// coalesced: while one is outstanding, further events ride on it.
//
// All methods are called from the graph event goroutine; the machine
// holds no locks.
package reconcile

import (
	"log/slog"

	"github.com/zsiec/audiobridge/graph"
	"github.com/zsiec/audiobridge/internal/idset"
)

// Reconciler tracks output endpoints and owns the placeholder handle.
// It implements graph.RegistryHandler and graph.SyncHandler.
type Reconciler struct {
	log  *slog.Logger
	conn graph.Conn
	cfg  graph.EndpointConfig

	all   *idset.Set // every output endpoint the graph reports
	owned *idset.Set // outputs this bridge created (placeholders)

	seq     int
	pending bool
	stopped bool

	placeholder graph.Endpoint
}

// New creates a Reconciler that will materialize placeholders from cfg.
// If log is nil, slog.Default() is used.
func New(conn graph.Conn, cfg graph.EndpointConfig, log *slog.Logger) *Reconciler {
	if log == nil {
		log = slog.Default()
	}
	return &Reconciler{
		log:   log.With("component", "reconcile"),
		conn:  conn,
		cfg:   cfg,
		all:   idset.New(),
		owned: idset.New(),
	}
}

// EndpointAdded handles a registry "global appeared" event. Non-output
// endpoints are ignored.
func (r *Reconciler) EndpointAdded(id graph.EndpointID, info graph.EndpointInfo) {
	if r.stopped || !info.IsOutputClass() {
		return
	}
	if err := r.all.Add(id); err != nil {
		r.log.Error("tracking endpoint", "id", id, "error", err)
		return
	}
	r.schedule()
}

// EndpointRemoved handles a registry "global removed" event. Only the
// disappearance of a tracked output schedules a new decision.
func (r *Reconciler) EndpointRemoved(id graph.EndpointID) {
	if r.stopped {
		return
	}
	r.owned.Remove(id)
	if r.all.Remove(id) {
		r.schedule()
	}
}

// SyncDone handles a barrier completion. Completions for superseded
// sequence numbers are ignored; the matching one clears the pending
// state and evaluates the decision rule exactly once.
func (r *Reconciler) SyncDone(seq int) {
	if r.stopped || !r.pending || seq != r.seq {
		return
	}
	r.pending = false
	r.check()
}

// Schedule issues a barrier request if none is outstanding. The bridge
// calls this once at startup so the initial registry replay ends in a
// decision; afterwards events schedule themselves.
func (r *Reconciler) Schedule() {
	r.schedule()
}

func (r *Reconciler) schedule() {
	if r.stopped || r.pending {
		return
	}
	r.pending = true
	r.seq = r.conn.Sync(r.seq)
}

// check evaluates the decision rule against a consistent snapshot. A
// surplus of outputs over owned placeholders means a real output exists.
func (r *Reconciler) check() {
	r.log.Debug("checking outputs",
		"outputs", r.all.Len(), "placeholders", r.owned.Len())

	if r.all.Len() > r.owned.Len() {
		r.destroyPlaceholder()
		return
	}
	if err := r.createPlaceholder(); err != nil {
		// Left for the next triggering event to retry.
		r.log.Error("creating placeholder output", "error", err)
	}
}

func (r *Reconciler) createPlaceholder() error {
	if r.placeholder != nil {
		return nil
	}

	r.log.Info("creating placeholder output")

	ep, err := r.conn.CreateEndpoint(r.cfg, placeholderEvents{r})
	if err != nil {
		return err
	}
	r.placeholder = ep
	return nil
}

func (r *Reconciler) destroyPlaceholder() {
	if r.placeholder == nil {
		return
	}
	r.log.Info("removing placeholder output")
	r.placeholder.Destroy()
}

// placeholderEvents adapts placeholder lifecycle callbacks onto the
// reconciler.
type placeholderEvents struct {
	r *Reconciler
}

func (p placeholderEvents) Bound(id graph.EndpointID) {
	r := p.r
	if err := r.all.Add(id); err != nil {
		r.log.Error("tracking placeholder", "id", id, "error", err)
	}
	if err := r.owned.Add(id); err != nil {
		r.log.Error("tracking placeholder", "id", id, "error", err)
	}
	r.schedule()
}

func (p placeholderEvents) Removed() {
	p.r.log.Debug("placeholder output removed")
	p.r.placeholder = nil
}

// Shutdown destroys the placeholder if one exists and stops the machine:
// subsequent registry events and barrier completions are ignored, so a
// torn-down bridge never creates new graph objects. Called during bridge
// teardown from the graph event context.
func (r *Reconciler) Shutdown() {
	r.stopped = true
	r.destroyPlaceholder()
}

// Outputs returns the number of output endpoints currently tracked.
func (r *Reconciler) Outputs() int {
	return r.all.Len()
}

// Owned returns the number of bridge-created outputs currently tracked.
func (r *Reconciler) Owned() int {
	return r.owned.Len()
}

// HasPlaceholder reports whether a placeholder endpoint currently exists.
func (r *Reconciler) HasPlaceholder() bool {
	return r.placeholder != nil
}
