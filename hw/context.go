package hw

import (
	"context"
	"fmt"

	"github.com/gogpu/pushbuf"
	"github.com/gogpu/pushbuf/prim"
	"github.com/gogpu/pushbuf/state"
)

// Context draws through one channel with one backend.
//
// Context is NOT safe for concurrent use.
type Context struct {
	ch      *pushbuf.Channel
	backend Backend
	tracker *state.Tracker
	batcher *prim.Batcher
	draws   prim.Stats
}

// NewContext initializes backend on ch and creates its state tracker.
// All state starts dirty, so the first draw writes complete state.
func NewContext(ch *pushbuf.Channel, backend Backend, cfg prim.Config) (*Context, error) {
	if backend == nil {
		return nil, ErrBackendNotAvailable
	}
	if err := backend.Init(ch); err != nil {
		return nil, fmt.Errorf("hw: init %s: %w", backend.Name(), err)
	}
	batcher, err := prim.NewBatcher(backend.Hardware(), cfg)
	if err != nil {
		return nil, fmt.Errorf("hw: %s: %w", backend.Name(), err)
	}

	c := &Context{
		ch:      ch,
		backend: backend,
		tracker: state.NewTracker(backend.Emitters()),
		batcher: batcher,
	}
	relocated := backend.Relocated()
	ch.OnFlush(func() { c.tracker.Invalidate(relocated...) })

	pushbuf.Logger().Info("hw: context created",
		"backend", backend.Name(),
		"chip", backend.Info().Name)
	return c, nil
}

// Tracker returns the state tracker. Bind state on it before drawing.
func (c *Context) Tracker() *state.Tracker { return c.tracker }

// Channel returns the channel commands are written to.
func (c *Context) Channel() *pushbuf.Channel { return c.ch }

// Backend returns the backend.
func (c *Context) Backend() Backend { return c.backend }

// Stats returns the accumulated batch statistics.
func (c *Context) Stats() prim.Stats { return c.draws }

// Draw writes the dirty state and then the batches of idx.
//
// If a state category cannot be emitted the draw is aborted before any
// batch is written and the category stays dirty. Topology misuse is
// reported after the whole primitives have been drawn.
func (c *Context) Draw(topo prim.Topology, vs prim.VertexSource, idx prim.IndexSource) (prim.Stats, error) {
	if err := c.tracker.EmitPending(c.ch); err != nil {
		return prim.Stats{}, fmt.Errorf("hw: draw aborted: %w", err)
	}
	if v, ok := vs.(ViewportSource); ok {
		v.SetViewport(c.tracker.Viewport())
	}
	st, err := c.batcher.Draw(c.ch, topo, vs, idx)
	c.draws.Add(st)
	pushbuf.Logger().Debug("hw: draw",
		"topology", topo,
		"batches", st.Batches,
		"triangles", st.Triangles)
	return st, err
}

// DrawArrays draws count consecutive vertices starting at first.
func (c *Context) DrawArrays(topo prim.Topology, vs prim.VertexSource, first uint32, count int) (prim.Stats, error) {
	return c.Draw(topo, vs, prim.Sequential{Start: first, Count: count})
}

// Flush submits everything written so far.
func (c *Context) Flush(ctx context.Context) error {
	return c.ch.Fire(ctx)
}

// FlushFence submits everything written so far and returns a fence for it.
func (c *Context) FlushFence(ctx context.Context) (*pushbuf.Fence, error) {
	return c.ch.FireFence(ctx)
}
