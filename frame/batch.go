// Package frame owns the per-frame geometry for a render scope: vertex,
// index and draw-command pools that are reset together at the end of every
// frame.
//
// A Batch is created by the caller and passed to whatever produces geometry.
// Everything allocated from it is valid until the next AfterDraw.
//
//	b, err := frame.NewBatch[frame.Vertex](nil)
//	...
//	for each frame {
//	    vref, verts, _ := b.AllocateVertices(4)
//	    iref, idx, _ := b.AllocateIndices(6)
//	    ...fill verts and idx...
//	    b.AddCommand(renderer, frame.DrawCommand{Vertices: vref, Indices: iref, ...})
//	    renderer.Flush()
//	    b.AfterDraw()
//	}
package frame

import (
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/joshuapare/framealloc/internal/logger"
	"github.com/joshuapare/framealloc/pool"
)

// Batch is the frame-scoped allocation context for one render scope.
// It is not safe for concurrent use.
type Batch[V any] struct {
	vertices *pool.Pool[V]
	indices  *pool.Pool[uint16]
	commands *pool.Pool[DrawCommand]

	submitted []pool.Ref
	frame     uint64

	log logrus.FieldLogger
}

// Stats is a snapshot of a batch's pools.
type Stats struct {
	Frame    uint64
	Commands int // commands added this frame

	VertexPool  pool.Stats
	IndexPool   pool.Stats
	CommandPool pool.Stats
}

// NewBatch creates a batch whose three pools share opts.
func NewBatch[V any](opts *pool.Options) (*Batch[V], error) {
	vertices, err := pool.New[V](opts)
	if err != nil {
		return nil, errors.Wrap(err, "frame: vertex pool")
	}
	indices, err := pool.New[uint16](opts)
	if err != nil {
		return nil, multierror.Append(errors.Wrap(err, "frame: index pool"), vertices.Close()).ErrorOrNil()
	}
	commands, err := pool.New[DrawCommand](opts)
	if err != nil {
		return nil, multierror.Append(errors.Wrap(err, "frame: command pool"), vertices.Close(), indices.Close()).ErrorOrNil()
	}

	var log logrus.FieldLogger = logger.L
	if opts != nil && opts.Logger != nil {
		log = opts.Logger
	}

	return &Batch[V]{
		vertices: vertices,
		indices:  indices,
		commands: commands,
		log:      log,
	}, nil
}

// AllocateVertices reserves n zeroed vertices for this frame.
func (b *Batch[V]) AllocateVertices(n int) (pool.Ref, []V, error) {
	return b.vertices.Allocate(n)
}

// DeallocateVertices releases vertices before the end of the frame.
func (b *Batch[V]) DeallocateVertices(ref pool.Ref, n int) {
	b.vertices.Deallocate(ref, n)
}

// AllocateIndices reserves n zeroed indices for this frame.
func (b *Batch[V]) AllocateIndices(n int) (pool.Ref, []uint16, error) {
	return b.indices.Allocate(n)
}

// DeallocateIndices releases indices before the end of the frame.
func (b *Batch[V]) DeallocateIndices(ref pool.Ref, n int) {
	b.indices.Deallocate(ref, n)
}

// AddCommand stores a copy of cmd in the command pool, submits the stored
// command to r when r is non-nil, and returns it. The command stays valid
// until AfterDraw.
func (b *Batch[V]) AddCommand(r Renderer, cmd DrawCommand) (*DrawCommand, error) {
	ref, rec, err := b.commands.Allocate(1)
	if err != nil {
		return nil, errors.Wrap(err, "frame: allocate command")
	}
	rec[0] = cmd
	b.submitted = append(b.submitted, ref)

	if r != nil {
		r.Submit(&rec[0])
	}
	return &rec[0], nil
}

// Commands returns the commands added since the last AfterDraw, in order.
func (b *Batch[V]) Commands() []*DrawCommand {
	out := make([]*DrawCommand, 0, len(b.submitted))
	for _, ref := range b.submitted {
		if rec := b.commands.View(ref); rec != nil {
			out = append(out, &rec[0])
		}
	}
	return out
}

// Triangles resolves the vertex and index allocations of cmd. When a count
// is set and within the allocation, the view is trimmed to it. Refs that no
// longer name a live allocation resolve to nil.
func (b *Batch[V]) Triangles(cmd *DrawCommand) ([]V, []uint16) {
	verts := b.vertices.View(cmd.Vertices)
	if n := int(cmd.VertexCount); n > 0 && n <= len(verts) {
		verts = verts[:n:n]
	}
	idx := b.indices.View(cmd.Indices)
	if n := int(cmd.IndexCount); n > 0 && n <= len(idx) {
		idx = idx[:n:n]
	}
	return verts, idx
}

// AfterDraw ends the frame: every vertex, index and command allocated from
// the batch is released at once and the frame counter advances.
func (b *Batch[V]) AfterDraw() {
	commands := len(b.submitted)

	b.commands.DeallocateAll()
	b.vertices.DeallocateAll()
	b.indices.DeallocateAll()

	b.submitted = b.submitted[:0]
	b.frame++

	b.log.WithFields(logrus.Fields{
		"frame":    b.frame,
		"commands": commands,
	}).Debug("frame reset")
}

// VertexSize returns the size of V in bytes.
func (b *Batch[V]) VertexSize() int { return b.vertices.ElemSize() }

// Frame returns the number of completed frames.
func (b *Batch[V]) Frame() uint64 { return b.frame }

// Stats returns a snapshot of the batch.
func (b *Batch[V]) Stats() Stats {
	return Stats{
		Frame:       b.frame,
		Commands:    len(b.submitted),
		VertexPool:  b.vertices.Stats(),
		IndexPool:   b.indices.Stats(),
		CommandPool: b.commands.Stats(),
	}
}

// Close releases the memory of all three pools.
func (b *Batch[V]) Close() error {
	var result *multierror.Error
	if err := b.commands.Close(); err != nil {
		result = multierror.Append(result, errors.Wrap(err, "command pool"))
	}
	if err := b.vertices.Close(); err != nil {
		result = multierror.Append(result, errors.Wrap(err, "vertex pool"))
	}
	if err := b.indices.Close(); err != nil {
		result = multierror.Append(result, errors.Wrap(err, "index pool"))
	}
	b.submitted = nil
	return result.ErrorOrNil()
}
