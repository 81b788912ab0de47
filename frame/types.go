package frame

import "github.com/joshuapare/framealloc/pool"

// Vertex is a position / color / texture-coordinate vertex.
type Vertex struct {
	Pos   [3]float32
	Color [4]uint8
	UV    [2]float32
}

// TwoColorVertex adds a dark color used for tint-black rendering.
type TwoColorVertex struct {
	Pos   [3]float32
	Color [4]uint8
	UV    [2]float32
	Dark  [4]uint8
}

// Blend factors, with their OpenGL values.
const (
	BlendZero             uint32 = 0
	BlendOne              uint32 = 1
	BlendSrcAlpha         uint32 = 0x0302
	BlendOneMinusSrcAlpha uint32 = 0x0303
)

// BlendFunc holds source and destination blend factors.
type BlendFunc struct {
	Src uint32
	Dst uint32
}

// Common blend functions.
var (
	BlendDisable               = BlendFunc{Src: BlendOne, Dst: BlendZero}
	BlendAlphaPremultiplied    = BlendFunc{Src: BlendOne, Dst: BlendOneMinusSrcAlpha}
	BlendAlphaNonPremultiplied = BlendFunc{Src: BlendSrcAlpha, Dst: BlendOneMinusSrcAlpha}
	BlendAdditive              = BlendFunc{Src: BlendSrcAlpha, Dst: BlendOne}
)

// Identity is the 4x4 identity transform, column-major.
var Identity = [16]float32{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 1, 0,
	0, 0, 0, 1,
}

// DrawCommand is one triangles draw call. Vertices and Indices refer to
// allocations in the owning Batch; resolve them with Batch.Triangles.
type DrawCommand struct {
	GlobalOrder float32
	Texture     uint32
	Program     uint32
	Blend       BlendFunc

	Vertices    pool.Ref
	Indices     pool.Ref
	VertexCount int32
	IndexCount  int32

	Transform [16]float32
	Flags     uint32
}

// Renderer receives commands as they are added to a batch.
type Renderer interface {
	Submit(cmd *DrawCommand)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(cmd *DrawCommand)

// Submit calls f(cmd).
func (f RendererFunc) Submit(cmd *DrawCommand) { f(cmd) }
