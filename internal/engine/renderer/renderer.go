// Package renderer draws the workbench scene: the subject mesh, marker
// gizmos, bone segments, and the ground reference grid.
package renderer

import (
	"fmt"
	"unsafe"

	"go.uber.org/zap"

	"github.com/Faultbox/rigbench/internal/engine/shader"
	"github.com/Faultbox/rigbench/internal/logger"
	"github.com/Faultbox/rigbench/pkg/math"
	"github.com/Faultbox/rigbench/pkg/mesh"
	"github.com/go-gl/gl/v4.1-core/gl"
)

// Config holds renderer configuration.
type Config struct {
	Width  int
	Height int
}

// Renderer handles all OpenGL rendering.
type Renderer struct {
	config Config

	meshProgram *shader.Program
	meshMVP     int32
	meshModel   int32
	meshColor   int32

	lineProgram *shader.Program
	lineMVP     int32
	lineColor   int32

	// Uploaded subject mesh
	meshVAO    uint32
	meshVBO    uint32
	meshEBO    uint32
	meshGroups []meshGroup

	// Marker gizmo (shared octahedron)
	gizmoVAO   uint32
	gizmoVBO   uint32
	gizmoCount int32

	// Dynamic line buffer for bone segments
	lineVAO uint32
	lineVBO uint32

	// Ground grid
	gridVAO   uint32
	gridVBO   uint32
	gridCount int32
}

type meshGroup struct {
	color  [4]float32
	offset int32
	count  int32
}

// New creates a new renderer.
// IMPORTANT: Must be called AFTER OpenGL context is created!
func New(cfg Config) (*Renderer, error) {
	r := &Renderer{config: cfg}

	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}

	version := gl.GoStr(gl.GetString(gl.VERSION))
	rendererName := gl.GoStr(gl.GetString(gl.RENDERER))
	logger.Info("OpenGL initialized",
		zap.String("version", version),
		zap.String("renderer", rendererName),
	)

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)
	gl.ClearColor(0.12, 0.12, 0.16, 1.0)

	var err error
	r.meshProgram, err = shader.Compile("mesh", meshVertexSrc, meshFragmentSrc)
	if err != nil {
		return nil, err
	}
	r.meshMVP = r.meshProgram.MustUniform("uMVP")
	r.meshModel = r.meshProgram.MustUniform("uModel")
	r.meshColor = r.meshProgram.MustUniform("uColor")

	r.lineProgram, err = shader.Compile("line", lineVertexSrc, lineFragmentSrc)
	if err != nil {
		return nil, err
	}
	r.lineMVP = r.lineProgram.MustUniform("uMVP")
	r.lineColor = r.lineProgram.MustUniform("uColor")

	r.createGizmo()
	r.createLineBuffer()
	r.createGrid()

	return r, nil
}

// Close releases every GPU buffer and program the renderer owns.
func (r *Renderer) Close() {
	logger.Info("closing renderer")
	r.ReleaseMesh()
	deleteVAO(&r.gizmoVAO, &r.gizmoVBO)
	deleteVAO(&r.lineVAO, &r.lineVBO)
	deleteVAO(&r.gridVAO, &r.gridVBO)
	r.meshProgram.Delete()
	r.lineProgram.Delete()
}

func deleteVAO(vao, vbo *uint32) {
	if *vao != 0 {
		gl.DeleteVertexArrays(1, vao)
		*vao = 0
	}
	if *vbo != 0 {
		gl.DeleteBuffers(1, vbo)
		*vbo = 0
	}
}

// Resize handles window resize.
func (r *Renderer) Resize(width, height int) {
	r.config.Width = width
	r.config.Height = height
	gl.Viewport(0, 0, int32(width), int32(height))
	logger.Debug("renderer resized",
		zap.Int("width", width),
		zap.Int("height", height),
	)
}

// Begin starts a new frame.
func (r *Renderer) Begin() {
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
}

// End finishes the current frame.
func (r *Renderer) End() {}

// UploadMesh replaces the subject mesh on the GPU. Any previously uploaded
// mesh is released first.
func (r *Renderer) UploadMesh(m *mesh.TriMesh) {
	r.ReleaseMesh()
	if len(m.Vertices) == 0 || len(m.Indices) == 0 {
		return
	}

	// Interleave position + normal.
	vertices := make([]float32, 0, len(m.Vertices)*6)
	for _, v := range m.Vertices {
		vertices = append(vertices,
			v.Position[0], v.Position[1], v.Position[2],
			v.Normal[0], v.Normal[1], v.Normal[2],
		)
	}

	gl.GenVertexArrays(1, &r.meshVAO)
	gl.BindVertexArray(r.meshVAO)

	gl.GenBuffers(1, &r.meshVBO)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.meshVBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(vertices)*4, unsafe.Pointer(&vertices[0]), gl.STATIC_DRAW)

	gl.GenBuffers(1, &r.meshEBO)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, r.meshEBO)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(m.Indices)*4, unsafe.Pointer(&m.Indices[0]), gl.STATIC_DRAW)

	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, 6*4, nil)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(1, 3, gl.FLOAT, false, 6*4, unsafe.Pointer(uintptr(3*4)))
	gl.EnableVertexAttribArray(1)

	gl.BindVertexArray(0)

	r.meshGroups = r.meshGroups[:0]
	for _, g := range m.Groups {
		color := mesh.DefaultMaterial().BaseColor
		if g.MaterialIdx >= 0 && g.MaterialIdx < len(m.Materials) {
			color = m.Materials[g.MaterialIdx].BaseColor
		}
		r.meshGroups = append(r.meshGroups, meshGroup{
			color:  color,
			offset: g.StartIndex,
			count:  g.IndexCount,
		})
	}

	logger.Debug("mesh uploaded",
		zap.Int("vertices", len(m.Vertices)),
		zap.Int("indices", len(m.Indices)),
		zap.Int("groups", len(r.meshGroups)),
	)
}

// ReleaseMesh frees the GPU buffers of the uploaded mesh.
func (r *Renderer) ReleaseMesh() {
	deleteVAO(&r.meshVAO, &r.meshVBO)
	if r.meshEBO != 0 {
		gl.DeleteBuffers(1, &r.meshEBO)
		r.meshEBO = 0
	}
	r.meshGroups = nil
}

// DrawMesh renders the uploaded mesh with the given view-projection.
func (r *Renderer) DrawMesh(viewProj math.Mat4) {
	if r.meshVAO == 0 {
		return
	}
	model := math.Identity()

	r.meshProgram.Use()
	gl.UniformMatrix4fv(r.meshMVP, 1, false, viewProj.Ptr())
	gl.UniformMatrix4fv(r.meshModel, 1, false, model.Ptr())
	gl.BindVertexArray(r.meshVAO)
	for _, g := range r.meshGroups {
		gl.Uniform4f(r.meshColor, g.color[0], g.color[1], g.color[2], g.color[3])
		gl.DrawElementsWithOffset(gl.TRIANGLES, g.count, gl.UNSIGNED_INT, uintptr(g.offset*4))
	}
	gl.BindVertexArray(0)
}

// DrawMarkers renders one gizmo per marker, scaled by its pulse factor.
// The active (dragged or highlighted) marker draws yellow, the rest orange.
// Gizmos draw over the mesh so they stay visible inside the body.
func (r *Renderer) DrawMarkers(viewProj math.Mat4, positions []math.Vec3, scales []float32, active int) {
	if r.gizmoVAO == 0 {
		return
	}
	const baseSize = 0.025

	r.meshProgram.Use()
	gl.BindVertexArray(r.gizmoVAO)
	gl.Disable(gl.DEPTH_TEST)
	for i, p := range positions {
		s := baseSize * scales[i]
		model := math.Translate(p.X, p.Y, p.Z).Mul(math.Scale(s, s, s))
		mvp := viewProj.Mul(model)
		gl.UniformMatrix4fv(r.meshMVP, 1, false, mvp.Ptr())
		gl.UniformMatrix4fv(r.meshModel, 1, false, model.Ptr())
		if i == active {
			gl.Uniform4f(r.meshColor, 1.0, 0.9, 0.2, 1.0)
		} else {
			gl.Uniform4f(r.meshColor, 1.0, 0.45, 0.1, 1.0)
		}
		gl.DrawArrays(gl.TRIANGLES, 0, r.gizmoCount)
	}
	gl.Enable(gl.DEPTH_TEST)
	gl.BindVertexArray(0)
}

// DrawBones renders world-space parent-to-child segments as lines.
func (r *Renderer) DrawBones(viewProj math.Mat4, segments [][2]math.Vec3) {
	if len(segments) == 0 || r.lineVAO == 0 {
		return
	}

	vertices := make([]float32, 0, len(segments)*6)
	for _, s := range segments {
		vertices = append(vertices,
			s[0].X, s[0].Y, s[0].Z,
			s[1].X, s[1].Y, s[1].Z,
		)
	}

	r.lineProgram.Use()
	gl.UniformMatrix4fv(r.lineMVP, 1, false, viewProj.Ptr())
	gl.Uniform4f(r.lineColor, 0.3, 0.85, 1.0, 1.0)

	gl.BindVertexArray(r.lineVAO)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.lineVBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(vertices)*4, unsafe.Pointer(&vertices[0]), gl.DYNAMIC_DRAW)
	gl.Disable(gl.DEPTH_TEST)
	gl.DrawArrays(gl.LINES, 0, int32(len(segments)*2))
	gl.Enable(gl.DEPTH_TEST)
	gl.BindVertexArray(0)
}

// DrawGrid renders the ground reference grid.
func (r *Renderer) DrawGrid(viewProj math.Mat4) {
	if r.gridVAO == 0 {
		return
	}
	r.lineProgram.Use()
	gl.UniformMatrix4fv(r.lineMVP, 1, false, viewProj.Ptr())
	gl.Uniform4f(r.lineColor, 0.3, 0.3, 0.35, 1.0)
	gl.BindVertexArray(r.gridVAO)
	gl.DrawArrays(gl.LINES, 0, r.gridCount)
	gl.BindVertexArray(0)
}

// createGizmo builds the shared marker octahedron.
func (r *Renderer) createGizmo() {
	top := [3]float32{0, 1, 0}
	bottom := [3]float32{0, -1, 0}
	ring := [][3]float32{{1, 0, 0}, {0, 0, 1}, {-1, 0, 0}, {0, 0, -1}}

	var vertices []float32
	push := func(a, b, c [3]float32) {
		// Flat normal per face.
		u := math.Vec3{X: b[0] - a[0], Y: b[1] - a[1], Z: b[2] - a[2]}
		v := math.Vec3{X: c[0] - a[0], Y: c[1] - a[1], Z: c[2] - a[2]}
		n := u.Cross(v).Normalize()
		for _, p := range [][3]float32{a, b, c} {
			vertices = append(vertices, p[0], p[1], p[2], n.X, n.Y, n.Z)
		}
	}
	for i := range ring {
		j := (i + 1) % len(ring)
		push(top, ring[i], ring[j])
		push(bottom, ring[j], ring[i])
	}
	r.gizmoCount = int32(len(vertices) / 6)

	gl.GenVertexArrays(1, &r.gizmoVAO)
	gl.BindVertexArray(r.gizmoVAO)
	gl.GenBuffers(1, &r.gizmoVBO)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.gizmoVBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(vertices)*4, unsafe.Pointer(&vertices[0]), gl.STATIC_DRAW)
	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, 6*4, nil)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(1, 3, gl.FLOAT, false, 6*4, unsafe.Pointer(uintptr(3*4)))
	gl.EnableVertexAttribArray(1)
	gl.BindVertexArray(0)
}

// createLineBuffer prepares the dynamic VAO used for bone segments.
func (r *Renderer) createLineBuffer() {
	gl.GenVertexArrays(1, &r.lineVAO)
	gl.BindVertexArray(r.lineVAO)
	gl.GenBuffers(1, &r.lineVBO)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.lineVBO)
	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, 3*4, nil)
	gl.EnableVertexAttribArray(0)
	gl.BindVertexArray(0)
}

// createGrid builds a 10x10 meter ground grid at Y=0.
func (r *Renderer) createGrid() {
	const half = float32(5)
	const step = float32(0.5)

	var vertices []float32
	for x := -half; x <= half; x += step {
		vertices = append(vertices, x, 0, -half, x, 0, half)
	}
	for z := -half; z <= half; z += step {
		vertices = append(vertices, -half, 0, z, half, 0, z)
	}
	r.gridCount = int32(len(vertices) / 3)

	gl.GenVertexArrays(1, &r.gridVAO)
	gl.BindVertexArray(r.gridVAO)
	gl.GenBuffers(1, &r.gridVBO)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.gridVBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(vertices)*4, unsafe.Pointer(&vertices[0]), gl.STATIC_DRAW)
	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, 3*4, nil)
	gl.EnableVertexAttribArray(0)
	gl.BindVertexArray(0)
}

const meshVertexSrc = `
#version 410 core

layout (location = 0) in vec3 aPos;
layout (location = 1) in vec3 aNormal;

uniform mat4 uMVP;
uniform mat4 uModel;

out vec3 vNormal;

void main() {
	gl_Position = uMVP * vec4(aPos, 1.0);
	vNormal = mat3(uModel) * aNormal;
}
`

const meshFragmentSrc = `
#version 410 core

in vec3 vNormal;
uniform vec4 uColor;
out vec4 FragColor;

void main() {
	vec3 lightDir = normalize(vec3(0.4, 0.8, 0.6));
	float diffuse = abs(dot(normalize(vNormal), lightDir));
	float lit = 0.35 + 0.65 * diffuse;
	FragColor = vec4(uColor.rgb * lit, uColor.a);
}
`

const lineVertexSrc = `
#version 410 core

layout (location = 0) in vec3 aPos;
uniform mat4 uMVP;

void main() {
	gl_Position = uMVP * vec4(aPos, 1.0);
}
`

const lineFragmentSrc = `
#version 410 core

uniform vec4 uColor;
out vec4 FragColor;

void main() {
	FragColor = uColor;
}
`
