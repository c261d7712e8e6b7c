// OBJ (Wavefront) text polygon format decoder.
package formats

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Faultbox/rigbench/pkg/mesh"
)

// OBJ format errors.
var (
	ErrEmptyOBJ        = errors.New("OBJ contains no faces")
	ErrMalformedOBJFace = errors.New("malformed OBJ face element")
)

type objIndex struct {
	v, vt, vn int // 1-based OBJ indices, 0 when absent
}

// DecodeOBJ parses a Wavefront OBJ file into a triangle mesh. Polygons with
// more than three vertices are triangulated as fans. Faces are grouped by
// usemtl name; materials themselves are synthesized as renderable defaults
// since .mtl sidecar files are not fetched.
func DecodeOBJ(data []byte) (*mesh.TriMesh, error) {
	var (
		positions [][3]float32
		texcoords [][2]float32
		normals   [][3]float32
	)

	m := &mesh.TriMesh{Name: "obj"}

	// Vertex dedup: OBJ indexes position/texcoord/normal independently,
	// the mesh wants one index stream.
	seen := map[objIndex]uint32{}
	materialIdx := map[string]int{}
	currentMat := -1
	groupStart := 0

	flushGroup := func() {
		if len(m.Indices) > groupStart {
			idx := currentMat
			if idx < 0 {
				idx = 0
			}
			m.Groups = append(m.Groups, mesh.Group{
				MaterialIdx: idx,
				StartIndex:  int32(groupStart),
				IndexCount:  int32(len(m.Indices) - groupStart),
			})
		}
		groupStart = len(m.Indices)
	}

	emit := func(oi objIndex) (uint32, error) {
		if idx, ok := seen[oi]; ok {
			return idx, nil
		}
		var v mesh.Vertex
		pi := oi.v
		if pi < 0 {
			pi = len(positions) + 1 + pi // negative indices count from the end
		}
		if pi < 1 || pi > len(positions) {
			return 0, fmt.Errorf("%w: vertex index %d out of range", ErrMalformedOBJFace, oi.v)
		}
		v.Position = positions[pi-1]
		if oi.vt >= 1 && oi.vt <= len(texcoords) {
			v.TexCoord = texcoords[oi.vt-1]
		}
		if oi.vn >= 1 && oi.vn <= len(normals) {
			v.Normal = normals[oi.vn-1]
		}
		idx := uint32(len(m.Vertices))
		m.Vertices = append(m.Vertices, v)
		seen[oi] = idx
		return idx, nil
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}

		switch fields[0] {
		case "v":
			p, err := parseFloats3(fields[1:])
			if err != nil {
				return nil, fmt.Errorf("OBJ line %d: %w", line, err)
			}
			positions = append(positions, p)
		case "vt":
			if len(fields) < 3 {
				return nil, fmt.Errorf("OBJ line %d: short texcoord", line)
			}
			u, err1 := strconv.ParseFloat(fields[1], 32)
			v, err2 := strconv.ParseFloat(fields[2], 32)
			if err1 != nil || err2 != nil {
				return nil, fmt.Errorf("OBJ line %d: bad texcoord", line)
			}
			texcoords = append(texcoords, [2]float32{float32(u), float32(v)})
		case "vn":
			n, err := parseFloats3(fields[1:])
			if err != nil {
				return nil, fmt.Errorf("OBJ line %d: %w", line, err)
			}
			normals = append(normals, n)
		case "usemtl":
			flushGroup()
			name := "default"
			if len(fields) > 1 {
				name = fields[1]
			}
			idx, ok := materialIdx[name]
			if !ok {
				idx = len(m.Materials)
				mat := mesh.DefaultMaterial()
				mat.Name = name
				m.Materials = append(m.Materials, mat)
				materialIdx[name] = idx
			}
			currentMat = idx
		case "f":
			if len(fields) < 4 {
				return nil, fmt.Errorf("OBJ line %d: %w", line, ErrMalformedOBJFace)
			}
			corners := make([]uint32, 0, len(fields)-1)
			for _, f := range fields[1:] {
				oi, err := parseOBJIndex(f)
				if err != nil {
					return nil, fmt.Errorf("OBJ line %d: %w", line, err)
				}
				idx, err := emit(oi)
				if err != nil {
					return nil, fmt.Errorf("OBJ line %d: %w", line, err)
				}
				corners = append(corners, idx)
			}
			// Fan triangulation
			for i := 1; i+1 < len(corners); i++ {
				m.Indices = append(m.Indices, corners[0], corners[i], corners[i+1])
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading OBJ: %w", err)
	}

	if len(m.Indices) == 0 {
		return nil, ErrEmptyOBJ
	}

	flushGroup()
	if len(normals) == 0 {
		computeNormals(m)
	}
	m.EnsureRenderable()
	m.RecomputeBounds()
	return m, nil
}

// parseOBJIndex parses a face element of the form v, v/vt, v//vn, or v/vt/vn.
func parseOBJIndex(s string) (objIndex, error) {
	parts := strings.Split(s, "/")
	if len(parts) == 0 || parts[0] == "" {
		return objIndex{}, ErrMalformedOBJFace
	}
	var oi objIndex
	v, err := strconv.Atoi(parts[0])
	if err != nil {
		return objIndex{}, fmt.Errorf("%w: %q", ErrMalformedOBJFace, s)
	}
	oi.v = v
	if len(parts) > 1 && parts[1] != "" {
		if oi.vt, err = strconv.Atoi(parts[1]); err != nil {
			return objIndex{}, fmt.Errorf("%w: %q", ErrMalformedOBJFace, s)
		}
	}
	if len(parts) > 2 && parts[2] != "" {
		if oi.vn, err = strconv.Atoi(parts[2]); err != nil {
			return objIndex{}, fmt.Errorf("%w: %q", ErrMalformedOBJFace, s)
		}
	}
	return oi, nil
}

func parseFloats3(fields []string) ([3]float32, error) {
	var out [3]float32
	if len(fields) < 3 {
		return out, errors.New("expected 3 components")
	}
	for i := 0; i < 3; i++ {
		f, err := strconv.ParseFloat(fields[i], 32)
		if err != nil {
			return out, fmt.Errorf("bad float %q", fields[i])
		}
		out[i] = float32(f)
	}
	return out, nil
}

// computeNormals fills per-vertex normals from averaged face normals.
func computeNormals(m *mesh.TriMesh) {
	for i := 0; i+2 < len(m.Indices); i += 3 {
		a := m.Vertices[m.Indices[i]].Position
		b := m.Vertices[m.Indices[i+1]].Position
		c := m.Vertices[m.Indices[i+2]].Position

		ux, uy, uz := b[0]-a[0], b[1]-a[1], b[2]-a[2]
		vx, vy, vz := c[0]-a[0], c[1]-a[1], c[2]-a[2]
		nx := uy*vz - uz*vy
		ny := uz*vx - ux*vz
		nz := ux*vy - uy*vx

		for k := 0; k < 3; k++ {
			n := &m.Vertices[m.Indices[i+k]].Normal
			n[0] += nx
			n[1] += ny
			n[2] += nz
		}
	}
	for i := range m.Vertices {
		n := m.Vertices[i].Normal
		l := n[0]*n[0] + n[1]*n[1] + n[2]*n[2]
		if l > 0 {
			inv := 1 / sqrt32(l)
			m.Vertices[i].Normal = [3]float32{n[0] * inv, n[1] * inv, n[2] * inv}
		}
	}
}
