// STL (stereolithography) format decoder, binary and ASCII variants.
package formats

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	gomath "math"
	"strings"

	"github.com/Faultbox/rigbench/pkg/mesh"
)

// STL format errors.
var (
	ErrTruncatedSTL = errors.New("truncated STL data")
	ErrEmptySTL     = errors.New("STL contains no triangles")
)

const stlBinaryHeaderSize = 84 // 80-byte comment + uint32 triangle count

// DecodeSTL parses STL bytes into a triangle mesh, auto-detecting the
// binary and ASCII variants. STL carries no materials; a renderable default
// is attached.
func DecodeSTL(data []byte) (*mesh.TriMesh, error) {
	if isASCIISTL(data) {
		return decodeASCIISTL(data)
	}
	return decodeBinarySTL(data)
}

// isASCIISTL distinguishes the two variants. A leading "solid" keyword is
// not enough on its own (binary exporters write it into the comment), so
// the declared binary triangle count is checked against the actual length.
func isASCIISTL(data []byte) bool {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if !bytes.HasPrefix(trimmed, []byte("solid")) {
		return false
	}
	if len(data) < stlBinaryHeaderSize {
		return true
	}
	count := binary.LittleEndian.Uint32(data[80:84])
	expected := stlBinaryHeaderSize + int(count)*50
	return len(data) != expected
}

func decodeBinarySTL(data []byte) (*mesh.TriMesh, error) {
	if len(data) < stlBinaryHeaderSize {
		return nil, ErrTruncatedSTL
	}
	count := binary.LittleEndian.Uint32(data[80:84])
	if count == 0 {
		return nil, ErrEmptySTL
	}
	if len(data) < stlBinaryHeaderSize+int(count)*50 {
		return nil, fmt.Errorf("%w: header declares %d triangles", ErrTruncatedSTL, count)
	}

	m := &mesh.TriMesh{Name: "stl"}
	off := stlBinaryHeaderSize
	for i := uint32(0); i < count; i++ {
		var normal [3]float32
		for a := 0; a < 3; a++ {
			normal[a] = readF32(data, off+a*4)
		}
		for v := 0; v < 3; v++ {
			base := off + 12 + v*12
			m.Vertices = append(m.Vertices, mesh.Vertex{
				Position: [3]float32{
					readF32(data, base),
					readF32(data, base+4),
					readF32(data, base+8),
				},
				Normal: normal,
			})
			m.Indices = append(m.Indices, uint32(len(m.Vertices)-1))
		}
		off += 50 // 12 normal + 36 vertex + 2 attribute bytes
	}

	finishSTL(m)
	return m, nil
}

func decodeASCIISTL(data []byte) (*mesh.TriMesh, error) {
	m := &mesh.TriMesh{Name: "stl"}

	var normal [3]float32
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "facet":
			// "facet normal nx ny nz"
			if len(fields) >= 5 && fields[1] == "normal" {
				n, err := parseFloats3(fields[2:])
				if err != nil {
					return nil, fmt.Errorf("STL line %d: %w", line, err)
				}
				normal = n
			}
		case "vertex":
			p, err := parseFloats3(fields[1:])
			if err != nil {
				return nil, fmt.Errorf("STL line %d: %w", line, err)
			}
			m.Vertices = append(m.Vertices, mesh.Vertex{Position: p, Normal: normal})
			m.Indices = append(m.Indices, uint32(len(m.Vertices)-1))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading STL: %w", err)
	}
	if len(m.Indices) == 0 {
		return nil, ErrEmptySTL
	}
	if len(m.Indices)%3 != 0 {
		return nil, fmt.Errorf("%w: vertex count %d not a multiple of 3", ErrTruncatedSTL, len(m.Indices))
	}

	finishSTL(m)
	return m, nil
}

func finishSTL(m *mesh.TriMesh) {
	m.Materials = []mesh.Material{mesh.DefaultMaterial()}
	m.Groups = []mesh.Group{{MaterialIdx: 0, StartIndex: 0, IndexCount: int32(len(m.Indices))}}
	m.RecomputeBounds()
}

func readF32(data []byte, off int) float32 {
	return gomath.Float32frombits(binary.LittleEndian.Uint32(data[off : off+4]))
}

func sqrt32(x float32) float32 {
	return float32(gomath.Sqrt(float64(x)))
}
