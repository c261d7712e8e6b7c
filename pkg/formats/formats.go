// Package formats provides decoders for the supported character mesh and
// motion interchange formats.
package formats

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Faultbox/rigbench/pkg/mesh"
)

// Format identifies one of the supported mesh interchange formats.
// FormatUnsupported is a valid member of the set: callers route it to the
// placeholder path instead of failing the session.
type Format int

const (
	FormatUnsupported Format = iota
	FormatGLB                // binary glTF container
	FormatGLTF               // JSON glTF, embedded or separate buffers
	FormatOBJ                // Wavefront text polygons
	FormatSTL                // stereolithography, binary or ASCII
)

// String returns a human-readable format name.
func (f Format) String() string {
	switch f {
	case FormatGLB:
		return "GLB"
	case FormatGLTF:
		return "glTF"
	case FormatOBJ:
		return "OBJ"
	case FormatSTL:
		return "STL"
	default:
		return "unsupported"
	}
}

// ErrUnsupportedFormat is returned when decoding is requested for a format
// outside the supported set.
var ErrUnsupportedFormat = errors.New("unsupported mesh format")

// Detect maps a file name or URL to its format by extension. Unknown
// extensions map to FormatUnsupported.
func Detect(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".glb":
		return FormatGLB
	case ".gltf":
		return FormatGLTF
	case ".obj":
		return FormatOBJ
	case ".stl":
		return FormatSTL
	default:
		return FormatUnsupported
	}
}

// Decode parses raw bytes in the given format into a triangle mesh. The
// result is raw model-space geometry; normalization into the rig frame is
// the caller's concern.
func Decode(f Format, data []byte) (*mesh.TriMesh, error) {
	switch f {
	case FormatGLB, FormatGLTF:
		return DecodeGLTF(data)
	case FormatOBJ:
		return DecodeOBJ(data)
	case FormatSTL:
		return DecodeSTL(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
	}
}
