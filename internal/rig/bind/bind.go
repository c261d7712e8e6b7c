// Package bind converts a mesh plus a synthesized skeleton into a
// skin-bound glTF document, provides the inverse skeleton-stripping
// operation, and serializes either to a GLB artifact.
//
// The exported model carries a valid joint hierarchy and bind pose but no
// computed per-vertex weights: JOINTS_0/WEIGHTS_0 are written as defaults
// and external weight painting is required before deformation works.
package bind

import (
	"bytes"
	"fmt"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/Faultbox/rigbench/internal/rig"
	"github.com/Faultbox/rigbench/pkg/mesh"
)

// Bind clones the mesh and skeleton into a fresh skinned glTF document.
// The joint hierarchy is attached as children of the bound mesh node so
// hierarchy and geometry travel together, and the skin references the full
// flattened joint list with inverse bind matrices taken from the current
// joint world positions.
func Bind(m *mesh.TriMesh, s *rig.Skeleton) (*gltf.Document, error) {
	if len(m.Vertices) == 0 {
		return nil, fmt.Errorf("bind: mesh has no geometry")
	}

	doc := gltf.NewDocument()
	doc.Asset.Generator = "rigbench"

	meshNode, err := writeMesh(doc, m)
	if err != nil {
		return nil, err
	}

	flat := s.Flatten()
	if len(flat) == 0 {
		return nil, fmt.Errorf("bind: %w", rig.ErrMissingRoot)
	}
	world := s.WorldPositions()

	// One glTF node per exported joint, parent-relative translation.
	nodeOf := make(map[int]uint32, len(flat))
	jointNodes := make([]uint32, 0, len(flat))
	matrices := make([][4][4]float32, 0, len(flat))
	for _, ji := range flat {
		j := s.Joints[ji]
		node := &gltf.Node{
			Name:        j.Name,
			Translation: [3]float32{j.Offset.X, j.Offset.Y, j.Offset.Z},
		}
		idx := uint32(len(doc.Nodes))
		doc.Nodes = append(doc.Nodes, node)
		nodeOf[ji] = idx
		jointNodes = append(jointNodes, idx)

		if j.Parent >= 0 {
			parent := doc.Nodes[nodeOf[j.Parent]]
			parent.Children = append(parent.Children, idx)
		}

		// Inverse bind matrix: joints carry no rotation at bind time, so
		// this is a pure translation by the negated world position.
		w := world[ji]
		matrices = append(matrices, [4][4]float32{
			{1, 0, 0, 0},
			{0, 1, 0, 0},
			{0, 0, 1, 0},
			{-w.X, -w.Y, -w.Z, 1},
		})
	}

	skin := &gltf.Skin{
		Name:                "rigbench-skin",
		InverseBindMatrices: gltf.Index(modeler.WriteAccessor(doc, gltf.TargetNone, matrices)),
		Joints:              jointNodes,
	}
	doc.Skins = append(doc.Skins, skin)
	doc.Nodes[meshNode].Skin = gltf.Index(uint32(len(doc.Skins) - 1))

	// Hierarchy travels with the geometry: root joint under the mesh node.
	doc.Nodes[meshNode].Children = append(doc.Nodes[meshNode].Children, nodeOf[flat[0]])

	return doc, nil
}

// writeMesh clones the triangle mesh into the document and returns the mesh
// node index. Default (unassigned) skin attributes are written so the
// primitives are skin-bindable.
func writeMesh(doc *gltf.Document, m *mesh.TriMesh) (int, error) {
	positions := make([][3]float32, len(m.Vertices))
	normals := make([][3]float32, len(m.Vertices))
	texcoords := make([][2]float32, len(m.Vertices))
	joints := make([][4]uint16, len(m.Vertices))
	weights := make([][4]float32, len(m.Vertices))
	for i, v := range m.Vertices {
		positions[i] = v.Position
		normals[i] = v.Normal
		texcoords[i] = v.TexCoord
		// joints/weights stay zero: no weight painting is computed.
	}

	posAcc := modeler.WritePosition(doc, positions)
	normAcc := modeler.WriteNormal(doc, normals)
	texAcc := modeler.WriteTextureCoord(doc, texcoords)
	jointsAcc := modeler.WriteJoints(doc, joints)
	weightsAcc := modeler.WriteWeights(doc, weights)

	for _, mat := range m.Materials {
		doc.Materials = append(doc.Materials, &gltf.Material{
			Name:        mat.Name,
			DoubleSided: mat.DoubleSided,
			PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
				BaseColorFactor: &[4]float32{mat.BaseColor[0], mat.BaseColor[1], mat.BaseColor[2], mat.BaseColor[3]},
			},
		})
	}

	gm := &gltf.Mesh{Name: m.Name}
	for _, g := range m.Groups {
		indices := make([]uint32, g.IndexCount)
		copy(indices, m.Indices[g.StartIndex:g.StartIndex+g.IndexCount])
		prim := &gltf.Primitive{
			Attributes: map[string]uint32{
				gltf.POSITION:   posAcc,
				gltf.NORMAL:     normAcc,
				gltf.TEXCOORD_0: texAcc,
				gltf.JOINTS_0:   jointsAcc,
				gltf.WEIGHTS_0:  weightsAcc,
			},
			Indices: gltf.Index(modeler.WriteIndices(doc, indices)),
		}
		if g.MaterialIdx >= 0 && g.MaterialIdx < len(doc.Materials) {
			prim.Material = gltf.Index(uint32(g.MaterialIdx))
		}
		gm.Primitives = append(gm.Primitives, prim)
	}

	doc.Meshes = append(doc.Meshes, gm)
	nodeIdx := len(doc.Nodes)
	doc.Nodes = append(doc.Nodes, &gltf.Node{
		Name: m.Name,
		Mesh: gltf.Index(uint32(len(doc.Meshes) - 1)),
	})
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, uint32(nodeIdx))
	return nodeIdx, nil
}

// Strip returns a copy of the document with every joint node removed and
// every skinned surface converted to a plain one. Geometry, materials, and
// node transforms are preserved. The conversion exists so the stripped
// model serializes without dangling skeleton references.
func Strip(doc *gltf.Document) *gltf.Document {
	// Joint nodes are exactly the nodes referenced by any skin.
	isJoint := make(map[uint32]bool)
	for _, skin := range doc.Skins {
		for _, j := range skin.Joints {
			isJoint[j] = true
		}
	}

	out := gltf.NewDocument()
	out.Asset = doc.Asset
	out.Accessors = doc.Accessors
	out.BufferViews = doc.BufferViews
	out.Buffers = doc.Buffers
	out.Materials = doc.Materials

	// Meshes with skin attributes dropped from each primitive.
	for _, m := range doc.Meshes {
		nm := &gltf.Mesh{Name: m.Name}
		for _, p := range m.Primitives {
			np := &gltf.Primitive{
				Attributes: make(map[string]uint32, len(p.Attributes)),
				Indices:    p.Indices,
				Material:   p.Material,
				Mode:       p.Mode,
			}
			for k, v := range p.Attributes {
				if k == gltf.JOINTS_0 || k == gltf.WEIGHTS_0 {
					continue
				}
				np.Attributes[k] = v
			}
			nm.Primitives = append(nm.Primitives, np)
		}
		out.Meshes = append(out.Meshes, nm)
	}

	// Surviving nodes, remapped to their new indices.
	remap := make(map[uint32]uint32, len(doc.Nodes))
	for i, n := range doc.Nodes {
		if isJoint[uint32(i)] {
			continue
		}
		nn := &gltf.Node{
			Name:        n.Name,
			Mesh:        n.Mesh,
			Translation: n.Translation,
			Rotation:    n.Rotation,
			Scale:       n.Scale,
			Matrix:      n.Matrix,
		}
		remap[uint32(i)] = uint32(len(out.Nodes))
		out.Nodes = append(out.Nodes, nn)
	}
	for i, n := range doc.Nodes {
		ni, kept := remap[uint32(i)]
		if !kept {
			continue
		}
		for _, c := range n.Children {
			if nc, ok := remap[c]; ok {
				out.Nodes[ni].Children = append(out.Nodes[ni].Children, nc)
			}
		}
	}
	for _, scene := range doc.Scenes {
		for _, root := range scene.Nodes {
			if nr, ok := remap[root]; ok {
				out.Scenes[0].Nodes = append(out.Scenes[0].Nodes, nr)
			}
		}
	}

	return out
}

// EncodeGLB serializes the document into a binary glTF container. On
// failure no partial output is produced.
func EncodeGLB(doc *gltf.Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := gltf.NewEncoder(&buf)
	enc.AsBinary = true
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encoding GLB: %w", err)
	}
	return buf.Bytes(), nil
}
