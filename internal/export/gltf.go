// Package export writes flattened model scenes to interchange formats.
package export

import (
	"errors"
	"fmt"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/zap"

	"github.com/Faultbox/nudkit/internal/render"
)

// ErrEmptyScene is returned when there is nothing to export.
var ErrEmptyScene = errors.New("scene has no drawable geometry")

// Options configures glTF export.
type Options struct {
	Generator  string
	SkipHidden bool // leave out draw calls whose mesh or polygon is hidden
	Skinning   bool // emit JOINTS_0 and WEIGHTS_0
	Logger     *zap.Logger
}

// BuildDocument converts a scene into a glTF document. Every draw call with
// at least one index becomes one primitive; draw calls of the same source
// mesh share a glTF mesh and node.
func BuildDocument(s *render.Scene, opts Options) (*gltf.Document, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	draws := exportedDraws(s, opts.SkipHidden)
	if s.VertexCount() == 0 || len(draws) == 0 {
		return nil, ErrEmptyScene
	}

	doc := gltf.NewDocument()
	doc.Asset.Generator = opts.Generator

	pbr := &gltf.PBRMetallicRoughness{
		BaseColorFactor: &[4]float64{1, 1, 1, 1},
		MetallicFactor:  gltf.Float(0),
		RoughnessFactor: gltf.Float(1),
	}
	doc.Materials = []*gltf.Material{{PBRMetallicRoughness: pbr, AlphaMode: gltf.AlphaOpaque}}

	attrs := gltf.PrimitiveAttributes{
		gltf.POSITION:   modeler.WritePosition(doc, s.Positions),
		gltf.COLOR_0:    modeler.WriteColor(doc, s.Colors),
		gltf.TEXCOORD_0: modeler.WriteTextureCoord(doc, s.UVs),
	}
	if hasNormals(s.Normals) {
		attrs[gltf.NORMAL] = modeler.WriteNormal(doc, s.Normals)
	}
	if opts.Skinning {
		attrs[gltf.JOINTS_0] = modeler.WriteJoints(doc, s.BoneIndices)
		attrs[gltf.WEIGHTS_0] = modeler.WriteWeights(doc, s.BoneWeights)
	}

	var mesh *gltf.Mesh
	meshIndex := -1
	for _, d := range draws {
		if mesh == nil || d.MeshIndex != meshIndex {
			meshIndex = d.MeshIndex
			mesh = &gltf.Mesh{Name: d.Mesh}
			doc.Meshes = append(doc.Meshes, mesh)
			node := &gltf.Node{Name: d.Mesh, Mesh: gltf.Index(len(doc.Meshes) - 1)}
			doc.Nodes = append(doc.Nodes, node)
			doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, len(doc.Nodes)-1)
		}

		indices := s.Indices[d.IndexStart : d.IndexStart+d.IndexCount]
		prim := &gltf.Primitive{
			Attributes: primitiveAttributes(attrs),
			Indices:    gltf.Index(modeler.WriteIndices(doc, indices)),
			Material:   gltf.Index(0),
		}
		mesh.Primitives = append(mesh.Primitives, prim)
	}

	opts.Logger.Debug("built glTF document",
		zap.Int("meshes", len(doc.Meshes)),
		zap.Int("primitives", len(draws)),
		zap.Int("vertices", s.VertexCount()))
	return doc, nil
}

// exportedDraws drops draw calls without indices, since glTF accessors must
// hold at least one element, and hidden ones when requested.
func exportedDraws(s *render.Scene, skipHidden bool) []render.DrawCall {
	var out []render.DrawCall
	for _, d := range s.Draws {
		if d.IndexCount == 0 || (skipHidden && !d.Visible) {
			continue
		}
		out = append(out, d)
	}
	return out
}

// WriteGLB exports a scene as a binary glTF file.
func WriteGLB(s *render.Scene, path string, opts Options) error {
	doc, err := BuildDocument(s, opts)
	if err != nil {
		return err
	}
	if err := gltf.SaveBinary(doc, path); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func primitiveAttributes(shared gltf.PrimitiveAttributes) gltf.PrimitiveAttributes {
	attrs := make(gltf.PrimitiveAttributes, len(shared))
	for k, v := range shared {
		attrs[k] = v
	}
	return attrs
}

func hasNormals(normals [][3]float32) bool {
	for _, n := range normals {
		if n != ([3]float32{}) {
			return true
		}
	}
	return false
}
