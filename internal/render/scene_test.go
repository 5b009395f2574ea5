package render

import (
	"reflect"
	"testing"

	"github.com/Faultbox/nudkit/pkg/formats"
	"github.com/Faultbox/nudkit/pkg/math"
)

func makeTriangle(x float32) *formats.NUDPolygon {
	p := formats.NewNUDPolygon(0x46, 0x12)
	for i := 0; i < 3; i++ {
		p.Vertices = append(p.Vertices, formats.NUDVertex{
			Position:    [3]float32{x + float32(i), float32(i), 0},
			Color:       [4]uint8{255, 0, 51, 255},
			UV:          [][2]float32{{0.5, 0.25}},
			BoneIndices: [4]int16{1, 2, 0, 0},
			BoneWeights: [4]float32{0.5, 0.5, 0, 0},
		})
	}
	p.Faces = []uint32{0, 1, 2}
	m := &formats.NUDMaterial{Textures: []formats.NUDTexture{{Hash: 0x40001000}}}
	m.Properties.Set("NU_colorSamplerUV", []float32{1, 1, 0, 0})
	p.Materials = []*formats.NUDMaterial{m}
	return p
}

func makeTestNUD() *formats.NUD {
	body := formats.NewNUDMesh("body")
	body.Polygons = []*formats.NUDPolygon{makeTriangle(0), makeTriangle(10)}
	hair := formats.NewNUDMesh("hair")
	hair.Polygons = []*formats.NUDPolygon{makeTriangle(-5)}
	return &formats.NUD{BoneCount: 4, Meshes: []*formats.NUDMesh{body, hair}}
}

func TestFlattenGlobalIndices(t *testing.T) {
	s := Flatten(makeTestNUD(), nil)

	if s.VertexCount() != 9 {
		t.Fatalf("VertexCount() = %d, want 9", s.VertexCount())
	}
	want := []uint32{0, 1, 2, 3, 4, 5, 6, 7, 8}
	if !reflect.DeepEqual(s.Indices, want) {
		t.Errorf("Indices = %v, want %v", s.Indices, want)
	}
	if len(s.Draws) != 3 {
		t.Fatalf("%d draws, want 3", len(s.Draws))
	}

	tests := []struct {
		mesh      string
		meshIndex int
		polygon   int
		start     int
	}{
		{"body", 0, 0, 0},
		{"body", 0, 1, 3},
		{"hair", 1, 0, 6},
	}
	for i, tt := range tests {
		d := s.Draws[i]
		if d.Mesh != tt.mesh || d.MeshIndex != tt.meshIndex || d.Polygon != tt.polygon || d.IndexStart != tt.start || d.IndexCount != 3 {
			t.Errorf("draw %d = %+v", i, d)
		}
		if d.Primitive != formats.NUDPrimitiveTriangleList {
			t.Errorf("draw %d primitive = 0x%02x", i, d.Primitive)
		}
		if d.HasTexture {
			t.Errorf("draw %d has a texture without a resolver", i)
		}
	}
}

func TestFlattenVertexStreams(t *testing.T) {
	s := Flatten(makeTestNUD(), nil)

	if got, want := s.Colors[0], [4]float32{1, 0, 0.2, 1}; got != want {
		t.Errorf("Colors[0] = %v, want %v", got, want)
	}
	if got, want := s.UVs[0], [2]float32{0.5, 0.25}; got != want {
		t.Errorf("UVs[0] = %v, want %v", got, want)
	}
	if got, want := s.BoneIndices[0], [4]uint16{1, 2, 0, 0}; got != want {
		t.Errorf("BoneIndices[0] = %v, want %v", got, want)
	}
	if s.Bounds.Min != (math.Vec3{X: -5}) || s.Bounds.Max != (math.Vec3{X: 12, Y: 2}) {
		t.Errorf("Bounds = %v..%v", s.Bounds.Min, s.Bounds.Max)
	}
}

func TestFlattenSingleBindWithoutBone(t *testing.T) {
	n := makeTestNUD()
	n.Meshes[0].Polygons[0].Vertices[0].BoneIndices = [4]int16{-1, 0, 0, 0}

	s := Flatten(n, nil)
	if got := s.BoneIndices[0]; got != [4]uint16{} {
		t.Errorf("BoneIndices[0] = %v, want zeros", got)
	}
}

func TestFlattenVisibility(t *testing.T) {
	n := makeTestNUD()
	n.SetMeshVisible("hair", false)
	n.Meshes[0].Polygons[1].Visible = false

	s := Flatten(n, nil)
	visible := s.VisibleDraws()
	if len(visible) != 1 || visible[0].Mesh != "body" || visible[0].Polygon != 0 {
		t.Errorf("VisibleDraws() = %+v", visible)
	}
}

func TestFlattenResolvesTextures(t *testing.T) {
	n := makeTestNUD()
	n.Meshes[1].Polygons[0].Materials[0].Textures[0].Hash = 0x7777

	s := Flatten(n, MapResolver{0x40001000: 42})
	if d := s.Draws[0]; !d.HasTexture || d.Texture != 42 {
		t.Errorf("draw 0 texture = %d (%t), want 42", d.Texture, d.HasTexture)
	}
	if s.Draws[2].HasTexture {
		t.Error("unknown hash should not resolve")
	}
}
