package export

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/qmuntal/gltf"

	"github.com/Faultbox/nudkit/internal/render"
	"github.com/Faultbox/nudkit/pkg/formats"
)

func makeTestScene(t *testing.T) *render.Scene {
	t.Helper()
	n := &formats.NUD{BoneCount: 2}
	for _, name := range []string{"body", "hair"} {
		mesh := formats.NewNUDMesh(name)
		for j := 0; j < 2; j++ {
			p := formats.NewNUDPolygon(0x46, 0x12)
			for k := 0; k < 3; k++ {
				p.Vertices = append(p.Vertices, formats.NUDVertex{
					Position:    [3]float32{float32(k), float32(j), 0},
					Normal:      [3]float32{0, 0, 1},
					Color:       [4]uint8{255, 255, 255, 255},
					UV:          [][2]float32{{0, 1}},
					BoneIndices: [4]int16{1, 0, 0, 0},
					BoneWeights: [4]float32{1, 0, 0, 0},
				})
			}
			p.Faces = []uint32{0, 1, 2}
			mesh.Polygons = append(mesh.Polygons, p)
		}
		n.Meshes = append(n.Meshes, mesh)
	}
	n.SetMeshVisible("hair", false)
	return render.Flatten(n, nil)
}

func TestBuildDocument(t *testing.T) {
	tests := []struct {
		name       string
		opts       Options
		meshes     int
		primitives int
		skinned    bool
	}{
		{"all draws", Options{}, 2, 4, false},
		{"skip hidden", Options{SkipHidden: true}, 1, 2, false},
		{"skinning", Options{Skinning: true}, 2, 4, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := BuildDocument(makeTestScene(t), tt.opts)
			if err != nil {
				t.Fatalf("BuildDocument() error: %v", err)
			}
			if len(doc.Meshes) != tt.meshes {
				t.Errorf("%d meshes, want %d", len(doc.Meshes), tt.meshes)
			}
			if len(doc.Nodes) != tt.meshes || len(doc.Scenes[0].Nodes) != tt.meshes {
				t.Errorf("%d nodes, want %d", len(doc.Nodes), tt.meshes)
			}
			prims := 0
			for _, m := range doc.Meshes {
				prims += len(m.Primitives)
			}
			if prims != tt.primitives {
				t.Errorf("%d primitives, want %d", prims, tt.primitives)
			}

			attrs := doc.Meshes[0].Primitives[0].Attributes
			if _, ok := attrs[gltf.NORMAL]; !ok {
				t.Error("missing NORMAL attribute")
			}
			_, joints := attrs[gltf.JOINTS_0]
			_, weights := attrs[gltf.WEIGHTS_0]
			if joints != tt.skinned || weights != tt.skinned {
				t.Errorf("skinning attributes = %t/%t, want %t", joints, weights, tt.skinned)
			}
		})
	}
}

func TestBuildDocumentEmpty(t *testing.T) {
	s := makeTestScene(t)
	for i := range s.Draws {
		s.Draws[i].Visible = false
	}
	if _, err := BuildDocument(s, Options{SkipHidden: true}); !errors.Is(err, ErrEmptyScene) {
		t.Errorf("error = %v, want ErrEmptyScene", err)
	}
	if _, err := BuildDocument(&render.Scene{}, Options{}); !errors.Is(err, ErrEmptyScene) {
		t.Errorf("error = %v, want ErrEmptyScene", err)
	}
}

func TestWriteGLB(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.glb")
	if err := WriteGLB(makeTestScene(t), path, Options{Generator: "nudtool test"}); err != nil {
		t.Fatalf("WriteGLB() error: %v", err)
	}

	doc, err := gltf.Open(path)
	if err != nil {
		t.Fatalf("gltf.Open() error: %v", err)
	}
	if doc.Asset.Generator != "nudtool test" {
		t.Errorf("generator = %q", doc.Asset.Generator)
	}
	if len(doc.Meshes) != 2 || doc.Meshes[0].Name != "body" {
		t.Errorf("meshes = %d, first %q", len(doc.Meshes), doc.Meshes[0].Name)
	}
}

func TestBuildDocumentKeepsSameNamedMeshesApart(t *testing.T) {
	s := makeTestScene(t)
	for i := range s.Draws {
		s.Draws[i].Mesh = "part"
	}

	doc, err := BuildDocument(s, Options{})
	if err != nil {
		t.Fatalf("BuildDocument() error: %v", err)
	}
	if len(doc.Meshes) != 2 || len(doc.Nodes) != 2 {
		t.Fatalf("%d meshes and %d nodes, want 2 each", len(doc.Meshes), len(doc.Nodes))
	}
	for i, m := range doc.Meshes {
		if m.Name != "part" || len(m.Primitives) != 2 {
			t.Errorf("mesh %d = %q with %d primitives", i, m.Name, len(m.Primitives))
		}
		if n := doc.Nodes[i]; n.Mesh == nil || *n.Mesh != i {
			t.Errorf("node %d does not reference mesh %d", i, i)
		}
	}
}

func TestBuildDocumentSkipsEmptyDraws(t *testing.T) {
	s := makeTestScene(t)
	s.Draws[1].IndexCount = 0

	doc, err := BuildDocument(s, Options{})
	if err != nil {
		t.Fatalf("BuildDocument() error: %v", err)
	}
	if got := len(doc.Meshes[0].Primitives); got != 1 {
		t.Errorf("first mesh has %d primitives, want 1", got)
	}
	for _, acc := range doc.Accessors {
		if acc.Count == 0 {
			t.Errorf("accessor %q has no elements", acc.Name)
		}
	}

	for i := range s.Draws {
		s.Draws[i].IndexCount = 0
	}
	if _, err := BuildDocument(s, Options{}); !errors.Is(err, ErrEmptyScene) {
		t.Errorf("error = %v, want ErrEmptyScene", err)
	}
}
