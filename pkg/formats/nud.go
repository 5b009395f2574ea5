// Package formats implements the NUD (NDP3) model container codec.
package formats

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/Faultbox/nudkit/pkg/binio"
	"github.com/Faultbox/nudkit/pkg/encoding"
)

// NUD format errors.
var (
	ErrFormat                  = errors.New("invalid NUD data")
	ErrTruncatedInput          = errors.New("truncated NUD data")
	ErrUnsupportedVertexFormat = errors.New("unsupported NUD vertex format")
	ErrUnsupportedUVFormat     = errors.New("unsupported NUD UV format")
	ErrUnsupportedPrimitive    = fmt.Errorf("%w: triangle strip primitives", ErrUnsupportedVertexFormat)
	ErrOffsetOutOfRange        = errors.New("NUD offset out of range")
	ErrMaterialChainCycle      = errors.New("NUD material chain cycle")
)

const (
	nudMagic = "NDP3"

	nudHeaderSize         = 0x30
	nudObjectSize         = 0x30
	nudPolygonSize        = 0x30
	nudMaterialSize       = 0x20
	nudTextureSize        = 0x18
	nudPropertyHeaderSize = 0x10
	nudSectionAlign       = 16

	// NUDVersion is the container version written by Rebuild.
	NUDVersion = 0x200
	// NUDDefaultType is the header type value used when none was parsed.
	NUDDefaultType = 2
	// NUDMaxMaterials is the number of material slots in a polygon descriptor.
	NUDMaxMaterials = 4

	nudDefaultObjectID = 4
)

// Primitive mode codes stored in a polygon descriptor.
const (
	NUDPrimitiveTriangleList  byte = 0x40
	NUDPrimitiveTriangleStrip byte = 0x04
	NUDDefaultPrimitiveFlags  byte = 0x04
)

// NUDTexture references a texture by hash. The hash is resolved by the
// renderer, never by the codec.
type NUDTexture struct {
	Hash  int32
	Data1 int32
	Data2 int32
}

// NUDMaterial is one record of a polygon's material chain.
type NUDMaterial struct {
	Flags       int32
	AuxData     int16
	BlendParams [2]int32
	Textures    []NUDTexture
	Properties  NUDPropertyList // insertion order is preserved on rebuild
}

// NUDVertex is a decoded vertex. Bone arrays always hold four influences;
// unused slots are zero.
type NUDVertex struct {
	Position    [3]float32
	Normal      [3]float32
	Bitangent   [4]float32 // normal format 7 only
	Tangent     [4]float32 // normal format 7 only
	Color       [4]uint8
	UV          [][2]float32
	BoneIndices [4]int16
	BoneWeights [4]float32
}

// NUDPolygon is a polygon block with its own vertex layout. Faces index into
// Vertices, not into any mesh-wide or global array.
type NUDPolygon struct {
	VertexFormat   byte
	UVFormat       byte
	PrimitiveMode  byte
	PrimitiveFlags byte
	Vertices       []NUDVertex
	Faces          []uint32
	Materials      []*NUDMaterial
	Visible        bool
}

// NUDMesh is a named group of polygons.
type NUDMesh struct {
	Name           string
	ID             int32
	SingleBind     int16 // -1 when the mesh is not rigidly bound to a bone
	BoundingSphere [8]float32
	Polygons       []*NUDPolygon
	Visible        bool
}

// NUD represents a parsed NDP3 model container.
//
// The graph is not safe for concurrent mutation; an editor owning a NUD must
// serialize access to it, including while Rebuild runs.
type NUD struct {
	Version        int16
	Type           int16
	BoneCount      int
	BoundingSphere [4]float32
	Meshes         []*NUDMesh
}

// NUDOptions configures parsing and rebuilding.
type NUDOptions struct {
	// Names converts name-table bytes. Defaults to encoding.Raw.
	Names encoding.NameCodec
	// Logger receives debug records. Defaults to a no-op logger.
	Logger *zap.Logger
}

func (o NUDOptions) withDefaults() NUDOptions {
	if o.Names == nil {
		o.Names = encoding.Raw
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// NewNUDMesh returns an empty visible mesh with no single-bind bone.
func NewNUDMesh(name string) *NUDMesh {
	return &NUDMesh{
		Name:       name,
		ID:         nudDefaultObjectID,
		SingleBind: -1,
		Visible:    true,
	}
}

// NewNUDPolygon returns an empty visible triangle-list polygon using the
// given format codes.
func NewNUDPolygon(vertexFormat, uvFormat byte) *NUDPolygon {
	return &NUDPolygon{
		VertexFormat:   vertexFormat,
		UVFormat:       uvFormat,
		PrimitiveMode:  NUDPrimitiveTriangleList,
		PrimitiveFlags: NUDDefaultPrimitiveFlags,
		Visible:        true,
	}
}

// SetMeshVisible sets the visibility of the first mesh whose name matches
// exactly. It reports whether a mesh matched.
func (n *NUD) SetMeshVisible(name string, visible bool) bool {
	if m := n.FindMesh(name); m != nil {
		m.Visible = visible
		return true
	}
	return false
}

// FindMesh returns the first mesh with the given name, or nil.
func (n *NUD) FindMesh(name string) *NUDMesh {
	for _, m := range n.Meshes {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// PolygonCount returns the number of polygons across all meshes.
func (n *NUD) PolygonCount() int {
	count := 0
	for _, m := range n.Meshes {
		count += len(m.Polygons)
	}
	return count
}

// VertexCount returns the number of vertices across all polygons.
func (m *NUDMesh) VertexCount() int {
	count := 0
	for _, p := range m.Polygons {
		count += len(p.Vertices)
	}
	return count
}

// ParseNUD parses NUD data from a byte slice.
func ParseNUD(data []byte) (*NUD, error) {
	return ParseNUDWithOptions(data, NUDOptions{})
}

// ParseNUDWithOptions parses NUD data from a byte slice. On error no partial
// container is returned.
func ParseNUDWithOptions(data []byte, opts NUDOptions) (*NUD, error) {
	opts = opts.withDefaults()

	if len(data) < nudHeaderSize {
		return nil, fmt.Errorf("%w: header needs %d bytes, got %d", ErrFormat, nudHeaderSize, len(data))
	}
	if string(data[:4]) != nudMagic {
		return nil, fmt.Errorf("%w: bad magic %q, expected %q", ErrFormat, data[:4], nudMagic)
	}

	r := binio.NewReader(data, binary.BigEndian)
	r.Skip(4)

	fileSize := r.ReadInt32()
	nud := &NUD{Version: r.ReadInt16()}
	meshCount := int(r.ReadInt16())
	nud.Type = r.ReadInt16()
	nud.BoneCount = int(r.ReadInt16()) + 1

	var sizes [4]int32
	for i := range sizes {
		sizes[i] = r.ReadInt32()
	}
	for i := range nud.BoundingSphere {
		nud.BoundingSphere[i] = r.ReadFloat32()
	}

	if meshCount < 0 {
		return nil, fmt.Errorf("%w: negative mesh count %d", ErrFormat, meshCount)
	}
	for i, s := range sizes {
		if s < 0 {
			return nil, fmt.Errorf("%w: negative section size %d at index %d", ErrFormat, s, i)
		}
	}

	d := &nudDecoder{r: r, opts: opts, sections: sectionsFromSizes(sizes, len(data))}
	if d.sections.Names > len(data) {
		return nil, fmt.Errorf("%w: name section starts at 0x%x, file is 0x%x bytes", ErrOffsetOutOfRange, d.sections.Names, len(data))
	}
	if int(fileSize) != len(data) {
		opts.Logger.Debug("NUD header size mismatch",
			zap.Int32("header", fileSize), zap.Int("actual", len(data)))
	}

	objects := make([]nudObjectDesc, meshCount)
	for i := range objects {
		obj, err := d.readObjectDesc()
		if err != nil {
			return nil, fmt.Errorf("object descriptor %d: %w", i, err)
		}
		objects[i] = obj
	}

	nud.Meshes = make([]*NUDMesh, 0, meshCount)
	for i, obj := range objects {
		mesh, err := d.decodeMesh(obj)
		if err != nil {
			return nil, fmt.Errorf("mesh %d: %w", i, err)
		}
		nud.Meshes = append(nud.Meshes, mesh)
	}

	opts.Logger.Debug("parsed NUD",
		zap.Int("meshes", len(nud.Meshes)),
		zap.Int("polygons", nud.PolygonCount()),
		zap.Int("bones", nud.BoneCount))

	return nud, nil
}

// ParseNUDFile parses a NUD file from disk. zlib and zstd wrapped files are
// decompressed first.
func ParseNUDFile(path string) (*NUD, error) {
	return ParseNUDFileWithOptions(path, NUDOptions{})
}

// ParseNUDFileWithOptions parses a NUD file from disk with options.
func ParseNUDFileWithOptions(path string, opts NUDOptions) (*NUD, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading NUD file: %w", err)
	}
	data, err = DecompressNUD(data)
	if err != nil {
		return nil, fmt.Errorf("decompressing %s: %w", path, err)
	}
	return ParseNUDWithOptions(data, opts)
}

// NUDSections holds the absolute start of each section of a container.
type NUDSections struct {
	Descriptors int // object, polygon and material descriptors
	Faces       int
	Vertices    int
	VertexExtra int
	Names       int
	End         int
}

// Boundaries returns every section start followed by the end of the data.
func (s NUDSections) Boundaries() []int {
	return []int{s.Descriptors, s.Faces, s.Vertices, s.VertexExtra, s.Names, s.End}
}

// ReadNUDSections reads only the header and returns the section layout.
func ReadNUDSections(data []byte) (NUDSections, error) {
	if len(data) < nudHeaderSize {
		return NUDSections{}, fmt.Errorf("%w: header needs %d bytes, got %d", ErrFormat, nudHeaderSize, len(data))
	}
	if string(data[:4]) != nudMagic {
		return NUDSections{}, fmt.Errorf("%w: bad magic %q, expected %q", ErrFormat, data[:4], nudMagic)
	}
	r := binio.NewReader(data, binary.BigEndian)
	if err := r.Seek(nudDescSizeAt); err != nil {
		return NUDSections{}, err
	}
	var sizes [4]int32
	for i := range sizes {
		sizes[i] = r.ReadInt32()
	}
	return sectionsFromSizes(sizes, len(data)), nil
}

func sectionsFromSizes(sizes [4]int32, end int) NUDSections {
	s := NUDSections{Descriptors: nudHeaderSize, End: end}
	s.Faces = nudHeaderSize + int(sizes[0])
	s.Vertices = s.Faces + int(sizes[1])
	s.VertexExtra = s.Vertices + int(sizes[2])
	s.Names = s.VertexExtra + int(sizes[3])
	return s
}

// nudDecoder carries the cursor and the absolute section bases.
type nudDecoder struct {
	r        *binio.Reader
	opts     NUDOptions
	sections NUDSections
}

// seekRecord moves to pos after checking that size bytes are available there.
func (d *nudDecoder) seekRecord(pos, size int, what string) error {
	if pos < 0 || size < 0 || pos+size > d.r.Len() {
		return fmt.Errorf("%w: %s at 0x%x (+0x%x), file is 0x%x bytes", ErrOffsetOutOfRange, what, pos, size, d.r.Len())
	}
	return d.r.Seek(pos)
}

// check converts a sticky cursor error into ErrTruncatedInput.
func (d *nudDecoder) check(what string) error {
	if err := d.r.Err(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrTruncatedInput, what, err)
	}
	return nil
}

// name resolves a name-table offset.
func (d *nudDecoder) name(offset int32) (string, error) {
	raw, err := d.r.CStringAt(d.sections.Names + int(offset))
	if err != nil {
		return "", fmt.Errorf("%w: name at +0x%x: %w", ErrOffsetOutOfRange, offset, err)
	}
	return d.opts.Names.Decode(raw), nil
}
