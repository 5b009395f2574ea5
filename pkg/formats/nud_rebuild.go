package formats

import (
	"encoding/binary"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/Faultbox/nudkit/pkg/binio"
)

// Header field positions patched after layout.
const (
	nudFileSizeAt    = 0x04
	nudDescSizeAt    = 0x10
	nudFaceSizeAt    = 0x14
	nudVertSizeAt    = 0x18
	nudVertAddSizeAt = 0x1C
)

// Validate checks the whole graph against what the format can represent.
// Rebuild calls it before writing anything.
func (n *NUD) Validate() error {
	if len(n.Meshes) > math.MaxInt16 {
		return fmt.Errorf("%w: %d meshes exceed the int16 count field", ErrFormat, len(n.Meshes))
	}
	if n.BoneCount < 0 || n.BoneCount-1 > math.MaxInt16 {
		return fmt.Errorf("%w: bone count %d out of range", ErrFormat, n.BoneCount)
	}
	for i, m := range n.Meshes {
		if m == nil {
			return fmt.Errorf("%w: mesh %d is nil", ErrFormat, i)
		}
		if len(m.Polygons) > math.MaxInt16 {
			return fmt.Errorf("%w: mesh %d (%s) has %d polygons", ErrFormat, i, m.Name, len(m.Polygons))
		}
		for j, p := range m.Polygons {
			if p == nil {
				return fmt.Errorf("%w: mesh %d (%s) polygon %d is nil", ErrFormat, i, m.Name, j)
			}
			if err := p.Validate(); err != nil {
				return fmt.Errorf("mesh %d (%s) polygon %d: %w", i, m.Name, j, err)
			}
		}
	}
	return nil
}

// Rebuild serializes the container. The graph is read, never modified.
func (n *NUD) Rebuild() ([]byte, error) {
	return n.RebuildWithOptions(NUDOptions{})
}

// RebuildWithOptions serializes the container with options.
func (n *NUD) RebuildWithOptions(opts NUDOptions) ([]byte, error) {
	opts = opts.withDefaults()
	if err := n.Validate(); err != nil {
		return nil, err
	}

	e := newNUDEncoder(opts)
	data, err := e.encode(n)
	if err != nil {
		return nil, err
	}

	opts.Logger.Debug("rebuilt NUD",
		zap.Int("bytes", len(data)),
		zap.Int("meshes", len(n.Meshes)),
		zap.Int("polygons", n.PolygonCount()))
	return data, nil
}

// offsetFixup records a field whose absolute value is only known once every
// section has been concatenated.
type offsetFixup struct {
	at    int // field position within its writer
	local int // offset within the referenced section
}

type offsetPatch struct {
	at  int
	val int
}

// nudEncoder builds each section independently, then concatenates and
// backpatches.
type nudEncoder struct {
	opts NUDOptions

	head    *binio.Writer // header + object descriptors
	polys   *binio.Writer // polygon descriptors
	mats    *binio.Writer // material records
	faces   *binio.Writer
	verts   *binio.Writer
	vertAdd *binio.Writer
	names   *binio.Writer

	polyFixups []offsetFixup // in head, into polys
	texFixups  []offsetFixup // in polys, into mats
}

func newNUDEncoder(opts NUDOptions) *nudEncoder {
	w := func() *binio.Writer { return binio.NewWriter(binary.BigEndian) }
	return &nudEncoder{
		opts:    opts,
		head:    w(),
		polys:   w(),
		mats:    w(),
		faces:   w(),
		verts:   w(),
		vertAdd: w(),
		names:   w(),
	}
}

func (e *nudEncoder) encode(n *NUD) ([]byte, error) {
	e.writeHeader(n)

	// Mesh names lead the name table.
	nameOffsets := make([]int32, len(n.Meshes))
	for i, m := range n.Meshes {
		off, err := e.appendName(m.Name)
		if err != nil {
			return nil, fmt.Errorf("mesh %d name: %w", i, err)
		}
		nameOffsets[i] = off
	}

	for i, m := range n.Meshes {
		e.writeObjectDesc(m, nameOffsets[i])
		for j, p := range m.Polygons {
			if err := e.writePolygon(p); err != nil {
				return nil, fmt.Errorf("mesh %d (%s) polygon %d: %w", i, m.Name, j, err)
			}
		}
	}

	return e.assemble()
}

func (e *nudEncoder) writeHeader(n *NUD) {
	w := e.head
	w.WriteBytes([]byte(nudMagic))
	w.WriteInt32(0) // file size
	version := n.Version
	if version == 0 {
		version = NUDVersion
	}
	w.WriteInt16(version)
	w.WriteInt16(int16(len(n.Meshes)))
	typ := n.Type
	if typ == 0 {
		typ = NUDDefaultType
	}
	w.WriteInt16(typ)
	w.WriteInt16(int16(n.BoneCount - 1))
	w.WriteZeros(16) // section sizes
	for _, f := range n.BoundingSphere {
		w.WriteFloat32(f)
	}
}

func (e *nudEncoder) writeObjectDesc(m *NUDMesh, nameOffset int32) {
	w := e.head
	for _, f := range m.BoundingSphere {
		w.WriteFloat32(f)
	}
	w.WriteInt32(nameOffset)
	w.WriteInt32(m.ID)
	w.WriteInt16(m.SingleBind)
	w.WriteInt16(int16(len(m.Polygons)))
	e.polyFixups = append(e.polyFixups, offsetFixup{at: w.Len(), local: e.polys.Len()})
	w.WriteInt32(0)
}

func (e *nudEncoder) writePolygon(p *NUDPolygon) error {
	layout, err := ResolveVertexLayout(p.VertexFormat, p.UVFormat)
	if err != nil {
		return err
	}

	w := e.polys
	w.WriteInt32(int32(e.faces.Len()))
	w.WriteInt32(int32(e.verts.Len()))
	if layout.Weighted() {
		w.WriteInt32(int32(e.vertAdd.Len()))
	} else {
		w.WriteInt32(0)
	}
	w.WriteUint16(uint16(len(p.Vertices)))
	w.WriteUint8(p.VertexFormat)
	w.WriteUint8(p.UVFormat)

	for slot := 0; slot < NUDMaxMaterials; slot++ {
		if slot < len(p.Materials) {
			local, err := e.encodeMaterial(e.mats, p.Materials[slot])
			if err != nil {
				return fmt.Errorf("material %d: %w", slot, err)
			}
			e.texFixups = append(e.texFixups, offsetFixup{at: w.Len(), local: local})
		}
		w.WriteInt32(0)
	}

	w.WriteUint16(uint16(len(p.Faces)))
	w.WriteUint8(p.PrimitiveMode)
	flags := p.PrimitiveFlags
	if flags == 0 {
		flags = NUDDefaultPrimitiveFlags
	}
	w.WriteUint8(flags)
	w.WriteZeros(12)

	for _, f := range p.Faces {
		e.faces.WriteUint16(uint16(f))
	}

	main := e.verts
	if layout.Weighted() {
		for i := range p.Vertices {
			layout.encodeUVBlock(e.verts, &p.Vertices[i])
		}
		main = e.vertAdd
	}
	for i := range p.Vertices {
		layout.encodeMainBlock(main, &p.Vertices[i])
	}
	return nil
}

// appendName adds a null-terminated, 16-byte aligned entry to the name table.
func (e *nudEncoder) appendName(name string) (int32, error) {
	raw, err := e.opts.Names.Encode(name)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrFormat, err)
	}
	off := e.names.Len()
	e.names.WriteCString(raw)
	e.names.Align(nudSectionAlign)
	return int32(off), nil
}

// assemble concatenates the sections in file order, aligning each boundary,
// then patches sizes and absolute offsets.
func (e *nudEncoder) assemble() ([]byte, error) {
	out := binio.NewWriter(binary.BigEndian)
	out.Append(e.head)
	polysBase := out.Len()
	out.Append(e.polys)
	matsBase := out.Len()
	out.Append(e.mats)
	out.Align(nudSectionAlign)

	faceStart := out.Len()
	out.Append(e.faces)
	out.Align(nudSectionAlign)
	vertStart := out.Len()
	out.Append(e.verts)
	out.Align(nudSectionAlign)
	vertAddStart := out.Len()
	out.Append(e.vertAdd)
	out.Align(nudSectionAlign)
	nameStart := out.Len()
	out.Append(e.names)
	out.Align(nudSectionAlign)

	patches := []offsetPatch{
		{nudFileSizeAt, out.Len()},
		{nudDescSizeAt, faceStart - nudHeaderSize},
		{nudFaceSizeAt, vertStart - faceStart},
		{nudVertSizeAt, vertAddStart - vertStart},
		{nudVertAddSizeAt, nameStart - vertAddStart},
	}
	for _, f := range e.polyFixups {
		patches = append(patches, offsetPatch{f.at, polysBase + f.local})
	}
	for _, f := range e.texFixups {
		patches = append(patches, offsetPatch{polysBase + f.at, matsBase + f.local})
	}

	for _, p := range patches {
		if p.val > math.MaxInt32 {
			return nil, fmt.Errorf("%w: offset 0x%x does not fit int32", ErrFormat, p.val)
		}
		if err := out.PutInt32At(p.at, int32(p.val)); err != nil {
			return nil, err
		}
	}
	return out.Bytes(), nil
}
