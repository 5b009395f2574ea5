package formats

import (
	"fmt"
	"math"

	"go.uber.org/zap"
)

// nudObjectDesc is the fixed 0x30 byte mesh descriptor.
type nudObjectDesc struct {
	bounds     [8]float32
	nameOffset int32
	id         int32
	singleBind int16
	polyCount  int16
	polyOffset int32 // absolute
}

// nudPolygonDesc is the fixed 0x30 byte polygon descriptor.
type nudPolygonDesc struct {
	faceOffset     int32 // relative to the face section
	vertOffset     int32 // relative to the vertex section
	vertAddOffset  int32 // relative to the vertex-extra section
	vertCount      uint16
	vertexFormat   byte
	uvFormat       byte
	texProps       [NUDMaxMaterials]int32 // absolute
	faceCount      uint16
	primitiveMode  byte
	primitiveFlags byte
}

func (d *nudDecoder) readObjectDesc() (nudObjectDesc, error) {
	r := d.r
	var o nudObjectDesc
	for i := range o.bounds {
		o.bounds[i] = r.ReadFloat32()
	}
	o.nameOffset = r.ReadInt32()
	o.id = r.ReadInt32()
	o.singleBind = r.ReadInt16()
	o.polyCount = r.ReadInt16()
	o.polyOffset = r.ReadInt32()
	if err := d.check("object descriptor"); err != nil {
		return nudObjectDesc{}, err
	}
	if o.polyCount < 0 {
		return nudObjectDesc{}, fmt.Errorf("%w: negative polygon count %d", ErrFormat, o.polyCount)
	}
	return o, nil
}

func (d *nudDecoder) readPolygonDesc() (nudPolygonDesc, error) {
	r := d.r
	var p nudPolygonDesc
	p.faceOffset = r.ReadInt32()
	p.vertOffset = r.ReadInt32()
	p.vertAddOffset = r.ReadInt32()
	p.vertCount = r.ReadUint16()
	p.vertexFormat = r.ReadUint8()
	p.uvFormat = r.ReadUint8()
	for i := range p.texProps {
		p.texProps[i] = r.ReadInt32()
	}
	p.faceCount = r.ReadUint16()
	p.primitiveMode = r.ReadUint8()
	p.primitiveFlags = r.ReadUint8()
	r.Skip(12)
	if err := d.check("polygon descriptor"); err != nil {
		return nudPolygonDesc{}, err
	}
	return p, nil
}

func (d *nudDecoder) decodeMesh(obj nudObjectDesc) (*NUDMesh, error) {
	name, err := d.name(obj.nameOffset)
	if err != nil {
		return nil, err
	}

	mesh := &NUDMesh{
		Name:           name,
		ID:             obj.id,
		SingleBind:     obj.singleBind,
		BoundingSphere: obj.bounds,
		Visible:        true,
		Polygons:       make([]*NUDPolygon, 0, obj.polyCount),
	}

	pos := int(obj.polyOffset)
	if err := d.seekRecord(pos, int(obj.polyCount)*nudPolygonSize, "polygon descriptors"); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	for i := 0; i < int(obj.polyCount); i++ {
		if err := d.r.Seek(pos + i*nudPolygonSize); err != nil {
			return nil, fmt.Errorf("%s polygon %d: %w", name, i, err)
		}
		desc, err := d.readPolygonDesc()
		if err != nil {
			return nil, fmt.Errorf("%s polygon %d: %w", name, i, err)
		}
		poly, err := d.decodePolygon(desc, obj.singleBind)
		if err != nil {
			return nil, fmt.Errorf("%s polygon %d: %w", name, i, err)
		}
		mesh.Polygons = append(mesh.Polygons, poly)
	}

	d.opts.Logger.Debug("decoded NUD mesh",
		zap.String("name", name),
		zap.Int16("single_bind", obj.singleBind),
		zap.Int("polygons", len(mesh.Polygons)),
		zap.Int("vertices", mesh.VertexCount()))

	return mesh, nil
}

func (d *nudDecoder) decodePolygon(desc nudPolygonDesc, singleBind int16) (*NUDPolygon, error) {
	layout, err := ResolveVertexLayout(desc.vertexFormat, desc.uvFormat)
	if err != nil {
		return nil, err
	}
	if !isTriangleList(desc.primitiveMode) {
		return nil, fmt.Errorf("%w: mode 0x%02x", ErrUnsupportedPrimitive, desc.primitiveMode)
	}

	poly := &NUDPolygon{
		VertexFormat:   desc.vertexFormat,
		UVFormat:       desc.uvFormat,
		PrimitiveMode:  desc.primitiveMode,
		PrimitiveFlags: desc.primitiveFlags,
		Visible:        true,
	}

	if poly.Vertices, err = d.decodeVertices(desc, layout, singleBind); err != nil {
		return nil, err
	}
	if poly.Faces, err = d.decodeFaces(desc); err != nil {
		return nil, err
	}
	if poly.Materials, err = d.decodeMaterials(desc.texProps); err != nil {
		return nil, err
	}

	d.opts.Logger.Debug("decoded NUD polygon",
		zap.Stringer("layout", layout),
		zap.Int("vertices", len(poly.Vertices)),
		zap.Int("faces", len(poly.Faces)),
		zap.Int("materials", len(poly.Materials)))

	return poly, nil
}

// decodeFaces reads a triangle-list index block. Indices stay local to the
// polygon.
func (d *nudDecoder) decodeFaces(desc nudPolygonDesc) ([]uint32, error) {
	n := int(desc.faceCount)
	if n%3 != 0 {
		return nil, fmt.Errorf("%w: triangle list with %d indices", ErrFormat, n)
	}
	if err := d.seekRecord(d.sections.Faces+int(desc.faceOffset), n*2, "face indices"); err != nil {
		return nil, err
	}

	faces := make([]uint32, n)
	for i := range faces {
		idx := d.r.ReadUint16()
		if idx >= desc.vertCount {
			return nil, fmt.Errorf("%w: face index %d is %d, polygon has %d vertices", ErrFormat, i, idx, desc.vertCount)
		}
		faces[i] = uint32(idx)
	}
	if err := d.check("face indices"); err != nil {
		return nil, err
	}
	return faces, nil
}

func isTriangleList(mode byte) bool {
	return mode>>4 == NUDPrimitiveTriangleList>>4
}

// Validate checks that the polygon can be encoded with its format codes.
func (p *NUDPolygon) Validate() error {
	layout, err := ResolveVertexLayout(p.VertexFormat, p.UVFormat)
	if err != nil {
		return err
	}
	if !isTriangleList(p.PrimitiveMode) {
		return fmt.Errorf("%w: mode 0x%02x", ErrUnsupportedPrimitive, p.PrimitiveMode)
	}
	if len(p.Vertices) > math.MaxUint16 {
		return fmt.Errorf("%w: %d vertices exceed the uint16 count field", ErrFormat, len(p.Vertices))
	}
	if len(p.Faces) > math.MaxUint16 {
		return fmt.Errorf("%w: %d face indices exceed the uint16 count field", ErrFormat, len(p.Faces))
	}
	if len(p.Faces)%3 != 0 {
		return fmt.Errorf("%w: triangle list with %d indices", ErrFormat, len(p.Faces))
	}
	for i, f := range p.Faces {
		if int(f) >= len(p.Vertices) {
			return fmt.Errorf("%w: face index %d is %d, polygon has %d vertices", ErrFormat, i, f, len(p.Vertices))
		}
	}
	if err := layout.validateVertices(p.Vertices); err != nil {
		return err
	}
	if len(p.Materials) > NUDMaxMaterials {
		return fmt.Errorf("%w: %d materials, descriptor holds %d", ErrFormat, len(p.Materials), NUDMaxMaterials)
	}
	for i, m := range p.Materials {
		if m == nil {
			return fmt.Errorf("%w: material %d is nil", ErrFormat, i)
		}
		if err := m.validate(); err != nil {
			return fmt.Errorf("material %d: %w", i, err)
		}
	}
	return nil
}
