package formats

import (
	"fmt"

	"github.com/Faultbox/nudkit/pkg/binio"
)

// NUDProperty is a named float array attached to a material.
type NUDProperty struct {
	Name   string
	Values []float32
}

// NUDPropertyList is an insertion-ordered name -> values mapping. Order
// decides where each name lands in the rebuilt name table.
type NUDPropertyList []NUDProperty

// Get returns the values stored under name.
func (l NUDPropertyList) Get(name string) ([]float32, bool) {
	for _, p := range l {
		if p.Name == name {
			return p.Values, true
		}
	}
	return nil, false
}

// Set replaces the values of an existing entry in place, or appends a new one.
func (l *NUDPropertyList) Set(name string, values []float32) {
	for i := range *l {
		if (*l)[i].Name == name {
			(*l)[i].Values = values
			return
		}
	}
	*l = append(*l, NUDProperty{Name: name, Values: values})
}

// Delete removes an entry, keeping the order of the rest.
func (l *NUDPropertyList) Delete(name string) bool {
	for i := range *l {
		if (*l)[i].Name == name {
			*l = append((*l)[:i], (*l)[i+1:]...)
			return true
		}
	}
	return false
}

// Names returns the entry names in order.
func (l NUDPropertyList) Names() []string {
	names := make([]string, len(l))
	for i, p := range l {
		names[i] = p.Name
	}
	return names
}

// decodeMaterials walks texprop1..texprop4 until a zero offset.
func (d *nudDecoder) decodeMaterials(offsets [NUDMaxMaterials]int32) ([]*NUDMaterial, error) {
	var mats []*NUDMaterial
	visited := make(map[int32]bool, NUDMaxMaterials)

	for slot, off := range offsets {
		if off == 0 {
			break
		}
		if visited[off] {
			return nil, fmt.Errorf("%w: slot %d revisits material at 0x%x", ErrMaterialChainCycle, slot+1, off)
		}
		visited[off] = true

		m, err := d.decodeMaterial(int(off))
		if err != nil {
			return nil, fmt.Errorf("material %d at 0x%x: %w", slot, off, err)
		}
		mats = append(mats, m)
	}
	return mats, nil
}

func (d *nudDecoder) decodeMaterial(off int) (*NUDMaterial, error) {
	if err := d.seekRecord(off, nudMaterialSize, "material record"); err != nil {
		return nil, err
	}
	r := d.r

	m := &NUDMaterial{}
	m.Flags = r.ReadInt32()
	r.Skip(4)
	m.AuxData = r.ReadInt16()
	texCount := int(r.ReadInt16())
	m.BlendParams[0] = r.ReadInt32()
	m.BlendParams[1] = r.ReadInt32()
	r.Skip(12)

	if texCount < 0 {
		return nil, fmt.Errorf("%w: negative texture count %d", ErrFormat, texCount)
	}
	if texCount*nudTextureSize > r.Remaining() {
		return nil, fmt.Errorf("%w: %d textures need 0x%x bytes, 0x%x left", ErrTruncatedInput, texCount, texCount*nudTextureSize, r.Remaining())
	}
	if texCount > 0 {
		m.Textures = make([]NUDTexture, texCount)
	}
	for i := range m.Textures {
		tex := &m.Textures[i]
		tex.Hash = r.ReadInt32()
		r.Skip(8)
		tex.Data1 = r.ReadInt32()
		r.Skip(4)
		tex.Data2 = r.ReadInt32()
	}
	if err := d.check("material textures"); err != nil {
		return nil, err
	}

	for {
		start := r.Pos()
		head := r.ReadInt32()
		nameOffset := r.ReadInt32()
		count := int(r.ReadInt32())
		r.Skip(4)
		if err := d.check("material property header"); err != nil {
			return nil, err
		}
		if count < 0 || count*4 > r.Remaining() {
			return nil, fmt.Errorf("%w: property at 0x%x holds %d floats, 0x%x bytes left", ErrTruncatedInput, start, count, r.Remaining())
		}

		name, err := d.name(nameOffset)
		if err != nil {
			return nil, fmt.Errorf("property at 0x%x: %w", start, err)
		}
		if _, dup := m.Properties.Get(name); dup {
			return nil, fmt.Errorf("%w: duplicate property %q at 0x%x", ErrFormat, name, start)
		}

		values := make([]float32, count)
		for i := range values {
			values[i] = r.ReadFloat32()
		}
		m.Properties = append(m.Properties, NUDProperty{Name: name, Values: values})

		if head == 0 {
			break
		}
		next := start + int(head)
		if next <= start {
			return nil, fmt.Errorf("%w: property at 0x%x links back to 0x%x", ErrMaterialChainCycle, start, next)
		}
		if err := d.seekRecord(next, nudPropertyHeaderSize, "material property"); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// encodeMaterial appends a material record to w and its property names to the
// encoder's name table. It returns the record's offset within w.
func (e *nudEncoder) encodeMaterial(w *binio.Writer, m *NUDMaterial) (int, error) {
	local := w.Len()

	w.WriteInt32(m.Flags)
	w.WriteInt32(0)
	w.WriteInt16(m.AuxData)
	w.WriteInt16(int16(len(m.Textures)))
	w.WriteInt32(m.BlendParams[0])
	w.WriteInt32(m.BlendParams[1])
	w.WriteZeros(12)

	for _, tex := range m.Textures {
		w.WriteInt32(tex.Hash)
		w.WriteZeros(8)
		w.WriteInt32(tex.Data1)
		w.WriteInt32(0)
		w.WriteInt32(tex.Data2)
	}

	for i, prop := range m.Properties {
		head := int32(nudPropertyHeaderSize + 4*len(prop.Values))
		if i == len(m.Properties)-1 {
			head = 0
		}
		nameOffset, err := e.appendName(prop.Name)
		if err != nil {
			return 0, fmt.Errorf("property %d: %w", i, err)
		}
		w.WriteInt32(head)
		w.WriteInt32(nameOffset)
		w.WriteInt32(int32(len(prop.Values)))
		w.WriteInt32(0)
		for _, f := range prop.Values {
			w.WriteFloat32(f)
		}
	}

	return local, nil
}

// validate checks that a material can be encoded.
func (m *NUDMaterial) validate() error {
	if len(m.Textures) > 0x7FFF {
		return fmt.Errorf("%w: %d textures exceed the int16 count field", ErrFormat, len(m.Textures))
	}
	if len(m.Properties) == 0 {
		return fmt.Errorf("%w: material has no property entries", ErrFormat)
	}
	seen := make(map[string]bool, len(m.Properties))
	for _, p := range m.Properties {
		if seen[p.Name] {
			return fmt.Errorf("%w: duplicate property %q", ErrFormat, p.Name)
		}
		seen[p.Name] = true
	}
	return nil
}
