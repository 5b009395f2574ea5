package render

// TextureResolver maps a material texture hash to a loaded texture handle.
// The codec only stores hashes; resolution belongs to whoever owns the GPU
// or export resources.
type TextureResolver interface {
	Resolve(hash int32) (uint32, bool)
}

// MapResolver is a TextureResolver backed by a map.
type MapResolver map[int32]uint32

// Resolve returns the handle registered for hash.
func (m MapResolver) Resolve(hash int32) (uint32, bool) {
	id, ok := m[hash]
	return id, ok
}
