package graphics2d

// SortingLayer is an ordered rendering bucket for 2D renderers. The position
// of a layer in the sequence is its draw order; the ID is stable across
// reorderings and is what lights target.
type SortingLayer struct {
	ID   int32
	Name string
}

// LayerStore owns the ordered sorting-layer sequence for a view. Every
// mutation bumps the version, which is the invalidation signal consumers
// (the batch planner cache) key their cached orderings on.
type LayerStore struct {
	layers  []SortingLayer
	version uint64
}

func NewLayerStore(layers ...SortingLayer) *LayerStore {
	s := &LayerStore{version: 1}
	s.layers = append(s.layers, layers...)
	return s
}

// Layers returns the layer sequence in draw order. Callers must not mutate
// the returned slice; use SetLayers/Add instead so the version moves.
func (s *LayerStore) Layers() []SortingLayer {
	return s.layers
}

func (s *LayerStore) Count() int {
	return len(s.layers)
}

func (s *LayerStore) Version() uint64 {
	return s.version
}

// SetLayers replaces the whole sequence.
func (s *LayerStore) SetLayers(layers ...SortingLayer) {
	s.layers = s.layers[:0]
	s.layers = append(s.layers, layers...)
	s.version++
}

// Add appends a layer at the end of the draw order.
func (s *LayerStore) Add(layer SortingLayer) {
	s.layers = append(s.layers, layer)
	s.version++
}

// IndexOf returns the draw-order position of the layer with the given ID,
// or -1 when no such layer exists.
func (s *LayerStore) IndexOf(id int32) int {
	for i, l := range s.layers {
		if l.ID == id {
			return i
		}
	}
	return -1
}
