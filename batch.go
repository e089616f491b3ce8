package graphics2d

// LayerBatch is a contiguous run of sorting layers lit and drawn together.
// First/Last are inclusive draw-order positions. Targets[i] holds the
// frame-scoped accumulation texture for blend-style slot i; the invariant
// is TargetUsed[i] == (Stats.BlendStylesUsed bit i set), and a handle
// exists only while used.
type LayerBatch struct {
	First int
	Last  int
	Stats LightStats

	Targets    [MaxBlendStyles]TextureHandle
	TargetUsed [MaxBlendStyles]bool
}

func (b *LayerBatch) filter() DrawFilter {
	return DrawFilter{First: b.First, Last: b.Last}
}

// planBatches partitions the layer sequence into batches, grouping maximal
// runs of adjacent layers whose visible light lists are identical. The
// partition is exact: no gaps, no overlaps, union covers every layer, and
// the batch count never exceeds the layer count. dst is reused as backing
// storage.
func planBatches(layers []SortingLayer, cull *CullResult, dst []LayerBatch) []LayerBatch {
	dst = dst[:0]
	if len(layers) == 0 {
		return dst
	}

	first := 0
	for i := 1; i <= len(layers); i++ {
		if i < len(layers) && cull.sameLights(i-1, i) {
			continue
		}
		dst = append(dst, LayerBatch{
			First: first,
			Last:  i - 1,
			Stats: cull.StatsForRange(first, i-1),
		})
		first = i
	}
	return dst
}

// batchCache is the pass's only cross-frame state: the layer ordering is
// reused while the LayerStore version is unchanged, and the batch backing
// array is reused every frame to avoid reallocation. Light statistics are
// never cached - culling is per-frame.
type batchCache struct {
	layers       []SortingLayer
	layerVersion uint64
	batches      []LayerBatch
}

// layersFor returns the cached layer ordering, rebuilding it synchronously
// when the store version moved since last use.
func (c *batchCache) layersFor(store *LayerStore) []SortingLayer {
	if c.layerVersion == store.Version() && c.layers != nil {
		return c.layers
	}
	c.layers = append(c.layers[:0], store.Layers()...)
	c.layerVersion = store.Version()
	return c.layers
}
