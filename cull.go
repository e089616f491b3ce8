package graphics2d

// LightStats aggregates what kind of lighting a layer range needs. Computed
// once per batch from the culling result and immutable afterwards.
type LightStats struct {
	TotalLights     int
	TotalVolumetric int
	NormalMapUsage  int
	// BlendStylesUsed has bit i set when at least one light in the range
	// accumulates into blend-style slot i.
	BlendStylesUsed uint32
}

func (s *LightStats) accumulate(l *Light2D) {
	s.TotalLights++
	if l.volumetric() {
		s.TotalVolumetric++
	}
	if l.UseNormalMap {
		s.NormalMapUsage++
	}
	if l.BlendStyleIndex >= 0 && l.BlendStyleIndex < MaxBlendStyles {
		s.BlendStylesUsed |= 1 << uint(l.BlendStyleIndex)
	}
}

// CullResult holds per-layer visible light lists for one frame. It is the
// input contract of the lighting pass: the pass never culls lights itself,
// it only reads these lists and the precomputed scene-lit flag.
type CullResult struct {
	perLayer [][]*Light2D // parallel to the layer sequence
	sceneLit bool
}

// Cull assigns lights to the layers they target. blendStyles is the
// number of slots the renderer configuration actually defines; lights
// whose blend style index falls outside that range are dropped here,
// before the pass ever sees them. Misconfiguration must not surface
// mid-frame.
func Cull(layers []SortingLayer, lights []*Light2D, blendStyles int) *CullResult {
	if blendStyles > MaxBlendStyles {
		blendStyles = MaxBlendStyles
	}
	res := &CullResult{
		perLayer: make([][]*Light2D, len(layers)),
	}
	for _, light := range lights {
		if light.BlendStyleIndex < 0 || light.BlendStyleIndex >= blendStyles {
			continue
		}
		for i, layer := range layers {
			if light.Type == LightTypeGlobal || light.affectsLayer(layer.ID) {
				res.perLayer[i] = append(res.perLayer[i], light)
				res.sceneLit = true
			}
		}
	}
	return res
}

func (c *CullResult) IsSceneLit() bool {
	return c.sceneLit
}

// LayerLights returns the visible lights for the layer at the given
// draw-order position.
func (c *CullResult) LayerLights(i int) []*Light2D {
	if i < 0 || i >= len(c.perLayer) {
		return nil
	}
	return c.perLayer[i]
}

// sameLights reports whether two layer positions see the identical light
// list. The planner uses this to find maximal runs it must not split.
func (c *CullResult) sameLights(i, j int) bool {
	a, b := c.LayerLights(i), c.LayerLights(j)
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if a[k] != b[k] {
			return false
		}
	}
	return true
}

// StatsForRange unions the light statistics over the inclusive layer range.
// A light spanning several layers of the range counts once.
func (c *CullResult) StatsForRange(first, last int) LightStats {
	var stats LightStats
	for _, l := range c.lightsInRange(first, last) {
		stats.accumulate(l)
	}
	return stats
}

// lightsInRange returns the unique lights touching the inclusive layer
// range, in first-seen order.
func (c *CullResult) lightsInRange(first, last int) []*Light2D {
	var out []*Light2D
	seen := map[*Light2D]struct{}{}
	for i := first; i <= last && i < len(c.perLayer); i++ {
		for _, l := range c.perLayer[i] {
			if _, ok := seen[l]; ok {
				continue
			}
			seen[l] = struct{}{}
			out = append(out, l)
		}
	}
	return out
}

// volumetricInRange filters lightsInRange down to volumetric contributors.
func (c *CullResult) volumetricInRange(first, last int) []*Light2D {
	var out []*Light2D
	for _, l := range c.lightsInRange(first, last) {
		if l.volumetric() {
			out = append(out, l)
		}
	}
	return out
}
