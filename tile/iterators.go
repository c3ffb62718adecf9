package tile

import "iter"

// IterMetatiles returns an iterator over the metatiles produced by the stepper.
// Each iteration step advances the stepper, so the iterator can be consumed only once.
func IterMetatiles(s Stepper) iter.Seq[Metatile] {
	return func(yield func(Metatile) bool) {
		for {
			metatile, ok := s.Next()
			if !ok || !yield(metatile) {
				return
			}
		}
	}
}

// IterTiles returns an iterator over all tiles produced by the stepper,
// flattening metatiles in scanline order.
func IterTiles(s Stepper) iter.Seq[ID] {
	return func(yield func(ID) bool) {
		for metatile := range IterMetatiles(s) {
			for tileID := range metatile.All() {
				if !yield(tileID) {
					return
				}
			}
		}
	}
}
