package ingest

import (
	"github.com/saltcreek/surfcast/internal/models"
	"github.com/saltcreek/surfcast/internal/surf"
)

// Upstream feeds occasionally carry sentinel or physically impossible values
// (negative swell heights, 120-second periods, 99ft tides). These filters
// drop the garbage before anything reaches the store.

func validSwellComponent(c surf.SwellComponent) bool {
	if c.HeightM < 0 || c.HeightM > 30 {
		return false
	}
	if c.PeriodS <= 0 || c.PeriodS > 30 {
		return false
	}
	if c.DirectionDeg < 0 || c.DirectionDeg >= 360 {
		return false
	}
	return true
}

// FilterComponentSets removes malformed components and drops instants left
// with no components at all. Returns the number of components filtered.
func FilterComponentSets(sets []surf.SwellComponentSet) ([]surf.SwellComponentSet, int) {
	dropped := 0
	out := make([]surf.SwellComponentSet, 0, len(sets))
	for _, set := range sets {
		kept := make([]surf.SwellComponent, 0, len(set.Components))
		for _, c := range set.Components {
			if validSwellComponent(c) {
				kept = append(kept, c)
			} else {
				dropped++
			}
		}
		if len(kept) == 0 {
			continue
		}
		out = append(out, surf.NewSwellComponentSet(set.Timestamp, kept))
	}
	return out, dropped
}

// FilterTidePredictions drops predictions outside a plausible MLLW range.
func FilterTidePredictions(preds []models.TidePrediction) ([]models.TidePrediction, int) {
	dropped := 0
	out := make([]models.TidePrediction, 0, len(preds))
	for _, p := range preds {
		if p.HeightFt < -10 || p.HeightFt > 30 {
			dropped++
			continue
		}
		out = append(out, p)
	}
	return out, dropped
}
