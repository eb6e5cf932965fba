package discovery

import "github.com/mdragan85/venuepoll/internal/model"

// changedInstruments returns the instruments in next that are either absent
// from prev or present with different metadata. Removals are intentionally
// not reported here: a removal is derivable downstream from an instrument's
// absence in a later snapshot, matching the documented default.
func changedInstruments(prev, next model.ActiveSet) []model.Instrument {
	var out []model.Instrument
	for key, inst := range next.Instruments {
		if old, ok := prev.Instruments[key]; ok && old.Equal(inst) {
			continue
		}
		out = append(out, inst)
	}
	return out
}
