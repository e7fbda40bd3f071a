// Package similarity scores how alike two annotated events are.
package similarity

import (
	"sort"
	"strings"

	"github.com/m-mizutani/argus/pkg/model"
)

// Attribute weights. They sum to 1.0.
const (
	WeightLicensePlates  = 0.40
	WeightVehicles       = 0.25
	WeightTags           = 0.15
	WeightObjects        = 0.10
	WeightClothingColors = 0.10
)

const (
	PlatePrefix   = "plate:"
	VehiclePrefix = "vehicle:"
)

// Result is the weighted score of a pair and the identifying values they share
type Result struct {
	Score  float64
	Shared []string
}

// normalize lower-cases, trims and de-duplicates values, dropping empty ones
func normalize(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		set[v] = struct{}{}
	}
	return set
}

// Jaccard returns |A∩B| / |A∪B| over case-insensitive sets. Two empty sets score 0.
func Jaccard(a, b []string) float64 {
	sa, sb := normalize(a), normalize(b)
	return jaccard(sa, sb)
}

func jaccard(sa, sb map[string]struct{}) float64 {
	if len(sa) == 0 && len(sb) == 0 {
		return 0
	}

	inter := 0
	for v := range sa {
		if _, ok := sb[v]; ok {
			inter++
		}
	}
	union := len(sa) + len(sb) - inter
	return float64(inter) / float64(union)
}

func intersection(sa, sb map[string]struct{}) []string {
	var out []string
	for v := range sa {
		if _, ok := sb[v]; ok {
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}

// Compare computes the weighted similarity of two events. Only license plates and
// vehicles are reported as shared attributes.
func Compare(a, b *model.Event) Result {
	platesA, platesB := normalize(a.LicensePlates), normalize(b.LicensePlates)
	vehiclesA, vehiclesB := normalize(a.Vehicles), normalize(b.Vehicles)

	score := WeightLicensePlates*jaccard(platesA, platesB) +
		WeightVehicles*jaccard(vehiclesA, vehiclesB) +
		WeightTags*Jaccard(a.Tags, b.Tags) +
		WeightObjects*Jaccard(a.Objects, b.Objects) +
		WeightClothingColors*Jaccard(a.ClothingColors, b.ClothingColors)

	// Guard against float accumulation drifting past 1
	if score > 1 {
		score = 1
	}

	var shared []string
	for _, p := range intersection(platesA, platesB) {
		shared = append(shared, PlatePrefix+p)
	}
	for _, v := range intersection(vehiclesA, vehiclesB) {
		shared = append(shared, VehiclePrefix+v)
	}

	return Result{Score: score, Shared: shared}
}

// IdentityKeys returns the identifying tokens of an event, plates before vehicles,
// in the same prefixed form Compare reports.
func IdentityKeys(e *model.Event) []string {
	var keys []string
	for _, p := range sortedKeys(normalize(e.LicensePlates)) {
		keys = append(keys, PlatePrefix+p)
	}
	for _, v := range sortedKeys(normalize(e.Vehicles)) {
		keys = append(keys, VehiclePrefix+v)
	}
	return keys
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
