package cluster

import (
	"sort"
	"strings"

	"github.com/m-mizutani/argus/pkg/model"
)

type Category string

const (
	CategoryFire       Category = "fire"
	CategoryViolence   Category = "violence"
	CategoryAccident   Category = "accident"
	CategoryWeapon     Category = "weapon"
	CategoryGathering  Category = "gathering"
	CategoryEmergency  Category = "emergency"
	CategorySuspicious Category = "suspicious"
	CategoryUnknown    Category = "unknown"
)

// GatheringPeopleCount is the crowd size that counts as a gathering without any tag
const GatheringPeopleCount = 10

var categoryKeywords = []struct {
	category Category
	keywords []string
}{
	{CategoryFire, []string{"fire", "smoke", "flame", "flames", "burning", "wildfire"}},
	{CategoryViolence, []string{"violence", "fight", "fighting", "assault", "attack", "brawl", "riot"}},
	{CategoryAccident, []string{"accident", "crash", "collision", "injury", "fallen person"}},
	{CategoryWeapon, []string{"weapon", "gun", "firearm", "rifle", "pistol", "knife"}},
	{CategoryGathering, []string{"crowd", "gathering", "protest", "mob", "queue"}},
	{CategoryEmergency, []string{"emergency", "ambulance", "medical", "rescue", "siren", "police"}},
	{CategorySuspicious, []string{"suspicious", "loitering", "trespassing", "intrusion", "unattended bag"}},
}

// Classify returns the semantic categories of an event, or [CategoryUnknown] when none match
func Classify(e *model.Event) []Category {
	labels := make(map[string]struct{}, len(e.Tags)+len(e.Objects))
	for _, v := range append(append([]string{}, e.Tags...), e.Objects...) {
		labels[strings.ToLower(strings.TrimSpace(v))] = struct{}{}
	}

	found := make(map[Category]bool)
	for _, entry := range categoryKeywords {
		for _, kw := range entry.keywords {
			if _, ok := labels[kw]; ok {
				found[entry.category] = true
				break
			}
		}
	}
	if len(e.Weapons) > 0 {
		found[CategoryWeapon] = true
	}
	if e.PeopleCount >= GatheringPeopleCount {
		found[CategoryGathering] = true
	}

	if len(found) == 0 {
		return []Category{CategoryUnknown}
	}

	out := make([]Category, 0, len(found))
	for c := range found {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// unionCategories merges the categories of all events, omitting unknown when a real
// category is present
func unionCategories(events []*model.Event) []Category {
	set := make(map[Category]bool)
	for _, e := range events {
		for _, c := range Classify(e) {
			set[c] = true
		}
	}
	if len(set) > 1 {
		delete(set, CategoryUnknown)
	}

	out := make([]Category, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
