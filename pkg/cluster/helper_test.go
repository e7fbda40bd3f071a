package cluster_test

import (
	"fmt"
	"time"

	"github.com/m-mizutani/argus/pkg/model"
)

var baseTime = time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)

func at(d time.Duration) int64 {
	return baseTime.Add(d).UnixMilli()
}

func newEvent(id string, offset time.Duration, modify ...func(*model.Event)) *model.Event {
	e := &model.Event{
		ID:        model.EventID(id),
		Timestamp: at(offset),
		DeviceID:  fmt.Sprintf("cam-%s", id),
	}
	for _, m := range modify {
		m(e)
	}
	return e
}

func region(r string) func(*model.Event) {
	return func(e *model.Event) { e.Region = r }
}

func tags(v ...string) func(*model.Event) {
	return func(e *model.Event) { e.Tags = v }
}

func plates(v ...string) func(*model.Event) {
	return func(e *model.Event) { e.LicensePlates = v }
}

func vehicles(v ...string) func(*model.Event) {
	return func(e *model.Event) { e.Vehicles = v }
}

func device(d string) func(*model.Event) {
	return func(e *model.Event) { e.DeviceID = d }
}

func people(n int) func(*model.Event) {
	return func(e *model.Event) { e.PeopleCount = n }
}

func identical(e *model.Event) {
	e.LicensePlates = []string{"ABC-123"}
	e.Vehicles = []string{"red sedan"}
	e.Tags = []string{"parking lot"}
	e.Objects = []string{"car"}
	e.ClothingColors = []string{"black"}
}
