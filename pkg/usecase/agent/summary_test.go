package agent_test

import (
	"testing"
	"time"

	"github.com/m-mizutani/argus/pkg/cluster"
	"github.com/m-mizutani/argus/pkg/model"
	"github.com/m-mizutani/argus/pkg/usecase/agent"
	"github.com/m-mizutani/gt"
)

func TestSummarizeAnomaly(t *testing.T) {
	a := newEvent("a", 0, region("North"))
	b := newEvent("b", 4*time.Minute, region("North"))
	c := newEvent("c", 9*time.Minute, region("North"))
	b.DeviceID = a.DeviceID
	b.Weapons = []string{"gun", "knife"}
	c.PeopleCount = 14

	g := &cluster.Group{
		Kind:       cluster.KindWindow,
		Events:     []*model.Event{a, b, c},
		Region:     "North",
		Start:      a.Timestamp,
		End:        c.Timestamp,
		Severity:   cluster.SeverityCritical,
		Categories: []cluster.Category{cluster.CategoryFire, cluster.CategoryWeapon},
	}

	got := agent.Summarize(model.AgentAnomaly, g, model.RunModeCron)
	gt.Equal(t, got, "Critical anomaly in North: 3 events over 9 minutes from 2 devices (fire, weapon). 2 weapons detected. Peak crowd of 14 people.")
	gt.Equal(t, agent.Summarize(model.AgentAnomaly, g, model.RunModeCron), got)
}

func TestSummarizeCorrelation(t *testing.T) {
	a := newEvent("a", 0, region("North"), identical)
	b := newEvent("b", 5*time.Minute, region("North"), identical)
	c := newEvent("c", 15*time.Minute, region("North"), identical)

	g := &cluster.Group{
		Kind:             cluster.KindCluster,
		Events:           []*model.Event{a, b, c},
		Centroid:         a,
		Start:            a.Timestamp,
		End:              c.Timestamp,
		AvgSimilarity:    1,
		SharedAttributes: []string{"plate:abc-123", "vehicle:red sedan"},
	}

	got := agent.Summarize(model.AgentCorrelation, g, model.RunModeManual)
	gt.Equal(t, got, "Correlated 3 events from 3 devices in 1 region sharing plate:abc-123, vehicle:red sedan over 15 minutes (avg similarity 1.00).")
}

func TestSummarizeTimeline(t *testing.T) {
	a := newEvent("a", 0, region("East"), plates("XYZ-9"))
	b := newEvent("b", 30*time.Second, region("West"), plates("XYZ-9"))

	g := &cluster.Group{
		Kind:          cluster.KindChain,
		Key:           "plate:xyz-9",
		Events:        []*model.Event{a, b},
		Start:         a.Timestamp,
		End:           b.Timestamp,
		AvgSimilarity: 0.4,
	}

	got := agent.Summarize(model.AgentTimeline, g, model.RunModeContext)
	gt.Equal(t, got, "Timeline of 2 events over 1 minute across 2 devices following plate:xyz-9 through East, West (avg similarity 0.40). Triggered by a single event in context mode.")
}

func TestSummarizeNoGroup(t *testing.T) {
	gt.Equal(t, agent.Summarize(model.AgentAnomaly, nil, model.RunModeCron), "Anomaly agent found no qualifying group.")
	gt.Equal(t, agent.Summarize(model.AgentTimeline, &cluster.Group{}, model.RunModeCron), "Timeline agent found no qualifying group.")
}
