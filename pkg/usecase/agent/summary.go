package agent

import (
	"fmt"
	"math"
	"strings"

	"github.com/m-mizutani/argus/pkg/cluster"
	"github.com/m-mizutani/argus/pkg/model"
)

// Summarize renders a group as a short executive summary. The output depends only on
// its arguments.
func Summarize(agentType model.AgentType, g *cluster.Group, mode model.RunMode) string {
	if g == nil || g.Size() == 0 {
		return fmt.Sprintf("%s agent found no qualifying group.", title(string(agentType)))
	}

	var b strings.Builder
	switch agentType {
	case model.AgentTimeline:
		fmt.Fprintf(&b, "Timeline of %s over %s across %s following %s",
			plural(g.Size(), "event"), minutes(g), plural(g.UniqueSources(), "device"), g.Key)
		if regions := g.Regions(); len(regions) > 0 {
			fmt.Fprintf(&b, " through %s", strings.Join(regions, ", "))
		}
		fmt.Fprintf(&b, " (avg similarity %.2f).", g.AvgSimilarity)

	case model.AgentCorrelation:
		fmt.Fprintf(&b, "Correlated %s from %s in %s",
			plural(g.Size(), "event"), plural(g.UniqueSources(), "device"), plural(g.UniqueRegions(), "region"))
		if len(g.SharedAttributes) > 0 {
			fmt.Fprintf(&b, " sharing %s", strings.Join(g.SharedAttributes, ", "))
		}
		fmt.Fprintf(&b, " over %s (avg similarity %.2f).", minutes(g), g.AvgSimilarity)

	case model.AgentAnomaly:
		fmt.Fprintf(&b, "%s anomaly in %s: %s over %s from %s",
			title(g.Severity.String()), g.Region, plural(g.Size(), "event"), minutes(g), plural(g.UniqueSources(), "device"))
		if len(g.Categories) > 0 {
			cats := make([]string, len(g.Categories))
			for i, c := range g.Categories {
				cats[i] = string(c)
			}
			fmt.Fprintf(&b, " (%s)", strings.Join(cats, ", "))
		}
		b.WriteString(".")
		if n := weaponCount(g); n > 0 {
			fmt.Fprintf(&b, " %s detected.", plural(n, "weapon"))
		}
		if n := peakCrowd(g); n > 0 {
			fmt.Fprintf(&b, " Peak crowd of %s.", plural(n, "person"))
		}

	default:
		fmt.Fprintf(&b, "Group of %s over %s.", plural(g.Size(), "event"), minutes(g))
	}

	if mode == model.RunModeContext {
		b.WriteString(" Triggered by a single event in context mode.")
	}
	return b.String()
}

func minutes(g *cluster.Group) string {
	return plural(int(math.Round(g.Span().Minutes())), "minute")
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	if noun == "person" {
		return fmt.Sprintf("%d people", n)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// weaponCount is the total number of weapon labels across the group
func weaponCount(g *cluster.Group) int {
	n := 0
	for _, e := range g.Events {
		n += len(e.Weapons)
	}
	return n
}

func peakCrowd(g *cluster.Group) int {
	peak := 0
	for _, e := range g.Events {
		if e.PeopleCount > peak {
			peak = e.PeopleCount
		}
	}
	return peak
}
