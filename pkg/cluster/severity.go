package cluster

// Severity is an ordered tier where lower values are more urgent.
// The zero value means the group kind has no severity notion.
type Severity int

const (
	SeverityNone Severity = iota
	SeverityCritical
	SeverityHigh
	SeverityMedium
)

func (s Severity) String() string {
	switch s {
	case SeverityCritical:
		return "critical"
	case SeverityHigh:
		return "high"
	case SeverityMedium:
		return "medium"
	default:
		return "none"
	}
}

func (s Severity) rank() int {
	if s == SeverityNone {
		return int(SeverityMedium) + 1
	}
	return int(s)
}

// Compare returns -1 when s is more urgent than o, 1 when less, 0 when equal
func (s Severity) Compare(o Severity) int {
	switch a, b := s.rank(), o.rank(); {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// severityOf maps the categories present in a group to a tier
func severityOf(categories []Category) Severity {
	has := make(map[Category]bool, len(categories))
	for _, c := range categories {
		has[c] = true
	}

	switch {
	case has[CategoryFire] || has[CategoryWeapon] || has[CategoryViolence]:
		return SeverityCritical
	case has[CategoryAccident] || has[CategoryEmergency] || has[CategoryGathering]:
		return SeverityHigh
	default:
		return SeverityMedium
	}
}
