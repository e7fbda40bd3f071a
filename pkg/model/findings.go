package model

// Findings is the structured payload of a run. It is one of TimelineFindings,
// CorrelationFindings or AnomalyFindings.
type Findings interface {
	FindingsOf() AgentType
}

type TimelineFindings struct {
	ChainKey      string
	EventIDs      []EventID
	DeviceIDs     []string
	StartTime     int64
	EndTime       int64
	AvgSimilarity float64
}

func (x *TimelineFindings) FindingsOf() AgentType { return AgentTimeline }

type CorrelationFindings struct {
	CentroidID       EventID
	EventIDs         []EventID
	SharedAttributes []string
	AvgSimilarity    float64
	UniqueSources    int
	UniqueRegions    int
}

func (x *CorrelationFindings) FindingsOf() AgentType { return AgentCorrelation }

type AnomalyFindings struct {
	Region      string
	Severity    string
	Categories  []string
	EventIDs    []EventID
	StartTime   int64
	EndTime     int64
	WeaponCount int
	PeakCrowd   int
}

func (x *AnomalyFindings) FindingsOf() AgentType { return AgentAnomaly }
