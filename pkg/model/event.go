package model

import (
	"strings"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

var (
	ErrInvalidAgentType = goerr.New("invalid agent type")
)

type EventID string

// AgentType identifies one of the discovery agents
type AgentType string

const (
	AgentTimeline    AgentType = "timeline"
	AgentCorrelation AgentType = "correlation"
	AgentAnomaly     AgentType = "anomaly"
)

// AgentTypes returns all agent types in execution order
func AgentTypes() []AgentType {
	return []AgentType{AgentTimeline, AgentCorrelation, AgentAnomaly}
}

// Validate checks if the agent type is known
func (a AgentType) Validate() error {
	switch a {
	case AgentTimeline, AgentCorrelation, AgentAnomaly:
		return nil
	default:
		return goerr.Wrap(ErrInvalidAgentType, "unknown agent type", goerr.V("agent_type", a))
	}
}

// GroupID is the tag value written to every event of a winning group
type GroupID string

// NewGroupID generates a new unique GroupID prefixed by the agent type
func NewGroupID(agentType AgentType) GroupID {
	return GroupID(string(agentType) + "-" + uuid.New().String())
}

// Event is an AI-annotated surveillance observation. The pipeline never mutates it.
type Event struct {
	ID            EventID  `json:"id"`
	SourceEventID string   `json:"source_event_id,omitempty"`
	Timestamp     int64    `json:"timestamp"` // epoch milliseconds
	DeviceID      string   `json:"device_id"`
	Region        string   `json:"region,omitempty"`
	Latitude      *float64 `json:"latitude,omitempty"`
	Longitude     *float64 `json:"longitude,omitempty"`
	ImageURL      string   `json:"image_url,omitempty"`

	Tags           []string `json:"tags,omitempty"`
	Objects        []string `json:"objects,omitempty"`
	Weapons        []string `json:"weapons,omitempty"`
	PeopleCount    int      `json:"people_count,omitempty"`
	Vehicles       []string `json:"vehicles,omitempty"`
	LicensePlates  []string `json:"license_plates,omitempty"`
	ClothingColors []string `json:"clothing_colors,omitempty"`
	Caption        string   `json:"caption,omitempty"`

	AgentTags map[AgentType][]GroupID `json:"agent_tags,omitempty"`
	// Tagged mirrors len(AgentTags[type]) > 0 so the store can filter on it
	Tagged map[AgentType]bool `json:"tagged,omitempty"`
}

// Validate checks required fields of an event
func (e *Event) Validate() error {
	if e.ID == "" {
		return goerr.New("event id is empty")
	}
	if e.Timestamp <= 0 {
		return goerr.New("event timestamp is not set", goerr.V("event_id", e.ID))
	}
	return nil
}

// RegionOrUnknown returns the region name, with events lacking one grouped under "Unknown"
func (e *Event) RegionOrUnknown() string {
	if r := strings.TrimSpace(e.Region); r != "" {
		return r
	}
	return UnknownRegion
}

// HasTag reports whether the event carries at least one tag of the agent type
func (e *Event) HasTag(agentType AgentType) bool {
	return len(e.AgentTags[agentType]) > 0
}

const UnknownRegion = "Unknown"
