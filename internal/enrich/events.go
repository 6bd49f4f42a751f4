package enrich

import "time"

// EventType names a campaign progress event.
type EventType string

const (
	EventStarted       EventType = "started"
	EventUpdate        EventType = "update"
	EventLeadsScraped  EventType = "leads_scraped"
	EventLeadProcessed EventType = "lead_processed"
	EventError         EventType = "error"
	EventCompleted     EventType = "completed"
)

// Event is a progress notification for a running campaign.
type Event struct {
	Type       EventType `json:"type"`
	CampaignID int64     `json:"campaign_id"`
	LeadID     int64     `json:"lead_id,omitempty"`
	Message    string    `json:"message,omitempty"`
	Count      int       `json:"count,omitempty"`
	Status     string    `json:"status,omitempty"`
	Time       time.Time `json:"time"`
}

// EventSink receives progress events. Publish must not block.
type EventSink interface {
	Publish(Event)
}

// SinkFunc adapts a function to EventSink.
type SinkFunc func(Event)

func (f SinkFunc) Publish(e Event) { f(e) }

// Discard drops every event.
var Discard EventSink = SinkFunc(func(Event) {})

// MultiSink fans events out to several sinks in order.
type MultiSink []EventSink

func (m MultiSink) Publish(e Event) {
	for _, s := range m {
		s.Publish(e)
	}
}
