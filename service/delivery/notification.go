package delivery

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Notification is the JSON document the service worker receives.
type Notification struct {
	ID    string         `json:"id"`
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Icon  string         `json:"icon,omitempty"`
	Badge string         `json:"badge,omitempty"`
	Tag   string         `json:"tag,omitempty"`
	Data  map[string]any `json:"data,omitempty"`

	// Urgency is sent as the Web Push Urgency header, not in the payload.
	Urgency Urgency `json:"-"`
}

func (n Notification) Encode() ([]byte, error) {
	payload, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal notification: %w", err)
	}
	return payload, nil
}

type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyNormal Urgency = "normal"
	UrgencyHigh   Urgency = "high"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

type priorityStyle struct {
	marker  string
	urgency Urgency
}

var priorityStyles = map[Priority]priorityStyle{
	PriorityLow:    {marker: "🟢", urgency: UrgencyLow},
	PriorityNormal: {marker: "🔵", urgency: UrgencyNormal},
	PriorityMedium: {marker: "🟡", urgency: UrgencyNormal},
	PriorityHigh:   {marker: "🔴", urgency: UrgencyHigh},
	PriorityUrgent: {marker: "🚨", urgency: UrgencyHigh},
}

func (p Priority) style() priorityStyle {
	if s, ok := priorityStyles[p]; ok {
		return s
	}
	return priorityStyles[PriorityNormal]
}

// Marker is the emoji prefixed to titles; unknown priorities look like normal.
func (p Priority) Marker() string {
	return p.style().marker
}

func (p Priority) Urgency() Urgency {
	return p.style().urgency
}

// leadMarker keeps the three-level scale used for lead alerts, where anything
// that is not high or medium counts as low.
func leadMarker(p Priority) string {
	switch p {
	case PriorityHigh:
		return priorityStyles[PriorityHigh].marker
	case PriorityMedium:
		return priorityStyles[PriorityMedium].marker
	default:
		return priorityStyles[PriorityLow].marker
	}
}

// Defaults fill in presentation fields the caller left empty.
type Defaults struct {
	Icon  string
	Badge string
	Tag   string
	URL   string
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func newID() string {
	return uuid.NewString()
}

// Simple builds the payload for the plain send and broadcast endpoints.
func Simple(d Defaults, title, body, icon, badge, tag string) Notification {
	return Notification{
		ID:      newID(),
		Title:   title,
		Body:    body,
		Icon:    orDefault(icon, d.Icon),
		Badge:   orDefault(badge, d.Badge),
		Tag:     orDefault(tag, d.Tag),
		Data:    map[string]any{"url": d.URL},
		Urgency: UrgencyNormal,
	}
}

type UniversalOptions struct {
	Title    string
	Body     string
	Icon     string
	Badge    string
	Tag      string
	URL      string
	Type     string
	Priority Priority
	Data     map[string]any
}

// Universal builds the payload for /notify. Caller data is merged last and
// may override the standard data keys.
func Universal(d Defaults, opts UniversalOptions, now time.Time) Notification {
	priority := opts.Priority
	if priority == "" {
		priority = PriorityNormal
	}

	data := map[string]any{
		"url":       orDefault(opts.URL, d.URL),
		"type":      orDefault(opts.Type, "general"),
		"priority":  string(priority),
		"timestamp": now.UTC().Format(time.RFC3339Nano),
	}
	for k, v := range opts.Data {
		data[k] = v
	}

	return Notification{
		ID:      newID(),
		Title:   fmt.Sprintf("%s %s", priority.Marker(), opts.Title),
		Body:    opts.Body,
		Icon:    orDefault(opts.Icon, d.Icon),
		Badge:   orDefault(opts.Badge, d.Badge),
		Tag:     orDefault(opts.Tag, d.Tag),
		Data:    data,
		Urgency: priority.Urgency(),
	}
}

// NewLead builds a lead alert. data.priority is only present when the caller
// gave one.
func NewLead(d Defaults, clientName, yachtName string, priority Priority) Notification {
	data := map[string]any{
		"url":        d.URL,
		"type":       "new_lead",
		"clientName": clientName,
		"yachtName":  yachtName,
	}
	if priority != "" {
		data["priority"] = string(priority)
	}

	return Notification{
		ID:      newID(),
		Title:   fmt.Sprintf("%s New Lead: %s", leadMarker(priority), clientName),
		Body:    fmt.Sprintf("Interested in: %s", yachtName),
		Icon:    d.Icon,
		Badge:   d.Badge,
		Tag:     "new-lead",
		Data:    data,
		Urgency: priority.Urgency(),
	}
}

func Test(d Defaults) Notification {
	return Notification{
		ID:      newID(),
		Title:   "✓ Test Notification",
		Body:    "Push notifications are working perfectly!",
		Icon:    d.Icon,
		Badge:   d.Badge,
		Tag:     "test-notification",
		Urgency: UrgencyNormal,
	}
}
