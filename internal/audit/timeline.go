package audit

import "time"

// TimelineFilters narrows the audit timeline.
type TimelineFilters struct {
	From     time.Time
	To       time.Time
	Actor    string
	Entity   string
	Action   string
	Page     int
	PageSize int
}

// TimelineRow is one recorded ledger or master-data change.
type TimelineRow struct {
	At       time.Time      `json:"at"`
	Actor    string         `json:"actor,omitempty"`
	Action   string         `json:"action"`
	Entity   string         `json:"entity"`
	EntityID string         `json:"entity_id"`
	Meta     map[string]any `json:"meta,omitempty"`
}

// PagingInfo holds simple page navigation.
type PagingInfo struct {
	Page     int  `json:"page"`
	HasNext  bool `json:"has_next"`
	PageSize int  `json:"page_size"`
	PrevPage int  `json:"prev_page,omitempty"`
	NextPage int  `json:"next_page,omitempty"`
}

// Window is a filtered slice of the timeline, newest first.
type Window struct {
	From   time.Time
	To     time.Time
	Actor  string
	Entity string
	Action string
	Offset int
	Limit  int
}

func (w Window) matches(row TimelineRow) bool {
	if !w.From.IsZero() && row.At.Before(w.From) {
		return false
	}
	if !w.To.IsZero() && row.At.After(w.To) {
		return false
	}
	if w.Actor != "" && row.Actor != w.Actor {
		return false
	}
	if w.Entity != "" && row.Entity != w.Entity {
		return false
	}
	return w.Action == "" || row.Action == w.Action
}
