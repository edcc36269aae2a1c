package audit

import "time"

// Entry is a single row of the audit trail.
type Entry struct {
	At        time.Time
	ActorID   int64
	ActorName string
	Action    string
	Entity    string
	EntityID  string
	Meta      map[string]any
}

// Filters narrows the audit timeline.
type Filters struct {
	From     time.Time
	To       time.Time
	Actor    string
	Entity   string
	Action   string
	Page     int
	PageSize int
}

// PagingInfo carries cursor-less paging metadata.
type PagingInfo struct {
	Page     int
	PageSize int
	HasNext  bool
	PrevPage int
	NextPage int
}

// Result bundles timeline rows with paging info.
type Result struct {
	Rows   []Entry
	Paging PagingInfo
}
