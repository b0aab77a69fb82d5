package domain

import (
	"encoding/json"
	"time"
)

// Recording is a stored record. Fields the API does not know about are kept
// in Extra and rendered at the top level next to the known ones.
type Recording struct {
	Seq         int64
	ID          string
	Owner       string
	Date        *time.Time
	Type        string
	Description string
	Extra       map[string]any
	CreatedAt   time.Time
}

// ReservedFields are body keys that never land in Extra.
var ReservedFields = map[string]struct{}{
	"id":          {},
	"_id":         {},
	"owner":       {},
	"date":        {},
	"type":        {},
	"description": {},
	"createdAt":   {},
}

func (r Recording) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Extra)+6)
	for k, v := range r.Extra {
		if _, reserved := ReservedFields[k]; !reserved {
			out[k] = v
		}
	}

	out["id"] = r.ID
	out["owner"] = r.Owner
	out["type"] = r.Type
	out["description"] = r.Description
	if r.Date != nil {
		out["date"] = r.Date.UTC().Format(time.RFC3339Nano)
	} else {
		out["date"] = nil
	}
	if !r.CreatedAt.IsZero() {
		out["createdAt"] = r.CreatedAt.UTC().Format(time.RFC3339Nano)
	}

	return json.Marshal(out)
}

// Filter restricts List and Count to an inclusive date range. A nil bound on
// either side disables the filter.
type Filter struct {
	From *time.Time
	To   *time.Time
}

func (f Filter) Active() bool {
	return f.From != nil && f.To != nil
}
