package domain

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Ref points at a directory entity (destination, place, hotel, airport).
// Payloads carry bare ids while records returned by the deals API carry
// populated objects; a Ref is either Unresolved(id) or Resolved(id, name).
type Ref struct {
	id       string
	name     string
	resolved bool
}

func Unresolved(id string) Ref { return Ref{id: strings.TrimSpace(id)} }

func Resolved(id, name string) Ref {
	return Ref{id: strings.TrimSpace(id), name: name, resolved: true}
}

func (r Ref) ID() string       { return r.id }
func (r Ref) IsZero() bool     { return r.id == "" }
func (r Ref) IsResolved() bool { return r.resolved }

// DisplayName returns the populated name, if any.
func (r Ref) DisplayName() (string, bool) {
	if !r.resolved || r.name == "" {
		return "", false
	}
	return r.name, true
}

// Same compares by resolved id, never by population.
func (r Ref) Same(o Ref) bool { return r.id == o.id }

func (r Ref) String() string { return r.id }

// MarshalJSON always emits the bare id.
func (r Ref) MarshalJSON() ([]byte, error) { return json.Marshal(r.id) }

func (r *Ref) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*r = RefFrom(v)
	return nil
}

// RefFrom normalizes a bare id, a populated object or (defensively) an array
// of either into a Ref. Anything unrecognized yields the zero Ref.
func RefFrom(v any) Ref {
	switch t := v.(type) {
	case nil:
		return Ref{}
	case Ref:
		return t
	case *Ref:
		if t == nil {
			return Ref{}
		}
		return *t
	case string:
		return Unresolved(t)
	case json.Number:
		return Unresolved(t.String())
	case float64:
		return Unresolved(strconv.FormatFloat(t, 'f', -1, 64))
	case int:
		return Unresolved(strconv.Itoa(t))
	case int64:
		return Unresolved(strconv.FormatInt(t, 10))
	case map[string]any:
		id := idOf(t["_id"])
		if id == "" {
			id = idOf(t["id"])
		}
		if id == "" {
			return Ref{}
		}
		if name, ok := t["name"].(string); ok && strings.TrimSpace(name) != "" {
			return Resolved(id, strings.TrimSpace(name))
		}
		return Unresolved(id)
	case []any:
		for _, it := range t {
			if r := RefFrom(it); !r.IsZero() {
				return r
			}
		}
	case []Ref:
		for _, r := range t {
			if !r.IsZero() {
				return r
			}
		}
	case []string:
		for _, s := range t {
			if r := Unresolved(s); !r.IsZero() {
				return r
			}
		}
	}
	return Ref{}
}

// RefsFrom normalizes a list-ish value. A scalar becomes a one-element list;
// zero refs are dropped.
func RefsFrom(v any) []Ref {
	var out []Ref
	add := func(r Ref) {
		if !r.IsZero() {
			out = append(out, r)
		}
	}
	switch t := v.(type) {
	case nil:
	case []Ref:
		for _, r := range t {
			add(r)
		}
	case []string:
		for _, s := range t {
			add(Unresolved(s))
		}
	case []any:
		for _, it := range t {
			add(RefFrom(it))
		}
	default:
		add(RefFrom(t))
	}
	return out
}

// RefIDs returns the bare ids of refs.
func RefIDs(refs []Ref) []string {
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		out = append(out, r.id)
	}
	return out
}

// idOf handles string / numeric ids and mongo style {"$oid": "..."}.
func idOf(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case map[string]any:
		return idOf(t["$oid"])
	}
	return ""
}
