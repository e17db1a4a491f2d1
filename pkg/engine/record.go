package engine

import (
	"fmt"
	"time"
)

// Well-known attribute keys shared by the AWS listers and the predicates.
const (
	AttrStatus     = "status"
	AttrCreatedAt  = "createdAt"
	AttrCoreCount  = "coreCount"
	AttrCIDRRanges = "cidrRanges"
	AttrVersion    = "version"
	AttrTags       = "tags"
	AttrSize       = "size"
	AttrName       = "name"
	AttrRegion     = "region"
)

// ResourceRecord is a snapshot of one provider resource taken at listing time.
// The attribute map is private; filters read it through the accessors.
type ResourceRecord struct {
	ID    string
	Kind  string
	attrs map[string]any
}

// NewRecord copies attrs so later changes by the caller are not observed.
func NewRecord(id, kind string, attrs map[string]any) ResourceRecord {
	cp := make(map[string]any, len(attrs))
	for k, v := range attrs {
		if tags, ok := v.(map[string]string); ok {
			tcp := make(map[string]string, len(tags))
			for tk, tv := range tags {
				tcp[tk] = tv
			}
			v = tcp
		}
		if list, ok := v.([]string); ok {
			v = append([]string(nil), list...)
		}
		cp[k] = v
	}
	return ResourceRecord{ID: id, Kind: kind, attrs: cp}
}

// Attr returns the raw attribute value.
func (r ResourceRecord) Attr(key string) (any, bool) {
	v, ok := r.attrs[key]
	return v, ok
}

// Keys lists the attribute names present on the record.
func (r ResourceRecord) Keys() []string {
	keys := make([]string, 0, len(r.attrs))
	for k := range r.attrs {
		keys = append(keys, k)
	}
	return keys
}

// Attributes returns a copy of the attribute map.
func (r ResourceRecord) Attributes() map[string]any {
	return NewRecord(r.ID, r.Kind, r.attrs).attrs
}

func (r ResourceRecord) String(key string) string {
	switch v := r.attrs[key].(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

func (r ResourceRecord) Strings(key string) []string {
	if v, ok := r.attrs[key].([]string); ok {
		return append([]string(nil), v...)
	}
	return nil
}

// Int reports the attribute as int64 for any of the integer types the SDK uses.
func (r ResourceRecord) Int(key string) (int64, bool) {
	switch v := r.attrs[key].(type) {
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case *int32:
		if v == nil {
			return 0, false
		}
		return int64(*v), true
	case *int64:
		if v == nil {
			return 0, false
		}
		return *v, true
	}
	return 0, false
}

func (r ResourceRecord) Time(key string) (time.Time, bool) {
	switch v := r.attrs[key].(type) {
	case time.Time:
		return v, !v.IsZero()
	case *time.Time:
		if v == nil || v.IsZero() {
			return time.Time{}, false
		}
		return *v, true
	}
	return time.Time{}, false
}

func (r ResourceRecord) Tags() map[string]string {
	tags, _ := r.attrs[AttrTags].(map[string]string)
	out := make(map[string]string, len(tags))
	for k, v := range tags {
		out[k] = v
	}
	return out
}

// Candidate is a record selected for an action, with the reason it matched.
type Candidate struct {
	Record ResourceRecord
	Reason string
}
