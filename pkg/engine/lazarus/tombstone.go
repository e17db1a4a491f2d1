// Package lazarus keeps a copy of every resource's last known attributes
// before it is deleted or terminated.
package lazarus

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/DrSkyle/cloudsweep/pkg/engine"
	"github.com/DrSkyle/cloudsweep/pkg/storage"
)

// Tombstone represents the serialized "Soul" (Configuration) of a resource before deletion.
type Tombstone struct {
	ResourceID   string         `json:"resource_id"`
	ResourceType string         `json:"resource_type"`
	Action       string         `json:"action"`
	Timestamp    int64          `json:"timestamp"`
	Region       string         `json:"region,omitempty"`
	Soul         map[string]any `json:"soul"`
}

// Yard writes tombstones into a blob store, one JSON document per resource.
type Yard struct {
	Store  storage.BlobStore
	Region string
	Now    func() time.Time
}

func NewYard(store storage.BlobStore, region string) *Yard {
	return &Yard{Store: store, Region: region, Now: time.Now}
}

// Entry addresses one tombstone. Bucket is set for S3 objects, whose keys
// are only unique within their bucket.
type Entry struct {
	Kind   string
	Bucket string
	ID     string
}

// EntryFor is the address rec is buried under.
func EntryFor(rec engine.ResourceRecord) Entry {
	return Entry{Kind: rec.Kind, Bucket: rec.String("bucket"), ID: rec.ID}
}

// Ref is the printable form: kind, bucket when present, then the ID.
func (e Entry) Ref() string {
	if e.Bucket != "" {
		return e.Kind + "/" + e.Bucket + "/" + e.ID
	}
	return e.Kind + "/" + e.ID
}

// Key is the store key. Every part is escaped into its own path segment
// since IDs may contain '/'.
func (e Entry) Key() string {
	parts := []string{url.PathEscape(e.Kind)}
	if e.Bucket != "" {
		parts = append(parts, url.PathEscape(e.Bucket))
	}
	return strings.Join(append(parts, url.PathEscape(e.ID)+".json"), "/")
}

func parseKey(key string) (Entry, bool) {
	key, ok := strings.CutSuffix(key, ".json")
	if !ok {
		return Entry{}, false
	}
	parts := strings.Split(key, "/")
	for i, p := range parts {
		v, err := url.PathUnescape(p)
		if err != nil {
			return Entry{}, false
		}
		parts[i] = v
	}
	switch len(parts) {
	case 2:
		return Entry{Kind: parts[0], ID: parts[1]}, true
	case 3:
		return Entry{Kind: parts[0], Bucket: parts[1], ID: parts[2]}, true
	}
	return Entry{}, false
}

// Bury implements engine.Tombstoner.
func (y *Yard) Bury(ctx context.Context, rec engine.ResourceRecord, kind engine.ActionKind) error {
	now := time.Now
	if y.Now != nil {
		now = y.Now
	}
	t := &Tombstone{
		ResourceID:   rec.ID,
		ResourceType: rec.Kind,
		Action:       kind.String(),
		Timestamp:    now().Unix(),
		Region:       y.Region,
		Soul:         rec.Attributes(),
	}
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize tombstone: %w", err)
	}
	return y.Store.Put(ctx, EntryFor(rec).Key(), data)
}

// Load reads one tombstone.
func (y *Yard) Load(ctx context.Context, e Entry) (*Tombstone, error) {
	data, err := y.Store.Get(ctx, e.Key())
	if err != nil {
		return nil, err
	}
	var t Tombstone
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse tombstone: %w", err)
	}
	return &t, nil
}

// List returns every tombstone address in the store.
func (y *Yard) List(ctx context.Context) ([]Entry, error) {
	keys, err := y.Store.List(ctx, "")
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(keys))
	for _, k := range keys {
		if e, ok := parseKey(k); ok {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

// Find loads the tombstone named by a Ref, or by a bare resource ID when only
// one tombstone carries it.
func (y *Yard) Find(ctx context.Context, name string) (*Tombstone, error) {
	entries, err := y.List(ctx)
	if err != nil {
		return nil, err
	}
	var matches []Entry
	for _, e := range entries {
		if e.Ref() == name {
			return y.Load(ctx, e)
		}
		if e.ID == name {
			matches = append(matches, e)
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%s: %w", name, storage.ErrNotFound)
	case 1:
		return y.Load(ctx, matches[0])
	}
	refs := make([]string, len(matches))
	for i, e := range matches {
		refs[i] = e.Ref()
	}
	return nil, engine.Configf("resource-id", "%s matches %s; pass one of them", name, strings.Join(refs, ", "))
}
