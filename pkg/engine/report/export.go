package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/DrSkyle/cloudsweep/pkg/engine"
	"github.com/DrSkyle/cloudsweep/pkg/storage"
	"gopkg.in/yaml.v3"
)

// Format is a report encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts json, csv, yaml and yml. An empty string falls back to
// the extension of target, then to JSON.
func ParseFormat(s, target string) (Format, error) {
	if s == "" {
		s = strings.TrimPrefix(path.Ext(target), ".")
		if s == "" {
			return FormatJSON, nil
		}
	}
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", engine.Configf("report-format", "unknown format %q (want json, csv or yaml)", s)
}

// redacted detail keys never leave the process through a report.
var redacted = map[string]bool{"secretAccessKey": true}

// Document is the exported form of a BatchSummary.
type Document struct {
	Job       string     `json:"job" yaml:"job"`
	DryRun    bool       `json:"dry_run" yaml:"dry_run"`
	Status    string     `json:"status" yaml:"status"`
	Listed    int        `json:"listed" yaml:"listed"`
	Applied   int        `json:"applied" yaml:"applied"`
	Simulated int        `json:"simulated" yaml:"simulated"`
	Failed    int        `json:"failed" yaml:"failed"`
	Skipped   int        `json:"skipped" yaml:"skipped"`
	Outcomes  []Item     `json:"outcomes" yaml:"outcomes"`
	Skips     []SkipItem `json:"skips" yaml:"skips"`
}

type Item struct {
	ID      string            `json:"id" yaml:"id"`
	Kind    string            `json:"kind" yaml:"kind"`
	Action  string            `json:"action" yaml:"action"`
	Status  string            `json:"status" yaml:"status"`
	Reason  string            `json:"reason,omitempty" yaml:"reason,omitempty"`
	Message string            `json:"message,omitempty" yaml:"message,omitempty"`
	Ref     string            `json:"ref,omitempty" yaml:"ref,omitempty"`
	Code    string            `json:"error_code,omitempty" yaml:"error_code,omitempty"`
	Details map[string]string `json:"details,omitempty" yaml:"details,omitempty"`
}

type SkipItem struct {
	ID     string `json:"id" yaml:"id"`
	Reason string `json:"reason" yaml:"reason"`
}

// NewDocument converts s, redacting secrets in outcome details.
func NewDocument(s *engine.BatchSummary) Document {
	doc := Document{
		Job:       s.Job,
		DryRun:    s.DryRun,
		Status:    s.Status.String(),
		Listed:    s.Listed,
		Applied:   s.Applied,
		Simulated: s.Simulated,
		Failed:    s.Failed,
		Skipped:   s.Skipped,
		Outcomes:  make([]Item, 0, len(s.Outcomes)),
		Skips:     make([]SkipItem, 0, len(s.Skips)),
	}
	for _, o := range s.Outcomes {
		doc.Outcomes = append(doc.Outcomes, newItem(o))
	}
	for _, sk := range s.Skips {
		doc.Skips = append(doc.Skips, SkipItem{ID: sk.ID, Reason: sk.Reason})
	}
	return doc
}

func newItem(o engine.ActionOutcome) Item {
	it := Item{
		ID:      o.ID,
		Kind:    o.Kind,
		Action:  o.Action.String(),
		Status:  o.Status.String(),
		Reason:  o.Reason,
		Message: o.Message,
		Ref:     o.Ref,
	}
	var ie *engine.ItemError
	if errors.As(o.Err, &ie) {
		it.Code = ie.Code
	}
	if len(o.Details) > 0 {
		it.Details = make(map[string]string, len(o.Details))
		for k, v := range o.Details {
			if redacted[k] {
				v = "[REDACTED]"
			}
			it.Details[k] = v
		}
	}
	return it
}

// Write encodes s to w.
func Write(w io.Writer, s *engine.BatchSummary, f Format) error {
	doc := NewDocument(s)
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	case FormatCSV:
		return writeCSV(w, doc)
	}
	return engine.Configf("report-format", "unknown format %q", f)
}

func writeCSV(w io.Writer, doc Document) error {
	cw := csv.NewWriter(w)
	header := []string{
		"ResourceID",
		"Kind",
		"Action",
		"Status",
		"Reason",
		"Ref",
		"ErrorCode",
		"Message",
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, it := range doc.Outcomes {
		if err := cw.Write([]string{it.ID, it.Kind, it.Action, it.Status, it.Reason, it.Ref, it.Code, it.Message}); err != nil {
			return err
		}
	}
	for _, sk := range doc.Skips {
		if err := cw.Write([]string{sk.ID, "", "", "skipped", sk.Reason, "", "", ""}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Save writes the report to target, a local path or s3://bucket/key.
func Save(ctx context.Context, target string, client storage.S3API, s *engine.BatchSummary, f Format) error {
	var buf bytes.Buffer
	if err := Write(&buf, s, f); err != nil {
		return err
	}
	if bucket, key, ok := storage.ParseS3URI(target); ok {
		if key == "" {
			return engine.Configf("report", "%s has no object key", target)
		}
		store := &storage.S3Store{Client: client, Bucket: bucket}
		return store.Put(ctx, key, buf.Bytes())
	}
	dir, file := path.Split(strings.ReplaceAll(target, "\\", "/"))
	if dir == "" {
		dir = "."
	}
	if err := storage.NewLocalStore(dir).Put(ctx, file, buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
