package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ActionKind names a maintenance operation.
type ActionKind int

const (
	KindDelete ActionKind = iota
	KindStop
	KindStart
	KindReboot
	KindTerminate
	KindTag
	KindCreateSnapshot
	KindCreateImage
	KindRotateCredential
	KindCopyObject
	KindUpdateCode
	KindUpsertRecord
	KindPutAlarm
	KindExport
	KindSetRetention
	KindReport
)

var kindNames = map[ActionKind]string{
	KindDelete:           "delete",
	KindStop:             "stop",
	KindStart:            "start",
	KindReboot:           "reboot",
	KindTerminate:        "terminate",
	KindTag:              "tag",
	KindCreateSnapshot:   "create-snapshot",
	KindCreateImage:      "create-image",
	KindRotateCredential: "rotate-credential",
	KindCopyObject:       "copy-object",
	KindUpdateCode:       "update-code",
	KindUpsertRecord:     "upsert-record",
	KindPutAlarm:         "put-alarm",
	KindExport:           "export",
	KindSetRetention:     "set-retention",
	KindReport:           "report",
}

func (k ActionKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("ActionKind(%d)", int(k))
}

// Destructive reports whether the kind removes the resource.
func (k ActionKind) Destructive() bool {
	return k == KindDelete || k == KindTerminate
}

// Result is what a provider returns after a successful mutation.
type Result struct {
	// Ref identifies what the provider created or changed (snapshot ID, change ID, ...).
	Ref     string
	Details map[string]string
}

// Provider capabilities. Each AWS binding implements the subset it supports.
type (
	Deleter interface {
		Delete(ctx context.Context, rec ResourceRecord) (Result, error)
	}
	Stopper interface {
		Stop(ctx context.Context, rec ResourceRecord) (Result, error)
	}
	Starter interface {
		Start(ctx context.Context, rec ResourceRecord) (Result, error)
	}
	Rebooter interface {
		Reboot(ctx context.Context, rec ResourceRecord) (Result, error)
	}
	Terminator interface {
		Terminate(ctx context.Context, rec ResourceRecord) (Result, error)
	}
	Tagger interface {
		Tag(ctx context.Context, rec ResourceRecord, tags map[string]string) (Result, error)
	}
	SnapshotCreator interface {
		CreateSnapshot(ctx context.Context, rec ResourceRecord, name string) (Result, error)
	}
	ImageCreator interface {
		CreateImage(ctx context.Context, rec ResourceRecord, name string, noReboot bool) (Result, error)
	}
	CredentialIssuer interface {
		IssueCredential(ctx context.Context, principal ResourceRecord) (Result, error)
	}
	ObjectCopier interface {
		CopyObject(ctx context.Context, rec ResourceRecord, destBucket string) (Result, error)
	}
	CodeUpdater interface {
		UpdateCode(ctx context.Context, rec ResourceRecord, archive []byte) (Result, error)
	}
	RecordUpserter interface {
		UpsertRecord(ctx context.Context, zoneID string, rr DNSRecord) (Result, error)
	}
	AlarmWriter interface {
		PutAlarm(ctx context.Context, spec AlarmSpec) (Result, error)
	}
	Exporter interface {
		Export(ctx context.Context, rec ResourceRecord, bucket, key string) (Result, error)
	}
	RetentionSetter interface {
		SetRetention(ctx context.Context, rec ResourceRecord, days int32) (Result, error)
	}
)

// DNSRecord is a single-value resource record set.
type DNSRecord struct {
	Name  string
	Type  string
	Value string
	TTL   int64
}

// AlarmSpec describes a metric alarm on one dimension.
type AlarmSpec struct {
	Name              string
	Namespace         string
	Metric            string
	Statistic         string
	Comparison        string
	DimensionName     string
	DimensionValue    string
	Threshold         float64
	Period            int32
	EvaluationPeriods int32
	AlarmActions      []string
}

// Action is a mutation bound to the provider capability that performs it.
// The set of variants is closed; every variant lives in this file.
type Action interface {
	Kind() ActionKind
	// Describe renders what the action would do to rec, including every parameter.
	Describe(rec ResourceRecord) string
	apply(ctx context.Context, rec ResourceRecord) (Result, error)
}

var errUnbound = errors.New("no provider capability bound to action")

type Delete struct{ Via Deleter }

func (Delete) Kind() ActionKind { return KindDelete }
func (Delete) Describe(rec ResourceRecord) string {
	return fmt.Sprintf("delete %s %s", rec.Kind, rec.ID)
}
func (a Delete) apply(ctx context.Context, rec ResourceRecord) (Result, error) {
	if a.Via == nil {
		return Result{}, errUnbound
	}
	return a.Via.Delete(ctx, rec)
}

type Stop struct{ Via Stopper }

func (Stop) Kind() ActionKind { return KindStop }
func (Stop) Describe(rec ResourceRecord) string {
	return fmt.Sprintf("stop %s %s", rec.Kind, rec.ID)
}
func (a Stop) apply(ctx context.Context, rec ResourceRecord) (Result, error) {
	if a.Via == nil {
		return Result{}, errUnbound
	}
	return a.Via.Stop(ctx, rec)
}

type Start struct{ Via Starter }

func (Start) Kind() ActionKind { return KindStart }
func (Start) Describe(rec ResourceRecord) string {
	return fmt.Sprintf("start %s %s", rec.Kind, rec.ID)
}
func (a Start) apply(ctx context.Context, rec ResourceRecord) (Result, error) {
	if a.Via == nil {
		return Result{}, errUnbound
	}
	return a.Via.Start(ctx, rec)
}

type Reboot struct{ Via Rebooter }

func (Reboot) Kind() ActionKind { return KindReboot }
func (Reboot) Describe(rec ResourceRecord) string {
	return fmt.Sprintf("reboot %s %s", rec.Kind, rec.ID)
}
func (a Reboot) apply(ctx context.Context, rec ResourceRecord) (Result, error) {
	if a.Via == nil {
		return Result{}, errUnbound
	}
	return a.Via.Reboot(ctx, rec)
}

type Terminate struct{ Via Terminator }

func (Terminate) Kind() ActionKind { return KindTerminate }
func (Terminate) Describe(rec ResourceRecord) string {
	return fmt.Sprintf("terminate %s %s", rec.Kind, rec.ID)
}
func (a Terminate) apply(ctx context.Context, rec ResourceRecord) (Result, error) {
	if a.Via == nil {
		return Result{}, errUnbound
	}
	return a.Via.Terminate(ctx, rec)
}

type Tag struct {
	Tags map[string]string
	Via  Tagger
}

func (Tag) Kind() ActionKind { return KindTag }
func (a Tag) Describe(rec ResourceRecord) string {
	return fmt.Sprintf("tag %s %s with %s", rec.Kind, rec.ID, FormatTags(a.Tags))
}
func (a Tag) apply(ctx context.Context, rec ResourceRecord) (Result, error) {
	if a.Via == nil {
		return Result{}, errUnbound
	}
	return a.Via.Tag(ctx, rec, a.Tags)
}

type CreateSnapshot struct {
	Name string
	Via  SnapshotCreator
}

func (CreateSnapshot) Kind() ActionKind { return KindCreateSnapshot }
func (a CreateSnapshot) Describe(rec ResourceRecord) string {
	return fmt.Sprintf("create snapshot %q of %s %s", a.Name, rec.Kind, rec.ID)
}
func (a CreateSnapshot) apply(ctx context.Context, rec ResourceRecord) (Result, error) {
	if a.Via == nil {
		return Result{}, errUnbound
	}
	return a.Via.CreateSnapshot(ctx, rec, a.Name)
}

type CreateImage struct {
	Name     string
	NoReboot bool
	Via      ImageCreator
}

func (CreateImage) Kind() ActionKind { return KindCreateImage }
func (a CreateImage) Describe(rec ResourceRecord) string {
	return fmt.Sprintf("create image %q from %s (no-reboot=%t)", a.Name, rec.ID, a.NoReboot)
}
func (a CreateImage) apply(ctx context.Context, rec ResourceRecord) (Result, error) {
	if a.Via == nil {
		return Result{}, errUnbound
	}
	return a.Via.CreateImage(ctx, rec, a.Name, a.NoReboot)
}

// RotateCredential issues one new credential for the principal record.
type RotateCredential struct{ Via CredentialIssuer }

func (RotateCredential) Kind() ActionKind { return KindRotateCredential }
func (RotateCredential) Describe(rec ResourceRecord) string {
	return fmt.Sprintf("issue new credential for %s %s", rec.Kind, rec.ID)
}
func (a RotateCredential) apply(ctx context.Context, rec ResourceRecord) (Result, error) {
	if a.Via == nil {
		return Result{}, errUnbound
	}
	return a.Via.IssueCredential(ctx, rec)
}

type CopyObject struct {
	DestBucket string
	Via        ObjectCopier
}

func (CopyObject) Kind() ActionKind { return KindCopyObject }
func (a CopyObject) Describe(rec ResourceRecord) string {
	return fmt.Sprintf("copy %s to s3://%s/%s", rec.ID, a.DestBucket, rec.ID)
}
func (a CopyObject) apply(ctx context.Context, rec ResourceRecord) (Result, error) {
	if a.Via == nil {
		return Result{}, errUnbound
	}
	return a.Via.CopyObject(ctx, rec, a.DestBucket)
}

// UpdateCode replaces a function's code with the archive read from Path.
type UpdateCode struct {
	Path    string
	Archive []byte
	Via     CodeUpdater
}

func (UpdateCode) Kind() ActionKind { return KindUpdateCode }
func (a UpdateCode) Describe(rec ResourceRecord) string {
	return fmt.Sprintf("update code of %s from %s (%d bytes)", rec.ID, a.Path, len(a.Archive))
}
func (a UpdateCode) apply(ctx context.Context, rec ResourceRecord) (Result, error) {
	if a.Via == nil {
		return Result{}, errUnbound
	}
	return a.Via.UpdateCode(ctx, rec, a.Archive)
}

type UpsertRecord struct {
	ZoneID string
	Record DNSRecord
	Via    RecordUpserter
}

func (UpsertRecord) Kind() ActionKind { return KindUpsertRecord }
func (a UpsertRecord) Describe(ResourceRecord) string {
	r := a.Record
	return fmt.Sprintf("upsert %s %s -> %s (ttl %d) in zone %s", r.Type, r.Name, r.Value, r.TTL, a.ZoneID)
}
func (a UpsertRecord) apply(ctx context.Context, _ ResourceRecord) (Result, error) {
	if a.Via == nil {
		return Result{}, errUnbound
	}
	return a.Via.UpsertRecord(ctx, a.ZoneID, a.Record)
}

type PutAlarm struct {
	Spec AlarmSpec
	Via  AlarmWriter
}

func (PutAlarm) Kind() ActionKind { return KindPutAlarm }
func (a PutAlarm) Describe(ResourceRecord) string {
	s := a.Spec
	return fmt.Sprintf("put alarm %s: %s %s/%s %s %.2f over %ds x%d on %s=%s notifying %s",
		s.Name, s.Statistic, s.Namespace, s.Metric, s.Comparison, s.Threshold,
		s.Period, s.EvaluationPeriods, s.DimensionName, s.DimensionValue, strings.Join(s.AlarmActions, ","))
}
func (a PutAlarm) apply(ctx context.Context, _ ResourceRecord) (Result, error) {
	if a.Via == nil {
		return Result{}, errUnbound
	}
	return a.Via.PutAlarm(ctx, a.Spec)
}

// Export writes the record's content to s3://Bucket/Key.
type Export struct {
	Bucket string
	Key    string
	Via    Exporter
}

func (Export) Kind() ActionKind { return KindExport }
func (a Export) Describe(rec ResourceRecord) string {
	return fmt.Sprintf("export %s %s to s3://%s/%s", rec.Kind, rec.ID, a.Bucket, a.Key)
}
func (a Export) apply(ctx context.Context, rec ResourceRecord) (Result, error) {
	if a.Via == nil {
		return Result{}, errUnbound
	}
	return a.Via.Export(ctx, rec, a.Bucket, a.Key)
}

type SetRetention struct {
	Days int32
	Via  RetentionSetter
}

func (SetRetention) Kind() ActionKind { return KindSetRetention }
func (a SetRetention) Describe(rec ResourceRecord) string {
	return fmt.Sprintf("set retention of %s to %d days", rec.ID, a.Days)
}
func (a SetRetention) apply(ctx context.Context, rec ResourceRecord) (Result, error) {
	if a.Via == nil {
		return Result{}, errUnbound
	}
	return a.Via.SetRetention(ctx, rec, a.Days)
}

// Report only records the candidate. It never calls the provider.
type Report struct{}

func (Report) Kind() ActionKind { return KindReport }
func (Report) Describe(rec ResourceRecord) string {
	return fmt.Sprintf("report %s %s", rec.Kind, rec.ID)
}
func (Report) apply(_ context.Context, rec ResourceRecord) (Result, error) {
	return Result{Ref: rec.ID}, nil
}

// FormatTags renders tags as sorted Key=Value pairs.
func FormatTags(tags map[string]string) string {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+tags[k])
	}
	return strings.Join(parts, ",")
}
