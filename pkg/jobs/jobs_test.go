package jobs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DrSkyle/cloudsweep/pkg/engine"
	"github.com/DrSkyle/cloudsweep/pkg/engine/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func daysAgo(n int) time.Time { return now.Add(-time.Duration(n) * 24 * time.Hour) }

// fakeCompute records every mutating call; failOn makes the named IDs fail.
type fakeCompute struct {
	volumes, snapshots, instances, statuses, groups []engine.ResourceRecord
	listedStatus                                    string
	calls                                           []string
	failOn                                          map[string]bool
}

func (f *fakeCompute) Volumes(status string) engine.Lister {
	f.listedStatus = status
	return engine.Static(f.volumes...)
}
func (f *fakeCompute) Snapshots() engine.Lister { return engine.Static(f.snapshots...) }
func (f *fakeCompute) Instances(string) engine.Lister { return engine.Static(f.instances...) }
func (f *fakeCompute) InstanceStatuses() engine.Lister { return engine.Static(f.statuses...) }
func (f *fakeCompute) SecurityGroups() engine.Lister { return engine.Static(f.groups...) }

func (f *fakeCompute) do(op string, rec engine.ResourceRecord) (engine.Result, error) {
	f.calls = append(f.calls, op+" "+rec.ID)
	if f.failOn[rec.ID] {
		return engine.Result{}, errors.New("boom")
	}
	return engine.Result{Ref: rec.ID}, nil
}

func (f *fakeCompute) Delete(_ context.Context, r engine.ResourceRecord) (engine.Result, error) {
	return f.do("delete", r)
}
func (f *fakeCompute) Stop(_ context.Context, r engine.ResourceRecord) (engine.Result, error) {
	return f.do("stop", r)
}
func (f *fakeCompute) Start(_ context.Context, r engine.ResourceRecord) (engine.Result, error) {
	return f.do("start", r)
}
func (f *fakeCompute) Reboot(_ context.Context, r engine.ResourceRecord) (engine.Result, error) {
	return f.do("reboot", r)
}
func (f *fakeCompute) Terminate(_ context.Context, r engine.ResourceRecord) (engine.Result, error) {
	return f.do("terminate", r)
}
func (f *fakeCompute) Tag(_ context.Context, r engine.ResourceRecord, tags map[string]string) (engine.Result, error) {
	return f.do("tag "+engine.FormatTags(tags), r)
}
func (f *fakeCompute) CreateImage(_ context.Context, r engine.ResourceRecord, name string, noReboot bool) (engine.Result, error) {
	if !noReboot {
		return engine.Result{}, errors.New("expected NoReboot")
	}
	return f.do("image "+name, r)
}

func rec(id, kind string, attrs map[string]any) engine.ResourceRecord {
	return engine.NewRecord(id, kind, attrs)
}

func newService() *Service {
	return &Service{Runner: engine.NewRunner()}
}

func TestSnapshotsRetention(t *testing.T) {
	ec2 := &fakeCompute{snapshots: []engine.ResourceRecord{
		rec("snap-a", aws.KindSnapshot, map[string]any{engine.AttrCreatedAt: daysAgo(10)}),
		rec("snap-b", aws.KindSnapshot, map[string]any{engine.AttrCreatedAt: daysAgo(31)}),
		rec("snap-c", aws.KindSnapshot, map[string]any{engine.AttrCreatedAt: daysAgo(45)}),
	}}
	svc := newService()
	svc.Compute = ec2

	s, err := svc.Snapshots(context.Background(), Options{RetentionDays: 30, Now: now})
	require.NoError(t, err)
	assert.Equal(t, 2, s.Applied)
	assert.Equal(t, 1, s.Skipped)
	assert.Equal(t, []string{"delete snap-b", "delete snap-c"}, ec2.calls)
}

func TestVolumesDefaultToAvailable(t *testing.T) {
	ec2 := &fakeCompute{volumes: []engine.ResourceRecord{
		rec("vol-1", aws.KindVolume, map[string]any{engine.AttrStatus: "available"}),
		rec("vol-2", aws.KindVolume, map[string]any{engine.AttrStatus: "in-use"}),
	}}
	svc := newService()
	svc.Compute = ec2

	s, err := svc.Volumes(context.Background(), Options{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, "available", ec2.listedStatus)
	assert.Equal(t, 1, s.Simulated)
	assert.Empty(t, ec2.calls)
}

func TestIdleInstancesMiddleFailure(t *testing.T) {
	ec2 := &fakeCompute{
		instances: []engine.ResourceRecord{
			rec("i-1", aws.KindInstance, map[string]any{engine.AttrCoreCount: int32(1)}),
			rec("i-2", aws.KindInstance, map[string]any{engine.AttrCoreCount: int32(2)}),
			rec("i-3", aws.KindInstance, map[string]any{engine.AttrCoreCount: int32(4)}),
			rec("i-big", aws.KindInstance, map[string]any{engine.AttrCoreCount: int32(16)}),
		},
		failOn: map[string]bool{"i-2": true},
	}
	svc := newService()
	svc.Compute = ec2

	s, err := svc.IdleInstances(context.Background(), Options{CoreCountThreshold: 5})
	require.NoError(t, err)
	require.Len(t, s.Outcomes, 3)
	assert.Equal(t, engine.Applied, s.Outcomes[0].Status)
	assert.Equal(t, engine.Failed, s.Outcomes[1].Status)
	assert.Equal(t, engine.Applied, s.Outcomes[2].Status)
	assert.Equal(t, 0, engine.ExitCode(s, err, false))
	assert.Equal(t, 1, engine.ExitCode(s, err, true))
}

func TestUnhealthyInstancesIgnoreCase(t *testing.T) {
	ec2 := &fakeCompute{statuses: []engine.ResourceRecord{
		rec("i-ok", aws.KindInstance, map[string]any{engine.AttrStatus: "OK"}),
		rec("i-bad", aws.KindInstance, map[string]any{engine.AttrStatus: "impaired"}),
		rec("i-none", aws.KindInstance, nil),
	}}
	svc := newService()
	svc.Compute = ec2

	_, err := svc.UnhealthyInstances(context.Background(), Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"reboot i-bad", "reboot i-none"}, ec2.calls)
}

func TestOpenSecurityGroupsReportOnly(t *testing.T) {
	ec2 := &fakeCompute{groups: []engine.ResourceRecord{
		rec("sg-open", aws.KindSecurityGroup, map[string]any{engine.AttrCIDRRanges: []string{"10.0.0.0/8", "0.0.0.0/0"}}),
		rec("sg-closed", aws.KindSecurityGroup, map[string]any{engine.AttrCIDRRanges: []string{"10.0.0.0/8"}}),
	}}
	svc := newService()
	svc.Compute = ec2

	s, err := svc.OpenSecurityGroups(context.Background(), Options{})
	require.NoError(t, err)
	require.Len(t, s.Outcomes, 1)
	assert.Equal(t, "sg-open", s.Outcomes[0].ID)
	assert.Equal(t, engine.KindReport, s.Outcomes[0].Action)
	assert.Empty(t, ec2.calls)
}

func TestTagInstance(t *testing.T) {
	ec2 := &fakeCompute{}
	svc := newService()
	svc.Compute = ec2

	_, err := svc.TagInstance(context.Background(), "i-1", Options{Tags: []string{"Owner=DevOps", "Expr=a=b"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"tag Expr=a=b,Owner=DevOps i-1"}, ec2.calls)
}

func TestTagInstanceRejectsBadTagBeforeAnyCall(t *testing.T) {
	ec2 := &fakeCompute{}
	svc := newService()
	svc.Compute = ec2

	s, err := svc.TagInstance(context.Background(), "i-1", Options{Tags: []string{"Owner"}})
	assert.Nil(t, s)
	assert.ErrorIs(t, err, engine.ErrConfiguration)
	assert.Contains(t, err.Error(), "Invalid tag format")
	assert.Empty(t, ec2.calls)
}

func TestParseInstanceAction(t *testing.T) {
	for in, want := range map[string]InstanceAction{
		"start": InstanceStart, "STOP": InstanceStop, "restart": InstanceRestart, "terminate": InstanceTerminate,
	} {
		got, err := ParseInstanceAction(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseInstanceAction("hibernate")
	assert.ErrorIs(t, err, engine.ErrConfiguration)
}

func TestInstanceRestartReboots(t *testing.T) {
	ec2 := &fakeCompute{}
	svc := newService()
	svc.Compute = ec2

	s, err := svc.Instance(context.Background(), "i-9", InstanceRestart, Options{})
	require.NoError(t, err)
	assert.Equal(t, "instance/restart", s.Job)
	assert.Equal(t, []string{"reboot i-9"}, ec2.calls)
}

func TestCreateAMI(t *testing.T) {
	ec2 := &fakeCompute{}
	svc := newService()
	svc.Compute = ec2

	s, err := svc.CreateAMI(context.Background(), "i-1", "nightly", Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, s.Applied)
	assert.Equal(t, []string{"image nightly i-1"}, ec2.calls)
}

func TestWhereNarrowsSelection(t *testing.T) {
	ec2 := &fakeCompute{volumes: []engine.ResourceRecord{
		rec("vol-keep", aws.KindVolume, map[string]any{engine.AttrStatus: "available", engine.AttrTags: map[string]string{"keep": "true"}}),
		rec("vol-drop", aws.KindVolume, map[string]any{engine.AttrStatus: "available"}),
	}}
	svc := newService()
	svc.Compute = ec2

	_, err := svc.Volumes(context.Background(), Options{Where: `!("keep" in tags)`})
	require.NoError(t, err)
	assert.Equal(t, []string{"delete vol-drop"}, ec2.calls)

	_, err = svc.Volumes(context.Background(), Options{Where: `size +`})
	assert.ErrorIs(t, err, engine.ErrConfiguration)
}

func TestMissingProviderIsConfigError(t *testing.T) {
	_, err := newService().Snapshots(context.Background(), Options{})
	assert.ErrorIs(t, err, engine.ErrConfiguration)
}

type fakeFunctions struct {
	versions []engine.ResourceRecord
	aliased  map[string]bool
	aliasErr error
	deleted  []string
	code     []byte
}

func (f *fakeFunctions) Versions(string) engine.Lister { return engine.Static(f.versions...) }
func (f *fakeFunctions) AliasedVersions(context.Context, string) (map[string]bool, error) {
	return f.aliased, f.aliasErr
}
func (f *fakeFunctions) Delete(_ context.Context, r engine.ResourceRecord) (engine.Result, error) {
	f.deleted = append(f.deleted, r.ID)
	return engine.Result{Ref: r.ID}, nil
}
func (f *fakeFunctions) UpdateCode(_ context.Context, r engine.ResourceRecord, archive []byte) (engine.Result, error) {
	f.code = archive
	return engine.Result{Ref: "arn:" + r.ID}, nil
}

func version(v string) engine.ResourceRecord {
	return rec("fn:"+v, aws.KindFunctionVer, map[string]any{engine.AttrVersion: v, engine.AttrName: "fn"})
}

func TestLambdaVersionsKeepLatestAndAliased(t *testing.T) {
	fns := &fakeFunctions{
		versions: []engine.ResourceRecord{version("$LATEST"), version("1"), version("2"), version("3")},
		aliased:  map[string]bool{"3": true},
	}
	svc := newService()
	svc.Functions = fns

	_, err := svc.LambdaVersions(context.Background(), "fn", false, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"fn:1", "fn:2", "fn:3"}, fns.deleted)

	fns.deleted = nil
	_, err = svc.LambdaVersions(context.Background(), "fn", true, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"fn:1", "fn:2"}, fns.deleted)
}

func TestLambdaAliasFailureIsFatal(t *testing.T) {
	fns := &fakeFunctions{versions: []engine.ResourceRecord{version("1")}, aliasErr: errors.New("throttled")}
	svc := newService()
	svc.Functions = fns

	_, err := svc.LambdaVersions(context.Background(), "fn", true, Options{})
	var lerr *engine.ListingError
	require.ErrorAs(t, err, &lerr)
	assert.Empty(t, fns.deleted)
}

func TestDeployLambdaReadsArchiveFirst(t *testing.T) {
	fns := &fakeFunctions{}
	svc := newService()
	svc.Functions = fns

	_, err := svc.DeployLambda(context.Background(), "fn", filepath.Join(t.TempDir(), "missing.zip"), Options{})
	assert.ErrorIs(t, err, engine.ErrConfiguration)
	assert.Nil(t, fns.code)

	path := filepath.Join(t.TempDir(), "code.zip")
	require.NoError(t, os.WriteFile(path, []byte("PK\x03\x04"), 0o600))
	s, err := svc.DeployLambda(context.Background(), "fn", path, Options{})
	require.NoError(t, err)
	assert.Equal(t, "arn:fn", s.Outcomes[0].Ref)
	assert.Equal(t, []byte("PK\x03\x04"), fns.code)
}

type fakeCredentials struct {
	keys    []engine.ResourceRecord
	failOn  map[string]bool
	deleted []string
	issued  int
}

func (f *fakeCredentials) AccessKeys(string) engine.Lister { return engine.Static(f.keys...) }
func (f *fakeCredentials) Delete(_ context.Context, r engine.ResourceRecord) (engine.Result, error) {
	if f.failOn[r.ID] {
		return engine.Result{}, errors.New("denied")
	}
	f.deleted = append(f.deleted, r.ID)
	return engine.Result{Ref: r.ID}, nil
}
func (f *fakeCredentials) IssueCredential(_ context.Context, p engine.ResourceRecord) (engine.Result, error) {
	f.issued++
	return engine.Result{Ref: "AKIANEW", Details: map[string]string{"user": p.ID, "secretAccessKey": "s"}}, nil
}

func TestRotateKeys(t *testing.T) {
	creds := &fakeCredentials{
		keys: []engine.ResourceRecord{
			rec("AKIA1", aws.KindAccessKey, map[string]any{"user": "alice"}),
			rec("AKIA2", aws.KindAccessKey, map[string]any{"user": "alice"}),
		},
		failOn: map[string]bool{"AKIA1": true},
	}
	svc := newService()
	svc.Credentials = creds

	s, err := svc.RotateKeys(context.Background(), "alice", Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"AKIA2"}, creds.deleted)
	assert.Equal(t, 1, creds.issued)
	assert.Equal(t, 2, s.Applied)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, engine.KindRotateCredential, s.Outcomes[2].Action)
}

func TestRotateKeysWithoutKeysIssuesOne(t *testing.T) {
	creds := &fakeCredentials{}
	svc := newService()
	svc.Credentials = creds

	s, err := svc.RotateKeys(context.Background(), "bob", Options{})
	require.NoError(t, err)
	require.Len(t, s.Outcomes, 1)
	assert.Equal(t, 1, creds.issued)
}

type fakeStore struct {
	objects []engine.ResourceRecord
	copied  []string
	failOn  map[string]bool
}

func (f *fakeStore) Objects(string) engine.Lister { return engine.Static(f.objects...) }
func (f *fakeStore) Delete(_ context.Context, r engine.ResourceRecord) (engine.Result, error) {
	return engine.Result{Ref: r.ID}, nil
}
func (f *fakeStore) CopyObject(_ context.Context, r engine.ResourceRecord, dest string) (engine.Result, error) {
	if f.failOn[r.ID] {
		return engine.Result{}, errors.New("AccessDenied")
	}
	f.copied = append(f.copied, dest+"/"+r.ID)
	return engine.Result{Ref: "s3://" + dest + "/" + r.ID}, nil
}

func TestSyncBucketsIsolatesFailures(t *testing.T) {
	store := &fakeStore{
		objects: []engine.ResourceRecord{rec("a", aws.KindObject, nil), rec("b", aws.KindObject, nil), rec("c", aws.KindObject, nil)},
		failOn:  map[string]bool{"b": true},
	}
	svc := newService()
	svc.Storage = store

	s, err := svc.SyncBuckets(context.Background(), "src", "dst", Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"dst/a", "dst/c"}, store.copied)
	assert.Equal(t, engine.StatusPartialFailure, s.Status)

	_, err = svc.SyncBuckets(context.Background(), "src", "src", Options{})
	assert.ErrorIs(t, err, engine.ErrConfiguration)
}

type fakeAlarms struct{ specs []engine.AlarmSpec }

func (f *fakeAlarms) PutAlarm(_ context.Context, spec engine.AlarmSpec) (engine.Result, error) {
	f.specs = append(f.specs, spec)
	return engine.Result{Ref: spec.Name}, nil
}

func TestCPUAlarmRequiresTopic(t *testing.T) {
	alarms := &fakeAlarms{}
	svc := newService()
	svc.Alarms = alarms

	_, err := svc.CPUAlarm(context.Background(), "i-1", "", DefaultAlarmThreshold, Options{})
	assert.ErrorIs(t, err, engine.ErrConfiguration)
	assert.Empty(t, alarms.specs)

	_, err = svc.CPUAlarm(context.Background(), "i-1", "arn:aws:sns:us-east-1:1:ops", DefaultAlarmThreshold, Options{})
	require.NoError(t, err)
	require.Len(t, alarms.specs, 1)
	assert.Equal(t, "CPU_Utilization_i-1", alarms.specs[0].Name)
}

type fakeDNS struct{ records []engine.DNSRecord }

func (f *fakeDNS) UpsertRecord(_ context.Context, zone string, rr engine.DNSRecord) (engine.Result, error) {
	f.records = append(f.records, rr)
	return engine.Result{Ref: "change/" + zone}, nil
}

func TestDNSRecord(t *testing.T) {
	dns := &fakeDNS{}
	svc := newService()
	svc.DNS = dns

	_, err := svc.DNSRecord(context.Background(), "api.example.com", "not-an-ip", "Z1", Options{})
	assert.ErrorIs(t, err, engine.ErrConfiguration)

	_, err = svc.DNSRecord(context.Background(), "api.example.com", "203.0.113.7", "Z1", Options{})
	require.NoError(t, err)
	assert.Equal(t, []engine.DNSRecord{{Name: "api.example.com", Type: "A", Value: "203.0.113.7", TTL: 300}}, dns.records)
}

type fakeCosts struct{ periods []engine.ResourceRecord }

func (f *fakeCosts) Costs(string, string, string) engine.Lister { return engine.Static(f.periods...) }

func TestCostsReportAmounts(t *testing.T) {
	svc := newService()
	svc.Billing = &fakeCosts{periods: []engine.ResourceRecord{
		rec("2023-01-01/2023-02-01", aws.KindCostPeriod, map[string]any{aws.AttrDisplayAmount: "1,234.5", aws.AttrUnit: "USD"}),
	}}

	s, err := svc.Costs(context.Background(), "2023-01-01", "2023-02-01", "", Options{})
	require.NoError(t, err)
	require.Len(t, s.Outcomes, 1)
	assert.Equal(t, "1,234.5 USD", s.Outcomes[0].Reason)

	_, err = svc.Costs(context.Background(), "2023-02-01", "2023-01-01", "", Options{})
	assert.ErrorIs(t, err, engine.ErrConfiguration)
}

type fakeLogs struct {
	groups []engine.ResourceRecord
	set    map[string]int32
}

func (f *fakeLogs) LogGroups(string) engine.Lister { return engine.Static(f.groups...) }
func (f *fakeLogs) SetRetention(_ context.Context, r engine.ResourceRecord, days int32) (engine.Result, error) {
	if f.set == nil {
		f.set = map[string]int32{}
	}
	f.set[r.ID] = days
	return engine.Result{Ref: r.ID}, nil
}

func TestLogRetentionOnlyTouchesUnboundedGroups(t *testing.T) {
	logs := &fakeLogs{groups: []engine.ResourceRecord{
		rec("/a", aws.KindLogGroup, nil),
		rec("/b", aws.KindLogGroup, map[string]any{aws.AttrRetention: int32(7)}),
	}}
	svc := newService()
	svc.Logs = logs

	_, err := svc.LogRetention(context.Background(), "", Options{RetentionDays: 30})
	require.NoError(t, err)
	assert.Equal(t, map[string]int32{"/a": 30}, logs.set)

	_, err = svc.LogRetention(context.Background(), "", Options{RetentionDays: 31})
	assert.ErrorIs(t, err, engine.ErrConfiguration)
}

func TestObjectsOlderThanRetention(t *testing.T) {
	store := &fakeStore{objects: []engine.ResourceRecord{
		rec("logs/new.gz", aws.KindObject, map[string]any{engine.AttrCreatedAt: daysAgo(2)}),
		rec("logs/old.gz", aws.KindObject, map[string]any{engine.AttrCreatedAt: daysAgo(40)}),
	}}
	svc := newService()
	svc.Storage = store

	s, err := svc.Objects(context.Background(), "bucket", Options{RetentionDays: 30, Now: now})
	require.NoError(t, err)
	require.Len(t, s.Outcomes, 1)
	assert.Equal(t, "logs/old.gz", s.Outcomes[0].ID)
	assert.Equal(t, 1, s.Skipped)

	_, err = svc.Objects(context.Background(), "", Options{})
	assert.ErrorIs(t, err, engine.ErrConfiguration)
}

type fakeRegistry struct {
	images  []engine.ResourceRecord
	deleted []string
}

func (f *fakeRegistry) UntaggedImages(string) engine.Lister { return engine.Static(f.images...) }
func (f *fakeRegistry) Delete(_ context.Context, r engine.ResourceRecord) (engine.Result, error) {
	f.deleted = append(f.deleted, r.ID)
	return engine.Result{Ref: r.ID}, nil
}

func TestUntaggedImagesDryRun(t *testing.T) {
	reg := &fakeRegistry{images: []engine.ResourceRecord{
		rec("sha256:aa", aws.KindImage, map[string]any{engine.AttrCreatedAt: daysAgo(90)}),
		rec("sha256:bb", aws.KindImage, map[string]any{engine.AttrCreatedAt: daysAgo(1)}),
	}}
	svc := newService()
	svc.Registry = reg

	s, err := svc.UntaggedImages(context.Background(), "app", Options{DryRun: true, RetentionDays: 30, Now: now})
	require.NoError(t, err)
	assert.Empty(t, reg.deleted)
	require.Len(t, s.Outcomes, 1)
	assert.Equal(t, engine.Simulated, s.Outcomes[0].Status)

	_, err = svc.UntaggedImages(context.Background(), "app", Options{RetentionDays: 30, Now: now})
	require.NoError(t, err)
	assert.Equal(t, []string{"sha256:aa"}, reg.deleted)
}

type fakeDatabases struct{ names []string }

func (f *fakeDatabases) CreateSnapshot(_ context.Context, r engine.ResourceRecord, name string) (engine.Result, error) {
	f.names = append(f.names, r.ID+"/"+name)
	return engine.Result{Ref: name}, nil
}

func TestRDSSnapshot(t *testing.T) {
	db := &fakeDatabases{}
	svc := newService()
	svc.Databases = db

	_, err := svc.RDSSnapshot(context.Background(), "orders", "", Options{})
	assert.ErrorIs(t, err, engine.ErrConfiguration)

	s, err := svc.RDSSnapshot(context.Background(), "orders", "orders-2024-06-01", Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"orders/orders-2024-06-01"}, db.names)
	assert.Equal(t, 1, s.Applied)
}

type fakeTables struct {
	scanErr error
	scans   []string
	exports []string
}

func (f *fakeTables) Contents(table string) engine.Lister {
	return engine.CursorLister(func(context.Context, string) ([]engine.ResourceRecord, string, error) {
		f.scans = append(f.scans, table)
		if f.scanErr != nil {
			return nil, "", f.scanErr
		}
		rec := engine.NewRecord(table, aws.KindTable, map[string]any{aws.AttrItems: []map[string]any{{"pk": "a"}}})
		return []engine.ResourceRecord{rec}, "", nil
	})
}

func (f *fakeTables) Export(_ context.Context, r engine.ResourceRecord, bucket, key string) (engine.Result, error) {
	f.exports = append(f.exports, r.ID+"->"+bucket+"/"+key)
	return engine.Result{Ref: "s3://" + bucket + "/" + key}, nil
}

func TestExportTableDryRunStillScans(t *testing.T) {
	tables := &fakeTables{}
	svc := newService()
	svc.Tables = tables

	s, err := svc.ExportTable(context.Background(), "users", "backups", "users.json", Options{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"users"}, tables.scans)
	assert.Empty(t, tables.exports)
	require.Len(t, s.Outcomes, 1)
	assert.Equal(t, engine.Simulated, s.Outcomes[0].Status)

	_, err = svc.ExportTable(context.Background(), "users", "backups", "users.json", Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"users->backups/users.json"}, tables.exports)

	_, err = svc.ExportTable(context.Background(), "users", "backups", "", Options{})
	assert.ErrorIs(t, err, engine.ErrConfiguration)
}

func TestExportTableScanFailureIsFatal(t *testing.T) {
	for _, dryRun := range []bool{false, true} {
		tables := &fakeTables{scanErr: errors.New("ResourceNotFoundException")}
		svc := newService()
		svc.Tables = tables

		s, err := svc.ExportTable(context.Background(), "missing", "backups", "k.json", Options{DryRun: dryRun})
		var lerr *engine.ListingError
		require.ErrorAs(t, err, &lerr)
		assert.Empty(t, tables.exports)
		assert.Equal(t, 1, engine.ExitCode(s, err, false))
	}
}
