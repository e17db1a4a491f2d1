// Package jobs binds the engine to the maintenance commands. Each exported
// function validates its inputs, builds one engine.Job and runs it.
package jobs

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/DrSkyle/cloudsweep/pkg/engine"
	"github.com/DrSkyle/cloudsweep/pkg/engine/aws"
	"github.com/DrSkyle/cloudsweep/pkg/engine/policy"
)

// Options is the configuration shared by every command. Each command reads
// the subset it needs.
type Options struct {
	DryRun             bool
	RetentionDays      int
	CoreCountThreshold int64
	CIDR               string
	Status             string
	Tags               []string
	Where              string
	Now                time.Time
}

func (o Options) now() time.Time {
	if o.Now.IsZero() {
		return time.Now().UTC()
	}
	return o.Now.UTC()
}

// selection combines the command's own predicates with the --where filter.
func (o Options) selection(base ...engine.Predicate) (engine.Predicate, error) {
	if strings.TrimSpace(o.Where) == "" {
		return engine.All(base...), nil
	}
	extra, err := policy.Compile(o.Where, o.now())
	if err != nil {
		return nil, err
	}
	return engine.All(append(base, extra)...), nil
}

// Provider views. The aws package types satisfy them; tests use fakes.
type (
	Compute interface {
		Volumes(status string) engine.Lister
		Snapshots() engine.Lister
		Instances(state string) engine.Lister
		InstanceStatuses() engine.Lister
		SecurityGroups() engine.Lister
		engine.Deleter
		engine.Stopper
		engine.Starter
		engine.Rebooter
		engine.Terminator
		engine.Tagger
		engine.ImageCreator
	}
	ObjectStore interface {
		Objects(bucket string) engine.Lister
		engine.Deleter
		engine.ObjectCopier
	}
	Functions interface {
		Versions(fn string) engine.Lister
		AliasedVersions(ctx context.Context, fn string) (map[string]bool, error)
		engine.Deleter
		engine.CodeUpdater
	}
	Credentials interface {
		AccessKeys(user string) engine.Lister
		engine.Deleter
		engine.CredentialIssuer
	}
	Registry interface {
		UntaggedImages(repo string) engine.Lister
		engine.Deleter
	}
	LogGroups interface {
		LogGroups(prefix string) engine.Lister
		engine.RetentionSetter
	}
	TableStore interface {
		Contents(table string) engine.Lister
		engine.Exporter
	}
	CostReporter interface {
		Costs(start, end, metric string) engine.Lister
	}
)

// Service holds the runner and the provider bindings the commands use. A
// command whose provider is nil fails with a configuration error.
type Service struct {
	Runner *engine.Runner

	Compute     Compute
	Storage     ObjectStore
	Functions   Functions
	Credentials Credentials
	Registry    Registry
	Logs        LogGroups
	Billing     CostReporter
	Databases   engine.SnapshotCreator
	DNS         engine.RecordUpserter
	Alarms      engine.AlarmWriter
	Tables      TableStore
}

// NewService wires every binding from one AWS client.
func NewService(runner *engine.Runner, c *aws.Client) *Service {
	return &Service{
		Runner:      runner,
		Compute:     c.EC2(),
		Storage:     c.S3(),
		Functions:   c.Lambda(),
		Credentials: c.IAM(),
		Registry:    c.ECR(),
		Logs:        c.Logs(),
		Billing:     c.Billing(),
		Databases:   c.RDS(),
		DNS:         c.Route53(),
		Alarms:      c.CloudWatch(),
		Tables:      c.Tables(),
	}
}

func (s *Service) runner() *engine.Runner {
	if s.Runner == nil {
		s.Runner = engine.NewRunner()
	}
	return s.Runner
}

func needs(name string, provider any) error {
	if provider == nil {
		return engine.Configf("provider", "no %s binding configured", name)
	}
	return nil
}

func requireArg(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return engine.Configf(field, "is required")
	}
	return nil
}

// ParseTags turns Key=Value strings into a tag map. The value may itself
// contain '='; the key may not be empty.
func ParseTags(raw []string) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, engine.Configf("tags", "at least one tag is required")
	}
	tags := make(map[string]string, len(raw))
	for _, t := range raw {
		key, value, ok := strings.Cut(t, "=")
		if !ok || key == "" {
			return nil, engine.Configf("tags", "Invalid tag format: %q. Expected format is Key=Value", t)
		}
		tags[key] = value
	}
	return tags, nil
}

// InstanceAction is the closed set of lifecycle operations on one instance.
type InstanceAction int

const (
	InstanceStart InstanceAction = iota
	InstanceStop
	InstanceRestart
	InstanceTerminate
)

var instanceActions = map[string]InstanceAction{
	"start":     InstanceStart,
	"stop":      InstanceStop,
	"restart":   InstanceRestart,
	"terminate": InstanceTerminate,
}

func (a InstanceAction) String() string {
	for name, v := range instanceActions {
		if v == a {
			return name
		}
	}
	return "unknown"
}

// ParseInstanceAction maps user input onto the closed set once.
func ParseInstanceAction(s string) (InstanceAction, error) {
	a, ok := instanceActions[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, engine.Configf("action", "Invalid action: %s. Use 'start', 'stop', 'restart', or 'terminate'", s)
	}
	return a, nil
}

// ReadArchive loads a deployment package before any provider call is made.
func ReadArchive(path string) ([]byte, error) {
	if err := requireArg("zip", path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &engine.ConfigError{Field: "zip", Msg: "cannot read deployment package " + path, Err: err}
	}
	return data, nil
}
