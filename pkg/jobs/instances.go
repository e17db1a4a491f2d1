package jobs

import (
	"context"

	"github.com/DrSkyle/cloudsweep/pkg/engine"
	"github.com/DrSkyle/cloudsweep/pkg/engine/aws"
)

// DefaultCIDR is the range open-security-groups looks for.
const DefaultCIDR = "0.0.0.0/0"

// IdleInstances stops running instances with fewer cores than
// CoreCountThreshold.
func (s *Service) IdleInstances(ctx context.Context, opts Options) (*engine.BatchSummary, error) {
	if err := needs("ec2", s.Compute); err != nil {
		return nil, err
	}
	if opts.CoreCountThreshold <= 0 {
		return nil, engine.Configf("threshold", "must be positive, got %d", opts.CoreCountThreshold)
	}
	filter, err := opts.selection(engine.FewerThan(engine.AttrCoreCount, opts.CoreCountThreshold))
	if err != nil {
		return nil, err
	}
	return s.runner().Run(ctx, engine.Job{
		Name:   "idle-instances",
		Source: s.Compute.Instances("running"),
		Filter: filter,
		Action: engine.Stop{Via: s.Compute},
		DryRun: opts.DryRun,
	})
}

// UnhealthyInstances reboots every instance whose status check is not "ok".
// Instances without a reported status count as unknown and are rebooted.
func (s *Service) UnhealthyInstances(ctx context.Context, opts Options) (*engine.BatchSummary, error) {
	if err := needs("ec2", s.Compute); err != nil {
		return nil, err
	}
	filter, err := opts.selection(engine.NotEqualFold(engine.AttrStatus, "ok", "unknown"))
	if err != nil {
		return nil, err
	}
	return s.runner().Run(ctx, engine.Job{
		Name:   "unhealthy-instances",
		Source: s.Compute.InstanceStatuses(),
		Filter: filter,
		Action: engine.Reboot{Via: s.Compute},
		DryRun: opts.DryRun,
	})
}

// OpenSecurityGroups reports groups with an ingress rule open to opts.CIDR.
// Nothing is mutated.
func (s *Service) OpenSecurityGroups(ctx context.Context, opts Options) (*engine.BatchSummary, error) {
	if err := needs("ec2", s.Compute); err != nil {
		return nil, err
	}
	cidr := opts.CIDR
	if cidr == "" {
		cidr = DefaultCIDR
	}
	filter, err := opts.selection(engine.Contains(engine.AttrCIDRRanges, cidr))
	if err != nil {
		return nil, err
	}
	return s.runner().Run(ctx, engine.Job{
		Name:   "open-security-groups",
		Source: s.Compute.SecurityGroups(),
		Filter: filter,
		Action: engine.Report{},
		DryRun: opts.DryRun,
	})
}

func instance(id string) engine.ResourceRecord {
	return engine.NewRecord(id, aws.KindInstance, nil)
}

// TagInstance applies opts.Tags to one instance.
func (s *Service) TagInstance(ctx context.Context, instanceID string, opts Options) (*engine.BatchSummary, error) {
	if err := needs("ec2", s.Compute); err != nil {
		return nil, err
	}
	if err := requireArg("instance", instanceID); err != nil {
		return nil, err
	}
	tags, err := ParseTags(opts.Tags)
	if err != nil {
		return nil, err
	}
	return s.runner().Run(ctx, engine.Job{
		Name:   "tag-instance",
		Source: engine.Static(instance(instanceID)),
		Action: engine.Tag{Tags: tags, Via: s.Compute},
		DryRun: opts.DryRun,
	})
}

// Instance runs one lifecycle operation against one instance.
func (s *Service) Instance(ctx context.Context, instanceID string, action InstanceAction, opts Options) (*engine.BatchSummary, error) {
	if err := needs("ec2", s.Compute); err != nil {
		return nil, err
	}
	if err := requireArg("instance", instanceID); err != nil {
		return nil, err
	}
	var act engine.Action
	switch action {
	case InstanceStart:
		act = engine.Start{Via: s.Compute}
	case InstanceStop:
		act = engine.Stop{Via: s.Compute}
	case InstanceRestart:
		act = engine.Reboot{Via: s.Compute}
	case InstanceTerminate:
		act = engine.Terminate{Via: s.Compute}
	default:
		return nil, engine.Configf("action", "unsupported instance action %d", int(action))
	}
	return s.runner().Run(ctx, engine.Job{
		Name:   "instance/" + action.String(),
		Source: engine.Static(instance(instanceID)),
		Action: act,
		DryRun: opts.DryRun,
	})
}

// CreateAMI images one instance without rebooting it.
func (s *Service) CreateAMI(ctx context.Context, instanceID, name string, opts Options) (*engine.BatchSummary, error) {
	if err := needs("ec2", s.Compute); err != nil {
		return nil, err
	}
	if err := requireArg("instance", instanceID); err != nil {
		return nil, err
	}
	if err := requireArg("name", name); err != nil {
		return nil, err
	}
	return s.runner().Run(ctx, engine.Job{
		Name:   "create-ami",
		Source: engine.Static(instance(instanceID)),
		Action: engine.CreateImage{Name: name, NoReboot: true, Via: s.Compute},
		DryRun: opts.DryRun,
	})
}
