package aws

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/DrSkyle/cloudsweep/pkg/engine"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

type EC2API interface {
	DescribeVolumes(ctx context.Context, params *ec2.DescribeVolumesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeVolumesOutput, error)
	DescribeSnapshots(ctx context.Context, params *ec2.DescribeSnapshotsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeSnapshotsOutput, error)
	DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
	DescribeInstanceStatus(ctx context.Context, params *ec2.DescribeInstanceStatusInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstanceStatusOutput, error)
	DescribeSecurityGroups(ctx context.Context, params *ec2.DescribeSecurityGroupsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeSecurityGroupsOutput, error)
	DeleteVolume(ctx context.Context, params *ec2.DeleteVolumeInput, optFns ...func(*ec2.Options)) (*ec2.DeleteVolumeOutput, error)
	DeleteSnapshot(ctx context.Context, params *ec2.DeleteSnapshotInput, optFns ...func(*ec2.Options)) (*ec2.DeleteSnapshotOutput, error)
	StopInstances(ctx context.Context, params *ec2.StopInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StopInstancesOutput, error)
	StartInstances(ctx context.Context, params *ec2.StartInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StartInstancesOutput, error)
	RebootInstances(ctx context.Context, params *ec2.RebootInstancesInput, optFns ...func(*ec2.Options)) (*ec2.RebootInstancesOutput, error)
	TerminateInstances(ctx context.Context, params *ec2.TerminateInstancesInput, optFns ...func(*ec2.Options)) (*ec2.TerminateInstancesOutput, error)
	CreateTags(ctx context.Context, params *ec2.CreateTagsInput, optFns ...func(*ec2.Options)) (*ec2.CreateTagsOutput, error)
	CreateImage(ctx context.Context, params *ec2.CreateImageInput, optFns ...func(*ec2.Options)) (*ec2.CreateImageOutput, error)
}

// EC2 lists volumes, snapshots, instances and security groups, and performs
// the instance and block storage mutations.
type EC2 struct {
	Client EC2API
}

// Volumes lists EBS volumes in the given state.
func (e *EC2) Volumes(status string) engine.Lister {
	in := &ec2.DescribeVolumesInput{
		Filters: []types.Filter{{Name: aws.String("status"), Values: []string{status}}},
	}
	return lister(func() sdkPaginator[ec2.DescribeVolumesOutput, ec2.Options] {
		return ec2.NewDescribeVolumesPaginator(e.Client, in)
	}, func(out *ec2.DescribeVolumesOutput) []engine.ResourceRecord {
		recs := make([]engine.ResourceRecord, 0, len(out.Volumes))
		for _, v := range out.Volumes {
			recs = append(recs, engine.NewRecord(aws.ToString(v.VolumeId), KindVolume, map[string]any{
				engine.AttrStatus:    string(v.State),
				engine.AttrCreatedAt: v.CreateTime,
				engine.AttrSize:      v.Size,
				engine.AttrTags:      ec2Tags(v.Tags),
				"volumeType":         string(v.VolumeType),
				"availabilityZone":   aws.ToString(v.AvailabilityZone),
			}))
		}
		return recs
	})
}

// Snapshots lists the snapshots owned by the calling account.
func (e *EC2) Snapshots() engine.Lister {
	in := &ec2.DescribeSnapshotsInput{OwnerIds: []string{"self"}}
	return lister(func() sdkPaginator[ec2.DescribeSnapshotsOutput, ec2.Options] {
		return ec2.NewDescribeSnapshotsPaginator(e.Client, in)
	}, func(out *ec2.DescribeSnapshotsOutput) []engine.ResourceRecord {
		recs := make([]engine.ResourceRecord, 0, len(out.Snapshots))
		for _, s := range out.Snapshots {
			recs = append(recs, engine.NewRecord(aws.ToString(s.SnapshotId), KindSnapshot, map[string]any{
				engine.AttrStatus:    string(s.State),
				engine.AttrCreatedAt: s.StartTime,
				engine.AttrSize:      s.VolumeSize,
				engine.AttrTags:      ec2Tags(s.Tags),
				"volumeId":           aws.ToString(s.VolumeId),
				"description":        aws.ToString(s.Description),
			}))
		}
		return recs
	})
}

// Instances lists instances in the given state, or all instances when state is empty.
func (e *EC2) Instances(state string) engine.Lister {
	in := &ec2.DescribeInstancesInput{}
	if state != "" {
		in.Filters = []types.Filter{{Name: aws.String("instance-state-name"), Values: []string{state}}}
	}
	return lister(func() sdkPaginator[ec2.DescribeInstancesOutput, ec2.Options] {
		return ec2.NewDescribeInstancesPaginator(e.Client, in)
	}, func(out *ec2.DescribeInstancesOutput) []engine.ResourceRecord {
		var recs []engine.ResourceRecord
		for _, res := range out.Reservations {
			for _, inst := range res.Instances {
				recs = append(recs, instanceRecord(inst))
			}
		}
		return recs
	})
}

func instanceRecord(inst types.Instance) engine.ResourceRecord {
	attrs := map[string]any{
		engine.AttrCreatedAt: inst.LaunchTime,
		engine.AttrTags:      ec2Tags(inst.Tags),
		"instanceType":       string(inst.InstanceType),
	}
	if inst.State != nil {
		attrs[engine.AttrStatus] = string(inst.State.Name)
	}
	if inst.CpuOptions != nil && inst.CpuOptions.CoreCount != nil {
		attrs[engine.AttrCoreCount] = *inst.CpuOptions.CoreCount
	}
	return engine.NewRecord(aws.ToString(inst.InstanceId), KindInstance, attrs)
}

// InstanceStatuses lists the status checks of every instance, running or not.
// The status attribute carries the instance status check summary.
func (e *EC2) InstanceStatuses() engine.Lister {
	in := &ec2.DescribeInstanceStatusInput{IncludeAllInstances: aws.Bool(true)}
	return lister(func() sdkPaginator[ec2.DescribeInstanceStatusOutput, ec2.Options] {
		return ec2.NewDescribeInstanceStatusPaginator(e.Client, in)
	}, func(out *ec2.DescribeInstanceStatusOutput) []engine.ResourceRecord {
		recs := make([]engine.ResourceRecord, 0, len(out.InstanceStatuses))
		for _, st := range out.InstanceStatuses {
			attrs := map[string]any{}
			if st.InstanceStatus != nil && st.InstanceStatus.Status != "" {
				attrs[engine.AttrStatus] = strings.ToLower(string(st.InstanceStatus.Status))
			}
			if st.SystemStatus != nil {
				attrs["systemStatus"] = strings.ToLower(string(st.SystemStatus.Status))
			}
			if st.InstanceState != nil {
				attrs["state"] = string(st.InstanceState.Name)
			}
			recs = append(recs, engine.NewRecord(aws.ToString(st.InstanceId), KindInstance, attrs))
		}
		return recs
	})
}

// SecurityGroups lists security groups with every ingress CIDR flattened into cidrRanges.
func (e *EC2) SecurityGroups() engine.Lister {
	in := &ec2.DescribeSecurityGroupsInput{}
	return lister(func() sdkPaginator[ec2.DescribeSecurityGroupsOutput, ec2.Options] {
		return ec2.NewDescribeSecurityGroupsPaginator(e.Client, in)
	}, func(out *ec2.DescribeSecurityGroupsOutput) []engine.ResourceRecord {
		recs := make([]engine.ResourceRecord, 0, len(out.SecurityGroups))
		for _, sg := range out.SecurityGroups {
			var cidrs []string
			for _, perm := range sg.IpPermissions {
				for _, r := range perm.IpRanges {
					if r.CidrIp != nil {
						cidrs = append(cidrs, *r.CidrIp)
					}
				}
			}
			recs = append(recs, engine.NewRecord(aws.ToString(sg.GroupId), KindSecurityGroup, map[string]any{
				engine.AttrName:       aws.ToString(sg.GroupName),
				engine.AttrCIDRRanges: cidrs,
				engine.AttrTags:       ec2Tags(sg.Tags),
				"vpcId":               aws.ToString(sg.VpcId),
			}))
		}
		return recs
	})
}

// Delete removes a volume or a snapshot.
func (e *EC2) Delete(ctx context.Context, rec engine.ResourceRecord) (engine.Result, error) {
	id := rec.ID
	switch rec.Kind {
	case KindVolume:
		if _, err := e.Client.DeleteVolume(ctx, &ec2.DeleteVolumeInput{VolumeId: aws.String(id)}); err != nil {
			return engine.Result{}, err
		}
	case KindSnapshot:
		if _, err := e.Client.DeleteSnapshot(ctx, &ec2.DeleteSnapshotInput{SnapshotId: aws.String(id)}); err != nil {
			return engine.Result{}, err
		}
	default:
		return engine.Result{}, wrongKind("ec2 delete", rec)
	}
	return engine.Result{Ref: id}, nil
}

func (e *EC2) Stop(ctx context.Context, rec engine.ResourceRecord) (engine.Result, error) {
	out, err := e.Client.StopInstances(ctx, &ec2.StopInstancesInput{InstanceIds: []string{rec.ID}})
	if err != nil {
		return engine.Result{}, err
	}
	return stateChange(rec.ID, out.StoppingInstances), nil
}

func (e *EC2) Start(ctx context.Context, rec engine.ResourceRecord) (engine.Result, error) {
	out, err := e.Client.StartInstances(ctx, &ec2.StartInstancesInput{InstanceIds: []string{rec.ID}})
	if err != nil {
		return engine.Result{}, err
	}
	return stateChange(rec.ID, out.StartingInstances), nil
}

func (e *EC2) Reboot(ctx context.Context, rec engine.ResourceRecord) (engine.Result, error) {
	if _, err := e.Client.RebootInstances(ctx, &ec2.RebootInstancesInput{InstanceIds: []string{rec.ID}}); err != nil {
		return engine.Result{}, err
	}
	return engine.Result{Ref: rec.ID}, nil
}

func (e *EC2) Terminate(ctx context.Context, rec engine.ResourceRecord) (engine.Result, error) {
	out, err := e.Client.TerminateInstances(ctx, &ec2.TerminateInstancesInput{InstanceIds: []string{rec.ID}})
	if err != nil {
		return engine.Result{}, err
	}
	return stateChange(rec.ID, out.TerminatingInstances), nil
}

func stateChange(id string, changes []types.InstanceStateChange) engine.Result {
	res := engine.Result{Ref: id}
	for _, c := range changes {
		if aws.ToString(c.InstanceId) != id {
			continue
		}
		res.Details = map[string]string{}
		if c.PreviousState != nil {
			res.Details["previousState"] = string(c.PreviousState.Name)
		}
		if c.CurrentState != nil {
			res.Details["currentState"] = string(c.CurrentState.Name)
		}
	}
	return res
}

// Tag applies tags to the resource. Keys are sent in sorted order.
func (e *EC2) Tag(ctx context.Context, rec engine.ResourceRecord, tags map[string]string) (engine.Result, error) {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	sdkTags := make([]types.Tag, 0, len(keys))
	for _, k := range keys {
		sdkTags = append(sdkTags, types.Tag{Key: aws.String(k), Value: aws.String(tags[k])})
	}
	if _, err := e.Client.CreateTags(ctx, &ec2.CreateTagsInput{Resources: []string{rec.ID}, Tags: sdkTags}); err != nil {
		return engine.Result{}, err
	}
	return engine.Result{Ref: rec.ID, Details: map[string]string{"tags": engine.FormatTags(tags)}}, nil
}

func (e *EC2) CreateImage(ctx context.Context, rec engine.ResourceRecord, name string, noReboot bool) (engine.Result, error) {
	out, err := e.Client.CreateImage(ctx, &ec2.CreateImageInput{
		InstanceId: aws.String(rec.ID),
		Name:       aws.String(name),
		NoReboot:   aws.Bool(noReboot),
	})
	if err != nil {
		return engine.Result{}, err
	}
	imageID := aws.ToString(out.ImageId)
	if imageID == "" {
		return engine.Result{}, fmt.Errorf("create image for %s returned no image id", rec.ID)
	}
	return engine.Result{Ref: imageID}, nil
}

func ec2Tags(tags []types.Tag) map[string]string {
	out := make(map[string]string, len(tags))
	for _, t := range tags {
		if t.Key != nil {
			out[*t.Key] = aws.ToString(t.Value)
		}
	}
	return out
}
