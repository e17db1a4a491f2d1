// Package permissions builds least-privilege IAM policies for commands.
package permissions

// Catalog maps each command to the IAM actions it calls.
var Catalog = map[string][]string{
	"volumes":              {"ec2:DescribeVolumes", "ec2:DeleteVolume"},
	"snapshots":            {"ec2:DescribeSnapshots", "ec2:DeleteSnapshot"},
	"objects":              {"s3:ListBucket", "s3:DeleteObject"},
	"lambda-versions":      {"lambda:ListVersionsByFunction", "lambda:ListAliases", "lambda:DeleteFunction"},
	"idle-instances":       {"ec2:DescribeInstances", "ec2:StopInstances"},
	"unhealthy-instances":  {"ec2:DescribeInstanceStatus", "ec2:RebootInstances"},
	"open-security-groups": {"ec2:DescribeSecurityGroups"},
	"rotate-keys":          {"iam:ListAccessKeys", "iam:DeleteAccessKey", "iam:CreateAccessKey"},
	"tag-instance":         {"ec2:CreateTags"},
	"instance": {
		"ec2:StartInstances",
		"ec2:StopInstances",
		"ec2:RebootInstances",
		"ec2:TerminateInstances",
	},
	"create-ami":    {"ec2:CreateImage"},
	"rds-snapshot":  {"rds:CreateDBSnapshot"},
	"sync-buckets":  {"s3:ListBucket", "s3:GetObject", "s3:PutObject"},
	"export-table":  {"dynamodb:Scan", "s3:PutObject"},
	"deploy-lambda": {"lambda:UpdateFunctionCode"},
	"dns-record":    {"route53:ChangeResourceRecordSets"},
	"cpu-alarm":     {"cloudwatch:PutMetricAlarm"},
	"billing":       {"ce:GetCostAndUsage"},
	"ecr-images":    {"ecr:DescribeImages", "ecr:BatchDeleteImage"},
	"log-retention": {"logs:DescribeLogGroups", "logs:PutRetentionPolicy"},
}

// Optional features add these on top of the command's own actions.
var Features = map[string][]string{
	"s3-output": {"s3:PutObject", "s3:GetObject", "s3:ListBucket"},
}

// CorePermissions returns the permissions every command needs.
func CorePermissions() []string {
	return []string{
		"sts:GetCallerIdentity",
	}
}
