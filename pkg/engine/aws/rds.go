package aws

import (
	"context"

	"github.com/DrSkyle/cloudsweep/pkg/engine"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rds"
)

type RDSAPI interface {
	CreateDBSnapshot(ctx context.Context, params *rds.CreateDBSnapshotInput, optFns ...func(*rds.Options)) (*rds.CreateDBSnapshotOutput, error)
}

type RDS struct {
	Client RDSAPI
}

// DBInstance is the record for a database instance addressed by identifier.
func DBInstance(id string) engine.ResourceRecord {
	return engine.NewRecord(id, KindDBInstance, nil)
}

func (r *RDS) CreateSnapshot(ctx context.Context, rec engine.ResourceRecord, name string) (engine.Result, error) {
	out, err := r.Client.CreateDBSnapshot(ctx, &rds.CreateDBSnapshotInput{
		DBInstanceIdentifier: aws.String(rec.ID),
		DBSnapshotIdentifier: aws.String(name),
	})
	if err != nil {
		return engine.Result{}, err
	}
	res := engine.Result{Ref: name}
	if out.DBSnapshot != nil {
		res.Ref = aws.ToString(out.DBSnapshot.DBSnapshotIdentifier)
		res.Details = map[string]string{"status": aws.ToString(out.DBSnapshot.Status)}
	}
	return res, nil
}
