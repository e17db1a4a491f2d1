package aws

import (
	"context"
	"fmt"

	"github.com/DrSkyle/cloudsweep/pkg/engine"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
)

type IAMAPI interface {
	ListAccessKeys(ctx context.Context, params *iam.ListAccessKeysInput, optFns ...func(*iam.Options)) (*iam.ListAccessKeysOutput, error)
	DeleteAccessKey(ctx context.Context, params *iam.DeleteAccessKeyInput, optFns ...func(*iam.Options)) (*iam.DeleteAccessKeyOutput, error)
	CreateAccessKey(ctx context.Context, params *iam.CreateAccessKeyInput, optFns ...func(*iam.Options)) (*iam.CreateAccessKeyOutput, error)
}

// IAM rotates the access keys of a user.
type IAM struct {
	Client IAMAPI
}

// AccessKeys lists the access keys of user.
func (i *IAM) AccessKeys(user string) engine.Lister {
	in := &iam.ListAccessKeysInput{UserName: aws.String(user)}
	return lister(func() sdkPaginator[iam.ListAccessKeysOutput, iam.Options] {
		return iam.NewListAccessKeysPaginator(i.Client, in)
	}, func(out *iam.ListAccessKeysOutput) []engine.ResourceRecord {
		recs := make([]engine.ResourceRecord, 0, len(out.AccessKeyMetadata))
		for _, k := range out.AccessKeyMetadata {
			recs = append(recs, engine.NewRecord(aws.ToString(k.AccessKeyId), KindAccessKey, map[string]any{
				engine.AttrStatus:    string(k.Status),
				engine.AttrCreatedAt: k.CreateDate,
				"user":               user,
			}))
		}
		return recs
	})
}

// User is the principal record new keys are issued for.
func User(name string) engine.ResourceRecord {
	return engine.NewRecord(name, KindUser, map[string]any{engine.AttrName: name})
}

func (i *IAM) Delete(ctx context.Context, rec engine.ResourceRecord) (engine.Result, error) {
	if rec.Kind != KindAccessKey {
		return engine.Result{}, wrongKind("iam delete", rec)
	}
	_, err := i.Client.DeleteAccessKey(ctx, &iam.DeleteAccessKeyInput{
		UserName:    aws.String(rec.String("user")),
		AccessKeyId: aws.String(rec.ID),
	})
	if err != nil {
		return engine.Result{}, err
	}
	return engine.Result{Ref: rec.ID}, nil
}

// IssueCredential creates a new access key. The secret is only ever
// returned here, in Details["secretAccessKey"].
func (i *IAM) IssueCredential(ctx context.Context, principal engine.ResourceRecord) (engine.Result, error) {
	out, err := i.Client.CreateAccessKey(ctx, &iam.CreateAccessKeyInput{UserName: aws.String(principal.ID)})
	if err != nil {
		return engine.Result{}, err
	}
	key := out.AccessKey
	if key == nil {
		return engine.Result{}, fmt.Errorf("create access key for %s returned no key", principal.ID)
	}
	return engine.Result{
		Ref: aws.ToString(key.AccessKeyId),
		Details: map[string]string{
			"user":            aws.ToString(key.UserName),
			"accessKeyId":     aws.ToString(key.AccessKeyId),
			"secretAccessKey": aws.ToString(key.SecretAccessKey),
		},
	}, nil
}
