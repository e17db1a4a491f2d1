package aws

import (
	"context"
	"fmt"
	"strings"

	"github.com/DrSkyle/cloudsweep/pkg/engine"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	"github.com/aws/aws-sdk-go-v2/service/ecr/types"
	"github.com/dustin/go-humanize"
)

type ECRAPI interface {
	DescribeImages(ctx context.Context, params *ecr.DescribeImagesInput, optFns ...func(*ecr.Options)) (*ecr.DescribeImagesOutput, error)
	BatchDeleteImage(ctx context.Context, params *ecr.BatchDeleteImageInput, optFns ...func(*ecr.Options)) (*ecr.BatchDeleteImageOutput, error)
}

type ECR struct {
	Client ECRAPI
}

// UntaggedImages lists the untagged images of repo. Record IDs are repo@digest.
func (e *ECR) UntaggedImages(repo string) engine.Lister {
	in := &ecr.DescribeImagesInput{
		RepositoryName: aws.String(repo),
		Filter:         &types.DescribeImagesFilter{TagStatus: types.TagStatusUntagged},
	}
	return lister(func() sdkPaginator[ecr.DescribeImagesOutput, ecr.Options] {
		return ecr.NewDescribeImagesPaginator(e.Client, in)
	}, func(out *ecr.DescribeImagesOutput) []engine.ResourceRecord {
		recs := make([]engine.ResourceRecord, 0, len(out.ImageDetails))
		for _, img := range out.ImageDetails {
			digest := aws.ToString(img.ImageDigest)
			size := aws.ToInt64(img.ImageSizeInBytes)
			recs = append(recs, engine.NewRecord(repo+"@"+digest, KindImage, map[string]any{
				engine.AttrCreatedAt: img.ImagePushedAt,
				engine.AttrSize:      size,
				"repository":         repo,
				"digest":             digest,
				"displaySize":        humanize.IBytes(uint64(size)),
			}))
		}
		return recs
	})
}

// Delete removes one image by digest. A per-image failure reported in the
// response body is returned as an error.
func (e *ECR) Delete(ctx context.Context, rec engine.ResourceRecord) (engine.Result, error) {
	if rec.Kind != KindImage {
		return engine.Result{}, wrongKind("ecr delete", rec)
	}
	out, err := e.Client.BatchDeleteImage(ctx, &ecr.BatchDeleteImageInput{
		RepositoryName: aws.String(rec.String("repository")),
		ImageIds:       []types.ImageIdentifier{{ImageDigest: aws.String(rec.String("digest"))}},
	})
	if err != nil {
		return engine.Result{}, err
	}
	if len(out.Failures) > 0 {
		var msgs []string
		for _, f := range out.Failures {
			msgs = append(msgs, fmt.Sprintf("%s: %s", f.FailureCode, aws.ToString(f.FailureReason)))
		}
		return engine.Result{}, fmt.Errorf("image not deleted: %s", strings.Join(msgs, "; "))
	}
	return engine.Result{Ref: rec.ID}, nil
}
