package aws

import (
	"bytes"
	"context"
	"net/url"
	"strings"

	"github.com/DrSkyle/cloudsweep/pkg/engine"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dustin/go-humanize"
)

type S3API interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	CopyObject(ctx context.Context, params *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3 works on the objects of one or more buckets.
type S3 struct {
	Client S3API
}

// Objects lists every object in bucket. The record ID is the object key.
func (s *S3) Objects(bucket string) engine.Lister {
	in := &s3.ListObjectsV2Input{Bucket: aws.String(bucket)}
	return lister(func() sdkPaginator[s3.ListObjectsV2Output, s3.Options] {
		return s3.NewListObjectsV2Paginator(s.Client, in)
	}, func(out *s3.ListObjectsV2Output) []engine.ResourceRecord {
		recs := make([]engine.ResourceRecord, 0, len(out.Contents))
		for _, obj := range out.Contents {
			size := aws.ToInt64(obj.Size)
			recs = append(recs, engine.NewRecord(aws.ToString(obj.Key), KindObject, map[string]any{
				engine.AttrCreatedAt: obj.LastModified,
				engine.AttrSize:      size,
				"bucket":             bucket,
				"storageClass":       string(obj.StorageClass),
				"displaySize":        humanize.IBytes(uint64(size)),
			}))
		}
		return recs
	})
}

func (s *S3) Delete(ctx context.Context, rec engine.ResourceRecord) (engine.Result, error) {
	if rec.Kind != KindObject {
		return engine.Result{}, wrongKind("s3 delete", rec)
	}
	bucket := rec.String("bucket")
	_, err := s.Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(rec.ID),
	})
	if err != nil {
		return engine.Result{}, err
	}
	return engine.Result{Ref: "s3://" + bucket + "/" + rec.ID}, nil
}

// CopyObject copies the object under the same key into destBucket.
func (s *S3) CopyObject(ctx context.Context, rec engine.ResourceRecord, destBucket string) (engine.Result, error) {
	src := rec.String("bucket")
	out, err := s.Client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(destBucket),
		Key:        aws.String(rec.ID),
		CopySource: aws.String(copySource(src, rec.ID)),
	})
	if err != nil {
		return engine.Result{}, err
	}
	res := engine.Result{Ref: "s3://" + destBucket + "/" + rec.ID, Details: map[string]string{}}
	if size, ok := rec.Int(engine.AttrSize); ok {
		res.Details["size"] = humanize.IBytes(uint64(size))
	}
	if out.CopyObjectResult != nil && out.CopyObjectResult.ETag != nil {
		res.Details["etag"] = strings.Trim(*out.CopyObjectResult.ETag, `"`)
	}
	return res, nil
}

// Put uploads body to s3://bucket/key.
func (s *S3) Put(ctx context.Context, bucket, key, contentType string, body []byte) error {
	_, err := s.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	return err
}

// copySource URL-encodes each key segment; the separators stay literal.
func copySource(bucket, key string) string {
	segs := strings.Split(key, "/")
	for i, seg := range segs {
		segs[i] = url.PathEscape(seg)
	}
	return bucket + "/" + strings.Join(segs, "/")
}
