package aws

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/DrSkyle/cloudsweep/pkg/engine"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	cetypes "github.com/aws/aws-sdk-go-v2/service/costexplorer/types"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	ecrtypes "github.com/aws/aws-sdk-go-v2/service/ecr/types"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type MockIAMClient struct {
	Keys    []iamtypes.AccessKeyMetadata
	Deleted []string
	Created int
}

func (m *MockIAMClient) ListAccessKeys(ctx context.Context, params *iam.ListAccessKeysInput, optFns ...func(*iam.Options)) (*iam.ListAccessKeysOutput, error) {
	return &iam.ListAccessKeysOutput{AccessKeyMetadata: m.Keys}, nil
}

func (m *MockIAMClient) DeleteAccessKey(ctx context.Context, params *iam.DeleteAccessKeyInput, optFns ...func(*iam.Options)) (*iam.DeleteAccessKeyOutput, error) {
	m.Deleted = append(m.Deleted, aws.ToString(params.UserName)+"/"+aws.ToString(params.AccessKeyId))
	return &iam.DeleteAccessKeyOutput{}, nil
}

func (m *MockIAMClient) CreateAccessKey(ctx context.Context, params *iam.CreateAccessKeyInput, optFns ...func(*iam.Options)) (*iam.CreateAccessKeyOutput, error) {
	m.Created++
	return &iam.CreateAccessKeyOutput{AccessKey: &iamtypes.AccessKey{
		UserName:        params.UserName,
		AccessKeyId:     aws.String("AKIANEW"),
		SecretAccessKey: aws.String("s3cr3t"),
	}}, nil
}

func TestIAMRotationPrimitives(t *testing.T) {
	mock := &MockIAMClient{Keys: []iamtypes.AccessKeyMetadata{
		{AccessKeyId: aws.String("AKIAOLD"), Status: iamtypes.StatusTypeActive, CreateDate: aws.Time(time.Now())},
	}}
	svc := &IAM{Client: mock}
	ctx := context.Background()

	recs, err := engine.Drain(ctx, svc.AccessKeys("alice").List())
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || recs[0].String("user") != "alice" {
		t.Fatalf("records = %v", recs)
	}
	if _, err := svc.Delete(ctx, recs[0]); err != nil {
		t.Fatal(err)
	}
	if len(mock.Deleted) != 1 || mock.Deleted[0] != "alice/AKIAOLD" {
		t.Errorf("deleted = %v", mock.Deleted)
	}

	res, err := svc.IssueCredential(ctx, User("alice"))
	if err != nil {
		t.Fatal(err)
	}
	if res.Ref != "AKIANEW" || res.Details["secretAccessKey"] != "s3cr3t" {
		t.Errorf("result = %+v", res)
	}
}

type MockS3Client struct {
	Pages  [][]string
	Copies []string
	Puts   map[string][]byte
}

func (m *MockS3Client) ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	idx := 0
	if params.ContinuationToken != nil {
		idx = 1
	}
	out := &s3.ListObjectsV2Output{}
	for _, k := range m.Pages[idx] {
		out.Contents = append(out.Contents, s3types.Object{Key: aws.String(k), Size: aws.Int64(10), LastModified: aws.Time(time.Now())})
	}
	if idx+1 < len(m.Pages) {
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String("next")
	}
	return out, nil
}

func (m *MockS3Client) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	return &s3.DeleteObjectOutput{}, nil
}

func (m *MockS3Client) CopyObject(ctx context.Context, params *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error) {
	m.Copies = append(m.Copies, aws.ToString(params.CopySource)+" -> "+aws.ToString(params.Bucket))
	return &s3.CopyObjectOutput{}, nil
}

func (m *MockS3Client) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	if m.Puts == nil {
		m.Puts = map[string][]byte{}
	}
	m.Puts[aws.ToString(params.Bucket)+"/"+aws.ToString(params.Key)] = body
	return &s3.PutObjectOutput{}, nil
}

func TestObjectsAndCopy(t *testing.T) {
	mock := &MockS3Client{Pages: [][]string{{"a.txt"}, {"dir/b c.txt"}}}
	svc := &S3{Client: mock}
	ctx := context.Background()

	recs, err := engine.Drain(ctx, svc.Objects("src").List())
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}
	if _, err := svc.CopyObject(ctx, recs[1], "dst"); err != nil {
		t.Fatal(err)
	}
	if want := "src/dir/b%20c.txt -> dst"; mock.Copies[0] != want {
		t.Errorf("copy = %q, want %q", mock.Copies[0], want)
	}
}

type MockDynamoDBClient struct {
	Pages [][]map[string]ddbtypes.AttributeValue
	Err   error
}

func (m *MockDynamoDBClient) Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	idx := 0
	if params.ExclusiveStartKey != nil {
		idx = 1
	}
	out := &dynamodb.ScanOutput{Items: m.Pages[idx]}
	if idx+1 < len(m.Pages) {
		out.LastEvaluatedKey = map[string]ddbtypes.AttributeValue{"pk": &ddbtypes.AttributeValueMemberS{Value: "cursor"}}
	}
	return out, nil
}

func scanTable(t *testing.T, exp *TableExporter, table string) (engine.ResourceRecord, error) {
	t.Helper()
	recs, err := engine.Drain(context.Background(), exp.Contents(table).List())
	if err != nil {
		return engine.ResourceRecord{}, err
	}
	if len(recs) != 1 {
		t.Fatalf("expected one table record, got %d", len(recs))
	}
	return recs[0], nil
}

func TestExportScansEveryPage(t *testing.T) {
	db := &MockDynamoDBClient{Pages: [][]map[string]ddbtypes.AttributeValue{
		{{"pk": &ddbtypes.AttributeValueMemberS{Value: "a"}, "n": &ddbtypes.AttributeValueMemberN{Value: "1.50"}}},
		{{"pk": &ddbtypes.AttributeValueMemberS{Value: "b"}, "tags": &ddbtypes.AttributeValueMemberSS{Value: []string{"x"}},
			"nested": &ddbtypes.AttributeValueMemberM{Value: map[string]ddbtypes.AttributeValue{"ok": &ddbtypes.AttributeValueMemberBOOL{Value: true}}}}},
	}}
	store := &MockS3Client{}
	exp := &TableExporter{DB: db, S3: store}

	rec, err := scanTable(t, exp, "users")
	if err != nil {
		t.Fatal(err)
	}
	if rec.ID != "users" || rec.Kind != KindTable || rec.String("itemCount") != "2" {
		t.Errorf("record = %+v", rec)
	}
	if len(store.Puts) != 0 {
		t.Errorf("listing uploaded %v", store.Puts)
	}

	res, err := exp.Export(context.Background(), rec, "backups", "users.json")
	if err != nil {
		t.Fatal(err)
	}
	if res.Ref != "s3://backups/users.json" || res.Details["items"] != "2" {
		t.Errorf("result = %+v", res)
	}
	body := store.Puts["backups/users.json"]
	if !strings.Contains(string(body), "\n    {") {
		t.Errorf("expected four-space indentation, got %s", body)
	}
	var items []map[string]any
	if err := json.Unmarshal(body, &items); err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 || items[0]["n"] != 1.5 || items[1]["nested"].(map[string]any)["ok"] != true {
		t.Errorf("items = %v", items)
	}
}

func TestScanFailureFailsTheListing(t *testing.T) {
	store := &MockS3Client{}
	exp := &TableExporter{DB: &MockDynamoDBClient{Err: errors.New("ResourceNotFoundException")}, S3: store}
	if _, err := scanTable(t, exp, "missing"); err == nil {
		t.Fatal("expected error")
	}
	if len(store.Puts) != 0 {
		t.Errorf("unexpected upload %v", store.Puts)
	}
}

func TestExportRequiresScannedRecord(t *testing.T) {
	store := &MockS3Client{}
	exp := &TableExporter{DB: &MockDynamoDBClient{}, S3: store}
	rec := engine.NewRecord("users", KindTable, nil)
	if _, err := exp.Export(context.Background(), rec, "b", "k"); err == nil {
		t.Fatal("expected error for an unscanned record")
	}
	if len(store.Puts) != 0 {
		t.Errorf("unexpected upload %v", store.Puts)
	}
}

type MockCostExplorerClient struct {
	Calls []string
}

func (m *MockCostExplorerClient) GetCostAndUsage(ctx context.Context, params *costexplorer.GetCostAndUsageInput, optFns ...func(*costexplorer.Options)) (*costexplorer.GetCostAndUsageOutput, error) {
	m.Calls = append(m.Calls, aws.ToString(params.NextPageToken))
	period := func(s, e, amount string) cetypes.ResultByTime {
		return cetypes.ResultByTime{
			TimePeriod: &cetypes.DateInterval{Start: aws.String(s), End: aws.String(e)},
			Total:      map[string]cetypes.MetricValue{"BlendedCost": {Amount: aws.String(amount), Unit: aws.String("USD")}},
		}
	}
	if params.NextPageToken == nil {
		return &costexplorer.GetCostAndUsageOutput{
			ResultsByTime: []cetypes.ResultByTime{period("2024-01-01", "2024-02-01", "1234.5")},
			NextPageToken: aws.String("t2"),
		}, nil
	}
	return &costexplorer.GetCostAndUsageOutput{
		ResultsByTime: []cetypes.ResultByTime{period("2024-02-01", "2024-03-01", "10")},
	}, nil
}

func TestCostsFollowsPageTokens(t *testing.T) {
	mock := &MockCostExplorerClient{}
	recs, err := engine.Drain(context.Background(), (&Billing{Client: mock}).Costs("2024-01-01", "2024-03-01", "BlendedCost").List())
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 || len(mock.Calls) != 2 || mock.Calls[1] != "t2" {
		t.Fatalf("records = %v calls = %v", recs, mock.Calls)
	}
	if recs[0].ID != "2024-01-01/2024-02-01" || recs[0].String(AttrDisplayAmount) != "1,234.5" {
		t.Errorf("first period = %s %q", recs[0].ID, recs[0].String(AttrDisplayAmount))
	}
}

type MockECRClient struct {
	Failures []ecrtypes.ImageFailure
}

func (m *MockECRClient) DescribeImages(ctx context.Context, params *ecr.DescribeImagesInput, optFns ...func(*ecr.Options)) (*ecr.DescribeImagesOutput, error) {
	if params.Filter == nil || params.Filter.TagStatus != ecrtypes.TagStatusUntagged {
		return nil, errors.New("expected untagged filter")
	}
	return &ecr.DescribeImagesOutput{ImageDetails: []ecrtypes.ImageDetail{
		{ImageDigest: aws.String("sha256:abc"), ImageSizeInBytes: aws.Int64(2048), ImagePushedAt: aws.Time(time.Now())},
	}}, nil
}

func (m *MockECRClient) BatchDeleteImage(ctx context.Context, params *ecr.BatchDeleteImageInput, optFns ...func(*ecr.Options)) (*ecr.BatchDeleteImageOutput, error) {
	return &ecr.BatchDeleteImageOutput{Failures: m.Failures}, nil
}

func TestECRDeleteReportsBodyFailures(t *testing.T) {
	mock := &MockECRClient{Failures: []ecrtypes.ImageFailure{{FailureCode: ecrtypes.ImageFailureCodeImageNotFound, FailureReason: aws.String("gone")}}}
	svc := &ECR{Client: mock}
	recs, err := engine.Drain(context.Background(), svc.UntaggedImages("app").List())
	if err != nil {
		t.Fatal(err)
	}
	if recs[0].ID != "app@sha256:abc" || recs[0].String("displaySize") != "2.0 KiB" {
		t.Errorf("record = %s %q", recs[0].ID, recs[0].String("displaySize"))
	}
	if _, err := svc.Delete(context.Background(), recs[0]); err == nil || !strings.Contains(err.Error(), "gone") {
		t.Errorf("err = %v", err)
	}
}

type MockLambdaClient struct {
	Deleted []string
}

func (m *MockLambdaClient) ListVersionsByFunction(ctx context.Context, params *lambda.ListVersionsByFunctionInput, optFns ...func(*lambda.Options)) (*lambda.ListVersionsByFunctionOutput, error) {
	return &lambda.ListVersionsByFunctionOutput{Versions: []lambdatypes.FunctionConfiguration{
		{Version: aws.String("$LATEST"), LastModified: aws.String("2024-05-01T10:00:00.000+0000")},
		{Version: aws.String("1"), LastModified: aws.String("2024-04-01T10:00:00.000+0000")},
		{Version: aws.String("2")},
	}}, nil
}

func (m *MockLambdaClient) ListAliases(ctx context.Context, params *lambda.ListAliasesInput, optFns ...func(*lambda.Options)) (*lambda.ListAliasesOutput, error) {
	return &lambda.ListAliasesOutput{Aliases: []lambdatypes.AliasConfiguration{{Name: aws.String("live"), FunctionVersion: aws.String("2")}}}, nil
}

func (m *MockLambdaClient) DeleteFunction(ctx context.Context, params *lambda.DeleteFunctionInput, optFns ...func(*lambda.Options)) (*lambda.DeleteFunctionOutput, error) {
	m.Deleted = append(m.Deleted, aws.ToString(params.FunctionName)+":"+aws.ToString(params.Qualifier))
	return &lambda.DeleteFunctionOutput{}, nil
}

func (m *MockLambdaClient) UpdateFunctionCode(ctx context.Context, params *lambda.UpdateFunctionCodeInput, optFns ...func(*lambda.Options)) (*lambda.UpdateFunctionCodeOutput, error) {
	return &lambda.UpdateFunctionCodeOutput{FunctionArn: aws.String("arn:aws:lambda:us-east-1:123:function:" + aws.ToString(params.FunctionName))}, nil
}

func TestLambdaVersions(t *testing.T) {
	mock := &MockLambdaClient{}
	svc := &Lambda{Client: mock}
	ctx := context.Background()

	recs, err := engine.Drain(ctx, svc.Versions("fn").List())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := recs[1].Time(engine.AttrCreatedAt); !ok {
		t.Error("LastModified not parsed")
	}
	aliased, err := svc.AliasedVersions(ctx, "fn")
	if err != nil {
		t.Fatal(err)
	}
	if !aliased["2"] || aliased["1"] {
		t.Errorf("aliased = %v", aliased)
	}
	if _, err := svc.Delete(ctx, recs[1]); err != nil {
		t.Fatal(err)
	}
	if len(mock.Deleted) != 1 || mock.Deleted[0] != "fn:1" {
		t.Errorf("deleted = %v", mock.Deleted)
	}
}

