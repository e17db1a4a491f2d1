package aws

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/DrSkyle/cloudsweep/pkg/engine"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dustin/go-humanize"
)

type DynamoDBAPI interface {
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// TableExporter scans a table and writes every item to S3 as one JSON array.
type TableExporter struct {
	DB DynamoDBAPI
	S3 S3API
}

// AttrItems holds the scanned items of a table record.
const AttrItems = "items"

// Contents lists table as one record carrying every item. The scan runs to
// the last page before the record is produced.
func (t *TableExporter) Contents(table string) engine.Lister {
	return engine.CursorLister(func(ctx context.Context, _ string) ([]engine.ResourceRecord, string, error) {
		items, err := t.scan(ctx, table)
		if err != nil {
			return nil, "", err
		}
		rec := engine.NewRecord(table, KindTable, map[string]any{
			engine.AttrName: table,
			AttrItems:       items,
			"itemCount":     len(items),
		})
		return []engine.ResourceRecord{rec}, "", nil
	})
}

// Export uploads the items Contents attached to rec. It never scans.
func (t *TableExporter) Export(ctx context.Context, rec engine.ResourceRecord, bucket, key string) (engine.Result, error) {
	raw, ok := rec.Attr(AttrItems)
	if !ok {
		return engine.Result{}, fmt.Errorf("table %s was not scanned", rec.ID)
	}
	items, ok := raw.([]map[string]any)
	if !ok {
		return engine.Result{}, fmt.Errorf("table %s carries %T, not items", rec.ID, raw)
	}
	body, err := json.MarshalIndent(items, "", "    ")
	if err != nil {
		return engine.Result{}, fmt.Errorf("failed to encode items of %s: %w", rec.ID, err)
	}
	if err := (&S3{Client: t.S3}).Put(ctx, bucket, key, "application/json", body); err != nil {
		return engine.Result{}, err
	}
	return engine.Result{
		Ref: fmt.Sprintf("s3://%s/%s", bucket, key),
		Details: map[string]string{
			"items": humanize.Comma(int64(len(items))),
			"size":  humanize.IBytes(uint64(len(body))),
		},
	}, nil
}

func (t *TableExporter) scan(ctx context.Context, table string) ([]map[string]any, error) {
	items := []map[string]any{}
	p := dynamodb.NewScanPaginator(t.DB, &dynamodb.ScanInput{TableName: aws.String(table)})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", table, err)
		}
		for _, item := range page.Items {
			items = append(items, plainItem(item))
		}
	}
	return items, nil
}

func plainItem(item map[string]types.AttributeValue) map[string]any {
	out := make(map[string]any, len(item))
	for k, v := range item {
		out[k] = plainValue(v)
	}
	return out
}

// plainValue unwraps the attribute value union. Numbers stay json.Number so
// their precision survives encoding.
func plainValue(av types.AttributeValue) any {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return v.Value
	case *types.AttributeValueMemberN:
		return json.Number(v.Value)
	case *types.AttributeValueMemberBOOL:
		return v.Value
	case *types.AttributeValueMemberNULL:
		return nil
	case *types.AttributeValueMemberB:
		return v.Value
	case *types.AttributeValueMemberSS:
		return v.Value
	case *types.AttributeValueMemberNS:
		nums := make([]json.Number, len(v.Value))
		for i, n := range v.Value {
			nums[i] = json.Number(n)
		}
		return nums
	case *types.AttributeValueMemberBS:
		return v.Value
	case *types.AttributeValueMemberL:
		list := make([]any, len(v.Value))
		for i, e := range v.Value {
			list[i] = plainValue(e)
		}
		return list
	case *types.AttributeValueMemberM:
		return plainItem(v.Value)
	}
	return nil
}
