package aws

import (
	"context"

	"github.com/DrSkyle/cloudsweep/pkg/engine"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

type CloudWatchAPI interface {
	PutMetricAlarm(ctx context.Context, params *cloudwatch.PutMetricAlarmInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricAlarmOutput, error)
}

type CloudWatch struct {
	Client CloudWatchAPI
}

// CPUAlarm is the alarm the cpu-alarm command creates for one instance.
func CPUAlarm(instanceID string, threshold float64, topicARN string) engine.AlarmSpec {
	return engine.AlarmSpec{
		Name:              "CPU_Utilization_" + instanceID,
		Namespace:         "AWS/EC2",
		Metric:            "CPUUtilization",
		Statistic:         string(types.StatisticAverage),
		Comparison:        string(types.ComparisonOperatorGreaterThanThreshold),
		DimensionName:     "InstanceId",
		DimensionValue:    instanceID,
		Threshold:         threshold,
		Period:            300,
		EvaluationPeriods: 1,
		AlarmActions:      []string{topicARN},
	}
}

func (c *CloudWatch) PutAlarm(ctx context.Context, spec engine.AlarmSpec) (engine.Result, error) {
	_, err := c.Client.PutMetricAlarm(ctx, &cloudwatch.PutMetricAlarmInput{
		AlarmName:          aws.String(spec.Name),
		Namespace:          aws.String(spec.Namespace),
		MetricName:         aws.String(spec.Metric),
		Statistic:          types.Statistic(spec.Statistic),
		ComparisonOperator: types.ComparisonOperator(spec.Comparison),
		Threshold:          aws.Float64(spec.Threshold),
		Period:             aws.Int32(spec.Period),
		EvaluationPeriods:  aws.Int32(spec.EvaluationPeriods),
		AlarmActions:       spec.AlarmActions,
		Dimensions: []types.Dimension{{
			Name:  aws.String(spec.DimensionName),
			Value: aws.String(spec.DimensionValue),
		}},
	})
	if err != nil {
		return engine.Result{}, err
	}
	return engine.Result{Ref: spec.Name}, nil
}
