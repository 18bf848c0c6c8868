package engine

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	bda "github.com/aws/aws-sdk-go-v2/service/bedrockdataautomation"
	bdatypes "github.com/aws/aws-sdk-go-v2/service/bedrockdataautomation/types"
	bdart "github.com/aws/aws-sdk-go-v2/service/bedrockdataautomationruntime"
	bdarttypes "github.com/aws/aws-sdk-go-v2/service/bedrockdataautomationruntime/types"
)

// BDAClient implements Client on Bedrock Data Automation.
type BDAClient struct {
	control *bda.Client
	runtime *bdart.Client
}

// NewBDAClient creates an engine client from the control-plane and
// runtime Bedrock Data Automation clients.
func NewBDAClient(control *bda.Client, runtime *bdart.Client) *BDAClient {
	return &BDAClient{control: control, runtime: runtime}
}

// ListBlueprints returns all blueprints in the given lifecycle stage,
// following pagination transparently.
func (c *BDAClient) ListBlueprints(ctx context.Context, stage string) ([]Blueprint, error) {
	var blueprints []Blueprint
	var nextToken *string

	for {
		out, err := c.control.ListBlueprints(ctx, &bda.ListBlueprintsInput{
			BlueprintStageFilter: bdatypes.BlueprintStageFilter(stage),
			NextToken:            nextToken,
		})
		if err != nil {
			return nil, fmt.Errorf("list blueprints: %w", err)
		}

		for _, b := range out.Blueprints {
			blueprints = append(blueprints, Blueprint{
				Name: aws.ToString(b.BlueprintName),
				ARN:  aws.ToString(b.BlueprintArn),
			})
		}

		if out.NextToken == nil {
			return blueprints, nil
		}
		nextToken = out.NextToken
	}
}

// CreateBlueprint registers a LIVE document blueprint from a JSON schema.
func (c *BDAClient) CreateBlueprint(ctx context.Context, name string, schema []byte) (string, error) {
	out, err := c.control.CreateBlueprint(ctx, &bda.CreateBlueprintInput{
		BlueprintName:  aws.String(name),
		Type:           bdatypes.TypeDocument,
		BlueprintStage: bdatypes.BlueprintStageLive,
		Schema:         aws.String(string(schema)),
	})
	if err != nil {
		return "", fmt.Errorf("create blueprint %s: %w", name, err)
	}
	return aws.ToString(out.Blueprint.BlueprintArn), nil
}

// InvokeJob submits an asynchronous data-automation job with completion
// notifications enabled on the event bus.
func (c *BDAClient) InvokeJob(ctx context.Context, req InvokeRequest) (string, error) {
	input := &bdart.InvokeDataAutomationAsyncInput{
		InputConfiguration: &bdarttypes.InputConfiguration{
			S3Uri: aws.String(req.InputURI),
		},
		OutputConfiguration: &bdarttypes.OutputConfiguration{
			S3Uri: aws.String(req.OutputURI),
		},
		NotificationConfiguration: &bdarttypes.NotificationConfiguration{
			EventBridgeConfiguration: &bdarttypes.EventBridgeConfiguration{
				EventBridgeEnabled: aws.Bool(true),
			},
		},
		Blueprints: []bdarttypes.Blueprint{
			{BlueprintArn: aws.String(req.BlueprintARN)},
		},
	}
	if req.ProfileARN != "" {
		input.DataAutomationProfileArn = aws.String(req.ProfileARN)
	}

	out, err := c.runtime.InvokeDataAutomationAsync(ctx, input)
	if err != nil {
		return "", fmt.Errorf("invoke data automation: %w", err)
	}
	return aws.ToString(out.InvocationArn), nil
}

// GetStatus queries a submitted job.
func (c *BDAClient) GetStatus(ctx context.Context, invocationARN string) (Status, error) {
	out, err := c.runtime.GetDataAutomationStatus(ctx, &bdart.GetDataAutomationStatusInput{
		InvocationArn: aws.String(invocationARN),
	})
	if err != nil {
		return Status{}, fmt.Errorf("get data automation status: %w", err)
	}

	status := Status{State: string(out.Status)}
	if out.OutputConfiguration != nil {
		status.OutputURI = aws.ToString(out.OutputConfiguration.S3Uri)
	}
	return status, nil
}
