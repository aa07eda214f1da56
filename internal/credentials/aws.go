package credentials

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
)

// SecretsManagerAPI is the subset of the Secrets Manager client used here
type SecretsManagerAPI interface {
	GetSecretValue(
		ctx context.Context,
		params *secretsmanager.GetSecretValueInput,
		optFns ...func(*secretsmanager.Options),
	) (*secretsmanager.GetSecretValueOutput, error)
}

// RegionDetect asks the instance metadata service for the region
const RegionDetect = "detect"

// RegionAPI is the subset of the IMDS client used to detect the region
type RegionAPI interface {
	GetRegion(ctx context.Context, params *imds.GetRegionInput, optFns ...func(*imds.Options)) (*imds.GetRegionOutput, error)
}

// ResolveRegion returns region, or asks api for it when region is RegionDetect
func ResolveRegion(ctx context.Context, region string, api RegionAPI) (string, error) {
	if region != RegionDetect {
		return region, nil
	}
	out, err := api.GetRegion(ctx, &imds.GetRegionInput{})
	if err != nil {
		return "", fmt.Errorf("failed to get region from IMDS: %w", err)
	}
	return out.Region, nil
}

// AWSSecretsManager reads secrets from AWS Secrets Manager
type AWSSecretsManager struct {
	api SecretsManagerAPI
}

// NewAWSSecretsManager loads the default AWS configuration and creates a
// Secrets Manager backed source. endpoint overrides the service endpoint when set.
// A region of "detect" is looked up from the instance metadata service.
func NewAWSSecretsManager(ctx context.Context, region, endpoint string) (*AWSSecretsManager, error) {
	region, err := ResolveRegion(ctx, region, imds.New(imds.Options{
		HTTPClient: &http.Client{Timeout: 2 * time.Second},
	}))
	if err != nil {
		return nil, err
	}

	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	api := secretsmanager.NewFromConfig(cfg, func(o *secretsmanager.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	return NewAWSSecretsManagerWithAPI(api), nil
}

// NewAWSSecretsManagerWithAPI wraps an existing client
func NewAWSSecretsManagerWithAPI(api SecretsManagerAPI) *AWSSecretsManager {
	return &AWSSecretsManager{api: api}
}

// GetSecret implements SecretSource
func (s *AWSSecretsManager) GetSecret(ctx context.Context, name string) (string, error) {
	out, err := s.api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil {
		var notFound *types.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return "", fmt.Errorf("%w: %s", ErrSecretNotFound, name)
		}
		return "", fmt.Errorf("failed to get secret %s: %w", name, err)
	}
	if out.SecretString == nil || *out.SecretString == "" {
		return "", fmt.Errorf("%w: %s", ErrSecretEmpty, name)
	}
	return *out.SecretString, nil
}
