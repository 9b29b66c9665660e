package dbauth

import (
	"context"
	"fmt"
	"net/http"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"
	"github.com/aws/aws-sdk-go-v2/feature/rds/auth"

	"github.com/stacklok/toolhive-catalog-sync/internal/config"
)

// RegionDetect reads the region from the instance metadata service
const RegionDetect = "detect"

const imdsTimeout = 2 * time.Second

func awsRegion(ctx context.Context, cfg *config.DatabaseConfig) (string, error) {
	region := cfg.DynamicAuth.AWSRDSIAM.Region
	if region == "" {
		return "", fmt.Errorf("AWS RDS IAM region is not configured")
	}
	if region != RegionDetect {
		return region, nil
	}

	client := imds.New(imds.Options{HTTPClient: &http.Client{Timeout: imdsTimeout}})
	out, err := client.GetRegion(ctx, &imds.GetRegionInput{})
	if err != nil {
		return "", fmt.Errorf("failed to get region from IMDS: %w", err)
	}
	return out.Region, nil
}

// awsToken signs an RDS IAM token for user with the workload credentials
func awsToken(ctx context.Context, cfg *config.DatabaseConfig, region, user string) (string, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return "", fmt.Errorf("failed to load AWS config: %w", err)
	}

	endpoint := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	token, err := auth.BuildAuthToken(ctx, endpoint, region, user, awsCfg.Credentials)
	if err != nil {
		return "", fmt.Errorf("failed to build authentication token: %w", err)
	}
	return token, nil
}
