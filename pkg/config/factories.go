package config

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/mitchellh/mapstructure"

	"github.com/marmos91/pincache/internal/logger"
	"github.com/marmos91/pincache/pkg/store"
	"github.com/marmos91/pincache/pkg/store/badgerstore"
	"github.com/marmos91/pincache/pkg/store/memory"
	"github.com/marmos91/pincache/pkg/store/s3store"
)

// CreateStore creates a backing store based on configuration.
//
// This factory uses the Type field to pick the implementation, decodes
// the matching type-specific section and passes it to the store's
// constructor.
//
// Supported types:
//   - "memory": in-process map, no persistence
//   - "badger": embedded BadgerDB database
//   - "s3": Amazon S3 or S3-compatible object storage
func CreateStore(ctx context.Context, cfg *StoreConfig) (store.Store, error) {
	switch cfg.Type {
	case "memory":
		return memory.NewMemoryStore(), nil
	case "badger":
		return createBadgerStore(ctx, cfg.Badger)
	case "s3":
		return createS3Store(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown store type: %q", cfg.Type)
	}
}

// createBadgerStore creates a BadgerDB-backed store.
func createBadgerStore(ctx context.Context, options map[string]any) (store.Store, error) {
	type BadgerStoreConfig struct {
		Path       string `mapstructure:"path"`
		InMemory   bool   `mapstructure:"in_memory"`
		SyncWrites bool   `mapstructure:"sync_writes"`
	}

	var storeCfg BadgerStoreConfig
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode badger store config: %w", err)
	}

	if storeCfg.Path == "" && !storeCfg.InMemory {
		return nil, fmt.Errorf("badger store: path is required unless in_memory is set")
	}

	return badgerstore.NewBadgerStore(ctx, badgerstore.Config{
		Path:       storeCfg.Path,
		InMemory:   storeCfg.InMemory,
		SyncWrites: storeCfg.SyncWrites,
	})
}

// createS3Store creates an S3-backed store.
func createS3Store(ctx context.Context, options map[string]any) (store.Store, error) {
	type S3StoreConfig struct {
		Region          string `mapstructure:"region"`
		Bucket          string `mapstructure:"bucket"`
		KeyPrefix       string `mapstructure:"key_prefix"`
		Endpoint        string `mapstructure:"endpoint"`
		AccessKeyID     string `mapstructure:"access_key_id"`
		SecretAccessKey string `mapstructure:"secret_access_key"`
		MaxRetries      int    `mapstructure:"max_retries"`
	}

	var storeCfg S3StoreConfig
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode s3 store config: %w", err)
	}

	if storeCfg.Bucket == "" {
		return nil, fmt.Errorf("s3 store: bucket is required")
	}
	if storeCfg.Region == "" {
		return nil, fmt.Errorf("s3 store: region is required")
	}

	var configOptions []func(*awsConfig.LoadOptions) error

	configOptions = append(configOptions, awsConfig.WithRegion(storeCfg.Region))

	// Custom endpoint for S3-compatible storage (MinIO, Localstack, ...).
	if storeCfg.Endpoint != "" {
		customResolver := aws.EndpointResolverWithOptionsFunc(
			func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				return aws.Endpoint{
					URL:               storeCfg.Endpoint,
					SigningRegion:     storeCfg.Region,
					Source:            aws.EndpointSourceCustom,
					HostnameImmutable: true,
				}, nil
			})
		configOptions = append(configOptions, awsConfig.WithEndpointResolverWithOptions(customResolver))
	}

	// Static credentials when provided; otherwise the default chain
	// (environment, shared config, instance profile) applies.
	if storeCfg.AccessKeyID != "" && storeCfg.SecretAccessKey != "" {
		credProvider := credentials.NewStaticCredentialsProvider(
			storeCfg.AccessKeyID, storeCfg.SecretAccessKey, "")
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(credProvider))
	}

	if storeCfg.MaxRetries > 0 {
		configOptions = append(configOptions, awsConfig.WithRetryer(func() aws.Retryer {
			return retry.NewStandard(func(o *retry.StandardOptions) {
				o.MaxAttempts = storeCfg.MaxRetries
			})
		}))
	}

	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		// Path-style addressing is required by most S3-compatible
		// servers.
		if storeCfg.Endpoint != "" {
			o.UsePathStyle = true
		}
	})

	logger.Info("s3 store configured: region=%s bucket=%s endpoint=%s",
		storeCfg.Region, storeCfg.Bucket, storeCfg.Endpoint)

	return s3store.NewS3Store(ctx, s3store.Config{
		Client:    client,
		Bucket:    storeCfg.Bucket,
		KeyPrefix: storeCfg.KeyPrefix,
	})
}
