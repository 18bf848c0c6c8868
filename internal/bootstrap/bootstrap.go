// Package bootstrap wires pipeline components from configuration for the
// pipeline binaries.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	bda "github.com/aws/aws-sdk-go-v2/service/bedrockdataautomation"
	bdart "github.com/aws/aws-sdk-go-v2/service/bedrockdataautomationruntime"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/inkwell-systems/invoice-pipeline/internal/annotate"
	"github.com/inkwell-systems/invoice-pipeline/internal/blobstore"
	"github.com/inkwell-systems/invoice-pipeline/internal/blueprint"
	"github.com/inkwell-systems/invoice-pipeline/internal/cache"
	"github.com/inkwell-systems/invoice-pipeline/internal/config"
	"github.com/inkwell-systems/invoice-pipeline/internal/engine"
	"github.com/inkwell-systems/invoice-pipeline/internal/normalize"
	"github.com/inkwell-systems/invoice-pipeline/internal/observability"
	"github.com/inkwell-systems/invoice-pipeline/internal/paramstore"
	"github.com/inkwell-systems/invoice-pipeline/internal/pipeline"
	"github.com/inkwell-systems/invoice-pipeline/internal/queue"
	"github.com/inkwell-systems/invoice-pipeline/internal/resolve"
	"github.com/inkwell-systems/invoice-pipeline/internal/submit"
)

// App holds the wired pipeline components shared by the binaries.
type App struct {
	Coordinator *pipeline.Coordinator
	Queue       queue.Queue
	Store       blobstore.Store
	Resolver    *resolve.Resolver
	Blueprints  *blueprint.Resolver

	closers []func() error
}

// NewProduction wires the pipeline against live collaborators.
func NewProduction(ctx context.Context, cfg *config.Config, logger *observability.Logger) (*App, error) {
	if cfg.Storage.InputBucket == "" || cfg.Storage.OutputBucket == "" {
		return nil, fmt.Errorf("input_bucket and output_bucket are required in production")
	}
	if cfg.Queue.URL == "" {
		return nil, fmt.Errorf("queue url is required in production")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Storage.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	store := blobstore.NewS3Store(s3.NewFromConfig(awsCfg))
	params := paramstore.NewSSMStore(ssm.NewFromConfig(awsCfg))
	q := queue.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.Queue.URL, cfg.Queue.VisibilityTimeout)
	eng := engine.NewBDAClient(bda.NewFromConfig(awsCfg), bdart.NewFromConfig(awsCfg))

	app := &App{Queue: q, Store: store}

	var blueprintCache cache.Client
	if cfg.Cache.Driver == "redis" {
		redisCache, err := cache.NewRedisClient(cache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			PoolSize: cfg.Cache.Redis.PoolSize,
		})
		if err != nil {
			return nil, fmt.Errorf("connect blueprint cache: %w", err)
		}
		blueprintCache = redisCache
		app.closers = append(app.closers, redisCache.Close)
	} else {
		blueprintCache = cache.NewMemoryClient()
	}

	app.assemble(cfg, logger, store, params, q, eng, blueprintCache)
	return app, nil
}

// NewOffline wires the pipeline against in-memory collaborators and a
// fake engine, with the coordinator in offline-fixture mode.
func NewOffline(cfg *config.Config, logger *observability.Logger) *App {
	store := blobstore.NewMemoryStore()
	params := paramstore.NewMemoryStore()
	q := queue.NewMemoryQueue(cfg.Queue.VisibilityTimeout)
	eng := engine.NewFakeClient()

	app := &App{Queue: q, Store: store}
	app.assemble(cfg, logger, store, params, q, eng, cache.NewMemoryClient())
	app.Coordinator.WithFixture(pipeline.DefaultFixture(
		cfg.Storage.InputBucket,
		cfg.Storage.StagingBucket,
		cfg.Storage.OutputBucket,
	))
	return app
}

func (a *App) assemble(
	cfg *config.Config,
	logger *observability.Logger,
	store blobstore.Store,
	params paramstore.Store,
	q queue.Queue,
	eng engine.Client,
	blueprintCache cache.Client,
) {
	stagingBucket := cfg.Storage.StagingBucket
	if stagingBucket == "" {
		stagingBucket = cfg.Storage.InputBucket
	}

	normalizer := normalize.New(store, stagingBucket, logger)
	blueprints := blueprint.NewResolver(eng, params, blueprintCache, cfg.Cache.TTL, cfg.Engine.BlueprintParam, logger)
	submitter := submit.New(eng, cfg.Storage.OutputBucket, cfg.Engine.OutputPrefix, cfg.Engine.ProfileARN, logger)
	resolver := resolve.New(store, eng, cfg.Engine.PollInterval, cfg.Engine.PollTimeout, logger)
	annotator := annotate.New(logger)

	a.Resolver = resolver
	a.Blueprints = blueprints
	a.Coordinator = pipeline.New(
		pipeline.Settings{
			DocTypeFolder: annotate.DocTypeInvoices,
			BlueprintName: cfg.Engine.BlueprintName,
			OutputBucket:  cfg.Storage.OutputBucket,
		},
		q, store, normalizer, blueprints, submitter, resolver, annotator, logger,
	)
}

// Close releases any held connections.
func (a *App) Close() error {
	var errs []error
	for _, closer := range a.closers {
		if err := closer(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
