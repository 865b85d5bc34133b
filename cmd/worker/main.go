package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/viralsplit/viralsplit-backend/internal/config"
	"github.com/viralsplit/viralsplit-backend/internal/transform/repository"
	"github.com/viralsplit/viralsplit-backend/internal/worker"
	"github.com/viralsplit/viralsplit-backend/pkg/db/aws"
	"github.com/viralsplit/viralsplit-backend/pkg/db/postgres"
	clientRedis "github.com/viralsplit/viralsplit-backend/pkg/db/redis"
	"github.com/viralsplit/viralsplit-backend/pkg/logger"
)

// The worker binary is only meaningful with the redis queue backend: it
// claims jobs pushed by API instances and drives them to a terminal state.
func main() {
	configFile := "config.yml"
	cfgFile, err := config.LoadConfig(configFile)
	if err != nil {
		log.Fatalf("loadConfig: %v", err)
	}
	cfg, err := config.ParseConfig(cfgFile)
	if err != nil {
		log.Fatalf("parseConfig: %v", err)
	}
	appLogger := logger.NewApiLogger(cfg)
	appLogger.InitLogger()
	appLogger.Infof("AppVersion: %s, LogLevel: %s, Mode: %s", cfg.Server.AppVersion, cfg.Logger.Level, cfg.Server.Mode)

	psqlDB, err := postgres.NewPsqlDB(cfg)
	if err != nil {
		appLogger.Fatalf("could not connect to db: %s", err)
	}
	appLogger.Infof("db connected, status: %#v", psqlDB.Stats())
	defer psqlDB.Close()

	redisClient, err := clientRedis.NewRedisClient(cfg)
	if err != nil {
		appLogger.Fatalf("could not connect to redis: %s", err)
	}
	appLogger.Infof("redis connected")
	defer redisClient.Close()

	s3Client, presignClient, err := aws.NewAWSClient(cfg.S3.Endpoint, cfg.S3.Region, cfg.S3.AccessKey, cfg.S3.SecretKey)
	if err != nil {
		appLogger.Fatalf("could not connect to s3: %s", err)
	}

	store := repository.NewRedisStore(redisClient, appLogger)
	mirror := repository.NewTransformRedisRepo(redisClient)
	archiveRepo := repository.NewArchiveRepo(psqlDB)
	awsRepo := repository.NewAwsRepository(s3Client, presignClient, cfg.S3.InputBucket, cfg.S3.CDNBase)

	queue := worker.NewRedisJobQueue(redisClient, cfg.Worker.QueueDepth, appLogger)
	fetcher := worker.NewMediaFetcher(cfg, awsRepo, appLogger)
	analyzer := worker.NewFFProbeAnalyzer(cfg)
	transcoder := worker.NewFFMpegTranscoder(cfg, appLogger)
	processor := worker.NewProcessor(cfg, store, awsRepo, fetcher, analyzer, transcoder, appLogger)
	pool := worker.NewWorker(cfg, queue, processor, appLogger)
	sweeper := worker.NewSweeper(cfg, store, archiveRepo, mirror, appLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	queue.Start(ctx)
	pool.Start(ctx)
	go sweeper.Run(ctx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	appLogger.Infof("shutting down worker")
	queue.Close()
	cancel()
	pool.Wait()
}
