package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/viralsplit/viralsplit-backend/internal/transform"
	transformHttp "github.com/viralsplit/viralsplit-backend/internal/transform/delivery/http"
	"github.com/viralsplit/viralsplit-backend/internal/transform/repository"
	transformUsecase "github.com/viralsplit/viralsplit-backend/internal/transform/usecase"
	"github.com/viralsplit/viralsplit-backend/internal/worker"
	"github.com/viralsplit/viralsplit-backend/pkg/utils"
)

func (s *Server) MapHandlers(e *echo.Echo) error {
	mirror := repository.NewTransformRedisRepo(s.redisClient)
	awsRepo := repository.NewAwsRepository(s.s3Client, s.preSignClient, s.cfg.S3.InputBucket, s.cfg.S3.CDNBase)
	archiveRepo := repository.NewArchiveRepo(s.db)

	var (
		store     transform.Store
		publisher transform.Publisher
		queue     worker.Queue
	)
	if s.cfg.Worker.QueueBackend == "redis" {
		// Split deployment: jobs live in redis, a separate worker binary
		// claims and processes them.
		store = repository.NewRedisStore(s.redisClient, s.logger)
		publisher = repository.NewRedisPublisher(s.redisClient, s.logger)
		queue = worker.NewRedisJobQueue(s.redisClient, s.cfg.Worker.QueueDepth, s.logger)
	} else {
		publisher = repository.NewProgressPublisher()
		store = repository.NewMemoryStore(publisher, mirror, s.logger)
		queue = worker.NewJobQueue(s.cfg.Worker.QueueDepth, s.logger)

		fetcher := worker.NewMediaFetcher(s.cfg, awsRepo, s.logger)
		analyzer := worker.NewFFProbeAnalyzer(s.cfg)
		transcoder := worker.NewFFMpegTranscoder(s.cfg, s.logger)
		processor := worker.NewProcessor(s.cfg, store, awsRepo, fetcher, analyzer, transcoder, s.logger)

		s.queue = queue
		s.pool = worker.NewWorker(s.cfg, queue, processor, s.logger)
		s.sweeper = worker.NewSweeper(s.cfg, store, archiveRepo, mirror, s.logger)
	}

	transformUC := transformUsecase.NewTransformUseCase(s.cfg, store, queue, publisher, awsRepo, archiveRepo, s.logger)
	transformHandlers := transformHttp.NewTransformHandlers(transformUC, s.logger)

	v1 := e.Group("/api/v1")
	health := v1.Group("/health")
	transformGroup := v1.Group("/transform")

	transformHttp.MapTransformRoutes(transformGroup, transformHandlers)
	health.GET("", func(c echo.Context) error {
		s.logger.Infof("Health check RequestID: %s", utils.GetRequestID(c))
		return c.JSON(http.StatusOK, map[string]string{"status": "OK"})
	})
	return nil
}
