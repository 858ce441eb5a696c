package main

import (
	"context"
	"database/sql"
	"os"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/joho/godotenv"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
	"google.golang.org/adk/runner"
	"google.golang.org/adk/session"

	"github.com/saisaket2004/ai-resume-analyzer/internal/database"
)

func main() {
	_ = godotenv.Load()

	zlog, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer zlog.Sync()
	logger := zlog.Sugar()

	dbUrl := os.Getenv("DB_URL")
	if dbUrl == "" {
		logger.Fatal("empty DB_URL in environment")
	}

	rabbitmqUrl := os.Getenv("RABBITMQ_URL")
	if rabbitmqUrl == "" {
		logger.Fatal("empty RABBITMQ_URL in env")
	}

	db, err := sql.Open("postgres", dbUrl)
	if err != nil {
		logger.Fatalw("error opening db", "err", err)
	}

	dbqueries := database.New(db)

	r2AccountId := os.Getenv("R2_ACCCOUNT_ID")
	if r2AccountId == "" {
		logger.Fatal("empty R2_ACCCOUNT_ID in environment")
	}
	r2Bucket := os.Getenv("R2_BUCKET")
	if r2Bucket == "" {
		logger.Fatal("empty R2_BUCKET in environment")
	}
	r2SecretKey := os.Getenv("R2_SECRET_KEY")
	if r2SecretKey == "" {
		logger.Fatal("empty R2_SECRET_KEY in environment")
	}
	r2AccessKey := os.Getenv("R2_ACCESS_KEY")
	if r2AccessKey == "" {
		logger.Fatal("empty R2_ACCESS_KEY in environment")
	}
	r2Config := R2Config{
		AccountID: r2AccountId,
		AccessKey: r2AccessKey,
		SecretKey: r2SecretKey,
		Bucket:    r2Bucket,
	}
	awsConfig, err := config.LoadDefaultConfig(context.TODO(),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(r2Config.AccessKey, r2Config.SecretKey, "")),
		config.WithRegion("auto"),
	)
	if err != nil {
		logger.Fatalw("error creating aws config", "err", err)
	}

	// The AI agent is optional. Without a key the workers fall back to
	// keyword-only scoring.
	agentName := "resume analyzer"
	var agentRunner *runner.Runner
	var agentSessions session.Service
	googleApiKey := os.Getenv("GOOGLE_API_KEY")
	if googleApiKey != "" {
		analyzer, err := GetAgent(googleApiKey, agentName)
		if err != nil {
			logger.Fatalw("failed to create agent", "err", err)
		}

		agentSessions = session.InMemoryService()
		agentRunner, err = runner.New(runner.Config{
			AppName:        analyzer.Name(),
			Agent:          analyzer,
			SessionService: agentSessions,
		})
		if err != nil {
			logger.Fatalw("failed to create runner", "err", err)
		}
	} else {
		logger.Info("GOOGLE_API_KEY not set, AI analysis disabled")
	}

	conn, err := amqp.Dial(rabbitmqUrl)
	if err != nil {
		logger.Fatalw("error connecting to RabbitMQ", "err", err)
	}

	workerConfig := WorkerConfig{
		AgentName:           agentName,
		AgentRunner:         agentRunner,
		AgentSessionService: agentSessions,
		DB:                  dbqueries,
		R2:                  &r2Config,
		AwsConfig:           &awsConfig,
		RABBITMQUrl:         rabbitmqUrl,
		RabbitConn:          conn,
		Logger:              logger,
	}

	numWorkers := envInt(logger, "WORKER_COUNT", 3)
	logger.Infow("starting consumer worker pool", "workers", numWorkers)
	go workerConfig.StartConsumerWorkerPool(numWorkers)

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}
	maxUploadMB := envInt(logger, "MAX_UPLOAD_MB", 10)

	server, err := NewServer(ServerConfig{
		DB:             dbqueries,
		R2:             &r2Config,
		AwsConfig:      &awsConfig,
		RabbitConn:     conn,
		Logger:         logger,
		MaxUploadBytes: int64(maxUploadMB) << 20,
		Port:           port,
	})
	if err != nil {
		logger.Fatalw("failed to create server", "err", err)
	}
	if err := server.Start(); err != nil {
		logger.Fatalw("server stopped", "err", err)
	}
}

func envInt(logger *zap.SugaredLogger, key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		logger.Fatalw("invalid value in environment", "key", key, "value", v)
	}
	return n
}
