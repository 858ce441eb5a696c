package main

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"github.com/saisaket2004/ai-resume-analyzer/internal/database"
)

//go:embed templates/index.html
var templatesFS embed.FS

// Server exposes the upload UI and the analysis API.
type Server struct {
	db             *database.Queries
	r2             *R2Config
	awsConfig      *aws.Config
	rabbitConn     *amqp.Connection
	logger         *zap.SugaredLogger
	maxUploadBytes int64
	port           string
	indexTmpl      *template.Template
}

type ServerConfig struct {
	DB             *database.Queries
	R2             *R2Config
	AwsConfig      *aws.Config
	RabbitConn     *amqp.Connection
	Logger         *zap.SugaredLogger
	MaxUploadBytes int64
	Port           string
}

func NewServer(cfg ServerConfig) (*Server, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse index template: %w", err)
	}
	return &Server{
		db:             cfg.DB,
		r2:             cfg.R2,
		awsConfig:      cfg.AwsConfig,
		rabbitConn:     cfg.RabbitConn,
		logger:         cfg.Logger,
		maxUploadBytes: cfg.MaxUploadBytes,
		port:           cfg.Port,
		indexTmpl:      tmpl,
	}, nil
}

// Start blocks serving HTTP until the listener fails.
func (s *Server) Start() error {
	r := mux.NewRouter()
	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/analyses", s.handleCreateAnalysis).Methods(http.MethodPost)
	api.HandleFunc("/analyses/{id}", s.handleGetAnalysis).Methods(http.MethodGet)
	api.HandleFunc("/analyses/{id}/report", s.handleGetReport).Methods(http.MethodGet)

	handler := cors.Default().Handler(r)

	srv := &http.Server{
		Addr:              ":" + s.port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Infow("starting API server", "port", s.port)
	return srv.ListenAndServe()
}
