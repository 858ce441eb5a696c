package main

import (
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/google/uuid"
	"github.com/saisaket2004/ai-resume-analyzer/internal/database"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
	"google.golang.org/adk/runner"
	"google.golang.org/adk/session"
)

type R2Config struct {
	AccountID string
	Bucket    string
	AccessKey string
	SecretKey string
}

type WorkerConfig struct {
	DB          *database.Queries
	R2          *R2Config
	AwsConfig   *aws.Config
	RabbitConn  *amqp.Connection
	RABBITMQUrl string
	// AgentRunner is nil when no GOOGLE_API_KEY is configured; analysis then
	// runs on keyword matching alone.
	AgentRunner         *runner.Runner
	AgentSessionService session.Service
	AgentName           string
	Logger              *zap.SugaredLogger
}

// AnalysisResult is the per-resume outcome persisted for a session. The
// keyword matcher always fills the score and keyword fields; the optional AI
// agent enriches the skills, summary and recommendation fields.
type AnalysisResult struct {
	ResumeID        uuid.UUID `json:"resume_id"`
	Filename        string    `json:"filename"`
	CandidateEmail  string    `json:"candidate_email,omitempty"`
	MatchScore      int       `json:"match_score"`
	Coverage        float64   `json:"coverage"`
	MatchedKeywords []string  `json:"matched_keywords"`
	MissingKeywords []string  `json:"missing_keywords"`
	RelevantSkills  []string  `json:"relevant_skills,omitempty"`
	MissingSkills   []string  `json:"missing_skills,omitempty"`
	Summary         string    `json:"summary,omitempty"`
	Recommendation  string    `json:"recommendation,omitempty"`
	// Error result entry
	IsErrorResult bool   `json:"is_error_result"`
	Error         string `json:"error,omitempty"`
}

type AnalysesResults struct {
	ID        uuid.UUID        `json:"id"`
	Results   []AnalysisResult `json:"results" db:"results"`
	CreatedAt time.Time        `json:"created_at"`
	SessionID uuid.UUID        `json:"session_id"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// agentAnalysis is the JSON shape the AI agent is instructed to return.
type agentAnalysis struct {
	CandidateEmail string   `json:"candidate_email"`
	MatchScore     int      `json:"match_score"`
	RelevantSkills []string `json:"relevant_skills"`
	MissingSkills  []string `json:"missing_skills"`
	Summary        string   `json:"summary"`
	Recommendation string   `json:"recommendation"`
}

// Session is the queue message describing one analysis request.
type Session struct {
	ID             uuid.UUID `json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	Name           string    `json:"name"`
	Status         string    `json:"status"`
	JobTitle       string    `json:"job_title"`
	JobDescription string    `json:"job_description"`
}

// Session statuses.
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

const (
	analysesQueue          = "analyses"
	sessionUpdatesExchange = "session_updates"

	maxResumesPerRequest = 10
)
