package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
	"google.golang.org/adk/agent"
	"google.golang.org/adk/session"
	"google.golang.org/genai"

	"github.com/saisaket2004/ai-resume-analyzer/internal/database"
	"github.com/saisaket2004/ai-resume-analyzer/internal/extract"
	"github.com/saisaket2004/ai-resume-analyzer/internal/match"
	"github.com/saisaket2004/ai-resume-analyzer/internal/report"
)

// analyzeSession runs the full pipeline for every resume in a session:
// download, text extraction, keyword scoring, optional AI enrichment, then
// report rendering and DB persistence. Failures are retried selectively:
// network & DB retries only where needed. A resume that cannot be analyzed
// becomes an error entry in the results, never a session failure.
func analyzeSession(currentSession Session, workerConfig *WorkerConfig) error {
	ctx := context.Background()
	logger := workerConfig.Logger

	resumes, err := workerConfig.DB.GetResumesBySession(ctx, currentSession.ID)
	if err != nil {
		return fmt.Errorf("error getting resumes for session: %v, err: %v", currentSession.ID, err)
	}

	results := &AnalysesResults{
		SessionID: currentSession.ID,
	}
	matcher := match.NewMatcher(currentSession.JobDescription)

	// One agent session per analysis session, reused across resumes.
	var agentAppName, agentUserID, agentSessionID string
	if workerConfig.AgentRunner != nil {
		agentSession, err := workerConfig.AgentSessionService.Create(ctx, &session.CreateRequest{
			AppName:   workerConfig.AgentName,
			UserID:    currentSession.ID.String(),
			SessionID: currentSession.ID.String(),
		})
		if err != nil {
			return fmt.Errorf("failed to create agent session: %w", err)
		}
		agentAppName = agentSession.Session.AppName()
		agentUserID = agentSession.Session.UserID()
		agentSessionID = agentSession.Session.ID()
		defer func() {
			err := workerConfig.AgentSessionService.Delete(ctx, &session.DeleteRequest{
				AppName:   agentAppName,
				UserID:    agentUserID,
				SessionID: agentSessionID,
			})
			if err != nil {
				logger.Warnw("failed to delete agent session", "session_id", currentSession.ID, "err", err)
			}
		}()
	}

	awsClient := NewR2Client(workerConfig.AwsConfig, workerConfig.R2)

	for _, resume := range resumes {
		result := AnalysisResult{
			ResumeID: resume.ID,
			Filename: resume.OriginalFilename,
		}

		// Retry downloading the file, network failures are transient.
		fileBytes, err := retry(3, func() ([]byte, error) {
			return DownloadFromR2(ctx, awsClient, workerConfig.R2.Bucket, resume.ObjectKey)
		})
		if err != nil {
			logger.Warnw("failed to download resume after retries", "object_key", resume.ObjectKey, "err", err)
			result.IsErrorResult = true
			result.Error = fmt.Sprintf("file download error: %v", err)
			results.Results = append(results.Results, result)
			continue
		}

		resumeText, err := extract.Text(resume.Mime, fileBytes)
		if err != nil {
			logger.Warnw("text extraction failed", "object_key", resume.ObjectKey, "err", err)
			result.IsErrorResult = true
			result.Error = fmt.Sprintf("text extraction error: %v", err)
			results.Results = append(results.Results, result)
			continue
		}

		// Keyword matching always runs and always produces a bounded score.
		matchResult := matcher.Match(resumeText)
		result.MatchScore = matchResult.Score
		result.Coverage = matchResult.Coverage
		result.MatchedKeywords = matchResult.Matched
		result.MissingKeywords = matchResult.Missing
		result.CandidateEmail = match.Email(resumeText)

		if workerConfig.AgentRunner != nil {
			enrichWithAgent(ctx, workerConfig, agentUserID, agentSessionID, currentSession, resumeText, &result)
		}

		results.Results = append(results.Results, result)
	}
	logger.Infow("session analyzed", "session_id", currentSession.ID, "resumes", len(results.Results))

	// Render the report only once every resume has a result entry.
	reportBytes, err := buildSessionReport(currentSession, results)
	if err != nil {
		return fmt.Errorf("failed to build report: %w", err)
	}
	reportKey := reportObjectKey(currentSession.ID.String())
	_, err = retry(3, func() (any, error) {
		return nil, UploadToR2(ctx, awsClient, workerConfig.R2.Bucket, reportKey, "application/pdf", reportBytes)
	})
	if err != nil {
		return fmt.Errorf("failed to upload report after retries: %w", err)
	}
	_, err = retry(3, func() (any, error) {
		return nil, workerConfig.DB.CreateOrUpdateReport(ctx, database.CreateOrUpdateReportParams{
			ObjectKey: reportKey,
			SizeBytes: int64(len(reportBytes)),
			SessionID: currentSession.ID,
		})
	})
	if err != nil {
		return fmt.Errorf("failed to save report record after retries: %w", err)
	}

	resultsJSON, err := json.Marshal(results.Results)
	if err != nil {
		return fmt.Errorf("failed to marshal analyses results: %w", err)
	}

	_, err = retry(3, func() (any, error) {
		return nil, workerConfig.DB.CreateOrUpdateAnalysesResults(ctx, database.CreateOrUpdateAnalysesResultsParams{
			Results:   resultsJSON,
			SessionID: results.SessionID,
		})
	})
	if err != nil {
		return fmt.Errorf("failed to save analyses results after retries: %w", err)
	}

	return nil
}

// enrichWithAgent asks the AI agent for a deeper analysis and merges it into
// the keyword result. Agent failures are logged and swallowed: the keyword
// score stands on its own.
func enrichWithAgent(ctx context.Context, workerConfig *WorkerConfig, agentUserID, agentSessionID string, currentSession Session, resumeText string, result *AnalysisResult) {
	msg := fmt.Sprintf(
		"Job Title:\n%s\n\nJob Description:\n%s\n\nResume:\n%s",
		currentSession.JobTitle,
		currentSession.JobDescription,
		resumeText,
	)

	// Retry the agent stream separately, transient agent failures are common.
	finalOutput, streamErr := retry(2,
		func() (string, error) {
			stream := workerConfig.AgentRunner.Run(ctx, agentUserID, agentSessionID, &genai.Content{
				Role: "user",
				Parts: []*genai.Part{
					{Text: msg},
				},
			}, agent.RunConfig{})

			var output string
			for event, err := range stream {
				if err != nil {
					return "", err
				}
				if event != nil && event.IsFinalResponse() && len(event.Content.Parts) > 0 {
					output = event.Content.Parts[0].Text
				}
			}

			if output == "" {
				return "", fmt.Errorf("empty agent response")
			}
			return output, nil
		})
	if streamErr != nil {
		workerConfig.Logger.Warnw("agent failed after retries, keeping keyword score", "session_id", currentSession.ID, "err", streamErr)
		return
	}

	var analysis agentAnalysis
	if err := json.Unmarshal([]byte(CleanJson(finalOutput)), &analysis); err != nil {
		workerConfig.Logger.Warnw("agent returned unparseable JSON, keeping keyword score", "session_id", currentSession.ID, "err", err)
		return
	}

	result.MatchScore = match.Clamp(analysis.MatchScore)
	result.RelevantSkills = analysis.RelevantSkills
	result.MissingSkills = analysis.MissingSkills
	result.Summary = analysis.Summary
	result.Recommendation = analysis.Recommendation
	if result.CandidateEmail == "" {
		result.CandidateEmail = analysis.CandidateEmail
	}
}

func buildSessionReport(currentSession Session, results *AnalysesResults) ([]byte, error) {
	data := report.Data{
		SessionName: currentSession.Name,
		JobTitle:    currentSession.JobTitle,
		GeneratedAt: time.Now(),
	}
	for _, r := range results.Results {
		data.Resumes = append(data.Resumes, report.ResumeSection{
			Filename:       r.Filename,
			Score:          r.MatchScore,
			Coverage:       r.Coverage,
			Matched:        r.MatchedKeywords,
			Missing:        r.MissingKeywords,
			Summary:        r.Summary,
			Recommendation: r.Recommendation,
			Err:            r.Error,
		})
	}
	return report.Build(data)
}

func worker(id int, workerConfig *WorkerConfig, wg *sync.WaitGroup) {
	defer wg.Done()
	logger := workerConfig.Logger

	conn, err := amqp.Dial(workerConfig.RABBITMQUrl)
	if err != nil {
		logger.Fatalw("error dialling rabbitmq", "err", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Fatalw("error connecting to rabbitmq channel", "err", err)
	}
	defer ch.Close()
	_, err = ch.QueueDeclare(
		analysesQueue, // queue name
		true,          // durable (survives broker restarts)
		false,         // auto-delete when unused
		false,         // exclusive
		false,         // no-wait
		nil,           // arguments
	)
	if err != nil {
		logger.Fatalw("failed to declare queue", "err", err)
	}

	msgs, err := ch.Consume(
		analysesQueue, // queue name
		"",            // consumer tag
		true,          // auto-ack
		false,         // exclusive
		false,         // no-local
		false,         // no-wait
		nil,           // arguments
	)
	if err != nil {
		logger.Fatalw("error consuming rabbitmq message", "err", err)
	}

	for msg := range msgs {
		currentSession, err := decodeSession(msg.Body)
		if err != nil {
			// No session id to report against, so the message is dropped.
			logger.Errorw("discarding undecodable message", "err", err)
			continue
		}
		logger.Infow("processing session", "worker", id+1, "session_id", currentSession.ID)

		update := map[string]any{
			"session_id": currentSession.ID,
			"status":     StatusProcessing,
			"message":    "analysis started",
			"timestamp":  time.Now(),
		}
		if err := publishSessionUpdate(workerConfig.RabbitConn, currentSession.ID.String(), update); err != nil {
			logger.Warnw("failed to publish update", "err", err)
		}
		setSessionStatus(workerConfig.DB, logger, currentSession.ID, StatusProcessing)

		err = analyzeSession(currentSession, workerConfig)
		if err != nil {
			logger.Errorw("error analyzing session", "session_id", currentSession.ID, "err", err)
			markSessionFailed(workerConfig, currentSession)
			continue
		}

		setSessionStatus(workerConfig.DB, logger, currentSession.ID, StatusCompleted)
		update = map[string]any{
			"session_id": currentSession.ID,
			"status":     StatusCompleted,
			"message":    "analysis completed",
			"timestamp":  time.Now(),
		}
		if err := publishSessionUpdate(workerConfig.RabbitConn, currentSession.ID.String(), update); err != nil {
			logger.Warnw("failed to publish update", "err", err)
		}
	}
}

// decodeSession parses a queued analysis message. A message without a valid
// session id cannot be analyzed or marked failed, so it is rejected here.
func decodeSession(body []byte) (Session, error) {
	currentSession := Session{}
	if err := json.Unmarshal(body, &currentSession); err != nil {
		return Session{}, fmt.Errorf("error unmarshalling message body: %w", err)
	}
	if currentSession.ID == uuid.Nil {
		return Session{}, fmt.Errorf("message carries no session id")
	}
	return currentSession, nil
}

// setSessionStatus persists a status transition. Without the retries a
// transient DB error would strand the session in "processing" forever, since
// the message is already consumed.
func setSessionStatus(db *database.Queries, logger *zap.SugaredLogger, sessionID uuid.UUID, status string) {
	_, err := retry(3, func() (struct{}, error) {
		return struct{}{}, db.UpdateSessionStatus(context.Background(), database.UpdateSessionStatusParams{
			Status: status,
			ID:     sessionID,
		})
	})
	if err != nil {
		logger.Errorw("failed to update session status", "session_id", sessionID, "status", status, "err", err)
	}
}

func markSessionFailed(workerConfig *WorkerConfig, currentSession Session) {
	setSessionStatus(workerConfig.DB, workerConfig.Logger, currentSession.ID, StatusFailed)
	update := map[string]any{
		"session_id": currentSession.ID,
		"status":     StatusFailed,
		"message":    "analysis failed",
		"timestamp":  time.Now(),
	}
	if err := publishSessionUpdate(workerConfig.RabbitConn, currentSession.ID.String(), update); err != nil {
		workerConfig.Logger.Warnw("failed to publish update", "err", err)
	}
}

func (workerConfig *WorkerConfig) StartConsumerWorkerPool(numWorkers int) {
	var wg sync.WaitGroup
	wg.Add(numWorkers)

	for i := range numWorkers {
		workerConfig.Logger.Infow("worker started", "worker", i+1)
		go worker(i, workerConfig, &wg)
	}
	wg.Wait() // block until all workers finish
}
