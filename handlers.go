package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/saisaket2004/ai-resume-analyzer/internal/database"
	"github.com/saisaket2004/ai-resume-analyzer/internal/extract"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.indexTmpl.Execute(w, map[string]any{
		"MaxUploadMB": s.maxUploadBytes / (1 << 20),
	}); err != nil {
		s.logger.Errorw("failed to render index", "err", err)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// handleCreateAnalysis accepts a multipart upload of one or more resumes plus
// a job description, stores everything, and queues the session for the
// analysis workers.
func (s *Server) handleCreateAnalysis(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Cap the whole request body so an oversized upload is cut off while
	// streaming in, not after it has been spooled to disk. The cap leaves
	// room for a full batch of resumes plus form fields.
	r.Body = http.MaxBytesReader(w, r.Body, maxResumesPerRequest*s.maxUploadBytes+1<<20)

	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			respondError(w, http.StatusRequestEntityTooLarge, "request body exceeds the upload limit")
			return
		}
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid multipart form: %v", err))
		return
	}

	jobDescription := r.FormValue("job_description")
	if jobDescription == "" {
		respondError(w, http.StatusBadRequest, "job_description is required")
		return
	}
	jobTitle := r.FormValue("job_title")
	if jobTitle == "" {
		jobTitle = "Untitled role"
	}
	name := r.FormValue("name")

	files := r.MultipartForm.File["resumes"]
	if len(files) == 0 {
		files = r.MultipartForm.File["resume"]
	}
	if len(files) == 0 {
		respondError(w, http.StatusBadRequest, "at least one resume file is required")
		return
	}
	if len(files) > maxResumesPerRequest {
		respondError(w, http.StatusBadRequest,
			fmt.Sprintf("too many resumes, at most %d per analysis", maxResumesPerRequest))
		return
	}

	// Validate every file before touching storage so a bad upload never
	// leaves a half-created session behind.
	type upload struct {
		filename string
		mime     string
		data     []byte
	}
	uploads := make([]upload, 0, len(files))
	for _, fh := range files {
		if fh.Size > s.maxUploadBytes {
			respondError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("%s exceeds the %dMB upload limit", fh.Filename, s.maxUploadBytes/(1<<20)))
			return
		}

		f, err := fh.Open()
		if err != nil {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("failed to open %s: %v", fh.Filename, err))
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("failed to read %s: %v", fh.Filename, err))
			return
		}

		mime := resolveMime(fh.Filename, data)
		if !extract.Supported(mime) {
			respondError(w, http.StatusUnsupportedMediaType,
				fmt.Sprintf("%s: unsupported file type %s (use PDF, DOCX or plain text)", fh.Filename, mime))
			return
		}
		uploads = append(uploads, upload{filename: fh.Filename, mime: mime, data: data})
	}

	sessionID := uuid.New()
	dbSession, err := s.db.CreateSession(ctx, database.CreateSessionParams{
		ID:             sessionID,
		Name:           name,
		Status:         StatusQueued,
		JobTitle:       jobTitle,
		JobDescription: jobDescription,
	})
	if err != nil {
		s.logger.Errorw("failed to create session", "err", err)
		respondError(w, http.StatusInternalServerError, "failed to create analysis session")
		return
	}

	awsClient := NewR2Client(s.awsConfig, s.r2)
	for _, u := range uploads {
		resumeID := uuid.New()
		objectKey := resumeObjectKey(sessionID.String(), resumeID.String(), u.filename)
		_, err = retry(3, func() (any, error) {
			return nil, UploadToR2(ctx, awsClient, s.r2.Bucket, objectKey, u.mime, u.data)
		})
		if err != nil {
			s.logger.Errorw("failed to upload resume", "filename", u.filename, "err", err)
			respondError(w, http.StatusInternalServerError, fmt.Sprintf("failed to store %s", u.filename))
			return
		}

		_, err = s.db.CreateResume(ctx, database.CreateResumeParams{
			ID:               resumeID,
			OriginalFilename: u.filename,
			Mime:             u.mime,
			SizeBytes:        int64(len(u.data)),
			StorageProvider:  "r2",
			ObjectKey:        objectKey,
			StorageUrl:       fmt.Sprintf("s3://%s/%s", s.r2.Bucket, objectKey),
			UploadStatus:     "uploaded",
			SessionID:        sessionID,
		})
		if err != nil {
			s.logger.Errorw("failed to record resume", "filename", u.filename, "err", err)
			respondError(w, http.StatusInternalServerError, fmt.Sprintf("failed to record %s", u.filename))
			return
		}
	}

	queueSession := Session{
		ID:             dbSession.ID,
		CreatedAt:      dbSession.CreatedAt,
		Name:           dbSession.Name,
		Status:         dbSession.Status,
		JobTitle:       dbSession.JobTitle,
		JobDescription: dbSession.JobDescription,
	}
	if err := publishAnalysisSession(s.rabbitConn, queueSession); err != nil {
		s.logger.Errorw("failed to queue session", "session_id", sessionID, "err", err)
		setSessionStatus(s.db, s.logger, sessionID, StatusFailed)
		respondError(w, http.StatusInternalServerError, "failed to queue analysis")
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]any{
		"session_id": sessionID,
		"status":     StatusQueued,
	})
}

type analysisResponse struct {
	SessionID uuid.UUID        `json:"session_id"`
	Name      string           `json:"name,omitempty"`
	Status    string           `json:"status"`
	JobTitle  string           `json:"job_title"`
	CreatedAt time.Time        `json:"created_at"`
	Results   []AnalysisResult `json:"results,omitempty"`
}

func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sessionID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	dbSession, err := s.db.GetSession(ctx, sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		respondError(w, http.StatusNotFound, "analysis session not found")
		return
	}
	if err != nil {
		s.logger.Errorw("failed to load session", "session_id", sessionID, "err", err)
		respondError(w, http.StatusInternalServerError, "failed to load analysis session")
		return
	}

	resp := analysisResponse{
		SessionID: dbSession.ID,
		Name:      dbSession.Name,
		Status:    dbSession.Status,
		JobTitle:  dbSession.JobTitle,
		CreatedAt: dbSession.CreatedAt,
	}

	stored, err := s.db.GetAnalysesResultsBySession(ctx, sessionID)
	if err == nil {
		if err := json.Unmarshal(stored.Results, &resp.Results); err != nil {
			s.logger.Errorw("failed to decode stored results", "session_id", sessionID, "err", err)
		}
	} else if !errors.Is(err, sql.ErrNoRows) {
		s.logger.Errorw("failed to load results", "session_id", sessionID, "err", err)
	}

	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sessionID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	if _, err := s.db.GetSession(ctx, sessionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "analysis session not found")
			return
		}
		s.logger.Errorw("failed to load session", "session_id", sessionID, "err", err)
		respondError(w, http.StatusInternalServerError, "failed to load analysis session")
		return
	}

	rep, err := s.db.GetReportBySession(ctx, sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		respondError(w, http.StatusNotFound, "report not ready, analysis may still be running")
		return
	}
	if err != nil {
		s.logger.Errorw("failed to load report record", "session_id", sessionID, "err", err)
		respondError(w, http.StatusInternalServerError, "failed to load report")
		return
	}

	awsClient := NewR2Client(s.awsConfig, s.r2)
	pdfBytes, err := DownloadFromR2(ctx, awsClient, s.r2.Bucket, rep.ObjectKey)
	if err != nil {
		s.logger.Errorw("failed to download report", "session_id", sessionID, "err", err)
		respondError(w, http.StatusInternalServerError, "failed to fetch report")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("resume-report-%s.pdf", sessionID)))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(pdfBytes)))
	w.Write(pdfBytes)
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
