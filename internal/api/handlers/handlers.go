// Package handlers implements the HTTP surface: delimited imports, statement
// document upload and extraction, the reconciliation queue, and job status.
package handlers

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rfogliato/statement-import/internal/api/middleware"
	"github.com/rfogliato/statement-import/internal/domain"
	"github.com/rfogliato/statement-import/internal/gcs"
	bq "github.com/rfogliato/statement-import/internal/infra/bigquery"
	"github.com/rfogliato/statement-import/internal/importer"
	"github.com/rfogliato/statement-import/internal/jobs"
	"github.com/rfogliato/statement-import/internal/logger"
	"github.com/rfogliato/statement-import/internal/recon"
	"github.com/rfogliato/statement-import/internal/statement"
)

// StatementRecords persists uploaded statement metadata. The BigQuery
// repository implements it; local setups may pass nil to skip bookkeeping.
type StatementRecords interface {
	InsertStatement(ctx context.Context, row *bq.StatementRow) error
	FindStatementByChecksum(ctx context.Context, accountID, checksum string) (*bq.StatementRow, error)
}

// ImportsHandler handles the synchronous delimited import path.
type ImportsHandler struct {
	svc *importer.Service
	log zerolog.Logger
}

// NewImportsHandler creates a new imports handler.
func NewImportsHandler(svc *importer.Service, log zerolog.Logger) *ImportsHandler {
	return &ImportsHandler{svc: svc, log: log}
}

type importRequest struct {
	AccountID    string                    `json:"account_id"`
	FileName     string                    `json:"file_name"`
	SourceFormat string                    `json:"source_format"`
	Content      string                    `json:"content"`
	Mappings     []statement.ColumnMapping `json:"mappings"`
}

// CreateImport handles POST /api/imports
func (h *ImportsHandler) CreateImport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.AccountID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "account_id is required")
		return
	}
	if req.Content == "" {
		middleware.WriteError(w, http.StatusBadRequest, "content is required")
		return
	}

	source := domain.SourceFormat(req.SourceFormat)
	if source == "" {
		source = domain.SourceCSV
	}
	if source != domain.SourceCSV && source != domain.SourceText {
		middleware.WriteError(w, http.StatusBadRequest, "source_format must be csv or text")
		return
	}

	raw := domain.RawStatement{
		SourceFormat: source,
		FileName:     req.FileName,
		Content:      []byte(req.Content),
	}

	result, err := h.svc.ImportDelimited(ctx, req.AccountID, raw, req.Mappings)
	if err != nil {
		if errors.Is(err, statement.ErrMissingRequiredColumns) {
			middleware.WriteError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		log := logger.FromContextOr(ctx, h.log)
		log.Error().Err(err).Str("account_id", req.AccountID).Msg("Delimited import failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Import failed")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, result)
}

// StatementsHandler handles statement document upload and extraction.
type StatementsHandler struct {
	records   StatementRecords
	publisher jobs.Publisher
	bucket    string
	log       zerolog.Logger
}

// NewStatementsHandler creates a new statements handler.
func NewStatementsHandler(records StatementRecords, publisher jobs.Publisher, bucket string, log zerolog.Logger) *StatementsHandler {
	return &StatementsHandler{
		records:   records,
		publisher: publisher,
		bucket:    bucket,
		log:       log,
	}
}

// CreateUploadURL handles POST /api/statements/upload-url
func (h *StatementsHandler) CreateUploadURL(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountID   string `json:"account_id"`
		Filename    string `json:"filename"`
		ContentType string `json:"content_type"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.AccountID == "" || req.Filename == "" {
		middleware.WriteError(w, http.StatusBadRequest, "account_id and filename are required")
		return
	}

	// Generate unique object name
	objectName := fmt.Sprintf("statements/%s/%s", time.Now().Format("2006/01/02"), uuid.NewString()+"-"+req.Filename)
	statementID := uuid.NewString()

	// For local development with user credentials, return direct upload URL
	// In production with service accounts, this would use signed URLs
	uploadURL := fmt.Sprintf("/api/statements/upload/%s?object_name=%s&filename=%s&account_id=%s",
		statementID, url.QueryEscape(objectName), url.QueryEscape(req.Filename), url.QueryEscape(req.AccountID))

	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"upload_url":   uploadURL,
		"gcs_uri":      gcs.URI(h.bucket, objectName),
		"object_name":  objectName,
		"statement_id": statementID,
	})
}

// UploadStatement handles POST /api/statements/upload/{statementId}
// Direct upload endpoint for local development with user credentials.
func (h *StatementsHandler) UploadStatement(w http.ResponseWriter, r *http.Request, statementID string) {
	ctx := r.Context()
	log := logger.FromContextOr(ctx, h.log)

	objectName := r.URL.Query().Get("object_name")
	accountID := r.URL.Query().Get("account_id")
	if objectName == "" || accountID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "object_name and account_id are required")
		return
	}

	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/pdf"
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}
	checksum := sha256.Sum256(body)
	checksumHex := hex.EncodeToString(checksum[:])

	// Re-uploads of an identical file are allowed (the fingerprint ledger makes
	// the import idempotent) but flagged so the caller can abort early.
	duplicateUpload := false
	if h.records != nil {
		prev, err := h.records.FindStatementByChecksum(ctx, accountID, checksumHex)
		if err != nil {
			log.Error().Err(err).Msg("Checksum lookup failed")
		} else if prev != nil {
			duplicateUpload = true
		}
	}

	gcsURI := gcs.URI(h.bucket, objectName)
	written, err := gcs.Upload(ctx, h.bucket, objectName, contentType, bytes.NewReader(body))
	if err != nil {
		log.Error().Err(err).Msg("Failed to upload to GCS")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to upload file")
		return
	}

	log.Info().
		Str("statement_id", statementID).
		Str("gcs_uri", gcsURI).
		Int64("bytes", written).
		Bool("duplicate_upload", duplicateUpload).
		Msg("Statement uploaded")

	filename := r.URL.Query().Get("filename")
	if filename == "" {
		filename = "statement.pdf"
	}
	if idx := strings.Index(filename, "?"); idx > 0 {
		filename = filename[:idx]
	}
	filename = filepath.Base(filename)

	if h.records != nil {
		row := &bq.StatementRow{
			StatementID:      statementID,
			AccountID:        accountID,
			GCSURI:           gcsURI,
			SourceFormat:     string(domain.SourcePDF),
			OriginalFilename: filename,
			FileMimeType:     contentType,
			ChecksumSHA256:   checksumHex,
			ParsingStatus:    "PENDING",
			UploadTS:         time.Now(),
		}
		if err := h.records.InsertStatement(ctx, row); err != nil {
			log.Error().Err(err).Msg("Failed to insert statement metadata")
			middleware.WriteError(w, http.StatusInternalServerError, "Failed to save statement metadata")
			return
		}
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"statement_id":     statementID,
		"gcs_uri":          gcsURI,
		"status":           "uploaded",
		"duplicate_upload": duplicateUpload,
	})
}

// EnqueueExtraction handles POST /api/statements/extract
func (h *StatementsHandler) EnqueueExtraction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StatementID string `json:"statement_id"`
		AccountID   string `json:"account_id"`
		GCSURI      string `json:"gcs_uri"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.StatementID == "" || req.AccountID == "" || req.GCSURI == "" {
		middleware.WriteError(w, http.StatusBadRequest, "statement_id, account_id and gcs_uri are required")
		return
	}

	ctx := r.Context()
	log := logger.FromContextOr(ctx, h.log)

	job := &jobs.ExtractStatementJob{
		StatementID: req.StatementID,
		AccountID:   req.AccountID,
		GCSURI:      req.GCSURI,
	}

	if err := h.publisher.PublishExtractStatement(ctx, job); err != nil {
		log.Error().Err(err).Msg("Failed to enqueue extraction job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue extraction job")
		return
	}

	log.Info().Str("job_id", job.JobID).Str("statement_id", req.StatementID).Msg("Extraction job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id":       job.JobID,
		"statement_id": req.StatementID,
		"status":       string(job.Status),
	})
}

// ReconciliationHandler handles the reconciliation queue endpoints.
type ReconciliationHandler struct {
	tracker *recon.Tracker
	log     zerolog.Logger
}

// NewReconciliationHandler creates a new reconciliation handler.
func NewReconciliationHandler(tracker *recon.Tracker, log zerolog.Logger) *ReconciliationHandler {
	return &ReconciliationHandler{tracker: tracker, log: log}
}

// PendingByAccount handles GET /api/reconciliation/pending
func (h *ReconciliationHandler) PendingByAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	counts, err := h.tracker.PendingByAccount(ctx)
	if err != nil {
		log := logger.FromContextOr(ctx, h.log)
		log.Error().Err(err).Msg("Failed to aggregate pending counts")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to aggregate pending counts")
		return
	}

	if counts == nil {
		counts = []domain.AccountPendingCount{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"accounts": counts,
		"count":    len(counts),
	})
}

// ListLines handles GET /api/reconciliation/lines?account_id=&status=
func (h *ReconciliationHandler) ListLines(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := r.URL.Query()
	accountID := query.Get("account_id")
	if accountID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "account_id is required")
		return
	}

	status := domain.LineStatus(query.Get("status"))
	if status != "" && status != domain.LinePending && status != domain.LineMatched && status != domain.LineIgnored {
		middleware.WriteError(w, http.StatusBadRequest, "invalid status filter")
		return
	}

	lines, err := h.tracker.Lines(ctx, accountID, status)
	if err != nil {
		log := logger.FromContextOr(ctx, h.log)
		log.Error().Err(err).Str("account_id", accountID).Msg("Failed to list lines")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list lines")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"lines": toLineViews(lines),
		"count": len(lines),
	})
}

// MatchLine handles POST /api/reconciliation/lines/{id}/match
func (h *ReconciliationHandler) MatchLine(w http.ResponseWriter, r *http.Request, lineID string) {
	var req struct {
		TransactionID string `json:"transaction_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.TransactionID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "transaction_id is required")
		return
	}

	if err := h.tracker.Match(r.Context(), lineID, req.TransactionID); err != nil {
		h.writeTransitionError(w, r, lineID, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"line_id": lineID,
		"status":  string(domain.LineMatched),
	})
}

// IgnoreLine handles POST /api/reconciliation/lines/{id}/ignore
func (h *ReconciliationHandler) IgnoreLine(w http.ResponseWriter, r *http.Request, lineID string) {
	if err := h.tracker.Ignore(r.Context(), lineID); err != nil {
		h.writeTransitionError(w, r, lineID, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"line_id": lineID,
		"status":  string(domain.LineIgnored),
	})
}

func (h *ReconciliationHandler) writeTransitionError(w http.ResponseWriter, r *http.Request, lineID string, err error) {
	switch {
	case errors.Is(err, recon.ErrNotFound):
		middleware.WriteError(w, http.StatusNotFound, "Line not found")
	case errors.Is(err, recon.ErrConflict):
		middleware.WriteError(w, http.StatusConflict, "Line already in a terminal state")
	default:
		log := logger.FromContextOr(r.Context(), h.log)
		log.Error().Err(err).Str("line_id", lineID).Msg("Transition failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Transition failed")
	}
}

// lineView is the wire shape of a reconciliation line.
type lineView struct {
	LineID               string            `json:"line_id"`
	AccountID            string            `json:"account_id"`
	Date                 string            `json:"date"`
	Description          string            `json:"description"`
	Amount               string            `json:"amount"`
	Metadata             map[string]string `json:"metadata,omitempty"`
	Fingerprint          string            `json:"fingerprint"`
	IsInvoicePayment     bool              `json:"is_invoice_payment"`
	SuggestedInstrument  string            `json:"suggested_instrument,omitempty"`
	Status               string            `json:"status"`
	MatchedTransactionID string            `json:"matched_transaction_id,omitempty"`
	CreatedTS            time.Time         `json:"created_ts"`
}

func toLineViews(lines []domain.ReconciliationLine) []lineView {
	views := make([]lineView, 0, len(lines))
	for _, l := range lines {
		v := lineView{
			LineID:               l.ID,
			AccountID:            l.AccountID,
			Date:                 l.Candidate.ISODate(),
			Description:          l.Candidate.Description,
			Amount:               l.Candidate.Amount.StringFixed(2),
			Fingerprint:          l.Candidate.Fingerprint,
			IsInvoicePayment:     l.Candidate.IsInvoicePayment,
			SuggestedInstrument:  l.Candidate.SuggestedInstrument,
			Status:               string(l.Status),
			MatchedTransactionID: l.MatchedTransactionID,
			CreatedTS:            l.CreatedTS,
		}
		if len(l.Candidate.Metadata) > 0 {
			v.Metadata = make(map[string]string, len(l.Candidate.Metadata))
			for k, val := range l.Candidate.Metadata {
				v.Metadata[string(k)] = val
			}
		}
		views = append(views, v)
	}
	return views
}

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{store: store, log: log}
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	ctx := r.Context()

	job, err := h.store.GetJob(ctx, jobID)
	if err != nil {
		log := logger.FromContextOr(ctx, h.log)
		log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := r.URL.Query()
	filter := jobs.JobFilter{
		StatementID: query.Get("statement_id"),
		AccountID:   query.Get("account_id"),
		Status:      jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}
	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(ctx, filter)
	if err != nil {
		log := logger.FromContextOr(ctx, h.log)
		log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}
