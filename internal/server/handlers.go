package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"lectern/internal/domain"
	"lectern/internal/usecase"
)

const uploadField = "file"

var errNoFile = errors.New("no file uploaded")

type transcribeResponse struct {
	Success             bool            `json:"success"`
	FullTranscription   string          `json:"full_transcription"`
	Insights            domain.Insights `json:"insights"`
	InsightsUnavailable bool            `json:"insightsUnavailable"`
	InsightsError       string          `json:"insightsError,omitempty"`
}

type failureResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	path, err := s.spoolUpload(r)
	if err != nil {
		switch {
		case errors.Is(err, errNoFile):
			writeJSON(w, http.StatusBadRequest, failureResponse{Error: "No file uploaded"})
		case isTooLarge(err):
			writeJSON(w, http.StatusRequestEntityTooLarge, failureResponse{
				Error:   "File too large",
				Details: fmt.Sprintf("uploads are limited to %d bytes", s.cfg.MaxUploadBytes),
			})
		default:
			s.log.Warn().Err(err).Msg("upload rejected")
			writeJSON(w, http.StatusBadRequest, failureResponse{Error: "Invalid upload", Details: err.Error()})
		}
		return
	}
	defer s.removeUpload(path)

	ctx := r.Context()
	log := s.log.With().Str("upload", filepath.Base(path)).Logger()

	transcript, err := s.processor.Transcribe(ctx, path)
	if err != nil {
		log.Error().Err(err).Msg("transcription failed")
		s.metrics.pipelineRuns.WithLabelValues(outcomeTranscribeFail).Inc()
		writeJSON(w, http.StatusInternalServerError, failureResponse{
			Error:   "Failed to process transcription",
			Details: err.Error(),
		})
		return
	}

	insights, enrichErr := s.processor.Enrich(ctx, transcript)
	if enrichErr != nil {
		log.Warn().Err(enrichErr).Msg("enrichment failed, returning transcript only")
	}
	result := usecase.Assemble(path, transcript, insights, enrichErr)

	outcome := outcomeComplete
	if result.InsightsUnavailable {
		outcome = outcomeDegraded
	}
	s.metrics.pipelineRuns.WithLabelValues(outcome).Inc()

	writeJSON(w, http.StatusOK, transcribeResponse{
		Success:             true,
		FullTranscription:   result.Transcript,
		Insights:            result.Insights,
		InsightsUnavailable: result.InsightsUnavailable,
		InsightsError:       result.InsightsError,
	})
}

// spoolUpload streams the "file" part of a multipart body into a temp file
// and returns its path. Other parts are discarded.
func (s *Server) spoolUpload(r *http.Request) (string, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		if errors.Is(err, http.ErrNotMultipart) || errors.Is(err, http.ErrMissingBoundary) {
			return "", errNoFile
		}
		return "", err
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return "", errNoFile
		}
		if err != nil {
			return "", err
		}
		if part.FormName() != uploadField {
			_, err := io.Copy(io.Discard, part)
			_ = part.Close()
			if err != nil {
				return "", err
			}
			continue
		}
		path, err := s.writeUpload(part)
		_ = part.Close()
		return path, err
	}
}

func (s *Server) writeUpload(part *multipart.Part) (string, error) {
	if err := os.MkdirAll(s.cfg.UploadDir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	file, err := os.CreateTemp(s.cfg.UploadDir, "upload-*"+uploadExt(part.FileName()))
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}

	_, copyErr := io.Copy(file, part)
	closeErr := file.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		_ = os.Remove(file.Name())
		return "", err
	}
	return file.Name(), nil
}

func (s *Server) removeUpload(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.log.Warn().Err(err).Str("path", path).Msg("failed to remove upload")
	}
}

// uploadExt keeps the client's extension so the provider can sniff the
// container, but only when it looks like one.
func uploadExt(name string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(name)))
	if len(ext) < 2 || len(ext) > 6 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return true
	}
	return strings.Contains(err.Error(), "request body too large")
}

func (s *Server) handleTestPrep(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	subject := strings.TrimSpace(query.Get("subject"))
	if subject == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Subject is required"})
		return
	}

	prep, err := s.testPrep.Lookup(r.Context(), subject, query.Get("level"))
	if err != nil {
		if errors.Is(err, usecase.ErrSubjectRequired) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Subject is required"})
			return
		}
		s.log.Error().Err(err).Str("subject", subject).Msg("test prep failed")

		message := "Failed to generate test preparation"
		var failed *domain.EnrichmentFailedError
		if errors.As(err, &failed) && failed.Reason == "response was not JSON" {
			message = "Failed to parse AI response"
		}
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: message, Details: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, prep)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "healthy",
		Timestamp: s.now().UTC().Format("2006-01-02T15:04:05.000Z"),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
