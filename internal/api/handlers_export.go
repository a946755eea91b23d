package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dgallion1/chartdocx/internal/convert"
	"github.com/dgallion1/chartdocx/internal/correct"
	"github.com/dgallion1/chartdocx/internal/doctree"
	"github.com/dgallion1/chartdocx/internal/docxout"
	"github.com/dgallion1/chartdocx/internal/pipeline"
	"github.com/go-chi/chi/v5"
)

const docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// exportRequest is the JSON body of the export endpoints. Correct and
// Fallback default to the server configuration when omitted.
type exportRequest struct {
	Content  string `json:"content"`
	Format   string `json:"format"`
	Filename string `json:"filename"`
	Title    string `json:"title"`
	Correct  *bool  `json:"correct"`
	Fallback *bool  `json:"fallback"`
	Annotate bool   `json:"annotate"`
	Language string `json:"language"`
}

func (s *Server) toRequest(er exportRequest) pipeline.Request {
	req := pipeline.Request{
		Content:  []byte(er.Content),
		Format:   er.Format,
		Title:    er.Title,
		Correct:  s.cfg.CorrectionEnabled,
		Fallback: s.cfg.CorrectionFallback,
		Annotate: er.Annotate,
		Language: er.Language,
	}
	if er.Filename != "" {
		req.Filename = sanitizeFilename(er.Filename)
	}
	if er.Correct != nil {
		req.Correct = *er.Correct
	}
	if er.Fallback != nil {
		req.Fallback = *er.Fallback
	}
	return req
}

func (s *Server) decodeExport(w http.ResponseWriter, r *http.Request) (exportRequest, bool) {
	var er exportRequest
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := json.NewDecoder(r.Body).Decode(&er); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, fmt.Sprintf("request exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
			return er, false
		}
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return er, false
	}
	return er, true
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	er, ok := s.decodeExport(w, r)
	if !ok {
		return
	}
	s.export(r.Context(), w, s.toRequest(er))
}

func (s *Server) handleTemplateExport(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, 2*s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	template, _, err := s.formFile(r, "template")
	if err != nil {
		writeFormError(w, err, "template")
		return
	}
	if template == nil {
		jsonError(w, "template is required", http.StatusBadRequest)
		return
	}

	er := exportRequest{
		Content:  r.FormValue("content"),
		Format:   r.FormValue("format"),
		Filename: r.FormValue("filename"),
		Title:    r.FormValue("title"),
		Annotate: formBool(r, "annotate"),
		Language: r.FormValue("language"),
	}
	if v, ok := formBoolPtr(r, "correct"); ok {
		er.Correct = &v
	}
	if v, ok := formBoolPtr(r, "fallback"); ok {
		er.Fallback = &v
	}

	// Content may come as a file instead of a form value.
	if er.Content == "" {
		content, filename, err := s.formFile(r, "file")
		if err != nil {
			writeFormError(w, err, "file")
			return
		}
		er.Content = string(content)
		if er.Filename == "" {
			er.Filename = filename
		}
	}

	req := s.toRequest(er)
	req.Template = template
	s.export(r.Context(), w, req)
}

func (s *Server) export(ctx context.Context, w http.ResponseWriter, req pipeline.Request) {
	res, err := s.orchestrator.Exporter().Export(ctx, req)
	if err != nil {
		s.log.Error("export failed", "filename", req.Filename, "error", err)
		jsonError(w, "export failed: "+err.Error(), exportStatus(err))
		return
	}
	writeDocument(w, res.Title, res.Document)
}

func (s *Server) handleAsyncExport(w http.ResponseWriter, r *http.Request) {
	er, ok := s.decodeExport(w, r)
	if !ok {
		return
	}
	if strings.TrimSpace(er.Content) == "" {
		jsonError(w, "content is required", http.StatusBadRequest)
		return
	}

	job := pipeline.NewJob(s.toRequest(er))
	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{
		"job_id":   job.ID,
		"status":   pipeline.StatusQueued,
		"poll_url": fmt.Sprintf("/api/exports/%s/status", job.ID),
	})
}

func (s *Server) handleExportStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(job.Snapshot())
}

func (s *Server) handleExportDocument(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	snap := job.Snapshot()
	if snap.Status != pipeline.StatusCompleted {
		jsonError(w, fmt.Sprintf("job is %s", snap.Status), http.StatusConflict)
		return
	}
	writeDocument(w, snap.Title, job.Document())
}

// blockView tags a block with its kind for the preview response.
type blockView struct {
	Kind          doctree.BlockKind      `json:"kind"`
	Paragraph     *doctree.Paragraph     `json:"paragraph,omitempty"`
	Table         *doctree.Table         `json:"table,omitempty"`
	ListParagraph *doctree.ListParagraph `json:"list_paragraph,omitempty"`
}

func viewBlock(b doctree.Block) blockView {
	v := blockView{Kind: b.Kind()}
	switch x := b.(type) {
	case *doctree.Paragraph:
		v.Paragraph = x
	case *doctree.Table:
		v.Table = x
	case *doctree.ListParagraph:
		v.ListParagraph = x
	}
	return v
}

func (s *Server) handleBlocks(w http.ResponseWriter, r *http.Request) {
	er, ok := s.decodeExport(w, r)
	if !ok {
		return
	}
	blocks, err := s.orchestrator.Exporter().Blocks(s.toRequest(er))
	if err != nil {
		jsonError(w, "convert failed: "+err.Error(), exportStatus(err))
		return
	}

	views := make([]blockView, 0, len(blocks))
	for _, b := range blocks {
		views = append(views, viewBlock(b))
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"blocks": views})
}

// exportStatus maps an export failure to an HTTP status.
func exportStatus(err error) int {
	var (
		markup *convert.InvalidMarkupError
		svc    *correct.ServiceError
	)
	switch {
	case errors.Is(err, pipeline.ErrEmptyDocument),
		errors.Is(err, pipeline.ErrUnsupportedFormat),
		errors.Is(err, docxout.ErrInvalidTemplate),
		errors.As(err, &markup):
		return http.StatusUnprocessableEntity
	case errors.As(err, &svc):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func writeDocument(w http.ResponseWriter, title string, data []byte) {
	name := sanitizeFilename(title)
	if title == "" || name == "unnamed" {
		name = "document"
	}
	w.Header().Set("Content-Type", docxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+".docx"))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// formFile reads an optional multipart file, nil when absent.
func (s *Server) formFile(r *http.Request, field string) ([]byte, string, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", err
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		return nil, "", err
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return nil, "", errFileTooLarge
	}
	return data, header.Filename, nil
}

var errFileTooLarge = errors.New("file exceeds max size")

func writeFormError(w http.ResponseWriter, err error, field string) {
	if errors.Is(err, errFileTooLarge) {
		jsonError(w, fmt.Sprintf("%s: %v", field, err), http.StatusRequestEntityTooLarge)
		return
	}
	jsonError(w, fmt.Sprintf("failed to read %s: %v", field, err), http.StatusBadRequest)
}

func formBool(r *http.Request, key string) bool {
	v, _ := formBoolPtr(r, key)
	return v
}

func formBoolPtr(r *http.Request, key string) (bool, bool) {
	raw := r.FormValue(key)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	// Remove any path separators that might have survived.
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
