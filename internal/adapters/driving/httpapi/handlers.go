package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/custodia-labs/reqsync/internal/adapters/driving/dto"
	"github.com/custodia-labs/reqsync/internal/core/domain"
)

// submitRequest is the body of inline and webhook submissions.
type submitRequest struct {
	Content  string `json:"content"`
	Filename string `json:"filename"`
}

func (s *Server) submitInline(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	s.submit(w, r, domain.Submission{
		Content:  []byte(req.Content),
		Filename: req.Filename,
		Channel:  domain.ChannelInline,
	})
}

func (s *Server) submitUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, r, err)
			return
		}
		writeError(w, r, fmt.Errorf("%w: multipart field \"file\" is required", domain.ErrInvalidInput))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, r, fmt.Errorf("read upload: %w", err))
		return
	}
	s.submit(w, r, domain.Submission{
		Content:  data,
		Filename: header.Filename,
		Channel:  domain.ChannelUpload,
	})
}

// submitWebhook accepts either the JSON submit body or the raw document
// as text/plain or text/markdown, with ?filename= naming it.
func (s *Server) submitWebhook(w http.ResponseWriter, r *http.Request) {
	sub := domain.Submission{Channel: domain.ChannelWebhook}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "text/plain", "text/markdown":
		data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
		if err != nil {
			writeError(w, r, err)
			return
		}
		sub.Content = data
		sub.Filename = r.URL.Query().Get("filename")
	default:
		var req submitRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		sub.Content = []byte(req.Content)
		sub.Filename = req.Filename
	}
	s.submit(w, r, sub)
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request, sub domain.Submission) {
	if s.ports.Ingest == nil {
		writeError(w, r, domain.ErrNotConfigured)
		return
	}
	res, err := s.ports.Ingest.Submit(r.Context(), sub)
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, dto.FromSubmitResult(res))
}

func (s *Server) listDocuments(w http.ResponseWriter, r *http.Request) {
	if s.ports.Documents == nil {
		writeError(w, r, domain.ErrNotConfigured)
		return
	}
	filter, err := parseFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	records, total, err := s.ports.Documents.List(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.FromRecords(records, total, filter.Offset))
}

func parseFilter(r *http.Request) (domain.RecordFilter, error) {
	q := r.URL.Query()
	var f domain.RecordFilter

	if v := q.Get("category"); v != "" {
		c, err := domain.ParseCategory(v)
		if err != nil {
			return f, err
		}
		f.Category = c
	}
	if v := q.Get("status"); v != "" {
		st, err := domain.ParseStatus(v)
		if err != nil {
			return f, err
		}
		f.Status = st
	}

	var err error
	if f.Offset, err = intParam(q.Get("offset")); err != nil {
		return f, fmt.Errorf("%w: offset: %v", domain.ErrInvalidInput, err)
	}
	if f.Limit, err = intParam(q.Get("limit")); err != nil {
		return f, fmt.Errorf("%w: limit: %v", domain.ErrInvalidInput, err)
	}
	return f, nil
}

func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, errors.New("must not be negative")
	}
	return n, nil
}

func (s *Server) getDocument(w http.ResponseWriter, r *http.Request) {
	if s.ports.Documents == nil {
		writeError(w, r, domain.ErrNotConfigured)
		return
	}
	rec, err := s.ports.Documents.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.FromRecord(rec))
}

func (s *Server) findByFingerprint(w http.ResponseWriter, r *http.Request) {
	if s.ports.Documents == nil {
		writeError(w, r, domain.ErrNotConfigured)
		return
	}
	rec, err := s.ports.Documents.FindByFingerprint(r.Context(), chi.URLParam(r, "hash"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.FromRecord(rec))
}

// documentMarkdown returns text/markdown, or the JSON form when the
// client prefers application/json.
func (s *Server) documentMarkdown(w http.ResponseWriter, r *http.Request) {
	if s.ports.Documents == nil {
		writeError(w, r, domain.ErrNotConfigured)
		return
	}
	md, err := s.ports.Documents.Markdown(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		writeJSON(w, http.StatusOK, dto.FromMarkdown(md))
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": md.Filename}))
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, md.Markdown)
}

type updateRequest struct {
	Status   *string `json:"status"`
	Category *string `json:"category"`
}

func (s *Server) updateDocument(w http.ResponseWriter, r *http.Request) {
	if s.ports.Documents == nil {
		writeError(w, r, domain.ErrNotConfigured)
		return
	}
	var req updateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	var patch domain.RecordPatch
	if req.Status != nil {
		st, err := domain.ParseStatus(*req.Status)
		if err != nil {
			writeError(w, r, err)
			return
		}
		patch.Status = &st
	}
	if req.Category != nil {
		c, err := domain.ParseCategory(*req.Category)
		if err != nil {
			writeError(w, r, err)
			return
		}
		patch.Category = &c
	}

	rec, err := s.ports.Documents.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.FromRecord(rec))
}

func (s *Server) deleteDocument(w http.ResponseWriter, r *http.Request) {
	if s.ports.Documents == nil {
		writeError(w, r, domain.ErrNotConfigured)
		return
	}
	purge, err := boolParam(r.URL.Query().Get("purge"))
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: purge: %v", domain.ErrInvalidInput, err))
		return
	}
	if err := s.ports.Documents.Delete(r.Context(), chi.URLParam(r, "id"), purge); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type reconcileRequest struct {
	DryRun bool `json:"dry_run"`
}

func (s *Server) reconcile(w http.ResponseWriter, r *http.Request) {
	if s.ports.Reconciler == nil {
		writeError(w, r, domain.ErrNotConfigured)
		return
	}

	var req reconcileRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}
	if v := r.URL.Query().Get("dry_run"); v != "" {
		dry, err := boolParam(v)
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: dry_run: %v", domain.ErrInvalidInput, err))
			return
		}
		req.DryRun = dry
	}

	report, err := s.ports.Reconciler.Reconcile(r.Context(), domain.ReconcileOptions{DryRun: req.DryRun})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.FromReport(report))
}

type statusResponse struct {
	Running bool        `json:"running"`
	Last    *dto.Report `json:"last"`
}

func (s *Server) reconcileStatus(w http.ResponseWriter, r *http.Request) {
	if s.ports.Reconciler == nil {
		writeError(w, r, domain.ErrNotConfigured)
		return
	}
	st := s.ports.Reconciler.Status()
	resp := statusResponse{Running: st.Running}
	if st.Last != nil {
		last := dto.FromReport(st.Last)
		resp.Last = &last
	}
	writeJSON(w, http.StatusOK, resp)
}

type exportRequest struct {
	Date string `json:"date"`
}

func (s *Server) export(w http.ResponseWriter, r *http.Request) {
	if s.ports.Documents == nil {
		writeError(w, r, domain.ErrNotConfigured)
		return
	}
	var req exportRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}
	report, err := s.ports.Documents.Export(r.Context(), req.Date)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.FromExport(report))
}

// decodeJSON reads one JSON object, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return err
		}
		return fmt.Errorf("%w: malformed JSON body: %v", domain.ErrInvalidInput, err)
	}
	return nil
}

func boolParam(v string) (bool, error) {
	if v == "" {
		return false, nil
	}
	return strconv.ParseBool(v)
}
