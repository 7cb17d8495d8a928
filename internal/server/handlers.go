package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/MeKo-Tech/footprint/internal/raster"
	"github.com/MeKo-Tech/footprint/internal/refine"
	"github.com/MeKo-Tech/footprint/internal/version"
)

const (
	formatPNG  = "png"
	formatJSON = "json"
)

// refineRequest is a parsed POST /v1/refine form.
type refineRequest struct {
	region      *raster.Raster
	edge        *raster.Raster
	regionName  string
	edgeName    string
	cfg         refine.Config
	format      string
	includeEdge bool
}

func (r *refineRequest) release() {
	r.region.Release()
	r.edge.Release()
}

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: version.Version,
		Time:    time.Now().UTC().Format(time.RFC3339),
		Uptime:  time.Since(s.started).Round(time.Second).String(),
		Stats:   s.profiler.Snapshot(),
	})
}

// refineHandler runs one refinement over an uploaded region/edge pair.
func (s *Server) refineHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	req, err := s.parseRefineRequest(w, r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			refineRequestsTotal.WithLabelValues("unknown", "too_large").Inc()
			s.writeErrorResponse(w, fmt.Sprintf("upload exceeds the %d MB limit", s.maxUploadMB),
				http.StatusRequestEntityTooLarge)
			return
		}
		refineRequestsTotal.WithLabelValues("unknown", refine.KindInput.String()).Inc()
		s.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer req.release()

	pl, err := s.pipelineFor(req.cfg)
	if err != nil {
		refineRequestsTotal.WithLabelValues(req.format, refine.KindPrecondition.String()).Inc()
		s.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	res, err := pl.Process(req.region, req.edge)
	s.profiler.Record(res, err)
	if err != nil {
		refineRequestsTotal.WithLabelValues(req.format, refine.KindOf(err).String()).Inc()
		s.writeErrorResponse(w, err.Error(), statusForError(err))
		return
	}
	defer res.Release()

	refineComponentsRemoved.Observe(float64(res.Stats.Filter.Removed))

	if req.format == formatJSON {
		err = s.writeRefineJSON(w, pl.Config(), req, res)
	} else {
		err = s.writeRefinePNG(w, res)
	}
	if err != nil {
		refineRequestsTotal.WithLabelValues(req.format, refine.KindOutput.String()).Inc()
		s.writeErrorResponse(w, err.Error(), http.StatusInternalServerError)
		return
	}
	refineRequestsTotal.WithLabelValues(req.format, "ok").Inc()
}

// parseRefineRequest reads the multipart form: files "region" and "edge",
// optional "edge_threshold", "area_threshold", "allow_color", "format" and
// "include_edge".
func (s *Server) parseRefineRequest(w http.ResponseWriter, r *http.Request) (*refineRequest, error) {
	limit := s.maxUploadMB * 1024 * 1024
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		return nil, fmt.Errorf("failed to parse form: %w", err)
	}

	req := &refineRequest{cfg: s.defaults, format: formatPNG}

	if v := r.FormValue("format"); v != "" {
		req.format = strings.ToLower(v)
		if req.format != formatPNG && req.format != formatJSON {
			return nil, fmt.Errorf("unsupported format: %s (must be png or json)", v)
		}
	}
	var err error
	if req.cfg.EdgeThreshold, err = formInt(r, "edge_threshold", req.cfg.EdgeThreshold); err != nil {
		return nil, err
	}
	if req.cfg.AreaThreshold, err = formInt(r, "area_threshold", req.cfg.AreaThreshold); err != nil {
		return nil, err
	}
	if req.cfg.AllowColor, err = formBool(r, "allow_color", req.cfg.AllowColor); err != nil {
		return nil, err
	}
	if req.includeEdge, err = formBool(r, "include_edge", false); err != nil {
		return nil, err
	}

	opts := raster.DecodeOptions{AllowColor: req.cfg.AllowColor}
	if req.region, req.regionName, err = readRaster(r, "region", opts); err != nil {
		return nil, err
	}
	if req.edge, req.edgeName, err = readRaster(r, "edge", opts); err != nil {
		req.region.Release()
		return nil, err
	}
	return req, nil
}

// readRaster decodes one uploaded file. The filename extension selects the
// codec; content sniffing covers unnamed uploads.
func readRaster(r *http.Request, field string, opts raster.DecodeOptions) (*raster.Raster, string, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, "", fmt.Errorf("missing %s file", field)
		}
		return nil, "", fmt.Errorf("failed to read %s file: %w", field, err)
	}
	defer func(f multipart.File) { _ = f.Close() }(file)

	uploadSizeBytes.Observe(float64(header.Size))

	img, _, err := raster.DecodeFormat(file, filepath.Ext(header.Filename), opts)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode %s: %w", field, err)
	}
	return img, header.Filename, nil
}

func formInt(r *http.Request, key string, def int) (int, error) {
	v := r.FormValue(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return n, nil
}

func formBool(r *http.Request, key string, def bool) (bool, error) {
	v := r.FormValue(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %q", key, v)
	}
	return b, nil
}

// statusForError maps refinement error kinds onto HTTP status codes.
func statusForError(err error) int {
	switch refine.KindOf(err) {
	case refine.KindInput, refine.KindPrecondition:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeRefinePNG(w http.ResponseWriter, res *refine.Result) error {
	var buf bytes.Buffer
	if err := raster.EncodePNG(&buf, res.Mask); err != nil {
		return fmt.Errorf("encode mask: %w", err)
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("X-Footprint-Foreground", strconv.Itoa(res.Stats.ForegroundPixels))
	w.Header().Set("X-Footprint-Components-Removed", strconv.Itoa(res.Stats.Filter.Removed))
	if _, err := w.Write(buf.Bytes()); err != nil {
		s.logger.Error("failed to write mask response", "error", err)
	}
	return nil
}

func (s *Server) writeRefineJSON(w http.ResponseWriter, cfg refine.Config, req *refineRequest, res *refine.Result) error {
	report := refine.NewReport(cfg, res)
	report.Region = req.regionName
	report.Edge = req.edgeName

	resp := RefineResponse{Success: true, Report: &report}

	mask, err := encodeBase64PNG(res.Mask)
	if err != nil {
		return fmt.Errorf("encode mask: %w", err)
	}
	resp.Mask = mask
	if req.includeEdge {
		if resp.ThinEdge, err = encodeBase64PNG(res.ThinEdge); err != nil {
			return fmt.Errorf("encode thinned edge: %w", err)
		}
	}

	s.writeJSON(w, http.StatusOK, resp)
	return nil
}

func encodeBase64PNG(r *raster.Raster) (string, error) {
	var buf bytes.Buffer
	if err := raster.EncodePNG(&buf, r); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

// writeErrorResponse writes a JSON error response.
func (s *Server) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	s.writeJSON(w, statusCode, RefineResponse{Success: false, Error: message})
}
