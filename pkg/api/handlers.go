package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/projecthayat/hayat/pkg/classifier"
	"github.com/projecthayat/hayat/pkg/detection"
	"github.com/projecthayat/hayat/pkg/triage"
)

const (
	defaultDetectionLimit = 50
	maxDetectionLimit     = 1000
	planDetectionLimit    = 100
)

type errorBody struct {
	Type      classifier.Modality `json:"type,omitempty"`
	Error     string              `json:"error"`
	Detail    string              `json:"detail,omitempty"`
	RequestID string              `json:"request_id"`
}

type analyzeBody struct {
	*triage.Response
	RequestID string `json:"request_id"`
}

type statusBody struct {
	Status  string          `json:"status"`
	Project string          `json:"project"`
	Mode    triage.Mode     `json:"mode"`
	Device  string          `json:"device"`
	Models  map[string]bool `json:"models"`
}

func (s *Server) statusBody() statusBody {
	mode := triage.ModeRealAI
	if !s.opts.Dispatcher.RealAI() {
		mode = triage.ModeSimulation
	}
	models := make(map[string]bool)
	for _, st := range s.opts.Models.Status() {
		models[st.Modality.Lower()] = st.Available
	}
	return statusBody{
		Status:  "System Operational",
		Project: Project,
		Mode:    mode,
		Device:  s.opts.Models.Device(),
		Models:  models,
	}
}

func (s *Server) status(c *gin.Context) {
	c.JSON(http.StatusOK, s.statusBody())
}

// health adds per-model detail to the status document. The service stays
// ready while any modality is degraded.
func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  s.statusBody(),
		"details": s.opts.Models.Status(),
	})
}

func (s *Server) analyzeImage(c *gin.Context) { s.analyze(c, classifier.Vision) }
func (s *Server) analyzeAudio(c *gin.Context) { s.analyze(c, classifier.Audio) }

func (s *Server) analyze(c *gin.Context, m classifier.Modality) {
	payload, filename, status, err := s.upload(c)
	if err != nil {
		c.JSON(status, errorBody{Type: m, Error: "invalid upload", Detail: err.Error(), RequestID: requestIDOf(c)})
		return
	}

	res := s.opts.Dispatcher.Handle(c.Request.Context(), triage.Request{
		Modality:  m,
		Payload:   payload,
		Filename:  filename,
		RequestID: requestIDOf(c),
	})
	if !res.OK() {
		body := errorBody{Type: m, Error: res.Message(), RequestID: requestIDOf(c)}
		if res.Err != nil {
			body.Detail = res.Err.Error()
		}
		c.JSON(res.HTTPStatus(), body)
		return
	}
	c.JSON(http.StatusOK, analyzeBody{Response: res.Response, RequestID: requestIDOf(c)})
}

// upload reads the multipart "file" field, enforcing the size limit.
func (s *Server) upload(c *gin.Context) (data []byte, filename string, status int, err error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.opts.MaxUploadBytes)
	fh, err := c.FormFile("file")
	if err != nil {
		if tooLarge(err) {
			return nil, "", http.StatusRequestEntityTooLarge,
				fmt.Errorf("upload exceeds %d bytes", s.opts.MaxUploadBytes)
		}
		return nil, "", http.StatusBadRequest, fmt.Errorf("missing multipart field \"file\": %w", err)
	}
	if fh.Size > s.opts.MaxUploadBytes {
		return nil, "", http.StatusRequestEntityTooLarge,
			fmt.Errorf("upload exceeds %d bytes", s.opts.MaxUploadBytes)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, "", http.StatusBadRequest, err
	}
	defer f.Close()
	data, err = io.ReadAll(f)
	if err != nil {
		return nil, "", http.StatusBadRequest, err
	}
	return data, fh.Filename, http.StatusOK, nil
}

func tooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe) || strings.Contains(err.Error(), "request body too large")
}

func (s *Server) unavailable(c *gin.Context, what string) {
	c.JSON(http.StatusServiceUnavailable, errorBody{Error: what + " disabled", RequestID: requestIDOf(c)})
}

func (s *Server) listDetections(c *gin.Context) {
	if s.opts.Detections == nil {
		s.unavailable(c, "detection log")
		return
	}
	limit := defaultDetectionLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, errorBody{Error: "invalid limit", Detail: v, RequestID: requestIDOf(c)})
			return
		}
		limit = min(n, maxDetectionLimit)
	}
	ds, err := s.opts.Detections.Recent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorBody{Error: "read detections", Detail: err.Error(), RequestID: requestIDOf(c)})
		return
	}
	if ds == nil {
		ds = []detection.Detection{}
	}
	c.JSON(http.StatusOK, gin.H{"detections": ds, "count": len(ds)})
}

func (s *Server) clearDetections(c *gin.Context) {
	if s.opts.Detections == nil {
		s.unavailable(c, "detection log")
		return
	}
	if err := s.opts.Detections.Clear(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, errorBody{Error: "clear detections", Detail: err.Error(), RequestID: requestIDOf(c)})
		return
	}
	c.Status(http.StatusNoContent)
}

type planRequest struct {
	Detections []detection.Detection `json:"detections"`
}

// plan builds a rescue plan from the posted detections, or from the most
// recent logged ones when the body is empty.
func (s *Server) plan(c *gin.Context) {
	if s.opts.Planner == nil {
		s.unavailable(c, "planner")
		return
	}
	var req planRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, errorBody{Error: "invalid plan request", Detail: err.Error(), RequestID: requestIDOf(c)})
			return
		}
	}
	ds := req.Detections
	if ds == nil && s.opts.Detections != nil {
		var err error
		if ds, err = s.opts.Detections.Recent(c.Request.Context(), planDetectionLimit); err != nil {
			c.JSON(http.StatusInternalServerError, errorBody{Error: "read detections", Detail: err.Error(), RequestID: requestIDOf(c)})
			return
		}
	}
	p, err := s.opts.Planner.Generate(c.Request.Context(), ds)
	if err != nil {
		c.JSON(http.StatusBadGateway, errorBody{Error: "plan generation failed", Detail: err.Error(), RequestID: requestIDOf(c)})
		return
	}
	c.JSON(http.StatusOK, p)
}
