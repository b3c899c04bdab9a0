// Package api serves listener predictions over HTTP.
package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v5"

	"github.com/samcharles93/listener/internal/colors"
	"github.com/samcharles93/listener/internal/listener"
)

const (
	defaultTopK = 5
	maxTopK     = 64
)

// Predictor is the part of a trained listener the server needs.
type Predictor interface {
	Describe(ctx context.Context, description string, topK int) (*listener.Prediction, error)
	ScoreColor(ctx context.Context, description string, c colors.HSV) (score, prob float64, err error)
	Trained() bool
}

type Server struct {
	predictor Predictor
	version   string
	clock     func() time.Time
}

func NewServer(predictor Predictor, version string) *Server {
	return &Server{
		predictor: predictor,
		version:   version,
		clock:     time.Now,
	}
}

func (s *Server) Register(e *echo.Echo) {
	e.GET("/healthz", s.handleHealth)
	e.POST("/v1/listen", s.handleListen)
	e.POST("/v1/score", s.handleScore)
}

func (s *Server) handleHealth(c *echo.Context) error {
	trained := s.predictor != nil && s.predictor.Trained()
	resp := HealthResponse{Status: "ok", Trained: trained, Version: s.version}
	if !trained {
		resp.Status = "unavailable"
		return c.JSON(http.StatusServiceUnavailable, resp)
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleListen(c *echo.Context) error {
	if s.predictor == nil {
		return writeError(c, http.StatusInternalServerError, "server_error", "listener not configured", "", "")
	}
	req, err := decodeJSON[ListenRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	topK, err := validateListen(req)
	if err != nil {
		return writeServiceError(c, err)
	}

	pred, err := s.predictor.Describe(c.Request().Context(), req.Description, topK)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, ListenResponse{
		ID:          newRequestID("listen"),
		Object:      "listen",
		CreatedAt:   s.clock().Unix(),
		Description: pred.Description,
		Tokens:      pred.Tokens,
		Hex:         pred.Hex,
		RGB:         [3]float64{pred.Color.R, pred.Color.G, pred.Color.B},
		Bucket:      pred.Top[0].ID,
		Top:         pred.Top,
	})
}

func validateListen(req ListenRequest) (int, error) {
	if strings.TrimSpace(req.Description) == "" {
		return 0, newInvalidRequest("description", "description must not be empty")
	}
	if req.TopK == nil {
		return defaultTopK, nil
	}
	if *req.TopK < 1 || *req.TopK > maxTopK {
		return 0, newInvalidRequest("top_k", "top_k must be between 1 and 64")
	}
	return *req.TopK, nil
}

func (s *Server) handleScore(c *echo.Context) error {
	if s.predictor == nil {
		return writeError(c, http.StatusInternalServerError, "server_error", "listener not configured", "", "")
	}
	req, err := decodeJSON[ScoreRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	hsv, err := validateScore(req)
	if err != nil {
		return writeServiceError(c, err)
	}

	score, prob, err := s.predictor.ScoreColor(c.Request().Context(), req.Description, hsv)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, ScoreResponse{
		ID:          newRequestID("score"),
		Object:      "score",
		CreatedAt:   s.clock().Unix(),
		Description: req.Description,
		HSV:         [3]float64{hsv.H, hsv.S, hsv.V},
		Hex:         colors.HSVToRGB(hsv).Hex(),
		Score:       score,
		Probability: prob,
	})
}

func validateScore(req ScoreRequest) (colors.HSV, error) {
	if strings.TrimSpace(req.Description) == "" {
		return colors.HSV{}, newInvalidRequest("description", "description must not be empty")
	}
	if len(req.HSV) != 3 {
		return colors.HSV{}, newInvalidRequest("hsv", "hsv must have exactly 3 components")
	}
	hsv := colors.HSV{H: req.HSV[0], S: req.HSV[1], V: req.HSV[2]}
	if err := hsv.Validate(); err != nil {
		return colors.HSV{}, newInvalidRequest("hsv", err.Error())
	}
	return hsv, nil
}
