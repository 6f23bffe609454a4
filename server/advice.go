package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/kashmir-agri/farmers-corner/diagnosis"
)

type adviceRequest struct {
	History []diagnosis.ChatTurn `json:"history"`
	Prompt  string               `json:"prompt"`
	Lang    string               `json:"lang"`
}

type audioRequest struct {
	DiseaseName string `json:"diseaseName"`
}

func (s *Server) handleWeather(c *gin.Context) {
	if !s.requireAnalyzer(c) {
		return
	}
	district := strings.TrimSpace(c.Query("district"))
	if district == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "district is required"})
		return
	}

	done := s.profiler.StartOperation("weather")
	report, err := s.analyzer.DistrictWeather(c.Request.Context(), district)
	done(err != nil)
	if err != nil {
		s.diagnosisFailed(c, "weather", err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleMandis(c *gin.Context) {
	s.handlePlaces(c, "mandis", Analyzer.NearbyMandis)
}

func (s *Server) handleDealers(c *gin.Context) {
	s.handlePlaces(c, "dealers", Analyzer.NearbyDealers)
}

type placeSearch func(a Analyzer, ctx context.Context, lat, lng float64) (*diagnosis.PlaceSearch, error)

func (s *Server) handlePlaces(c *gin.Context, operation string, search placeSearch) {
	if !s.requireAnalyzer(c) {
		return
	}
	lat, latErr := strconv.ParseFloat(c.Query("lat"), 64)
	lng, lngErr := strconv.ParseFloat(c.Query("lng"), 64)
	if latErr != nil || lngErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat and lng are required"})
		return
	}

	done := s.profiler.StartOperation(operation)
	places, err := search(s.analyzer, c.Request.Context(), lat, lng)
	done(err != nil)
	if err != nil {
		s.diagnosisFailed(c, operation, err)
		return
	}
	c.JSON(http.StatusOK, places)
}

func (s *Server) handleAdvice(c *gin.Context) {
	if !s.requireAnalyzer(c) {
		return
	}

	var req adviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid advice request"})
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "prompt is required"})
		return
	}

	done := s.profiler.StartOperation("expert_chat")
	answer, err := s.analyzer.ExpertChat(c.Request.Context(), req.History, req.Prompt, diagnosis.ParseLanguage(req.Lang))
	done(err != nil)
	if err != nil {
		s.diagnosisFailed(c, "expert_chat", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"text": answer})
}

func (s *Server) handleDiagnosisAudio(c *gin.Context) {
	if !s.requireAnalyzer(c) {
		return
	}

	var req audioRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.DiseaseName) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "diseaseName is required"})
		return
	}

	done := s.profiler.StartOperation("diagnosis_audio")
	audio, err := s.analyzer.DiagnosisAudio(c.Request.Context(), req.DiseaseName)
	done(err != nil)
	if err != nil {
		s.diagnosisFailed(c, "diagnosis_audio", err)
		return
	}
	c.Data(http.StatusOK, audio.MIMEType, audio.Data)
}

func (s *Server) handleNews(c *gin.Context) {
	if !s.requireAnalyzer(c) {
		return
	}
	category := diagnosis.NewsCategory(c.DefaultQuery("category", string(diagnosis.NewsKashmir)))

	done := s.profiler.StartOperation("news")
	text, err := s.analyzer.NewsTicker(c.Request.Context(), category)
	done(err != nil)
	if errors.Is(err, diagnosis.ErrUnknownCategory) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown news category"})
		return
	}
	if err != nil {
		s.diagnosisFailed(c, "news", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"category": category, "text": text})
}
