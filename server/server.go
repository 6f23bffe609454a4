// Package server exposes the preprocessing pipeline and the diagnosis
// advisor over HTTP.
package server

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/kashmir-agri/farmers-corner/diagnosis"
	"github.com/kashmir-agri/farmers-corner/images"
	"github.com/kashmir-agri/farmers-corner/logging"
	"github.com/kashmir-agri/farmers-corner/preprocess"
	"github.com/kashmir-agri/farmers-corner/profiler"
)

// MaxUploadSize caps the image part of a multipart upload.
const MaxUploadSize = 10 << 20

// multipart framing allowance on top of the image itself
const formOverhead = 1 << 20

// HeaderFallback reports whether the preprocess response is the unmodified input.
const HeaderFallback = "X-Preprocess-Fallback"

var (
	errImageRequired = errors.New("image file is required")
	errImageTooLarge = errors.New("image exceeds upload limit")
	errImageEmpty    = errors.New("image file is empty")
)

// Analyzer is the diagnosis surface used by the handlers. *diagnosis.Advisor
// satisfies it.
type Analyzer interface {
	AnalyzeCropDisease(ctx context.Context, photo []byte, lang diagnosis.Language) (*diagnosis.DiseaseAnalysis, error)
	AnalyzeLivestock(ctx context.Context, photo []byte, animalType string) (*diagnosis.LivestockAnalysis, error)
	PredictYield(ctx context.Context, in diagnosis.YieldInput) (*diagnosis.YieldPrediction, error)
	DistrictWeather(ctx context.Context, district string) (*diagnosis.WeatherReport, error)
	NearbyMandis(ctx context.Context, lat, lng float64) (*diagnosis.PlaceSearch, error)
	NearbyDealers(ctx context.Context, lat, lng float64) (*diagnosis.PlaceSearch, error)
	ExpertChat(ctx context.Context, history []diagnosis.ChatTurn, prompt string, lang diagnosis.Language) (string, error)
	DiagnosisAudio(ctx context.Context, diseaseName string) (*diagnosis.Audio, error)
	NewsTicker(ctx context.Context, category diagnosis.NewsCategory) (string, error)
}

// Server holds the handler dependencies.
type Server struct {
	preprocessor *preprocess.Preprocessor
	analyzer     Analyzer
	profiler     *profiler.Profiler
	logger       *zap.Logger
}

// New creates a server. A nil analyzer disables the diagnosis routes (503).
func New(preprocessor *preprocess.Preprocessor, analyzer Analyzer, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if preprocessor == nil {
		preprocessor = preprocess.NewPreprocessor(preprocess.DefaultConfig(), preprocess.WithLogger(logger))
	}
	return &Server{
		preprocessor: preprocessor,
		analyzer:     analyzer,
		profiler:     profiler.New(profiler.DefaultMaxSamples),
		logger:       logger,
	}
}

// Router builds the gin engine with middleware and routes.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.MaxMultipartMemory = MaxUploadSize
	router.Use(gin.Recovery(), RequestID(), AccessLog(s.logger))
	s.RegisterRoutes(router)
	return router
}

// RegisterRoutes wires the HTTP handlers to the router.
func (s *Server) RegisterRoutes(router gin.IRouter) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.profiler.Snapshot())
	})

	v1 := router.Group("/v1")
	v1.POST("/preprocess", s.handlePreprocess)
	v1.POST("/diagnose/crop", s.handleCropDisease)
	v1.POST("/diagnose/livestock", s.handleLivestock)
	v1.POST("/diagnose/audio", s.handleDiagnosisAudio)
	v1.POST("/yield", s.handleYield)
	v1.GET("/weather", s.handleWeather)
	v1.GET("/mandis", s.handleMandis)
	v1.GET("/dealers", s.handleDealers)
	v1.POST("/advice", s.handleAdvice)
	v1.GET("/news", s.handleNews)
}

func (s *Server) handlePreprocess(c *gin.Context) {
	data, ok := s.readImage(c)
	if !ok {
		return
	}

	done := s.profiler.StartOperation("preprocess")
	result := s.preprocessor.Run(data)
	done(result.Fallback)
	img := result.Image()
	contentType := img.MIME()
	if img.Format == images.FormatUnknown {
		contentType = "application/octet-stream"
	}

	c.Header(HeaderFallback, strconv.FormatBool(result.Fallback))
	if !result.Fallback {
		c.Header("X-Original-Size", strconv.Itoa(result.OriginalWidth)+"x"+strconv.Itoa(result.OriginalHeight))
	}
	c.Data(http.StatusOK, contentType, result.Data)
}

func (s *Server) handleCropDisease(c *gin.Context) {
	if !s.requireAnalyzer(c) {
		return
	}
	data, ok := s.readImage(c)
	if !ok {
		return
	}

	lang := diagnosis.ParseLanguage(c.PostForm("lang"))
	done := s.profiler.StartOperation("diagnose_crop")
	analysis, err := s.analyzer.AnalyzeCropDisease(c.Request.Context(), data, lang)
	done(err != nil)
	if err != nil {
		s.diagnosisFailed(c, "diagnose_crop", err)
		return
	}
	c.JSON(http.StatusOK, analysis)
}

func (s *Server) handleLivestock(c *gin.Context) {
	if !s.requireAnalyzer(c) {
		return
	}
	data, ok := s.readImage(c)
	if !ok {
		return
	}

	done := s.profiler.StartOperation("diagnose_livestock")
	analysis, err := s.analyzer.AnalyzeLivestock(c.Request.Context(), data, c.PostForm("animal"))
	done(err != nil)
	if err != nil {
		s.diagnosisFailed(c, "diagnose_livestock", err)
		return
	}
	c.JSON(http.StatusOK, analysis)
}

func (s *Server) handleYield(c *gin.Context) {
	if !s.requireAnalyzer(c) {
		return
	}

	var in diagnosis.YieldInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid yield request"})
		return
	}
	if in.Crop == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "crop is required"})
		return
	}

	done := s.profiler.StartOperation("predict_yield")
	prediction, err := s.analyzer.PredictYield(c.Request.Context(), in)
	done(err != nil)
	if err != nil {
		s.diagnosisFailed(c, "predict_yield", err)
		return
	}
	c.JSON(http.StatusOK, prediction)
}

func (s *Server) requireAnalyzer(c *gin.Context) bool {
	if s.analyzer == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "diagnosis is not configured"})
		return false
	}
	return true
}

func (s *Server) diagnosisFailed(c *gin.Context, operation string, err error) {
	requestID := requestIDFrom(c)
	opErr := logging.NewOperationError(operation, requestID, err)
	_ = c.Error(opErr)
	logging.WithOperation(s.logger, operation, requestID).Error("diagnosis failed", zap.Error(opErr))

	switch {
	case errors.Is(err, diagnosis.ErrInvalidImage):
		c.JSON(http.StatusBadRequest, gin.H{"error": "image could not be read"})
	case errors.Is(err, diagnosis.ErrInvalidLocation):
		c.JSON(http.StatusBadRequest, gin.H{"error": "location out of range"})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "diagnosis timed out"})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": "diagnosis service failed"})
	}
}

// readImage extracts the "image" part, writing the error response itself when
// it returns false.
func (s *Server) readImage(c *gin.Context) ([]byte, bool) {
	if c.Request.ContentLength > MaxUploadSize+formOverhead {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": errImageTooLarge.Error()})
		return nil, false
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadSize+formOverhead)

	file, err := c.FormFile("image")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": errImageTooLarge.Error()})
			return nil, false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": errImageRequired.Error()})
		return nil, false
	}
	if file.Size > MaxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": errImageTooLarge.Error()})
		return nil, false
	}

	data, err := readPart(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read image"})
		return nil, false
	}
	if len(data) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": errImageEmpty.Error()})
		return nil, false
	}
	return data, true
}

func readPart(file *multipart.FileHeader) ([]byte, error) {
	src, err := file.Open()
	if err != nil {
		return nil, errors.Wrap(err, "unable to open image")
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read image")
	}
	return data, nil
}
