package api

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"loan-risk/internal/predict"
	"loan-risk/internal/render"
	"loan-risk/internal/scoring"
	"loan-risk/internal/store"
	"loan-risk/internal/util"
)

// predictionFailedMessage is shown whenever the prediction service cannot answer.
const predictionFailedMessage = "Could not get a prediction. Please ensure the API server is running."

// errAssessmentNotSaved marks failures that happen after the prediction succeeded.
var errAssessmentNotSaved = errors.New("could not save the assessment")

// Config defines server dependencies.
type Config struct {
	DBPath         string
	SilentDB       bool
	AllowedOrigins []string
	PredictConfig  predict.Config
	// FallbackBaseURL names a secondary prediction service tried when the primary fails.
	FallbackBaseURL string
	// Predictor overrides the HTTP prediction clients when set.
	Predictor predict.Predictor
	Retention time.Duration
}

// Server wires HTTP handlers with persistence, prediction and rendering.
type Server struct {
	db             *store.Database
	predictor      predict.Predictor
	endpoint       string
	allowedOrigins []string
	notifier       *AssessmentNotifier
	templates      *template.Template
	retention      time.Duration
}

// NewServer constructs the API server.
func NewServer(cfg Config) (*Server, error) {
	if cfg.DBPath == "" {
		return nil, errors.New("db path required")
	}

	predictor := cfg.Predictor
	endpoint := ""
	if predictor == nil {
		client, err := predict.NewClient(cfg.PredictConfig)
		if err != nil {
			return nil, fmt.Errorf("prediction client: %w", err)
		}
		predictor = client
		endpoint = client.Endpoint()
		logrus.WithFields(logrus.Fields{
			"endpoint":         endpoint,
			"timeout":          cfg.PredictConfig.Timeout,
			"cache_ttl":        cfg.PredictConfig.CacheTTL,
			"cache_size":       cfg.PredictConfig.CacheSize,
			"max_explanations": cfg.PredictConfig.MaxExplanations,
		}).Info("prediction client configured")

		if fallbackURL := strings.TrimSpace(cfg.FallbackBaseURL); fallbackURL != "" {
			fallbackCfg := cfg.PredictConfig
			fallbackCfg.BaseURL = fallbackURL
			fallback, err := predict.NewClient(fallbackCfg)
			if err != nil {
				return nil, fmt.Errorf("fallback prediction client: %w", err)
			}
			predictor = predict.WithFallback(client, fallback)
			logrus.WithField("endpoint", fallback.Endpoint()).Info("fallback prediction client configured")
		}
	}

	tmpl, err := render.Templates()
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	db, err := store.Open(cfg.DBPath, cfg.SilentDB)
	if err != nil {
		return nil, err
	}

	return &Server{
		db:             db,
		predictor:      predictor,
		endpoint:       endpoint,
		allowedOrigins: cfg.AllowedOrigins,
		notifier:       NewAssessmentNotifier(),
		templates:      tmpl,
		retention:      cfg.Retention,
	}, nil
}

// Close releases the underlying store.
func (s *Server) Close() error {
	return s.db.Close()
}

// Router configures gin routes.
func (s *Server) Router() (*gin.Engine, error) {
	r := gin.Default()
	r.SetHTMLTemplate(s.templates)

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowCredentials = true
	if len(s.allowedOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = s.allowedOrigins
	}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	corsCfg.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	r.Use(cors.New(corsCfg))

	r.GET("/", s.handleIndex)
	r.POST("/assess", s.handleAssessForm)
	r.GET("/assessments/:id/explanation", s.handleExplanationPage)
	r.GET("/assessments/:id/gauge", s.handleGaugeChart)
	r.GET("/static/style.css", s.handleStylesheet)

	r.GET("/api/healthz", s.handleHealth)
	r.GET("/api/config", s.handleConfig)

	api := r.Group("/api")
	{
		api.POST("/predict", s.handlePredict)
		api.GET("/assessments", s.handleListAssessments)
		api.GET("/stream/assessments", s.handleAssessmentStream)
		api.GET("/assessments/:id", s.handleGetAssessment)
		api.GET("/assessments/:id/explanation", s.handleExplanation)
	}

	return r, nil
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleConfig(c *gin.Context) {
	tiers := []TierDTO{
		{Tier: scoring.TierLow, MinPercent: 0},
		{Tier: scoring.TierMedium, MinPercent: scoring.MediumThreshold},
		{Tier: scoring.TierHigh, MinPercent: scoring.HighThreshold},
	}
	for i := range tiers {
		tiers[i].Label = tiers[i].Tier.Label()
		tiers[i].ColorToken = tiers[i].Tier.ColorToken()
		tiers[i].Color = render.ResolveColor(tiers[i].ColorToken)
	}

	count, err := s.db.CountAssessments()
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"prediction_endpoint": s.endpoint,
		"prediction_enabled":  s.predictor.Enabled(),
		"tiers":               tiers,
		"gauge_max_rotation":  scoring.GaugeMaxRotation,
		"feature_dictionary":  scoring.FeatureDescriptions(),
		"assessments":         count,
		"stream":              s.notifier.Status(),
	})
}

func (s *Server) handlePredict(c *gin.Context) {
	var app predict.LoanApplication
	if err := c.ShouldBindJSON(&app); err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}

	assessment, reading, err := s.assess(c.Request.Context(), app)
	if err != nil {
		if errors.Is(err, errAssessmentNotSaved) {
			s.renderError(c, http.StatusInternalServerError, errAssessmentNotSaved)
			return
		}
		s.renderError(c, http.StatusBadGateway, errors.New(predictionFailedMessage))
		return
	}

	c.JSON(http.StatusOK, PredictResponse{
		AssessmentID: assessment.ID,
		Gauge:        reading,
		Explanations: len(assessment.Explanation()),
	})
}

// assess runs one prediction and records it as the session holding the explanation.
func (s *Server) assess(ctx context.Context, app predict.LoanApplication) (*store.Assessment, scoring.GaugeReading, error) {
	timer := util.StartTimer()
	result, err := s.predictor.Predict(ctx, app)
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"grade":   app.Grade,
			"purpose": app.Purpose,
		}).Error("prediction failed")
		s.notifier.Publish(AssessmentEvent{Type: eventAssessmentFailed, Message: predictionFailedMessage})
		return nil, scoring.GaugeReading{}, err
	}

	reading := scoring.NewGauge(result.DefaultProbability)
	assessment := &store.Assessment{
		Grade:       app.Grade,
		Purpose:     app.Purpose,
		LoanAmount:  app.LoanAmount,
		Probability: reading.Probability,
		Percentage:  reading.Percentage,
		Tier:        string(reading.Tier),
	}
	if err := assessment.SetApplication(app); err != nil {
		logrus.WithError(err).Error("encode assessment")
		return nil, scoring.GaugeReading{}, fmt.Errorf("%w: %w", errAssessmentNotSaved, err)
	}
	if err := assessment.SetExplanation(result.Explanation); err != nil {
		logrus.WithError(err).Error("encode assessment")
		return nil, scoring.GaugeReading{}, fmt.Errorf("%w: %w", errAssessmentNotSaved, err)
	}
	assessment.ProcessingTimeMs = timer.ElapsedMs()

	if err := s.db.SaveAssessment(assessment); err != nil {
		logrus.WithError(err).Error("save assessment")
		return nil, scoring.GaugeReading{}, fmt.Errorf("%w: %w", errAssessmentNotSaved, err)
	}

	logrus.WithFields(logrus.Fields{
		"assessment":   assessment.ID,
		"probability":  reading.Probability,
		"tier":         reading.Tier,
		"explanations": len(result.Explanation),
		"duration_ms":  assessment.ProcessingTimeMs,
	}).Info("assessment completed")

	dto := AssessmentFromModel(*assessment)
	s.notifier.Publish(AssessmentEvent{Type: eventAssessmentCompleted, Assessment: &dto})
	return assessment, reading, nil
}

func (s *Server) handleListAssessments(c *gin.Context) {
	page, _ := strconv.Atoi(c.Query("page"))
	if page < 0 {
		page = 0
	}
	pageSize, _ := strconv.Atoi(c.Query("pageSize"))
	if pageSize <= 0 {
		pageSize = 25
	}
	if pageSize > 200 {
		pageSize = 200
	}

	rows, total, err := s.db.ListAssessments(page*pageSize, pageSize)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	dtos := make([]AssessmentDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, AssessmentFromModel(row))
	}
	c.JSON(http.StatusOK, AssessmentsResponse{Items: dtos, Total: total})
}

func (s *Server) handleGetAssessment(c *gin.Context) {
	assessment, ok := s.loadAssessment(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, AssessmentFromModel(*assessment))
}

func (s *Server) handleExplanation(c *gin.Context) {
	assessment, ok := s.loadAssessment(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, ExplanationResponse{
		AssessmentID: assessment.ID,
		Sentences:    SentencesFromItems(assessment.Explanation()),
	})
}

func (s *Server) handleAssessmentStream(c *gin.Context) {
	upgrader := websocket.Upgrader{
		HandshakeTimeout:  5 * time.Second,
		EnableCompression: true,
		CheckOrigin: func(r *http.Request) bool {
			if len(s.allowedOrigins) == 0 {
				return true
			}
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			if origin == "" {
				return true
			}
			for _, allowed := range s.allowedOrigins {
				if strings.EqualFold(origin, allowed) {
					return true
				}
			}
			return false
		},
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Warn("upgrade websocket")
		return
	}

	sub := s.notifier.Subscribe(conn)
	logrus.WithField("remote", conn.RemoteAddr().String()).Info("assessment websocket connected")
	defer s.notifier.Unsubscribe(sub)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if !websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.WithField("remote", conn.RemoteAddr().String()).Info("assessment websocket closed")
			} else {
				logrus.WithError(err).Warn("assessment websocket unexpected close")
			}
			break
		}
	}
}

// loadAssessment resolves :id and renders 404/500 itself when it fails.
func (s *Server) loadAssessment(c *gin.Context) (*store.Assessment, bool) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		s.renderError(c, http.StatusBadRequest, errors.New("assessment id is required"))
		return nil, false
	}
	assessment, err := s.db.GetAssessment(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.renderError(c, http.StatusNotFound, fmt.Errorf("assessment %s not found", id))
		} else {
			s.renderError(c, http.StatusInternalServerError, err)
		}
		return nil, false
	}
	return assessment, true
}

// StartRetention purges assessments older than the configured retention until ctx ends.
func (s *Server) StartRetention(ctx context.Context, interval time.Duration) {
	if s.retention <= 0 {
		return
	}
	if interval <= 0 {
		interval = time.Hour
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := s.db.PurgeBefore(time.Now().Add(-s.retention))
				if err != nil {
					logrus.WithError(err).Warn("purge expired assessments")
					continue
				}
				if removed > 0 {
					logrus.WithField("removed", removed).Info("purged expired assessments")
				}
			}
		}
	}()
}

func (s *Server) renderError(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{"error": err.Error()})
}
