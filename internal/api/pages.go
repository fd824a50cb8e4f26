package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"loan-risk/internal/predict"
	"loan-risk/internal/render"
	"loan-risk/internal/scoring"
)

func (s *Server) handleIndex(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", render.NewFormView(nil, ""))
}

func (s *Server) handleAssessForm(c *gin.Context) {
	var app predict.LoanApplication
	if err := c.ShouldBind(&app); err != nil {
		c.HTML(http.StatusBadRequest, "index.html", render.NewFormView(&app, "Please check the application fields: "+err.Error()))
		return
	}

	assessment, reading, err := s.assess(c.Request.Context(), app)
	if err != nil {
		if errors.Is(err, errAssessmentNotSaved) {
			c.HTML(http.StatusInternalServerError, "index.html", render.NewFormView(&app, "Error: the prediction succeeded but "+errAssessmentNotSaved.Error()+"."))
			return
		}
		c.HTML(http.StatusBadGateway, "index.html", render.NewFormView(&app, "Error: "+predictionFailedMessage))
		return
	}
	c.HTML(http.StatusOK, "result.html", render.NewResultView(assessment.ID, reading))
}

func (s *Server) handleExplanationPage(c *gin.Context) {
	assessment, ok := s.loadAssessment(c)
	if !ok {
		return
	}
	reading := scoring.NewGauge(assessment.Probability)
	c.HTML(http.StatusOK, "explanation.html", render.NewExplanationView(assessment.ID, reading, assessment.Explanation()))
}

func (s *Server) handleGaugeChart(c *gin.Context) {
	assessment, ok := s.loadAssessment(c)
	if !ok {
		return
	}
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	if err := render.RenderGaugeChart(c.Writer, scoring.NewGauge(assessment.Probability)); err != nil {
		logrus.WithError(err).WithField("assessment", assessment.ID).Warn("render gauge chart")
	}
}

func (s *Server) handleStylesheet(c *gin.Context) {
	css, err := render.Stylesheet()
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, errors.New("stylesheet unavailable"))
		return
	}
	c.Data(http.StatusOK, "text/css; charset=utf-8", css)
}
