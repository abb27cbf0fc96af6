package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/couchcryptid/outbreak-risk-service/internal/domain"
)

func (s *Server) handlePredict(c *gin.Context) {
	var in domain.FeatureInput
	if err := c.ShouldBindJSON(&in); err != nil {
		writeError(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	rec, err := in.Resolve()
	if err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}

	decision, err := s.deps.Predictor.Predict(c.Request.Context(), rec)
	if err != nil {
		status := errorStatus(err)
		msg := "prediction failed"
		switch status {
		case http.StatusBadRequest:
			msg = err.Error()
		case http.StatusBadGateway:
			msg = "risk scoring unavailable"
		}
		writeError(c, status, msg)
		return
	}

	decision.Probability = domain.RoundProbability(decision.Probability)
	c.JSON(http.StatusOK, decision)
}

func (s *Server) handleHeatmap(c *gin.Context) {
	points, err := s.deps.Reports.Heatmap(c.Request.Context())
	if err != nil {
		s.logger.Error("heatmap read failed", "error", err)
		writeError(c, http.StatusInternalServerError, "heatmap unavailable")
		return
	}
	c.JSON(http.StatusOK, points)
}

func (s *Server) handleSummary(c *gin.Context) {
	summary, err := s.deps.Reports.Summary(c.Request.Context())
	if err != nil {
		s.logger.Error("summary read failed", "error", err)
		writeError(c, http.StatusInternalServerError, "summary unavailable")
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) handleAlerts(c *gin.Context) {
	alerts, err := s.deps.Reports.Alerts(c.Request.Context())
	if err != nil {
		s.logger.Error("alert feed read failed", "error", err)
		writeError(c, http.StatusInternalServerError, "alerts unavailable")
		return
	}
	c.JSON(http.StatusOK, alerts)
}

type caseReportRequest struct {
	PatientName *string `json:"patient_name" binding:"required"`
	Age         *int    `json:"age" binding:"required"`
	Village     *string `json:"village" binding:"required"`
	Symptoms    *string `json:"symptoms" binding:"required"`
	Severity    *string `json:"severity" binding:"required"`
}

func (s *Server) handleCaseReport(c *gin.Context) {
	var req caseReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid case report: "+err.Error())
		return
	}
	stored, err := s.deps.FieldReports.AppendCaseReport(c.Request.Context(), domain.CaseReport{
		PatientName: *req.PatientName,
		Age:         *req.Age,
		Village:     *req.Village,
		Symptoms:    *req.Symptoms,
		Severity:    *req.Severity,
	})
	if err != nil {
		s.logger.Error("store case report failed", "village", *req.Village, "error", err)
		writeError(c, http.StatusInternalServerError, "case report not saved")
		return
	}
	s.logger.Info("case reported", "id", stored.ID, "village", stored.Village, "severity", stored.Severity)
	c.JSON(http.StatusOK, gin.H{"message": "Case Reported Successfully"})
}

type waterReportRequest struct {
	Source    *string  `json:"source" binding:"required"`
	Location  *string  `json:"location" binding:"required"`
	PH        *float64 `json:"ph" binding:"required"`
	Turbidity *float64 `json:"turbidity" binding:"required"`
}

func (s *Server) handleWaterReport(c *gin.Context) {
	var req waterReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid water report: "+err.Error())
		return
	}
	stored, err := s.deps.FieldReports.AppendWaterReport(c.Request.Context(), domain.WaterReport{
		Source:    *req.Source,
		Location:  *req.Location,
		PH:        *req.PH,
		Turbidity: *req.Turbidity,
	})
	if err != nil {
		s.logger.Error("store water report failed", "location", *req.Location, "error", err)
		writeError(c, http.StatusInternalServerError, "water report not saved")
		return
	}
	s.logger.Info("water quality reported", "id", stored.ID, "location", stored.Location)
	c.JSON(http.StatusOK, gin.H{"message": "Water Data Saved"})
}

func handleHygieneTips(c *gin.Context) {
	c.JSON(http.StatusOK, domain.HygieneTips)
}
