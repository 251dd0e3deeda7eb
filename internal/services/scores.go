package services

import (
	"math"

	"github.com/siddhantsaxena45/AI-Interviewer/internal/models"
)

// ComputeScores averages over every question, so unevaluated ones count as
// zero. The overall score is the rounded mean of the two rounded category
// averages.
func ComputeScores(questions []models.Question) (float64, models.Metrics) {
	if len(questions) == 0 {
		return 0, models.Metrics{}
	}

	var technical, confidence float64
	for _, q := range questions {
		technical += q.TechnicalScore
		confidence += q.ConfidenceScore
	}

	n := float64(len(questions))
	m := models.Metrics{
		AvgTechnical:  math.Round(technical / n),
		AvgConfidence: math.Round(confidence / n),
	}
	overall := math.Round((m.AvgTechnical + m.AvgConfidence) / 2)
	return overall, m
}

func applyScores(s *models.Session) {
	s.OverallScore, s.Metrics = ComputeScores(s.Questions)
}
