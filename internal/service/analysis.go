package service

import (
	"context"
	"fmt"
	"math"
	"sort"

	"smartpot/internal/models"
	"smartpot/internal/repository"
)

// Thresholds of the scale-buildup heuristic.
const (
	// comparableStartTempBandC filters sessions to roughly equal starting
	// conditions before boil times are compared.
	comparableStartTempBandC = 5.0
	// trendChangeRatio separates improving/degrading from stable.
	trendChangeRatio = 0.10
	// slowSessionRatio flags a single session as an outlier.
	slowSessionRatio = 0.15
)

// Recommendation texts, picked in priority order: degrading trend beats a
// single outlier, which beats an improving trend.
const (
	recommendDegrading = "Boiling time is increasing across sessions. Descaling the pot soon is recommended."
	recommendSlow      = "A slow session was detected (+%d%%). Possible scale buildup."
	recommendImproving = "Boiling time is improving. The pot looks clean."
	recommendStable    = "Boiling time is stable. All good."
)

// AnalysisService loads session records and runs the pure analysis over
// them.
type AnalysisService struct {
	repo repository.SessionRepo
}

func NewAnalysisService(repo repository.SessionRepo) *AnalysisService {
	return &AnalysisService{repo: repo}
}

// Analyze runs the scale analysis over the selected sessions, or over all
// stored sessions when ids is empty. The result is derived on every call
// and never cached.
func (s *AnalysisService) Analyze(ctx context.Context, ids []string) (models.ScaleAnalysis, error) {
	sessions, err := s.repo.List(ctx, repository.ListFilter{IDs: ids})
	if err != nil {
		return models.ScaleAnalysis{}, fmt.Errorf("load sessions: %w", err)
	}
	return AnalyzeSessions(sessions), nil
}

// AnalyzeSessions classifies whether any session's boil time is anomalous
// against the historical baseline and how boil time trends over time. Pure
// function: no side effects, fully re-derivable from its input.
func AnalyzeSessions(sessions []models.Session) models.ScaleAnalysis {
	if len(sessions) < 2 {
		return models.ScaleAnalysis{}
	}

	withBoil := make([]models.Session, 0, len(sessions))
	for _, s := range sessions {
		if s.BoilingTimeSeconds != nil && *s.BoilingTimeSeconds > 0 {
			withBoil = append(withBoil, s)
		}
	}
	if len(withBoil) < 2 {
		return models.ScaleAnalysis{}
	}

	var startSum float64
	for _, s := range withBoil {
		startSum += s.StartTemp
	}
	avgStartTemp := startSum / float64(len(withBoil))

	// Comparable set: sessions that started from about the same temperature.
	comparable := make([]models.Session, 0, len(withBoil))
	for _, s := range withBoil {
		if math.Abs(s.StartTemp-avgStartTemp) <= comparableStartTempBandC {
			comparable = append(comparable, s)
		}
	}
	if len(comparable) < 2 {
		return models.ScaleAnalysis{}
	}

	trend := classifyTrend(comparable)

	var boilSum float64
	for _, s := range comparable {
		boilSum += float64(*s.BoilingTimeSeconds)
	}
	avgBoil := boilSum / float64(len(comparable))

	var slow *models.Session
	var percentDiff int
	for i := range comparable {
		diff := (float64(*comparable[i].BoilingTimeSeconds) - avgBoil) / avgBoil
		if diff >= slowSessionRatio {
			slow = &comparable[i]
			percentDiff = int(math.Round(diff * 100))
			break
		}
	}

	var recommendation string
	switch {
	case trend == models.TrendDegrading:
		recommendation = recommendDegrading
	case slow != nil:
		recommendation = fmt.Sprintf(recommendSlow, percentDiff)
	case trend == models.TrendImproving:
		recommendation = recommendImproving
	default:
		recommendation = recommendStable
	}

	return models.ScaleAnalysis{
		HasSlow:        slow != nil,
		SlowSession:    slow,
		PercentDiff:    percentDiff,
		AvgBoilingTime: avgBoil,
		Trend:          trend,
		Recommendation: recommendation,
	}
}

// classifyTrend splits the chronologically ordered comparable set into "all
// but the last two" and "the last two" and compares their mean boil times.
// Needs at least 3 sessions; a zero historical mean counts as stable.
func classifyTrend(comparable []models.Session) models.Trend {
	if len(comparable) < 3 {
		return ""
	}

	sorted := make([]models.Session, len(comparable))
	copy(sorted, comparable)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].StartedAt.Before(sorted[j].StartedAt)
	})

	cut := len(sorted) - 2
	var oldSum, recentSum float64
	for _, s := range sorted[:cut] {
		oldSum += float64(*s.BoilingTimeSeconds)
	}
	for _, s := range sorted[cut:] {
		recentSum += float64(*s.BoilingTimeSeconds)
	}
	oldAvg := oldSum / float64(cut)
	recentAvg := recentSum / 2

	if oldAvg == 0 {
		return models.TrendStable
	}
	change := (recentAvg - oldAvg) / oldAvg
	switch {
	case change > trendChangeRatio:
		return models.TrendDegrading
	case change < -trendChangeRatio:
		return models.TrendImproving
	default:
		return models.TrendStable
	}
}
