package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"
)

// AnalyticsClient fetches metrics and learner data from the external
// learning-platform API. The dashboard never talks to that API directly;
// these proxy endpoints sit behind the session gate.
type AnalyticsClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type AnalyticsConfig struct {
	BaseURL string
	APIKey  string

	HTTPClient *http.Client
}

func NewAnalyticsClient(cfg AnalyticsConfig) *AnalyticsClient {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &AnalyticsClient{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: client,
	}
}

type CourseMetric struct {
	CourseID       string  `json:"course_id"`
	Title          string  `json:"title"`
	Enrollments    int     `json:"enrollments"`
	CompletionRate float64 `json:"completion_rate"`
	AverageScore   float64 `json:"average_score"`
}

type LearnerStat struct {
	LearnerID        string  `json:"learner_id"`
	Name             string  `json:"name"`
	Email            string  `json:"email"`
	CoursesCompleted int     `json:"courses_completed"`
	HoursSpent       float64 `json:"hours_spent"`
	LastActive       string  `json:"last_active"`
}

func (c *AnalyticsClient) CourseMetrics(ctx context.Context) ([]CourseMetric, error) {
	var metrics []CourseMetric
	if err := c.get(ctx, "/v1/metrics/courses", &metrics); err != nil {
		return nil, err
	}
	return metrics, nil
}

func (c *AnalyticsClient) LearnerStats(ctx context.Context) ([]LearnerStat, error) {
	var stats []LearnerStat
	if err := c.get(ctx, "/v1/metrics/learners", &stats); err != nil {
		return nil, err
	}
	return stats, nil
}

func (c *AnalyticsClient) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("analytics API returned %d for %s", resp.StatusCode, path)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// HandleDashboardMetrics proxies course metrics for the dashboard.
// GET /api/dashboard/metrics
func (a *App) HandleDashboardMetrics(w http.ResponseWriter, r *http.Request) {
	metrics, err := a.analytics.CourseMetrics(r.Context())
	if err != nil {
		log.Printf("dashboard metrics: %v", err)
		writeError(w, http.StatusBadGateway, "UPSTREAM_ERROR", msgUpstreamFailed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"metrics": metrics})
}

// HandleDashboardLearners proxies learner stats for the dashboard.
// GET /api/dashboard/learners
func (a *App) HandleDashboardLearners(w http.ResponseWriter, r *http.Request) {
	stats, err := a.analytics.LearnerStats(r.Context())
	if err != nil {
		log.Printf("dashboard learners: %v", err)
		writeError(w, http.StatusBadGateway, "UPSTREAM_ERROR", msgUpstreamFailed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"learners": stats})
}

// HandleDashboardLearnersCSV serves the learner stats as a CSV download.
// GET /api/dashboard/learners.csv
func (a *App) HandleDashboardLearnersCSV(w http.ResponseWriter, r *http.Request) {
	stats, err := a.analytics.LearnerStats(r.Context())
	if err != nil {
		log.Printf("dashboard learners csv: %v", err)
		writeError(w, http.StatusBadGateway, "UPSTREAM_ERROR", msgUpstreamFailed)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="learners.csv"`)

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"learner_id", "name", "email", "courses_completed", "hours_spent", "last_active"})
	for _, s := range stats {
		_ = cw.Write([]string{
			s.LearnerID,
			s.Name,
			s.Email,
			strconv.Itoa(s.CoursesCompleted),
			strconv.FormatFloat(s.HoursSpent, 'f', 2, 64),
			s.LastActive,
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		log.Printf("dashboard learners csv write: %v", err)
	}
}
