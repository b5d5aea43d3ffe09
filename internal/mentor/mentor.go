// Package mentor asks Gemini for a short coaching tip about the user's habits.
// Every failure path still yields displayable advice.
package mentor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/julianstephens/restreak/internal/constants"
	"github.com/julianstephens/restreak/internal/logger"
	"github.com/julianstephens/restreak/internal/metrics"
	"github.com/julianstephens/restreak/internal/models"
)

var (
	ErrRateLimited = errors.New("mentor rate limit exceeded")
	ErrNoAPIKey    = errors.New("no Gemini API key configured")
)

type Config struct {
	APIKey         string
	Model          string
	BaseURL        string
	RatePerMinute  int
	RequestTimeout time.Duration
}

type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
}

func New(cfg Config) *Client {
	if cfg.Model == "" {
		cfg.Model = constants.DefaultMentorModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = constants.DefaultMentorURL
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 20 * time.Second
	}
	perMinute := max(cfg.RatePerMinute, 1)
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.RequestTimeout},
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), max(perMinute/2, 1)),
	}
}

// Prompt builds the coaching prompt from the user's name, habit titles and
// the sum of all streaks.
func Prompt(displayName string, habits []models.Habit) string {
	titles := make([]string, len(habits))
	total := 0
	for i, h := range habits {
		titles[i] = h.Title
		total += h.Streak
	}
	var b strings.Builder
	b.WriteString("You are a motivational habit coach.\n")
	fmt.Fprintf(&b, "User %s has these habits: %s.\n", displayName, strings.Join(titles, ", "))
	fmt.Fprintf(&b, "Current total streak is %d days.\n\n", total)
	b.WriteString("TASK:\n")
	b.WriteString("1. If they have a habit related to 'Coding', 'Programming', 'Dev', or 'Tech', give a SPECIFIC tip about that (e.g., \"Clean code\", \"Commit often\", \"Take breaks\").\n")
	b.WriteString("2. If no tech habits, give a general consistency tip.\n")
	b.WriteString("3. Keep it short (max 2 sentences).\n")
	b.WriteString("4. Be encouraging but practical.\n")
	return b.String()
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Advise returns coaching text. The error is informational: when it is
// non-nil the text is one of the fallbacks.
func (c *Client) Advise(ctx context.Context, displayName string, habits []models.Habit) (string, error) {
	start := time.Now()
	text, err := c.advise(ctx, displayName, habits)
	status := "ok"
	switch {
	case errors.Is(err, ErrRateLimited):
		status = "rate_limited"
	case err != nil:
		status = "error"
	case text == constants.MentorEmptyFallback:
		status = "empty"
	}
	metrics.RecordMentorRequest(status, time.Since(start))
	if err != nil {
		logger.Warn("Mentor request failed", "error", err)
		return constants.MentorErrorFallback, err
	}
	return text, nil
}

func (c *Client) advise(ctx context.Context, displayName string, habits []models.Habit) (string, error) {
	if c.cfg.APIKey == "" {
		return "", ErrNoAPIKey
	}
	if !c.limiter.Allow() {
		return "", ErrRateLimited
	}

	body, err := json.Marshal(generateRequest{Contents: []content{{Parts: []part{{Text: Prompt(displayName, habits)}}}}})
	if err != nil {
		return "", err
	}
	endpoint := fmt.Sprintf("%s/%s:generateContent?key=%s",
		strings.TrimRight(c.cfg.BaseURL, "/"), url.PathEscape(c.cfg.Model), url.QueryEscape(c.cfg.APIKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read gemini response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gemini returned %s", resp.Status)
	}

	var out generateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode gemini response: %w", err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return constants.MentorEmptyFallback, nil
	}
	text := strings.TrimSpace(out.Candidates[0].Content.Parts[0].Text)
	if text == "" {
		return constants.MentorEmptyFallback, nil
	}
	return text, nil
}
