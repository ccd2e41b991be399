// Package assistant suggests opening lines for a new conversation and
// rewrites profiles for better matching against AI credits.
package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ivankudzin/jobswipe/internal/domain/enums"
	"github.com/ivankudzin/jobswipe/internal/metrics"
)

const maxSuggestions = 3

const systemPrompt = `You are a professional communication coach. Generate appropriate message suggestions for job-related conversations. Return a JSON object:
{
  "suggestions": ["3 personalized message options"]
}`

var staticSuggestions = map[enums.Role][]string{
	enums.RoleJobSeeker: {
		"Hi! I'm excited about this opportunity. I'd love to learn more about the role.",
		"Thank you for matching! I believe my experience aligns well with what you're looking for.",
		"Hello! I'm very interested in this position. When would be a good time to chat?",
	},
	enums.RoleRecruiter: {
		"Hi! Your profile caught my attention. Would you be interested in discussing this opportunity?",
		"Hello! I think you'd be a great fit for our team. Let's schedule a call!",
		"Thanks for your interest! I'd love to tell you more about the role and our company.",
	},
}

type Completer interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

type Cache interface {
	GetJSON(ctx context.Context, key string, dst any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
}

type Dependencies struct {
	// Completer is nil when no API key is configured.
	Completer Completer
	Credits   CreditStore
	Cache     Cache
	Metrics   metrics.Recorder
	Logger    *zap.Logger
}

type Config struct {
	Timeout        time.Duration
	CacheTTL       time.Duration
	RequestsPerSec float64
	Burst          int
}

type Request struct {
	MatchID          int64
	Role             enums.Role
	JobTitle         string
	PreviousMessages []string
}

type Service struct {
	completer Completer
	credits   CreditStore
	cache     Cache
	limiter   *rate.Limiter
	metrics   metrics.Recorder
	logger    *zap.Logger
	cfg       Config
}

func NewService(deps Dependencies, cfg Config) *Service {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	if cfg.RequestsPerSec <= 0 {
		cfg.RequestsPerSec = 2
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 4
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.Nop{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Service{
		completer: deps.Completer,
		credits:   deps.Credits,
		cache:     deps.Cache,
		limiter:   rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), cfg.Burst),
		metrics:   deps.Metrics,
		logger:    deps.Logger,
		cfg:       cfg,
	}
}

// Suggest never fails: without a model it returns the static list for the
// role, and on any model error or timeout it returns an empty list.
func (s *Service) Suggest(ctx context.Context, req Request) []string {
	if s.completer == nil {
		s.metrics.RecordSuggestions("static")
		return append([]string(nil), staticSuggestions[req.Role]...)
	}

	key := fmt.Sprintf("%d:%s", req.MatchID, req.Role)
	if s.cache != nil {
		var cached []string
		found, err := s.cache.GetJSON(ctx, key, &cached)
		if err != nil {
			s.logger.Warn("read suggestion cache failed", zap.Error(err))
		}
		if found {
			s.metrics.RecordSuggestions("cache")
			return cached
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	suggestions, err := s.generate(callCtx, req)
	if err != nil {
		s.metrics.RecordSuggestions("empty")
		s.logger.Warn("generate suggestions failed", zap.Int64("match_id", req.MatchID), zap.Error(err))
		return []string{}
	}

	if s.cache != nil && len(suggestions) > 0 {
		if err := s.cache.SetJSON(ctx, key, suggestions, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("write suggestion cache failed", zap.Error(err))
		}
	}
	s.metrics.RecordSuggestions("ai")
	return suggestions
}

func (s *Service) generate(ctx context.Context, req Request) ([]string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("wait for model slot: %w", err)
	}

	content, err := s.completer.CompleteJSON(ctx, systemPrompt, userPrompt(req))
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Suggestions []string `json:"suggestions"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, fmt.Errorf("decode suggestions: %w", err)
	}

	out := make([]string, 0, maxSuggestions)
	for _, item := range parsed.Suggestions {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
		if len(out) == maxSuggestions {
			break
		}
	}
	return out, nil
}

func userPrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Sender role: %s\n", req.Role)
	b.WriteString("Context: New match, first message\n")
	if req.JobTitle != "" {
		fmt.Fprintf(&b, "Job: %s\n", req.JobTitle)
	}
	if len(req.PreviousMessages) > 0 {
		b.WriteString("Previous messages:\n")
		b.WriteString(strings.Join(req.PreviousMessages, "\n"))
	}
	return b.String()
}
