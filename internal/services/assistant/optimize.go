package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	pgrepo "github.com/ivankudzin/jobswipe/internal/repo/postgres"
)

var ErrNoCredits = errors.New("no ai credits remaining")

const optimizePrompt = `You are a career coach and profile optimization expert. Analyze and optimize the profile for better job matching. Return a JSON object:
{
  "optimizedHeadline": "Improved headline with keywords",
  "optimizedBio": "Enhanced bio with better structure and keywords",
  "suggestedSkills": ["skills to add based on target roles"],
  "tips": ["actionable improvement tips"],
  "keywordSuggestions": ["keywords to include"]
}`

// CreditStore meters optimization requests per user.
type CreditStore interface {
	ConsumeAICredit(ctx context.Context, userID int64) (int, error)
	RefundAICredit(ctx context.Context, userID int64) error
}

type ProfileInput struct {
	UserID      int64
	Headline    string
	Bio         string
	Skills      []string
	TargetRoles []string
}

type Optimization struct {
	OptimizedHeadline  string   `json:"optimizedHeadline"`
	OptimizedBio       string   `json:"optimizedBio"`
	SuggestedSkills    []string `json:"suggestedSkills"`
	Tips               []string `json:"tips"`
	KeywordSuggestions []string `json:"keywordSuggestions"`
}

type OptimizeResult struct {
	Suggestions      Optimization
	CreditsRemaining int
}

// OptimizeProfile spends one AI credit. Without a model the current texts
// come back with generic advice. A failed model call refunds the credit.
func (s *Service) OptimizeProfile(ctx context.Context, in ProfileInput) (OptimizeResult, error) {
	if in.UserID <= 0 {
		return OptimizeResult{}, fmt.Errorf("invalid user id")
	}
	if s.credits == nil {
		return OptimizeResult{}, fmt.Errorf("ai credit store is not configured")
	}

	left, err := s.credits.ConsumeAICredit(ctx, in.UserID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrQuotaExhausted) {
			return OptimizeResult{}, ErrNoCredits
		}
		return OptimizeResult{}, err
	}

	if s.completer == nil {
		s.metrics.RecordSuggestions("static")
		return OptimizeResult{Suggestions: staticOptimization(in), CreditsRemaining: left}, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	opt, err := s.optimize(callCtx, in)
	if err != nil {
		s.metrics.RecordSuggestions("empty")
		if rerr := s.credits.RefundAICredit(context.WithoutCancel(ctx), in.UserID); rerr != nil {
			s.logger.Error("refund ai credit failed", zap.Int64("user_id", in.UserID), zap.Error(rerr))
		}
		return OptimizeResult{}, fmt.Errorf("optimize profile: %w", err)
	}
	s.metrics.RecordSuggestions("ai")
	return OptimizeResult{Suggestions: opt, CreditsRemaining: left}, nil
}

func (s *Service) optimize(ctx context.Context, in ProfileInput) (Optimization, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return Optimization{}, fmt.Errorf("wait for model slot: %w", err)
	}

	content, err := s.completer.CompleteJSON(ctx, optimizePrompt, optimizeUserPrompt(in))
	if err != nil {
		return Optimization{}, err
	}

	var out Optimization
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return Optimization{}, fmt.Errorf("decode optimization: %w", err)
	}
	if strings.TrimSpace(out.OptimizedHeadline) == "" {
		out.OptimizedHeadline = in.Headline
	}
	if strings.TrimSpace(out.OptimizedBio) == "" {
		out.OptimizedBio = in.Bio
	}
	return out.normalized(), nil
}

func staticOptimization(in ProfileInput) Optimization {
	return Optimization{
		OptimizedHeadline:  in.Headline,
		OptimizedBio:       in.Bio,
		SuggestedSkills:    []string{"Communication", "Problem-solving", "Teamwork"},
		Tips:               []string{"Add more keywords", "Include measurable achievements"},
		KeywordSuggestions: []string{"leadership", "innovation", "collaboration"},
	}
}

func (o Optimization) normalized() Optimization {
	o.SuggestedSkills = nonEmpty(o.SuggestedSkills)
	o.Tips = nonEmpty(o.Tips)
	o.KeywordSuggestions = nonEmpty(o.KeywordSuggestions)
	return o
}

func nonEmpty(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func optimizeUserPrompt(in ProfileInput) string {
	var b strings.Builder
	b.WriteString("Optimize this profile:\n")
	fmt.Fprintf(&b, "Current Headline: %s\n", in.Headline)
	fmt.Fprintf(&b, "Current Bio: %s\n", in.Bio)
	fmt.Fprintf(&b, "Current Skills: %s\n", strings.Join(in.Skills, ", "))
	fmt.Fprintf(&b, "Target Roles: %s", strings.Join(in.TargetRoles, ", "))
	return b.String()
}
