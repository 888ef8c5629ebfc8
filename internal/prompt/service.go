package prompt

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/askerp/askerp-server/internal/cache"
	"github.com/askerp/askerp-server/internal/platform/logger"
	"github.com/askerp/askerp-server/internal/store"
	"github.com/askerp/askerp-server/internal/store/model"
)

// An active template whose rendered output is this short is considered
// broken and the built-in default is used instead.
const minRenderedLength = 100

// Sentinel cached when a tier has no active template, so the miss itself
// is cached instead of hitting the database on every request.
const noTemplate = "__none__"

// MetricSource supplies precomputed metric lines for the business
// snapshot section of the prompt.
type MetricSource interface {
	PromptLines(ctx context.Context, category string) ([]string, error)
}

// Service assembles the system prompt for a user: resolve tier from roles,
// find the active template for that tier, render placeholders, and fall
// back to the built-in default when the result is unusable.
type Service struct {
	templates store.TemplateRepository
	profiles  store.ProfileRepository
	settings  store.SettingsRepository
	objects   *cache.ObjectCache
	metrics   MetricSource
	now       func() time.Time
}

// NewService wires the prompt assembler. metrics may be nil; the
// cached_metrics placeholder then renders empty.
func NewService(repo store.Repository, objects *cache.ObjectCache, metrics MetricSource) *Service {
	return &Service{
		templates: repo.Templates(),
		profiles:  repo.Profile(),
		settings:  repo.Settings(),
		objects:   objects,
		metrics:   metrics,
		now:       time.Now,
	}
}

// SystemPrompt builds the complete rendered prompt for one user.
func (s *Service) SystemPrompt(ctx context.Context, user *model.User) (string, error) {
	tier := s.tierFor(ctx, user)

	profile, err := s.profile(ctx)
	if err != nil {
		return "", err
	}
	vars := Variables(user, profile, tier, s.now())
	vars["cached_metrics"] = s.metricLines(ctx)

	if content := s.activeTemplate(ctx, tier); content != "" {
		rendered := Render(content, vars)
		if len(rendered) > minRenderedLength {
			return rendered, nil
		}
		logger.Warn("active template rendered too short, using default",
			zap.String("tier", tier), zap.Int("length", len(rendered)))
	}

	return Render(DefaultTemplate(tier), vars), nil
}

// Preview renders arbitrary template text for a user without requiring the
// template to be saved or active. The template editor uses it.
func (s *Service) Preview(ctx context.Context, user *model.User, content string) (string, error) {
	profile, err := s.profile(ctx)
	if err != nil {
		return "", err
	}
	vars := Variables(user, profile, s.tierFor(ctx, user), s.now())
	vars["cached_metrics"] = s.metricLines(ctx)
	return Render(content, vars), nil
}

// tierFor resolves the caller's tier using the configured priority role
// lists. A failed settings read falls back to the default role sets.
func (s *Service) tierFor(ctx context.Context, user *model.User) string {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		logger.Warn("settings lookup failed, using default role sets", zap.Error(err))
		settings = nil
	}
	return RoleSetsFrom(settings).TierFor(ParseRoles(user.Roles))
}

// metricLines joins the precomputed metric snapshot into one block the
// templates can drop in via {{cached_metrics}}.
func (s *Service) metricLines(ctx context.Context) string {
	if s.metrics == nil {
		return ""
	}
	lines, err := s.metrics.PromptLines(ctx, "")
	if err != nil {
		logger.Warn("metric snapshot unavailable for prompt", zap.Error(err))
		return ""
	}
	return strings.Join(lines, "\n")
}

// profile loads the business profile, serving from the object cache when
// possible. Cache entries live 5 minutes; saves invalidate them sooner.
func (s *Service) profile(ctx context.Context) (*model.Profile, error) {
	if raw, ok := s.objects.Get(ctx, cache.ProfileKey); ok {
		var p model.Profile
		if err := json.Unmarshal([]byte(raw), &p); err == nil {
			return &p, nil
		}
	}
	p, err := s.profiles.Get(ctx)
	if err != nil {
		return nil, err
	}
	if buf, err := json.Marshal(p); err == nil {
		s.objects.Set(ctx, cache.ProfileKey, string(buf), cache.ProfileTTL)
	}
	return p, nil
}

// activeTemplate returns the active template content for a tier, or ""
// when none exists. Both hits and misses are cached for 60 seconds.
func (s *Service) activeTemplate(ctx context.Context, tier string) string {
	key := cache.TemplateKey(tier)
	if raw, ok := s.objects.Get(ctx, key); ok {
		if raw == noTemplate {
			return ""
		}
		return raw
	}

	t, err := s.templates.GetActive(ctx, tier)
	if err != nil {
		logger.Warn("active template lookup failed", zap.String("tier", tier), zap.Error(err))
		return ""
	}
	if t == nil || t.PromptContent == "" {
		s.objects.Set(ctx, key, noTemplate, cache.TemplateTTL)
		return ""
	}
	s.objects.Set(ctx, key, t.PromptContent, cache.TemplateTTL)
	return t.PromptContent
}
