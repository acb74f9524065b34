package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nexconsult/mtr-api/internal/upstream"
	"github.com/sirupsen/logrus"
)

// MTRService dispatches gateway calls to the agency adapters and records
// their outcomes
type MTRService struct {
	registry *upstream.Registry
	stats    StatsServiceInterface
	logger   *logrus.Logger
}

// NewMTRService creates a new MTR service
func NewMTRService(registry *upstream.Registry, stats StatsServiceInterface, logger *logrus.Logger) MTRServiceInterface {
	return &MTRService{
		registry: registry,
		stats:    stats,
		logger:   logger,
	}
}

// Agencies lists the registered agencies
func (s *MTRService) Agencies() []string {
	return s.registry.Names()
}

func (s *MTRService) adapter(agency, action string) (*upstream.Adapter, error) {
	a, ok := s.registry.Get(agency)
	if !ok {
		return nil, upstream.InvalidRequest(agency, action, "unknown or unconfigured agency")
	}
	return a, nil
}

// run executes one adapter call, logs it and counts its outcome
func (s *MTRService) run(ctx context.Context, agency, action string, call func(*upstream.Adapter) (*upstream.Result, error)) (*upstream.Result, error) {
	start := time.Now()
	logger := s.logger.WithFields(logrus.Fields{
		"agency": agency,
		"action": action,
	})

	a, err := s.adapter(agency, action)
	if err != nil {
		s.stats.Record(ctx, agency, action, outcome(nil, err))
		return nil, err
	}

	result, err := call(a)
	s.stats.Record(ctx, a.Name(), action, outcome(result, err))

	if err != nil {
		logger.WithError(err).WithField("duration", time.Since(start)).Warn("Agency call failed")
		return nil, err
	}
	logger.WithFields(logrus.Fields{
		"success":  result.Success,
		"duration": time.Since(start),
	}).Info("Agency call completed")
	return result, nil
}

func outcome(result *upstream.Result, err error) string {
	if err != nil {
		if kind, ok := upstream.KindOf(err); ok {
			return kind.Code()
		}
		return "INTERNAL_ERROR"
	}
	if result != nil && !result.Success {
		return result.Reason.Code()
	}
	return OutcomeSuccess
}

// FetchManifest retrieves one manifest from agency
func (s *MTRService) FetchManifest(ctx context.Context, agency string, creds upstream.Credentials, q upstream.ManifestQuery) (*upstream.Result, error) {
	return s.run(ctx, agency, upstream.ActionManifest, func(a *upstream.Adapter) (*upstream.Result, error) {
		return a.FetchManifest(ctx, creds, q)
	})
}

// SearchPartner looks up a partner on agency
func (s *MTRService) SearchPartner(ctx context.Context, agency string, creds upstream.Credentials, q upstream.PartnerQuery) (*upstream.Result, error) {
	return s.run(ctx, agency, upstream.ActionSearchPartner, func(a *upstream.Adapter) (*upstream.Result, error) {
		return a.SearchPartner(ctx, creds, q)
	})
}

// ListDeclarations pages through the DMR listing
func (s *MTRService) ListDeclarations(ctx context.Context, agency string, creds upstream.Credentials, page upstream.DeclarationPage) (*upstream.Result, error) {
	return s.run(ctx, agency, upstream.ActionListDeclarations, func(a *upstream.Adapter) (*upstream.Result, error) {
		return a.ListDeclarations(ctx, creds, page)
	})
}

// FilterDeclarations filters declarations by period
func (s *MTRService) FilterDeclarations(ctx context.Context, agency string, creds upstream.Credentials, r upstream.DateRange) (*upstream.Result, error) {
	return s.run(ctx, agency, upstream.ActionFilterDeclarations, func(a *upstream.Adapter) (*upstream.Result, error) {
		return a.FilterDeclarations(ctx, creds, r)
	})
}

// UpdateDeclaredItems forwards a declared-items update
func (s *MTRService) UpdateDeclaredItems(ctx context.Context, agency string, creds upstream.Credentials, code string, items json.RawMessage) (*upstream.Result, error) {
	return s.run(ctx, agency, upstream.ActionUpdateItems, func(a *upstream.Adapter) (*upstream.Result, error) {
		return a.UpdateDeclaredItems(ctx, creds, code, items)
	})
}

// FetchDeclaration downloads and parses one declaration
func (s *MTRService) FetchDeclaration(ctx context.Context, agency string, creds upstream.Credentials, code string) (*upstream.Result, error) {
	return s.run(ctx, agency, upstream.ActionDeclaration, func(a *upstream.Adapter) (*upstream.Result, error) {
		return a.FetchDeclaration(ctx, creds, code)
	})
}
