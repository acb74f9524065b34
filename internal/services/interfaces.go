package services

import (
	"context"
	"encoding/json"

	"github.com/nexconsult/mtr-api/internal/upstream"
)

// MTRServiceInterface defines the gateway operations over every agency
type MTRServiceInterface interface {
	// Agencies lists the registered agencies
	Agencies() []string

	// FetchManifest retrieves one manifest
	FetchManifest(ctx context.Context, agency string, creds upstream.Credentials, q upstream.ManifestQuery) (*upstream.Result, error)

	// SearchPartner looks up a destination, carrier or storer
	SearchPartner(ctx context.Context, agency string, creds upstream.Credentials, q upstream.PartnerQuery) (*upstream.Result, error)

	// ListDeclarations pages through DMR declarations
	ListDeclarations(ctx context.Context, agency string, creds upstream.Credentials, page upstream.DeclarationPage) (*upstream.Result, error)

	// FilterDeclarations filters DMR declarations by period
	FilterDeclarations(ctx context.Context, agency string, creds upstream.Credentials, r upstream.DateRange) (*upstream.Result, error)

	// UpdateDeclaredItems forwards a declared-items update
	UpdateDeclaredItems(ctx context.Context, agency string, creds upstream.Credentials, code string, items json.RawMessage) (*upstream.Result, error)

	// FetchDeclaration downloads and parses one DMR declaration
	FetchDeclaration(ctx context.Context, agency string, creds upstream.Credentials, code string) (*upstream.Result, error)
}

// StatsServiceInterface defines the interface for outcome counters
type StatsServiceInterface interface {
	// Record counts one call outcome
	Record(ctx context.Context, agency, action, outcome string)

	// Snapshot returns agency -> "action:outcome" -> count
	Snapshot(ctx context.Context) (map[string]map[string]int64, error)

	// Health returns stats store health status
	Health() map[string]interface{}
}

// LoginServiceInterface checks the delegated browser-login service
type LoginServiceInterface interface {
	// Health returns the login service reachability
	Health(ctx context.Context) map[string]interface{}
}
