// Package browserlogin drives headless Chrome through the legacy MTR login
// pages and hands back the session cookies it captured.
package browserlogin

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/nexconsult/mtr-api/internal/config"
	"github.com/nexconsult/mtr-api/internal/upstream"
	"github.com/sirupsen/logrus"
)

var (
	// ErrUnknownFlow is returned for agencies without a scripted login
	ErrUnknownFlow = errors.New("no browser login flow for agency")
	// ErrMissingCredentials is returned before a browser is started
	ErrMissingCredentials = errors.New("cnpj, cpf and senha are required")
)

// Default portal entry points; <AGENCY>_PORTAL_URL overrides them.
var defaultPortals = map[string]string{
	"ima":  "https://mtr.ima.sc.gov.br/",
	"feam": "https://mtr.meioambiente.mg.gov.br/",
}

// Cookie is one captured cookie
type Cookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Service runs login flows, at most cfg.MaxConcurrent browsers at a time.
// Every login gets a fresh browser profile so sessions never leak between
// callers.
type Service struct {
	cfg    config.BrowserConfig
	flows  map[string]Flow
	sem    chan struct{}
	logger *logrus.Logger
}

// NewService creates the service with the IMA and FEAM flows
func NewService(cfg *config.Config, logger *logrus.Logger) *Service {
	flows := make(map[string]Flow, len(defaultPortals))
	for name, portal := range defaultPortals {
		if override := cfg.Agency(name).PortalURL; override != "" {
			portal = override
		}
		flows[name] = Flow{Name: name, PortalURL: portal, SuccessMarker: defaultSuccessMarker}
	}

	limit := cfg.Browser.MaxConcurrent
	if limit <= 0 {
		limit = 1
	}
	return &Service{
		cfg:    cfg.Browser,
		flows:  flows,
		sem:    make(chan struct{}, limit),
		logger: logger,
	}
}

// Flows lists the available flow names
func (s *Service) Flows() []string {
	names := make([]string, 0, len(s.flows))
	for name := range s.flows {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Flow returns the named flow
func (s *Service) Flow(name string) (Flow, bool) {
	f, ok := s.flows[strings.ToLower(name)]
	return f, ok
}

// Login runs the named flow and returns the cookies of the logged-in page
func (s *Service) Login(ctx context.Context, name string, creds upstream.Credentials) ([]Cookie, error) {
	flow, ok := s.Flow(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFlow, name)
	}
	if creds.CNPJ == "" || creds.CPF == "" || creds.Password == "" {
		return nil, ErrMissingCredentials
	}

	select {
	case s.sem <- struct{}{}:
		defer func() { <-s.sem }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	start := time.Now()
	logger := s.logger.WithFields(logrus.Fields{
		"flow":   flow.Name,
		"portal": flow.PortalURL,
	})
	logger.Info("Starting browser login")

	timeout := s.cfg.LoginTimeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, s.allocatorOptions()...)
	defer allocCancel()
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	var captured []*network.Cookie
	err := chromedp.Run(browserCtx,
		flow.tasks(creds, s.cfg.StepDelay, s.cfg.WaitTimeout),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			captured, err = network.GetCookies().Do(ctx)
			return err
		}),
	)
	if err != nil {
		logger.WithError(err).WithField("duration", time.Since(start)).Error("Browser login failed")
		return nil, fmt.Errorf("%s login failed: %w", flow.Name, err)
	}

	cookies := make([]Cookie, 0, len(captured))
	names := make([]string, 0, len(captured))
	for _, c := range captured {
		cookies = append(cookies, Cookie{Name: c.Name, Value: c.Value})
		names = append(names, c.Name)
	}

	logger.WithFields(logrus.Fields{
		"cookies":  names,
		"duration": time.Since(start),
	}).Info("Browser login completed")
	return cookies, nil
}

// allocatorOptions mirrors the flags the container image is tuned for
func (s *Service) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-background-timer-throttling", true),
		chromedp.Flag("disable-backgrounding-occluded-windows", true),
		chromedp.Flag("disable-renderer-backgrounding", true),
		chromedp.Flag("disable-features", "TranslateUI"),
		chromedp.WindowSize(1366, 900),
	}
	if s.cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(s.cfg.UserAgent))
	}
	if s.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(s.cfg.ExecPath))
	}
	if s.cfg.Headless {
		opts = append(opts, chromedp.Headless)
	}
	return opts
}
