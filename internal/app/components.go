package app

import (
	"context"
	"fmt"

	"katari/internal/browser"
	"katari/internal/capturer"
	"katari/internal/catalog"
	"katari/internal/config"
	"katari/internal/describer"
	"katari/internal/detector"
	"katari/internal/enumerator"
	"katari/internal/interfaces"
	"katari/internal/output"
)

// Components bundles the collaborators of a describe run. Production wiring
// comes from NewComponents; tests assemble the struct directly with doubles.
type Components struct {
	Provider   interfaces.SessionProvider
	Waiter     enumerator.ReadyWaiter
	Enumerator *enumerator.Enumerator
	Generator  interfaces.Generator
	Writer     *output.Writer
	Catalog    *catalog.Catalog

	// ProbeFor builds the page-structure probe over a report's page.
	ProbeFor func(page interfaces.Page) interfaces.StructureProbe

	// Selectors are the loading-indicator selectors fed to the sampler.
	Selectors []string
}

// NewSessionProvider wires the production session provider alone. The auth
// command uses it without the rest of the pipeline.
func NewSessionProvider(cfg *config.Config, logger interfaces.Logger) interfaces.SessionProvider {
	return browser.NewProvider(browser.ProviderConfig{
		StatePath: cfg.Session.StateFile,
		BaseURL:   cfg.Target.BaseURL,
		Browser: browser.Options{
			Headless:          cfg.Browser.Headless,
			WindowWidth:       cfg.Browser.WindowWidth,
			WindowHeight:      cfg.Browser.WindowHeight,
			NavigationTimeout: cfg.Browser.NavTimeout,
		},
	}, logger)
}

// NewComponents wires production collaborators from configuration. The
// generation client is skipped in capture-only mode so a capture run needs
// no cloud credentials.
func NewComponents(ctx context.Context, cfg *config.Config, opts RunOptions, logger interfaces.Logger) (*Components, error) {
	provider := NewSessionProvider(cfg, logger)

	det := detector.New(detector.Config{
		PollInterval: cfg.Detector.PollInterval,
		SettleDelay:  cfg.Detector.SettleDelay,
		MaxWait:      cfg.Detector.MaxWait,
	}, nil, logger)

	enum := enumerator.New(det, capturer.New(logger), logger)

	var gen interfaces.Generator
	if !opts.CaptureOnly {
		g, err := describer.NewGemini(ctx, describer.Config{
			Project:  cfg.Vertex.ProjectID,
			Location: cfg.Vertex.Location,
			Model:    cfg.Vertex.Model,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("new generator: %w", err)
		}
		gen = g
	}

	cat, err := catalog.Open(cfg.Catalog(), logger)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}

	return &Components{
		Provider:   provider,
		Waiter:     det,
		Enumerator: enum,
		Generator:  gen,
		Writer:     output.New(cfg.Output.Dir, logger),
		Catalog:    cat,
		ProbeFor: func(page interfaces.Page) interfaces.StructureProbe {
			return browser.NewLookerProbe(page, logger)
		},
		Selectors: browser.LoadingSelectors,
	}, nil
}

// Close releases everything NewComponents opened.
func (c *Components) Close() error {
	if c.Catalog != nil {
		return c.Catalog.Close()
	}
	return nil
}
