package main

import (
	"context"
	"errors"

	"grepconsole/src/console"
	"grepconsole/src/contracts"
	"grepconsole/src/grep"
	"grepconsole/src/logger"
	"grepconsole/src/store"
)

// pinner persists the grep consoles of one run configuration.
type pinner struct {
	ctx       context.Context
	store     store.Store
	runConfig string
	log       logger.Logger
}

// pin saves g together with the grep consoles it was derived from, so the whole
// chain is reopened on the next run.
func (p *pinner) pin(g *console.Console) error {
	var chain []*console.Console
	for c := g; c != nil && c.IsGrep(); c = c.Parent() {
		chain = append(chain, c)
	}

	// Parents first, so they are listed before their children.
	for i := len(chain) - 1; i >= 0; i-- {
		c := chain[i]
		model, _ := c.Model()
		pin := contracts.PinnedGrep{
			ConsoleUUID:      c.ID(),
			RunConfiguration: p.runConfig,
			Model:            model.ToContract(),
		}
		if parent := c.Parent(); parent != nil && parent.IsGrep() {
			pin.ParentConsoleUUID = parent.ID()
		}
		if err := p.store.SavePin(p.ctx, pin); err != nil {
			return err
		}
		p.log.Debug("[Pins] Pinned %s (%q) to %s", c.ID(), model.Expression, p.runConfig)
	}
	return nil
}

// onApply keeps the stored model of a pinned console in sync. Consoles that are
// not pinned are ignored.
func (p *pinner) onApply(c *console.Console, model grep.Model) {
	err := p.store.UpdatePinModel(p.ctx, p.runConfig, c.ID(), model.ToContract())
	var notFound store.ErrNotFound
	if err != nil && !errors.As(err, &notFound) {
		p.log.Error("[Pins] Failed to update pin %s: %v", c.ID(), err)
	}
}

// ensureRunConfiguration loads a run configuration, creating it on first use.
func ensureRunConfiguration(ctx context.Context, st store.Store, name string) (contracts.RunConfiguration, error) {
	rc, err := st.GetRunConfiguration(ctx, name)
	var notFound store.ErrNotFound
	if errors.As(err, &notFound) {
		rc = contracts.RunConfiguration{Name: name}
		return rc, st.SaveRunConfiguration(ctx, rc)
	}
	return rc, err
}

// restorePins reopens pinned grep consoles below src, each after the console it
// was derived from. Pins whose parent is missing are derived from src. Pins
// with an expression that no longer compiles are skipped with a warning.
func restorePins(src *console.Console, pins []contracts.PinnedGrep, onApply func(*console.Console, grep.Model), log logger.Logger) []*console.Console {
	opened := map[string]*console.Console{}
	var consoles []*console.Console

	open := func(parent *console.Console, pin contracts.PinnedGrep) {
		model := grep.ModelFromContract(pin.Model)
		c, err := parent.OpenGrep(&model, console.GrepOptions{ID: pin.ConsoleUUID, OnApply: onApply})
		if err != nil {
			log.Warn("[Pins] Skipping pin %s: %v", pin.ConsoleUUID, err)
			return
		}
		opened[pin.ConsoleUUID] = c
		consoles = append(consoles, c)
	}

	known := map[string]bool{}
	for _, pin := range pins {
		known[pin.ConsoleUUID] = true
	}

	pending := pins
	for len(pending) > 0 {
		var next []contracts.PinnedGrep
		for _, pin := range pending {
			switch {
			case pin.ParentConsoleUUID == "" || !known[pin.ParentConsoleUUID]:
				open(src, pin)
			case opened[pin.ParentConsoleUUID] != nil:
				open(opened[pin.ParentConsoleUUID], pin)
			default:
				next = append(next, pin)
			}
		}
		if len(next) == len(pending) {
			// Cycle or a parent that failed to open: derive the rest from src.
			for _, pin := range next {
				open(src, pin)
			}
			break
		}
		pending = next
	}
	return consoles
}
