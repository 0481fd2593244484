package main

import (
	"context"
	"testing"

	"grepconsole/src/console"
	"grepconsole/src/contracts"
	"grepconsole/src/grep"
	"grepconsole/src/logger"
	"grepconsole/src/store"
)

func newPinner(st store.Store) *pinner {
	return &pinner{ctx: context.Background(), store: st, runConfig: "tests", log: logger.NewSilentLogger()}
}

func TestPinSavesAncestors(t *testing.T) {
	st := store.NewInMemoryStore()
	src := console.New(console.Options{Profile: grep.DefaultProfile()})
	errs, _ := src.OpenGrep(&grep.Model{Expression: "error"}, console.GrepOptions{})
	db, _ := errs.OpenGrep(&grep.Model{Expression: "database", Regex: true}, console.GrepOptions{})

	if err := newPinner(st).pin(db); err != nil {
		t.Fatalf("pin() error: %v", err)
	}

	pins, err := st.ListPins(context.Background(), "tests")
	if err != nil {
		t.Fatalf("ListPins() error: %v", err)
	}
	if len(pins) != 2 {
		t.Fatalf("expected 2 pins, got %+v", pins)
	}

	byID := map[string]contracts.PinnedGrep{}
	for _, p := range pins {
		byID[p.ConsoleUUID] = p
	}
	if p := byID[errs.ID()]; p.ParentConsoleUUID != "" || p.Model.Expression != "error" {
		t.Errorf("parent pin = %+v", p)
	}
	if p := byID[db.ID()]; p.ParentConsoleUUID != errs.ID() || !p.Model.Regex {
		t.Errorf("child pin = %+v", p)
	}
}

func TestOnApplyUpdatesPinnedModel(t *testing.T) {
	st := store.NewInMemoryStore()
	p := newPinner(st)
	src := console.New(console.Options{})
	g, _ := src.OpenGrep(&grep.Model{Expression: "a"}, console.GrepOptions{OnApply: p.onApply})
	unpinned, _ := src.OpenGrep(&grep.Model{Expression: "b"}, console.GrepOptions{OnApply: p.onApply})

	if err := p.pin(g); err != nil {
		t.Fatalf("pin() error: %v", err)
	}
	if err := g.Apply(grep.Model{Expression: "changed"}); err != nil {
		t.Fatalf("Apply() error: %v", err)
	}
	// Not pinned: nothing to update, nothing created.
	if err := unpinned.Apply(grep.Model{Expression: "c"}); err != nil {
		t.Fatalf("Apply() error: %v", err)
	}

	pins, _ := st.ListPins(context.Background(), "tests")
	if len(pins) != 1 || pins[0].Model.Expression != "changed" {
		t.Errorf("pins = %+v", pins)
	}
}

func TestEnsureRunConfiguration(t *testing.T) {
	ctx := context.Background()
	st := store.NewInMemoryStore()

	rc, err := ensureRunConfiguration(ctx, st, "build")
	if err != nil {
		t.Fatalf("ensureRunConfiguration() error: %v", err)
	}
	if rc.Name != "build" {
		t.Errorf("Name = %q", rc.Name)
	}
	if _, err := st.GetRunConfiguration(ctx, "build"); err != nil {
		t.Errorf("run configuration was not saved: %v", err)
	}
}

func TestRestorePins(t *testing.T) {
	tests := []struct {
		name string
		pins []contracts.PinnedGrep
		// parent of each console UUID; "" means the source console
		wantParents map[string]string
	}{
		{
			name: "flat",
			pins: []contracts.PinnedGrep{
				{ConsoleUUID: "a", Model: contracts.GrepModel{Expression: "a"}},
				{ConsoleUUID: "b", Model: contracts.GrepModel{Expression: "b"}},
			},
			wantParents: map[string]string{"a": "", "b": ""},
		},
		{
			name: "child listed before parent",
			pins: []contracts.PinnedGrep{
				{ConsoleUUID: "child", ParentConsoleUUID: "parent", Model: contracts.GrepModel{Expression: "c"}},
				{ConsoleUUID: "parent", Model: contracts.GrepModel{Expression: "p"}},
			},
			wantParents: map[string]string{"parent": "", "child": "parent"},
		},
		{
			name: "missing parent",
			pins: []contracts.PinnedGrep{
				{ConsoleUUID: "orphan", ParentConsoleUUID: "gone", Model: contracts.GrepModel{Expression: "o"}},
			},
			wantParents: map[string]string{"orphan": ""},
		},
		{
			name: "cycle",
			pins: []contracts.PinnedGrep{
				{ConsoleUUID: "x", ParentConsoleUUID: "y", Model: contracts.GrepModel{Expression: "x"}},
				{ConsoleUUID: "y", ParentConsoleUUID: "x", Model: contracts.GrepModel{Expression: "y"}},
			},
			wantParents: map[string]string{"x": "", "y": ""},
		},
		{
			name: "invalid expression skipped",
			pins: []contracts.PinnedGrep{
				{ConsoleUUID: "bad", Model: contracts.GrepModel{Expression: "(", Regex: true}},
				{ConsoleUUID: "good", Model: contracts.GrepModel{Expression: "("}},
			},
			wantParents: map[string]string{"good": ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := console.New(console.Options{})
			consoles := restorePins(src, tt.pins, nil, logger.NewSilentLogger())

			if len(consoles) != len(tt.wantParents) {
				t.Fatalf("restored %d consoles, want %d", len(consoles), len(tt.wantParents))
			}
			for _, c := range consoles {
				want, ok := tt.wantParents[c.ID()]
				if !ok {
					t.Errorf("unexpected console %s", c.ID())
					continue
				}
				if want == "" {
					want = src.ID()
				}
				if c.ParentID() != want {
					t.Errorf("%s parent = %s, want %s", c.ID(), c.ParentID(), want)
				}
			}
		})
	}
}

func TestRestoredChainGreps(t *testing.T) {
	src := console.New(console.Options{Profile: grep.DefaultProfile()})
	consoles := restorePins(src, []contracts.PinnedGrep{
		{ConsoleUUID: "errors", Model: contracts.GrepModel{Expression: "error"}},
		{ConsoleUUID: "disk", ParentConsoleUUID: "errors", Model: contracts.GrepModel{Expression: "disk"}},
	}, nil, logger.NewSilentLogger())

	src.Write(contracts.Chunk{Producer: "stdout", Text: "error: disk full\nerror: timeout\ndisk ok\n"})

	disk := consoles[1]
	lines := disk.Lines()
	if len(lines) != 1 || lines[0].Text != "error: disk full" {
		t.Errorf("disk console lines = %+v", lines)
	}
}
