package executor

import (
	"context"
	"testing"

	"github.com/ccdanpian/vision-agent/pkg/locator"
	"github.com/ccdanpian/vision-agent/pkg/workflow"
)

func TestDetectScreenPrefersHomeThenPriorityOrder(t *testing.T) {
	surface := &fakeSurface{foreground: "com.example.app"}
	loc := &fakeLocator{found: map[string]locator.LocateResult{
		"primary:chat": {Success: true, X: 10, Y: 10},
	}}
	screens := workflow.Screens{States: map[string]workflow.ScreenIndicator{
		workflow.HomeState: {Primary: "home_indicator"},
		"chat":             {Primary: "chat_indicator"},
	}}
	ex := newTestExecutor(surface, loc, screens)

	screen, err := ex.detectScreen(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if screen != "chat" {
		t.Fatalf("expected chat screen, got %q", screen)
	}
}

func TestDetectScreenFallsBackToUnknown(t *testing.T) {
	surface := &fakeSurface{foreground: "com.example.app"}
	loc := &fakeLocator{found: map[string]locator.LocateResult{}}
	screens := workflow.Screens{States: map[string]workflow.ScreenIndicator{
		workflow.HomeState: {Primary: "home_indicator"},
	}}
	ex := newTestExecutor(surface, loc, screens)

	screen, err := ex.detectScreen(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if screen != workflow.UnknownState {
		t.Fatalf("expected unknown, got %q", screen)
	}
}

func TestDetectScreenUsesFallbackIndicatorWhenPrimaryMisses(t *testing.T) {
	surface := &fakeSurface{foreground: "com.example.app"}
	loc := &fakeLocator{found: map[string]locator.LocateResult{
		"fallback:chat:0": {Success: true},
	}}
	screens := workflow.Screens{States: map[string]workflow.ScreenIndicator{
		workflow.HomeState: {Primary: "home_indicator"},
		"chat":             {Primary: "chat_indicator", Fallback: []string{"chat_indicator_alt"}},
	}}
	ex := newTestExecutor(surface, loc, screens)

	screen, err := ex.detectScreen(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if screen != "chat" {
		t.Fatalf("expected chat via fallback indicator, got %q", screen)
	}
}
