package device

import (
	"context"
	"testing"

	"github.com/ccdanpian/vision-agent/pkg/config"
)

func newMockForTest() *MockSurface {
	cfg := config.DefaultConfig()
	cfg.Device.DebugScreenWidth = 400
	cfg.Device.DebugScreenHeight = 800
	return NewMockSurface(cfg)
}

func TestMockSurfaceScreenSizeMatchesConfig(t *testing.T) {
	m := newMockForTest()
	size, err := m.ScreenSize(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if size.Width != 400 || size.Height != 800 {
		t.Fatalf("unexpected size: %+v", size)
	}
}

func TestMockSurfaceScreenshotMatchesConfiguredResolution(t *testing.T) {
	m := newMockForTest()
	shot, err := m.Screenshot(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if shot.Width != 400 || shot.Height != 800 {
		t.Fatalf("unexpected screenshot dims: %+v", shot)
	}
	if len(shot.Bytes) == 0 {
		t.Fatalf("expected non-empty screenshot bytes")
	}
}

func TestMockSurfaceLaunchAppUpdatesForeground(t *testing.T) {
	m := newMockForTest()
	ctx := context.Background()
	if err := m.LaunchApp(ctx, "com.tencent.mm"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fg, err := m.ForegroundPackage(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fg != "com.tencent.mm" {
		t.Fatalf("expected foreground com.tencent.mm, got %s", fg)
	}
}

func TestMockSurfaceGoHomeResetsForeground(t *testing.T) {
	m := newMockForTest()
	ctx := context.Background()
	_ = m.LaunchApp(ctx, "com.tencent.mm")
	if err := m.GoHome(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fg, _ := m.ForegroundPackage(ctx)
	if fg != "com.android.launcher3" {
		t.Fatalf("expected launcher foreground after GoHome, got %s", fg)
	}
}

func TestMockSurfaceRespectsContextCancellation(t *testing.T) {
	m := newMockForTest()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := m.Tap(ctx, 10, 10); err == nil {
		t.Fatalf("expected error from cancelled context")
	}
}

func TestMockSurfaceInputWideTextSucceeds(t *testing.T) {
	m := newMockForTest()
	if err := m.InputWideText(context.Background(), "你好"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNeedsWideCharModeDetectsNonASCII(t *testing.T) {
	cases := map[string]bool{
		"hello":       false,
		"hello world": false,
		"你好":          true,
		"café":        true,
		"":            false,
	}
	for in, want := range cases {
		if got := NeedsWideCharMode(in); got != want {
			t.Fatalf("NeedsWideCharMode(%q) = %v, want %v", in, got, want)
		}
	}
}
