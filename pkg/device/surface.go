// Package device exposes a synchronous command surface for driving a single
// Android device, with a real adb-backed implementation and a mock used when
// DEBUG_MODE is set. Callers depend only on Surface; NewSurface picks the
// concrete implementation at runtime.
package device

import (
	"context"
	"time"

	"github.com/ccdanpian/vision-agent/pkg/config"
	"github.com/ccdanpian/vision-agent/pkg/logger"
)

// ScreenSize is the device's reported display resolution in pixels.
type ScreenSize struct {
	Width  int
	Height int
}

// Screenshot is a captured frame plus the vertical crop offset (in source
// pixels) that was trimmed off the top before the bytes were encoded, so
// callers can translate locator coordinates back into device space.
type Screenshot struct {
	Bytes       []byte
	Format      string
	CropOffsetY int
	Width       int
	Height      int
}

// SafeAreaInsets describes chrome (status bar, gesture nav, notch cutouts)
// that a workflow should avoid when choosing tap targets near screen edges.
type SafeAreaInsets struct {
	Top    int
	Bottom int
	Left   int
	Right  int
}

// Surface is the command set every component above device operates against.
// Every method returns an error for anything that isn't success; errors are
// always *orcherr.Error with DeviceUnavailable or DeviceCommandFailed.
//
// Text input has two modes: InputText is the plain ASCII path (`input
// text`-style), and InputWideText is the broadcast/base64 IME path used
// whenever the text contains a code point NeedsWideCharMode reports true
// for. Callers pick between them; device implementations don't re-derive
// the mode themselves.
type Surface interface {
	Tap(ctx context.Context, x, y int) error
	LongPress(ctx context.Context, x, y int, durationMS int) error
	Swipe(ctx context.Context, x1, y1, x2, y2 int, durationMS int) error
	InputText(ctx context.Context, text string) error
	InputWideText(ctx context.Context, text string) error
	InputURL(ctx context.Context, url string) error
	PressKey(ctx context.Context, key string) error
	LaunchApp(ctx context.Context, packageName string) error
	StopApp(ctx context.Context, packageName string) error
	ForegroundPackage(ctx context.Context) (string, error)
	Screenshot(ctx context.Context) (*Screenshot, error)
	ScreenSize(ctx context.Context) (ScreenSize, error)
	SafeAreaInsets(ctx context.Context) (SafeAreaInsets, error)
	// GoHome presses the home key twice in a row, per the device
	// convention that a single press from inside some launcher widgets
	// or multi-window states can land on a recents/split view instead
	// of the true home screen.
	GoHome(ctx context.Context) error
}

// NewSurface picks RealSurface or MockSurface based on cfg.Device.DebugMode.
// Selection happens at runtime, not via build tags, so the same binary works
// against a live device or in a CI/no-hardware environment depending on the
// DEBUG_MODE env var alone.
func NewSurface(cfg *config.Config) Surface {
	if cfg.Device.DebugMode {
		logger.Info("device: running in mock mode (DEBUG_MODE set)")
		return NewMockSurface(cfg)
	}
	return NewRealSurface(cfg)
}

// NeedsWideCharMode reports whether text contains any code point at or
// above U+0080, the point at which the plain ASCII `input text` path can no
// longer represent it and the broadcast/base64 IME path must be used
// instead (§4.7's input_text/input_url rule).
func NeedsWideCharMode(text string) bool {
	for _, r := range text {
		if r >= 0x80 {
			return true
		}
	}
	return false
}

func commandTimeout(cfg *config.Config) time.Duration {
	ms := cfg.Device.CommandTimeoutMS
	if ms <= 0 {
		ms = 15000
	}
	return time.Duration(ms) * time.Millisecond
}
