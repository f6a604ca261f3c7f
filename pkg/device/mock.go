package device

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"sync"
	"time"

	"github.com/ccdanpian/vision-agent/pkg/config"
	"github.com/ccdanpian/vision-agent/pkg/logger"
	"github.com/ccdanpian/vision-agent/pkg/orcherr"
)

// MockSurface satisfies Surface without touching real hardware. Every
// operation logs what it was asked to do, sleeps for a duration roughly
// proportional to the size of its parameters (a long swipe or a long string
// of text takes longer than a tap, just as on a real device), and never
// fails unless the caller cancels the context.
type MockSurface struct {
	cfg   *config.Config
	mu    sync.Mutex
	fg    string
	seq   int
	width int
	ht    int
}

func NewMockSurface(cfg *config.Config) *MockSurface {
	width := cfg.Device.DebugScreenWidth
	if width <= 0 {
		width = 1080
	}
	height := cfg.Device.DebugScreenHeight
	if height <= 0 {
		height = 2400
	}
	return &MockSurface{cfg: cfg, fg: "com.android.launcher3", width: width, ht: height}
}

func (m *MockSurface) sleepProportional(ctx context.Context, base time.Duration, magnitude float64) error {
	d := base + time.Duration(magnitude)*time.Millisecond
	if d > 3*time.Second {
		d = 3 * time.Second
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return orcherr.Wrap(orcherr.DeviceCommandFailed, "mock surface: context cancelled", ctx.Err())
	}
}

func (m *MockSurface) next() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	return m.seq
}

func (m *MockSurface) Tap(ctx context.Context, x, y int) error {
	logger.Info(fmt.Sprintf("mock-device[%d]: tap %d,%d", m.next(), x, y))
	return m.sleepProportional(ctx, 80*time.Millisecond, 0)
}

func (m *MockSurface) LongPress(ctx context.Context, x, y int, durationMS int) error {
	logger.Info(fmt.Sprintf("mock-device[%d]: long-press %d,%d for %dms", m.next(), x, y, durationMS))
	return m.sleepProportional(ctx, 80*time.Millisecond, float64(durationMS))
}

func (m *MockSurface) Swipe(ctx context.Context, x1, y1, x2, y2 int, durationMS int) error {
	dist := math.Hypot(float64(x2-x1), float64(y2-y1))
	logger.Info(fmt.Sprintf("mock-device[%d]: swipe %d,%d -> %d,%d over %dms", m.next(), x1, y1, x2, y2, durationMS))
	return m.sleepProportional(ctx, 80*time.Millisecond, dist)
}

func (m *MockSurface) InputText(ctx context.Context, text string) error {
	logger.Info(fmt.Sprintf("mock-device[%d]: input text %q", m.next(), text))
	return m.sleepProportional(ctx, 50*time.Millisecond, float64(len(text))*10)
}

func (m *MockSurface) InputWideText(ctx context.Context, text string) error {
	logger.Info(fmt.Sprintf("mock-device[%d]: input text %q (wide-character mode)", m.next(), text))
	return m.sleepProportional(ctx, 50*time.Millisecond, float64(len(text))*10)
}

func (m *MockSurface) InputURL(ctx context.Context, url string) error {
	return m.InputText(ctx, url)
}

func (m *MockSurface) PressKey(ctx context.Context, key string) error {
	logger.Info(fmt.Sprintf("mock-device[%d]: keyevent %s", m.next(), key))
	return m.sleepProportional(ctx, 60*time.Millisecond, 0)
}

func (m *MockSurface) LaunchApp(ctx context.Context, packageName string) error {
	logger.Info(fmt.Sprintf("mock-device[%d]: launch %s", m.next(), packageName))
	m.mu.Lock()
	m.fg = packageName
	m.mu.Unlock()
	return m.sleepProportional(ctx, 400*time.Millisecond, 0)
}

func (m *MockSurface) StopApp(ctx context.Context, packageName string) error {
	logger.Info(fmt.Sprintf("mock-device[%d]: force-stop %s", m.next(), packageName))
	m.mu.Lock()
	if m.fg == packageName {
		m.fg = "com.android.launcher3"
	}
	m.mu.Unlock()
	return m.sleepProportional(ctx, 150*time.Millisecond, 0)
}

func (m *MockSurface) ForegroundPackage(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fg, nil
}

func (m *MockSurface) Screenshot(ctx context.Context) (*Screenshot, error) {
	logger.Info(fmt.Sprintf("mock-device[%d]: screenshot", m.next()))
	if err := m.sleepProportional(ctx, 120*time.Millisecond, 0); err != nil {
		return nil, err
	}

	img := image.NewRGBA(image.Rect(0, 0, m.width, m.ht))
	bg := color.RGBA{R: 30, G: 30, B: 36, A: 255}
	for y := 0; y < m.ht; y++ {
		for x := 0; x < m.width; x++ {
			img.Set(x, y, bg)
		}
	}
	// A diagonal stripe gives the placeholder visible structure instead
	// of a flat fill, useful when eyeballing the mock pipeline's output.
	stripe := color.RGBA{R: 90, G: 160, B: 220, A: 255}
	for x := 0; x < m.width; x++ {
		y := (x * m.ht) / max1(m.width)
		if y >= 0 && y < m.ht {
			img.Set(x, y, stripe)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return &Screenshot{Bytes: buf.Bytes(), Format: "png", CropOffsetY: 0, Width: m.width, Height: m.ht}, nil
}

func max1(v int) int {
	if v <= 0 {
		return 1
	}
	return v
}

func (m *MockSurface) ScreenSize(ctx context.Context) (ScreenSize, error) {
	return ScreenSize{Width: m.width, Height: m.ht}, nil
}

func (m *MockSurface) SafeAreaInsets(ctx context.Context) (SafeAreaInsets, error) {
	return SafeAreaInsets{Top: 80, Bottom: 60}, nil
}

func (m *MockSurface) GoHome(ctx context.Context) error {
	logger.Info(fmt.Sprintf("mock-device[%d]: go home (double press)", m.next()))
	m.mu.Lock()
	m.fg = "com.android.launcher3"
	m.mu.Unlock()
	if err := m.sleepProportional(ctx, 60*time.Millisecond, 0); err != nil {
		return err
	}
	return m.sleepProportional(ctx, 60*time.Millisecond, 0)
}
