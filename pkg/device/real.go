package device

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ccdanpian/vision-agent/pkg/config"
	"github.com/ccdanpian/vision-agent/pkg/logger"
	"github.com/ccdanpian/vision-agent/pkg/orcherr"
)

// RealSurface drives a device by shelling out to the adb binary. It targets
// exactly one device, selected by serial at construction time.
type RealSurface struct {
	cfg    *config.Config
	serial string
}

func NewRealSurface(cfg *config.Config) *RealSurface {
	serial := cfg.Device.DefaultDevice
	if serial == "" {
		if env := os.Getenv("ANDROID_SERIAL"); env != "" {
			serial = env
		} else {
			serial = "localhost:5555"
		}
	}
	return &RealSurface{cfg: cfg, serial: serial}
}

func (s *RealSurface) run(ctx context.Context, args ...string) (string, error) {
	full := append([]string{"-s", s.serial}, args...)

	ctx, cancel := context.WithTimeout(ctx, commandTimeout(s.cfg))
	defer cancel()

	cmd := exec.CommandContext(ctx, "adb", full...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() != nil {
		return "", orcherr.Wrap(orcherr.DeviceUnavailable, fmt.Sprintf("adb %s timed out", strings.Join(args, " ")), ctx.Err())
	}
	if err != nil {
		return "", orcherr.Wrap(orcherr.DeviceCommandFailed, fmt.Sprintf("adb %s: %s", strings.Join(args, " "), strings.TrimSpace(stderr.String())), err)
	}
	return stdout.String(), nil
}

func (s *RealSurface) shell(ctx context.Context, args ...string) (string, error) {
	full := append([]string{"shell"}, args...)
	return s.run(ctx, full...)
}

func (s *RealSurface) Tap(ctx context.Context, x, y int) error {
	logger.Info(fmt.Sprintf("device: tap %d,%d", x, y))
	_, err := s.shell(ctx, "input", "tap", strconv.Itoa(x), strconv.Itoa(y))
	return err
}

func (s *RealSurface) LongPress(ctx context.Context, x, y int, durationMS int) error {
	if durationMS <= 0 {
		durationMS = 600
	}
	logger.Info(fmt.Sprintf("device: long-press %d,%d for %dms", x, y, durationMS))
	_, err := s.shell(ctx, "input", "swipe",
		strconv.Itoa(x), strconv.Itoa(y), strconv.Itoa(x), strconv.Itoa(y), strconv.Itoa(durationMS))
	return err
}

func (s *RealSurface) Swipe(ctx context.Context, x1, y1, x2, y2 int, durationMS int) error {
	if durationMS <= 0 {
		durationMS = 300
	}
	logger.Info(fmt.Sprintf("device: swipe %d,%d -> %d,%d over %dms", x1, y1, x2, y2, durationMS))
	_, err := s.shell(ctx, "input", "swipe",
		strconv.Itoa(x1), strconv.Itoa(y1), strconv.Itoa(x2), strconv.Itoa(y2), strconv.Itoa(durationMS))
	return err
}

// textEscapeTable mirrors the device keyboard's literal interpretation of
// `input text`: spaces must become the literal %s token, and shell
// metacharacters need escaping so adb's intermediate shell doesn't split or
// substitute them before they reach the IME.
var textEscapeTable = []struct {
	from string
	to   string
}{
	{"'", "\\'"},
	{"\"", "\\\""},
	{"&", "\\&"},
	{"(", "\\("},
	{")", "\\)"},
	{"<", "\\<"},
	{">", "\\>"},
	{"|", "\\|"},
	{";", "\\;"},
}

func escapeInputText(text string) string {
	escaped := strings.ReplaceAll(text, " ", "%s")
	for _, rule := range textEscapeTable {
		escaped = strings.ReplaceAll(escaped, rule.from, rule.to)
	}
	return escaped
}

func (s *RealSurface) InputText(ctx context.Context, text string) error {
	logger.Info(fmt.Sprintf("device: input text (%d chars)", len(text)))
	_, err := s.shell(ctx, "input", "text", escapeInputText(text))
	return err
}

// wideCharBroadcastB64 and wideCharBroadcastRaw are the ADBKeyboard IME's
// custom broadcast actions: the stock `input text` keyevent path can only
// type ASCII, so any code point ≥ U+0080 has to go through a broadcast
// receiver the IME registers instead. Base64 is tried first since it
// survives the remote shell's re-tokenization untouched; the raw form is
// the fallback for devices whose ADBKeyboard build doesn't accept it.
const (
	wideCharBroadcastB64 = "ADB_INPUT_B64"
	wideCharBroadcastRaw = "ADB_INPUT_TEXT"
)

// broadcastQuote wraps s in single quotes for the command line adb shell
// reassembles on the device side, escaping embedded single quotes the POSIX
// way, so a multi-word or punctuation-bearing message survives as one
// `--es msg` extra instead of being re-split by the remote shell.
func broadcastQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func (s *RealSurface) InputWideText(ctx context.Context, text string) error {
	logger.Info(fmt.Sprintf("device: input text (%d chars, wide-character mode)", len(text)))
	payload := base64.StdEncoding.EncodeToString([]byte(text))
	_, err := s.shell(ctx, "am", "broadcast", "-a", wideCharBroadcastB64, "--es", "msg", payload)
	if err == nil {
		return nil
	}
	logger.Warn(fmt.Sprintf("device: base64 broadcast input failed, falling back to raw broadcast: %v", err))
	_, err = s.shell(ctx, "am", "broadcast", "-a", wideCharBroadcastRaw, "--es", "msg", broadcastQuote(text))
	return err
}

func (s *RealSurface) InputURL(ctx context.Context, url string) error {
	return s.InputText(ctx, url)
}

var keycodeLookup = map[string]string{
	"HOME":        "KEYCODE_HOME",
	"BACK":        "KEYCODE_BACK",
	"ENTER":       "KEYCODE_ENTER",
	"TAB":         "KEYCODE_TAB",
	"DEL":         "KEYCODE_DEL",
	"DELETE":      "KEYCODE_FORWARD_DEL",
	"POWER":       "KEYCODE_POWER",
	"MENU":        "KEYCODE_MENU",
	"SEARCH":      "KEYCODE_SEARCH",
	"DPAD_UP":     "KEYCODE_DPAD_UP",
	"DPAD_DOWN":   "KEYCODE_DPAD_DOWN",
	"DPAD_LEFT":   "KEYCODE_DPAD_LEFT",
	"DPAD_RIGHT":  "KEYCODE_DPAD_RIGHT",
	"DPAD_CENTER": "KEYCODE_DPAD_CENTER",
	"APP_SWITCH":  "KEYCODE_APP_SWITCH",
	"RECENT_APPS": "KEYCODE_APP_SWITCH",
	"SPACE":       "KEYCODE_SPACE",
	"ESCAPE":      "KEYCODE_ESCAPE",
}

func resolveKeycode(key string) string {
	upper := strings.ToUpper(strings.TrimSpace(key))
	if mapped, ok := keycodeLookup[upper]; ok {
		return mapped
	}
	if strings.HasPrefix(upper, "KEYCODE_") {
		return upper
	}
	if _, err := strconv.Atoi(key); err == nil {
		return key
	}
	return "KEYCODE_" + upper
}

func (s *RealSurface) PressKey(ctx context.Context, key string) error {
	keycode := resolveKeycode(key)
	logger.Info(fmt.Sprintf("device: keyevent %s", keycode))
	_, err := s.shell(ctx, "input", "keyevent", keycode)
	return err
}

func (s *RealSurface) LaunchApp(ctx context.Context, packageName string) error {
	logger.Info(fmt.Sprintf("device: launch %s", packageName))
	_, err := s.shell(ctx, "monkey", "-p", packageName, "-c", "android.intent.category.LAUNCHER", "1")
	return err
}

func (s *RealSurface) StopApp(ctx context.Context, packageName string) error {
	logger.Info(fmt.Sprintf("device: force-stop %s", packageName))
	_, err := s.shell(ctx, "am", "force-stop", packageName)
	return err
}

var focusedPackageRe = regexp.MustCompile(`mCurrentFocus=.*?\{.*? ([a-zA-Z0-9_.]+)/`)

func (s *RealSurface) ForegroundPackage(ctx context.Context) (string, error) {
	out, err := s.shell(ctx, "dumpsys", "window", "windows")
	if err != nil {
		return "", err
	}
	if m := focusedPackageRe.FindStringSubmatch(out); len(m) == 2 {
		return m[1], nil
	}
	return "", orcherr.New(orcherr.DeviceCommandFailed, "could not parse foreground package from dumpsys output")
}

func (s *RealSurface) Screenshot(ctx context.Context) (*Screenshot, error) {
	remote := "/sdcard/vision_agent_screenshot.png"
	if _, err := s.shell(ctx, "screencap", "-p", remote); err != nil {
		return nil, err
	}
	defer func() { _, _ = s.shell(ctx, "rm", "-f", remote) }()

	local, err := os.MkdirTemp("", "vision-agent-screenshot-*")
	if err != nil {
		return nil, orcherr.Wrap(orcherr.DeviceCommandFailed, "creating temp dir for screenshot pull", err)
	}
	defer os.RemoveAll(local)
	localPath := filepath.Join(local, "screen.png")

	if _, err := s.run(ctx, "pull", remote, localPath); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(localPath)
	if err != nil {
		return nil, orcherr.Wrap(orcherr.DeviceCommandFailed, "reading pulled screenshot", err)
	}

	size, sizeErr := s.ScreenSize(ctx)
	width, height := 0, 0
	if sizeErr == nil {
		width, height = size.Width, size.Height
	}

	return &Screenshot{Bytes: data, Format: "png", CropOffsetY: 0, Width: width, Height: height}, nil
}

var wmSizeRe = regexp.MustCompile(`(\d+)x(\d+)`)

func (s *RealSurface) ScreenSize(ctx context.Context) (ScreenSize, error) {
	out, err := s.shell(ctx, "wm", "size")
	if err != nil {
		return ScreenSize{}, err
	}
	m := wmSizeRe.FindStringSubmatch(out)
	if len(m) != 3 {
		return ScreenSize{}, orcherr.New(orcherr.DeviceCommandFailed, "could not parse wm size output")
	}
	w, _ := strconv.Atoi(m[1])
	h, _ := strconv.Atoi(m[2])
	return ScreenSize{Width: w, Height: h}, nil
}

func (s *RealSurface) SafeAreaInsets(ctx context.Context) (SafeAreaInsets, error) {
	out, err := s.shell(ctx, "dumpsys", "window", "displays")
	if err != nil {
		return SafeAreaInsets{}, err
	}
	insets := SafeAreaInsets{}
	scanner := bufio.NewScanner(strings.NewReader(out))
	statusRe := regexp.MustCompile(`mStatusBarHeight=(\d+)`)
	navRe := regexp.MustCompile(`mNavigationBarHeight=(\d+)`)
	for scanner.Scan() {
		line := scanner.Text()
		if m := statusRe.FindStringSubmatch(line); len(m) == 2 {
			insets.Top, _ = strconv.Atoi(m[1])
		}
		if m := navRe.FindStringSubmatch(line); len(m) == 2 {
			insets.Bottom, _ = strconv.Atoi(m[1])
		}
	}
	return insets, nil
}

func (s *RealSurface) GoHome(ctx context.Context) error {
	if err := s.PressKey(ctx, "HOME"); err != nil {
		return err
	}
	time.Sleep(150 * time.Millisecond)
	return s.PressKey(ctx, "HOME")
}
