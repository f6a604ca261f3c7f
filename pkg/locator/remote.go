package locator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ccdanpian/vision-agent/pkg/imageutil"
	"github.com/ccdanpian/vision-agent/pkg/providers"
)

const remoteLocatorSystemPrompt = `You locate a UI element in a screenshot given a reference image or a text description. ` +
	`Respond with strict JSON only: {"found":true,"xmin":N,"ymin":N,"xmax":N,"ymax":N,"confidence":N} with all four ` +
	`coordinates on a 0-1000 grid relative to the screenshot, or {"found":false,"reason":"...","suggestion":"..."}.`

type remoteBoxResponse struct {
	Found      bool    `json:"found"`
	XMin       float64 `json:"xmin"`
	YMin       float64 `json:"ymin"`
	XMax       float64 `json:"xmax"`
	YMax       float64 `json:"ymax"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
	Suggestion string  `json:"suggestion"`
}

// locateRemote asks a vision-capable model for a normalized bounding box and
// converts its center to absolute pixel coordinates for screenWidth/Height.
// hint is either the reference name or the dynamic description text, given
// as a text cue alongside the images.
func locateRemote(ctx context.Context, provider providers.LLMProvider, model string, screenshot []byte, screenshotFormat string, candidates [][]byte, candidateFormat string, hint string, screenWidth, screenHeight int) (LocateResult, error) {
	userText := fmt.Sprintf("Find this UI element: %s", hint)
	msg := providers.Message{
		Role:    "user",
		Content: userText,
	}
	msg.Images = append(msg.Images, providers.ImageData{
		MIMEType: "image/" + normalizeFormat(screenshotFormat),
		Base64:   imageutil.EncodeBase64(screenshot),
	})
	for _, c := range candidates {
		msg.Images = append(msg.Images, providers.ImageData{
			MIMEType: "image/" + normalizeFormat(candidateFormat),
			Base64:   imageutil.EncodeBase64(c),
		})
	}

	resp, err := provider.Chat(ctx,
		[]providers.Message{
			{Role: "system", Content: remoteLocatorSystemPrompt},
			msg,
		},
		nil,
		model,
		map[string]interface{}{"max_tokens": 300, "temperature": 0.0},
	)
	if err != nil {
		return LocateResult{}, err
	}

	var box remoteBoxResponse
	text := strings.TrimSpace(resp.Content)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &box); err != nil {
		return LocateResult{}, fmt.Errorf("remote locator returned unparseable response: %w", err)
	}
	if !box.Found {
		return notFound(StageRemoteModel), nil
	}

	centerXNorm := (box.XMin + box.XMax) / 2
	centerYNorm := (box.YMin + box.YMax) / 2
	x := int(centerXNorm / 1000.0 * float64(screenWidth))
	y := int(centerYNorm / 1000.0 * float64(screenHeight))

	confidence := box.Confidence
	if confidence == 0 {
		confidence = 1.0
	}
	return LocateResult{Success: true, X: x, Y: y, Confidence: confidence, Stage: StageRemoteModel}, nil
}

func normalizeFormat(f string) string {
	f = strings.ToLower(strings.TrimSpace(f))
	if f == "jpg" {
		return "jpeg"
	}
	if f == "" {
		return "png"
	}
	return f
}
