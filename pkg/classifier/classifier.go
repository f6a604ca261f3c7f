package classifier

import (
	"context"
	"strings"

	"github.com/ccdanpian/vision-agent/pkg/logger"
	"github.com/ccdanpian/vision-agent/pkg/providers"
)

// Result is C5's output for one utterance. Parsed.Type is empty when the
// model path degraded to a "simple" regex verdict without a recoverable
// record — callers (C9 handlers) are expected to fall back to their own
// pattern table in that case, per the handler's own local-classify step.
type Result struct {
	Parsed   ParsedTask
	Class    TaskClass
	Degraded bool
	FastForm bool
}

// classifyBlank mirrors the boundary rule: an empty utterance, or one made
// up of only one or two whitespace/punctuation characters, is invalid with
// no further classification attempted.
func classifyBlank(utterance string) (Result, bool) {
	trimmed := strings.TrimSpace(utterance)
	stripped := strings.Map(func(r rune) rune {
		if strings.ContainsRune(" \t\n.,;:!?。，；：！？", r) {
			return -1
		}
		return r
	}, trimmed)
	if trimmed == "" || (stripped == "" && len([]rune(trimmed)) <= 2) {
		return Result{Parsed: ParsedTask{Type: TaskInvalid}, Class: ClassInvalid}, true
	}
	return Result{}, false
}

// Classify runs the full C5 pipeline for one utterance: fast-form first,
// falling through to the model path, degrading to the regex classifier on
// model error. The caller supplies the already-stripped utterance (the
// `ss:` prefix handling at the task-runner level, §4.8, happens before this
// is called in the model-path branch).
func Classify(ctx context.Context, provider providers.LLMProvider, model string, utterance string) Result {
	if res, blank := classifyBlank(utterance); blank {
		return res
	}

	if parsed, ok := ParseFastForm(utterance); ok {
		return Result{Parsed: parsed, Class: ClassOf(parsed.Type), FastForm: true}
	}

	if provider != nil {
		parsed, err := ClassifyWithModel(ctx, provider, model, utterance)
		if err == nil {
			return Result{Parsed: parsed, Class: ClassOf(parsed.Type)}
		}
		logger.Warn("classifier: model path failed, degrading to regex classifier: " + err.Error())
	}

	class := ClassifyRegexClass(utterance)
	if class == ClassComplex {
		return Result{Parsed: ParsedTask{Type: TaskOthers, Content: utterance}, Class: ClassComplex, Degraded: true}
	}
	// Simple-but-unparsed: Parsed.Type stays "" as a signal to the caller
	// that no type/recipient/content record could be recovered here.
	return Result{Class: ClassSimple, Degraded: true}
}
