package workflow

import (
	"fmt"
	"regexp"
)

var placeholderRe = regexp.MustCompile(`\{([a-zA-Z0-9_]+)\}`)

// MissingPlaceholderError reports a "{name}" placeholder with no
// corresponding entry in the parameter map. Per the authoring contract, this
// is treated as step failure, not a silent pass-through of the literal text.
type MissingPlaceholderError struct {
	Name string
}

func (e *MissingPlaceholderError) Error() string {
	return fmt.Sprintf("workflow: missing placeholder value for {%s}", e.Name)
}

// Substitute replaces every "{name}" occurrence in s with params[name].
// Every placeholder present in s must resolve; an unresolved placeholder
// returns a *MissingPlaceholderError.
func Substitute(s string, params map[string]string) (string, error) {
	var firstErr error
	result := placeholderRe.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}
		name := placeholderRe.FindStringSubmatch(match)[1]
		val, ok := params[name]
		if !ok {
			firstErr = &MissingPlaceholderError{Name: name}
			return match
		}
		return val
	})
	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// MergeParams overlays user-supplied params on top of a workflow's optional
// defaults, per the executor's "merged parameter map" rule.
func MergeParams(defaults map[string]string, userParams map[string]interface{}) map[string]string {
	merged := make(map[string]string, len(defaults)+len(userParams))
	for k, v := range defaults {
		merged[k] = v
	}
	for k, v := range userParams {
		merged[k] = fmt.Sprintf("%v", v)
	}
	return merged
}

// ResolveStep substitutes placeholders across a NavStep's Target,
// Description, and Params["text"] (other Params entries are not
// substituted), returning a new step with resolved values. The original step
// is left untouched so the same Workflow can be re-resolved with different
// params (e.g. on retry or sub_workflow recursion).
func ResolveStep(step NavStep, params map[string]string) (NavStep, error) {
	resolved := step

	if step.Target != "" {
		t, err := Substitute(step.Target, params)
		if err != nil {
			return NavStep{}, err
		}
		resolved.Target = t
	}

	if step.Description != "" {
		d, err := Substitute(step.Description, params)
		if err != nil {
			return NavStep{}, err
		}
		resolved.Description = d
	}

	if text, ok := step.Params["text"].(string); ok {
		t, err := Substitute(text, params)
		if err != nil {
			return NavStep{}, err
		}
		resolvedParams := make(map[string]interface{}, len(step.Params))
		for k, v := range step.Params {
			resolvedParams[k] = v
		}
		resolvedParams["text"] = t
		resolved.Params = resolvedParams
	}

	return resolved, nil
}
