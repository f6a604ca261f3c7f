package executor

import (
	"context"
	"sort"
	"strconv"

	"github.com/ccdanpian/vision-agent/pkg/locator"
	"github.com/ccdanpian/vision-agent/pkg/workflow"
)

// detectScreen captures a screenshot and tries every declared screen state
// in a fixed priority order (home first, then the rest alphabetically for
// determinism), primary indicator first and falling back to any declared
// fallback indicators. The locator runs with whatever strategy the
// configuration selects; under the default opencv_first with the remote-model
// stage enabled, an indicator the local stages miss goes on to a remote call.
func (e *Executor) detectScreen(ctx context.Context) (string, error) {
	shot, err := e.surface.Screenshot(ctx)
	if err != nil {
		return "", err
	}

	order := screenPriority(e.screens.Screens.States)
	targets := make(map[string]locator.Target, len(order)*2)
	targetToState := make(map[string]string)

	for _, state := range order {
		indicator := e.screens.Screens.States[state]
		if indicator.Primary != "" {
			key := "primary:" + state
			targets[key] = e.buildTarget(e.screens.Assets, indicator.Primary)
			targetToState[key] = state
		}
		for i, fb := range indicator.Fallback {
			key := fmtKey(state, i)
			targets[key] = e.buildTarget(e.screens.Assets, fb)
			targetToState[key] = state
		}
	}

	if len(targets) == 0 {
		return workflow.UnknownState, nil
	}

	results, err := e.locator.Locate(ctx, shot.Bytes, shot.Format, targets)
	if err != nil {
		return workflow.UnknownState, nil
	}

	for _, state := range order {
		if key := "primary:" + state; results[key].Success {
			return state, nil
		}
		for i := range e.screens.Screens.States[state].Fallback {
			if results[fmtKey(state, i)].Success {
				return state, nil
			}
		}
	}
	return workflow.UnknownState, nil
}

func fmtKey(state string, i int) string {
	return "fallback:" + state + ":" + strconv.Itoa(i)
}

// screenPriority orders states with "home" first, then the remainder
// alphabetically, giving deterministic screen detection.
func screenPriority(states map[string]workflow.ScreenIndicator) []string {
	names := make([]string, 0, len(states))
	for name := range states {
		if name != workflow.HomeState {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	if _, ok := states[workflow.HomeState]; ok {
		return append([]string{workflow.HomeState}, names...)
	}
	return names
}
