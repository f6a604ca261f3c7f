// Package executor implements the workflow executor (C7): preset/reset
// invariants around every workflow run, current-screen detection, the main
// step loop with retries and expected-screen verification, and escalation
// to AI-assisted recovery and replanning on failure.
package executor

import (
	"github.com/ccdanpian/vision-agent/pkg/locator"
)

// execState drives the per-step recovery state machine.
type execState string

const (
	stateRun         execState = "run"
	stateRetryStep   execState = "retry_step"
	stateRecoverHome execState = "recover_home"
	stateReplan      execState = "replan"
	stateAbort       execState = "abort"
)

// tier classifies a step for the capture/verify optimization described in
// §4.7: how much device state the executor needs to gather around it.
type tier string

const (
	tierFireAndForget tier = "fire_and_forget"
	tierQuickVerify   tier = "quick_verify"
	tierLocateExecute tier = "locate_and_execute"
	tierFullAI        tier = "full_ai"
)

// verifyTier classifies how rigorously a step's outcome is checked.
type verifyTier string

const (
	verifySkip     verifyTier = "skip"
	verifyLenient  verifyTier = "lenient"
	verifyStandard verifyTier = "standard"
	verifyPrecise  verifyTier = "precise"
)

// StepResult records one executed step's outcome, surfaced in TaskResult for
// diagnostics and for replan prompts.
type StepResult struct {
	Index        int
	Action       string
	Target       string
	Success      bool
	Error        string
	ScreenBefore string
	ScreenAfter  string
	Stage        locator.Stage
	Attempts     int
}

// TaskStatus is the lifecycle status of one ExecuteWorkflow run.
type TaskStatus string

const (
	StatusPending TaskStatus = "pending"
	StatusRunning TaskStatus = "running"
	StatusSuccess TaskStatus = "success"
	StatusFailed  TaskStatus = "failed"
	StatusAborted TaskStatus = "aborted"
)

// TaskResult is what ExecuteWorkflow returns: cumulative step results,
// final status, and timing.
type TaskResult struct {
	Status      TaskStatus
	Steps       []StepResult
	DurationMS  int64
	Error       string
	ReplanCount int
}
