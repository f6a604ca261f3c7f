// Package workflow implements the declarative workflow model (C6): ordered
// navigation steps, required/optional parameters, valid start screens, and
// the expected end screen. Workflows are pure data; pkg/executor interprets
// them.
package workflow

// Action enumerates the recognized NavStep actions.
type Action string

const (
	ActionTap          Action = "tap"
	ActionLongPress    Action = "long_press"
	ActionSwipe        Action = "swipe"
	ActionInputText    Action = "input_text"
	ActionInputURL     Action = "input_url"
	ActionPressKey     Action = "press_key"
	ActionWait         Action = "wait"
	ActionCheck        Action = "check"
	ActionFindOrSearch Action = "find_or_search"
	ActionConditional  Action = "conditional"
	ActionScreenshot   Action = "screenshot"
	ActionNavToHome    Action = "nav_to_home"
	ActionSubWorkflow  Action = "sub_workflow"
	ActionKeyevent     Action = "keyevent"
)

// NavStep is one step of a workflow. Target may be a reference name, a
// "dynamic:<free text>" description, or a "{param}" placeholder; it is
// resolved against the asset store / locator by the executor, not here.
type NavStep struct {
	Action       Action                 `yaml:"action"`
	Target       string                 `yaml:"target,omitempty"`
	Params       map[string]interface{} `yaml:"params,omitempty"`
	Description  string                 `yaml:"description,omitempty"`
	ExpectScreen string                 `yaml:"expect_screen,omitempty"`
	MaxWaitMs    int                    `yaml:"max_wait_ms,omitempty"`

	// Branches backs the "conditional" action: a predicate key from Params
	// selects which nested step list runs.
	Branches map[string][]NavStep `yaml:"branches,omitempty"`
}

// ScreenIndicator names one or more reference names used to visually detect
// a screen state; Fallback is attempted when Primary's locate fails.
type ScreenIndicator struct {
	Primary  string   `yaml:"primary"`
	Fallback []string `yaml:"fallback,omitempty"`
}

// Workflow is one declarative automation recipe for an app. Patterns and
// Variables double as the "task template" fields from the file-format
// section: a handler's routing patterns for C4 live alongside the steps
// that satisfy them, rather than in a second file that would drift out of
// sync with the steps it describes.
type Workflow struct {
	Name              string            `yaml:"name"`
	Description       string            `yaml:"description,omitempty"`
	Patterns          []string          `yaml:"patterns,omitempty"`
	Variables         []string          `yaml:"variables,omitempty"`
	ValidStartScreens []string          `yaml:"valid_start_screens"`
	NavToStart        []NavStep         `yaml:"nav_to_start,omitempty"`
	Steps             []NavStep         `yaml:"steps"`
	EndScreen         string            `yaml:"end_screen,omitempty"`
	RequiredParams    []string          `yaml:"required_params,omitempty"`
	OptionalParams    map[string]string `yaml:"optional_params,omitempty"`
}

// Screens is the per-app enumeration of named screen states, each with one
// or more visual indicators.
type Screens struct {
	AppPackage string                     `yaml:"app_package"`
	States     map[string]ScreenIndicator `yaml:"states"`
}

// HomeState is the reserved screen-state name every app enumeration carries.
const HomeState = "home"

// UnknownState is returned by screen detection when no indicator matches.
const UnknownState = "unknown"
