package workflow

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFileDefaultsNameAndStartScreens(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "send_message.yaml")
	content := `
steps:
  - action: tap
    target: search_icon
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	wf, err := LoadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if wf.Name != "send_message" {
		t.Fatalf("expected name to default to file stem, got %q", wf.Name)
	}
	if len(wf.ValidStartScreens) != 1 || wf.ValidStartScreens[0] != HomeState {
		t.Fatalf("expected default valid start screens of [home], got %v", wf.ValidStartScreens)
	}
}

func TestLoadFileParsesFullWorkflow(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wf.yaml")
	content := `
name: send_message
valid_start_screens: [home, chat]
required_params: [contact, message]
steps:
  - action: find_or_search
    target: "{contact}"
    expect_screen: chat
  - action: tap
    target: input_box
  - action: input_text
    params:
      text: "{message}"
  - action: tap
    target: send_button
end_screen: chat
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	wf, err := LoadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(wf.Steps) != 4 {
		t.Fatalf("expected 4 steps, got %d", len(wf.Steps))
	}
	if wf.Steps[0].Action != ActionFindOrSearch || wf.Steps[0].ExpectScreen != "chat" {
		t.Fatalf("unexpected first step: %+v", wf.Steps[0])
	}
	if wf.EndScreen != "chat" {
		t.Fatalf("expected end screen chat, got %q", wf.EndScreen)
	}
}

func TestLoadDirSkipsNonYAMLFiles(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("steps: []\n"), 0o644)
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore me"), 0o644)

	workflows, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(workflows) != 1 {
		t.Fatalf("expected one loaded workflow, got %d", len(workflows))
	}
	if _, ok := workflows["a"]; !ok {
		t.Fatalf("expected workflow keyed by name 'a', got %+v", workflows)
	}
}

func TestSubstituteReplacesAllPlaceholders(t *testing.T) {
	out, err := Substitute("send {message} to {contact}", map[string]string{
		"message": "hi", "contact": "张三",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "send hi to 张三" {
		t.Fatalf("unexpected substitution: %q", out)
	}
}

func TestSubstituteMissingPlaceholderFails(t *testing.T) {
	_, err := Substitute("send {message}", map[string]string{})
	if err == nil {
		t.Fatalf("expected missing placeholder error")
	}
	var mpe *MissingPlaceholderError
	if _, ok := err.(*MissingPlaceholderError); !ok {
		t.Fatalf("expected *MissingPlaceholderError, got %T (%v)", err, mpe)
	}
}

func TestResolveStepSubstitutesTargetParamsAndDescription(t *testing.T) {
	step := NavStep{
		Action:      ActionInputText,
		Target:      "input_{field}",
		Description: "type into {field}",
		Params:      map[string]interface{}{"text": "hello {name}"},
	}
	resolved, err := ResolveStep(step, map[string]string{"field": "search", "name": "bob"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.Target != "input_search" {
		t.Fatalf("unexpected target: %q", resolved.Target)
	}
	if resolved.Description != "type into search" {
		t.Fatalf("unexpected description: %q", resolved.Description)
	}
	if resolved.Params["text"] != "hello bob" {
		t.Fatalf("unexpected params.text: %v", resolved.Params["text"])
	}
	// original step must be unmodified
	if step.Params["text"] != "hello {name}" {
		t.Fatalf("expected original step params untouched, got %v", step.Params["text"])
	}
}

func TestMergeParamsOverlaysUserOnDefaults(t *testing.T) {
	defaults := map[string]string{"postAction": "long_press", "content": ""}
	merged := MergeParams(defaults, map[string]interface{}{"content": "today is sunny"})
	if merged["content"] != "today is sunny" {
		t.Fatalf("expected user param to override default, got %q", merged["content"])
	}
	if merged["postAction"] != "long_press" {
		t.Fatalf("expected default to survive when not overridden, got %q", merged["postAction"])
	}
}
