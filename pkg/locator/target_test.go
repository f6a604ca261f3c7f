package locator

import "testing"

func TestParseTargetRefDetectsDynamicPrefix(t *testing.T) {
	ref := ParseTargetRef("dynamic: the blue send button")
	if !ref.IsDynamic() {
		t.Fatalf("expected dynamic target ref")
	}
	if ref.Description() != "the blue send button" {
		t.Fatalf("unexpected description: %q", ref.Description())
	}
}

func TestParseTargetRefDefaultsToReference(t *testing.T) {
	ref := ParseTargetRef("chat_send_button")
	if ref.IsDynamic() {
		t.Fatalf("did not expect dynamic ref")
	}
	if ref.ReferenceName() != "chat_send_button" {
		t.Fatalf("unexpected reference name: %q", ref.ReferenceName())
	}
}

func TestParseTargetRefCaseInsensitivePrefix(t *testing.T) {
	ref := ParseTargetRef("DYNAMIC:Find Me")
	if !ref.IsDynamic() || ref.Description() != "Find Me" {
		t.Fatalf("expected case-insensitive dynamic match, got %+v", ref)
	}
}

func TestTargetRefStringRoundTrips(t *testing.T) {
	ref := ByDescription("search icon")
	if ref.String() != "dynamic:search icon" {
		t.Fatalf("unexpected String(): %q", ref.String())
	}
	ref2 := ByReference("home_icon")
	if ref2.String() != "home_icon" {
		t.Fatalf("unexpected String(): %q", ref2.String())
	}
}
