package registry

import (
	"os"
	"path/filepath"
	"testing"
)

func writeManifest(t *testing.T, dir, name, content string) {
	t.Helper()
	full := filepath.Join(dir, name)
	if err := os.MkdirAll(full, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(full, manifestFileName), []byte(content), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
}

func TestDiscoverModulesSkipsDirectoriesWithoutManifest(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "wechat", "name: wechat\npackage_id: com.tencent.mm\nkeywords: [微信, wechat]\n")
	if err := os.MkdirAll(filepath.Join(root, "shared_assets"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	mods, err := DiscoverModules(root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mods) != 1 || mods[0].Name != "wechat" {
		t.Fatalf("expected exactly one discovered module, got %+v", mods)
	}
}

func TestDiscoverModulesDefaultsNameToDirectory(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "system", "package_id: system\n")

	mods, err := DiscoverModules(root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mods) != 1 || mods[0].Name != "system" {
		t.Fatalf("expected name to default to directory name, got %+v", mods)
	}
}

func TestRouteByKeywordExactMatchGetsBonus(t *testing.T) {
	modules := []ModuleInfo{
		{Name: "wechat", Keywords: []string{"微信", "wechat"}},
		{Name: "system"},
	}
	r := NewRegistry(modules)

	score := r.Score(modules[0], "wechat")
	// one hit (0.1) + exact match bonus (0.2) = 0.3
	if score < 0.29 || score > 0.31 {
		t.Fatalf("expected score ~0.3 for exact keyword match, got %v", score)
	}
}

func TestRouteByPatternTemplateMatch(t *testing.T) {
	modules := []ModuleInfo{
		{Name: "wechat", Patterns: []string{`发.*消息`}},
		{Name: "system"},
	}
	r := NewRegistry(modules)

	best, routed := r.Route("给张三发消息")
	if !routed || best.Name != "wechat" {
		t.Fatalf("expected template match to route to wechat, got %+v routed=%v", best, routed)
	}
}

func TestRouteFallsBackToSystemBelowThreshold(t *testing.T) {
	modules := []ModuleInfo{
		{Name: "wechat", Keywords: []string{"微信"}},
		{Name: "system"},
	}
	r := NewRegistry(modules)

	best, routed := r.Route("unrelated text about nothing in particular")
	if routed {
		t.Fatalf("expected fallback routing, got direct match %+v", best)
	}
	if best.Name != "system" {
		t.Fatalf("expected fallback to system handler, got %+v", best)
	}
}

func TestRouteByPackageIDLiteralMatch(t *testing.T) {
	modules := []ModuleInfo{
		{Name: "wechat", PackageID: "com.tencent.mm", Keywords: []string{"微信", "朋友圈", "聊天"}},
		{Name: "system"},
	}
	r := NewRegistry(modules)

	score := r.Score(modules[0], "open com.tencent.mm and check 朋友圈")
	if score < packageWeight+keywordPerHit {
		t.Fatalf("expected package + keyword contributions, got %v", score)
	}
}

func TestByNameLooksUpDiscoveredModule(t *testing.T) {
	modules := []ModuleInfo{{Name: "wechat"}, {Name: "system"}}
	r := NewRegistry(modules)

	m, ok := r.ByName("wechat")
	if !ok || m.Name != "wechat" {
		t.Fatalf("expected to find wechat module, got %+v ok=%v", m, ok)
	}
	if _, ok := r.ByName("nonexistent"); ok {
		t.Fatalf("expected lookup miss for unknown module")
	}
}

func TestRouteRankedOrdersDescending(t *testing.T) {
	modules := []ModuleInfo{
		{Name: "wechat", Keywords: []string{"微信"}},
		{Name: "system"},
	}
	r := NewRegistry(modules)

	ranked := r.RouteRanked("微信消息")
	if len(ranked) != 2 {
		t.Fatalf("expected two ranked entries, got %d", len(ranked))
	}
	if ranked[0].Score < ranked[1].Score {
		t.Fatalf("expected descending order, got %+v", ranked)
	}
}
