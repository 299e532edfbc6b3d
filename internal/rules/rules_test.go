package rules

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCompile_SkipsMalformedPattern(t *testing.T) {
	defs := []CategoryRule{
		{
			Key:      "推卸责任",
			Keywords: []string{"找厂家"},
			Patterns: []string{
				`(不是|不属于).*(我们|门店)`,
				`(翘单(?!处理)`, // unbalanced and RE2-invalid
			},
			Weight:    1.0,
			RiskLevel: RiskHigh,
		},
	}

	cats := Compile(defs, discardLogger())

	if len(cats) != 1 {
		t.Fatalf("expected 1 category, got %d", len(cats))
	}
	if len(cats[0].Patterns) != 1 {
		t.Errorf("expected 1 usable pattern, got %d", len(cats[0].Patterns))
	}
	if len(cats[0].Keywords) != 1 {
		t.Errorf("keywords should survive a bad pattern, got %d", len(cats[0].Keywords))
	}
}

func TestCompile_DefaultsAllValid(t *testing.T) {
	defs := Defaults()
	cats := Compile(defs, discardLogger())

	if len(cats) != len(defs) {
		t.Fatalf("expected %d categories, got %d", len(defs), len(cats))
	}
	for i, cat := range cats {
		if len(cat.Patterns) != len(defs[i].Patterns) {
			t.Errorf("category %s lost patterns: %d of %d compiled",
				cat.Key, len(cat.Patterns), len(defs[i].Patterns))
		}
		if len(cat.Exclusions) != len(defs[i].Exclusions) {
			t.Errorf("category %s lost exclusions", cat.Key)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		def  CategoryRule
		ok   bool
	}{
		{"valid", CategoryRule{Key: "拖延处理", Keywords: []string{"翘单"}, Weight: 1.1, RiskLevel: RiskHigh}, true},
		{"missing key", CategoryRule{Keywords: []string{"x"}, Weight: 1.0}, false},
		{"no matchers", CategoryRule{Key: "空类别", Weight: 1.0}, false},
		{"zero weight", CategoryRule{Key: "k", Keywords: []string{"x"}}, false},
		{"bad risk level", CategoryRule{Key: "k", Keywords: []string{"x"}, Weight: 1.0, RiskLevel: "severe"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.def)
			if (err == nil) != tt.ok {
				t.Errorf("Validate() error = %v, want ok=%v", err, tt.ok)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	content := `categories:
  - key: 推卸责任
    keywords: ["不是我们的问题", "找厂家"]
    patterns: ['(找|联系).*(厂家|供应商)']
    weight: 1.0
    risk_level: high
  - key: 模糊回应
    keywords: ["需要时间"]
    exclusions: ['(预计|大概).*(时间|小时)']
    weight: 0.6
    risk_level: medium
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	defs, err := LoadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(defs) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(defs))
	}
	if defs[0].Key != CategoryDeflection {
		t.Errorf("expected first key %s, got %s", CategoryDeflection, defs[0].Key)
	}
	if defs[1].Weight != 0.6 {
		t.Errorf("expected weight 0.6, got %g", defs[1].Weight)
	}
}

func TestLoadFile_RejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	os.WriteFile(path, []byte("categories:\n  - key: 坏类别\n    weight: 1.0\n"), 0o644)

	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected error for category without matchers")
	}
}

func TestCache_TTLAndInvalidate(t *testing.T) {
	loads := 0
	cache := NewCache(func(ctx context.Context) ([]CategoryRule, error) {
		loads++
		return Defaults(), nil
	}, time.Hour, discardLogger())

	ctx := context.Background()
	if _, err := cache.GetOrLoad(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := cache.GetOrLoad(ctx); err != nil {
		t.Fatal(err)
	}
	if loads != 1 {
		t.Errorf("expected 1 load within TTL, got %d", loads)
	}

	cache.Invalidate()
	if _, err := cache.GetOrLoad(ctx); err != nil {
		t.Fatal(err)
	}
	if loads != 2 {
		t.Errorf("expected reload after Invalidate, got %d loads", loads)
	}
}

func TestCache_ServesStaleOnReloadFailure(t *testing.T) {
	loads := 0
	cache := NewCache(func(ctx context.Context) ([]CategoryRule, error) {
		loads++
		if loads > 1 {
			return nil, errors.New("feed down")
		}
		return Defaults(), nil
	}, time.Nanosecond, discardLogger())

	ctx := context.Background()
	first, err := cache.GetOrLoad(ctx)
	if err != nil {
		t.Fatal(err)
	}

	time.Sleep(time.Millisecond) // let the TTL lapse
	second, err := cache.GetOrLoad(ctx)
	if err != nil {
		t.Fatalf("expected stale rules, got error: %v", err)
	}
	if len(second) != len(first) {
		t.Error("stale rules should match the previous load")
	}
}

func TestCache_FirstLoadFailurePropagates(t *testing.T) {
	cache := NewCache(func(ctx context.Context) ([]CategoryRule, error) {
		return nil, errors.New("feed down")
	}, time.Hour, discardLogger())

	if _, err := cache.GetOrLoad(context.Background()); err == nil {
		t.Fatal("expected error when nothing was ever loaded")
	}
}
