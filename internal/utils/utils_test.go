package utils

import (
	"strings"
	"testing"
	"time"
)

func TestStringToInt(t *testing.T) {
	if got := StringToInt("42"); got != 42 {
		t.Errorf("StringToInt(42) = %d", got)
	}
	if got := StringToInt("abc"); got != 0 {
		t.Errorf("Invalid input should return 0, got %d", got)
	}
}

func TestStringToUint(t *testing.T) {
	if got := StringToUint("7"); got != 7 {
		t.Errorf("StringToUint(7) = %d", got)
	}
	if got := StringToUint("-1"); got != 0 {
		t.Errorf("Negative input should return 0, got %d", got)
	}
}

func TestFormatFileSize(t *testing.T) {
	cases := []struct {
		size int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KB"},
		{5 << 20, "5.0 MB"},
		{3 << 30, "3.0 GB"},
	}
	for _, c := range cases {
		if got := FormatFileSize(c.size); got != c.want {
			t.Errorf("FormatFileSize(%d) = %s, want %s", c.size, got, c.want)
		}
	}
}

func TestRandString(t *testing.T) {
	s := RandString(8)
	if len(s) != 8 {
		t.Errorf("Expected length 8, got %d", len(s))
	}
	for _, r := range s {
		if !strings.ContainsRune(letterBytes, r) {
			t.Errorf("Unexpected character %q", r)
		}
	}
}

func TestGenerateAndHashToken(t *testing.T) {
	token, err := GenerateToken()
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if len(token) != 64 {
		t.Errorf("Expected 64 hex chars, got %d", len(token))
	}

	// 哈希稳定且不等于原始令牌
	if HashToken(token) != HashToken(token) {
		t.Error("HashToken should be deterministic")
	}
	if HashToken(token) == token {
		t.Error("Hash must differ from the raw token")
	}
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("secret123")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if !CheckPasswordHash("secret123", hash) {
		t.Error("Correct password should verify")
	}
	if CheckPasswordHash("wrong", hash) {
		t.Error("Wrong password should not verify")
	}
}

func TestCacheExpiry(t *testing.T) {
	cache := GetCache()

	cache.Set("k1", "v1", time.Minute)
	if got := cache.Get("k1"); got != "v1" {
		t.Errorf("Expected v1, got %v", got)
	}

	cache.Set("k2", "v2", -time.Second)
	if got := cache.Get("k2"); got != nil {
		t.Errorf("Expired entry should return nil, got %v", got)
	}

	cache.Delete("k1")
	if got := cache.Get("k1"); got != nil {
		t.Errorf("Deleted entry should return nil, got %v", got)
	}
}

func TestRenderMarkdownSanitizes(t *testing.T) {
	out := string(RenderMarkdown("**加粗** <script>alert(1)</script>"))
	if !strings.Contains(out, "<strong>加粗</strong>") {
		t.Errorf("Markdown should render bold, got %s", out)
	}
	if strings.Contains(out, "<script>") {
		t.Errorf("Script tags must be stripped, got %s", out)
	}
}
