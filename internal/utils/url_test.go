package utils

import "testing"

func TestNormalizeURL(t *testing.T) {
	normalized, domain, err := NormalizeURL("https://Example.com/path?utm_source=test&x=1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if domain != "example.com" {
		t.Fatalf("unexpected domain: %s", domain)
	}
	if normalized != "https://example.com/path?x=1" {
		t.Fatalf("unexpected normalized url: %s", normalized)
	}
}

func TestNormalizeURLWithoutScheme(t *testing.T) {
	normalized, domain, err := NormalizeURL("discord.gg/abc).")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if domain != "discord.gg" || normalized != "https://discord.gg/abc" {
		t.Fatalf("unexpected result: %s %s", normalized, domain)
	}
}

func TestExtractURLs(t *testing.T) {
	urls := ExtractURLs("free nitro https://steamcommnity.ru/gift and discord.gg/xyz")
	if len(urls) != 2 {
		t.Fatalf("expected 2 urls, got %v", urls)
	}
	if HasURL("no links in here, just discord talk") {
		t.Fatalf("did not expect a link")
	}
}
