package services

import (
	"strings"
	"testing"
)

func TestGenerateKey(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("Failed to generate key: %v", err)
	}

	if !strings.HasPrefix(key, apiKeyPrefix) {
		t.Errorf("Expected key to start with %q, got %q", apiKeyPrefix, key)
	}

	// prefix + 24 random bytes hex-encoded
	expectedLen := len(apiKeyPrefix) + 48
	if len(key) != expectedLen {
		t.Errorf("Expected key length %d, got %d", expectedLen, len(key))
	}

	key2, err := GenerateKey()
	if err != nil {
		t.Fatalf("Failed to generate second key: %v", err)
	}
	if key == key2 {
		t.Error("Expected generated keys to differ")
	}
}

func TestHashKey(t *testing.T) {
	h1 := HashKey("th_abc")
	h2 := HashKey("th_abc")
	h3 := HashKey("th_abd")

	if h1 != h2 {
		t.Error("Expected stable hashes for the same key")
	}
	if h1 == h3 {
		t.Error("Expected different hashes for different keys")
	}
	// hex SHA-256 fits the key_hash column
	if len(h1) != 64 {
		t.Errorf("Expected 64-char hash, got %d", len(h1))
	}
}
