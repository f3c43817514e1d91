package crypto

import (
	"os"
	"testing"
)

const testPrivateKeyHex = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func TestEncryptKeyThenDecryptKeyRoundTrips(t *testing.T) {
	blob, err := EncryptKey(testPrivateKeyHex, "correct-horse-battery-staple")
	if err != nil {
		t.Fatalf("EncryptKey: %v", err)
	}

	got, err := DecryptKey(blob, "correct-horse-battery-staple")
	if err != nil {
		t.Fatalf("DecryptKey: %v", err)
	}
	if got != testPrivateKeyHex {
		t.Fatalf("want %q, got %q", testPrivateKeyHex, got)
	}
}

func TestDecryptKeyFailsWithWrongPassword(t *testing.T) {
	blob, err := EncryptKey(testPrivateKeyHex, "right-password")
	if err != nil {
		t.Fatalf("EncryptKey: %v", err)
	}

	if _, err := DecryptKey(blob, "wrong-password"); err == nil {
		t.Fatal("want decryption to fail with the wrong password")
	}
}

func TestEncryptKeyRejectsEmptyPassword(t *testing.T) {
	if _, err := EncryptKey(testPrivateKeyHex, ""); err == nil {
		t.Fatal("want error for empty password")
	}
}

func TestEncryptKeyRejectsMalformedHex(t *testing.T) {
	if _, err := EncryptKey("not-hex", "password"); err == nil {
		t.Fatal("want error for non-hex key")
	}
	if _, err := EncryptKey("ab", "password"); err == nil {
		t.Fatal("want error for a key shorter than 32 bytes")
	}
}

func TestLoadKeyPrefersRawPrivateKey(t *testing.T) {
	got, err := LoadKey(KeyConfig{RawPrivateKey: "0x" + testPrivateKeyHex})
	if err != nil {
		t.Fatalf("LoadKey: %v", err)
	}
	if got != testPrivateKeyHex {
		t.Fatalf("want 0x prefix stripped, got %q", got)
	}
}

func TestLoadKeyDecryptsEncryptedKeyPath(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/wallet.json"
	blob, err := EncryptKey(testPrivateKeyHex, "hunter2")
	if err != nil {
		t.Fatalf("EncryptKey: %v", err)
	}
	if err := os.WriteFile(path, blob, 0o600); err != nil {
		t.Fatalf("write encrypted key file: %v", err)
	}

	got, err := LoadKey(KeyConfig{EncryptedKeyPath: path, KeyPassword: "hunter2"})
	if err != nil {
		t.Fatalf("LoadKey: %v", err)
	}
	if got != testPrivateKeyHex {
		t.Fatalf("want %q, got %q", testPrivateKeyHex, got)
	}
}

func TestLoadKeyFailsWithNoSourceConfigured(t *testing.T) {
	if _, err := LoadKey(KeyConfig{}); err == nil {
		t.Fatal("want error when neither RawPrivateKey nor EncryptedKeyPath is set")
	}
}
