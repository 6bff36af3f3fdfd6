package secrets_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/model"
	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/secrets"
)

func TestNewBox_RejectsEmptySecret(t *testing.T) {
	t.Parallel()
	if _, err := secrets.NewBox(""); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestBox_EncryptDecryptRoundTrip(t *testing.T) {
	t.Parallel()
	box, err := secrets.NewBox("test-secret")
	if err != nil {
		t.Fatalf("NewBox: %v", err)
	}

	creds := &model.Credentials{Username: "alice", Password: "hunter2", Email: "a@example.com"}
	payload, err := box.EncryptCredentials(creds)
	if err != nil {
		t.Fatalf("EncryptCredentials: %v", err)
	}
	if payload.Encrypted == "" || payload.IV == "" || payload.Tag == "" {
		t.Fatalf("incomplete payload: %+v", payload)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	got, err := box.DecryptCredentials(raw)
	if err != nil {
		t.Fatalf("DecryptCredentials: %v", err)
	}
	if got.Username != "alice" || got.Password != "hunter2" || got.Email != "a@example.com" {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestBox_CiphertextOmitsPlaintext(t *testing.T) {
	t.Parallel()
	box, err := secrets.NewBox("test-secret")
	if err != nil {
		t.Fatalf("NewBox: %v", err)
	}

	payload, err := box.EncryptCredentials(&model.Credentials{Password: "hunter2"})
	if err != nil {
		t.Fatalf("EncryptCredentials: %v", err)
	}
	raw, _ := json.Marshal(payload)
	if len(raw) == 0 || strings.Contains(string(raw), "hunter2") {
		t.Fatalf("payload leaks plaintext: %s", raw)
	}
}

func TestBox_PlaintextLegacyFallback(t *testing.T) {
	t.Parallel()
	box, err := secrets.NewBox("test-secret")
	if err != nil {
		t.Fatalf("NewBox: %v", err)
	}

	legacy := []byte(`{"username":"bob","password":"pw"}`)
	got, err := box.DecryptCredentials(legacy)
	if err != nil {
		t.Fatalf("DecryptCredentials legacy: %v", err)
	}
	if got.Username != "bob" || got.Password != "pw" {
		t.Fatalf("legacy fallback mismatch: %+v", got)
	}
}

func TestBox_WrongKeyFailsClosed(t *testing.T) {
	t.Parallel()
	box1, _ := secrets.NewBox("key-one")
	box2, _ := secrets.NewBox("key-two")

	payload, err := box1.Encrypt([]byte("not json"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if _, err := box2.Decrypt(payload); err == nil {
		t.Fatal("expected decryption failure with wrong key")
	}
}
