package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEncryptDecryptSecretsRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()

	password := "test-password-12345"
	secrets := map[string]string{
		"GITHUB_TOKEN":      "ghp_test123456789",
		"ANTHROPIC_API_KEY": "sk-ant-test123",
		"OPENAI_API_KEY":    "sk-test-openai",
	}

	err := EncryptSecretsFile(tmpDir, password, secrets)
	if err != nil {
		t.Fatalf("Failed to encrypt secrets: %v", err)
	}

	secretsPath := filepath.Join(tmpDir, secretsDir, secretsFileName)
	if _, statErr := os.Stat(secretsPath); os.IsNotExist(statErr) {
		t.Fatalf("Secrets file was not created")
	}

	info, err := os.Stat(secretsPath)
	if err != nil {
		t.Fatalf("Failed to stat secrets file: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Expected file permissions 0600, got %04o", info.Mode().Perm())
	}

	decrypted, err := DecryptSecretsFile(tmpDir, password)
	if err != nil {
		t.Fatalf("Failed to decrypt secrets: %v", err)
	}

	if len(decrypted) != len(secrets) {
		t.Errorf("Expected %d secrets, got %d", len(secrets), len(decrypted))
	}

	for key, expectedValue := range secrets {
		if actualValue, exists := decrypted[key]; !exists {
			t.Errorf("Secret %s not found in decrypted data", key)
		} else if actualValue != expectedValue {
			t.Errorf("Secret %s: expected %q, got %q", key, expectedValue, actualValue)
		}
	}
}

func TestDecryptWithWrongPassword(t *testing.T) {
	tmpDir := t.TempDir()

	password := "correct-password"
	wrongPassword := "wrong-password"
	secrets := map[string]string{
		"GITHUB_TOKEN": "ghp_test123456789",
	}

	err := EncryptSecretsFile(tmpDir, password, secrets)
	if err != nil {
		t.Fatalf("Failed to encrypt secrets: %v", err)
	}

	_, err = DecryptSecretsFile(tmpDir, wrongPassword)
	if err == nil {
		t.Fatal("Expected decryption to fail with wrong password, but it succeeded")
	}

	if err.Error() != "decryption failed (wrong password or corrupted file)" {
		t.Errorf("Expected specific error message, got: %v", err)
	}
}

func TestSecretsFileExists(t *testing.T) {
	tmpDir := t.TempDir()

	if SecretsFileExists(tmpDir) {
		t.Error("Expected SecretsFileExists to return false when file doesn't exist")
	}

	password := "test-password"
	secrets := map[string]string{"GITHUB_TOKEN": "ghp_test"}
	err := EncryptSecretsFile(tmpDir, password, secrets)
	if err != nil {
		t.Fatalf("Failed to encrypt secrets: %v", err)
	}

	if !SecretsFileExists(tmpDir) {
		t.Error("Expected SecretsFileExists to return true when file exists")
	}
}

func TestGetSecretPrecedence(t *testing.T) {
	SetDecryptedSecrets(map[string]string{
		"TEST_SECRET": "from-secrets-file",
	})
	defer func() {
		SetDecryptedSecrets(nil)
	}()

	os.Setenv("TEST_SECRET", "from-env-var")
	defer os.Unsetenv("TEST_SECRET")

	secret, err := GetSecret("TEST_SECRET")
	if err != nil {
		t.Fatalf("Expected to get secret, got error: %v", err)
	}
	if secret != "from-secrets-file" {
		t.Errorf("Expected secret from secrets file (precedence), got: %q", secret)
	}

	SetDecryptedSecrets(map[string]string{
		"OTHER_SECRET": "other-value",
	})

	secret, err = GetSecret("TEST_SECRET")
	if err != nil {
		t.Fatalf("Expected to get secret from env var, got error: %v", err)
	}
	if secret != "from-env-var" {
		t.Errorf("Expected secret from env var, got: %q", secret)
	}

	SetDecryptedSecrets(nil)
	os.Unsetenv("TEST_SECRET")

	_, err = GetSecret("TEST_SECRET")
	if err == nil {
		t.Error("Expected error when secret not found, got nil")
	}
}

func TestProjectPasswordMemory(t *testing.T) {
	ClearProjectPassword()

	if pwd := GetProjectPassword(); pwd != "" {
		t.Errorf("Expected empty password initially, got: %q", pwd)
	}

	testPassword := "test-pwd-123"
	SetProjectPassword(testPassword)

	if pwd := GetProjectPassword(); pwd != testPassword {
		t.Errorf("Expected %q, got: %q", testPassword, pwd)
	}

	ClearProjectPassword()
	if pwd := GetProjectPassword(); pwd != "" {
		t.Errorf("Expected empty password after clear, got: %q", pwd)
	}
}

func TestCorruptedSecretsFile(t *testing.T) {
	tmpDir := t.TempDir()

	dir := filepath.Join(tmpDir, secretsDir)
	err := os.MkdirAll(dir, 0755)
	if err != nil {
		t.Fatalf("Failed to create secrets directory: %v", err)
	}

	secretsPath := filepath.Join(dir, secretsFileName)
	err = os.WriteFile(secretsPath, []byte("corrupted"), 0600)
	if err != nil {
		t.Fatalf("Failed to write corrupted file: %v", err)
	}

	_, err = DecryptSecretsFile(tmpDir, "any-password")
	if err == nil {
		t.Error("Expected error when decrypting corrupted file, got nil")
	}

	if err.Error() != "secrets file is corrupted or invalid format (too small)" {
		t.Logf("Error message: %v", err)
	}
}

func TestEmptySecrets(t *testing.T) {
	tmpDir := t.TempDir()

	password := "test-password"
	secrets := map[string]string{}

	err := EncryptSecretsFile(tmpDir, password, secrets)
	if err != nil {
		t.Fatalf("Failed to encrypt empty secrets: %v", err)
	}

	decrypted, err := DecryptSecretsFile(tmpDir, password)
	if err != nil {
		t.Fatalf("Failed to decrypt empty secrets: %v", err)
	}

	if len(decrypted) != 0 {
		t.Errorf("Expected 0 secrets, got %d", len(decrypted))
	}
}
