package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/zeebo/blake3"
)

// ComputeBlake3Hash computes the BLAKE3 hash of a file.
func ComputeBlake3Hash(filePath string) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	hash := blake3.Sum256(data)
	return hex.EncodeToString(hash[:]), nil
}

// VerifyFileHash verifies a file against an expected BLAKE3 hash.
func VerifyFileHash(filePath, expectedHash string) error {
	actualHash, err := ComputeBlake3Hash(filePath)
	if err != nil {
		return fmt.Errorf("failed to compute hash: %w", err)
	}

	if actualHash != expectedHash {
		return fmt.Errorf("hash mismatch for %s: expected %s, got %s",
			filepath.Base(filePath), expectedHash, actualHash)
	}

	return nil
}

// SidecarHashPath returns the checksum file path for a config file.
func SidecarHashPath(configPath string) string {
	return configPath + ".b3"
}

// VerifySidecarHash verifies a config file against its sidecar checksum file
// if one exists. A missing sidecar is not an error; integrity checking is
// opt-in via `livegate config lock`.
func VerifySidecarHash(configPath string) error {
	sidecar := SidecarHashPath(configPath)
	data, err := os.ReadFile(sidecar)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read checksum file %s: %w", sidecar, err)
	}

	expected := strings.TrimSpace(string(data))
	if expected == "" {
		return fmt.Errorf("checksum file %s is empty", sidecar)
	}
	return VerifyFileHash(configPath, expected)
}

// WriteSidecarHash computes and writes the sidecar checksum for a config
// file, authorizing its current content.
func WriteSidecarHash(configPath string) (string, error) {
	hash, err := ComputeBlake3Hash(configPath)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(SidecarHashPath(configPath), []byte(hash+"\n"), 0o644); err != nil {
		return "", fmt.Errorf("failed to write checksum file: %w", err)
	}
	return hash, nil
}
