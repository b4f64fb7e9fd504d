package gateways

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// hashChunkSize is the read size used when streaming a file through SHA-256
const hashChunkSize = 64 * 1024

// ErrChecksumMismatch is returned when a file does not hash to the expected value
var ErrChecksumMismatch = errors.New("checksum mismatch")

// checksumCalculator computes SHA-256 digests of input files
type checksumCalculator struct{}

// NewChecksumCalculator creates a new checksum calculator
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewChecksumCalculator() *checksumCalculator {
	return &checksumCalculator{}
}

// CalculateChecksum streams the file in fixed-size chunks and returns its hex SHA-256
func (c *checksumCalculator) CalculateChecksum(ctx context.Context, filePath string) (string, error) {
	//nolint:gosec // G304: File path is user-provided for checksum calculation
	f, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, hashChunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		n, readErr := f.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			return "", fmt.Errorf("failed to hash file: %w", readErr)
		}
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// VerifyChecksum compares the file's SHA-256 against an expected hex digest
func (c *checksumCalculator) VerifyChecksum(ctx context.Context, filePath, expectedSum string) error {
	actualSum, err := c.CalculateChecksum(ctx, filePath)
	if err != nil {
		return err
	}

	if !strings.EqualFold(actualSum, strings.TrimSpace(expectedSum)) {
		return fmt.Errorf("%w: expected %s, got %s", ErrChecksumMismatch, expectedSum, actualSum)
	}

	return nil
}
