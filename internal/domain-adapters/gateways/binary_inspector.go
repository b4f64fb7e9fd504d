// Package gateways provides adapter implementations for external services and tools.
package gateways

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ochairo/decant/internal/domain/entities"
	"github.com/ochairo/decant/internal/domain/interfaces"
	"github.com/ochairo/decant/internal/domain/services"
)

// PE layout constants
const (
	dosHeaderSize        = 64
	peOffsetField        = 60
	coffHeaderSize       = 20
	sectionHeaderSize    = 40
	sectionNameSize      = 8
	subsystemOffset      = 68
	minOptionalForSubsys = subsystemOffset + 2
)

var (
	dosMagic = []byte("MZ")
	peMagic  = []byte("PE\x00\x00")
)

// binaryInspector reads the structure of Windows executables using pure Go.
// It walks the headers by hand so that truncated or damaged files still
// yield whatever fields were readable.
type binaryInspector struct {
	logger     interfaces.Logger
	classifier *services.InstallerClassifier
	checksum   *checksumCalculator
}

// NewBinaryInspector creates a new binary inspector
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewBinaryInspector(logger interfaces.Logger) *binaryInspector {
	return &binaryInspector{
		logger:     interfaces.OrNoOp(logger),
		classifier: services.NewInstallerClassifier(),
		checksum:   NewChecksumCalculator(),
	}
}

// Inspect produces a BinaryAnalysis for path. It never fails: problems are
// logged and the affected fields keep their zero or unknown values.
func (g *binaryInspector) Inspect(ctx context.Context, path string) *entities.BinaryAnalysis {
	analysis := &entities.BinaryAnalysis{
		FileName:        filepath.Base(path),
		Architecture:    entities.ArchUnknown,
		Subsystem:       entities.SubsystemUnknown,
		InstallerFamily: entities.FamilyUnknown,
	}

	//nolint:gosec // G304: File path is user-provided for inspection
	f, err := os.Open(path)
	if err != nil {
		g.logger.Error("cannot open file for inspection", interfaces.F("path", path), interfaces.F("error", err))
		return analysis
	}
	//nolint:errcheck // Defer close on read-only file
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		g.logger.Error("cannot stat file", interfaces.F("path", path), interfaces.F("error", err))
		return analysis
	}
	analysis.SizeBytes = info.Size()

	// Step 1: PE structure
	if err := parsePEHeaders(f, analysis); err != nil {
		g.logger.Debug("PE header parse stopped", interfaces.F("path", path), interfaces.F("reason", err))
	}

	// Step 2: installer classification
	head, err := readHead(f, services.SignatureScanBytes)
	if err != nil {
		g.logger.Error("cannot read file head for classification", interfaces.F("path", path), interfaces.F("error", err))
	} else {
		analysis.IsInstaller, analysis.InstallerFamily = g.classifier.Classify(analysis.FileName, head, analysis.SizeBytes)
	}

	// Step 3: content hash, informational only
	sum, err := g.checksum.CalculateChecksum(ctx, path)
	if err != nil {
		g.logger.Warn("cannot hash file", interfaces.F("path", path), interfaces.F("error", err))
	}
	analysis.SHA256 = sum

	g.logger.Info("inspected binary",
		interfaces.F("file", analysis.FileName),
		interfaces.F("valid_pe", analysis.ValidExecutable),
		interfaces.F("arch", analysis.Architecture),
		interfaces.F("family", analysis.InstallerFamily),
	)

	return analysis
}

// parsePEHeaders fills the structural fields of a. It returns the reason it
// stopped early, if any; fields set before that point stay set.
func parsePEHeaders(r io.ReadSeeker, a *entities.BinaryAnalysis) error {
	dos := make([]byte, dosHeaderSize)
	if _, err := io.ReadFull(r, dos); err != nil {
		return fmt.Errorf("short DOS header: %w", err)
	}
	if string(dos[:2]) != string(dosMagic) {
		return errors.New("missing MZ signature")
	}

	peOffset := binary.LittleEndian.Uint32(dos[peOffsetField:])
	if _, err := r.Seek(int64(peOffset), io.SeekStart); err != nil {
		return fmt.Errorf("seek to PE header: %w", err)
	}

	sig := make([]byte, len(peMagic))
	if _, err := io.ReadFull(r, sig); err != nil {
		return fmt.Errorf("short PE signature: %w", err)
	}
	if string(sig) != string(peMagic) {
		return errors.New("missing PE signature")
	}
	a.ValidExecutable = true

	coff := make([]byte, coffHeaderSize)
	if _, err := io.ReadFull(r, coff); err != nil {
		return fmt.Errorf("short COFF header: %w", err)
	}
	a.Architecture = entities.ArchitectureFromMachine(binary.LittleEndian.Uint16(coff[0:2]))
	sectionCount := int(binary.LittleEndian.Uint16(coff[2:4]))
	optionalSize := int(binary.LittleEndian.Uint16(coff[16:18]))

	if optionalSize > 0 {
		optional := make([]byte, optionalSize)
		n, err := io.ReadFull(r, optional)
		if n >= minOptionalForSubsys {
			a.Subsystem = entities.SubsystemFromValue(binary.LittleEndian.Uint16(optional[subsystemOffset:]))
		}
		if err != nil {
			return fmt.Errorf("short optional header: %w", err)
		}
	}

	header := make([]byte, sectionHeaderSize)
	for i := 0; i < sectionCount; i++ {
		if _, err := io.ReadFull(r, header); err != nil {
			return fmt.Errorf("short section header %d: %w", i, err)
		}
		a.SectionNames = append(a.SectionNames, decodeSectionName(header[:sectionNameSize]))
	}

	return nil
}

// decodeSectionName strips trailing NULs and decodes as ASCII,
// replacing bytes outside the ASCII range with U+FFFD
func decodeSectionName(raw []byte) string {
	raw = []byte(strings.TrimRight(string(raw), "\x00"))
	var b strings.Builder
	for _, c := range raw {
		if c >= utf8.RuneSelf {
			b.WriteRune(utf8.RuneError)
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// readHead returns up to limit bytes from the start of the file
func readHead(f io.ReadSeeker, limit int) ([]byte, error) {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return io.ReadAll(io.LimitReader(f, int64(limit)))
}
