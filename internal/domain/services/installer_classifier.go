// Package services implements domain business logic and use cases.
package services

import (
	"bytes"
	"strings"

	"github.com/ochairo/decant/internal/domain/entities"
)

const (
	// SignatureScanBytes is how much of the file head is searched for framework markers
	SignatureScanBytes = 8192

	// LargeExecutableBytes is the size above which an unmarked executable is assumed to be an installer
	LargeExecutableBytes = 50 * 1024 * 1024
)

var installerNameHints = []string{"setup", "install", "installer"}

type frameworkSignature struct {
	family  string
	markers [][]byte
}

// Checked in order; the first family with a matching marker wins.
var frameworkSignatures = []frameworkSignature{
	{entities.FamilyInnoSetup, [][]byte{[]byte("Inno Setup"), []byte("InnoSetup")}},
	{entities.FamilyNSIS, [][]byte{[]byte("NSIS"), []byte("Nullsoft"), []byte("!insertmacro")}},
	{entities.FamilyInstallShield, [][]byte{[]byte("InstallShield")}},
	{entities.FamilyWiX, [][]byte{[]byte("WiX"), []byte("Windows Installer")}},
	{entities.FamilyWindowsInstaller, [][]byte{[]byte("This installation package")}},
	{entities.FamilyAdvancedInstaller, [][]byte{[]byte("Advanced Installer")}},
}

// InstallerClassifier decides whether a file is a packaged installer
type InstallerClassifier struct{}

// NewInstallerClassifier creates a new installer classifier
func NewInstallerClassifier() *InstallerClassifier {
	return &InstallerClassifier{}
}

// Classify applies the ordered installer heuristics.
// head holds at most the first SignatureScanBytes of the file; size is the full file size.
func (c *InstallerClassifier) Classify(fileName string, head []byte, size int64) (bool, string) {
	// Rule 1: filename hints
	lower := strings.ToLower(fileName)
	for _, hint := range installerNameHints {
		if strings.Contains(lower, hint) {
			return true, entities.FamilyGenericInstaller
		}
	}

	// Rule 2: framework markers in the file head
	if len(head) > SignatureScanBytes {
		head = head[:SignatureScanBytes]
	}
	for _, sig := range frameworkSignatures {
		for _, marker := range sig.markers {
			if bytes.Contains(head, marker) {
				return true, sig.family
			}
		}
	}

	// Rule 3: size fallback
	if size > LargeExecutableBytes {
		return true, entities.FamilyLargeExecutable
	}

	return false, entities.FamilyStandalone
}
