package entities

// Architecture is the target machine of a PE image
type Architecture string

// Supported architectures
const (
	ArchX86     Architecture = "x86"
	ArchX64     Architecture = "x64"
	ArchARM     Architecture = "ARM"
	ArchUnknown Architecture = "unknown"
)

// Subsystem is the Windows subsystem a PE image requests
type Subsystem string

// Supported subsystems
const (
	SubsystemGUI     Subsystem = "GUI"
	SubsystemConsole Subsystem = "Console"
	SubsystemUnknown Subsystem = "unknown"
)

// Installer family labels
const (
	FamilyGenericInstaller  = "Generic Installer"
	FamilyInnoSetup         = "Inno Setup"
	FamilyNSIS              = "NSIS"
	FamilyInstallShield     = "InstallShield"
	FamilyWiX               = "WiX"
	FamilyWindowsInstaller  = "Windows Installer"
	FamilyAdvancedInstaller = "Advanced Installer"
	FamilyLargeExecutable   = "Large Executable (Likely Installer)"
	FamilyStandalone        = "Standalone Application"
	FamilyUnknown           = "Unknown"
)

// BinaryAnalysis is the structural summary of a candidate Windows executable.
// A fresh value is built for every input and never modified afterwards.
type BinaryAnalysis struct {
	FileName  string
	SizeBytes int64
	SHA256    string

	ValidExecutable bool
	Architecture    Architecture
	Subsystem       Subsystem
	SectionNames    []string

	IsInstaller     bool
	InstallerFamily string
}

// ArchitectureFromMachine maps a COFF machine field to an Architecture
func ArchitectureFromMachine(machine uint16) Architecture {
	switch machine {
	case 0x14c:
		return ArchX86
	case 0x8664:
		return ArchX64
	case 0x1c4:
		return ArchARM
	default:
		return ArchUnknown
	}
}

// SubsystemFromValue maps an optional header subsystem field to a Subsystem
func SubsystemFromValue(v uint16) Subsystem {
	switch v {
	case 2:
		return SubsystemGUI
	case 3:
		return SubsystemConsole
	default:
		return SubsystemUnknown
	}
}
