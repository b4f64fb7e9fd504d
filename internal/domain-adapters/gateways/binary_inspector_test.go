package gateways

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ochairo/decant/internal/domain/entities"
	"github.com/ochairo/decant/internal/domain/interfaces"
)

// recordingLogger captures log messages by level
type recordingLogger struct {
	mu      sync.Mutex
	entries []string
}

func (r *recordingLogger) add(level, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, level+": "+msg)
}

func (r *recordingLogger) Debug(msg string, _ ...interfaces.Field) { r.add("DEBUG", msg) }
func (r *recordingLogger) Info(msg string, _ ...interfaces.Field)  { r.add("INFO", msg) }
func (r *recordingLogger) Warn(msg string, _ ...interfaces.Field)  { r.add("WARN", msg) }
func (r *recordingLogger) Error(msg string, _ ...interfaces.Field) { r.add("ERROR", msg) }

func (r *recordingLogger) has(level string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if len(e) > len(level) && e[:len(level)] == level {
			return true
		}
	}
	return false
}

type peImage struct {
	machine      uint16
	subsystem    uint16
	optionalSize uint16
	sections     []string
}

// build assembles a minimal PE image: DOS header, PE signature, COFF header,
// optional header and section table.
func (p peImage) build() []byte {
	var buf bytes.Buffer

	dos := make([]byte, 64)
	copy(dos, "MZ")
	binary.LittleEndian.PutUint32(dos[60:], 64)
	buf.Write(dos)

	buf.WriteString("PE\x00\x00")

	coff := make([]byte, 20)
	binary.LittleEndian.PutUint16(coff[0:], p.machine)
	binary.LittleEndian.PutUint16(coff[2:], uint16(len(p.sections)))
	binary.LittleEndian.PutUint16(coff[16:], p.optionalSize)
	buf.Write(coff)

	optional := make([]byte, p.optionalSize)
	if len(optional) >= 70 {
		binary.LittleEndian.PutUint16(optional[68:], p.subsystem)
	}
	buf.Write(optional)

	for _, name := range p.sections {
		header := make([]byte, 40)
		copy(header, name)
		buf.Write(header)
	}

	return buf.Bytes()
}

func writeTestFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, content, 0o600))
	return path
}

func TestBinaryInspector_MinimalX64GUI(t *testing.T) {
	img := peImage{machine: 0x8664, subsystem: 2, optionalSize: 240}.build()
	path := writeTestFile(t, "tool.exe", img)

	a := NewBinaryInspector(nil).Inspect(context.Background(), path)

	assert.True(t, a.ValidExecutable)
	assert.Equal(t, entities.ArchX64, a.Architecture)
	assert.Equal(t, entities.SubsystemGUI, a.Subsystem)
	assert.Empty(t, a.SectionNames)
	assert.False(t, a.IsInstaller)
	assert.Equal(t, entities.FamilyStandalone, a.InstallerFamily)
	assert.Equal(t, int64(len(img)), a.SizeBytes)
	assert.Len(t, a.SHA256, 64)
}

func TestBinaryInspector_ArchitecturesAndSubsystems(t *testing.T) {
	tests := []struct {
		name      string
		machine   uint16
		subsystem uint16
		wantArch  entities.Architecture
		wantSubs  entities.Subsystem
	}{
		{"x86 console", 0x14c, 3, entities.ArchX86, entities.SubsystemConsole},
		{"arm gui", 0x1c4, 2, entities.ArchARM, entities.SubsystemGUI},
		{"unknown machine", 0xaa64, 9, entities.ArchUnknown, entities.SubsystemUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := peImage{machine: tt.machine, subsystem: tt.subsystem, optionalSize: 96}.build()
			path := writeTestFile(t, "tool.exe", img)

			a := NewBinaryInspector(nil).Inspect(context.Background(), path)

			assert.True(t, a.ValidExecutable)
			assert.Equal(t, tt.wantArch, a.Architecture)
			assert.Equal(t, tt.wantSubs, a.Subsystem)
		})
	}
}

func TestBinaryInspector_SectionNames(t *testing.T) {
	img := peImage{
		machine:      0x14c,
		subsystem:    3,
		optionalSize: 224,
		sections:     []string{".text", ".rdata", "UPX0", "\xffbad"},
	}.build()
	path := writeTestFile(t, "tool.exe", img)

	a := NewBinaryInspector(nil).Inspect(context.Background(), path)

	assert.Equal(t, []string{".text", ".rdata", "UPX0", "�bad"}, a.SectionNames)
}

func TestBinaryInspector_ShortOptionalHeaderLeavesSubsystemUnknown(t *testing.T) {
	img := peImage{machine: 0x8664, subsystem: 2, optionalSize: 60}.build()
	path := writeTestFile(t, "tool.exe", img)

	a := NewBinaryInspector(nil).Inspect(context.Background(), path)

	assert.True(t, a.ValidExecutable)
	assert.Equal(t, entities.ArchX64, a.Architecture)
	assert.Equal(t, entities.SubsystemUnknown, a.Subsystem)
}

func TestBinaryInspector_TruncatedSectionTableKeepsEarlierFields(t *testing.T) {
	img := peImage{machine: 0x8664, subsystem: 3, optionalSize: 96, sections: []string{".text", ".data"}}.build()
	img = img[:len(img)-20]
	path := writeTestFile(t, "tool.exe", img)

	logger := &recordingLogger{}
	a := NewBinaryInspector(logger).Inspect(context.Background(), path)

	assert.True(t, a.ValidExecutable)
	assert.Equal(t, entities.ArchX64, a.Architecture)
	assert.Equal(t, entities.SubsystemConsole, a.Subsystem)
	assert.Equal(t, []string{".text"}, a.SectionNames)
	assert.True(t, logger.has("DEBUG"))
}

func TestBinaryInspector_NotAnExecutable(t *testing.T) {
	path := writeTestFile(t, "readme.exe", bytes.Repeat([]byte("plain text "), 20))

	a := NewBinaryInspector(nil).Inspect(context.Background(), path)

	assert.False(t, a.ValidExecutable)
	assert.Equal(t, entities.ArchUnknown, a.Architecture)
	assert.Equal(t, entities.SubsystemUnknown, a.Subsystem)
	assert.Empty(t, a.SectionNames)
}

func TestBinaryInspector_MZWithoutPESignature(t *testing.T) {
	dos := make([]byte, 128)
	copy(dos, "MZ")
	binary.LittleEndian.PutUint32(dos[60:], 64)
	copy(dos[64:], "NE")
	path := writeTestFile(t, "old.exe", dos)

	a := NewBinaryInspector(nil).Inspect(context.Background(), path)

	assert.False(t, a.ValidExecutable)
}

func TestBinaryInspector_TinyFile(t *testing.T) {
	path := writeTestFile(t, "tiny.exe", []byte("MZ"))

	a := NewBinaryInspector(nil).Inspect(context.Background(), path)

	assert.False(t, a.ValidExecutable)
	assert.Equal(t, int64(2), a.SizeBytes)
}

func TestBinaryInspector_LargeNonPEIsLikelyInstaller(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payload.exe")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(60*1024*1024))
	require.NoError(t, f.Close())

	a := NewBinaryInspector(nil).Inspect(context.Background(), path)

	assert.False(t, a.ValidExecutable)
	assert.True(t, a.IsInstaller)
	assert.Equal(t, entities.FamilyLargeExecutable, a.InstallerFamily)
}

func TestBinaryInspector_InstallerByName(t *testing.T) {
	path := writeTestFile(t, "setup.bin", []byte("random bytes"))

	a := NewBinaryInspector(nil).Inspect(context.Background(), path)

	assert.False(t, a.ValidExecutable)
	assert.True(t, a.IsInstaller)
	assert.Equal(t, entities.FamilyGenericInstaller, a.InstallerFamily)
}

func TestBinaryInspector_InstallerByMarker(t *testing.T) {
	img := peImage{machine: 0x14c, subsystem: 2, optionalSize: 224}.build()
	img = append(img, []byte("Nullsoft Install System")...)
	path := writeTestFile(t, "app.exe", img)

	a := NewBinaryInspector(nil).Inspect(context.Background(), path)

	assert.True(t, a.ValidExecutable)
	assert.True(t, a.IsInstaller)
	assert.Equal(t, entities.FamilyNSIS, a.InstallerFamily)
}

func TestBinaryInspector_MissingFile(t *testing.T) {
	logger := &recordingLogger{}

	a := NewBinaryInspector(logger).Inspect(context.Background(), "/nonexistent/app.exe")

	require.NotNil(t, a)
	assert.False(t, a.ValidExecutable)
	assert.False(t, a.IsInstaller)
	assert.Equal(t, entities.FamilyUnknown, a.InstallerFamily)
	assert.True(t, logger.has("ERROR"))
}

func TestDecodeSectionName(t *testing.T) {
	assert.Equal(t, ".text", decodeSectionName([]byte(".text\x00\x00\x00")))
	assert.Equal(t, "12345678", decodeSectionName([]byte("12345678")))
	assert.Equal(t, "", decodeSectionName(make([]byte, 8)))
}
