package gateways

import (
	"context"
	"errors"
	"testing"

	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func checkerWithFree(logger *recordingLogger, free uint64) *DiskSpaceChecker {
	c := NewDiskSpaceChecker(logger)
	c.usage = func(_ context.Context, path string) (*disk.UsageStat, error) {
		return &disk.UsageStat{Path: path, Free: free}, nil
	}
	return c
}

func TestDiskSpaceChecker_Check(t *testing.T) {
	tests := []struct {
		name       string
		free       uint64
		inputSize  int64
		maxGB      int
		sufficient bool
	}{
		{"plenty", 20 * bytesPerGB, 1 << 20, 10, true},
		{"exact", 10 * bytesPerGB, 0, 10, true},
		{"short", 2 * bytesPerGB, 0, 10, false},
		{"no limit", 0, 0, 0, true},
		{"input larger than limit", 3 * bytesPerGB, 4 * bytesPerGB, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := &recordingLogger{}
			report, err := checkerWithFree(logger, tt.free).Check(context.Background(), "/tmp", tt.inputSize, tt.maxGB)

			require.NoError(t, err)
			assert.Equal(t, tt.sufficient, report.Sufficient())
			assert.Equal(t, !tt.sufficient, logger.has("WARN"))
		})
	}
}

func TestDiskSpaceChecker_UsageError(t *testing.T) {
	c := NewDiskSpaceChecker(nil)
	c.usage = func(context.Context, string) (*disk.UsageStat, error) {
		return nil, errors.New("no such volume")
	}

	_, err := c.Check(context.Background(), "/nowhere", 0, 10)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such volume")
}

func TestDiskSpaceChecker_Host(t *testing.T) {
	c := NewDiskSpaceChecker(nil)
	c.info = func(context.Context) (*host.InfoStat, error) {
		return &host.InfoStat{Hostname: "box", Platform: "Microsoft Windows 11 Pro", KernelArch: "x86_64"}, nil
	}

	summary, err := c.Host(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "box", summary.Hostname)
	assert.Equal(t, "x86_64", summary.KernelArch)
}
