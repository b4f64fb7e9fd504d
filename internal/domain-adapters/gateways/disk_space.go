package gateways

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"

	"github.com/ochairo/decant/internal/domain/entities"
	"github.com/ochairo/decant/internal/domain/interfaces"
)

const bytesPerGB = 1 << 30

// HostSummary describes the machine decant runs on
type HostSummary struct {
	Hostname        string
	Platform        string
	PlatformVersion string
	KernelArch      string
}

// DiskSpaceChecker warns before extraction when the temp volume is short on space
type DiskSpaceChecker struct {
	logger interfaces.Logger
	usage  func(ctx context.Context, path string) (*disk.UsageStat, error)
	info   func(ctx context.Context) (*host.InfoStat, error)
}

// NewDiskSpaceChecker creates a checker backed by gopsutil
func NewDiskSpaceChecker(logger interfaces.Logger) *DiskSpaceChecker {
	return &DiskSpaceChecker{
		logger: interfaces.OrNoOp(logger),
		usage:  disk.UsageWithContext,
		info:   host.InfoWithContext,
	}
}

// Check compares free space on the volume holding path with the larger of
// inputSize and maxTempSizeGB. A short volume is logged as a warning; the
// caller decides whether to continue.
func (c *DiskSpaceChecker) Check(ctx context.Context, path string, inputSize int64, maxTempSizeGB int) (entities.SpaceReport, error) {
	report := entities.SpaceReport{Path: path}
	if inputSize > 0 {
		report.RequiredBytes = uint64(inputSize)
	}
	if maxTempSizeGB > 0 && uint64(maxTempSizeGB)*bytesPerGB > report.RequiredBytes {
		report.RequiredBytes = uint64(maxTempSizeGB) * bytesPerGB
	}

	stat, err := c.usage(ctx, path)
	if err != nil {
		return report, fmt.Errorf("failed to read disk usage for %s: %w", path, err)
	}
	report.FreeBytes = stat.Free

	if !report.Sufficient() {
		c.logger.Warn("low disk space for extraction",
			interfaces.F("path", path),
			interfaces.F("free_gb", float64(report.FreeBytes)/bytesPerGB),
			interfaces.F("required_gb", float64(report.RequiredBytes)/bytesPerGB),
		)
	}
	return report, nil
}

// Host returns basic facts about the current machine
func (c *DiskSpaceChecker) Host(ctx context.Context) (HostSummary, error) {
	info, err := c.info(ctx)
	if err != nil {
		return HostSummary{}, fmt.Errorf("failed to read host info: %w", err)
	}
	return HostSummary{
		Hostname:        info.Hostname,
		Platform:        info.Platform,
		PlatformVersion: info.PlatformVersion,
		KernelArch:      info.KernelArch,
	}, nil
}
