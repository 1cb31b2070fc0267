package pipeline

import (
	"fmt"
	"log"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// checkResources verifies the host can take another decode+inference job.
// A threshold of zero disables that check.
func (p *Processor) checkResources() error {
	if p.cfg.ThrottleCPU > 0 {
		usage, err := cpu.Percent(time.Second, false)
		if err != nil {
			log.Printf("Warning: could not get CPU usage: %v", err)
		} else if len(usage) > 0 && usage[0] > (100.0-p.cfg.ThrottleCPU) {
			return fmt.Errorf("not enough idle CPU: usage %.2f%%, idle threshold %.2f%%", usage[0], p.cfg.ThrottleCPU)
		}
	}

	if p.cfg.ThrottleFreeMem > 0 {
		vm, err := mem.VirtualMemory()
		if err != nil {
			log.Printf("Warning: could not get memory usage: %v", err)
		} else if vm.Available < uint64(p.cfg.ThrottleFreeMem) {
			return fmt.Errorf("not enough free memory: available %d, required %d", vm.Available, p.cfg.ThrottleFreeMem)
		}
	}

	if p.cfg.ThrottleFreeDisk > 0 && p.cfg.TempDir != "" {
		d, err := disk.Usage(p.cfg.TempDir)
		if err != nil {
			log.Printf("Warning: could not get disk usage for %s: %v", p.cfg.TempDir, err)
		} else if d.Free < uint64(p.cfg.ThrottleFreeDisk) {
			return fmt.Errorf("not enough free disk space: available %d, required %d", d.Free, p.cfg.ThrottleFreeDisk)
		}
	}

	return nil
}
