package rpc

import (
	"net/http"
	"os"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// ResourceUsageResult is a snapshot of the node process and host utilization
type ResourceUsageResult struct {
	Process ProcessResourceUsage `json:"process"`
	System  SystemResourceUsage  `json:"system"`
}

type ProcessResourceUsage struct {
	Name          string  `json:"name"`
	CreateTime    string  `json:"createTime"`
	FDCount       uint64  `json:"fdCount"`
	ThreadCount   uint64  `json:"threadCount"`
	MemoryPercent float64 `json:"usedMemoryPercent"`
	CPUPercent    float64 `json:"usedCPUPercent"`
}

type SystemResourceUsage struct {
	TotalRAM        uint64  `json:"totalRAM"`
	AvailableRAM    uint64  `json:"availableRAM"`
	UsedRAM         uint64  `json:"usedRAM"`
	UsedRAMPercent  float64 `json:"usedRAMPercent"`
	UsedCPUPercent  float64 `json:"usedCPUPercent"`
	TotalDisk       uint64  `json:"totalDisk"`
	UsedDisk        uint64  `json:"usedDisk"`
	UsedDiskPercent float64 `json:"usedDiskPercent"`
	FreeDisk        uint64  `json:"freeDisk"`
}

// ResourceUsage retrieves node resource usage, the disk figures are of the data directory's volume
func (s *Server) ResourceUsage(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	pm, err := mem.VirtualMemory() // os memory
	if err != nil {
		write(w, ErrResourceUsage(err), http.StatusInternalServerError)
		return
	}
	cp, err := cpu.Percent(0, false) // os cpu percent
	if err != nil || len(cp) == 0 {
		write(w, ErrResourceUsage(err), http.StatusInternalServerError)
		return
	}
	diskPath := s.config.DataDirPath
	if diskPath == "" {
		diskPath = "/"
	}
	d, err := disk.Usage(diskPath)
	if err != nil {
		write(w, ErrResourceUsage(err), http.StatusInternalServerError)
		return
	}
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		write(w, ErrResourceUsage(err), http.StatusInternalServerError)
		return
	}
	// process figures are best effort as not every platform reports them
	name, _ := p.Name()
	created, _ := p.CreateTime()
	fds, _ := p.NumFDs()
	numThreads, _ := p.NumThreads()
	memPercent, _ := p.MemoryPercent()
	cpuPercent, _ := p.CPUPercent()
	write(w, ResourceUsageResult{
		Process: ProcessResourceUsage{
			Name:          name,
			CreateTime:    time.UnixMilli(created).Format(time.RFC822),
			FDCount:       uint64(fds),
			ThreadCount:   uint64(numThreads),
			MemoryPercent: float64(memPercent),
			CPUPercent:    cpuPercent,
		},
		System: SystemResourceUsage{
			TotalRAM:        pm.Total,
			AvailableRAM:    pm.Available,
			UsedRAM:         pm.Used,
			UsedRAMPercent:  pm.UsedPercent,
			UsedCPUPercent:  cp[0],
			TotalDisk:       d.Total,
			UsedDisk:        d.Used,
			UsedDiskPercent: d.UsedPercent,
			FreeDisk:        d.Free,
		},
	}, http.StatusOK)
}
