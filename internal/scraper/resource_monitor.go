package scraper

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// 单个浏览器会话的平均内存开销估算
const sessionMemoryUsage = 300 * 1024 * 1024

// ResourceMonitor 系统资源监控器
// 周期性采样内存和CPU,据此计算允许的并发浏览器会话数
type ResourceMonitor struct {
	config ResourceMonitorConfig

	lastMemStats runtime.MemStats
	totalMemory  uint64

	// 缓存的会话数计算结果,每秒更新一次
	cachedMaxSessions int
	lastCacheTime     time.Time
	cacheMu           sync.RWMutex

	lastCPUUsage float64
	cpuUsageMu   sync.RWMutex

	mu sync.RWMutex

	cancelFunc context.CancelFunc
	isRunning  bool
}

// ResourceMonitorConfig 资源监控器配置
type ResourceMonitorConfig struct {
	SafetyReserveMemory int64 // 安全保留内存(字节)
	SafetyThreshold     int64 // 最低可用内存阈值(字节)
	CPULoadThreshold    int   // CPU负载阈值(%), ≥200视为禁用检查
	MaxSessionsLimit    int   // 绝对最大会话数
	SessionMemoryUsage  int64 // 单个会话平均内存消耗(字节)
}

// NewResourceMonitor 创建资源监控器
func NewResourceMonitor(config ResourceMonitorConfig) *ResourceMonitor {
	if config.SessionMemoryUsage == 0 {
		config.SessionMemoryUsage = sessionMemoryUsage
	}

	vmStat, err := mem.VirtualMemory()
	var totalMem uint64
	if err != nil {
		log.Warn().Err(err).Msg("获取系统内存失败,使用默认值")
		totalMem = 4 * 1024 * 1024 * 1024
	} else {
		totalMem = vmStat.Total
		log.Info().Msgf("系统总内存: %.2f GB", float64(totalMem)/(1024*1024*1024))
	}

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return &ResourceMonitor{
		config:       config,
		totalMemory:  totalMem,
		lastMemStats: memStats,
	}
}

// StartMonitoring 启动后台采样,重复调用是幂等的
func (rm *ResourceMonitor) StartMonitoring(interval time.Duration) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.isRunning {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	rm.cancelFunc = cancel
	rm.isRunning = true

	go rm.monitoringLoop(ctx, interval)
}

// monitoringLoop 后台监控循环
func (rm *ResourceMonitor) monitoringLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			var memStats runtime.MemStats
			runtime.ReadMemStats(&memStats)

			rm.mu.Lock()
			rm.lastMemStats = memStats
			rm.mu.Unlock()

			cpuUsage := rm.getCPUUsage()
			rm.cpuUsageMu.Lock()
			rm.lastCPUUsage = cpuUsage
			rm.cpuUsageMu.Unlock()
		}
	}
}

// getCPUUsage 获取系统CPU平均使用率(百分比)
func (rm *ResourceMonitor) getCPUUsage() float64 {
	percentages, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		log.Warn().Err(err).Msg("获取CPU使用率失败")
		return 0.0
	}
	if len(percentages) == 0 {
		return 0.0
	}
	return percentages[0]
}

// StopMonitoring 停止资源监控
func (rm *ResourceMonitor) StopMonitoring() {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.isRunning && rm.cancelFunc != nil {
		rm.cancelFunc()
		rm.isRunning = false
		rm.cancelFunc = nil
	}
}

// CalculateMaxSessions 计算当前允许的最大并发浏览器会话数
// 取内存上限、CPU核数上限和配置上限的最小值,至少为1,结果缓存1秒
func (rm *ResourceMonitor) CalculateMaxSessions() int {
	rm.cacheMu.RLock()
	if time.Since(rm.lastCacheTime) < time.Second && rm.cachedMaxSessions > 0 {
		cached := rm.cachedMaxSessions
		rm.cacheMu.RUnlock()
		return cached
	}
	rm.cacheMu.RUnlock()

	rm.mu.RLock()
	memStats := rm.lastMemStats
	rm.mu.RUnlock()

	availableMemory := int64(rm.totalMemory) - int64(memStats.Alloc) - rm.config.SafetyReserveMemory

	maxByMemory := 1
	if availableMemory > rm.config.SafetyThreshold {
		surplus := availableMemory - rm.config.SafetyThreshold
		maxByMemory = int(surplus / rm.config.SessionMemoryUsage)
		if maxByMemory < 1 {
			maxByMemory = 1
		}
	}

	maxByCPU := runtime.NumCPU()

	result := maxByMemory
	if maxByCPU < result {
		result = maxByCPU
	}
	if rm.config.MaxSessionsLimit > 0 && rm.config.MaxSessionsLimit < result {
		result = rm.config.MaxSessionsLimit
	}
	if result < 1 {
		result = 1
	}

	rm.cacheMu.Lock()
	rm.cachedMaxSessions = result
	rm.lastCacheTime = time.Now()
	rm.cacheMu.Unlock()

	return result
}

// CheckResourceAvailability 检查当前资源是否允许启动新的浏览器会话
func (rm *ResourceMonitor) CheckResourceAvailability() (canCreate bool, reason string) {
	rm.mu.RLock()
	memStats := rm.lastMemStats
	rm.mu.RUnlock()

	availableMemory := int64(rm.totalMemory) - int64(memStats.Alloc) - rm.config.SafetyReserveMemory

	if availableMemory < rm.config.SafetyThreshold {
		availableMemoryMB := availableMemory / (1024 * 1024)
		log.Warn().Msgf("可用内存不足(当前%dMB),浏览器会话创建受限", availableMemoryMB)
		return false, fmt.Sprintf("内存不足(当前%dMB)", availableMemoryMB)
	}

	if rm.config.CPULoadThreshold < 200 {
		rm.cpuUsageMu.RLock()
		cpuUsage := rm.lastCPUUsage
		rm.cpuUsageMu.RUnlock()

		if cpuUsage > float64(rm.config.CPULoadThreshold) {
			return false, fmt.Sprintf("CPU负载过高(当前%.1f%%)", cpuUsage)
		}
	}

	return true, ""
}
