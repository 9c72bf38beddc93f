package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// TaskStatus 任务终态
type TaskStatus string

const (
	StatusSuccess        TaskStatus = "SUCCESS"         // 成功提取并保存房间数据
	StatusNoAvailability TaskStatus = "NO_AVAILABILITY" // 页面明确显示无可用房间
	StatusTableNotFound  TaskStatus = "TABLE_NOT_FOUND" // 房间表和无房提示均未找到
	StatusFailed         TaskStatus = "FAILED"          // 导航/提取/持久化失败
)

// BrowserPolicy 浏览器生命周期策略
type BrowserPolicy string

const (
	PolicyPerTask  BrowserPolicy = "per-task"  // 每个任务独立浏览器实例
	PolicyPerBatch BrowserPolicy = "per-batch" // 每K个任务复用同一浏览器实例
)

// BrowserOptions 浏览器启动选项
type BrowserOptions struct {
	Headless      bool   `json:"headless" mapstructure:"headless"`             // 无头模式 (默认:true)
	DisableImages bool   `json:"disable_images" mapstructure:"disable_images"` // 禁用图片加载
	UserAgent     string `json:"user_agent" mapstructure:"user_agent"`         // 自定义User-Agent,空则使用默认
	WindowWidth   int    `json:"window_width" mapstructure:"window_width"`     // 窗口宽度 (默认:1920)
	WindowHeight  int    `json:"window_height" mapstructure:"window_height"`   // 窗口高度 (默认:1080)
}

// ScrapeConfig 抓取配置
type ScrapeConfig struct {
	TotalShards int    `json:"total_shards" mapstructure:"total_shards"` // 协作实例总数 (默认:1)
	ShardIndex  int    `json:"shard_index" mapstructure:"shard_index"`   // 本实例的分片索引,0起始
	MaxWorkers  int    `json:"max_workers" mapstructure:"max_workers"`   // 并发worker数,0表示按资源自动计算
	TimeoutMs   int    `json:"timeout_ms" mapstructure:"timeout_ms"`     // 单任务页面超时(毫秒) (默认:120000)
	CutoffHour  int    `json:"cutoff_hour" mapstructure:"cutoff_hour"`   // 本地小时≥该值则入住日取明天 (默认:21)
	Currency    string `json:"currency" mapstructure:"currency"`         // 价格货币 (默认:TRY)

	Browser          BrowserOptions `json:"browser" mapstructure:"browser"`
	BrowserPolicy    BrowserPolicy  `json:"browser_policy" mapstructure:"browser_policy"`         // per-task | per-batch
	BrowserBatchSize int            `json:"browser_batch_size" mapstructure:"browser_batch_size"` // per-batch策略下单浏览器承载任务数

	// 资源限制
	SafetyReserveMemory int64 `json:"safety_reserve_memory" mapstructure:"safety_reserve_memory"` // 安全保留内存(MB)
	SafetyThreshold     int64 `json:"safety_threshold" mapstructure:"safety_threshold"`           // 最低可用内存阈值(MB)
	CPULoadThreshold    int   `json:"cpu_load_threshold" mapstructure:"cpu_load_threshold"`       // CPU负载阈值(%)
	MaxSessionsLimit    int   `json:"max_sessions_limit" mapstructure:"max_sessions_limit"`       // 最大并发浏览器会话数
}

// Validate 验证配置
// 分片参数错误属于部署配置问题,调用方应视为致命错误
func (c *ScrapeConfig) Validate() error {
	if c.TotalShards <= 0 {
		return fmt.Errorf("分片总数必须大于0 (当前: %d)", c.TotalShards)
	}
	if c.ShardIndex < 0 || c.ShardIndex >= c.TotalShards {
		return fmt.Errorf("分片索引必须在0-%d之间 (当前: %d)", c.TotalShards-1, c.ShardIndex)
	}
	if c.MaxWorkers < 0 || c.MaxWorkers > 100 {
		return fmt.Errorf("并发数必须在0-100之间")
	}
	if c.TimeoutMs <= 0 {
		return fmt.Errorf("任务超时必须大于0毫秒")
	}
	if c.CutoffHour < 0 || c.CutoffHour > 23 {
		return fmt.Errorf("入住日切换时刻必须在0-23之间")
	}
	if c.BrowserPolicy != PolicyPerTask && c.BrowserPolicy != PolicyPerBatch {
		return fmt.Errorf("浏览器策略必须是 per-task 或 per-batch (当前: %s)", c.BrowserPolicy)
	}
	if c.BrowserPolicy == PolicyPerBatch && c.BrowserBatchSize < 1 {
		return fmt.Errorf("per-batch策略下批大小必须至少为1")
	}
	return nil
}

// Timeout 任务超时时长
func (c *ScrapeConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// ScrapeTask 单个酒店页面的抓取任务
// 派发后不可变,归执行它的worker独占
type ScrapeTask struct {
	ID          string         `json:"id"`           // 任务唯一ID (UUID)
	URL         string         `json:"url"`          // 酒店详情页URL(已重写日期参数)
	GlobalIndex int            `json:"global_index"` // 全局链接序号,1起始,跨分片稳定
	TotalCount  int            `json:"total_count"`  // 全局链接总数
	TimeoutMs   int            `json:"timeout_ms"`   // 页面操作超时(毫秒)
	Browser     BrowserOptions `json:"browser"`      // 浏览器启动选项快照
}

// NewScrapeTask 创建抓取任务
func NewScrapeTask(url string, globalIndex, totalCount int, config *ScrapeConfig) ScrapeTask {
	return ScrapeTask{
		ID:          generateID(),
		URL:         url,
		GlobalIndex: globalIndex,
		TotalCount:  totalCount,
		TimeoutMs:   config.TimeoutMs,
		Browser:     config.Browser,
	}
}

// Timeout 任务超时时长
func (t *ScrapeTask) Timeout() time.Duration {
	return time.Duration(t.TimeoutMs) * time.Millisecond
}

// TaskResult 任务结果
// 每个派发的任务恰好产生一个结果;返回后即为终态,不自动重试
type TaskResult struct {
	GlobalIndex    int        `json:"global_index"`
	URL            string     `json:"url"`
	HotelName      string     `json:"hotel_name,omitempty"` // 页面提取的酒店名(失败时可能为空)
	Status         TaskStatus `json:"status"`
	FoundRoomCount int        `json:"found_room_count"` // 页面上提取到的去重后房型数
	SavedRoomCount int        `json:"saved_room_count"` // 成功写入存储的房型数
	Error          string     `json:"error,omitempty"`
	DurationMs     int64      `json:"duration_ms"`
}

// Succeeded 任务是否成功(确认无房也算成功)
func (r *TaskResult) Succeeded() bool {
	return r.Status == StatusSuccess || r.Status == StatusNoAvailability
}

// ToJSON 序列化为JSON
func (r *TaskResult) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
