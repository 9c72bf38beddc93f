package models

import (
	"encoding/json"
	"time"
)

// RunSummary 分片运行汇总报告
type RunSummary struct {
	// 运行信息
	RunID       string `json:"run_id"`
	TotalShards int    `json:"total_shards"`
	ShardIndex  int    `json:"shard_index"`
	StayDate    string `json:"stay_date"` // 本次运行的入住日期

	// 时间信息
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Duration  float64   `json:"duration"` // 秒

	// 统计信息
	TotalTasks     int `json:"total_tasks"`
	SuccessCount   int `json:"success_count"`
	NoAvailability int `json:"no_availability_count"`
	TableNotFound  int `json:"table_not_found_count"`
	FailedCount    int `json:"failed_count"`
	FoundRooms     int `json:"found_rooms"` // 提取到的房型总数
	SavedRooms     int `json:"saved_rooms"` // 写入存储的房型总数

	// 按全局序号排序的任务结果
	Results []TaskResult `json:"results"`
}

// AddResult 累加单个任务结果
func (s *RunSummary) AddResult(result TaskResult) {
	s.TotalTasks++
	s.FoundRooms += result.FoundRoomCount
	s.SavedRooms += result.SavedRoomCount
	switch result.Status {
	case StatusSuccess:
		s.SuccessCount++
	case StatusNoAvailability:
		s.NoAvailability++
	case StatusTableNotFound:
		s.TableNotFound++
	case StatusFailed:
		s.FailedCount++
	}
	s.Results = append(s.Results, result)
}

// SuccessRate 成功率(%)
func (s *RunSummary) SuccessRate() float64 {
	if s.TotalTasks == 0 {
		return 0
	}
	return float64(s.SuccessCount+s.NoAvailability) / float64(s.TotalTasks) * 100
}

// ToJSON 序列化为JSON
func (s *RunSummary) ToJSON() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}
