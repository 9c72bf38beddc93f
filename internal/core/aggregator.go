package core

import (
	"sort"
	"time"

	"github.com/RecoveryAshes/roomcrawl/internal/models"
	"github.com/RecoveryAshes/roomcrawl/internal/utils"
)

// Aggregate 汇总一次分片运行的全部任务结果
// 结果按全局序号排序,逐项累加状态计数
func Aggregate(config *models.ScrapeConfig, stayDate string, results []models.TaskResult, startTime time.Time) *models.RunSummary {
	sorted := make([]models.TaskResult, len(results))
	copy(sorted, results)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].GlobalIndex < sorted[j].GlobalIndex
	})

	summary := &models.RunSummary{
		RunID:       utils.GenerateRunID(),
		TotalShards: config.TotalShards,
		ShardIndex:  config.ShardIndex,
		StayDate:    stayDate,
		StartTime:   startTime,
		EndTime:     time.Now(),
	}
	for _, result := range sorted {
		summary.AddResult(result)
	}
	summary.Duration = summary.EndTime.Sub(summary.StartTime).Seconds()
	return summary
}

// PrintSummary 打印运行摘要
func PrintSummary(summary *models.RunSummary) {
	utils.Info("\n==================================================")
	utils.Info("📊 抓取运行摘要")
	utils.Info("==================================================")
	utils.Infof("分片: %d/%d", summary.ShardIndex, summary.TotalShards)
	utils.Infof("入住日期: %s", summary.StayDate)
	utils.Infof("总任务数: %d", summary.TotalTasks)
	utils.Infof("✅ 成功: %d", summary.SuccessCount)
	utils.Infof("🈳 确认无房: %d", summary.NoAvailability)
	utils.Infof("⚠️  未找到房间表: %d", summary.TableNotFound)
	utils.Infof("❌ 失败: %d", summary.FailedCount)
	utils.Infof("📦 提取房型数: %d", summary.FoundRooms)
	utils.Infof("📦 保存房型数: %d", summary.SavedRooms)
	utils.Infof("⏱️  总耗时: %.2f秒", summary.Duration)
	utils.Infof("成功率: %.1f%%", summary.SuccessRate())
	utils.Info("==================================================")

	if summary.FailedCount > 0 {
		utils.Warn("\n失败的链接:")
		for _, result := range summary.Results {
			if result.Status == models.StatusFailed {
				utils.Warnf("  - [%d] %s: %s", result.GlobalIndex, result.URL, result.Error)
			}
		}
	}
}
