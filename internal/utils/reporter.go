package utils

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/RecoveryAshes/roomcrawl/internal/models"
	"github.com/schollz/progressbar/v3"
)

// Reporter 运行汇总报告生成器
type Reporter struct {
	outputDir string
}

// NewReporter 创建报告生成器
func NewReporter(outputDir string) *Reporter {
	return &Reporter{outputDir: outputDir}
}

// WriteSummary 输出运行汇总
// 生成summary_<入住日>.csv逐任务明细和同名.json完整汇总
func (r *Reporter) WriteSummary(summary *models.RunSummary) error {
	if err := os.MkdirAll(r.outputDir, 0755); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}

	csvPath := filepath.Join(r.outputDir, fmt.Sprintf("summary_%s.csv", summary.StayDate))
	if err := r.writeCSV(csvPath, summary); err != nil {
		return err
	}

	jsonPath := filepath.Join(r.outputDir, fmt.Sprintf("summary_%s.json", summary.StayDate))
	data, err := summary.ToJSON()
	if err != nil {
		return fmt.Errorf("序列化运行汇总失败: %w", err)
	}
	if err := os.WriteFile(jsonPath, data, 0644); err != nil {
		return fmt.Errorf("写入汇总JSON失败: %w", err)
	}

	Infof("✅ 运行汇总已生成: %s", csvPath)
	return nil
}

// writeCSV 逐任务明细CSV
func (r *Reporter) writeCSV(path string, summary *models.RunSummary) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("创建汇总CSV失败: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"global_index", "url", "hotel_name", "status", "found_rooms", "saved_rooms", "duration_ms", "error"}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("写入CSV表头失败: %w", err)
	}

	for _, result := range summary.Results {
		row := []string{
			strconv.Itoa(result.GlobalIndex),
			result.URL,
			result.HotelName,
			string(result.Status),
			strconv.Itoa(result.FoundRoomCount),
			strconv.Itoa(result.SavedRoomCount),
			strconv.FormatInt(result.DurationMs, 10),
			result.Error,
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("写入CSV行失败: %w", err)
		}
	}
	return nil
}

// NewProgressBar 创建进度条
func NewProgressBar(max int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(max,
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}
