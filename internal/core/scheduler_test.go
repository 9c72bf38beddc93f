package core

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/RecoveryAshes/roomcrawl/internal/models"
)

func makeTasks(n int) []models.ScrapeTask {
	tasks := make([]models.ScrapeTask, 0, n)
	for i := 0; i < n; i++ {
		tasks = append(tasks, models.ScrapeTask{
			ID:          fmt.Sprintf("task-%d", i),
			URL:         fmt.Sprintf("https://example.com/hotel/tr/h%d.html", i),
			GlobalIndex: i + 1,
			TotalCount:  n,
		})
	}
	return tasks
}

func TestScheduler_AllTasksProduceResults(t *testing.T) {
	tasks := makeTasks(20)
	scheduler := NewScheduler(4, false)

	var executed int32
	results := scheduler.Run(tasks, func(task models.ScrapeTask) models.TaskResult {
		atomic.AddInt32(&executed, 1)
		return models.TaskResult{
			GlobalIndex: task.GlobalIndex,
			URL:         task.URL,
			Status:      models.StatusSuccess,
		}
	})

	if len(results) != len(tasks) {
		t.Fatalf("结果数 = %v, want %v", len(results), len(tasks))
	}
	if executed != int32(len(tasks)) {
		t.Errorf("执行次数 = %v, want %v", executed, len(tasks))
	}

	seen := make(map[int]bool)
	for _, result := range results {
		if seen[result.GlobalIndex] {
			t.Errorf("全局序号 %d 出现多次", result.GlobalIndex)
		}
		seen[result.GlobalIndex] = true
	}
}

func TestScheduler_PanicConvertedToFailedResult(t *testing.T) {
	// 一个任务panic不影响其他任务,且仍产生完整的FAILED结果
	tasks := makeTasks(5)
	scheduler := NewScheduler(2, false)

	results := scheduler.Run(tasks, func(task models.ScrapeTask) models.TaskResult {
		if task.GlobalIndex == 3 {
			panic("浏览器驱动崩溃")
		}
		return models.TaskResult{
			GlobalIndex: task.GlobalIndex,
			URL:         task.URL,
			Status:      models.StatusSuccess,
		}
	})

	if len(results) != 5 {
		t.Fatalf("结果数 = %v, want 5 (panic的任务也要有结果)", len(results))
	}

	var failed *models.TaskResult
	successCount := 0
	for i := range results {
		switch results[i].Status {
		case models.StatusFailed:
			failed = &results[i]
		case models.StatusSuccess:
			successCount++
		}
	}

	if failed == nil {
		t.Fatal("panic的任务应产生FAILED结果")
	}
	if failed.GlobalIndex != 3 {
		t.Errorf("FAILED结果的全局序号 = %v, want 3", failed.GlobalIndex)
	}
	if failed.URL == "" || failed.Error == "" {
		t.Errorf("FAILED结果字段不完整: %+v", failed)
	}
	if successCount != 4 {
		t.Errorf("成功任务数 = %v, want 4 (其余任务应正常完成)", successCount)
	}
}

func TestScheduler_SingleWorkerMinimum(t *testing.T) {
	scheduler := NewScheduler(0, false)
	results := scheduler.Run(makeTasks(3), func(task models.ScrapeTask) models.TaskResult {
		return models.TaskResult{GlobalIndex: task.GlobalIndex, Status: models.StatusSuccess}
	})
	if len(results) != 3 {
		t.Errorf("结果数 = %v, want 3", len(results))
	}
}

func TestScheduler_EmptyTaskList(t *testing.T) {
	scheduler := NewScheduler(4, false)
	results := scheduler.Run(nil, func(task models.ScrapeTask) models.TaskResult {
		t.Error("空任务列表不应执行任何任务")
		return models.TaskResult{}
	})
	if len(results) != 0 {
		t.Errorf("结果数 = %v, want 0", len(results))
	}
}
