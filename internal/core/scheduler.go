package core

import (
	"fmt"
	"sync"
	"time"

	"github.com/RecoveryAshes/roomcrawl/internal/models"
	"github.com/RecoveryAshes/roomcrawl/internal/utils"
	"github.com/schollz/progressbar/v3"
)

// TaskFunc 执行单个抓取任务的函数
type TaskFunc func(task models.ScrapeTask) models.TaskResult

// Scheduler 固定worker数的任务调度器
// 每个任务派发给一个worker独占执行,所有任务结束后统一返回结果,
// 单个任务失败不影响其他任务,也不做自动重试
type Scheduler struct {
	workers      int
	showProgress bool
}

// NewScheduler 创建调度器
func NewScheduler(workers int, showProgress bool) *Scheduler {
	if workers < 1 {
		workers = 1
	}
	return &Scheduler{workers: workers, showProgress: showProgress}
}

// Run 派发全部任务并等待完成
// 返回的结果数与任务数严格相等,顺序不保证,由聚合器排序
func (s *Scheduler) Run(tasks []models.ScrapeTask, run TaskFunc) []models.TaskResult {
	if len(tasks) == 0 {
		return nil
	}

	utils.Infof("🚀 开始派发 %d 个任务 (worker数: %d)", len(tasks), s.workers)

	taskCh := make(chan models.ScrapeTask)
	results := make([]models.TaskResult, 0, len(tasks))
	var mu sync.Mutex

	var bar *progressbar.ProgressBar
	if s.showProgress {
		bar = utils.NewProgressBar(len(tasks), "抓取进度")
	}

	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for task := range taskCh {
				result := s.runSafely(workerID, task, run)

				mu.Lock()
				results = append(results, result)
				mu.Unlock()

				if s.showProgress {
					_ = bar.Add(1)
				}
			}
		}(i)
	}

	for _, task := range tasks {
		taskCh <- task
	}
	close(taskCh)
	wg.Wait()

	utils.Infof("✅ 全部任务执行完毕 (%d/%d)", len(results), len(tasks))
	return results
}

// runSafely 执行单个任务,panic转换为FAILED结果
// 浏览器驱动偶发panic不能拖垮整个worker池
func (s *Scheduler) runSafely(workerID int, task models.ScrapeTask, run TaskFunc) (result models.TaskResult) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			utils.Errorf("捕获panic: worker=%d, URL=%s, 错误=%v", workerID, task.URL, r)
			result = models.TaskResult{
				GlobalIndex: task.GlobalIndex,
				URL:         task.URL,
				Status:      models.StatusFailed,
				Error:       fmt.Sprintf("任务执行panic: %v", r),
				DurationMs:  time.Since(start).Milliseconds(),
			}
		}
	}()

	utils.Debugf("worker %d 开始任务 [%d/%d]: %s", workerID, task.GlobalIndex, task.TotalCount, task.URL)
	result = run(task)
	if result.DurationMs == 0 {
		result.DurationMs = time.Since(start).Milliseconds()
	}
	return result
}
