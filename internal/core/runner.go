package core

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/RecoveryAshes/roomcrawl/internal/links"
	"github.com/RecoveryAshes/roomcrawl/internal/models"
	"github.com/RecoveryAshes/roomcrawl/internal/scraper"
	"github.com/RecoveryAshes/roomcrawl/internal/storage"
	"github.com/RecoveryAshes/roomcrawl/internal/utils"
)

// PageOpener 按任务派发浏览器页面
// 生产实现是scraper.SessionManager,测试中用假实现替换
type PageOpener interface {
	OpenPage(task models.ScrapeTask) (scraper.Page, func(), error)
}

// Runner 分片抓取流水线
// 串起链接加载、日期重写、分片、调度、提取、落库和汇总
type Runner struct {
	config   *Config
	store    storage.Store
	opener   PageOpener
	monitor  *scraper.ResourceMonitor
	reporter *utils.Reporter
	ctx      context.Context
	stayDate string // 本次运行的入住日,任务URL缺失checkin参数时的回退值
}

// NewRunner 创建流水线
// 存储句柄由启动入口构建后注入,worker不自行连接数据库
func NewRunner(config *Config, store storage.Store, opener PageOpener) *Runner {
	monitorConfig := scraper.ResourceMonitorConfig{
		SafetyReserveMemory: config.Scrape.SafetyReserveMemory * 1024 * 1024,
		SafetyThreshold:     config.Scrape.SafetyThreshold * 1024 * 1024,
		CPULoadThreshold:    config.Scrape.CPULoadThreshold,
		MaxSessionsLimit:    config.Scrape.MaxSessionsLimit,
	}
	return &Runner{
		config:   config,
		store:    store,
		opener:   opener,
		monitor:  scraper.NewResourceMonitor(monitorConfig),
		reporter: utils.NewReporter(config.Output.SummaryDir),
		ctx:      context.Background(),
	}
}

// Run 执行一次完整的分片抓取
func (r *Runner) Run(ctx context.Context, linksFile string) (*models.RunSummary, error) {
	startTime := time.Now()
	r.ctx = ctx
	scrapeConfig := &r.config.Scrape

	if err := scrapeConfig.Validate(); err != nil {
		return nil, fmt.Errorf("抓取配置无效: %w", err)
	}

	allLinks, err := links.LoadLinks(linksFile)
	if err != nil {
		return nil, err
	}

	checkin, checkout := links.StayWindow(time.Now(), scrapeConfig.CutoffHour)
	stayDate := links.FormatDate(checkin)
	r.stayDate = stayDate
	utils.Infof("📅 入住日期: %s, 退房日期: %s", stayDate, links.FormatDate(checkout))

	dated := links.RewriteDates(allLinks, checkin, checkout)
	if len(dated) == 0 {
		return nil, fmt.Errorf("日期重写后没有剩余链接")
	}

	shard, err := links.Partition(dated, scrapeConfig.TotalShards, scrapeConfig.ShardIndex)
	if err != nil {
		return nil, err
	}

	tasks := make([]models.ScrapeTask, 0, shard.Size())
	for i, link := range shard.Links {
		tasks = append(tasks, models.NewScrapeTask(link, shard.GlobalIndex(i), len(dated), scrapeConfig))
	}

	r.monitor.StartMonitoring(time.Second)
	defer r.monitor.StopMonitoring()

	workers := r.resolveWorkers()
	scheduler := NewScheduler(workers, true)
	results := scheduler.Run(tasks, r.processTask)

	summary := Aggregate(scrapeConfig, stayDate, results, startTime)
	PrintSummary(summary)

	if err := r.reporter.WriteSummary(summary); err != nil {
		utils.Errorf("写入运行汇总失败: %v", err)
	}
	return summary, nil
}

// resolveWorkers 决定worker数
// 显式配置优先,否则取CPU核数-1与资源监控上限的较小值,至少1个
func (r *Runner) resolveWorkers() int {
	if r.config.Scrape.MaxWorkers > 0 {
		return r.config.Scrape.MaxWorkers
	}
	workers := runtime.NumCPU() - 1
	if sessionCap := r.monitor.CalculateMaxSessions(); sessionCap < workers {
		workers = sessionCap
	}
	if workers < 1 {
		workers = 1
	}
	utils.Infof("自动计算worker数: %d", workers)
	return workers
}

// processTask 执行单个酒店页面的抓取任务
func (r *Runner) processTask(task models.ScrapeTask) models.TaskResult {
	start := time.Now()
	result := models.TaskResult{
		GlobalIndex: task.GlobalIndex,
		URL:         task.URL,
	}
	finish := func() models.TaskResult {
		result.DurationMs = time.Since(start).Milliseconds()
		return result
	}

	hotelKey, err := storage.CanonicalHotelKey(task.URL)
	if err != nil {
		result.Status = models.StatusFailed
		result.Error = err.Error()
		return finish()
	}
	// 日期重写保证了正常任务URL带checkin参数,回退值与本次运行保持一致
	stayDate := links.CheckinFromURL(task.URL)
	if stayDate == "" {
		stayDate = r.stayDate
	}

	if ok, reason := r.monitor.CheckResourceAvailability(); !ok {
		utils.Warnf("资源紧张仍继续执行 [%d/%d]: %s", task.GlobalIndex, task.TotalCount, reason)
	}

	page, release, err := r.opener.OpenPage(task)
	if err != nil {
		result.Status = models.StatusFailed
		result.Error = fmt.Sprintf("打开浏览器页面失败: %v", err)
		r.persistFetchFailure(hotelKey, task.URL, stayDate)
		return finish()
	}
	defer release()

	if err := page.Navigate(task.URL); err != nil {
		result.Status = models.StatusFailed
		result.Error = fmt.Sprintf("导航失败: %v", err)
		r.persistFetchFailure(hotelKey, task.URL, stayDate)
		return finish()
	}

	result.HotelName = scraper.ExtractHotelName(page)

	status, rooms, err := scraper.ExtractRooms(page)
	switch status {
	case scraper.ExtractFound:
		result.FoundRoomCount = len(rooms)
		record := models.NewAvailabilityRecord(hotelKey, result.HotelName, task.URL, stayDate, r.config.Scrape.Currency, rooms)
		saved, saveErr := r.store.SaveAvailability(r.ctx, record)
		if saveErr != nil {
			// 持久化失败降级为FAILED,不影响其他任务
			result.Status = models.StatusFailed
			result.Error = fmt.Sprintf("保存抓取结果失败: %v", saveErr)
			return finish()
		}
		result.SavedRoomCount = saved
		result.Status = models.StatusSuccess
		utils.Infof("✅ [%d/%d] %s: 提取%d个房型, 保存%d个",
			task.GlobalIndex, task.TotalCount, result.HotelName, result.FoundRoomCount, saved)

	case scraper.ExtractNoAvailability:
		result.Status = models.StatusNoAvailability
		record := models.NewAvailabilityRecord(hotelKey, result.HotelName, task.URL, stayDate, r.config.Scrape.Currency, nil)
		if _, saveErr := r.store.SaveAvailability(r.ctx, record); saveErr != nil {
			result.Status = models.StatusFailed
			result.Error = fmt.Sprintf("保存无房记录失败: %v", saveErr)
			return finish()
		}
		utils.Infof("🈳 [%d/%d] %s: 确认无可用房间", task.GlobalIndex, task.TotalCount, result.HotelName)

	case scraper.ExtractTableNotFound:
		result.Status = models.StatusTableNotFound
		utils.Warnf("⚠️  [%d/%d] 未找到房间表,页面结构可能已变更: %s", task.GlobalIndex, task.TotalCount, task.URL)
		r.persistFetchFailure(hotelKey, task.URL, stayDate)

	default:
		result.Status = models.StatusFailed
		result.Error = fmt.Sprintf("页面提取失败: %v", err)
		r.persistFetchFailure(hotelKey, task.URL, stayDate)
	}

	return finish()
}

// persistFetchFailure 落一条抓取失败标记,表示当天抓过但没拿到数据
// 标记本身写失败只记日志,任务状态不再变化
func (r *Runner) persistFetchFailure(hotelKey, sourceURL, stayDate string) {
	record := models.NewFetchFailedRecord(hotelKey, sourceURL, stayDate, r.config.Scrape.Currency)
	if _, err := r.store.SaveAvailability(r.ctx, record); err != nil {
		utils.Warnf("写入抓取失败标记失败 [%s]: %v", hotelKey, err)
	}
}
