package core

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/RecoveryAshes/roomcrawl/internal/models"
	"github.com/RecoveryAshes/roomcrawl/internal/scraper"
)

// fakeStore 记录收到的落库请求
type fakeStore struct {
	records []*models.AvailabilityRecord
	saveErr error
}

func (s *fakeStore) SaveAvailability(ctx context.Context, record *models.AvailabilityRecord) (int, error) {
	if s.saveErr != nil {
		return 0, s.saveErr
	}
	s.records = append(s.records, record)
	return len(record.Rooms), nil
}

func (s *fakeStore) DeduplicateRoomLines(ctx context.Context, confirm bool) (int64, error) {
	return 0, nil
}

func (s *fakeStore) Close() error { return nil }

// stubElement 极简元素实现
type stubElement struct {
	text     string
	attrs    map[string]string
	children map[string][]*stubElement
}

func (e *stubElement) Text() (string, error)                 { return e.text, nil }
func (e *stubElement) Attribute(name string) (string, error) { return e.attrs[name], nil }

func (e *stubElement) Element(selector string) (scraper.Element, error) {
	if list := e.children[selector]; len(list) > 0 {
		return list[0], nil
	}
	return nil, scraper.ErrElementNotFound
}

func (e *stubElement) Elements(selector string) ([]scraper.Element, error) {
	list := e.children[selector]
	result := make([]scraper.Element, 0, len(list))
	for _, el := range list {
		result = append(result, el)
	}
	return result, nil
}

// stubPage 极简页面实现
type stubPage struct {
	elements map[string][]*stubElement
	navErr   error
	title    string
}

func (p *stubPage) Navigate(url string) error { return p.navErr }
func (p *stubPage) Title() (string, error)    { return p.title, nil }
func (p *stubPage) Close() error              { return nil }

func (p *stubPage) Element(selector string) (scraper.Element, error) {
	if list := p.elements[selector]; len(list) > 0 {
		return list[0], nil
	}
	return nil, scraper.ErrElementNotFound
}

func (p *stubPage) Elements(selector string) ([]scraper.Element, error) {
	list := p.elements[selector]
	result := make([]scraper.Element, 0, len(list))
	for _, el := range list {
		result = append(result, el)
	}
	return result, nil
}

// stubOpener 返回固定页面的PageOpener
type stubOpener struct {
	page     *stubPage
	openErr  error
	released int
}

func (o *stubOpener) OpenPage(task models.ScrapeTask) (scraper.Page, func(), error) {
	if o.openErr != nil {
		return nil, nil, o.openErr
	}
	return o.page, func() { o.released++ }, nil
}

func testConfig() *Config {
	return &Config{
		Scrape: models.ScrapeConfig{
			TotalShards:   1,
			ShardIndex:    0,
			MaxWorkers:    1,
			TimeoutMs:     5000,
			CutoffHour:    21,
			Currency:      "TRY",
			BrowserPolicy: models.PolicyPerTask,
		},
		Output: OutputConfig{SummaryDir: os.TempDir()},
	}
}

func roomsPage() *stubPage {
	options := []*stubElement{
		{attrs: map[string]string{"value": "1"}},
		{attrs: map[string]string{"value": "2"}},
	}
	sel := &stubElement{
		attrs:    map[string]string{"id": "hprt_nos_select_101_1"},
		children: map[string][]*stubElement{"option": options},
	}
	row := &stubElement{
		attrs: map[string]string{"data-block-id": "101_55"},
		children: map[string][]*stubElement{
			".hprt-roomtype-icon-link":          {{text: "Standart Oda"}},
			`select[id^="hprt_nos_select_"]`:    {sel},
			"select":                            {sel},
			".prco-valign-middle-helper":        {{text: "950,00 TL"}},
		},
	}
	table := &stubElement{
		attrs:    map[string]string{"class": "hprt-table"},
		children: map[string][]*stubElement{"tbody > tr": {row}},
	}
	return &stubPage{elements: map[string][]*stubElement{
		"#hprt-table":         {table},
		"h2.pp-header__title": {{text: "Grand Otel"}},
	}}
}

const taskURL = "https://www.booking.com/hotel/tr/grand.html?checkin=2026-09-01&checkout=2026-09-02"

func newTask() models.ScrapeTask {
	return models.ScrapeTask{URL: taskURL, GlobalIndex: 1, TotalCount: 1, TimeoutMs: 5000}
}

func TestProcessTask_Success(t *testing.T) {
	store := &fakeStore{}
	opener := &stubOpener{page: roomsPage()}
	runner := NewRunner(testConfig(), store, opener)

	result := runner.processTask(newTask())

	if result.Status != models.StatusSuccess {
		t.Fatalf("Status = %v, want SUCCESS (error: %s)", result.Status, result.Error)
	}
	if result.HotelName != "Grand Otel" {
		t.Errorf("HotelName = %q", result.HotelName)
	}
	if result.FoundRoomCount != 1 || result.SavedRoomCount != 1 {
		t.Errorf("房型计数 = %d/%d, want 1/1", result.FoundRoomCount, result.SavedRoomCount)
	}
	if opener.released != 1 {
		t.Errorf("页面应恰好释放一次, got %d", opener.released)
	}

	if len(store.records) != 1 {
		t.Fatalf("落库记录数 = %v, want 1", len(store.records))
	}
	record := store.records[0]
	if record.HotelKey != "https://www.booking.com/hotel/tr/grand" {
		t.Errorf("HotelKey = %q, 应为规范化URL", record.HotelKey)
	}
	if record.StayDate != "2026-09-01" {
		t.Errorf("StayDate = %q, 应来自URL的checkin参数", record.StayDate)
	}
	if !record.FetchSucceeded {
		t.Error("成功抓取的记录FetchSucceeded应为true")
	}
	if record.TotalRoomsLeft != 2 || record.MinPrice == nil || *record.MinPrice != 950.0 {
		t.Errorf("汇总字段错误: left=%d price=%v", record.TotalRoomsLeft, record.MinPrice)
	}
}

func TestProcessTask_MissingCheckinFallsBackToRunDate(t *testing.T) {
	store := &fakeStore{}
	runner := NewRunner(testConfig(), store, &stubOpener{page: roomsPage()})
	runner.stayDate = "2026-09-05"

	// URL没有checkin参数时入住日取本次运行的计算值,不猜当天日期
	task := models.ScrapeTask{URL: "https://www.booking.com/hotel/tr/grand.html", GlobalIndex: 1, TotalCount: 1, TimeoutMs: 5000}
	result := runner.processTask(task)

	if result.Status != models.StatusSuccess {
		t.Fatalf("Status = %v, want SUCCESS (error: %s)", result.Status, result.Error)
	}
	if len(store.records) != 1 {
		t.Fatalf("落库记录数 = %v, want 1", len(store.records))
	}
	if store.records[0].StayDate != "2026-09-05" {
		t.Errorf("StayDate = %q, 应回退到运行入住日", store.records[0].StayDate)
	}
}

func TestProcessTask_NoAvailability(t *testing.T) {
	store := &fakeStore{}
	page := &stubPage{elements: map[string][]*stubElement{
		"#no_availability_msg": {{text: "Müsait oda yok"}},
	}}
	runner := NewRunner(testConfig(), store, &stubOpener{page: page})

	result := runner.processTask(newTask())

	if result.Status != models.StatusNoAvailability {
		t.Fatalf("Status = %v, want NO_AVAILABILITY", result.Status)
	}
	if len(store.records) != 1 {
		t.Fatalf("确认无房也应落库, 记录数 = %v", len(store.records))
	}
	record := store.records[0]
	if !record.FetchSucceeded || record.TotalRoomsLeft != 0 {
		t.Errorf("无房记录: fetchSucceeded=%v left=%d, want true/0", record.FetchSucceeded, record.TotalRoomsLeft)
	}
}

func TestProcessTask_TableNotFoundPersistsMarker(t *testing.T) {
	store := &fakeStore{}
	page := &stubPage{elements: map[string][]*stubElement{}}
	runner := NewRunner(testConfig(), store, &stubOpener{page: page})

	result := runner.processTask(newTask())

	if result.Status != models.StatusTableNotFound {
		t.Fatalf("Status = %v, want TABLE_NOT_FOUND", result.Status)
	}
	if len(store.records) != 1 {
		t.Fatalf("应写入抓取失败标记, 记录数 = %v", len(store.records))
	}
	if store.records[0].FetchSucceeded {
		t.Error("标记记录的FetchSucceeded应为false")
	}
}

func TestProcessTask_NavigationFailure(t *testing.T) {
	store := &fakeStore{}
	page := &stubPage{navErr: errors.New("连接超时")}
	runner := NewRunner(testConfig(), store, &stubOpener{page: page})

	result := runner.processTask(newTask())

	if result.Status != models.StatusFailed {
		t.Fatalf("Status = %v, want FAILED", result.Status)
	}
	if result.Error == "" {
		t.Error("失败结果应带错误信息")
	}
	if len(store.records) != 1 || store.records[0].FetchSucceeded {
		t.Error("导航失败应写入FetchSucceeded=false标记")
	}
}

func TestProcessTask_PersistenceErrorDowngradesToFailed(t *testing.T) {
	store := &fakeStore{saveErr: errors.New("连接池耗尽")}
	runner := NewRunner(testConfig(), store, &stubOpener{page: roomsPage()})

	result := runner.processTask(newTask())

	if result.Status != models.StatusFailed {
		t.Fatalf("Status = %v, want FAILED (持久化失败降级)", result.Status)
	}
	if result.Error == "" {
		t.Error("降级结果应带错误信息")
	}
}

func TestRunner_Run_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	linksFile := filepath.Join(dir, "links.txt")
	content := "https://www.booking.com/hotel/tr/a.html\nhttps://www.booking.com/hotel/tr/b.html\nhttps://www.booking.com/hotel/tr/c.html\n"
	if err := os.WriteFile(linksFile, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	config := testConfig()
	config.Output.SummaryDir = dir
	store := &fakeStore{}
	runner := NewRunner(config, store, &stubOpener{page: roomsPage()})

	summary, err := runner.Run(context.Background(), linksFile)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if summary.TotalTasks != 3 || summary.SuccessCount != 3 {
		t.Errorf("汇总 = %d个任务/%d成功, want 3/3", summary.TotalTasks, summary.SuccessCount)
	}
	if len(store.records) != 3 {
		t.Errorf("落库记录数 = %v, want 3", len(store.records))
	}

	// 日期参数应被重写到本次运行的入住窗口
	for _, record := range store.records {
		if record.StayDate != summary.StayDate {
			t.Errorf("记录入住日 %s 与运行入住日 %s 不一致", record.StayDate, summary.StayDate)
		}
	}

	csvPath := filepath.Join(dir, "summary_"+summary.StayDate+".csv")
	if _, err := os.Stat(csvPath); err != nil {
		t.Errorf("应生成CSV汇总文件: %v", err)
	}
}

func TestRunner_Run_InvalidShardConfigFatal(t *testing.T) {
	config := testConfig()
	config.Scrape.ShardIndex = 5
	runner := NewRunner(config, &fakeStore{}, &stubOpener{page: roomsPage()})

	if _, err := runner.Run(context.Background(), "does-not-matter.txt"); err == nil {
		t.Error("非法分片配置应在启动前返回错误")
	}
}
