package scraper

import (
	"fmt"
	"sync"
	"time"

	"github.com/RecoveryAshes/roomcrawl/internal/models"
	"github.com/RecoveryAshes/roomcrawl/internal/utils"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// SessionManager 浏览器会话管理器
// 按配置的生命周期策略派发页面: per-task为每个任务独立浏览器,
// per-batch为每K个任务复用同一浏览器实例
type SessionManager struct {
	policy    models.BrowserPolicy
	batchSize int
	opts      models.BrowserOptions

	// 浏览器启动和开页入口,测试中替换为假实现
	launch  func(opts models.BrowserOptions) (*browserSession, error)
	newPage func(session *browserSession, timeout time.Duration) (Page, error)

	mu     sync.Mutex
	shared *browserSession
}

// browserSession 单个浏览器实例及其使用计数
type browserSession struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	served   int  // 已派发的任务数
	active   int  // 当前打开的页面数
	retired  bool // 已到期,最后一个页面关闭后销毁
	closed   bool
}

// NewSessionManager 创建会话管理器
func NewSessionManager(config *models.ScrapeConfig) *SessionManager {
	return &SessionManager{
		policy:    config.BrowserPolicy,
		batchSize: config.BrowserBatchSize,
		opts:      config.Browser,
		launch:    launchBrowser,
		newPage: func(session *browserSession, timeout time.Duration) (Page, error) {
			return newSessionPage(session.browser, timeout)
		},
	}
}

// OpenPage 为一个任务打开页面,超时取任务快照里的值
// 返回的release函数必须在任务结束时调用,负责按策略关闭页面和浏览器
func (m *SessionManager) OpenPage(task models.ScrapeTask) (Page, func(), error) {
	if m.policy == models.PolicyPerBatch {
		return m.openBatchPage(task)
	}
	return m.openDedicatedPage(task)
}

// openDedicatedPage per-task策略: 按任务快照的选项启动独立浏览器,任务结束即销毁
func (m *SessionManager) openDedicatedPage(task models.ScrapeTask) (Page, func(), error) {
	session, err := m.launch(task.Browser)
	if err != nil {
		return nil, nil, err
	}

	page, err := m.newPage(session, task.Timeout())
	if err != nil {
		session.close()
		return nil, nil, err
	}

	release := func() {
		page.Close()
		session.close()
	}
	return page, release, nil
}

// openBatchPage per-batch策略: 共享浏览器服务K个任务后轮换
// 共享实例用管理器的启动选项,同一实例上的任务无法各带各的浏览器配置
func (m *SessionManager) openBatchPage(task models.ScrapeTask) (Page, func(), error) {
	m.mu.Lock()
	if m.shared == nil || m.shared.retired || m.shared.served >= m.batchSize {
		if m.shared != nil && !m.shared.retired {
			// 到期的实例可能还有其他worker的页面在用,标记后延迟销毁
			m.shared.retired = true
			if m.shared.active == 0 {
				m.shared.close()
			}
			utils.Debugf("浏览器实例已服务 %d 个任务,轮换新实例", m.shared.served)
		}
		session, err := m.launch(m.opts)
		if err != nil {
			m.mu.Unlock()
			return nil, nil, err
		}
		m.shared = session
	}
	session := m.shared
	session.served++
	session.active++
	m.mu.Unlock()

	page, err := m.newPage(session, task.Timeout())
	if err != nil {
		m.releaseFrom(session)
		return nil, nil, err
	}

	release := func() {
		page.Close()
		m.releaseFrom(session)
	}
	return page, release, nil
}

// releaseFrom 归还页面计数,到期且无活跃页面的实例就地销毁
func (m *SessionManager) releaseFrom(session *browserSession) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session.active--
	if session.retired && session.active == 0 {
		session.close()
	}
}

// Close 关闭残留的共享浏览器实例
func (m *SessionManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shared != nil && !m.shared.retired {
		m.shared.retired = true
		if m.shared.active == 0 {
			m.shared.close()
		}
	}
}

// launchBrowser 按选项启动浏览器并建立连接
func launchBrowser(opts models.BrowserOptions) (*browserSession, error) {
	l := launcher.New().
		Headless(opts.Headless).
		Set("disable-gpu").
		Set("no-sandbox").
		Set("disable-dev-shm-usage").
		Set("window-size", fmt.Sprintf("%d,%d", opts.WindowWidth, opts.WindowHeight))

	if opts.DisableImages {
		l = l.Set("blink-settings", "imagesEnabled=false")
	}
	if opts.UserAgent != "" {
		l = l.Set("user-agent", opts.UserAgent)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("启动浏览器失败: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("连接浏览器失败: %w", err)
	}

	utils.Debugf("浏览器已启动: %s", controlURL)
	return &browserSession{browser: browser, launcher: l}, nil
}

// close 关闭浏览器进程
func (s *browserSession) close() {
	if s.closed {
		return
	}
	s.closed = true
	if s.browser != nil {
		_ = s.browser.Close()
	}
	if s.launcher != nil {
		s.launcher.Kill()
	}
	utils.Debugf("浏览器已关闭")
}

// sessionPage Page接口的rod实现
type sessionPage struct {
	page     *rod.Page
	implicit time.Duration // 元素查找的隐式等待时间
	timeout  time.Duration // 页面导航超时
}

// newSessionPage 在浏览器中打开新标签页
// 隐式元素等待取导航超时的1/6,给动态渲染的表格留出现时间
func newSessionPage(browser *rod.Browser, timeout time.Duration) (*sessionPage, error) {
	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("创建页面失败: %w", err)
	}
	return &sessionPage{
		page:     page,
		implicit: timeout / 6,
		timeout:  timeout,
	}, nil
}

// Navigate 导航并等待页面加载完成
func (p *sessionPage) Navigate(url string) error {
	page := p.page.Timeout(p.timeout)
	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("%w: %v", ErrNavigationFailed, err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("%w: 等待页面加载: %v", ErrNavigationFailed, err)
	}
	return nil
}

// Element 在隐式等待时间内查找元素
func (p *sessionPage) Element(selector string) (Element, error) {
	el, err := p.page.Timeout(p.implicit).Element(selector)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrElementNotFound, selector)
	}
	return &sessionElement{el: el.CancelTimeout()}, nil
}

// Elements 查找所有匹配元素,不等待
func (p *sessionPage) Elements(selector string) ([]Element, error) {
	els, err := p.page.Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("查找元素失败 [%s]: %w", selector, err)
	}
	result := make([]Element, 0, len(els))
	for _, el := range els {
		result = append(result, &sessionElement{el: el})
	}
	return result, nil
}

// Title 页面标题
func (p *sessionPage) Title() (string, error) {
	info, err := p.page.Info()
	if err != nil {
		return "", fmt.Errorf("获取页面信息失败: %w", err)
	}
	return info.Title, nil
}

// Close 关闭标签页
func (p *sessionPage) Close() error {
	return p.page.Close()
}

// sessionElement Element接口的rod实现
type sessionElement struct {
	el *rod.Element
}

func (e *sessionElement) Text() (string, error) {
	text, err := e.el.Text()
	if err != nil {
		return "", fmt.Errorf("读取元素文本失败: %w", err)
	}
	return text, nil
}

func (e *sessionElement) Attribute(name string) (string, error) {
	value, err := e.el.Attribute(name)
	if err != nil {
		return "", fmt.Errorf("读取元素属性失败 [%s]: %w", name, err)
	}
	if value == nil {
		return "", nil
	}
	return *value, nil
}

func (e *sessionElement) Element(selector string) (Element, error) {
	el, err := e.el.Element(selector)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrElementNotFound, selector)
	}
	return &sessionElement{el: el}, nil
}

func (e *sessionElement) Elements(selector string) ([]Element, error) {
	els, err := e.el.Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("查找子元素失败 [%s]: %w", selector, err)
	}
	result := make([]Element, 0, len(els))
	for _, el := range els {
		result = append(result, &sessionElement{el: el})
	}
	return result, nil
}
