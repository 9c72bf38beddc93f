package scraper

import "errors"

// 错误类型定义
var (
	ErrBrowserCrashed   = errors.New("浏览器崩溃")
	ErrElementNotFound  = errors.New("未找到页面元素")
	ErrNavigationFailed = errors.New("页面导航失败")
)

// Page 浏览器页面的抽象
// 提取引擎只依赖这个接口,便于用假实现做单元测试
type Page interface {
	// Navigate 导航到目标URL并等待页面加载完成
	Navigate(url string) error
	// Element 查找首个匹配选择器的元素,在隐式等待时间内未出现则返回ErrElementNotFound
	Element(selector string) (Element, error)
	// Elements 查找所有匹配选择器的元素,无匹配时返回空切片
	Elements(selector string) ([]Element, error)
	// Title 页面标题
	Title() (string, error)
	// Close 关闭页面
	Close() error
}

// Element 页面元素的抽象
type Element interface {
	// Text 元素可见文本
	Text() (string, error)
	// Attribute 属性值,属性不存在时返回("", nil)
	Attribute(name string) (string, error)
	// Element 在元素内查找首个匹配的子元素,未找到返回ErrElementNotFound
	Element(selector string) (Element, error)
	// Elements 在元素内查找所有匹配的子元素
	Elements(selector string) ([]Element, error)
}
