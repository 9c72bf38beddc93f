package links

import (
	"net/url"
	"time"

	"github.com/RecoveryAshes/roomcrawl/internal/utils"
)

const dateLayout = "2006-01-02"

// StayWindow 根据运行时刻计算入住/退房日期
// 本地小时≥cutoffHour时当天的搜索已无意义,入住日取明天;退房恒为入住次日
func StayWindow(now time.Time, cutoffHour int) (checkin, checkout time.Time) {
	checkin = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if now.Hour() >= cutoffHour {
		checkin = checkin.AddDate(0, 0, 1)
	}
	checkout = checkin.AddDate(0, 0, 1)
	return checkin, checkout
}

// FormatDate 格式化为 YYYY-MM-DD
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// ParseDate 解析 YYYY-MM-DD 日期
func ParseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}

// RewriteDates 重写每个链接的checkin/checkout查询参数
// 无法解析的链接记录警告后丢弃,其余链接保持输入顺序
func RewriteDates(rawLinks []string, checkin, checkout time.Time) []string {
	checkinStr := FormatDate(checkin)
	checkoutStr := FormatDate(checkout)

	rewritten := make([]string, 0, len(rawLinks))
	for _, link := range rawLinks {
		parsed, err := url.Parse(link)
		if err != nil {
			utils.Warnf("丢弃无法解析的链接: %s - %v", link, err)
			continue
		}

		query := parsed.Query()
		query.Set("checkin", checkinStr)
		query.Set("checkout", checkoutStr)
		parsed.RawQuery = query.Encode()

		rewritten = append(rewritten, parsed.String())
	}
	return rewritten
}

// CheckinFromURL 从任务URL恢复入住日期
// 参数缺失或格式错误时返回空串,由调用方决定回退值
func CheckinFromURL(taskURL string) string {
	parsed, err := url.Parse(taskURL)
	if err == nil {
		checkin := parsed.Query().Get("checkin")
		if _, parseErr := ParseDate(checkin); parseErr == nil {
			return checkin
		}
	}
	return ""
}
