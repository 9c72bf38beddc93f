package storage

import (
	"fmt"
	"net/url"
	"strings"
)

// CanonicalHotelKey 把酒店URL规范化为稳定的身份键
// 只保留origin+path,去掉尾部斜杠和.html/.tr后缀,统一小写,
// 同一酒店带不同查询参数的链接得到同一个键
func CanonicalHotelKey(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("解析酒店URL失败: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("酒店URL缺少协议或主机名: %s", rawURL)
	}

	key := parsed.Scheme + "://" + parsed.Host + parsed.Path
	key = strings.TrimSuffix(key, "/")
	key = strings.TrimSuffix(key, ".html")
	key = strings.TrimSuffix(key, ".tr")
	return strings.ToLower(key), nil
}
