package main

import (
	"fmt"

	"github.com/RecoveryAshes/roomcrawl/internal/models"
)

// ValidateFlags 验证合并后的启动参数
// 分片参数错误是部署配置问题,必须在任何抓取开始前失败
func ValidateFlags(linksFile string, scrape *models.ScrapeConfig, dsn string) error {
	if linksFile == "" {
		return fmt.Errorf("必须指定链接文件 (--links-file)")
	}
	if dsn == "" {
		return fmt.Errorf("必须配置数据库连接串 (--dsn 或 DATABASE_DSN环境变量)")
	}
	if err := scrape.Validate(); err != nil {
		return fmt.Errorf("抓取参数无效: %w", err)
	}
	return nil
}
