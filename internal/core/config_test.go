package core

import (
	"testing"

	"github.com/RecoveryAshes/roomcrawl/internal/models"
)

func mergedConfig(headlessSet, headless bool) *Config {
	config := &Config{
		Scrape: models.ScrapeConfig{
			Browser: models.BrowserOptions{Headless: false},
		},
	}
	config.MergeCLIFlags(0, -1, 0, 0, "", false, headlessSet, headless, "", 0, "", "")
	return config
}

func TestMergeCLIFlags_Headless(t *testing.T) {
	tests := []struct {
		name        string
		headlessSet bool
		headless    bool
		want        bool
	}{
		{"未传参数时保留配置文件的false", false, true, false},
		{"显式传入true覆盖配置", true, true, true},
		{"显式传入false覆盖配置", true, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := mergedConfig(tt.headlessSet, tt.headless)
			if got := config.Scrape.Browser.Headless; got != tt.want {
				t.Errorf("Headless = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMergeCLIFlags_ZeroValuesKeepConfig(t *testing.T) {
	config := &Config{
		Scrape: models.ScrapeConfig{
			TotalShards: 3,
			ShardIndex:  2,
			MaxWorkers:  4,
			TimeoutMs:   60000,
		},
	}
	// 全部传哨兵零值,配置文件的值不应被触碰
	config.MergeCLIFlags(0, -1, 0, 0, "", false, false, true, "", 0, "", "")

	if config.Scrape.TotalShards != 3 || config.Scrape.ShardIndex != 2 {
		t.Errorf("分片配置被哨兵值覆盖: %d/%d", config.Scrape.TotalShards, config.Scrape.ShardIndex)
	}
	if config.Scrape.MaxWorkers != 4 || config.Scrape.TimeoutMs != 60000 {
		t.Errorf("并发配置被哨兵值覆盖: %d/%d", config.Scrape.MaxWorkers, config.Scrape.TimeoutMs)
	}
}

func TestMergeCLIFlags_ExplicitValuesWin(t *testing.T) {
	config := &Config{
		Scrape: models.ScrapeConfig{TotalShards: 1, ShardIndex: 0},
	}
	config.MergeCLIFlags(3, 1, 2, 90000, "agent", true, true, false, "per-batch", 5, "postgres://x", "out")

	if config.Scrape.TotalShards != 3 || config.Scrape.ShardIndex != 1 {
		t.Errorf("分片参数未生效: %d/%d", config.Scrape.TotalShards, config.Scrape.ShardIndex)
	}
	if !config.Scrape.Browser.DisableImages || config.Scrape.Browser.Headless {
		t.Errorf("浏览器参数未生效: %+v", config.Scrape.Browser)
	}
	if config.Scrape.BrowserPolicy != models.PolicyPerBatch || config.Scrape.BrowserBatchSize != 5 {
		t.Errorf("浏览器策略未生效: %s/%d", config.Scrape.BrowserPolicy, config.Scrape.BrowserBatchSize)
	}
	if config.Storage.DSN != "postgres://x" || config.Output.SummaryDir != "out" {
		t.Errorf("存储/输出参数未生效: %s/%s", config.Storage.DSN, config.Output.SummaryDir)
	}
}
