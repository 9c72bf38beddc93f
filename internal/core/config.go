package core

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/RecoveryAshes/roomcrawl/internal/models"
	"github.com/RecoveryAshes/roomcrawl/internal/storage"
	"github.com/spf13/viper"
)

// Config 应用程序配置
type Config struct {
	Scrape  models.ScrapeConfig `mapstructure:"scrape"`
	Logging LoggingConfig       `mapstructure:"logging"`
	Storage storage.Config      `mapstructure:"storage"`
	Output  OutputConfig        `mapstructure:"output"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level    string         `mapstructure:"level"`
	LogDir   string         `mapstructure:"log_dir"`
	Rotation RotationConfig `mapstructure:"rotation"`
}

// RotationConfig 日志轮转配置
type RotationConfig struct {
	MaxSize    int  `mapstructure:"max_size"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAge     int  `mapstructure:"max_age"`
	Compress   bool `mapstructure:"compress"`
}

// OutputConfig 输出配置
type OutputConfig struct {
	SummaryDir string `mapstructure:"summary_dir"` // CSV运行汇总的输出目录
}

// LoadConfig 加载配置文件
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		v.AddConfigPath("./configs")
		v.AddConfigPath(".")

		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".roomcrawl"))
		}
	}

	setDefaults(v)

	// 分片参数和数据库DSN常由编排层通过环境变量注入
	v.SetEnvPrefix("ROOMCRAWL")
	_ = v.BindEnv("scrape.total_shards", "TOTAL_SHARDS")
	_ = v.BindEnv("scrape.shard_index", "SHARD_INDEX")
	_ = v.BindEnv("storage.dsn", "DATABASE_DSN")

	if err := v.ReadInConfig(); err != nil {
		// 配置文件不存在时使用默认值
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	return &config, nil
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	// 抓取配置默认值
	v.SetDefault("scrape.total_shards", 1)
	v.SetDefault("scrape.shard_index", 0)
	v.SetDefault("scrape.max_workers", 0) // 0表示按CPU和资源自动计算
	v.SetDefault("scrape.timeout_ms", 120000)
	v.SetDefault("scrape.cutoff_hour", 21)
	v.SetDefault("scrape.currency", "TRY")
	v.SetDefault("scrape.browser_policy", string(models.PolicyPerTask))
	v.SetDefault("scrape.browser_batch_size", 10)
	v.SetDefault("scrape.browser.headless", true)
	v.SetDefault("scrape.browser.disable_images", false)
	v.SetDefault("scrape.browser.user_agent", "")
	v.SetDefault("scrape.browser.window_width", 1920)
	v.SetDefault("scrape.browser.window_height", 1080)
	v.SetDefault("scrape.safety_reserve_memory", 1024) // MB
	v.SetDefault("scrape.safety_threshold", 500)       // MB
	v.SetDefault("scrape.cpu_load_threshold", 80)
	v.SetDefault("scrape.max_sessions_limit", 16)

	// 日志配置默认值
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.log_dir", "logs")
	v.SetDefault("logging.rotation.max_size", 10)
	v.SetDefault("logging.rotation.max_backups", 3)
	v.SetDefault("logging.rotation.max_age", 28)
	v.SetDefault("logging.rotation.compress", true)

	// 存储配置默认值
	v.SetDefault("storage.dsn", "")
	v.SetDefault("storage.max_open_conns", 10)
	v.SetDefault("storage.max_idle_conns", 5)
	v.SetDefault("storage.conn_max_lifetime", "30m")

	// 输出配置默认值
	v.SetDefault("output.summary_dir", "output")
}

// GetScrapeConfig 从配置中提取抓取配置
func (c *Config) GetScrapeConfig() models.ScrapeConfig {
	return c.Scrape
}

// MergeCLIFlags 合并命令行参数到配置,命令行参数优先于配置文件
func (c *Config) MergeCLIFlags(
	totalShards int,
	shardIndex int,
	maxWorkers int,
	timeoutMs int,
	userAgent string,
	disableImages bool,
	headlessSet bool,
	headless bool,
	browserPolicy string,
	browserBatchSize int,
	dsn string,
	summaryDir string,
) {
	if totalShards > 0 {
		c.Scrape.TotalShards = totalShards
	}
	if shardIndex >= 0 {
		c.Scrape.ShardIndex = shardIndex
	}
	if maxWorkers > 0 {
		c.Scrape.MaxWorkers = maxWorkers
	}
	if timeoutMs > 0 {
		c.Scrape.TimeoutMs = timeoutMs
	}
	if userAgent != "" {
		c.Scrape.Browser.UserAgent = userAgent
	}
	if disableImages {
		c.Scrape.Browser.DisableImages = true
	}
	// bool参数没有零值哨兵,只在命令行显式传入时覆盖配置文件
	if headlessSet {
		c.Scrape.Browser.Headless = headless
	}
	if browserPolicy != "" {
		c.Scrape.BrowserPolicy = models.BrowserPolicy(browserPolicy)
	}
	if browserBatchSize > 0 {
		c.Scrape.BrowserBatchSize = browserBatchSize
	}
	if dsn != "" {
		c.Storage.DSN = dsn
	}
	if summaryDir != "" {
		c.Output.SummaryDir = summaryDir
	}
}
