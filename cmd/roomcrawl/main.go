package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/RecoveryAshes/roomcrawl/internal/core"
	"github.com/RecoveryAshes/roomcrawl/internal/scraper"
	"github.com/RecoveryAshes/roomcrawl/internal/storage"
	"github.com/RecoveryAshes/roomcrawl/internal/utils"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

// 命令行参数
var (
	// 全局参数
	configFile string
	verbose    bool
	logLevel   string

	// 抓取参数
	linksFile        string
	totalShards      int
	shardIndex       int
	maxWorkers       int
	timeoutMs        int
	userAgent        string
	disableImages    bool
	headless         bool
	browserPolicy    string
	browserBatchSize int
	summaryDir       string
	dsn              string
)

var rootCmd *cobra.Command

var rootCmdDef = &cobra.Command{
	Use:   "roomcrawl",
	Short: "酒店房间可用性分布式抓取工具",
	Long: `RoomCrawl - 酒店房间可用性分布式抓取工具

从链接文件读取酒店详情页URL,重写入住/退房日期后按分片参数切分,
由本实例负责其中一片,用浏览器逐页提取房型、剩余数和价格并落库:
  • 多实例分片协作,互不重叠
  • 固定worker池并发抓取,单任务失败互不影响
  • 可配置浏览器生命周期策略 (per-task | per-batch)
  • 幂等落库,同一(酒店,入住日)重复运行覆盖更新

分片部署示例:
  # 三台机器分摊同一份链接文件
  TOTAL_SHARDS=3 SHARD_INDEX=0 roomcrawl -f links.txt
  TOTAL_SHARDS=3 SHARD_INDEX=1 roomcrawl -f links.txt
  TOTAL_SHARDS=3 SHARD_INDEX=2 roomcrawl -f links.txt

版本: ` + Version + `
构建时间: ` + BuildTime,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config, err := core.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("加载配置失败: %w", err)
		}

		logConfig := utils.LogConfig{
			Level:      config.Logging.Level,
			LogDir:     config.Logging.LogDir,
			MaxSize:    config.Logging.Rotation.MaxSize,
			MaxBackups: config.Logging.Rotation.MaxBackups,
			MaxAge:     config.Logging.Rotation.MaxAge,
			Compress:   config.Logging.Rotation.Compress,
		}

		// 命令行参数覆盖配置文件
		if logLevel != "" {
			logConfig.Level = logLevel
		}
		if verbose {
			logConfig.Level = "debug"
		}

		if err := utils.InitLogger(logConfig); err != nil {
			return fmt.Errorf("初始化日志系统失败: %w", err)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if linksFile == "" {
			return cmd.Help()
		}

		config, err := loadMergedConfig()
		if err != nil {
			return err
		}

		if err := ValidateFlags(linksFile, &config.Scrape, config.Storage.DSN); err != nil {
			return err
		}

		// Ctrl+C优雅退出: 取消context让落库尽快收尾
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		go func() {
			sig := <-sigChan
			utils.Warnf("\n收到中断信号: %v, 正在优雅关闭...", sig)
			cancel()
		}()

		store, err := openStore(ctx, config)
		if err != nil {
			return err
		}
		defer store.Close()

		sessions := scraper.NewSessionManager(&config.Scrape)
		defer sessions.Close()

		runner := core.NewRunner(config, store, sessions)
		summary, err := runner.Run(ctx, linksFile)
		if err != nil {
			return fmt.Errorf("抓取运行失败: %w", err)
		}

		utils.Info("✨ 分片抓取任务完成!")
		if summary.FailedCount > 0 {
			return fmt.Errorf("%d 个任务失败,详见运行汇总", summary.FailedCount)
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "显示版本信息",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("RoomCrawl %s\n", Version)
		fmt.Printf("构建时间: %s\n", BuildTime)
	},
}

// loadMergedConfig 加载配置文件并合并命令行参数
func loadMergedConfig() (*core.Config, error) {
	config, err := core.LoadConfig(configFile)
	if err != nil {
		return nil, fmt.Errorf("加载配置失败: %w", err)
	}
	config.MergeCLIFlags(
		totalShards,
		shardIndex,
		maxWorkers,
		timeoutMs,
		userAgent,
		disableImages,
		rootCmd.Flags().Changed("headless"),
		headless,
		browserPolicy,
		browserBatchSize,
		dsn,
		summaryDir,
	)
	return config, nil
}

// openStore 用显式配置建立存储连接
func openStore(ctx context.Context, config *core.Config) (storage.Store, error) {
	dialCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	store, err := storage.Open(dialCtx, config.Storage)
	if err != nil {
		return nil, fmt.Errorf("初始化存储失败: %w", err)
	}
	return store, nil
}

func init() {
	rootCmd = rootCmdDef

	// 全局参数
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "配置文件路径")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "详细输出模式")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "日志级别 (trace|debug|info|warn|error)")
	rootCmd.PersistentFlags().StringVar(&dsn, "dsn", "", "数据库连接串 (也可用DATABASE_DSN环境变量)")

	// 抓取参数
	rootCmd.Flags().StringVarP(&linksFile, "links-file", "f", "", "酒店链接文件路径 (必需)")
	rootCmd.Flags().IntVar(&totalShards, "total-shards", 0, "协作实例总数 (也可用TOTAL_SHARDS环境变量)")
	rootCmd.Flags().IntVar(&shardIndex, "shard-index", -1, "本实例分片索引,0起始 (也可用SHARD_INDEX环境变量)")
	rootCmd.Flags().IntVar(&maxWorkers, "workers", 0, "并发worker数 (0表示按资源自动计算)")
	rootCmd.Flags().IntVar(&timeoutMs, "timeout", 0, "单任务页面超时(毫秒)")
	rootCmd.Flags().StringVar(&userAgent, "user-agent", "", "自定义User-Agent")
	rootCmd.Flags().BoolVar(&disableImages, "disable-images", false, "禁用图片加载")
	rootCmd.Flags().BoolVar(&headless, "headless", true, "无头浏览器模式")
	rootCmd.Flags().StringVar(&browserPolicy, "browser-policy", "", "浏览器生命周期策略 (per-task|per-batch)")
	rootCmd.Flags().IntVar(&browserBatchSize, "browser-batch", 0, "per-batch策略下单浏览器承载任务数")
	rootCmd.Flags().StringVarP(&summaryDir, "output", "o", "", "运行汇总输出目录")

	// 添加子命令
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(adminCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}
