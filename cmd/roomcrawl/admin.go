package main

import (
	"context"
	"fmt"
	"time"

	"github.com/RecoveryAshes/roomcrawl/internal/utils"
	"github.com/spf13/cobra"
)

var adminConfirm bool

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "数据库维护操作",
	Long:  "对存储执行显式的维护操作,与常规抓取流水线分离,危险操作需要--confirm",
}

var dedupRoomsCmd = &cobra.Command{
	Use:   "dedup-rooms",
	Short: "删除重复的房型明细行",
	Long: `扫描房型明细表,同一(酒店,房型名,入住日)存在多行时保留最小id删除其余。

不加--confirm时只统计重复行数,不做任何修改。删除不可逆。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := loadMergedConfig()
		if err != nil {
			return err
		}
		if config.Storage.DSN == "" {
			return fmt.Errorf("必须配置数据库连接串 (--dsn 或 DATABASE_DSN环境变量)")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		store, err := openStore(ctx, config)
		if err != nil {
			return err
		}
		defer store.Close()

		if !adminConfirm {
			count, err := store.DeduplicateRoomLines(ctx, false)
			if err != nil {
				return err
			}
			utils.Infof("🔍 发现 %d 行重复房型明细 (加--confirm执行删除)", count)
			return nil
		}

		removed, err := store.DeduplicateRoomLines(ctx, true)
		if err != nil {
			return err
		}
		utils.Infof("✅ 已删除 %d 行重复房型明细", removed)
		return nil
	},
}

func init() {
	dedupRoomsCmd.Flags().BoolVar(&adminConfirm, "confirm", false, "确认执行不可逆的删除操作")
	adminCmd.AddCommand(dedupRoomsCmd)
}
