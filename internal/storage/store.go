package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/RecoveryAshes/roomcrawl/internal/models"
	"github.com/RecoveryAshes/roomcrawl/internal/utils"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// Store 持久化适配器
// worker通过这个接口落库,不关心具体数据库
type Store interface {
	// SaveAvailability 保存一次抓取结果,返回成功写入的房型数
	SaveAvailability(ctx context.Context, record *models.AvailabilityRecord) (int, error)
	// DeduplicateRoomLines 删除重复的房型明细行,保留每组最小id
	// confirm为false时只统计不删除
	DeduplicateRoomLines(ctx context.Context, confirm bool) (int64, error)
	// Close 关闭数据库连接
	Close() error
}

// Config 数据库连接配置
// 由启动入口显式构建并注入,worker内部不读环境变量
type Config struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// GormStore Store接口的PostgreSQL实现
type GormStore struct {
	db *gorm.DB
}

// Open 建立数据库连接,执行迁移并验证连通性
func Open(ctx context.Context, config Config) (*GormStore, error) {
	if config.DSN == "" {
		return nil, fmt.Errorf("数据库DSN不能为空")
	}

	db, err := gorm.Open(postgres.Open(config.DSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取底层连接池失败: %w", err)
	}
	sqlDB.SetMaxOpenConns(config.MaxOpenConns)
	sqlDB.SetMaxIdleConns(config.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(config.ConnMaxLifetime)

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("数据库连通性检查失败: %w", err)
	}

	if err := db.AutoMigrate(&Hotel{}, &Availability{}, &RoomAvailability{}); err != nil {
		return nil, fmt.Errorf("数据库迁移失败: %w", err)
	}

	utils.Infof("✅ 数据库连接就绪: %s", utils.RedactDSN(config.DSN))
	return &GormStore{db: db}, nil
}

// SaveAvailability 保存一次抓取结果
// 酒店行和汇总行整体落库,房型明细逐行写入,单行失败记录警告后继续
func (s *GormStore) SaveAvailability(ctx context.Context, record *models.AvailabilityRecord) (int, error) {
	db := s.db.WithContext(ctx)

	hotelID, err := s.upsertHotel(db, record)
	if err != nil {
		return 0, err
	}

	availability := Availability{
		HotelID:        hotelID,
		StayDate:       record.StayDate,
		ScrapeTime:     record.ScrapeTime,
		TotalRoomsLeft: record.TotalRoomsLeft,
		MinPrice:       record.MinPrice,
		Currency:       record.Currency,
		FetchSucceeded: record.FetchSucceeded,
	}
	err = db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "hotel_id"}, {Name: "stay_date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"scrape_time", "total_rooms_left", "min_price", "currency", "fetch_succeeded", "updated_at",
		}),
	}).Create(&availability).Error
	if err != nil {
		return 0, fmt.Errorf("保存可用性汇总失败: %w", err)
	}

	saved := 0
	for _, room := range record.Rooms {
		line := RoomAvailability{
			HotelID:      hotelID,
			RoomName:     room.RoomName,
			StayDate:     record.StayDate,
			RoomKey:      room.RoomID,
			RoomsLeft:    room.RoomsLeft,
			Price:        room.Price,
			Currency:     record.Currency,
			Unidentified: room.Unidentified,
			ScrapeTime:   record.ScrapeTime,
		}
		err := db.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "hotel_id"}, {Name: "room_name"}, {Name: "stay_date"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"room_key", "rooms_left", "price", "currency", "unidentified", "scrape_time", "updated_at",
			}),
		}).Create(&line).Error
		if err != nil {
			utils.Warnf("保存房型明细失败 [%s / %s]: %v", record.HotelKey, room.RoomName, err)
			continue
		}
		saved++
	}
	return saved, nil
}

// upsertHotel 按规范化键写入或更新酒店行,返回酒店ID
func (s *GormStore) upsertHotel(db *gorm.DB, record *models.AvailabilityRecord) (uint, error) {
	hotel := Hotel{
		Key:       record.HotelKey,
		Name:      record.HotelName,
		SourceURL: record.SourceURL,
	}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"source_url", "updated_at"}),
	}).Create(&hotel).Error
	if err != nil {
		return 0, fmt.Errorf("保存酒店记录失败: %w", err)
	}

	// 冲突路径下gorm不回填主键,按键重查一次
	if hotel.ID == 0 {
		if err := db.Where("key = ?", record.HotelKey).First(&hotel).Error; err != nil {
			return 0, fmt.Errorf("查询酒店记录失败: %w", err)
		}
	}

	// 酒店名只在新抓到非空值时覆盖,避免失败任务抹掉已有名称
	if record.HotelName != "" && hotel.Name != record.HotelName {
		if err := db.Model(&Hotel{}).Where("id = ?", hotel.ID).Update("name", record.HotelName).Error; err != nil {
			utils.Warnf("更新酒店名失败 [%s]: %v", record.HotelKey, err)
		}
	}
	return hotel.ID, nil
}

// DeduplicateRoomLines 删除重复的房型明细
// 同组(hotel_id, room_name, stay_date)保留最小id,其余删除
func (s *GormStore) DeduplicateRoomLines(ctx context.Context, confirm bool) (int64, error) {
	db := s.db.WithContext(ctx)

	if !confirm {
		var count int64
		err := db.Raw(`
			SELECT COUNT(*) FROM room_availabilities a
			WHERE EXISTS (
				SELECT 1 FROM room_availabilities b
				WHERE b.hotel_id = a.hotel_id
				  AND b.room_name = a.room_name
				  AND b.stay_date = a.stay_date
				  AND b.id < a.id
			)`).Scan(&count).Error
		if err != nil {
			return 0, fmt.Errorf("统计重复房型明细失败: %w", err)
		}
		return count, nil
	}

	result := db.Exec(`
		DELETE FROM room_availabilities a
		USING room_availabilities b
		WHERE a.hotel_id = b.hotel_id
		  AND a.room_name = b.room_name
		  AND a.stay_date = b.stay_date
		  AND a.id > b.id`)
	if result.Error != nil {
		return 0, fmt.Errorf("删除重复房型明细失败: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// Close 关闭数据库连接
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
