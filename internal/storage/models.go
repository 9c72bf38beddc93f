package storage

import "time"

// Hotel 酒店表
// 以规范化URL作为稳定身份,链接文件中的位置变化不影响归属
type Hotel struct {
	ID        uint   `gorm:"primaryKey"`
	Key       string `gorm:"uniqueIndex;size:512;not null"` // 规范化URL
	Name      string `gorm:"size:255"`                      // 页面提取的酒店名
	SourceURL string `gorm:"size:1024"`                     // 最近一次访问的完整URL
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Availability 酒店某入住日的汇总可用性
// 同一(酒店,入住日)重复抓取时覆盖更新,保证幂等
type Availability struct {
	ID             uint   `gorm:"primaryKey"`
	HotelID        uint   `gorm:"uniqueIndex:idx_avail_hotel_stay;not null"`
	StayDate       string `gorm:"uniqueIndex:idx_avail_hotel_stay;size:10;not null"` // YYYY-MM-DD
	ScrapeTime     time.Time
	TotalRoomsLeft int
	MinPrice       *float64
	Currency       string `gorm:"size:8"`
	FetchSucceeded bool   // false表示当天抓取过但页面未能解析
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// RoomAvailability 单个房型某入住日的可用性明细
type RoomAvailability struct {
	ID           uint   `gorm:"primaryKey"`
	HotelID      uint   `gorm:"uniqueIndex:idx_room_hotel_name_stay;not null"`
	RoomName     string `gorm:"uniqueIndex:idx_room_hotel_name_stay;size:255;not null"`
	StayDate     string `gorm:"uniqueIndex:idx_room_hotel_name_stay;size:10;not null"`
	RoomKey      string `gorm:"size:64"` // 页面上的房型标识,无法识别时为空
	RoomsLeft    int
	Price        *float64
	Currency     string `gorm:"size:8"`
	Unidentified bool
	ScrapeTime   time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
