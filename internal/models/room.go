package models

import "time"

// ExtractedRoom 从页面行提取的单个房型
type ExtractedRoom struct {
	RoomID       string   `json:"room_id"`      // 房型标识(来自data-block-id或select元素),空表示无法识别
	RoomName     string   `json:"room_name"`    // 房型名称 (默认:"Standart Oda")
	RoomsLeft    int      `json:"rooms_left"`   // 剩余房间数(select最大option值)
	Price        *float64 `json:"price"`        // 价格,解析失败时为nil
	Unidentified bool     `json:"unidentified"` // 无法识别房型ID的行,不参与去重
}

// AvailabilityRecord 单次抓取产出的酒店可用性记录
type AvailabilityRecord struct {
	HotelKey       string          `json:"hotel_key"`  // 规范化URL,酒店的稳定身份
	HotelName      string          `json:"hotel_name"` // 页面提取的酒店名,可能为空
	SourceURL      string          `json:"source_url"` // 实际访问的URL
	StayDate       string          `json:"stay_date"`  // 入住日期 YYYY-MM-DD
	ScrapeTime     time.Time       `json:"scrape_time"`
	TotalRoomsLeft int             `json:"total_rooms_left"` // 各房型剩余数之和
	MinPrice       *float64        `json:"min_price"`        // 所有有价房型的最低价,无价时为nil
	Currency       string          `json:"currency"`
	FetchSucceeded bool            `json:"fetch_succeeded"` // false表示页面未能正常解析(标记行)
	Rooms          []ExtractedRoom `json:"rooms"`
}

// NewAvailabilityRecord 根据提取结果构建可用性记录,计算汇总字段
func NewAvailabilityRecord(hotelKey, hotelName, sourceURL, stayDate, currency string, rooms []ExtractedRoom) *AvailabilityRecord {
	record := &AvailabilityRecord{
		HotelKey:       hotelKey,
		HotelName:      hotelName,
		SourceURL:      sourceURL,
		StayDate:       stayDate,
		ScrapeTime:     time.Now(),
		Currency:       currency,
		FetchSucceeded: true,
		Rooms:          rooms,
	}
	for _, room := range rooms {
		record.TotalRoomsLeft += room.RoomsLeft
		if room.Price != nil && (record.MinPrice == nil || *room.Price < *record.MinPrice) {
			price := *room.Price
			record.MinPrice = &price
		}
	}
	return record
}

// NewFetchFailedRecord 构建抓取失败的标记记录
// TABLE_NOT_FOUND和FAILED的任务也要留痕,表示"当天抓过但没拿到数据"
func NewFetchFailedRecord(hotelKey, sourceURL, stayDate, currency string) *AvailabilityRecord {
	return &AvailabilityRecord{
		HotelKey:       hotelKey,
		SourceURL:      sourceURL,
		StayDate:       stayDate,
		ScrapeTime:     time.Now(),
		Currency:       currency,
		FetchSucceeded: false,
	}
}
