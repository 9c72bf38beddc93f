package scraper

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/RecoveryAshes/roomcrawl/internal/models"
	"github.com/RecoveryAshes/roomcrawl/internal/utils"
)

// ExtractStatus 页面提取结果状态
type ExtractStatus string

const (
	ExtractFound          ExtractStatus = "FOUND"           // 找到房间表并提取了行
	ExtractNoAvailability ExtractStatus = "NO_AVAILABILITY" // 页面明确显示无可用房间
	ExtractTableNotFound  ExtractStatus = "TABLE_NOT_FOUND" // 房间表和无房提示均未找到
	ExtractError          ExtractStatus = "ERROR"           // 提取过程出错
)

// 房间表选择器,按优先级排列
var roomTableSelectors = []string{
	"#hprt-table",
	".hprt-table",
	".roomstable",
	".roomsList",
}

// 无房提示选择器
const noAvailabilitySelector = "#no_availability_msg"

// 酒店名选择器,按优先级排列,全部失败时回退到页面标题
var hotelNameSelectors = []string{
	"h2.pp-header__title",
	"#hp_hotel_name",
	"#hotel_title",
	".hp__hotel-name",
	".hotel-name",
	".item-name",
	"h1.b-beo_title",
	"h1.d2fee87262",
	"h2.d2fee87262",
}

// 默认房型名,页面行中缺失名称时使用
const defaultRoomName = "Standart Oda"

// 房间数量select元素的id格式: hprt_nos_select_<blockID>_...
var roomSelectIDPattern = regexp.MustCompile(`hprt_nos_select_(\d+)_`)

// 价格文本中的无关字符
var priceNoisePattern = regexp.MustCompile(`[^\d.,]`)

// ExtractRooms 从已加载的酒店页面提取房间可用性
// 状态机: 定位房间表 -> (FOUND | NO_AVAILABILITY | TABLE_NOT_FOUND) -> 逐行提取
func ExtractRooms(page Page) (ExtractStatus, []models.ExtractedRoom, error) {
	table, err := locateRoomTable(page)
	if err != nil {
		if errors.Is(err, ErrElementNotFound) {
			// 先区分"确认无房"和"页面结构变更"
			if _, naErr := page.Element(noAvailabilitySelector); naErr == nil {
				return ExtractNoAvailability, nil, nil
			}
			return ExtractTableNotFound, nil, nil
		}
		return ExtractError, nil, err
	}

	rows, err := table.Elements("tbody > tr")
	if err != nil {
		return ExtractError, nil, err
	}

	rooms := extractRows(rows)
	if len(rooms) == 0 {
		// 表存在但没有可用行,按无房处理
		return ExtractNoAvailability, nil, nil
	}
	return ExtractFound, rooms, nil
}

// locateRoomTable 按选择器级联定位房间表
// 已知选择器都失败时,扫描所有table找class含room或hprt的元素
func locateRoomTable(page Page) (Element, error) {
	for _, selector := range roomTableSelectors {
		if table, err := page.Element(selector); err == nil {
			utils.Debugf("通过选择器定位到房间表: %s", selector)
			return table, nil
		}
	}

	tables, err := page.Elements("table")
	if err != nil {
		return nil, err
	}
	for _, table := range tables {
		class, err := table.Attribute("class")
		if err != nil {
			continue
		}
		lower := strings.ToLower(class)
		if strings.Contains(lower, "room") || strings.Contains(lower, "hprt") {
			utils.Debugf("通过class扫描定位到房间表: %s", class)
			return table, nil
		}
	}
	return nil, ErrElementNotFound
}

// extractRows 逐行提取房型,按标识去重
// 同一标识的多行保留最大剩余数和最低价;无法识别标识的行不参与去重,
// 标记后原样保留;既无名称也无正剩余数的行视为布局噪声丢弃
func extractRows(rows []Element) []models.ExtractedRoom {
	ordered := make([]models.ExtractedRoom, 0, len(rows))
	indexByID := make(map[string]int)
	unidentified := make([]models.ExtractedRoom, 0)

	for _, row := range rows {
		room, ok := extractRow(row)
		if !ok {
			continue
		}

		if room.Unidentified {
			unidentified = append(unidentified, room)
			continue
		}

		if i, seen := indexByID[room.RoomID]; seen {
			merged := &ordered[i]
			if room.RoomsLeft > merged.RoomsLeft {
				merged.RoomsLeft = room.RoomsLeft
			}
			if room.Price != nil && (merged.Price == nil || *room.Price < *merged.Price) {
				merged.Price = room.Price
			}
			continue
		}
		indexByID[room.RoomID] = len(ordered)
		ordered = append(ordered, room)
	}

	return append(ordered, unidentified...)
}

// extractRow 提取单行,返回ok=false表示该行应丢弃
func extractRow(row Element) (models.ExtractedRoom, bool) {
	roomID := extractRoomID(row)
	name := extractRoomName(row)
	roomsLeft := extractRoomsLeft(row)
	price := extractPrice(row)

	// 没有名称也没有正剩余数的行不是房型行
	if name == "" && roomsLeft <= 0 {
		return models.ExtractedRoom{}, false
	}
	if name == "" {
		name = defaultRoomName
	}

	return models.ExtractedRoom{
		RoomID:       roomID,
		RoomName:     name,
		RoomsLeft:    roomsLeft,
		Price:        price,
		Unidentified: roomID == "",
	}, true
}

// extractRoomID 提取房型标识
// 优先取行的data-block-id前缀,缺失时从数量select的id解析
func extractRoomID(row Element) string {
	if blockID, err := row.Attribute("data-block-id"); err == nil && blockID != "" {
		return strings.SplitN(blockID, "_", 2)[0]
	}

	sel, err := row.Element(`select[id^="hprt_nos_select_"]`)
	if err != nil {
		return ""
	}
	id, err := sel.Attribute("id")
	if err != nil {
		return ""
	}
	if match := roomSelectIDPattern.FindStringSubmatch(id); match != nil {
		return match[1]
	}
	return ""
}

// extractRoomName 提取房型名称
func extractRoomName(row Element) string {
	link, err := row.Element(".hprt-roomtype-icon-link")
	if err != nil {
		return ""
	}
	text, err := link.Text()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}

// extractRoomsLeft 剩余房间数取数量select中最大的option值
func extractRoomsLeft(row Element) int {
	sel, err := row.Element(`select[id^="hprt_nos_select_"]`)
	if err != nil {
		if sel, err = row.Element("select"); err != nil {
			return 0
		}
	}
	options, err := sel.Elements("option")
	if err != nil {
		return 0
	}

	max := 0
	for _, option := range options {
		value, err := option.Attribute("value")
		if err != nil {
			continue
		}
		if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && n > max {
			max = n
		}
	}
	return max
}

// extractPrice 提取并规范化价格,解析失败返回nil
func extractPrice(row Element) *float64 {
	cell, err := row.Element(".prco-valign-middle-helper")
	if err != nil {
		return nil
	}
	text, err := cell.Text()
	if err != nil {
		return nil
	}
	return cleanPrice(text)
}

// cleanPrice 清洗价格文本
// 去掉货币符号等噪声后统一小数点: 同时含点和逗号时点视为千分位
func cleanPrice(text string) *float64 {
	cleaned := priceNoisePattern.ReplaceAllString(text, "")
	if cleaned == "" {
		return nil
	}
	if strings.Contains(cleaned, ".") && strings.Contains(cleaned, ",") {
		cleaned = strings.ReplaceAll(cleaned, ".", "")
	}
	cleaned = strings.ReplaceAll(cleaned, ",", ".")

	price, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil
	}
	return &price
}

// ExtractHotelName 提取酒店名称
// 选择器级联全部失败时回退到页面标题竖线前的部分,仍失败返回空串
func ExtractHotelName(page Page) string {
	for _, selector := range hotelNameSelectors {
		el, err := page.Element(selector)
		if err != nil {
			continue
		}
		if text, err := el.Text(); err == nil {
			if name := strings.TrimSpace(text); name != "" {
				return name
			}
		}
	}

	title, err := page.Title()
	if err != nil {
		return ""
	}
	if i := strings.Index(title, "|"); i >= 0 {
		title = title[:i]
	}
	return strings.TrimSpace(title)
}
