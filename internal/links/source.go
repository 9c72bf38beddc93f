package links

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/RecoveryAshes/roomcrawl/internal/models"
	"github.com/RecoveryAshes/roomcrawl/internal/utils"
)

// LoadLinks 从链接文件读取酒店URL列表
// 每行一个URL,跳过空行和#注释行,无效URL记录警告后跳过,保持文件内顺序
func LoadLinks(filepath string) ([]string, error) {
	file, err := os.Open(filepath)
	if err != nil {
		return nil, fmt.Errorf("打开链接文件失败: %w", err)
	}
	defer file.Close()

	links := make([]string, 0)
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// 跳过空行和注释行
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if err := models.ValidateURL(line); err != nil {
			utils.Warnf("跳过无效链接 (行 %d): %s - %v", lineNum, line, err)
			continue
		}

		links = append(links, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("读取链接文件失败: %w", err)
	}

	if len(links) == 0 {
		return nil, fmt.Errorf("链接文件中没有有效的酒店链接")
	}

	utils.Infof("📥 从文件加载了 %d 个酒店链接", len(links))
	return links, nil
}
