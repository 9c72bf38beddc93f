package utils

import "github.com/google/uuid"

// GenerateRunID 生成一次运行的唯一ID
func GenerateRunID() string {
	return uuid.New().String()
}
