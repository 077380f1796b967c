package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	mrand "math/rand"
)

const letterBytes = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// RandString 生成短随机字符串，用作资源对外 ID
func RandString(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = letterBytes[mrand.Intn(len(letterBytes))]
	}
	return string(b)
}

// GenerateToken 生成不可猜测的令牌（hex 编码），用于密码重置
func GenerateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// HashToken 令牌入库前取 sha256，数据库泄露不暴露原始令牌
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
