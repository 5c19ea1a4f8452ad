package utils

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// PasswordCost bcrypt 轮数
const PasswordCost = 10

// Bcrypt 单向哈希，实现 service.Hasher
type Bcrypt struct{ Cost int }

func NewBcrypt() Bcrypt { return Bcrypt{Cost: PasswordCost} }

func (b Bcrypt) Hash(pw string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = PasswordCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(pw), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

func HashPassword(pw string) (string, error) { return NewBcrypt().Hash(pw) }
