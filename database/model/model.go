// Package model 包含本地数据库模型
package model

// User 与 Telegram 用户对应，缓存已开通的链接
type User struct {
	Id        int    `json:"id" gorm:"primaryKey;autoIncrement"`
	Username  string `json:"username" gorm:"uniqueIndex;not null"`
	TgId      int64  `json:"tgId" gorm:"not null;default:0"`
	VlessUuid string `json:"vlessUuid"`
	VlessLink string `json:"vlessLink"`
	CreatedAt int64  `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt int64  `json:"updatedAt" gorm:"autoUpdateTime"`
}

// HasLink 是否已保存链接
func (u *User) HasLink() bool {
	return u != nil && u.VlessLink != ""
}
