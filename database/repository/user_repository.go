package repository

import (
	"context"
	"errors"

	"github.com/yuukich1/3x-ui-bot/database/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepository 定义 User 数据访问接口
type UserRepository interface {
	FindByUsername(username string) (*model.User, error)
	FindByTgId(tgId int64) (*model.User, error)
	AddUser(username string, tgId int64) (*model.User, error)
	GetLink(ctx context.Context, username string) (string, error)
	SaveLink(ctx context.Context, username, clientUUID, link string) error
	FindWithoutLink() ([]model.User, error)
	Count() (int64, error)

	GetDB() *gorm.DB
}

// userRepository 实现 UserRepository 接口
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建新的 UserRepository 实例
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{
		db: db,
	}
}

// GetDB 返回当前数据库连接
func (r *userRepository) GetDB() *gorm.DB {
	return r.db
}

// FindByUsername 根据用户名查找用户
func (r *userRepository) FindByUsername(username string) (*model.User, error) {
	user := &model.User{}
	err := r.db.Model(model.User{}).Where("username = ?", username).First(user).Error
	if err != nil {
		return nil, err
	}
	return user, nil
}

// FindByTgId 根据 Telegram ID 查找用户
func (r *userRepository) FindByTgId(tgId int64) (*model.User, error) {
	user := &model.User{}
	err := r.db.Model(model.User{}).Where("tg_id = ?", tgId).First(user).Error
	if err != nil {
		return nil, err
	}
	return user, nil
}

// AddUser 登记用户，用户名已存在时只更新 tg_id
func (r *userRepository) AddUser(username string, tgId int64) (*model.User, error) {
	user := &model.User{Username: username, TgId: tgId}
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "username"}},
		DoUpdates: clause.AssignmentColumns([]string{"tg_id", "updated_at"}),
	}).Create(user).Error
	if err != nil {
		return nil, err
	}
	return r.FindByUsername(username)
}

// GetLink 返回已保存的链接，用户不存在或尚未保存时返回空串
func (r *userRepository) GetLink(ctx context.Context, username string) (string, error) {
	user := &model.User{}
	err := r.db.WithContext(ctx).Model(model.User{}).Where("username = ?", username).First(user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return user.VlessLink, nil
}

// SaveLink 保存链接，用户不存在时一并创建
func (r *userRepository) SaveLink(ctx context.Context, username, clientUUID, link string) error {
	user := &model.User{Username: username, VlessUuid: clientUUID, VlessLink: link}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "username"}},
		DoUpdates: clause.AssignmentColumns([]string{"vless_uuid", "vless_link", "updated_at"}),
	}).Create(user).Error
}

// FindWithoutLink 返回尚未保存链接的用户
func (r *userRepository) FindWithoutLink() ([]model.User, error) {
	var users []model.User
	err := r.db.Model(model.User{}).
		Where("vless_link IS NULL OR vless_link = ''").
		Order("id").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

// Count 用户总数
func (r *userRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(model.User{}).Count(&count).Error
	return count, err
}
