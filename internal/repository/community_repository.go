package repository

import (
	"errors"

	"socialhub_backend/internal/model"
	"socialhub_backend/internal/util"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CommunityRepository struct {
	DB *gorm.DB
}

func NewCommunityRepository(db *gorm.DB) *CommunityRepository {
	return &CommunityRepository{DB: db}
}

func (r *CommunityRepository) CreatePost(p *model.Post) error {
	return r.DB.Create(p).Error
}

func (r *CommunityRepository) GetPost(id string) (*model.Post, error) {
	var p model.Post
	err := r.DB.Preload("Author").First(&p, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// DeletePost 连带评论和表态
func (r *CommunityRepository) DeletePost(id string) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&model.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&model.Reaction{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&model.Post{}).Error
	})
}

func (r *CommunityRepository) CreateComment(c *model.Comment) error {
	return r.DB.Create(c).Error
}

func (r *CommunityRepository) ListComments(postID string, limit, offset int) ([]model.Comment, int64, error) {
	var comments []model.Comment
	var total int64

	db := r.DB.Model(&model.Comment{}).Where("post_id = ?", postID)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Preload("Author").
		Order("created_at ASC").
		Limit(limit).Offset(offset).
		Find(&comments).Error
	return comments, total, err
}

// UpsertReaction 重复表态覆盖种类
func (r *CommunityRepository) UpsertReaction(re *model.Reaction) error {
	return r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "post_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"kind", "updated_at"}),
	}).Create(re).Error
}

func (r *CommunityRepository) DeleteReaction(userID uint, postID string) (int64, error) {
	res := r.DB.Where("user_id = ? AND post_id = ?", userID, postID).
		Delete(&model.Reaction{})
	return res.RowsAffected, res.Error
}
