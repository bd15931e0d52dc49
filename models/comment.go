package models

import (
	"context"
	"time"

	"github.com/modaflow/atelier_backend/utils"
	"gorm.io/gorm"
)

// Comment is a timestamped note on a request/shipment/order thread. Author
// identity comes from the resolved context, never from the payload.
type Comment struct {
	ID            int       `gorm:"primary_key" json:"id"`
	Description   string    `gorm:"type:text;not null" json:"description" binding:"required"`
	ReferenceID   int       `gorm:"index" json:"reference_id"`
	ReferenceType string    `gorm:"size:255" json:"reference_type"`
	UserId        int       `gorm:"index;not null" json:"user_id"`
	UserName      string    `gorm:"size:100" json:"user_name"`
	IsSystem      *bool     `gorm:"default:false" json:"is_system"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

type NewComment struct {
	Description   string `json:"description" binding:"required"`
	ReferenceID   int    `json:"reference_id"`
	ReferenceType string `json:"reference_type"`
}

func CreateComment(ctx context.Context, db *gorm.DB, input *NewComment) (*Comment, error) {

	if input.Description == "" {
		return nil, utils.NewValidationError("description is required")
	}

	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId <= 0 {
		return nil, utils.ErrorUnauthenticated
	}
	userName, _ := utils.GetUserNameFromContext(ctx)

	comment := Comment{
		Description:   input.Description,
		ReferenceID:   input.ReferenceID,
		ReferenceType: input.ReferenceType,
		UserId:        userId,
		UserName:      userName,
	}

	err := db.WithContext(ctx).Create(&comment).Error
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

// CreateSystemComment appends a system-authored thread message (e.g. the
// summary written when a manufacturer reports a shipment problem).
func CreateSystemComment(ctx context.Context, db *gorm.DB, referenceType string, referenceId int, description string) (*Comment, error) {

	comment := Comment{
		Description:   description,
		ReferenceID:   referenceId,
		ReferenceType: referenceType,
		UserName:      "system",
		IsSystem:      utils.NewTrue(),
	}

	err := db.WithContext(ctx).Create(&comment).Error
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

func GetComments(ctx context.Context, db *gorm.DB, referenceType string, referenceId int) ([]*Comment, error) {

	var results []*Comment
	err := db.WithContext(ctx).
		Where("reference_type = ? AND reference_id = ?", referenceType, referenceId).
		Order("created_at ASC").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
