package dto

import "github.com/thuzarw/kspvpn-bot/internal/domain/model"

type NotificationListResponse struct {
	Notifications []model.Notification `json:"notifications"`
}

type MarkReadResponse struct {
	OK bool `json:"ok"`
}
