package dto

import "github.com/thuzarw/kspvpn-bot/internal/domain/model"

type PendingRequestsResponse struct {
	Requests []model.Request `json:"requests"`
}

type PendingTopUpsResponse struct {
	TopUps []model.TopUp `json:"topups"`
}

type AdminUserResponse struct {
	User     model.User      `json:"user"`
	Requests []model.Request `json:"requests"`
	TopUps   []model.TopUp   `json:"topups"`
}

type AdminLogsResponse struct {
	Entries []model.AdminLogEntry `json:"entries"`
}
