package enums

type AuditAction string

const (
	AuditActionAddCredits     AuditAction = "add_credits"
	AuditActionGrantVIP       AuditAction = "grant_vip"
	AuditActionRevokeVIP      AuditAction = "revoke_vip"
	AuditActionApproveRequest AuditAction = "approve_request"
	AuditActionRejectRequest  AuditAction = "reject_request"
	AuditActionApproveTopUp   AuditAction = "approve_topup"
	AuditActionRejectTopUp    AuditAction = "reject_topup"
)
