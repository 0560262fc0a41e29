package enums

type TopUpStatus string

const (
	TopUpStatusPending  TopUpStatus = "pending"
	TopUpStatusApproved TopUpStatus = "approved"
	TopUpStatusRejected TopUpStatus = "rejected"
)

func (s TopUpStatus) Terminal() bool {
	return s != TopUpStatusPending
}
