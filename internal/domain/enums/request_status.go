package enums

type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusApproved RequestStatus = "approved"
	RequestStatusRejected RequestStatus = "rejected"
	RequestStatusNoCredit RequestStatus = "no_credit"
	RequestStatusInvalid  RequestStatus = "invalid"
)

func (s RequestStatus) Terminal() bool {
	return s != RequestStatusPending
}
