package model

// Role is the user's relationship to a shared-expense event.
type Role string

const (
	RolePayer              Role = "PAYER"
	RoleBorrower           Role = "BORROWER"
	RoleParticipant        Role = "PARTICIPANT"
	RoleSettlementPayer    Role = "SETTLEMENT_PAYER"
	RoleSettlementReceiver Role = "SETTLEMENT_RECEIVER"
)

// Settlement reports whether r is one of the repayment roles.
func (r Role) Settlement() bool {
	return r == RoleSettlementPayer || r == RoleSettlementReceiver
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RolePayer, RoleBorrower, RoleParticipant, RoleSettlementPayer, RoleSettlementReceiver:
		return true
	}
	return false
}

// DeriveRole computes role and my_share from the feed's total cost and the
// user's net contribution. Settlements never carry a share.
//
//	contribution > 0: user fronted the bill, my_share = total - contribution
//	contribution < 0: someone else paid, my_share = |contribution|
//	contribution = 0: net-zero participant
func DeriveRole(settlement bool, totalCents, contributionCents int64) (Role, int64) {
	if settlement {
		if contributionCents < 0 {
			return RoleSettlementReceiver, 0
		}
		return RoleSettlementPayer, 0
	}
	switch {
	case contributionCents > 0:
		return RolePayer, totalCents - contributionCents
	case contributionCents < 0:
		return RoleBorrower, -contributionCents
	default:
		return RoleParticipant, 0
	}
}
