package entity

// AccessStatus is the outcome of an access request.
type AccessStatus string

const (
	AccessMustRegister     AccessStatus = "must_register"
	AccessAlreadyAdmitted  AccessStatus = "already_admitted"
	AccessInsufficient     AccessStatus = "insufficient_referrals"
	AccessCapacityExceeded AccessStatus = "capacity_exceeded"
	AccessAdmitted         AccessStatus = "admitted"
)

// AccessResult carries the status plus the variant data: Missing for
// AccessInsufficient, InviteLink for AccessAdmitted.
type AccessResult struct {
	Status     AccessStatus `json:"status"`
	Missing    int          `json:"missing,omitempty"`
	InviteLink string       `json:"invite_link,omitempty"`
}

func MustRegisterFirst() *AccessResult {
	return &AccessResult{Status: AccessMustRegister}
}

func AlreadyAdmitted() *AccessResult {
	return &AccessResult{Status: AccessAlreadyAdmitted}
}

func InsufficientReferrals(missing int) *AccessResult {
	return &AccessResult{Status: AccessInsufficient, Missing: missing}
}

func CapacityExceeded() *AccessResult {
	return &AccessResult{Status: AccessCapacityExceeded}
}

func Admitted(inviteLink string) *AccessResult {
	return &AccessResult{Status: AccessAdmitted, InviteLink: inviteLink}
}

func (r *AccessResult) IsAdmitted() bool {
	return r.Status == AccessAdmitted
}
