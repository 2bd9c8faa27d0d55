package entity

import "time"

// User is the registry record of one messaging platform identity.
// ReferrerId is zero when the user joined without a (valid) referral; it is set
// only when the record is created and never changes afterwards.
// Admitted flips false -> true once, when the single-use invite is issued.
// ReferralPending marks a registration whose referrer credit has not landed
// yet; only stores without multi-document transactions ever set it.
type User struct {
	UserId        int64     `json:"user_id" bson:"user_id"`
	ReferrerId    int64     `json:"referrer_id,omitempty" bson:"referrer_id,omitempty"`
	ReferralCount int       `json:"referral_count" bson:"referral_count"`
	Admitted      bool      `json:"admitted" bson:"admitted"`
	InviteLink    string    `json:"invite_link,omitempty" bson:"invite_link,omitempty"`
	RegisteredAt  time.Time `json:"registered_at" bson:"registered_at"`
	AdmittedAt    time.Time `json:"admitted_at,omitempty" bson:"admitted_at,omitempty"`

	ReferralPending bool `json:"-" bson:"referral_pending,omitempty"`
}

func (u *User) HasReferrer() bool {
	return u.ReferrerId != 0
}

func (u *User) IsEligible(required int) bool {
	return u.ReferralCount >= required
}

// Missing returns how many more referrals the user needs, never negative.
func (u *User) Missing(required int) int {
	if u.ReferralCount >= required {
		return 0
	}
	return required - u.ReferralCount
}
