package entity

// Referrer is one leaderboard row.
type Referrer struct {
	UserId        int64 `json:"user_id" bson:"user_id"`
	ReferralCount int   `json:"referral_count" bson:"referral_count"`
}

// Report is the administrative snapshot: admissions against capacity and the top referrers.
type Report struct {
	Admitted    int64      `json:"admitted"`
	Capacity    int        `json:"capacity"`
	Leaderboard []Referrer `json:"leaderboard"`
}

// Stats is a user's progress towards eligibility.
type Stats struct {
	Referrals int  `json:"referrals"`
	Required  int  `json:"required"`
	Admitted  bool `json:"admitted"`
}
