package entity

import (
	"net/http"
	"refgate/lib/validate"
)

// AccessRequest is the body of the unconditional access API call.
type AccessRequest struct {
	UserId int64 `json:"user_id" validate:"required,gt=0"`
}

func (a *AccessRequest) Bind(_ *http.Request) error {
	return validate.Struct(a)
}
