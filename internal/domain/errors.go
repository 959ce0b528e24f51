package domain

import "errors"

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrPurchaseNotFound  = errors.New("purchase not found")
	ErrSiteNotFound      = errors.New("site not found")
	ErrJobNotFound       = errors.New("job not found")
	ErrInvalidStatus     = errors.New("invalid status")
	ErrInvalidTransition = errors.New("illegal status transition")
	ErrInvalidJobType    = errors.New("invalid job type")
	ErrJobNotAllowed     = errors.New("job not allowed for current site status")
	ErrNotKeyBearing     = errors.New("purchase does not carry license keys")
	ErrSubdomainTaken    = errors.New("subdomain already taken")
)
