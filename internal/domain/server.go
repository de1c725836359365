package domain

import "time"

// Server is a provisioning host offered to buyers
type Server struct {
	ID            int64
	Name          string
	Domain        string
	CountryCode   string
	Auth          string
	Price         int64 // base price per day
	QuotaGB       int64
	IPLimit       int64
	MaxAccounts   int64
	TotalAccounts int64
	CreatedAt     time.Time
}

// Full reports whether the server reached its account limit
func (s *Server) Full() bool {
	return s.MaxAccounts > 0 && s.TotalAccounts >= s.MaxAccounts
}

// ServerField identifies an editable numeric server attribute
type ServerField string

const (
	FieldPrice       ServerField = "price"
	FieldQuota       ServerField = "quota"
	FieldIPLimit     ServerField = "ip_limit"
	FieldMaxAccounts ServerField = "max_accounts"
)

// ParseServerField parses an editable server field name
func ParseServerField(s string) (ServerField, bool) {
	switch ServerField(s) {
	case FieldPrice, FieldQuota, FieldIPLimit, FieldMaxAccounts:
		return ServerField(s), true
	}
	return "", false
}

// Column returns the servers table column backing the field
func (f ServerField) Column() string {
	switch f {
	case FieldQuota:
		return "quota_gb"
	default:
		return string(f)
	}
}
