package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// IDList is a list of telegram ids that decodes from a single number, a
// numeric string, or an array of either.
type IDList []int64

// UnmarshalJSON implements json.Unmarshaler
func (l *IDList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*l = nil
		return nil
	}
	if data[0] == '[' {
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		out := make(IDList, 0, len(raw))
		for _, r := range raw {
			id, err := parseID(r)
			if err != nil {
				return err
			}
			out = append(out, id)
		}
		*l = out
		return nil
	}
	id, err := parseID(data)
	if err != nil {
		return err
	}
	*l = IDList{id}
	return nil
}

func parseID(raw json.RawMessage) (int64, error) {
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.Int64()
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("invalid id %s", string(raw))
	}
	return strconv.ParseInt(strings.TrimSpace(s), 10, 64)
}

// Contains reports whether id is in the list
func (l IDList) Contains(id int64) bool {
	for _, v := range l {
		if v == id {
			return true
		}
	}
	return false
}

// AppConfig is the JSON configuration document edited through the setup pages
type AppConfig struct {
	BotToken     string `json:"bot_token"`
	AdminIDs     IDList `json:"admin_id"`
	GroupID      int64  `json:"group_id"`
	QRISData     string `json:"qris_data"`
	MerchantID   string `json:"merchant_id"`
	ServerKey    string `json:"server_key"`
	StoreName    string `json:"store_name,omitempty"`
	MinDeposit   int64  `json:"min_deposit,omitempty"`
	TrialEnabled bool   `json:"trial_enabled"`
}

const defaultMinDeposit = 10000

// Validate checks that all required keys are present
func (c *AppConfig) Validate() error {
	var errs []error
	if strings.TrimSpace(c.BotToken) == "" {
		errs = append(errs, errors.New("bot_token is required"))
	}
	if len(c.AdminIDs) == 0 {
		errs = append(errs, errors.New("admin_id is required"))
	}
	if c.GroupID == 0 {
		errs = append(errs, errors.New("group_id is required"))
	}
	if strings.TrimSpace(c.QRISData) == "" {
		errs = append(errs, errors.New("qris_data is required"))
	}
	if strings.TrimSpace(c.MerchantID) == "" {
		errs = append(errs, errors.New("merchant_id is required"))
	}
	if strings.TrimSpace(c.ServerKey) == "" {
		errs = append(errs, errors.New("server_key is required"))
	}
	return errors.Join(errs...)
}

// ApplyDefaults fills optional keys
func (c *AppConfig) ApplyDefaults() {
	if c.MinDeposit <= 0 {
		c.MinDeposit = defaultMinDeposit
	}
	if c.StoreName == "" {
		c.StoreName = "VPN Store"
	}
}

// IsAdmin reports whether id is one of the configured admins
func (c *AppConfig) IsAdmin(id int64) bool {
	return c != nil && c.AdminIDs.Contains(id)
}

// Masked returns a copy with secrets shortened for display
func (c AppConfig) Masked() AppConfig {
	c.BotToken = mask(c.BotToken)
	c.ServerKey = mask(c.ServerKey)
	return c
}

func mask(s string) string {
	if len(s) <= 8 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + "..." + s[len(s)-4:]
}
