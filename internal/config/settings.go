package config

import (
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/rezonia/pohoda-xml/internal/model"
)

// Setting codes, shared by the settings store, the YAML file and the API
const (
	KeyBankID      = "bank_id"
	KeyAccountNo   = "account_no"
	KeyBankCode    = "bank_code"
	KeyConstSymbol = "const_symbol"
	KeyStoreID     = "store_id"
	KeyFeedURL     = "feed_url"
	KeyHash        = "hash"
	KeyEURRate     = "eur_rate"
)

// Keys lists every setting code in display order
var Keys = []string{
	KeyBankID,
	KeyAccountNo,
	KeyBankCode,
	KeyConstSymbol,
	KeyStoreID,
	KeyFeedURL,
	KeyHash,
	KeyEURRate,
}

// IsKey reports whether code is a known setting
func IsKey(code string) bool {
	for _, k := range Keys {
		if k == code {
			return true
		}
	}
	return false
}

// Settings are the options of one invoice transform. An empty string means
// the option is not configured; EURRate is zero when unset.
type Settings struct {
	BankID      string          `json:"bank_id"`
	AccountNo   string          `json:"account_no"`
	BankCode    string          `json:"bank_code"`
	ConstSymbol string          `json:"const_symbol"`
	StoreID     string          `json:"store_id"`
	FeedURL     string          `json:"feed_url"`
	Hash        string          `json:"hash"`
	EURRate     decimal.Decimal `json:"eur_rate"`
}

// HasBank reports whether EUR invoices get an account block
func (s *Settings) HasBank() bool {
	return s.BankID != ""
}

// HasStore reports whether stock items get a store reference
func (s *Settings) HasStore() bool {
	return s.StoreID != ""
}

// HasEURRate reports whether foreign currency amounts can be computed
func (s *Settings) HasEURRate() bool {
	return s.EURRate.GreaterThan(decimal.Zero)
}

// FromMap builds settings from code/value pairs and validates them.
// Values are trimmed; unknown codes are rejected.
func FromMap(values map[string]string) (*Settings, error) {
	var unknown []string
	for k := range values {
		if !IsKey(k) {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, model.NewValidationError("settings", strings.Join(unknown, ","), "known_keys", "unknown setting code")
	}

	get := func(key string) string {
		return strings.TrimSpace(values[key])
	}

	s := &Settings{
		BankID:      get(KeyBankID),
		AccountNo:   get(KeyAccountNo),
		BankCode:    get(KeyBankCode),
		ConstSymbol: get(KeyConstSymbol),
		StoreID:     get(KeyStoreID),
		FeedURL:     get(KeyFeedURL),
		Hash:        get(KeyHash),
	}

	if raw := get(KeyEURRate); raw != "" {
		rate, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, model.NewValidationError(KeyEURRate, raw, "decimal", "must be a decimal number")
		}
		if !rate.GreaterThan(decimal.Zero) {
			return nil, model.NewValidationError(KeyEURRate, raw, "positive", "must be greater than zero")
		}
		s.EURRate = rate
	}

	if s.FeedURL != "" {
		u, err := url.Parse(s.FeedURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, model.NewValidationError(KeyFeedURL, s.FeedURL, "http_url", "must be an http or https URL")
		}
	}

	return s, nil
}

// ToMap returns the settings as code/value pairs
func (s *Settings) ToMap() map[string]string {
	rate := ""
	if s.HasEURRate() {
		rate = s.EURRate.String()
	}
	return map[string]string{
		KeyBankID:      s.BankID,
		KeyAccountNo:   s.AccountNo,
		KeyBankCode:    s.BankCode,
		KeyConstSymbol: s.ConstSymbol,
		KeyStoreID:     s.StoreID,
		KeyFeedURL:     s.FeedURL,
		KeyHash:        s.Hash,
		KeyEURRate:     rate,
	}
}

// ReadSettingsFile reads a YAML mapping of setting codes to values
// without validating it
func ReadSettingsFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	values := make(map[string]string)
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to parse settings file %s: %w", path, err)
	}
	return values, nil
}

// LoadSettingsFile reads and validates a YAML settings file
func LoadSettingsFile(path string) (*Settings, error) {
	values, err := ReadSettingsFile(path)
	if err != nil {
		return nil, err
	}
	return FromMap(values)
}
