package tinkoff

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// Access levels reported by the remote side
const (
	AccessLevelAnonymous = "ANONYMOUS"
	AccessLevelCandidate = "CANDIDATE"
	AccessLevelClient    = "CLIENT"
)

// SessionState is the payload of level_up, session_status and ping
type SessionState struct {
	AccessLevel string `json:"accessLevel"`
	MillisLeft  int64  `json:"millisLeft,omitempty"`
}

// Currency of a money amount
type Currency struct {
	Code    int    `json:"code"`
	Name    string `json:"name"`
	StrCode string `json:"strCode,omitempty"`
}

// MoneyAmount is a value in a currency
type MoneyAmount struct {
	Currency Currency        `json:"currency"`
	Value    decimal.Decimal `json:"value"`
}

// String formats the amount as "1234.56 RUB"
func (m MoneyAmount) String() string {
	return m.Value.StringFixed(2) + " " + m.Currency.Name
}

// Account is one entry of accounts_flat
type Account struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	AccountType string       `json:"accountType"`
	Status      string       `json:"status,omitempty"`
	MoneyAmount MoneyAmount  `json:"moneyAmount"`
	CreditLimit *MoneyAmount `json:"creditLimit,omitempty"`
}

// PersonalInfo is the payload of personal_info
type PersonalInfo struct {
	FullName    string `json:"fullName"`
	FirstName   string `json:"firstName,omitempty"`
	LastName    string `json:"lastName,omitempty"`
	MobilePhone string `json:"mobilePhone,omitempty"`
	Email       string `json:"email,omitempty"`
	BirthDate   string `json:"birthDate,omitempty"`
}

// ParseSessionState decodes a session state payload
func ParseSessionState(p Payload) (SessionState, error) {
	var state SessionState
	if err := p.Decode(&state); err != nil {
		return SessionState{}, fmt.Errorf("failed to decode session state: %w", err)
	}
	return state, nil
}

// ParseAccounts decodes an accounts_flat payload
func ParseAccounts(p Payload) ([]Account, error) {
	var accounts []Account
	if err := p.Decode(&accounts); err != nil {
		return nil, fmt.Errorf("failed to decode accounts: %w", err)
	}
	return accounts, nil
}

// ParsePersonalInfo decodes a personal_info payload
func ParsePersonalInfo(p Payload) (PersonalInfo, error) {
	var info PersonalInfo
	if err := p.Decode(&info); err != nil {
		return PersonalInfo{}, fmt.Errorf("failed to decode personal info: %w", err)
	}
	return info, nil
}

// Accounts calls AccountsFlat and decodes the result
func (c *Client) Accounts(ctx context.Context) ([]Account, error) {
	payload, err := c.AccountsFlat(ctx)
	if err != nil {
		return nil, err
	}
	return ParseAccounts(payload)
}

// Balances sums the balances of accounts per currency name
func Balances(accounts []Account) map[string]decimal.Decimal {
	totals := make(map[string]decimal.Decimal)
	for _, a := range accounts {
		name := a.MoneyAmount.Currency.Name
		totals[name] = totals[name].Add(a.MoneyAmount.Value)
	}
	return totals
}
