package crm

import (
	"crypto/subtle"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/crypto/bcrypt"

	"github.com/sells-group/leadledger/internal/config"
	"github.com/sells-group/leadledger/internal/model"
)

// Account is one allow-list entry.
type Account struct {
	Username     string
	Role         model.Role
	Password     string
	PasswordHash string
	// Source names the sheet source feeding this account's pool. Defaults
	// to the username.
	Source string
}

// AccountsFromConfig converts configured users into accounts.
func AccountsFromConfig(users []config.UserConfig) []Account {
	out := make([]Account, 0, len(users))
	for _, u := range users {
		out = append(out, Account{
			Username:     u.Username,
			Role:         model.ParseRole(u.Role),
			Password:     u.Password,
			PasswordHash: u.PasswordHash,
			Source:       u.Source,
		})
	}
	return out
}

// User returns the public identity of the account.
func (a Account) User() model.User {
	return model.User{Username: a.Username, Role: a.Role}
}

func (a Account) source() string {
	if a.Source != "" {
		return a.Source
	}
	return strings.ToLower(a.Username)
}

func (a Account) checkPassword(password string) bool {
	if a.PasswordHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)) == nil
	}
	return a.Password != "" && subtle.ConstantTimeCompare([]byte(a.Password), []byte(password)) == 1
}

// Authenticate checks username and password against the allow-list.
// Usernames match exactly.
func (s *Service) Authenticate(username, password string) (model.User, error) {
	acct, ok := s.accounts[username]
	if !ok || !acct.checkPassword(password) {
		return model.User{}, eris.Wrap(model.ErrUnauthorized, "crm: authenticate")
	}
	return acct.User(), nil
}

// Lookup returns the account for a known username.
func (s *Service) Lookup(username string) (model.User, error) {
	acct, ok := s.accounts[username]
	if !ok {
		return model.User{}, eris.Wrapf(model.ErrUnauthorized, "crm: unknown user %q", username)
	}
	return acct.User(), nil
}

// Specialists lists the non-admin usernames in allow-list order.
func (s *Service) Specialists() []string {
	var out []string
	for _, name := range s.order {
		if s.accounts[name].Role != model.RoleAdmin {
			out = append(out, name)
		}
	}
	return out
}
