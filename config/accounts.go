package config

import (
	"encoding/json"
	"fmt"
	"os"

	"stork_verifier/models"
)

const accountsTemplate = `[
  {
	"username": "YOUR_EMAIL",
	"password": "YOUR_PASSWORD"
  }
]
`

// LoadAccounts reads the account list. When the file is missing, a
// template is written for the operator and an empty list is returned.
func LoadAccounts(path string) ([]models.AccountCredential, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if werr := os.WriteFile(path, []byte(accountsTemplate), 0o600); werr != nil {
			return nil, fmt.Errorf("writing accounts template: %w", werr)
		}
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var raw []models.AccountCredential
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	accounts := raw[:0]
	for _, a := range raw {
		if a.Username == "" || a.Password == "" || a.Username == "YOUR_EMAIL" {
			continue
		}
		accounts = append(accounts, a)
	}
	return accounts, nil
}
