package role

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	const staffDomain = "greenshillings.org"

	tests := []struct {
		name   string
		email  string
		dbRole string
		want   Role
	}{
		{"empty email is public", "", "STAFF", Public},
		{"staff by corporate domain", "jane@greenshillings.org", "", Staff},
		{"staff domain is case insensitive", "Jane@GreenShillings.ORG", "", Staff},
		{"staff by db role", "jane@partner.example", "STAFF", Staff},
		{"partner by db role", "bob@partner.example", "PARTNER", Partner},
		{"partner role is case insensitive", "bob@partner.example", "partner", Partner},
		{"unknown db role is public", "bob@partner.example", "GUEST", Public},
		{"no db role is public", "bob@partner.example", "", Public},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.email, tt.dbRole, staffDomain))
		})
	}
}

func TestClassifyWithoutStaffDomain(t *testing.T) {
	// Без настроенного домена сотрудники распознаются только по роли из БД
	assert.Equal(t, Partner, Classify("jane@greenshillings.org", "PARTNER", ""))
	assert.Equal(t, Staff, Classify("jane@greenshillings.org", "STAFF", ""))
}

func TestRoleString(t *testing.T) {
	assert.Equal(t, "public", Public.String())
	assert.Equal(t, "partner", Partner.String())
	assert.Equal(t, "staff", Staff.String())
}
