package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSortOrder(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string returns DESC", "", "DESC"},
		{"ASC uppercase returns ASC", "ASC", "ASC"},
		{"asc lowercase returns ASC", "asc", "ASC"},
		{"desc lowercase returns DESC", "desc", "DESC"},
		{"invalid value returns DESC", "SIDEWAYS", "DESC"},
		{"injection attempt returns DESC", "ASC; DROP TABLE receptions;--", "DESC"},
		{"whitespace around ASC returns ASC", "  asc  ", "ASC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ValidateSortOrder(tt.input))
		})
	}
}

func TestValidateSortField(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string returns default", "", "created_at"},
		{"whitelisted field", "document_number", "document_number"},
		{"unknown field returns default", "unit_price", "created_at"},
		{"case sensitive", "STATE", "created_at"},
		{"whitespace around valid field", "  state  ", "state"},
		{"injection with quotes", "state'--", "created_at"},
		{"injection with subquery", "state, (SELECT 1)", "created_at"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ValidateSortField(tt.input, ReceptionSortFields, "created_at"))
		})
	}
}

func TestOrderClause(t *testing.T) {
	assert.Equal(t, "created_at DESC, id DESC", orderClause("", "", ReceptionSortFields, "created_at"))
	assert.Equal(t, "document_number ASC, id ASC", orderClause("document_number", "asc", ReceptionSortFields, "created_at"))
	assert.Equal(t, "created_at DESC, id DESC", orderClause("id; DROP TABLE receptions", "asc; --", ReceptionSortFields, "created_at"))
}
