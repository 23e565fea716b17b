package validator

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsEmpty(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"", true},
		{"   ", true},
		{"abc", false},
		{" abc ", false},
	}
	for _, c := range cases {
		got := IsEmpty(c.input)
		if got != c.want {
			t.Errorf("IsEmpty(%q) = %v, want %v", c.input, got, c.want)
		}
	}
}

func TestIsValidUUID(t *testing.T) {
	valid := []string{
		"0188d0f2-7b8c-7b4a-8a2b-6b8b8b8b8b8b",
		"0188D0F2-7B8C-7B4A-8A2B-6B8B8B8B8B8B",
	}
	invalid := []string{
		"123e4567-e89b-12d3-a456-426614174000", // not v7
		"0188d0f27b8c7b4a8a2b6b8b8b8b8b8b",     // missing dashes
		"g188d0f2-7b8c-7b4a-8a2b-6b8b8b8b8b8b", // invalid hex
		"",
	}
	for _, uuid := range valid {
		if !IsValidUUID(uuid) {
			t.Errorf("IsValidUUID(%q) = false, want true", uuid)
		}
	}
	for _, uuid := range invalid {
		if IsValidUUID(uuid) {
			t.Errorf("IsValidUUID(%q) = true, want false", uuid)
		}
	}
}

func TestIsValidPeriod(t *testing.T) {
	assert.True(t, IsValidPeriod("2025-07"))
	assert.False(t, IsValidPeriod("2025-7"))
	assert.False(t, IsValidPeriod("07/2025"))
	assert.False(t, IsValidPeriod(""))
}

func TestIsInSlice(t *testing.T) {
	slice := []string{"a", "b", "c"}
	if !IsInSlice("a", slice) {
		t.Errorf("IsInSlice('a') = false, want true")
	}
	if IsInSlice("d", slice) {
		t.Errorf("IsInSlice('d') = true, want false")
	}
}

func TestValidationErrors_Error(t *testing.T) {
	errs := ValidationErrors{
		{Field: "reason", Message: "is required"},
		{Field: "amount", Message: "must be greater than 0"},
	}
	assert.Equal(t, "reason: is required; amount: must be greater than 0", errs.Error())
}

func TestValidationErrors_ToMap(t *testing.T) {
	errs := ValidationErrors{
		{Field: "reason", Message: "is required"},
		{Field: "period", Message: "invalid"},
	}
	assert.Equal(t, map[string]string{"reason": "is required", "period": "invalid"}, errs.ToMap())
}

func TestValidationErrors_Err(t *testing.T) {
	var errs ValidationErrors
	assert.NoError(t, errs.Err())

	errs.Add("reason", "is required")
	assert.Error(t, errs.Err())
}

type sampleRequest struct {
	Period    string          `json:"period" validate:"required,period"`
	Reason    string          `json:"reason" validate:"notblank"`
	Amount    decimal.Decimal `json:"amount" validate:"gt=0"`
	RecordIDs []string        `json:"record_ids" validate:"min=1"`
}

func TestStruct(t *testing.T) {
	ok := sampleRequest{
		Period:    "2025-07",
		Reason:    "medical emergency",
		Amount:    decimal.NewFromInt(500),
		RecordIDs: []string{"a"},
	}
	require.NoError(t, Struct(ok))

	bad := sampleRequest{
		Period: "2025/07",
		Reason: "   ",
		Amount: decimal.NewFromInt(-1),
	}
	err := Struct(bad)
	require.Error(t, err)

	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	fields := verrs.ToMap()
	assert.Equal(t, "must be a period in YYYY-MM format", fields["period"])
	assert.Equal(t, "is required", fields["reason"])
	assert.Equal(t, "must be greater than 0", fields["amount"])
	assert.Contains(t, fields, "record_ids")
}
