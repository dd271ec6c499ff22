package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCarTypeValid(t *testing.T) {
	for _, ct := range []CarType{
		CarTypeSedan, CarTypeSUV, CarTypeSports, CarTypeLuxury,
		CarTypeElectric, CarTypeHybrid, CarTypeTruck, CarTypeVan,
	} {
		assert.True(t, ct.Valid(), "expected %q to be valid", ct)
	}

	assert.False(t, CarType("Motorcycle").Valid())
	assert.False(t, CarType("").Valid())
	assert.False(t, CarType("sedan").Valid(), "enum values are case-sensitive")
}

func TestListingValidate(t *testing.T) {
	valid := Listing{
		Title:       "2023 Tesla Model S",
		Description: "Luxury electric sedan.",
		CarType:     CarTypeElectric,
		Company:     "Tesla",
	}
	require.NoError(t, valid.Validate())

	cases := []struct {
		name   string
		mutate func(*Listing)
	}{
		{"empty title", func(l *Listing) { l.Title = "" }},
		{"whitespace title", func(l *Listing) { l.Title = "   " }},
		{"empty description", func(l *Listing) { l.Description = "" }},
		{"empty company", func(l *Listing) { l.Company = "" }},
		{"unknown car type", func(l *Listing) { l.CarType = "Motorcycle" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			l := valid
			tc.mutate(&l)
			err := l.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation))
		})
	}
}

func TestNormalizeTags(t *testing.T) {
	assert.Equal(t, []string{"electric", "luxury"}, NormalizeTags([]string{"electric, luxury"}),
		"raw comma-separated string splits into tokens")

	assert.Equal(t, []string{"a", "b", "c"}, NormalizeTags([]string{" a ", "b", "a", "", "c"}),
		"tokens are trimmed, duplicates and empties dropped")

	assert.Empty(t, NormalizeTags([]string{"", "  ", ","}))
	assert.Empty(t, NormalizeTags(nil))
}

func TestImageInputVariants(t *testing.T) {
	stored := StoredImage("https://cdn.example.com/car.png")
	assert.False(t, stored.Pending())
	assert.Equal(t, "https://cdn.example.com/car.png", stored.URL())
	assert.Empty(t, stored.Payload())

	pending := PendingImage("data:image/png;base64,aGVsbG8=")
	assert.True(t, pending.Pending())
	assert.Empty(t, pending.URL())
	assert.Equal(t, "data:image/png;base64,aGVsbG8=", pending.Payload())
}
