package phone

import (
	"errors"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// ErrInvalidPhone is returned when a number cannot be parsed or is not valid for its region
var ErrInvalidPhone = errors.New("invalid phone number")

// Normalize parses raw using defaultRegion for numbers without a country prefix
// and returns it in E.164 form.
func Normalize(raw, defaultRegion string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidPhone
	}

	num, err := phonenumbers.Parse(raw, strings.ToUpper(defaultRegion))
	if err != nil {
		return "", ErrInvalidPhone
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", ErrInvalidPhone
	}

	return phonenumbers.Format(num, phonenumbers.E164), nil
}
