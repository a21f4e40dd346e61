package domain

import (
	"fmt"
	"math"
	"net/mail"
	"regexp"
	"strings"
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]{3,30}$`)
	phonePattern    = regexp.MustCompile(`^\+?[0-9 -]{7,20}$`)
)

func ValidateUsername(v string) error {
	if !usernamePattern.MatchString(strings.TrimSpace(v)) {
		return fmt.Errorf("%w: username must match ^[a-zA-Z0-9_.-]{3,30}$", ErrInvalidInput)
	}
	return nil
}

func ValidateCoordinates(c *Coordinates) error {
	if c == nil {
		return nil
	}
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lng) || c.Lat < -90 || c.Lat > 90 || c.Lng < -180 || c.Lng > 180 {
		return fmt.Errorf("%w: coordinates out of range", ErrInvalidInput)
	}
	return nil
}

func ValidateContact(c *ContactInfo) error {
	if c == nil {
		return nil
	}
	if c.Email != "" {
		if _, err := mail.ParseAddress(c.Email); err != nil {
			return fmt.Errorf("%w: invalid contact email", ErrInvalidInput)
		}
	}
	if c.Phone != "" && !phonePattern.MatchString(c.Phone) {
		return fmt.Errorf("%w: invalid contact phone", ErrInvalidInput)
	}
	return nil
}

func ValidateRating(v float64) error {
	if math.IsNaN(v) || v < 0 || v > 5 {
		return fmt.Errorf("%w: rating must be between 0 and 5", ErrInvalidInput)
	}
	return nil
}

func ValidateEstimatedHours(v *float64) error {
	if v == nil {
		return nil
	}
	if math.IsNaN(*v) || *v <= 0 || *v > 8760 {
		return fmt.Errorf("%w: estimated_hours must be in (0, 8760]", ErrInvalidInput)
	}
	return nil
}
