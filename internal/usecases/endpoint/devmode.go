package endpoint

import (
	"strings"

	cerrors "github.com/deepkalilabs/marimo-cosmic/internal/domain/shared/errors"
)

// DevMode selects whether resolution is redirected to the local dev endpoint.
type DevMode string

const (
	// DevModeAuto enables development mode when the base host contains
	// "localhost".
	DevModeAuto DevMode = "auto"
	// DevModeOn always targets the dev endpoint.
	DevModeOn DevMode = "on"
	// DevModeOff never targets the dev endpoint.
	DevModeOff DevMode = "off"
)

// ParseDevMode parses a flag or environment value. Empty means auto.
func ParseDevMode(s string) (DevMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return DevModeAuto, nil
	case "on", "true", "1":
		return DevModeOn, nil
	case "off", "false", "0":
		return DevModeOff, nil
	default:
		return "", cerrors.NewInvalidInputError("unknown dev mode "+s+" (want auto, on or off)", nil)
	}
}
