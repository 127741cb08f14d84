// Package credential stores the identity attached to uploaded collections.
package credential

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/woozymasta/gpsmarker/internal/fsutil"
)

var (
	// ErrMissing is returned when no credential has been saved yet.
	ErrMissing = errors.New("credential missing")
	// ErrInvalid is returned for credentials without a user id or with an unknown id type.
	ErrInvalid = errors.New("invalid credential")
)

// IDType tells how the user id was issued.
type IDType string

const (
	Arbitrary IDType = "Arbitrary"
	OSM       IDType = "OSM"
)

// ParseIDType accepts an id type name, case-insensitively.
func ParseIDType(s string) (IDType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "arbitrary", "":
		return Arbitrary, nil
	case "osm":
		return OSM, nil
	}
	return "", fmt.Errorf("%w: id type %q", ErrInvalid, s)
}

// Credential identifies the person collecting data.
type Credential struct {
	UserID string `json:"UserID"`
	IDType IDType `json:"IDType"`
	Email  string `json:"Email"`
}

// Validate requires a user id and a known id type.
func (c Credential) Validate() error {
	if strings.TrimSpace(c.UserID) == "" {
		return fmt.Errorf("%w: do not leave user ID blank", ErrInvalid)
	}
	if c.IDType != Arbitrary && c.IDType != OSM {
		return fmt.Errorf("%w: id type %q", ErrInvalid, c.IDType)
	}
	return nil
}

// Load reads the credential file. A missing file yields ErrMissing.
func Load(path string) (Credential, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Credential{}, ErrMissing
		}
		return Credential{}, err
	}

	var c Credential
	if err := json.Unmarshal(data, &c); err != nil {
		return Credential{}, fmt.Errorf("decode %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return Credential{}, err
	}

	return c, nil
}

// Save validates the credential and writes it, replacing any previous one.
func Save(path string, c Credential) error {
	if err := c.Validate(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	if err := fsutil.WriteFileAtomic(path, data, 0600); err != nil {
		return fmt.Errorf("write credential: %w", err)
	}

	return nil
}
