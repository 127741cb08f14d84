package main

import (
	"fmt"
	"io"
	"os"

	"github.com/woozymasta/gpsmarker/internal/credential"

	"github.com/rs/zerolog/log"
)

type LoginCommand struct {
	UserID string `short:"u" long:"user-id" env:"GPSMARKER_USER_ID" description:"User ID attached to uploads"`
	IDType string `short:"t" long:"id-type" env:"GPSMARKER_ID_TYPE" description:"How the user ID was issued" choice:"Arbitrary" choice:"OSM" default:"Arbitrary"`
	Email  string `short:"e" long:"email"   env:"GPSMARKER_EMAIL"   description:"Contact email"`

	out io.Writer
}

// Execute validates and saves the credential.
func (c *LoginCommand) Execute(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	idType, err := credential.ParseIDType(c.IDType)
	if err != nil {
		return err
	}

	path := cfg.CredentialPath()
	cred := credential.Credential{UserID: c.UserID, IDType: idType, Email: c.Email}
	if err := credential.Save(path, cred); err != nil {
		return err
	}

	log.Info().Str("user", cred.UserID).Str("id_type", string(cred.IDType)).Str("path", path).Msg("Credential saved")
	_, _ = fmt.Fprintf(writerOr(c.out), "Logged in as %s (%s).\n", cred.UserID, cred.IDType)
	return nil
}

func writerOr(w io.Writer) io.Writer {
	if w == nil {
		return os.Stdout
	}
	return w
}
