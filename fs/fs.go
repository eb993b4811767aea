// Package appfs embeds the static files the apps need at runtime: database migrations and email templates.
package appfs

import "embed"

//go:embed migrations/*.sql assets/common-passwords.txt.gz assets/templates/email/*
var FS embed.FS
