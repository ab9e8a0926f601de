package web

import "embed"

// EmailFS embeds the notification email templates.
//
//go:embed templates/email/*
var EmailFS embed.FS
