//go:build !gitcli

package cmd

import "github.com/thiagokokada/gde-go/internal/git/backend"

const defaultBackend = backend.KindNative
