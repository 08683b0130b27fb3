//go:build !headless

package main

import (
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/zotley/sabcore/backend"
)

func newBackend(name string, logger *log.Logger) (backend.AudioBackend, error) {
	switch name {
	case "oto":
		return backend.NewOtoBackend(), nil
	case "malgo":
		return backend.NewMalgoBackend(logger), nil
	case "headless":
		return nil, fmt.Errorf("sabhost: built without the headless tag, pass -tags headless to select this backend")
	default:
		return nil, fmt.Errorf("sabhost: unknown backend %q (want oto or malgo)", name)
	}
}
