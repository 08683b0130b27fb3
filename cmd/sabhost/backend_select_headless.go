//go:build headless

package main

import (
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/zotley/sabcore/backend"
)

func newBackend(name string, logger *log.Logger) (backend.AudioBackend, error) {
	if name != "headless" {
		return nil, fmt.Errorf("sabhost: built with the headless tag, only -backend=headless is available")
	}
	return backend.NewHeadlessBackend(), nil
}
