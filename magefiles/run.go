//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Test mg.Namespace

// Runs the unit tests.
func (Test) Unit() error {
	fmt.Println("Run unit tests...")
	_, err := executeCmd("go", withArgs("test", "./engine/..."), withStream())
	return err
}

// Runs the unit tests with the race detector; the submission and streaming code is concurrent.
func (Test) Race() error {
	mg.Deps(Build.Vet)
	_, err := executeCmd("go", withArgs("test", "-race", "-count=1", "./engine/..."), withStream())
	return err
}

type Run mg.Namespace

// Loads ember.toml and prints the effective settings.
func (Run) Config() error {
	_, err := executeCmd("go", withArgs("run", "main.go", "-config", "ember.toml"), withStream())
	return err
}
