//go:build mage

package main

import (
	"os"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Default target - build the binary
var Default = Build

// Build builds the sweep binary into bin/
func Build() error {
	return sh.RunV("go", "build", "-o", "bin/sweep", ".")
}

// Clean removes build artifacts
func Clean() error {
	return os.RemoveAll("bin")
}

// Lint namespace for linting commands
type Lint mg.Namespace

// Vet runs go vet
func (Lint) Vet() error {
	return sh.RunV("go", "vet", "./...")
}

// Format fails when gofmt would change a file
func (Lint) Format() error {
	out, err := sh.Output("gofmt", "-l", ".")
	if err != nil {
		return err
	}
	if out != "" {
		return mg.Fatalf(1, "unformatted files:\n%s", out)
	}
	return nil
}

// Test namespace for testing commands
type Test mg.Namespace

// All runs all tests
func (Test) All() error {
	return sh.RunV("go", "test", "./...")
}

// Race runs tests with race detector
func (Test) Race() error {
	return sh.RunV("go", "test", "-race", "./...")
}

// Docker runs the container launcher tests against the local daemon
func (Test) Docker() error {
	return sh.RunWithV(map[string]string{"SWEEP_DOCKER_TESTS": "1"}, "go", "test", "./internal/docker/...")
}
