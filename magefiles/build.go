//go:build mage

// Package main provides build targets for the mirrors project using Mage.
//
// Usage:
//
//	mage build      Compile the mirror binary to bin/
//	mage install    Install mirror to GOPATH/bin
//	mage clean      Remove build artifacts
//	mage lint       Run golangci-lint
//	mage test:all   Run all tests
//	mage test:unit  Run tests without the slow sqlite timer tests
//	mage test:race  Run all tests with the race detector
package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binGo      = "go"
	binaryName = "mirror"
	binaryDir  = "bin"
	cmdDir     = "./cmd/mirror"
	modulePath = "github.com/mesh-intelligence/mirrors"
)

// ldflags stamps the version from MIRRORS_VERSION or the nearest git tag.
func ldflags() string {
	version := os.Getenv("MIRRORS_VERSION")
	if version == "" {
		if tag, err := sh.Output("git", "describe", "--tags", "--always"); err == nil {
			version = strings.TrimPrefix(tag, "v")
		}
	}
	if version == "" {
		return ""
	}
	return "-X " + modulePath + "/internal/cli.Version=" + version
}

// Build compiles the mirror binary to bin/.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	args := []string{"build", "-v", "-o", filepath.Join(binaryDir, binaryName)}
	if flags := ldflags(); flags != "" {
		args = append(args, "-ldflags", flags)
	}
	return sh.RunV(binGo, append(args, cmdDir)...)
}

// Clean removes build artifacts.
func Clean() error {
	if err := os.RemoveAll(binaryDir); err != nil {
		return err
	}
	return sh.RunV(binGo, "clean")
}

// Install builds and copies the binary to GOPATH/bin.
func Install() error {
	mg.Deps(Build)
	gopath, err := sh.Output(binGo, "env", "GOPATH")
	if err != nil {
		return err
	}
	src := filepath.Join(binaryDir, binaryName)
	dst := filepath.Join(gopath, "bin", binaryName)
	return sh.Copy(dst, src)
}
