package main

import (
	"errors"
	"fmt"
	"runtime/debug"
)

// Set with buildflag if built in pipeline and not using go install
var BuildVersion = ""

func printVersion() error {
	if BuildVersion != "" {
		fmt.Println("version: " + BuildVersion)
		return nil
	}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return errors.New("failed to read build info")
	}
	fmt.Println("version: " + bi.Main.Version)
	for _, dep := range bi.Deps {
		fmt.Printf("%s %s\n", dep.Path, dep.Version)
	}
	return nil
}
