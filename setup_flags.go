package main

import (
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/baalimago/worklog/internal/config"
)

// temperatureSet and envFileSet are true if the flags were given at all, since
// both 0 and "" are valid values.
type flagSet struct {
	addr           string
	chatModel      string
	temperature    float64
	temperatureSet bool
	envFile        string
	envFileSet     bool
	version        bool
	help           bool
}

// parseFlags into a flagSet. Short and long variants of the same flag are mutually exclusive.
func parseFlags(args []string) (flagSet, error) {
	fs := flag.NewFlagSet("worklog", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	aShort := fs.String("a", "", "Address to serve the web ui on.")
	aLong := fs.String("addr", "", "Address to serve the web ui on.")
	cmShort := fs.String("cm", "", "Set the chat model to use. Mutually exclusive with chat-model flag.")
	cmLong := fs.String("chat-model", "", "Set the chat model to use. Mutually exclusive with cm flag.")
	tempShort := fs.Float64("temp", 0, "Set the sampling temperature. Mutually exclusive with temperature flag.")
	tempLong := fs.Float64("temperature", 0, "Set the sampling temperature. Mutually exclusive with temp flag.")
	eShort := fs.String("e", "", "Dotenv file to load credentials from.")
	eLong := fs.String("env-file", "", "Dotenv file to load credentials from.")
	vShort := fs.Bool("v", false, "Print version and exit.")
	vLong := fs.Bool("version", false, "Print version and exit.")
	hShort := fs.Bool("h", false, "Print help and exit.")
	hLong := fs.Bool("help", false, "Print help and exit.")

	if err := fs.Parse(args); err != nil {
		return flagSet{}, fmt.Errorf("failed to parse flags: %w", err)
	}
	if fs.NArg() > 0 {
		return flagSet{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	var ret flagSet
	var err error
	if ret.addr, err = config.ReturnNonDefault(*aShort, *aLong, ""); err != nil {
		return flagSet{}, fmt.Errorf("a and addr: %w", err)
	}
	if ret.chatModel, err = config.ReturnNonDefault(*cmShort, *cmLong, ""); err != nil {
		return flagSet{}, fmt.Errorf("cm and chat-model: %w", err)
	}

	visited := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		visited[f.Name] = true
	})
	if visited["temp"] && visited["temperature"] {
		return flagSet{}, errors.New("temp and temperature: values are mutually exclusive")
	}
	if visited["e"] && visited["env-file"] {
		return flagSet{}, errors.New("e and env-file: values are mutually exclusive")
	}
	switch {
	case visited["temp"]:
		ret.temperature, ret.temperatureSet = *tempShort, true
	case visited["temperature"]:
		ret.temperature, ret.temperatureSet = *tempLong, true
	}
	switch {
	case visited["e"]:
		ret.envFile, ret.envFileSet = *eShort, true
	case visited["env-file"]:
		ret.envFile, ret.envFileSet = *eLong, true
	}
	ret.version = *vShort || *vLong
	ret.help = *hShort || *hLong
	return ret, nil
}
