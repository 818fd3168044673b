package main

import (
	"testing"

	"github.com/baalimago/go_away_boilerplate/pkg/testboil"
)

func TestParseFlags(t *testing.T) {
	testCases := []struct {
		desc    string
		given   []string
		want    flagSet
		wantErr bool
	}{
		{
			desc:  "defaults",
			given: []string{},
			want:  flagSet{},
		},
		{
			desc:  "short flags",
			given: []string{"-a", "127.0.0.1:3000", "-cm", "gpt-4o", "-temp", "0.3", "-e", "my.env"},
			want:  flagSet{addr: "127.0.0.1:3000", chatModel: "gpt-4o", temperature: 0.3, temperatureSet: true, envFile: "my.env", envFileSet: true},
		},
		{
			desc:  "long flags",
			given: []string{"-addr=:9000", "-chat-model=gpt-4.1", "-temperature=0", "-env-file="},
			want:  flagSet{addr: ":9000", chatModel: "gpt-4.1", temperature: 0, temperatureSet: true, envFileSet: true},
		},
		{
			desc:  "negative temperature is passed on for validation",
			given: []string{"-temp", "-1"},
			want:  flagSet{temperature: -1, temperatureSet: true},
		},
		{
			desc:  "version",
			given: []string{"-v"},
			want:  flagSet{version: true},
		},
		{
			desc:  "help",
			given: []string{"-help"},
			want:  flagSet{help: true},
		},
		{
			desc:    "short and long are mutually exclusive",
			given:   []string{"-cm", "a", "-chat-model", "b"},
			wantErr: true,
		},
		{
			desc:    "temp and temperature are mutually exclusive",
			given:   []string{"-temp", "0", "-temperature", "0"},
			wantErr: true,
		},
		{
			desc:    "e and env-file are mutually exclusive",
			given:   []string{"-e", "", "-env-file", ""},
			wantErr: true,
		},
		{
			desc:    "unknown flag",
			given:   []string{"-nope"},
			wantErr: true,
		},
		{
			desc:    "positional arguments",
			given:   []string{"hello"},
			wantErr: true,
		},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			got, err := parseFlags(tC.given)
			if (err != nil) != tC.wantErr {
				t.Fatalf("parseFlags() error = %v, wantErr %v", err, tC.wantErr)
			}
			if tC.wantErr {
				return
			}
			testboil.FailTestIfDiff(t, got, tC.want)
		})
	}
}
