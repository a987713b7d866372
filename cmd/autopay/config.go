package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/omeid/uconfig"
	"gopkg.in/yaml.v3"
)

// Files automatically loaded when present.
var (
	jsonConfigFilename = "config.json"
	yamlConfigFilename = "config.yaml"
	envFilename        = ".env"
)

type config struct {
	Chain struct {
		Name           string `default:"sepolia"`
		EthEndpoint    string `default:""` // overrides the provider URL when set
		Provider       string `default:"alchemy"`
		ProviderAPIKey string `default:""`
		Token          string `default:""` // overrides the chain USDC contract when set
	}
	Signer struct {
		PrivateKey         string `default:""`
		KeystorePath       string `default:""`
		KeystorePassphrase string `default:""`
	}
	Transfer struct {
		Source        string `default:"0x63A0bfd6a5cdCF446ae12135E2CD86b908659563"`
		Destination   string `default:""` // the managed address when empty
		Amount        string `default:"1"`
		Interval      string `default:"86400s"`
		CheckInterval string `default:"1m"`
		Scheduler     bool   `default:"true"`
	}
	Ledger struct {
		GasLimit       uint64 `default:"0"` // estimated per transfer when zero
		ConfirmPending bool   `default:"true"`
		CallTimeout    string `default:"30s"`
	}
	State struct {
		Backend       string `default:"sqlite"`
		SQLitePath    string `default:"autopay.db"`
		RedisAddress  string `default:"localhost:6379"`
		RedisPassword string `default:""`
		RedisDB       int    `default:"0"`
		RedisPrefix   string `default:"autopay"`
	}
	HTTP struct {
		Port                   string `default:"8080"`
		RateLimInterval        string `default:"1s"`
		MaxRequestPerInterval  uint64 `default:"10"`
		MaxTransferPerInterval uint64 `default:"1"`
	}
	Metrics struct {
		Port string `default:"9090"`
	}
	Log struct {
		Human bool `default:"false"`
		Debug bool `default:"false"`
	}
}

func setupConfig() *config {
	if _, err := os.Stat(envFilename); err == nil {
		if err := godotenv.Load(envFilename); err != nil {
			fmt.Fprintf(os.Stderr, "loading %s: %s\n", envFilename, err)
			os.Exit(1)
		}
	}

	conf := &config{}
	confFiles := uconfig.Files{}
	if _, err := os.Stat(jsonConfigFilename); err == nil {
		confFiles = append(confFiles, uconfig.Files{{jsonConfigFilename, json.Unmarshal}}...)
	}
	if _, err := os.Stat(yamlConfigFilename); err == nil {
		confFiles = append(confFiles, uconfig.Files{{yamlConfigFilename, yaml.Unmarshal}}...)
	}

	c, err := uconfig.Classic(&conf, confFiles)
	if err != nil {
		c.Usage()
		os.Exit(1)
	}

	return conf
}
