package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/fakewire/fakewire/internal/generator"
)

func main() {
	cfg := generator.DefaultConfig()
	var (
		people      = flag.Int("people", cfg.NumPeople, "number of people to generate")
		emailChance = flag.Float64("dup-email-chance", cfg.DuplicateEmailChance, "probability of reusing an existing email")
		phoneChance = flag.Float64("dup-phone-chance", cfg.DuplicatePhoneChance, "probability of reusing an existing phone number")
		addrChance  = flag.Float64("dup-address-chance", cfg.DuplicateAddressChance, "probability of reusing an existing address")
		minAge      = flag.Int("min-age", cfg.MinAge, "minimum age of generated people")
		maxAge      = flag.Int("max-age", cfg.MaxAge, "maximum age of generated people")
		seed        = flag.Uint64("seed", cfg.Seed, "random seed for deterministic generation")
		profilePath = flag.String("profile", "", "path to a YAML generation profile (overrides other flags)")
		outputDir   = flag.String("output-dir", "data", "directory to write people.json")
		writeStdout = flag.Bool("stdout", false, "write the dataset to stdout instead of files")
	)
	flag.Parse()

	genCfg := generator.Config{
		NumPeople:              *people,
		DuplicateEmailChance:   clampProbability(*emailChance),
		DuplicatePhoneChance:   clampProbability(*phoneChance),
		DuplicateAddressChance: clampProbability(*addrChance),
		MinAge:                 *minAge,
		MaxAge:                 *maxAge,
		EmailDomains:           cfg.EmailDomains,
		Country:                cfg.Country,
		Seed:                   *seed,
	}

	if *profilePath != "" {
		rules, err := generator.LoadRules(*profilePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load profile: %v\n", err)
			os.Exit(1)
		}
		genCfg = rules.Apply(genCfg)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	gen := generator.New(genCfg)
	dataset, err := gen.Generate(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "generation failed: %v\n", err)
		os.Exit(1)
	}

	if *writeStdout {
		if err := json.NewEncoder(os.Stdout).Encode(dataset); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write dataset to stdout: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := generator.WriteDataset(dataset, *outputDir); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write dataset: %v\n", err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stdout, "Generated %d people into %s\n", len(dataset.People), *outputDir)
}

func clampProbability(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}
