package store

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Seed is one subscription declared in the seed file
type Seed struct {
	URL    string `yaml:"url"`
	Target string `yaml:"target"`
}

type seedFile struct {
	Subscriptions []Seed `yaml:"subscriptions"`
}

// LoadSeedFile reads subscription seeds from a YAML file. Environment
// variables in the file are expanded.
func LoadSeedFile(path string) ([]Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}

	var file seedFile
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &file); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}

	for i, seed := range file.Subscriptions {
		if strings.TrimSpace(seed.URL) == "" || strings.TrimSpace(seed.Target) == "" {
			return nil, fmt.Errorf("seed %d: url and target are required", i)
		}
	}
	return file.Subscriptions, nil
}

// ApplySeeds creates every seed whose (url, target) pair is not subscribed yet
// and returns the number created.
func ApplySeeds(ctx context.Context, subs SubscriptionStore, seeds []Seed) (int, error) {
	existing, err := subs.List(ctx)
	if err != nil {
		return 0, err
	}

	known := make(map[Seed]bool, len(existing))
	for _, sub := range existing {
		known[Seed{URL: sub.URL, Target: sub.NotificationTarget}] = true
	}

	created := 0
	for _, seed := range seeds {
		if known[seed] {
			continue
		}
		if _, err := subs.Create(ctx, seed.URL, seed.Target); err != nil {
			return created, fmt.Errorf("create seed subscription: %w", err)
		}
		known[seed] = true
		created++
	}
	return created, nil
}
