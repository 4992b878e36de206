package bootstrap

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Seed lists catalog entries and bus clients created at startup.
//
//	scopes:
//	  - value: water:read
//	    name: Read water data
//	roles:
//	  - name: analyst
//	    scopes: [water:read]
//	clients:
//	  - client_id: water-usage-forecasts
//	    secret: change-me
type Seed struct {
	Scopes  []SeedScope  `yaml:"scopes"`
	Roles   []SeedRole   `yaml:"roles"`
	Clients []SeedClient `yaml:"clients"`
}

// SeedScope is one scope of the seed file.
type SeedScope struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Value       string `yaml:"value"`
}

// SeedRole is one role of the seed file.
type SeedRole struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Scopes      []string `yaml:"scopes"`
}

// SeedClient is one message bus client. Secret is stored hashed.
type SeedClient struct {
	ClientID    string `yaml:"client_id"`
	Secret      string `yaml:"secret"`
	Description string `yaml:"description"`
}

// LoadSeed reads a seed file. An empty path yields an empty seed.
func LoadSeed(path string) (*Seed, error) {
	if path == "" {
		return &Seed{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return ParseSeed(data)
}

// ParseSeed decodes seed YAML. Unknown keys are rejected.
func ParseSeed(data []byte) (*Seed, error) {
	var seed Seed
	if len(data) == 0 {
		return &seed, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&seed); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}

	for i, c := range seed.Clients {
		if c.ClientID == "" || c.Secret == "" {
			return nil, fmt.Errorf("seed client #%d: client_id and secret are required", i+1)
		}
	}
	return &seed, nil
}
