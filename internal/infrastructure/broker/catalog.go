package broker

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	vo "github.com/autotraderhub/autotrader/internal/domain/brokerconnection/valueobjects"
	"github.com/autotraderhub/autotrader/internal/shared/biztime"
)

//go:embed catalog.yaml
var catalogYAML []byte

// CatalogEntry describes one supported broker.
type CatalogEntry struct {
	Name           vo.BrokerName `yaml:"name" json:"name"`
	DisplayName    string        `yaml:"display_name" json:"display_name"`
	AuthMode       vo.AuthMode   `yaml:"auth_mode" json:"auth_mode"`
	Timezone       string        `yaml:"timezone,omitempty" json:"timezone,omitempty"`
	SessionCutover string        `yaml:"session_cutover,omitempty" json:"session_cutover,omitempty"`
	DocsURL        string        `yaml:"docs_url" json:"docs_url"`
}

// TimezoneName is the broker's timezone, or the business timezone when the
// catalog leaves it out.
func (e CatalogEntry) TimezoneName() string {
	if e.Timezone != "" {
		return e.Timezone
	}
	return biztime.Location().String()
}

// Cutover parses the daily session cutover. ok is false for brokers whose
// sessions do not expire.
func (e CatalogEntry) Cutover() (cutover biztime.DailyCutover, ok bool, err error) {
	if e.SessionCutover == "" {
		return biztime.DailyCutover{}, false, nil
	}
	cutover, err = biztime.ParseCutover(e.SessionCutover, e.Timezone)
	if err != nil {
		return biztime.DailyCutover{}, false, fmt.Errorf("broker %s: %w", e.Name, err)
	}
	return cutover, true, nil
}

type catalogFile struct {
	Brokers []CatalogEntry `yaml:"brokers"`
}

// LoadCatalog parses the embedded broker catalog.
func LoadCatalog() (map[vo.BrokerName]CatalogEntry, error) {
	return parseCatalog(catalogYAML)
}

func parseCatalog(data []byte) (map[vo.BrokerName]CatalogEntry, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse broker catalog: %w", err)
	}

	entries := make(map[vo.BrokerName]CatalogEntry, len(file.Brokers))
	for _, e := range file.Brokers {
		if !e.Name.IsValid() {
			return nil, fmt.Errorf("broker catalog: unsupported broker %q", e.Name)
		}
		if !e.AuthMode.IsValid() {
			return nil, fmt.Errorf("broker catalog: %s has invalid auth mode %q", e.Name, e.AuthMode)
		}
		if _, _, err := e.Cutover(); err != nil {
			return nil, err
		}
		entries[e.Name] = e
	}
	return entries, nil
}

// MustCatalogEntry returns the embedded entry for name or panics. It is meant
// for wiring capabilities at startup.
func MustCatalogEntry(name vo.BrokerName) CatalogEntry {
	entries, err := LoadCatalog()
	if err != nil {
		panic(err)
	}
	e, ok := entries[name]
	if !ok {
		panic(fmt.Sprintf("broker catalog: missing entry for %s", name))
	}
	return e
}
