package application

import (
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-npp/internal/domain"
)

// ScenarioLoader parses and validates scenario configuration files,
// turning declarative YAML into runnable scenario definitions.
type ScenarioLoader struct {
	validator *validator.Validate
}

// NewScenarioLoader creates a loader with the electoral validation rules
// registered. It returns an error if validator registration fails.
func NewScenarioLoader() (*ScenarioLoader, error) {
	v := validator.New()
	if err := registerCustomValidators(v); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}
	return &ScenarioLoader{validator: v}, nil
}

// LoadFromFile loads and validates a scenario configuration file.
func (sl *ScenarioLoader) LoadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open configuration file %s: %w", path, err)
	}
	defer f.Close()

	cfg, err := sl.LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader loads and validates scenario configuration from a reader.
// Defaults are propagated into each scenario before validation, so a
// scenario is judged on its effective values.
func (sl *ScenarioLoader) LoadFromReader(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if len(cfg.Scenarios) == 0 {
		return nil, ErrNoScenarios
	}

	for name, sc := range cfg.Scenarios {
		sc.applyDefaults(&cfg.Defaults)
		if err := sl.validator.Struct(&sc); err != nil {
			return nil, fmt.Errorf("scenario %q is invalid: %w", name, err)
		}
		// Surface group-set problems (empty groups, empty names) at load
		// time rather than mid-run.
		if _, err := domain.NewGroupSet(sc.Groups); err != nil {
			return nil, fmt.Errorf("scenario %q is invalid: %w", name, err)
		}
		cfg.Scenarios[name] = sc
	}
	return &cfg, nil
}
