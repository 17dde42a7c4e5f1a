package raid

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Recipe is the YAML form of a build, so a lab layout can be kept in a file
// and reproduced. Fields mirror the build command flags; explicit flags win
// over recipe values. Pointer fields distinguish "absent" from zero, since
// level 0 and zero spares are both meaningful values.
type Recipe struct {
	Source    string `yaml:"source"`
	OutputDir string `yaml:"outputDir"`
	Prefix    string `yaml:"prefix"`
	Level     *int   `yaml:"level"`
	Disks     *int   `yaml:"disks"`
	Spares    *int   `yaml:"spares"`
	ChunkSize string `yaml:"chunkSize"`
	DiskSize  string `yaml:"diskSize"`
	Layout    string `yaml:"layout"`
	Direction string `yaml:"direction"`
	Algorithm string `yaml:"algorithm"`
}

func LoadRecipe(path string) (*Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read recipe %v", path)
	}
	recipe := &Recipe{}
	if err := yaml.Unmarshal(data, recipe); err != nil {
		return nil, errors.Wrapf(err, "failed to parse recipe %v", path)
	}
	return recipe, nil
}
