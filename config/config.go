package config

import (
	"fmt"
	"os"

	"git.fiblab.net/sim/ptaccess/converter"
	"git.fiblab.net/sim/ptaccess/modes"
	"git.fiblab.net/sim/ptaccess/network"
	"github.com/go-playground/validator/v10"
	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

var log = logrus.WithField("module", "config")

// Layer is one mode layer of the network.
type Layer struct {
	ID    string   `yaml:"id" validate:"required"`
	Modes []string `yaml:"modes" validate:"required,min=1,dive,oneof=car bus tram lightrail train subway ferry"`
}

// BoundingBox limits the entities that are materialized, in degrees.
type BoundingBox struct {
	MinLon float64 `yaml:"minLon" validate:"gte=-180,lte=180"`
	MinLat float64 `yaml:"minLat" validate:"gte=-90,lte=90"`
	MaxLon float64 `yaml:"maxLon" validate:"gte=-180,lte=180,gtfield=MinLon"`
	MaxLat float64 `yaml:"maxLat" validate:"gte=-90,lte=90,gtfield=MinLat"`
}

// Settings is the settings file of one conversion.
type Settings struct {
	Activated bool    `yaml:"activated"`
	Layers    []Layer `yaml:"layers" validate:"required,min=1,unique=ID,dive"`
	// OSM mode -> internal mode, OSM modes not listed are not mapped
	ModeMapping          map[string]string `yaml:"modeMapping" validate:"required,dive,keys,required,endkeys,oneof=car bus tram lightrail train subway ferry"`
	BoundingBox          *BoundingBox      `yaml:"boundingBox"`
	AllowPseudoModeMatch bool              `yaml:"allowPseudoModeMatch"`
	// 仅在导出中标记，不删除
	FlagDanglingZones bool `yaml:"flagDanglingZones"`
}

func defaultLayers() []Layer {
	return []Layer{
		{ID: "rail", Modes: []string{"tram", "lightrail", "train", "subway"}},
		{ID: "road", Modes: []string{"car", "bus"}},
		{ID: "water", Modes: []string{"ferry"}},
	}
}

func defaultModeMapping() map[string]string {
	return map[string]string{
		"motorcar":   "car",
		"bus":        "bus",
		"trolleybus": "bus",
		"share_taxi": "bus",
		"tram":       "tram",
		"light_rail": "lightrail",
		"monorail":   "lightrail",
		"train":      "train",
		"funicular":  "train",
		"subway":     "subway",
		"ferry":      "ferry",
	}
}

// Default returns the built-in settings.
func Default() Settings {
	return Settings{
		Activated:            true,
		Layers:               defaultLayers(),
		ModeMapping:          defaultModeMapping(),
		AllowPseudoModeMatch: true,
	}
}

// Load reads a YAML settings file. Keys absent from the file keep their
// default; layers and modeMapping replace the defaults as a whole.
func Load(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, err
	}
	s := Default()
	s.Layers = nil
	s.ModeMapping = nil
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if s.Layers == nil {
		s.Layers = defaultLayers()
	}
	if s.ModeMapping == nil {
		s.ModeMapping = defaultModeMapping()
	}
	if err := s.Validate(); err != nil {
		return Settings{}, fmt.Errorf("validate %s: %w", path, err)
	}
	log.Infof("settings loaded from %s", path)
	return s, nil
}

func (s Settings) Validate() error {
	return validator.New().Struct(s)
}

func (s Settings) Mapping() *modes.Mapping {
	table := make(map[string]modes.Mode, len(s.ModeMapping))
	for k, v := range s.ModeMapping {
		table[k] = modes.Mode(v)
	}
	return modes.NewMapping(table)
}

func (s Settings) LayerSpecs() []network.LayerSpec {
	specs := make([]network.LayerSpec, 0, len(s.Layers))
	for _, l := range s.Layers {
		ms := modes.NewSet()
		for _, m := range l.Modes {
			ms.Add(modes.Mode(m))
		}
		specs = append(specs, network.LayerSpec{ID: l.ID, Modes: ms})
	}
	return specs
}

// Bound returns the bounding box, false when none is set.
func (s Settings) Bound() (orb.Bound, bool) {
	if s.BoundingBox == nil {
		return orb.Bound{}, false
	}
	b := s.BoundingBox
	return orb.Bound{Min: orb.Point{b.MinLon, b.MinLat}, Max: orb.Point{b.MaxLon, b.MaxLat}}, true
}

func (s Settings) Converter() converter.Settings {
	return converter.Settings{
		Activated:            s.Activated,
		Mapping:              s.Mapping(),
		AllowPseudoModeMatch: s.AllowPseudoModeMatch,
	}
}
