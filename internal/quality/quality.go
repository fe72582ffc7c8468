package quality

import (
	"errors"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	"watch-transcoder/internal/probe"
)

// Tier is a named quality profile with fixed encode parameters.
type Tier string

const (
	Tier240p  Tier = "240p"
	Tier360p  Tier = "360p"
	Tier480p  Tier = "480p"
	Tier720p  Tier = "720p"
	Tier1080p Tier = "1080p"
	Tier4K    Tier = "4k"
)

// tierOrder is the total ordering used for upscale prevention.
// Lower index means lower quality.
var tierOrder = []Tier{Tier240p, Tier360p, Tier480p, Tier720p, Tier1080p, Tier4K}

// Preset holds the static encode parameters bound to a tier.
type Preset struct {
	VideoBitrate string `yaml:"videoBitrate" json:"videoBitrate"`
	AudioBitrate string `yaml:"audioBitrate" json:"audioBitrate"`
	Resolution   string `yaml:"resolution" json:"resolution"`
	CRF          int    `yaml:"crf" json:"crf"`
}

var presets = map[Tier]Preset{
	Tier240p:  {VideoBitrate: "500k", AudioBitrate: "64k", Resolution: "426x240", CRF: 28},
	Tier360p:  {VideoBitrate: "800k", AudioBitrate: "96k", Resolution: "640x360", CRF: 26},
	Tier480p:  {VideoBitrate: "1200k", AudioBitrate: "128k", Resolution: "854x480", CRF: 24},
	Tier720p:  {VideoBitrate: "2500k", AudioBitrate: "192k", Resolution: "1280x720", CRF: 22},
	Tier1080p: {VideoBitrate: "5000k", AudioBitrate: "256k", Resolution: "1920x1080", CRF: 20},
	Tier4K:    {VideoBitrate: "15000k", AudioBitrate: "320k", Resolution: "3840x2160", CRF: 18},
}

// ErrInvalidQuality is returned when an unknown tier is requested.
var ErrInvalidQuality = errors.New("invalid quality tier")

// Parse validates a requested quality string and returns its tier.
func Parse(s string) (Tier, error) {
	t := Tier(s)
	if _, ok := presets[t]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidQuality, s)
	}
	return t, nil
}

// Tiers returns all tiers in ascending quality order.
func Tiers() []Tier {
	out := make([]Tier, len(tierOrder))
	copy(out, tierOrder)
	return out
}

// PresetFor returns the encode parameters for a tier.
func PresetFor(t Tier) Preset {
	return presets[t]
}

func (t Tier) index() int {
	for i, candidate := range tierOrder {
		if candidate == t {
			return i
		}
	}
	return -1
}

// FromHeight maps a source video height to its capability tier.
func FromHeight(height int) Tier {
	switch {
	case height <= 240:
		return Tier240p
	case height <= 360:
		return Tier360p
	case height <= 480:
		return Tier480p
	case height <= 720:
		return Tier720p
	case height <= 1080:
		return Tier1080p
	default:
		return Tier4K
	}
}

// Resolve negotiates the target tier for a request: the lower of the
// requested tier and the source capability derived from the probed
// height, so a rendition is never upscaled beyond its source.
//
// When probe data is unavailable or carries no video stream the
// requested tier is returned as-is; this is a documented fallback, not
// an error.
func Resolve(info *probe.MediaInfo, requested Tier) Tier {
	if !info.HasVideo() {
		return requested
	}

	capability := FromHeight(info.Height)
	if capability.index() < requested.index() {
		return capability
	}
	return requested
}

// LoadPresetFile replaces encode parameters for known tiers from a YAML
// file mapping tier names to presets. The tier set and its ordering are
// fixed; an entry for an unknown tier is rejected. Intended to run once
// at startup, before any worker is started.
func LoadPresetFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read preset file: %w", err)
	}

	var overrides map[Tier]Preset
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return fmt.Errorf("parse preset file %s: %w", path, err)
	}

	for t, p := range overrides {
		if _, ok := presets[t]; !ok {
			return fmt.Errorf("%w: preset override for %q", ErrInvalidQuality, t)
		}
		merged := presets[t]
		if p.VideoBitrate != "" {
			merged.VideoBitrate = p.VideoBitrate
		}
		if p.AudioBitrate != "" {
			merged.AudioBitrate = p.AudioBitrate
		}
		if p.Resolution != "" {
			merged.Resolution = p.Resolution
		}
		if p.CRF != 0 {
			merged.CRF = p.CRF
		}
		presets[t] = merged
	}

	return nil
}
