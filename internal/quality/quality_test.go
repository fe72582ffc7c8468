package quality

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"watch-transcoder/internal/probe"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    Tier
		wantErr bool
	}{
		{"lowest tier", "240p", Tier240p, false},
		{"mid tier", "720p", Tier720p, false},
		{"highest tier", "4k", Tier4K, false},
		{"unknown tier", "8k", "", true},
		{"empty string", "", "", true},
		{"case sensitive", "720P", "", true},
		{"arbitrary string", "best", "", true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Parse(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidQuality) {
					t.Errorf("Parse(%q) error = %v, want ErrInvalidQuality", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestTiersOrdering(t *testing.T) {
	t.Parallel()

	tiers := Tiers()
	want := []Tier{Tier240p, Tier360p, Tier480p, Tier720p, Tier1080p, Tier4K}

	if len(tiers) != len(want) {
		t.Fatalf("Tiers() returned %d tiers, want %d", len(tiers), len(want))
	}
	for i, tier := range want {
		if tiers[i] != tier {
			t.Errorf("Tiers()[%d] = %v, want %v", i, tiers[i], tier)
		}
	}
}

func TestFromHeight(t *testing.T) {
	t.Parallel()

	tests := []struct {
		height int
		want   Tier
	}{
		{144, Tier240p},
		{240, Tier240p},
		{241, Tier360p},
		{360, Tier360p},
		{480, Tier480p},
		{720, Tier720p},
		{1080, Tier1080p},
		{1081, Tier4K},
		{2160, Tier4K},
		{4320, Tier4K},
	}

	for _, tt := range tests {
		tt := tt
		if got := FromHeight(tt.height); got != tt.want {
			t.Errorf("FromHeight(%d) = %v, want %v", tt.height, got, tt.want)
		}
	}
}

func TestResolve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		info      *probe.MediaInfo
		requested Tier
		want      Tier
	}{
		{
			name:      "request above source capability is capped",
			info:      &probe.MediaInfo{Height: 720},
			requested: Tier1080p,
			want:      Tier720p,
		},
		{
			name:      "request at source capability passes through",
			info:      &probe.MediaInfo{Height: 720},
			requested: Tier720p,
			want:      Tier720p,
		},
		{
			name:      "request below source capability passes through",
			info:      &probe.MediaInfo{Height: 2160},
			requested: Tier480p,
			want:      Tier480p,
		},
		{
			name:      "nil probe info falls back to requested",
			info:      nil,
			requested: Tier1080p,
			want:      Tier1080p,
		},
		{
			name:      "probe without video stream falls back to requested",
			info:      &probe.MediaInfo{Duration: 60},
			requested: Tier4K,
			want:      Tier4K,
		},
		{
			name:      "non-standard source height maps to nearest tier",
			info:      &probe.MediaInfo{Height: 768},
			requested: Tier4K,
			want:      Tier1080p,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := Resolve(tt.info, tt.requested); got != tt.want {
				t.Errorf("Resolve(%+v, %v) = %v, want %v", tt.info, tt.requested, got, tt.want)
			}
		})
	}
}

func TestPresetFor(t *testing.T) {
	t.Parallel()

	p := PresetFor(Tier720p)
	if p.Resolution != "1280x720" {
		t.Errorf("PresetFor(720p).Resolution = %q, want 1280x720", p.Resolution)
	}
	if p.VideoBitrate == "" || p.AudioBitrate == "" {
		t.Error("PresetFor(720p) returned empty bitrates")
	}
	if p.CRF == 0 {
		t.Error("PresetFor(720p) returned zero CRF")
	}
}

func TestLoadPresetFile(t *testing.T) {
	// Mutates the package-level preset table; not parallel.
	original := presets[Tier480p]
	defer func() { presets[Tier480p] = original }()

	path := filepath.Join(t.TempDir(), "presets.yaml")
	content := `480p:
  videoBitrate: 1500k
  crf: 23
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write preset file: %v", err)
	}

	if err := LoadPresetFile(path); err != nil {
		t.Fatalf("LoadPresetFile failed: %v", err)
	}

	p := PresetFor(Tier480p)
	if p.VideoBitrate != "1500k" {
		t.Errorf("VideoBitrate = %q, want 1500k", p.VideoBitrate)
	}
	if p.CRF != 23 {
		t.Errorf("CRF = %d, want 23", p.CRF)
	}
	// Unset fields keep their defaults
	if p.AudioBitrate != original.AudioBitrate {
		t.Errorf("AudioBitrate = %q, want %q (unchanged)", p.AudioBitrate, original.AudioBitrate)
	}
	if p.Resolution != original.Resolution {
		t.Errorf("Resolution = %q, want %q (unchanged)", p.Resolution, original.Resolution)
	}
}

func TestLoadPresetFileUnknownTier(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "presets.yaml")
	if err := os.WriteFile(path, []byte("8k:\n  crf: 10\n"), 0o644); err != nil {
		t.Fatalf("failed to write preset file: %v", err)
	}

	err := LoadPresetFile(path)
	if !errors.Is(err, ErrInvalidQuality) {
		t.Errorf("LoadPresetFile with unknown tier: error = %v, want ErrInvalidQuality", err)
	}
}

func TestLoadPresetFileMissing(t *testing.T) {
	t.Parallel()

	if err := LoadPresetFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("LoadPresetFile with missing file should return an error")
	}
}
