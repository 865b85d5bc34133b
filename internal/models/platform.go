package models

// PlatformSpec describes one target rendition profile. The table is
// read-only after initialization.
type PlatformSpec struct {
	Name        string `json:"name"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	MaxDuration int    `json:"max_duration"`
	FPS         int    `json:"fps"`
	Bitrate     string `json:"bitrate"`
}

var platformSpecs = map[string]PlatformSpec{
	"tiktok": {
		Name:        "tiktok",
		Width:       1080,
		Height:      1920,
		MaxDuration: 60,
		FPS:         30,
		Bitrate:     "6M",
	},
	"instagram_reels": {
		Name:        "instagram_reels",
		Width:       1080,
		Height:      1920,
		MaxDuration: 90,
		FPS:         30,
		Bitrate:     "5M",
	},
	"youtube_shorts": {
		Name:        "youtube_shorts",
		Width:       1080,
		Height:      1920,
		MaxDuration: 60,
		FPS:         30,
		Bitrate:     "8M",
	},
	"instagram_feed": {
		Name:        "instagram_feed",
		Width:       1080,
		Height:      1080,
		MaxDuration: 60,
		FPS:         30,
		Bitrate:     "5M",
	},
	"twitter": {
		Name:        "twitter",
		Width:       1280,
		Height:      720,
		MaxDuration: 140,
		FPS:         30,
		Bitrate:     "5M",
	},
	"linkedin": {
		Name:        "linkedin",
		Width:       1280,
		Height:      720,
		MaxDuration: 600,
		FPS:         30,
		Bitrate:     "5M",
	},
}

func PlatformSpecFor(name string) (PlatformSpec, bool) {
	spec, ok := platformSpecs[name]
	return spec, ok
}

func KnownPlatforms() []string {
	names := make([]string, 0, len(platformSpecs))
	for name := range platformSpecs {
		names = append(names, name)
	}
	return names
}
