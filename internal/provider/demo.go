package provider

import (
	"time"

	"github.com/stevechez/influencer-portfolio/internal/shot"
)

// DemoShots is the fixture set served by demo mode. Images are bundled
// under /assets/demo.
func DemoShots() []shot.Shot {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	mk := func(n int, id, caption string, w, h int, tags ...string) shot.Shot {
		return shot.Shot{
			ID:        id,
			PublicID:  id + ".svg",
			Width:     w,
			Height:    h,
			Caption:   caption,
			Tags:      tags,
			Format:    "svg",
			Bytes:     int64(1800 + 97*n),
			CreatedAt: base.Add(-time.Duration(n) * 36 * time.Hour),
		}
	}
	return []shot.Shot{
		mk(0, "dune-light", "Dune light", 800, 1200, "editorial", "beach", "model-sarah"),
		mk(1, "neon-hall", "Neon hall", 1200, 800, "night", "model-lena"),
		mk(2, "linen-room", "Linen room", 1000, 1000, "studio", "model-sarah"),
		mk(3, "tide-pool", "Tide pool", 900, 1350, "beach", "model-maya"),
		mk(4, "chrome-set", "Chrome set", 1200, 900, "studio", "editorial", "model-lena"),
		mk(5, "late-train", "Late train", 800, 1100, "night", "model-sarah"),
		mk(6, "salt-air", "Salt air", 1400, 900, "beach", "model-lena"),
		mk(7, "paper-moon", "Paper moon", 1000, 1400, "editorial", "night", "model-maya"),
	}
}
