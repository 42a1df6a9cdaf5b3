package buff

// FallbackGlyph is shown for buffs that have no entry in the icon table.
const FallbackGlyph = "✨"

// IconTable maps buff names to the markup of their icon.
type IconTable struct {
	Glyphs   map[string]string
	Fallback string
}

// DefaultIcons returns the built-in Font Awesome table.
func DefaultIcons() IconTable {
	return IconTable{
		Glyphs: map[string]string{
			"speed":        `<i class="fa-solid fa-bolt"></i>`,
			"stamina":      `<i class="fa-solid fa-heart-pulse"></i>`,
			"focus":        `<i class="fa-solid fa-bullseye"></i>`,
			"intelligence": `<i class="fa-solid fa-brain"></i>`,
			"strength":     `<i class="fa-solid fa-dumbbell"></i>`,
		},
		Fallback: FallbackGlyph,
	}
}

// Lookup returns the glyph for name, or the fallback when unmapped.
func (t IconTable) Lookup(name string) string {
	if glyph, ok := t.Glyphs[name]; ok && glyph != "" {
		return glyph
	}
	if t.Fallback == "" {
		return FallbackGlyph
	}
	return t.Fallback
}
