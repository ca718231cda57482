// Package theme configures the Tk styles used by the window.
package theme

import (
	tk "modernc.org/tk9.0"
)

// Palette is one resolved colour set.
type Palette struct {
	Background string
	Surface    string
	Primary    string
	Danger     string
	Accent     string
	Text       string
}

var (
	Light = Palette{
		Background: "#f7f9fb",
		Surface:    "#ffffff",
		Primary:    "#2563eb",
		Danger:     "#dc2626",
		Accent:     "#10b981",
		Text:       "#1e293b",
	}
	Dark = Palette{
		Background: "#0f172a",
		Surface:    "#1e293b",
		Primary:    "#3b82f6",
		Danger:     "#ef4444",
		Accent:     "#10b981",
		Text:       "#f1f5f9",
	}
)

// Style names for Style(...) options.
const (
	StylePrimaryButton = "primary.TButton"
	StyleDangerButton  = "danger.TButton"
	StyleStateLabel    = "state.TLabel"
)

// Init activates the base theme and applies p to the named styles.
func Init(p Palette) {
	_ = tk.ActivateTheme("azure light")
	tk.App.Configure(tk.Background(p.Background))
	tk.StyleConfigure(StylePrimaryButton, tk.Background(p.Primary), tk.Foreground("white"), tk.Padding("4p 3p"), tk.Borderwidth(1), tk.Relief("ridge"))
	tk.StyleConfigure(StyleDangerButton, tk.Background(p.Danger), tk.Foreground("white"), tk.Padding("4p 3p"), tk.Borderwidth(1), tk.Relief("ridge"))
	tk.StyleConfigure(StyleStateLabel, tk.Background(p.Accent), tk.Foreground(p.Surface), tk.Padding("4p 2p"), tk.Borderwidth(1), tk.Relief("groove"))
}
