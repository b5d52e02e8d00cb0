package cli

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/mkessler/mapgate-go/internal/models"
)

// Theme holds the color scheme for ledger output.
type Theme struct {
	Low      lipgloss.Color
	Medium   lipgloss.Color
	High     lipgloss.Color
	Critical lipgloss.Color
	Hint     lipgloss.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	Low:      lipgloss.Color("#00D787"), // green
	Medium:   lipgloss.Color("#5FAFD7"), // light blue
	High:     lipgloss.Color("#FFAF00"), // amber
	Critical: lipgloss.Color("#FF005F"), // red
	Hint:     lipgloss.Color("#6C6C6C"), // dim gray
}

// riskStyle returns the style for a risk level. CRITICAL is additionally
// bold so it stands out when scanning a long ledger.
func (t Theme) riskStyle(r models.RiskLevel) lipgloss.Style {
	switch r {
	case models.RiskCritical:
		return lipgloss.NewStyle().Foreground(t.Critical).Bold(true)
	case models.RiskHigh:
		return lipgloss.NewStyle().Foreground(t.High)
	case models.RiskMedium:
		return lipgloss.NewStyle().Foreground(t.Medium)
	default:
		return lipgloss.NewStyle().Foreground(t.Low)
	}
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

// terminalWidth returns the current terminal width, or a sane default when
// stdout is not a terminal (piped output).
func terminalWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return 120
}
