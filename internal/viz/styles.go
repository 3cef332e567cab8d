package viz

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00ffff")).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(lipgloss.Color("#444466"))

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444466")).
			Padding(0, 1)

	labelStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(12)
	valueStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	activeParamStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	graphStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("49"))
	helpStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#666688")).Italic(true)
	wheelStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#5fd7ff"))

	statusTracking = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ff88"))
	statusReleased = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ffaa00"))
	statusFault    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ff4444"))

	barPositive = lipgloss.NewStyle().Foreground(lipgloss.Color("#00ff88"))
	barNegative = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff8800"))
	barLimit    = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff4444"))
)

// DutyBar renders a signed duty as a bar growing left or right from the
// centre. A command at the limit is drawn in the alarm colour.
func DutyBar(duty, limit float64, width int) string {
	half := width / 2
	if limit <= 0 {
		return strings.Repeat("░", half) + "│" + strings.Repeat("░", half)
	}

	frac := duty / limit
	if frac > 1 {
		frac = 1
	} else if frac < -1 {
		frac = -1
	}
	filled := int(abs(frac)*float64(half) + 0.5)

	style := barPositive
	if duty < 0 {
		style = barNegative
	}
	if abs(frac) >= 1 {
		style = barLimit
	}

	left := strings.Repeat("░", half)
	right := strings.Repeat("░", half)
	if duty < 0 {
		left = strings.Repeat("░", half-filled) + style.Render(strings.Repeat("█", filled))
	} else {
		right = style.Render(strings.Repeat("█", filled)) + strings.Repeat("░", half-filled)
	}
	return left + "│" + right
}

// SparklineChart renders a mini sparkline from values
func SparklineChart(values []float64, width int) string {
	if len(values) == 0 || width <= 0 {
		return strings.Repeat("─", max(width, 0))
	}

	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	rng := hi - lo
	if rng == 0 {
		rng = 1
	}

	if len(values) > width {
		values = values[len(values)-width:]
	}

	var result strings.Builder
	for _, v := range values {
		idx := int((v - lo) / rng * float64(len(chars)-1))
		idx = max(0, min(idx, len(chars)-1))
		result.WriteRune(chars[idx])
	}
	return result.String()
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
