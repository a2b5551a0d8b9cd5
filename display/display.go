// Package display renders the terminal status panel. It is a pure
// consumer: the runner owns the state, display only reads snapshots.
package display

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"stork_verifier/runner"
)

const (
	panelWidth = 70

	colorReset   = "\033[0m"
	colorCyan    = "\033[36m"
	colorGreen   = "\033[32m"
	colorYellow  = "\033[33m"
	colorRed     = "\033[31m"
	colorMagenta = "\033[35m"

	clearScreen = "\033[H\033[2J"
)

// Run redraws the panel once a second until the context is cancelled.
func Run(ctx context.Context, w io.Writer, snapshot func() runner.View) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fmt.Fprint(w, clearScreen+Render(snapshot()))
		}
	}
}

// Render produces the full panel for one snapshot.
func Render(v runner.View) string {
	var b strings.Builder
	divider := colorCyan + "├" + strings.Repeat("─", panelWidth) + "┤" + colorReset + "\n"

	b.WriteString(colorCyan + "┌" + strings.Repeat("═", panelWidth) + "┐" + colorReset + "\n")
	line(&b, colorCyan+"STORK ORACLE VERIFIER"+colorReset)
	line(&b, fmt.Sprintf("%s%s • account %d/%d%s",
		colorYellow, time.Now().Format("15:04:05"), v.AccountIndex+1, max(v.TotalAccounts, 1), colorReset))

	b.WriteString(divider)
	line(&b, colorMagenta+"user: "+orUnknown(v.Stats.Username)+colorReset)
	line(&b, colorMagenta+"id: "+truncate(orUnknown(v.Stats.UserID), 18)+colorReset)
	line(&b, colorMagenta+"referral: "+orUnknown(v.Stats.ReferralCode)+colorReset)

	b.WriteString(divider)
	line(&b, fmt.Sprintf("%svalid: %d%s", colorGreen, v.Stats.ValidCount, colorReset))
	line(&b, fmt.Sprintf("%sinvalid: %d%s", colorRed, v.Stats.InvalidCount, colorReset))
	line(&b, fmt.Sprintf("%sreferrals: %d%s", colorCyan, v.Stats.Referrals, colorReset))
	line(&b, colorYellow+"last verified: "+orUnknown(formatLastVerified(v.Stats.LastVerified))+colorReset)

	if v.PriceOfBTC != "" {
		line(&b, colorCyan+"BTC: $"+v.PriceOfBTC+colorReset)
	} else {
		line(&b, colorYellow+"waiting for price data..."+colorReset)
	}

	if v.Status != "" {
		b.WriteString(divider)
		line(&b, statusColor(v.Status)+v.Status+colorReset)
	}

	if v.Interval > 0 {
		b.WriteString(divider)
		remaining := v.Interval - v.Elapsed
		if remaining < 0 {
			remaining = 0
		}
		progress := 1 - float64(remaining)/float64(v.Interval)
		line(&b, fmt.Sprintf("%s%3ds %s %3d%%%s",
			colorYellow,
			int(remaining.Seconds()),
			progressBar(progress, panelWidth-20),
			int(progress*100),
			colorReset))
	}

	b.WriteString(colorCyan + "└" + strings.Repeat("═", panelWidth) + "┘" + colorReset + "\n")
	return b.String()
}

func line(b *strings.Builder, text string) {
	pad := panelWidth - visibleLen(text)
	left := pad / 2
	if left < 0 {
		left = 0
	}
	right := pad - left
	if right < 0 {
		right = 0
	}
	b.WriteString(colorCyan + "│" + colorReset +
		strings.Repeat(" ", left) + text + strings.Repeat(" ", right) +
		colorCyan + "│" + colorReset + "\n")
}

// visibleLen counts runes, skipping ANSI escape sequences.
func visibleLen(s string) int {
	n := 0
	inEscape := false
	for _, r := range s {
		switch {
		case inEscape:
			if r == 'm' {
				inEscape = false
			}
		case r == '\033':
			inEscape = true
		default:
			n++
		}
	}
	return n
}

func progressBar(progress float64, width int) string {
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}
	filled := int(float64(width) * progress)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func statusColor(status string) string {
	switch {
	case strings.Contains(status, "failed") || strings.Contains(status, "cannot"):
		return colorRed
	case strings.Contains(status, "done"):
		return colorGreen
	default:
		return colorYellow
	}
}

func formatLastVerified(raw string) string {
	if raw == "" {
		return ""
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.Local().Format("01-02 15:04")
	}
	return raw
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
