// Package ui provides terminal styling for tix CLI output.
// Uses the Ayu color theme with adaptive light/dark mode support.
package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/tixhq/tix/internal/types"
)

// Ayu theme color palette
var (
	ColorPass   = lipgloss.AdaptiveColor{Light: "#86b300", Dark: "#c2d94c"}
	ColorWarn   = lipgloss.AdaptiveColor{Light: "#f2ae49", Dark: "#ffb454"}
	ColorFail   = lipgloss.AdaptiveColor{Light: "#f07171", Dark: "#f07178"}
	ColorMuted  = lipgloss.AdaptiveColor{Light: "#828c99", Dark: "#6c7680"}
	ColorAccent = lipgloss.AdaptiveColor{Light: "#399ee6", Dark: "#59c2ff"}
)

var (
	PassStyle     = lipgloss.NewStyle().Foreground(ColorPass)
	WarnStyle     = lipgloss.NewStyle().Foreground(ColorWarn)
	FailStyle     = lipgloss.NewStyle().Foreground(ColorFail)
	MutedStyle    = lipgloss.NewStyle().Foreground(ColorMuted)
	AccentStyle   = lipgloss.NewStyle().Foreground(ColorAccent)
	CategoryStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
)

// Status icons
const (
	IconPass = "✓"
	IconFail = "✗"
)

func RenderPass(s string) string     { return PassStyle.Render(s) }
func RenderWarn(s string) string     { return WarnStyle.Render(s) }
func RenderFail(s string) string     { return FailStyle.Render(s) }
func RenderMuted(s string) string    { return MutedStyle.Render(s) }
func RenderAccent(s string) string   { return AccentStyle.Render(s) }
func RenderCategory(s string) string { return CategoryStyle.Render(s) }

func RenderPassIcon() string { return PassStyle.Render(IconPass) }
func RenderFailIcon() string { return FailStyle.Render(IconFail) }

// RenderStatus colors a status by how far along the workflow it is.
func RenderStatus(s types.Status) string {
	switch s {
	case types.StatusDone:
		return RenderPass(string(s))
	case types.StatusDoing:
		return RenderAccent(string(s))
	case types.StatusTodo:
		return RenderWarn(string(s))
	}
	return RenderMuted(string(s))
}

// RenderPriority highlights the urgent priorities.
func RenderPriority(p types.Priority) string {
	switch p {
	case types.PriorityA:
		return FailStyle.Bold(true).Render(p.String())
	case types.PriorityB:
		return RenderWarn(p.String())
	case types.PriorityZ:
		return RenderMuted(p.String())
	}
	return p.String()
}

// RenderID shortens a ticket id to its first n characters.
func RenderID(id string, n int) string {
	if n > 0 && len(id) > n {
		id = id[:n]
	}
	return RenderAccent(id)
}
