package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/wippyai/scale-codec/metadata"
	"github.com/wippyai/scale-codec/registry"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	palletStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFD700"))

	hashStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type explorerState int

const (
	stateSelectPallet explorerState = iota
	stateShowPallet
)

type explorerModel struct {
	meta     *metadata.Metadata
	source   string
	filter   textinput.Model
	visible  []int // indices into meta.Pallets after filtering
	selected int
	state    explorerState
}

func newExplorerModel(m *metadata.Metadata, source string) *explorerModel {
	ti := textinput.New()
	ti.Placeholder = "filter pallets"
	ti.Prompt = "/ "
	ti.Width = 30
	ti.Focus()

	em := &explorerModel{
		meta:   m,
		source: source,
		filter: ti,
		state:  stateSelectPallet,
	}
	em.applyFilter()
	return em
}

func (m *explorerModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *explorerModel) applyFilter() {
	needle := strings.ToLower(m.filter.Value())
	m.visible = m.visible[:0]
	for i := range m.meta.Pallets {
		if needle == "" || strings.Contains(strings.ToLower(m.meta.Pallets[i].Name), needle) {
			m.visible = append(m.visible, i)
		}
	}
	if m.selected >= len(m.visible) {
		m.selected = 0
	}
}

func (m *explorerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "up":
			if m.state == stateSelectPallet && m.selected > 0 {
				m.selected--
			}
			return m, nil

		case "down":
			if m.state == stateSelectPallet && m.selected < len(m.visible)-1 {
				m.selected++
			}
			return m, nil

		case "enter":
			if m.state == stateSelectPallet && len(m.visible) > 0 {
				m.state = stateShowPallet
			}
			return m, nil

		case "esc":
			if m.state == stateShowPallet {
				m.state = stateSelectPallet
				return m, nil
			}
			if m.filter.Value() != "" {
				m.filter.SetValue("")
				m.applyFilter()
				return m, nil
			}
			return m, tea.Quit

		case "q":
			// Quit from the detail view; in the list the letter goes to
			// the filter.
			if m.state == stateShowPallet {
				m.state = stateSelectPallet
				return m, nil
			}
		}
	}

	if m.state == stateSelectPallet {
		var cmd tea.Cmd
		m.filter, cmd = m.filter.Update(msg)
		m.applyFilter()
		return m, cmd
	}
	return m, nil
}

func (m *explorerModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Metadata Explorer"))
	b.WriteString(fmt.Sprintf(" %s (v%d)\n\n", m.source, m.meta.Version))

	switch m.state {
	case stateSelectPallet:
		b.WriteString(m.filter.View())
		b.WriteString("\n\n")
		for row, idx := range m.visible {
			p := &m.meta.Pallets[idx]
			line := fmt.Sprintf("%3d  %s", p.Index, p.Name)
			if row == m.selected {
				b.WriteString(selectedStyle.Render("> " + line))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		if len(m.visible) == 0 {
			b.WriteString(helpStyle.Render("no pallets match"))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter open • esc clear/quit • ctrl+c quit"))

	case stateShowPallet:
		p := &m.meta.Pallets[m.visible[m.selected]]
		b.WriteString(m.renderPallet(p))
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("esc/q back • ctrl+c quit"))
	}

	return b.String()
}

func (m *explorerModel) renderPallet(p *metadata.Pallet) string {
	var b strings.Builder
	types := m.meta.Types

	b.WriteString(palletStyle.Render(p.Name))
	b.WriteString(fmt.Sprintf("  index %d\n", p.Index))
	h := metadata.NewHasher(m.meta).OnlyPallets([]string{p.Name}).Hash()
	b.WriteString(hashStyle.Render(fmt.Sprintf("hash %x\n", h[:8])))

	if p.Calls != nil {
		if t, ok := types.Resolve(*p.Calls); ok {
			b.WriteString("\n")
			b.WriteString(sectionStyle.Render("Calls"))
			b.WriteString("\n")
			for _, v := range t.Variants {
				b.WriteString(fmt.Sprintf("  [%d] %s%s\n", v.Index, v.Name, renderCallArgs(types, v)))
			}
		}
	}

	if p.Storage != nil && len(p.Storage.Entries) > 0 {
		b.WriteString("\n")
		b.WriteString(sectionStyle.Render("Storage"))
		b.WriteString(fmt.Sprintf(" (prefix %s)\n", p.Storage.Prefix))
		for i := range p.Storage.Entries {
			e := &p.Storage.Entries[i]
			if e.IsMap() {
				hashers := make([]string, len(e.Hashers))
				for j, hh := range e.Hashers {
					hashers[j] = hh.String()
				}
				b.WriteString(fmt.Sprintf("  %s: map[%s] %s -> %s\n", e.Name,
					strings.Join(hashers, ", "),
					typeStyle.Render(types.Name(*e.Key)),
					typeStyle.Render(types.Name(e.Value))))
			} else {
				b.WriteString(fmt.Sprintf("  %s: %s\n", e.Name, typeStyle.Render(types.Name(e.Value))))
			}
		}
	}

	if len(p.Constants) > 0 {
		b.WriteString("\n")
		b.WriteString(sectionStyle.Render("Constants"))
		b.WriteString("\n")
		for i := range p.Constants {
			c := &p.Constants[i]
			b.WriteString(fmt.Sprintf("  %s: %s\n", c.Name, typeStyle.Render(types.Name(c.Type))))
		}
	}

	return b.String()
}

func renderCallArgs(types *registry.Registry, v registry.VariantDef) string {
	if len(v.Fields) == 0 {
		return ""
	}
	parts := make([]string, len(v.Fields))
	for i, f := range v.Fields {
		if f.Name != "" {
			parts[i] = f.Name + ": " + typeStyle.Render(types.Name(f.Type))
		} else {
			parts[i] = typeStyle.Render(types.Name(f.Type))
		}
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func runInteractive(m *metadata.Metadata, source string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("interactive mode requires a terminal")
	}
	p := tea.NewProgram(newExplorerModel(m, source), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
