package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type inspectModel struct {
	err      error
	info     *fileInfo
	filename string
	raw      bool
	limit    uint64
	view     viewport.Model
	ready    bool
}

type loadedMsg struct {
	err  error
	info *fileInfo
}

func newInspectModel(filename string, raw bool, limit uint64) *inspectModel {
	return &inspectModel{filename: filename, raw: raw, limit: limit}
}

func (m *inspectModel) Init() tea.Cmd {
	return m.load
}

func (m *inspectModel) load() tea.Msg {
	info, err := inspect(m.filename, m.raw, m.limit)
	if err != nil {
		return loadedMsg{err: err}
	}
	return loadedMsg{info: info}
}

func (m *inspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		case "g":
			m.view.GotoTop()
		case "G":
			m.view.GotoBottom()
		}

	case tea.WindowSizeMsg:
		headerHeight := 4
		footerHeight := 2
		if !m.ready {
			m.view = viewport.New(msg.Width, msg.Height-headerHeight-footerHeight)
			m.ready = true
			if m.info != nil {
				m.view.SetContent(hexdump(m.info.buf.Bytes()))
			}
		} else {
			m.view.Width = msg.Width
			m.view.Height = msg.Height - headerHeight - footerHeight
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.info = msg.info
		if m.ready {
			m.view.SetContent(hexdump(m.info.buf.Bytes()))
		}
	}

	var cmd tea.Cmd
	m.view, cmd = m.view.Update(msg)
	return m, cmd
}

func (m *inspectModel) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}
	if m.info == nil || !m.ready {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("binpack inspect"))
	b.WriteString(" ")
	b.WriteString(m.filename)
	b.WriteString("\n")

	codec := "raw"
	if !m.raw {
		codec = m.info.codec.String()
	}
	b.WriteString(labelStyle.Render("codec "))
	b.WriteString(valueStyle.Render(codec))
	b.WriteString(labelStyle.Render("  sealed "))
	b.WriteString(valueStyle.Render(fmt.Sprintf("%d B", m.info.sealedSize)))
	b.WriteString(labelStyle.Render("  payload "))
	b.WriteString(valueStyle.Render(fmt.Sprintf("%d B", m.info.buf.Len())))
	b.WriteString("\n\n")

	b.WriteString(m.view.View())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(fmt.Sprintf("%3.0f%% • ↑/↓ scroll • g/G top/bottom • q quit", m.view.ScrollPercent()*100)))
	return b.String()
}

func runInteractive(filename string, raw bool, limit uint64) error {
	p := tea.NewProgram(newInspectModel(filename, raw, limit), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
