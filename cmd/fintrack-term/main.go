// Command fintrack-term is a terminal client for the tracker's command
// endpoint. It speaks the same text protocol as the web terminal page.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	inputStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	echoStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	lineStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	frameStyle  = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("2")).
			Padding(0, 1)
)

type client struct {
	baseURL string
	token   string
	http    *http.Client
}

type commandResult struct {
	Lines []string `json:"lines"`
	Clear bool     `json:"clear"`
}

func (c *client) execute(command string) (*commandResult, error) {
	body, err := json.Marshal(map[string]string{"command": command})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/api/terminal", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned %s", resp.Status)
	}

	var result commandResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return &result, nil
}

type resultMsg struct {
	echo   string
	result *commandResult
	err    error
}

type model struct {
	client  *client
	log     []string
	input   string
	history []string
	histPos int
	pending bool
	width   int
	height  int
}

func newModel(c *client) model {
	return model{
		client: c,
		log: []string{
			lineStyle.Render("💻 Welcome to Finance Terminal"),
			lineStyle.Render("💡 Type 'help' to see commands"),
		},
	}
}

func (m model) Init() tea.Cmd { return nil }

func executeCmd(c *client, command string) tea.Cmd {
	return func() tea.Msg {
		result, err := c.execute(command)
		return resultMsg{echo: command, result: result, err: err}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case resultMsg:
		m.pending = false
		if msg.err != nil {
			m.log = append(m.log, errStyle.Render("❌ "+msg.err.Error()))
			return m, nil
		}
		if msg.result.Clear {
			m.log = nil
			return m, nil
		}
		for _, line := range msg.result.Lines {
			m.log = append(m.log, lineStyle.Render(line))
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			command := m.input
			if command == "" || m.pending {
				return m, nil
			}
			m.input = ""
			m.history = append(m.history, command)
			m.histPos = len(m.history)
			m.log = append(m.log, echoStyle.Render("> "+command))
			m.pending = true
			return m, executeCmd(m.client, command)
		case tea.KeyBackspace:
			if len(m.input) > 0 {
				runes := []rune(m.input)
				m.input = string(runes[:len(runes)-1])
			}
			return m, nil
		case tea.KeyUp:
			if m.histPos > 0 {
				m.histPos--
				m.input = m.history[m.histPos]
			}
			return m, nil
		case tea.KeyDown:
			if m.histPos < len(m.history)-1 {
				m.histPos++
				m.input = m.history[m.histPos]
			} else {
				m.histPos = len(m.history)
				m.input = ""
			}
			return m, nil
		case tea.KeySpace:
			m.input += " "
			return m, nil
		case tea.KeyRunes:
			m.input += string(msg.Runes)
			return m, nil
		}
	}
	return m, nil
}

func (m model) View() string {
	// Keep only the lines that fit above the prompt.
	visible := m.log
	if m.height > 4 && len(visible) > m.height-4 {
		visible = visible[len(visible)-(m.height-4):]
	}

	var b bytes.Buffer
	for _, line := range visible {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	prompt := "➤ "
	if m.pending {
		prompt = "… "
	}
	b.WriteString(promptStyle.Render(prompt) + inputStyle.Render(m.input))

	if m.width > 4 {
		return frameStyle.Width(m.width - 4).Render(b.String())
	}
	return b.String()
}

func main() {
	baseURL := flag.String("url", envOr("FINTRACK_URL", "http://localhost:8081"), "tracker base URL")
	token := flag.String("token", os.Getenv("FINTRACK_TOKEN"), "bearer token for authenticated commands")
	flag.Parse()

	c := &client{
		baseURL: *baseURL,
		token:   *token,
		http:    &http.Client{Timeout: 10 * time.Second},
	}

	p := tea.NewProgram(newModel(c), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "fintrack-term:", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
