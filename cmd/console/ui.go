package main

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/scottsen/veinborn/internal/engine"
	"github.com/scottsen/veinborn/internal/storage"
	"github.com/scottsen/veinborn/pkg/action"
	"github.com/scottsen/veinborn/pkg/entity"
)

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	config       *ConsoleConfig
	client       *http.Client
	session      *storage.Session
	feedViewport viewport.Model
	metaViewport viewport.Model
	feed         []string
	ready        bool
	width        int
	height       int
	err          error
	loading      bool

	// Pack selection state
	showPackModal bool
	packs         []string
	selectedPack  int
	loadingPacks  bool

	// Quit confirmation state
	showQuitModal bool
}

type turnResultMsg struct {
	result *engine.TurnResult
	err    error
}

type sessionMsg struct {
	session *storage.Session
	err     error
}

type packsLoadedMsg struct {
	packs []string
	err   error
}

type sessionCreatedMsg struct {
	session *storage.Session
	err     error
}

var (
	mapPanelStyle = lipgloss.NewStyle().
			PaddingTop(1).
			PaddingBottom(0).
			PaddingLeft(3).
			PaddingRight(0)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(1).
			PaddingBottom(0).
			PaddingLeft(0).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	playerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")). // teal
			Bold(true)

	monsterStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	npcStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	sceneryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	feedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")) // light grey

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	loadingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)

	modalItemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	modalSelectedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("205")).
				Bold(true)
)

var separatorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("240")) // dark grey

var titleCaser = cases.Title(language.English)

func NewConsoleUI(cfg *ConsoleConfig, client *http.Client) ConsoleUI {
	feedVp := viewport.New(50, 10)
	feedVp.MouseWheelEnabled = true

	metaVp := viewport.New(20, 20)

	return ConsoleUI{
		config:        cfg,
		client:        client,
		feedViewport:  feedVp,
		metaViewport:  metaVp,
		ready:         false,
		showPackModal: true,
		loadingPacks:  true,
		selectedPack:  0,
	}
}

func (m ConsoleUI) Init() tea.Cmd {
	if m.showPackModal {
		return m.loadPacks()
	}
	return nil
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// Handle pack modal first
	if m.showPackModal {
		return m.updatePackModal(msg)
	}

	// Handle quit modal second
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}

	var (
		fvCmd tea.Cmd
		mvCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.feedViewport, fvCmd = m.feedViewport.Update(msg)
		m.metaViewport, mvCmd = m.metaViewport.Update(msg)
		return m, tea.Batch(fvCmd, mvCmd)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.ready = true
		m.writeFeedContent()
		m.writeMetadata()

	case tea.KeyMsg:
		return m.handleKey(msg)

	case turnResultMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			m.appendFeed(errorStyle.Render("Error: " + msg.err.Error()))
			return m, nil
		}
		m.err = nil
		m.appendTurnResult(msg.result)
		return m, m.refreshSession()

	case sessionMsg:
		if msg.err == nil && msg.session != nil {
			m.session = msg.session
			m.writeMetadata()
		}
	}

	m.feedViewport, fvCmd = m.feedViewport.Update(msg)
	m.metaViewport, mvCmd = m.metaViewport.Update(msg)

	return m, tea.Batch(fvCmd, mvCmd)
}

func (m *ConsoleUI) resize() {
	mapWidth := int(float64(m.width)*0.7) - 4
	metaWidth := m.width - mapWidth - 6

	gridHeight := m.gridHeight()
	feedHeight := m.height - gridHeight - 6
	if feedHeight < 3 {
		feedHeight = 3
	}

	m.feedViewport.Width = mapWidth - 2
	m.feedViewport.Height = feedHeight
	m.metaViewport.Width = metaWidth - 2
	m.metaViewport.Height = m.height - 3
}

func (m *ConsoleUI) gridHeight() int {
	if m.session == nil {
		return 10
	}
	return m.session.World.Config.Height
}

func (m ConsoleUI) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		m.showQuitModal = true
		return m, nil
	case tea.KeyUp:
		return m.act(m.moveDesc(0, -1))
	case tea.KeyDown:
		return m.act(m.moveDesc(0, 1))
	case tea.KeyLeft:
		return m.act(m.moveDesc(-1, 0))
	case tea.KeyRight:
		return m.act(m.moveDesc(1, 0))
	}

	switch msg.String() {
	case "h":
		return m.act(m.moveDesc(-1, 0))
	case "j":
		return m.act(m.moveDesc(0, 1))
	case "k":
		return m.act(m.moveDesc(0, -1))
	case "l":
		return m.act(m.moveDesc(1, 0))
	case "a":
		if target := m.adjacentMonster(); target != nil {
			return m.act(action.NewDescriptor(action.KindAttack).WithTarget(target.ID))
		}
		m.appendFeed("No adjacent monster to attack.")
		return m, nil
	case "f":
		if target := m.nearestMonster(); target != nil && target.Pos != nil {
			return m.act(action.NewDescriptor("firestorm").WithPos(target.Pos.X, target.Pos.Y))
		}
		m.appendFeed("No monster in sight.")
		return m, nil
	case ".", " ":
		return m.act(action.NewDescriptor(action.KindIdle))
	case "q":
		m.showQuitModal = true
		return m, nil
	}

	return m, nil
}

// moveDesc targets the cell one step from the player. The engine walks
// one step per turn regardless of distance, so an adjacent destination
// keeps the console's step and the engine's step identical.
func (m *ConsoleUI) moveDesc(dx, dy int) action.Descriptor {
	p := m.player()
	if p == nil || p.Pos == nil {
		return action.NewDescriptor(action.KindIdle)
	}
	return action.NewDescriptor(action.KindMoveTowards).WithPos(p.Pos.X+dx, p.Pos.Y+dy)
}

func (m ConsoleUI) act(desc action.Descriptor) (tea.Model, tea.Cmd) {
	if m.loading || m.session == nil {
		return m, nil
	}
	if m.session.World.GameOver {
		m.appendFeed(errorStyle.Render("The game is over. Press q to quit."))
		return m, nil
	}
	m.loading = true
	return m, m.sendAction(desc)
}

func (m *ConsoleUI) player() *entity.Entity {
	if m.session == nil {
		return nil
	}
	for i := range m.session.World.Entities {
		e := &m.session.World.Entities[i]
		if e.Type == entity.TypePlayer {
			return e
		}
	}
	return nil
}

func (m *ConsoleUI) adjacentMonster() *entity.Entity {
	p := m.player()
	if p == nil || p.Pos == nil {
		return nil
	}
	return m.findMonster(func(e *entity.Entity) bool {
		dx := abs(e.Pos.X - p.Pos.X)
		dy := abs(e.Pos.Y - p.Pos.Y)
		return dx <= 1 && dy <= 1
	})
}

func (m *ConsoleUI) nearestMonster() *entity.Entity {
	p := m.player()
	if p == nil || p.Pos == nil {
		return nil
	}
	var best *entity.Entity
	bestDist := 1 << 30
	m.findMonster(func(e *entity.Entity) bool {
		dx := abs(e.Pos.X - p.Pos.X)
		dy := abs(e.Pos.Y - p.Pos.Y)
		d := max(dx, dy)
		if d < bestDist {
			bestDist = d
			best = e
		}
		return false
	})
	return best
}

func (m *ConsoleUI) findMonster(match func(*entity.Entity) bool) *entity.Entity {
	if m.session == nil {
		return nil
	}
	for i := range m.session.World.Entities {
		e := &m.session.World.Entities[i]
		if e.Type != entity.TypeMonster || !e.Alive || e.Pos == nil {
			continue
		}
		if match(e) {
			return e
		}
	}
	return nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func (m *ConsoleUI) appendFeed(line string) {
	m.feed = append(m.feed, line)
	m.writeFeedContent()
}

func (m *ConsoleUI) appendTurnResult(result *engine.TurnResult) {
	for _, msg := range result.Player.Messages {
		m.appendFeed(feedStyle.Render(msg))
	}
	if !result.Player.Success && len(result.Player.Messages) == 0 {
		m.appendFeed(errorStyle.Render("Action failed."))
	}
	for _, msg := range result.Messages {
		m.appendFeed(feedStyle.Render(msg))
	}
	if result.GameOver {
		m.appendFeed(titleStyle.Render("*** GAME OVER ***"))
	}
}

func (m *ConsoleUI) writeFeedContent() {
	width := m.feedViewport.Width - 2
	if width < 10 {
		width = 10
	}
	var content strings.Builder
	for _, line := range m.feed {
		content.WriteString(wordwrap.String(line, width) + "\n")
	}
	m.feedViewport.SetContent(content.String())
	m.feedViewport.GotoBottom()
}

// renderGrid draws the dungeon from the latest snapshot. Dead and held
// entities are not drawn.
func (m *ConsoleUI) renderGrid() string {
	if m.session == nil {
		return ""
	}
	snap := &m.session.World
	w, h := snap.Config.Width, snap.Config.Height

	glyphs := make([][]string, h)
	for y := 0; y < h; y++ {
		glyphs[y] = make([]string, w)
		for x := 0; x < w; x++ {
			glyphs[y][x] = sceneryStyle.Render(".")
		}
	}

	for i := range snap.Entities {
		e := &snap.Entities[i]
		if !e.Alive || e.Pos == nil {
			continue
		}
		if e.Pos.X < 0 || e.Pos.X >= w || e.Pos.Y < 0 || e.Pos.Y >= h {
			continue
		}
		glyphs[e.Pos.Y][e.Pos.X] = entityGlyph(e)
	}

	var sb strings.Builder
	for y := 0; y < h; y++ {
		sb.WriteString(strings.Join(glyphs[y], " "))
		sb.WriteString("\n")
	}
	return sb.String()
}

func entityGlyph(e *entity.Entity) string {
	switch e.Type {
	case entity.TypePlayer:
		return playerStyle.Render("@")
	case entity.TypeMonster:
		glyph := "m"
		if e.Name != "" {
			glyph = strings.ToLower(string([]rune(e.Name)[0]))
		}
		return monsterStyle.Render(glyph)
	case entity.TypeNPC:
		return npcStyle.Render("&")
	case entity.TypeItem:
		return sceneryStyle.Render("%")
	case entity.TypeResourceNode:
		return sceneryStyle.Render("*")
	case entity.TypeStructure:
		return sceneryStyle.Render("#")
	default:
		return sceneryStyle.Render("?")
	}
}

func (m *ConsoleUI) writeMetadata() {
	if m.session == nil {
		return
	}

	var content strings.Builder
	content.WriteString(titleStyle.Render("VEINBORN") + "\n\n")

	content.WriteString("Session:\n")
	content.WriteString(m.session.ID.String()[:8] + "...\n\n")

	content.WriteString("Pack:\n")
	content.WriteString(m.session.Pack + "\n\n")

	content.WriteString(fmt.Sprintf("Turn: %d\n\n", m.session.World.Turn))

	if p := m.player(); p != nil {
		content.WriteString(playerStyle.Render(p.Name) + "\n")
		content.WriteString(fmt.Sprintf("HP: %.0f/%.0f\n", p.HP(), p.MaxHP()))
		if mana := p.Number(entity.StatMana, 0); mana > 0 {
			content.WriteString(fmt.Sprintf("Mana: %.0f\n", mana))
		}
		content.WriteString("\n")
	}

	living := map[string]int{}
	for i := range m.session.World.Entities {
		e := &m.session.World.Entities[i]
		if e.Alive && e.Type != entity.TypePlayer {
			living[string(e.Type)]++
		}
	}
	if len(living) > 0 {
		content.WriteString("Denizens:\n")
		for _, t := range []entity.Type{entity.TypeMonster, entity.TypeNPC, entity.TypeItem, entity.TypeResourceNode, entity.TypeStructure} {
			if n := living[string(t)]; n > 0 {
				content.WriteString(fmt.Sprintf("• %s: %d\n", titleCaser.String(strings.ReplaceAll(string(t), "_", " ")), n))
			}
		}
		content.WriteString("\n")
	}

	content.WriteString("Keys:\n")
	content.WriteString("• Arrows/hjkl: Move\n")
	content.WriteString("• a: Attack\n")
	content.WriteString("• f: Firestorm\n")
	content.WriteString("• . or Space: Wait\n")
	content.WriteString("• q: Quit\n")

	m.metaViewport.SetContent(content.String())
}

func (m ConsoleUI) loadPacks() tea.Cmd {
	return func() tea.Msg {
		packs, err := listPacks(m.client, m.config.APIBaseURL)
		return packsLoadedMsg{packs, err}
	}
}

func (m ConsoleUI) createSessionFromPack(pack string) tea.Cmd {
	return func() tea.Msg {
		session, err := createSession(m.client, m.config.APIBaseURL, pack, time.Now().UnixNano())
		return sessionCreatedMsg{session, err}
	}
}

func (m ConsoleUI) sendAction(desc action.Descriptor) tea.Cmd {
	return func() tea.Msg {
		result, err := sendAction(m.client, m.config.APIBaseURL, m.session.ID, desc)
		return turnResultMsg{result, err}
	}
}

func (m ConsoleUI) refreshSession() tea.Cmd {
	return func() tea.Msg {
		session, err := getSession(m.client, m.config.APIBaseURL, m.session.ID)
		return sessionMsg{session, err}
	}
}

func (m ConsoleUI) updatePackModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case packsLoadedMsg:
		m.loadingPacks = false
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.packs = msg.packs
		}

	case sessionCreatedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.session = msg.session
			m.showPackModal = false
			m.resize()
			m.feed = nil
			m.appendFeed(feedStyle.Render("You descend into the dungeon."))
			m.writeMetadata()
			m.ready = true
		}
		return m, nil

	case tea.KeyMsg:
		if m.loadingPacks {
			if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyEsc {
				return m, tea.Quit
			}
			return m, nil
		}

		if m.err != nil {
			if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyEsc {
				return m, tea.Quit
			}
			return m, nil
		}

		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		case tea.KeyUp:
			if m.selectedPack > 0 {
				m.selectedPack--
			}
		case tea.KeyDown:
			if m.selectedPack < len(m.packs)-1 {
				m.selectedPack++
			}
		case tea.KeyEnter:
			if len(m.packs) > 0 {
				m.loading = true
				return m, m.createSessionFromPack(m.packs[m.selectedPack])
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyEnter:
			return m, tea.Quit
		default:
			switch msg.String() {
			case "y", "Y":
				return m, tea.Quit
			case "n", "N":
				m.showQuitModal = false
				return m, nil
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Quit Game?"))
	content.WriteString("\n\n")
	content.WriteString("Abandon this delve and return to the surface?")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to continue, or Ctrl+C to force quit"))

	modal := modalStyle.Width(50).Render(content.String())

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) renderPackModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder

	if m.loadingPacks {
		content.WriteString(modalTitleStyle.Render("Loading Packs..."))
		content.WriteString("\n\n")
		content.WriteString(loadingStyle.Render("Please wait while we fetch available behavior packs..."))
	} else if m.err != nil {
		content.WriteString(modalTitleStyle.Render("Error"))
		content.WriteString("\n\n")
		content.WriteString(errorStyle.Render(fmt.Sprintf("Failed to load packs: %v", m.err)))
		content.WriteString("\n\n")
		content.WriteString("Press Ctrl+C to exit")
	} else if m.loading {
		content.WriteString(modalTitleStyle.Render("Creating Game..."))
		content.WriteString("\n\n")
		content.WriteString(loadingStyle.Render("Carving out your dungeon..."))
	} else {
		content.WriteString(modalTitleStyle.Render("Select a Behavior Pack"))
		content.WriteString("\n\n")

		for i, pack := range m.packs {
			if i == m.selectedPack {
				content.WriteString(modalSelectedItemStyle.Render(fmt.Sprintf("▶ %s", pack)))
			} else {
				content.WriteString(modalItemStyle.Render(fmt.Sprintf("  %s", pack)))
			}
			content.WriteString("\n")
		}

		content.WriteString("\n")
		content.WriteString(promptStyle.Render("Use ↑/↓ to navigate, Enter to select, Ctrl+C to exit"))
	}

	modal := modalStyle.Width(60).Render(content.String())

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.showPackModal {
		return m.renderPackModal()
	}

	if m.showQuitModal {
		return m.renderQuitModal()
	}

	if !m.ready {
		return "\n  Initializing..."
	}

	mapWidth := int(float64(m.width)*0.7) - 4
	metaWidth := m.width - mapWidth - 6

	status := ""
	if m.loading {
		status = loadingStyle.Render("Resolving turn...")
	}

	mapPanel := mapPanelStyle.Width(mapWidth).Height(m.height - 2).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.renderGrid(),
			separatorStyle.Render(strings.Repeat("─", mapWidth-4)),
			m.feedViewport.View(),
			status,
		),
	)

	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(
		m.metaViewport.View(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, mapPanel, metaPanel)
}
