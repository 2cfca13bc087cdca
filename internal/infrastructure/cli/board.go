package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/felixgeelhaar/flowboard/internal/domain/board"
	"github.com/felixgeelhaar/flowboard/internal/infrastructure/live"
	"github.com/felixgeelhaar/flowboard/internal/infrastructure/logging"
	"github.com/felixgeelhaar/flowboard/internal/infrastructure/upload"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var boardLogFile string

var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Interactive live task board",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings(cmd)
		if err != nil {
			return err
		}
		closer, err := logging.ToFile(s.logger, boardLogFile)
		if err != nil {
			return MapError(err)
		}
		defer closer.Close()

		var prog *tea.Program
		store, err := s.newStore(live.WithOnChange(func(e live.Event) {
			if prog != nil {
				prog.Send(storeEventMsg(e))
			}
		}))
		if err != nil {
			return err
		}
		// Released on every exit path, including a failed program run.
		defer store.Disconnect()

		m := newBoardModel(cmd.Context(), store, s.newUploader(), s.logger)
		prog = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
		if _, err := prog.Run(); err != nil && cmd.Context().Err() == nil {
			return fmt.Errorf("board run failed: %w", err)
		}
		return nil
	},
}

func init() {
	boardCmd.Flags().StringVar(&boardLogFile, "log-file", "flowboard.log", "where the board writes its logs")
	RootCmd.AddCommand(boardCmd)
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	columnStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	columnTitleStyle = lipgloss.NewStyle().Bold(true).MarginBottom(1)
	ownerStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	resultStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	helpStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	okStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
)

var stageColors = map[board.Stage]lipgloss.Color{
	board.StageQueued:       lipgloss.Color("245"),
	board.StageInProgress:   lipgloss.Color("208"),
	board.StageDone:         lipgloss.Color("42"),
	board.StageUnrecognized: lipgloss.Color("196"),
}

type storeEventMsg live.Event

type uploadDoneMsg struct {
	path    string
	receipt *upload.Receipt
	err     error
}

// taskStore is the part of live.Store the board reads.
type taskStore interface {
	Connect(ctx context.Context) error
	Board() board.Board
	State() live.ConnState
}

type boardModel struct {
	ctx      context.Context
	store    taskStore
	uploader *upload.Uploader
	logger   logrus.FieldLogger

	board     board.Board
	state     live.ConnState
	input     textinput.Model
	spinner   spinner.Model
	entering  bool
	uploading bool
	message   string
	failed    bool
	width     int
	quitting  bool
}

func newBoardModel(ctx context.Context, store taskStore, u *upload.Uploader, logger logrus.FieldLogger) boardModel {
	ti := textinput.New()
	ti.Placeholder = "path/to/spec.md"
	ti.CharLimit = 512
	ti.Width = 50
	ti.Prompt = "Spec file: "

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = warnStyle

	return boardModel{
		ctx:      ctx,
		store:    store,
		uploader: u,
		logger:   logger,
		board:    store.Board(),
		state:    store.State(),
		input:    ti,
		spinner:  sp,
		width:    120,
	}
}

func (m boardModel) Init() tea.Cmd {
	return m.connect()
}

func (m boardModel) connect() tea.Cmd {
	store := m.store
	ctx := m.ctx
	return func() tea.Msg {
		err := store.Connect(ctx)
		return storeEventMsg(live.Event{Kind: live.EventConnection, State: store.State(), Err: err})
	}
}

func (m boardModel) upload(path string) tea.Cmd {
	u := m.uploader
	ctx := m.ctx
	return func() tea.Msg {
		receipt, err := u.UploadWithReceipt(ctx, path)
		return uploadDoneMsg{path: path, receipt: receipt, err: err}
	}
}

func (m boardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case storeEventMsg:
		m.board = m.store.Board()
		m.state = m.store.State()
		if msg.Err != nil && msg.Kind == live.EventConnection {
			m.logger.WithError(msg.Err).Debug("board connection event")
		}
		return m, nil

	case uploadDoneMsg:
		if m.quitting {
			return m, nil
		}
		m.uploading = false
		switch {
		case msg.err != nil:
			m.failed = true
			m.message = fmt.Sprintf("Upload failed: %v", msg.err)
		case msg.receipt != nil:
			m.failed = false
			m.message = fmt.Sprintf("Uploaded %s (project %s); tasks will appear as the backend creates them", msg.path, msg.receipt.ProjectID)
		}
		return m, nil

	case spinner.TickMsg:
		if !m.uploading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.entering {
			return m.updateInput(msg)
		}
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "u":
			if m.uploading {
				return m, nil
			}
			m.entering = true
			m.input.SetValue("")
			return m, m.input.Focus()
		case "r":
			if m.state == live.ConnClosed || m.state == live.ConnIdle {
				return m, m.connect()
			}
		}
	}
	return m, nil
}

func (m boardModel) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	case "esc":
		m.entering = false
		m.input.Blur()
		return m, nil
	case "enter":
		m.entering = false
		m.input.Blur()
		path := strings.TrimSpace(m.input.Value())
		if path == "" {
			return m, nil
		}
		m.uploading = true
		m.message = ""
		return m, tea.Batch(m.spinner.Tick, m.upload(path))
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m boardModel) View() string {
	if m.quitting {
		return ""
	}

	header := lipgloss.JoinHorizontal(lipgloss.Center,
		titleStyle.Render("flowboard"), " ", connectionLabel(m.state),
		fmt.Sprintf("  %d tasks", m.board.Len()),
	)

	stages := []board.Stage{board.StageQueued, board.StageInProgress, board.StageDone}
	if len(m.board.Unrecognized) > 0 {
		stages = append(stages, board.StageUnrecognized)
	}
	colWidth := max(24, (m.width-2*len(stages))/len(stages)-4)
	cols := make([]string, 0, len(stages))
	for _, st := range stages {
		cols = append(cols, renderColumn(st, m.board.Column(st), colWidth))
	}

	var footer string
	switch {
	case m.entering:
		footer = m.input.View() + helpStyle.Render("  [enter] upload  [esc] cancel")
	case m.uploading:
		footer = m.spinner.View() + " Uploading…"
	case m.message != "" && m.failed:
		footer = errorStyle.Render(m.message)
	case m.message != "":
		footer = okStyle.Render(m.message)
	}

	help := "[u] Upload spec  [q] Quit"
	if m.state == live.ConnClosed {
		help = "[u] Upload spec  [r] Reconnect  [q] Quit"
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		"",
		lipgloss.JoinHorizontal(lipgloss.Top, cols...),
		footer,
		helpStyle.Render(help),
	) + "\n"
}

func connectionLabel(state live.ConnState) string {
	switch state {
	case live.ConnOpen:
		return okStyle.Render("● connected")
	case live.ConnConnecting:
		return warnStyle.Render("◌ connecting")
	default:
		return errorStyle.Render("○ disconnected")
	}
}

func renderColumn(stage board.Stage, tasks []board.Task, width int) string {
	title := columnTitleStyle.Foreground(stageColors[stage]).
		Render(fmt.Sprintf("%s (%d)", stage.Title(), len(tasks)))

	lines := []string{title}
	if len(tasks) == 0 {
		lines = append(lines, helpStyle.Render("nothing here"))
	}
	for _, t := range tasks {
		lines = append(lines, renderCard(t, width))
	}
	return columnStyle.Width(width).Render(strings.Join(lines, "\n"))
}

func renderCard(t board.Task, width int) string {
	card := fmt.Sprintf("%s %s\n%s", routeIcon(t.RoutedTo), truncate(t.Title, width-3),
		ownerStyle.Render(truncate(t.RoutedTo.DisplayName()+": "+t.OwnerLabel(), width)))
	if !t.Status.IsKnown() {
		card += "\n" + errorStyle.Render("status: "+t.Status.String())
	}
	if t.Result != "" {
		card += "\n" + resultStyle.Render(truncate(t.Result, width))
	}
	return card + "\n"
}

func routeIcon(r board.Route) string {
	switch r {
	case board.RouteAI:
		return "🤖"
	case board.RouteHuman:
		return "👤"
	default:
		return "❔"
	}
}

func truncate(s string, n int) string {
	if n <= 1 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

