// Package tui provides the Bubble Tea typing interface.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/typerpg/internal/daily"
	"github.com/verte-zerg/typerpg/internal/engine"
	"github.com/verte-zerg/typerpg/internal/generator"
	"github.com/verte-zerg/typerpg/internal/model"
	"github.com/verte-zerg/typerpg/internal/progression"
	"github.com/verte-zerg/typerpg/internal/stats"
)

const requestTimeout = 10 * time.Second

// Backend records sessions for the current player. It is implemented by the
// in-process service and by the HTTP client.
type Backend interface {
	EnsurePlayer(ctx context.Context) (model.PlayerProgress, error)
	DailyStatus(ctx context.Context) (model.DailyStatus, error)
	Submit(ctx context.Context, sub model.SessionSubmission) (model.SessionResult, error)
}

type loadedMsg struct {
	progress model.PlayerProgress
	status   model.DailyStatus
	daily    daily.ProgressState
	err      error
}

type completedMsg struct {
	result daily.Result
	state  daily.ProgressState
}

type tickMsg time.Time

type modal struct {
	quotes  []daily.QuoteStat
	average int
	xp      int
	message string
}

// Model implements the Bubble Tea typing UI.
type Model struct {
	config  model.PlayConfig
	backend Backend
	kv      daily.KV
	gen     *generator.Generator
	logger  *slog.Logger
	now     func() time.Time

	width  int
	height int

	mode     model.Mode
	session  *engine.Session
	daily    daily.ProgressState
	dailyDay string
	attempt  daily.Attempt

	progress    model.PlayerProgress
	hasProgress bool
	lastWPM     int
	hasLast     bool
	message     string

	loading    bool
	submitting bool
	spinner    spinner.Model
	modal      *modal
}

var (
	correctStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	lockedStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#95DE64"))
	incorrectStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	skippedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF7A45")).Strikethrough(true)
	pendingStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	currentWordStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	footerStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	messageStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	modalStyle       = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#C89A3A")).Padding(1, 3)
	titleStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FADB14"))
)

// NewModel constructs a typing TUI model. Player state is loaded from the
// backend by Init.
func NewModel(cfg model.PlayConfig, backend Backend, kv daily.KV, gen *generator.Generator, logger *slog.Logger) *Model {
	if logger == nil {
		logger = slog.Default()
	}
	if kv == nil {
		kv = daily.NewMemoryKV()
	}
	mode := cfg.Mode
	if mode == "" {
		mode = model.ModeDaily
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = messageStyle
	m := &Model{
		config:  cfg,
		backend: backend,
		kv:      kv,
		gen:     gen,
		logger:  logger,
		now:     time.Now,
		mode:    mode,
		session: engine.NewSession(""),
		daily:   daily.NewProgressState(),
		attempt: daily.Attempt{Number: 1},
		loading: true,
		spinner: sp,
	}
	m.session.SetClock(func() time.Time { return m.now() })
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.loadCmd(), tick())
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tickMsg:
		return m, tick()
	case spinner.TickMsg:
		if !m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case loadedMsg:
		m.handleLoaded(msg)
		return m, nil
	case completedMsg:
		m.handleCompleted(msg)
		return m, nil
	case tea.KeyMsg:
		return m, m.handleKey(msg)
	default:
		return m, nil
	}
}

func (m *Model) busy() bool {
	return m.loading || m.submitting
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if msg.Type == tea.KeyCtrlC {
		return tea.Quit
	}
	if m.busy() {
		return nil
	}
	if m.modal != nil {
		switch msg.Type {
		case tea.KeyEnter, tea.KeyEsc:
			m.modal = nil
			m.switchMode(model.ModeEndless)
		}
		return nil
	}
	switch msg.Type {
	case tea.KeyTab:
		m.session.Reset(m.session.Text())
		return nil
	case tea.KeyShiftTab:
		if m.mode == model.ModeDaily {
			m.switchMode(model.ModeEndless)
		} else {
			m.switchMode(model.ModeDaily)
		}
		return nil
	case tea.KeyBackspace, tea.KeyDelete:
		if msg.Alt {
			m.session.DeleteWord()
		} else {
			m.session.Backspace()
		}
		return nil
	case tea.KeyCtrlW:
		m.session.DeleteWord()
		return nil
	case tea.KeySpace:
		m.session.SpaceBar()
		return m.checkCompletion()
	case tea.KeyRunes:
		for _, r := range msg.Runes {
			if r == ' ' {
				m.session.SpaceBar()
			} else {
				m.session.InputCharacter(r)
			}
			if cmd := m.checkCompletion(); cmd != nil {
				return cmd
			}
		}
		return nil
	default:
		return nil
	}
}

func (m *Model) switchMode(mode model.Mode) {
	m.refreshDay()
	if mode == model.ModeDaily && m.daily.IsCompleted {
		m.message = fmt.Sprintf("Daily challenge already completed. Resets in %s.", formatCountdown(daily.TimeUntilReset(m.now())))
		mode = model.ModeEndless
	}
	m.mode = mode
	m.attempt = daily.Attempt{Number: 1, HasShownCompletion: m.daily.IsCompleted}
	m.newPassage()
}

// refreshDay drops daily progress carried over from a previous UTC day.
func (m *Model) refreshDay() {
	today := daily.DateKey(m.now())
	if m.dailyDay != "" && m.dailyDay != today {
		m.daily = daily.NewProgressState()
		m.attempt = daily.Attempt{Number: 1}
	}
	m.dailyDay = today
}

func (m *Model) newPassage() {
	if m.gen == nil {
		return
	}
	if m.mode == model.ModeDaily {
		m.refreshDay()
		m.session.Reset(m.gen.Daily(m.now(), m.daily.CurrentDifficulty))
		return
	}
	m.session.Reset(m.gen.Endless(m.config.Words))
}

func (m *Model) loadCmd() tea.Cmd {
	backend, kv, now, logger := m.backend, m.kv, m.now(), m.logger
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		var msg loadedMsg
		progress, err := backend.EnsurePlayer(ctx)
		if err != nil {
			msg.err = fmt.Errorf("failed to load player: %w", err)
			return msg
		}
		msg.progress = progress
		status, err := backend.DailyStatus(ctx)
		if err != nil {
			msg.err = fmt.Errorf("failed to load daily status: %w", err)
			return msg
		}
		msg.status = status
		state, err := daily.LoadProgress(ctx, kv, now)
		if err != nil {
			logger.Warn("daily progress unavailable", "err", err)
		}
		state.Reconcile(status.CompletedToday, now)
		if err := daily.SaveProgress(ctx, kv, now, state); err != nil {
			logger.Warn("failed to save daily progress", "err", err)
		}
		msg.daily = state
		return msg
	}
}

func (m *Model) handleLoaded(msg loadedMsg) {
	m.loading = false
	m.dailyDay = daily.DateKey(m.now())
	if msg.err != nil {
		m.logger.Error("bootstrap failed", "err", msg.err)
		m.message = fmt.Sprintf("Playing offline: %v", msg.err)
		m.switchMode(m.mode)
		return
	}
	m.progress = msg.progress
	m.hasProgress = true
	m.daily = msg.daily
	m.logger.Info("player loaded", "user", m.progress.UserID, "level", m.progress.Level, "completed_today", msg.status.CompletedToday)
	m.switchMode(m.mode)
}

func (m *Model) checkCompletion() tea.Cmd {
	if !m.session.Complete() {
		return nil
	}
	perf, ok := stats.CalculateFinalStats(m.session, m.now())
	if !ok {
		return nil
	}
	m.lastWPM = perf.FinalWPM
	m.hasLast = true
	m.submitting = true
	return tea.Batch(m.completeCmd(perf), m.spinner.Tick)
}

func (m *Model) completeCmd(perf stats.PerformanceStats) tea.Cmd {
	mode, attempt, now := m.mode, m.attempt, m.now()
	backend, kv, logger := m.backend, m.kv, m.logger
	state := m.daily
	state.QuoteStats = append([]daily.QuoteStat(nil), m.daily.QuoteStats...)
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		res := daily.HandleCompletion(ctx, mode, perf, &state, attempt, backend.Submit, now)
		if res.Err != nil {
			logger.Warn("session not saved", "mode", mode, "wpm", perf.FinalWPM, "err", res.Err)
		}
		if mode == model.ModeDaily && res.Action != daily.ActionRetry {
			if err := daily.SaveProgress(ctx, kv, now, state); err != nil {
				logger.Warn("failed to save daily progress", "err", err)
			}
		}
		return completedMsg{result: res, state: state}
	}
}

func (m *Model) handleCompleted(msg completedMsg) {
	m.submitting = false
	res := msg.result
	m.daily = msg.state
	m.attempt.Number = res.Attempt
	m.message = res.Message
	if res.Recorded != nil {
		m.progress = res.Recorded.Progress
		m.hasProgress = true
	}
	var done *daily.AlreadyCompletedError
	if errors.As(res.Err, &done) {
		m.daily.Reconcile(true, m.now())
		m.message = fmt.Sprintf("Today's daily challenge was already recorded. Resets in %s.", formatCountdown(done.TimeUntilResetSeconds))
	}

	switch res.Action {
	case daily.ActionRetry:
		m.session.Reset(m.session.Text())
	case daily.ActionShowModal:
		m.attempt.HasShownCompletion = true
		m.modal = &modal{
			quotes:  append([]daily.QuoteStat(nil), m.daily.QuoteStats...),
			average: m.daily.RoundedAverageWPM(),
			xp:      res.XPDelta,
			message: m.message,
		}
	default:
		m.newPassage()
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.loading {
		return m.place(m.spinner.View() + " Loading player...")
	}
	if m.modal != nil {
		return m.place(m.renderModal())
	}
	if m.session.Len() == 0 {
		return m.place(m.message)
	}
	cursorIndex := -1
	if m.session.Cursor() < m.session.Len() {
		cursorIndex = m.session.Cursor()
	}
	styledRunes := buildStyledRunes(m.session, cursorIndex)
	if m.width == 0 || m.height == 0 {
		return renderStyledRunes(styledRunes)
	}
	contentWidth := int(float64(m.width) * 0.70)
	if contentWidth < 1 {
		contentWidth = 1
	}
	wrapped := wrapStyledRunes(styledRunes, contentWidth)
	content := lipgloss.NewStyle().Width(contentWidth).Render(wrapped)
	if m.height < 4 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	bodyHeight := m.height - 2
	body := lipgloss.Place(m.width, bodyHeight, lipgloss.Center, lipgloss.Center, content)
	statusLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, m.renderStatus())
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, m.renderFooter())
	return body + "\n" + statusLine + "\n" + footerLine
}

func (m *Model) place(s string) string {
	if m.width == 0 || m.height == 0 {
		return s
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, s)
}

func (m *Model) renderStatus() string {
	if m.submitting {
		return m.spinner.View() + " Saving session..."
	}
	return messageStyle.Render(m.message)
}

func (m *Model) renderFooter() string {
	segments := []string{m.modeLabel()}
	if m.session.Len() > 0 {
		progress := int(float64(m.session.Cursor()) / float64(m.session.Len()) * 100)
		segments = append(segments, fmt.Sprintf("Progress %d%%", progress))
	}
	if m.hasProgress {
		segments = append(segments, fmt.Sprintf("Lv %d · %d/%d XP",
			m.progress.Level, m.progress.XP, progression.XPToNextLevel(m.progress.Level)))
	}
	switch {
	case m.session.Started() && !m.session.Completed():
		wpm := stats.CalculateCurrentWPM(m.session, m.now())
		segments = append(segments, fmt.Sprintf("%d WPM", wpm))
	case m.hasLast:
		segments = append(segments, fmt.Sprintf("Last %d WPM · %s", m.lastWPM, progression.WPMTitle(m.lastWPM)))
	}
	return footerStyle.Render(strings.Join(segments, "  "))
}

func (m *Model) modeLabel() string {
	if m.mode != model.ModeDaily {
		return "Endless"
	}
	label := fmt.Sprintf("Daily · %s %d/%d", daily.Opponent(m.daily.CurrentDifficulty),
		min(m.daily.CompletedCount+1, len(model.Difficulties)), len(model.Difficulties))
	if m.attempt.Number > 1 {
		label += fmt.Sprintf(" · attempt %d", m.attempt.Number)
	}
	return label
}

func (m *Model) renderModal() string {
	lines := []string{titleStyle.Render("Daily Challenge Complete!"), ""}
	for _, q := range m.modal.quotes {
		attempts := "attempts"
		if q.Attempts == 1 {
			attempts = "attempt"
		}
		lines = append(lines, fmt.Sprintf("%-10s %3d WPM  %d %s", daily.Opponent(q.Difficulty), q.WPM, q.Attempts, attempts))
	}
	lines = append(lines, "",
		fmt.Sprintf("Average %d WPM · %s", m.modal.average, progression.WPMTitle(m.modal.average)),
		fmt.Sprintf("+%d XP", m.modal.xp),
	)
	if m.modal.message != "" {
		lines = append(lines, "", messageStyle.Render(m.modal.message))
	}
	lines = append(lines, "", footerStyle.Render("enter: endless mode · ctrl+c: quit"))
	return modalStyle.Render(strings.Join(lines, "\n"))
}

func formatCountdown(seconds int64) string {
	d := time.Duration(seconds) * time.Second
	h := int(d.Hours())
	mnt := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, mnt, s)
}
