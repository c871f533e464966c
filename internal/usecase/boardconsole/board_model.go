package boardconsole

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"claimflow/internal/bootstrap/logging"
	domain "claimflow/internal/domain/assessment"
	"claimflow/internal/ports"
	"claimflow/internal/usecase/assessment"
)

const maxShownHistory = 6
const maxAuditLines = 8

// BoardService is the slice of the assessment service the board drives.
type BoardService interface {
	StageCounts(ctx context.Context, actor domain.Actor) ([]assessment.StageCount, error)
	ListByStage(ctx context.Context, input assessment.ListByStageInput) ([]ports.AssessmentListRow, error)
	AssessmentHistory(ctx context.Context, actor domain.Actor, assessmentID string, afterID uint64, limit int) (assessment.HistoryPage, error)
	Transition(ctx context.Context, input assessment.TransitionInput) (ports.Assessment, error)
	Cancel(ctx context.Context, assessmentID string, actor domain.Actor) (ports.Assessment, error)
	EnsureArtifacts(ctx context.Context, input assessment.EnsureArtifactsInput) (domain.ArtifactSet, error)
}

type BoardOptions struct {
	Actor           domain.Actor
	Stage           string
	RefreshInterval time.Duration
}

type boardModel struct {
	ctx             context.Context
	service         BoardService
	actor           domain.Actor
	refreshInterval time.Duration

	stages        []domain.Stage
	stageIndex    int
	counts        map[domain.Stage]int
	rows          []ports.AssessmentListRow
	selectedIndex int
	history       []ports.HistoryEntry
	hasHistory    bool
	status        string
	auditLogs     []string
}

type boardLoadedMsg struct {
	stage  domain.Stage
	counts []assessment.StageCount
	rows   []ports.AssessmentListRow
	err    error
}

type historyLoadedMsg struct {
	assessmentID string
	entries      []ports.HistoryEntry
	err          error
}

type tickMsg struct{}

type actionDoneMsg struct {
	action       string
	assessmentID string
	result       string
	err          error
}

func NewBoardModel(ctx context.Context, service BoardService, options BoardOptions) tea.Model {
	interval := options.RefreshInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}

	stages := domain.Stages()
	index := 0
	if stage, err := domain.ParseStage(options.Stage); err == nil {
		for i, s := range stages {
			if s == stage {
				index = i
			}
		}
	}

	return &boardModel{
		ctx:             ctx,
		service:         service,
		actor:           options.Actor,
		refreshInterval: interval,
		stages:          stages,
		stageIndex:      index,
		counts:          map[domain.Stage]int{},
		status:          "loading",
	}
}

func (m *boardModel) Init() tea.Cmd {
	return tea.Batch(m.loadBoardCmd(), m.tickCmd())
}

func (m *boardModel) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := message.(type) {
	case tickMsg:
		return m, tea.Batch(m.loadBoardCmd(), m.tickCmd())
	case boardLoadedMsg:
		if msg.err != nil {
			m.status = "refresh failed: " + msg.err.Error()
			return m, nil
		}
		if msg.stage != m.currentStage() {
			return m, nil
		}
		m.counts = make(map[domain.Stage]int, len(msg.counts))
		for _, c := range msg.counts {
			m.counts[c.Stage] = c.Count
		}
		m.rows = msg.rows
		if len(m.rows) == 0 {
			m.selectedIndex = 0
			m.hasHistory = false
			m.history = nil
			m.status = fmt.Sprintf("no assessments in %s", msg.stage)
			return m, nil
		}
		if m.selectedIndex >= len(m.rows) {
			m.selectedIndex = len(m.rows) - 1
		}
		m.status = fmt.Sprintf("refreshed, %d in %s", len(m.rows), msg.stage)
		return m, m.loadHistoryCmd()
	case historyLoadedMsg:
		selected, ok := m.selectedRow()
		if !ok || selected.AssessmentID != msg.assessmentID {
			return m, nil
		}
		if msg.err != nil {
			m.hasHistory = false
			m.status = "history failed: " + msg.err.Error()
			return m, nil
		}
		m.history = msg.entries
		m.hasHistory = true
		return m, nil
	case actionDoneMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("%s failed: %v", msg.action, msg.err)
		} else {
			m.status = fmt.Sprintf("%s done: %s", msg.action, msg.result)
		}
		m.appendAuditLog(msg)
		return m, m.loadBoardCmd()
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "g":
			m.status = "refreshing"
			return m, m.loadBoardCmd()
		case "left", "h":
			if m.stageIndex > 0 {
				m.stageIndex--
				m.selectedIndex = 0
				return m, m.loadBoardCmd()
			}
			return m, nil
		case "right", "l":
			if m.stageIndex < len(m.stages)-1 {
				m.stageIndex++
				m.selectedIndex = 0
				return m, m.loadBoardCmd()
			}
			return m, nil
		case "up", "k":
			if m.selectedIndex > 0 {
				m.selectedIndex--
				return m, m.loadHistoryCmd()
			}
			return m, nil
		case "down", "j":
			if m.selectedIndex < len(m.rows)-1 {
				m.selectedIndex++
				return m, m.loadHistoryCmd()
			}
			return m, nil
		case "n":
			return m, m.advanceCmd()
		case "e":
			return m, m.ensureArtifactsCmd()
		case "x":
			return m, m.cancelCmd()
		}
	}
	return m, nil
}

func (m *boardModel) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true)
	sectionStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	selectedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Background(lipgloss.Color("62"))

	var builder strings.Builder
	builder.WriteString(titleStyle.Render("Assessment Board"))
	builder.WriteString("\n")
	builder.WriteString(dimStyle.Render(fmt.Sprintf(
		"actor=%s role=%s refresh=%s",
		m.actor.Label(),
		firstNonEmpty(string(m.actor.Role), "-"),
		m.refreshInterval,
	)))
	builder.WriteString("\n\n")

	builder.WriteString(sectionStyle.Render("Stages"))
	builder.WriteString("\n")
	for i, stage := range m.stages {
		line := fmt.Sprintf("%-24s %3d", stage, m.counts[stage])
		if i == m.stageIndex {
			builder.WriteString(selectedStyle.Render("> " + line))
		} else {
			builder.WriteString("  " + line)
		}
		builder.WriteString("\n")
	}
	builder.WriteString("\n")

	builder.WriteString(sectionStyle.Render("Assessments"))
	builder.WriteString("\n")
	if len(m.rows) == 0 {
		builder.WriteString(dimStyle.Render("- none"))
		builder.WriteString("\n\n")
	} else {
		for i, row := range m.rows {
			line := fmt.Sprintf(
				"%s req=%s owner=%s reg=%s engineer=%s",
				row.Number,
				row.RequestNumber,
				row.OwnerName,
				row.VehicleRegistration,
				firstNonEmpty(deref(row.AppointmentEngineerID), deref(row.PendingEngineerID), "-"),
			)
			if i == m.selectedIndex {
				builder.WriteString(selectedStyle.Render("> " + line))
			} else {
				builder.WriteString("  " + line)
			}
			builder.WriteString("\n")
		}
		builder.WriteString("\n")
	}

	builder.WriteString(sectionStyle.Render("History"))
	builder.WriteString("\n")
	if !m.hasHistory || len(m.history) == 0 {
		builder.WriteString(dimStyle.Render("- no history"))
		builder.WriteString("\n\n")
	} else {
		start := len(m.history) - maxShownHistory
		if start < 0 {
			start = 0
		}
		for _, entry := range m.history[start:] {
			builder.WriteString(fmt.Sprintf("- #%d %s %s/%s by %s\n", entry.EntryID, entry.Action, entry.EntityType, shortID(entry.EntityID), entry.ActorID))
		}
		builder.WriteString("\n")
	}

	builder.WriteString(sectionStyle.Render("Status"))
	builder.WriteString("\n")
	builder.WriteString("- " + firstNonEmpty(m.status, "ready"))
	builder.WriteString("\n\n")

	builder.WriteString(sectionStyle.Render("Audit Log"))
	builder.WriteString("\n")
	if len(m.auditLogs) == 0 {
		builder.WriteString(dimStyle.Render("- no actions"))
		builder.WriteString("\n\n")
	} else {
		for _, line := range m.auditLogs {
			builder.WriteString("- " + line)
			builder.WriteString("\n")
		}
		builder.WriteString("\n")
	}

	builder.WriteString(dimStyle.Render("Keys: ←/h →/l stage  ↑/k ↓/j select  n advance  e artifacts  x cancel  g refresh  q quit"))
	return builder.String()
}

func (m *boardModel) tickCmd() tea.Cmd {
	return tea.Tick(m.refreshInterval, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

func (m *boardModel) loadBoardCmd() tea.Cmd {
	stage := m.currentStage()
	return func() tea.Msg {
		counts, err := m.service.StageCounts(m.ctx, m.actor)
		if err != nil {
			return boardLoadedMsg{stage: stage, err: err}
		}
		rows, err := m.service.ListByStage(m.ctx, assessment.ListByStageInput{
			Stages: []string{string(stage)},
			Actor:  m.actor,
		})
		if err != nil {
			return boardLoadedMsg{stage: stage, err: err}
		}
		return boardLoadedMsg{stage: stage, counts: counts, rows: rows}
	}
}

func (m *boardModel) loadHistoryCmd() tea.Cmd {
	selected, ok := m.selectedRow()
	if !ok {
		return nil
	}
	return func() tea.Msg {
		page, err := m.service.AssessmentHistory(m.ctx, m.actor, selected.AssessmentID, 0, 200)
		return historyLoadedMsg{assessmentID: selected.AssessmentID, entries: page.Entries, err: err}
	}
}

func (m *boardModel) advanceCmd() tea.Cmd {
	selected, ok := m.selectedRow()
	if !ok {
		m.status = "nothing selected"
		return nil
	}
	next, ok := forwardStage(selected.Stage)
	if !ok {
		m.status = fmt.Sprintf("%s has no forward stage", selected.Stage)
		return nil
	}
	return func() tea.Msg {
		updated, err := m.service.Transition(m.ctx, assessment.TransitionInput{
			AssessmentID: selected.AssessmentID,
			TargetStage:  string(next),
			Actor:        m.actor,
		})
		return actionDoneMsg{action: "advance", assessmentID: selected.AssessmentID, result: string(updated.Stage), err: err}
	}
}

func (m *boardModel) ensureArtifactsCmd() tea.Cmd {
	selected, ok := m.selectedRow()
	if !ok {
		m.status = "nothing selected"
		return nil
	}
	return func() tea.Msg {
		set, err := m.service.EnsureArtifacts(m.ctx, assessment.EnsureArtifactsInput{
			AssessmentID: selected.AssessmentID,
			Actor:        m.actor,
		})
		result := "incomplete"
		if set.Complete() {
			result = "complete"
		}
		return actionDoneMsg{action: "artifacts", assessmentID: selected.AssessmentID, result: result, err: err}
	}
}

func (m *boardModel) cancelCmd() tea.Cmd {
	selected, ok := m.selectedRow()
	if !ok {
		m.status = "nothing selected"
		return nil
	}
	return func() tea.Msg {
		updated, err := m.service.Cancel(m.ctx, selected.AssessmentID, m.actor)
		return actionDoneMsg{action: "cancel", assessmentID: selected.AssessmentID, result: string(updated.Status), err: err}
	}
}

func (m *boardModel) currentStage() domain.Stage {
	return m.stages[m.stageIndex]
}

func (m *boardModel) selectedRow() (ports.AssessmentListRow, bool) {
	if m.selectedIndex < 0 || m.selectedIndex >= len(m.rows) {
		return ports.AssessmentListRow{}, false
	}
	return m.rows[m.selectedIndex], true
}

func (m *boardModel) appendAuditLog(msg actionDoneMsg) {
	outcome := strings.TrimSpace(msg.result)
	if msg.err != nil {
		outcome = "error: " + msg.err.Error()
	}
	if outcome == "" {
		outcome = "ok"
	}

	timestamp := time.Now().UTC().Format(time.RFC3339)
	line := fmt.Sprintf("%s actor=%s assessment=%s action=%s result=%s", timestamp, m.actor.ID, shortID(msg.assessmentID), msg.action, outcome)
	m.auditLogs = append([]string{line}, m.auditLogs...)
	if len(m.auditLogs) > maxAuditLines {
		m.auditLogs = m.auditLogs[:maxAuditLines]
	}

	logging.Info(m.ctx, "board console action",
		slog.String("actor_id", m.actor.ID),
		slog.String("assessment_id", msg.assessmentID),
		slog.String("action", msg.action),
		slog.String("result", outcome),
	)
}

// forwardStage is the happy-path successor: the first allowed edge that is
// neither rework nor cancel.
func forwardStage(from domain.Stage) (domain.Stage, bool) {
	for _, to := range from.Next() {
		if to == domain.StageCancelled || domain.IsRework(from, to) {
			continue
		}
		return to, true
	}
	return "", false
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
