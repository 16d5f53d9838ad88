package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	kctx "github.com/skillrun/skillrun/pkg/kernel/context"
	"github.com/skillrun/skillrun/pkg/kernel/engine"
	"github.com/skillrun/skillrun/pkg/kernel/schema"
)

// stepDoneMsg reports one step's start (status "RUNNING") or completion,
// queued by the engine's Listener from a background goroutine and drained
// into the log pane.
type stepDoneMsg struct {
	name   string
	status string
	i, n   int
}

// runDoneMsg reports the terminating SkillResult (success, failure, or a
// pause for input) once Execute/Resume returns.
type runDoneMsg struct {
	result kctx.SkillResult
	err    error
}

// model is the single Bubble Tea model driving one Skill's execution from
// launch to completion, including any number of AWAIT pauses in between.
type model struct {
	skill  *schema.Skill
	eng    *engine.Engine
	events chan stepDoneMsg

	log      viewport.Model
	logLines []string

	awaiting bool
	await    *kctx.AwaitRequest
	execID   string
	fields   []string
	inputs   []textinput.Model
	focus    int

	done    bool
	result  kctx.SkillResult
	errText string

	width, height int
}

func newModel(skill *schema.Skill, eng *engine.Engine) model {
	return model{
		skill:  skill,
		eng:    eng,
		events: make(chan stepDoneMsg, 32),
		log:    viewport.New(80, 20),
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.startExecute(), waitForEvent(m.events))
}

// startExecute wires the engine's Listener to m.events and runs Execute
// against the skill's own defaults, returning the terminal result as a
// runDoneMsg. No initial inputs are collected: an empty input map is
// resolved, so a skill with a required input that has no default fails.
func (m model) startExecute() tea.Cmd {
	m.eng.Listener.OnStepStart = func(st *schema.Step, i, n int) {
		m.events <- stepDoneMsg{name: st.Name, status: "RUNNING", i: i, n: n}
	}
	m.eng.Listener.OnStepComplete = func(st *schema.Step, result kctx.StepResult, i, n int) {
		m.events <- stepDoneMsg{name: st.Name, status: string(result.Status), i: i, n: n}
	}
	return func() tea.Msg {
		resolved, err := engine.ResolveInput(m.skill, map[string]any{})
		if err != nil {
			return runDoneMsg{err: err}
		}
		result := m.eng.Execute(context.Background(), m.skill, resolved)
		return runDoneMsg{result: result}
	}
}

func (m model) resume(answers map[string]any) tea.Cmd {
	execID := m.execID
	return func() tea.Msg {
		result, err := m.eng.Resume(context.Background(), m.skill, execID, answers)
		return runDoneMsg{result: result, err: err}
	}
}

func waitForEvent(ch chan stepDoneMsg) tea.Cmd {
	return func() tea.Msg {
		return <-ch
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.log.Width = msg.Width - 2
		m.log.Height = msg.Height - 8
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "q":
			if !m.awaiting {
				return m, tea.Quit
			}
		}
		if m.awaiting {
			return m.updateForm(msg)
		}
		if m.done {
			return m, tea.Quit
		}

	case stepDoneMsg:
		icon := glyphRunning
		switch msg.status {
		case "SUCCESS":
			icon = glyphPassed
		case "FAILED":
			icon = glyphFailed
		case "SKIPPED":
			icon = glyphPending
		}
		m.logLines = append(m.logLines, fmt.Sprintf("%s [%d/%d] %s — %s", icon, msg.i+1, msg.n, msg.name, msg.status))
		m.log.SetContent(strings.Join(m.logLines, "\n"))
		m.log.GotoBottom()
		return m, waitForEvent(m.events)

	case runDoneMsg:
		if msg.err != nil {
			m.errText = msg.err.Error()
			m.done = true
			return m, nil
		}
		m.result = msg.result
		switch msg.result.Kind {
		case kctx.ResultAwaiting:
			m.beginAwait(msg.result)
			return m, textinput.Blink
		default:
			m.done = true
			return m, nil
		}
	}
	return m, nil
}

// beginAwait renders the paused step's AwaitRequest.InputSchema as one
// textinput.Model per field, focus starting on the first.
func (m *model) beginAwait(result kctx.SkillResult) {
	m.awaiting = true
	m.await = result.AwaitRequest
	m.execID = result.ExecutionID
	m.fields = nil
	m.inputs = nil
	m.focus = 0

	for name := range result.AwaitRequest.InputSchema {
		m.fields = append(m.fields, name)
	}
	for _, name := range m.fields {
		spec := result.AwaitRequest.InputSchema[name]
		ti := textinput.New()
		ti.Placeholder = string(spec.Type)
		ti.CharLimit = 2048
		ti.Width = 40
		m.inputs = append(m.inputs, ti)
	}
	if len(m.inputs) > 0 {
		m.inputs[0].Focus()
	}
}

func (m model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return m, tea.Quit
	case "tab", "down":
		m.inputs[m.focus].Blur()
		m.focus = (m.focus + 1) % len(m.inputs)
		m.inputs[m.focus].Focus()
		return m, nil
	case "shift+tab", "up":
		m.inputs[m.focus].Blur()
		m.focus = (m.focus - 1 + len(m.inputs)) % len(m.inputs)
		m.inputs[m.focus].Focus()
		return m, nil
	case "enter":
		if m.focus < len(m.inputs)-1 {
			m.inputs[m.focus].Blur()
			m.focus++
			m.inputs[m.focus].Focus()
			return m, nil
		}
		answers := make(map[string]any, len(m.fields))
		for i, name := range m.fields {
			answers[name] = m.inputs[i].Value()
		}
		m.awaiting = false
		m.logLines = append(m.logLines, fmt.Sprintf("%s resuming %s", glyphAwait, m.execID))
		m.log.SetContent(strings.Join(m.logLines, "\n"))
		return m, tea.Batch(m.resume(answers), waitForEvent(m.events))
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render(fmt.Sprintf("%s @ %s", m.skill.ID, m.skill.Version)))
	b.WriteString("\n")
	b.WriteString(renderMarkdown(m.skill.Description))
	b.WriteString("\n\n")
	b.WriteString(logPanelStyle.Render(m.log.View()))
	b.WriteString("\n")

	switch {
	case m.errText != "":
		b.WriteString(errorStyle.Render("✗ " + m.errText))
	case m.awaiting:
		b.WriteString(formLabelStyle.Render(m.await.Message))
		b.WriteString("\n")
		for i, name := range m.fields {
			marker := "  "
			if i == m.focus {
				marker = "▸ "
			}
			b.WriteString(fmt.Sprintf("%s%s: %s\n", marker, name, m.inputs[i].View()))
		}
	case m.done:
		switch m.result.Kind {
		case kctx.ResultSuccess:
			b.WriteString(stepPassedStyle.Render(fmt.Sprintf("✓ completed in %s", m.result.Duration)))
		case kctx.ResultFailure:
			b.WriteString(stepFailedStyle.Render("✗ " + m.result.Error))
		}
		b.WriteString("\n")
		b.WriteString(keyBarStyle.Render("q: quit"))
	default:
		b.WriteString(stepRunningStyle.Render("running…"))
	}

	return b.String()
}
