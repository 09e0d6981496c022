// Package tui provides the interactive live view of the usage counters.
package tui

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/theirongolddev/convgauge/internal/alert"
	"github.com/theirongolddev/convgauge/internal/cli"
	"github.com/theirongolddev/convgauge/internal/ledger"
	"github.com/theirongolddev/convgauge/internal/lifecycle"
	"github.com/theirongolddev/convgauge/internal/store"
	"github.com/theirongolddev/convgauge/internal/tui/components"
	"github.com/theirongolddev/convgauge/internal/tui/theme"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

// visibleKey is the view's own durable key; nothing else reads it.
const visibleKey = "counterVisible"

const refreshEvery = 2 * time.Second

type tickMsg time.Time

// App is the root Bubble Tea model for the live view.
type App struct {
	led      *ledger.Ledger
	st       *store.Store
	resetter *lifecycle.Resetter

	width   int
	height  int
	visible bool

	planForm     *huh.Form
	planChoice   *string
	choosingPlan bool
}

// NewApp builds the live view model over an open ledger and store.
func NewApp(led *ledger.Ledger, st *store.Store) App {
	visible := true
	if rec, err := st.Get(visibleKey); err == nil && rec[visibleKey] == "false" {
		visible = false
	}

	return App{
		led:      led,
		st:       st,
		resetter: lifecycle.New(led),
		visible:  visible,
	}
}

// Run starts the live view and blocks until it exits.
func Run(led *ledger.Ledger, st *store.Store) error {
	_, err := tea.NewProgram(NewApp(led, st), tea.WithAltScreen()).Run()
	return err
}

func tick() tea.Cmd {
	return tea.Tick(refreshEvery, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Init checks the day boundary immediately so a view opened after midnight
// shows a fresh daily counter.
func (a App) Init() tea.Cmd {
	a.resetter.CheckDay()
	return tick()
}

// Update handles input and the refresh tick.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height

	case tickMsg:
		a.resetter.CheckDay()
		return a, tick()

	case tea.KeyMsg:
		if a.choosingPlan {
			break
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return a, tea.Quit
		case "p":
			choice := string(a.led.Plan())
			a.planChoice = &choice
			a.planForm = newPlanForm(a.planChoice)
			a.choosingPlan = true
			return a, a.planForm.Init()
		case "r":
			if err := a.led.ResetConversation(a.led.LastURL()); err != nil {
				log.Printf("convgauge: %v", err)
			}
		case "d":
			if err := a.led.ResetDaily(time.Now().Format("2006-01-02")); err != nil {
				log.Printf("convgauge: %v", err)
			}
		case "v":
			a.visible = !a.visible
			value := "true"
			if !a.visible {
				value = "false"
			}
			if err := a.st.Set(map[string]string{visibleKey: value}); err != nil {
				log.Printf("convgauge: %v", err)
			}
		}
	}

	if a.choosingPlan && a.planForm != nil {
		form, cmd := a.planForm.Update(msg)
		if f, ok := form.(*huh.Form); ok {
			a.planForm = f
		}
		if a.planForm.State == huh.StateCompleted {
			a.choosingPlan = false
			if err := a.led.SetPlan(ledger.ParsePlan(*a.planChoice)); err != nil {
				log.Printf("convgauge: %v", err)
			}
		} else if a.planForm.State == huh.StateAborted {
			a.choosingPlan = false
		}
		return a, cmd
	}

	return a, nil
}

func newPlanForm(choice *string) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Subscription plan").
				Options(
					huh.NewOption("Free", "free"),
					huh.NewOption("Pro", "pro"),
					huh.NewOption("Max", "max"),
				).
				Value(choice),
		),
	)
}

// View renders the counters, gauges and active alert banners.
func (a App) View() string {
	t := theme.Active

	if a.choosingPlan && a.planForm != nil {
		return a.planForm.View()
	}

	titleStyle := lipgloss.NewStyle().Foreground(t.Accent).Bold(true)
	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim)

	if !a.visible {
		return "\n" + dimStyle.Render("  convgauge hidden — press v to show, q to quit") + "\n"
	}

	c := a.led.Counters()
	r := a.led.Ratios()
	limits := ledger.LimitsFor(c.Plan)

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(titleStyle.Render("  convgauge"))
	b.WriteString(labelStyle.Render(fmt.Sprintf("  plan: %s", c.Plan)))
	if c.LastURL != "" {
		b.WriteString(labelStyle.Render("  conversation: "))
		b.WriteString(valueStyle.Render(c.LastURL))
	}
	b.WriteString("\n\n")

	barW := a.width - 30
	if barW < 20 {
		barW = 20
	}
	if barW > 60 {
		barW = 60
	}

	b.WriteString("  " + components.Gauge("daily", r.Daily, 10, barW) + "\n")
	b.WriteString("  " + components.Gauge("context", r.Context, 10, barW) + "\n")
	b.WriteString("  " + components.Gauge("messages", r.Message, 10, barW) + "\n\n")

	b.WriteString(labelStyle.Render("  today      "))
	b.WriteString(valueStyle.Render(fmt.Sprintf("%s / %s tokens",
		cli.FormatTokens(c.DailyTokens), cli.FormatTokens(limits.DailyTokens))))
	b.WriteString("\n")
	b.WriteString(labelStyle.Render("  this chat  "))
	b.WriteString(valueStyle.Render(fmt.Sprintf("%s / %s tokens, %s / %d messages",
		cli.FormatTokens(c.ConversationTokens), cli.FormatTokens(ledger.ContextWindowTokens),
		cli.FormatNumber(c.ConversationMessages), limits.ConversationMessages)))
	b.WriteString("\n")

	alerts := alert.Evaluate(r)
	if len(alerts) > 0 {
		b.WriteString("\n")
		for _, al := range alerts {
			b.WriteString("  " + components.Banner(string(al.Severity), al.Message) + "\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render("  p plan · r reset chat · d reset daily · v hide · q quit"))
	b.WriteString("\n")

	return b.String()
}
