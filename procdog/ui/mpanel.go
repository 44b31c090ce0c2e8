// Copyright 2025 The Procdog Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the license at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/gdamore/tcell/v2/views"

	"github.com/jlevy/procdog/procdog/util"
)

var (
	StyleNormal = tcell.StyleDefault.
			Foreground(tcell.ColorSilver).
			Background(tcell.ColorBlack)
	StyleGood = tcell.StyleDefault.
			Foreground(tcell.ColorGreen).
			Background(tcell.ColorBlack)
	StyleWarn = tcell.StyleDefault.
			Foreground(tcell.ColorYellow).
			Background(tcell.ColorBlack)
	StyleError = tcell.StyleDefault.
			Foreground(tcell.ColorMaroon).
			Background(tcell.ColorBlack)
)

// MainPanel is the process list: one row per discovered id, with
// selection, and per-row operations bound to keys.
type MainPanel struct {
	content  *views.CellView
	selected *util.Row
	nfailed  int
	nrunning int
	nstopped int
	ndown    int
	width    int
	height   int
	curx     int
	cury     int
	lines    []string
	styles   []tcell.Style
	items    []*util.Row

	Panel
}

// mainModel adapts a MainPanel to the views.CellModel interface.
type mainModel struct {
	m *MainPanel
}

func NewMainPanel(app *App, base string) *MainPanel {
	m := &MainPanel{}

	m.Panel.Init(app)
	m.content = views.NewCellView()
	m.SetContent(m.content)

	m.content.SetModel(&mainModel{m})
	m.content.SetStyle(StyleNormal)

	m.SetTitle(base)
	m.SetKeys([]string{"[Q] Quit"})

	return m
}

func (m *MainPanel) Draw() {
	m.update()
	m.Panel.Draw()
}

func (m *MainPanel) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEsc:
			m.unselect()
			return true
		case tcell.KeyF1:
			m.App().ShowHelp()
			return true
		case tcell.KeyEnter:
			if m.selected != nil {
				m.App().ShowInfo(m.selected.Id)
				return true
			}
		case tcell.KeyRune:
			switch ev.Rune() {
			case 'Q', 'q':
				m.App().Quit()
				return true
			case 'H', 'h':
				m.App().ShowHelp()
				return true
			case 'I', 'i':
				if m.selected != nil {
					m.App().ShowInfo(m.selected.Id)
					return true
				}
			case 'L', 'l':
				if m.selected != nil && m.selected.Pid != 0 {
					m.App().ShowLog(m.selected.Id)
					return true
				}
			case 'R', 'r':
				if m.selected != nil && m.selected.Pid != 0 {
					m.App().RestartProcess(m.selected.Id)
					return true
				}
			case 'S', 's':
				if sel := m.selected; sel != nil && sel.Status != nil &&
					sel.Status.State == "running" {
					m.App().StopProcess(sel.Id)
					return true
				}
			case 'K', 'k':
				if m.selected != nil && m.selected.Pid != 0 {
					m.App().KillProcess(m.selected.Id)
					return true
				}
			case 'C', 'c':
				if sel := m.selected; sel != nil && sel.Status != nil &&
					sel.Status.State == "running" {
					m.App().CheckProcess(sel.Id)
					return true
				}
			}
		}
	}
	return m.Panel.HandleEvent(ev)
}

// Model items
func (model *mainModel) GetCell(x, y int) (rune, tcell.Style, []rune, int) {
	var ch rune
	var style tcell.Style

	m := model.m

	if y < 0 || y >= len(m.lines) {
		return ch, StyleNormal, nil, 1
	}

	if x >= 0 && x < len(m.lines[y]) {
		ch = rune(m.lines[y][x])
	} else {
		ch = ' '
	}
	style = m.styles[y]
	if m.items[y] == m.selected {
		style = style.Reverse(true)
	}
	return ch, style, nil, 1
}

func (model *mainModel) GetBounds() (int, int) {
	// Assumes all content is displayable runes of width 1.
	m := model.m
	y := len(m.lines)
	x := 0
	for _, l := range m.lines {
		if x < len(l) {
			x = len(l)
		}
	}
	return x, y
}

func (model *mainModel) GetCursor() (int, int, bool, bool) {
	m := model.m
	return m.curx, m.cury, true, false
}

func (model *mainModel) MoveCursor(offx, offy int) {
	m := model.m
	m.curx += offx
	m.cury += offy
	m.updateCursor(true)
}

func (model *mainModel) SetCursor(x, y int) {
	m := model.m
	m.curx = x
	m.cury = y
	m.updateCursor(true)
}

func (m *MainPanel) unselect() {
	m.cury = 0
	m.curx = 0
	m.updateCursor(false)
}

func (m *MainPanel) updateCursor(selected bool) {
	if m.curx > m.width-1 {
		m.curx = m.width - 1
	}
	if m.cury > m.height-1 {
		m.cury = m.height - 1
	}
	if m.curx < 0 {
		m.curx = 0
	}
	if m.cury < 0 {
		m.cury = 0
	}
	if selected && m.height > 0 && m.cury < len(m.items) {
		if m.selected == nil {
			m.curx = 0
			m.cury = 0
		}
		m.selected = m.items[m.cury]
	} else {
		m.selected = nil
	}
}

// update recomputes the content.  It is called from Draw, with the
// application lock held.
func (m *MainPanel) update() {
	items, err := m.App().GetItems()
	m.items = items

	// preserve the selection across refreshes
	if sel := m.selected; sel != nil {
		m.selected = nil
		for cury, item := range m.items {
			if item.Id == sel.Id {
				m.selected = item
				m.cury = cury
			}
		}
	}
	if err != nil {
		m.SetError()
		m.SetStatus(fmt.Sprintf("Cannot scan processes: %v", err))
		m.lines = []string{}
		m.styles = []tcell.Style{}
		return
	}

	lines := make([]string, 0, len(m.items))
	styles := make([]tcell.Style, 0, len(m.items))

	m.nfailed = 0
	m.nrunning = 0
	m.nstopped = 0
	m.ndown = 0

	m.height = 0
	m.width = 0

	for _, row := range items {
		line := fmt.Sprintf("%-20s %-12s %10s   %s",
			row.Id, util.StatusWord(row), util.Uptime(row), util.Detail(row))

		if len(line) > m.width {
			m.width = len(line)
		}
		m.height++

		lines = append(lines, line)
		var style tcell.Style
		switch util.StatusWord(row) {
		case "failed", "unreachable":
			style = StyleError
			m.nfailed++
		case "running":
			style = StyleGood
			m.nrunning++
		case "unhealthy":
			style = StyleWarn
			m.nrunning++
		case "not running":
			style = StyleNormal
			m.ndown++
		default:
			style = StyleWarn
			m.nstopped++
		}
		styles = append(styles, style)
	}

	m.lines = lines
	m.styles = styles

	m.SetStatus(fmt.Sprintf(
		"%6d Processes %6d Faulted %6d Running %6d Stopped %6d Down",
		len(m.items),
		m.nfailed, m.nrunning, m.nstopped, m.ndown))

	if m.nfailed > 0 {
		m.SetError()
	} else if m.nstopped > 0 {
		m.SetWarn()
	} else if m.nrunning > 0 {
		m.SetGood()
	} else {
		m.SetNormal()
	}

	words := []string{"[Q] Quit", "[H] Help"}

	if item := m.selected; item != nil {
		words = append(words, "[I] Info")
		if item.Pid != 0 {
			words = append(words, "[L] Log")
			if st := item.Status; st != nil && st.State == "running" {
				words = append(words, "[S] Stop")
				words = append(words, "[C] Check")
			}
			words = append(words, "[R] Restart")
			words = append(words, "[K] Kill")
		}
	}
	m.SetKeys(words)
}
