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
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/gdamore/tcell/v2/views"

	"github.com/jlevy/procdog/procdog/util"
)

// InfoPanel shows everything known about one process.
type InfoPanel struct {
	text *views.TextArea
	row  *util.Row
	id   string
	err  error

	Panel
}

func NewInfoPanel(app *App) *InfoPanel {
	p := &InfoPanel{}

	p.Panel.Init(app)

	p.text = views.NewTextArea()
	p.text.EnableCursor(false)
	p.text.SetStyle(tcell.StyleDefault.
		Foreground(tcell.ColorSilver).Background(tcell.ColorBlack))
	p.SetContent(p.text)

	return p
}

func (p *InfoPanel) Draw() {
	p.update()
	p.Panel.Draw()
}

func (p *InfoPanel) HandleEvent(ev tcell.Event) bool {
	row := p.row
	app := p.App()
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEsc:
			app.ShowMain()
			return true
		case tcell.KeyF1:
			app.ShowHelp()
			return true
		case tcell.KeyRune:
			switch ev.Rune() {
			case 'Q', 'q':
				app.ShowMain()
				return true
			case 'H', 'h':
				app.ShowHelp()
				return true
			case 'L', 'l':
				if row != nil && row.Pid != 0 {
					app.ShowLog(row.Id)
					return true
				}
			case 'R', 'r':
				if row != nil && row.Pid != 0 {
					app.RestartProcess(row.Id)
					return true
				}
			case 'S', 's':
				if row != nil && row.Status != nil &&
					row.Status.State == "running" {
					app.StopProcess(row.Id)
					return true
				}
			case 'K', 'k':
				if row != nil && row.Pid != 0 {
					app.KillProcess(row.Id)
					return true
				}
			case 'C', 'c':
				if row != nil && row.Status != nil &&
					row.Status.State == "running" {
					app.CheckProcess(row.Id)
					return true
				}
			}
		}
	}
	return p.Panel.HandleEvent(ev)
}

func (p *InfoPanel) SetId(id string) {
	p.id = id
	p.SetTitle("Details for " + id)
}

// update refreshes the detail lines.  Called from Draw with the
// application lock held.
func (p *InfoPanel) update() {
	row, err := p.App().GetItem(p.id)
	p.row = row
	p.err = err

	words := []string{"[ESC] Main", "[H] Help"}

	if row == nil {
		if err != nil {
			p.SetStatus(fmt.Sprintf("No data: %v", err))
			p.SetError()
		} else {
			p.SetStatus("Loading ...")
			p.SetNormal()
		}
		p.text.SetLines(nil)
		p.SetKeys(words)
		return
	}

	p.SetStatus("")
	switch util.StatusWord(row) {
	case "failed", "unreachable":
		p.SetError()
	case "running":
		p.SetGood()
	case "not running":
		p.SetNormal()
	default:
		p.SetWarn()
	}

	lines := make([]string, 0, 12)
	lines = append(lines, fmt.Sprintf("%13s %s", "Id:", row.Id))
	lines = append(lines, fmt.Sprintf("%13s %s", "Status:", util.StatusWord(row)))

	if st := row.Status; st != nil {
		lines = append(lines, fmt.Sprintf("%13s %s", "Command:",
			strings.Join(st.Command, " ")))
		if st.Dir != "" {
			lines = append(lines, fmt.Sprintf("%13s %s", "Dir:", st.Dir))
		}
		if st.Pid != 0 {
			lines = append(lines, fmt.Sprintf("%13s %d", "Pid:", st.Pid))
			lines = append(lines, fmt.Sprintf("%13s %s", "Uptime:", util.Uptime(row)))
		}
		lines = append(lines, fmt.Sprintf("%13s %v", "Since:",
			st.TimeStamp.Format(time.RFC1123)))
		lines = append(lines, fmt.Sprintf("%13s %s", "Reason:", st.Reason))
		if st.Health != "" {
			lines = append(lines, fmt.Sprintf("%13s %s", "Health:", st.Health))
		}
		lines = append(lines, fmt.Sprintf("%13s %d", "Starts:", st.Starts))
		if st.State == "stopped" || st.State == "failed" {
			lines = append(lines, fmt.Sprintf("%13s %d", "Exit code:", st.ExitCode))
		}
	} else if row.Err != nil {
		lines = append(lines, fmt.Sprintf("%13s %v", "Error:", row.Err))
	}
	if row.Pid != 0 {
		lines = append(lines, fmt.Sprintf("%13s pid %d", "Watchdog:", row.Pid))
	} else {
		lines = append(lines, fmt.Sprintf("%13s down", "Watchdog:"))
	}

	p.text.SetLines(lines)

	if row.Pid != 0 {
		words = append(words, "[L] Log")
		if st := row.Status; st != nil && st.State == "running" {
			words = append(words, "[S] Stop")
			words = append(words, "[C] Check")
		}
		words = append(words, "[R] Restart")
		words = append(words, "[K] Kill")
	}
	p.SetKeys(words)
}
