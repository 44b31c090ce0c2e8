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
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/gdamore/tcell/v2/views"

	"github.com/jlevy/procdog/procdog/util"
)

// LogPanel tails one watchdog's log ring; the app long-polls for new
// records while the panel is showing.
type LogPanel struct {
	text *views.TextArea
	row  *util.Row
	id   string
	err  error

	Panel
}

func NewLogPanel(app *App) *LogPanel {
	p := &LogPanel{}

	p.Panel.Init(app)

	p.text = views.NewTextArea()
	p.text.EnableCursor(false)
	p.text.SetStyle(tcell.StyleDefault.
		Foreground(tcell.ColorSilver).Background(tcell.ColorBlack))
	p.SetContent(p.text)
	p.update()

	return p
}

func (p *LogPanel) Draw() {
	p.update()
	p.Panel.Draw()
}

func (p *LogPanel) HandleEvent(ev tcell.Event) bool {
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
			case 'I', 'i':
				if row != nil {
					app.ShowInfo(row.Id)
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
			}
		}
	}
	return p.Panel.HandleEvent(ev)
}

func (p *LogPanel) SetId(id string) {
	p.SetTitle("Loading")
	p.text.SetLines(nil)
	p.id = id
}

// update refreshes the visible records.  Called from Draw with the
// application lock held.
func (p *LogPanel) update() {
	row, e1 := p.App().GetItem(p.id)
	loginfo, e2 := p.App().GetLog(p.id)
	p.row = row

	words := []string{"[ESC] Main", "[H] Help"}

	p.SetTitle("Log for " + p.id)

	if loginfo == nil {
		e := e2
		if e == nil {
			e = e1
		}
		if e != nil {
			p.SetStatus(fmt.Sprintf("No data: %v", e))
			p.SetError()
		} else {
			p.SetStatus("Loading ...")
			p.SetNormal()
		}
		p.text.SetLines([]string{""})
		p.SetKeys(words)
		return
	}

	p.SetStatus("")
	if row != nil {
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
	}

	lines := make([]string, 0, len(loginfo.Records))
	for _, r := range loginfo.Records {
		line := fmt.Sprintf("%s %s",
			r.Time.Format(time.StampMilli), r.Text)
		lines = append(lines, line)
	}
	p.text.SetLines(lines)

	if row != nil {
		words = append(words, "[I] Info")
		if row.Pid != 0 {
			if st := row.Status; st != nil && st.State == "running" {
				words = append(words, "[S] Stop")
			}
			words = append(words, "[R] Restart")
		}
	}
	p.SetKeys(words)
}
