// Command scopemon is a read-only curses status monitor: it polls the
// daemon's HTTP status endpoint and renders the mount, dome, focuser,
// filter wheel, and weather state. It never issues a command; operators
// drive the scope through the fifos or scopectl.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/jmhannon/rigel-master/internal/telshm"
)

const rad2deg = 180.0 / 3.14159265358979323846

func main() {
	url := flag.String("url", "http://localhost:8080", "base URL of the scoped status API")
	interval := flag.Duration("interval", time.Second, "poll interval")
	flag.Parse()

	app := tview.NewApplication()

	mountView := newPanel("Mount")
	domeView := newPanel("Dome")
	focusView := newPanel("Focus / Filter")
	wxView := newPanel("Weather")
	statusBar := tview.NewTextView().SetDynamicColors(true)
	statusBar.SetText("[yellow]connecting...[-]")

	grid := tview.NewGrid().
		SetRows(0, 0, 1).
		SetColumns(0, 0).
		AddItem(mountView, 0, 0, 1, 1, 0, 0, false).
		AddItem(domeView, 0, 1, 1, 1, 0, 0, false).
		AddItem(focusView, 1, 0, 1, 1, 0, 0, false).
		AddItem(wxView, 1, 1, 1, 1, 0, 0, false).
		AddItem(statusBar, 2, 0, 1, 2, 0, 0, false)

	app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Rune() == 'q' || event.Key() == tcell.KeyEscape {
			app.Stop()
			return nil
		}
		return event
	})

	client := &http.Client{Timeout: 3 * time.Second}
	go func() {
		ticker := time.NewTicker(*interval)
		defer ticker.Stop()
		for range ticker.C {
			snap, err := fetchStatus(client, *url)
			app.QueueUpdateDraw(func() {
				if err != nil {
					statusBar.SetText(fmt.Sprintf("[red]%v[-]", err))
					return
				}
				render(snap, mountView, domeView, focusView, wxView)
				statusBar.SetText(fmt.Sprintf("[green]seq %d[-]  press q to quit", snap.Header.Seq))
			})
		}
	}()

	if err := app.SetRoot(grid, true).Run(); err != nil {
		log.Fatalf("scopemon: %v", err)
	}
}

func newPanel(title string) *tview.TextView {
	tv := tview.NewTextView().SetDynamicColors(true)
	tv.SetBorder(true).SetTitle(" " + title + " ")
	return tv
}

func fetchStatus(client *http.Client, base string) (telshm.Snapshot, error) {
	var snap telshm.Snapshot
	resp, err := client.Get(base + "/status")
	if err != nil {
		return snap, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return snap, fmt.Errorf("status API returned %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return snap, fmt.Errorf("decode status: %w", err)
	}
	return snap, nil
}

func render(snap telshm.Snapshot, mountView, domeView, focusView, wxView *tview.TextView) {
	st := snap.Status

	mountView.SetText(fmt.Sprintf(
		"State:     [yellow]%s[-]\n"+
			"Alt/Az:    %8.3f° / %8.3f°\n"+
			"HA/Dec:    %8.3f° / %8.3f°\n"+
			"J2000:     %8.3f° / %8.3f°\n"+
			"PA:        %8.3f°\n"+
			"Jogging:   %v",
		st.TelState,
		st.CAlt*rad2deg, st.CAz*rad2deg,
		st.CAHA*rad2deg, st.CADec*rad2deg,
		st.CJ2kRA*rad2deg, st.CJ2kDec*rad2deg,
		st.CPA*rad2deg,
		st.JoggingIsOn(),
	))

	domeView.SetText(fmt.Sprintf(
		"Dome:      [yellow]%s[-]\n"+
			"Shutter:   [yellow]%s[-]\n"+
			"Azimuth:   %8.3f°\n"+
			"Auto:      %v",
		st.DomeState, st.ShutterState,
		st.DomeAz*rad2deg,
		st.AutoDome,
	))

	focusView.SetText(fmt.Sprintf(
		"Filter:    [yellow]%s[-]\n"+
			"AutoFocus: %v\n"+
			"Scan:      %s",
		st.FilterState,
		st.AutoFocus,
		st.Scan.Filter,
	))

	alertColor := "green"
	if st.Wx.Alert {
		alertColor = "red"
	}
	wxView.SetText(fmt.Sprintf(
		"Alert:     [%s]%v[-]\n"+
			"Ambient:   %6.1f °C\n"+
			"Wind:      %6.1f m/s\n"+
			"Updated:   %s",
		alertColor, st.Wx.Alert,
		st.Wx.AmbientTempC,
		st.Wx.WindSpeedMPS,
		st.Wx.UpdTime.Format("15:04:05"),
	))
}
