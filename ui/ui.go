package ui

import (
	"bytes"
	"context"
	"image/color"
	"strings"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"

	"github.com/calvinmclean/jogpanel"
	"github.com/calvinmclean/jogpanel/controller"
)

const maxLogLines = 200

var stateColors = map[controller.PanelState]color.Color{
	controller.PanelStateRunning: color.RGBA{R: 0, G: 128, B: 0, A: 255},
	controller.PanelStateStopped: color.RGBA{R: 139, G: 0, B: 0, A: 255},
	controller.PanelStateFaulted: color.RGBA{R: 200, G: 100, B: 0, A: 255},
}

// ConnectFunc starts the controller with the submitted Config and returns the Connection
// that commands are sent to
type ConnectFunc func(controller.Config) (Connection, error)

// JogPanelUI is a desktop jog pad. It implements io.Writer so device output can be shown
// in the log and used to update the panel state
type JogPanelUI struct {
	app fyne.App

	stateText *canvas.Text
	logLabel  *widget.Label
	logScroll *container.Scroll

	mtx      sync.Mutex
	partial  []byte
	logLines []string
}

func NewJogPanelUI() *JogPanelUI {
	return &JogPanelUI{
		app:       app.NewWithID("com.calvinmclean.jogpanel"),
		stateText: canvas.NewText(controller.PanelStateUnknown.String(), nil),
		logLabel:  widget.NewLabel(""),
	}
}

// Write implements io.Writer. Only complete lines are shown
func (ui *JogPanelUI) Write(p []byte) (int, error) {
	ui.mtx.Lock()
	ui.partial = append(ui.partial, p...)
	var lines []string
	for {
		i := bytes.IndexByte(ui.partial, '\n')
		if i < 0 {
			break
		}
		line := strings.TrimRight(string(ui.partial[:i]), "\r")
		ui.partial = ui.partial[i+1:]
		if line != "" {
			lines = append(lines, line)
		}
	}
	ui.mtx.Unlock()

	if len(lines) > 0 {
		fyne.Do(func() {
			ui.addLines(lines)
		})
	}

	return len(p), nil
}

func (ui *JogPanelUI) addLines(lines []string) {
	for _, line := range lines {
		s, ok := controller.ParsePanelState(line)
		if ok {
			ui.stateText.Text = s.String()
			ui.stateText.Color = stateColors[s]
			ui.stateText.Refresh()
		}
	}

	ui.logLines = append(ui.logLines, lines...)
	if len(ui.logLines) > maxLogLines {
		ui.logLines = ui.logLines[len(ui.logLines)-maxLogLines:]
	}
	ui.logLabel.SetText(strings.Join(ui.logLines, "\n"))
	if ui.logScroll != nil {
		ui.logScroll.ScrollToBottom()
	}
}

// Run shows the configuration window if no serial port is configured, then connects and
// shows the jog pad. It blocks until the app exits
func (ui *JogPanelUI) Run(ctx context.Context, cfg controller.Config, connect ConnectFunc) {
	start := func() {
		conn, err := connect(cfg)
		if err != nil {
			window := ui.app.NewWindow("Jog Panel")
			window.Show()
			showError(ui.app, window, err)
			return
		}
		ui.showJogPad(conn)
	}

	if cfg.SerialPort == "" {
		cw := NewConfigWindow(ui.app)
		cw.OnSubmit = start
		cw.Show(&cfg)
	} else {
		start()
	}

	go func() {
		<-ctx.Done()
		fyne.Do(func() {
			ui.app.Quit()
		})
	}()

	ui.app.Run()
}

func (ui *JogPanelUI) showJogPad(conn Connection) {
	window := ui.app.NewWindow("Jog Panel")

	lastJogTimer := newTimer()
	lastJogTimer.Go()

	c := newControllerWrapper(conn, lastJogTimer)

	jogButton := func(label string, axis jogpanel.Axis, dir jogpanel.Direction) *widget.Button {
		return widget.NewButton(label, func() {
			c.Jog(axis, dir)
		})
	}

	stopButton := widget.NewButton("E-STOP", c.EmergencyStop)
	stopButton.Importance = widget.DangerImportance

	ui.logScroll = container.NewVScroll(ui.logLabel)
	ui.logScroll.SetMinSize(fyne.NewSize(300, 150))

	content := container.NewVBox(
		container.NewHBox(
			container.NewPadded(ui.stateText),
			layout.NewSpacer(),
			widget.NewLabel("Since last jog:"),
			container.NewPadded(lastJogTimer.text),
		),
		stopButton,
		widget.NewCard("Stepper 1", "", container.NewGridWithColumns(2,
			jogButton("CCW", jogpanel.AxisStepper1, jogpanel.DirectionCCW),
			jogButton("CW", jogpanel.AxisStepper1, jogpanel.DirectionCW),
		)),
		widget.NewCard("Stepper 2", "", container.NewGridWithColumns(2,
			jogButton("CCW", jogpanel.AxisStepper2, jogpanel.DirectionCCW),
			jogButton("CW", jogpanel.AxisStepper2, jogpanel.DirectionCW),
		)),
		widget.NewCard("Actuator", "", container.NewGridWithColumns(2,
			jogButton("Down", jogpanel.AxisActuator, jogpanel.DirectionCCW),
			jogButton("Up", jogpanel.AxisActuator, jogpanel.DirectionCW),
		)),
		container.NewGridWithColumns(3,
			widget.NewButton("Reset", c.Reset),
			widget.NewButton("Status", c.Status),
			widget.NewButton("Faults", c.Faults),
		),
		widget.NewAccordion(
			widget.NewAccordionItem("Logs", ui.logScroll),
		),
	)

	window.SetCloseIntercept(func() {
		lastJogTimer.Stop()
		c.Close()
		window.Close()
		ui.app.Quit()
	})
	window.SetContent(content)
	window.Resize(fyne.NewSize(360, 480))
	window.Show()

	c.Status()
}
