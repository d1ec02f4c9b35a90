package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/jamesainslie/picsweep/pkg/picsweep/commit"
	"github.com/jamesainslie/picsweep/pkg/picsweep/config"
	"github.com/jamesainslie/picsweep/pkg/picsweep/imageinfo"
	"github.com/jamesainslie/picsweep/pkg/picsweep/ledger"
	"github.com/jamesainslie/picsweep/pkg/picsweep/logging"
	"github.com/jamesainslie/picsweep/pkg/picsweep/session"
	"github.com/jamesainslie/picsweep/pkg/picsweep/types"
	"github.com/jamesainslie/picsweep/pkg/picsweep/watcher"
)

// ownWriteWindow covers the watcher debounce after a commit.
const ownWriteWindow = 4 * watcher.DefaultDebounce

// AppState represents the current state of the application.
type AppState int

const (
	StateBrowse AppState = iota
	StateWarning
	StateConfirm
	StateOpen
)

// Options configures the TUI application.
type Options struct {
	// Folder is loaded on start. Empty opens the folder prompt.
	Folder string

	Mode        types.Mode
	ShowWarning bool

	// Watch marks the view stale when the loaded folder changes on disk.
	Watch bool

	// OpenSession builds the engine. n receives its activity messages.
	OpenSession func(n session.Notifier) (*session.Session, error)

	// DisableWarning persists "don't show again".
	DisableWarning func() error
}

// notifier keeps the latest session message for the status line.
type notifier struct {
	last    string
	pending int
}

func (n *notifier) Message(msg string)       { n.last = msg }
func (n *notifier) PendingChanged(count int) { n.pending = count }

type loadMsg struct{ dir string }

type folderChangedMsg struct{ dir string }

type logEntryMsg logging.Entry

// Model is the main Bubble Tea model for the picsweep TUI.
type Model struct {
	options Options
	sess    *session.Session
	notes   *notifier
	log     *logging.Logger

	state        AppState
	afterWarning AppState
	dontShow     bool

	index int
	mode  types.Mode

	// Confirmation dialog state
	modeCursor int
	summary    ledger.Summary

	status    string
	statusErr bool

	logs  *LogViewerState
	logCh <-chan logging.Entry

	input textinput.Model
	infos map[string]string

	watcher *watcher.Watcher
	changes chan string
	ctx     context.Context
	cancel  context.CancelFunc
	live    bool
	stale   bool

	// Watch events before ownWritesUntil come from our own commit.
	ownWritesUntil time.Time

	// Window dimensions
	width  int
	height int
}

// NewModel opens the session and prepares the first screen.
func NewModel(opts Options) (Model, error) {
	if opts.OpenSession == nil {
		return Model{}, errors.New("tui: OpenSession is required")
	}

	notes := &notifier{}
	sess, err := opts.OpenSession(notes)
	if err != nil {
		return Model{}, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	input := textinput.New()
	input.Placeholder = "~/Chat/Image"
	input.Prompt = "> "
	input.Width = 46
	input.CharLimit = 1024

	m := Model{
		options: opts,
		sess:    sess,
		notes:   notes,
		log:     logging.Get("tui"),
		state:   StateBrowse,
		mode:    opts.Mode,
		logs:    NewLogViewerState(),
		logCh:   logging.Subscribe(),
		input:   input,
		infos:   make(map[string]string),
		ctx:     ctx,
		cancel:  cancel,
		width:   80,
		height:  24,
	}

	if opts.Folder == "" {
		m.state = StateOpen
		m.input.Focus()
	}
	if opts.ShowWarning {
		m.afterWarning = m.state
		m.state = StateWarning
		m.input.Blur()
	}

	if opts.Watch {
		w, err := watcher.New(watcher.DefaultDebounce)
		if err != nil {
			m.log.Warn("folder watching disabled", "error", err)
		} else {
			changes := make(chan string, 1)
			go w.Run(ctx, func(dir string) {
				select {
				case changes <- dir:
				default:
				}
			})
			m.watcher = w
			m.changes = changes
		}
	}

	return m, nil
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.listenForLogs(), m.listenForChanges()}
	if m.options.Folder != "" {
		dir := m.options.Folder
		cmds = append(cmds, func() tea.Msg { return loadMsg{dir: dir} })
	}
	if m.state == StateOpen {
		cmds = append(cmds, textinput.Blink)
	}
	return tea.Batch(cmds...)
}

func (m Model) listenForLogs() tea.Cmd {
	if m.logCh == nil {
		return nil
	}
	ch := m.logCh
	return func() tea.Msg {
		e, ok := <-ch
		if !ok {
			return nil
		}
		return logEntryMsg(e)
	}
}

func (m Model) listenForChanges() tea.Cmd {
	if m.changes == nil {
		return nil
	}
	ch := m.changes
	ctx := m.ctx
	return func() tea.Msg {
		select {
		case dir := <-ch:
			return folderChangedMsg{dir: dir}
		case <-ctx.Done():
			return nil
		}
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case loadMsg:
		m.load(msg.dir)
		return m, nil

	case folderChangedMsg:
		m.folderChanged(msg.dir)
		return m, m.listenForChanges()

	case logEntryMsg:
		m.logs.Add(logging.Entry(msg))
		return m, m.listenForLogs()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.state == StateOpen {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

// handleKey handles keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		m.shutdown()
		return m, tea.Quit
	}

	switch m.state {
	case StateWarning:
		switch key {
		case " ", "space", "x":
			m.dontShow = !m.dontShow
		case "enter":
			if m.dontShow && m.options.DisableWarning != nil {
				if err := m.options.DisableWarning(); err != nil {
					m.setStatus("saving preference: "+err.Error(), true)
				}
			}
			m.state = m.afterWarning
			if m.state == StateOpen {
				m.input.Focus()
				return m, textinput.Blink
			}
		case "q", "esc":
			m.shutdown()
			return m, tea.Quit
		}
		return m, nil

	case StateConfirm:
		switch key {
		case "q", "esc", "n":
			m.sess.Cancel()
			m.state = StateBrowse
			m.setStatus("apply cancelled", false)
		case "left", "h":
			m.modeCursor = (m.modeCursor + len(modeChoices) - 1) % len(modeChoices)
		case "right", "l", "tab":
			m.modeCursor = (m.modeCursor + 1) % len(modeChoices)
		case "enter", "y":
			m.commit()
		}
		return m, nil

	case StateOpen:
		switch key {
		case "esc":
			m.input.Blur()
			m.state = StateBrowse
			return m, nil
		case "enter":
			dir := strings.TrimSpace(m.input.Value())
			if dir == "" {
				return m, nil
			}
			expanded, err := config.ExpandPath(dir)
			if err != nil {
				m.setStatus(err.Error(), true)
				return m, nil
			}
			m.input.Blur()
			m.state = StateBrowse
			m.load(expanded)
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	if m.logs.Open {
		switch key {
		case "up":
			m.logs.ScrollUp(m.logHeight() - 2)
			return m, nil
		case "down":
			m.logs.ScrollDown(m.logHeight() - 2)
			return m, nil
		case "1", "2", "3", "4":
			m.logs.SetFilterLevel(logging.Level(key[0] - '1'))
			return m, nil
		}
	}

	switch key {
	case "q", "esc":
		m.shutdown()
		return m, tea.Quit
	case "left", "h":
		m.move(-1)
	case "right", "l":
		m.move(1)
	case "k":
		m.decide(types.ActionKeep)
	case "d":
		m.decide(types.ActionDelete)
	case "u":
		m.undo()
	case "a":
		m.requestCommit()
	case "r":
		if m.sess.Dir() == "" {
			return m.openPrompt()
		}
		m.load(m.sess.Dir())
	case "o":
		return m.openPrompt()
	case "L":
		m.logs.Toggle()
	}

	return m, nil
}

func (m Model) openPrompt() (tea.Model, tea.Cmd) {
	m.state = StateOpen
	m.input.SetValue(m.sess.Dir())
	m.input.CursorEnd()
	m.input.Focus()
	return m, textinput.Blink
}

func (m *Model) load(dir string) {
	previous := m.sess.Dir()

	res, err := m.sess.Load(m.ctx, dir)
	if err != nil {
		m.log.Error("load failed", "folder", dir, "error", err)
		m.setStatus(err.Error(), true)
		return
	}

	m.stale = false
	if m.sess.Dir() != previous {
		m.index = 0
		m.infos = make(map[string]string)
	}
	m.clampIndex()

	if m.watcher != nil {
		if err := m.watcher.Watch(m.sess.Dir()); err != nil {
			m.log.Warn("cannot watch folder", "folder", m.sess.Dir(), "error", err)
			m.live = false
		} else {
			m.live = true
		}
	}

	status := fmt.Sprintf("%d images, %d %s", res.Count, m.sess.Groups(), plural(m.sess.Groups(), "group", "groups"))
	if len(res.Skipped) > 0 {
		status += fmt.Sprintf(", %d skipped", len(res.Skipped))
	}
	m.setStatus(status, false)
}

func (m *Model) move(delta int) {
	n := m.sess.Count()
	if n == 0 {
		return
	}
	m.index += delta
	m.clampIndex()
}

func (m *Model) clampIndex() {
	n := m.sess.Count()
	switch {
	case n == 0:
		m.index = 0
	case m.index >= n:
		m.index = n - 1
	case m.index < 0:
		m.index = 0
	}
}

func (m *Model) decide(action types.Action) {
	item, ok := m.sess.Item(m.index)
	if !ok {
		return
	}

	var (
		res ledger.Result
		err error
	)
	if action == types.ActionKeep {
		res, err = m.sess.Keep(m.index)
	} else {
		res, err = m.sess.Delete(m.index)
	}
	if err != nil {
		m.setStatus(err.Error(), true)
		return
	}

	m.setStatus(describeDecision(item.Filename, action, res), false)
	if m.index < m.sess.Count()-1 {
		m.index++
	}
}

func describeDecision(name string, action types.Action, res ledger.Result) string {
	msg := fmt.Sprintf("%s %s", action, name)

	others := 0
	for _, op := range res.Applied {
		if filepath.Base(op.Path) != name {
			others++
		}
	}
	if others > 0 {
		if action == types.ActionKeep {
			msg += fmt.Sprintf(", delete %d smaller %s", others, plural(others, "copy", "copies"))
		} else {
			msg += fmt.Sprintf(" and %d %s", others, plural(others, "variant", "variants"))
		}
	}
	if n := len(res.Overwritten); n > 0 {
		msg += fmt.Sprintf(" (replaced %d earlier %s)", n, plural(n, "decision", "decisions"))
	}
	return msg
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func (m *Model) undo() {
	rep, err := m.sess.Undo()
	switch {
	case errors.Is(err, ledger.ErrNothingToUndo):
		m.setStatus("nothing to undo", false)
		return
	case errors.Is(err, ledger.ErrAlreadyApplied):
		m.setStatus("decisions were already applied", true)
		return
	case err != nil:
		m.setStatus(err.Error(), true)
		return
	}

	if rep.Focus >= 0 {
		m.index = rep.Focus
	}
	m.setStatus(fmt.Sprintf("undid %s %s (%d %s)", rep.AnchorAction, filepath.Base(rep.AnchorPath),
		len(rep.Undone), plural(len(rep.Undone), "entry", "entries")), false)
}

func (m *Model) requestCommit() {
	summary, err := m.sess.RequestCommit()
	if errors.Is(err, commit.ErrNothingPending) {
		m.setStatus("nothing to apply", false)
		return
	}
	if err != nil {
		m.setStatus(err.Error(), true)
		return
	}

	m.summary = summary
	m.modeCursor = modeIndex(m.mode)
	m.state = StateConfirm
}

// folderChanged marks the view stale for changes made outside picsweep.
// An error status stays visible.
func (m *Model) folderChanged(dir string) {
	if dir != m.sess.Dir() {
		return
	}
	if time.Now().Before(m.ownWritesUntil) {
		m.log.Debug("ignoring change from own commit", "folder", dir)
		return
	}
	m.stale = true
	if !m.statusErr {
		m.setStatus("folder changed on disk, press r to rescan", false)
	}
}

func (m *Model) commit() {
	mode := modeChoices[m.modeCursor]
	m.state = StateBrowse

	rep, err := m.sess.Commit(mode)
	m.ownWritesUntil = time.Now().Add(ownWriteWindow)
	if err != nil {
		m.log.Error("apply failed", "mode", mode, "error", err)
		m.setStatus(err.Error(), true)
		return
	}

	m.mode = mode
	m.clampIndex()

	removed := len(rep.Deleted)
	msg := fmt.Sprintf("applied %d, removed %d %s", len(rep.Executed), removed, plural(removed, "file", "files"))
	if mode == types.ModeBackup && removed > 0 {
		msg += " to " + filepath.Base(rep.BackupDir)
	}
	if n := len(rep.Failures); n > 0 {
		msg += fmt.Sprintf(", %d failed", n)
		m.setStatus(msg, true)
		return
	}
	if n := len(rep.Warnings); n > 0 {
		msg += fmt.Sprintf(" (%d %s, see logs)", n, plural(n, "warning", "warnings"))
	}
	m.setStatus(msg, false)
}

func (m *Model) setStatus(msg string, isErr bool) {
	m.status = msg
	m.statusErr = isErr
}

func (m *Model) shutdown() {
	m.cancel()
	if m.watcher != nil {
		_ = m.watcher.Close()
	}
	if m.logCh != nil {
		logging.Unsubscribe(m.logCh)
	}
}

// Close releases the watcher, the log subscription, and the session.
func (m Model) Close() error {
	m.shutdown()
	return m.sess.Close()
}

func (m Model) logHeight() int {
	h := m.height / 3
	if h < 5 {
		h = 5
	}
	return h
}

// View renders the current state.
func (m Model) View() string {
	switch m.state {
	case StateWarning:
		return overlay(m.width, m.height, renderWarningDialog(m.dontShow))
	case StateConfirm:
		return overlay(m.width, m.height, renderConfirmDialog(m.summary, m.modeCursor, m.sess.BackupDir()))
	case StateOpen:
		return overlay(m.width, m.height, renderOpenDialog(m.input.View()))
	}
	return m.renderBrowse()
}

func (m Model) renderBrowse() string {
	var b strings.Builder

	b.WriteString(renderAppHeader(m.index, m.sess.Count(), m.sess.Pending(), m.mode, m.live, m.stale))
	b.WriteString("\n")
	b.WriteString(renderDivider(m.width))
	b.WriteString("\n")

	body := m.renderItem()
	bodyHeight := m.height - 6
	if m.logs.Open {
		bodyHeight -= m.logHeight()
	}
	lines := strings.Split(body, "\n")
	if bodyHeight > 0 && len(lines) > bodyHeight {
		lines = lines[:bodyHeight]
	}
	for len(lines) < bodyHeight {
		lines = append(lines, "")
	}
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteString("\n")

	if m.logs.Open {
		b.WriteString(m.logs.View(m.width, m.logHeight()))
		b.WriteString("\n")
	}

	b.WriteString(renderDivider(m.width))
	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	b.WriteString("\n")
	b.WriteString(renderHelp())

	return b.String()
}

func (m Model) renderItem() string {
	item, ok := m.sess.Item(m.index)
	if !ok {
		msg := "No folder loaded. Press o to open one."
		if m.sess.Dir() != "" {
			msg = "No images left in " + m.sess.Dir()
		}
		return "\n" + center(mutedTextStyle.Render(msg), m.width)
	}

	decisions := make(map[string]types.Action)
	for _, op := range m.sess.Operations() {
		decisions[op.Path] = op.Action
	}

	card := titleStyle.Render(item.Filename) + "  " + fileSizeStyle.Render(humanize.IBytes(uint64(item.Size)))
	if badge := renderBadge(decisions[item.Path]); badge != "" {
		card += "  " + badge
	}
	card += "\n" + mutedTextStyle.Render(truncatePath(item.Path, max(m.width-8, 20)))
	if info := m.imageInfo(item.Path); info != "" {
		card += "\n" + mutedTextStyle.Render(info)
	}

	var b strings.Builder
	b.WriteString(outerBoxStyle.Render(card))
	b.WriteString("\n")

	related := m.sess.Related(item.Path)
	if len(related) > 1 {
		b.WriteString("\n  ")
		b.WriteString(mutedTextStyle.Render(fmt.Sprintf("Group of %d", len(related))))
		b.WriteString("\n")
		for _, p := range related {
			marker := "  "
			if p == item.Path {
				marker = "> "
			}
			size := ""
			if fi, err := os.Lstat(p); err == nil {
				size = humanize.IBytes(uint64(fi.Size()))
			}
			line := fmt.Sprintf("  %s%-40s %10s", marker, filepath.Base(p), size)
			if badge := renderBadge(decisions[p]); badge != "" {
				line += "  " + badge
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	return b.String()
}

// imageInfo probes the header once per path.
func (m Model) imageInfo(path string) string {
	if info, ok := m.infos[path]; ok {
		return info
	}
	info, err := imageinfo.Probe(path)
	if err != nil {
		m.log.Debug("probe failed", "path", path, "error", err)
		m.infos[path] = ""
		return ""
	}
	m.infos[path] = info.String()
	return m.infos[path]
}

func renderBadge(action types.Action) string {
	switch action {
	case types.ActionKeep:
		return keepBadgeStyle.Render("KEEP")
	case types.ActionDelete:
		return deleteBadgeStyle.Render("DELETE")
	}
	return ""
}

func (m Model) renderStatus() string {
	if m.status == "" {
		return ""
	}
	if m.statusErr {
		return " " + errorTextStyle.Render(m.status)
	}
	return " " + mutedTextStyle.Render(m.status)
}

func renderHelp() string {
	keys := []struct{ key, desc string }{
		{"←/→", "move"},
		{"k", "keep"},
		{"d", "delete"},
		{"u", "undo"},
		{"a", "apply"},
		{"r", "rescan"},
		{"o", "open"},
		{"L", "logs"},
		{"q", "quit"},
	}
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, keyStyle.Render(k.key)+" "+keyDescStyle.Render(k.desc))
	}
	return " " + strings.Join(parts, "  ")
}

// Run starts the TUI application.
func Run(opts Options) error {
	model, err := NewModel(opts)
	if err != nil {
		return err
	}
	defer model.Close()

	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err = p.Run()
	return err
}
