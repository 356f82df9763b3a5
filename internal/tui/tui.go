package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	goerrors "github.com/go-errors/errors"
	"github.com/jesseduffield/gocui"

	"github.com/Joseda-hg/lazytodo/internal/logger"
	"github.com/Joseda-hg/lazytodo/internal/model"
	"github.com/Joseda-hg/lazytodo/internal/query"
	"github.com/Joseda-hg/lazytodo/internal/store"
)

const (
	viewHeader  = "header"
	viewFooter  = "footer"
	viewTasks   = "tasks"
	viewTags    = "tags"
	viewDetail  = "detail"
	viewHistory = "history"
	viewSearch  = "search"
	viewForm    = "form"
)

type HistoryLister interface {
	ListHistory(ctx context.Context, taskID string) ([]model.HistoryEntry, error)
}

type UI struct {
	store   *store.Store
	history HistoryLister
	gui     *gocui.Gui
	now     func() time.Time

	query   model.Query
	visible []model.Task
	tags    []query.TagCount
	stats   query.Stats
	entries []model.HistoryEntry

	selectedRow     int
	selectedTag     int
	selectedHistory int
	focus           string

	form         *formState
	formEditor   *formEditor
	formTagIndex int
	searchActive bool
	status       string
}

type formState struct {
	taskID string
	fields []formField
	index  int
}

type formEditor struct {
	ui *UI
}

// Run drives the terminal UI until the user quits. The UI goroutine is the
// only writer of s for the lifetime of the call.
func Run(s *store.Store, history HistoryLister, initial model.Query) error {
	gui, err := gocui.NewGui(gocui.NewGuiOpts{OutputMode: gocui.OutputNormal})
	if err != nil {
		return err
	}
	defer gui.Close()

	ui := newUI(s, history, initial)
	ui.gui = gui
	gui.Mouse = true

	gui.SetManagerFunc(ui.layout)
	if err := ui.bindKeys(gui); err != nil {
		return err
	}
	if err := ui.refresh(); err != nil {
		return err
	}

	if err := gui.MainLoop(); err != nil && !goerrors.Is(err, gocui.ErrQuit) {
		return err
	}

	return nil
}

func newUI(s *store.Store, history HistoryLister, initial model.Query) *UI {
	ui := &UI{
		store:   s,
		history: history,
		now:     time.Now,
		query:   initial,
		focus:   viewTasks,
	}
	ui.formEditor = &formEditor{ui: ui}
	return ui
}

type binding struct {
	view    string
	key     any
	handler func(*gocui.Gui, *gocui.View) error
}

func (u *UI) bindKeys(gui *gocui.Gui) error {
	bindings := []binding{
		{"", gocui.KeyCtrlC, u.quit},
		{"", 'q', u.quitIfIdle},
		{"", 'a', u.addTask},
		{"", 'e', u.editTask},
		{"", 'x', u.toggleCompleted},
		{"", 'p', u.togglePinned},
		{"", 'd', u.deleteTask},
		{"", 'C', u.clearCompleted},
		{"", 'f', u.cycleStatus},
		{"", 'P', u.cyclePriority},
		{"", 'o', u.cycleSort},
		{"", '/', u.startSearch},
		{"", 'g', u.resetQuery},
		{"", gocui.KeyTab, u.switchFocus},
		{"", '1', u.focusTasks},
		{"", '2', u.focusTags},
		{"", '3', u.focusDetail},
		{"", '4', u.focusHistory},
		{viewTags, gocui.KeySpace, u.toggleTagFilter},
		{viewTags, gocui.KeyEnter, u.toggleTagFilter},
		{viewSearch, gocui.KeyEnter, u.submitSearch},
		{viewSearch, gocui.KeyEsc, u.cancelSearch},
		{viewForm, gocui.KeyEnter, u.submitFormNow},
		{viewForm, gocui.KeyCtrlJ, u.submitFormNow},
		{viewForm, gocui.KeyTab, u.nextFormField},
		{viewForm, gocui.KeyBacktab, u.prevFormField},
		{viewForm, gocui.KeyArrowDown, u.nextFormField},
		{viewForm, gocui.KeyArrowUp, u.prevFormField},
		{viewForm, gocui.KeyEsc, u.cancelForm},
	}
	for _, name := range []string{viewTasks, viewTags, viewHistory} {
		bindings = append(bindings,
			binding{name, gocui.KeyArrowDown, u.moveDown},
			binding{name, 'j', u.moveDown},
			binding{name, gocui.KeyArrowUp, u.moveUp},
			binding{name, 'k', u.moveUp},
		)
	}

	for _, b := range bindings {
		if err := gui.SetKeybinding(b.view, b.key, gocui.ModNone, b.handler); err != nil {
			return err
		}
	}

	for _, name := range []string{viewTasks, viewTags, viewHistory} {
		viewName := name
		if err := gui.SetViewClickBinding(&gocui.ViewMouseBinding{ViewName: viewName, Key: gocui.MouseLeft, Handler: func(opts gocui.ViewMouseBindingOpts) error {
			return u.onListClick(gui, viewName, opts)
		}}); err != nil {
			return err
		}
	}
	return u.bindMouseScroll(gui)
}

func (u *UI) layout(gui *gocui.Gui) error {
	maxX, maxY := gui.Size()
	if maxX <= 0 || maxY <= 0 {
		return nil
	}

	headerView, err := gui.SetView(viewHeader, 0, 0, maxX-1, 0, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	headerView.Frame = false
	headerView.Wrap = true
	headerView.FgColor = gocui.ColorDefault
	u.renderHeader(headerView)

	footerY1 := max(maxY-2, 1)
	footerY0 := max(footerY1-2, 1)
	footerView, err := gui.SetView(viewFooter, 0, footerY0, maxX-1, footerY1, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	footerView.Frame = false
	footerView.Wrap = true
	footerView.FgColor = gocui.ColorDefault | gocui.AttrDim
	footerView.BgColor = gocui.ColorDefault
	u.renderFooter(footerView)

	bodyTop := 1
	bodyBottom := footerY0 - 1
	if bodyBottom < bodyTop {
		return nil
	}

	l := computeLayout(maxX, bodyBottom-bodyTop+1)
	leftX1 := l.leftWidth - 1
	rightX0 := leftX1 + 1
	if rightX0 >= maxX {
		rightX0 = leftX1
	}
	rightX1 := maxX - 1

	tasksY1 := bodyTop + l.tasksHeight - 1
	detailY1 := bodyTop + l.detailHeight - 1

	tasksView, err := gui.SetView(viewTasks, 0, bodyTop, leftX1, tasksY1, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	tasksView.Title = fmt.Sprintf("1 Tasks (%d/%d)", len(u.visible), u.stats.Total)
	applyViewStyle(tasksView, u.focus == viewTasks, true)
	u.renderTasks(tasksView)

	tagsView, err := gui.SetView(viewTags, 0, tasksY1+1, leftX1, bodyBottom, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		tagsView.Title = "2 Tags"
	}
	applyViewStyle(tagsView, u.focus == viewTags, false)
	u.renderTags(tagsView)

	detailView, err := gui.SetView(viewDetail, rightX0, bodyTop, rightX1, detailY1, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		detailView.Title = "3 Detail"
		detailView.Wrap = true
	}
	applyViewStyle(detailView, u.focus == viewDetail, false)
	u.renderDetail(detailView)

	historyView, err := gui.SetView(viewHistory, rightX0, detailY1+1, rightX1, bodyBottom, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		historyView.Title = "4 History"
	}
	applyViewStyle(historyView, u.focus == viewHistory, true)
	u.renderHistory(historyView, u.focus == viewHistory)

	_, _ = gui.SetViewOnTop(viewHeader)
	_, _ = gui.SetViewOnTop(viewFooter)

	if u.searchActive {
		if err := u.showSearch(gui); err != nil {
			return err
		}
	} else {
		_ = gui.DeleteView(viewSearch)
	}

	if u.form != nil {
		if err := u.showForm(gui); err != nil {
			return err
		}
	} else {
		_ = gui.DeleteView(viewForm)
	}

	if gui.CurrentView() == nil {
		_, _ = gui.SetCurrentView(u.focus)
	}

	gui.Cursor = u.inputActive()

	return nil
}

type layout struct {
	leftWidth     int
	tasksHeight   int
	detailHeight  int
	tagsHeight    int
	historyHeight int
}

func computeLayout(width, height int) layout {
	safeWidth := max(width-2, 20)
	safeHeight := max(height, 8)

	leftWidth := safeWidth / 2
	if leftWidth < 30 {
		leftWidth = 30
	}
	if leftWidth > safeWidth-18 {
		leftWidth = safeWidth / 2
	}

	tasksHeight := max(int(float64(safeHeight)*0.7), 4)
	tagsHeight := safeHeight - tasksHeight
	if tagsHeight < 4 {
		tagsHeight = 4
		tasksHeight = max(safeHeight-tagsHeight, 4)
	}

	detailHeight := max(int(float64(safeHeight)*0.55), 4)
	historyHeight := safeHeight - detailHeight
	if historyHeight < 4 {
		historyHeight = 4
		detailHeight = max(safeHeight-historyHeight, 4)
	}

	return layout{
		leftWidth:     leftWidth,
		tasksHeight:   tasksHeight,
		detailHeight:  detailHeight,
		tagsHeight:    tagsHeight,
		historyHeight: historyHeight,
	}
}

// refresh recomputes every derived view from the store. The selection
// follows the selected task when it is still visible.
func (u *UI) refresh() error {
	selectedID := ""
	if task := u.currentTask(); task != nil {
		selectedID = task.ID
	}

	tasks := u.store.Tasks()
	u.tags = query.TagCounts(tasks)
	u.stats = query.Summarize(tasks)

	if u.query.ActiveTag != "" && !containsTag(u.tags, u.query.ActiveTag) {
		logger.Debug("clearing stale tag filter", "tag", u.query.ActiveTag)
		u.query.ActiveTag = ""
	}

	u.visible = query.Evaluate(tasks, u.query)

	if index := indexOfTask(u.visible, selectedID); index >= 0 {
		u.selectedRow = index
	}
	if u.selectedRow >= len(u.visible) {
		u.selectedRow = max(len(u.visible)-1, 0)
	}
	if u.selectedTag >= len(u.tags) {
		u.selectedTag = max(len(u.tags)-1, 0)
	}
	if u.formTagIndex >= len(u.tags) {
		u.formTagIndex = max(len(u.tags)-1, 0)
	}

	return u.loadHistory()
}

func (u *UI) loadHistory() error {
	selected := u.currentTask()
	if selected == nil || u.history == nil {
		u.entries = nil
		return nil
	}

	entries, err := u.history.ListHistory(context.Background(), selected.ID)
	if err != nil {
		logger.Error(err, "list history", "task", selected.ID)
		u.entries = nil
		u.selectedHistory = 0
		return nil
	}
	u.entries = entries
	if u.selectedHistory >= len(u.entries) {
		u.selectedHistory = max(len(u.entries)-1, 0)
	}
	return nil
}

func (u *UI) renderHeader(view *gocui.View) {
	view.Clear()
	search := strings.TrimSpace(u.query.Search)
	if search == "" {
		search = "type / to search"
	}

	tag := u.query.ActiveTag
	if tag == "" {
		tag = "none"
	}

	fmt.Fprintf(view, "Search: %s | Status: %s | Priority: %s | Tag: %s | Sort: %s | %d%% done",
		search, u.query.Status, u.query.Priority, tag, u.query.SortBy.Label(), u.stats.CompletionRate)
}

func (u *UI) renderFooter(view *gocui.View) {
	view.Clear()
	view.SetOrigin(0, 0)
	view.SetCursor(0, 0)

	fmt.Fprintln(view, "a add | e edit | x done | p pin | d delete | C clear completed | space/enter tag filter")
	fmt.Fprintln(view, "/ search | f status | P priority | o sort | g reset | tab cycle | 1-4 panes | q quit")
	if u.status != "" {
		fmt.Fprint(view, u.status)
	}
}

func (u *UI) renderTasks(view *gocui.View) {
	view.Clear()
	focused := u.focus == viewTasks
	today := u.now()
	for i, task := range u.visible {
		prefix := " "
		if i == u.selectedRow {
			if focused {
				prefix = ">"
			} else {
				prefix = "*"
			}
		}
		fmt.Fprintf(view, "%s %s\n", prefix, formatTaskSummary(task, today))
	}
	if focused {
		view.SetCursor(0, min(u.selectedRow, len(u.visible)-1))
	}
}

func (u *UI) renderTags(view *gocui.View) {
	view.Clear()
	for index, entry := range u.tags {
		prefix := " "
		if index == u.selectedTag {
			prefix = ">"
		}
		marker := " "
		if entry.Name == u.query.ActiveTag {
			marker = "x"
		}
		fmt.Fprintf(view, "%s [%s] %s (%d)\n", prefix, marker, entry.Name, entry.Count)
	}
	if u.focus == viewTags {
		view.SetCursor(0, min(u.selectedTag, len(u.tags)-1))
	}
}

func (u *UI) renderDetail(view *gocui.View) {
	view.Clear()
	selected := u.currentTask()
	if selected == nil {
		fmt.Fprint(view, "No task selected")
		return
	}

	lines := []string{}
	if u.focus == viewHistory {
		if entry := u.selectedHistoryEntry(); entry != nil {
			lines = append(lines,
				"History Detail",
				fmt.Sprintf("When: %s", entry.CreatedAt.Local().Format("2006-01-02 15:04:05")),
				fmt.Sprintf("Type: %s", entry.EventType),
				fmt.Sprintf("Details: %s", entry.Details),
				"",
				"Task",
			)
		} else {
			lines = append(lines, "No history selected", "", "Task")
		}
	}

	lines = append(lines, formatTaskDetail(*selected, u.now())...)
	fmt.Fprint(view, strings.Join(lines, "\n"))
}

func (u *UI) renderHistory(view *gocui.View, focused bool) {
	view.Clear()
	for index, entry := range u.entries {
		prefix := " "
		if index == u.selectedHistory {
			if focused {
				prefix = ">"
			} else {
				prefix = "*"
			}
		}
		fmt.Fprintf(view, "%s %s | %s | %s\n", prefix, entry.CreatedAt.Local().Format("2006-01-02 15:04"), entry.EventType, entry.Details)
	}
	if focused {
		view.SetCursor(0, min(u.selectedHistory, len(u.entries)-1))
	}
}

func (u *UI) onListClick(gui *gocui.Gui, viewName string, opts gocui.ViewMouseBindingOpts) error {
	if u.inputActive() {
		return nil
	}
	view, err := gui.View(viewName)
	if err != nil {
		return nil
	}

	_, y0, _, _ := view.Dimensions()
	_, oy := view.Origin()
	row := max(opts.Y-y0-1+oy, 0)

	switch viewName {
	case viewTasks:
		u.selectedRow = max(min(row, len(u.visible)-1), 0)
	case viewTags:
		u.selectedTag = max(min(row, len(u.tags)-1), 0)
	case viewHistory:
		u.selectedHistory = max(min(row, len(u.entries)-1), 0)
	default:
		return nil
	}
	return u.setFocus(gui, viewName)
}

func (u *UI) bindMouseScroll(gui *gocui.Gui) error {
	for _, name := range []string{viewTasks, viewTags, viewDetail, viewHistory} {
		if err := gui.SetKeybinding(name, gocui.MouseWheelUp, gocui.ModNone, u.scrollUp); err != nil {
			return err
		}
		if err := gui.SetKeybinding(name, gocui.MouseWheelDown, gocui.ModNone, u.scrollDown); err != nil {
			return err
		}
	}
	return nil
}

func (u *UI) scrollUp(gui *gocui.Gui, view *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	if view == nil {
		view = gui.CurrentView()
	}
	if view == nil {
		return nil
	}
	view.ScrollUp(1)
	return nil
}

func (u *UI) scrollDown(gui *gocui.Gui, view *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	if view == nil {
		view = gui.CurrentView()
	}
	if view == nil {
		return nil
	}
	view.ScrollDown(1)
	return nil
}

func (u *UI) selectedHistoryEntry() *model.HistoryEntry {
	if u.selectedHistory >= 0 && u.selectedHistory < len(u.entries) {
		return &u.entries[u.selectedHistory]
	}
	return nil
}

func (u *UI) currentTask() *model.Task {
	if u.selectedRow >= 0 && u.selectedRow < len(u.visible) {
		return &u.visible[u.selectedRow]
	}
	return nil
}

func (u *UI) switchFocus(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}

	next := viewTasks
	switch u.focus {
	case viewTasks:
		next = viewTags
	case viewTags:
		next = viewDetail
	case viewDetail:
		next = viewHistory
	}
	return u.setFocus(gui, next)
}

func (u *UI) focusTasks(gui *gocui.Gui, _ *gocui.View) error {
	return u.setFocus(gui, viewTasks)
}

func (u *UI) focusTags(gui *gocui.Gui, _ *gocui.View) error {
	return u.setFocus(gui, viewTags)
}

func (u *UI) focusDetail(gui *gocui.Gui, _ *gocui.View) error {
	return u.setFocus(gui, viewDetail)
}

func (u *UI) focusHistory(gui *gocui.Gui, _ *gocui.View) error {
	return u.setFocus(gui, viewHistory)
}

func (u *UI) setFocus(gui *gocui.Gui, name string) error {
	if u.inputActive() {
		return nil
	}
	u.focus = name
	restoreFocus(gui, name)
	return u.loadHistory()
}

func (u *UI) moveDown(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	switch u.focus {
	case viewTasks:
		if u.selectedRow < len(u.visible)-1 {
			u.selectedRow++
			return u.loadHistory()
		}
	case viewTags:
		if u.selectedTag < len(u.tags)-1 {
			u.selectedTag++
		}
	case viewHistory:
		if u.selectedHistory < len(u.entries)-1 {
			u.selectedHistory++
		}
	}
	return nil
}

func (u *UI) moveUp(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	switch u.focus {
	case viewTasks:
		if u.selectedRow > 0 {
			u.selectedRow--
			return u.loadHistory()
		}
	case viewTags:
		if u.selectedTag > 0 {
			u.selectedTag--
		}
	case viewHistory:
		if u.selectedHistory > 0 {
			u.selectedHistory--
		}
	}
	return nil
}

func (u *UI) resetQuery(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	u.query = model.DefaultQuery()
	u.status = ""
	return u.refresh()
}

func (u *UI) cycleStatus(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	u.query.Status = model.Cycle(model.StatusFilters, u.query.Status, 1)
	return u.refresh()
}

func (u *UI) cyclePriority(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	u.query.Priority = model.Cycle(model.PriorityFilters, u.query.Priority, 1)
	return u.refresh()
}

func (u *UI) cycleSort(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	u.query.SortBy = model.Cycle(model.SortKeys, u.query.SortBy, 1)
	return u.refresh()
}

// toggleTagFilter sets the selected tag as the active filter, or clears it
// when it is already active.
func (u *UI) toggleTagFilter(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() || u.focus != viewTags {
		return nil
	}
	if u.selectedTag < 0 || u.selectedTag >= len(u.tags) {
		return nil
	}
	name := u.tags[u.selectedTag].Name
	if u.query.ActiveTag == name {
		u.query.ActiveTag = ""
	} else {
		u.query.ActiveTag = name
	}
	return u.refresh()
}

func (u *UI) startSearch(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	u.searchActive = true
	return nil
}

func (u *UI) showSearch(gui *gocui.Gui) error {
	maxX, maxY := gui.Size()
	width := max(30, maxX/2)
	height := 3
	x0 := (maxX - width) / 2
	y0 := (maxY - height) / 2

	view, err := gui.SetView(viewSearch, x0, y0, x0+width, y0+height, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		view.Title = "Search"
		view.Wrap = true
		view.Clear()
		fmt.Fprint(view, u.query.Search)
	}
	view.Editable = true
	view.Editor = gocui.DefaultEditor
	_, _ = gui.SetCurrentView(viewSearch)
	return nil
}

func (u *UI) submitSearch(gui *gocui.Gui, view *gocui.View) error {
	value := ""
	if view != nil {
		value = view.Buffer()
	}
	return u.applySearch(gui, value)
}

func (u *UI) applySearch(gui *gocui.Gui, value string) error {
	u.query.Search = strings.TrimSpace(value)
	u.searchActive = false
	u.status = ""
	if gui != nil {
		_ = gui.DeleteView(viewSearch)
	}
	restoreFocus(gui, u.focus)
	return u.refresh()
}

func (u *UI) cancelSearch(gui *gocui.Gui, _ *gocui.View) error {
	u.searchActive = false
	if gui != nil {
		_ = gui.DeleteView(viewSearch)
	}
	restoreFocus(gui, u.focus)
	return nil
}

func (u *UI) addTask(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	fields := buildFormFields(nil)
	if u.query.ActiveTag != "" {
		fields[fieldTags].Value = u.query.ActiveTag
	}
	u.form = &formState{fields: fields}
	u.formTagIndex = 0
	return nil
}

func (u *UI) editTask(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	selected := u.currentTask()
	if selected == nil {
		return nil
	}
	u.form = &formState{taskID: selected.ID, fields: buildFormFields(selected)}
	u.formTagIndex = 0
	return nil
}

func (u *UI) showForm(gui *gocui.Gui) error {
	if u.form == nil {
		return nil
	}

	maxX, maxY := gui.Size()
	width := max(60, maxX/2)
	height := min(10, max(7, maxY/2))
	x0 := (maxX - width) / 2
	y0 := (maxY - height) / 2

	view, err := gui.SetView(viewForm, x0, y0, x0+width, y0+height, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		view.Wrap = true
	}
	view.Title = "New Task"
	if u.form.taskID != "" {
		view.Title = "Edit Task"
	}
	view.Editable = true
	view.KeybindOnEdit = true
	view.Editor = u.formEditor
	u.renderForm(view)
	_, _ = gui.SetCurrentView(viewForm)
	return nil
}

func (u *UI) submitFormNow(gui *gocui.Gui, _ *gocui.View) error {
	if u.form == nil {
		return nil
	}

	input := parseFormFields(u.form.fields)
	if u.form.taskID == "" {
		task, err := model.NewTask(input, model.NewID(), u.now())
		if err != nil {
			u.status = err.Error()
			return nil
		}
		if err := u.store.Create(task); err != nil {
			u.status = err.Error()
			return nil
		}
		u.selectedRow = 0
	} else {
		patch, err := patchFromInput(input)
		if err != nil {
			u.status = err.Error()
			return nil
		}
		if err := u.store.Update(u.form.taskID, patch); err != nil && !goerrors.Is(err, store.ErrNotFound) {
			u.status = err.Error()
			return nil
		}
	}

	u.form = nil
	u.status = ""
	if gui != nil {
		_ = gui.DeleteView(viewForm)
	}
	restoreFocus(gui, u.focus)
	return u.refresh()
}

func (u *UI) cancelForm(gui *gocui.Gui, _ *gocui.View) error {
	u.form = nil
	if gui != nil {
		_ = gui.DeleteView(viewForm)
	}
	restoreFocus(gui, u.focus)
	return nil
}

func (u *UI) nextFormField(_ *gocui.Gui, view *gocui.View) error {
	if u.form == nil {
		return nil
	}
	if u.form.index < len(u.form.fields)-1 {
		u.form.index++
	}
	u.renderForm(view)
	return nil
}

func (u *UI) prevFormField(_ *gocui.Gui, view *gocui.View) error {
	if u.form == nil {
		return nil
	}
	if u.form.index > 0 {
		u.form.index--
	}
	u.renderForm(view)
	return nil
}

func (u *UI) renderForm(view *gocui.View) {
	if u.form == nil || view == nil {
		return
	}
	view.Clear()
	for index, field := range u.form.fields {
		prefix := "  "
		if index == u.form.index {
			prefix = "> "
		}
		value := field.Value
		if index == fieldTags {
			if candidate := u.currentTagOption(); candidate != "" {
				value = fmt.Sprintf("%s [ctrl+t: %s]", value, candidate)
			}
		}
		fmt.Fprintf(view, "%s%s: %s\n", prefix, field.Label, value)
	}
	current := u.form.fields[u.form.index]
	cursorX := len([]rune(current.Label+": ")) + len([]rune(current.Value)) + 2
	view.SetCursor(cursorX, u.form.index)
}

func (e *formEditor) Edit(view *gocui.View, key gocui.Key, ch rune, mod gocui.Modifier) bool {
	ui := e.ui
	if ui == nil || ui.form == nil || view == nil {
		return false
	}
	field := &ui.form.fields[ui.form.index]

	if ui.form.index == fieldPriority {
		switch key {
		case gocui.KeyArrowRight, gocui.KeySpace:
			field.Value = string(model.Cycle(model.Priorities, model.ParsePriority(field.Value), 1))
		case gocui.KeyArrowLeft:
			field.Value = string(model.Cycle(model.Priorities, model.ParsePriority(field.Value), -1))
		}
		ui.renderForm(view)
		return true
	}

	if ui.form.index == fieldTags {
		switch key {
		case gocui.KeyArrowRight:
			ui.formTagIndex = min(ui.formTagIndex+1, len(ui.tags)-1)
			ui.renderForm(view)
			return true
		case gocui.KeyArrowLeft:
			ui.formTagIndex = max(ui.formTagIndex-1, 0)
			ui.renderForm(view)
			return true
		case gocui.KeyCtrlT:
			ui.toggleTagInField(field)
			ui.renderForm(view)
			return true
		}
	}

	switch key {
	case gocui.KeyBackspace, gocui.KeyBackspace2:
		runes := []rune(field.Value)
		if len(runes) > 0 {
			field.Value = string(runes[:len(runes)-1])
		}
	case gocui.KeySpace:
		field.Value += " "
	case gocui.KeyCtrlU:
		field.Value = ""
	}

	if ch != 0 && ch != '\n' && ch != '\r' && mod == 0 {
		field.Value += string(ch)
	}

	ui.renderForm(view)
	return true
}

func (u *UI) currentTagOption() string {
	if len(u.tags) == 0 {
		return ""
	}
	u.formTagIndex = max(min(u.formTagIndex, len(u.tags)-1), 0)
	return u.tags[u.formTagIndex].Name
}

// toggleTagInField adds the suggested tag to the field, or removes it when
// it is already listed.
func (u *UI) toggleTagInField(field *formField) {
	current := u.currentTagOption()
	if current == "" {
		return
	}

	tags := model.ParseTags(field.Value)
	kept := make([]string, 0, len(tags)+1)
	found := false
	for _, tag := range tags {
		if tag == current {
			found = true
			continue
		}
		kept = append(kept, tag)
	}
	if !found {
		kept = append(kept, current)
	}
	field.Value = strings.Join(kept, ", ")
}

func (u *UI) toggleCompleted(_ *gocui.Gui, _ *gocui.View) error {
	return u.mutateSelected(u.store.ToggleCompleted)
}

func (u *UI) togglePinned(_ *gocui.Gui, _ *gocui.View) error {
	return u.mutateSelected(u.store.TogglePinned)
}

func (u *UI) deleteTask(_ *gocui.Gui, _ *gocui.View) error {
	return u.mutateSelected(u.store.Delete)
}

// mutateSelected applies fn to the selected task. A task that vanished in
// the meantime is ignored.
func (u *UI) mutateSelected(fn func(id string) error) error {
	if u.inputActive() {
		return nil
	}
	selected := u.currentTask()
	if selected == nil {
		return nil
	}
	if err := fn(selected.ID); err != nil && !goerrors.Is(err, store.ErrNotFound) {
		u.status = err.Error()
		return nil
	}
	u.status = ""
	return u.refresh()
}

func (u *UI) clearCompleted(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	removed := u.store.ClearCompleted()
	u.status = fmt.Sprintf("cleared %d completed", removed)
	return u.refresh()
}

func (u *UI) inputActive() bool {
	return u.searchActive || u.form != nil
}

func (u *UI) quit(_ *gocui.Gui, _ *gocui.View) error {
	return gocui.ErrQuit
}

func (u *UI) quitIfIdle(gui *gocui.Gui, view *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	return u.quit(gui, view)
}

func restoreFocus(gui *gocui.Gui, name string) {
	if gui == nil {
		return
	}
	_, _ = gui.SetCurrentView(name)
}

func containsTag(tags []query.TagCount, name string) bool {
	for _, tag := range tags {
		if tag.Name == name {
			return true
		}
	}
	return false
}

func indexOfTask(tasks []model.Task, id string) int {
	if id == "" {
		return -1
	}
	for i, task := range tasks {
		if task.ID == id {
			return i
		}
	}
	return -1
}

func applyViewStyle(view *gocui.View, focused bool, highlight bool) {
	view.Frame = true
	view.Highlight = focused && highlight
	view.HighlightInactive = false
	view.SelBgColor = gocui.ColorBlue
	view.SelFgColor = gocui.ColorBlack
	view.InactiveViewSelBgColor = gocui.ColorDefault
	if focused {
		view.FrameColor = gocui.ColorCyan
		view.TitleColor = gocui.ColorCyan
	} else {
		view.FrameColor = gocui.ColorDefault
		view.TitleColor = gocui.ColorDefault
	}
}
