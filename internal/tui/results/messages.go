package results

// SetEditorQueryMsg asks the app to put a query in the editor for review.
type SetEditorQueryMsg struct {
	Query string
}

// StatusNotifyMsg asks the app to show a message in the status bar.
type StatusNotifyMsg struct {
	Message string
}

// Message returns the last action message of the pane.
func (m Model) Message() string {
	return m.statusMessage
}
