package ui

import tea "github.com/charmbracelet/bubbletea"

// View is one screen or modal. Screens are chosen from the session state;
// modals stack on top of them as overlays.
type View interface {
	Init() tea.Cmd
	Update(tea.Msg) (View, tea.Cmd)
	View() string
}

// Overlay is a modal pushed over the current screen. Dismiss names the key
// that pops it without asking the modal.
type Overlay struct {
	View    View
	Dismiss string
}

// IsDismissKey reports whether key pops the overlay.
func (o Overlay) IsDismissKey(key string) bool {
	return o.Dismiss != "" && key == o.Dismiss
}

// OverlayStack holds the open modals; the top one gets keys first and is
// the one rendered.
type OverlayStack struct {
	items []Overlay
}

func (s *OverlayStack) Push(o Overlay) { s.items = append(s.items, o) }

func (s *OverlayStack) Len() int { return len(s.items) }

func (s *OverlayStack) Peek() (Overlay, bool) {
	if len(s.items) == 0 {
		return Overlay{}, false
	}
	return s.items[len(s.items)-1], true
}

func (s *OverlayStack) Pop() (Overlay, bool) {
	top, ok := s.Peek()
	if ok {
		s.items = s.items[:len(s.items)-1]
	}
	return top, ok
}

// Clear closes every modal, e.g. when the session ends.
func (s *OverlayStack) Clear() { s.items = nil }

// RemoveIf drops the overlays whose view matches and reports how many went.
func (s *OverlayStack) RemoveIf(match func(View) bool) int {
	kept := s.items[:0]
	for _, o := range s.items {
		if !match(o.View) {
			kept = append(kept, o)
		}
	}
	removed := len(s.items) - len(kept)
	s.items = kept
	return removed
}

// UpdateTop sends msg to the top overlay only.
func (s *OverlayStack) UpdateTop(msg tea.Msg) tea.Cmd {
	if len(s.items) == 0 {
		return nil
	}
	top := &s.items[len(s.items)-1]
	var cmd tea.Cmd
	top.View, cmd = top.View.Update(msg)
	return cmd
}

// Broadcast sends msg to every overlay, bottom first. Used for resizes so a
// modal uncovered later already has the right size.
func (s *OverlayStack) Broadcast(msg tea.Msg) tea.Cmd {
	cmds := make([]tea.Cmd, 0, len(s.items))
	for i := range s.items {
		var cmd tea.Cmd
		s.items[i].View, cmd = s.items[i].View.Update(msg)
		cmds = append(cmds, cmd)
	}
	return tea.Batch(cmds...)
}
