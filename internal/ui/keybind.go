package ui

import (
	"slices"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// binding is one entry of the registry. A binding without modes applies
// on every screen.
type binding struct {
	cmd   tea.Cmd
	desc  string
	modes []AppMode
}

func (b binding) in(mode AppMode) bool {
	return len(b.modes) == 0 || slices.Contains(b.modes, mode)
}

// KeybindRegistry maps key sequences to commands. Sequences are written
// with SPC for the leader: "SPC t d" is space, t, d. Single keys ("q") fire
// without the leader.
type KeybindRegistry struct {
	bindings map[string]binding
	// submenus labels a prefix that only opens more keys, e.g. "SPC t".
	submenus map[string]string
}

// NewKeybindRegistry creates an empty registry.
func NewKeybindRegistry() *KeybindRegistry {
	return &KeybindRegistry{
		bindings: make(map[string]binding),
		submenus: make(map[string]string),
	}
}

// Bind registers seq, replacing any previous binding. With no modes the
// binding is active everywhere.
func (r *KeybindRegistry) Bind(seq, desc string, cmd tea.Cmd, modes ...AppMode) {
	r.bindings[normalizeSeq(seq)] = binding{cmd: cmd, desc: desc, modes: modes}
}

// Submenu names the group of bindings under prefix in the hint bar.
func (r *KeybindRegistry) Submenu(prefix, label string) {
	r.submenus[normalizeSeq(prefix)] = label
}

// Lookup returns the command bound to seq in mode, or nil.
func (r *KeybindRegistry) Lookup(seq string, mode AppMode) tea.Cmd {
	b, ok := r.bindings[normalizeSeq(seq)]
	if !ok || !b.in(mode) {
		return nil
	}
	return b.cmd
}

// HasPrefix reports whether a longer sequence active in mode starts with seq.
func (r *KeybindRegistry) HasPrefix(seq string, mode AppMode) bool {
	prefix := normalizeSeq(seq) + " "
	for s, b := range r.bindings {
		if b.cmd != nil && b.in(mode) && strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}

// LeaderHints returns the next keys reachable from currentSeq in mode,
// mapped to their description. An empty currentSeq means just after SPC.
// Keys that open a submenu show the submenu label.
func (r *KeybindRegistry) LeaderHints(currentSeq string, mode AppMode) map[string]string {
	base := "SPC"
	if currentSeq != "" {
		base = normalizeSeq(currentSeq)
	}
	out := make(map[string]string)
	for seq, b := range r.bindings {
		rest, ok := strings.CutPrefix(seq, base+" ")
		if !ok || b.cmd == nil || !b.in(mode) {
			continue
		}
		next, _, _ := strings.Cut(rest, " ")
		sub := base + " " + next
		switch {
		case r.HasPrefix(sub, mode):
			label, ok := r.submenus[sub]
			if !ok {
				label = next + "…"
			}
			out[next] = label
		case b.desc != "":
			out[next] = b.desc
		default:
			out[next] = seq
		}
	}
	return out
}

// normalizeSeq writes the leader as SPC however it was typed.
func normalizeSeq(seq string) string {
	parts := strings.Fields(seq)
	for i, p := range parts {
		parts[i] = keyToSeqPart(p)
	}
	return strings.Join(parts, " ")
}

func keyToSeqPart(s string) string {
	if s == " " || s == "space" {
		return "SPC"
	}
	return s
}

// KeyHandler turns key presses into registry lookups. After the leader it
// buffers keys until they name a binding or no binding can follow.
type KeyHandler struct {
	Registry      *KeybindRegistry
	LeaderKey     string // tea.KeyMsg.String() of the leader, " " for space
	LeaderSeq     string // how the leader is written in sequences
	LeaderWaiting bool
	Buffer        []string
	// Mode selects which bindings are live.
	Mode AppMode
}

// NewKeyHandler creates a handler with space as the leader.
func NewKeyHandler(reg *KeybindRegistry) *KeyHandler {
	return &KeyHandler{Registry: reg, LeaderKey: " ", LeaderSeq: "SPC"}
}

func (h *KeyHandler) reset() {
	h.LeaderWaiting = false
	h.Buffer = nil
}

// Handle reports whether msg was taken by the keybind layer and the command
// to run, if any. Keys typed after the leader are always consumed, even
// when they lead nowhere.
func (h *KeyHandler) Handle(msg tea.KeyMsg) (consumed bool, cmd tea.Cmd) {
	s := msg.String()
	switch {
	case s == "esc":
		if !h.LeaderWaiting {
			return false, nil
		}
		h.reset()
		return true, nil
	case s == h.LeaderKey && !h.LeaderWaiting:
		h.LeaderWaiting = true
		h.Buffer = []string{h.LeaderSeq}
		return true, nil
	case h.LeaderWaiting:
		h.Buffer = append(h.Buffer, keyToSeqPart(s))
		seq := strings.Join(h.Buffer, " ")
		if c := h.Registry.Lookup(seq, h.Mode); c != nil {
			h.reset()
			return true, c
		}
		if !h.Registry.HasPrefix(seq, h.Mode) {
			h.reset()
		}
		return true, nil
	}
	if c := h.Registry.Lookup(keyToSeqPart(s), h.Mode); c != nil {
		return true, c
	}
	return false, nil
}

// KeyMap adapts the leader hints to bubbles/help.
type KeyMap struct {
	registry   *KeybindRegistry
	keyHandler *KeyHandler
	mode       AppMode
}

// NewKeyMap returns the help.KeyMap for the handler's current sequence.
func NewKeyMap(registry *KeybindRegistry, keyHandler *KeyHandler, mode AppMode) help.KeyMap {
	return &KeyMap{registry: registry, keyHandler: keyHandler, mode: mode}
}

// ShortHelp lists the reachable keys in order, then esc.
func (km *KeyMap) ShortHelp() []key.Binding {
	if km.registry == nil {
		return nil
	}
	var seq string
	if km.keyHandler != nil {
		seq = strings.Join(km.keyHandler.Buffer, " ")
	}
	hints := km.registry.LeaderHints(seq, km.mode)
	if len(hints) == 0 {
		return nil
	}
	keys := make([]string, 0, len(hints))
	for k := range hints {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]key.Binding, 0, len(keys)+1)
	for _, k := range keys {
		out = append(out, key.NewBinding(key.WithKeys(k), key.WithHelp(k, hints[k])))
	}
	return append(out, key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")))
}

// FullHelp is ShortHelp in one column.
func (km *KeyMap) FullHelp() [][]key.Binding {
	if short := km.ShortHelp(); len(short) > 0 {
		return [][]key.Binding{short}
	}
	return nil
}
