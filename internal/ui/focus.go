package ui

// FocusManager moves focus through form fields in a fixed order, wrapping
// at both ends. OnChange runs whenever the focused id actually changes.
type FocusManager struct {
	Current  string
	Order    []string
	OnChange func(from, to string)
}

func (f *FocusManager) index() int {
	for i, id := range f.Order {
		if id == f.Current {
			return i
		}
	}
	return -1
}

func (f *FocusManager) move(delta int) string {
	n := len(f.Order)
	if n == 0 {
		return ""
	}
	i := f.index()
	switch {
	case i < 0 && delta > 0:
		i = 0
	case i < 0:
		i = n - 1
	default:
		i = ((i+delta)%n + n) % n
	}
	f.set(f.Order[i])
	return f.Current
}

func (f *FocusManager) set(id string) {
	from := f.Current
	f.Current = id
	if f.OnChange != nil && from != id {
		f.OnChange(from, id)
	}
}

// Next focuses the following field and returns its id.
func (f *FocusManager) Next() string { return f.move(1) }

// Prev focuses the preceding field and returns its id.
func (f *FocusManager) Prev() string { return f.move(-1) }

// SetFocus focuses id. It reports false, changing nothing, when id is not
// one of the fields.
func (f *FocusManager) SetFocus(id string) bool {
	for _, o := range f.Order {
		if o == id {
			f.set(id)
			return true
		}
	}
	return false
}
