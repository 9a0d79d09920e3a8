// Package ui is the Bubble Tea front end of the dashboard.
//
// Core abstractions:
//   - View: A screen or modal with its own model, update, view (Elm-style)
//   - AppModel: Root model; picks the screen from the session snapshot
//   - Overlay: Modal or popup views stacked over the screen
//   - KeybindRegistry: SPC-leader commands filtered by AppMode
//   - FocusManager: Tab order across the inputs of a form
//
// Backend actions run as commands; the app is busy until each one reports
// back with a fresh snapshot.
package ui
