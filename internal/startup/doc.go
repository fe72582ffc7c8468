// Package startup handles application initialization: environment
// configuration, directory validation, encoder availability checks,
// and the structured startup/shutdown log sections.
package startup
