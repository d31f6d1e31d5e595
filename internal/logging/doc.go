// Package logging wires log/slog for the daemon: a console handler for
// interactive use, a JSON handler for machine consumption, attribute
// helpers, and context-derived fields (item id, stage, correlation id)
// so every stage log line is traceable to the item it concerns.
package logging
