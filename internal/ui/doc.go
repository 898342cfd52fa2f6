// package ui implements the admin TUI for inspecting a customer's
// entitlements: a pack list with a drill-down track view.
package ui
